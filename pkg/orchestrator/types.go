package orchestrator

import (
	"time"

	"github.com/rrrhhh38/phytiumpi-project/pkg/usage"
)

// State is the lifecycle state of the analysis job.
//
// NOTE: these values are part of the HTTP status contract.
type State string

const (
	StateIdle      State = "idle"
	StateRunning   State = "running"
	StateCompleted State = "completed"
	StateError     State = "error"
)

// Terminal reports whether no further automatic transition follows s.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateError
}

// Inputs are the readiness values a job resolved before analysis.
type Inputs struct {
	ImagePath   string   `json:"image_path,omitempty"`
	WeightGrams *float64 `json:"weight_grams,omitempty"`
}

// Job is a snapshot of the single analysis job.
type Job struct {
	ID            string            `json:"job_id,omitempty"`
	State         State             `json:"status"`
	Message       string            `json:"message"`
	StartTime     *time.Time        `json:"start_time"`
	EndTime       *time.Time        `json:"end_time,omitempty"`
	Inputs        Inputs            `json:"inputs"`
	ResourceUsage []usage.CoreUsage `json:"resource_usage"`
}

// clone returns a deep copy so callers never share memory with the live
// record.
func (j Job) clone() Job {
	out := j
	if j.StartTime != nil {
		t := *j.StartTime
		out.StartTime = &t
	}
	if j.EndTime != nil {
		t := *j.EndTime
		out.EndTime = &t
	}
	if j.Inputs.WeightGrams != nil {
		g := *j.Inputs.WeightGrams
		out.Inputs.WeightGrams = &g
	}
	out.ResourceUsage = append([]usage.CoreUsage{}, j.ResourceUsage...)
	return out
}
