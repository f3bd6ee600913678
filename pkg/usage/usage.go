// Package usage samples per-CPU utilization for the job status view.
//
// The numbers are informational only; nothing in the job lifecycle depends
// on them.
package usage

import (
	"context"
	"math"

	"github.com/shirou/gopsutil/v4/cpu"
)

// CoreUsage is the utilization of one logical CPU in percent.
type CoreUsage struct {
	ID    int     `json:"id"`
	Usage float64 `json:"usage"`
}

// Sampler returns a utilization snapshot.
type Sampler interface {
	Sample(ctx context.Context) ([]CoreUsage, error)
}

// CPUSampler reads per-CPU utilization from the OS.
//
// Each call reports utilization since the previous call, so the first sample
// after start-up covers the time since boot.
type CPUSampler struct{}

func NewCPUSampler() CPUSampler {
	return CPUSampler{}
}

func (CPUSampler) Sample(ctx context.Context) ([]CoreUsage, error) {
	percents, err := cpu.PercentWithContext(ctx, 0, true)
	if err != nil {
		return nil, err
	}
	out := make([]CoreUsage, len(percents))
	for i, p := range percents {
		out[i] = CoreUsage{ID: i, Usage: math.Round(p*10) / 10}
	}
	return out, nil
}
