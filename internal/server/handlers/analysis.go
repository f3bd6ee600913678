package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	apperrors "github.com/rrrhhh38/phytiumpi-project/internal/errors"
	"github.com/rrrhhh38/phytiumpi-project/pkg/nutrition"
	"github.com/rrrhhh38/phytiumpi-project/pkg/orchestrator"
)

// Jobs is the orchestrator surface used by the API.
type Jobs interface {
	Start(ctx context.Context) (orchestrator.Job, error)
	Status(ctx context.Context) orchestrator.Job
	Result(ctx context.Context) (nutrition.Result, error)
}

// StartResponse is the body of an accepted POST /api/analyze.
type StartResponse struct {
	Status string `json:"status"`
	JobID  string `json:"job_id"`
}

// AnalysisHandlers serves the /api routes.
type AnalysisHandlers struct {
	jobs   Jobs
	logger *zap.Logger
}

func NewAnalysisHandlers(jobs Jobs, logger *zap.Logger) *AnalysisHandlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AnalysisHandlers{jobs: jobs, logger: logger}
}

// Analyze handles POST /api/analyze.
func (h *AnalysisHandlers) Analyze(w http.ResponseWriter, r *http.Request) {
	job, err := h.jobs.Start(r.Context())
	if err != nil {
		respondWithError(w, r, toHTTPError(err))
		return
	}
	writeJSON(w, http.StatusAccepted, StartResponse{Status: "started", JobID: job.ID})
}

// Status handles GET /api/status.
func (h *AnalysisHandlers) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.jobs.Status(r.Context()))
}

// Results handles GET /api/results.
func (h *AnalysisHandlers) Results(w http.ResponseWriter, r *http.Request) {
	result, err := h.jobs.Result(r.Context())
	if err != nil {
		mapped := toHTTPError(err)
		var httpErr *apperrors.HTTPError
		if !errors.As(mapped, &httpErr) {
			h.logger.Error("Result read failed", zap.Error(err))
		}
		respondWithError(w, r, mapped)
		return
	}
	writeJSON(w, http.StatusOK, result.Normalized())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
