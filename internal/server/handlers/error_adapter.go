package handlers

import (
	"errors"
	"net/http"

	apperrors "github.com/rrrhhh38/phytiumpi-project/internal/errors"
	"github.com/rrrhhh38/phytiumpi-project/pkg/nutrition"
	"github.com/rrrhhh38/phytiumpi-project/pkg/orchestrator"
)

// HTTPErrorResponder renders an error onto a response.
type HTTPErrorResponder func(w http.ResponseWriter, r *http.Request, err error)

var httpErrorResponder HTTPErrorResponder = apperrors.RespondWithError

// SetHTTPErrorResponder replaces the error renderer. nil restores the
// default envelope writer.
func SetHTTPErrorResponder(fn HTTPErrorResponder) {
	if fn == nil {
		fn = apperrors.RespondWithError
	}
	httpErrorResponder = fn
}

func ResetHTTPErrorResponder() {
	httpErrorResponder = apperrors.RespondWithError
}

func respondWithError(w http.ResponseWriter, r *http.Request, err error) {
	httpErrorResponder(w, r, err)
}

// toHTTPError maps domain errors to their HTTP rendering.
func toHTTPError(err error) error {
	var httpErr *apperrors.HTTPError
	switch {
	case errors.As(err, &httpErr):
		return err
	case errors.Is(err, orchestrator.ErrAlreadyRunning):
		return apperrors.Conflict(apperrors.CodeAlreadyRunning, "analysis already in progress").WithCause(err)
	case errors.Is(err, orchestrator.ErrNoResult):
		return apperrors.NotFound("no result available").WithCause(err)
	case errors.Is(err, nutrition.ErrInvalidResult):
		return apperrors.New(http.StatusInternalServerError, apperrors.CodeInvalidResult, "result artifact invalid").
			WithDetails(map[string]any{"reason": err.Error()}).
			WithCause(err)
	case errors.Is(err, orchestrator.ErrClosed):
		return apperrors.New(http.StatusServiceUnavailable, apperrors.CodeServiceUnavailable, "service is shutting down").WithCause(err)
	}
	return err
}
