package errors

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, rec *httptest.ResponseRecorder) HTTPErrorResponse {
	t.Helper()
	var body HTTPErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestRespondWithError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
		wantMsg    string
	}{
		{
			name:       "http error",
			err:        Conflict(CodeAlreadyRunning, "analysis already in progress"),
			wantStatus: http.StatusConflict,
			wantCode:   CodeAlreadyRunning,
			wantMsg:    "analysis already in progress",
		},
		{
			name:       "wrapped http error",
			err:        fmt.Errorf("handler: %w", NotFound("no result available")),
			wantStatus: http.StatusNotFound,
			wantCode:   CodeNotFound,
			wantMsg:    "no result available",
		},
		{
			name:       "plain error is hidden",
			err:        errors.New("disk on fire"),
			wantStatus: http.StatusInternalServerError,
			wantCode:   CodeInternal,
			wantMsg:    "internal server error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/results", nil)
			rec := httptest.NewRecorder()

			RespondWithError(rec, req, tt.err)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			body := decode(t, rec)
			assert.Equal(t, tt.wantCode, body.Error.Code)
			assert.Equal(t, tt.wantMsg, body.Error.Message)
		})
	}
}

func TestWriteError_RequestIDFromContext(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(ContextWithRequestID(req.Context(), "req-42"))
	rec := httptest.NewRecorder()

	WriteError(rec, req, http.StatusTooManyRequests, ErrorBody{Code: CodeRateLimited, Message: "slow down"})

	body := decode(t, rec)
	assert.Equal(t, "req-42", body.Error.RequestID)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestHTTPError_WithDetailsAndCause(t *testing.T) {
	base := New(http.StatusInternalServerError, CodeInvalidResult, "result artifact invalid")
	cause := errors.New("field \"food\" is not a string")
	err := base.WithDetails(map[string]any{"path": "data/nutrition_result.json"}).WithCause(cause)

	assert.Nil(t, base.Details)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "INVALID_RESULT")

	rec := httptest.NewRecorder()
	RespondWithError(rec, httptest.NewRequest(http.MethodGet, "/", nil), err)
	body := decode(t, rec)
	assert.Equal(t, "data/nutrition_result.json", body.Error.Details["path"])
}

func TestRequestIDFromContext_Empty(t *testing.T) {
	assert.Empty(t, RequestIDFromContext(context.Background()))
}
