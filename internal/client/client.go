// Package client talks to a running platesense service.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	apperrors "github.com/rrrhhh38/phytiumpi-project/internal/errors"
	"github.com/rrrhhh38/phytiumpi-project/internal/server/handlers"
	"github.com/rrrhhh38/phytiumpi-project/pkg/nutrition"
	"github.com/rrrhhh38/phytiumpi-project/pkg/orchestrator"
)

const (
	analyzePath = "/api/analyze"
	statusPath  = "/api/status"
	resultsPath = "/api/results"
)

// DefaultTimeout bounds each request.
const DefaultTimeout = 10 * time.Second

// ErrSuperseded is returned by Wait when the service reports a different job
// than the one being waited for. The service keeps only the latest job, so
// the awaited job's outcome can no longer be observed.
var ErrSuperseded = errors.New("job superseded by a newer job")

// APIError is a non-2xx response decoded from the error envelope.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	RequestID  string
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("server returned %d", e.StatusCode)
	}
	return fmt.Sprintf("server returned %d %s: %s", e.StatusCode, e.Code, e.Message)
}

// Is maps envelope codes back to the orchestrator sentinels.
func (e *APIError) Is(target error) bool {
	switch target {
	case orchestrator.ErrAlreadyRunning:
		return e.Code == apperrors.CodeAlreadyRunning
	case orchestrator.ErrNoResult:
		return e.Code == apperrors.CodeNotFound && e.StatusCode == http.StatusNotFound
	case nutrition.ErrInvalidResult:
		return e.Code == apperrors.CodeInvalidResult
	}
	return false
}

// Client is an HTTP client for the /api routes.
type Client struct {
	base *url.URL
	http *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// New creates a client for serverURL, which must be an http or https URL
// with a host and no path.
func New(serverURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimSpace(serverURL))
	if err != nil {
		return nil, fmt.Errorf("parse server url: %w", err)
	}
	u.Path = strings.TrimRight(u.Path, "/")
	if u.Scheme == "" || u.Host == "" || u.Path != "" {
		return nil, errors.New("server url needs a scheme and host and no path, e.g. `http://127.0.0.1:8080`")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("server url scheme %q is not supported (want http or https)", u.Scheme)
	}
	c := &Client{base: u, http: &http.Client{Timeout: DefaultTimeout}}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Analyze starts a job.
func (c *Client) Analyze(ctx context.Context) (handlers.StartResponse, error) {
	var out handlers.StartResponse
	err := c.do(ctx, http.MethodPost, analyzePath, http.StatusAccepted, &out)
	return out, err
}

// Status returns the current job snapshot.
func (c *Client) Status(ctx context.Context) (orchestrator.Job, error) {
	var out orchestrator.Job
	err := c.do(ctx, http.MethodGet, statusPath, http.StatusOK, &out)
	return out, err
}

// Result returns the latest analysis result.
func (c *Client) Result(ctx context.Context) (nutrition.Result, error) {
	var out nutrition.Result
	err := c.do(ctx, http.MethodGet, resultsPath, http.StatusOK, &out)
	return out, err
}

// Wait polls Status every poll until the job is terminal or ctx ends, and
// returns the last snapshot it saw. With a jobID, a snapshot of any other
// job ends the wait with ErrSuperseded.
func (c *Client) Wait(ctx context.Context, jobID string, poll time.Duration) (orchestrator.Job, error) {
	if poll <= 0 {
		poll = time.Second
	}
	ticker := time.NewTicker(poll)
	defer ticker.Stop()
	var last orchestrator.Job
	for {
		job, err := c.Status(ctx)
		if err != nil {
			return last, err
		}
		if jobID != "" && job.ID != "" && job.ID != jobID {
			return last, fmt.Errorf("%w: waiting for %s, service reports %s", ErrSuperseded, jobID, job.ID)
		}
		last = job
		if job.State.Terminal() {
			return job, nil
		}
		select {
		case <-ctx.Done():
			return last, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (c *Client) do(ctx context.Context, method, path string, want int, out any) error {
	u := *c.base
	u.Path = path
	req, err := http.NewRequestWithContext(ctx, method, u.String(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != want {
		return decodeAPIError(resp)
	}
	if err := checkJSON(resp); err != nil {
		return err
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding json response failed: %w", err)
	}
	return nil
}

func checkJSON(resp *http.Response) error {
	ct, _, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if err != nil {
		return fmt.Errorf("failed to parse response content type header: %w", err)
	}
	if ct != "application/json" {
		return fmt.Errorf("expected `application/json` content type, got: %s", ct)
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}
	if checkJSON(resp) != nil {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		apiErr.Message = strings.TrimSpace(string(body))
		return apiErr
	}
	var env apperrors.HTTPErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&env); err == nil {
		apiErr.Code = env.Error.Code
		apiErr.Message = env.Error.Message
		apiErr.RequestID = env.Error.RequestID
	}
	return apiErr
}
