package orchestrator

import "errors"

var (
	// ErrAlreadyRunning rejects a start while a job is in progress.
	ErrAlreadyRunning = errors.New("analysis already in progress")

	// ErrNoResult indicates no result is available to return.
	ErrNoResult = errors.New("no result available")

	// ErrClosed rejects a start after Close.
	ErrClosed = errors.New("orchestrator is closed")
)
