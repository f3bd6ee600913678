package readiness

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

// Config configures a Waiter.
type Config struct {
	// Timeout bounds the whole wait. Zero uses DefaultConfig().Timeout.
	Timeout time.Duration

	// PollInterval is the pause between sweeps. Zero uses
	// DefaultConfig().PollInterval.
	PollInterval time.Duration
}

// DefaultConfig returns the waiter defaults.
func DefaultConfig() Config {
	return Config{
		Timeout:      60 * time.Second,
		PollInterval: time.Second,
	}
}

// Result is the outcome of AwaitAll.
type Result struct {
	// Values holds every signal observed during the wait, by name.
	Values map[string]Value

	// Missing lists the signals that never resolved, in request order.
	Missing []string

	// Sweeps is the number of poll sweeps performed.
	Sweeps int

	// Elapsed is the wall time spent waiting.
	Elapsed time.Duration

	// Err is non-nil only when the context ended the wait early.
	Err error
}

// Complete reports whether every requested signal resolved.
func (r Result) Complete() bool {
	return len(r.Missing) == 0
}

// Waiter polls readiness sources until all resolve or the deadline elapses.
type Waiter struct {
	config Config
	logger *zap.Logger
}

// NewWaiter creates a waiter. Zero config fields take defaults; a nil logger
// disables logging.
func NewWaiter(cfg Config, logger *zap.Logger) *Waiter {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultConfig().PollInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Waiter{config: cfg, logger: logger}
}

func (w *Waiter) Config() Config {
	return w.config
}

// AwaitAll polls sources until each has resolved once or the timeout
// elapses. A value observed in one sweep is kept for the rest of the wait,
// even if its artifact later disappears. AwaitAll never fails: on timeout
// or cancellation the partial result is returned and the caller decides
// whether it is usable.
func (w *Waiter) AwaitAll(ctx context.Context, sources ...Source) Result {
	start := time.Now()
	deadline := start.Add(w.config.Timeout)
	resolved := make(map[string]Value, len(sources))

	result := func(err error) Result {
		r := Result{
			Values:  resolved,
			Elapsed: time.Since(start),
			Err:     err,
		}
		seen := make(map[string]bool, len(sources))
		for _, src := range sources {
			name := src.Name()
			if _, ok := resolved[name]; ok || seen[name] {
				continue
			}
			seen[name] = true
			r.Missing = append(r.Missing, name)
		}
		return r
	}

	sweeps := 0
	for {
		sweeps++
		pending := 0
		for _, src := range sources {
			name := src.Name()
			if _, ok := resolved[name]; ok {
				continue
			}
			v, err := src.TryRead()
			if err != nil {
				if !errors.Is(err, ErrNotReady) {
					w.logger.Debug("Readiness artifact unreadable, retrying",
						zap.String("signal", name),
						zap.Error(err))
				}
				pending++
				continue
			}
			if v.Name == "" {
				v.Name = name
			}
			resolved[name] = v
			w.logger.Info("Readiness signal observed",
				zap.String("signal", name),
				zap.String("value", v.String()),
				zap.Int("sweep", sweeps))
		}

		if pending == 0 {
			r := result(nil)
			r.Sweeps = sweeps
			return r
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			r := result(nil)
			r.Sweeps = sweeps
			w.logger.Warn("Readiness wait timed out",
				zap.Strings("missing", r.Missing),
				zap.Duration("timeout", w.config.Timeout))
			return r
		}

		pause := w.config.PollInterval
		if remaining < pause {
			pause = remaining
		}
		timer := time.NewTimer(pause)
		select {
		case <-ctx.Done():
			timer.Stop()
			r := result(ctx.Err())
			r.Sweeps = sweeps
			return r
		case <-timer.C:
		}
	}
}
