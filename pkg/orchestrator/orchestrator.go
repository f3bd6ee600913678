// Package orchestrator runs the readiness → analysis → result pipeline as a
// single-flight background job.
//
// The Orchestrator owns exactly one Job record. Start moves it to running and
// launches the pipeline in a goroutine; Status and Result may be called
// concurrently from any number of callers. The record lock is held only for
// the duration of a read or write, never across the readiness wait, the
// analysis subprocess or artifact reads.
//
// State machine:
//
//	idle ──Start──▶ running ──▶ completed
//	                  │
//	                  └──────▶ error
//
// Both terminal states accept a new Start. A Start while running is rejected
// with ErrAlreadyRunning; requests are never queued.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rrrhhh38/phytiumpi-project/pkg/invoker"
	"github.com/rrrhhh38/phytiumpi-project/pkg/nutrition"
	"github.com/rrrhhh38/phytiumpi-project/pkg/readiness"
	"github.com/rrrhhh38/phytiumpi-project/pkg/usage"
)

// Job status messages.
const (
	MsgIdle           = "waiting for analysis request"
	MsgStarted        = "analysis started"
	MsgWaiting        = "waiting for readiness signals"
	MsgAnalyzing      = "running analysis"
	MsgCompleted      = "analysis completed"
	MsgNoArtifact     = "result artifact not produced"
	msgTimeoutPrefix  = "timed out waiting for readiness signals: "
	msgInvalidPrefix  = "result artifact invalid: "
	msgCancelledWait  = "readiness wait cancelled"
	msgAnalysisFailed = "analysis could not run: "
)

// Awaiter waits for readiness signals.
type Awaiter interface {
	AwaitAll(ctx context.Context, sources ...readiness.Source) readiness.Result
}

// ResultReader is the read side of the result store.
type ResultReader interface {
	Path() string
	Exists() bool
	Read() (nutrition.Result, error)
}

// CompletionHook runs after a job has reached completed. It cannot change
// the job state.
type CompletionHook func(ctx context.Context, job Job, result nutrition.Result)

// Option configures an Orchestrator.
type Option func(*Orchestrator)

func WithLogger(logger *zap.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithSampler attaches resource usage to running job snapshots.
func WithSampler(s usage.Sampler) Option {
	return func(o *Orchestrator) { o.sampler = s }
}

// WithRequireCompleted gates Result on the current job being completed.
// By default Result returns whatever artifact is on disk.
func WithRequireCompleted(v bool) Option {
	return func(o *Orchestrator) { o.requireCompleted = v }
}

func WithCompletionHook(h CompletionHook) Option {
	return func(o *Orchestrator) {
		if h != nil {
			o.hooks = append(o.hooks, h)
		}
	}
}

// Orchestrator is the single-flight job state machine.
type Orchestrator struct {
	waiter  Awaiter
	invoker invoker.Invoker
	results ResultReader
	sources []readiness.Source

	sampler          usage.Sampler
	requireCompleted bool
	hooks            []CompletionHook
	logger           *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.Mutex
	job    Job
	closed bool
}

// New creates an orchestrator in the idle state. sources are the readiness
// signals every job waits for.
func New(waiter Awaiter, inv invoker.Invoker, results ResultReader, sources []readiness.Source, opts ...Option) *Orchestrator {
	ctx, cancel := context.WithCancel(context.Background())
	o := &Orchestrator{
		waiter:  waiter,
		invoker: inv,
		results: results,
		sources: append([]readiness.Source(nil), sources...),
		logger:  zap.NewNop(),
		ctx:     ctx,
		cancel:  cancel,
		job:     Job{State: StateIdle, Message: MsgIdle},
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Start accepts a new job unless one is running. It returns immediately
// with the snapshot of the accepted job; the pipeline runs in the
// background. The caller's ctx only scopes the call itself; the job keeps
// running after it ends.
func (o *Orchestrator) Start(_ context.Context) (Job, error) {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return Job{}, ErrClosed
	}
	if o.job.State == StateRunning {
		id := o.job.ID
		o.mu.Unlock()
		o.logger.Info("Analysis request rejected: job in progress", zap.String("job_id", id))
		return Job{}, ErrAlreadyRunning
	}

	now := time.Now().UTC()
	o.job = Job{
		ID:        uuid.NewString(),
		State:     StateRunning,
		Message:   MsgStarted,
		StartTime: &now,
	}
	snap := o.job.clone()
	o.wg.Add(1)
	o.mu.Unlock()

	o.logger.Info("Analysis job started", zap.String("job_id", snap.ID))
	go o.run(snap.ID)
	return snap, nil
}

// Status returns a copy of the job record. While running, a fresh resource
// usage sample is attached.
func (o *Orchestrator) Status(ctx context.Context) Job {
	o.mu.Lock()
	snap := o.job.clone()
	o.mu.Unlock()

	if snap.State == StateRunning && o.sampler != nil {
		u, err := o.sampler.Sample(ctx)
		if err != nil {
			o.logger.Debug("Resource usage sampling failed", zap.Error(err))
		} else {
			snap.ResourceUsage = u
		}
	}
	return snap
}

// Result returns the persisted analysis result. Absence is reported as
// ErrNoResult, distinct from any job failure.
func (o *Orchestrator) Result(_ context.Context) (nutrition.Result, error) {
	if o.requireCompleted {
		o.mu.Lock()
		state := o.job.State
		o.mu.Unlock()
		if state != StateCompleted {
			return nutrition.Result{}, fmt.Errorf("%w: job is %s", ErrNoResult, state)
		}
	}

	r, err := o.results.Read()
	if err != nil {
		if errors.Is(err, nutrition.ErrNotFound) {
			return nutrition.Result{}, fmt.Errorf("%w: %w", ErrNoResult, err)
		}
		return nutrition.Result{}, err
	}
	return r, nil
}

// Close stops accepting jobs, cancels the running one and waits for its
// goroutine to exit.
func (o *Orchestrator) Close() error {
	o.mu.Lock()
	o.closed = true
	o.mu.Unlock()

	o.cancel()
	o.wg.Wait()
	return nil
}

// Wait blocks until no background task is running. Intended for shutdown
// paths and tests.
func (o *Orchestrator) Wait() {
	o.wg.Wait()
}

func (o *Orchestrator) run(id string) {
	defer o.wg.Done()
	ctx := o.ctx
	log := o.logger.With(zap.String("job_id", id))

	o.update(id, func(j *Job) { j.Message = MsgWaiting })
	ready := o.waiter.AwaitAll(ctx, o.sources...)
	if !ready.Complete() {
		msg := msgTimeoutPrefix + strings.Join(ready.Missing, ", ")
		if ready.Err != nil {
			msg = fmt.Sprintf("%s: missing %s", msgCancelledWait, strings.Join(ready.Missing, ", "))
		}
		log.Warn("Analysis job failed: readiness incomplete", zap.Strings("missing", ready.Missing))
		o.finish(id, StateError, msg)
		return
	}

	in := invoker.Inputs{ResultPath: o.results.Path()}
	if v, ok := ready.Values[readiness.SignalImage]; ok {
		in.ImagePath = v.Path
	}
	if v, ok := ready.Values[readiness.SignalWeight]; ok {
		in.WeightGrams = v.Grams
	}
	o.update(id, func(j *Job) {
		j.Message = MsgAnalyzing
		j.Inputs.ImagePath = in.ImagePath
		if _, ok := ready.Values[readiness.SignalWeight]; ok {
			g := in.WeightGrams
			j.Inputs.WeightGrams = &g
		}
	})

	out := o.invoker.Run(ctx, in)
	if msg, failed := outcomeFailure(out); failed {
		log.Warn("Analysis job failed: invocation",
			zap.Int("exit_code", out.ExitCode),
			zap.Bool("timed_out", out.TimedOut),
			zap.String("reason", msg))
		o.finish(id, StateError, msg)
		return
	}

	if !o.results.Exists() {
		log.Warn("Analysis job failed: no result artifact", zap.String("path", o.results.Path()))
		o.finish(id, StateError, MsgNoArtifact)
		return
	}
	result, err := o.results.Read()
	if err != nil {
		log.Warn("Analysis job failed: invalid result artifact", zap.Error(err))
		o.finish(id, StateError, msgInvalidPrefix+err.Error())
		return
	}

	snap := o.finish(id, StateCompleted, MsgCompleted)
	log.Info("Analysis job completed", zap.String("food", result.Food))
	for _, h := range o.hooks {
		h(ctx, snap, result)
	}
}

// outcomeFailure maps an invocation outcome to a job error message.
func outcomeFailure(out invoker.Outcome) (string, bool) {
	if out.Success() {
		return "", false
	}
	switch {
	case out.TimedOut:
		return fmt.Sprintf("analysis timed out after %s", out.Duration().Round(time.Millisecond)), true
	case out.Err != nil:
		return msgAnalysisFailed + out.Err.Error(), true
	case out.ExitCode != 0:
		if stderr := strings.TrimSpace(string(out.Stderr)); stderr != "" {
			return stderr, true
		}
	}
	return fmt.Sprintf("analysis exited with code %d", out.ExitCode), true
}

func (o *Orchestrator) update(id string, fn func(*Job)) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.job.ID != id || o.job.State != StateRunning {
		return
	}
	fn(&o.job)
}

func (o *Orchestrator) finish(id string, state State, msg string) Job {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.job.ID != id || o.job.State != StateRunning {
		return o.job.clone()
	}
	now := time.Now().UTC()
	o.job.State = state
	o.job.Message = msg
	o.job.EndTime = &now
	o.job.ResourceUsage = nil
	return o.job.clone()
}
