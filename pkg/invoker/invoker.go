// Package invoker runs the external analysis step as an opaque subprocess.
//
// The invoker knows nothing about nutrition analysis. It starts the
// configured command, hands it the resolved inputs, waits for it to finish
// (or for its timeout to expire) and reports what happened as an Outcome.
// A non-zero exit status is an outcome, not an error.
package invoker

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Environment variables exported to the analysis command.
const (
	EnvImagePath   = "PLATESENSE_IMAGE_PATH"
	EnvWeightGrams = "PLATESENSE_WEIGHT_GRAMS"
	EnvResultPath  = "PLATESENSE_RESULT_PATH"
)

// Inputs are the resolved readiness values handed to the analysis step.
type Inputs struct {
	ImagePath   string
	WeightGrams float64
	ResultPath  string
}

// Command describes the external process.
type Command struct {
	// Path is the executable (looked up in PATH when it has no separator).
	Path string

	// Args may contain the placeholders {image}, {weight} and {result}.
	Args []string

	// Env is added on top of the service environment.
	Env map[string]string

	// Dir is the working directory; empty means the service's own.
	Dir string

	// Timeout bounds the run. Zero means no timeout, which is discouraged:
	// a hung process keeps the single job slot busy.
	Timeout time.Duration
}

// Outcome is the captured result of one run.
type Outcome struct {
	ExitCode int
	Stdout   []byte
	Stderr   []byte

	// TimedOut is set when the run was killed by Command.Timeout.
	TimedOut bool

	// Err is set when the process could not be started or was cancelled.
	Err error

	Started time.Time
	Stopped time.Time
}

// Success reports a clean, zero-status exit.
func (o Outcome) Success() bool {
	return o.Err == nil && !o.TimedOut && o.ExitCode == 0
}

func (o Outcome) Duration() time.Duration {
	if o.Started.IsZero() || o.Stopped.IsZero() {
		return 0
	}
	return o.Stopped.Sub(o.Started)
}

// Invoker runs the analysis step. Run must always return an Outcome.
type Invoker interface {
	Run(ctx context.Context, in Inputs) Outcome
}

// Func adapts a plain function to Invoker.
type Func func(ctx context.Context, in Inputs) Outcome

func (f Func) Run(ctx context.Context, in Inputs) Outcome {
	return f(ctx, in)
}

// ProcessInvoker runs Command with os/exec.
type ProcessInvoker struct {
	command Command
	logger  *zap.Logger
}

var _ Invoker = (*ProcessInvoker)(nil)

// New validates cmd and returns a ProcessInvoker.
func New(cmd Command, logger *zap.Logger) (*ProcessInvoker, error) {
	cmd.Path = strings.TrimSpace(cmd.Path)
	if cmd.Path == "" {
		return nil, fmt.Errorf("analysis command path is required")
	}
	if cmd.Timeout < 0 {
		return nil, fmt.Errorf("analysis timeout must not be negative")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cmd.Timeout == 0 {
		logger.Warn("Analysis command has no timeout", zap.String("path", cmd.Path))
	}
	return &ProcessInvoker{command: cmd, logger: logger}, nil
}

func (p *ProcessInvoker) Command() Command {
	return p.command
}

// Run starts the command and blocks until it exits, times out or ctx ends.
func (p *ProcessInvoker) Run(ctx context.Context, in Inputs) Outcome {
	runCtx := ctx
	if p.command.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, p.command.Timeout)
		defer cancel()
	}

	args := expandArgs(p.command.Args, in)
	cmd := exec.CommandContext(runCtx, p.command.Path, args...)
	cmd.Dir = p.command.Dir
	cmd.Env = buildEnv(os.Environ(), p.command.Env, in)
	configureProcessGroup(cmd)
	cmd.WaitDelay = 2 * time.Second

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	out := Outcome{Started: time.Now().UTC()}
	p.logger.Debug("Starting analysis command",
		zap.String("path", p.command.Path),
		zap.Strings("args", args),
		zap.String("dir", p.command.Dir))

	err := cmd.Run()
	out.Stopped = time.Now().UTC()
	out.Stdout = stdout.Bytes()
	out.Stderr = stderr.Bytes()

	var exitErr *exec.ExitError
	switch {
	case err == nil:
		out.ExitCode = 0
	case ctx.Err() != nil:
		out.Err = ctx.Err()
		out.ExitCode = -1
	case p.command.Timeout > 0 && errors.Is(runCtx.Err(), context.DeadlineExceeded):
		out.TimedOut = true
		out.ExitCode = -1
	case errors.As(err, &exitErr):
		out.ExitCode = exitErr.ExitCode()
	default:
		out.Err = fmt.Errorf("start analysis command: %w", err)
		out.ExitCode = -1
	}

	p.logger.Debug("Analysis command finished",
		zap.Int("exit_code", out.ExitCode),
		zap.Bool("timed_out", out.TimedOut),
		zap.Duration("duration", out.Duration()),
		zap.Error(out.Err))
	return out
}

func expandArgs(args []string, in Inputs) []string {
	if len(args) == 0 {
		return nil
	}
	r := strings.NewReplacer(
		"{image}", in.ImagePath,
		"{weight}", formatGrams(in.WeightGrams),
		"{result}", in.ResultPath,
	)
	out := make([]string, len(args))
	for i, a := range args {
		out[i] = r.Replace(a)
	}
	return out
}

// buildEnv layers configured variables and inputs over the base environment.
// Keys are upper-cased; configured values starting with "$" are expanded.
func buildEnv(base []string, extra map[string]string, in Inputs) []string {
	env := append([]string(nil), base...)

	keys := make([]string, 0, len(extra))
	for k := range extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		v := extra[k]
		if strings.HasPrefix(v, "$") {
			v = os.ExpandEnv(v)
		}
		env = append(env, strings.ToUpper(k)+"="+v)
	}

	env = append(env,
		EnvImagePath+"="+in.ImagePath,
		EnvWeightGrams+"="+formatGrams(in.WeightGrams),
		EnvResultPath+"="+in.ResultPath,
	)
	return env
}

func formatGrams(g float64) string {
	return strconv.FormatFloat(g, 'f', -1, 64)
}
