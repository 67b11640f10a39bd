// Package executor spawns the external build-system processes and normalizes
// how they end. Stdout and stderr are streamed live to the caller's sink
// while a bounded tail is retained for diagnostics; timeouts, caller
// cancellation, signal deaths and spawn failures each map to a distinct
// status so the pipeline never has to parse error strings.
package executor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"time"

	"git.home.luguber.info/inful/llvmbuilder/internal/logfields"
	"git.home.luguber.info/inful/llvmbuilder/internal/stage"
)

// Status classifies how an invocation ended.
type Status string

const (
	StatusSuccess     Status = "success"
	StatusFailed      Status = "failed"
	StatusSignaled    Status = "signaled"
	StatusTimedOut    Status = "timed-out"
	StatusCanceled    Status = "canceled"
	StatusSpawnFailed Status = "spawn-failed"
)

// ErrSpawn marks invocations that never produced a running process.
var ErrSpawn = errors.New("spawn failed")

// defaultWaitDelay bounds how long a terminated child may linger before the
// kill escalates.
const defaultWaitDelay = 10 * time.Second

// Options tunes a single execution.
type Options struct {
	// Timeout bounds the invocation; zero means no bound.
	Timeout time.Duration
	// Output receives the live interleaved stdout+stderr stream; nil discards it.
	Output io.Writer
	// TailLines caps the retained diagnostic tail; values < 1 fall back to 40.
	TailLines int
}

// Result is the normalized outcome of one invocation.
type Result struct {
	Status   Status
	ExitCode int
	// Signal is the symbolic name (SIGTERM, SIGKILL) when the child died
	// from a signal; empty otherwise.
	Signal string
	Start  time.Time
	End    time.Time
	// Tail holds the last lines of combined output, newest last.
	Tail []string
	Err  error
}

// Duration is the wall-clock time the invocation took.
func (r Result) Duration() time.Duration { return r.End.Sub(r.Start) }

// Success reports whether the child exited zero without being signaled.
func (r Result) Success() bool { return r.Status == StatusSuccess }

// Engine runs invocations through os/exec. The zero value is ready to use.
type Engine struct {
	// WaitDelay overrides how long Wait may block after cancellation before
	// the child is killed outright; zero selects the default.
	WaitDelay time.Duration
}

// Execute runs one invocation to completion. The child is always reaped:
// cancellation sends SIGTERM and escalates to SIGKILL after the wait delay.
func (e *Engine) Execute(ctx context.Context, inv stage.Invocation, opts Options) Result {
	runCtx := ctx
	cancel := func() {}
	if opts.Timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, opts.Timeout)
	}
	defer cancel()

	tail := newTailWriter(opts.TailLines)
	sink := opts.Output
	if sink == nil {
		sink = io.Discard
	}
	// The same writer value feeds both streams; os/exec serializes writes
	// when Stdout == Stderr.
	combined := io.MultiWriter(sink, tail)

	cmd := exec.CommandContext(runCtx, inv.Program, inv.Args...)
	cmd.Dir = inv.Dir
	cmd.Stdout = combined
	cmd.Stderr = combined
	cmd.Cancel = func() error { return terminate(cmd) }
	cmd.WaitDelay = e.WaitDelay
	if cmd.WaitDelay == 0 {
		cmd.WaitDelay = defaultWaitDelay
	}

	slog.Debug("Executing",
		logfields.Program(inv.Program),
		slog.Any("args", inv.Args),
		logfields.Dir(inv.Dir),
		logfields.Label(inv.Label),
	)

	start := time.Now()
	if startErr := cmd.Start(); startErr != nil {
		res := Result{ExitCode: -1, Start: start, End: time.Now()}
		// Start refuses to spawn under a done context; that is a
		// cancellation or timeout, not a missing binary.
		switch {
		case ctx.Err() != nil:
			res.Status = StatusCanceled
			res.Err = context.Cause(ctx)
		case errors.Is(runCtx.Err(), context.DeadlineExceeded):
			res.Status = StatusTimedOut
			res.Err = runCtx.Err()
		default:
			res.Status = StatusSpawnFailed
			res.Err = fmt.Errorf("%w: %s: %w", ErrSpawn, inv.Program, startErr)
		}
		return res
	}

	waitErr := cmd.Wait()
	end := time.Now()

	res := classify(ctx, runCtx, cmd, waitErr)
	res.Start = start
	res.End = end
	res.Tail = tail.Lines()

	slog.Debug("Execution finished",
		logfields.Program(inv.Program),
		logfields.Label(inv.Label),
		logfields.Status(string(res.Status)),
		logfields.ExitCode(res.ExitCode),
		logfields.DurationMS(float64(res.Duration().Milliseconds())),
	)
	return res
}

// classify folds the wait error and the two contexts into a Result. Caller
// cancellation outranks a timeout, and both outrank whatever exit state the
// dying child happened to produce.
func classify(ctx, runCtx context.Context, cmd *exec.Cmd, waitErr error) Result {
	if waitErr == nil {
		return Result{Status: StatusSuccess, ExitCode: 0}
	}

	code := -1
	sig := ""
	if ps := cmd.ProcessState; ps != nil {
		code = ps.ExitCode()
		sig = signalName(ps)
	}

	switch {
	case ctx.Err() != nil:
		return Result{Status: StatusCanceled, ExitCode: code, Signal: sig, Err: context.Cause(ctx)}
	case errors.Is(runCtx.Err(), context.DeadlineExceeded):
		return Result{Status: StatusTimedOut, ExitCode: code, Signal: sig, Err: runCtx.Err()}
	}

	var exitErr *exec.ExitError
	if errors.As(waitErr, &exitErr) {
		if sig != "" {
			return Result{Status: StatusSignaled, ExitCode: code, Signal: sig, Err: waitErr}
		}
		return Result{Status: StatusFailed, ExitCode: code, Err: waitErr}
	}

	// Wait failed for a reason other than the child's exit state
	// (an output copy error, usually).
	return Result{Status: StatusFailed, ExitCode: code, Signal: sig, Err: waitErr}
}
