package syncer

import (
	"context"
	"fmt"
	"io"

	"git.home.luguber.info/inful/llvmbuilder/internal/executor"
	"git.home.luguber.info/inful/llvmbuilder/internal/stage"
)

// Executor runs external git invocations; *executor.Engine satisfies it.
type Executor interface {
	Execute(ctx context.Context, inv stage.Invocation, opts executor.Options) executor.Result
}

// gitRunner issues mutating git commands through the execution engine so
// they get the same streaming, cancellation, and teardown behavior as build
// stages.
type gitRunner struct {
	eng Executor
	dir string
	out io.Writer
}

func (g *gitRunner) run(ctx context.Context, label string, args ...string) error {
	inv := stage.Invocation{Program: "git", Args: args, Dir: g.dir, Label: label}
	res := g.eng.Execute(ctx, inv, executor.Options{Output: g.out})
	if res.Success() {
		return nil
	}
	if res.Err != nil {
		return fmt.Errorf("git %s: %w", label, res.Err)
	}
	return fmt.Errorf("git %s: exit code %d", label, res.ExitCode)
}
