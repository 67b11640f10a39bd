// Package pipeline executes the stage catalog in order against one
// configuration: fail-fast across stages and across the invocations inside a
// stage, cancellation-aware between and during invocations, with every
// attempt recorded in the run report and mirrored onto an event bus.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"git.home.luguber.info/inful/llvmbuilder/internal/config"
	"git.home.luguber.info/inful/llvmbuilder/internal/executor"
	"git.home.luguber.info/inful/llvmbuilder/internal/logfields"
	"git.home.luguber.info/inful/llvmbuilder/internal/report"
	"git.home.luguber.info/inful/llvmbuilder/internal/stage"
)

// Executor runs one external invocation to completion. The production
// implementation is executor.Engine; tests substitute a scripted fake.
type Executor interface {
	Execute(ctx context.Context, inv stage.Invocation, opts executor.Options) executor.Result
}

// Options selects and wires one run.
type Options struct {
	// Only restricts the run to the named stages; empty means the full catalog.
	Only []stage.Name
	// Skip removes stages from the selection.
	Skip []stage.Name
	// Output receives the live child output stream; nil discards it.
	Output io.Writer
}

// Pipeline drives runs for a fixed configuration.
type Pipeline struct {
	cfg    *config.Config
	engine Executor
	bus    *Bus
}

// New assembles a pipeline. A nil bus gets replaced by an unsubscribed one
// so callers without observers need no special casing.
func New(cfg *config.Config, engine Executor, bus *Bus) *Pipeline {
	if bus == nil {
		bus = NewBus()
	}
	return &Pipeline{cfg: cfg, engine: engine, bus: bus}
}

// Bus exposes the event bus for subscribing observers.
func (p *Pipeline) Bus() *Bus { return p.bus }

// Run executes the selected stages in catalog order. The returned report
// covers every attempted invocation even when the run halts early; the error
// is nil only for a fully successful run.
func (p *Pipeline) Run(ctx context.Context, opts Options) (*report.RunReport, error) {
	selection, err := stage.Select(stage.Catalog(), opts.Only, opts.Skip)
	if err != nil {
		return nil, err
	}

	selected := make(map[stage.Name]bool, len(selection))
	names := make([]stage.Name, 0, len(selection))
	for _, st := range selection {
		selected[st.Name] = true
		names = append(names, st.Name)
	}

	rep := report.NewRunReport(ctx, p.cfg)
	p.publish(RunStarted{RunID: rep.RunID, Stages: names})
	slog.Info("Run started",
		logfields.RunID(report.ShortID(rep.RunID)),
		slog.Any("stages", names),
	)

	succeeded := make(map[stage.Name]bool, len(selection))
	for _, st := range selection {
		if ctx.Err() != nil {
			return p.finishCanceled(ctx, rep)
		}
		// With the linear catalog and fail-fast below, a selected
		// predecessor is always in the succeeded set already; the check
		// matters once the catalog grows branches.
		for _, need := range st.Needs {
			if selected[need] && !succeeded[need] {
				rep.Finish()
				rep.DeriveStatus()
				return rep, fmt.Errorf("%w: %s requires %s", ErrPredecessorNotRun, st.Name, need)
			}
		}

		p.publish(StageStarted{RunID: rep.RunID, Stage: st.Name})
		stageStart := time.Now()

		for _, inv := range st.Commands(p.cfg) {
			res := p.engine.Execute(ctx, inv, executor.Options{
				Timeout:   p.cfg.StageTimeout,
				Output:    opts.Output,
				TailLines: p.cfg.LogTailLines,
			})
			sr := toStageResult(st.Name, inv.Label, res)
			rep.Append(sr)
			p.publish(InvocationFinished{RunID: rep.RunID, Stage: st.Name, Result: sr})

			if !res.Success() {
				p.publish(StageFinished{RunID: rep.RunID, Stage: st.Name, Status: sr.Status, Duration: time.Since(stageStart)})
				if res.Status == executor.StatusCanceled {
					return p.finishCanceled(ctx, rep)
				}
				rep.Finish()
				rep.DeriveStatus()
				execErr := &StageExecutionError{Stage: st.Name, Label: inv.Label, Result: sr}
				p.publish(RunFinished{Report: rep})
				return rep, execErr
			}
		}

		succeeded[st.Name] = true
		p.publish(StageFinished{RunID: rep.RunID, Stage: st.Name, Status: report.StageSuccess, Duration: time.Since(stageStart)})
	}

	rep.Finish()
	rep.DeriveStatus()
	p.publish(RunFinished{Report: rep})
	return rep, nil
}

// finishCanceled finalizes a canceled run. Between-stage cancellations leave
// only successful rows behind, so the derived status is overridden.
func (p *Pipeline) finishCanceled(ctx context.Context, rep *report.RunReport) (*report.RunReport, error) {
	rep.Finish()
	rep.DeriveStatus()
	if rep.Status == report.RunSuccess {
		rep.Status = report.RunCanceled
	}
	p.publish(RunFinished{Report: rep})
	return rep, fmt.Errorf("run canceled: %w", context.Cause(ctx))
}

// publish mirrors a lifecycle event onto the bus. Handler failures are an
// observer concern, never a run concern.
func (p *Pipeline) publish(e Event) {
	if err := p.bus.Publish(e); err != nil {
		slog.Warn("Event handler failed", slog.String("event", e.Name()), logfields.Error(err))
	}
}

func toStageResult(name stage.Name, label string, res executor.Result) report.StageResult {
	sr := report.StageResult{
		Stage:    string(name),
		Label:    label,
		Status:   report.StageStatus(res.Status),
		Start:    res.Start,
		End:      res.End,
		ExitCode: res.ExitCode,
		Signal:   res.Signal,
		Tail:     res.Tail,
	}
	if res.Err != nil {
		sr.Err = res.Err.Error()
	}
	return sr
}
