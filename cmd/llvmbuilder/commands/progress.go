package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"git.home.luguber.info/inful/llvmbuilder/internal/config"
	"git.home.luguber.info/inful/llvmbuilder/internal/history"
	"git.home.luguber.info/inful/llvmbuilder/internal/logfields"
	"git.home.luguber.info/inful/llvmbuilder/internal/pipeline"
)

// SubscribeProgress prints one line per stage transition so the live child
// output stays bracketed by what the pipeline is doing.
func SubscribeProgress(bus *pipeline.Bus, w io.Writer) {
	bus.Subscribe(pipeline.EventStageStarted, func(e pipeline.Event) error {
		ev, ok := e.(pipeline.StageStarted)
		if !ok {
			return nil
		}
		fmt.Fprintf(w, "==> %s\n", ev.Stage)
		return nil
	})
	bus.Subscribe(pipeline.EventStageFinished, func(e pipeline.Event) error {
		ev, ok := e.(pipeline.StageFinished)
		if !ok {
			return nil
		}
		fmt.Fprintf(w, "<== %s %s (%s)\n", ev.Stage, ev.Status, ev.Duration.Truncate(time.Millisecond))
		return nil
	})
}

// SubscribeArchiver persists and archives every finished run. Used by watch
// mode, where runs complete repeatedly inside one process. Failures are
// logged and swallowed; archiving must never break a run.
func SubscribeArchiver(bus *pipeline.Bus, cfg *config.Config, store *history.Store) {
	bus.Subscribe(pipeline.EventRunFinished, func(e pipeline.Event) error {
		ev, ok := e.(pipeline.RunFinished)
		if !ok || ev.Report == nil {
			return nil
		}
		if err := ev.Report.Persist(cfg.BuildDir); err != nil {
			slog.Warn("Failed to persist run report", logfields.Error(err))
		}
		if store != nil {
			if err := store.Append(context.Background(), ev.Report); err != nil {
				slog.Warn("Failed to archive run", logfields.Error(err))
			}
		}
		return nil
	})
}
