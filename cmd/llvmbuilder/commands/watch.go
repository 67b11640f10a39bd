package commands

import (
	"log/slog"
	"os"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/llvmbuilder/internal/executor"
	"git.home.luguber.info/inful/llvmbuilder/internal/history"
	"git.home.luguber.info/inful/llvmbuilder/internal/logfields"
	"git.home.luguber.info/inful/llvmbuilder/internal/metrics"
	"git.home.luguber.info/inful/llvmbuilder/internal/notify"
	"git.home.luguber.info/inful/llvmbuilder/internal/pipeline"
	"git.home.luguber.info/inful/llvmbuilder/internal/watch"
)

// WatchCmd implements the 'watch' command.
type WatchCmd struct {
	Listen string         `help:"Serve /metrics and /healthz on this address (overrides the config)"`
	Every  *time.Duration `help:"Interval for scheduled full rebuilds, e.g. 24h (overrides the config)"`
	Stages []string       `help:"Stages to run on file changes (overrides the config)"`
}

func (w *WatchCmd) Run(_ *Global, root *CLI) error {
	cfg, err := loadConfig(root)
	if err != nil {
		return err
	}
	if w.Listen != "" {
		cfg.Watch.Listen = w.Listen
	}
	if w.Every != nil {
		cfg.Watch.Every = *w.Every
	}
	if len(w.Stages) > 0 {
		cfg.Watch.Stages = w.Stages
	}

	ctx, cancel := signalContext()
	defer cancel()

	bus := pipeline.NewBus()
	SubscribeProgress(bus, os.Stdout)

	reg := prom.NewRegistry()
	pipeline.SubscribeRecorder(bus, metrics.NewPrometheusRecorder(reg))

	var store *history.Store
	if !cfg.History.Disabled {
		store, err = history.Open(cfg.History.Path)
		if err != nil {
			slog.Warn("History unavailable", logfields.Error(err))
			store = nil
		} else {
			defer store.Close()
		}
	}
	SubscribeArchiver(bus, cfg, store)

	publisher, err := notify.New(cfg.Notify)
	if err != nil {
		slog.Warn("Notifications disabled", logfields.Error(err))
	} else if publisher != nil {
		defer publisher.Close()
		notify.Subscribe(bus, publisher)
	}

	p := pipeline.New(cfg, &executor.Engine{}, bus)
	watcher := watch.New(cfg, p, metrics.HTTPHandler(reg), os.Stdout)
	return watcher.Run(ctx)
}
