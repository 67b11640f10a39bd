// Package watch reruns pipeline stages whenever watched source trees change
// and, optionally, schedules periodic full rebuilds. One run executes at a
// time; triggers that arrive mid-run coalesce into a single follow-up.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-co-op/gocron/v2"

	"git.home.luguber.info/inful/llvmbuilder/internal/config"
	"git.home.luguber.info/inful/llvmbuilder/internal/pipeline"
	"git.home.luguber.info/inful/llvmbuilder/internal/report"
	"git.home.luguber.info/inful/llvmbuilder/internal/stage"
)

const shutdownTimeout = 5 * time.Second

// Runner starts one pipeline run. *pipeline.Pipeline satisfies it.
type Runner interface {
	Run(ctx context.Context, opts pipeline.Options) (*report.RunReport, error)
}

// request asks the worker for one run. A change run is restricted to the
// configured watch stages; an interval run covers the full catalog.
type request struct {
	reason string
	only   []stage.Name
}

type Watcher struct {
	cfg     *config.Config
	runner  Runner
	metrics http.Handler
	out     io.Writer
}

// New builds a watcher over cfg.Watch. metricsHandler may be nil, in which
// case the HTTP listener only exposes /healthz.
func New(cfg *config.Config, runner Runner, metricsHandler http.Handler, out io.Writer) *Watcher {
	if out == nil {
		out = io.Discard
	}
	return &Watcher{cfg: cfg, runner: runner, metrics: metricsHandler, out: out}
}

// Run watches until ctx is canceled. It returns nil on a clean shutdown and
// an error when the watch could not be established.
func (w *Watcher) Run(ctx context.Context) error {
	changeStages, err := w.changeStages()
	if err != nil {
		return err
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create file watcher: %w", err)
	}
	defer fw.Close()

	watched := 0
	for _, rel := range w.cfg.Watch.Paths {
		root := filepath.Join(w.cfg.SourceDir, rel)
		if fi, statErr := os.Stat(root); statErr != nil || !fi.IsDir() {
			slog.Warn("Watch path missing, skipping", "path", root)
			continue
		}
		if err := addDirsRecursive(fw, root); err != nil {
			return fmt.Errorf("watch %s: %w", root, err)
		}
		watched++
	}
	if watched == 0 {
		return fmt.Errorf("no watchable paths under %s", w.cfg.SourceDir)
	}

	requests := make(chan request, 1)
	submit := func(req request) {
		select {
		case requests <- req:
		default:
			// A queued request already covers this trigger.
		}
	}

	deb := newDebouncer(w.cfg.Watch.Debounce, func() {
		submit(request{reason: "change", only: changeStages})
	})
	defer deb.stop()

	if w.cfg.Watch.Every > 0 {
		sched, err := gocron.NewScheduler()
		if err != nil {
			return fmt.Errorf("create scheduler: %w", err)
		}
		_, err = sched.NewJob(
			gocron.DurationJob(w.cfg.Watch.Every),
			gocron.NewTask(func() { submit(request{reason: "interval"}) }),
			gocron.WithName("full-rebuild"),
		)
		if err != nil {
			return fmt.Errorf("schedule interval rebuild: %w", err)
		}
		sched.Start()
		defer func() {
			if err := sched.Shutdown(); err != nil {
				slog.Warn("Scheduler shutdown failed", "error", err)
			}
		}()
		slog.Info("Scheduled periodic full rebuilds", "every", w.cfg.Watch.Every)
	}

	var srv *http.Server
	if w.cfg.Watch.Listen != "" {
		srv, err = w.startHTTP()
		if err != nil {
			return err
		}
	}

	go w.worker(ctx, requests)

	fmt.Fprintf(w.out, "Watching %d path(s) under %s (debounce %s)\n",
		watched, w.cfg.SourceDir, w.cfg.Watch.Debounce)
	submit(request{reason: "startup", only: changeStages})

	for {
		select {
		case <-ctx.Done():
			w.shutdownHTTP(srv)
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				w.shutdownHTTP(srv)
				return nil
			}
			w.handleEvent(fw, ev, deb)
		case watchErr, ok := <-fw.Errors:
			if !ok {
				w.shutdownHTTP(srv)
				return nil
			}
			slog.Warn("File watcher error", "error", watchErr)
		}
	}
}

// changeStages validates the configured stage subset against the catalog.
// Configuration loading cannot do this; stage names live here.
func (w *Watcher) changeStages() ([]stage.Name, error) {
	if len(w.cfg.Watch.Stages) == 0 {
		return nil, nil
	}
	names := make([]stage.Name, 0, len(w.cfg.Watch.Stages))
	for _, s := range w.cfg.Watch.Stages {
		names = append(names, stage.Name(s))
	}
	if _, err := stage.Select(stage.Catalog(), names, nil); err != nil {
		return nil, fmt.Errorf("watch stages: %w", err)
	}
	return names, nil
}

func (w *Watcher) handleEvent(fw *fsnotify.Watcher, ev fsnotify.Event, deb *debouncer) {
	if shouldIgnoreEvent(ev.Name) {
		return
	}
	if ev.Op&fsnotify.Create != 0 {
		if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() {
			if err := addDirsRecursive(fw, ev.Name); err != nil {
				slog.Warn("Failed to watch new directory", "dir", ev.Name, "error", err)
			}
		}
	}
	slog.Debug("File change detected", "path", ev.Name, "op", ev.Op.String())
	deb.trigger()
}

// worker serializes runs; the one-slot request channel holds at most one
// follow-up while a run is in flight.
func (w *Watcher) worker(ctx context.Context, requests <-chan request) {
	for {
		select {
		case <-ctx.Done():
			return
		case req := <-requests:
			w.runOnce(ctx, req)
		}
	}
}

func (w *Watcher) runOnce(ctx context.Context, req request) {
	fmt.Fprintf(w.out, "Starting %s run\n", req.reason)
	rep, err := w.runner.Run(ctx, pipeline.Options{Only: req.only, Output: w.out})
	switch {
	case err == nil:
		fmt.Fprintln(w.out, rep.Summary())
	case errors.Is(err, context.Canceled):
		slog.Info("Run canceled during shutdown")
	default:
		slog.Warn("Watched run failed", "reason", req.reason, "error", err)
		if rep != nil {
			fmt.Fprintln(w.out, rep.Summary())
		}
	}
}

func (w *Watcher) startHTTP() (*http.Server, error) {
	ln, err := net.Listen("tcp", w.cfg.Watch.Listen)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", w.cfg.Watch.Listen, err)
	}
	srv := &http.Server{Handler: w.httpHandler(), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if serveErr := srv.Serve(ln); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			slog.Error("Watch HTTP server failed", "addr", w.cfg.Watch.Listen, "error", serveErr)
		}
	}()
	slog.Info("Serving watch endpoints", "addr", ln.Addr().String())
	return srv, nil
}

func (w *Watcher) httpHandler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, _ *http.Request) {
		rw.WriteHeader(http.StatusOK)
		_, _ = rw.Write([]byte("ok\n"))
	})
	if w.metrics != nil {
		mux.Handle("/metrics", w.metrics)
	}
	return mux
}

func (w *Watcher) shutdownHTTP(srv *http.Server) {
	if srv == nil {
		return
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Warn("Watch HTTP shutdown failed", "error", err)
	}
}

// addDirsRecursive registers root and every directory below it, skipping
// hidden trees. Unreadable entries are logged and skipped so one bad
// directory does not kill the watch.
func addDirsRecursive(fw *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			slog.Warn("Skipping unreadable path", "path", path, "error", err)
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		if addErr := fw.Add(path); addErr != nil {
			slog.Warn("Failed to watch directory", "dir", path, "error", addErr)
		}
		return nil
	})
}

// shouldIgnoreEvent filters editor noise: hidden files, backup and swap
// files, and OS metadata. Build outputs live outside the watched trees.
func shouldIgnoreEvent(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") && base != "." {
		return true
	}
	if strings.HasSuffix(base, "~") {
		return true
	}
	if strings.HasSuffix(base, ".swp") || strings.HasSuffix(base, ".swx") {
		return true
	}
	if strings.HasPrefix(base, ".#") || (strings.HasPrefix(base, "#") && strings.HasSuffix(base, "#")) {
		return true
	}
	if base == ".DS_Store" || base == "Thumbs.db" {
		return true
	}
	return false
}
