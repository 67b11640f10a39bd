package watch

import (
	"context"
	"errors"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"git.home.luguber.info/inful/llvmbuilder/internal/config"
	"git.home.luguber.info/inful/llvmbuilder/internal/pipeline"
	"git.home.luguber.info/inful/llvmbuilder/internal/report"
	"git.home.luguber.info/inful/llvmbuilder/internal/stage"
)

type fakeRunner struct {
	mu    sync.Mutex
	calls []pipeline.Options
}

func (f *fakeRunner) Run(_ context.Context, opts pipeline.Options) (*report.RunReport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, opts)
	now := time.Now()
	return &report.RunReport{RunID: "watch-test", Status: report.RunSuccess, Start: now, End: now}, nil
}

func (f *fakeRunner) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeRunner) lastCall() pipeline.Options {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[len(f.calls)-1]
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("condition not met within %s", timeout)
}

func watchConfig(sourceDir string) *config.Config {
	return &config.Config{
		SourceDir: sourceDir,
		Watch: config.WatchConfig{
			Paths:    []string{"src"},
			Debounce: 50 * time.Millisecond,
			Stages:   []string{"build", "test"},
		},
	}
}

func TestDebouncerCoalesces(t *testing.T) {
	var fired atomic.Int32
	d := newDebouncer(20*time.Millisecond, func() { fired.Add(1) })
	defer d.stop()

	for i := 0; i < 5; i++ {
		d.trigger()
	}
	waitFor(t, 2*time.Second, func() bool { return fired.Load() == 1 })

	time.Sleep(100 * time.Millisecond)
	if got := fired.Load(); got != 1 {
		t.Fatalf("fired = %d, want 1 after a single burst", got)
	}

	d.trigger()
	waitFor(t, 2*time.Second, func() bool { return fired.Load() == 2 })
}

func TestDebouncerStopPreventsFire(t *testing.T) {
	var fired atomic.Int32
	d := newDebouncer(30*time.Millisecond, func() { fired.Add(1) })
	d.trigger()
	d.stop()

	time.Sleep(150 * time.Millisecond)
	if got := fired.Load(); got != 0 {
		t.Fatalf("fired = %d, want 0 after stop", got)
	}
}

func TestShouldIgnoreEvent(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"/src/main.cpp", false},
		{"/src/.hidden", true},
		{"/src/main.cpp~", true},
		{"/src/.main.cpp.swp", true},
		{"/src/.#lock", true},
		{"/src/#buffer#", true},
		{"/src/.DS_Store", true},
		{"/src/Thumbs.db", true},
		{"/src/CMakeLists.txt", false},
	}
	for _, tt := range tests {
		if got := shouldIgnoreEvent(tt.path); got != tt.want {
			t.Errorf("shouldIgnoreEvent(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestRunRejectsUnknownWatchStage(t *testing.T) {
	cfg := watchConfig(t.TempDir())
	cfg.Watch.Stages = []string{"deploy"}

	w := New(cfg, &fakeRunner{}, nil, nil)
	err := w.Run(t.Context())
	if !errors.Is(err, stage.ErrUnknownStage) {
		t.Fatalf("Run() error = %v, want ErrUnknownStage", err)
	}
}

func TestRunFailsWithoutWatchablePaths(t *testing.T) {
	cfg := watchConfig(t.TempDir())
	cfg.Watch.Paths = []string{"does-not-exist"}

	w := New(cfg, &fakeRunner{}, nil, nil)
	err := w.Run(t.Context())
	if err == nil {
		t.Fatal("Run() = nil, want error for missing watch paths")
	}
}

func TestWatcherRunsOnFileChange(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	if err := os.MkdirAll(src, 0o755); err != nil {
		t.Fatal(err)
	}

	cfg := watchConfig(dir)
	runner := &fakeRunner{}
	w := New(cfg, runner, nil, nil)

	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	// The startup run fires first.
	waitFor(t, 5*time.Second, func() bool { return runner.callCount() >= 1 })

	if err := os.WriteFile(filepath.Join(src, "lexer.cpp"), []byte("int main() {}\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	waitFor(t, 5*time.Second, func() bool { return runner.callCount() >= 2 })

	last := runner.lastCall()
	want := []stage.Name{stage.Build, stage.Test}
	if len(last.Only) != len(want) {
		t.Fatalf("Only = %v, want %v", last.Only, want)
	}
	for i, n := range want {
		if last.Only[i] != n {
			t.Fatalf("Only[%d] = %s, want %s", i, last.Only[i], n)
		}
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run() after cancel = %v, want nil", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop after cancel")
	}
}

func TestWatcherIgnoresEditorNoise(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	if err := os.MkdirAll(src, 0o755); err != nil {
		t.Fatal(err)
	}

	cfg := watchConfig(dir)
	cfg.Watch.Debounce = 30 * time.Millisecond
	runner := &fakeRunner{}
	w := New(cfg, runner, nil, nil)

	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()
	go func() { _ = w.Run(ctx) }()

	waitFor(t, 5*time.Second, func() bool { return runner.callCount() == 1 })

	if err := os.WriteFile(filepath.Join(src, ".lexer.cpp.swp"), []byte("x"), 0o600); err != nil {
		t.Fatal(err)
	}
	time.Sleep(300 * time.Millisecond)
	if got := runner.callCount(); got != 1 {
		t.Fatalf("runs after swap-file write = %d, want 1", got)
	}
}

func TestHTTPHandlerServesHealth(t *testing.T) {
	cfg := watchConfig(t.TempDir())
	w := New(cfg, &fakeRunner{}, nil, nil)

	rec := httptest.NewRecorder()
	w.httpHandler().ServeHTTP(rec, httptest.NewRequest("GET", "/healthz", nil))
	if rec.Code != 200 {
		t.Fatalf("GET /healthz = %d, want 200", rec.Code)
	}
	if got := rec.Body.String(); got != "ok\n" {
		t.Fatalf("body = %q, want %q", got, "ok\n")
	}

	// Without a metrics handler the endpoint stays unregistered.
	rec = httptest.NewRecorder()
	w.httpHandler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if rec.Code != 404 {
		t.Fatalf("GET /metrics without handler = %d, want 404", rec.Code)
	}
}
