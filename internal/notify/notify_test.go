package notify

import (
	"testing"
	"time"

	"git.home.luguber.info/inful/llvmbuilder/internal/config"
	"git.home.luguber.info/inful/llvmbuilder/internal/pipeline"
	"git.home.luguber.info/inful/llvmbuilder/internal/report"
)

func TestNewDisabledWithoutURL(t *testing.T) {
	p, err := New(config.NotifyConfig{Subject: "llvmbuilder.runs"})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	if p != nil {
		t.Fatalf("New() = %v, want nil publisher when URL is empty", p)
	}
}

func TestNilPublisherIsInert(t *testing.T) {
	var p *Publisher
	rep := &report.RunReport{RunID: "x", Status: report.RunSuccess}
	if err := p.PublishRun(rep); err != nil {
		t.Errorf("PublishRun() on nil publisher: %v", err)
	}
	p.Close()
	Subscribe(pipeline.NewBus(), p)
}

func TestEventFromReport(t *testing.T) {
	start := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	rep := &report.RunReport{
		RunID:       "0d9a2f41-3c1b-4e8e-9f27-6f1f2b3c4d5e",
		Start:       start,
		End:         start.Add(42 * time.Minute),
		Status:      report.RunFailed,
		FailedStage: "build",
		Generator:   "Ninja",
		BuildType:   "Debug",
		Projects:    []string{"mlir", "clang"},
		Jobs:        16,
	}

	ev := eventFromReport(rep)

	if ev.RunID != rep.RunID {
		t.Errorf("RunID = %q, want %q", ev.RunID, rep.RunID)
	}
	if ev.Status != "failed" || ev.FailedStage != "build" {
		t.Errorf("status = %s/%s, want failed/build", ev.Status, ev.FailedStage)
	}
	if ev.DurationMS != (42 * time.Minute).Milliseconds() {
		t.Errorf("DurationMS = %d, want %d", ev.DurationMS, (42 * time.Minute).Milliseconds())
	}
	if ev.Generator != "Ninja" || ev.BuildType != "Debug" || ev.Jobs != 16 {
		t.Errorf("config snapshot = %s/%s/%d", ev.Generator, ev.BuildType, ev.Jobs)
	}
	if len(ev.Projects) != 2 {
		t.Errorf("Projects = %v", ev.Projects)
	}
}

func TestNewRejectsUnreachableServer(t *testing.T) {
	_, err := New(config.NotifyConfig{URL: "nats://127.0.0.1:1", Subject: "llvmbuilder.runs"})
	if err == nil {
		t.Fatal("New() succeeded against unreachable server")
	}
}
