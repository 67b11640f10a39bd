package pipeline

import (
	"time"

	"git.home.luguber.info/inful/llvmbuilder/internal/report"
	"git.home.luguber.info/inful/llvmbuilder/internal/stage"
)

// Event is a run lifecycle event published on the Bus.
type Event interface{ Name() string }

// Event names used in the pipeline.
const (
	EventRunStarted         = "RunStarted"
	EventStageStarted       = "StageStarted"
	EventInvocationFinished = "InvocationFinished"
	EventStageFinished      = "StageFinished"
	EventRunFinished        = "RunFinished"
)

// RunStarted is published once per run, before the first stage.
type RunStarted struct {
	RunID  string
	Stages []stage.Name
}

func (RunStarted) Name() string { return EventRunStarted }

// StageStarted is published before a stage issues its first invocation.
type StageStarted struct {
	RunID string
	Stage stage.Name
	Label string
}

func (StageStarted) Name() string { return EventStageStarted }

// InvocationFinished is published after each invocation, whatever its outcome.
type InvocationFinished struct {
	RunID  string
	Stage  stage.Name
	Result report.StageResult
}

func (InvocationFinished) Name() string { return EventInvocationFinished }

// StageFinished is published when a stage's invocations stop, successfully
// or not.
type StageFinished struct {
	RunID    string
	Stage    stage.Name
	Status   report.StageStatus
	Duration time.Duration
}

func (StageFinished) Name() string { return EventStageFinished }

// RunFinished is published exactly once, after the report is finalized.
type RunFinished struct {
	Report *report.RunReport
}

func (RunFinished) Name() string { return EventRunFinished }
