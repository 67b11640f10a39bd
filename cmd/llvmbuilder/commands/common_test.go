package commands

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"git.home.luguber.info/inful/llvmbuilder/internal/config"
	"git.home.luguber.info/inful/llvmbuilder/internal/pipeline"
	"git.home.luguber.info/inful/llvmbuilder/internal/report"
	"git.home.luguber.info/inful/llvmbuilder/internal/stage"
)

func TestExitCode(t *testing.T) {
	cfgErr := &config.ConfigError{Kind: config.KindInvalidValue, Option: "jobs", Value: "-1"}
	stageErr := &pipeline.StageExecutionError{
		Stage:  stage.Build,
		Result: report.StageResult{Stage: "build", Status: report.StageFailed, ExitCode: 2},
	}

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitOK},
		{"config error", cfgErr, ExitConfigError},
		{"wrapped config error", fmt.Errorf("resolve: %w", cfgErr), ExitConfigError},
		{"unknown stage", fmt.Errorf("select: %w", stage.ErrUnknownStage), ExitConfigError},
		{"empty selection", stage.ErrEmptySelection, ExitConfigError},
		{"stage failure", stageErr, ExitFailure},
		{"canceled", fmt.Errorf("run canceled: %w", context.Canceled), ExitCanceled},
		{"other", errors.New("boom"), ExitFailure},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExitCode(tt.err); got != tt.want {
				t.Errorf("ExitCode(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

func TestStageNames(t *testing.T) {
	if got := stageNames(nil); got != nil {
		t.Errorf("stageNames(nil) = %v, want nil", got)
	}
	got := stageNames([]string{"build", "test"})
	want := []stage.Name{stage.Build, stage.Test}
	if len(got) != len(want) {
		t.Fatalf("stageNames() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("stageNames()[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}
