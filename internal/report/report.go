// Package report models the outcome of one pipeline run: an ordered list of
// attempted invocations with their statuses, timings and diagnostic tails,
// plus the configuration snapshot the run was made with. Reports serialize
// to JSON for persistence and render to text, Markdown and HTML for humans.
package report

import (
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"time"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/llvmbuilder/internal/config"
	"git.home.luguber.info/inful/llvmbuilder/internal/version"
)

// SchemaVersion identifies the report JSON layout for external consumers.
const SchemaVersion = 1

// RunStatus is the typed enumeration of final run states.
type RunStatus string

const (
	RunSuccess  RunStatus = "success"
	RunFailed   RunStatus = "failed"
	RunCanceled RunStatus = "canceled"
	// RunConfigError marks runs refused before any stage was attempted.
	RunConfigError RunStatus = "config-error"
)

// StageStatus mirrors the execution engine's outcome classification.
type StageStatus string

const (
	StageSuccess     StageStatus = "success"
	StageFailed      StageStatus = "failed"
	StageSignaled    StageStatus = "signaled"
	StageTimedOut    StageStatus = "timed-out"
	StageCanceled    StageStatus = "canceled"
	StageSpawnFailed StageStatus = "spawn-failed"
)

// OK reports whether the invocation completed successfully.
func (s StageStatus) OK() bool { return s == StageSuccess }

// StageResult records one attempted invocation.
type StageResult struct {
	Stage    string      `json:"stage"`
	Label    string      `json:"label,omitempty"`
	Status   StageStatus `json:"status"`
	Start    time.Time   `json:"start"`
	End      time.Time   `json:"end"`
	ExitCode int         `json:"exit_code"`
	Signal   string      `json:"signal,omitempty"`
	Tail     []string    `json:"tail,omitempty"`
	Err      string      `json:"error,omitempty"`
}

// Duration is the wall-clock time the invocation took.
func (sr StageResult) Duration() time.Duration { return sr.End.Sub(sr.Start) }

// Display is the row identity in human output: the stage name, qualified by
// the label when the stage issued more than one command.
func (sr StageResult) Display() string {
	if sr.Label == "" {
		return sr.Stage
	}
	return sr.Stage + ":" + sr.Label
}

// RunReport captures one pipeline run end to end.
type RunReport struct {
	SchemaVersion int       `json:"schema_version"`
	RunID         string    `json:"run_id"`
	Start         time.Time `json:"start"`
	End           time.Time `json:"end"`

	Status      RunStatus `json:"status"`
	FailedStage string    `json:"failed_stage,omitempty"`

	// Stages holds attempted invocations only, in execution order.
	Stages []StageResult `json:"stages"`

	// Configuration snapshot for reproducing the run.
	Generator string   `json:"generator"`
	BuildType string   `json:"build_type"`
	Projects  []string `json:"projects"`
	Targets   []string `json:"targets,omitempty"`
	Jobs      int      `json:"jobs"`

	LLVMBuilderVersion string `json:"llvmbuilder_version"`
	CMakeVersion       string `json:"cmake_version,omitempty"`
}

// NewRunReport starts a report for a run over the given configuration.
func NewRunReport(ctx context.Context, cfg *config.Config) *RunReport {
	return &RunReport{
		SchemaVersion:      SchemaVersion,
		RunID:              uuid.NewString(),
		Start:              time.Now(),
		Generator:          string(cfg.Generator),
		BuildType:          string(cfg.BuildType),
		Projects:           append([]string(nil), cfg.Projects...),
		Targets:            append([]string(nil), cfg.Targets...),
		Jobs:               cfg.Jobs,
		LLVMBuilderVersion: version.Version,
		CMakeVersion:       DetectCMakeVersion(ctx),
	}
}

// Append records an attempted invocation.
func (r *RunReport) Append(sr StageResult) { r.Stages = append(r.Stages, sr) }

// Finish stamps the end time if the run has not been finished yet.
func (r *RunReport) Finish() {
	if r.End.IsZero() {
		r.End = time.Now()
	}
}

// Duration is the total wall-clock time of the run.
func (r *RunReport) Duration() time.Duration { return r.End.Sub(r.Start) }

// DeriveStatus folds the recorded stage results into the run status. The
// first non-success result decides: a canceled invocation marks the whole
// run canceled, anything else marks it failed at that stage.
func (r *RunReport) DeriveStatus() {
	for _, sr := range r.Stages {
		if sr.Status.OK() {
			continue
		}
		if sr.Status == StageCanceled {
			r.Status = RunCanceled
		} else {
			r.Status = RunFailed
		}
		r.FailedStage = sr.Stage
		return
	}
	r.Status = RunSuccess
	r.FailedStage = ""
}

// Summary returns a human-readable single-line summary.
func (r *RunReport) Summary() string {
	s := fmt.Sprintf("run=%s status=%s stages=%d duration=%s generator=%s build_type=%s jobs=%d",
		ShortID(r.RunID), r.Status, len(r.Stages), r.Duration().Truncate(time.Millisecond),
		r.Generator, r.BuildType, r.Jobs)
	if r.FailedStage != "" {
		s += " failed_stage=" + r.FailedStage
	}
	return s
}

// ShortID abbreviates a run ID for log lines and summaries.
func ShortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

var cmakeVersionRegex = regexp.MustCompile(`(\d+\.\d+\.\d+)`)

// DetectCMakeVersion reports the version of the cmake binary on PATH, or
// empty when it cannot be determined. Absence is not an error here; the
// pipeline will surface a missing binary as a spawn failure.
func DetectCMakeVersion(ctx context.Context) string {
	cmakePath, err := exec.LookPath("cmake")
	if err != nil {
		return ""
	}
	cmd := exec.CommandContext(ctx, cmakePath, "--version")
	output, err := cmd.Output()
	if err != nil {
		return ""
	}
	return ParseCMakeVersion(string(output))
}

// ParseCMakeVersion extracts the semantic version from cmake --version output.
func ParseCMakeVersion(output string) string {
	matches := cmakeVersionRegex.FindStringSubmatch(output)
	if len(matches) >= 2 {
		return matches[1]
	}
	return ""
}
