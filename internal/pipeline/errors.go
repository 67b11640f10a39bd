package pipeline

import (
	"errors"
	"fmt"
	"time"

	"git.home.luguber.info/inful/llvmbuilder/internal/report"
	"git.home.luguber.info/inful/llvmbuilder/internal/stage"
)

// ErrPredecessorNotRun reports a selected stage whose required predecessor
// has not succeeded. Unreachable while the catalog stays linear.
var ErrPredecessorNotRun = errors.New("predecessor stage has not succeeded")

// StageExecutionError halts the run at the stage whose invocation did not
// succeed.
type StageExecutionError struct {
	Stage  stage.Name
	Label  string
	Result report.StageResult
}

func (e *StageExecutionError) Error() string {
	name := string(e.Stage)
	if e.Label != "" {
		name += " (" + e.Label + ")"
	}
	switch e.Result.Status {
	case report.StageTimedOut:
		return fmt.Sprintf("stage %s timed out after %s", name, e.Result.Duration().Truncate(time.Millisecond))
	case report.StageSignaled:
		return fmt.Sprintf("stage %s terminated by %s", name, e.Result.Signal)
	case report.StageSpawnFailed:
		return fmt.Sprintf("stage %s could not start: %s", name, e.Result.Err)
	default:
		return fmt.Sprintf("stage %s failed with exit code %d", name, e.Result.ExitCode)
	}
}
