// Package metrics defines the observability hooks for pipeline runs. The
// default NoopRecorder costs nothing; watch mode swaps in the Prometheus
// implementation and serves it over HTTP.
package metrics

import "time"

// ResultLabel enumerates invocation outcome categories for counters. Values
// mirror the execution engine's status classification.
type ResultLabel string

const (
	ResultSuccess     ResultLabel = "success"
	ResultFailed      ResultLabel = "failed"
	ResultSignaled    ResultLabel = "signaled"
	ResultTimedOut    ResultLabel = "timed-out"
	ResultCanceled    ResultLabel = "canceled"
	ResultSpawnFailed ResultLabel = "spawn-failed"
)

// Recorder defines observability hooks for run and stage metrics.
// Implementations must tolerate concurrent calls.
type Recorder interface {
	ObserveStageDuration(stage string, d time.Duration)
	ObserveRunDuration(d time.Duration)
	IncStageResult(stage string, result ResultLabel)
	IncRunOutcome(outcome string) // outcome: success|failed|canceled
}

// NoopRecorder is a Recorder that does nothing (default when metrics are not
// configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveStageDuration(string, time.Duration) {}
func (NoopRecorder) ObserveRunDuration(time.Duration)           {}
func (NoopRecorder) IncStageResult(string, ResultLabel)         {}
func (NoopRecorder) IncRunOutcome(string)                       {}
