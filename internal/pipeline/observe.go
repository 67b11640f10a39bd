package pipeline

import (
	"git.home.luguber.info/inful/llvmbuilder/internal/metrics"
)

// SubscribeRecorder wires a metrics Recorder to the run lifecycle events.
// Stage durations and result counts come from StageFinished; run totals from
// RunFinished.
func SubscribeRecorder(bus *Bus, rec metrics.Recorder) {
	if bus == nil || rec == nil {
		return
	}
	bus.Subscribe(EventStageFinished, func(e Event) error {
		ev, ok := e.(StageFinished)
		if !ok {
			return nil
		}
		rec.ObserveStageDuration(string(ev.Stage), ev.Duration)
		rec.IncStageResult(string(ev.Stage), metrics.ResultLabel(ev.Status))
		return nil
	})
	bus.Subscribe(EventRunFinished, func(e Event) error {
		ev, ok := e.(RunFinished)
		if !ok || ev.Report == nil {
			return nil
		}
		rec.ObserveRunDuration(ev.Report.Duration())
		rec.IncRunOutcome(string(ev.Report.Status))
		return nil
	})
}
