package observability

import (
	"context"

	"github.com/kbukum/failsafe/degradation"
	"github.com/kbukum/failsafe/errors"
	"github.com/kbukum/failsafe/events"
	"github.com/kbukum/failsafe/resilience"
)

// ObserveResilience feeds retry and breaker events from bus into m and
// returns the unsubscribe function. Retry metrics use the event Label, so
// generated operation ids never become attribute values.
func (m *Metrics) ObserveResilience(bus *events.Bus[resilience.Event]) func() {
	ctx := context.Background()
	return bus.Subscribe(func(e resilience.Event) {
		switch ev := e.(type) {
		case resilience.AttemptSucceeded:
			m.RecordAttempt(ctx, ev.Label, "success")
		case resilience.AttemptFailed:
			m.RecordAttempt(ctx, ev.Label, "failure")
		case resilience.DelayStarted:
			m.RecordDelay(ctx, ev.Label, ev.Delay)
		case resilience.RetryExhausted:
			code := string(errors.CodeUnknown)
			if ev.Err != nil {
				code = string(ev.Err.Code)
			}
			m.RecordExhausted(ctx, ev.Label, code)
		case resilience.CircuitOpened:
			m.RecordCircuitTransition(ctx, ev.OperationID, resilience.StateOpen.String())
		case resilience.CircuitHalfOpened:
			m.RecordCircuitTransition(ctx, ev.OperationID, resilience.StateHalfOpen.String())
		case resilience.CircuitClosed:
			m.RecordCircuitTransition(ctx, ev.OperationID, resilience.StateClosed.String())
		}
	})
}

// ObserveErrors counts every error handled by the manager publishing on bus.
func (m *Metrics) ObserveErrors(bus *events.Bus[errors.ErrorEvent]) func() {
	ctx := context.Background()
	return bus.Subscribe(func(e errors.ErrorEvent) {
		if e.Error == nil {
			return
		}
		m.RecordError(ctx, string(e.Error.Category), string(e.Error.Severity), e.Error.Context.Component)
	})
}

// ObserveDegradation tracks the level gauge and replay results.
func (m *Metrics) ObserveDegradation(bus *events.Bus[degradation.Event]) func() {
	ctx := context.Background()
	return bus.Subscribe(func(e degradation.Event) {
		switch ev := e.(type) {
		case degradation.ChangeEvent:
			m.RecordDegradationLevel(ctx, int(ev.Current), ev.Current.String())
		case degradation.ReplayCompleted:
			m.RecordReplay(ctx, ev.Result.Processed, ev.Result.Failed)
		}
	})
}
