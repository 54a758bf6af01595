package observability

import (
	"context"
	stderrors "errors"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"

	"github.com/kbukum/failsafe/logger"
)

const meterName = "github.com/kbukum/failsafe"

// Telemetry owns the providers created by Setup and the instruments built
// on them.
type Telemetry struct {
	Metrics *Metrics

	shutdown []func(context.Context) error
	unsub    []func()
}

// Setup builds Telemetry from cfg. When cfg.Enabled is false no exporter is
// started and the instruments record into a no-op meter.
func Setup(ctx context.Context, cfg Config, log *logger.Logger) (*Telemetry, error) {
	if log == nil {
		log = logger.Nop()
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	t := &Telemetry{}
	var meter metric.Meter = noop.NewMeterProvider().Meter(meterName)

	if cfg.Enabled {
		tp, err := InitTracer(ctx, cfg.tracer(), log)
		if err != nil {
			return nil, err
		}
		t.shutdown = append(t.shutdown, tp.Shutdown)

		mp, err := InitMeter(ctx, cfg.meter(), log)
		if err != nil {
			_ = tp.Shutdown(ctx)
			return nil, err
		}
		t.shutdown = append(t.shutdown, mp.Shutdown)
		meter = mp.Meter(meterName)
	}

	m, err := NewMetrics(meter)
	if err != nil {
		_ = t.Shutdown(ctx)
		return nil, err
	}
	t.Metrics = m
	return t, nil
}

// NewTelemetry wraps existing instruments, typically built on a test meter.
func NewTelemetry(m *Metrics) *Telemetry {
	return &Telemetry{Metrics: m}
}

// Track keeps an unsubscribe function returned by one of the Observe
// methods so Shutdown can release it.
func (t *Telemetry) Track(unsubscribe func()) {
	t.unsub = append(t.unsub, unsubscribe)
}

// Shutdown detaches observers and flushes the providers.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	for _, u := range t.unsub {
		u()
	}
	t.unsub = nil

	var errs []error
	for i := len(t.shutdown) - 1; i >= 0; i-- {
		if err := t.shutdown[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	t.shutdown = nil
	return stderrors.Join(errs...)
}
