package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/kbukum/failsafe/logger"
)

// MeterConfig configures the OpenTelemetry meter provider.
type MeterConfig struct {
	// ServiceName is the name of the service.
	ServiceName string
	// ServiceVersion is the version of the service.
	ServiceVersion string
	// Environment is the deployment environment (dev, staging, prod).
	Environment string
	// Endpoint is the OTLP HTTP endpoint host:port (e.g., "localhost:4318").
	Endpoint string
	// Insecure allows insecure connections (for development).
	Insecure bool
	// Interval is the metric export interval.
	Interval time.Duration
}

// DefaultMeterConfig returns sensible defaults for development.
func DefaultMeterConfig(serviceName string) MeterConfig {
	return MeterConfig{
		ServiceName:    serviceName,
		ServiceVersion: "0.0.0",
		Environment:    "development",
		Endpoint:       "localhost:4318",
		Insecure:       true,
		Interval:       15 * time.Second,
	}
}

// InitMeter initializes the OpenTelemetry meter provider and installs it as
// the global provider. The returned provider should be shut down on exit.
func InitMeter(ctx context.Context, config MeterConfig, log *logger.Logger) (*sdkmetric.MeterProvider, error) {
	opts := []otlpmetrichttp.Option{
		otlpmetrichttp.WithEndpoint(config.Endpoint),
	}
	if config.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}

	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating metric exporter: %w", err)
	}

	res, err := newResource(config.ServiceName, config.ServiceVersion, config.Environment)
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	readerOpts := []sdkmetric.PeriodicReaderOption{}
	if config.Interval > 0 {
		readerOpts = append(readerOpts, sdkmetric.WithInterval(config.Interval))
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, readerOpts...)),
		sdkmetric.WithResource(res),
	)

	otel.SetMeterProvider(mp)

	log.Info("meter initialized", logger.Fields(
		logger.FieldService, config.ServiceName,
		"endpoint", config.Endpoint,
		"interval", config.Interval.String(),
	))

	return mp, nil
}

// Meter returns a named meter from the global provider.
func Meter(name string) metric.Meter {
	return otel.Meter(name)
}

// Instrument names.
const (
	MetricAttempts          = "failsafe.retry.attempts"
	MetricRetryDelay        = "failsafe.retry.delay"
	MetricRetryExhausted    = "failsafe.retry.exhausted"
	MetricCircuitTransition = "failsafe.circuit.transitions"
	MetricErrors            = "failsafe.errors"
	MetricDegradationLevel  = "failsafe.degradation.level"
	MetricQueueReplayed     = "failsafe.queue.replayed"
)

// Metrics holds the instruments the resilience layer reports through.
type Metrics struct {
	attempts          metric.Int64Counter
	retryDelay        metric.Float64Histogram
	retryExhausted    metric.Int64Counter
	circuitTransition metric.Int64Counter
	errors            metric.Int64Counter
	degradationLevel  metric.Int64Gauge
	queueReplayed     metric.Int64Counter
}

// NewMetrics creates metric instruments on the given meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	attempts, err := meter.Int64Counter(MetricAttempts,
		metric.WithDescription("Attempts made by the retry engine, by outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating %s counter: %w", MetricAttempts, err)
	}

	retryDelay, err := meter.Float64Histogram(MetricRetryDelay,
		metric.WithDescription("Delay waited between attempts"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating %s histogram: %w", MetricRetryDelay, err)
	}

	retryExhausted, err := meter.Int64Counter(MetricRetryExhausted,
		metric.WithDescription("Operations that failed after their last allowed attempt"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating %s counter: %w", MetricRetryExhausted, err)
	}

	circuitTransition, err := meter.Int64Counter(MetricCircuitTransition,
		metric.WithDescription("Circuit breaker state transitions, by target state"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating %s counter: %w", MetricCircuitTransition, err)
	}

	errorTotal, err := meter.Int64Counter(MetricErrors,
		metric.WithDescription("Errors handled, by category and severity"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating %s counter: %w", MetricErrors, err)
	}

	level, err := meter.Int64Gauge(MetricDegradationLevel,
		metric.WithDescription("Current degradation level (0 none, 1 partial, 2 offline, 3 critical)"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating %s gauge: %w", MetricDegradationLevel, err)
	}

	replayed, err := meter.Int64Counter(MetricQueueReplayed,
		metric.WithDescription("Queued operations replayed after connectivity returned, by result"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating %s counter: %w", MetricQueueReplayed, err)
	}

	return &Metrics{
		attempts:          attempts,
		retryDelay:        retryDelay,
		retryExhausted:    retryExhausted,
		circuitTransition: circuitTransition,
		errors:            errorTotal,
		degradationLevel:  level,
		queueReplayed:     replayed,
	}, nil
}

// RecordAttempt counts one attempt of operation with outcome "success" or "failure".
func (m *Metrics) RecordAttempt(ctx context.Context, operation, outcome string) {
	m.attempts.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.String("outcome", outcome),
	))
}

// RecordDelay records a wait between attempts.
func (m *Metrics) RecordDelay(ctx context.Context, operation string, d time.Duration) {
	m.retryDelay.Record(ctx, d.Seconds(), metric.WithAttributes(attribute.String("operation", operation)))
}

// RecordExhausted counts an operation the engine gave up on.
func (m *Metrics) RecordExhausted(ctx context.Context, operation, code string) {
	m.retryExhausted.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.String("code", code),
	))
}

// RecordCircuitTransition counts a breaker moving into state.
func (m *Metrics) RecordCircuitTransition(ctx context.Context, operation, state string) {
	m.circuitTransition.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.String("state", state),
	))
}

// RecordError counts a handled error.
func (m *Metrics) RecordError(ctx context.Context, category, severity, component string) {
	m.errors.Add(ctx, 1, metric.WithAttributes(
		attribute.String("category", category),
		attribute.String("severity", severity),
		attribute.String("component", component),
	))
}

// RecordDegradationLevel sets the level gauge.
func (m *Metrics) RecordDegradationLevel(ctx context.Context, level int, name string) {
	m.degradationLevel.Record(ctx, int64(level), metric.WithAttributes(attribute.String("level", name)))
}

// RecordReplay counts replayed queue entries.
func (m *Metrics) RecordReplay(ctx context.Context, processed, failed int) {
	if processed > 0 {
		m.queueReplayed.Add(ctx, int64(processed), metric.WithAttributes(attribute.String("result", "processed")))
	}
	if failed > 0 {
		m.queueReplayed.Add(ctx, int64(failed), metric.WithAttributes(attribute.String("result", "failed")))
	}
}
