// Package observability exports what the resilience layer does through
// OpenTelemetry.
//
// Metrics subscribe to the event buses of the retry engine, the error
// manager and the degradation coordinator, so the producing packages never
// import the SDK:
//
//	tel, err := observability.Setup(ctx, cfg.Telemetry, log)
//	defer tel.Shutdown(ctx)
//
//	tel.Track(tel.Metrics.ObserveResilience(engine.Events()))
//	tel.Track(tel.Metrics.ObserveErrors(manager.Events()))
//	tel.Track(tel.Metrics.ObserveDegradation(coordinator.Events()))
//
// Tracing installs a global OTLP provider that the bridge uses for one span
// per invocation.
package observability
