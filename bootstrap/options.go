package bootstrap

import (
	"time"

	"github.com/spf13/afero"

	"github.com/kbukum/failsafe/clock"
	"github.com/kbukum/failsafe/degradation"
	"github.com/kbukum/failsafe/logger"
	"github.com/kbukum/failsafe/observability"
)

// Option configures the App during creation.
type Option func(*appOptions)

// appOptions collects all option values before applying to App.
type appOptions struct {
	logger          *logger.Logger
	fs              afero.Fs
	clock           clock.Clock
	probe           degradation.Probe
	telemetry       *observability.Telemetry
	gracefulTimeout *time.Duration
}

// resolveOptions applies all options and returns the collected values.
func resolveOptions(opts []Option) *appOptions {
	o := &appOptions{}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithLogger sets a custom logger for the application.
// If not set, the logger is built from the config's Logging field.
func WithLogger(l *logger.Logger) Option {
	return func(o *appOptions) {
		o.logger = l
	}
}

// WithGracefulTimeout sets the maximum duration for graceful shutdown.
func WithGracefulTimeout(d time.Duration) Option {
	return func(o *appOptions) {
		o.gracefulTimeout = &d
	}
}

// WithFs sets the filesystem holding the offline store and lock.
func WithFs(fs afero.Fs) Option {
	return func(o *appOptions) {
		o.fs = fs
	}
}

// WithClock replaces the wall clock.
func WithClock(c clock.Clock) Option {
	return func(o *appOptions) {
		o.clock = c
	}
}

// WithProbe adds a capability probe. Probes given here are combined with
// the probe reading the circuit breakers.
func WithProbe(p degradation.Probe) Option {
	return func(o *appOptions) {
		o.probe = p
	}
}

// WithTelemetry supplies telemetry instead of building it from the config.
func WithTelemetry(t *observability.Telemetry) Option {
	return func(o *appOptions) {
		o.telemetry = t
	}
}
