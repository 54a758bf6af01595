package bootstrap

import (
	"context"
	stderrors "errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/afero"

	"github.com/kbukum/failsafe/bridge"
	"github.com/kbukum/failsafe/clock"
	"github.com/kbukum/failsafe/component"
	"github.com/kbukum/failsafe/config"
	"github.com/kbukum/failsafe/degradation"
	"github.com/kbukum/failsafe/errors"
	"github.com/kbukum/failsafe/logger"
	"github.com/kbukum/failsafe/observability"
	"github.com/kbukum/failsafe/offline"
	"github.com/kbukum/failsafe/resilience"
)

// App owns one instance of every part of the resilience layer.
type App struct {
	Name    string
	Version string
	Cfg     *config.Config
	Logger  *logger.Logger

	Errors      *errors.Manager
	Engine      *resilience.Engine
	Offline     *offline.Offline
	Coordinator *degradation.Coordinator
	Bridge      *bridge.Bridge
	Telemetry   *observability.Telemetry
	Components  *component.Registry

	clock           clock.Clock
	gracefulTimeout time.Duration
	listener        net.Listener
	server          *http.Server

	onStart []Hook
	onReady []Hook
	onStop  []Hook
}

// NewApp applies defaults to cfg, validates it and wires every part.
// Nothing is started until Start or Run.
func NewApp(ctx context.Context, cfg *config.Config, opts ...Option) (*App, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := resolveOptions(opts)
	app := &App{
		Name:            cfg.Name,
		Version:         cfg.Version,
		Cfg:             cfg,
		Logger:          o.logger,
		clock:           o.clock,
		gracefulTimeout: 15 * time.Second,
	}
	if app.Logger == nil {
		app.Logger = logger.New(&cfg.Logging, cfg.Name)
	}
	if app.clock == nil {
		app.clock = clock.New()
	}
	if o.gracefulTimeout != nil {
		app.gracefulTimeout = *o.gracefulTimeout
	}
	fs := o.fs
	if fs == nil {
		fs = afero.NewOsFs()
	}
	log := app.Logger
	logger.SetGlobalLogger(log)
	logger.Register(cfg.Name, log)

	app.Telemetry = o.telemetry
	if app.Telemetry == nil {
		tel, err := observability.Setup(ctx, cfg.Telemetry, log)
		if err != nil {
			return nil, fmt.Errorf("telemetry: %w", err)
		}
		app.Telemetry = tel
	}

	app.Errors = errors.NewManager(errors.NewFactory(cfg.Resilience.MaxRetryAttempts), errors.WithLogger(log))
	app.Engine = resilience.NewEngine(cfg.Resilience, app.Errors,
		resilience.WithClock(app.clock),
		resilience.WithLogger(log),
	)

	off, err := offline.New(cfg.Offline, fs, app.clock, app.Errors.Factory, log)
	if err != nil {
		_ = app.Telemetry.Shutdown(ctx)
		return nil, err
	}
	app.Offline = off

	app.Bridge = bridge.New(app.Engine, cfg.Resilience, bridge.WithLogger(log))

	probe := degradation.BreakerProbe(app.Engine.Breakers())
	if o.probe != nil {
		probe = degradation.All(o.probe, probe)
	}
	app.Coordinator = degradation.NewCoordinator(cfg.Degradation,
		degradation.WithProbe(probe),
		degradation.WithCache(off.Cache),
		degradation.WithQueue(off.Queue, app.deliver),
		degradation.WithErrors(app.Errors),
		degradation.WithClock(app.clock),
		degradation.WithLogger(log),
	)

	m := app.Telemetry.Metrics
	app.Telemetry.Track(m.ObserveResilience(app.Engine.Events()))
	app.Telemetry.Track(m.ObserveErrors(app.Errors.Events()))
	app.Telemetry.Track(m.ObserveDegradation(app.Coordinator.Events()))

	app.Components = component.NewRegistry(log)
	if err := app.registerComponents(); err != nil {
		return nil, err
	}
	return app, nil
}

// registerComponents registers dependencies first: telemetry is stopped
// last so the final events are still exported.
func (a *App) registerComponents() error {
	var sweepCancel context.CancelFunc
	comps := []component.Component{
		&component.Func{
			ID:     "telemetry",
			OnStop: a.Telemetry.Shutdown,
		},
		&component.Func{
			ID:     "offline",
			OnStop: a.Offline.Close,
			OnHealth: func(ctx context.Context) component.Health {
				h := component.Health{Name: "offline", Status: component.StatusHealthy}
				if _, err := a.Offline.Store.Keys(ctx); err != nil {
					h.Status, h.Message = component.StatusUnhealthy, err.Error()
				}
				return h
			},
		},
		&component.Func{
			ID: "retry-sweeper",
			OnStart: func(ctx context.Context) error {
				var sweepCtx context.Context
				sweepCtx, sweepCancel = context.WithCancel(context.WithoutCancel(ctx))
				a.Engine.StartSweeper(sweepCtx)
				return nil
			},
			OnStop: func(context.Context) error {
				if sweepCancel != nil {
					sweepCancel()
				}
				return nil
			},
		},
		a.Coordinator,
	}
	if a.Cfg.Listen != "" {
		comps = append(comps, &component.Func{
			ID:      "bridge-http",
			OnStart: a.serve,
			OnStop:  a.shutdownServer,
		})
	}
	for _, c := range comps {
		if err := a.Components.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// deliver replays one queued operation through the bridge channel it names.
func (a *App) deliver(ctx context.Context, op offline.Operation) error {
	ctx, span := observability.StartSpan(ctx, "replay "+op.Name)
	defer span.End()

	args, err := op.Args()
	if err != nil {
		span.RecordError(err)
		return a.Errors.New(errors.CodeSerializationFailed, "queued payload for "+op.Name+": "+err.Error(),
			errors.WithCause(err), errors.WithService(op.Service))
	}
	if _, err := a.Bridge.Invoke(ctx, op.Name, args...); err != nil {
		span.RecordError(err)
		return err
	}
	return nil
}

func (a *App) serve(_ context.Context) error {
	ln, err := net.Listen("tcp", a.Cfg.Listen)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", a.Cfg.Listen, err)
	}
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	a.Bridge.Mount(r)

	a.listener = ln
	a.server = &http.Server{Handler: r, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := a.server.Serve(ln); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			a.Logger.Error("bridge transport stopped", logger.ErrorFields("serve", err))
		}
	}()
	a.Logger.Info("bridge transport listening", logger.Fields("addr", ln.Addr().String()))
	return nil
}

func (a *App) shutdownServer(ctx context.Context) error {
	if a.server == nil {
		return nil
	}
	return a.server.Shutdown(ctx)
}

// Addr returns the bridge transport address, or "" when it is not listening.
func (a *App) Addr() string {
	if a.listener == nil {
		return ""
	}
	return a.listener.Addr().String()
}

// ReadyCheck verifies that all registered components are healthy.
func (a *App) ReadyCheck(ctx context.Context) error {
	results := a.Components.HealthAll(ctx)
	var unhealthy []string
	for _, h := range results {
		if h.Status != component.StatusHealthy {
			detail := h.Name + "=" + string(h.Status)
			if h.Message != "" {
				detail += "(" + h.Message + ")"
			}
			unhealthy = append(unhealthy, detail)
		}
	}
	if len(unhealthy) > 0 {
		return fmt.Errorf("unhealthy components: %v", unhealthy)
	}
	return nil
}

// Health folds every component's health into one status.
func (a *App) Health(ctx context.Context) component.HealthStatus {
	return component.Overall(a.Components.HealthAll(ctx))
}

// Run starts the application, blocks until a signal or ctx cancellation and
// then shuts down gracefully.
func (a *App) Run(ctx context.Context) error {
	if err := a.Start(ctx); err != nil {
		return err
	}

	a.WaitForSignal(ctx)
	return a.Shutdown(context.Background())
}

// Start starts all components, runs OnStart hooks, performs the ready check
// and runs OnReady hooks.
func (a *App) Start(ctx context.Context) error {
	a.Logger.Info("starting application", logger.Fields(
		logger.FieldService, a.Name,
		"version", a.Version,
	))

	if err := a.Components.StartAll(ctx); err != nil {
		return fmt.Errorf("failed to start components: %w", err)
	}

	if err := runHooks(ctx, a.onStart); err != nil {
		return fmt.Errorf("onStart hook failed: %w", err)
	}

	// Degraded components are expected while offline, so readiness only warns.
	if err := a.ReadyCheck(ctx); err != nil {
		a.Logger.Warn("ready check reported issues", logger.Fields(logger.FieldError, err.Error()))
	}

	if err := runHooks(ctx, a.onReady); err != nil {
		return fmt.Errorf("onReady hook failed: %w", err)
	}
	return nil
}

// WaitForSignal blocks until an OS interrupt/term signal or context cancellation.
func (a *App) WaitForSignal(ctx context.Context) os.Signal {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case sig := <-sigCh:
		a.Logger.Info("received shutdown signal", logger.Fields("signal", sig.String()))
		return sig
	case <-ctx.Done():
		a.Logger.Info("context canceled, shutting down")
		return nil
	}
}

// Shutdown runs OnStop hooks and stops all components within the graceful
// timeout.
func (a *App) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, a.gracefulTimeout)
	defer cancel()

	var errs []error
	if err := runHooks(ctx, a.onStop); err != nil {
		a.Logger.Error("onStop hook error", logger.Fields(logger.FieldError, err.Error()))
		errs = append(errs, err)
	}
	if err := a.Components.StopAll(ctx); err != nil {
		a.Logger.Error("shutdown completed with errors", logger.Fields(logger.FieldError, err.Error()))
		errs = append(errs, err)
	}

	a.Logger.Info("application shutdown complete")
	return stderrors.Join(errs...)
}
