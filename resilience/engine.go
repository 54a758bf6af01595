package resilience

import (
	"context"
	"math/rand"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kbukum/failsafe/clock"
	"github.com/kbukum/failsafe/errors"
	"github.com/kbukum/failsafe/events"
	"github.com/kbukum/failsafe/logger"
)

// Sweep defaults for abandoned retry bookkeeping.
const (
	DefaultSweepInterval = 5 * time.Minute
	DefaultMaxContextAge = 30 * time.Minute
)

// UnnamedOperation is the event label for calls with neither an
// OperationID nor a Category.
const UnnamedOperation = "unnamed"

// Options tune a single Execute call.
type Options struct {
	// OperationID keys the breaker and the retry context. Generated when
	// empty, in which case no breaker is used and events are labelled with
	// the Category.
	OperationID string
	// Strategy overrides every default.
	Strategy *Strategy
	// Category selects a category default when Strategy is nil.
	Category errors.Category
	// CircuitBreaker guards the call with the breaker for OperationID.
	CircuitBreaker bool
	// Breaker configures the breaker when it is first created.
	Breaker *BreakerConfig
	// ErrorOptions annotate errors classified during the call.
	ErrorOptions []errors.Option
}

// RetryContext is the bookkeeping for one in-flight Execute call.
type RetryContext struct {
	OperationID string
	Attempt     int
	LastError   *errors.AppError
	StartTime   time.Time
	Delays      []time.Duration
}

// Engine retries operations according to per-call, per-category or default
// strategies, optionally behind a circuit breaker.
type Engine struct {
	errs       *errors.Manager
	breakers   *Registry
	clock      clock.Clock
	rand       func() float64
	bus        *events.Bus[Event]
	log        *logger.Logger
	defaults   Strategy
	categories map[errors.Category]Strategy

	sweepInterval time.Duration
	maxContextAge time.Duration

	mu         sync.Mutex
	contexts   map[*RetryContext]struct{}
	sweepHooks []func()
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithClock sets the time source for delays and breakers.
func WithClock(c clock.Clock) EngineOption {
	return func(e *Engine) { e.clock = c }
}

// WithRand sets the jitter source; it must return values in [0, 1).
func WithRand(r func() float64) EngineOption {
	return func(e *Engine) { e.rand = r }
}

// WithEventBus publishes engine and breaker events on bus.
func WithEventBus(bus *events.Bus[Event]) EngineOption {
	return func(e *Engine) { e.bus = bus }
}

// WithLogger sets the engine logger.
func WithLogger(l *logger.Logger) EngineOption {
	return func(e *Engine) { e.log = l }
}

// WithRegistry shares an existing breaker registry.
func WithRegistry(r *Registry) EngineOption {
	return func(e *Engine) { e.breakers = r }
}

// WithCategoryStrategy overrides the default strategy for one category.
func WithCategoryStrategy(c errors.Category, s Strategy) EngineOption {
	return func(e *Engine) { e.categories[c] = s }
}

// WithSweep overrides the sweep interval and the age at which retry
// contexts are discarded.
func WithSweep(interval, maxAge time.Duration) EngineOption {
	return func(e *Engine) {
		e.sweepInterval = interval
		e.maxContextAge = maxAge
	}
}

// NewEngine builds an engine from cfg. Errors are classified and recorded
// through errs.
func NewEngine(cfg Config, errs *errors.Manager, opts ...EngineOption) *Engine {
	cfg.ApplyDefaults()
	e := &Engine{
		errs:          errs,
		clock:         clock.New(),
		rand:          rand.Float64,
		bus:           events.NewBus[Event](),
		log:           logger.Nop(),
		defaults:      cfg.DefaultStrategy(),
		categories:    DefaultCategoryStrategies(),
		sweepInterval: DefaultSweepInterval,
		maxContextAge: DefaultMaxContextAge,
		contexts:      make(map[*RetryContext]struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.errs == nil {
		e.errs = errors.NewManager(errors.NewFactory(cfg.MaxRetryAttempts))
	}
	e.log = e.log.WithComponent("retry")
	if e.breakers == nil {
		e.breakers = NewRegistry(cfg.Breaker, e.clock, e.bus, e.log)
	}
	return e
}

// Events returns the bus engine and breaker events are published on.
func (e *Engine) Events() *events.Bus[Event] { return e.bus }

// Breakers returns the engine's breaker registry.
func (e *Engine) Breakers() *Registry { return e.breakers }

// Errors returns the manager errors are classified through.
func (e *Engine) Errors() *errors.Manager { return e.errs }

// Resolve returns the strategy Execute would use for opts.
func (e *Engine) Resolve(opts Options) Strategy {
	if opts.Strategy != nil {
		return *opts.Strategy
	}
	if s, ok := e.categories[opts.Category]; ok {
		return s
	}
	return e.defaults
}

// Execute runs fn until it succeeds, fails with an error the strategy will
// not retry, or runs out of attempts. Attempts are strictly sequential.
// The returned error is always an *errors.AppError.
//
// Cancelling ctx ends the call at the next attempt boundary or delay.
func Execute[T any](ctx context.Context, e *Engine, fn func(context.Context) (T, error), opts Options) (T, error) {
	var zero T

	label := opts.OperationID
	generated := label == ""
	if generated {
		opts.OperationID = uuid.NewString()
		label = UnnamedOperation
		if opts.Category != "" {
			label = string(opts.Category)
		}
	}
	strategy := e.Resolve(opts)
	errOpts := append([]errors.Option{errors.WithOperation(opts.OperationID)}, opts.ErrorOptions...)

	var cb *CircuitBreaker
	if opts.CircuitBreaker && generated {
		e.log.Debug("circuit breaker skipped for a call without an operation id", logger.Fields(logger.FieldOperationID, opts.OperationID))
	}
	if opts.CircuitBreaker && !generated {
		cb = e.breakers.Get(opts.OperationID, opts.Breaker)
		if !cb.Allow() {
			return zero, e.errs.Handle(e.errs.CircuitOpen(opts.OperationID, errOpts...))
		}
	}

	rc := e.track(opts.OperationID)
	defer e.untrack(rc)

	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, e.cancelled(ctx, rc, opts.OperationID, label, errOpts)
		}

		e.update(rc, func() { rc.Attempt = attempt })
		e.bus.Publish(AttemptStarted{OperationID: opts.OperationID, Label: label, Attempt: attempt})

		result, err := fn(ctx)
		if err == nil {
			if cb != nil {
				cb.RecordSuccess()
			}
			e.bus.Publish(AttemptSucceeded{
				OperationID: opts.OperationID,
				Label:       label,
				Attempt:     attempt,
				Elapsed:     e.clock.Now().Sub(rc.StartTime),
			})
			return result, nil
		}

		appErr := e.errs.Handle(err, errOpts...)
		e.update(rc, func() { rc.LastError = appErr })
		e.bus.Publish(AttemptFailed{OperationID: opts.OperationID, Label: label, Attempt: attempt, Err: appErr})

		if !strategy.ShouldRetry(attempt, appErr) {
			if cb != nil {
				cb.RecordFailure()
			}
			recordRetries(appErr, attempt-1)
			e.log.Warn("giving up", logger.Fields(
				logger.FieldOperationID, opts.OperationID,
				logger.FieldAttempt, attempt,
				logger.FieldErrorCode, string(appErr.Code),
			))
			e.bus.Publish(RetryExhausted{OperationID: opts.OperationID, Label: label, Attempts: attempt, Err: appErr})
			return zero, appErr
		}

		delay := strategy.DelayFor(attempt, e.rand())
		e.update(rc, func() { rc.Delays = append(rc.Delays, delay) })
		e.log.Debug("retrying", logger.Fields(
			logger.FieldOperationID, opts.OperationID,
			logger.FieldAttempt, attempt,
			logger.FieldDelay, delay.Milliseconds(),
			logger.FieldErrorCode, string(appErr.Code),
		))
		e.bus.Publish(DelayStarted{OperationID: opts.OperationID, Label: label, Attempt: attempt, Delay: delay})

		select {
		case <-ctx.Done():
			return zero, e.cancelled(ctx, rc, opts.OperationID, label, errOpts)
		case <-e.clock.After(delay):
		}
	}
}

// Do is Execute for operations without a result.
func (e *Engine) Do(ctx context.Context, fn func(context.Context) error, opts Options) error {
	_, err := Execute(ctx, e, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	}, opts)
	return err
}

// recordRetries brings the error's retry count up to n, within its budget.
func recordRetries(appErr *errors.AppError, n int) {
	for appErr.RetryCount < n {
		if appErr.Retry() != nil {
			return
		}
	}
}

func (e *Engine) cancelled(ctx context.Context, rc *RetryContext, opID, label string, errOpts []errors.Option) *errors.AppError {
	elapsed := e.clock.Now().Sub(rc.StartTime)
	appErr := e.errs.Handle(e.errs.OperationTimeout(opID, elapsed,
		append([]errors.Option{errors.WithCause(ctx.Err())}, errOpts...)...))
	e.bus.Publish(RetryExhausted{OperationID: opID, Label: label, Attempts: rc.Attempt, Err: appErr})
	return appErr
}

func (e *Engine) track(opID string) *RetryContext {
	rc := &RetryContext{OperationID: opID, StartTime: e.clock.Now()}
	e.mu.Lock()
	e.contexts[rc] = struct{}{}
	e.mu.Unlock()
	return rc
}

func (e *Engine) untrack(rc *RetryContext) {
	e.mu.Lock()
	delete(e.contexts, rc)
	e.mu.Unlock()
}

func (e *Engine) update(rc *RetryContext, fn func()) {
	e.mu.Lock()
	fn()
	e.mu.Unlock()
}

// ActiveContexts returns copies of the tracked retry contexts.
func (e *Engine) ActiveContexts() []RetryContext {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]RetryContext, 0, len(e.contexts))
	for rc := range e.contexts {
		c := *rc
		c.Delays = append([]time.Duration(nil), rc.Delays...)
		out = append(out, c)
	}
	return out
}

// Sweep discards retry contexts started more than the max age ago and
// returns how many were removed.
func (e *Engine) Sweep() int {
	cutoff := e.clock.Now().Add(-e.maxContextAge)
	e.mu.Lock()
	defer e.mu.Unlock()
	removed := 0
	for rc := range e.contexts {
		if rc.StartTime.Before(cutoff) {
			delete(e.contexts, rc)
			removed++
		}
	}
	return removed
}

// OnSweep adds fn to the work run on every sweeper tick.
func (e *Engine) OnSweep(fn func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sweepHooks = append(e.sweepHooks, fn)
}

// StartSweeper runs Sweep and the OnSweep hooks every sweep interval until
// ctx is done.
func (e *Engine) StartSweeper(ctx context.Context) {
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-e.clock.After(e.sweepInterval):
				e.tick()
			}
		}
	}()
}

func (e *Engine) tick() {
	if n := e.Sweep(); n > 0 {
		e.log.Debug("swept retry contexts", logger.Fields("removed", n))
	}
	e.mu.Lock()
	hooks := slices.Clone(e.sweepHooks)
	e.mu.Unlock()
	for _, fn := range hooks {
		fn()
	}
}
