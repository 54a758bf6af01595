package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/kbukum/failsafe/errors"
	"github.com/kbukum/failsafe/logger"
	"github.com/kbukum/failsafe/resilience"
	"github.com/kbukum/failsafe/util"
	"github.com/kbukum/failsafe/validation"
)

const tracerName = "github.com/kbukum/failsafe/bridge"

// Handler serves one channel. Args arrive sanitised.
type Handler func(ctx context.Context, args []any) (any, error)

type registration struct {
	channel  string
	handler  Handler
	timeout  time.Duration
	retry    resilience.Options
	limited  bool
	sanitize bool
}

// HandlerOption tunes one registration.
type HandlerOption func(*registration)

// WithTimeout bounds the whole call, retries included.
func WithTimeout(d time.Duration) HandlerOption {
	return func(r *registration) { r.timeout = d }
}

// WithStrategy retries the handler with s.
func WithStrategy(s resilience.Strategy) HandlerOption {
	return func(r *registration) { r.retry.Strategy = &s }
}

// WithCategory retries the handler with the default strategy for c.
func WithCategory(c errors.Category) HandlerOption {
	return func(r *registration) { r.retry.Category = c }
}

// WithCircuitBreaker guards the channel with a breaker keyed by its name.
// A nil cfg uses the registry default.
func WithCircuitBreaker(cfg *resilience.BreakerConfig) HandlerOption {
	return func(r *registration) {
		r.retry.CircuitBreaker = true
		r.retry.Breaker = cfg
	}
}

// WithoutRateLimit exempts the channel from the per-channel rate limit.
func WithoutRateLimit() HandlerOption {
	return func(r *registration) { r.limited = false }
}

// WithRawArgs passes string arguments through unsanitised.
func WithRawArgs() HandlerOption {
	return func(r *registration) { r.sanitize = false }
}

// Bridge exposes handlers across the process boundary. Every failure it
// returns is an *errors.AppError ready for the envelope.
type Bridge struct {
	engine     *resilience.Engine
	errs       *errors.Manager
	limiter    *resilience.RateLimiter
	timeout    time.Duration
	maxPayload int64
	tracer     trace.Tracer
	log        *logger.Logger

	mu       sync.RWMutex
	handlers map[string]*registration
}

// Option configures a Bridge.
type Option func(*Bridge)

// WithTracer sets the tracer spans are started on.
func WithTracer(t trace.Tracer) Option {
	return func(b *Bridge) { b.tracer = t }
}

// WithLogger sets the logger.
func WithLogger(l *logger.Logger) Option {
	return func(b *Bridge) { b.log = l }
}

// WithRateLimiter replaces the limiter built from the config.
func WithRateLimiter(rl *resilience.RateLimiter) Option {
	return func(b *Bridge) { b.limiter = rl }
}

// New creates a bridge that runs handlers through engine. cfg supplies the
// default timeout, payload limit and rate limit.
func New(engine *resilience.Engine, cfg resilience.Config, opts ...Option) *Bridge {
	cfg.ApplyDefaults()
	b := &Bridge{
		engine:     engine,
		errs:       engine.Errors(),
		timeout:    cfg.DefaultTimeout,
		maxPayload: cfg.MaxPayloadBytes(),
		tracer:     otel.Tracer(tracerName),
		log:        logger.Nop(),
		handlers:   make(map[string]*registration),
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.limiter == nil {
		b.limiter = resilience.NewRateLimiter(cfg.RateLimit, nil)
	}
	b.log = b.log.WithComponent("bridge")
	engine.OnSweep(func() {
		if n := b.limiter.Prune(); n > 0 {
			b.log.Debug("pruned rate limit windows", logger.Fields("removed", n))
		}
	})
	return b
}

// Register adds a handler for channel.
func (b *Bridge) Register(channel string, h Handler, opts ...HandlerOption) error {
	if err := validation.New().
		Channel("channel", channel).
		Custom(h != nil, "handler", "is required").
		Validate(errors.WithComponent("bridge")); err != nil {
		return err
	}
	r := &registration{channel: channel, handler: h, timeout: b.timeout, limited: true, sanitize: true}
	for _, opt := range opts {
		opt(r)
	}
	r.retry.OperationID = channel
	r.retry.ErrorOptions = []errors.Option{errors.WithComponent("bridge"), errors.WithMetadata("channel", channel)}

	b.mu.Lock()
	defer b.mu.Unlock()
	if _, exists := b.handlers[channel]; exists {
		return b.errs.New(errors.CodeInvalidInput, fmt.Sprintf("channel %s already registered", channel), errors.WithComponent("bridge"))
	}
	b.handlers[channel] = r
	b.log.Debug("channel registered", logger.Fields(logger.FieldChannel, channel, "timeout", r.timeout.String()))
	return nil
}

// Channels lists the registered channels.
func (b *Bridge) Channels() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]string, 0, len(b.handlers))
	for ch := range b.handlers {
		out = append(out, ch)
	}
	return out
}

// Invoke calls the handler for channel. In order it checks the rate limit,
// sanitises string arguments, runs the handler through the retry engine
// under the channel timeout and validates the result, which must be non-nil
// and encode to at most the configured payload size.
func (b *Bridge) Invoke(ctx context.Context, channel string, args ...any) (json.RawMessage, error) {
	ctx, span := b.tracer.Start(ctx, "ipc "+channel,
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(attribute.String("ipc.channel", channel), attribute.Int("ipc.args", len(args))),
	)
	defer span.End()

	out, err := b.invoke(ctx, channel, args)
	if err != nil {
		appErr := b.errs.Classify(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, string(appErr.Code))
		span.SetAttributes(
			attribute.String("error.code", string(appErr.Code)),
			attribute.Bool("error.retryable", appErr.Retryable),
		)
		return nil, err
	}
	span.SetAttributes(attribute.Int("ipc.response_bytes", len(out)))
	span.SetStatus(codes.Ok, "")
	return out, nil
}

func (b *Bridge) invoke(ctx context.Context, channel string, args []any) (json.RawMessage, error) {
	b.mu.RLock()
	r, ok := b.handlers[channel]
	b.mu.RUnlock()
	if !ok {
		return nil, b.errs.Handle(b.errs.ChannelNotFound(channel))
	}

	if r.limited && !b.limiter.Allow(channel) {
		rl := b.limiter.Config()
		return nil, b.errs.Handle(b.errs.RateLimitExceeded(channel, rl.Limit, rl.Window, r.retry.ErrorOptions...))
	}

	if r.sanitize {
		clean := make([]any, len(args))
		for i, a := range args {
			if str, ok := a.(string); ok && !util.IsSafeString(str) {
				b.log.Warn("stripped unsafe content from argument", logger.Fields(logger.FieldChannel, channel, "index", i))
			}
			clean[i] = util.SanitizeValue(a)
		}
		args = clean
	}

	result, err := b.race(ctx, r, args)
	if err != nil {
		return nil, err
	}

	raw, err := b.validate(result)
	if err != nil {
		return nil, b.errs.Handle(err, r.retry.ErrorOptions...)
	}
	return raw, nil
}

type outcome struct {
	value any
	err   error
}

// race runs the handler through the engine and returns whichever settles
// first: the call or the channel timeout.
func (b *Bridge) race(ctx context.Context, r *registration, args []any) (any, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				b.log.Error("handler panicked", logger.Fields(logger.FieldChannel, r.channel, logger.FieldError, fmt.Sprint(rec)))
				done <- outcome{err: b.errs.Handle(b.errs.UnknownError(fmt.Errorf("panic in %s: %v", r.channel, rec), r.retry.ErrorOptions...))}
			}
		}()
		v, err := resilience.Execute(ctx, b.engine, func(ctx context.Context) (any, error) {
			return r.handler(ctx, args)
		}, r.retry)
		done <- outcome{v, err}
	}()

	select {
	case o := <-done:
		return o.value, o.err
	case <-ctx.Done():
		b.log.Warn("channel timed out", logger.Fields(logger.FieldChannel, r.channel, logger.FieldDuration, r.timeout.Milliseconds()))
		return nil, b.errs.Handle(b.errs.OperationTimeout(r.channel, r.timeout, r.retry.ErrorOptions...))
	}
}

func (b *Bridge) validate(result any) (json.RawMessage, error) {
	if result == nil {
		return nil, fmt.Errorf("handler returned no result")
	}
	raw, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("response could not be encoded: %w", err)
	}
	if string(raw) == "null" {
		return nil, fmt.Errorf("handler returned no result")
	}
	if b.maxPayload > 0 && int64(len(raw)) > b.maxPayload {
		return nil, fmt.Errorf("response of %s exceeds the %s limit", util.FormatSize(int64(len(raw))), util.FormatSize(b.maxPayload))
	}
	return raw, nil
}

// InvokeEnvelope is Invoke with the result wrapped in the wire envelope.
func (b *Bridge) InvokeEnvelope(ctx context.Context, channel string, args ...any) errors.Envelope {
	raw, err := b.Invoke(ctx, channel, args...)
	if err != nil {
		return errors.ToEnvelope(b.errs.Classify(err))
	}
	return errors.Envelope{Success: true, Data: raw}
}
