package degradation

import (
	"context"
	"sync"
	"time"

	"github.com/kbukum/failsafe/clock"
	"github.com/kbukum/failsafe/component"
	"github.com/kbukum/failsafe/errors"
	"github.com/kbukum/failsafe/events"
	"github.com/kbukum/failsafe/logger"
	"github.com/kbukum/failsafe/offline"
)

// Coordinator probes capabilities on an interval, keeps the latest State
// and replays the offline queue when the client recovers.
type Coordinator struct {
	caps     []Capability
	byName   map[string]Capability
	interval time.Duration
	replay   bool

	probe   Probe
	cache   *offline.Cache
	queue   *offline.Queue
	deliver offline.DeliverFunc
	bus     *events.Bus[Event]
	errs    *errors.Manager
	clock   clock.Clock
	log     *logger.Logger

	assessMu sync.Mutex
	mu       sync.RWMutex
	state    State

	runMu  sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithProbe sets the health probe. The default reports everything up.
func WithProbe(p Probe) Option {
	return func(c *Coordinator) { c.probe = p }
}

// WithCache enables cache fallbacks for Read.
func WithCache(cache *offline.Cache) Option {
	return func(c *Coordinator) { c.cache = cache }
}

// WithQueue enables queueing in Write and replay on restoration through
// deliver.
func WithQueue(q *offline.Queue, deliver offline.DeliverFunc) Option {
	return func(c *Coordinator) {
		c.queue = q
		c.deliver = deliver
	}
}

// WithEventBus sets the bus events are published on.
func WithEventBus(bus *events.Bus[Event]) Option {
	return func(c *Coordinator) { c.bus = bus }
}

// WithErrors sets the manager failures are classified through.
func WithErrors(m *errors.Manager) Option {
	return func(c *Coordinator) { c.errs = m }
}

// WithClock sets the clock.
func WithClock(clk clock.Clock) Option {
	return func(c *Coordinator) { c.clock = clk }
}

// WithLogger sets the logger.
func WithLogger(l *logger.Logger) Option {
	return func(c *Coordinator) { c.log = l }
}

// NewCoordinator creates a coordinator for cfg. Until the first assessment
// every capability is assumed available.
func NewCoordinator(cfg Config, opts ...Option) *Coordinator {
	cfg.ApplyDefaults()
	c := &Coordinator{
		caps:     cfg.Capabilities,
		byName:   make(map[string]Capability, len(cfg.Capabilities)),
		interval: cfg.Interval,
		replay:   !cfg.DisableReplay,
		probe:    AlwaysAvailable,
		clock:    clock.New(),
		log:      logger.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.bus == nil {
		c.bus = events.NewBus[Event]()
	}
	if c.errs == nil {
		c.errs = errors.NewManager(nil, errors.WithLogger(c.log))
	}
	c.log = c.log.WithComponent("degradation")

	services := make(map[string]ServiceStatus, len(c.caps))
	for _, cp := range c.caps {
		c.byName[cp.Name] = cp
		services[cp.Name] = ServiceStatus{Available: true}
	}
	c.state = buildState(c.caps, services, c.clock.Now())
	return c
}

// Events returns the coordinator's event bus.
func (c *Coordinator) Events() *events.Bus[Event] { return c.bus }

// Capabilities returns the capability table.
func (c *Coordinator) Capabilities() []Capability {
	return append([]Capability(nil), c.caps...)
}

// Capability looks up a capability by name.
func (c *Coordinator) Capability(name string) (Capability, bool) {
	cp, ok := c.byName[name]
	return cp, ok
}

// Assess probes every capability once, replaces the current state and
// publishes a ChangeEvent when the level moved. Moving into NONE from any
// other level replays the offline queue before Assess returns.
func (c *Coordinator) Assess(ctx context.Context) State {
	c.assessMu.Lock()
	defer c.assessMu.Unlock()

	now := c.clock.Now()
	services := make(map[string]ServiceStatus, len(c.caps))
	for _, cp := range c.caps {
		services[cp.Name] = c.check(ctx, cp, now)
	}
	next := buildState(c.caps, services, now)

	c.mu.Lock()
	prev := c.state
	c.state = next
	c.mu.Unlock()

	if prev.Level != next.Level {
		fields := logger.Fields("from", prev.Level.String(), logger.FieldLevel, next.Level.String(), "limitations", len(next.Limitations))
		if next.Level > prev.Level {
			c.log.Warn("degradation level changed", fields)
		} else {
			c.log.Info("degradation level changed", fields)
		}
		c.bus.Publish(ChangeEvent{Previous: prev.Level, Current: next.Level, State: next.clone()})

		if next.Level == LevelNone {
			c.replayQueue(ctx)
		}
	}
	return next.clone()
}

func (c *Coordinator) check(ctx context.Context, cp Capability, now time.Time) ServiceStatus {
	r := c.probe.Check(ctx, cp)
	st := ServiceStatus{Available: r.Available && r.Err == nil, Degraded: r.Degraded, LastCheck: now}
	if r.Err != nil {
		st.LastError = c.errs.Classify(r.Err, errors.WithService(cp.Name)).Error()
	}
	if !st.Available {
		st.FallbackActive = cp.Fallback != FallbackNone && cp.Fallback != ""
	}
	return st
}

func (c *Coordinator) replayQueue(ctx context.Context) {
	if !c.replay || c.queue == nil || c.deliver == nil {
		return
	}
	res, err := c.queue.Process(ctx, c.deliver)
	if err != nil {
		c.log.Error("queue replay failed", logger.ErrorFields("replay", err))
	}
	c.bus.Publish(ReplayCompleted{Result: res, Err: err})
}

// State returns a copy of the latest assessment.
func (c *Coordinator) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state.clone()
}

// Level returns the latest level.
func (c *Coordinator) Level() Level {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state.Level
}

// IsServiceAvailable reports whether service was up at the last
// assessment. Services outside the capability table are always available.
func (c *Coordinator) IsServiceAvailable(service string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.state.Services[service]
	return !ok || s.Available
}

// IsFallbackActive reports whether service is down and covered by a fallback.
func (c *Coordinator) IsFallbackActive(service string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state.Services[service].FallbackActive
}

// Name implements component.Component.
func (c *Coordinator) Name() string { return "degradation" }

// Start assesses once and then keeps assessing every interval until Stop.
func (c *Coordinator) Start(ctx context.Context) error {
	c.runMu.Lock()
	defer c.runMu.Unlock()
	if c.cancel != nil {
		return nil
	}

	c.Assess(ctx)

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	c.cancel = cancel
	c.done = make(chan struct{})
	go c.run(runCtx, c.done)

	c.log.Info("degradation monitor started", logger.Fields("interval", c.interval.String(), "capabilities", len(c.caps)))
	return nil
}

func (c *Coordinator) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.clock.After(c.interval):
			c.Assess(ctx)
		}
	}
}

// Stop ends periodic assessment.
func (c *Coordinator) Stop(ctx context.Context) error {
	c.runMu.Lock()
	cancel, done := c.cancel, c.done
	c.cancel, c.done = nil, nil
	c.runMu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Health maps the level onto component health.
func (c *Coordinator) Health(_ context.Context) component.Health {
	level := c.Level()
	h := component.Health{Name: c.Name(), Status: component.StatusHealthy}
	switch level {
	case LevelPartial, LevelOffline:
		h.Status = component.StatusDegraded
		h.Message = level.String()
	case LevelCritical:
		h.Status = component.StatusUnhealthy
		h.Message = level.String()
	}
	return h
}
