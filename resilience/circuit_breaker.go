package resilience

import (
	"sync"
	"time"

	"github.com/kbukum/failsafe/clock"
	"github.com/kbukum/failsafe/events"
	"github.com/kbukum/failsafe/logger"
)

// State represents the circuit breaker state.
type State int

const (
	// StateClosed allows requests to pass through.
	StateClosed State = iota
	// StateOpen blocks all requests.
	StateOpen
	// StateHalfOpen lets calls through to test recovery.
	StateHalfOpen
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "CLOSED"
	case StateOpen:
		return "OPEN"
	case StateHalfOpen:
		return "HALF_OPEN"
	default:
		return "UNKNOWN"
	}
}

// BreakerConfig configures a circuit breaker.
type BreakerConfig struct {
	// FailureThreshold is the number of failures that opens the circuit.
	FailureThreshold int `mapstructure:"failure_threshold" validate:"min=1"`
	// RecoveryTimeout is how long the circuit stays open after the last failure.
	RecoveryTimeout time.Duration `mapstructure:"recovery_timeout" validate:"gt=0"`
}

// DefaultBreakerConfig returns the registry defaults.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		FailureThreshold: 5,
		RecoveryTimeout:  60 * time.Second,
	}
}

// ApplyDefaults fills zero values.
func (c *BreakerConfig) ApplyDefaults() {
	d := DefaultBreakerConfig()
	if c.FailureThreshold <= 0 {
		c.FailureThreshold = d.FailureThreshold
	}
	if c.RecoveryTimeout <= 0 {
		c.RecoveryTimeout = d.RecoveryTimeout
	}
}

// BreakerSnapshot is a point-in-time view of one breaker.
type BreakerSnapshot struct {
	OperationID string    `json:"operationId"`
	State       string    `json:"state"`
	Failures    int       `json:"failures"`
	LastFailure time.Time `json:"lastFailure,omitempty"`
	// Admits is false only while the breaker is open and still cooling down.
	Admits bool `json:"admits"`
}

// CircuitBreaker fails fast once an operation keeps failing.
//
// States:
//   - Closed: calls pass through; failures are counted
//   - Open: calls fail immediately until RecoveryTimeout has passed since the last failure
//   - Half-Open: calls pass through; the first success closes, a failure reopens
//
// The Open to Half-Open transition is evaluated lazily when the next call
// arrives; no timer runs in the background.
type CircuitBreaker struct {
	id     string
	config BreakerConfig
	clock  clock.Clock

	mu          sync.Mutex
	state       State
	failures    int
	lastFailure time.Time

	onStateChange func(id string, from, to State, failures int)
}

// NewCircuitBreaker creates a standalone breaker.
func NewCircuitBreaker(id string, config BreakerConfig, clk clock.Clock) *CircuitBreaker {
	config.ApplyDefaults()
	if clk == nil {
		clk = clock.New()
	}
	return &CircuitBreaker{
		id:     id,
		config: config,
		clock:  clk,
		state:  StateClosed,
	}
}

// Allow reports whether a call may proceed, moving an expired Open
// breaker to Half-Open.
func (cb *CircuitBreaker) Allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.currentState() != StateOpen
}

// RecordSuccess clears the failure count and closes a Half-Open breaker.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures = 0
	if cb.currentState() == StateHalfOpen {
		cb.toState(StateClosed)
	}
}

// RecordFailure counts a failure, opening the breaker at the threshold or
// immediately when Half-Open.
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures++
	cb.lastFailure = cb.clock.Now()

	switch cb.state {
	case StateClosed:
		if cb.failures >= cb.config.FailureThreshold {
			cb.toState(StateOpen)
		}
	case StateHalfOpen:
		cb.toState(StateOpen)
	}
}

// State returns the current state, applying the lazy timeout transition.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.currentState()
}

// Failures returns the current failure count.
func (cb *CircuitBreaker) Failures() int {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.failures
}

// Snapshot returns the breaker's state without triggering transitions.
func (cb *CircuitBreaker) Snapshot() BreakerSnapshot {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return BreakerSnapshot{
		OperationID: cb.id,
		State:       cb.state.String(),
		Failures:    cb.failures,
		LastFailure: cb.lastFailure,
		Admits:      cb.state != StateOpen || cb.clock.Now().Sub(cb.lastFailure) >= cb.config.RecoveryTimeout,
	}
}

// currentState returns the current state, handling timeout transitions.
func (cb *CircuitBreaker) currentState() State {
	if cb.state == StateOpen && cb.clock.Now().Sub(cb.lastFailure) >= cb.config.RecoveryTimeout {
		cb.toState(StateHalfOpen)
	}
	return cb.state
}

// toState transitions to a new state.
func (cb *CircuitBreaker) toState(to State) {
	if cb.state == to {
		return
	}
	from := cb.state
	cb.state = to
	if to == StateClosed {
		cb.failures = 0
	}
	if cb.onStateChange != nil {
		cb.onStateChange(cb.id, from, to, cb.failures)
	}
}

// Registry holds one breaker per operation id. Breakers are created on
// first use and removed only by Reset.
type Registry struct {
	config BreakerConfig
	clock  clock.Clock
	bus    *events.Bus[Event]
	log    *logger.Logger

	mu       sync.Mutex
	breakers map[string]*CircuitBreaker
}

// NewRegistry creates a registry whose breakers default to config.
func NewRegistry(config BreakerConfig, clk clock.Clock, bus *events.Bus[Event], log *logger.Logger) *Registry {
	config.ApplyDefaults()
	if clk == nil {
		clk = clock.New()
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Registry{
		config:   config,
		clock:    clk,
		bus:      bus,
		log:      log.WithComponent("circuit-breaker"),
		breakers: make(map[string]*CircuitBreaker),
	}
}

// Get returns the breaker for id, creating it with override (or the
// registry default) on first use. Later overrides are ignored.
func (r *Registry) Get(id string, override *BreakerConfig) *CircuitBreaker {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cb, ok := r.breakers[id]; ok {
		return cb
	}
	cfg := r.config
	if override != nil {
		cfg = *override
	}
	cb := NewCircuitBreaker(id, cfg, r.clock)
	cb.onStateChange = r.publish
	r.breakers[id] = cb
	return cb
}

// States returns a snapshot of every breaker.
func (r *Registry) States() map[string]BreakerSnapshot {
	r.mu.Lock()
	breakers := make([]*CircuitBreaker, 0, len(r.breakers))
	for _, cb := range r.breakers {
		breakers = append(breakers, cb)
	}
	r.mu.Unlock()

	out := make(map[string]BreakerSnapshot, len(breakers))
	for _, cb := range breakers {
		out[cb.id] = cb.Snapshot()
	}
	return out
}

// Reset discards the breaker for id.
func (r *Registry) Reset(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.breakers, id)
}

// publish runs under the breaker's lock; subscribers must not call back
// into the same breaker.
func (r *Registry) publish(id string, from, to State, failures int) {
	fields := logger.Fields(logger.FieldOperationID, id, "from", from.String(), logger.FieldState, to.String())
	switch to {
	case StateOpen:
		r.log.Warn("circuit opened", fields)
		r.bus.Publish(CircuitOpened{OperationID: id, Failures: failures})
	case StateHalfOpen:
		r.log.Info("circuit half-open", fields)
		r.bus.Publish(CircuitHalfOpened{OperationID: id})
	case StateClosed:
		r.log.Info("circuit closed", fields)
		r.bus.Publish(CircuitClosed{OperationID: id})
	}
}
