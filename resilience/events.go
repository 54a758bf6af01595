package resilience

import (
	"time"

	"github.com/kbukum/failsafe/errors"
)

// Event is the closed set of notifications the retry engine and breaker
// registry publish. Switch on the concrete type to consume them.
type Event interface {
	// Name returns the stable event name, e.g. "attempt_failed".
	Name() string
	resilienceEvent()
}

// Retry events carry OperationID for correlation and Label for
// aggregation. Label is the OperationID the caller supplied, or the
// Category (UnnamedOperation without one) when the id was generated.

// AttemptStarted is published before each attempt runs.
type AttemptStarted struct {
	OperationID string
	Label       string
	Attempt     int
}

// AttemptFailed is published when an attempt returns an error.
type AttemptFailed struct {
	OperationID string
	Label       string
	Attempt     int
	Err         *errors.AppError
}

// AttemptSucceeded is published when an attempt returns a result.
type AttemptSucceeded struct {
	OperationID string
	Label       string
	Attempt     int
	Elapsed     time.Duration
}

// DelayStarted is published before the engine waits between attempts.
type DelayStarted struct {
	OperationID string
	Label       string
	Attempt     int
	Delay       time.Duration
}

// RetryExhausted is published when the engine gives up and surfaces Err.
type RetryExhausted struct {
	OperationID string
	Label       string
	Attempts    int
	Err         *errors.AppError
}

// CircuitOpened is published when a breaker starts failing fast.
type CircuitOpened struct {
	OperationID string
	Failures    int
}

// CircuitHalfOpened is published when an open breaker admits a trial call.
type CircuitHalfOpened struct {
	OperationID string
}

// CircuitClosed is published when a breaker returns to pass-through.
type CircuitClosed struct {
	OperationID string
}

func (AttemptStarted) Name() string    { return "attempt_started" }
func (AttemptFailed) Name() string     { return "attempt_failed" }
func (AttemptSucceeded) Name() string  { return "attempt_succeeded" }
func (DelayStarted) Name() string      { return "delay_started" }
func (RetryExhausted) Name() string    { return "retry_exhausted" }
func (CircuitOpened) Name() string     { return "circuit_opened" }
func (CircuitHalfOpened) Name() string { return "circuit_half_opened" }
func (CircuitClosed) Name() string     { return "circuit_closed" }

func (AttemptStarted) resilienceEvent()    {}
func (AttemptFailed) resilienceEvent()     {}
func (AttemptSucceeded) resilienceEvent()  {}
func (DelayStarted) resilienceEvent()      {}
func (RetryExhausted) resilienceEvent()    {}
func (CircuitOpened) resilienceEvent()     {}
func (CircuitHalfOpened) resilienceEvent() {}
func (CircuitClosed) resilienceEvent()     {}
