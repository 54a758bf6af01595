package errors

import (
	"sync"

	"github.com/kbukum/failsafe/events"
	"github.com/kbukum/failsafe/logger"
)

// DefaultHistoryCapacity bounds the number of errors a Manager remembers.
const DefaultHistoryCapacity = 1000

// ErrorEvent is published for every error a Manager handles.
type ErrorEvent struct {
	Error *AppError
}

// Stats summarises the retained history.
type Stats struct {
	Total      int              `json:"total"`
	ByCategory map[Category]int `json:"byCategory"`
	BySeverity map[Severity]int `json:"bySeverity"`
}

// Manager classifies, records and announces errors. It is the single
// entry point components use to surface a failure.
type Manager struct {
	*Factory

	mu       sync.Mutex
	history  []*AppError
	capacity int
	bus      *events.Bus[ErrorEvent]
	log      *logger.Logger
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithLogger sets the logger used for technical details.
func WithLogger(l *logger.Logger) ManagerOption {
	return func(m *Manager) { m.log = l }
}

// WithBus publishes error events on bus instead of a private one.
func WithBus(bus *events.Bus[ErrorEvent]) ManagerOption {
	return func(m *Manager) { m.bus = bus }
}

// WithHistoryCapacity overrides DefaultHistoryCapacity.
func WithHistoryCapacity(n int) ManagerOption {
	return func(m *Manager) {
		if n > 0 {
			m.capacity = n
		}
	}
}

// NewManager creates a Manager building errors with f.
func NewManager(f *Factory, opts ...ManagerOption) *Manager {
	if f == nil {
		f = NewFactory(DefaultMaxRetries)
	}
	m := &Manager{
		Factory:  f,
		capacity: DefaultHistoryCapacity,
		bus:      events.NewBus[ErrorEvent](),
		log:      logger.Nop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.log = m.log.WithComponent("errors")
	return m
}

// Events returns the bus error events are published on.
func (m *Manager) Events() *events.Bus[ErrorEvent] { return m.bus }

// Handle classifies err, records it and notifies subscribers.
func (m *Manager) Handle(err error, opts ...Option) *AppError {
	appErr := m.Classify(err, opts...)
	if appErr == nil {
		return nil
	}

	m.mu.Lock()
	m.history = append(m.history, appErr)
	if over := len(m.history) - m.capacity; over > 0 {
		m.history = append(m.history[:0:0], m.history[over:]...)
	}
	m.mu.Unlock()

	fields := logger.Fields(
		logger.FieldErrorID, appErr.ID,
		logger.FieldErrorCode, string(appErr.Code),
		logger.FieldCategory, string(appErr.Category),
		logger.FieldSeverity, string(appErr.Severity),
	)
	if appErr.Context.Operation != "" {
		fields[logger.FieldOperation] = appErr.Context.Operation
	}
	if appErr.Cause != nil {
		fields[logger.FieldError] = appErr.Cause.Error()
	}
	if appErr.Severity.Persistent() {
		m.log.Error(appErr.TechnicalMessage, fields)
	} else {
		m.log.Warn(appErr.TechnicalMessage, fields)
	}

	m.bus.Publish(ErrorEvent{Error: appErr})
	return appErr
}

// History returns the retained errors, oldest first.
func (m *Manager) History() []*AppError {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*AppError, len(m.history))
	copy(out, m.history)
	return out
}

// Stats counts the retained errors by category and severity.
func (m *Manager) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := Stats{
		Total:      len(m.history),
		ByCategory: make(map[Category]int),
		BySeverity: make(map[Severity]int),
	}
	for _, e := range m.history {
		s.ByCategory[e.Category]++
		s.BySeverity[e.Severity]++
	}
	return s
}

// Clear drops the retained history.
func (m *Manager) Clear() {
	m.mu.Lock()
	m.history = nil
	m.mu.Unlock()
}
