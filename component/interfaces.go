package component

import "context"

// HealthStatus represents the health state of a component.
type HealthStatus string

const (
	StatusHealthy   HealthStatus = "healthy"
	StatusUnhealthy HealthStatus = "unhealthy"
	StatusDegraded  HealthStatus = "degraded"
)

// Health holds health information for a component.
type Health struct {
	Name    string       `json:"name"`
	Status  HealthStatus `json:"status"`
	Message string       `json:"message,omitempty"`
}

// Component is a lifecycle-managed part of the resilience layer: the
// degradation coordinator, the retry context sweeper, the offline store.
type Component interface {
	// Name returns the unique name of the component for registration.
	Name() string

	// Start initializes and starts the component.
	Start(ctx context.Context) error

	// Stop gracefully shuts down the component and releases resources.
	Stop(ctx context.Context) error

	// Health returns the current health status of the component.
	Health(ctx context.Context) Health
}

// Overall folds component results into one status. Any unhealthy component
// makes the whole unhealthy; otherwise any degraded one degrades it.
func Overall(results []Health) HealthStatus {
	status := StatusHealthy
	for _, h := range results {
		switch h.Status {
		case StatusUnhealthy:
			return StatusUnhealthy
		case StatusDegraded:
			status = StatusDegraded
		}
	}
	return status
}

// Func adapts plain start and stop functions into a Component. Nil
// functions are no-ops and a nil health function reports healthy.
type Func struct {
	ID       string
	OnStart  func(ctx context.Context) error
	OnStop   func(ctx context.Context) error
	OnHealth func(ctx context.Context) Health
}

// Name returns f.ID.
func (f *Func) Name() string { return f.ID }

// Start calls OnStart.
func (f *Func) Start(ctx context.Context) error {
	if f.OnStart == nil {
		return nil
	}
	return f.OnStart(ctx)
}

// Stop calls OnStop.
func (f *Func) Stop(ctx context.Context) error {
	if f.OnStop == nil {
		return nil
	}
	return f.OnStop(ctx)
}

// Health calls OnHealth.
func (f *Func) Health(ctx context.Context) Health {
	if f.OnHealth == nil {
		return Health{Name: f.ID, Status: StatusHealthy}
	}
	return f.OnHealth(ctx)
}
