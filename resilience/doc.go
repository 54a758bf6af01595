// Package resilience retries transient failures and fails fast on
// dependencies that keep failing.
//
// The Engine resolves a Strategy per call (explicit, then per category,
// then the configured default), runs attempts one after another with
// exponential backoff and symmetric jitter, and classifies every failure
// into an *errors.AppError. A Registry keeps one CircuitBreaker per
// operation id; breakers move from Open to Half-Open lazily on the next
// call once the recovery timeout has passed. RateLimiter counts calls per
// key in fixed windows.
//
//	engine := resilience.NewEngine(cfg.Resilience, errs)
//	msg, err := resilience.Execute(ctx, engine, fetchInbox, resilience.Options{
//	    OperationID:    "mail:fetch",
//	    Category:       errors.CategoryNetwork,
//	    CircuitBreaker: true,
//	})
//
// Engine and breaker activity is published as Event values on
// Engine.Events.
package resilience
