package degradation

import (
	"context"
	"encoding/json"

	"github.com/kbukum/failsafe/errors"
	"github.com/kbukum/failsafe/logger"
	"github.com/kbukum/failsafe/offline"
)

// SourceLive tags results fetched from the service itself.
const SourceLive = "live"

// Write statuses.
const (
	StatusSent   = "sent"
	StatusQueued = offline.StatusQueued
)

// WriteResult is the outcome of Write.
type WriteResult struct {
	ID     string `json:"id,omitempty"`
	Status string `json:"status"`
}

// Read fetches live data for service and writes it through to the cache.
// While the service is down, or when a live fetch fails and the service
// has a cache fallback, the cached payload is returned instead.
func (c *Coordinator) Read(ctx context.Context, service string, fetch func(context.Context) (any, error)) (offline.FallbackResult, error) {
	cp, known := c.byName[service]
	cached := c.cache != nil && (!known || cp.Fallback.UsesCache())

	if !c.IsServiceAvailable(service) && cached {
		return c.cache.Fallback(ctx, service), nil
	}

	data, err := fetch(ctx)
	if err != nil {
		appErr := c.errs.Handle(err, errors.WithService(service), errors.WithComponent("degradation"))
		if cached {
			if res := c.cache.Fallback(ctx, service); res.Found {
				return res, nil
			}
		}
		return offline.FallbackResult{}, appErr
	}

	raw, err := json.Marshal(data)
	if err != nil {
		return offline.FallbackResult{}, c.errs.Handle(c.errs.New(errors.CodeSerializationFailed, err.Error(), errors.WithCause(err)))
	}
	if cached {
		if err := c.cache.Put(ctx, service, json.RawMessage(raw)); err != nil {
			c.log.Warn("cache write-through failed", logger.ErrorFields(service, err))
		}
	}
	return offline.FallbackResult{Source: SourceLive, Found: true, Data: raw, Timestamp: c.clock.Now().UTC()}, nil
}

// Write sends an operation to service. While the service is down, or when
// sending fails with a retryable error, services with a queue fallback get
// the operation queued and a correlation id back instead of an error.
func (c *Coordinator) Write(ctx context.Context, service, operation string, payload any, send func(context.Context) error) (WriteResult, error) {
	cp, known := c.byName[service]
	queued := c.queue != nil && known && cp.Fallback.UsesQueue()

	if !c.IsServiceAvailable(service) {
		if queued {
			return c.enqueue(ctx, service, operation, payload)
		}
		return WriteResult{}, c.errs.Handle(c.errs.ServiceUnavailable(service, errors.WithOperation(operation)))
	}

	if err := send(ctx); err != nil {
		appErr := c.errs.Handle(err, errors.WithService(service), errors.WithOperation(operation))
		if queued && appErr.Retryable {
			return c.enqueue(ctx, service, operation, payload)
		}
		return WriteResult{}, appErr
	}
	return WriteResult{Status: StatusSent}, nil
}

func (c *Coordinator) enqueue(ctx context.Context, service, operation string, payload any) (WriteResult, error) {
	res, err := c.queue.Enqueue(ctx, service, operation, payload)
	if err != nil {
		return WriteResult{}, c.errs.Handle(err)
	}
	return WriteResult{ID: res.ID, Status: res.Status}, nil
}
