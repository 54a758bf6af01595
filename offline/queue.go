package offline

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kbukum/failsafe/clock"
	"github.com/kbukum/failsafe/errors"
	"github.com/kbukum/failsafe/logger"
	"github.com/kbukum/failsafe/validation"
)

// QueuePrefix namespaces queued operations.
const QueuePrefix = "queue:"

// Operation statuses.
const (
	StatusQueued      = "queued"
	StatusPendingSync = "pending_sync"
)

// Operation is a write that could not reach its destination.
type Operation struct {
	ID       string          `json:"id"`
	Service  string          `json:"service"`
	Name     string          `json:"operation"`
	Payload  json.RawMessage `json:"payload"`
	Status   string          `json:"status"`
	QueuedAt time.Time       `json:"queuedAt"`
}

// Args turns the payload back into invocation arguments: a JSON array
// spreads into one argument per element, anything else is the single
// argument.
func (o Operation) Args() ([]any, error) {
	if len(o.Payload) == 0 || string(o.Payload) == "null" {
		return nil, nil
	}
	var v any
	if err := json.Unmarshal(o.Payload, &v); err != nil {
		return nil, err
	}
	if list, ok := v.([]any); ok {
		return list, nil
	}
	return []any{v}, nil
}

// EnqueueResult is returned to the caller instead of the write's result.
type EnqueueResult struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// ProcessResult summarises a replay pass.
type ProcessResult struct {
	Processed int `json:"processed"`
	Failed    int `json:"failed"`
}

// DeliverFunc sends one queued operation to its destination.
type DeliverFunc func(ctx context.Context, op Operation) error

// Locker serialises replay across processes.
type Locker interface {
	Acquire(ctx context.Context) error
	Release() error
}

// Queue is a write-behind queue over a Store. Replay is at-least-once: an
// entry is deleted only after delivery succeeds, so a crash in between
// delivers it again on the next pass.
type Queue struct {
	store Store
	lock  Locker
	errs  *errors.Factory
	clock clock.Clock
	log   *logger.Logger

	// replay serialises Process within this process; lock covers others.
	replay sync.Mutex
}

// QueueOption configures a Queue.
type QueueOption func(*Queue)

// WithLocker guards Process with l.
func WithLocker(l Locker) QueueOption {
	return func(q *Queue) { q.lock = l }
}

// WithQueueClock sets the clock used for QueuedAt.
func WithQueueClock(c clock.Clock) QueueOption {
	return func(q *Queue) { q.clock = c }
}

// WithQueueLogger sets the queue logger.
func WithQueueLogger(l *logger.Logger) QueueOption {
	return func(q *Queue) { q.log = l }
}

// WithQueueErrors sets the factory queue errors are built with.
func WithQueueErrors(f *errors.Factory) QueueOption {
	return func(q *Queue) { q.errs = f }
}

// NewQueue creates a queue over store.
func NewQueue(store Store, opts ...QueueOption) *Queue {
	q := &Queue{
		store: store,
		errs:  errors.NewFactory(0),
		clock: clock.New(),
		log:   logger.Nop(),
	}
	for _, opt := range opts {
		opt(q)
	}
	q.log = q.log.WithComponent("offline-queue")
	return q
}

// QueueKey returns the store key for a correlation id.
func QueueKey(id string) string { return QueuePrefix + id }

// Enqueue persists an operation under a fresh correlation id and returns
// the id immediately.
func (q *Queue) Enqueue(ctx context.Context, service, name string, payload any) (EnqueueResult, error) {
	if err := validation.New().Required("service", service).Required("operation", name).Validate(); err != nil {
		return EnqueueResult{}, err
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return EnqueueResult{}, q.errs.New(errors.CodeSerializationFailed, err.Error(), errors.WithCause(err))
	}

	id, err := uuid.NewV7()
	if err != nil {
		return EnqueueResult{}, q.errs.UnknownError(err)
	}
	op := Operation{
		ID:       id.String(),
		Service:  service,
		Name:     name,
		Payload:  raw,
		Status:   StatusPendingSync,
		QueuedAt: q.clock.Now().UTC(),
	}
	if err := q.store.Store(ctx, QueueKey(op.ID), op); err != nil {
		return EnqueueResult{}, q.errs.New(errors.CodeStorageWriteFailed, err.Error(),
			errors.WithCause(err), errors.WithService(service), errors.WithOperation(name))
	}

	q.log.Info("operation queued", logger.Fields(
		logger.FieldCorrelationID, op.ID,
		logger.FieldService, service,
		logger.FieldOperation, name,
	))
	return EnqueueResult{ID: op.ID, Status: StatusQueued}, nil
}

// List returns queued operations, oldest first.
func (q *Queue) List(ctx context.Context) ([]Operation, error) {
	keys, err := q.keys(ctx)
	if err != nil {
		return nil, err
	}
	ops := make([]Operation, 0, len(keys))
	for _, key := range keys {
		op, ok, err := q.load(ctx, key)
		if err != nil {
			return nil, err
		}
		if ok {
			ops = append(ops, op)
		}
	}
	return ops, nil
}

// Remove deletes one queued operation; an empty id removes all of them.
func (q *Queue) Remove(ctx context.Context, id string) error {
	if id != "" {
		if err := validation.New().RequiredUUID("id", id).Validate(); err != nil {
			return err
		}
		if err := q.store.Clear(ctx, QueueKey(id)); err != nil {
			return q.errs.New(errors.CodeStorageWriteFailed, err.Error(), errors.WithCause(err))
		}
		return nil
	}
	keys, err := q.keys(ctx)
	if err != nil {
		return err
	}
	for _, key := range keys {
		if err := q.store.Clear(ctx, key); err != nil {
			return q.errs.New(errors.CodeStorageWriteFailed, err.Error(), errors.WithCause(err))
		}
	}
	return nil
}

// Len returns the number of queued operations.
func (q *Queue) Len(ctx context.Context) (int, error) {
	keys, err := q.keys(ctx)
	return len(keys), err
}

// Process attempts delivery of every queued operation. Delivered entries
// are deleted; failed ones stay untouched for the next pass. Concurrent
// calls run one after another, so a later pass only sees what the earlier
// one left behind.
func (q *Queue) Process(ctx context.Context, deliver DeliverFunc) (ProcessResult, error) {
	var res ProcessResult

	q.replay.Lock()
	defer q.replay.Unlock()

	if q.lock != nil {
		if err := q.lock.Acquire(ctx); err != nil {
			return res, q.errs.New(errors.CodeLockAcquisitionFailed, err.Error(),
				errors.WithCause(err), errors.WithOperation("offline-replay"))
		}
		defer func() {
			if err := q.lock.Release(); err != nil {
				q.log.Warn("lock release failed", logger.ErrorFields("offline-replay", err))
			}
		}()
	}

	keys, err := q.keys(ctx)
	if err != nil {
		return res, err
	}
	for _, key := range keys {
		if ctx.Err() != nil {
			break
		}
		op, ok, err := q.load(ctx, key)
		if err != nil {
			q.log.Warn("unreadable queue entry", logger.ErrorFields(key, err))
			res.Failed++
			continue
		}
		if !ok {
			continue
		}

		if err := deliver(ctx, op); err != nil {
			q.log.Warn("replay failed", logger.Fields(
				logger.FieldCorrelationID, op.ID,
				logger.FieldService, op.Service,
				logger.FieldError, err.Error(),
			))
			res.Failed++
			continue
		}
		if err := q.store.Clear(ctx, key); err != nil {
			q.log.Warn("delivered entry not removed", logger.ErrorFields(key, err))
		}
		res.Processed++
	}

	q.log.Info("queue replayed", logger.Fields("processed", res.Processed, "failed", res.Failed))
	return res, nil
}

func (q *Queue) keys(ctx context.Context) ([]string, error) {
	all, err := q.store.Keys(ctx)
	if err != nil {
		return nil, q.errs.New(errors.CodeStorageReadFailed, err.Error(), errors.WithCause(err))
	}
	keys := all[:0:0]
	for _, k := range all {
		if strings.HasPrefix(k, QueuePrefix) {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

func (q *Queue) load(ctx context.Context, key string) (Operation, bool, error) {
	rec, found, err := q.store.Retrieve(ctx, key)
	if err != nil {
		return Operation{}, false, q.errs.New(errors.CodeStorageReadFailed, err.Error(), errors.WithCause(err))
	}
	if !found {
		return Operation{}, false, nil
	}
	var op Operation
	if err := rec.Decode(&op); err != nil {
		return Operation{}, false, q.errs.New(errors.CodeStorageReadFailed, err.Error(), errors.WithCause(err))
	}
	return op, true, nil
}
