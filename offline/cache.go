package offline

import (
	"context"
	"encoding/json"
	"time"

	"github.com/kbukum/failsafe/errors"
	"github.com/kbukum/failsafe/logger"
)

// CachePrefix namespaces read-through cache keys.
const CachePrefix = "cache:"

// SourceCache tags fallback results served from the cache.
const SourceCache = "cache"

// FallbackResult is what a caller receives when a live read is not possible.
type FallbackResult struct {
	Source    string          `json:"source"`
	Found     bool            `json:"found"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp time.Time       `json:"timestamp,omitempty"`
	Message   string          `json:"message,omitempty"`
}

// Cache keeps the last successful payload per service.
type Cache struct {
	store Store
	errs  *errors.Factory
	log   *logger.Logger
}

// NewCache creates a cache over store.
func NewCache(store Store, errs *errors.Factory, log *logger.Logger) *Cache {
	if errs == nil {
		errs = errors.NewFactory(0)
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Cache{store: store, errs: errs, log: log.WithComponent("offline-cache")}
}

// CacheKey returns the store key for service.
func CacheKey(service string) string { return CachePrefix + service }

// Put records data as the latest payload for service.
func (c *Cache) Put(ctx context.Context, service string, data any) error {
	if err := c.store.Store(ctx, CacheKey(service), data); err != nil {
		return c.errs.New(errors.CodeStorageWriteFailed, err.Error(),
			errors.WithCause(err), errors.WithService(service), errors.WithComponent("offline-cache"))
	}
	return nil
}

// Get returns the cached record for service.
func (c *Cache) Get(ctx context.Context, service string) (Record, bool, error) {
	rec, found, err := c.store.Retrieve(ctx, CacheKey(service))
	if err != nil {
		return Record{}, false, c.errs.New(errors.CodeStorageReadFailed, err.Error(),
			errors.WithCause(err), errors.WithService(service), errors.WithComponent("offline-cache"))
	}
	return rec, found, nil
}

// Fallback returns the last cached payload for service, or a result with
// Found false. It never fails; storage errors are logged and reported as
// a miss.
func (c *Cache) Fallback(ctx context.Context, service string) FallbackResult {
	rec, found, err := c.Get(ctx, service)
	if err != nil {
		c.log.Warn("cache read failed", logger.ErrorFields("fallback", err))
	}
	if !found {
		return FallbackResult{Source: SourceCache, Message: "no cached data available for " + service}
	}
	return FallbackResult{Source: SourceCache, Found: true, Data: rec.Data, Timestamp: rec.Timestamp}
}
