package offline

import (
	"context"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/afero"

	"github.com/kbukum/failsafe/clock"
	"github.com/kbukum/failsafe/errors"
	"github.com/kbukum/failsafe/logger"
)

// Offline bundles the store with the cache, queue and lock built on it.
type Offline struct {
	Store Store
	Cache *Cache
	Queue *Queue
	// Lock is nil when locking is disabled.
	Lock *FileLock
}

// New opens the configured store and wires the cache, queue and lock.
func New(cfg Config, fsys afero.Fs, clk clock.Clock, errs *errors.Factory, log *logger.Logger) (*Offline, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if fsys == nil {
		fsys = afero.NewOsFs()
	}
	if clk == nil {
		clk = clock.New()
	}
	if errs == nil {
		errs = errors.NewFactory(0)
	}
	if log == nil {
		log = logger.Nop()
	}

	store, err := Open(cfg, fsys, clk)
	if err != nil {
		return nil, errs.New(errors.CodeStorageWriteFailed, err.Error(), errors.WithCause(err), errors.WithComponent("offline"))
	}

	o := &Offline{Store: store, Cache: NewCache(store, errs, log)}
	qopts := []QueueOption{WithQueueClock(clk), WithQueueLogger(log), WithQueueErrors(errs)}
	if cfg.Lock.Enabled {
		if err := fsys.MkdirAll(cfg.Dir, 0o750); err != nil {
			return nil, errs.New(errors.CodeStorageWriteFailed, err.Error(), errors.WithCause(err), errors.WithComponent("offline"))
		}
		o.Lock = NewFileLock(fsys, filepath.Join(cfg.Dir, cfg.Lock.File), ownerName(), cfg.Lock, clk)
		qopts = append(qopts, WithLocker(o.Lock))
	}
	o.Queue = NewQueue(store, qopts...)
	return o, nil
}

// Close releases backend connections.
func (o *Offline) Close(_ context.Context) error {
	if rs, ok := o.Store.(*RedisStore); ok {
		return rs.Close()
	}
	return nil
}

func ownerName() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "failsafe"
	}
	return host + ":" + strconv.Itoa(os.Getpid())
}
