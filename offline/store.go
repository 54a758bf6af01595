package offline

import (
	"context"
	"fmt"
	"path/filepath"

	goredis "github.com/redis/go-redis/v9"
	"github.com/spf13/afero"

	"github.com/kbukum/failsafe/clock"
)

// Store persists one Record per key.
type Store interface {
	// Store writes data under key, replacing any previous record.
	Store(ctx context.Context, key string, data any) error
	// Retrieve returns the record for key; found is false when none exists.
	Retrieve(ctx context.Context, key string) (rec Record, found bool, err error)
	// Keys lists every stored key in lexical order.
	Keys(ctx context.Context) ([]string, error)
	// Clear removes key, or every record when key is empty.
	Clear(ctx context.Context, key string) error
}

// Open builds the store cfg selects. fs backs the file store and is
// ignored for Redis.
func Open(cfg Config, fs afero.Fs, clk clock.Clock) (Store, error) {
	cfg.ApplyDefaults()
	cipher, err := cfg.Cipher()
	if err != nil {
		return nil, fmt.Errorf("offline cipher: %w", err)
	}
	opts := []StoreOption{WithStoreClock(clk)}
	if cipher != nil {
		opts = append(opts, WithCipher(cipher))
	}

	switch cfg.Backend {
	case BackendRedis:
		client := goredis.NewClient(&goredis.Options{
			Addr:         cfg.Redis.Addr,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			PoolSize:     cfg.Redis.PoolSize,
			DialTimeout:  cfg.Redis.DialTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
		})
		return NewRedisStore(client, cfg.Redis.Prefix, opts...), nil
	default:
		return NewFileStore(fs, filepath.Join(cfg.Dir, "records"), opts...)
	}
}
