package offline

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	goredis "github.com/redis/go-redis/v9"
)

// RedisStore keeps records as string values under a key prefix, so several
// hosts can share one offline queue.
type RedisStore struct {
	client goredis.UniversalClient
	prefix string
	codec  *codec
}

// NewRedisStore wraps client. Every key is stored as prefix+key.
func NewRedisStore(client goredis.UniversalClient, prefix string, opts ...StoreOption) *RedisStore {
	return &RedisStore{client: client, prefix: prefix, codec: newCodec(opts)}
}

// Ping verifies the connection.
func (s *RedisStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("offline: redis ping: %w", err)
	}
	return nil
}

// Close releases the client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Store writes data under key.
func (s *RedisStore) Store(ctx context.Context, key string, data any) error {
	if key == "" {
		return ErrEmptyKey
	}
	b, err := s.codec.encode(key, data)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.prefix+key, b, 0).Err(); err != nil {
		return fmt.Errorf("offline: redis set %s: %w", key, err)
	}
	return nil
}

// Retrieve reads the record for key.
func (s *RedisStore) Retrieve(ctx context.Context, key string) (Record, bool, error) {
	b, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, fmt.Errorf("offline: redis get %s: %w", key, err)
	}
	rec, err := s.codec.decode(key, b)
	if err != nil {
		return Record{}, false, err
	}
	return rec, true, nil
}

// Keys lists stored keys.
func (s *RedisStore) Keys(ctx context.Context) ([]string, error) {
	var keys []string
	iter := s.client.Scan(ctx, 0, s.prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, strings.TrimPrefix(iter.Val(), s.prefix))
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("offline: redis scan: %w", err)
	}
	sort.Strings(keys)
	return keys, nil
}

// Clear removes key, or every record under the prefix when key is empty.
func (s *RedisStore) Clear(ctx context.Context, key string) error {
	if key != "" {
		if err := s.client.Del(ctx, s.prefix+key).Err(); err != nil {
			return fmt.Errorf("offline: redis del %s: %w", key, err)
		}
		return nil
	}

	keys, err := s.Keys(ctx)
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = s.prefix + k
	}
	if err := s.client.Del(ctx, full...).Err(); err != nil {
		return fmt.Errorf("offline: redis clear: %w", err)
	}
	return nil
}
