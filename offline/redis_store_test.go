package offline

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"

	"github.com/kbukum/failsafe/clock"
	"github.com/kbukum/failsafe/encryption"
)

func newRedisStore(t *testing.T, opts ...StoreOption) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := newMiniredis(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	opts = append([]StoreOption{WithStoreClock(clock.NewFake(epoch))}, opts...)
	return NewRedisStore(client, "test:", opts...), mr
}

func TestRedisStore_RoundTrip(t *testing.T) {
	s, mr := newRedisStore(t)
	ctx := context.Background()

	if err := s.Ping(ctx); err != nil {
		t.Fatalf("Ping failed: %v", err)
	}
	if err := s.Store(ctx, "cache:calendar", message{Subject: "standup"}); err != nil {
		t.Fatalf("Store failed: %v", err)
	}
	if !mr.Exists("test:cache:calendar") {
		t.Error("expected key under prefix")
	}

	rec, found, err := s.Retrieve(ctx, "cache:calendar")
	if err != nil || !found {
		t.Fatalf("Retrieve = found %v, err %v", found, err)
	}
	var out message
	if err := rec.Decode(&out); err != nil || out.Subject != "standup" {
		t.Errorf("decoded %+v, err %v", out, err)
	}
	if !rec.Timestamp.Equal(epoch) {
		t.Errorf("timestamp = %v", rec.Timestamp)
	}
}

func TestRedisStore_Missing(t *testing.T) {
	s, _ := newRedisStore(t)
	_, found, err := s.Retrieve(context.Background(), "nope")
	if err != nil || found {
		t.Errorf("found %v, err %v", found, err)
	}
}

func TestRedisStore_RejectsEmptyKey(t *testing.T) {
	s, mr := newRedisStore(t)
	if err := s.Store(context.Background(), "", "v"); !errors.Is(err, ErrEmptyKey) {
		t.Errorf("got %v, want ErrEmptyKey", err)
	}
	if mr.Exists("test:") {
		t.Error("empty key written under the bare prefix")
	}
}

func TestRedisStore_KeysIgnoreOtherPrefixes(t *testing.T) {
	s, mr := newRedisStore(t)
	ctx := context.Background()
	_ = mr.Set("unrelated", "x")
	_ = s.Store(ctx, "queue:2", 2)
	_ = s.Store(ctx, "queue:1", 1)

	keys, err := s.Keys(ctx)
	if err != nil {
		t.Fatalf("Keys failed: %v", err)
	}
	if len(keys) != 2 || keys[0] != "queue:1" || keys[1] != "queue:2" {
		t.Errorf("keys = %v", keys)
	}

	if err := s.Clear(ctx, ""); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if keys, _ := s.Keys(ctx); len(keys) != 0 {
		t.Errorf("keys after clear = %v", keys)
	}
	if !mr.Exists("unrelated") {
		t.Error("clear removed a key outside the prefix")
	}
}

func TestRedisStore_Encrypted(t *testing.T) {
	c, _ := encryption.New("shared-key", encryption.WithAlgorithm(encryption.AlgorithmChaCha20))
	s, mr := newRedisStore(t, WithCipher(c))
	ctx := context.Background()
	_ = s.Store(ctx, "queue:1", "confidential")

	raw, err := mr.Get("test:queue:1")
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(raw, "confidential") {
		t.Error("plaintext visible in redis")
	}
	rec, _, err := s.Retrieve(ctx, "queue:1")
	if err != nil {
		t.Fatalf("Retrieve failed: %v", err)
	}
	var out string
	_ = rec.Decode(&out)
	if out != "confidential" {
		t.Errorf("got %q", out)
	}
}

func newMiniredis(t *testing.T) *miniredis.Miniredis {
	t.Helper()
	return miniredis.RunT(t)
}
