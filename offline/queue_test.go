package offline

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"

	"github.com/kbukum/failsafe/clock"
	"github.com/kbukum/failsafe/errors"
)

func newQueue(t *testing.T, opts ...QueueOption) (*Queue, Store) {
	t.Helper()
	s, _ := newMemStore(t)
	opts = append([]QueueOption{WithQueueClock(clock.NewFake(epoch))}, opts...)
	return NewQueue(s, opts...), s
}

func TestQueue_Enqueue(t *testing.T) {
	q, s := newQueue(t)
	ctx := context.Background()

	res, err := q.Enqueue(ctx, "mail", "send", message{Subject: "hi"})
	if err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}
	if res.Status != StatusQueued {
		t.Errorf("status = %q, want %q", res.Status, StatusQueued)
	}
	if _, err := uuid.Parse(res.ID); err != nil {
		t.Errorf("id %q is not a uuid: %v", res.ID, err)
	}

	rec, found, err := s.Retrieve(ctx, QueueKey(res.ID))
	if err != nil || !found {
		t.Fatalf("entry not persisted: found %v, err %v", found, err)
	}
	var op Operation
	if err := rec.Decode(&op); err != nil {
		t.Fatal(err)
	}
	if op.Status != StatusPendingSync || op.Service != "mail" || op.Name != "send" {
		t.Errorf("stored operation %+v", op)
	}
	if !op.QueuedAt.Equal(epoch) {
		t.Errorf("queuedAt = %v", op.QueuedAt)
	}
}

func TestQueue_EnqueueValidation(t *testing.T) {
	q, _ := newQueue(t)
	_, err := q.Enqueue(context.Background(), "", "send", nil)
	if !errors.HasCode(err, errors.CodeInvalidInput) {
		t.Errorf("expected INVALID_INPUT, got %v", err)
	}
}

func TestQueue_ListOldestFirst(t *testing.T) {
	q, _ := newQueue(t)
	ctx := context.Background()
	var ids []string
	for _, name := range []string{"first", "second", "third"} {
		res, err := q.Enqueue(ctx, "calendar", name, nil)
		if err != nil {
			t.Fatal(err)
		}
		ids = append(ids, res.ID)
	}

	ops, err := q.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(ops) != 3 {
		t.Fatalf("listed %d, want 3", len(ops))
	}
	for i, op := range ops {
		if op.ID != ids[i] {
			t.Errorf("position %d: got %s (%s), want %s", i, op.ID, op.Name, ids[i])
		}
	}
}

func TestQueue_ListSkipsCacheEntries(t *testing.T) {
	q, s := newQueue(t)
	ctx := context.Background()
	_ = s.Store(ctx, CacheKey("mail"), "cached")
	_, _ = q.Enqueue(ctx, "mail", "send", nil)

	n, err := q.Len(ctx)
	if err != nil || n != 1 {
		t.Errorf("Len = %d, err %v", n, err)
	}
}

func TestQueue_ProcessDeliversAndRemoves(t *testing.T) {
	q, _ := newQueue(t)
	ctx := context.Background()
	_, _ = q.Enqueue(ctx, "mail", "send", message{Subject: "one"})
	_, _ = q.Enqueue(ctx, "mail", "send", message{Subject: "two"})

	var delivered []string
	res, err := q.Process(ctx, func(_ context.Context, op Operation) error {
		delivered = append(delivered, op.ID)
		return nil
	})
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if res != (ProcessResult{Processed: 2, Failed: 0}) {
		t.Errorf("result = %+v", res)
	}
	if len(delivered) != 2 {
		t.Errorf("delivered %d", len(delivered))
	}
	if n, _ := q.Len(ctx); n != 0 {
		t.Errorf("%d entries left after replay", n)
	}
}

func TestQueue_ProcessKeepsFailedEntries(t *testing.T) {
	q, _ := newQueue(t)
	ctx := context.Background()
	ok, _ := q.Enqueue(ctx, "mail", "send", nil)
	bad, _ := q.Enqueue(ctx, "calendar", "update", nil)

	res, err := q.Process(ctx, func(_ context.Context, op Operation) error {
		if op.Service == "calendar" {
			return stderrors.New("still offline")
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if res != (ProcessResult{Processed: 1, Failed: 1}) {
		t.Errorf("result = %+v", res)
	}

	ops, _ := q.List(ctx)
	if len(ops) != 1 || ops[0].ID != bad.ID {
		t.Fatalf("remaining = %+v, want only %s", ops, bad.ID)
	}
	if ops[0].Status != StatusPendingSync {
		t.Errorf("failed entry status changed to %q", ops[0].Status)
	}
	for _, op := range ops {
		if op.ID == ok.ID {
			t.Error("delivered entry still queued")
		}
	}
}

func TestQueue_ProcessEmpty(t *testing.T) {
	q, _ := newQueue(t)
	res, err := q.Process(context.Background(), func(context.Context, Operation) error {
		t.Error("deliver called on empty queue")
		return nil
	})
	if err != nil || res != (ProcessResult{}) {
		t.Errorf("result %+v, err %v", res, err)
	}
}

func TestQueue_ProcessHoldsLock(t *testing.T) {
	fsys := afero.NewMemMapFs()
	clk := clock.NewFake(epoch)
	lock := NewFileLock(fsys, lockPath, "host-a", LockConfig{}, clk)
	q, _ := newQueue(t, WithLocker(lock))
	ctx := context.Background()
	_, _ = q.Enqueue(ctx, "mail", "send", nil)

	_, err := q.Process(ctx, func(context.Context, Operation) error {
		if ok, _ := afero.Exists(fsys, lockPath); !ok {
			t.Error("lock not held during delivery")
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if ok, _ := afero.Exists(fsys, lockPath); ok {
		t.Error("lock not released after replay")
	}
}

func TestQueue_ProcessLockContention(t *testing.T) {
	fsys := afero.NewMemMapFs()
	clk := clock.NewFake(epoch)
	other := NewFileLock(fsys, lockPath, "host-b", LockConfig{}, clk)
	if err := other.Acquire(context.Background()); err != nil {
		t.Fatal(err)
	}

	lock := NewFileLock(fsys, lockPath, "host-a", LockConfig{Retries: 2}, clk)
	q, _ := newQueue(t, WithLocker(lock))
	_, _ = q.Enqueue(context.Background(), "mail", "send", nil)

	_, err := q.Process(context.Background(), func(context.Context, Operation) error {
		t.Error("deliver called without the lock")
		return nil
	})
	if !errors.HasCode(err, errors.CodeLockAcquisitionFailed) {
		t.Errorf("expected LOCK_ACQUISITION_FAILED, got %v", err)
	}
	if !stderrors.Is(err, ErrLockHeld) {
		t.Errorf("cause should wrap ErrLockHeld: %v", err)
	}
}

func TestQueue_ConcurrentProcessDeliversOnce(t *testing.T) {
	fsys := afero.NewMemMapFs()
	lock := NewFileLock(fsys, lockPath, "host-a", LockConfig{}, clock.NewFake(epoch))
	q, _ := newQueue(t, WithLocker(lock))
	ctx := context.Background()
	if _, err := q.Enqueue(ctx, "mail", "send", message{Subject: "hi"}); err != nil {
		t.Fatal(err)
	}

	var deliveries int32
	deliver := func(context.Context, Operation) error {
		atomic.AddInt32(&deliveries, 1)
		time.Sleep(50 * time.Millisecond)
		return nil
	}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		total   ProcessResult
		errs    []error
		started = make(chan struct{})
	)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-started
			res, err := q.Process(ctx, deliver)
			mu.Lock()
			defer mu.Unlock()
			total.Processed += res.Processed
			total.Failed += res.Failed
			if err != nil {
				errs = append(errs, err)
			}
		}()
	}
	close(started)
	wg.Wait()

	if len(errs) != 0 {
		t.Fatalf("Process errors: %v", errs)
	}
	if n := atomic.LoadInt32(&deliveries); n != 1 {
		t.Errorf("entry delivered %d times, want 1", n)
	}
	if total != (ProcessResult{Processed: 1}) {
		t.Errorf("combined result %+v", total)
	}
	if ok, _ := afero.Exists(fsys, lockPath); ok {
		t.Error("lock file left after both passes")
	}
}

func TestQueue_Remove(t *testing.T) {
	q, _ := newQueue(t)
	ctx := context.Background()
	a, _ := q.Enqueue(ctx, "mail", "send", nil)
	_, _ = q.Enqueue(ctx, "mail", "send", nil)

	if err := q.Remove(ctx, "not-a-uuid"); !errors.HasCode(err, errors.CodeInvalidInput) {
		t.Errorf("expected INVALID_INPUT, got %v", err)
	}
	if err := q.Remove(ctx, a.ID); err != nil {
		t.Fatal(err)
	}
	if n, _ := q.Len(ctx); n != 1 {
		t.Errorf("Len = %d, want 1", n)
	}
	if err := q.Remove(ctx, ""); err != nil {
		t.Fatal(err)
	}
	if n, _ := q.Len(ctx); n != 0 {
		t.Errorf("Len = %d, want 0", n)
	}
}

func TestCache_Fallback(t *testing.T) {
	s, _ := newMemStore(t)
	c := NewCache(s, nil, nil)
	ctx := context.Background()

	miss := c.Fallback(ctx, "calendar")
	if miss.Found || miss.Source != SourceCache || miss.Message == "" {
		t.Errorf("miss = %+v", miss)
	}

	if err := c.Put(ctx, "calendar", []string{"standup", "review"}); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	hit := c.Fallback(ctx, "calendar")
	if !hit.Found || hit.Source != SourceCache {
		t.Fatalf("hit = %+v", hit)
	}
	if string(hit.Data) != `["standup","review"]` {
		t.Errorf("data = %s", hit.Data)
	}
	if !hit.Timestamp.Equal(epoch) {
		t.Errorf("timestamp = %v", hit.Timestamp)
	}
}

func TestCache_FallbackNeverFails(t *testing.T) {
	s, fsys := newMemStore(t)
	_ = afero.WriteFile(fsys, s.path(CacheKey("mail")), []byte("{corrupt"), 0o600)

	res := NewCache(s, nil, nil).Fallback(context.Background(), "mail")
	if res.Found {
		t.Errorf("corrupt entry served: %+v", res)
	}

	_, _, err := NewCache(s, nil, nil).Get(context.Background(), "mail")
	if !errors.HasCode(err, errors.CodeStorageReadFailed) {
		t.Errorf("expected STORAGE_READ_FAILED, got %v", err)
	}
}

func TestNew_WiresLock(t *testing.T) {
	fsys := afero.NewMemMapFs()
	o, err := New(Config{Dir: "/sync", Lock: LockConfig{Enabled: true}}, fsys, clock.NewFake(epoch), nil, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if o.Lock == nil || o.Lock.Path() != "/sync/.sync.lock" {
		t.Fatalf("lock not wired: %+v", o.Lock)
	}
	if _, ok := o.Store.(*FileStore); !ok {
		t.Errorf("store is %T, want *FileStore", o.Store)
	}
	if err := o.Close(context.Background()); err != nil {
		t.Error(err)
	}
}

func TestNew_InvalidConfig(t *testing.T) {
	_, err := New(Config{Backend: "s3"}, afero.NewMemMapFs(), nil, nil, nil)
	if !errors.HasCode(err, errors.CodeConfigInvalid) {
		t.Errorf("expected CONFIG_INVALID, got %v", err)
	}

	_, err = New(Config{Encryption: EncryptionConfig{Enabled: true}}, afero.NewMemMapFs(), nil, nil, nil)
	if err == nil {
		t.Error("encryption without a key must be rejected")
	}
}

func TestNew_RedisBackend(t *testing.T) {
	mr := newMiniredis(t)
	o, err := New(Config{Backend: BackendRedis, Redis: RedisConfig{Addr: mr.Addr()}}, nil, clock.NewFake(epoch), nil, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer o.Close(context.Background())

	if err := o.Cache.Put(context.Background(), "mail", "x"); err != nil {
		t.Fatal(err)
	}
	if !mr.Exists(DefaultRedisPrefix + CacheKey("mail")) {
		t.Errorf("keys = %v", mr.Keys())
	}
}

func TestOperation_Args(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    int
		wantErr bool
	}{
		{"empty", "", 0, false},
		{"null", "null", 0, false},
		{"array spreads", `["a",1,{"b":true}]`, 3, false},
		{"object is one argument", `{"to":"bob"}`, 1, false},
		{"invalid", `{`, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args, err := Operation{Payload: json.RawMessage(tt.payload)}.Args()
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v", err)
			}
			if len(args) != tt.want {
				t.Errorf("len(args) = %d, want %d", len(args), tt.want)
			}
		})
	}
}
