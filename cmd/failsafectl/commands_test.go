package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/afero"

	"github.com/kbukum/failsafe/bridge"
	"github.com/kbukum/failsafe/clock"
	"github.com/kbukum/failsafe/errors"
	"github.com/kbukum/failsafe/offline"
	"github.com/kbukum/failsafe/resilience"
)

const testYAML = "offline:\n  dir: /data\n"

func setup(t *testing.T) (afero.Fs, *offline.Offline) {
	t.Helper()
	fs := afero.NewMemMapFs()
	if err := afero.WriteFile(fs, "failsafe.yml", []byte(testYAML), 0o644); err != nil {
		t.Fatal(err)
	}
	off, err := offline.New(offline.Config{Dir: "/data"}, fs, clock.New(), nil, nil)
	if err != nil {
		t.Fatalf("offline.New failed: %v", err)
	}
	return fs, off
}

func run(t *testing.T, fs afero.Fs, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd(&cli{fs: fs, environ: func() []string { return nil }})
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestQueueList(t *testing.T) {
	fs, off := setup(t)
	ctx := context.Background()

	out, err := run(t, fs, "queue", "list")
	if err != nil || !strings.Contains(out, "queue is empty") {
		t.Fatalf("empty list: %q, %v", out, err)
	}

	res, _ := off.Queue.Enqueue(ctx, "mail-send", "send-message", []any{"bob@example.com"})
	out, err = run(t, fs, "queue", "list")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	for _, want := range []string{"SERVICE", res.ID, "mail-send", "send-message", offline.StatusPendingSync} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}

	out, err = run(t, fs, "queue", "list", "--json")
	if err != nil {
		t.Fatalf("list --json failed: %v", err)
	}
	var ops []offline.Operation
	if err := json.Unmarshal([]byte(out), &ops); err != nil || len(ops) != 1 {
		t.Fatalf("json output = %q, %v", out, err)
	}
}

func TestQueueClear(t *testing.T) {
	fs, off := setup(t)
	ctx := context.Background()
	first, _ := off.Queue.Enqueue(ctx, "mail-send", "send-message", "a")
	_, _ = off.Queue.Enqueue(ctx, "calendar-write", "create-event", "b")

	out, err := run(t, fs, "queue", "clear", first.ID)
	if err != nil || !strings.Contains(out, "removed "+first.ID) {
		t.Fatalf("clear id: %q, %v", out, err)
	}
	if n, _ := off.Queue.Len(ctx); n != 1 {
		t.Errorf("len after removing one = %d", n)
	}

	if _, err := run(t, fs, "queue", "clear", "not-a-uuid"); !errors.HasCode(err, errors.CodeInvalidInput) {
		t.Errorf("expected INVALID_INPUT, got %v", err)
	}

	if _, err := run(t, fs, "queue", "clear"); err != nil {
		t.Fatalf("clear all failed: %v", err)
	}
	if n, _ := off.Queue.Len(ctx); n != 0 {
		t.Errorf("len after clear = %d", n)
	}
}

func TestQueueReplay(t *testing.T) {
	fs, off := setup(t)
	ctx := context.Background()
	_, _ = off.Queue.Enqueue(ctx, "mail-send", "send-message", []any{"bob@example.com", "Lunch?"})

	engine := resilience.NewEngine(resilience.Config{}, nil)
	b := bridge.New(engine, resilience.Config{})
	var got []any
	_ = b.Register("send-message", func(_ context.Context, args []any) (any, error) {
		got = args
		return "sent", nil
	})
	gin.SetMode(gin.TestMode)
	r := gin.New()
	b.Mount(r)
	srv := httptest.NewServer(r)
	defer srv.Close()

	out, err := run(t, fs, "queue", "replay", "--url", srv.URL)
	if err != nil {
		t.Fatalf("replay failed: %v", err)
	}
	if !strings.Contains(out, "processed 1, failed 0") {
		t.Errorf("output = %q", out)
	}
	if len(got) != 2 || got[1] != "Lunch?" {
		t.Errorf("handler args = %v", got)
	}
	if n, _ := off.Queue.Len(ctx); n != 0 {
		t.Errorf("len after replay = %d", n)
	}
}

func TestQueueReplayNeedsAddress(t *testing.T) {
	fs, _ := setup(t)
	if _, err := run(t, fs, "queue", "replay"); err == nil || !strings.Contains(err.Error(), "no bridge address") {
		t.Errorf("expected missing address error, got %v", err)
	}
}

func TestCacheShow(t *testing.T) {
	fs, off := setup(t)
	ctx := context.Background()

	out, err := run(t, fs, "cache", "show", "contacts")
	if err != nil || !strings.Contains(out, "no cached data available for contacts") {
		t.Fatalf("miss: %q, %v", out, err)
	}

	if err := off.Cache.Put(ctx, "contacts", map[string]any{"count": 12}); err != nil {
		t.Fatal(err)
	}
	out, err = run(t, fs, "cache", "show", "contacts")
	if err != nil || !strings.Contains(out, `{"count":12}`) {
		t.Fatalf("hit: %q, %v", out, err)
	}

	if _, err := run(t, fs, "cache", "show"); err == nil {
		t.Error("expected an argument error")
	}
}

func TestLockStatus(t *testing.T) {
	fs, _ := setup(t)

	out, err := run(t, fs, "lock", "status")
	if err != nil || !strings.Contains(out, "/data/.sync.lock: free") {
		t.Fatalf("free: %q, %v", out, err)
	}

	info := offline.LockInfo{Timestamp: time.Now().Add(-5 * time.Minute).UnixMilli(), Owner: "laptop:4242", PID: 4242}
	b, _ := json.Marshal(info)
	if err := afero.WriteFile(fs, "/data/.sync.lock", b, 0o600); err != nil {
		t.Fatal(err)
	}
	out, err = run(t, fs, "lock", "status")
	if err != nil || !strings.Contains(out, "stale, held by laptop:4242") {
		t.Fatalf("stale: %q, %v", out, err)
	}
}

func TestVersion(t *testing.T) {
	out, err := run(t, afero.NewMemMapFs(), "version")
	if err != nil || !strings.HasPrefix(out, "dev") {
		t.Errorf("version: %q, %v", out, err)
	}
}
