package errors

import (
	"context"
	stderrors "errors"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/kbukum/failsafe/events"
)

func TestFactoryNew_BindsClassification(t *testing.T) {
	f := NewFactory(4)
	e := f.New(CodeNetworkUnreachable, "dial tcp: no route")

	if e.ID == "" {
		t.Fatal("expected generated id")
	}
	if e.Category != CategoryNetwork {
		t.Errorf("expected NETWORK, got %s", e.Category)
	}
	if !e.Retryable {
		t.Error("expected network errors to be retryable")
	}
	if e.MaxRetries != 4 {
		t.Errorf("expected MaxRetries 4, got %d", e.MaxRetries)
	}
	if e.UserMessage == "" || e.UserMessage == e.TechnicalMessage {
		t.Errorf("user message must be set and distinct, got %q", e.UserMessage)
	}
	if len(e.RecoveryActions) == 0 {
		t.Error("expected default recovery actions")
	}
	if e.Context.Timestamp.IsZero() {
		t.Error("expected timestamp")
	}
}

func TestFactoryNew_UniqueIDs(t *testing.T) {
	f := NewFactory(3)
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := f.New(CodeUnknown, "x").ID
		if seen[id] {
			t.Fatalf("duplicate id %s", id)
		}
		seen[id] = true
	}
}

func TestFactoryNew_UnknownCodeFallsBack(t *testing.T) {
	e := NewFactory(3).New(ErrorCode("NOT_A_CODE"), "x")
	if e.Category != CategoryUnknown {
		t.Errorf("expected UNKNOWN category, got %s", e.Category)
	}
}

func TestConstructors(t *testing.T) {
	f := NewFactory(3)
	cause := fmt.Errorf("boom")

	tests := []struct {
		name      string
		err       *AppError
		code      ErrorCode
		category  Category
		retryable bool
	}{
		{"WorkspaceNotFound", f.WorkspaceNotFound("ws-1"), CodeWorkspaceNotFound, CategoryWorkspace, false},
		{"ServiceCreationFailed", f.ServiceCreationFailed("gmail", cause), CodeServiceCreationFailed, CategoryService, true},
		{"NetworkUnreachable", f.NetworkUnreachable("https://example.com"), CodeNetworkUnreachable, CategoryNetwork, true},
		{"ConnectionTimeout", f.ConnectionTimeout("https://example.com", time.Second), CodeConnectionTimeout, CategoryNetwork, true},
		{"FileNotFound", f.FileNotFound("/tmp/x"), CodeFileNotFound, CategoryFilesystem, false},
		{"PermissionDenied", f.PermissionDenied("/etc"), CodePermissionDenied, CategoryFilesystem, false},
		{"ConfigLoadFailed", f.ConfigLoadFailed("cfg.yaml", cause), CodeConfigLoadFailed, CategoryConfiguration, false},
		{"AuthenticationFailed", f.AuthenticationFailed("imap"), CodeAuthenticationFailed, CategoryAuthentication, false},
		{"SecurityViolation", f.SecurityViolation("script injection"), CodeSecurityViolation, CategorySecurity, false},
		{"MemoryExhausted", f.MemoryExhausted(), CodeMemoryExhausted, CategorySystem, false},
		{"CircuitOpen", f.CircuitOpen("mail:send"), CodeCircuitOpen, CategoryService, false},
		{"OfflineQueued", f.OfflineQueued("mail", "queue:1"), CodeOfflineQueued, CategorySync, false},
		{"UnknownError", f.UnknownError(cause), CodeUnknown, CategoryUnknown, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Code != tt.code {
				t.Errorf("code = %s, want %s", tt.err.Code, tt.code)
			}
			if tt.err.Category != tt.category {
				t.Errorf("category = %s, want %s", tt.err.Category, tt.category)
			}
			if tt.err.Retryable != tt.retryable {
				t.Errorf("retryable = %v, want %v", tt.err.Retryable, tt.retryable)
			}
			if tt.err.UserMessage == "" {
				t.Error("expected user message")
			}
		})
	}
}

func TestAppError_Retry(t *testing.T) {
	e := NewFactory(2).NetworkUnreachable("x")

	if err := e.Retry(); err != nil {
		t.Fatalf("first retry: %v", err)
	}
	if err := e.Retry(); err != nil {
		t.Fatalf("second retry: %v", err)
	}
	if err := e.Retry(); err != ErrRetriesExhausted {
		t.Fatalf("expected ErrRetriesExhausted, got %v", err)
	}
	if e.RetryCount != 2 {
		t.Errorf("RetryCount = %d, want 2", e.RetryCount)
	}

	nr := NewFactory(2).SecurityViolation("x")
	if err := nr.Retry(); err != ErrNotRetryable {
		t.Fatalf("expected ErrNotRetryable, got %v", err)
	}
	if nr.RetryCount != 0 {
		t.Error("non-retryable error must not be mutated")
	}
}

func TestAppError_IsAndWrapping(t *testing.T) {
	e := NewFactory(3).CircuitOpen("op")
	wrapped := fmt.Errorf("call failed: %w", e)

	if !IsAppError(wrapped) {
		t.Fatal("expected wrapped AppError to be detected")
	}
	if !HasCode(wrapped, CodeCircuitOpen) {
		t.Error("expected HasCode to see through wrapping")
	}
	if !stderrors.Is(wrapped, &AppError{Code: CodeCircuitOpen}) {
		t.Error("expected errors.Is to match by code")
	}
	if stderrors.Is(wrapped, &AppError{Code: CodeUnknown}) {
		t.Error("expected errors.Is to reject a different code")
	}
}

func TestClassifyMessage_RuleOrder(t *testing.T) {
	tests := []struct {
		msg  string
		want ErrorCode
	}{
		{"Failed to fetch", CodeNetworkUnreachable},
		{"network timeout", CodeNetworkUnreachable},
		{"request timeout", CodeConnectionTimeout},
		{"timeout: connection refused", CodeConnectionTimeout},
		{"connect ECONNREFUSED 127.0.0.1:993", CodeConnectionTimeout},
		{"EACCES: permission denied", CodePermissionDenied},
		{"permission denied: file not found", CodePermissionDenied},
		{"ENOENT: no such file", CodeFileNotFound},
		{"mailbox not found", CodeFileNotFound},
		{"JavaScript heap out of memory", CodeMemoryExhausted},
		{"something odd", CodeUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			if got := ClassifyMessage(tt.msg); got != tt.want {
				t.Errorf("ClassifyMessage(%q) = %s, want %s", tt.msg, got, tt.want)
			}
		})
	}
}

func TestClassify(t *testing.T) {
	f := NewFactory(3)

	if f.Classify(nil) != nil {
		t.Error("nil error must classify to nil")
	}

	existing := f.DiskFull("/data")
	if got := f.Classify(fmt.Errorf("wrap: %w", existing)); got != existing {
		t.Error("existing AppError must pass through unchanged")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 0)
	defer cancel()
	<-ctx.Done()
	if got := f.Classify(ctx.Err()); got.Code != CodeConnectionTimeout {
		t.Errorf("deadline exceeded -> %s", got.Code)
	}

	_, statErr := os.Stat("/definitely/not/here")
	if got := f.Classify(statErr); got.Code != CodeFileNotFound {
		t.Errorf("os.ErrNotExist -> %s", got.Code)
	}

	raw := fmt.Errorf("weird failure")
	got := f.Classify(raw)
	if got.Code != CodeUnknown || !got.Retryable {
		t.Errorf("unmatched error -> %s retryable=%v", got.Code, got.Retryable)
	}
	if got.Cause != raw {
		t.Error("expected original error as cause")
	}
}

func TestManager_HandleRecordsAndPublishes(t *testing.T) {
	bus := events.NewBus[ErrorEvent]()
	var seen []ErrorCode
	bus.Subscribe(func(e ErrorEvent) { seen = append(seen, e.Error.Code) })

	m := NewManager(NewFactory(3), WithBus(bus))
	m.Handle(fmt.Errorf("network down"))
	m.Handle(fmt.Errorf("EACCES"))
	m.Handle(nil)

	if len(seen) != 2 || seen[0] != CodeNetworkUnreachable || seen[1] != CodePermissionDenied {
		t.Fatalf("unexpected events: %v", seen)
	}

	stats := m.Stats()
	if stats.Total != 2 {
		t.Errorf("Total = %d, want 2", stats.Total)
	}
	if stats.ByCategory[CategoryNetwork] != 1 || stats.ByCategory[CategoryFilesystem] != 1 {
		t.Errorf("unexpected category counts: %v", stats.ByCategory)
	}

	m.Clear()
	if len(m.History()) != 0 {
		t.Error("expected empty history after Clear")
	}
}

func TestManager_HistoryEvictsOldest(t *testing.T) {
	m := NewManager(NewFactory(3), WithHistoryCapacity(3))
	for i := 0; i < 5; i++ {
		m.Handle(fmt.Errorf("failure %d", i))
	}
	h := m.History()
	if len(h) != 3 {
		t.Fatalf("len = %d, want 3", len(h))
	}
	if h[0].TechnicalMessage != "failure 2" || h[2].TechnicalMessage != "failure 4" {
		t.Errorf("unexpected retained window: %q .. %q", h[0].TechnicalMessage, h[2].TechnicalMessage)
	}
}

func TestManager_DefaultCapacity(t *testing.T) {
	m := NewManager(nil)
	for i := 0; i < DefaultHistoryCapacity+10; i++ {
		m.Handle(fmt.Errorf("failure %d", i))
	}
	if n := len(m.History()); n != DefaultHistoryCapacity {
		t.Errorf("len = %d, want %d", n, DefaultHistoryCapacity)
	}
}

func TestEnvelope_RoundTrip(t *testing.T) {
	f := NewFactory(3)
	for _, code := range Codes() {
		t.Run(string(code), func(t *testing.T) {
			orig := f.New(code, "technical detail", WithOperation("mail:send"), WithCause(fmt.Errorf("hidden")))
			if orig.Retryable {
				_ = orig.Retry()
			}

			data, err := MarshalEnvelope(orig)
			if err != nil {
				t.Fatalf("marshal: %v", err)
			}
			got, err := UnmarshalEnvelope(data)
			if err != nil {
				t.Fatalf("unmarshal: %v", err)
			}

			if got.Code != orig.Code || got.Severity != orig.Severity ||
				got.UserMessage != orig.UserMessage || got.RetryCount != orig.RetryCount {
				t.Errorf("round trip mismatch: %+v vs %+v", got, orig)
			}
			if got.Cause != nil {
				t.Error("cause must not cross the boundary")
			}
		})
	}
}

func TestEnvelope_DecodedActionsCarryOnlyWireFields(t *testing.T) {
	orig := NewFactory(3).ConfigInvalid("bad retry settings")
	hasDestructive := false
	for _, a := range orig.RecoveryActions {
		hasDestructive = hasDestructive || a.Destructive
	}
	if !hasDestructive {
		t.Fatal("CONFIG_INVALID should offer a destructive action")
	}

	data, err := MarshalEnvelope(orig)
	if err != nil {
		t.Fatal(err)
	}
	got, err := UnmarshalEnvelope(data)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.RecoveryActions) != len(orig.RecoveryActions) {
		t.Fatalf("actions = %+v", got.RecoveryActions)
	}
	for i, a := range got.RecoveryActions {
		if a.Destructive != orig.RecoveryActions[i].Destructive || a.Label != orig.RecoveryActions[i].Label {
			t.Errorf("action %d = %+v, want %+v", i, a, orig.RecoveryActions[i])
		}
		if a.RequiresConfirmation {
			t.Errorf("action %d: requiresConfirmation is not on the wire and must stay false", i)
		}
	}
}

func TestEnvelope_WireShape(t *testing.T) {
	e := NewFactory(3).NetworkUnreachable("https://example.com", WithOperation("sync"), WithCause(fmt.Errorf("secret stack")))
	data, err := MarshalEnvelope(e)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if strings.Contains(string(data), "secret stack") {
		t.Error("cause leaked into envelope")
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if raw["success"] != false {
		t.Error("expected success=false")
	}
	body := raw["error"].(map[string]any)
	for _, key := range []string{"id", "code", "category", "severity", "userMessage", "technicalMessage", "isRetryable", "recoveryActions", "context", "retryCount", "maxRetries"} {
		if _, ok := body[key]; !ok {
			t.Errorf("missing key %q", key)
		}
	}
	ctx := body["context"].(map[string]any)
	if ctx["operation"] != "sync" {
		t.Errorf("context.operation = %v", ctx["operation"])
	}
	if _, err := time.Parse(time.RFC3339, ctx["timestamp"].(string)); err != nil {
		t.Errorf("timestamp not ISO-8601: %v", err)
	}
	actions := body["recoveryActions"].([]any)
	first := actions[0].(map[string]any)
	if _, ok := first["id"]; !ok {
		t.Error("action descriptor missing id")
	}
	if _, ok := first["label"]; !ok {
		t.Error("action descriptor missing label")
	}
}

func TestFromEnvelope_RejectsSuccess(t *testing.T) {
	if _, err := FromEnvelope(Envelope{Success: true}); err == nil {
		t.Error("expected error for success envelope")
	}
}
