package validation

import (
	"regexp"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/kbukum/failsafe/errors"
)

func TestValidatorRequired(t *testing.T) {
	v := New()
	v.Required("name", "mail:send")
	if v.HasErrors() {
		t.Error("expected no errors for valid input")
	}

	v2 := New()
	v2.Required("name", "   ")
	if !v2.HasErrors() {
		t.Error("expected error for whitespace-only required field")
	}
}

func TestValidatorRequiredUUID(t *testing.T) {
	v := New()
	v.RequiredUUID("id", uuid.New().String())
	if v.HasErrors() {
		t.Errorf("expected no errors for valid UUID, got %v", v.Errors())
	}

	for _, bad := range []string{"", "not-a-uuid", uuid.Nil.String()} {
		v := New().RequiredUUID("id", bad)
		if !v.HasErrors() {
			t.Errorf("expected error for %q", bad)
		}
	}
}

func TestValidatorMaxLength(t *testing.T) {
	if New().MaxLength("f", "abc", 3).HasErrors() {
		t.Error("expected no error at the limit")
	}
	if !New().MaxLength("f", "abcd", 3).HasErrors() {
		t.Error("expected error past the limit")
	}
}

func TestValidatorPattern(t *testing.T) {
	re := regexp.MustCompile(`^[a-z]+:[a-z]+$`)
	if New().Pattern("channel", "mail:send", re).HasErrors() {
		t.Error("expected match")
	}
	if !New().Pattern("channel", "Mail Send", re).HasErrors() {
		t.Error("expected mismatch")
	}
	if New().Pattern("channel", "", re).HasErrors() {
		t.Error("empty value should be skipped")
	}
}

func TestValidatorValidate(t *testing.T) {
	if err := New().Validate(); err != nil {
		t.Errorf("expected nil, got %v", err)
	}

	err := New().Required("a", "").Custom(false, "b", "is wrong").Validate()
	if err == nil {
		t.Fatal("expected error")
	}
	if err.Code != errors.CodeInvalidInput {
		t.Errorf("code = %s, want %s", err.Code, errors.CodeInvalidInput)
	}
	if !strings.Contains(err.TechnicalMessage, "a: is required") || !strings.Contains(err.TechnicalMessage, "b: is wrong") {
		t.Errorf("unexpected message: %s", err.TechnicalMessage)
	}
	if _, ok := err.Context.Metadata["fields"]; !ok {
		t.Error("expected fields metadata")
	}
}

type sample struct {
	Name     string  `mapstructure:"name" validate:"required"`
	Attempts int     `mapstructure:"max_attempts" validate:"min=1,max=10"`
	Jitter   float64 `json:"jitter" validate:"gte=0,lte=1"`
	Mode     string  `validate:"omitempty,oneof=file redis"`
}

func TestStructValidateValid(t *testing.T) {
	if err := Validate(sample{Name: "x", Attempts: 3, Jitter: 0.2, Mode: "file"}); err != nil {
		t.Errorf("expected no error, got %v", err)
	}
}

func TestStructValidateInvalid(t *testing.T) {
	err := Validate(sample{Attempts: 0, Jitter: 1.5, Mode: "disk"})
	if err == nil {
		t.Fatal("expected error")
	}
	appErr, ok := errors.AsAppError(err)
	if !ok {
		t.Fatalf("expected AppError, got %T", err)
	}
	for _, want := range []string{"name: is required", "max_attempts: must be at least 1", "jitter: must be less than or equal to 1", "mode: must be one of"} {
		if !strings.Contains(appErr.TechnicalMessage, want) {
			t.Errorf("message %q missing %q", appErr.TechnicalMessage, want)
		}
	}
}

func TestValidateConfigCode(t *testing.T) {
	err := ValidateConfig(sample{})
	if !errors.HasCode(err, errors.CodeConfigInvalid) {
		t.Errorf("expected CONFIG_INVALID, got %v", err)
	}
	if appErr, _ := errors.AsAppError(err); appErr.Retryable {
		t.Error("config errors must not be retryable")
	}
}

func TestToSnakeCase(t *testing.T) {
	if got := toSnakeCase("MaxAttempts"); got != "max_attempts" {
		t.Errorf("got %s", got)
	}
}

func TestChannel(t *testing.T) {
	tests := []struct {
		name    string
		channel string
		valid   bool
	}{
		{"plain", "mail-send", true},
		{"namespaced", "calendar:events.list", true},
		{"empty", "", false},
		{"blank", "   ", false},
		{"slash", "mail/send", false},
		{"space", "mail send", false},
		{"leading dot", ".hidden", false},
		{"too long", strings.Repeat("a", MaxChannelLength+1), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New().Channel("channel", tt.channel).Validate()
			if tt.valid && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if !tt.valid && !errors.HasCode(err, errors.CodeInvalidInput) {
				t.Errorf("expected INVALID_INPUT, got %v", err)
			}
		})
	}
}
