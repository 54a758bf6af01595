package errors

import (
	stderrors "errors"
	"fmt"
	"time"
)

// Retry bookkeeping errors.
var (
	ErrNotRetryable     = stderrors.New("error is not retryable")
	ErrRetriesExhausted = stderrors.New("retry budget exhausted")
)

// ErrorContext records where an error happened.
type ErrorContext struct {
	Operation   string         `json:"operation,omitempty"`
	Component   string         `json:"component,omitempty"`
	WorkspaceID string         `json:"workspaceId,omitempty"`
	ServiceID   string         `json:"serviceId,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	Timestamp   time.Time      `json:"timestamp"`
}

// AppError is the canonical, classified representation of a failure.
// Identity and classification are fixed at construction; only RetryCount
// changes afterwards, through Retry.
type AppError struct {
	ID               string
	Code             ErrorCode
	Category         Category
	Severity         Severity
	UserMessage      string
	TechnicalMessage string
	Context          ErrorContext
	Retryable        bool
	RecoveryActions  []RecoveryAction
	Cause            error
	RetryCount       int
	MaxRetries       int
}

// Error returns the diagnostic form of the error.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.TechnicalMessage, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.TechnicalMessage)
}

// Unwrap returns the underlying cause.
func (e *AppError) Unwrap() error { return e.Cause }

// Is matches another *AppError carrying the same code, so
// errors.Is(err, &AppError{Code: CodeCircuitOpen}) works through wrapping.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return t.ID == "" && t.Code == e.Code
}

// Retry consumes one unit of the retry budget. It returns ErrNotRetryable
// or ErrRetriesExhausted without mutating the error when no retry is allowed.
func (e *AppError) Retry() error {
	if !e.Retryable {
		return ErrNotRetryable
	}
	if e.RetryCount >= e.MaxRetries {
		return ErrRetriesExhausted
	}
	e.RetryCount++
	return nil
}

// Option customises an AppError at construction.
type Option func(*AppError)

// WithOperation records the logical operation that failed.
func WithOperation(op string) Option {
	return func(e *AppError) { e.Context.Operation = op }
}

// WithComponent records the component that caught the failure.
func WithComponent(component string) Option {
	return func(e *AppError) { e.Context.Component = component }
}

// WithWorkspace records the related workspace.
func WithWorkspace(id string) Option {
	return func(e *AppError) { e.Context.WorkspaceID = id }
}

// WithService records the related service.
func WithService(id string) Option {
	return func(e *AppError) { e.Context.ServiceID = id }
}

// WithMetadata adds a free-form context value.
func WithMetadata(key string, value any) Option {
	return func(e *AppError) {
		if e.Context.Metadata == nil {
			e.Context.Metadata = make(map[string]any)
		}
		e.Context.Metadata[key] = value
	}
}

// WithCause wraps the original error.
func WithCause(cause error) Option {
	return func(e *AppError) { e.Cause = cause }
}

// WithUserMessage overrides the default display text.
func WithUserMessage(msg string) Option {
	return func(e *AppError) {
		if msg != "" {
			e.UserMessage = msg
		}
	}
}

// WithActions replaces the default recovery actions.
func WithActions(actions ...RecoveryAction) Option {
	return func(e *AppError) { e.RecoveryActions = actions }
}

// WithSeverity overrides the default severity.
func WithSeverity(s Severity) Option {
	return func(e *AppError) { e.Severity = s }
}

// HasCode reports whether err is, or wraps, an AppError with code.
func HasCode(err error, code ErrorCode) bool {
	appErr, ok := AsAppError(err)
	return ok && appErr.Code == code
}

// IsAppError checks if an error is an AppError.
func IsAppError(err error) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr)
}

// AsAppError converts an error to an AppError if possible.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}
