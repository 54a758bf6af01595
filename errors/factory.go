package errors

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// DefaultMaxRetries is the retry budget used when none is configured.
const DefaultMaxRetries = 3

// Factory builds AppErrors with the configured retry budget bound in.
type Factory struct {
	maxRetries int
	now        func() time.Time
}

// FactoryOption configures a Factory.
type FactoryOption func(*Factory)

// WithNow overrides the timestamp source.
func WithNow(now func() time.Time) FactoryOption {
	return func(f *Factory) { f.now = now }
}

// NewFactory creates a factory binding maxRetries into every error it builds.
// Values below zero fall back to DefaultMaxRetries.
func NewFactory(maxRetries int, opts ...FactoryOption) *Factory {
	if maxRetries < 0 {
		maxRetries = DefaultMaxRetries
	}
	f := &Factory{maxRetries: maxRetries, now: time.Now}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// MaxRetries returns the bound retry budget.
func (f *Factory) MaxRetries() int { return f.maxRetries }

// New builds an error for code with the code's fixed classification.
func (f *Factory) New(code ErrorCode, technical string, opts ...Option) *AppError {
	def := defFor(code)
	e := &AppError{
		ID:               newID(),
		Code:             code,
		Category:         def.category,
		Severity:         def.severity,
		UserMessage:      def.message,
		TechnicalMessage: technical,
		Context:          ErrorContext{Timestamp: f.now().UTC()},
		Retryable:        def.retryable,
		RecoveryActions:  def.actions(),
		MaxRetries:       f.maxRetries,
	}
	if !e.Retryable {
		e.MaxRetries = 0
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// newID returns a time-ordered unique identifier.
func newID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// --- Constructors ---

// WorkspaceNotFound reports a workspace id that does not exist.
func (f *Factory) WorkspaceNotFound(workspaceID string, opts ...Option) *AppError {
	return f.New(CodeWorkspaceNotFound, fmt.Sprintf("workspace %q not found", workspaceID),
		append([]Option{WithWorkspace(workspaceID)}, opts...)...)
}

// WorkspaceCreationFailed reports a workspace that could not be created.
func (f *Factory) WorkspaceCreationFailed(name string, cause error, opts ...Option) *AppError {
	return f.New(CodeWorkspaceCreationFailed, fmt.Sprintf("creating workspace %q failed", name),
		append([]Option{WithCause(cause), WithMetadata("name", name)}, opts...)...)
}

// ServiceCreationFailed reports a hosted service that could not be started.
func (f *Factory) ServiceCreationFailed(serviceType string, cause error, opts ...Option) *AppError {
	return f.New(CodeServiceCreationFailed, fmt.Sprintf("creating %s service failed", serviceType),
		append([]Option{
			WithCause(cause),
			WithService(serviceType),
			WithUserMessage(fmt.Sprintf("%s could not be started.", serviceType)),
		}, opts...)...)
}

// ServiceLoadFailed reports a hosted service that failed to load its content.
func (f *Factory) ServiceLoadFailed(serviceID, url string, cause error, opts ...Option) *AppError {
	return f.New(CodeServiceLoadFailed, fmt.Sprintf("loading service %s from %s failed", serviceID, url),
		append([]Option{WithCause(cause), WithService(serviceID), WithMetadata("url", url)}, opts...)...)
}

// ServiceUnavailable reports a service that is temporarily down.
func (f *Factory) ServiceUnavailable(serviceID string, opts ...Option) *AppError {
	return f.New(CodeServiceUnavailable, fmt.Sprintf("service %s is unavailable", serviceID),
		append([]Option{
			WithService(serviceID),
			WithUserMessage(fmt.Sprintf("%s is temporarily unavailable. Please try again.", serviceID)),
		}, opts...)...)
}

// NetworkUnreachable reports that a remote endpoint could not be reached.
func (f *Factory) NetworkUnreachable(url string, opts ...Option) *AppError {
	return f.New(CodeNetworkUnreachable, fmt.Sprintf("network unreachable: %s", url),
		append([]Option{WithMetadata("url", url)}, opts...)...)
}

// ConnectionTimeout reports a connection that did not complete in time.
func (f *Factory) ConnectionTimeout(url string, timeout time.Duration, opts ...Option) *AppError {
	return f.New(CodeConnectionTimeout, fmt.Sprintf("connection to %s timed out after %s", url, timeout),
		append([]Option{WithMetadata("url", url), WithMetadata("timeout_ms", timeout.Milliseconds())}, opts...)...)
}

// ConnectionRefused reports an endpoint that actively refused the connection.
func (f *Factory) ConnectionRefused(url string, opts ...Option) *AppError {
	return f.New(CodeConnectionRefused, fmt.Sprintf("connection to %s refused", url),
		append([]Option{WithMetadata("url", url)}, opts...)...)
}

// FileNotFound reports a missing file.
func (f *Factory) FileNotFound(path string, opts ...Option) *AppError {
	return f.New(CodeFileNotFound, fmt.Sprintf("file not found: %s", path),
		append([]Option{WithMetadata("path", path)}, opts...)...)
}

// PermissionDenied reports access denied to a resource.
func (f *Factory) PermissionDenied(resource string, opts ...Option) *AppError {
	return f.New(CodePermissionDenied, fmt.Sprintf("permission denied: %s", resource),
		append([]Option{WithMetadata("resource", resource)}, opts...)...)
}

// DiskFull reports a write that failed for lack of space.
func (f *Factory) DiskFull(path string, opts ...Option) *AppError {
	return f.New(CodeDiskFull, fmt.Sprintf("no space left writing %s", path),
		append([]Option{WithMetadata("path", path)}, opts...)...)
}

// ConfigLoadFailed reports configuration that could not be read.
func (f *Factory) ConfigLoadFailed(path string, cause error, opts ...Option) *AppError {
	return f.New(CodeConfigLoadFailed, fmt.Sprintf("loading configuration from %s failed", path),
		append([]Option{WithCause(cause), WithMetadata("path", path)}, opts...)...)
}

// ConfigInvalid reports configuration that failed validation.
func (f *Factory) ConfigInvalid(reason string, opts ...Option) *AppError {
	return f.New(CodeConfigInvalid, fmt.Sprintf("invalid configuration: %s", reason), opts...)
}

// AuthenticationFailed reports rejected credentials for a service.
func (f *Factory) AuthenticationFailed(serviceID string, opts ...Option) *AppError {
	return f.New(CodeAuthenticationFailed, fmt.Sprintf("authentication with %s failed", serviceID),
		append([]Option{WithService(serviceID)}, opts...)...)
}

// TokenExpired reports an expired session for a service.
func (f *Factory) TokenExpired(serviceID string, opts ...Option) *AppError {
	return f.New(CodeTokenExpired, fmt.Sprintf("session token for %s expired", serviceID),
		append([]Option{WithService(serviceID)}, opts...)...)
}

// SecurityViolation reports an action blocked by a security policy.
func (f *Factory) SecurityViolation(description string, opts ...Option) *AppError {
	return f.New(CodeSecurityViolation, fmt.Sprintf("security violation: %s", description), opts...)
}

// MemoryExhausted reports the process running out of memory.
func (f *Factory) MemoryExhausted(opts ...Option) *AppError {
	return f.New(CodeMemoryExhausted, "memory exhausted", opts...)
}

// RateLimitExceeded reports a caller exceeding its call budget.
func (f *Factory) RateLimitExceeded(key string, limit int, window time.Duration, opts ...Option) *AppError {
	return f.New(CodeRateLimitExceeded, fmt.Sprintf("rate limit of %d calls per %s exceeded for %s", limit, window, key),
		append([]Option{WithMetadata("key", key)}, opts...)...)
}

// OperationTimeout reports an operation that lost the race against its timer.
func (f *Factory) OperationTimeout(operation string, timeout time.Duration, opts ...Option) *AppError {
	return f.New(CodeOperationTimeout, fmt.Sprintf("operation %s timed out after %s", operation, timeout),
		append([]Option{WithOperation(operation), WithMetadata("timeout_ms", timeout.Milliseconds())}, opts...)...)
}

// CircuitOpen reports a call rejected by an open circuit breaker.
func (f *Factory) CircuitOpen(operationID string, opts ...Option) *AppError {
	return f.New(CodeCircuitOpen, fmt.Sprintf("circuit breaker open for %s", operationID),
		append([]Option{WithOperation(operationID)}, opts...)...)
}

// InvalidResponse reports a malformed reply from a handler or service.
func (f *Factory) InvalidResponse(reason string, opts ...Option) *AppError {
	return f.New(CodeInvalidResponse, fmt.Sprintf("invalid response: %s", reason), opts...)
}

// ChannelNotFound reports an invocation of an unregistered channel.
func (f *Factory) ChannelNotFound(channel string, opts ...Option) *AppError {
	return f.New(CodeChannelNotFound, fmt.Sprintf("no handler registered for channel %s", channel),
		append([]Option{WithOperation(channel)}, opts...)...)
}

// PluginLoadFailed reports an extension that failed to load.
func (f *Factory) PluginLoadFailed(plugin string, cause error, opts ...Option) *AppError {
	return f.New(CodePluginLoadFailed, fmt.Sprintf("loading plugin %s failed", plugin),
		append([]Option{WithCause(cause), WithMetadata("plugin", plugin)}, opts...)...)
}

// DatabaseQueryFailed reports a failed local database query.
func (f *Factory) DatabaseQueryFailed(query string, cause error, opts ...Option) *AppError {
	return f.New(CodeDatabaseQueryFailed, fmt.Sprintf("query %s failed", query),
		append([]Option{WithCause(cause)}, opts...)...)
}

// NativeEngineUnavailable reports the native engine process being unreachable.
func (f *Factory) NativeEngineUnavailable(cause error, opts ...Option) *AppError {
	return f.New(CodeNativeEngineUnavailable, "native engine unavailable",
		append([]Option{WithCause(cause)}, opts...)...)
}

// OfflineQueued reports a write that was queued for later delivery.
func (f *Factory) OfflineQueued(serviceID, correlationID string, opts ...Option) *AppError {
	return f.New(CodeOfflineQueued, fmt.Sprintf("%s unavailable, operation queued as %s", serviceID, correlationID),
		append([]Option{WithService(serviceID), WithMetadata("correlation_id", correlationID)}, opts...)...)
}

// UnknownError wraps a failure no rule could classify.
func (f *Factory) UnknownError(cause error, opts ...Option) *AppError {
	technical := "unknown error"
	if cause != nil {
		technical = cause.Error()
	}
	return f.New(CodeUnknown, technical, append([]Option{WithCause(cause)}, opts...)...)
}

// PayloadTooLarge reports a body that exceeded the transport size limit.
func (f *Factory) PayloadTooLarge(size, limit int, opts ...Option) *AppError {
	return f.New(CodePayloadTooLarge, fmt.Sprintf("payload of %d bytes exceeds limit of %d", size, limit),
		append([]Option{WithMetadata("size", size), WithMetadata("limit", limit)}, opts...)...)
}
