package logger

import (
	"time"
)

// Standard field keys used by failsafe components.
const (
	FieldComponent     = "component"
	FieldOperation     = "operation"
	FieldOperationID   = "operation_id"
	FieldCorrelationID = "correlation_id"
	FieldAttempt       = "attempt"
	FieldDelay         = "delay_ms"
	FieldChannel       = "channel"
	FieldService       = "service"
	FieldErrorID       = "error_id"
	FieldErrorCode     = "error_code"
	FieldCategory      = "category"
	FieldSeverity      = "severity"
	FieldState         = "state"
	FieldLevel         = "level"
	FieldKey           = "key"
	FieldError         = "error"
	FieldDuration      = "duration_ms"
)

// Fields builds a map from alternating key-value pairs.
// Non-string keys and a trailing odd value are ignored.
//
//	log.Info("replayed", logger.Fields("processed", 2, "failed", 0))
func Fields(kvs ...any) map[string]any {
	m := make(map[string]any, len(kvs)/2)
	for i := 0; i < len(kvs)-1; i += 2 {
		if key, ok := kvs[i].(string); ok {
			m[key] = kvs[i+1]
		}
	}
	return m
}

// ErrorFields creates fields for an operation that failed.
func ErrorFields(op string, err error) map[string]any {
	m := map[string]any{FieldOperation: op}
	if err != nil {
		m[FieldError] = err.Error()
	}
	return m
}

// DurationFields creates fields for a timed operation.
func DurationFields(op string, d time.Duration) map[string]any {
	return map[string]any{
		FieldOperation: op,
		FieldDuration:  d.Milliseconds(),
	}
}
