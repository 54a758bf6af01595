package errors

import (
	"encoding/json"
	"fmt"
	"time"
)

// TimestampLayout is the ISO-8601 form used for envelope timestamps.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// Envelope is the wire shape every invocation result crosses the process
// boundary in.
type Envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   *EnvelopeError  `json:"error,omitempty"`
}

// EnvelopeError is the serialized form of an AppError. Causes and stack
// details never appear in it.
type EnvelopeError struct {
	ID               string             `json:"id"`
	Code             ErrorCode          `json:"code"`
	Category         Category           `json:"category"`
	Severity         Severity           `json:"severity"`
	UserMessage      string             `json:"userMessage"`
	TechnicalMessage string             `json:"technicalMessage"`
	IsRetryable      bool               `json:"isRetryable"`
	RecoveryActions  []ActionDescriptor `json:"recoveryActions"`
	Context          EnvelopeContext    `json:"context"`
	RetryCount       int                `json:"retryCount"`
	MaxRetries       int                `json:"maxRetries"`
}

// ActionDescriptor identifies a recovery action. The receiving side resolves
// it to behaviour by ID or Type.
type ActionDescriptor struct {
	ID          string     `json:"id"`
	Type        ActionType `json:"type,omitempty"`
	Label       string     `json:"label"`
	Primary     bool       `json:"primary,omitempty"`
	Destructive bool       `json:"destructive,omitempty"`
}

// EnvelopeContext is the subset of ErrorContext that crosses the boundary.
type EnvelopeContext struct {
	Operation string `json:"operation,omitempty"`
	Component string `json:"component,omitempty"`
	Timestamp string `json:"timestamp"`
}

// ToEnvelope serializes e into a failure envelope.
func ToEnvelope(e *AppError) Envelope {
	actions := make([]ActionDescriptor, 0, len(e.RecoveryActions))
	for _, a := range e.RecoveryActions {
		actions = append(actions, ActionDescriptor{
			ID:          a.ID,
			Type:        a.Type,
			Label:       a.Label,
			Primary:     a.Primary,
			Destructive: a.Destructive,
		})
	}
	ts := e.Context.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	return Envelope{
		Success: false,
		Error: &EnvelopeError{
			ID:               e.ID,
			Code:             e.Code,
			Category:         e.Category,
			Severity:         e.Severity,
			UserMessage:      e.UserMessage,
			TechnicalMessage: e.TechnicalMessage,
			IsRetryable:      e.Retryable,
			RecoveryActions:  actions,
			Context: EnvelopeContext{
				Operation: e.Context.Operation,
				Component: e.Context.Component,
				Timestamp: ts.UTC().Format(TimestampLayout),
			},
			RetryCount: e.RetryCount,
			MaxRetries: e.MaxRetries,
		},
	}
}

// SuccessEnvelope wraps data in a success envelope.
func SuccessEnvelope(data any) (Envelope, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Envelope{}, fmt.Errorf("marshal envelope data: %w", err)
	}
	return Envelope{Success: true, Data: raw}, nil
}

// FromEnvelope rebuilds an AppError from a failure envelope. Actions come
// back as descriptors; Cause is always nil.
func FromEnvelope(env Envelope) (*AppError, error) {
	if env.Success || env.Error == nil {
		return nil, fmt.Errorf("envelope carries no error")
	}
	w := env.Error
	e := &AppError{
		ID:               w.ID,
		Code:             w.Code,
		Category:         w.Category,
		Severity:         w.Severity,
		UserMessage:      w.UserMessage,
		TechnicalMessage: w.TechnicalMessage,
		Retryable:        w.IsRetryable,
		RetryCount:       w.RetryCount,
		MaxRetries:       w.MaxRetries,
		Context: ErrorContext{
			Operation: w.Context.Operation,
			Component: w.Context.Component,
		},
	}
	if w.Context.Timestamp != "" {
		ts, err := time.Parse(TimestampLayout, w.Context.Timestamp)
		if err != nil {
			return nil, fmt.Errorf("parse envelope timestamp: %w", err)
		}
		e.Context.Timestamp = ts
	}
	for _, a := range w.RecoveryActions {
		e.RecoveryActions = append(e.RecoveryActions, RecoveryAction{
			ID:          a.ID,
			Type:        a.Type,
			Label:       a.Label,
			Primary:     a.Primary,
			Destructive: a.Destructive,
		})
	}
	return e, nil
}

// MarshalEnvelope encodes e as a failure envelope.
func MarshalEnvelope(e *AppError) ([]byte, error) {
	return json.Marshal(ToEnvelope(e))
}

// UnmarshalEnvelope decodes a failure envelope back into an AppError.
func UnmarshalEnvelope(data []byte) (*AppError, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}
	return FromEnvelope(env)
}
