// Package validation checks configuration, retry strategies and boundary
// input, reporting failures as *errors.AppError.
//
// Struct tag validation covers declarative rules:
//
//	type Strategy struct {
//	    MaxAttempts int `validate:"min=1"`
//	}
//	if err := validation.Validate(s); err != nil { ... }
//
// The programmatic Validator covers rules that need code:
//
//	v := validation.New().Required("channel", name).MaxLength("channel", name, 128)
//	if err := v.Validate(); err != nil { ... }
package validation
