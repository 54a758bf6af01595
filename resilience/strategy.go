package resilience

import (
	"math"
	"slices"
	"time"

	"github.com/kbukum/failsafe/errors"
	"github.com/kbukum/failsafe/validation"
)

// Strategy controls how many times and how patiently an operation is retried.
type Strategy struct {
	MaxAttempts       int           `json:"maxAttempts" validate:"min=1"`
	BaseDelay         time.Duration `json:"baseDelay" validate:"gte=0"`
	MaxDelay          time.Duration `json:"maxDelay" validate:"gtefield=BaseDelay"`
	BackoffMultiplier float64       `json:"backoffMultiplier" validate:"gte=1"`
	JitterRange       float64       `json:"jitterRange" validate:"gte=0,lte=1"`
	// RetryableErrors, when non-empty, limits retries to these codes.
	RetryableErrors []errors.ErrorCode `json:"retryableErrors,omitempty"`
	// NonRetryableErrors are never retried and win over RetryableErrors.
	NonRetryableErrors []errors.ErrorCode `json:"nonRetryableErrors,omitempty"`
}

// Validate checks the strategy's bounds.
func (s Strategy) Validate() error {
	return validation.Validate(s)
}

// ShouldRetry decides whether a failure on the given 1-indexed attempt
// earns another attempt.
func (s Strategy) ShouldRetry(attempt int, err *errors.AppError) bool {
	if attempt >= s.MaxAttempts {
		return false
	}
	if slices.Contains(s.NonRetryableErrors, err.Code) {
		return false
	}
	if len(s.RetryableErrors) > 0 && slices.Contains(s.RetryableErrors, err.Code) {
		return true
	}
	return err.Retryable
}

// BaseDelayFor returns the pre-jitter delay after the given attempt:
// min(BaseDelay × BackoffMultiplier^(attempt-1), MaxDelay).
func (s Strategy) BaseDelayFor(attempt int) time.Duration {
	d := float64(s.BaseDelay) * math.Pow(s.BackoffMultiplier, float64(attempt-1))
	if d >= float64(s.MaxDelay) {
		return s.MaxDelay
	}
	return time.Duration(d)
}

// DelayFor applies symmetric jitter to BaseDelayFor using r drawn from
// [0, 1), clamps at zero and rounds to whole milliseconds.
func (s Strategy) DelayFor(attempt int, r float64) time.Duration {
	d := float64(s.BaseDelayFor(attempt))
	d += d * s.JitterRange * (r - 0.5)
	if d < 0 {
		d = 0
	}
	ms := math.Round(d / float64(time.Millisecond))
	return time.Duration(ms) * time.Millisecond
}

// codesIn lists every registered code of category c.
func codesIn(c errors.Category) []errors.ErrorCode {
	var out []errors.ErrorCode
	for _, code := range errors.Codes() {
		if errors.CategoryOf(code) == c {
			out = append(out, code)
		}
	}
	slices.Sort(out)
	return out
}

func noRetry(c errors.Category) Strategy {
	return Strategy{
		MaxAttempts:        1,
		BackoffMultiplier:  1,
		NonRetryableErrors: codesIn(c),
	}
}

// DefaultCategoryStrategies returns the baseline retry policy per category.
// Categories not listed use the engine default.
func DefaultCategoryStrategies() map[errors.Category]Strategy {
	return map[errors.Category]Strategy{
		errors.CategoryNetwork: {
			MaxAttempts:       4,
			BaseDelay:         time.Second,
			MaxDelay:          30 * time.Second,
			BackoffMultiplier: 2.5,
			JitterRange:       0.3,
			RetryableErrors: []errors.ErrorCode{
				errors.CodeNetworkUnreachable,
				errors.CodeConnectionTimeout,
				errors.CodeConnectionRefused,
				errors.CodeConnectionReset,
				errors.CodeDNSResolutionFailed,
				errors.CodeOffline,
			},
			NonRetryableErrors: []errors.ErrorCode{errors.CodeTLSHandshakeFailed},
		},
		errors.CategoryService: {
			MaxAttempts:        3,
			BaseDelay:          2 * time.Second,
			MaxDelay:           20 * time.Second,
			BackoffMultiplier:  2,
			JitterRange:        0.2,
			NonRetryableErrors: []errors.ErrorCode{errors.CodeCircuitOpen, errors.CodeServiceNotFound},
		},
		errors.CategoryDatabase: {
			MaxAttempts:        3,
			BaseDelay:          500 * time.Millisecond,
			MaxDelay:           5 * time.Second,
			BackoffMultiplier:  2,
			JitterRange:        0.1,
			RetryableErrors:    []errors.ErrorCode{errors.CodeDatabaseLocked, errors.CodeDatabaseQueryFailed, errors.CodeDatabaseConnectionFailed},
			NonRetryableErrors: []errors.ErrorCode{errors.CodeDatabaseCorrupted, errors.CodeMigrationFailed},
		},
		errors.CategoryNativeEngine: {
			MaxAttempts:        3,
			BaseDelay:          time.Second,
			MaxDelay:           10 * time.Second,
			BackoffMultiplier:  2,
			JitterRange:        0.2,
			NonRetryableErrors: []errors.ErrorCode{errors.CodeNativeEngineProtocolError},
		},
		errors.CategorySync: {
			MaxAttempts:        3,
			BaseDelay:          2 * time.Second,
			MaxDelay:           30 * time.Second,
			BackoffMultiplier:  2,
			JitterRange:        0.3,
			NonRetryableErrors: []errors.ErrorCode{errors.CodeSyncConflict, errors.CodeOfflineQueued},
		},
		errors.CategoryFilesystem: {
			MaxAttempts:       2,
			BaseDelay:         100 * time.Millisecond,
			MaxDelay:          500 * time.Millisecond,
			BackoffMultiplier: 2,
			JitterRange:       0.1,
			RetryableErrors:   []errors.ErrorCode{errors.CodeFileLocked},
			NonRetryableErrors: []errors.ErrorCode{
				errors.CodeFileNotFound,
				errors.CodePermissionDenied,
				errors.CodeDiskFull,
				errors.CodeFileCorrupted,
				errors.CodePathInvalid,
			},
		},
		errors.CategoryConfiguration:  noRetry(errors.CategoryConfiguration),
		errors.CategorySecurity:       noRetry(errors.CategorySecurity),
		errors.CategoryAuthentication: noRetry(errors.CategoryAuthentication),
	}
}
