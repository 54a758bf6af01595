package errors

import (
	"context"
	stderrors "errors"
	"net"
	"os"
	"strings"
	"syscall"
)

// classifyRule maps message fragments to a code. Rules are evaluated in
// order and the first match wins.
type classifyRule struct {
	needles []string
	code    ErrorCode
}

var classifyRules = []classifyRule{
	{[]string{"network", "fetch"}, CodeNetworkUnreachable},
	{[]string{"timeout", "timed out"}, CodeConnectionTimeout},
	{[]string{"refused", "econnrefused"}, CodeConnectionTimeout},
	{[]string{"permission", "eacces"}, CodePermissionDenied},
	{[]string{"enoent", "not found"}, CodeFileNotFound},
	{[]string{"memory", "heap"}, CodeMemoryExhausted},
}

// ClassifyMessage maps a free-form failure message to a code using the
// ordered heuristic rules. Unmatched messages yield CodeUnknown.
func ClassifyMessage(msg string) ErrorCode {
	lower := strings.ToLower(msg)
	for _, rule := range classifyRules {
		for _, needle := range rule.needles {
			if strings.Contains(lower, needle) {
				return rule.code
			}
		}
	}
	return CodeUnknown
}

// classifyStructured recognises typed errors before falling back to text.
func classifyStructured(err error) (ErrorCode, bool) {
	switch {
	case stderrors.Is(err, context.DeadlineExceeded):
		return CodeConnectionTimeout, true
	case stderrors.Is(err, os.ErrNotExist):
		return CodeFileNotFound, true
	case stderrors.Is(err, os.ErrPermission):
		return CodePermissionDenied, true
	case stderrors.Is(err, syscall.ECONNREFUSED):
		return CodeConnectionTimeout, true
	case stderrors.Is(err, syscall.ENOSPC):
		return CodeDiskFull, true
	}
	var netErr net.Error
	if stderrors.As(err, &netErr) && netErr.Timeout() {
		return CodeConnectionTimeout, true
	}
	return "", false
}

// Classify converts any error into an AppError. AppErrors anywhere in the
// chain are returned unchanged; everything else is classified and keeps the
// original error as its cause. A nil error yields nil.
func (f *Factory) Classify(err error, opts ...Option) *AppError {
	if err == nil {
		return nil
	}
	if appErr, ok := AsAppError(err); ok {
		return appErr
	}

	code, ok := classifyStructured(err)
	if !ok {
		code = ClassifyMessage(err.Error())
	}
	return f.New(code, err.Error(), append([]Option{WithCause(err)}, opts...)...)
}

var defaultFactory = NewFactory(DefaultMaxRetries)

// Classify converts err using a factory with the default retry budget.
func Classify(err error, opts ...Option) *AppError {
	return defaultFactory.Classify(err, opts...)
}
