package client

import (
	"context"
	"errors"
)

// ErrorCategory is a stable label for error classification in logs and metrics.
type ErrorCategory string

const (
	ErrorCategoryTimeout   ErrorCategory = "timeout"
	ErrorCategoryTransport ErrorCategory = "transport"
	ErrorCategoryDomain    ErrorCategory = "domain"
	ErrorCategoryUnknown   ErrorCategory = "unknown"
)

// CategorizeError maps a Backend error to an ErrorCategory.
func CategorizeError(err error) ErrorCategory {
	if err == nil {
		return ""
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return ErrorCategoryTimeout
	}
	if errors.Is(err, ErrDomain) {
		return ErrorCategoryDomain
	}
	if errors.Is(err, ErrTransport) {
		return ErrorCategoryTransport
	}
	return ErrorCategoryUnknown
}
