package transport

import (
	"errors"
	"fmt"
)

// ErrorCategory is the normalized failure taxonomy for submissions.
type ErrorCategory string

const (
	ErrorTimeout        ErrorCategory = "timeout"
	ErrorBadData        ErrorCategory = "bad_data"
	ErrorAuthentication ErrorCategory = "authentication"
	ErrorOutage         ErrorCategory = "outage"
	ErrorRateLimited    ErrorCategory = "rate_limited"
	ErrorInternal       ErrorCategory = "internal"
)

// Error wraps a submission failure with its category.
type Error struct {
	Category   ErrorCategory
	Transport  string
	Message    string
	Underlying error
}

func (e *Error) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("transport %s [%s]: %s: %v", e.Transport, e.Category, e.Message, e.Underlying)
	}
	return fmt.Sprintf("transport %s [%s]: %s", e.Transport, e.Category, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Underlying
}

func NewError(category ErrorCategory, transport, message string, underlying error) *Error {
	return &Error{
		Category:   category,
		Transport:  transport,
		Message:    message,
		Underlying: underlying,
	}
}

// CategoryOf extracts the category, defaulting to ErrorInternal.
func CategoryOf(err error) ErrorCategory {
	var te *Error
	if errors.As(err, &te) {
		return te.Category
	}
	return ErrorInternal
}
