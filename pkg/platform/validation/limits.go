// Package validation holds trust-boundary size limits for request bodies.
package validation

import (
	"fmt"

	dErrors "calibra/pkg/domain-errors"
)

// MaxBodySize is the default request body limit (64 KB).
const MaxBodySize = 64 * 1024

const (
	// MaxArgs is the maximum number of initiate arguments.
	MaxArgs = 8

	// MaxSubjectLength is the maximum length of a laboratory identifier.
	MaxSubjectLength = 128

	// MaxContentRefLength is the maximum length of a content reference.
	MaxContentRefLength = 2048

	// MaxHandleLength is the maximum length of a correlation handle.
	MaxHandleLength = 130

	// MaxErrorPayloadLength is the maximum length of a callback error payload.
	MaxErrorPayloadLength = 4096

	// MaxSourceLength is the maximum length of the verification source.
	MaxSourceLength = 32 * 1024

	// MaxTargetLength is the maximum length of an issuer target.
	MaxTargetLength = 2048
)

// CheckSliceCount validates that a slice does not exceed the maximum count.
func CheckSliceCount(fieldName string, count, max int) error {
	if count > max {
		return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("too many %s: max %d allowed", fieldName, max))
	}
	return nil
}

// CheckStringLength validates that a string does not exceed the maximum length.
func CheckStringLength(fieldName, value string, max int) error {
	if len(value) > max {
		return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("%s exceeds max length of %d", fieldName, max))
	}
	return nil
}
