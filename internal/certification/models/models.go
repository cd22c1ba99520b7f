package models

import (
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	dErrors "calibra/pkg/domain-errors"
)

// SuccessResult is the decoded outcome that authorizes issuance.
const SuccessResult uint64 = 1

// MaxResponseBytes is the width of an ABI uint256 word.
const MaxResponseBytes = 32

// Handle is the opaque correlation identifier minted by the transport.
type Handle string

func (h Handle) String() string { return string(h) }

// TokenID identifies an issued certificate in the external ledger.
type TokenID string

// VerificationRequest is the state kept between Initiate and Deliver.
// Recipient and ContentReference are fixed at creation; only Result,
// Fulfilled and FulfilledAt change, and only once.
type VerificationRequest struct {
	Handle           Handle
	Subject          string
	Recipient        string
	ContentReference string
	Result           uint64
	Fulfilled        bool
	CreatedAt        time.Time
	FulfilledAt      *time.Time
}

// State reports the lifecycle state of a stored request.
func (r *VerificationRequest) State() State {
	if r.Fulfilled {
		return StateFulfilled
	}
	return StatePending
}

// Fulfill applies the single legal transition.
func (r *VerificationRequest) Fulfill(result uint64, at time.Time) {
	r.Fulfilled = true
	r.Result = result
	r.FulfilledAt = &at
}

type State string

const (
	StateUnknown   State = "unknown"
	StatePending   State = "pending"
	StateFulfilled State = "fulfilled"
)

// Query is what the orchestrator hands to the verification transport.
type Query struct {
	Source           string
	Args             []string
	SecretsReference string
}

// Callback is the single delivery a transport makes per handle.
type Callback struct {
	Handle   Handle
	Response []byte
	Err      []byte
}

// HasResponse reports whether the callback takes the response branch. A
// callback carrying both payloads prefers the response; one carrying
// neither takes the error branch with an empty error.
func (c Callback) HasResponse() bool {
	return len(c.Response) > 0
}

// Outcome is the branch a fulfilled callback took.
type Outcome string

const (
	OutcomeIssued          Outcome = "issued"
	OutcomeIssuanceFailed  Outcome = "issuance_failed"
	OutcomeRejected        Outcome = "rejected"
	OutcomeTransportFailed Outcome = "transport_failed"
)

var errResultOverflow = errors.New("verification result exceeds uint64")

// DecodeResult reads a big-endian unsigned integer of 1 to 32 bytes, the
// layout of an ABI-encoded uint256. Values that do not fit in uint64 are
// rejected rather than truncated.
func DecodeResult(response []byte) (uint64, error) {
	if len(response) == 0 || len(response) > MaxResponseBytes {
		return 0, dErrors.New(dErrors.CodeInvalidArguments,
			fmt.Sprintf("response must be 1 to %d bytes, got %d", MaxResponseBytes, len(response)))
	}
	v := new(big.Int).SetBytes(response)
	if !v.IsUint64() {
		return 0, dErrors.Wrap(errResultOverflow, dErrors.CodeInvalidArguments, "response does not fit an unsigned 64-bit result")
	}
	return v.Uint64(), nil
}

// EncodeResult is the inverse of DecodeResult, producing a 32-byte word.
func EncodeResult(result uint64) []byte {
	out := make([]byte, MaxResponseBytes)
	new(big.Int).SetUint64(result).FillBytes(out)
	return out
}

// ParseHexPayload accepts "", "0x…" or bare hex.
func ParseHexPayload(s string) ([]byte, error) {
	s = strings.TrimPrefix(strings.TrimPrefix(strings.TrimSpace(s), "0x"), "0X")
	if s == "" {
		return nil, nil
	}
	if len(s)%2 == 1 {
		s = "0" + s
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInvalidArguments, "response is not valid hex")
	}
	return b, nil
}

// RejectionReason is the reason carried by SubjectRejected.
func RejectionReason(result uint64) string {
	if result == 0 {
		return "subject not accredited"
	}
	return fmt.Sprintf("verification returned %d", result)
}

// Settings is the runtime-adjustable configuration of the service.
type Settings struct {
	VerificationSource string `json:"verification_source"`
	IssuerTarget       string `json:"issuer_target"`
	Paused             bool   `json:"paused"`
}
