package handler

import (
	"strings"
	"time"

	"calibra/internal/certification/models"
	dErrors "calibra/pkg/domain-errors"
	"calibra/pkg/platform/validation"
)

// InitiateRequest carries args[0] = subject, args[1] = content reference.
// Arity is checked by the service so short lists surface as invalid_arguments.
type InitiateRequest struct {
	Args []string `json:"args"`
}

func (r *InitiateRequest) Normalize() {
	for i := range r.Args {
		r.Args[i] = strings.TrimSpace(r.Args[i])
	}
}

func (r *InitiateRequest) Validate() error {
	if err := validation.CheckSliceCount("args", len(r.Args), validation.MaxArgs); err != nil {
		return err
	}
	if len(r.Args) > 0 {
		if err := validation.CheckStringLength("subject", r.Args[0], validation.MaxSubjectLength); err != nil {
			return err
		}
	}
	if len(r.Args) > 1 {
		if err := validation.CheckStringLength("content reference", r.Args[1], validation.MaxContentRefLength); err != nil {
			return err
		}
	}
	return nil
}

type InitiateResponse struct {
	Handle models.Handle `json:"handle"`
}

// CallbackRequest is the oracle's delivery. Response is hex ("0x" optional).
type CallbackRequest struct {
	Handle   string `json:"handle"`
	Response string `json:"response,omitempty"`
	Error    string `json:"error,omitempty"`
}

func (r *CallbackRequest) Normalize() {
	r.Handle = strings.TrimSpace(r.Handle)
	r.Response = strings.TrimSpace(r.Response)
}

func (r *CallbackRequest) Validate() error {
	if r.Handle == "" {
		return dErrors.New(dErrors.CodeInvalidArguments, "handle is required")
	}
	if err := validation.CheckStringLength("handle", r.Handle, validation.MaxHandleLength); err != nil {
		return err
	}
	if err := validation.CheckStringLength("response", r.Response, 2+2*models.MaxResponseBytes); err != nil {
		return err
	}
	return validation.CheckStringLength("error", r.Error, validation.MaxErrorPayloadLength)
}

// Callback decodes the payloads into the service's callback.
func (r *CallbackRequest) Callback() (models.Callback, error) {
	response, err := models.ParseHexPayload(r.Response)
	if err != nil {
		return models.Callback{}, err
	}
	return models.Callback{
		Handle:   models.Handle(r.Handle),
		Response: response,
		Err:      []byte(r.Error),
	}, nil
}

type CallbackResponse struct {
	Handle models.Handle `json:"handle"`
	Status string        `json:"status"`
}

type RequestResponse struct {
	Handle           models.Handle `json:"handle"`
	Subject          string        `json:"subject"`
	Recipient        string        `json:"recipient"`
	ContentReference string        `json:"content_reference"`
	State            models.State  `json:"state"`
	Result           uint64        `json:"result"`
	Fulfilled        bool          `json:"fulfilled"`
	CreatedAt        time.Time     `json:"created_at"`
	FulfilledAt      *time.Time    `json:"fulfilled_at,omitempty"`
}

func toRequestResponse(req *models.VerificationRequest) RequestResponse {
	return RequestResponse{
		Handle:           req.Handle,
		Subject:          req.Subject,
		Recipient:        req.Recipient,
		ContentReference: req.ContentReference,
		State:            req.State(),
		Result:           req.Result,
		Fulfilled:        req.Fulfilled,
		CreatedAt:        req.CreatedAt,
		FulfilledAt:      req.FulfilledAt,
	}
}

type SourceRequest struct {
	Source string `json:"source"`
}

func (r *SourceRequest) Validate() error {
	return validation.CheckStringLength("source", r.Source, validation.MaxSourceLength)
}

type TargetRequest struct {
	Target string `json:"target"`
}

func (r *TargetRequest) Normalize() {
	r.Target = strings.TrimSpace(r.Target)
}

func (r *TargetRequest) Validate() error {
	return validation.CheckStringLength("target", r.Target, validation.MaxTargetLength)
}
