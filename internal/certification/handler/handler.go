// Package handler exposes the certification service over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"calibra/internal/certification/models"
	dErrors "calibra/pkg/domain-errors"
	"calibra/pkg/platform/httputil"
	"calibra/pkg/requestcontext"
)

// Service defines the certification operations the handler exposes.
type Service interface {
	Initiate(ctx context.Context, recipient string, args []string) (models.Handle, error)
	Get(ctx context.Context, handle models.Handle) (*models.VerificationRequest, error)
	Deliver(ctx context.Context, caller string, cb models.Callback) error
	Settings(ctx context.Context) models.Settings
	SetIssuerTarget(ctx context.Context, target string) error
	SetVerificationSource(ctx context.Context, source string) error
	Pause(ctx context.Context)
	Unpause(ctx context.Context)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterRequester mounts the routes for authenticated requesters.
func (h *Handler) RegisterRequester(r chi.Router) {
	r.Post("/v1/certifications", h.handleInitiate)
	r.Get("/v1/certifications/{handle}", h.handleGet)
}

// RegisterOracle mounts the callback route for the verification transport.
func (h *Handler) RegisterOracle(r chi.Router) {
	r.Post("/v1/oracle/callback", h.handleCallback)
}

// RegisterAdmin mounts the runtime settings routes.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Get("/admin/settings", h.handleSettings)
	r.Put("/admin/issuer", h.handleSetIssuer)
	r.Put("/admin/source", h.handleSetSource)
	r.Post("/admin/pause", h.handlePause)
	r.Post("/admin/unpause", h.handleUnpause)
}

func (h *Handler) caller(w http.ResponseWriter, r *http.Request) (string, bool) {
	ctx := r.Context()
	caller := requestcontext.Caller(ctx)
	if caller == "" {
		h.logger.ErrorContext(ctx, "caller missing from context despite auth middleware",
			"request_id", requestcontext.RequestID(ctx),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "authentication context error"))
		return "", false
	}
	return caller, true
}

func (h *Handler) handleInitiate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	recipient, ok := h.caller(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[InitiateRequest](w, r, h.logger)
	if !ok {
		return
	}

	handle, err := h.service.Initiate(ctx, recipient, req.Args)
	if err != nil {
		h.logger.WarnContext(ctx, "initiate rejected",
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusAccepted, InitiateResponse{Handle: handle})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	handle := models.Handle(chi.URLParam(r, "handle"))
	req, err := h.service.Get(r.Context(), handle)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toRequestResponse(req))
}

func (h *Handler) handleCallback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[CallbackRequest](w, r, h.logger)
	if !ok {
		return
	}
	cb, err := req.Callback()
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	if err := h.service.Deliver(ctx, caller, cb); err != nil {
		h.logger.WarnContext(ctx, "callback rejected",
			"handle", cb.Handle,
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, CallbackResponse{Handle: cb.Handle, Status: string(models.StateFulfilled)})
}

func (h *Handler) handleSettings(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, h.service.Settings(r.Context()))
}

func (h *Handler) handleSetIssuer(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.DecodeAndPrepare[TargetRequest](w, r, h.logger)
	if !ok {
		return
	}
	if err := h.service.SetIssuerTarget(r.Context(), req.Target); err != nil {
		httputil.WriteError(w, err)
		return
	}
	h.handleSettings(w, r)
}

func (h *Handler) handleSetSource(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.DecodeAndPrepare[SourceRequest](w, r, h.logger)
	if !ok {
		return
	}
	if err := h.service.SetVerificationSource(r.Context(), req.Source); err != nil {
		httputil.WriteError(w, err)
		return
	}
	h.handleSettings(w, r)
}

func (h *Handler) handlePause(w http.ResponseWriter, r *http.Request) {
	h.service.Pause(r.Context())
	h.handleSettings(w, r)
}

func (h *Handler) handleUnpause(w http.ResponseWriter, r *http.Request) {
	h.service.Unpause(r.Context())
	h.handleSettings(w, r)
}
