package main

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"calibra/internal/certification/handler"
	"calibra/internal/platform/config"
	"calibra/internal/platform/health"
	"calibra/pkg/platform/middleware/admin"
	"calibra/pkg/platform/middleware/auth"
	"calibra/pkg/platform/middleware/request"
	"calibra/pkg/requestcontext"
)

type routerDeps struct {
	cfg       config.Config
	log       *slog.Logger
	health    *health.Handler
	latency   *request.Metrics
	handler   *handler.Handler
	apiJWT    auth.JWTValidator
	oracleJWT auth.JWTValidator
}

// newRouter mounts three audiences on one mux: requesters and the oracle
// authenticate with separate bearer tokens, operators with the admin token.
func newRouter(d routerDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(request.RequestID)
	r.Use(requestcontext.TimeMiddleware)
	r.Use(request.Recovery(d.log))
	r.Use(request.Logger(d.log))
	r.Use(request.Latency(d.latency))

	d.health.Register(r)
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(request.BodyLimit(d.cfg.Server.MaxBodyBytes))
		r.Use(request.ContentTypeJSON)

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth(d.apiJWT, d.log))
			d.handler.RegisterRequester(r)
		})
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth(d.oracleJWT, d.log))
			d.handler.RegisterOracle(r)
		})
		r.Group(func(r chi.Router) {
			r.Use(admin.RequireAdminToken(d.cfg.Server.AdminTokenHash, d.log))
			d.handler.RegisterAdmin(r)
		})
	})

	return r
}
