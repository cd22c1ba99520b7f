package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"calibra/internal/certification/handler"
	"calibra/internal/platform/config"
	"calibra/internal/platform/health"
	"calibra/internal/platform/httpserver"
	"calibra/internal/platform/logger"
)

const poolStatsInterval = 15 * time.Second

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal/certification.
func main() {
	cfg := config.FromEnv()
	log := logger.New(cfg.Server.Environment)

	if err := run(cfg, log); err != nil {
		log.Error("calibra stopped", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}

func run(cfg config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("initializing calibra",
		"addr", cfg.Server.Addr,
		"environment", cfg.Server.Environment,
		"store_backend", cfg.Server.StoreBackend,
		"oracle_mode", cfg.Oracle.Mode,
		"kafka_enabled", cfg.Kafka.Enabled(),
	)
	if cfg.Server.AdminTokenHash == "" {
		log.Warn("ADMIN_TOKEN_HASH not set, admin routes will reject every request")
	}

	reg := prometheus.DefaultRegisterer
	checks := health.New(cfg.Server.Environment)

	infra, err := buildInfra(ctx, cfg, log, reg, checks)
	if err != nil {
		return err
	}
	defer infra.Close()

	app, err := buildCertification(ctx, cfg, log, reg, checks, infra)
	if err != nil {
		return err
	}
	defer app.Close()

	router := newRouter(routerDeps{
		cfg:       cfg,
		log:       log,
		health:    checks,
		latency:   infra.latency,
		handler:   handler.New(app.service, log),
		apiJWT:    app.apiJWT,
		oracleJWT: app.oracleJWT,
	})
	srv := httpserver.New(cfg.Server.Addr, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting http server", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down server gracefully")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		return nil
	})
	if infra.worker != nil {
		g.Go(func() error { return infra.worker.Run(gctx) })
	}
	if infra.redis != nil {
		g.Go(func() error {
			ticker := time.NewTicker(poolStatsInterval)
			defer ticker.Stop()
			for {
				select {
				case <-gctx.Done():
					return nil
				case <-ticker.C:
					infra.redis.RecordPoolStats()
				}
			}
		})
	}

	return g.Wait()
}
