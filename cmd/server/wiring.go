package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"calibra/internal/certification/events"
	"calibra/internal/certification/issuer"
	"calibra/internal/certification/metrics"
	"calibra/internal/certification/models"
	"calibra/internal/certification/service"
	"calibra/internal/certification/store"
	"calibra/internal/certification/tracer"
	"calibra/internal/certification/transport"
	"calibra/internal/platform/auth"
	"calibra/internal/platform/config"
	"calibra/internal/platform/database"
	"calibra/internal/platform/health"
	"calibra/internal/platform/kafka/producer"
	redisclient "calibra/internal/platform/redis"
	"calibra/migrations"
	"calibra/pkg/platform/circuit"
	"calibra/pkg/platform/middleware/request"
	"calibra/pkg/platform/outbox"
	outboxpg "calibra/pkg/platform/outbox/postgres"
	"calibra/pkg/platform/outbox/worker"
)

// infra holds the connections shared by the certification wiring.
type infra struct {
	log      *slog.Logger
	db       *database.Pool
	redis    *redisclient.Client
	producer *producer.Producer
	outbox   outbox.Store
	worker   *worker.Worker
	latency  *request.Metrics
}

func buildInfra(ctx context.Context, cfg config.Config, log *slog.Logger, reg prometheus.Registerer, checks *health.Handler) (*infra, error) {
	in := &infra{log: log, latency: request.NewMetrics(reg)}

	db, err := database.New(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	if db != nil {
		in.db = db
		if err := migrations.Up(ctx, db.DB()); err != nil {
			in.Close()
			return nil, fmt.Errorf("apply migrations: %w", err)
		}
		if err := db.RegisterMetrics(reg); err != nil {
			log.Warn("postgres pool metrics not registered", "error", err)
		}
		checks.RegisterCheck("postgres", db.Health)
		log.Info("postgres connected")
	}

	rdb, err := redisclient.New(ctx, cfg.Redis)
	if err != nil {
		in.Close()
		return nil, err
	}
	if rdb != nil {
		in.redis = rdb
		checks.RegisterCheck("redis", rdb.Health)
		log.Info("redis connected")
	}

	if cfg.Kafka.Enabled() {
		p, err := producer.New(cfg.Kafka, log)
		if err != nil {
			in.Close()
			return nil, err
		}
		in.producer = p
		checks.RegisterCheck("kafka", p.Health)

		if in.db != nil {
			in.outbox = outboxpg.New(in.db.DB())
		} else {
			log.Warn("kafka enabled without DATABASE_URL, outbox is in memory and lost on restart")
			in.outbox = outbox.NewInMemoryStore()
		}
		in.worker = worker.New(in.outbox, p,
			worker.WithTopic(cfg.Kafka.Topic),
			worker.WithBatchSize(cfg.Kafka.BatchSize),
			worker.WithPollInterval(cfg.Kafka.PollInterval),
			worker.WithMetrics(worker.NewMetrics(reg)),
			worker.WithLogger(log),
		)
	}

	return in, nil
}

func (in *infra) Close() {
	if in.producer != nil {
		if err := in.producer.Close(); err != nil {
			in.log.Warn("close kafka producer", "error", err)
		}
	}
	if in.redis != nil {
		if err := in.redis.Close(); err != nil {
			in.log.Warn("close redis", "error", err)
		}
	}
	if in.db != nil {
		if err := in.db.Close(); err != nil {
			in.log.Warn("close postgres", "error", err)
		}
	}
}

// certification is the assembled request lifecycle plus the pieces main
// must stop on shutdown.
type certification struct {
	service   *service.Service
	publisher *events.Publisher
	simulator *transport.Simulator
	apiJWT    *auth.JWTService
	oracleJWT *auth.JWTService
}

func buildCertification(ctx context.Context, cfg config.Config, log *slog.Logger, reg prometheus.Registerer, checks *health.Handler, in *infra) (*certification, error) {
	st, err := buildStore(cfg, in)
	if err != nil {
		return nil, err
	}

	checks.Describe("store", cfg.Server.StoreBackend)
	checks.Describe("oracle", cfg.Oracle.Mode)

	var sink events.Sink = events.NewLogSink(log)
	checks.Describe("events", "log")
	if in.outbox != nil {
		sink = events.FanOut{sink, events.NewOutboxSink(in.outbox)}
		checks.Describe("events", "log+kafka")
	}
	publisher := events.NewPublisher(sink,
		events.WithAsyncBuffer(1024),
		events.WithPublisherLogger(log),
	)
	app := &certification{
		publisher: publisher,
		apiJWT:    auth.NewJWTService(cfg.Auth.JWTSigningKey, cfg.Auth.JWTIssuer, auth.AudienceAPI, 0),
		oracleJWT: auth.NewJWTService(cfg.Oracle.SigningKey, cfg.Auth.JWTIssuer, auth.AudienceOracle, 0),
	}

	submitter, err := buildSubmitter(cfg, log, checks, app)
	if err != nil {
		publisher.Close()
		return nil, err
	}

	factory := &issuer.Factory{
		APIKey:  cfg.Issuance.IssuerAPIKey,
		Timeout: cfg.Issuance.IssuerTimeout,
		BreakerOpts: []circuit.Option{
			circuit.WithFailureThreshold(cfg.Issuance.FailureThreshold),
			circuit.WithCooldown(cfg.Issuance.Cooldown),
			circuit.WithStateChange(func(name string, from, to circuit.State) {
				log.Warn("circuit breaker state change",
					"breaker", name,
					"from", from.String(),
					"to", to.String(),
				)
			}),
		},
	}

	validator := models.AnyContentReference
	if cfg.Issuance.StrictContentRefs {
		validator = models.StrictIPFSReference
	}

	svc := service.NewService(st, submitter, publisher, log,
		service.WithMetrics(metrics.New(reg)),
		service.WithTracer(tracer.NewOTel()),
		service.WithAuthorizer(service.NewAllowlist(cfg.Auth.AllowedRequesters)),
		service.WithIssuerResolver(factory),
		service.WithVerificationSource(cfg.Issuance.VerificationSource),
		service.WithTransportIdentity(cfg.Oracle.Identity),
		service.WithSecretsReference(cfg.Issuance.SecretsReference),
		service.WithContentValidator(validator),
		service.WithIssuerTimeout(cfg.Issuance.IssuerTimeout),
	)
	app.service = svc
	if app.simulator != nil {
		app.simulator.Bind(svc.Deliver)
	}

	if target := cfg.Issuance.IssuerTarget; target != "" {
		if err := svc.SetIssuerTarget(ctx, target); err != nil {
			app.Close()
			return nil, fmt.Errorf("configure issuer target: %w", err)
		}
	}
	if err := svc.SyncPending(ctx); err != nil {
		log.Warn("failed to seed pending gauge", "error", err)
	}
	return app, nil
}

func (c *certification) Close() {
	if c.simulator != nil {
		c.simulator.Close()
	}
	c.publisher.Close()
}

func buildStore(cfg config.Config, in *infra) (service.Store, error) {
	switch cfg.Server.StoreBackend {
	case config.StoreMemory, "":
		return store.NewInMemory(), nil
	case config.StorePostgres:
		if in.db == nil {
			return nil, fmt.Errorf("STORE_BACKEND=%s requires DATABASE_URL", config.StorePostgres)
		}
		return store.NewPostgres(in.db.DB()), nil
	case config.StoreRedis:
		if in.redis == nil {
			return nil, fmt.Errorf("STORE_BACKEND=%s requires REDIS_URL", config.StoreRedis)
		}
		return store.NewRedis(in.redis.Client, cfg.Redis.KeyPrefix), nil
	default:
		return nil, fmt.Errorf("unknown STORE_BACKEND %q", cfg.Server.StoreBackend)
	}
}

func buildSubmitter(cfg config.Config, log *slog.Logger, checks *health.Handler, app *certification) (service.Submitter, error) {
	switch cfg.Oracle.Mode {
	case config.OracleHTTP:
		if cfg.Oracle.BaseURL == "" {
			return nil, fmt.Errorf("ORACLE_MODE=%s requires ORACLE_BASE_URL", config.OracleHTTP)
		}
		submitter := transport.NewHTTPSubmitter(transport.HTTPConfig{
			ID:      cfg.Oracle.Identity,
			BaseURL: cfg.Oracle.BaseURL,
			APIKey:  cfg.Oracle.APIKey,
			Timeout: cfg.Oracle.Timeout,
		})
		checks.RegisterCheck("oracle", submitter.Health)
		return submitter, nil
	case config.OracleSimulated:
		if cfg.Server.IsProduction() {
			return nil, fmt.Errorf("ORACLE_MODE=%s is not allowed in production", config.OracleSimulated)
		}
		log.Warn("using simulated oracle", "accredited_labs", len(cfg.Oracle.AccreditedLabs))
		app.simulator = transport.NewSimulator(cfg.Oracle.Identity, cfg.Oracle.AccreditedLabs,
			transport.WithDelay(cfg.Oracle.SimulatedDelay),
			transport.WithSimulatorLogger(log),
		)
		return app.simulator, nil
	default:
		return nil, fmt.Errorf("unknown ORACLE_MODE %q", cfg.Oracle.Mode)
	}
}
