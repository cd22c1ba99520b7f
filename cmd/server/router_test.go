package main

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/suite"
	"golang.org/x/crypto/bcrypt"

	"calibra/internal/certification/handler"
	"calibra/internal/certification/issuer"
	"calibra/internal/platform/config"
	"calibra/internal/platform/health"
)

const (
	recipient  = "0x2222222222222222222222222222222222222222"
	adminToken = "operator-secret"
)

// RouterSuite drives the assembled process over HTTP with the simulated
// oracle and in-memory backends.
type RouterSuite struct {
	suite.Suite
	cfg    config.Config
	app    *certification
	infra  *infra
	server *httptest.Server
}

func TestRouterSuite(t *testing.T) {
	suite.Run(t, new(RouterSuite))
}

func (s *RouterSuite) SetupTest() {
	hash, err := bcrypt.GenerateFromPassword([]byte(adminToken), bcrypt.MinCost)
	s.Require().NoError(err)

	cfg := config.FromEnv()
	cfg.Server.Environment = "test"
	cfg.Server.StoreBackend = config.StoreMemory
	cfg.Server.AdminTokenHash = string(hash)
	cfg.Database.URL = ""
	cfg.Redis.URL = ""
	cfg.Kafka.Brokers = ""
	cfg.Oracle.Mode = config.OracleSimulated
	cfg.Oracle.Identity = "oracle-router"
	cfg.Oracle.AccreditedLabs = []string{"LAB-001"}
	cfg.Oracle.SimulatedDelay = 50 * time.Millisecond
	cfg.Issuance.VerificationSource = "return accredited(args[0])"
	cfg.Issuance.IssuerTarget = issuer.LedgerTarget
	cfg.Issuance.StrictContentRefs = false
	cfg.Auth.AllowedRequesters = nil
	s.cfg = cfg

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	reg := prometheus.NewRegistry()
	checks := health.New(cfg.Server.Environment)
	ctx := context.Background()

	s.infra, err = buildInfra(ctx, cfg, log, reg, checks)
	s.Require().NoError(err)
	s.app, err = buildCertification(ctx, cfg, log, reg, checks, s.infra)
	s.Require().NoError(err)

	s.server = httptest.NewServer(newRouter(routerDeps{
		cfg:       cfg,
		log:       log,
		health:    checks,
		latency:   s.infra.latency,
		handler:   handler.New(s.app.service, log),
		apiJWT:    s.app.apiJWT,
		oracleJWT: s.app.oracleJWT,
	}))
}

func (s *RouterSuite) TearDownTest() {
	s.server.Close()
	s.app.Close()
	s.infra.Close()
}

func (s *RouterSuite) bearer(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

func (s *RouterSuite) requesterToken() string {
	token, err := s.app.apiJWT.GenerateToken(context.Background(), recipient)
	s.Require().NoError(err)
	return token
}

func (s *RouterSuite) oracleToken() string {
	token, err := s.app.oracleJWT.GenerateToken(context.Background(), s.cfg.Oracle.Identity)
	s.Require().NoError(err)
	return token
}

func (s *RouterSuite) do(method, path, body string, headers map[string]string) (int, map[string]any) {
	req, err := http.NewRequest(method, s.server.URL+path, strings.NewReader(body))
	s.Require().NoError(err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := s.server.Client().Do(req)
	s.Require().NoError(err)
	defer resp.Body.Close()

	var out map[string]any
	raw, err := io.ReadAll(resp.Body)
	s.Require().NoError(err)
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &out)
	}
	return resp.StatusCode, out
}

func (s *RouterSuite) initiate(subject string) string {
	status, body := s.do(http.MethodPost, "/v1/certifications",
		`{"args":["`+subject+`","ipfs://cert-1"]}`, s.bearer(s.requesterToken()))
	s.Require().Equal(http.StatusAccepted, status, body)
	handle, _ := body["handle"].(string)
	s.Require().NotEmpty(handle)
	return handle
}

func (s *RouterSuite) awaitFulfilled(handle string) map[string]any {
	var body map[string]any
	s.Require().Eventually(func() bool {
		var status int
		status, body = s.do(http.MethodGet, "/v1/certifications/"+handle, "", s.bearer(s.requesterToken()))
		return status == http.StatusOK && body["fulfilled"] == true
	}, 2*time.Second, 20*time.Millisecond)
	return body
}

func (s *RouterSuite) TestAccreditedLabIsFulfilled() {
	handle := s.initiate("LAB-001")

	body := s.awaitFulfilled(handle)
	s.Equal(recipient, body["recipient"])
	s.Equal("LAB-001", body["subject"])
	s.EqualValues(1, body["result"])
}

func (s *RouterSuite) TestUnknownLabRecordsZeroResult() {
	handle := s.initiate("LAB-404")

	body := s.awaitFulfilled(handle)
	s.EqualValues(0, body["result"])
}

func (s *RouterSuite) TestReplayedCallbackIsRejected() {
	handle := s.initiate("LAB-001")
	s.awaitFulfilled(handle)

	status, _ := s.do(http.MethodPost, "/v1/oracle/callback",
		`{"handle":"`+handle+`","response":"0x01"}`, s.bearer(s.oracleToken()))
	s.Equal(http.StatusConflict, status)
}

func (s *RouterSuite) TestTokensAreScopedByAudience() {
	s.Run("oracle token on requester route", func() {
		status, _ := s.do(http.MethodPost, "/v1/certifications",
			`{"args":["LAB-001","ipfs://cert-1"]}`, s.bearer(s.oracleToken()))
		s.Equal(http.StatusUnauthorized, status)
	})
	s.Run("requester token on callback route", func() {
		status, _ := s.do(http.MethodPost, "/v1/oracle/callback",
			`{"handle":"0xab","response":"0x01"}`, s.bearer(s.requesterToken()))
		s.Equal(http.StatusUnauthorized, status)
	})
	s.Run("missing token", func() {
		status, _ := s.do(http.MethodGet, "/v1/certifications/0xab", "", nil)
		s.Equal(http.StatusUnauthorized, status)
	})
}

func (s *RouterSuite) TestAdminRoutes() {
	s.Run("rejects without admin token", func() {
		status, _ := s.do(http.MethodGet, "/admin/settings", "", nil)
		s.Equal(http.StatusUnauthorized, status)
	})

	admin := map[string]string{"X-Admin-Token": adminToken, "X-Admin-Actor-ID": "ops"}
	s.Run("reports seeded settings", func() {
		status, body := s.do(http.MethodGet, "/admin/settings", "", admin)
		s.Require().Equal(http.StatusOK, status)
		s.Equal(issuer.LedgerTarget, body["issuer_target"])
		s.Equal(false, body["paused"])
	})
	s.Run("pause blocks initiation", func() {
		status, body := s.do(http.MethodPost, "/admin/pause", "", admin)
		s.Require().Equal(http.StatusOK, status)
		s.Equal(true, body["paused"])

		status, _ = s.do(http.MethodPost, "/v1/certifications",
			`{"args":["LAB-001","ipfs://cert-1"]}`, s.bearer(s.requesterToken()))
		s.Equal(http.StatusServiceUnavailable, status)
	})
}

func (s *RouterSuite) TestHealthAndMetrics() {
	status, _ := s.do(http.MethodGet, "/health/ready", "", nil)
	s.Equal(http.StatusOK, status)

	status, body := s.do(http.MethodGet, "/health", "", nil)
	s.Require().Equal(http.StatusOK, status)
	s.Equal(map[string]any{"store": "memory", "oracle": "simulated", "events": "log"}, body["components"])

	resp, err := s.server.Client().Get(s.server.URL + "/metrics")
	s.Require().NoError(err)
	defer resp.Body.Close()
	s.Equal(http.StatusOK, resp.StatusCode)
}

func (s *RouterSuite) TestBuildStoreRequiresBackends() {
	for _, backend := range []string{config.StorePostgres, config.StoreRedis, "etcd"} {
		cfg := s.cfg
		cfg.Server.StoreBackend = backend
		_, err := buildStore(cfg, &infra{})
		s.Error(err, backend)
	}
}

func (s *RouterSuite) TestSimulatedOracleRefusedInProduction() {
	cfg := s.cfg
	cfg.Server.Environment = "production"
	_, err := buildSubmitter(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)), health.New("production"), &certification{})
	s.Error(err)
}
