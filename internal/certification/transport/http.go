package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"calibra/internal/certification/models"
)

const maxResponseBody = 64 << 10

// HTTPDoer is the minimal interface needed from an HTTP client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

type HTTPConfig struct {
	ID         string
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
	HTTPClient HTTPDoer
}

// HTTPSubmitter posts queries to an oracle gateway. The gateway answers
// SubmitRequest with the handle and later calls the oracle callback route.
type HTTPSubmitter struct {
	id      string
	baseURL string
	apiKey  string
	client  HTTPDoer
}

type submitRequest struct {
	Source     string   `json:"source"`
	Args       []string `json:"args"`
	SecretsRef string   `json:"secrets_ref,omitempty"`
}

type submitResponse struct {
	Handle string `json:"handle"`
}

func NewHTTPSubmitter(cfg HTTPConfig) *HTTPSubmitter {
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.ID == "" {
		cfg.ID = "oracle-gateway"
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	return &HTTPSubmitter{
		id:      cfg.ID,
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		client:  client,
	}
}

func (s *HTTPSubmitter) Submit(ctx context.Context, query models.Query) (models.Handle, error) {
	body, err := json.Marshal(submitRequest{
		Source:     query.Source,
		Args:       query.Args,
		SecretsRef: query.SecretsReference,
	})
	if err != nil {
		return "", NewError(ErrorBadData, s.id, "failed to marshal request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/v1/requests", bytes.NewReader(body))
	if err != nil {
		return "", NewError(ErrorInternal, s.id, "failed to create request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("X-API-Key", s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", NewError(ErrorTimeout, s.id, "request timeout", err)
		}
		return "", NewError(ErrorOutage, s.id, "failed to execute request", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return "", NewError(ErrorBadData, s.id, "failed to read response", err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return "", NewError(ErrorAuthentication, s.id, fmt.Sprintf("authentication failed: %d", resp.StatusCode), nil)
	case resp.StatusCode == http.StatusTooManyRequests:
		return "", NewError(ErrorRateLimited, s.id, "rate limit exceeded", nil)
	case resp.StatusCode >= 500:
		return "", NewError(ErrorOutage, s.id, fmt.Sprintf("gateway unavailable: %d", resp.StatusCode), nil)
	case resp.StatusCode >= 300:
		return "", NewError(ErrorBadData, s.id, fmt.Sprintf("unexpected status: %d", resp.StatusCode), nil)
	}

	var out submitResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return "", NewError(ErrorBadData, s.id, "failed to parse response", err)
	}
	if strings.TrimSpace(out.Handle) == "" {
		return "", NewError(ErrorBadData, s.id, "gateway returned an empty handle", nil)
	}
	return models.Handle(out.Handle), nil
}

// Health checks the gateway's health endpoint.
func (s *HTTPSubmitter) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/health", nil)
	if err != nil {
		return err
	}
	if s.apiKey != "" {
		req.Header.Set("X-API-Key", s.apiKey)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return NewError(ErrorOutage, s.id, "health check failed", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return NewError(ErrorOutage, s.id, fmt.Sprintf("unhealthy status: %d", resp.StatusCode), nil)
	}
	return nil
}
