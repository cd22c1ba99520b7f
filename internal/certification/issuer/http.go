package issuer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"calibra/internal/certification/models"
)

// HTTPDoer is the minimal interface needed from an HTTP client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// HTTPIssuer calls a token ledger's mint endpoint.
type HTTPIssuer struct {
	baseURL string
	apiKey  string
	client  HTTPDoer
}

type mintRequest struct {
	Recipient        string `json:"recipient"`
	ContentReference string `json:"content_reference"`
}

type mintResponse struct {
	TokenID string `json:"token_id"`
}

func NewHTTPIssuer(baseURL, apiKey string, timeout time.Duration, client HTTPDoer) *HTTPIssuer {
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}
	return &HTTPIssuer{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
		client:  client,
	}
}

func (i *HTTPIssuer) Issue(ctx context.Context, recipient, contentReference string) (models.TokenID, error) {
	body, err := json.Marshal(mintRequest{Recipient: recipient, ContentReference: contentReference})
	if err != nil {
		return "", fmt.Errorf("marshal mint request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, i.baseURL+"/v1/tokens", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create mint request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if i.apiKey != "" {
		req.Header.Set("X-API-Key", i.apiKey)
	}

	resp, err := i.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("mint request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return "", fmt.Errorf("read mint response: %w", err)
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("ledger returned status %d", resp.StatusCode)
	}

	var out mintResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return "", fmt.Errorf("parse mint response: %w", err)
	}
	if out.TokenID == "" {
		return "", fmt.Errorf("ledger returned an empty token id")
	}
	return models.TokenID(out.TokenID), nil
}
