package transport

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"calibra/internal/certification/models"
)

func TestHTTPSubmitter_Submit(t *testing.T) {
	var got submitRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/requests", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("X-API-Key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"handle":"0xfeed"}`))
	}))
	defer srv.Close()

	s := NewHTTPSubmitter(HTTPConfig{BaseURL: srv.URL + "/", APIKey: "secret"})
	handle, err := s.Submit(context.Background(), models.Query{
		Source:           "check(lab)",
		Args:             []string{"LAB-001"},
		SecretsReference: "vault://oracle",
	})

	require.NoError(t, err)
	assert.Equal(t, models.Handle("0xfeed"), handle)
	assert.Equal(t, "check(lab)", got.Source)
	assert.Equal(t, []string{"LAB-001"}, got.Args)
	assert.Equal(t, "vault://oracle", got.SecretsRef)
}

func TestHTTPSubmitter_ErrorCategories(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		category ErrorCategory
	}{
		{"unauthorized", http.StatusUnauthorized, "", ErrorAuthentication},
		{"rate limited", http.StatusTooManyRequests, "", ErrorRateLimited},
		{"outage", http.StatusBadGateway, "", ErrorOutage},
		{"client error", http.StatusBadRequest, "", ErrorBadData},
		{"malformed body", http.StatusOK, "not json", ErrorBadData},
		{"empty handle", http.StatusOK, `{"handle":" "}`, ErrorBadData},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewHTTPSubmitter(HTTPConfig{BaseURL: srv.URL}).Submit(context.Background(), models.Query{Source: "s"})
			require.Error(t, err)
			assert.Equal(t, tt.category, CategoryOf(err))
		})
	}
}

func TestHTTPSubmitter_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := NewHTTPSubmitter(HTTPConfig{BaseURL: srv.URL}).Submit(ctx, models.Query{Source: "s"})
	require.Error(t, err)
	assert.Equal(t, ErrorTimeout, CategoryOf(err))
}

func TestHTTPSubmitter_Health(t *testing.T) {
	var status atomic.Int32
	status.Store(http.StatusOK)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(int(status.Load()))
	}))
	defer srv.Close()

	s := NewHTTPSubmitter(HTTPConfig{BaseURL: srv.URL})
	require.NoError(t, s.Health(context.Background()))

	status.Store(http.StatusServiceUnavailable)
	assert.Equal(t, ErrorOutage, CategoryOf(s.Health(context.Background())))
}

func TestCategoryOfPlainError(t *testing.T) {
	assert.Equal(t, ErrorInternal, CategoryOf(assert.AnError))
	assert.Contains(t, NewError(ErrorTimeout, "gw", "slow", assert.AnError).Error(), "[timeout]")
}
