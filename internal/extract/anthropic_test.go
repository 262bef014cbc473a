package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chi-grants/grantflow/internal/common"
)

func newTestAnthropicClient(serverURL string) *anthropicClient {
	return &anthropicClient{
		apiKey:     "test-key",
		model:      "claude-3-5-sonnet-20241022",
		baseURL:    serverURL,
		httpClient: &http.Client{Timeout: 5 * time.Second},
	}
}

func TestAnthropicComplete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))
		assert.Equal(t, "2023-06-01", r.Header.Get("anthropic-version"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "claude-3-5-sonnet-20241022", body["model"])
		assert.Equal(t, float64(4096), body["max_tokens"])
		assert.NotEmpty(t, body["system"])

		fmt.Fprint(w, `{
			"id": "msg-1",
			"type": "message",
			"content": [{"type": "text", "text": "{\"grant_name\": {\"value\": \"Test Grant\", \"confidence\": \"medium\"}}"}]
		}`)
	}))
	defer server.Close()

	client := newTestAnthropicClient(server.URL)
	out, err := client.Complete(context.Background(), "document text")
	require.NoError(t, err)
	assert.Contains(t, out, `"grant_name"`)
}

func TestAnthropicCompleteErrors(t *testing.T) {
	tests := []struct {
		name          string
		status        int
		wantRetryable bool
		wantRateLimit bool
	}{
		{name: "overloaded", status: http.StatusServiceUnavailable, wantRetryable: true},
		{name: "rate limited", status: http.StatusTooManyRequests, wantRateLimit: true},
		{name: "invalid request", status: http.StatusBadRequest, wantRetryable: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				fmt.Fprint(w, `{"error": {"type": "api_error"}}`)
			}))
			defer server.Close()

			client := newTestAnthropicClient(server.URL)
			_, err := client.Complete(context.Background(), "text")
			require.Error(t, err)

			if tt.wantRateLimit {
				assert.ErrorIs(t, err, common.ErrRateLimit)
				return
			}
			var retryable *common.RetryableError
			require.ErrorAs(t, err, &retryable)
			assert.Equal(t, tt.wantRetryable, retryable.Retryable)
		})
	}
}

func TestAnthropicCompleteEmptyContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"id": "msg-1", "content": []}`)
	}))
	defer server.Close()

	client := newTestAnthropicClient(server.URL)
	_, err := client.Complete(context.Background(), "text")

	var retryable *common.RetryableError
	require.ErrorAs(t, err, &retryable)
	assert.True(t, retryable.Retryable)
}

func TestAnthropicRequiresAPIKey(t *testing.T) {
	_, err := newAnthropicClient(Config{Provider: ProviderAnthropic})
	assert.ErrorIs(t, err, common.ErrNoAPIKey)
}

func TestResolveProvider(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want string
	}{
		{name: "explicit anthropic", cfg: Config{Provider: "Anthropic", APIKey: "k"}, want: ProviderAnthropic},
		{name: "explicit openai", cfg: Config{Provider: "openai", APIKey: "k"}, want: ProviderOpenAI},
		{name: "key defaults to openai", cfg: Config{APIKey: "k"}, want: ProviderOpenAI},
		{name: "no key falls back to simulation", cfg: Config{}, want: ProviderSimulation},
		{name: "explicit simulation", cfg: Config{Provider: "simulation", APIKey: "k"}, want: ProviderSimulation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.cfg.ResolveProvider())
		})
	}
}

func TestNewClientUnknownProvider(t *testing.T) {
	_, err := NewClient(Config{Provider: "cohere", APIKey: "k"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cohere")
}
