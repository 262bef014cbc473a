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

func newTestOpenAIClient(serverURL string) *openAIClient {
	return &openAIClient{
		apiKey:     "test-key",
		model:      "gpt-4",
		baseURL:    serverURL,
		httpClient: &http.Client{Timeout: 5 * time.Second},
	}
}

func TestOpenAIComplete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "gpt-4", body["model"])
		assert.Equal(t, 0.1, body["temperature"])
		assert.Equal(t, map[string]any{"type": "json_object"}, body["response_format"])

		messages, ok := body["messages"].([]any)
		require.True(t, ok)
		require.Len(t, messages, 2)
		user := messages[1].(map[string]any)
		assert.Equal(t, "user", user["role"])
		assert.Contains(t, user["content"], "grant document text here")

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{
			"id": "chatcmpl-1",
			"choices": [{"message": {"role": "assistant", "content": "{\"grant_id\": {\"value\": \"X-1\", \"confidence\": \"high\"}}"}, "finish_reason": "stop", "index": 0}]
		}`)
	}))
	defer server.Close()

	client := newTestOpenAIClient(server.URL)
	out, err := client.Complete(context.Background(), "grant document text here")
	require.NoError(t, err)
	assert.Contains(t, out, `"grant_id"`)
}

func TestOpenAICompleteErrors(t *testing.T) {
	tests := []struct {
		name          string
		status        int
		body          string
		wantRetryable bool
		wantRateLimit bool
	}{
		{name: "server error", status: http.StatusInternalServerError, body: `{"error": "boom"}`, wantRetryable: true},
		{name: "unauthorized", status: http.StatusUnauthorized, body: `{"error": "bad key"}`, wantRetryable: true},
		{name: "rate limited", status: http.StatusTooManyRequests, body: `{"error": "slow down"}`, wantRateLimit: true},
		{name: "bad request", status: http.StatusBadRequest, body: `{"error": "malformed"}`, wantRetryable: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			}))
			defer server.Close()

			client := newTestOpenAIClient(server.URL)
			_, err := client.Complete(context.Background(), "text")
			require.Error(t, err)

			if tt.wantRateLimit {
				assert.ErrorIs(t, err, common.ErrRateLimit)
				return
			}
			var retryable *common.RetryableError
			require.ErrorAs(t, err, &retryable)
			assert.Equal(t, tt.wantRetryable, retryable.Retryable)
			assert.Contains(t, err.Error(), "OpenAI API error")
		})
	}
}

func TestOpenAICompleteNoChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"id": "chatcmpl-1", "choices": []}`)
	}))
	defer server.Close()

	client := newTestOpenAIClient(server.URL)
	_, err := client.Complete(context.Background(), "text")

	var retryable *common.RetryableError
	require.ErrorAs(t, err, &retryable)
	assert.True(t, retryable.Retryable)
}

func TestOpenAIRequiresAPIKey(t *testing.T) {
	_, err := newOpenAIClient(Config{Provider: ProviderOpenAI})
	assert.ErrorIs(t, err, common.ErrNoAPIKey)
}
