package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProvider(t *testing.T) {
	p, err := NewProvider(Config{APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, "openai", p.Name())

	p, err = NewProvider(Config{Provider: " Anthropic ", APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, "anthropic", p.Name())

	_, err = NewProvider(Config{Provider: "openai"})
	assert.ErrorContains(t, err, "LLM_API_KEY")

	_, err = NewProvider(Config{Provider: "cohere", APIKey: "k"})
	assert.ErrorContains(t, err, "unknown LLM provider")
}

func TestStripCodeFence(t *testing.T) {
	assert.Equal(t, "SELECT 1;", StripCodeFence("```sql\nSELECT 1;\n```"))
	assert.Equal(t, "SELECT 1;", StripCodeFence("```\nSELECT 1;\n```"))
	assert.Equal(t, "SELECT 1;", StripCodeFence("  SELECT 1;  "))
	assert.Equal(t, "CREATE TABLE t (id INTEGER);\nINSERT INTO t VALUES (1);",
		StripCodeFence("```postgresql\nCREATE TABLE t (id INTEGER);\nINSERT INTO t VALUES (1);\n```"))
	assert.Equal(t, "SELECT 1;", StripCodeFence("```SQL \nSELECT 1;\n```"))
	assert.Equal(t, "SELECT 1;", StripCodeFence("```SELECT 1;```"))
}

func TestOpenAIProviderComplete(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"index":0,"message":{"role":"assistant","content":"CREATE TABLE t (id INTEGER);"}}]}`))
	}))
	defer srv.Close()

	p := NewOpenAIProvider(Config{APIKey: "secret", Model: "gpt-4o-mini", BaseURL: srv.URL + "/v1", Timeout: 5 * time.Second})
	text, err := p.Complete(context.Background(), GenerationRequest{
		SystemInstructions: "sys",
		UserPrompt:         "user",
		Temperature:        Temperature,
		MaxOutputTokens:    MaxOutputTokens,
	})
	require.NoError(t, err)
	assert.Equal(t, "CREATE TABLE t (id INTEGER);", text)

	assert.Equal(t, "gpt-4o-mini", got["model"])
	assert.EqualValues(t, MaxOutputTokens, got["max_tokens"])
	assert.InDelta(t, 0.1, got["temperature"], 1e-6)
	messages, ok := got["messages"].([]any)
	require.True(t, ok)
	require.Len(t, messages, 2)
	assert.Equal(t, "system", messages[0].(map[string]any)["role"])
	assert.Equal(t, "user", messages[1].(map[string]any)["content"])
}

func TestOpenAIProviderErrors(t *testing.T) {
	tests := map[string]func(w http.ResponseWriter){
		"unauthorized": func(w http.ResponseWriter) {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":{"message":"bad key","type":"invalid_request_error"}}`))
		},
		"no choices": func(w http.ResponseWriter) {
			_, _ = w.Write([]byte(`{"choices":[]}`))
		},
		"malformed": func(w http.ResponseWriter) {
			_, _ = w.Write([]byte(`not json`))
		},
	}

	for name, respond := range tests {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				respond(w)
			}))
			defer srv.Close()

			p := NewOpenAIProvider(Config{APIKey: "k", Model: "m", BaseURL: srv.URL + "/v1", Timeout: 5 * time.Second})
			_, err := p.Complete(context.Background(), GenerationRequest{})
			assert.Error(t, err)
		})
	}
}

func TestAnthropicProviderComplete(t *testing.T) {
	var got anthropicRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("x-api-key"))
		assert.Equal(t, anthropicAPIVersion, r.Header.Get("anthropic-version"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		_, _ = w.Write([]byte(`{"content":[{"type":"thinking","text":""},{"type":"text","text":"CREATE TABLE t (id INTEGER);"}]}`))
	}))
	defer srv.Close()

	p := NewAnthropicProvider(Config{APIKey: "secret", Model: "claude", BaseURL: srv.URL + "/v1/", Timeout: 5 * time.Second})
	text, err := p.Complete(context.Background(), GenerationRequest{
		SystemInstructions: "sys",
		UserPrompt:         "user",
		Temperature:        Temperature,
		MaxOutputTokens:    MaxOutputTokens,
	})
	require.NoError(t, err)
	assert.Equal(t, "CREATE TABLE t (id INTEGER);", text)
	assert.Equal(t, "sys", got.System)
	assert.Equal(t, MaxOutputTokens, got.MaxTokens)
	assert.Equal(t, []anthropicMessage{{Role: "user", Content: "user"}}, got.Messages)
}

func TestAnthropicProviderAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"type":"rate_limit_error","message":"slow down"}}`))
	}))
	defer srv.Close()

	p := NewAnthropicProvider(Config{APIKey: "k", Model: "m", BaseURL: srv.URL, Timeout: 5 * time.Second})
	_, err := p.Complete(context.Background(), GenerationRequest{})
	assert.ErrorContains(t, err, "slow down")
}
