package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/ayursense/internal/domain/ai"
)

func newTestClient(t *testing.T, model string, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	cfg := openai.DefaultConfig("test-key")
	cfg.BaseURL = srv.URL + "/v1"
	return NewClientWithConfig(cfg, model)
}

func TestClient_Complete(t *testing.T) {
	var got openai.ChatCompletionRequest
	c := newTestClient(t, "", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(openai.ChatCompletionResponse{
			ID:     "chatcmpl-1",
			Object: "chat.completion",
			Choices: []openai.ChatCompletionChoice{{
				Message:      openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: `{"safe":true}`},
				FinishReason: openai.FinishReasonStop,
			}},
		})
	})

	out, err := c.Complete(context.Background(), "sys", "usr")
	require.NoError(t, err)
	assert.Equal(t, `{"safe":true}`, out)

	assert.Equal(t, defaultModel, got.Model)
	assert.Equal(t, maxTokens, got.MaxTokens)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "sys", got.Messages[0].Content)
	assert.Equal(t, "usr", got.Messages[1].Content)
	require.NotNil(t, got.ResponseFormat)
	assert.Equal(t, openai.ChatCompletionResponseFormatTypeJSONObject, got.ResponseFormat.Type)
}

func TestClient_ReasoningModelTokens(t *testing.T) {
	var got openai.ChatCompletionRequest
	c := newTestClient(t, "o3-mini", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(openai.ChatCompletionResponse{
			Choices: []openai.ChatCompletionChoice{{Message: openai.ChatCompletionMessage{Content: "{}"}}},
		})
	})

	_, err := c.Complete(context.Background(), "sys", "usr")
	require.NoError(t, err)
	assert.Equal(t, maxTokens, got.MaxCompletionTokens)
	assert.Zero(t, got.MaxTokens)
}

func TestClient_QuotaExceeded(t *testing.T) {
	c := newTestClient(t, "", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"You exceeded your current quota","type":"insufficient_quota","code":"insufficient_quota"}}`))
	})

	_, err := c.Complete(context.Background(), "sys", "usr")
	require.ErrorIs(t, err, ai.ErrQuotaExceeded)
}

func TestClient_NoChoices(t *testing.T) {
	c := newTestClient(t, "", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"x","choices":[]}`))
	})

	_, err := c.Complete(context.Background(), "sys", "usr")
	require.ErrorIs(t, err, ai.ErrInvalidResponse)
}

func TestClient_ServerError(t *testing.T) {
	c := newTestClient(t, "", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":{"message":"boom","type":"server_error"}}`))
	})

	_, err := c.Complete(context.Background(), "sys", "usr")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ai.ErrQuotaExceeded)
}
