package openai

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeevankumar-m/sustainedaway/internal/domain"
)

const completionResponse = `{
	"id": "chatcmpl-1",
	"object": "chat.completion",
	"created": 1700000000,
	"model": "gpt-4o-mini",
	"choices": [{"index": 0, "finish_reason": "stop", "message": {"role": "assistant", "content": "{\"title\":\"Soap\"}"}}],
	"usage": {"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15}
}`

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(Config{APIKey: "test-key", BaseURL: server.URL})
	require.NoError(t, err)
	return client
}

func TestNewClient(t *testing.T) {
	_, err := NewClient(Config{APIKey: " "})
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))

	client, err := NewClient(Config{APIKey: "k", Model: "gpt-4o"})
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o", client.model)
	assert.Equal(t, "openai", client.Name())
}

func TestClient_Generate(t *testing.T) {
	t.Run("sends prompt and image as a data URL", func(t *testing.T) {
		var request map[string]any
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/chat/completions", r.URL.Path)
			assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

			data, _ := io.ReadAll(r.Body)
			require.NoError(t, json.Unmarshal(data, &request))

			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(completionResponse))
		})

		text, err := client.Generate(context.Background(), domain.GenerationRequest{
			Prompt: "Analyze",
			Image:  &domain.Image{Data: []byte("abc"), MIMEType: "image/png"},
		})
		require.NoError(t, err)
		assert.Equal(t, `{"title":"Soap"}`, text)

		assert.Equal(t, DefaultModel, request["model"])
		messages := request["messages"].([]any)
		require.Len(t, messages, 1)
		message := messages[0].(map[string]any)
		assert.Equal(t, "user", message["role"])
		content := message["content"].([]any)
		require.Len(t, content, 2)
		assert.Equal(t, "Analyze", content[0].(map[string]any)["text"])
		imageURL := content[1].(map[string]any)["image_url"].(map[string]any)
		assert.Equal(t, "data:image/png;base64,YWJj", imageURL["url"])
	})

	t.Run("no choices yields empty text", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"id":"x","object":"chat.completion","choices":[]}`))
		})

		text, err := client.Generate(context.Background(), domain.GenerationRequest{Prompt: "hi"})
		require.NoError(t, err)
		assert.Equal(t, "", text)
	})

	t.Run("API errors are generator failures and not retried", func(t *testing.T) {
		var calls int32
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&calls, 1)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"error":{"message":"overloaded","type":"server_error"}}`))
		})

		_, err := client.Generate(context.Background(), domain.GenerationRequest{Prompt: "hi"})
		require.Error(t, err)
		assert.True(t, errors.Is(err, domain.ErrGeneratorFailure))
		assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	})
}

func TestDataURL(t *testing.T) {
	assert.Equal(t, "data:image/jpeg;base64,AAE=", dataURL(&domain.Image{Data: []byte{0, 1}}))
	assert.Equal(t, "data:image/webp;base64,AAE=", dataURL(&domain.Image{Data: []byte{0, 1}, MIMEType: "image/webp"}))
}
