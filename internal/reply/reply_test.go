package reply

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wuwenbin0122/vishai/internal/utils"
)

func newCompletionServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return server
}

func writeCompletion(w http.ResponseWriter, content string) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"id":     "chatcmpl-1",
		"object": "chat.completion",
		"model":  "gemini-2.5-flash",
		"choices": []map[string]any{
			{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]any{"role": "assistant", "content": content},
			},
		},
	})
}

func TestClientReplySendsSingleTurnPrompt(t *testing.T) {
	var got openai.ChatCompletionRequest
	var auth string
	server := newCompletionServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/chat/completions", r.URL.Path)
		auth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		writeCompletion(w, "hello there")
	})

	client := NewClient(utils.GeminiConfig{APIKey: "key", BaseURL: server.URL + "/", Model: "test-model"}, nil)
	reply := client.Reply(context.Background(), "hi")

	assert.Equal(t, "hello there", reply)
	assert.Equal(t, "Bearer key", auth)
	assert.Equal(t, "test-model", got.Model)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, openai.ChatMessageRoleUser, got.Messages[0].Role)
	assert.Equal(t, "hi", got.Messages[0].Content)
}

func TestClientReplyFallsBackOnProviderError(t *testing.T) {
	server := newCompletionServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"quota exceeded","type":"rate_limit"}}`))
	})

	client := NewClient(utils.GeminiConfig{APIKey: "key", BaseURL: server.URL}, nil)
	assert.Equal(t, FallbackReply, client.Reply(context.Background(), "hi"))
}

func TestClientReplyEmptyChoices(t *testing.T) {
	server := newCompletionServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"x","object":"chat.completion","choices":[]}`))
	})

	client := NewClient(utils.GeminiConfig{APIKey: "key", BaseURL: server.URL}, nil)
	assert.Equal(t, EmptyReply, client.Reply(context.Background(), "hi"))
}

func TestClientReplyWithoutAPIKeyNeverCallsProvider(t *testing.T) {
	var calls atomic.Int32
	server := newCompletionServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeCompletion(w, "unexpected")
	})

	client := NewClient(utils.GeminiConfig{BaseURL: server.URL}, nil)
	assert.Equal(t, FallbackReply, client.Reply(context.Background(), "hi"))
	assert.Zero(t, calls.Load())
}

func TestClientReplyTimeout(t *testing.T) {
	release := make(chan struct{})
	server := newCompletionServer(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)

	client := NewClient(utils.GeminiConfig{APIKey: "key", BaseURL: server.URL, Timeout: 50 * time.Millisecond}, nil)

	start := time.Now()
	assert.Equal(t, FallbackReply, client.Reply(context.Background(), "hi"))
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestFunc(t *testing.T) {
	var g Generator = Func(func(ctx context.Context, text string) string { return "echo: " + text })
	assert.Equal(t, "echo: hi", g.Reply(context.Background(), "hi"))
}
