package anthropic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"ai-platform-be/internal/pkg/apperror"
	"ai-platform-be/pkg/llm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnthropicChat(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "key", r.Header.Get("x-api-key"))
		assert.Equal(t, apiVersion, r.Header.Get("anthropic-version"))

		var req messagesRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "cite sources", req.System)
		require.Len(t, req.Messages, 1)
		assert.Equal(t, llm.RoleUser, req.Messages[0].Role)

		fmt.Fprint(w, `{"model":"claude-3-haiku-20240307","content":[{"type":"text","text":"Answer"}],"usage":{"input_tokens":20,"output_tokens":3}}`)
	}))
	defer srv.Close()

	p := NewAnthropicProvider("key", srv.URL, "")
	res, err := p.Generate(context.Background(), "Question", llm.WithSystemPrompt("cite sources"))
	require.NoError(t, err)
	assert.Equal(t, "Answer", res.Text)
	assert.Equal(t, 20, res.PromptTokens)
	assert.Equal(t, 3, res.CompletionTokens)
	assert.Equal(t, 23, res.TotalTokens)
	assert.Equal(t, ProviderName, res.Provider)
}

func TestAnthropicStream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "event: message_start\ndata: {\"type\":\"message_start\"}\n\n")
		fmt.Fprint(w, "event: content_block_delta\ndata: {\"type\":\"content_block_delta\",\"delta\":{\"type\":\"text_delta\",\"text\":\"Hi \"}}\n\n")
		fmt.Fprint(w, "event: content_block_delta\ndata: {\"type\":\"content_block_delta\",\"delta\":{\"type\":\"text_delta\",\"text\":\"there\"}}\n\n")
		fmt.Fprint(w, "event: message_stop\ndata: {\"type\":\"message_stop\"}\n\n")
	}))
	defer srv.Close()

	p := NewAnthropicProvider("key", srv.URL, "")
	stream, err := p.GenerateStream(context.Background(), "hello")
	require.NoError(t, err)

	text, err := llm.Collect(stream)
	require.NoError(t, err)
	assert.Equal(t, "Hi there", text)
}

func TestAnthropicMissingKey(t *testing.T) {
	p := NewAnthropicProvider("", "", "")
	_, err := p.Generate(context.Background(), "hello")
	assert.True(t, errors.Is(err, apperror.ErrProviderUnavailable))
}
