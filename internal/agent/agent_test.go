// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package agent

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/openai/openai-go/v3/option"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/gscientist/pkg/types"
)

type chatRequest struct {
	Model    string `json:"model"`
	Messages []struct {
		Role    string `json:"role"`
		Content any    `json:"content"`
	} `json:"messages"`
}

// chatServer answers every completion with reply and records the requests.
func chatServer(t *testing.T, status int, reply string) (*httptest.Server, *[]chatRequest) {
	t.Helper()
	var requests []chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		requests = append(requests, req)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status != http.StatusOK {
			w.Write([]byte(`{"error":{"message":"boom","type":"server_error"}}`))
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"created": 1700000000,
			"model":   req.Model,
			"choices": []map[string]any{{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]any{"role": "assistant", "content": reply},
			}},
			"usage": map[string]any{"prompt_tokens": 5, "completion_tokens": 2, "total_tokens": 7},
		})
	}))
	t.Cleanup(srv.Close)
	return srv, &requests
}

func newTestAgent(t *testing.T, srv *httptest.Server, cfg types.AgentConfig) *OpenAIAgent {
	t.Helper()
	cfg.APIKey = "sk-test"
	cfg.BaseURL = srv.URL + "/"
	a, err := NewOpenAIAgent(cfg, zerolog.Nop(), option.WithMaxRetries(0))
	require.NoError(t, err)
	return a
}

func TestEcho(t *testing.T) {
	got, err := Echo{Prefix: "echo: "}.Respond(context.Background(), "  hello \n")
	require.NoError(t, err)
	assert.Equal(t, "echo: hello", got)
}

func TestNewOpenAIAgentRequiresKey(t *testing.T) {
	_, err := NewOpenAIAgent(types.AgentConfig{}, zerolog.Nop())
	assert.True(t, types.IsConfigurationError(err))
}

func TestOpenAIAgentConversation(t *testing.T) {
	srv, requests := chatServer(t, http.StatusOK, "Hi there.")
	a := newTestAgent(t, srv, types.AgentConfig{Model: "test-model"})

	reply, err := a.Respond(context.Background(), "Hello")
	require.NoError(t, err)
	assert.Equal(t, "Hi there.", reply)

	_, err = a.Respond(context.Background(), "Summarize attention")
	require.NoError(t, err)

	require.Len(t, *requests, 2)
	first, second := (*requests)[0], (*requests)[1]
	assert.Equal(t, "test-model", first.Model)
	require.Len(t, first.Messages, 2)
	assert.Equal(t, "system", first.Messages[0].Role)
	assert.Equal(t, DefaultSystemMessage, first.Messages[0].Content)
	assert.Equal(t, "user", first.Messages[1].Role)

	var roles []string
	for _, m := range second.Messages {
		roles = append(roles, m.Role)
	}
	assert.Equal(t, []string{"system", "user", "assistant", "user"}, roles)
	assert.Equal(t, 5, a.Turns())

	a.Reset()
	assert.Equal(t, 1, a.Turns())
}

func TestOpenAIAgentErrorKeepsHistory(t *testing.T) {
	srv, _ := chatServer(t, http.StatusInternalServerError, "")
	a := newTestAgent(t, srv, types.AgentConfig{})

	_, err := a.Respond(context.Background(), "Hello")
	require.Error(t, err)
	assert.Equal(t, 1, a.Turns())
}

func TestOpenAIAgentCustomSystemMessage(t *testing.T) {
	srv, requests := chatServer(t, http.StatusOK, "ok")
	a := newTestAgent(t, srv, types.AgentConfig{SystemMessage: "You review papers."})

	_, err := a.Respond(context.Background(), "x")
	require.NoError(t, err)
	require.NotEmpty(t, *requests)
	assert.Equal(t, "You review papers.", (*requests)[0].Messages[0].Content)
	assert.Equal(t, DefaultModel, (*requests)[0].Model)
}
