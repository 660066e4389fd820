// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/rs/zerolog"

	"github.com/pdiddy/gscientist/pkg/types"
)

// DefaultModel is used when the config names none.
const DefaultModel = "gpt-4o-mini"

// OpenAIAgent keeps a conversation with a chat-completions model. Each
// Respond call appends the user message and the reply to the history.
type OpenAIAgent struct {
	client openai.Client
	model  string
	log    zerolog.Logger

	mu      sync.Mutex
	history []openai.ChatCompletionMessageParamUnion
}

// NewOpenAIAgent builds an agent from cfg. A missing API key is a
// configuration error. Extra request options are appended after the ones
// derived from cfg.
func NewOpenAIAgent(cfg types.AgentConfig, log zerolog.Logger, extra ...option.RequestOption) (*OpenAIAgent, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, types.NewConfigurationError("agent api key", "", "set agent.api_key, OPENAI_API_KEY, or .secrets/openai-api-key")
	}
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	opts = append(opts, extra...)

	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	system := cfg.SystemMessage
	if system == "" {
		system = DefaultSystemMessage
	}

	return &OpenAIAgent{
		client:  openai.NewClient(opts...),
		model:   model,
		log:     log.With().Str("component", "agent").Str("model", model).Logger(),
		history: []openai.ChatCompletionMessageParamUnion{openai.SystemMessage(system)},
	}, nil
}

// Respond sends message with the conversation so far and returns the reply.
// A failed request leaves the history unchanged.
func (a *OpenAIAgent) Respond(ctx context.Context, message string) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	messages := append(a.history[:len(a.history):len(a.history)], openai.UserMessage(message))
	resp, err := a.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:    a.model,
		Messages: messages,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("chat completion returned no choices")
	}

	msg := resp.Choices[0].Message
	assistant := msg.ToAssistantMessageParam()
	a.history = append(messages, openai.ChatCompletionMessageParamUnion{OfAssistant: &assistant})
	a.log.Debug().Int("turns", len(a.history)).Int64("tokens", resp.Usage.TotalTokens).Msg("reply received")
	return msg.Content, nil
}

// Reset drops everything but the system message.
func (a *OpenAIAgent) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.history = a.history[:1]
}

// Turns returns the number of messages in the conversation, including the
// system message.
func (a *OpenAIAgent) Turns() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.history)
}
