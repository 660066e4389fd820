// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package agent provides the research assistant the chat command talks to.
package agent

import (
	"context"
	"strings"
)

// DefaultSystemMessage primes every conversation.
const DefaultSystemMessage = "You are a helpful AI Assistant."

// Agent answers one user message within an ongoing conversation.
type Agent interface {
	Respond(ctx context.Context, message string) (string, error)
}

// Echo repeats the message back. It stands in for a model when no API key
// is configured.
type Echo struct {
	Prefix string
}

// Respond returns the trimmed message with the configured prefix.
func (e Echo) Respond(_ context.Context, message string) (string, error) {
	return e.Prefix + strings.TrimSpace(message), nil
}
