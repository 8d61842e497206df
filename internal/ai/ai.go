// Package ai talks to an OpenAI-compatible chat completion endpoint and owns
// everything that is specific to the coaching features: the prompts, the
// static tips, and turning a model reply into a structured weekly report.
//
// The rest of the application only sees the Completer interface, so tests
// swap in a fake and a server without an API key runs with Disabled.
package ai

import (
	"context"
	"errors"
)

// Roles used in chat messages.
const (
	RoleSystem = "system"
	RoleUser   = "user"
)

// Message is one turn of a chat conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CompletionRequest is everything a provider needs for one reply.
type CompletionRequest struct {
	Messages    []Message
	Temperature float64
	MaxTokens   int
}

// Completer produces a single text reply for a conversation.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// ErrNotConfigured is returned by Disabled for every call.
var ErrNotConfigured = errors.New("ai: no completion provider configured")

// Disabled is the Completer used when no API key is set. Every AI feature
// that needs the model then fails as "upstream unavailable" while the rest
// of the API keeps working.
type Disabled struct{}

func (Disabled) Complete(context.Context, CompletionRequest) (string, error) {
	return "", ErrNotConfigured
}
