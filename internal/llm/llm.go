package llm

import (
	"context"
	"errors"
)

// Message is one chat turn.
type Message struct {
	Role    string
	Content string
}

const (
	RoleSystem = "system"
	RoleUser   = "user"
)

// ChatRequest is a single completion request.
type ChatRequest struct {
	Messages    []Message
	MaxTokens   int
	Temperature float32
}

// Client abstracts chat completion providers.
type Client interface {
	Chat(ctx context.Context, req ChatRequest) (string, error)
}

// ErrNotConfigured is returned by the placeholder client.
var ErrNotConfigured = errors.New("LLM provider not configured")

// PlaceholderClient is used when no provider credentials are set.
type PlaceholderClient struct{}

// Chat returns ErrNotConfigured.
func (PlaceholderClient) Chat(context.Context, ChatRequest) (string, error) {
	return "", ErrNotConfigured
}
