package llm

import (
	"context"
	"errors"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one turn of a chat conversation.
type Message struct {
	Role    string
	Content string
}

// ChatRequest is a provider-neutral chat completion request. The model is
// fixed per Client.
type ChatRequest struct {
	Messages    []Message
	Temperature float32
}

// Client abstracts chat-completion providers.
type Client interface {
	Chat(ctx context.Context, req ChatRequest) (string, error)
}

// ErrNotConfigured is returned by the placeholder client.
var ErrNotConfigured = errors.New("llm provider not configured")

// PlaceholderClient stands in when no API key is configured so the service can
// still boot in dev; every call fails.
type PlaceholderClient struct{}

// Chat returns ErrNotConfigured.
func (PlaceholderClient) Chat(ctx context.Context, req ChatRequest) (string, error) {
	_ = ctx
	_ = req
	return "", ErrNotConfigured
}
