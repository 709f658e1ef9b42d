package service

import (
	"context"

	"github.com/sashabaranov/go-openai"

	"leadbot/internal/model"
)

// ChatStreamRequest is one streamed reply request
type ChatStreamRequest struct {
	SystemPrompt string
	Messages     []model.ChatMessage
	Temperature  float32
	MaxTokens    int
}

// TokenSource produces the generated reply as a stream of fragments.
// The content channel is closed when generation ends; the error channel
// then yields at most one error and is closed.
type TokenSource interface {
	ChatStream(ctx context.Context, req ChatStreamRequest) (<-chan string, <-chan error)
}

// ToolCaller runs a single non-streamed completion with function tools
type ToolCaller interface {
	CompleteWithTools(ctx context.Context, messages []openai.ChatCompletionMessage, tools []openai.Tool, temperature float32) (openai.ChatCompletionMessage, error)
}

// Embedder turns text into a vector
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Ensure OpenAIClient implements the collaborator interfaces
var (
	_ TokenSource = (*OpenAIClient)(nil)
	_ ToolCaller  = (*OpenAIClient)(nil)
	_ Embedder    = (*OpenAIClient)(nil)
)
