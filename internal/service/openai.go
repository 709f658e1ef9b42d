package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sashabaranov/go-openai"

	"leadbot/internal/config"
	"leadbot/internal/model"
)

// ErrAIDisabled is returned when no API key is configured
var ErrAIDisabled = errors.New("OpenAI API is not enabled (missing API key)")

// OpenAIClient handles OpenAI-compatible API interactions
type OpenAIClient struct {
	config *config.OpenAIConfig
	client *openai.Client
}

// NewOpenAIClient creates a client for any OpenAI-compatible endpoint
func NewOpenAIClient(cfg *config.OpenAIConfig) *OpenAIClient {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.APIBase != "" {
		clientConfig.BaseURL = cfg.APIBase
	}
	if cfg.Timeout > 0 {
		clientConfig.HTTPClient = &http.Client{Timeout: time.Duration(cfg.Timeout) * time.Second}
	}

	log.Info().Str("base_url", clientConfig.BaseURL).Str("chat_model", cfg.ChatModel).
		Bool("enabled", cfg.Enabled).Msg("OpenAI client configured")

	return &OpenAIClient{
		config: cfg,
		client: openai.NewClientWithConfig(clientConfig),
	}
}

// IsEnabled returns whether the client is configured and ready
func (c *OpenAIClient) IsEnabled() bool {
	return c != nil && c.config.Enabled
}

// ChatStream streams a reply. Fragments are sent in generation order.
func (c *OpenAIClient) ChatStream(ctx context.Context, req ChatStreamRequest) (<-chan string, <-chan error) {
	contentChan := make(chan string)
	errChan := make(chan error, 1)

	go func() {
		defer close(errChan)
		defer close(contentChan)

		if !c.IsEnabled() {
			errChan <- ErrAIDisabled
			return
		}

		stream, err := c.client.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
			Model:       c.config.ChatModel,
			Messages:    toOpenAIMessages(req.SystemPrompt, req.Messages),
			Temperature: req.Temperature,
			MaxTokens:   req.MaxTokens,
			Stream:      true,
		})
		if err != nil {
			errChan <- fmt.Errorf("create stream failed: %w", err)
			return
		}
		defer stream.Close()

		for {
			response, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				errChan <- fmt.Errorf("stream recv failed: %w", err)
				return
			}
			if len(response.Choices) == 0 {
				continue
			}
			content := response.Choices[0].Delta.Content
			if content == "" {
				continue
			}
			select {
			case contentChan <- content:
			case <-ctx.Done():
				errChan <- ctx.Err()
				return
			}
		}
	}()

	return contentChan, errChan
}

// CompleteWithTools runs one completion offering the given function tools
func (c *OpenAIClient) CompleteWithTools(ctx context.Context, messages []openai.ChatCompletionMessage, tools []openai.Tool, temperature float32) (openai.ChatCompletionMessage, error) {
	if !c.IsEnabled() {
		return openai.ChatCompletionMessage{}, ErrAIDisabled
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.config.ExtractionModel,
		Messages:    messages,
		Tools:       tools,
		ToolChoice:  "auto",
		Temperature: temperature,
	})
	if err != nil {
		return openai.ChatCompletionMessage{}, fmt.Errorf("chat with tools failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return openai.ChatCompletionMessage{}, fmt.Errorf("empty response from LLM")
	}
	return resp.Choices[0].Message, nil
}

// Embed generates the embedding of a single text
func (c *OpenAIClient) Embed(ctx context.Context, text string) ([]float32, error) {
	if !c.IsEnabled() {
		return nil, ErrAIDisabled
	}

	resp, err := c.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: openai.EmbeddingModel(c.config.EmbeddingModel),
	})
	if err != nil {
		return nil, fmt.Errorf("create embeddings failed: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, errors.New("empty embedding response")
	}
	return resp.Data[0].Embedding, nil
}

func toOpenAIMessages(systemPrompt string, messages []model.ChatMessage) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(messages)+1)
	if systemPrompt != "" {
		out = append(out, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: systemPrompt})
	}
	for _, m := range messages {
		if m.Role == model.RoleSystem {
			continue
		}
		out = append(out, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}
	return out
}
