package llm

import (
	"context"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/andreipetrus/first-base-api-dochancer/internal/config"
)

// OpenAIClient implements the LLMClient interface using OpenAI's API
type OpenAIClient struct {
	*BaseClient
	client *openai.Client
	model  string
}

// NewOpenAIClient creates a new OpenAI client. cfg.BaseURL points it at a
// compatible endpoint.
func NewOpenAIClient(cfg config.AIConfig, log *zap.Logger) *OpenAIClient {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	c := &OpenAIClient{
		client: openai.NewClientWithConfig(clientConfig),
		model:  cfg.ModelOrDefault(),
	}
	c.BaseClient = NewBaseClient(c, cfg, log)
	return c
}

// complete implements the actual LLM API call for OpenAI
func (c *OpenAIClient) complete(ctx context.Context, req completion) (string, error) {
	resp, err := c.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model:       c.model,
			Temperature: float32(c.config.Temperature),
			MaxTokens:   req.MaxTokens,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleSystem,
					Content: req.System,
				},
				{
					Role:    openai.ChatMessageRoleUser,
					Content: req.Prompt,
				},
			},
		},
	)
	if err != nil {
		return "", fmt.Errorf("OpenAI API error: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", errors.New("no response from OpenAI")
	}

	return resp.Choices[0].Message.Content, nil
}
