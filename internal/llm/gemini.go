package llm

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/andreipetrus/first-base-api-dochancer/internal/config"
)

// GeminiClient implements the LLMClient interface using the Gemini API
type GeminiClient struct {
	*BaseClient
	client *genai.Client
	model  string
}

// NewGeminiClient creates a Gemini client. No request is made until the first call.
func NewGeminiClient(ctx context.Context, cfg config.AIConfig, log *zap.Logger) (*GeminiClient, error) {
	clientConfig := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		clientConfig.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}
	client, err := genai.NewClient(ctx, clientConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	c := &GeminiClient{
		client: client,
		model:  cfg.ModelOrDefault(),
	}
	c.BaseClient = NewBaseClient(c, cfg, log)
	return c, nil
}

func (c *GeminiClient) complete(ctx context.Context, req completion) (string, error) {
	generateConfig := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(req.System, genai.RoleUser),
		Temperature:       genai.Ptr(float32(c.config.Temperature)),
	}
	if req.MaxTokens > 0 {
		generateConfig.MaxOutputTokens = int32(req.MaxTokens)
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(req.Prompt), generateConfig)
	if err != nil {
		return "", fmt.Errorf("Gemini API error: %w", err)
	}
	text := resp.Text()
	if text == "" {
		return "", errors.New("no response from Gemini")
	}
	return text, nil
}
