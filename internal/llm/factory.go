package llm

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/andreipetrus/first-base-api-dochancer/internal/config"
)

// NewClient creates a new LLM client based on the provider. It returns nil
// when no API key is configured, which disables every AI step.
func NewClient(ctx context.Context, cfg config.AIConfig, log *zap.Logger) (LLMClient, error) {
	if !cfg.Enabled() {
		return nil, nil
	}
	switch cfg.Provider {
	case config.ProviderOpenAI, "":
		log.Info("Creating OpenAI client", zap.String("model", cfg.ModelOrDefault()))
		return NewOpenAIClient(cfg, log), nil
	case config.ProviderGemini:
		log.Info("Creating Gemini client", zap.String("model", cfg.ModelOrDefault()))
		client, err := NewGeminiClient(ctx, cfg, log)
		if err != nil {
			return nil, err
		}
		return client, nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}
}
