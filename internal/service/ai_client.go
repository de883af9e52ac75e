package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"couponagent/internal/config"
	"couponagent/internal/model"

	"go.uber.org/zap"
)

// ErrGeneratorDisabled is returned when no text-generation backend is configured
var ErrGeneratorDisabled = errors.New("text generation is not configured")

// Generator is the interface for text-generation providers.
// One call is one request: implementations must not retry.
type Generator interface {
	// Generate returns the raw generated text for the prompt
	Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error)

	// Name identifies the provider and model, for logs
	Name() string
}

// GenerateOptions holds per-call generation parameters
type GenerateOptions = model.GenerateOptions

// DefaultGenerateOptions returns the configured generation parameters
func DefaultGenerateOptions(cfg *config.Config) GenerateOptions {
	return GenerateOptions{
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
		Timeout:     cfg.LLMTimeout(),
	}
}

// NewGenerator creates the generator selected by cfg.LLM.Provider
func NewGenerator(cfg *config.Config, logger *zap.Logger) (Generator, error) {
	switch cfg.LLM.Provider {
	case ProviderOllama:
		logger.Info("Using Ollama provider",
			zap.String("url", cfg.LLM.OllamaURL),
			zap.String("model", cfg.LLM.OllamaModel))
		return NewOllamaClient(&cfg.LLM, logger), nil
	case ProviderOpenAI:
		logger.Info("Using OpenAI-compatible provider",
			zap.String("base", cfg.LLM.OpenAIBase),
			zap.String("model", cfg.LLM.OpenAIModel),
			zap.Bool("official", IsOpenAIProvider(cfg.LLM.OpenAIBase)))
		return NewOpenAIClient(&cfg.LLM, logger), nil
	default:
		return nil, fmt.Errorf("%w: unknown provider %q", ErrGeneratorDisabled, cfg.LLM.Provider)
	}
}

// Ping checks that the generator answers a trivial prompt
func Ping(ctx context.Context, gen Generator, timeout time.Duration) (string, error) {
	reply, err := gen.Generate(ctx, "請只回答「OK」，不要其他文字。", GenerateOptions{
		Temperature: 0.1,
		MaxTokens:   10,
		Timeout:     timeout,
	})
	if err != nil {
		return "", fmt.Errorf("ping %s: %w", gen.Name(), err)
	}
	return strings.TrimSpace(reply), nil
}

// withTimeout derives a context bounded by the option timeout, if any
func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
