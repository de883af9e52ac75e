package service

import (
	"context"
	"fmt"

	"couponagent/internal/config"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"
	"go.uber.org/zap"
)

// OpenAIClient generates text through an OpenAI-compatible chat completions API
type OpenAIClient struct {
	config *config.LLMConfig
	client openai.Client
	logger *zap.Logger
}

var _ Generator = (*OpenAIClient)(nil)

// NewOpenAIClient creates a new OpenAI-compatible client.
// SDK retries are disabled so one Generate call is one request.
func NewOpenAIClient(cfg *config.LLMConfig, logger *zap.Logger) *OpenAIClient {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.OpenAIKey),
		option.WithMaxRetries(0),
	}
	if cfg.OpenAIBase != "" {
		opts = append(opts, option.WithBaseURL(cfg.OpenAIBase))
	}

	return &OpenAIClient{
		config: cfg,
		client: openai.NewClient(opts...),
		logger: logger,
	}
}

// Name identifies the provider and model
func (c *OpenAIClient) Name() string {
	return ProviderOpenAI + "/" + c.config.OpenAIModel
}

// Generate performs a single chat completion with the prompt as the user message
func (c *OpenAIClient) Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error) {
	if c.config.OpenAIKey == "" {
		return "", fmt.Errorf("%w: missing OPENAI_API_KEY", ErrGeneratorDisabled)
	}

	ctx, cancel := withTimeout(ctx, opts.Timeout)
	defer cancel()

	params := openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		Model: c.config.OpenAIModel,
	}
	if opts.Temperature > 0 {
		params.Temperature = param.NewOpt(opts.Temperature)
	}
	if opts.MaxTokens > 0 {
		params.MaxTokens = param.NewOpt(int64(opts.MaxTokens))
	}

	c.logger.Debug("Calling chat completion", zap.String("model", c.config.OpenAIModel), zap.Int("prompt_len", len(prompt)))

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices in chat completion response")
	}

	content := resp.Choices[0].Message.Content
	c.logger.Debug("Chat completion succeeded",
		zap.Int("content_len", len(content)),
		zap.Int64("total_tokens", resp.Usage.TotalTokens))

	return content, nil
}
