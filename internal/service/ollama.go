package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"couponagent/internal/config"

	"go.uber.org/zap"
)

// OllamaClient handles Ollama native API interactions (/generate, falling back to /chat)
type OllamaClient struct {
	config     *config.LLMConfig
	httpClient *http.Client
	logger     *zap.Logger
}

var _ Generator = (*OllamaClient)(nil)

// NewOllamaClient creates a new Ollama client
func NewOllamaClient(cfg *config.LLMConfig, logger *zap.Logger) *OllamaClient {
	return &OllamaClient{
		config: cfg,
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.Timeout) * time.Second,
		},
		logger: logger,
	}
}

// ollamaOptions holds Ollama sampling options
type ollamaOptions struct {
	Temperature float64 `json:"temperature"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

// ollamaGenerateRequest represents a /generate request
type ollamaGenerateRequest struct {
	Model   string        `json:"model"`
	Prompt  string        `json:"prompt"`
	Stream  bool          `json:"stream"`
	Options ollamaOptions `json:"options"`
}

// ollamaGenerateResponse represents a /generate response
type ollamaGenerateResponse struct {
	Response string `json:"response"`
}

// ollamaChatMessage represents a single message in the conversation
type ollamaChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ollamaChatRequest represents a /chat request
type ollamaChatRequest struct {
	Model    string              `json:"model"`
	Messages []ollamaChatMessage `json:"messages"`
	Stream   bool                `json:"stream"`
	Options  ollamaOptions       `json:"options"`
}

// ollamaChatResponse represents a /chat response
type ollamaChatResponse struct {
	Message ollamaChatMessage `json:"message"`
}

// Name identifies the provider and model
func (c *OllamaClient) Name() string {
	return ProviderOllama + "/" + c.config.OllamaModel
}

// Generate calls /generate and, when that endpoint answers non-200, /chat.
// Transport errors are returned immediately.
func (c *OllamaClient) Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error) {
	ctx, cancel := withTimeout(ctx, opts.Timeout)
	defer cancel()

	options := ollamaOptions{Temperature: opts.Temperature, NumPredict: opts.MaxTokens}

	c.logger.Debug("Calling Ollama /generate", zap.String("model", c.config.OllamaModel))

	status, body, err := c.post(ctx, "generate", ollamaGenerateRequest{
		Model:   c.config.OllamaModel,
		Prompt:  prompt,
		Stream:  false,
		Options: options,
	})
	if err != nil {
		return "", err
	}
	if status == http.StatusOK {
		var result ollamaGenerateResponse
		if err := json.Unmarshal(body, &result); err != nil {
			return "", fmt.Errorf("failed to unmarshal /generate response: %w", err)
		}
		c.logger.Debug("LLM responded via /generate", zap.Int("content_len", len(result.Response)))
		return result.Response, nil
	}

	c.logger.Warn("/generate failed, trying /chat", zap.Int("status", status))

	status, body, err = c.post(ctx, "chat", ollamaChatRequest{
		Model:    c.config.OllamaModel,
		Messages: []ollamaChatMessage{{Role: "user", Content: prompt}},
		Stream:   false,
		Options:  options,
	})
	if err != nil {
		return "", err
	}
	if status != http.StatusOK {
		return "", fmt.Errorf("API request failed with status %d: %s", status, truncate(string(body), 200))
	}

	var result ollamaChatResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("failed to unmarshal /chat response: %w", err)
	}
	c.logger.Debug("LLM responded via /chat", zap.Int("content_len", len(result.Message.Content)))
	return result.Message.Content, nil
}

// post sends a JSON request to an Ollama endpoint and returns status and body
func (c *OllamaClient) post(ctx context.Context, endpoint string, payload any) (int, []byte, error) {
	reqBody, err := json.Marshal(payload)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := ollamaEndpoint(c.config.OllamaURL, endpoint)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(reqBody))
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.config.OllamaKey))

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to read response: %w", err)
	}

	return resp.StatusCode, body, nil
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
