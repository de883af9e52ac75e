package service

import (
	"strings"
)

// Provider names accepted in LLM_PROVIDER
const (
	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"
)

// IsOpenAIProvider checks if the base URL is official OpenAI API
func IsOpenAIProvider(baseURL string) bool {
	return strings.Contains(baseURL, "api.openai.com")
}

// ollamaEndpoint joins the Ollama API base with an endpoint path
func ollamaEndpoint(base, path string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/")
}
