package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("LLM_PROVIDER", "")
	t.Setenv("OLLAMA_API_URL", "")
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("PEOPLE_TOLERANCE", "")
	t.Setenv("LLM_TIMEOUT", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 1, cfg.Agent.PeopleTolerance)
	assert.Equal(t, 60*time.Second, cfg.LLMTimeout())
	assert.Equal(t, 24*time.Hour, cfg.CacheTTL())
	assert.Equal(t, "ollama", cfg.LLM.Provider)
	assert.Equal(t, 500, cfg.LLM.MaxTokens)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Run("OPENAI_API_KEY selects openai when no ollama URL", func(t *testing.T) {
		t.Setenv("LLM_PROVIDER", "")
		t.Setenv("OLLAMA_API_URL", "")
		t.Setenv("OPENAI_API_KEY", "sk-test")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "openai", cfg.LLM.Provider)
	})

	t.Run("explicit provider wins", func(t *testing.T) {
		t.Setenv("LLM_PROVIDER", "OpenAI")
		t.Setenv("OLLAMA_API_URL", "http://localhost:11434/api")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "openai", cfg.LLM.Provider)
	})

	t.Run("invalid integer falls back to default", func(t *testing.T) {
		t.Setenv("PEOPLE_TOLERANCE", "abc")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, 1, cfg.Agent.PeopleTolerance)
	})

	t.Run("DEBUG_MODE parses booleans", func(t *testing.T) {
		t.Setenv("DEBUG_MODE", "FALSE")

		cfg, err := Load()
		require.NoError(t, err)
		assert.False(t, cfg.Agent.Debug)
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{
			name:    "placeholder ollama settings",
			cfg:     Config{LLM: LLMConfig{Provider: "ollama", OllamaURL: placeholderOllamaURL, OllamaKey: placeholderAPIKey}},
			wantErr: true,
		},
		{
			name:    "configured ollama",
			cfg:     Config{LLM: LLMConfig{Provider: "ollama", OllamaURL: "http://localhost:11434/api", OllamaKey: "k"}},
			wantErr: false,
		},
		{
			name:    "openai without key",
			cfg:     Config{LLM: LLMConfig{Provider: "openai"}},
			wantErr: true,
		},
		{
			name:    "unknown provider",
			cfg:     Config{LLM: LLMConfig{Provider: "bard"}},
			wantErr: true,
		},
		{
			name: "negative tolerance",
			cfg: Config{
				LLM:   LLMConfig{Provider: "openai", OpenAIKey: "sk"},
				Agent: AgentConfig{PeopleTolerance: -1},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSummary(t *testing.T) {
	cfg := &Config{LLM: LLMConfig{Provider: "openai", OpenAIBase: "http://x", OpenAIModel: "m", Timeout: 5}}
	s := cfg.Summary()
	assert.Contains(t, s, "LLM Provider: openai")
	assert.Contains(t, s, "LLM Model: m")
}
