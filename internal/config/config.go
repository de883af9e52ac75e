package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	placeholderOllamaURL = "https://your-ollama-server.com/api"
	placeholderAPIKey    = "your-api-key-here"
)

// Config holds all configuration for the application
type Config struct {
	PostgreSQL PostgreSQLConfig
	Server     ServerConfig
	LLM        LLMConfig
	Agent      AgentConfig
	Catalog    CatalogConfig
	Session    SessionConfig
	Logging    LoggingConfig
}

// PostgreSQLConfig holds PostgreSQL database configuration.
// The conversation log is only enabled when a DSN is given.
type PostgreSQLConfig struct {
	DSN                string // 完整的数据库连接字符串
	MaxConnections     int
	MaxIdleConnections int
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port           int
	Host           string
	GinMode        string
	AllowedOrigins string
}

// LLMConfig holds text-generation backend configuration
type LLMConfig struct {
	Provider    string // "ollama" or "openai"; empty means auto-detect
	OllamaURL   string
	OllamaKey   string
	OllamaModel string
	OpenAIKey   string
	OpenAIBase  string
	OpenAIModel string
	Temperature float64
	MaxTokens   int
	Timeout     int // seconds
}

// AgentConfig holds dialogue agent configuration
type AgentConfig struct {
	PeopleTolerance int
	Debug           bool
}

// CatalogConfig holds coupon catalog source configuration
type CatalogConfig struct {
	CouponsAPIURL    string
	ImageBaseURL     string
	ScraperTimeout   int // seconds
	CacheFile        string
	RawFile          string
	CacheTTLHours    int
	ParseConcurrency int
}

// SessionConfig holds conversation session configuration
type SessionConfig struct {
	IdleTTLMinutes int
	SweepSeconds   int
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string
	Format string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file (optional)
	_ = godotenv.Load()

	cfg := &Config{
		PostgreSQL: PostgreSQLConfig{
			DSN:                getEnv("DATABASE_URL", getEnv("PG_DSN", "")),
			MaxConnections:     getEnvAsInt("PG_MAX_CONNECTIONS", 10),
			MaxIdleConnections: getEnvAsInt("PG_MAX_IDLE_CONNECTIONS", 2),
		},
		Server: ServerConfig{
			Port:           getEnvAsInt("SERVER_PORT", 8080),
			Host:           getEnv("SERVER_HOST", "0.0.0.0"),
			GinMode:        getEnv("GIN_MODE", "release"),
			AllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "*"),
		},
		LLM: LLMConfig{
			Provider:    strings.ToLower(getEnv("LLM_PROVIDER", "")),
			OllamaURL:   getEnv("OLLAMA_API_URL", placeholderOllamaURL),
			OllamaKey:   getEnv("OLLAMA_API_KEY", placeholderAPIKey),
			OllamaModel: getEnv("OLLAMA_MODEL", "llama2"),
			OpenAIKey:   getEnv("OPENAI_API_KEY", ""),
			OpenAIBase:  getEnv("OPENAI_API_BASE", "https://api.openai.com/v1"),
			OpenAIModel: getEnv("OPENAI_CHAT_MODEL", "gpt-4o-mini"),
			Temperature: getEnvAsFloat("LLM_TEMPERATURE", 0.7),
			MaxTokens:   getEnvAsInt("LLM_MAX_TOKENS", 500),
			Timeout:     getEnvAsInt("LLM_TIMEOUT", 60),
		},
		Agent: AgentConfig{
			PeopleTolerance: getEnvAsInt("PEOPLE_TOLERANCE", 1),
			Debug:           getEnvAsBool("DEBUG_MODE", true),
		},
		Catalog: CatalogConfig{
			CouponsAPIURL:    getEnv("KFC_COUPONS_API_URL", "https://olo-api.kfcclub.com.tw/menu/v1/QueryCoupons"),
			ImageBaseURL:     getEnv("KFC_IMAGE_BASE_URL", "https://kfcoosfs.kfcclub.com.tw/"),
			ScraperTimeout:   getEnvAsInt("SCRAPER_TIMEOUT", 20),
			CacheFile:        getEnv("COUPON_CACHE_FILE", "data/coupons.json"),
			RawFile:          getEnv("COUPON_RAW_FILE", "data/raw.json"),
			CacheTTLHours:    getEnvAsInt("COUPON_CACHE_TTL_HOURS", 24),
			ParseConcurrency: getEnvAsInt("COUPON_PARSE_CONCURRENCY", 4),
		},
		Session: SessionConfig{
			IdleTTLMinutes: getEnvAsInt("SESSION_IDLE_TTL_MINUTES", 30),
			SweepSeconds:   getEnvAsInt("SESSION_SWEEP_SECONDS", 60),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "console"),
		},
	}

	if cfg.LLM.Provider == "" {
		cfg.LLM.Provider = detectProvider(cfg.LLM)
	}

	return cfg, nil
}

// detectProvider picks the backend from whichever credentials were supplied
func detectProvider(c LLMConfig) string {
	if c.OllamaURL != placeholderOllamaURL {
		return "ollama"
	}
	if c.OpenAIKey != "" {
		return "openai"
	}
	return "ollama"
}

// Validate checks that the LLM backend has been configured
func (c *Config) Validate() error {
	var errs []string

	switch c.LLM.Provider {
	case "ollama":
		if c.LLM.OllamaURL == placeholderOllamaURL {
			errs = append(errs, "OLLAMA_API_URL is not set (edit your .env file)")
		}
		if c.LLM.OllamaKey == placeholderAPIKey {
			errs = append(errs, "OLLAMA_API_KEY is not set (edit your .env file)")
		}
	case "openai":
		if c.LLM.OpenAIKey == "" {
			errs = append(errs, "OPENAI_API_KEY is not set")
		}
	default:
		errs = append(errs, fmt.Sprintf("unknown LLM_PROVIDER %q, must be ollama or openai", c.LLM.Provider))
	}

	if c.Agent.PeopleTolerance < 0 {
		errs = append(errs, "PEOPLE_TOLERANCE must not be negative")
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(errs, "; "))
	}
	return nil
}

// LLMTimeout returns the generation timeout as a duration
func (c *Config) LLMTimeout() time.Duration {
	return time.Duration(c.LLM.Timeout) * time.Second
}

// CacheTTL returns the catalog cache time-to-live
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Catalog.CacheTTLHours) * time.Hour
}

// Summary returns a printable overview of the active configuration
func (c *Config) Summary() string {
	var b strings.Builder
	b.WriteString(strings.Repeat("=", 60) + "\n")
	fmt.Fprintf(&b, "LLM Provider: %s\n", c.LLM.Provider)
	switch c.LLM.Provider {
	case "openai":
		fmt.Fprintf(&b, "LLM API Base: %s\n", c.LLM.OpenAIBase)
		fmt.Fprintf(&b, "LLM Model: %s\n", c.LLM.OpenAIModel)
	default:
		fmt.Fprintf(&b, "LLM API URL: %s\n", c.LLM.OllamaURL)
		fmt.Fprintf(&b, "LLM Model: %s\n", c.LLM.OllamaModel)
	}
	fmt.Fprintf(&b, "LLM Timeout: %ds\n", c.LLM.Timeout)
	fmt.Fprintf(&b, "Debug Mode: %t\n", c.Agent.Debug)
	fmt.Fprintf(&b, "People Tolerance: ±%d\n", c.Agent.PeopleTolerance)
	fmt.Fprintf(&b, "Coupon API: %s\n", c.Catalog.CouponsAPIURL)
	fmt.Fprintf(&b, "Coupon Cache: %s (ttl %dh)\n", c.Catalog.CacheFile, c.Catalog.CacheTTLHours)
	b.WriteString(strings.Repeat("=", 60) + "\n")
	return b.String()
}

// Helper functions

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Warning: Invalid integer value for %s, using default %d", key, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		log.Printf("Warning: Invalid float value for %s, using default %f", key, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(strings.ToLower(valueStr))
	if err != nil {
		log.Printf("Warning: Invalid bool value for %s, using default %t", key, defaultValue)
		return defaultValue
	}
	return value
}
