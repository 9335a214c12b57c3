// Package config loads application configuration from environment variables.
// All variables use the EDU_ prefix.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server       ServerConfig
	Database     DatabaseConfig
	Cache        CacheConfig
	AI           AIConfig
	Generation   GenerationConfig
	Budget       BudgetConfig
	Log          LogConfig
	SyllabusPath string
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port int
	Host string
}

// DatabaseConfig holds PostgreSQL connection settings.
// An empty URL selects the in-memory course store.
type DatabaseConfig struct {
	URL      string
	MaxConns int
	MinConns int
}

// CacheConfig holds Redis connection settings.
// An empty URL disables the course cache.
type CacheConfig struct {
	URL string
	TTL time.Duration
}

// AIConfig holds configuration for all AI providers.
type AIConfig struct {
	Google     GoogleConfig
	OpenAI     OpenAIConfig
	DeepSeek   DeepSeekConfig
	OpenRouter OpenRouterConfig
	Ollama     OllamaConfig
}

// GoogleConfig holds Google Gemini provider settings.
type GoogleConfig struct {
	APIKey string
}

// OpenAIConfig holds OpenAI provider settings.
type OpenAIConfig struct {
	APIKey string
}

// DeepSeekConfig holds DeepSeek provider settings (OpenAI-compatible).
type DeepSeekConfig struct {
	APIKey string
}

// OpenRouterConfig holds OpenRouter provider settings (OpenAI-compatible).
type OpenRouterConfig struct {
	APIKey string
}

// OllamaConfig holds self-hosted Ollama settings.
type OllamaConfig struct {
	Enabled bool
	URL     string
}

// GenerationConfig controls the course generation model call.
type GenerationConfig struct {
	Provider    string // provider name the course task is pinned to
	Model       string
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration
}

// BudgetConfig holds per-user AI token limits.
type BudgetConfig struct {
	TokensPerUser int64 // 0 means unlimited
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string
	Format string
}

// Load reads configuration from environment variables with EDU_ prefix.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port: envInt("EDU_SERVER_PORT", 8080),
			Host: envStr("EDU_SERVER_HOST", "0.0.0.0"),
		},
		Database: DatabaseConfig{
			URL:      envStr("EDU_DATABASE_URL", ""),
			MaxConns: envInt("EDU_DATABASE_MAX_CONNS", 10),
			MinConns: envInt("EDU_DATABASE_MIN_CONNS", 2),
		},
		Cache: CacheConfig{
			URL: envStr("EDU_CACHE_URL", ""),
			TTL: envDuration("EDU_CACHE_TTL", 10*time.Minute),
		},
		AI: AIConfig{
			Google: GoogleConfig{
				APIKey: envStr("EDU_AI_GOOGLE_API_KEY", ""),
			},
			OpenAI: OpenAIConfig{
				APIKey: envStr("EDU_AI_OPENAI_API_KEY", ""),
			},
			DeepSeek: DeepSeekConfig{
				APIKey: envStr("EDU_AI_DEEPSEEK_API_KEY", ""),
			},
			OpenRouter: OpenRouterConfig{
				APIKey: envStr("EDU_AI_OPENROUTER_API_KEY", ""),
			},
			Ollama: OllamaConfig{
				Enabled: envBool("EDU_AI_OLLAMA_ENABLED", false),
				URL:     envStr("EDU_AI_OLLAMA_URL", "http://localhost:11434"),
			},
		},
		Generation: GenerationConfig{
			Provider:    envStr("EDU_GENERATION_PROVIDER", "google"),
			Model:       envStr("EDU_GENERATION_MODEL", ""),
			MaxTokens:   envInt("EDU_GENERATION_MAX_TOKENS", 32768),
			Temperature: envFloat("EDU_GENERATION_TEMPERATURE", 0.7),
			Timeout:     envDuration("EDU_GENERATION_TIMEOUT", 3*time.Minute),
		},
		Budget: BudgetConfig{
			TokensPerUser: int64(envInt("EDU_BUDGET_TOKENS_PER_USER", 0)),
		},
		Log: LogConfig{
			Level:  envStr("EDU_LOG_LEVEL", "info"),
			Format: envStr("EDU_LOG_FORMAT", "json"),
		},
		SyllabusPath: envStr("EDU_SYLLABUS_PATH", "./syllabi"),
	}

	return cfg, nil
}

// Validate checks that required configuration is present.
func (c *Config) Validate() error {
	if !c.HasAIProvider() {
		return fmt.Errorf("at least one AI provider must be configured")
	}

	if !c.HasProvider(c.Generation.Provider) {
		return fmt.Errorf("EDU_GENERATION_PROVIDER %q is not configured", c.Generation.Provider)
	}

	if c.Generation.MaxTokens <= 0 {
		return fmt.Errorf("EDU_GENERATION_MAX_TOKENS must be positive, got %d", c.Generation.MaxTokens)
	}

	if c.Budget.TokensPerUser < 0 {
		return fmt.Errorf("EDU_BUDGET_TOKENS_PER_USER must not be negative, got %d", c.Budget.TokensPerUser)
	}

	switch strings.ToLower(c.Log.Format) {
	case "json", "text":
	default:
		return fmt.Errorf("EDU_LOG_FORMAT must be 'json' or 'text', got %q", c.Log.Format)
	}

	return nil
}

// HasAIProvider returns true if at least one AI provider is configured.
func (c *Config) HasAIProvider() bool {
	return c.AI.Google.APIKey != "" ||
		c.AI.OpenAI.APIKey != "" ||
		c.AI.DeepSeek.APIKey != "" ||
		c.AI.OpenRouter.APIKey != "" ||
		c.AI.Ollama.Enabled
}

// HasProvider reports whether the named provider has credentials (or is enabled).
func (c *Config) HasProvider(name string) bool {
	switch name {
	case "google":
		return c.AI.Google.APIKey != ""
	case "openai":
		return c.AI.OpenAI.APIKey != ""
	case "deepseek":
		return c.AI.DeepSeek.APIKey != ""
	case "openrouter":
		return c.AI.OpenRouter.APIKey != ""
	case "ollama":
		return c.AI.Ollama.Enabled
	default:
		return false
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		return strings.EqualFold(v, "true") || v == "1"
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
