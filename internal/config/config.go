package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/caarlos0/env/v10"
	"github.com/go-playground/validator/v10"
)

const (
	SessionMemory = "memory"
	SessionRedis  = "redis"
)

// Config holds runtime configuration read from the environment.
type Config struct {
	// Server
	Port      int    `env:"PORT" envDefault:"8080" validate:"min=1,max=65535"`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info" validate:"oneof=debug info warn error"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json" validate:"oneof=json text"`

	// Upload limits
	MaxUploadSize int64 `env:"MAX_UPLOAD_SIZE" envDefault:"10485760" validate:"gt=0"` // 10MB in bytes

	// LLM & Embeddings. Empty models fall back to the provider default.
	LLMProvider    string `env:"LLM_PROVIDER" envDefault:"gemini" validate:"oneof=gemini openai"`
	GeminiKey      string `env:"GEMINI_API_KEY"`
	OpenAIKey      string `env:"OPENAI_API_KEY"`
	LLMModel       string `env:"LLM_MODEL"`
	LLMBaseURL     string `env:"LLM_BASE_URL" validate:"omitempty,url"`
	EmbeddingModel string `env:"EMBEDDING_MODEL"`

	// Sessions
	SessionProvider string `env:"SESSION_PROVIDER" envDefault:"memory" validate:"oneof=memory redis"`
	RedisAddr       string `env:"REDIS_ADDR" validate:"required_if=SessionProvider redis"`
	RedisPassword   string `env:"REDIS_PASSWORD"`
	SessionTTL      int    `env:"SESSION_TTL" envDefault:"3600" validate:"gt=0"` // seconds

	// Vector index; an empty dir disables it
	IndexDir        string `env:"INDEX_DIR"`
	IndexCollection string `env:"INDEX_COLLECTION" envDefault:"contract-chunks" validate:"required"`
}

// Load reads configuration from environment variables with defaults and
// validates it.
func Load() (Config, error) {
	return load(environ())
}

func load(environment map[string]string) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Environment: environment}); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks field constraints and that the chosen provider has a key.
func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.APIKey() == "" {
		return fmt.Errorf("%s is required when LLM_PROVIDER=%s", c.apiKeyVar(), c.LLMProvider)
	}
	return nil
}

// APIKey returns the credential for the configured provider.
func (c Config) APIKey() string {
	if c.LLMProvider == "openai" {
		return c.OpenAIKey
	}
	return c.GeminiKey
}

func (c Config) apiKeyVar() string {
	if c.LLMProvider == "openai" {
		return "OPENAI_API_KEY"
	}
	return "GEMINI_API_KEY"
}

// IndexEnabled reports whether a vector index directory is configured.
func (c Config) IndexEnabled() bool { return c.IndexDir != "" }

func environ() map[string]string {
	out := make(map[string]string)
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok {
			out[k] = v
		}
	}
	return out
}
