// Package config loads service configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/JonMunkholm/SheetSQL/internal/llm"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config is built once at startup and passed to the components that need it.
type Config struct {
	Addr           string `envconfig:"ADDR" default:":8080"`
	SecretKey      string `envconfig:"SECRET_KEY" required:"true"`
	UploadDir      string `envconfig:"UPLOAD_DIR" default:"uploads"`
	MaxUploadBytes int64  `envconfig:"MAX_UPLOAD_BYTES" default:"10485760"`

	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
	LogJSON  bool   `envconfig:"LOG_JSON" default:"false"`

	LLMProvider string        `envconfig:"LLM_PROVIDER" default:"openai"`
	LLMAPIKey   string        `envconfig:"LLM_API_KEY" required:"true"`
	LLMModel    string        `envconfig:"LLM_MODEL"`
	LLMBaseURL  string        `envconfig:"LLM_BASE_URL"`
	LLMTimeout  time.Duration `envconfig:"LLM_TIMEOUT" default:"60s"`
}

// Load reads an optional .env file and then the process environment.
// Variables already set in the environment take precedence over .env.
func Load(envFiles ...string) (Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	if cfg.SecretKey == "" {
		return Config{}, errors.New("SECRET_KEY must not be empty")
	}
	if cfg.MaxUploadBytes <= 0 {
		return Config{}, fmt.Errorf("MAX_UPLOAD_BYTES must be positive, got %d", cfg.MaxUploadBytes)
	}
	return cfg, nil
}

// LLM returns the provider configuration.
func (c Config) LLM() llm.Config {
	return llm.Config{
		Provider: c.LLMProvider,
		APIKey:   c.LLMAPIKey,
		Model:    c.LLMModel,
		BaseURL:  c.LLMBaseURL,
		Timeout:  c.LLMTimeout,
	}
}
