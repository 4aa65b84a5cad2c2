// Package config loads pagebind settings from defaults, an optional .env
// file and PAGEBIND_* environment variables.
package config

import (
	"time"

	"github.com/simp-lee/pagebind/extract"
)

// Config is the complete application configuration.
type Config struct {
	Extract  ExtractConfig  `koanf:"extract"`
	Pipeline PipelineConfig `koanf:"pipeline"`
	Book     BookConfig     `koanf:"book"`
	Output   OutputConfig   `koanf:"output"`
	Server   ServerConfig   `koanf:"server"`
	Log      LogConfig      `koanf:"log"`
}

// ExtractConfig selects the text-extraction service.
type ExtractConfig struct {
	Provider  string        `koanf:"provider"   validate:"oneof=openai langchain-openai ollama"`
	APIKey    string        `koanf:"api_key"`
	BaseURL   string        `koanf:"base_url"   validate:"omitempty,url"`
	Model     string        `koanf:"model"`
	MaxTokens int           `koanf:"max_tokens" validate:"gte=1"`
	Prompt    string        `koanf:"prompt"`
	Timeout   time.Duration `koanf:"timeout"    validate:"gte=0"`
}

// Options converts the settings to extract.Options.
func (c ExtractConfig) Options() extract.Options {
	return extract.Options{
		Provider: c.Provider,
		APIKey:   c.APIKey,
		BaseURL:  c.BaseURL,
		Model:    c.Model,
		Timeout:  c.Timeout,
	}
}

// PipelineConfig holds the per-page retry policy and pacing.
type PipelineConfig struct {
	MaxAttempts     int           `koanf:"max_attempts"     validate:"gte=1,lte=10"`
	RetryPause      time.Duration `koanf:"retry_pause"      validate:"gte=0"`
	PagePause       time.Duration `koanf:"page_pause"       validate:"gte=0"`
	TemperatureStep float64       `koanf:"temperature_step" validate:"gte=0,lte=1"`
}

// Policy converts the settings to an extract.Policy.
func (c PipelineConfig) Policy() extract.Policy {
	return extract.Policy{
		MaxAttempts:     c.MaxAttempts,
		RetryPause:      c.RetryPause,
		TemperatureStep: c.TemperatureStep,
	}
}

// BookConfig holds defaults for generated books.
type BookConfig struct {
	Language string `koanf:"language" validate:"required"`
}

// OutputConfig controls where finished books are delivered.
type OutputConfig struct {
	Dir string `koanf:"dir" validate:"required"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr            string        `koanf:"addr"             validate:"required"`
	RequestTimeout  time.Duration `koanf:"request_timeout"  validate:"gte=0"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"gte=0"`
	MaxBodyBytes    int64         `koanf:"max_body_bytes"   validate:"gte=1"`
}

// LogConfig configures the logger.
type LogConfig struct {
	Level string `koanf:"level" validate:"oneof=debug info warn error"`
	JSON  bool   `koanf:"json"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Extract: ExtractConfig{
			Provider:  extract.ProviderOpenAI,
			Model:     extract.DefaultModel,
			MaxTokens: 5000,
			Timeout:   2 * time.Minute,
		},
		Pipeline: PipelineConfig{
			MaxAttempts:     3,
			RetryPause:      2 * time.Second,
			PagePause:       time.Second,
			TemperatureStep: 0.2,
		},
		Book: BookConfig{
			Language: "en",
		},
		Output: OutputConfig{
			Dir: ".",
		},
		Server: ServerConfig{
			Addr:            ":8080",
			RequestTimeout:  time.Minute,
			ShutdownTimeout: 10 * time.Second,
			MaxBodyBytes:    64 << 20,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// MissingCredential reports whether the configured provider requires an
// API key that is not set.
func (c *Config) MissingCredential() bool {
	return c.Extract.Options().NeedsCredential() && c.Extract.APIKey == ""
}
