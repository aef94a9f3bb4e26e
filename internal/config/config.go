// Package config loads gitagent settings from YAML and the environment.
package config

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/lexcodex/gitagent/framework"
)

// Secret wraps strings that should be redacted in logs and serialization.
// Use Value() to access the actual secret value.
type Secret string

// String implements fmt.Stringer. Always returns redacted value.
func (s Secret) String() string {
	if s == "" {
		return ""
	}
	return "[REDACTED]"
}

// GoString implements fmt.GoStringer for %#v formatting.
func (s Secret) GoString() string { return "Secret([REDACTED])" }

// Value returns the actual secret value.
func (s Secret) Value() string { return string(s) }

// IsSet returns true if the secret has a non-empty value.
func (s Secret) IsSet() bool { return s != "" }

// MarshalJSON always returns the redacted value.
func (s Secret) MarshalJSON() ([]byte, error) { return json.Marshal(s.String()) }

// MarshalYAML always returns the redacted value.
func (s Secret) MarshalYAML() (interface{}, error) { return s.String(), nil }

// Config is the full tool configuration.
type Config struct {
	Model    ModelConfig    `koanf:"model" yaml:"model"`
	Pipeline PipelineConfig `koanf:"pipeline" yaml:"pipeline"`
	State    StateConfig    `koanf:"state" yaml:"state"`
	GitHub   GitHubConfig   `koanf:"github" yaml:"github"`
	Log      LogConfig      `koanf:"log" yaml:"log"`
	Metrics  MetricsConfig  `koanf:"metrics" yaml:"metrics"`
}

// ModelConfig selects and tunes the inference backend.
type ModelConfig struct {
	Provider          string        `koanf:"provider" yaml:"provider" validate:"oneof=openai ollama"`
	Name              string        `koanf:"name" yaml:"name" validate:"required"`
	APIURL            string        `koanf:"api_url" yaml:"api_url" validate:"omitempty,url"`
	APIKey            Secret        `koanf:"api_key" yaml:"api_key"`
	SystemPrompt      string        `koanf:"system_prompt" yaml:"system_prompt"`
	RequestsPerSecond float64       `koanf:"requests_per_second" yaml:"requests_per_second" validate:"gte=0"`
	Timeout           time.Duration `koanf:"timeout" yaml:"timeout" validate:"gte=0"`
}

// PipelineConfig bounds the coordinator.
type PipelineConfig struct {
	MaxCompletionRetries int    `koanf:"max_completion_retries" yaml:"max_completion_retries" validate:"gte=0,lte=10"`
	ReadmeFile           string `koanf:"readme_file" yaml:"readme_file" validate:"required"`
}

// StateConfig locates the persisted memory, change log and plan tracker.
type StateConfig struct {
	Dir string `koanf:"dir" yaml:"dir" validate:"required"`
}

// GitHubConfig enables the optional publish step.
type GitHubConfig struct {
	Enabled bool   `koanf:"enabled" yaml:"enabled"`
	Token   Secret `koanf:"token" yaml:"token"`
	Repo    string `koanf:"repo" yaml:"repo" validate:"omitempty,contains=/"`
	Branch  string `koanf:"branch" yaml:"branch" validate:"required"`
	Base    string `koanf:"base" yaml:"base" validate:"required"`
}

// LogConfig controls zap outputs.
type LogConfig struct {
	Level   string `koanf:"level" yaml:"level" validate:"oneof=debug info warn error"`
	File    string `koanf:"file" yaml:"file"`
	Console bool   `koanf:"console" yaml:"console"`
}

// MetricsConfig optionally dumps Prometheus metrics after each run.
type MetricsConfig struct {
	File string `koanf:"file" yaml:"file"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Model: ModelConfig{
			Provider:     "openai",
			Name:         "llama3.1-70b",
			SystemPrompt: "Assistant is a large language model expert in coding.",
		},
		Pipeline: PipelineConfig{MaxCompletionRetries: 3, ReadmeFile: "README.md"},
		State:    StateConfig{Dir: ".gitagent"},
		GitHub:   GitHubConfig{Branch: "auto-update-branch", Base: "main"},
		Log:      LogConfig{Level: "info", File: "agentic_rag_system.log", Console: true},
	}
}

// Validate checks struct constraints.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// RequireCredentials fails when the selected backend cannot be reached.
func (c *Config) RequireCredentials() error {
	if c.Model.Provider != "openai" {
		return nil
	}
	if !c.Model.APIKey.IsSet() || c.Model.APIURL == "" {
		return fmt.Errorf("%w: set LLAMA3_API_KEY and LLAMA3_API_URL", framework.ErrMissingCredentials)
	}
	return nil
}

// PublishReady reports whether the GitHub step can run.
func (c *Config) PublishReady() bool {
	return c.GitHub.Enabled && c.GitHub.Token.IsSet()
}
