package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix scopes generic overrides: GITAGENT_MODEL_NAME -> model.name.
const EnvPrefix = "GITAGENT_"

// envAliases maps the well-known variables onto config keys.
var envAliases = map[string]string{
	"LLAMA3_API_KEY":   "model.api_key",
	"LLAMA3_API_URL":   "model.api_url",
	"LLAMA3_MODEL":     "model.name",
	"GITHUB_TOKEN":     "github.token",
	"GITHUB_REPO_NAME": "github.repo",

	"GITAGENT_PROVIDER": "model.provider",
}

// Load reads defaults, then the YAML file at path (when it exists), then the
// environment. Relative state and log paths are resolved against baseDir.
func Load(path, baseDir string) (*Config, error) {
	cfg := Default()
	k := koanf.New(".")

	if path != "" {
		content, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
			}
		case errors.Is(err, os.ErrNotExist):
		default:
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err := k.Load(env.Provider("", ".", func(s string) string {
		return envAliases[s]
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	// GITAGENT_SECTION_FIELD_NAME -> section.field_name
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		lower := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
		parts := strings.SplitN(lower, "_", 2)
		if len(parts) == 1 {
			return lower
		}
		return parts[0] + "." + parts[1]
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if cfg.Model.Provider == "ollama" && cfg.Model.APIURL == "" {
		cfg.Model.APIURL = os.Getenv("OLLAMA_HOST")
	}
	cfg.resolvePaths(baseDir)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) resolvePaths(baseDir string) {
	if baseDir == "" {
		return
	}
	if !filepath.IsAbs(c.State.Dir) {
		c.State.Dir = filepath.Join(baseDir, c.State.Dir)
	}
	if c.Log.File != "" && !filepath.IsAbs(c.Log.File) {
		c.Log.File = filepath.Join(c.State.Dir, c.Log.File)
	}
	if c.Metrics.File != "" && !filepath.IsAbs(c.Metrics.File) {
		c.Metrics.File = filepath.Join(c.State.Dir, c.Metrics.File)
	}
}

// DefaultPath is the config file consulted when --config is not given.
func DefaultPath(baseDir string) string {
	return filepath.Join(baseDir, Default().State.Dir, "config.yaml")
}
