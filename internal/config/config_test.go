package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexcodex/gitagent/framework"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for key := range envAliases {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	base := t.TempDir()
	cfg, err := Load(filepath.Join(base, "missing.yaml"), base)
	require.NoError(t, err)
	assert.Equal(t, "llama3.1-70b", cfg.Model.Name)
	assert.Equal(t, 3, cfg.Pipeline.MaxCompletionRetries)
	assert.Equal(t, filepath.Join(base, ".gitagent"), cfg.State.Dir)
	assert.Equal(t, filepath.Join(base, ".gitagent", "agentic_rag_system.log"), cfg.Log.File)
	assert.Equal(t, "auto-update-branch", cfg.GitHub.Branch)
	require.ErrorIs(t, cfg.RequireCredentials(), framework.ErrMissingCredentials)
	assert.False(t, cfg.PublishReady())
}

func TestLoadFileAndEnv(t *testing.T) {
	clearEnv(t)
	base := t.TempDir()
	path := filepath.Join(base, "config.yaml")
	yaml := "model:\n  name: from-file\n  timeout: 90s\npipeline:\n  max_completion_retries: 2\ngithub:\n  enabled: true\n"
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	t.Setenv("LLAMA3_API_KEY", "sk-test")
	t.Setenv("LLAMA3_API_URL", "https://llm.example.com/v1")
	t.Setenv("GITHUB_TOKEN", "ghp_test")
	t.Setenv("GITHUB_REPO_NAME", "octo/repo")
	t.Setenv("GITAGENT_PIPELINE_README_FILE", "CHANGES.md")

	cfg, err := Load(path, base)
	require.NoError(t, err)
	assert.Equal(t, "from-file", cfg.Model.Name)
	assert.Equal(t, 90*time.Second, cfg.Model.Timeout)
	assert.Equal(t, 2, cfg.Pipeline.MaxCompletionRetries)
	assert.Equal(t, "CHANGES.md", cfg.Pipeline.ReadmeFile)
	assert.Equal(t, "sk-test", cfg.Model.APIKey.Value())
	assert.Equal(t, "octo/repo", cfg.GitHub.Repo)
	require.NoError(t, cfg.RequireCredentials())
	assert.True(t, cfg.PublishReady())
}

func TestLoadRejectsInvalid(t *testing.T) {
	clearEnv(t)
	base := t.TempDir()
	path := filepath.Join(base, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("model:\n  provider: carrier-pigeon\n"), 0o644))
	_, err := Load(path, base)
	require.Error(t, err)
}

func TestLoadProviderFromEnv(t *testing.T) {
	for _, key := range []string{"GITAGENT_PROVIDER", "GITAGENT_MODEL_PROVIDER"} {
		t.Run(key, func(t *testing.T) {
			clearEnv(t)
			t.Setenv("GITAGENT_MODEL_PROVIDER", "")
			os.Unsetenv("GITAGENT_MODEL_PROVIDER")
			t.Setenv("OLLAMA_HOST", "http://localhost:11434")
			t.Setenv(key, "ollama")
			base := t.TempDir()
			cfg, err := Load(filepath.Join(base, "missing.yaml"), base)
			require.NoError(t, err)
			assert.Equal(t, "ollama", cfg.Model.Provider)
			assert.Equal(t, "http://localhost:11434", cfg.Model.APIURL)
		})
	}
}

func TestOllamaNeedsNoCredentials(t *testing.T) {
	cfg := Default()
	cfg.Model.Provider = "ollama"
	require.NoError(t, cfg.RequireCredentials())
	require.False(t, errors.Is(cfg.RequireCredentials(), framework.ErrMissingCredentials))
}

func TestSecretRedaction(t *testing.T) {
	s := Secret("hunter2")
	assert.Equal(t, "[REDACTED]", s.String())
	assert.Equal(t, "[REDACTED]", fmt.Sprint(s))
	assert.Equal(t, "Secret([REDACTED])", fmt.Sprintf("%#v", s))
	data, err := s.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `"[REDACTED]"`, string(data))
	assert.Equal(t, "", Secret("").String())
}
