package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewWritesFileAndConsole(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "agentic_rag_system.log")
	var console bytes.Buffer
	logger, closer, err := New(Config{Level: "debug", File: path, Console: true, Stderr: &console})
	require.NoError(t, err)

	logger.Info("mapped repository", Agent("RepositoryMappingAgent"))
	logger.Warn("empty response", Agent("PlanAgent"))
	require.NoError(t, closer())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), `"agent":"RepositoryMappingAgent"`)
	require.Contains(t, string(data), "empty response")

	require.False(t, strings.Contains(console.String(), "mapped repository"))
	require.Contains(t, console.String(), "empty response")
}

func TestNewRejectsBadLevel(t *testing.T) {
	_, _, err := New(Config{Level: "loud"})
	require.Error(t, err)
}

func TestNewWithoutOutputsIsNop(t *testing.T) {
	logger, closer, err := New(Config{})
	require.NoError(t, err)
	logger.Error("ignored")
	require.NoError(t, closer())
}
