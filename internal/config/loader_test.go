package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(LoaderOptions{})
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "https://api.github.com", cfg.GitHub.BaseURL)
	assert.Equal(t, "AI Code Review", cfg.GitHub.StatusContext)
	assert.Equal(t, "anthropic", cfg.AI.Provider)
	assert.Equal(t, "120s", cfg.AI.Timeout)
	assert.Equal(t, 3, cfg.Queue.MaxAttempts)
	assert.Equal(t, "5m", cfg.Queue.SoftTimeout)
	assert.Equal(t, "6m", cfg.Queue.HardTimeout)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	content := `
server:
  addr: ":9090"
github:
  appId: "12345"
  statusContext: "Review Bot"
ai:
  provider: ollama
  model: codellama
queue:
  maxAttempts: 5
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "reviewerd.yaml"), []byte(content), 0o600))

	cfg, err := Load(LoaderOptions{ConfigPaths: []string{dir}})
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, "12345", cfg.GitHub.AppID)
	assert.Equal(t, "Review Bot", cfg.GitHub.StatusContext)
	assert.Equal(t, "ollama", cfg.AI.Provider)
	assert.Equal(t, "codellama", cfg.AI.Model)
	assert.Equal(t, 5, cfg.Queue.MaxAttempts)

	// Untouched values keep their defaults.
	assert.Equal(t, "https://api.github.com", cfg.GitHub.BaseURL)
}

func TestLoadExpandsEnvVars(t *testing.T) {
	t.Setenv("TEST_REVIEWER_APP_KEY", "secret-pem")

	dir := t.TempDir()
	content := `
github:
  privateKey: "${TEST_REVIEWER_APP_KEY}"
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "reviewerd.yaml"), []byte(content), 0o600))

	cfg, err := Load(LoaderOptions{ConfigPaths: []string{dir}})
	require.NoError(t, err)

	assert.Equal(t, "secret-pem", cfg.GitHub.PrivateKey)
}
