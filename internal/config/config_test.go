package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Setenv("SECRET_KEY", "s3cret")
	t.Setenv("LLM_API_KEY", "sk-test")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, "uploads", cfg.UploadDir)
	assert.Equal(t, int64(10<<20), cfg.MaxUploadBytes)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.False(t, cfg.LogJSON)
	assert.Equal(t, 60*time.Second, cfg.LLMTimeout)

	llmCfg := cfg.LLM()
	assert.Equal(t, "openai", llmCfg.Provider)
	assert.Equal(t, "sk-test", llmCfg.APIKey)
	assert.Equal(t, 60*time.Second, llmCfg.Timeout)
}

func TestLoadOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("ADDR", ":9000")
	t.Setenv("LLM_PROVIDER", "anthropic")
	t.Setenv("LLM_TIMEOUT", "5s")
	t.Setenv("MAX_UPLOAD_BYTES", "1024")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.Addr)
	assert.Equal(t, "anthropic", cfg.LLMProvider)
	assert.Equal(t, 5*time.Second, cfg.LLMTimeout)
	assert.Equal(t, int64(1024), cfg.MaxUploadBytes)
}

func TestLoadReadsEnvFile(t *testing.T) {
	t.Setenv("SECRET_KEY", "from-env")
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("LLM_API_KEY=from-file\nUPLOAD_DIR=/tmp/sheets\n"), 0o600))
	t.Cleanup(func() {
		os.Unsetenv("LLM_API_KEY")
		os.Unsetenv("UPLOAD_DIR")
	})

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.SecretKey)
	assert.Equal(t, "from-file", cfg.LLMAPIKey)
	assert.Equal(t, "/tmp/sheets", cfg.UploadDir)
}

func TestLoadRequiresSecrets(t *testing.T) {
	t.Setenv("SECRET_KEY", "")
	t.Setenv("LLM_API_KEY", "")
	os.Unsetenv("SECRET_KEY")
	os.Unsetenv("LLM_API_KEY")

	_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	assert.Error(t, err)
}

func TestLoadRejectsNonPositiveUploadLimit(t *testing.T) {
	setRequired(t)
	t.Setenv("MAX_UPLOAD_BYTES", "0")

	_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	assert.ErrorContains(t, err, "MAX_UPLOAD_BYTES")
}
