package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearCredentials(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("GOOGLE_API_KEY", "")
}

func TestLoadConfig_Defaults(t *testing.T) {
	clearCredentials(t)
	t.Setenv("GOOGLE_API_KEY", "test-key")

	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "test-key", cfg.Gemini.APIKey)
	assert.Equal(t, "gemini-2.5-flash", cfg.Gemini.Model)
	assert.Equal(t, 60*time.Second, cfg.Gemini.Timeout)
	assert.True(t, cfg.Gemini.StructuredOutput)
	assert.Equal(t, "8000", cfg.Server.Port)
	assert.Equal(t, "file", cfg.Storage.Driver)
	assert.Equal(t, "./data", cfg.Templates.Dir)
	assert.Contains(t, cfg.CORS.AllowedOrigins, "http://localhost:3000")
	assert.Len(t, cfg.CORS.AllowedOrigins, 3)
}

func TestLoadConfig_GeminiKeyTakesPrecedence(t *testing.T) {
	clearCredentials(t)
	t.Setenv("GEMINI_API_KEY", "gemini")
	t.Setenv("GOOGLE_API_KEY", "google")

	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "gemini", cfg.Gemini.APIKey)
}

func TestLoadConfig_MissingCredential(t *testing.T) {
	clearCredentials(t)

	cfg, err := LoadConfig(t.TempDir())
	assert.Nil(t, cfg)
	assert.ErrorIs(t, err, ErrMissingCredential)
}

func TestLoadConfig_FileAndEnvOverride(t *testing.T) {
	clearCredentials(t)
	dir := t.TempDir()
	yaml := `
gemini:
  api_key: from-file
  timeout: 5s
server:
  port: "9090"
cors:
  allowed_origins:
    - https://office.example.org
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))
	t.Setenv("SERVER_PORT", "7070")

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, "from-file", cfg.Gemini.APIKey)
	assert.Equal(t, 5*time.Second, cfg.Gemini.Timeout)
	assert.Equal(t, "7070", cfg.Server.Port)
	assert.Equal(t, []string{"https://office.example.org"}, cfg.CORS.AllowedOrigins)
}

func TestValidate_StorageDriver(t *testing.T) {
	cfg := &Config{
		Gemini:  GeminiConfig{APIKey: "k"},
		Storage: StorageConfig{Driver: "redis"},
	}
	assert.Error(t, cfg.Validate())

	cfg.Redis.Addr = "localhost:6379"
	assert.NoError(t, cfg.Validate())

	cfg.Storage.Driver = "sqlite"
	assert.Error(t, cfg.Validate())
}
