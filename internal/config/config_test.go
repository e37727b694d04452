package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromMissingFileReturnsDefaults(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("PORT", "")

	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "absent.json"))
	require.NoError(t, err)

	def := DefaultConfig()
	assert.Equal(t, def.GeminiModel, cfg.GeminiModel)
	assert.Equal(t, def.Port, cfg.Port)
	assert.Equal(t, 60*time.Second, cfg.PollInterval())
	assert.Equal(t, 4*time.Second, cfg.RequestDelay())
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("DATABASE_PATH", "")

	for _, name := range []string{"config.json", "config.yaml"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)

			cfg := DefaultConfig()
			cfg.GeminiAPIKey = "key-123"
			cfg.DatabasePath = "custom.db"
			cfg.PollIntervalSec = 30
			require.NoError(t, cfg.SaveTo(path))

			loaded, err := LoadFrom(path)
			require.NoError(t, err)
			assert.Equal(t, "key-123", loaded.GeminiAPIKey)
			assert.Equal(t, "custom.db", loaded.DatabasePath)
			assert.Equal(t, 30, loaded.PollIntervalSec)
		})
	}
}

func TestLoadFromInvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0600))

	_, err := LoadFrom(path)
	assert.Error(t, err)
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "env-key")
	t.Setenv("PORT", "9090")
	t.Setenv("DATABASE_PATH", "env.db")
	t.Setenv("GOOGLE_DRIVE_USE_SERVICE_ACCOUNT", "false")

	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "absent.json"))
	require.NoError(t, err)

	assert.Equal(t, "env-key", cfg.GeminiAPIKey)
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, "env.db", cfg.DatabasePath)
	assert.False(t, cfg.UseServiceAccount)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"Gemini with key", func(c *Config) { c.GeminiAPIKey = "k" }, false},
		{"Gemini without key", func(c *Config) {}, true},
		{"Vertex with project", func(c *Config) { c.LLMBackend = "vertex"; c.GoogleCloudProject = "p" }, false},
		{"Vertex without project", func(c *Config) { c.LLMBackend = "vertex" }, true},
		{"Unknown backend", func(c *Config) { c.LLMBackend = "openai" }, true},
		{"Bad port", func(c *Config) { c.GeminiAPIKey = "k"; c.Port = 0 }, true},
		{"Bad temperature", func(c *Config) { c.GeminiAPIKey = "k"; c.Temperature = 3 }, true},
		{"Bad interval", func(c *Config) { c.GeminiAPIKey = "k"; c.PollIntervalSec = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateDrive(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DriveCredentialsPath = filepath.Join(t.TempDir(), "missing.json")
	assert.Error(t, cfg.ValidateDrive())

	path := filepath.Join(t.TempDir(), "creds.json")
	require.NoError(t, os.WriteFile(path, []byte("{}"), 0600))
	cfg.DriveCredentialsPath = path
	assert.NoError(t, cfg.ValidateDrive())
}
