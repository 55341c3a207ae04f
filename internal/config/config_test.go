package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate runs from an empty directory so a stray reformatter.yaml is not
// picked up. Empty variables count as unset, so blanking every known key
// hides the caller's environment.
func isolate(t *testing.T) {
	t.Helper()
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())
	for key := range defaults {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	isolate(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "gemini", cfg.AIProvider)
	assert.InDelta(t, 0.3, cfg.AITemperature, 0.0001)
	assert.Equal(t, 25000, cfg.MaxInputChars)
	assert.Equal(t, int64(50<<20), cfg.MaxUploadBytes())
	assert.Equal(t, 2*time.Hour, cfg.SessionTTL)
	assert.Equal(t, "ar", cfg.DefaultLocale)
	assert.False(t, cfg.HistoryEnabled())
	assert.Equal(t, []string{"http://localhost:5173"}, cfg.AllowedOrigins)
}

func TestLoadFromEnv(t *testing.T) {
	isolate(t)
	t.Setenv("AI_PROVIDER", "Anthropic")
	t.Setenv("AI_TIMEOUT", "45s")
	t.Setenv("WORKER_COUNT", "7")
	t.Setenv("CORS_ORIGIN", "https://a.example, https://b.example")
	t.Setenv("DATABASE_URL", "postgres://localhost/reformatter")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "anthropic", cfg.AIProvider)
	assert.Equal(t, 45*time.Second, cfg.AITimeout)
	assert.Equal(t, 7, cfg.WorkerCount)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
	assert.True(t, cfg.HistoryEnabled())
}

func TestGeminiKeyFallback(t *testing.T) {
	isolate(t)
	t.Setenv("API_KEY", "legacy")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "legacy", cfg.GeminiAPIKey)

	t.Setenv("GEMINI_API_KEY", "explicit")
	cfg, err = Load("")
	require.NoError(t, err)
	assert.Equal(t, "explicit", cfg.GeminiAPIKey)
}

func TestLoadConfigFile(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte("PORT: \"9090\"\nAI_PROVIDER: ollama\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "ollama", cfg.AIProvider)

	// Environment wins over the file.
	t.Setenv("PORT", "7070")
	cfg, err = Load(path)
	require.NoError(t, err)
	assert.Equal(t, "7070", cfg.Port)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	isolate(t)
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			GinMode:       "debug",
			AIProvider:    "gemini",
			AITemperature: 0.3,
			AITimeout:     time.Minute,
			MaxInputChars: 25000,
			MaxUploadMB:   50,
			WorkerCount:   1,
			JobQueueSize:  1,
			SessionTTL:    time.Hour,
			JWTSecret:     DefaultJWTSecret,
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"valid debug config", func(c *Config) {}, false},
		{"unknown gin mode", func(c *Config) { c.GinMode = "prod" }, true},
		{"unknown provider", func(c *Config) { c.AIProvider = "mystery" }, true},
		{"temperature out of range", func(c *Config) { c.AITemperature = 3 }, true},
		{"zero workers", func(c *Config) { c.WorkerCount = 0 }, true},
		{"zero upload limit", func(c *Config) { c.MaxUploadMB = 0 }, true},
		{"release with default secret", func(c *Config) { c.GinMode = "release" }, true},
		{"release with real secret", func(c *Config) {
			c.GinMode = "release"
			c.JWTSecret = "s3cret"
		}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
