// Package config handles application configuration.
//
// Values come from environment variables, optionally layered over a
// reformatter.yaml file; environment always wins. Keys are the bare
// environment names (PORT, AI_PROVIDER, ...) in both places.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// DefaultJWTSecret is refused in release mode.
const DefaultJWTSecret = "dev-jwt-secret-change-in-production"

// Config holds all application configuration.
//
// Go Pattern: Exported (capitalized) fields so other packages can read them.
// Nothing outside this package writes to a Config after Load.
type Config struct {
	// Server settings
	Port    string
	GinMode string // "debug", "release", or "test"

	// Database settings. Empty disables conversion history.
	DatabaseURL string

	// AI provider settings
	AIProvider       string // gemini, anthropic, openrouter, ollama
	AIModel          string // empty means the provider default
	GeminiAPIKey     string
	AnthropicAPIKey  string
	OpenRouterAPIKey string
	OllamaHost       string
	AITemperature    float32
	AITimeout        time.Duration
	MaxInputChars    int

	// Uploads and rendering
	MaxUploadMB int
	PDFFontPath string // optional TrueType font for PDF downloads

	// Worker settings
	WorkerCount  int // Number of background worker goroutines
	JobQueueSize int // Size of the in-memory job queue buffer

	// Sessions
	SessionTTL time.Duration
	JWTSecret  string

	// bcrypt hash of the admin key guarding conversion history.
	AdminKeyHash string

	// Rate limiting, requests per minute per client IP
	RateLimit int

	// CORS
	AllowedOrigins []string

	// Localization: "ar" or "en"
	DefaultLocale string
}

var defaults = map[string]any{
	"PORT":               "8080",
	"GIN_MODE":           "debug",
	"DATABASE_URL":       "",
	"AI_PROVIDER":        "gemini",
	"AI_MODEL":           "",
	"GEMINI_API_KEY":     "",
	"API_KEY":            "",
	"ANTHROPIC_API_KEY":  "",
	"OPENROUTER_API_KEY": "",
	"OLLAMA_HOST":        "",
	"AI_TEMPERATURE":     0.3,
	"AI_TIMEOUT":         "3m",
	"MAX_INPUT_CHARS":    25000,
	"MAX_UPLOAD_MB":      50,
	"PDF_FONT_PATH":      "",
	"WORKER_COUNT":       3,
	"JOB_QUEUE_SIZE":     100,
	"SESSION_TTL":        "2h",
	"JWT_SECRET":         DefaultJWTSecret,
	"ADMIN_KEY_HASH":     "",
	"RATE_LIMIT":         60,
	"CORS_ORIGIN":        "http://localhost:5173", // Vite dev server default
	"DEFAULT_LOCALE":     "ar",
}

// Load reads configuration. configFile may be empty, in which case
// ./reformatter.yaml is used when present.
//
// Go Pattern: Functions that can fail return (value, error), and the caller
// must check err before touching the value.
func Load(configFile string) (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("reformatter")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "reformatter"))
		}
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{
		Port:    v.GetString("PORT"),
		GinMode: v.GetString("GIN_MODE"),

		DatabaseURL: v.GetString("DATABASE_URL"),

		AIProvider:       strings.ToLower(v.GetString("AI_PROVIDER")),
		AIModel:          v.GetString("AI_MODEL"),
		GeminiAPIKey:     v.GetString("GEMINI_API_KEY"),
		AnthropicAPIKey:  v.GetString("ANTHROPIC_API_KEY"),
		OpenRouterAPIKey: v.GetString("OPENROUTER_API_KEY"),
		OllamaHost:       v.GetString("OLLAMA_HOST"),
		AITemperature:    float32(v.GetFloat64("AI_TEMPERATURE")),
		AITimeout:        v.GetDuration("AI_TIMEOUT"),
		MaxInputChars:    v.GetInt("MAX_INPUT_CHARS"),

		MaxUploadMB: v.GetInt("MAX_UPLOAD_MB"),
		PDFFontPath: v.GetString("PDF_FONT_PATH"),

		WorkerCount:  v.GetInt("WORKER_COUNT"),
		JobQueueSize: v.GetInt("JOB_QUEUE_SIZE"),

		SessionTTL: v.GetDuration("SESSION_TTL"),
		JWTSecret:  v.GetString("JWT_SECRET"),

		AdminKeyHash: v.GetString("ADMIN_KEY_HASH"),

		RateLimit: v.GetInt("RATE_LIMIT"),

		AllowedOrigins: splitOrigins(v.GetString("CORS_ORIGIN")),

		DefaultLocale: v.GetString("DEFAULT_LOCALE"),
	}

	// The hosted demo used a generic API_KEY for Gemini.
	if cfg.GeminiAPIKey == "" {
		cfg.GeminiAPIKey = v.GetString("API_KEY")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks ranges and the release-mode security rules.
func (c *Config) Validate() error {
	switch c.GinMode {
	case "debug", "release", "test":
	default:
		return fmt.Errorf("unknown GIN_MODE %q (must be debug, release, or test)", c.GinMode)
	}

	switch c.AIProvider {
	case "gemini", "anthropic", "openrouter", "ollama":
	default:
		return fmt.Errorf("unknown AI_PROVIDER %q (must be gemini, anthropic, openrouter, or ollama)", c.AIProvider)
	}

	if c.AITemperature < 0 || c.AITemperature > 2 {
		return fmt.Errorf("AI_TEMPERATURE must be between 0 and 2, got %v", c.AITemperature)
	}
	if c.AITimeout <= 0 {
		return fmt.Errorf("AI_TIMEOUT must be positive")
	}
	if c.MaxInputChars <= 0 {
		return fmt.Errorf("MAX_INPUT_CHARS must be positive")
	}
	if c.MaxUploadMB <= 0 {
		return fmt.Errorf("MAX_UPLOAD_MB must be positive")
	}
	if c.WorkerCount <= 0 || c.JobQueueSize <= 0 {
		return fmt.Errorf("WORKER_COUNT and JOB_QUEUE_SIZE must be positive")
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be positive")
	}

	// Security: JWT secret MUST be set in production mode.
	// In release mode, we refuse to start with the default secret.
	if c.GinMode == "release" && c.JWTSecret == DefaultJWTSecret {
		return fmt.Errorf("JWT_SECRET must be set in production; refusing to start with default secret")
	}

	return nil
}

// MaxUploadBytes is MaxUploadMB in bytes.
func (c *Config) MaxUploadBytes() int64 {
	return int64(c.MaxUploadMB) << 20
}

// HistoryEnabled reports whether a database is configured.
func (c *Config) HistoryEnabled() bool {
	return c.DatabaseURL != ""
}

func splitOrigins(s string) []string {
	var origins []string
	for _, o := range strings.Split(s, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}
