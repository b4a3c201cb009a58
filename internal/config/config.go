// Package config provides application configuration with multi-source priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (runtime override)
//  2. Config file (~/.gembot/config.yaml)
//  3. Default values
//
// The two secrets, TELEGRAM_TOKEN and GEMINI_API_KEY, come from the
// environment only and are validated at load time: the process must not
// start without them. Sensitive fields are masked in MarshalJSON/String.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Sentinel errors for configuration validation, checked with errors.Is().
var (
	// ErrMissingTelegramToken indicates TELEGRAM_TOKEN is not set.
	ErrMissingTelegramToken = errors.New("missing TELEGRAM_TOKEN")

	// ErrMissingGeminiAPIKey indicates GEMINI_API_KEY is not set.
	ErrMissingGeminiAPIKey = errors.New("missing GEMINI_API_KEY")

	// ErrInvalidModelName indicates the default model name is empty.
	ErrInvalidModelName = errors.New("invalid default model name")

	// ErrInvalidChunkLimit indicates the message chunk limit is out of range.
	ErrInvalidChunkLimit = errors.New("invalid chunk limit")

	// ErrInvalidCacheTTL indicates the model cache TTL is not positive.
	ErrInvalidCacheTTL = errors.New("invalid model cache TTL")

	// ErrInvalidTypingInterval indicates the typing interval is not positive.
	ErrInvalidTypingInterval = errors.New("invalid typing interval")
)

const (
	// DefaultModel is the model bound to freshly created sessions.
	DefaultModel = "gemini-2.0-flash"

	// DefaultChunkLimit leaves headroom under Telegram's 4096-char message cap.
	DefaultChunkLimit = 4000

	// MaxChunkLimit is Telegram's hard message size limit.
	MaxChunkLimit = 4096

	// DefaultModelCacheTTL is how long a fetched model list stays fresh.
	DefaultModelCacheTTL = 5 * time.Minute

	// DefaultTypingInterval is how often the typing indicator is refreshed
	// while a model call is in flight.
	DefaultTypingInterval = 4 * time.Second
)

// Config stores application configuration.
// SECURITY: sensitive fields are explicitly masked in MarshalJSON().
type Config struct {
	// Secrets (environment only)
	TelegramToken string `mapstructure:"telegram_token" json:"telegram_token"` // SENSITIVE: masked in MarshalJSON
	GeminiAPIKey  string `mapstructure:"gemini_api_key" json:"gemini_api_key"` // SENSITIVE: masked in MarshalJSON

	// Conversation defaults
	DefaultModel string `mapstructure:"default_model" json:"default_model"`

	// Delivery tuning
	ChunkLimit     int           `mapstructure:"chunk_limit" json:"chunk_limit"`
	TypingInterval time.Duration `mapstructure:"typing_interval" json:"typing_interval"`

	// Model registry
	ModelCacheTTL  time.Duration     `mapstructure:"model_cache_ttl" json:"model_cache_ttl"`
	FallbackModels map[string]string `mapstructure:"fallback_models" json:"fallback_models"`

	// Logging
	LogJSON  bool   `mapstructure:"log_json" json:"log_json"`
	LogLevel string `mapstructure:"log_level" json:"log_level"` // debug|info|warn|error
}

// Load loads configuration.
// Priority: environment variables > configuration file > default values.
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting user home directory: %w", err)
	}

	configDir := filepath.Join(home, ".gembot")
	if err := os.MkdirAll(configDir, 0o750); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configDir)
	v.AddConfigPath(".")

	setDefaults(v)
	bindEnvVariables(v)

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is fine; defaults plus environment suffice.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		slog.Debug("configuration file not found, using defaults",
			"search_paths", []string{configDir, "."})
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	// Fail fast: an unconfigured bot must not start.
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets all default configuration values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("default_model", DefaultModel)
	v.SetDefault("chunk_limit", DefaultChunkLimit)
	v.SetDefault("typing_interval", DefaultTypingInterval)
	v.SetDefault("model_cache_ttl", DefaultModelCacheTTL)
	v.SetDefault("fallback_models", FallbackModels())
	v.SetDefault("log_json", false)
	v.SetDefault("log_level", "info")
}

// FallbackModels returns the default model set served when the provider
// cannot be queried and no cache exists. Overridable via fallback_models.
func FallbackModels() map[string]string {
	return map[string]string{
		"gemini-2.0-flash": "Gemini 2.0 Flash",
		"gemini-1.5-pro":   "Gemini 1.5 Pro",
		"gemini-1.5-flash": "Gemini 1.5 Flash",
	}
}

// bindEnvVariables binds environment variables explicitly.
// Only the two secrets are required; the rest are optional overrides.
func bindEnvVariables(v *viper.Viper) {
	// Hardcoded keys cannot fail to bind; a panic here is a bug, not a
	// runtime condition.
	mustBind := func(key, envVar string) {
		if err := v.BindEnv(key, envVar); err != nil {
			panic(fmt.Sprintf("BUG: failed to bind %q to %q: %v", key, envVar, err))
		}
	}

	mustBind("telegram_token", "TELEGRAM_TOKEN")
	mustBind("gemini_api_key", "GEMINI_API_KEY")

	mustBind("default_model", "GEMBOT_DEFAULT_MODEL")
	mustBind("chunk_limit", "GEMBOT_CHUNK_LIMIT")
	mustBind("log_level", "GEMBOT_LOG_LEVEL")
	mustBind("log_json", "GEMBOT_LOG_JSON")
}

// Validate checks the configuration, returning the first violated sentinel.
func (c *Config) Validate() error {
	if c.TelegramToken == "" {
		return ErrMissingTelegramToken
	}
	if c.GeminiAPIKey == "" {
		return ErrMissingGeminiAPIKey
	}
	if c.DefaultModel == "" {
		return ErrInvalidModelName
	}
	if c.ChunkLimit <= 0 || c.ChunkLimit > MaxChunkLimit {
		return fmt.Errorf("%w: %d (must be in 1..%d)", ErrInvalidChunkLimit, c.ChunkLimit, MaxChunkLimit)
	}
	if c.ModelCacheTTL <= 0 {
		return fmt.Errorf("%w: %s", ErrInvalidCacheTTL, c.ModelCacheTTL)
	}
	if c.TypingInterval <= 0 {
		return fmt.Errorf("%w: %s", ErrInvalidTypingInterval, c.TypingInterval)
	}
	return nil
}

// maskedValue is the placeholder for masked sensitive data.
// Full-width blocks avoid accidental substring matches against real secrets.
const maskedValue = "████████"

// maskSecret masks a secret string for safe logging. Secrets of 8 chars or
// fewer are fully masked; longer ones keep the first and last 2 characters
// for debug utility.
func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return maskedValue
	}
	return s[:2] + "<" + maskedValue + ">" + s[len(s)-2:]
}

// MarshalJSON implements json.Marshaler with explicit sensitive field masking.
// When adding new sensitive fields, update this method.
func (c Config) MarshalJSON() ([]byte, error) {
	type alias Config
	a := alias(c)
	a.TelegramToken = maskSecret(a.TelegramToken)
	a.GeminiAPIKey = maskSecret(a.GeminiAPIKey)
	data, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return data, nil
}

// String implements Stringer to prevent accidental printing of secrets.
func (c Config) String() string {
	data, err := c.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("Config{error: %v}", err)
	}
	return string(data)
}

// SlogLevel maps the configured level name to a slog.Level.
// Unknown names fall back to info.
func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
