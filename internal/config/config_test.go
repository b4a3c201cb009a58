package config

import (
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"
)

// valid returns a configuration that passes Validate.
func valid() *Config {
	return &Config{
		TelegramToken:  "123456:ABC-DEF1234ghIkl",
		GeminiAPIKey:   "AIzaSyTest_not_a_real_key",
		DefaultModel:   DefaultModel,
		ChunkLimit:     DefaultChunkLimit,
		TypingInterval: DefaultTypingInterval,
		ModelCacheTTL:  DefaultModelCacheTTL,
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{"valid", func(c *Config) {}, nil},
		{"missing telegram token", func(c *Config) { c.TelegramToken = "" }, ErrMissingTelegramToken},
		{"missing gemini key", func(c *Config) { c.GeminiAPIKey = "" }, ErrMissingGeminiAPIKey},
		{"empty default model", func(c *Config) { c.DefaultModel = "" }, ErrInvalidModelName},
		{"zero chunk limit", func(c *Config) { c.ChunkLimit = 0 }, ErrInvalidChunkLimit},
		{"chunk limit over cap", func(c *Config) { c.ChunkLimit = MaxChunkLimit + 1 }, ErrInvalidChunkLimit},
		{"zero cache ttl", func(c *Config) { c.ModelCacheTTL = 0 }, ErrInvalidCacheTTL},
		{"negative typing interval", func(c *Config) { c.TypingInterval = -time.Second }, ErrInvalidTypingInterval},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestMarshalJSON_MasksSecrets(t *testing.T) {
	cfg := valid()

	data, err := json.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	s := string(data)
	if strings.Contains(s, cfg.TelegramToken) {
		t.Errorf("telegram token leaked in JSON: %s", s)
	}
	if strings.Contains(s, cfg.GeminiAPIKey) {
		t.Errorf("gemini key leaked in JSON: %s", s)
	}
	if !strings.Contains(s, maskedValue) {
		t.Errorf("expected masked placeholder in JSON: %s", s)
	}
}

func TestString_MasksSecrets(t *testing.T) {
	cfg := valid()
	if strings.Contains(cfg.String(), cfg.GeminiAPIKey) {
		t.Error("String() leaked the API key")
	}
}

func TestMaskSecret(t *testing.T) {
	tests := []struct {
		in         string
		fullMasked bool
	}{
		{"", true}, // empty stays empty, nothing to leak
		{"short", true},
		{"12345678", true},
		{"a_much_longer_secret_value", false},
	}
	for _, tt := range tests {
		got := maskSecret(tt.in)
		if tt.in == "" {
			if got != "" {
				t.Errorf("maskSecret(%q) = %q, want empty", tt.in, got)
			}
			continue
		}
		if tt.fullMasked && got != maskedValue {
			t.Errorf("maskSecret(%q) = %q, want fully masked", tt.in, got)
		}
		if !tt.fullMasked {
			if !strings.HasPrefix(got, tt.in[:2]) || !strings.HasSuffix(got, tt.in[len(tt.in)-2:]) {
				t.Errorf("maskSecret(%q) = %q, want 2-char prefix/suffix kept", tt.in, got)
			}
			if strings.Contains(got, tt.in[2:len(tt.in)-2]) {
				t.Errorf("maskSecret(%q) leaked the middle: %q", tt.in, got)
			}
		}
	}
}

func TestSlogLevel(t *testing.T) {
	tests := []struct {
		name string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"bogus", slog.LevelInfo},
		{"", slog.LevelInfo},
	}
	for _, tt := range tests {
		cfg := &Config{LogLevel: tt.name}
		if got := cfg.SlogLevel(); got != tt.want {
			t.Errorf("SlogLevel(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestFallbackModels_NotEmpty(t *testing.T) {
	m := FallbackModels()
	if len(m) == 0 {
		t.Fatal("FallbackModels() is empty")
	}
	for id, name := range m {
		if id == "" || name == "" {
			t.Errorf("fallback entry %q->%q has empty field", id, name)
		}
	}
}
