package config

import (
	"os"
	"testing"
	"time"
)

// clearEnv unsets key for the test, restoring the original value afterwards.
func clearEnv(t *testing.T, key string) {
	t.Helper()
	t.Setenv(key, "")
	os.Unsetenv(key)
}

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{
		"PORT", "FRONTEND_URL", "DB_PATH", "SESSION_TTL_MINUTES",
		"REPLY_DELAY_MS", "RANDOM_SEED", "SPEECH_RATE", "SPEECH_PITCH", "SPEECH_VOLUME",
	} {
		clearEnv(t, key)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Port != "8080" {
		t.Errorf("Expected default port 8080, got %s", cfg.Port)
	}
	if cfg.ReplyDelay != time.Second {
		t.Errorf("Expected default reply delay 1s, got %s", cfg.ReplyDelay)
	}
	if cfg.SessionTTL != time.Hour {
		t.Errorf("Expected default session TTL 1h, got %s", cfg.SessionTTL)
	}
	if cfg.Speech.Rate != 0.8 {
		t.Errorf("Expected default speech rate 0.8, got %v", cfg.Speech.Rate)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Default config must validate: %v", err)
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("DB_PATH", "/tmp/test.db")
	t.Setenv("REPLY_DELAY_MS", "250")
	t.Setenv("SESSION_TTL_MINUTES", "5")
	t.Setenv("RANDOM_SEED", "42")
	t.Setenv("SPEECH_RATE", "1.1")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Port != "9090" {
		t.Errorf("Expected port 9090, got %s", cfg.Port)
	}
	if cfg.DBPath != "/tmp/test.db" {
		t.Errorf("Expected db path /tmp/test.db, got %s", cfg.DBPath)
	}
	if cfg.ReplyDelay != 250*time.Millisecond {
		t.Errorf("Expected reply delay 250ms, got %s", cfg.ReplyDelay)
	}
	if cfg.SessionTTL != 5*time.Minute {
		t.Errorf("Expected TTL 5m, got %s", cfg.SessionTTL)
	}
	if cfg.RandomSeed != 42 {
		t.Errorf("Expected seed 42, got %d", cfg.RandomSeed)
	}
	if cfg.Speech.Rate != 1.1 {
		t.Errorf("Expected speech rate 1.1, got %v", cfg.Speech.Rate)
	}
}

func TestLoadRejectsNegativeReplyDelay(t *testing.T) {
	t.Setenv("REPLY_DELAY_MS", "-100")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.ReplyDelay != time.Second {
		t.Errorf("Negative delay must fall back to 1s, got %s", cfg.ReplyDelay)
	}
}

func TestLoadMalformedValuesFallBack(t *testing.T) {
	t.Setenv("REPLY_DELAY_MS", "soon")
	t.Setenv("RANDOM_SEED", "lucky")
	t.Setenv("SPEECH_RATE", "fast")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.ReplyDelay != time.Second {
		t.Errorf("Expected fallback delay 1s, got %s", cfg.ReplyDelay)
	}
	if cfg.RandomSeed != 0 {
		t.Errorf("Expected fallback seed 0, got %d", cfg.RandomSeed)
	}
	if cfg.Speech.Rate != 0.8 {
		t.Errorf("Expected fallback rate 0.8, got %v", cfg.Speech.Rate)
	}
}

func TestValidate(t *testing.T) {
	base := Config{
		Port:   "8080",
		DBPath: "./x.db",
		Speech: SpeechConfig{Rate: 0.8, Pitch: 1.0, Volume: 1.0},
	}
	if err := base.Validate(); err != nil {
		t.Fatalf("Expected valid config, got %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty port", func(c *Config) { c.Port = "" }},
		{"empty db path", func(c *Config) { c.DBPath = "" }},
		{"zero rate", func(c *Config) { c.Speech.Rate = 0 }},
		{"zero pitch", func(c *Config) { c.Speech.Pitch = 0 }},
		{"volume above one", func(c *Config) { c.Speech.Volume = 1.5 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base
			tt.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Expected validation error")
			}
		})
	}
}

func TestIsDevelopment(t *testing.T) {
	tests := []struct {
		frontend string
		want     bool
	}{
		{"", true},
		{"http://localhost:3000", true},
		{"http://127.0.0.1:3000", true},
		{"https://speakai.example.com", false},
	}
	for _, tt := range tests {
		cfg := Config{FrontendURL: tt.frontend}
		if got := cfg.IsDevelopment(); got != tt.want {
			t.Errorf("IsDevelopment(%q) = %v, want %v", tt.frontend, got, tt.want)
		}
	}
}
