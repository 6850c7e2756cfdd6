// Package config provides application configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Port        string
	FrontendURL string
	DBPath      string
	SessionTTL  time.Duration
	// ReplyDelay is how long the simulated partner "thinks" before its reply
	// is committed to the transcript and spoken.
	ReplyDelay time.Duration
	// RandomSeed seeds the simulated responder and scorer. 0 means seed from
	// the clock; any other value makes replies and scores reproducible.
	RandomSeed int64
	Speech     SpeechConfig
}

// SpeechConfig controls the synthesis parameters sent to the browser.
type SpeechConfig struct {
	Rate   float64
	Pitch  float64
	Volume float64
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	replyDelayMS := getEnvInt("REPLY_DELAY_MS", 1000)
	if replyDelayMS < 0 {
		replyDelayMS = 1000
	}
	ttlMinutes := getEnvInt("SESSION_TTL_MINUTES", 60)
	if ttlMinutes <= 0 {
		ttlMinutes = 60
	}

	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		FrontendURL: getEnv("FRONTEND_URL", ""),
		DBPath:      getEnv("DB_PATH", "./data/speakai.db"),
		SessionTTL:  time.Duration(ttlMinutes) * time.Minute,
		ReplyDelay:  time.Duration(replyDelayMS) * time.Millisecond,
		RandomSeed:  getEnvInt64("RANDOM_SEED", 0),
		Speech: SpeechConfig{
			Rate:   getEnvFloat("SPEECH_RATE", 0.8),
			Pitch:  getEnvFloat("SPEECH_PITCH", 1.0),
			Volume: getEnvFloat("SPEECH_VOLUME", 1.0),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if c.DBPath == "" {
		return fmt.Errorf("DB_PATH cannot be empty")
	}
	if c.Speech.Rate <= 0 {
		return fmt.Errorf("SPEECH_RATE must be > 0")
	}
	if c.Speech.Pitch <= 0 {
		return fmt.Errorf("SPEECH_PITCH must be > 0")
	}
	if c.Speech.Volume <= 0 || c.Speech.Volume > 1 {
		return fmt.Errorf("SPEECH_VOLUME must be in (0, 1]")
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.FrontendURL == "" ||
		strings.Contains(c.FrontendURL, "localhost") ||
		strings.Contains(c.FrontendURL, "127.0.0.1")
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

func getEnvInt64(key string, fallback int64) int64 {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvFloat(key string, fallback float64) float64 {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return fallback
	}
	return f
}
