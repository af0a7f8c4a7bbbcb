// Package config loads application configuration from environment variables.
package config

import (
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the application configuration loaded from environment variables.
type Config struct {
	ListenAddr     string
	DBPath         string
	ScrapeInterval time.Duration
	RunOnStart     bool
	// SecretKey is the 32-byte AES-256 key for stored portal passwords; nil when unset.
	SecretKey  []byte
	BrowserBin string
	Headless   bool
	LogLevel   slog.Level
}

// HasSecretKey reports whether stored passwords can be encrypted.
func (c *Config) HasSecretKey() bool {
	return len(c.SecretKey) == 32
}

// Load reads configuration from environment variables and returns a validated Config.
// All variables are optional, with defaults: BIDWATCH_LISTEN_ADDR (127.0.0.1:8080),
// BIDWATCH_DB_PATH (bidwatch.db), BIDWATCH_SCRAPE_INTERVAL (15m),
// BIDWATCH_RUN_ON_START (false), BIDWATCH_HEADLESS (true), BIDWATCH_LOG_LEVEL (info).
// BIDWATCH_SECRET_KEY, when set, must be 64 hex characters.
func Load() (*Config, error) {
	listenAddr := "127.0.0.1:8080"
	if v, ok := os.LookupEnv("BIDWATCH_LISTEN_ADDR"); ok && v != "" {
		listenAddr = v
	}

	dbPath := "bidwatch.db"
	if v, ok := os.LookupEnv("BIDWATCH_DB_PATH"); ok && v != "" {
		dbPath = v
	}

	scrapeInterval := 15 * time.Minute
	if v, ok := os.LookupEnv("BIDWATCH_SCRAPE_INTERVAL"); ok {
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("BIDWATCH_SCRAPE_INTERVAL has invalid duration %q: %w", v, err)
		}
		if parsed <= 0 {
			return nil, fmt.Errorf("BIDWATCH_SCRAPE_INTERVAL must be positive, got %q", v)
		}
		scrapeInterval = parsed
	}

	runOnStart, err := lookupBool("BIDWATCH_RUN_ON_START", false)
	if err != nil {
		return nil, err
	}

	headless, err := lookupBool("BIDWATCH_HEADLESS", true)
	if err != nil {
		return nil, err
	}

	var secretKey []byte
	if v, ok := os.LookupEnv("BIDWATCH_SECRET_KEY"); ok && v != "" {
		if len(v) != 64 {
			return nil, fmt.Errorf("BIDWATCH_SECRET_KEY must be 64 hex characters (32 bytes), got %d characters", len(v))
		}
		secretKey, err = hex.DecodeString(v)
		if err != nil {
			return nil, fmt.Errorf("BIDWATCH_SECRET_KEY is not valid hex: %w", err)
		}
	}

	logLevel := slog.LevelInfo
	if v, ok := os.LookupEnv("BIDWATCH_LOG_LEVEL"); ok && v != "" {
		if err := logLevel.UnmarshalText([]byte(strings.TrimSpace(v))); err != nil {
			return nil, fmt.Errorf("BIDWATCH_LOG_LEVEL has invalid level %q: %w", v, err)
		}
	}

	return &Config{
		ListenAddr:     listenAddr,
		DBPath:         dbPath,
		ScrapeInterval: scrapeInterval,
		RunOnStart:     runOnStart,
		SecretKey:      secretKey,
		BrowserBin:     os.Getenv("BIDWATCH_BROWSER_BIN"),
		Headless:       headless,
		LogLevel:       logLevel,
	}, nil
}

func lookupBool(key string, def bool) (bool, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s has invalid boolean %q: %w", key, v, err)
	}
	return b, nil
}
