// Package config centralises configuration parsing for the sync daemon.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config captures runtime configuration. The sync policy constants live here
// rather than in code: they are tunables, not derived values.
type Config struct {
	HTTPAddress   string
	RemoteBaseURL string
	StorePath     string
	RemoteTimeout time.Duration // Bounded wait per remote call.

	SnapshotTTL        time.Duration // Cache freshness window.
	MaxReplayAttempts  int           // Retry bound per pending change.
	RefreshDebounce    time.Duration // Foreground-refresh coalescing window.
	ProbeInterval      time.Duration // Connectivity probe cadence.
	QueueOnFailedWrite bool          // Also queue writes that failed while online.
}

// Load reads an optional YAML config file (LIFTSYNC_CONFIG_FILE), then
// environment variables on top, applying sensible defaults for local dev.
func Load() (Config, error) {
	cfg := Config{
		HTTPAddress:        ":8090",
		RemoteBaseURL:      "http://localhost:8080",
		StorePath:          "liftsync.db",
		RemoteTimeout:      10 * time.Second,
		SnapshotTTL:        5 * time.Minute,
		MaxReplayAttempts:  3,
		RefreshDebounce:    500 * time.Millisecond,
		ProbeInterval:      30 * time.Second,
		QueueOnFailedWrite: false,
	}

	if path := os.Getenv("LIFTSYNC_CONFIG_FILE"); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := applyFile(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file: %w", err)
		}
	}

	cfg.HTTPAddress = getEnv("HTTP_ADDRESS", cfg.HTTPAddress)
	cfg.RemoteBaseURL = getEnv("REMOTE_BASE_URL", cfg.RemoteBaseURL)
	cfg.StorePath = getEnv("STORE_PATH", cfg.StorePath)
	cfg.RemoteTimeout = getDurationEnv("REMOTE_TIMEOUT", cfg.RemoteTimeout)
	cfg.SnapshotTTL = getDurationEnv("SNAPSHOT_TTL", cfg.SnapshotTTL)
	cfg.MaxReplayAttempts = getIntEnv("MAX_REPLAY_ATTEMPTS", cfg.MaxReplayAttempts)
	cfg.RefreshDebounce = getDurationEnv("REFRESH_DEBOUNCE", cfg.RefreshDebounce)
	cfg.ProbeInterval = getDurationEnv("PROBE_INTERVAL", cfg.ProbeInterval)
	cfg.QueueOnFailedWrite = getBoolEnv("QUEUE_ON_FAILED_WRITE", cfg.QueueOnFailedWrite)
	return cfg, nil
}

// fileConfig is the YAML shape of the config file. Durations are written in
// Go duration syntax ("90s", "5m").
type fileConfig struct {
	HTTPAddress   string `yaml:"http_address"`
	RemoteBaseURL string `yaml:"remote_base_url"`
	StorePath     string `yaml:"store_path"`
	RemoteTimeout string `yaml:"remote_timeout"`

	SnapshotTTL        string `yaml:"snapshot_ttl"`
	MaxReplayAttempts  *int   `yaml:"max_replay_attempts"`
	RefreshDebounce    string `yaml:"refresh_debounce"`
	ProbeInterval      string `yaml:"probe_interval"`
	QueueOnFailedWrite *bool  `yaml:"queue_on_failed_write"`
}

func applyFile(raw []byte, cfg *Config) error {
	var file fileConfig
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return err
	}

	if file.HTTPAddress != "" {
		cfg.HTTPAddress = file.HTTPAddress
	}
	if file.RemoteBaseURL != "" {
		cfg.RemoteBaseURL = file.RemoteBaseURL
	}
	if file.StorePath != "" {
		cfg.StorePath = file.StorePath
	}
	if file.MaxReplayAttempts != nil {
		cfg.MaxReplayAttempts = *file.MaxReplayAttempts
	}
	if file.QueueOnFailedWrite != nil {
		cfg.QueueOnFailedWrite = *file.QueueOnFailedWrite
	}

	durations := []struct {
		key   string
		value string
		out   *time.Duration
	}{
		{"remote_timeout", file.RemoteTimeout, &cfg.RemoteTimeout},
		{"snapshot_ttl", file.SnapshotTTL, &cfg.SnapshotTTL},
		{"refresh_debounce", file.RefreshDebounce, &cfg.RefreshDebounce},
		{"probe_interval", file.ProbeInterval, &cfg.ProbeInterval},
	}
	for _, d := range durations {
		if d.value == "" {
			continue
		}
		parsed, err := time.ParseDuration(d.value)
		if err != nil {
			return fmt.Errorf("%s: %w", d.key, err)
		}
		*d.out = parsed
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getDurationEnv(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getIntEnv(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getBoolEnv(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return fallback
}
