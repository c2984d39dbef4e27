package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const (
	xdgAppName = "coachsync"
	configFile = "config.json"

	defaultTimeoutSeconds = 30
	defaultDatabaseFile   = "tasks.db"
)

type Config struct {
	// APIBaseURL overrides the external service endpoint; empty means the
	// production endpoint.
	APIBaseURL            string `json:"api_base_url,omitempty"`
	RequestTimeoutSeconds int    `json:"request_timeout_seconds"`
	DatabasePath          string `json:"database_path"`
}

// RequestTimeout returns the per-request HTTP timeout.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

func GetConfigPath() (string, error) {
	xdgHome, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(xdgHome, ".config", xdgAppName, configFile), nil
}

func defaults() (*Config, error) {
	xdgHome, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}
	return &Config{
		RequestTimeoutSeconds: defaultTimeoutSeconds,
		DatabasePath:          filepath.Join(xdgHome, ".config", xdgAppName, defaultDatabaseFile),
	}, nil
}

func Load() (*Config, error) {
	path, err := GetConfigPath()
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return defaults()
		}
		return nil, err
	}
	defer f.Close()

	var cfg Config
	if err := json.NewDecoder(f).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if cfg.RequestTimeoutSeconds <= 0 {
		cfg.RequestTimeoutSeconds = defaultTimeoutSeconds
	}
	if cfg.DatabasePath == "" {
		fallback, err := defaults()
		if err != nil {
			return nil, err
		}
		cfg.DatabasePath = fallback.DatabasePath
	}
	return &cfg, nil
}

func Save(cfg *Config) error {
	path, err := GetConfigPath()
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to open config file for writing: %w", err)
	}
	defer f.Close()

	encoder := json.NewEncoder(f)
	encoder.SetIndent("", "  ")
	return encoder.Encode(cfg)
}
