package config

import (
	"fmt"
	"time"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Authority AuthorityConfig `yaml:"authority"`
	Poller    PollerConfig    `yaml:"poller"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ServerConfig contains server configuration
type ServerConfig struct {
	ListenAddr string `yaml:"listen_addr"`
	// APIToken guards the /ssl routes when set; empty leaves them open
	APIToken string `yaml:"api_token"`
}

// DatabaseConfig contains database configuration
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// AuthorityConfig contains remote authority configuration
type AuthorityConfig struct {
	BaseURL  string `yaml:"base_url"`
	ZoneID   string `yaml:"zone_id"`
	APIToken string `yaml:"api_token"`
}

// PollerConfig contains status poller configuration. The defaults (three
// attempts, sixty seconds apart) match the reference deployment.
type PollerConfig struct {
	Attempts int    `yaml:"attempts"`
	Interval string `yaml:"interval"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// applyDefaults fills in unset optional values
func (c *Config) applyDefaults() {
	if c.Server.ListenAddr == "" {
		c.Server.ListenAddr = ":8080"
	}
	if c.Poller.Attempts == 0 {
		c.Poller.Attempts = 3
	}
	if c.Poller.Interval == "" {
		c.Poller.Interval = "60s"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}

	if c.Authority.BaseURL == "" {
		return fmt.Errorf("authority.base_url is required")
	}
	if c.Authority.ZoneID == "" {
		return fmt.Errorf("authority.zone_id is required")
	}
	if c.Authority.APIToken == "" {
		return fmt.Errorf("authority.api_token is required")
	}

	if c.Poller.Attempts <= 0 {
		return fmt.Errorf("poller.attempts must be positive")
	}
	if _, err := time.ParseDuration(c.Poller.Interval); err != nil {
		return fmt.Errorf("poller.interval is invalid: %w", err)
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	if c.Logging.Format != "json" && c.Logging.Format != "text" {
		return fmt.Errorf("logging.format must be 'json' or 'text'")
	}

	return nil
}

// GetPollerInterval returns the poller interval as time.Duration
func (c *Config) GetPollerInterval() time.Duration {
	d, _ := time.ParseDuration(c.Poller.Interval)
	return d
}
