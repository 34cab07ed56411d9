package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Load loads configuration from a YAML file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// LoadWithEnv loads configuration from a file and applies environment variable overrides
func LoadWithEnv(path string) (*Config, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	// Apply environment variable overrides
	if listenAddr := os.Getenv("CERTSYNC_LISTEN_ADDR"); listenAddr != "" {
		cfg.Server.ListenAddr = listenAddr
	}

	if apiToken := os.Getenv("CERTSYNC_API_TOKEN"); apiToken != "" {
		cfg.Server.APIToken = apiToken
	}

	if dbPath := os.Getenv("CERTSYNC_DB_PATH"); dbPath != "" {
		cfg.Database.Path = dbPath
	}

	if baseURL := os.Getenv("CERTSYNC_AUTHORITY_BASE_URL"); baseURL != "" {
		cfg.Authority.BaseURL = baseURL
	}

	if zoneID := os.Getenv("CERTSYNC_AUTHORITY_ZONE_ID"); zoneID != "" {
		cfg.Authority.ZoneID = zoneID
	}

	if token := os.Getenv("CERTSYNC_AUTHORITY_TOKEN"); token != "" {
		cfg.Authority.APIToken = token
	}

	// Validate again after env overrides
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration after env overrides: %w", err)
	}

	return cfg, nil
}
