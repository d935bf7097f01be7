// Package config loads tabsyncd's configuration from a YAML file, then
// layers environment variable overrides on top (CLI flag overrides are
// applied afterwards by cmd/tabsyncd), the way the
// Rust reference implementation's config.rs builds its Config from
// defaults + file + environment.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Server holds listener and transport settings.
type Server struct {
	BindAddr                 string        `yaml:"bind_addr"`
	RequestTimeoutSecs       int           `yaml:"request_timeout_secs"`
	MaxConcurrentConnections int           `yaml:"max_concurrent_connections"`
	CORSAllowedOrigins       []string      `yaml:"cors_allowed_origins"`
	RequestTimeout           time.Duration `yaml:"-"`
}

// Database holds the operation log's storage settings.
type Database struct {
	URL                   string `yaml:"url"`
	MaxConnections        int    `yaml:"max_connections"`
	ConnectionTimeoutSecs int    `yaml:"connection_timeout_secs"`
}

// Auth holds the shared-token and rate-limiting settings.
type Auth struct {
	SharedToken          string `yaml:"shared_token"`
	TokenHash            string `yaml:"token_hash"`
	TokenHeader          string `yaml:"token_header"`
	RateLimiting         bool   `yaml:"rate_limiting"`
	MaxRequestsPerMinute int    `yaml:"max_requests_per_minute"`
}

// Sync holds protocol-level limits.
type Sync struct {
	MaxPayloadSize int  `yaml:"max_payload_size"`
	MaxURLLength   int  `yaml:"max_url_length"`
	MaxTitleLength int  `yaml:"max_title_length"`
	Compression    bool `yaml:"compression"`
	PollSecs       int  `yaml:"poll_secs"`
	FlushSecs      int  `yaml:"flush_secs"`
}

// Logging holds the logger's level, format, and request-logging toggle.
type Logging struct {
	Level          string `yaml:"level"`
	Format         string `yaml:"format"`
	RequestLogging bool   `yaml:"request_logging"`
}

// Config is the full tabsyncd configuration tree.
type Config struct {
	Server   Server   `yaml:"server"`
	Database Database `yaml:"database"`
	Auth     Auth     `yaml:"auth"`
	Sync     Sync     `yaml:"sync"`
	Logging  Logging  `yaml:"logging"`
}

// Default returns the configuration used when no file is present and no
// overrides apply.
func Default() *Config {
	return &Config{
		Server: Server{
			BindAddr:                 "0.0.0.0:8787",
			RequestTimeoutSecs:       30,
			MaxConcurrentConnections: 256,
		},
		Database: Database{
			URL:                   "tabsync.db",
			MaxConnections:        1,
			ConnectionTimeoutSecs: 5,
		},
		Auth: Auth{
			TokenHeader:          "Authorization",
			RateLimiting:         true,
			MaxRequestsPerMinute: 120,
		},
		Sync: Sync{
			MaxPayloadSize: 5 << 20, // 5 MiB
			MaxURLLength:   2048,
			MaxTitleLength: 512,
			PollSecs:       30,
			FlushSecs:      5,
		},
		Logging: Logging{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load reads path if it exists, merging onto Default(), then applies
// environment overrides. A missing file is not an error: a fresh
// installation runs on defaults plus environment variables alone.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("config: parsing %s: %w", path, err)
			}
		case os.IsNotExist(err):
			// fall through on defaults
		default:
			return nil, fmt.Errorf("config: reading %s: %w", path, err)
		}
	}

	applyEnv(cfg)
	cfg.Server.RequestTimeout = time.Duration(cfg.Server.RequestTimeoutSecs) * time.Second
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("TABSYNC_BIND_ADDR"); v != "" {
		cfg.Server.BindAddr = v
	}
	if v := os.Getenv("TABSYNC_DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
	if v := os.Getenv("TABSYNC_AUTH_TOKEN"); v != "" {
		cfg.Auth.SharedToken = v
	}
	if v := os.Getenv("TABSYNC_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

var validLogLevels = map[string]bool{
	"trace": true, "debug": true, "info": true, "warn": true, "error": true,
}

// Validate rejects a configuration that would make the server unsafe or
// meaningless to start: an empty bind address, a missing shared secret, an
// unrecognized log level, or non-positive limits.
func (c *Config) Validate() error {
	if c.Server.BindAddr == "" {
		return fmt.Errorf("config: server.bind_addr must not be empty")
	}
	if c.Auth.SharedToken == "" && c.Auth.TokenHash == "" {
		return fmt.Errorf("config: auth.shared_token (or auth.token_hash) must be set")
	}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("config: logging.level %q is not one of trace,debug,info,warn,error", c.Logging.Level)
	}
	if c.Auth.RateLimiting && c.Auth.MaxRequestsPerMinute <= 0 {
		return fmt.Errorf("config: auth.max_requests_per_minute must be positive when rate_limiting is enabled")
	}
	if c.Sync.MaxPayloadSize <= 0 {
		return fmt.Errorf("config: sync.max_payload_size must be positive")
	}
	if c.Sync.MaxURLLength <= 0 || c.Sync.MaxTitleLength <= 0 {
		return fmt.Errorf("config: sync.max_url_length and sync.max_title_length must be positive")
	}
	return nil
}
