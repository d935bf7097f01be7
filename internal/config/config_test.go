package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultIsValidOnceTokenSet(t *testing.T) {
	cfg := Default()
	cfg.Auth.SharedToken = "secret"
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected default config plus a token to validate, got %v", err)
	}
}

func TestValidateRejectsMissingToken(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation error for missing shared token")
	}
}

func TestValidateRejectsUnknownLogLevel(t *testing.T) {
	cfg := Default()
	cfg.Auth.SharedToken = "secret"
	cfg.Logging.Level = "verbose"
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation error for unknown log level")
	}
}

func TestLoadMissingFileFallsBackToDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.BindAddr != "0.0.0.0:8787" {
		t.Errorf("expected default bind addr, got %q", cfg.Server.BindAddr)
	}
}

func TestLoadMergesFileOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tabsync.yaml")
	yaml := []byte("server:\n  bind_addr: \"127.0.0.1:9999\"\nauth:\n  shared_token: \"file-token\"\n")
	if err := os.WriteFile(path, yaml, 0600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.BindAddr != "127.0.0.1:9999" {
		t.Errorf("expected file value to override default, got %q", cfg.Server.BindAddr)
	}
	if cfg.Auth.SharedToken != "file-token" {
		t.Errorf("expected shared token from file, got %q", cfg.Auth.SharedToken)
	}
	// Untouched fields keep their defaults.
	if cfg.Auth.MaxRequestsPerMinute != 120 {
		t.Errorf("expected default max_requests_per_minute to survive a partial file, got %d", cfg.Auth.MaxRequestsPerMinute)
	}
}

func TestEnvOverridesDefaults(t *testing.T) {
	t.Setenv("TABSYNC_BIND_ADDR", "10.0.0.1:1234")
	t.Setenv("TABSYNC_AUTH_TOKEN", "env-token")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.BindAddr != "10.0.0.1:1234" {
		t.Errorf("expected env bind addr, got %q", cfg.Server.BindAddr)
	}
	if cfg.Auth.SharedToken != "env-token" {
		t.Errorf("expected env token, got %q", cfg.Auth.SharedToken)
	}
}
