package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestNormalizeDefaults(t *testing.T) {
	cfg := &Config{BackendCommunity: "secret"}
	if err := cfg.Normalize(); err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if cfg.Port != 161 {
		t.Errorf("port = %d, want 161", cfg.Port)
	}
	if cfg.Listen != "0.0.0.0" {
		t.Errorf("listen = %q, want 0.0.0.0", cfg.Listen)
	}
	if cfg.BackendTimeout() != 2*time.Second {
		t.Errorf("backend timeout = %v, want 2s", cfg.BackendTimeout())
	}
	if cfg.CacheTTL() != 300*time.Second {
		t.Errorf("cache TTL = %v, want 5m", cfg.CacheTTL())
	}
}

func TestNormalizeValidation(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"missing_community", Config{}},
		{"blank_community", Config{BackendCommunity: "   "}},
		{"port_out_of_range", Config{BackendCommunity: "secret", Port: 70000}},
		{"negative_timeout", Config{BackendCommunity: "secret", BackendTimeoutSec: -1}},
		{"negative_ttl", Config{BackendCommunity: "secret", CacheTTLSec: -1}},
	}
	for _, tt := range tests {
		cfg := tt.cfg
		if err := cfg.Normalize(); err == nil {
			t.Errorf("%s: Normalize accepted invalid config", tt.name)
		}
	}
}

func TestNormalizeClampsNegativeRetries(t *testing.T) {
	cfg := &Config{BackendCommunity: "secret", BackendRetries: -5}
	if err := cfg.Normalize(); err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if cfg.BackendRetries != 0 {
		t.Errorf("backend retries = %d, want 0", cfg.BackendRetries)
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	configYAML := `port: 10161
backend_community: secret
backend_timeout_sec: 1
num_backend_retries: 4
cache_ttl_sec: 60
route_file: routes.yaml
web_port: "9000"
stats_cron: "*/5 * * * *"
`
	if err := os.WriteFile(path, []byte(configYAML), 0o644); err != nil {
		t.Fatalf("write config file: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := cfg.Normalize(); err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if cfg.Port != 10161 || cfg.BackendCommunity != "secret" || cfg.BackendRetries != 4 {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if cfg.BackendTimeout() != time.Second || cfg.CacheTTL() != time.Minute {
		t.Fatalf("unexpected durations: %v %v", cfg.BackendTimeout(), cfg.CacheTTL())
	}
	if cfg.WebPort != "9000" || cfg.StatsCron != "*/5 * * * *" {
		t.Fatalf("unexpected web/stats config: %+v", cfg)
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Load accepted a missing file")
	}

	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("port: [161]"), 0o644); err != nil {
		t.Fatalf("write config file: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Error("Load accepted malformed yaml")
	}
}
