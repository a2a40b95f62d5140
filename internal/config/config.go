// Package config carries the proxy's configuration, loadable from flags,
// a YAML file, or both.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultPort              = 161
	DefaultListen            = "0.0.0.0"
	DefaultBackendTimeoutSec = 2
	DefaultBackendRetries    = 2
	DefaultCacheTTLSec       = 300
	DefaultWebPort           = "8161"
)

type Config struct {
	Port              int    `yaml:"port"`
	Listen            string `yaml:"listen"`
	BackendCommunity  string `yaml:"backend_community"`
	BackendTimeoutSec int    `yaml:"backend_timeout_sec"`
	BackendRetries    int    `yaml:"num_backend_retries"`
	CacheTTLSec       int    `yaml:"cache_ttl_sec"`
	RouteFile         string `yaml:"route_file"`
	WebPort           string `yaml:"web_port"`
	StatsCron         string `yaml:"stats_cron"`
}

func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{BackendRetries: DefaultBackendRetries, WebPort: DefaultWebPort}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("parse config yaml: %w", err)
	}
	return cfg, nil
}

// Normalize fills in defaults and validates the result.
func (c *Config) Normalize() error {
	if c.Port == 0 {
		c.Port = DefaultPort
	}
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if strings.TrimSpace(c.Listen) == "" {
		c.Listen = DefaultListen
	}
	if strings.TrimSpace(c.BackendCommunity) == "" {
		return fmt.Errorf("backend community is required")
	}
	if c.BackendTimeoutSec == 0 {
		c.BackendTimeoutSec = DefaultBackendTimeoutSec
	}
	if c.BackendTimeoutSec < 0 {
		return fmt.Errorf("invalid backend timeout %d", c.BackendTimeoutSec)
	}
	if c.BackendRetries < 0 {
		c.BackendRetries = 0
	}
	if c.CacheTTLSec == 0 {
		c.CacheTTLSec = DefaultCacheTTLSec
	}
	if c.CacheTTLSec < 0 {
		return fmt.Errorf("invalid cache TTL %d", c.CacheTTLSec)
	}
	return nil
}

func (c *Config) BackendTimeout() time.Duration {
	return time.Duration(c.BackendTimeoutSec) * time.Second
}

func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSec) * time.Second
}
