// Package config loads the process-wide configuration. It is read once at
// startup into an immutable struct and passed by reference; there is no
// ambient mutable configuration state.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the complete application configuration
type Config struct {
	// HTTP server settings for the proxy surface
	HTTP struct {
		Address string `yaml:"address"`
		Port    string `yaml:"port"`
	} `yaml:"http"`

	// Upstream settings for manifest and subtitle fetches
	Upstream struct {
		Timeout time.Duration `yaml:"timeout"`
	} `yaml:"upstream"`

	// Cache settings for fetched manifests
	Cache struct {
		Backend string        `yaml:"backend"` // "memory" or "disk"
		Dir     string        `yaml:"dir"`
		TTL     time.Duration `yaml:"ttl"`
	} `yaml:"cache"`

	// Breaker settings guard upstream manifest fetches
	Breaker struct {
		FailureThreshold int           `yaml:"failure_threshold"`
		Timeout          time.Duration `yaml:"timeout"`
		HalfOpenRequests int           `yaml:"half_open_requests"`
	} `yaml:"breaker"`

	// Interceptor scheme markers substituted for http/https
	Interceptor struct {
		HTTPScheme  string `yaml:"http_scheme"`
		HTTPSScheme string `yaml:"https_scheme"`
	} `yaml:"interceptor"`

	// Controls holds control-panel behavior and layout offsets
	Controls struct {
		AutoHideDelay time.Duration `yaml:"auto_hide_delay"`
		PanelOffsetX  float64       `yaml:"panel_offset_x"`
		PanelOffsetY  float64       `yaml:"panel_offset_y"`
	} `yaml:"controls"`

	// Player coordinator tuning
	Player struct {
		TimeObserveInterval time.Duration `yaml:"time_observe_interval"`
	} `yaml:"player"`

	// LogLevel is one of DEBUG, INFO, WARN, ERROR
	LogLevel string `yaml:"log_level"`
}

// Default returns a configuration with all defaults applied
func Default() *Config {
	cfg := &Config{}
	cfg.HTTP.Address = ""
	cfg.HTTP.Port = "8080"
	cfg.Upstream.Timeout = 15 * time.Second
	cfg.Cache.Backend = "memory"
	cfg.Cache.TTL = 30 * time.Second
	cfg.Breaker.FailureThreshold = 5
	cfg.Breaker.Timeout = 30 * time.Second
	cfg.Breaker.HalfOpenRequests = 1
	cfg.Interceptor.HTTPScheme = "panoplay-http"
	cfg.Interceptor.HTTPSScheme = "panoplay-https"
	cfg.Controls.AutoHideDelay = 10 * time.Second
	cfg.Player.TimeObserveInterval = 500 * time.Millisecond
	cfg.LogLevel = "INFO"
	return cfg
}

// Load reads the configuration from a YAML file, applying defaults for
// missing values and validating the result. An empty path returns defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides applies the environment overrides the daemon honors
func applyEnvOverrides(cfg *Config) {
	if port := os.Getenv("PORT"); port != "" {
		cfg.HTTP.Port = port
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		cfg.LogLevel = level
	}
	if dir := os.Getenv("CACHE_DIR"); dir != "" {
		cfg.Cache.Backend = "disk"
		cfg.Cache.Dir = dir
	}
}

// Validate checks the configuration for inconsistencies
func (c *Config) Validate() error {
	if c.HTTP.Port == "" {
		return fmt.Errorf("config: http.port cannot be empty")
	}
	if c.Upstream.Timeout <= 0 {
		return fmt.Errorf("config: upstream.timeout must be positive")
	}
	switch c.Cache.Backend {
	case "memory":
	case "disk":
		if c.Cache.Dir == "" {
			return fmt.Errorf("config: cache.dir is required for the disk backend")
		}
	default:
		return fmt.Errorf("config: unknown cache backend %q", c.Cache.Backend)
	}
	if c.Cache.TTL <= 0 {
		return fmt.Errorf("config: cache.ttl must be positive")
	}
	if c.Interceptor.HTTPScheme == "" || c.Interceptor.HTTPSScheme == "" {
		return fmt.Errorf("config: interceptor schemes cannot be empty")
	}
	if c.Interceptor.HTTPScheme == c.Interceptor.HTTPSScheme {
		return fmt.Errorf("config: interceptor schemes must differ")
	}
	if c.Controls.AutoHideDelay <= 0 {
		return fmt.Errorf("config: controls.auto_hide_delay must be positive")
	}
	return nil
}
