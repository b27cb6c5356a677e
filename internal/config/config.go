// Package config loads the service configuration from environment
// variables (SMARTFILE_ prefix) layered over an optional YAML file.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// Config is the complete service configuration.
type Config struct {
	Server      ServerConfig      `yaml:"server" envconfig:"SERVER"`
	Redis       RedisConfig       `yaml:"redis" envconfig:"REDIS"`
	Entitlement EntitlementConfig `yaml:"entitlement" envconfig:"ENTITLEMENT"`
	Security    SecurityConfig    `yaml:"security" envconfig:"SECURITY"`
	Logging     LoggingConfig     `yaml:"logging" envconfig:"LOGGING"`
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	Port            int           `yaml:"port" envconfig:"PORT"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT"`
}

// RedisConfig points at the key-value store. An empty Addr selects the
// in-memory store, which is only suitable for local development.
type RedisConfig struct {
	Addr      string `yaml:"addr" envconfig:"ADDR"`
	Password  string `yaml:"password" envconfig:"PASSWORD"`
	DB        int    `yaml:"db" envconfig:"DB"`
	KeyPrefix string `yaml:"key_prefix" envconfig:"KEY_PREFIX"`
}

// EntitlementConfig tunes the entitlement core.
type EntitlementConfig struct {
	SessionTTL      time.Duration `yaml:"session_ttl" envconfig:"SESSION_TTL"`
	FreeCeiling     int           `yaml:"free_ceiling" envconfig:"FREE_CEILING"`
	FreeWindow      time.Duration `yaml:"free_window" envconfig:"FREE_WINDOW"`
	TrustedIPHeader string        `yaml:"trusted_ip_header" envconfig:"TRUSTED_IP_HEADER"`
}

// SecurityConfig contains CORS and abuse-protection settings.
type SecurityConfig struct {
	AllowedOrigin  string          `yaml:"allowed_origin" envconfig:"ALLOWED_ORIGIN"`
	ActivationRate RateLimitConfig `yaml:"activation_rate" envconfig:"ACTIVATION_RATE"`
}

// RateLimitConfig is the token-bucket guard on the key-validation
// endpoint, distinct from the free-tier usage limiter.
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" envconfig:"ENABLED"`
	RPS     float64 `yaml:"rps" envconfig:"RPS"`
	Burst   int     `yaml:"burst" envconfig:"BURST"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level" envconfig:"LEVEL"`
	Format string `yaml:"format" envconfig:"FORMAT"`
}

// Load reads configuration from the environment, layered over the YAML
// file named by SMARTFILE_CONFIG_FILE or config.yaml when present.
func Load() (*Config, error) {
	cfg := Default()

	if path := configFilePath(); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	if err := envconfig.Process("SMARTFILE", cfg); err != nil {
		return nil, fmt.Errorf("load config from env: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

func configFilePath() string {
	if path := os.Getenv("SMARTFILE_CONFIG_FILE"); path != "" {
		return path
	}
	if _, err := os.Stat("config.yaml"); err == nil {
		return "config.yaml"
	}
	return ""
}

func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Entitlement.SessionTTL <= 0 {
		return fmt.Errorf("session TTL must be positive")
	}
	if c.Entitlement.FreeCeiling <= 0 {
		return fmt.Errorf("free tier ceiling must be positive")
	}
	if c.Entitlement.FreeWindow <= 0 {
		return fmt.Errorf("free tier window must be positive")
	}
	if c.Security.AllowedOrigin == "" {
		c.Security.AllowedOrigin = "*"
	}
	return nil
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		Redis: RedisConfig{
			KeyPrefix: "smartfile",
		},
		Entitlement: EntitlementConfig{
			SessionTTL:      10 * time.Minute,
			FreeCeiling:     5,
			FreeWindow:      time.Hour,
			TrustedIPHeader: "CF-Connecting-IP",
		},
		Security: SecurityConfig{
			AllowedOrigin: "*",
			ActivationRate: RateLimitConfig{
				Enabled: true,
				RPS:     1,
				Burst:   5,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}
