// Package config loads the server configuration from YAML.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// AuthMode selects how request owners are resolved.
type AuthMode string

const (
	// AuthModeStatic resolves owners from a configured bearer-token map.
	AuthModeStatic AuthMode = "static"
	// AuthModeJWT resolves owners from HS256-signed JWTs.
	AuthModeJWT AuthMode = "jwt"
)

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// LogConfig configures structured logging.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// AuthConfig configures owner resolution.
type AuthConfig struct {
	Mode AuthMode `yaml:"mode"`

	// JWTSecret is the HS256 signing secret, required in jwt mode.
	JWTSecret string `yaml:"jwtSecret"`

	// Tokens maps bearer token -> owner id, used in static mode.
	Tokens map[string]string `yaml:"tokens"`
}

// RateLimitConfig configures per-IP request limiting.
type RateLimitConfig struct {
	Enabled        bool     `yaml:"enabled"`
	Rate           float64  `yaml:"rate"`
	Burst          int      `yaml:"burst"`
	TrustedProxies []string `yaml:"trustedProxies"`
}

// Config is the full server configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Log       LogConfig       `yaml:"log"`
	Auth      AuthConfig      `yaml:"auth"`
	RateLimit RateLimitConfig `yaml:"rateLimit"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Server: ServerConfig{Host: "127.0.0.1", Port: 8087},
		Log:    LogConfig{Level: "info", Format: "text"},
		Auth:   AuthConfig{Mode: AuthModeStatic},
		RateLimit: RateLimitConfig{
			Enabled: true,
			Rate:    50,
			Burst:   100,
		},
	}
}

// Load reads a YAML configuration file, filling unset fields from
// Default.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for inconsistencies.
func (c *Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	switch c.Auth.Mode {
	case AuthModeStatic, AuthModeJWT:
	default:
		return fmt.Errorf("auth.mode %q is not supported", c.Auth.Mode)
	}
	if c.Auth.Mode == AuthModeJWT && c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwtSecret is required in jwt mode")
	}
	if c.RateLimit.Enabled && c.RateLimit.Rate <= 0 {
		return fmt.Errorf("rateLimit.rate must be positive")
	}
	return nil
}
