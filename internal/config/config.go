package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// Environment names recognized by the gate. Anything that is not
// production short-circuits license validation to pass-through.
const (
	EnvProduction  = "production"
	EnvDevelopment = "development"
)

// License strategy names selectable at startup.
const (
	StrategyExact        = "exact"
	StrategyFormat       = "format"
	StrategyPrefix       = "prefix"
	StrategyRemoteHeader = "remote-header"
	StrategyRemoteConfig = "remote-config"
)

// Config represents the complete application configuration. It is
// loaded once at startup and treated as read-only afterwards; the gate
// and validators receive it by explicit reference.
type Config struct {
	Environment string         `yaml:"environment" envconfig:"ENVIRONMENT"`
	Server      ServerConfig   `yaml:"server" envconfig:"SERVER"`
	Logging     LoggingConfig  `yaml:"logging" envconfig:"LOGGING"`
	Auth        AuthConfig     `yaml:"auth" envconfig:"AUTH"`
	License     LicenseConfig  `yaml:"license" envconfig:"LICENSE"`
	Database    DatabaseConfig `yaml:"database" envconfig:"DATABASE"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port            int           `yaml:"port" envconfig:"PORT"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT"`
	MaxHeaderBytes  int           `yaml:"max_header_bytes" envconfig:"MAX_HEADER_BYTES"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL"`
	Format   string `yaml:"format" envconfig:"FORMAT"`
	Output   string `yaml:"output" envconfig:"OUTPUT"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH"`
}

// AuthConfig contains login and session configuration.
type AuthConfig struct {
	SessionSecret string          `yaml:"session_secret" envconfig:"SESSION_SECRET"`
	SessionTTL    time.Duration   `yaml:"session_ttl" envconfig:"SESSION_TTL"`
	CookieName    string          `yaml:"cookie_name" envconfig:"COOKIE_NAME"`
	RateLimit     RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
}

// RateLimitConfig throttles login attempts per client IP.
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" envconfig:"ENABLED"`
	RPS     float64 `yaml:"rps" envconfig:"RPS"`
	Burst   int     `yaml:"burst" envconfig:"BURST"`
}

// LicenseConfig selects the license validation strategy and carries
// the configured key material. Immutable once loaded.
type LicenseConfig struct {
	Strategy        string        `yaml:"strategy" envconfig:"STRATEGY"`
	Key             string        `yaml:"key" envconfig:"KEY"`
	ExpectedKey     string        `yaml:"expected_key" envconfig:"EXPECTED_KEY"`
	KeyPrefix       string        `yaml:"key_prefix" envconfig:"KEY_PREFIX"`
	HeaderName      string        `yaml:"header_name" envconfig:"HEADER_NAME"`
	ProductID       string        `yaml:"product_id" envconfig:"PRODUCT_ID"`
	VerifyURL       string        `yaml:"verify_url" envconfig:"VERIFY_URL"`
	VerifyTimeout   time.Duration `yaml:"verify_timeout" envconfig:"VERIFY_TIMEOUT"`
	CacheTTL        time.Duration `yaml:"cache_ttl" envconfig:"CACHE_TTL"`
	FailureCacheTTL time.Duration `yaml:"failure_cache_ttl" envconfig:"FAILURE_CACHE_TTL"`
	PurchaseURL     string        `yaml:"purchase_url" envconfig:"PURCHASE_URL"`
}

// DatabaseConfig points at the external user record store. An empty
// DSN selects the in-memory store for local development.
type DatabaseConfig struct {
	DSN string `yaml:"dsn" envconfig:"DSN"`
}

// Load builds the configuration in three layers: Default values, then
// a YAML config file when one is present, then environment variables
// (APPGATE prefix), which win for every field.
func Load() (*Config, error) {
	cfg := Default()

	if configFile := getConfigFilePath(); configFile != "" {
		if err := loadFromFile(configFile, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	if err := envconfig.Process("APPGATE", cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// IsProduction reports whether the deployment runs in production
// mode. License validation only happens in production.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, EnvProduction)
}

// loadFromFile overlays YAML file values onto cfg. Keys absent from
// the file leave the existing values untouched.
func loadFromFile(filePath string, cfg *Config) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// validate validates the configuration
func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server read timeout must be positive")
	}

	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server write timeout must be positive")
	}

	switch c.Environment {
	case EnvProduction, EnvDevelopment, "test", "staging":
	default:
		return fmt.Errorf("unknown environment: %q", c.Environment)
	}

	switch c.License.Strategy {
	case StrategyExact, StrategyFormat, StrategyPrefix,
		StrategyRemoteHeader, StrategyRemoteConfig:
	default:
		return fmt.Errorf("unknown license strategy: %q", c.License.Strategy)
	}

	if c.License.VerifyTimeout <= 0 {
		return fmt.Errorf("license verify timeout must be positive")
	}

	if c.IsProduction() {
		if c.Auth.SessionSecret == "" {
			return fmt.Errorf("auth session secret is required in production")
		}
		switch c.License.Strategy {
		case StrategyRemoteHeader, StrategyRemoteConfig:
			if c.License.VerifyURL == "" {
				return fmt.Errorf("license verify URL is required for strategy %q", c.License.Strategy)
			}
			if c.License.ProductID == "" {
				return fmt.Errorf("license product ID is required for strategy %q", c.License.Strategy)
			}
		}
	}

	if c.Auth.SessionTTL <= 0 {
		c.Auth.SessionTTL = 2 * time.Hour
	}

	if c.Logging.Format != "json" && c.Logging.Format != "text" {
		c.Logging.Format = "json"
	}

	return nil
}

// getConfigFilePath returns the path to the config file
func getConfigFilePath() string {
	locations := []string{
		"config.yaml",
		"configs/config.yaml",
		"../configs/config.yaml",
	}

	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}

	return "" // No config file found, use env vars only
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Environment: EnvDevelopment,
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			MaxHeaderBytes:  1 << 20,
			ShutdownTimeout: 30 * time.Second,
		},
		Logging: LoggingConfig{
			Level:    "info",
			Format:   "json",
			Output:   "console",
			FilePath: "logs/app.log",
		},
		Auth: AuthConfig{
			SessionTTL: 2 * time.Hour,
			CookieName: "token",
			RateLimit: RateLimitConfig{
				Enabled: true,
				RPS:     5,
				Burst:   10,
			},
		},
		License: LicenseConfig{
			Strategy:        StrategyExact,
			KeyPrefix:       "GATE-",
			HeaderName:      "X-License-Key",
			VerifyTimeout:   5 * time.Second,
			CacheTTL:        5 * time.Minute,
			FailureCacheTTL: time.Minute,
		},
	}
}
