// Package config loads the bridge configuration from a YAML file with
// environment-variable overrides. Secrets live in env vars (or a local
// .env file); the YAML carries everything else.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Magazord MagazordConfig `yaml:"magazord"`
	GHL      GHLConfig      `yaml:"ghl"`
	Dedup    DedupConfig    `yaml:"dedup"`
	Defaults DefaultsConfig `yaml:"defaults"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port int    `yaml:"port"`
	Host string `yaml:"host"`
}

// GetHost returns the server host, with container detection: inside a
// container the service listens on all interfaces.
func (c ServerConfig) GetHost() string {
	if os.Getenv("ECS_CONTAINER_METADATA_URI") != "" || os.Getenv("AWS_EXECUTION_ENV") != "" {
		return "0.0.0.0"
	}
	if host := os.Getenv("SERVER_HOST"); host != "" {
		return host
	}
	return c.Host
}

// MagazordConfig holds storefront API credentials and timeouts.
type MagazordConfig struct {
	BaseURL        string `yaml:"base_url"`
	Username       string `yaml:"username"`
	Password       string `yaml:"password"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// Timeout returns the configured read timeout as a duration.
func (c MagazordConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// GHLConfig holds the CRM webhook destination.
type GHLConfig struct {
	WebhookURL     string `yaml:"webhook_url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// Timeout returns the configured delivery timeout as a duration.
func (c GHLConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// DedupConfig selects and parameterizes the dedup ledger backend.
type DedupConfig struct {
	Backend       string `yaml:"backend"` // "memory" or "redis"
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`
	KeyPrefix     string `yaml:"key_prefix"`
	RetentionDays int    `yaml:"retention_days"`
}

// Retention returns the dedup retention window as a duration.
func (c DedupConfig) Retention() time.Duration {
	return time.Duration(c.RetentionDays) * 24 * time.Hour
}

// DefaultsConfig holds the scan defaults applied when a trigger request
// omits its parameters.
type DefaultsConfig struct {
	CartStatus      string `yaml:"cart_status"`
	DaysLookback    int    `yaml:"days_lookback"`
	ScanLimit       int    `yaml:"scan_limit"`
	OrderSituations []int  `yaml:"order_situations"`
}

// Load reads and parses the configuration file. A missing file is not an
// error: the bridge can run on defaults plus environment variables.
func Load(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	if err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, err
		}
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	// Set defaults
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Magazord.TimeoutSeconds == 0 {
		cfg.Magazord.TimeoutSeconds = 15
	}
	if cfg.GHL.TimeoutSeconds == 0 {
		cfg.GHL.TimeoutSeconds = 30
	}
	if cfg.Dedup.Backend == "" {
		cfg.Dedup.Backend = "memory"
	}
	if cfg.Dedup.RetentionDays == 0 {
		cfg.Dedup.RetentionDays = 30
	}
	if cfg.Dedup.KeyPrefix == "" {
		cfg.Dedup.KeyPrefix = "relay:seen:"
	}
	if cfg.Defaults.CartStatus == "" {
		cfg.Defaults.CartStatus = "2,3"
	}
	if cfg.Defaults.DaysLookback == 0 {
		cfg.Defaults.DaysLookback = 7
	}
	if cfg.Defaults.ScanLimit == 0 {
		cfg.Defaults.ScanLimit = 100
	}
	if len(cfg.Defaults.OrderSituations) == 0 {
		cfg.Defaults.OrderSituations = []int{1, 3, 4}
	}

	return &cfg, nil
}

// LoadFromEnv loads configuration with environment variable overrides.
// It automatically loads a .env file (if present) before reading env vars,
// so credentials can live in .env locally and in real env vars in
// production.
func LoadFromEnv(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("MAGAZORD_BASE_URL"); v != "" {
		cfg.Magazord.BaseURL = v
	}
	if v := os.Getenv("MAGAZORD_USERNAME"); v != "" {
		cfg.Magazord.Username = v
	}
	if v := os.Getenv("MAGAZORD_PASSWORD"); v != "" {
		cfg.Magazord.Password = v
	}
	if v := os.Getenv("GHL_WEBHOOK_URL"); v != "" {
		cfg.GHL.WebhookURL = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Dedup.RedisAddr = v
		cfg.Dedup.Backend = "redis"
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Dedup.RedisPassword = v
	}
	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}

	return cfg, nil
}
