// Package config loads settings from an optional YAML file, a .env file and
// environment variables, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration values for the application.
type Config struct {
	// Database connection string
	DatabaseURL string `mapstructure:"database_url"`

	// HTTP server port for the controller
	HTTPPort int `mapstructure:"http_port"`

	OTELEndpoint string `mapstructure:"otel_endpoint"`
	LogLevel     string `mapstructure:"log_level"`

	// Event relay. An empty RabbitMQURL makes the relay log events instead.
	RabbitMQURL            string        `mapstructure:"rabbitmq_url"`
	EventsExchange         string        `mapstructure:"events_exchange"`
	RelayConcurrency       int           `mapstructure:"relay_concurrency"`
	RelayPollInterval      time.Duration `mapstructure:"relay_poll_interval"`
	RelayMaxBackoff        time.Duration `mapstructure:"relay_max_backoff"`
	RelayBatchSize         int           `mapstructure:"relay_batch_size"`
	RelayMaxAttempts       int           `mapstructure:"relay_max_attempts"`
	RelayVisibilityTimeout time.Duration `mapstructure:"relay_visibility_timeout"`

	// Login codes
	OTPTTL         time.Duration `mapstructure:"otp_ttl"`
	OTPMaxAttempts int           `mapstructure:"otp_max_attempts"`
	OTPFixedCode   string        `mapstructure:"otp_fixed_code"`

	// Requests per second per caller. Zero disables limiting.
	RateLimit      float64 `mapstructure:"rate_limit"`
	RateLimitBurst int     `mapstructure:"rate_limit_burst"`

	StrictTransitions bool `mapstructure:"strict_transitions"`
	DefaultPageSize   int  `mapstructure:"default_page_size"`
	MaxPageSize       int  `mapstructure:"max_page_size"`
}

var defaults = map[string]any{
	"http_port":                8080,
	"otel_endpoint":            "localhost:4317",
	"log_level":                "info",
	"rabbitmq_url":             "",
	"events_exchange":          "hirelane.events",
	"relay_concurrency":        1,
	"relay_poll_interval":      time.Second,
	"relay_max_backoff":        30 * time.Second,
	"relay_batch_size":         50,
	"relay_max_attempts":       5,
	"relay_visibility_timeout": time.Minute,
	"otp_ttl":                  5 * time.Minute,
	"otp_max_attempts":         3,
	"otp_fixed_code":           "",
	"rate_limit":               0.0,
	"rate_limit_burst":         0,
	"strict_transitions":       false,
	"default_page_size":        20,
	"max_page_size":            100,
}

// envNames maps config keys to the environment variables that override them.
var envNames = map[string]string{
	"database_url":             "DATABASE_URL",
	"http_port":                "PORT",
	"otel_endpoint":            "OTEL_EXPORTER_OTLP_ENDPOINT",
	"log_level":                "LOG_LEVEL",
	"rabbitmq_url":             "RABBITMQ_URL",
	"events_exchange":          "EVENTS_EXCHANGE",
	"relay_concurrency":        "RELAY_CONCURRENCY",
	"relay_poll_interval":      "RELAY_POLL_INTERVAL",
	"relay_max_backoff":        "RELAY_MAX_BACKOFF",
	"relay_batch_size":         "RELAY_BATCH_SIZE",
	"relay_max_attempts":       "RELAY_MAX_ATTEMPTS",
	"relay_visibility_timeout": "RELAY_VISIBILITY_TIMEOUT",
	"otp_ttl":                  "OTP_TTL",
	"otp_max_attempts":         "OTP_MAX_ATTEMPTS",
	"otp_fixed_code":           "OTP_FIXED_CODE",
	"rate_limit":               "RATE_LIMIT",
	"rate_limit_burst":         "RATE_LIMIT_BURST",
	"strict_transitions":       "STRICT_TRANSITIONS",
	"default_page_size":        "DEFAULT_PAGE_SIZE",
	"max_page_size":            "MAX_PAGE_SIZE",
}

// Load reads the configuration. An empty path looks for hirelane.yaml in the
// working directory and tolerates its absence; an explicit path must exist.
func Load(path string) (*Config, error) {
	// A missing .env file is normal outside development.
	_ = godotenv.Load()

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	for key, env := range envNames {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", env, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	} else {
		v.SetConfigName("hirelane")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("database_url is required (env: DATABASE_URL)")
	}
	if c.HTTPPort <= 0 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid http_port: %d", c.HTTPPort)
	}
	if c.RelayConcurrency < 1 {
		return fmt.Errorf("relay_concurrency must be at least 1, got %d", c.RelayConcurrency)
	}
	if c.RelayBatchSize < 1 {
		return fmt.Errorf("relay_batch_size must be at least 1, got %d", c.RelayBatchSize)
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("rate_limit must not be negative")
	}
	if c.DefaultPageSize < 1 || c.MaxPageSize < c.DefaultPageSize {
		return fmt.Errorf("page sizes must satisfy 1 <= default_page_size (%d) <= max_page_size (%d)",
			c.DefaultPageSize, c.MaxPageSize)
	}
	return nil
}
