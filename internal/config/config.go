// Package config loads the server settings from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
	apartments "github.com/khaledahmed0918-sys/Apartments"
)

const devTokenSecret = "change-this-to-a-secure-client-token-secret"

// Config holds all configuration for the auth server.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP server
	HTTPPort        int           `env:"APARTMENTS_HTTP_PORT" envDefault:"8080"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`

	// Redis. DevRedis runs an in-process server instead of dialing RedisAddr.
	RedisAddr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`
	DevRedis      bool   `env:"DEV_REDIS" envDefault:"false"`

	// PostgreSQL. Empty keeps accounts in Redis.
	PostgresDSN     string `env:"POSTGRES_DSN"`
	PostgresMigrate bool   `env:"POSTGRES_MIGRATE" envDefault:"true"`

	// Code delivery. Empty DeliveryURL logs codes instead of sending them.
	DeliveryURL     string        `env:"DELIVERY_URL"`
	DeliveryAPIKey  string        `env:"DELIVERY_API_KEY"`
	DeliveryFrom    string        `env:"DELIVERY_FROM"`
	DeliveryTimeout time.Duration `env:"DELIVERY_TIMEOUT" envDefault:"10s"`

	// Verification codes
	OTPDigits    int           `env:"OTP_DIGITS" envDefault:"6"`
	OTPTTL       time.Duration `env:"OTP_TTL" envDefault:"300s"`
	OTPFullRange bool          `env:"OTP_FULL_RANGE" envDefault:"false"`

	SessionTTL time.Duration `env:"SESSION_TTL" envDefault:"0s"`

	// Client tokens
	ClientTokenSecret string        `env:"CLIENT_TOKEN_SECRET" envDefault:"change-this-to-a-secure-client-token-secret"`
	ClientTokenTTL    time.Duration `env:"CLIENT_TOKEN_TTL" envDefault:"720h"`
	ClientTokenIssuer string        `env:"CLIENT_TOKEN_ISSUER" envDefault:"apartments-auth"`

	// Audit. Empty KafkaBrokers writes audit events to the log.
	AuditEnabled bool     `env:"AUDIT_ENABLED" envDefault:"true"`
	KafkaBrokers []string `env:"KAFKA_BROKERS" envSeparator:","`
	AuditTopic   string   `env:"AUDIT_TOPIC" envDefault:"apartments.auth.audit"`

	MetricsEnabled bool `env:"METRICS_ENABLED" envDefault:"true"`
}

// Load reads the given .env files, or ./.env when none are named, and then
// the environment. Variables already set win over file values. Missing
// files are ignored.
func Load(files ...string) (*Config, error) {
	_ = godotenv.Load(files...)

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if cfg.HTTPPort < 1 || cfg.HTTPPort > 65535 {
		return nil, fmt.Errorf("invalid HTTP port: %d", cfg.HTTPPort)
	}

	if cfg.Environment != "development" {
		if cfg.ClientTokenSecret == devTokenSecret {
			return nil, fmt.Errorf("CLIENT_TOKEN_SECRET must be explicitly set in %q mode", cfg.Environment)
		}
		if cfg.DevRedis {
			return nil, fmt.Errorf("DEV_REDIS is only allowed in development, got %q", cfg.Environment)
		}
		// Without a relay the engine falls back to logging codes.
		if cfg.DeliveryURL == "" {
			return nil, fmt.Errorf("DELIVERY_URL must be set in %q mode", cfg.Environment)
		}
	}
	if len(cfg.ClientTokenSecret) < 32 {
		return nil, fmt.Errorf("CLIENT_TOKEN_SECRET must be at least 32 characters long, got %d", len(cfg.ClientTokenSecret))
	}

	engineCfg := cfg.Engine()
	if err := engineCfg.Validate(); err != nil {
		return nil, fmt.Errorf("engine config: %w", err)
	}
	return cfg, nil
}

// Engine maps the server settings onto the engine configuration.
func (c *Config) Engine() apartments.Config {
	cfg := apartments.DefaultConfig()
	cfg.OTP.Digits = c.OTPDigits
	cfg.OTP.TTL = c.OTPTTL
	cfg.OTP.FullRange = c.OTPFullRange
	cfg.Session.TTL = c.SessionTTL
	cfg.Audit.Enabled = c.AuditEnabled
	cfg.Metrics.Enabled = c.MetricsEnabled
	cfg.Metrics.EnableLatencyHistograms = c.MetricsEnabled
	return cfg
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}
