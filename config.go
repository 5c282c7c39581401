package apartments

import (
	"errors"
	"time"

	"github.com/khaledahmed0918-sys/Apartments/password"
)

// Config holds every engine setting. Build clones it, so later changes to the
// caller's copy have no effect on a built Engine.
type Config struct {
	OTP         OTPConfig
	Password    PasswordConfig
	Session     SessionConfig
	Credentials CredentialsConfig
	Audit       AuditConfig
	Metrics     MetricsConfig
}

/*
====================================
OTP CONFIG
====================================
*/

// OTPConfig controls verification codes and their pending records.
type OTPConfig struct {
	// Digits is the fixed code width.
	Digits int
	// TTL is the lifetime of an issued code.
	TTL time.Duration
	// FullRange draws codes from [0, 10^Digits) with zero padding instead of
	// keeping the leading digit non-zero.
	FullRange bool
	// CountdownTick is the interval of Flow.Countdown updates.
	CountdownTick time.Duration
	// PendingGrace keeps a record readable after expiry so a late code is
	// reported as expired rather than unknown.
	PendingGrace time.Duration
	RedisPrefix  string
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordConfig configures argon2id hashing.
type PasswordConfig struct {
	Memory      uint32 // in KB
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
	// MinBytes of zero accepts any non-empty password.
	MinBytes int
	MaxBytes int
	// UpgradeOnLogin rehashes a stored hash whose parameters are older than
	// the configured ones after a successful login.
	UpgradeOnLogin bool
}

/*
====================================
SESSION CONFIG
====================================
*/

// SessionConfig controls the per-client session slot.
type SessionConfig struct {
	RedisPrefix string
	// TTL of zero keeps a session until logout.
	TTL time.Duration
}

// CredentialsConfig applies to the default Redis credential store only.
type CredentialsConfig struct {
	RedisPrefix string
}

/*
====================================
OBSERVABILITY CONFIG
====================================
*/

type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
DEFAULTS
====================================
*/

// DefaultConfig returns the settings used when Builder.WithConfig is not
// called.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		OTP: OTPConfig{
			Digits:        6,
			TTL:           300 * time.Second,
			FullRange:     false,
			CountdownTick: time.Second,
			PendingGrace:  10 * time.Minute,
			RedisPrefix:   "apv",
		},
		Password: PasswordConfig{
			Memory:         65536,
			Time:           3,
			Parallelism:    2,
			SaltLength:     16,
			KeyLength:      32,
			MinBytes:       0,
			MaxBytes:       password.DefaultMaxPasswordBytes,
			UpgradeOnLogin: true,
		},
		Session: SessionConfig{
			RedisPrefix: "aps",
		},
		Credentials: CredentialsConfig{
			RedisPrefix: "apt",
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
	}
}

func cloneConfig(cfg Config) Config {
	return cfg
}

/*
====================================
VALIDATION
====================================
*/

// Validate reports the first setting that cannot produce a working engine.
func (c *Config) Validate() error {
	// OTP
	if c.OTP.Digits < 4 || c.OTP.Digits > 10 {
		return errors.New("OTP Digits must be in [4,10]")
	}
	if c.OTP.TTL <= 0 {
		return errors.New("OTP TTL must be > 0")
	}
	if c.OTP.CountdownTick <= 0 {
		return errors.New("OTP CountdownTick must be > 0")
	}
	if c.OTP.CountdownTick > c.OTP.TTL {
		return errors.New("OTP CountdownTick must be <= TTL")
	}
	if c.OTP.PendingGrace < 0 {
		return errors.New("OTP PendingGrace must be >= 0")
	}
	if c.OTP.RedisPrefix == "" {
		return errors.New("OTP RedisPrefix must not be empty")
	}

	// Password
	if c.Password.Memory < 8*1024 {
		return errors.New("Password Memory must be >= 8192 KB")
	}
	if c.Password.Time < 1 {
		return errors.New("Password Time must be >= 1")
	}
	if c.Password.Parallelism < 1 {
		return errors.New("Password Parallelism must be >= 1")
	}
	if c.Password.SaltLength < 16 {
		return errors.New("Password SaltLength must be >= 16")
	}
	if c.Password.KeyLength < 16 {
		return errors.New("Password KeyLength must be >= 16")
	}
	if c.Password.MinBytes < 0 {
		return errors.New("Password MinBytes must be >= 0")
	}
	if c.Password.MaxBytes < 1 {
		return errors.New("Password MaxBytes must be >= 1")
	}
	if c.Password.MinBytes > c.Password.MaxBytes {
		return errors.New("Password MinBytes must be <= MaxBytes")
	}

	// Session
	if c.Session.RedisPrefix == "" {
		return errors.New("Session RedisPrefix must not be empty")
	}
	if c.Session.TTL < 0 {
		return errors.New("Session TTL must be >= 0")
	}
	if c.Credentials.RedisPrefix == "" {
		return errors.New("Credentials RedisPrefix must not be empty")
	}
	if c.Session.RedisPrefix == c.OTP.RedisPrefix || c.Session.RedisPrefix == c.Credentials.RedisPrefix ||
		c.OTP.RedisPrefix == c.Credentials.RedisPrefix {
		return errors.New("Session, OTP and Credentials RedisPrefix values must differ")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when audit is enabled")
	}

	// Metrics
	if c.Metrics.EnableLatencyHistograms && !c.Metrics.Enabled {
		return errors.New("Metrics EnableLatencyHistograms requires Metrics Enabled")
	}

	return nil
}

func (c PasswordConfig) argon2() password.Config {
	return password.Config{
		Memory:           c.Memory,
		Time:             c.Time,
		Parallelism:      c.Parallelism,
		SaltLength:       c.SaltLength,
		KeyLength:        c.KeyLength,
		MinPasswordBytes: c.MinBytes,
		MaxPasswordBytes: c.MaxBytes,
	}
}
