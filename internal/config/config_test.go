package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))

	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.HTTPPort)
	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
	assert.Equal(t, 300*time.Second, cfg.OTPTTL)
	assert.Equal(t, 6, cfg.OTPDigits)
	assert.Empty(t, cfg.PostgresDSN)
	assert.Empty(t, cfg.KafkaBrokers)
	assert.True(t, cfg.IsDevelopment())
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("APARTMENTS_HTTP_PORT", "9090")
	t.Setenv("OTP_DIGITS", "8")
	t.Setenv("OTP_TTL", "2m")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))

	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.HTTPPort)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)

	engine := cfg.Engine()
	assert.Equal(t, 8, engine.OTP.Digits)
	assert.Equal(t, 2*time.Minute, engine.OTP.TTL)
}

func TestLoad_DotEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("REDIS_ADDR=cache:6379\nOTP_DIGITS=7\n"), 0o600))
	t.Setenv("OTP_DIGITS", "5")
	t.Cleanup(func() { os.Unsetenv("REDIS_ADDR") })

	cfg, err := Load(path)

	require.NoError(t, err)
	assert.Equal(t, "cache:6379", cfg.RedisAddr)
	assert.Equal(t, 5, cfg.OTPDigits, "environment wins over the file")
}

func TestLoad_InvalidPort(t *testing.T) {
	t.Setenv("APARTMENTS_HTTP_PORT", "70000")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))

	require.Error(t, err)
	assert.Nil(t, cfg)
}

func TestLoad_InvalidEngineSettings(t *testing.T) {
	t.Setenv("OTP_DIGITS", "2")

	_, err := Load(filepath.Join(t.TempDir(), "missing.env"))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "engine config")
}

func TestLoad_ProductionRequiresSecret(t *testing.T) {
	t.Setenv("ENVIRONMENT", "production")

	_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CLIENT_TOKEN_SECRET")

	t.Setenv("CLIENT_TOKEN_SECRET", strings.Repeat("s", 32))
	t.Setenv("DEV_REDIS", "true")
	_, err = Load(filepath.Join(t.TempDir(), "missing.env"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DEV_REDIS")

	t.Setenv("DEV_REDIS", "false")
	_, err = Load(filepath.Join(t.TempDir(), "missing.env"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DELIVERY_URL")

	t.Setenv("DELIVERY_URL", "https://mail.example.com/send")
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	assert.False(t, cfg.IsDevelopment())
	assert.Equal(t, "https://mail.example.com/send", cfg.DeliveryURL)
}

func TestLoad_DevelopmentAllowsLoggedCodes(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))

	require.NoError(t, err)
	assert.Empty(t, cfg.DeliveryURL)
}

func TestLoad_ShortSecret(t *testing.T) {
	t.Setenv("CLIENT_TOKEN_SECRET", "short")

	_, err := Load(filepath.Join(t.TempDir(), "missing.env"))

	require.Error(t, err)
}
