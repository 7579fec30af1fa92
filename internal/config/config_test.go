package config

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, 8010, cfg.HTTPPort)
	assert.Equal(t, "localhost", cfg.RedisHost)
	assert.Equal(t, 6379, cfg.RedisPort)
	assert.False(t, cfg.LimitConcurrentLogins)

	access, err := cfg.AccessExpiry()
	require.NoError(t, err)
	assert.Equal(t, 15*time.Minute, access)

	refresh, err := cfg.RefreshExpiry()
	require.NoError(t, err)
	assert.Equal(t, 168*time.Hour, refresh)

	timeout, err := cfg.StoreTimeout()
	require.NoError(t, err)
	assert.Equal(t, 2*time.Second, timeout)
}

func TestLoad_PostgresDSN(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	dsn := cfg.PostgresDSN()
	assert.True(t, strings.HasPrefix(dsn, "postgres://authcore:"))
	assert.Contains(t, dsn, "/authcore?sslmode=disable")
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("AUTHCORE_HTTP_PORT", "9100")
	t.Setenv("LIMIT_CONCURRENT_LOGINS", "true")
	t.Setenv("KAFKA_BROKERS", "broker1:9092,broker2:9092")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.HTTPPort)
	assert.True(t, cfg.LimitConcurrentLogins)
	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.KafkaBrokers)
}

func TestLoad_InvalidPort(t *testing.T) {
	t.Setenv("AUTHCORE_HTTP_PORT", "99999")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid HTTP port")
}

func TestLoad_InvalidExpiry(t *testing.T) {
	t.Setenv("JWT_ACCESS_TOKEN_EXPIRY", "fifteen minutes")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_ACCESS_TOKEN_EXPIRY")
}

func TestLoad_Production_RequiresExplicitSecrets(t *testing.T) {
	t.Setenv("ENVIRONMENT", "production")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_ACCESS_SECRET")
}

func TestLoad_Production_RejectsShortSecret(t *testing.T) {
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("JWT_ACCESS_SECRET", "too-short")
	t.Setenv("JWT_REFRESH_SECRET", strings.Repeat("r", 32))

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least 32 characters")
}

func TestLoad_Production_RejectsIdenticalSecrets(t *testing.T) {
	t.Setenv("ENVIRONMENT", "production")
	secret := strings.Repeat("s", 32)
	t.Setenv("JWT_ACCESS_SECRET", secret)
	t.Setenv("JWT_REFRESH_SECRET", secret)

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must differ")
}

func TestLoad_Production_AcceptsStrongDistinctSecrets(t *testing.T) {
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("JWT_ACCESS_SECRET", strings.Repeat("a", 32))
	t.Setenv("JWT_REFRESH_SECRET", strings.Repeat("r", 32))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "production", cfg.Environment)
}
