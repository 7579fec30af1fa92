package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type httpConfig struct {
	Port         int           `env:"AUTHCORE_TEST_PORT" envDefault:"8010"`
	Host         string        `env:"AUTHCORE_TEST_HOST" envDefault:"localhost"`
	ReadTimeout  time.Duration `env:"AUTHCORE_TEST_READ_TIMEOUT" envDefault:"10s"`
	DebugEnabled bool          `env:"AUTHCORE_TEST_DEBUG" envDefault:"false"`
}

func TestLoad_Defaults(t *testing.T) {
	var cfg httpConfig
	require.NoError(t, Load(&cfg))

	assert.Equal(t, 8010, cfg.Port)
	assert.Equal(t, "localhost", cfg.Host)
	assert.Equal(t, 10*time.Second, cfg.ReadTimeout)
	assert.False(t, cfg.DebugEnabled)
}

func TestLoad_EnvOverridesDefaults(t *testing.T) {
	t.Setenv("AUTHCORE_TEST_PORT", "9090")
	t.Setenv("AUTHCORE_TEST_HOST", "0.0.0.0")
	t.Setenv("AUTHCORE_TEST_READ_TIMEOUT", "30s")
	t.Setenv("AUTHCORE_TEST_DEBUG", "true")

	var cfg httpConfig
	require.NoError(t, Load(&cfg))

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, "0.0.0.0", cfg.Host)
	assert.Equal(t, 30*time.Second, cfg.ReadTimeout)
	assert.True(t, cfg.DebugEnabled)
}

type secretConfig struct {
	JWTSecret string `env:"AUTHCORE_TEST_JWT_SECRET,required"`
}

func TestLoad_RequiredSecretMissing(t *testing.T) {
	var cfg secretConfig
	err := Load(&cfg)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse environment")
}

func TestLoad_RequiredSecretPresent(t *testing.T) {
	t.Setenv("AUTHCORE_TEST_JWT_SECRET", "super-secret")

	var cfg secretConfig
	require.NoError(t, Load(&cfg))
	assert.Equal(t, "super-secret", cfg.JWTSecret)
}

func TestLoad_UnparseableValue(t *testing.T) {
	t.Setenv("AUTHCORE_TEST_PORT", "not-a-number")

	var cfg httpConfig
	err := Load(&cfg)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse environment")
}
