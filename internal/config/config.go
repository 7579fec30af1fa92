package config

import (
	"fmt"
	"time"

	pkgconfig "github.com/GwangCheonLee/authcore/pkg/config"
)

// defaultSecret is the development placeholder; non-development environments
// must override it.
const defaultSecret = "change-this-to-a-secure-secret"

// Config holds all configuration for the authcore service.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP server
	HTTPPort int `env:"AUTHCORE_HTTP_PORT" envDefault:"8010"`

	// PostgreSQL
	PostgresHost string `env:"POSTGRES_HOST" envDefault:"localhost"`
	PostgresPort int    `env:"POSTGRES_PORT" envDefault:"5432"`
	PostgresUser string `env:"POSTGRES_USER" envDefault:"authcore"`
	PostgresPass string `env:"POSTGRES_PASSWORD" envDefault:"authcore_secret"`
	PostgresDB   string `env:"AUTHCORE_DB_NAME" envDefault:"authcore"`
	PostgresSSL  string `env:"POSTGRES_SSL_MODE" envDefault:"disable"`

	// PostgreSQL pool tuning
	DBMaxConns            int `env:"DB_MAX_CONNS" envDefault:"25"`
	DBMinConns            int `env:"DB_MIN_CONNS" envDefault:"5"`
	DBMaxConnLifetimeMins int `env:"DB_MAX_CONN_LIFETIME_MINS" envDefault:"60"`
	DBMaxConnIdleTimeMins int `env:"DB_MAX_CONN_IDLE_TIME_MINS" envDefault:"30"`
	SlowQueryThresholdMs  int `env:"SLOW_QUERY_THRESHOLD_MS" envDefault:"200"`

	// Redis session store
	RedisHost     string `env:"REDIS_HOST" envDefault:"localhost"`
	RedisPort     int    `env:"REDIS_PORT" envDefault:"6379"`
	RedisPassword string `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	// Kafka
	KafkaBrokers []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`

	// JWT. Access and refresh tokens are signed with independent secrets.
	JWTAccessSecret  string `env:"JWT_ACCESS_SECRET" envDefault:"change-this-to-a-secure-secret"`
	JWTRefreshSecret string `env:"JWT_REFRESH_SECRET" envDefault:"change-this-to-a-secure-secret"`
	JWTAccessExpiry  string `env:"JWT_ACCESS_TOKEN_EXPIRY" envDefault:"15m"`
	JWTRefreshExpiry string `env:"JWT_REFRESH_TOKEN_EXPIRY" envDefault:"168h"`

	// Session limiting
	LimitConcurrentLogins bool   `env:"LIMIT_CONCURRENT_LOGINS" envDefault:"false"`
	SessionStoreTimeout   string `env:"SESSION_STORE_TIMEOUT" envDefault:"2s"`

	// Two-factor
	TwoFactorIssuer string `env:"TWO_FACTOR_ISSUER" envDefault:"authcore"`

	// OAuth
	OAuthRedirectURL      string `env:"OAUTH_REDIRECT_URL" envDefault:"http://localhost:3000/oauth/done"`
	OAuthGoogleUserInfo   string `env:"OAUTH_GOOGLE_USERINFO_URL" envDefault:"https://www.googleapis.com/oauth2/v2/userinfo"`
	OAuthGitHubUserInfo   string `env:"OAUTH_GITHUB_USERINFO_URL" envDefault:"https://api.github.com/user"`

	// CORS
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`

	// Observability
	OTELEnabled    bool     `env:"OTEL_ENABLED" envDefault:"false"`
	OTELEndpoint   string   `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4318"`
	OTELSampleRate float64  `env:"OTEL_SAMPLE_RATE" envDefault:"1.0"`
	PprofCIDRs     []string `env:"PPROF_ALLOWED_CIDRS" envDefault:"10.0.0.0/8,172.16.0.0/12,192.168.0.0/16,127.0.0.0/8,::1/128" envSeparator:","`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load authcore config: %w", err)
	}
	if cfg.HTTPPort < 1 || cfg.HTTPPort > 65535 {
		return nil, fmt.Errorf("invalid HTTP port: %d", cfg.HTTPPort)
	}
	if _, err := cfg.AccessExpiry(); err != nil {
		return nil, fmt.Errorf("invalid JWT_ACCESS_TOKEN_EXPIRY: %w", err)
	}
	if _, err := cfg.RefreshExpiry(); err != nil {
		return nil, fmt.Errorf("invalid JWT_REFRESH_TOKEN_EXPIRY: %w", err)
	}
	if _, err := cfg.StoreTimeout(); err != nil {
		return nil, fmt.Errorf("invalid SESSION_STORE_TIMEOUT: %w", err)
	}

	// In non-development environments, require explicitly set, strong,
	// distinct secrets for the two token families.
	if cfg.Environment != "development" {
		if err := checkSecret("JWT_ACCESS_SECRET", cfg.JWTAccessSecret, cfg.Environment); err != nil {
			return nil, err
		}
		if err := checkSecret("JWT_REFRESH_SECRET", cfg.JWTRefreshSecret, cfg.Environment); err != nil {
			return nil, err
		}
		if cfg.JWTAccessSecret == cfg.JWTRefreshSecret {
			return nil, fmt.Errorf("JWT_ACCESS_SECRET and JWT_REFRESH_SECRET must differ")
		}
	}

	return cfg, nil
}

func checkSecret(name, value, environment string) error {
	if value == defaultSecret {
		return fmt.Errorf("%s must be explicitly set via environment variable in %q mode", name, environment)
	}
	if len(value) < 32 {
		return fmt.Errorf("%s must be at least 32 characters long, got %d", name, len(value))
	}
	return nil
}

// PostgresDSN returns the PostgreSQL connection string.
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.PostgresUser, c.PostgresPass, c.PostgresHost, c.PostgresPort, c.PostgresDB, c.PostgresSSL,
	)
}

// AccessExpiry parses the access token lifetime.
func (c *Config) AccessExpiry() (time.Duration, error) {
	return time.ParseDuration(c.JWTAccessExpiry)
}

// RefreshExpiry parses the refresh token lifetime.
func (c *Config) RefreshExpiry() (time.Duration, error) {
	return time.ParseDuration(c.JWTRefreshExpiry)
}

// StoreTimeout parses the per-operation session store timeout.
func (c *Config) StoreTimeout() (time.Duration, error) {
	return time.ParseDuration(c.SessionStoreTimeout)
}
