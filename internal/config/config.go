// Package config provides configuration loading for the Minka API server.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Identity  IdentityConfig  `mapstructure:"identity"`
	Session   SessionConfig   `mapstructure:"session"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
	CORS      CORSConfig      `mapstructure:"cors"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port           int           `mapstructure:"port"`
	Host           string        `mapstructure:"host"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	Environment    string        `mapstructure:"environment"` // dev, staging, prod
}

// IsProduction reports whether the server runs in the prod environment.
func (c ServerConfig) IsProduction() bool {
	return c.Environment == "prod"
}

// DatabaseConfig holds PostgreSQL configuration.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Database        string        `mapstructure:"database"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// DSN returns the PostgreSQL connection string.
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// URL returns the postgres:// URL used by the migration runner.
func (c DatabaseConfig) URL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Database, c.SSLMode,
	)
}

// RedisConfig holds Redis configuration.
type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Addr returns the Redis address string.
func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Identity provider kinds.
const (
	ProviderJWT    = "jwt"
	ProviderRemote = "remote"
)

// IdentityConfig selects and configures the external identity provider.
type IdentityConfig struct {
	Provider string `mapstructure:"provider"` // jwt or remote

	// jwt provider
	JWTSecret   string `mapstructure:"jwt_secret"`
	JWTIssuer   string `mapstructure:"jwt_issuer"`
	JWTAudience string `mapstructure:"jwt_audience"`

	// remote provider
	BaseURL      string        `mapstructure:"base_url"`
	APIKey       string        `mapstructure:"api_key"`
	ClientID     string        `mapstructure:"client_id"`
	ClientSecret string        `mapstructure:"client_secret"`
	TokenURL     string        `mapstructure:"token_url"`
	HTTPTimeout  time.Duration `mapstructure:"http_timeout"`
}

// SessionConfig holds the credential cookie configuration.
type SessionConfig struct {
	CookieName string `mapstructure:"cookie_name"`
	Secret     string `mapstructure:"secret"`
	MaxAge     int    `mapstructure:"max_age"` // seconds
	Secure     bool   `mapstructure:"secure"`
	SignInPath string `mapstructure:"sign_in_path"`
}

// RateLimitConfig holds API rate limiting configuration.
type RateLimitConfig struct {
	Enabled           bool `mapstructure:"enabled"`
	RequestsPerMinute int  `mapstructure:"requests_per_minute"`
	BurstSize         int  `mapstructure:"burst_size"`
}

// CORSConfig holds allowed browser origins.
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// Load reads configuration from files and environment variables.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/minka")

	v.SetEnvPrefix("MINKA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Secrets have no defaults, so AutomaticEnv alone would not surface them on Unmarshal.
	v.BindEnv("identity.jwt_secret", "MINKA_IDENTITY_JWT_SECRET")
	v.BindEnv("identity.api_key", "MINKA_IDENTITY_API_KEY")
	v.BindEnv("identity.client_id", "MINKA_IDENTITY_CLIENT_ID")
	v.BindEnv("identity.client_secret", "MINKA_IDENTITY_CLIENT_SECRET")
	v.BindEnv("identity.token_url", "MINKA_IDENTITY_TOKEN_URL")
	v.BindEnv("session.secret", "MINKA_SESSION_SECRET")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks settings that have no usable default.
func (c *Config) Validate() error {
	switch c.Identity.Provider {
	case ProviderJWT:
		if c.Identity.JWTSecret == "" {
			return fmt.Errorf("identity.jwt_secret is required for the jwt provider")
		}
	case ProviderRemote:
		if c.Identity.BaseURL == "" {
			return fmt.Errorf("identity.base_url is required for the remote provider")
		}
	default:
		return fmt.Errorf("unknown identity provider %q", c.Identity.Provider)
	}
	if c.Session.Secret == "" && c.Server.IsProduction() {
		return fmt.Errorf("session.secret is required in production")
	}
	return nil
}

// setDefaults configures default values for all settings.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.request_timeout", "30s")
	v.SetDefault("server.environment", "dev")

	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "minka")
	v.SetDefault("database.password", "minka")
	v.SetDefault("database.database", "minka")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "5m")

	// Redis defaults
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	// Identity defaults
	v.SetDefault("identity.provider", ProviderJWT)
	v.SetDefault("identity.jwt_issuer", "")
	v.SetDefault("identity.jwt_audience", "authenticated")
	v.SetDefault("identity.base_url", "")
	v.SetDefault("identity.http_timeout", "10s")

	// Session cookie defaults
	v.SetDefault("session.cookie_name", "minka_session")
	v.SetDefault("session.max_age", 7*24*60*60) // 7 days
	v.SetDefault("session.secure", false)
	v.SetDefault("session.sign_in_path", "/sign-in")

	// Rate limit defaults
	v.SetDefault("ratelimit.enabled", true)
	v.SetDefault("ratelimit.requests_per_minute", 120)
	v.SetDefault("ratelimit.burst_size", 20)

	v.SetDefault("cors.allowed_origins", []string{"http://localhost:*", "https://*.minka.org"})
}
