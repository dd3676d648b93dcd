package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("MINKA_IDENTITY_JWT_SECRET", "test-secret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, ProviderJWT, cfg.Identity.Provider)
	assert.Equal(t, "test-secret", cfg.Identity.JWTSecret)
	assert.Equal(t, "minka_session", cfg.Session.CookieName)
	assert.Equal(t, "/sign-in", cfg.Session.SignInPath)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr())
	assert.True(t, cfg.RateLimit.Enabled)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("MINKA_IDENTITY_PROVIDER", "remote")
	t.Setenv("MINKA_IDENTITY_BASE_URL", "https://id.example.com")
	t.Setenv("MINKA_SERVER_PORT", "9090")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ProviderRemote, cfg.Identity.Provider)
	assert.Equal(t, "https://id.example.com", cfg.Identity.BaseURL)
	assert.Equal(t, 9090, cfg.Server.Port)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{
			name:    "jwt without secret",
			cfg:     Config{Identity: IdentityConfig{Provider: ProviderJWT}},
			wantErr: true,
		},
		{
			name:    "remote without base url",
			cfg:     Config{Identity: IdentityConfig{Provider: ProviderRemote}},
			wantErr: true,
		},
		{
			name:    "unknown provider",
			cfg:     Config{Identity: IdentityConfig{Provider: "ldap"}},
			wantErr: true,
		},
		{
			name: "prod requires session secret",
			cfg: Config{
				Server:   ServerConfig{Environment: "prod"},
				Identity: IdentityConfig{Provider: ProviderJWT, JWTSecret: "s"},
			},
			wantErr: true,
		},
		{
			name: "valid dev jwt",
			cfg:  Config{Identity: IdentityConfig{Provider: ProviderJWT, JWTSecret: "s"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestDatabaseConfig_URL(t *testing.T) {
	c := DatabaseConfig{Host: "db", Port: 5432, User: "u", Password: "p", Database: "minka", SSLMode: "disable"}
	assert.Equal(t, "postgres://u:p@db:5432/minka?sslmode=disable", c.URL())
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=minka sslmode=disable", c.DSN())
}
