package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_ReportsMissingBackend(t *testing.T) {
	c := Config{Session: SessionConfig{Store: StoreMemory}}
	err := c.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BACKEND_URL")
}

func TestValidate_RejectsRelativeBackendURL(t *testing.T) {
	c := Config{Backend: BackendConfig{URL: "/api"}, Session: SessionConfig{Store: StoreMemory}}
	assert.Error(t, c.Validate())
}

func TestValidate_AppliesDefaults(t *testing.T) {
	c := Config{
		Backend: BackendConfig{URL: "http://localhost:3000"},
		Session: SessionConfig{File: "/tmp/session.json"},
	}
	require.NoError(t, c.Validate())
	assert.Equal(t, "local", c.App.Env)
	assert.Equal(t, 8080, c.App.Port)
	assert.Equal(t, StoreFile, c.Session.Store)
	assert.Equal(t, "default", c.Session.Profile)
}

func TestValidate_ProductionPostgresRequiresSSLMode(t *testing.T) {
	c := Config{
		App:     AppConfig{Env: "production", Port: 8080},
		Backend: BackendConfig{URL: "https://invoices.example.com"},
		Session: SessionConfig{Store: StorePostgres},
		DB:      DBConfig{Host: "localhost", Port: 5432, User: "postgres", Password: "x", Name: "console"},
	}
	assert.Error(t, c.Validate())
}

func TestValidate_LocalPostgresDefaultsSSLMode(t *testing.T) {
	c := Config{
		App:     AppConfig{Env: "local"},
		Backend: BackendConfig{URL: "http://localhost:3000"},
		Session: SessionConfig{Store: StorePostgres},
		DB:      DBConfig{Host: "localhost", User: "postgres", Name: "console"},
	}
	require.NoError(t, c.Validate())
	assert.Equal(t, "disable", c.DB.SSLMode)
	assert.Equal(t, 5432, c.DB.Port)
}

func TestValidate_RedisStoreRequiresHost(t *testing.T) {
	c := Config{
		Backend: BackendConfig{URL: "http://localhost:3000"},
		Session: SessionConfig{Store: StoreRedis},
	}
	err := c.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "REDIS_HOST")
}

func TestValidate_UnknownStore(t *testing.T) {
	c := Config{
		Backend: BackendConfig{URL: "http://localhost:3000"},
		Session: SessionConfig{Store: "sqlite"},
	}
	assert.Error(t, c.Validate())
}

func TestValidateBackend_RequiresSecret(t *testing.T) {
	assert.Error(t, Config{}.ValidateBackend())
	assert.NoError(t, Config{Auth: AuthConfig{JWTSecret: "s"}}.ValidateBackend())
}

func TestLoad_ReadsEnvFile(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("BACKEND_URL=http://backend:3000\nSESSION_STORE=memory\n"), 0o600))

	t.Setenv("APP_PORT", "9090")
	// godotenv never overrides real env vars; make sure these start unset.
	t.Setenv("BACKEND_URL", "")
	os.Unsetenv("BACKEND_URL")
	t.Setenv("SESSION_STORE", "")
	os.Unsetenv("SESSION_STORE")

	c, err := Load(envFile, filepath.Join(dir, "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, "http://backend:3000", c.Backend.URL)
	assert.Equal(t, StoreMemory, c.Session.Store)
	assert.Equal(t, 9090, c.App.Port)
}

func TestLoad_RejectsBadPort(t *testing.T) {
	t.Setenv("APP_PORT", "abc")
	t.Setenv("BACKEND_URL", "http://backend:3000")
	_, err := Load()
	assert.Error(t, err)
}

func TestLoadBackend_IgnoresConsoleSettings(t *testing.T) {
	t.Setenv("BACKEND_URL", "")
	t.Setenv("APP_PORT", "")
	t.Setenv("SESSION_STORE", "sqlite")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("JWT_ACCESS_TTL", "30m")

	c, err := LoadBackend()
	require.NoError(t, err)
	assert.Equal(t, DefaultBackendPort, c.App.Port)
	assert.Equal(t, "s3cret", c.Auth.JWTSecret)
	assert.Equal(t, "30m0s", c.Auth.AccessTokenTTL.String())
}

func TestLoadBackend_RequiresSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	_, err := LoadBackend()
	assert.ErrorContains(t, err, "JWT_SECRET")
}

func TestLoadWith_OverrideWinsOverEnv(t *testing.T) {
	t.Setenv("APP_PORT", "")
	t.Setenv("BACKEND_URL", "http://from-env:3000")
	t.Setenv("SESSION_STORE", "redis")

	c, err := LoadWith(func(c *Config) {
		c.Backend.URL = "http://from-flag:3000"
		c.Session.Store = StoreMemory
	})
	require.NoError(t, err)
	assert.Equal(t, "http://from-flag:3000", c.Backend.URL)
	assert.Equal(t, StoreMemory, c.Session.Store)
}
