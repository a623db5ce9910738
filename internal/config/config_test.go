package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromEnv_Defaults(t *testing.T) {
	t.Setenv("APP_ENV", "")
	t.Setenv("STORE_BACKEND", "")
	t.Setenv("PORT", "")
	t.Setenv("HTTP_ADDR", "")
	t.Setenv("SESSION_TTL", "")
	t.Setenv("LOG_FORMAT", "")
	t.Setenv("JWT_SECRET", "")

	c, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, "dev", c.Env)
	assert.Equal(t, ":8080", c.HTTP.Addr)
	assert.Equal(t, "memory", c.Store.Backend)
	assert.Equal(t, 30*time.Minute, c.Store.SessionTTL)
	assert.Equal(t, "text", c.Log.Format)
}

func TestLoadFromEnv_Overrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("HTTP_ADDR", "")
	t.Setenv("STORE_BACKEND", "redis")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("SESSION_TTL", "5m")
	t.Setenv("RUN_MIGRATIONS", "true")
	t.Setenv("APP_ENV", "dev")
	t.Setenv("REDIS_ADDR", "")
	t.Setenv("LOG_FORMAT", "json")

	c, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, ":9090", c.HTTP.Addr)
	assert.Equal(t, "redis", c.Store.Backend)
	assert.Equal(t, 3, c.Redis.DB)
	assert.Equal(t, 5*time.Minute, c.Store.SessionTTL)
	assert.True(t, c.Postgres.RunMigrations)
	assert.Equal(t, "json", c.Log.Format)
}

func TestLoadFromEnv_BadValuesFallBack(t *testing.T) {
	t.Setenv("REDIS_DB", "x")
	t.Setenv("SESSION_TTL", "soon")
	t.Setenv("APP_ENV", "dev")
	t.Setenv("STORE_BACKEND", "")
	t.Setenv("LOG_FORMAT", "")

	c, err := LoadFromEnv()
	require.NoError(t, err)
	assert.Equal(t, 0, c.Redis.DB)
	assert.Equal(t, 30*time.Minute, c.Store.SessionTTL)
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		var c Config
		c.Env = "dev"
		c.HTTP.Addr = ":8080"
		c.Store.Backend = "memory"
		c.Store.SessionTTL = time.Minute
		c.Auth.Secret = "dev-secret-change-me"
		c.Log.Format = "text"
		return c
	}

	require.NoError(t, valid().Validate())

	cases := map[string]func(*Config){
		"unknown_backend":    func(c *Config) { c.Store.Backend = "mongo" },
		"redis_without_addr": func(c *Config) { c.Store.Backend = "redis"; c.Redis.Addr = "" },
		"pg_without_url":     func(c *Config) { c.Store.Backend = "postgres"; c.Postgres.URL = "" },
		"zero_ttl":           func(c *Config) { c.Store.SessionTTL = 0 },
		"default_secret_prod": func(c *Config) {
			c.Env = "prod"
		},
		"bad_log_format": func(c *Config) { c.Log.Format = "xml" },
		"empty_addr":     func(c *Config) { c.HTTP.Addr = "" },
	}
	for name, mutate := range cases {
		mutate := mutate
		t.Run(name, func(t *testing.T) {
			c := valid()
			mutate(&c)
			assert.Error(t, c.Validate())
		})
	}
}
