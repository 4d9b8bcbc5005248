package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "memory")
	t.Setenv("RATE_LIMIT_BACKEND", "")
	t.Setenv("RATE_LIMIT_WINDOW", "")
	t.Setenv("RATE_LIMIT_MAX", "")
	t.Setenv("TICKETS_ARCHIVE", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, StorageMemory, cfg.Storage.Driver)
	assert.Equal(t, time.Hour, cfg.RateLimit.Window)
	assert.Equal(t, 5, cfg.RateLimit.Max)
	assert.Equal(t, RateLimitMemory, cfg.RateLimit.Backend)
	assert.False(t, cfg.Tickets.Archive)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "Postgres")
	t.Setenv("RATE_LIMIT_WINDOW", "90")
	t.Setenv("RATE_LIMIT_MAX", "2")
	t.Setenv("RATE_LIMIT_BACKEND", "redis")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("TRUSTED_PROXIES", "10.0.0.1, 10.0.0.2")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, StoragePostgres, cfg.Storage.Driver)
	assert.Equal(t, 90*time.Second, cfg.RateLimit.Window)
	assert.Equal(t, 2, cfg.RateLimit.Max)
	assert.Equal(t, []string{"10.0.0.1", "10.0.0.2"}, cfg.Server.TrustedProxies)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Storage:   StorageConfig{Driver: StoragePostgres},
			RateLimit: RateLimitConfig{Window: time.Hour, Max: 5, Backend: RateLimitMemory},
		}
	}
	require.NoError(t, valid().Validate())

	c := valid()
	c.Storage.Driver = "sqlite"
	assert.Error(t, c.Validate())

	c = valid()
	c.RateLimit.Backend = RateLimitRedis
	assert.ErrorContains(t, c.Validate(), "REDIS_ADDR")

	c = valid()
	c.RateLimit.Max = 0
	assert.Error(t, c.Validate())

	c = valid()
	c.Tickets.Archive = true
	err := c.Validate()
	assert.ErrorContains(t, err, "REDIS_ADDR")
	assert.ErrorContains(t, err, "AWS_S3_TICKETS_BUCKET")
}

func TestDSN(t *testing.T) {
	d := DatabaseConfig{Host: "db", Port: "5432", User: "u", Password: "p", DBName: "acm", SSLMode: "disable"}
	assert.Equal(t, "postgres://u:p@db:5432/acm?sslmode=disable", d.DSN())
	d.URL = "postgres://x"
	assert.Equal(t, "postgres://x", d.DSN())
}
