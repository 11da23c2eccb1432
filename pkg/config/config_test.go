package config_test

import (
	"testing"
	"time"

	"github.com/jhoicas/inventory-ledger/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_ValoresPorDefecto(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "memory")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Ledger.ExpiryLookaheadDays)
	assert.Equal(t, 5, cfg.Ledger.RetryAttempts)
	assert.Equal(t, 20*time.Millisecond, cfg.Ledger.RetryInitialBackoff)
	assert.Equal(t, 15*time.Minute, cfg.Ledger.SweepInterval)
	assert.False(t, cfg.Redis.Enabled())
	assert.Equal(t, "0.0.0.0:8080", cfg.HTTP.Addr())
}

func TestLoad_DesdeEntorno(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "memory")
	t.Setenv("LEDGER_SWEEP_INTERVAL", "2m")
	t.Setenv("LEDGER_EXPIRY_LOOKAHEAD_DAYS", "14")
	t.Setenv("REDIS_ADDR", "localhost:6379")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, 2*time.Minute, cfg.Ledger.SweepInterval)
	assert.Equal(t, 14, cfg.Ledger.ExpiryLookaheadDays)
	assert.True(t, cfg.Redis.Enabled())
}

func TestLoad_DriverDesconocido(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "sqlite")
	_, err := config.Load()
	assert.Error(t, err)
}

func TestDSN_EscapaContrasena(t *testing.T) {
	c := config.DBConfig{Host: "db", Port: 5432, User: "app", Password: "p@ss/1", DBName: "ledger", SSLMode: "disable"}
	assert.Equal(t, "postgres://app:p%40ss%2F1@db:5432/ledger?sslmode=disable", c.DSN())
	c.DatabaseURL = "postgres://x"
	assert.Equal(t, "postgres://x", c.ConnectionString())
}
