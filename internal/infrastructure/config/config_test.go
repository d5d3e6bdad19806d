package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "retailcore", cfg.App.Name)
	assert.Equal(t, 30, cfg.Returns.WindowDays)
	assert.Equal(t, 15.0, cfg.Returns.RestockingFeePercent)
	assert.Equal(t, 3, cfg.Returns.TxMaxRetries)
	assert.Equal(t, 50*time.Millisecond, cfg.Returns.TxRetryBaseDelay)
	assert.Equal(t, "4100", cfg.Accounts.SalesReturns)
	assert.Equal(t, "1120", cfg.Accounts.AccountsReceivable)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("RETAIL_RETURNS_WINDOW_DAYS", "14")
	t.Setenv("RETAIL_DATABASE_PASSWORD", "secret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 14, cfg.Returns.WindowDays)
	assert.Equal(t, "secret", cfg.Database.Password)
}

func TestConfig_Validate(t *testing.T) {
	t.Run("fee percent out of range", func(t *testing.T) {
		cfg, err := Load()
		require.NoError(t, err)
		cfg.Returns.RestockingFeePercent = 150
		assert.Error(t, cfg.Validate())
	})

	t.Run("negative retries", func(t *testing.T) {
		cfg, err := Load()
		require.NoError(t, err)
		cfg.Returns.TxMaxRetries = -1
		assert.Error(t, cfg.Validate())
	})
}

func TestDatabaseConfig_DSN(t *testing.T) {
	c := DatabaseConfig{
		Host: "db", Port: 5433, User: "app", Password: "pw", DBName: "retail", SSLMode: "require",
	}
	assert.Equal(t, "host=db port=5433 user=app password=pw dbname=retail sslmode=require", c.DSN())
	assert.Equal(t, "postgres://app:pw@db:5433/retail?sslmode=require", c.MigrationURL())
}
