package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("DATA_DIR", dir)
	t.Setenv("DATABASE_DRIVER", "")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("LEDGER_STORE", "")
	t.Setenv("LEDGER_INITIAL_BALANCE", "")
	t.Setenv("PORT", "")
	t.Setenv("BACKUP_S3_BUCKET", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 5001, cfg.Port)
	assert.Equal(t, DriverSQLite, cfg.DatabaseDriver)
	assert.Equal(t, filepath.Join(cfg.DataDir, "forex.db"), cfg.DatabaseURL)
	assert.Equal(t, LedgerStoreSQL, cfg.LedgerStore)
	assert.True(t, decimal.NewFromInt(1000).Equal(cfg.LedgerInitialBalance))
	assert.Equal(t, 15*time.Minute, cfg.RateLimitWindow)
	assert.Equal(t, 100, cfg.RateLimitMaxRequests)
	assert.False(t, cfg.Backup.Enabled())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("DATA_DIR", t.TempDir())
	t.Setenv("PORT", "8080")
	t.Setenv("LEDGER_INITIAL_BALANCE", "250.50")
	t.Setenv("AUTH_REQUIRED", "true")
	t.Setenv("BACKUP_S3_BUCKET", "snapshots")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.True(t, decimal.RequireFromString("250.50").Equal(cfg.LedgerInitialBalance))
	assert.True(t, cfg.AuthRequired)
	assert.True(t, cfg.Backup.Enabled())
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			DatabaseDriver:       DriverSQLite,
			DatabaseURL:          "forex.db",
			LedgerStore:          LedgerStoreSQL,
			RateLimitWindow:      time.Minute,
			RateLimitMaxRequests: 10,
		}
	}

	assert.NoError(t, valid().Validate())

	cfg := valid()
	cfg.DatabaseDriver = "mysql"
	assert.Error(t, cfg.Validate())

	cfg = valid()
	cfg.DatabaseDriver = DriverPostgres
	cfg.DatabaseURL = ""
	assert.Error(t, cfg.Validate())

	cfg = valid()
	cfg.LedgerStore = "memcached"
	assert.Error(t, cfg.Validate())

	cfg = valid()
	cfg.LedgerInitialBalance = decimal.NewFromInt(-1)
	assert.Error(t, cfg.Validate())
}
