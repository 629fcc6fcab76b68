// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Database drivers understood by internal/database
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Ledger state backends
const (
	LedgerStoreSQL   = "sql"
	LedgerStoreRedis = "redis"
)

// Config holds application configuration
type Config struct {
	DataDir   string // Base directory for the SQLite database (always absolute)
	LogLevel  string
	LogPretty bool
	Port      int
	DevMode   bool

	DatabaseDriver string // sqlite or postgres
	DatabaseURL    string // DSN for postgres, file path for sqlite (defaults to DataDir/forex.db)

	LedgerStore          string // sql or redis
	RedisURL             string
	LedgerInitialBalance decimal.Decimal

	JWTSecret    string
	BcryptRounds int
	AuthRequired bool
	FrontendURL  string

	RateLimitWindow      time.Duration
	RateLimitMaxRequests int

	Backup *BackupConfig
}

// BackupConfig holds the S3-compatible snapshot backup settings
type BackupConfig struct {
	Bucket    string
	Prefix    string
	Region    string
	Endpoint  string // Optional custom endpoint (R2, MinIO)
	AccessKey string
	SecretKey string
	Cron      string // Six-field cron expression (with seconds)
}

// Enabled reports whether snapshot backups should be scheduled
func (b *BackupConfig) Enabled() bool {
	return b != nil && b.Bucket != ""
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir := getEnv("DATA_DIR", "./data")
	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}
	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:              absDataDir,
		Port:                 getEnvAsInt("PORT", 5001),
		DevMode:              getEnvAsBool("DEV_MODE", false),
		LogLevel:             getEnv("LOG_LEVEL", "info"),
		LogPretty:            getEnvAsBool("LOG_PRETTY", true),
		DatabaseDriver:       getEnv("DATABASE_DRIVER", DriverSQLite),
		DatabaseURL:          getEnv("DATABASE_URL", ""),
		LedgerStore:          getEnv("LEDGER_STORE", LedgerStoreSQL),
		RedisURL:             getEnv("REDIS_URL", "redis://localhost:6379/0"),
		LedgerInitialBalance: getEnvAsDecimal("LEDGER_INITIAL_BALANCE", decimal.NewFromInt(1000)),
		JWTSecret:            getEnv("JWT_SECRET", "fallback_secret_key"),
		BcryptRounds:         getEnvAsInt("BCRYPT_ROUNDS", 10),
		AuthRequired:         getEnvAsBool("AUTH_REQUIRED", false),
		FrontendURL:          getEnv("FRONTEND_URL", "http://localhost:3000"),
		RateLimitWindow:      time.Duration(getEnvAsInt("RATE_LIMIT_WINDOW_MS", 15*60*1000)) * time.Millisecond,
		RateLimitMaxRequests: getEnvAsInt("RATE_LIMIT_MAX_REQUESTS", 100),
		Backup:               loadBackupConfig(),
	}

	if cfg.DatabaseDriver == DriverSQLite && cfg.DatabaseURL == "" {
		cfg.DatabaseURL = filepath.Join(absDataDir, "forex.db")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	switch c.DatabaseDriver {
	case DriverSQLite, DriverPostgres:
	default:
		return fmt.Errorf("unsupported DATABASE_DRIVER %q", c.DatabaseDriver)
	}
	if c.DatabaseDriver == DriverPostgres && c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required for the postgres driver")
	}

	switch c.LedgerStore {
	case LedgerStoreSQL, LedgerStoreRedis:
	default:
		return fmt.Errorf("unsupported LEDGER_STORE %q", c.LedgerStore)
	}

	if c.LedgerInitialBalance.IsNegative() {
		return fmt.Errorf("LEDGER_INITIAL_BALANCE must not be negative")
	}
	if c.RateLimitMaxRequests <= 0 || c.RateLimitWindow <= 0 {
		return fmt.Errorf("rate limit window and max requests must be positive")
	}

	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsDecimal(key string, defaultValue decimal.Decimal) decimal.Decimal {
	if value := os.Getenv(key); value != "" {
		if d, err := decimal.NewFromString(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// loadBackupConfig loads snapshot backup configuration. Backups stay disabled
// until BACKUP_S3_BUCKET is set.
func loadBackupConfig() *BackupConfig {
	return &BackupConfig{
		Bucket:    getEnv("BACKUP_S3_BUCKET", ""),
		Prefix:    getEnv("BACKUP_S3_PREFIX", "ledger-snapshots/"),
		Region:    getEnv("BACKUP_S3_REGION", "auto"),
		Endpoint:  getEnv("BACKUP_S3_ENDPOINT", ""),
		AccessKey: getEnv("BACKUP_S3_ACCESS_KEY", ""),
		SecretKey: getEnv("BACKUP_S3_SECRET_KEY", ""),
		Cron:      getEnv("BACKUP_CRON", "0 0 3 * * *"),
	}
}
