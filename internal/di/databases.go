package di

import (
	"context"
	"fmt"
	"time"

	"github.com/askpay/forexsignals/internal/config"
	"github.com/askpay/forexsignals/internal/database"
	"github.com/askpay/forexsignals/internal/modules/ledger"
	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"
)

const redisKeyPrefix = "askpay:"

// InitializeDatabases opens and migrates the database and picks the ledger
// state backend
func InitializeDatabases(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*Container, error) {
	db, err := database.New(database.Config{
		Driver:  cfg.DatabaseDriver,
		DSN:     cfg.DatabaseURL,
		Profile: database.ProfileLedger,
		Name:    "forex",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	container := &Container{DB: db}

	switch cfg.LedgerStore {
	case config.LedgerStoreRedis:
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
		}
		client := redis.NewClient(opts)

		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			_ = client.Close()
			_ = db.Close()
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}

		container.Redis = client
		container.LedgerStorage = ledger.NewRedisStorage(client, redisKeyPrefix, log)
	default:
		container.LedgerStorage = ledger.NewSQLStorage(db.Conn(), log)
	}

	log.Info().
		Str("driver", db.Driver()).
		Str("ledger_store", cfg.LedgerStore).
		Msg("Databases initialized")

	return container, nil
}
