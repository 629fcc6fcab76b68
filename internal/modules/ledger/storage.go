package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/askpay/forexsignals/internal/database"
	"github.com/go-redis/redis/v8"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"
)

// Keys under which the ledger state is persisted
const (
	KeyBalance        = "forex_signals_balance"
	KeyTransactions   = "forex_signals_transactions"
	KeyInitialBalance = "forex_signals_initial_balance"
)

// Storage is the key-value collaborator the ledger loads from and flushes to
type Storage interface {
	// Get returns the stored value and whether the key exists
	Get(ctx context.Context, key string) (string, bool, error)
	// SetAll stores every key/value pair atomically, replacing previous values
	SetAll(ctx context.Context, values map[string]string) error
}

func sortedKeys(values map[string]string) []string {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// SQLStorage stores ledger state in the ledger_state table
type SQLStorage struct {
	db  *sqlx.DB
	log zerolog.Logger
}

// NewSQLStorage creates a storage backed by the ledger_state table
func NewSQLStorage(db *sqlx.DB, log zerolog.Logger) *SQLStorage {
	return &SQLStorage{
		db:  db,
		log: log.With().Str("repo", "ledger_state").Logger(),
	}
}

// Get returns the value stored under key
func (s *SQLStorage) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowxContext(ctx, s.db.Rebind("SELECT value FROM ledger_state WHERE key = ?"), key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read ledger state %s: %w", key, err)
	}
	return value, true, nil
}

// SetAll upserts every value in one database transaction
func (s *SQLStorage) SetAll(ctx context.Context, values map[string]string) error {
	query := s.db.Rebind(`
		INSERT INTO ledger_state (key, value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`)
	now := time.Now().Unix()

	return database.WithTransaction(s.db, func(tx *sqlx.Tx) error {
		for _, key := range sortedKeys(values) {
			if _, err := tx.ExecContext(ctx, query, key, values[key], now); err != nil {
				return fmt.Errorf("failed to write ledger state %s: %w", key, err)
			}
		}
		return nil
	})
}

// RedisStorage stores ledger state as plain Redis strings
type RedisStorage struct {
	client redis.Cmdable
	prefix string
	log    zerolog.Logger
}

// NewRedisStorage creates a storage that namespaces keys with prefix
func NewRedisStorage(client redis.Cmdable, prefix string, log zerolog.Logger) *RedisStorage {
	return &RedisStorage{
		client: client,
		prefix: prefix,
		log:    log.With().Str("repo", "ledger_redis").Logger(),
	}
}

// Get returns the value stored under key
func (s *RedisStorage) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := s.client.Get(ctx, s.prefix+key).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis get %s: %w", key, err)
	}
	return value, true, nil
}

// SetAll writes every value without expiry in one MULTI/EXEC block
func (s *RedisStorage) SetAll(ctx context.Context, values map[string]string) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, key := range sortedKeys(values) {
			pipe.Set(ctx, s.prefix+key, values[key], 0)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis set ledger state: %w", err)
	}
	return nil
}
