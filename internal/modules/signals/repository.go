package signals

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/askpay/forexsignals/internal/domain"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const (
	defaultLimit = 20
	maxLimit     = 100
)

// orderColumns whitelists the columns a listing may be ordered by
var orderColumns = map[string]bool{
	"created_at":  true,
	"updated_at":  true,
	"entry_time":  true,
	"pair":        true,
	"result":      true,
	"probability": true,
}

const selectColumns = `id, pair, direction, timeframe, entry_time, expiry_time,
	entry_value, payout, probability, result, profit_loss, created_at, updated_at`

// Repository handles forex_signals persistence on SQLite or PostgreSQL.
// Queries are written with ? placeholders and rebound for the active driver.
type Repository struct {
	db  *sqlx.DB
	log zerolog.Logger
}

// NewRepository creates a new signal repository
func NewRepository(db *sqlx.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "signals").Logger(),
	}
}

// List returns one page of signals and the total number of matching rows
func (r *Repository) List(ctx context.Context, f Filter) ([]Signal, int, error) {
	f = normalizeFilter(f)

	where := " WHERE 1=1"
	args := []interface{}{}
	if f.Result != "" {
		where += " AND result = ?"
		args = append(args, f.Result)
	}
	if f.Pair != "" {
		where += " AND pair = ?"
		args = append(args, f.Pair)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, r.db.Rebind("SELECT COUNT(*) FROM forex_signals"+where), args...); err != nil {
		return nil, 0, fmt.Errorf("failed to count signals: %w", err)
	}

	query := "SELECT " + selectColumns + " FROM forex_signals" + where +
		fmt.Sprintf(" ORDER BY %s %s, id ASC LIMIT ? OFFSET ?", f.Order, f.Direction)
	args = append(args, f.Limit, f.Offset)

	signals := []Signal{}
	if err := r.db.SelectContext(ctx, &signals, r.db.Rebind(query), args...); err != nil {
		return nil, 0, fmt.Errorf("failed to list signals: %w", err)
	}
	return signals, total, nil
}

func normalizeFilter(f Filter) Filter {
	if f.Limit <= 0 {
		f.Limit = defaultLimit
	}
	if f.Limit > maxLimit {
		f.Limit = maxLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	f.Result = strings.ToUpper(f.Result)
	f.Pair = strings.ToUpper(f.Pair)
	if !orderColumns[f.Order] {
		f.Order = "created_at"
	}
	if strings.EqualFold(f.Direction, "asc") {
		f.Direction = "ASC"
	} else {
		f.Direction = "DESC"
	}
	return f
}

// Create inserts a signal, assigning its id, timestamps and PENDING result
func (r *Repository) Create(ctx context.Context, s *Signal) error {
	now := time.Now().Unix()
	s.ID = uuid.NewString()
	s.Result = domain.ResultPending
	s.ProfitLoss = decimal.NullDecimal{}
	s.CreatedAt = now
	s.UpdatedAt = now

	query := r.db.Rebind(`
		INSERT INTO forex_signals (
			id, pair, direction, timeframe, entry_time, expiry_time,
			entry_value, payout, probability, result, profit_loss, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	_, err := r.db.ExecContext(ctx, query,
		s.ID, s.Pair, string(s.Direction), s.Timeframe, s.EntryTime, s.ExpiryTime,
		s.EntryValue, s.Payout, s.Probability, string(s.Result), s.ProfitLoss, s.CreatedAt, s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create signal: %w", err)
	}

	r.log.Debug().Str("id", s.ID).Str("pair", s.Pair).Msg("Signal created")
	return nil
}

// GetByID returns a signal or ErrSignalNotFound
func (r *Repository) GetByID(ctx context.Context, id string) (*Signal, error) {
	var s Signal
	err := r.db.GetContext(ctx, &s, r.db.Rebind("SELECT "+selectColumns+" FROM forex_signals WHERE id = ?"), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSignalNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get signal %s: %w", id, err)
	}
	return &s, nil
}

// Exists reports whether a signal with id is stored
func (r *Repository) Exists(ctx context.Context, id string) (bool, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, r.db.Rebind("SELECT COUNT(*) FROM forex_signals WHERE id = ?"), id); err != nil {
		return false, fmt.Errorf("failed to look up signal %s: %w", id, err)
	}
	return count > 0, nil
}

// Save writes every mutable column of s and bumps updated_at.
// id and created_at are never changed.
func (r *Repository) Save(ctx context.Context, s *Signal) error {
	s.UpdatedAt = time.Now().Unix()

	query := r.db.Rebind(`
		UPDATE forex_signals SET
			pair = ?, direction = ?, timeframe = ?, entry_time = ?, expiry_time = ?,
			entry_value = ?, payout = ?, probability = ?, result = ?, profit_loss = ?, updated_at = ?
		WHERE id = ?
	`)
	res, err := r.db.ExecContext(ctx, query,
		s.Pair, string(s.Direction), s.Timeframe, s.EntryTime, s.ExpiryTime,
		s.EntryValue, s.Payout, s.Probability, string(s.Result), s.ProfitLoss, s.UpdatedAt, s.ID)
	if err != nil {
		return fmt.Errorf("failed to update signal %s: %w", s.ID, err)
	}
	return expectOneRow(res)
}

// Delete removes a signal
func (r *Repository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, r.db.Rebind("DELETE FROM forex_signals WHERE id = ?"), id)
	if err != nil {
		return fmt.Errorf("failed to delete signal %s: %w", id, err)
	}
	return expectOneRow(res)
}

// Summary counts results. WinRate is wins / (wins + losses) in percent with
// one decimal; TotalPayout sums the payout of winning signals.
func (r *Repository) Summary(ctx context.Context) (Summary, error) {
	var rows []struct {
		Result string              `db:"result"`
		Payout decimal.NullDecimal `db:"payout"`
	}
	if err := r.db.SelectContext(ctx, &rows, "SELECT result, payout FROM forex_signals"); err != nil {
		return Summary{}, fmt.Errorf("failed to summarise signals: %w", err)
	}

	s := Summary{Total: len(rows), TotalPayout: decimal.Zero}
	for _, row := range rows {
		switch domain.SignalResult(row.Result) {
		case domain.ResultWin:
			s.Wins++
			if row.Payout.Valid {
				s.TotalPayout = s.TotalPayout.Add(row.Payout.Decimal)
			}
		case domain.ResultLoss:
			s.Losses++
		default:
			s.Pending++
		}
	}
	if decided := s.Wins + s.Losses; decided > 0 {
		s.WinRate = math.Round(float64(s.Wins)/float64(decided)*1000) / 10
	}
	return s, nil
}

func expectOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return ErrSignalNotFound
	}
	return nil
}
