// Package signals stores forex trading signals and keeps their results in
// step with the ledger.
package signals

import (
	"errors"

	"github.com/askpay/forexsignals/internal/domain"
	"github.com/shopspring/decimal"
)

var (
	// ErrSignalNotFound is returned when no signal has the given id
	ErrSignalNotFound = errors.New("signal not found")
	// ErrInvalidInput is wrapped by every validation failure
	ErrInvalidInput = errors.New("invalid signal")
)

// Signal is a row of the forex_signals table
type Signal struct {
	ID          string              `db:"id" json:"id"`
	Pair        string              `db:"pair" json:"pair"`
	Direction   domain.Direction    `db:"direction" json:"direction"`
	Timeframe   *string             `db:"timeframe" json:"timeframe"`
	EntryTime   string              `db:"entry_time" json:"entry_time"`
	ExpiryTime  string              `db:"expiry_time" json:"expiry_time"`
	EntryValue  decimal.NullDecimal `db:"entry_value" json:"entry_value"`
	Payout      decimal.NullDecimal `db:"payout" json:"payout"`
	Probability *int64              `db:"probability" json:"probability"`
	Result      domain.SignalResult `db:"result" json:"result"`
	ProfitLoss  decimal.NullDecimal `db:"profit_loss" json:"profit_loss"`
	CreatedAt   int64               `db:"created_at" json:"created_at"`
	UpdatedAt   int64               `db:"updated_at" json:"updated_at"`
}

// CreateInput is the payload of a new signal
type CreateInput struct {
	Pair        string           `json:"pair"`
	Direction   string           `json:"direction"`
	Timeframe   *string          `json:"timeframe"`
	EntryTime   string           `json:"entry_time"`
	ExpiryTime  string           `json:"expiry_time"`
	EntryValue  *decimal.Decimal `json:"entry_value"`
	Payout      *decimal.Decimal `json:"payout"`
	Probability *int64           `json:"probability"`
}

// UpdateInput is a partial update; nil fields are left unchanged
type UpdateInput struct {
	Pair        *string          `json:"pair"`
	Direction   *string          `json:"direction"`
	Timeframe   *string          `json:"timeframe"`
	EntryTime   *string          `json:"entry_time"`
	ExpiryTime  *string          `json:"expiry_time"`
	EntryValue  *decimal.Decimal `json:"entry_value"`
	Payout      *decimal.Decimal `json:"payout"`
	Probability *int64           `json:"probability"`
	Result      *string          `json:"result"`
}

// Filter selects a page of signals
type Filter struct {
	Limit     int
	Offset    int
	Result    string
	Pair      string
	Order     string
	Direction string // asc or desc
}

// Summary aggregates signal results
type Summary struct {
	Total       int             `json:"total"`
	Wins        int             `json:"wins"`
	Losses      int             `json:"losses"`
	Pending     int             `json:"pending"`
	WinRate     float64         `json:"winRate"`
	TotalPayout decimal.Decimal `json:"totalPayout"`
}
