// Package ledger keeps the running account balance and the transaction history,
// settles signal outcomes into transactions and derives statistics on demand.
package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType tags a transaction as a manual entry (income, expense) or a
// signal settlement (gain, loss).
type TransactionType string

const (
	TypeIncome  TransactionType = "income"
	TypeExpense TransactionType = "expense"
	TypeGain    TransactionType = "gain"
	TypeLoss    TransactionType = "loss"
)

// Outcome is the financial result of a settled signal
type Outcome string

const (
	OutcomeWin  Outcome = "win"
	OutcomeLoss Outcome = "loss"
)

// Categories assigned when the caller leaves the field empty
const (
	CategoryManual  = "manual"
	CategoryTrading = "trading"
)

// Transaction is a single signed monetary record affecting the balance.
// Positive amounts are credits, negative amounts debits.
type Transaction struct {
	ID          string          `json:"id"`
	Amount      decimal.Decimal `json:"amount"`
	Type        TransactionType `json:"type"`
	Category    string          `json:"category"`
	Description string          `json:"description"`
	Date        time.Time       `json:"date"`

	// Settlement fields, empty for manual entries
	SignalID      string           `json:"signalId,omitempty"`
	Pair          string           `json:"pair,omitempty"`
	Direction     string           `json:"direction,omitempty"`
	EntryValue    *decimal.Decimal `json:"entryValue,omitempty"`
	PayoutPercent *decimal.Decimal `json:"payoutPercent,omitempty"`
	Result        Outcome          `json:"result,omitempty"`
}

// IsSettlement reports whether the transaction was produced by a signal settlement
func (t Transaction) IsSettlement() bool {
	return t.SignalID != ""
}

// TransactionInput carries the caller-supplied fields of a manual entry.
// The sign of Amount is ignored; it is normalised from Type.
type TransactionInput struct {
	Amount      decimal.Decimal `json:"amount"`
	Type        TransactionType `json:"type"`
	Category    string          `json:"category"`
	Description string          `json:"description"`
	Date        time.Time       `json:"date"`
}

// Signal is the subset of a trading signal the ledger needs to settle it
type Signal struct {
	ID            string          `json:"id"`
	Pair          string          `json:"pair"`
	Direction     string          `json:"direction"`
	EntryValue    decimal.Decimal `json:"entryValue"`
	PayoutPercent decimal.Decimal `json:"payoutPercent"`
}

// Stats is the aggregate view over the current transaction list
type Stats struct {
	TotalIncome       decimal.Decimal `json:"totalIncome"`
	TotalExpenses     decimal.Decimal `json:"totalExpenses"`
	NetIncome         decimal.Decimal `json:"netIncome"`
	TotalTransactions int             `json:"totalTransactions"`
	IncomeCount       int             `json:"incomeCount"`
	ExpenseCount      int             `json:"expenseCount"`
	Balance           decimal.Decimal `json:"balance"`
}

// Performance summarises settled trades
type Performance struct {
	TotalTrades int             `json:"totalTrades"`
	Wins        int             `json:"wins"`
	Losses      int             `json:"losses"`
	WinRate     float64         `json:"winRate"`
	AverageWin  float64         `json:"averageWin"`
	AverageLoss float64         `json:"averageLoss"`
	StdDev      float64         `json:"stdDev"`
	NetProfit   decimal.Decimal `json:"netProfit"`
}

// Sort keys accepted by Filter.SortBy
const (
	SortByDate   = "date"
	SortByAmount = "amount"
)

// Filter narrows and orders a transaction listing
type Filter struct {
	Type      TransactionType
	Category  string
	Search    string // case-insensitive match on description, category and pair
	SortBy    string // date (default) or amount
	Ascending bool
}

// Snapshot is a point-in-time copy of the ledger state
type Snapshot struct {
	Balance        decimal.Decimal
	InitialBalance decimal.Decimal
	Transactions   []Transaction
	TakenAt        time.Time
}

// Drift returns balance minus (initial balance + sum of amounts)
func (s Snapshot) Drift() decimal.Decimal {
	return s.Balance.Sub(s.InitialBalance.Add(sumAmounts(s.Transactions)))
}

func sumAmounts(txs []Transaction) decimal.Decimal {
	total := decimal.Zero
	for _, tx := range txs {
		total = total.Add(tx.Amount)
	}
	return total
}
