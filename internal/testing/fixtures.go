package testing

import (
	"github.com/askpay/forexsignals/internal/modules/ledger"
	"github.com/shopspring/decimal"
)

// NewSignalFixture returns a settleable signal: entry 10, payout 85%
func NewSignalFixture(id string) ledger.Signal {
	return ledger.Signal{
		ID:            id,
		Pair:          "EUR/USD",
		Direction:     "CALL",
		EntryValue:    decimal.NewFromInt(10),
		PayoutPercent: decimal.NewFromInt(85),
	}
}

// NewIncomeFixture returns a manual income entry
func NewIncomeFixture(amount int64) ledger.TransactionInput {
	return ledger.TransactionInput{
		Amount:      decimal.NewFromInt(amount),
		Type:        ledger.TypeIncome,
		Description: "Deposit",
	}
}

// NewExpenseFixture returns a manual expense entry
func NewExpenseFixture(amount int64) ledger.TransactionInput {
	return ledger.TransactionInput{
		Amount:      decimal.NewFromInt(amount),
		Type:        ledger.TypeExpense,
		Description: "Withdrawal",
	}
}
