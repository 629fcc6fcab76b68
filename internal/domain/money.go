// Package domain holds value types shared across modules.
package domain

import (
	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// DefaultCurrency is the display currency of the ledger
const DefaultCurrency = money.BRL

// FormatBRL renders an amount as Brazilian reais, e.g. R$1.234,56.
// Display only; stored and compared values stay decimal.
func FormatBRL(amount decimal.Decimal) string {
	return FormatMoney(amount, DefaultCurrency)
}

// FormatMoney renders an amount in the given ISO currency. Unknown codes fall
// back to the plain decimal string with two places.
func FormatMoney(amount decimal.Decimal, code string) string {
	cur := money.GetCurrency(code)
	if cur == nil {
		return amount.StringFixed(2)
	}
	minor := amount.Shift(int32(cur.Fraction)).Round(0)
	return cur.Formatter().Format(minor.IntPart())
}
