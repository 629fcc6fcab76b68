package ledger

import "errors"

var (
	// ErrInvalidAmount is returned for zero or missing manual amounts
	ErrInvalidAmount = errors.New("amount must be a non-zero number")
	// ErrInvalidType is returned for manual entries that are not income or expense
	ErrInvalidType = errors.New("type must be income or expense")
	// ErrTransactionNotFound is returned when no transaction has the given id
	ErrTransactionNotFound = errors.New("transaction not found")
	// ErrSettlementTransaction is returned when editing a settlement-derived transaction
	ErrSettlementTransaction = errors.New("settlement transactions change only through re-settlement")
	// ErrInvalidBalance is returned for negative or non-finite balance overrides
	ErrInvalidBalance = errors.New("balance must be a finite, non-negative number")
	// ErrInvalidSignal is returned when a signal lacks an id or positive entry value and payout
	ErrInvalidSignal = errors.New("signal requires an id, a positive entry value and a positive payout")
	// ErrInvalidOutcome is returned for outcomes other than win or loss
	ErrInvalidOutcome = errors.New("outcome must be win or loss")
	// ErrDuplicateSettlement is returned when the same settlement is already in flight
	ErrDuplicateSettlement = errors.New("settlement already in progress")
)
