package events

import (
	"time"

	"github.com/shopspring/decimal"
)

// EventData is the interface that all event data types must implement
// This allows for type-safe event data while maintaining flexibility
type EventData interface {
	// EventType returns the event type this data is associated with
	EventType() EventType
}

// TransactionEventData describes a transaction that was added, updated or deleted.
// Kind selects which of the three event types is emitted.
type TransactionEventData struct {
	Kind          EventType       `json:"-"`
	TransactionID string          `json:"transaction_id"`
	Type          string          `json:"type"`
	Amount        decimal.Decimal `json:"amount"`
	Balance       decimal.Decimal `json:"balance"`
	SignalID      string          `json:"signal_id,omitempty"`
}

// EventType returns the event type for TransactionEventData
func (d *TransactionEventData) EventType() EventType {
	if d.Kind == "" {
		return TransactionAdded
	}
	return d.Kind
}

// BalanceUpdatedData contains data for BalanceUpdated events
type BalanceUpdatedData struct {
	Previous decimal.Decimal `json:"previous"`
	Balance  decimal.Decimal `json:"balance"`
	Drift    decimal.Decimal `json:"drift"`
}

// EventType returns the event type for BalanceUpdatedData
func (d *BalanceUpdatedData) EventType() EventType {
	return BalanceUpdated
}

// SettlementRecordedData contains data for SettlementRecorded events
type SettlementRecordedData struct {
	SignalID      string          `json:"signal_id"`
	TransactionID string          `json:"transaction_id"`
	Outcome       string          `json:"outcome"`
	Amount        decimal.Decimal `json:"amount"`
	Replaced      bool            `json:"replaced"`
	Balance       decimal.Decimal `json:"balance"`
}

// EventType returns the event type for SettlementRecordedData
func (d *SettlementRecordedData) EventType() EventType {
	return SettlementRecorded
}

// LedgerClearedData contains data for LedgerCleared events
type LedgerClearedData struct {
	Removed int             `json:"removed"`
	Balance decimal.Decimal `json:"balance"`
}

// EventType returns the event type for LedgerClearedData
func (d *LedgerClearedData) EventType() EventType {
	return LedgerCleared
}

// LedgerRestoredData contains data for LedgerRestored events
type LedgerRestoredData struct {
	Transactions int             `json:"transactions"`
	Balance      decimal.Decimal `json:"balance"`
	Drift        decimal.Decimal `json:"drift"`
	TakenAt      time.Time       `json:"taken_at"`
}

// EventType returns the event type for LedgerRestoredData
func (d *LedgerRestoredData) EventType() EventType {
	return LedgerRestored
}

// SignalEventData describes a signal lifecycle change
type SignalEventData struct {
	Kind     EventType `json:"-"`
	SignalID string    `json:"signal_id"`
	Pair     string    `json:"pair,omitempty"`
	Result   string    `json:"result,omitempty"`
}

// EventType returns the event type for SignalEventData
func (d *SignalEventData) EventType() EventType {
	if d.Kind == "" {
		return SignalUpdated
	}
	return d.Kind
}

// ErrorEventData contains data for ErrorOccurred events
type ErrorEventData struct {
	Error   string                 `json:"error"`
	Context map[string]interface{} `json:"context,omitempty"`
}

// EventType returns the event type for ErrorEventData
func (d *ErrorEventData) EventType() EventType {
	return ErrorOccurred
}
