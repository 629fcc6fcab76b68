// Package events provides event management functionality.
package events

import "time"

// EventType represents different event types
type EventType string

const (
	ErrorOccurred EventType = "ERROR_OCCURRED"

	// Ledger events
	TransactionAdded   EventType = "transaction_added"
	TransactionUpdated EventType = "transaction_updated"
	TransactionDeleted EventType = "transaction_deleted"
	BalanceUpdated     EventType = "balance_updated"
	SettlementRecorded EventType = "settlement_recorded"
	LedgerCleared      EventType = "ledger_cleared"
	LedgerRestored     EventType = "ledger_restored"

	// Signal events
	SignalCreated EventType = "signal_created"
	SignalUpdated EventType = "signal_updated"
	SignalDeleted EventType = "signal_deleted"
)

// Event represents a system event
type Event struct {
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data"`
	Module    string                 `json:"module"`
}
