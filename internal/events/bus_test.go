package events

import (
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBus_SubscribeAndEmit(t *testing.T) {
	bus := NewBus()

	var got []Event
	unsubscribe := bus.Subscribe(TransactionAdded, func(e Event) {
		got = append(got, e)
	})

	bus.Emit(TransactionAdded, "ledger", map[string]interface{}{"transaction_id": "a"})
	bus.Emit(TransactionDeleted, "ledger", nil)

	require.Len(t, got, 1)
	assert.Equal(t, TransactionAdded, got[0].Type)
	assert.Equal(t, "ledger", got[0].Module)
	assert.Equal(t, "a", got[0].Data["transaction_id"])

	unsubscribe()
	bus.Emit(TransactionAdded, "ledger", nil)
	assert.Len(t, got, 1)
}

func TestBus_SubscribeAll(t *testing.T) {
	bus := NewBus()

	count := 0
	unsubscribe := bus.SubscribeAll(func(Event) { count++ })

	bus.Emit(SignalCreated, "signals", nil)
	bus.Emit(LedgerCleared, "ledger", nil)
	assert.Equal(t, 2, count)

	unsubscribe()
	bus.Emit(LedgerCleared, "ledger", nil)
	assert.Equal(t, 2, count)
}

func TestManager_EmitTyped(t *testing.T) {
	bus := NewBus()
	manager := NewManager(bus, zerolog.New(nil).Level(zerolog.Disabled))

	var got Event
	bus.SubscribeAll(func(e Event) { got = e })

	manager.EmitTyped("signals", &SignalEventData{Kind: SignalDeleted, SignalID: "s-1"})
	assert.Equal(t, SignalDeleted, got.Type)
	assert.Equal(t, "s-1", got.Data["signal_id"])

	manager.EmitError("ledger", errors.New("boom"), map[string]interface{}{"key": "balance"})
	assert.Equal(t, ErrorOccurred, got.Type)
	assert.Equal(t, "boom", got.Data["error"])
}
