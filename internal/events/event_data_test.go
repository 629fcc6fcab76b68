package events

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransactionEventData_EventType(t *testing.T) {
	assert.Equal(t, TransactionAdded, (&TransactionEventData{}).EventType())
	assert.Equal(t, TransactionDeleted, (&TransactionEventData{Kind: TransactionDeleted}).EventType())
	assert.Equal(t, SignalUpdated, (&SignalEventData{}).EventType())
	assert.Equal(t, SignalCreated, (&SignalEventData{Kind: SignalCreated}).EventType())
}

func TestSettlementRecordedData_JSON(t *testing.T) {
	data := SettlementRecordedData{
		SignalID:      "sig-1",
		TransactionID: "tx-1",
		Outcome:       "win",
		Amount:        decimal.RequireFromString("8.5"),
		Balance:       decimal.RequireFromString("1008.5"),
	}

	jsonData, err := json.Marshal(data)
	require.NoError(t, err)
	assert.Contains(t, string(jsonData), `"signal_id":"sig-1"`)
	assert.Contains(t, string(jsonData), `"amount":"8.5"`)

	m := convertEventDataToMap(&data)
	assert.Equal(t, "win", m["outcome"])
	assert.Equal(t, false, m["replaced"])
}

func TestConvertEventDataToMap_Nil(t *testing.T) {
	assert.Nil(t, convertEventDataToMap(nil))
}
