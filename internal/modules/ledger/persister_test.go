package ledger_test

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/askpay/forexsignals/internal/events"
	"github.com/askpay/forexsignals/internal/metrics"
	"github.com/askpay/forexsignals/internal/modules/ledger"
	testingpkg "github.com/askpay/forexsignals/internal/testing"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_FromStorage(t *testing.T) {
	txs := []ledger.Transaction{{
		ID:       "t1",
		Amount:   dec("-10"),
		Type:     ledger.TypeLoss,
		Category: ledger.CategoryTrading,
		SignalID: "sig-9",
		Date:     time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	}}
	raw, err := json.Marshal(txs)
	require.NoError(t, err)

	storage := testingpkg.NewMemoryStorage(map[string]string{
		ledger.KeyBalance:        "490",
		ledger.KeyInitialBalance: "500",
		ledger.KeyTransactions:   string(raw),
	})

	l := ledger.New(context.Background(), ledger.Options{
		InitialBalance: seed,
		Storage:        storage,
		Log:            testingpkg.NewTestLogger(),
	})
	defer l.Close(context.Background())

	assert.True(t, l.Balance().Equal(dec("490")))
	assert.True(t, l.InitialBalance().Equal(dec("500")))
	found, ok := l.TransactionForSignal("sig-9")
	require.True(t, ok)
	assert.Equal(t, "t1", found.ID)
	assert.True(t, l.Drift().IsZero())
}

func TestLoad_FallsBackOnGarbage(t *testing.T) {
	storage := testingpkg.NewMemoryStorage(map[string]string{
		ledger.KeyBalance:        "not-a-number",
		ledger.KeyInitialBalance: "-3",
		ledger.KeyTransactions:   "{broken",
	})

	l := ledger.New(context.Background(), ledger.Options{
		InitialBalance: seed,
		Storage:        storage,
		Log:            testingpkg.NewTestLogger(),
	})
	defer l.Close(context.Background())

	assert.True(t, l.Balance().Equal(seed))
	assert.True(t, l.InitialBalance().Equal(seed))
	assert.Empty(t, l.Transactions(ledger.Filter{}))
}

func TestLoad_FallsBackOnStorageError(t *testing.T) {
	reg := metrics.NewRegistry()
	l := ledger.New(context.Background(), ledger.Options{
		InitialBalance: seed,
		Storage:        testingpkg.FailingStorage{},
		Metrics:        reg,
		Log:            testingpkg.NewTestLogger(),
	})

	assert.True(t, l.Balance().Equal(seed))

	// Writes fail in the background; the in-memory state is kept
	_, err := l.AddTransaction(testingpkg.NewIncomeFixture(10))
	require.NoError(t, err)
	require.NoError(t, l.Close(context.Background()))

	assert.True(t, l.Balance().Equal(dec("1010")))
	assert.Equal(t, 1.0, testutil.ToFloat64(reg.PersistenceFailures.WithLabelValues("write")))
}

func TestPersister_PublishesWriteFailures(t *testing.T) {
	log := testingpkg.NewTestLogger()
	bus := events.NewBus()

	var mu sync.Mutex
	var failures []events.Event
	bus.Subscribe(events.ErrorOccurred, func(e events.Event) {
		mu.Lock()
		failures = append(failures, e)
		mu.Unlock()
	})

	p := ledger.NewPersister(testingpkg.FailingStorage{}, nil, events.NewManager(bus, log), log)
	p.Submit(ledger.Snapshot{Balance: seed, InitialBalance: seed})
	require.NoError(t, p.Close(context.Background()))

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, failures, 1)
	assert.Equal(t, "ledger", failures[0].Module)
	assert.Equal(t, testingpkg.ErrStorageUnavailable.Error(), failures[0].Data["error"])
}

func TestPersister_WritesLatestState(t *testing.T) {
	storage := testingpkg.NewMemoryStorage(nil)
	l := ledger.New(context.Background(), ledger.Options{
		InitialBalance: seed,
		Storage:        storage,
		Log:            testingpkg.NewTestLogger(),
	})

	for i := 0; i < 20; i++ {
		_, err := l.AddTransaction(testingpkg.NewIncomeFixture(1))
		require.NoError(t, err)
	}
	_, err := l.AddTradingResult(testingpkg.NewSignalFixture("s1"), ledger.OutcomeWin)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, l.Close(ctx))

	assert.Equal(t, "1028.5", storage.Value(ledger.KeyBalance))
	assert.Equal(t, "1000", storage.Value(ledger.KeyInitialBalance))

	var stored []ledger.Transaction
	require.NoError(t, json.Unmarshal([]byte(storage.Value(ledger.KeyTransactions)), &stored))
	assert.Len(t, stored, 21)
	assert.Equal(t, "s1", stored[0].SignalID)
	assert.LessOrEqual(t, storage.Writes(), 21)

	// Reload reproduces the same state
	reloaded := ledger.New(context.Background(), ledger.Options{
		InitialBalance: decimal.NewFromInt(1),
		Storage:        storage,
		Log:            testingpkg.NewTestLogger(),
	})
	defer reloaded.Close(context.Background())
	assert.True(t, reloaded.Balance().Equal(dec("1028.5")))
	assert.Len(t, reloaded.Transactions(ledger.Filter{}), 21)
	assert.True(t, reloaded.Drift().IsZero())
}

func TestPersister_CloseIsIdempotent(t *testing.T) {
	p := ledger.NewPersister(testingpkg.NewMemoryStorage(nil), nil, nil, testingpkg.NewTestLogger())
	require.NoError(t, p.Close(context.Background()))
	require.NoError(t, p.Close(context.Background()))
}
