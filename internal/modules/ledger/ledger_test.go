package ledger_test

import (
	"context"
	"math"
	"sync"
	"testing"

	"github.com/askpay/forexsignals/internal/events"
	"github.com/askpay/forexsignals/internal/modules/ledger"
	testingpkg "github.com/askpay/forexsignals/internal/testing"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var seed = decimal.NewFromInt(1000)

func newLedger(t *testing.T) *ledger.Ledger {
	t.Helper()
	return ledger.New(context.Background(), ledger.Options{
		InitialBalance: seed,
		Log:            testingpkg.NewTestLogger(),
	})
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// assertConsistent checks balance == initial + sum(amounts)
func assertConsistent(t *testing.T, l *ledger.Ledger) {
	t.Helper()
	sum := decimal.Zero
	for _, tx := range l.Transactions(ledger.Filter{}) {
		sum = sum.Add(tx.Amount)
	}
	assert.True(t, l.Balance().Equal(l.InitialBalance().Add(sum)),
		"balance %s != initial %s + sum %s", l.Balance(), l.InitialBalance(), sum)
	assert.True(t, l.Drift().IsZero())
}

func TestAddTransaction_SignNormalization(t *testing.T) {
	l := newLedger(t)

	income, err := l.AddTransaction(testingpkg.NewIncomeFixture(50))
	require.NoError(t, err)
	assert.True(t, income.Amount.Equal(dec("50")))

	expense, err := l.AddTransaction(testingpkg.NewExpenseFixture(50))
	require.NoError(t, err)
	assert.True(t, expense.Amount.Equal(dec("-50")))

	// A negative income is still a credit
	negIncome, err := l.AddTransaction(ledger.TransactionInput{Amount: dec("-20"), Type: ledger.TypeIncome})
	require.NoError(t, err)
	assert.True(t, negIncome.Amount.Equal(dec("20")))

	assert.True(t, l.Balance().Equal(dec("1020")))
	assertConsistent(t, l)
}

func TestAddTransaction_Defaults(t *testing.T) {
	l := newLedger(t)

	tx, err := l.AddTransaction(testingpkg.NewIncomeFixture(10))
	require.NoError(t, err)
	assert.NotEmpty(t, tx.ID)
	assert.Equal(t, ledger.CategoryManual, tx.Category)
	assert.False(t, tx.Date.IsZero())
	assert.False(t, tx.IsSettlement())
}

func TestAddTransaction_NewestFirst(t *testing.T) {
	l := newLedger(t)

	first, err := l.AddTransaction(testingpkg.NewIncomeFixture(1))
	require.NoError(t, err)
	second, err := l.AddTransaction(testingpkg.NewIncomeFixture(2))
	require.NoError(t, err)

	snap := l.Snapshot()
	require.Len(t, snap.Transactions, 2)
	assert.Equal(t, second.ID, snap.Transactions[0].ID)
	assert.Equal(t, first.ID, snap.Transactions[1].ID)
}

func TestAddTransaction_RejectsInvalidInput(t *testing.T) {
	l := newLedger(t)

	_, err := l.AddTransaction(ledger.TransactionInput{Amount: decimal.Zero, Type: ledger.TypeIncome})
	assert.ErrorIs(t, err, ledger.ErrInvalidAmount)

	_, err = l.AddTransaction(ledger.TransactionInput{Amount: dec("5"), Type: ledger.TypeGain})
	assert.ErrorIs(t, err, ledger.ErrInvalidType)

	_, err = l.AddTransaction(ledger.TransactionInput{Amount: dec("5"), Type: "bonus"})
	assert.ErrorIs(t, err, ledger.ErrInvalidType)

	assert.True(t, l.Balance().Equal(seed))
	assert.Empty(t, l.Transactions(ledger.Filter{}))
}

func TestUpdateTransaction_AppliesDelta(t *testing.T) {
	l := newLedger(t)

	other, err := l.AddTransaction(testingpkg.NewIncomeFixture(5))
	require.NoError(t, err)
	tx, err := l.AddTransaction(testingpkg.NewIncomeFixture(100))
	require.NoError(t, err)
	require.True(t, l.Balance().Equal(dec("1105")))

	updated, err := l.UpdateTransaction(tx.ID, ledger.TransactionInput{
		Amount:      dec("30"),
		Type:        ledger.TypeExpense,
		Description: "Fee",
	})
	require.NoError(t, err)

	assert.Equal(t, tx.ID, updated.ID)
	assert.True(t, updated.Amount.Equal(dec("-30")))
	assert.Equal(t, tx.Date, updated.Date)
	// 1105 - 100 - 30
	assert.True(t, l.Balance().Equal(dec("975")))

	// position preserved
	snap := l.Snapshot()
	assert.Equal(t, tx.ID, snap.Transactions[0].ID)
	assert.Equal(t, other.ID, snap.Transactions[1].ID)
	assertConsistent(t, l)
}

func TestUpdateTransaction_UnknownIDIsNoop(t *testing.T) {
	l := newLedger(t)
	_, err := l.AddTransaction(testingpkg.NewIncomeFixture(10))
	require.NoError(t, err)
	before := l.Snapshot()

	_, err = l.UpdateTransaction("missing", testingpkg.NewIncomeFixture(99))
	assert.ErrorIs(t, err, ledger.ErrTransactionNotFound)

	after := l.Snapshot()
	assert.True(t, before.Balance.Equal(after.Balance))
	assert.Equal(t, before.Transactions, after.Transactions)
}

func TestUpdateTransaction_RejectsSettlement(t *testing.T) {
	l := newLedger(t)
	tx, err := l.AddTradingResult(testingpkg.NewSignalFixture("sig-1"), ledger.OutcomeWin)
	require.NoError(t, err)

	_, err = l.UpdateTransaction(tx.ID, testingpkg.NewIncomeFixture(500))
	assert.ErrorIs(t, err, ledger.ErrSettlementTransaction)
	assert.True(t, l.Balance().Equal(dec("1008.5")))
}

func TestDeleteTransaction_ReversesEffect(t *testing.T) {
	l := newLedger(t)
	_, err := l.AddTransaction(testingpkg.NewExpenseFixture(7))
	require.NoError(t, err)
	before := l.Balance()

	tx, err := l.AddTransaction(testingpkg.NewIncomeFixture(40))
	require.NoError(t, err)
	removed, err := l.DeleteTransaction(tx.ID)
	require.NoError(t, err)

	assert.Equal(t, tx.ID, removed.ID)
	assert.True(t, l.Balance().Equal(before))
	assert.Len(t, l.Transactions(ledger.Filter{}), 1)
	assertConsistent(t, l)

	_, err = l.DeleteTransaction(tx.ID)
	assert.ErrorIs(t, err, ledger.ErrTransactionNotFound)
	assert.True(t, l.Balance().Equal(before))
}

func TestUpdateBalance_RejectsInvalid(t *testing.T) {
	l := newLedger(t)

	for _, v := range []float64{-5, math.NaN(), math.Inf(1), math.Inf(-1)} {
		err := l.UpdateBalance(v)
		assert.ErrorIs(t, err, ledger.ErrInvalidBalance)
		assert.True(t, l.Balance().Equal(seed))
	}
}

func TestUpdateBalance_OverridesAndReportsDrift(t *testing.T) {
	l := newLedger(t)
	_, err := l.AddTransaction(testingpkg.NewIncomeFixture(100))
	require.NoError(t, err)

	require.NoError(t, l.UpdateBalance(2000))

	assert.True(t, l.Balance().Equal(dec("2000")))
	assert.Len(t, l.Transactions(ledger.Filter{}), 1)
	assert.True(t, l.Drift().Equal(dec("900")))

	require.NoError(t, l.UpdateBalance(0))
	assert.True(t, l.Balance().IsZero())
}

func TestAddTradingResult_Math(t *testing.T) {
	win := newLedger(t)
	tx, err := win.AddTradingResult(testingpkg.NewSignalFixture("sig-1"), ledger.OutcomeWin)
	require.NoError(t, err)
	assert.True(t, tx.Amount.Equal(dec("8.5")))
	assert.Equal(t, ledger.TypeGain, tx.Type)
	assert.Equal(t, ledger.CategoryTrading, tx.Category)
	assert.Equal(t, "sig-1", tx.SignalID)
	assert.Contains(t, tx.Description, "EUR/USD")
	assert.Contains(t, tx.Description, "CALL")

	loss := newLedger(t)
	tx, err = loss.AddTradingResult(testingpkg.NewSignalFixture("sig-1"), ledger.OutcomeLoss)
	require.NoError(t, err)
	assert.True(t, tx.Amount.Equal(dec("-10")))
	assert.Equal(t, ledger.TypeLoss, tx.Type)
	assert.True(t, loss.Balance().Equal(dec("990")))
}

func TestAddTradingResult_DoubleTriggerCountsOnce(t *testing.T) {
	l := newLedger(t)
	signal := testingpkg.NewSignalFixture("sig-1")

	first, err := l.AddTradingResult(signal, ledger.OutcomeWin)
	require.NoError(t, err)
	second, err := l.AddTradingResult(signal, ledger.OutcomeWin)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Len(t, l.Transactions(ledger.Filter{}), 1)
	assert.True(t, l.Balance().Equal(dec("1008.5")))
	assertConsistent(t, l)
}

func TestAddTradingResult_ReplaceLossWithWin(t *testing.T) {
	l := newLedger(t)
	_, err := l.AddTransaction(testingpkg.NewIncomeFixture(20))
	require.NoError(t, err)
	signal := testingpkg.NewSignalFixture("sig-1")

	lossTx, err := l.AddTradingResult(signal, ledger.OutcomeLoss)
	require.NoError(t, err)
	winTx, err := l.AddTradingResult(signal, ledger.OutcomeWin)
	require.NoError(t, err)

	assert.Equal(t, lossTx.ID, winTx.ID)
	settled := l.Transactions(ledger.Filter{Category: ledger.CategoryTrading})
	require.Len(t, settled, 1)
	assert.Equal(t, ledger.OutcomeWin, settled[0].Result)
	// 1000 + 20 + 8.5
	assert.True(t, l.Balance().Equal(dec("1028.5")))
	assertConsistent(t, l)

	found, ok := l.TransactionForSignal("sig-1")
	require.True(t, ok)
	assert.Equal(t, winTx.ID, found.ID)
}

func TestAddTradingResult_RejectsInvalidSignal(t *testing.T) {
	l := newLedger(t)

	cases := map[string]ledger.Signal{
		"missing id":      {EntryValue: dec("10"), PayoutPercent: dec("85")},
		"zero entry":      {ID: "a", EntryValue: decimal.Zero, PayoutPercent: dec("85")},
		"negative payout": {ID: "a", EntryValue: dec("10"), PayoutPercent: dec("-1")},
		"missing payout":  {ID: "a", EntryValue: dec("10")},
	}
	for name, signal := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := l.AddTradingResult(signal, ledger.OutcomeWin)
			assert.ErrorIs(t, err, ledger.ErrInvalidSignal)
		})
	}

	_, err := l.AddTradingResult(testingpkg.NewSignalFixture("a"), "draw")
	assert.ErrorIs(t, err, ledger.ErrInvalidOutcome)

	assert.True(t, l.Balance().Equal(seed))
	assert.Empty(t, l.Transactions(ledger.Filter{}))
}

func TestAddTradingResult_ConcurrentSameSignal(t *testing.T) {
	l := newLedger(t)
	signal := testingpkg.NewSignalFixture("sig-1")

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := l.AddTradingResult(signal, ledger.OutcomeWin)
			if err != nil {
				assert.ErrorIs(t, err, ledger.ErrDuplicateSettlement)
			}
		}()
	}
	wg.Wait()

	assert.Len(t, l.Transactions(ledger.Filter{}), 1)
	assert.True(t, l.Balance().Equal(dec("1008.5")))
	assertConsistent(t, l)
}

func TestInvariant_MixedSequence(t *testing.T) {
	l := newLedger(t)

	a, err := l.AddTransaction(testingpkg.NewIncomeFixture(300))
	require.NoError(t, err)
	b, err := l.AddTransaction(testingpkg.NewExpenseFixture(45))
	require.NoError(t, err)
	_, err = l.AddTradingResult(testingpkg.NewSignalFixture("s1"), ledger.OutcomeWin)
	require.NoError(t, err)
	_, err = l.AddTradingResult(testingpkg.NewSignalFixture("s2"), ledger.OutcomeLoss)
	require.NoError(t, err)
	_, err = l.UpdateTransaction(a.ID, testingpkg.NewIncomeFixture(250))
	require.NoError(t, err)
	_, err = l.DeleteTransaction(b.ID)
	require.NoError(t, err)
	_, err = l.AddTradingResult(testingpkg.NewSignalFixture("s2"), ledger.OutcomeWin)
	require.NoError(t, err)

	assertConsistent(t, l)
	// 1000 + 250 + 8.5 + 8.5
	assert.True(t, l.Balance().Equal(dec("1267")))
}

func TestClear(t *testing.T) {
	l := newLedger(t)
	_, err := l.AddTransaction(testingpkg.NewIncomeFixture(10))
	require.NoError(t, err)
	require.NoError(t, l.UpdateBalance(5))

	assert.Equal(t, 1, l.Clear())
	assert.Empty(t, l.Transactions(ledger.Filter{}))
	assert.True(t, l.Balance().Equal(seed))
	assert.True(t, l.Drift().IsZero())
}

func TestTransaction_Lookup(t *testing.T) {
	l := newLedger(t)
	tx, err := l.AddTransaction(testingpkg.NewIncomeFixture(10))
	require.NoError(t, err)

	got, err := l.Transaction(tx.ID)
	require.NoError(t, err)
	assert.Equal(t, tx.ID, got.ID)

	_, err = l.Transaction("nope")
	assert.ErrorIs(t, err, ledger.ErrTransactionNotFound)

	_, ok := l.TransactionForSignal("nope")
	assert.False(t, ok)
}

func TestFormat(t *testing.T) {
	l := newLedger(t)
	assert.Equal(t, "R$1.234,56", l.Format(dec("1234.56")))
}

func TestEventsPublished(t *testing.T) {
	bus := events.NewBus()
	manager := events.NewManager(bus, testingpkg.NewTestLogger())
	l := ledger.New(context.Background(), ledger.Options{
		InitialBalance: seed,
		Events:         manager,
		Log:            testingpkg.NewTestLogger(),
	})

	var got []events.EventType
	bus.SubscribeAll(func(e events.Event) { got = append(got, e.Type) })

	tx, err := l.AddTransaction(testingpkg.NewIncomeFixture(10))
	require.NoError(t, err)
	_, err = l.UpdateTransaction(tx.ID, testingpkg.NewIncomeFixture(20))
	require.NoError(t, err)
	_, err = l.DeleteTransaction(tx.ID)
	require.NoError(t, err)
	require.NoError(t, l.UpdateBalance(10))
	_, err = l.AddTradingResult(testingpkg.NewSignalFixture("s"), ledger.OutcomeWin)
	require.NoError(t, err)
	l.Clear()

	assert.Equal(t, []events.EventType{
		events.TransactionAdded,
		events.TransactionUpdated,
		events.TransactionDeleted,
		events.BalanceUpdated,
		events.SettlementRecorded,
		events.LedgerCleared,
	}, got)
}

func TestRestoreSettlement(t *testing.T) {
	l := newLedger(t)

	win, err := l.AddTradingResult(testingpkg.NewSignalFixture("s1"), ledger.OutcomeWin)
	require.NoError(t, err)
	_, err = l.AddTradingResult(testingpkg.NewSignalFixture("s1"), ledger.OutcomeLoss)
	require.NoError(t, err)
	require.True(t, l.Balance().Equal(dec("990")))

	// Back to the earlier win, same id
	l.RestoreSettlement("s1", &win)
	restored, ok := l.TransactionForSignal("s1")
	require.True(t, ok)
	assert.Equal(t, win.ID, restored.ID)
	assert.True(t, l.Balance().Equal(dec("1008.5")))
	assertConsistent(t, l)

	// Removed when there was nothing before
	l.RestoreSettlement("s1", nil)
	_, ok = l.TransactionForSignal("s1")
	assert.False(t, ok)
	assert.True(t, l.Balance().Equal(seed))

	// Re-inserted after a retraction
	l.RestoreSettlement("s1", &win)
	assert.Len(t, l.Transactions(ledger.Filter{}), 1)
	assert.True(t, l.Balance().Equal(dec("1008.5")))
	assertConsistent(t, l)

	// Nothing to undo
	l.RestoreSettlement("unknown", nil)
	assert.True(t, l.Balance().Equal(dec("1008.5")))
}

func TestRestore(t *testing.T) {
	l := newLedger(t)
	_, err := l.AddTransaction(testingpkg.NewIncomeFixture(10))
	require.NoError(t, err)

	source := newLedger(t)
	_, err = source.AddTradingResult(testingpkg.NewSignalFixture("s1"), ledger.OutcomeLoss)
	require.NoError(t, err)
	snap := source.Snapshot()
	snap.InitialBalance = dec("500")
	snap.Balance = dec("490")

	require.NoError(t, l.Restore(snap))
	assert.True(t, l.Balance().Equal(dec("490")))
	assert.True(t, l.InitialBalance().Equal(dec("500")))
	_, ok := l.TransactionForSignal("s1")
	assert.True(t, ok)
	assertConsistent(t, l)

	snap.InitialBalance = dec("-1")
	assert.ErrorIs(t, l.Restore(snap), ledger.ErrInvalidBalance)
	assert.True(t, l.InitialBalance().Equal(dec("500")))
}

func TestEventsFollowMutationOrder(t *testing.T) {
	log := testingpkg.NewTestLogger()
	bus := events.NewBus()
	l := ledger.New(context.Background(), ledger.Options{
		InitialBalance: seed,
		Events:         events.NewManager(bus, log),
		Log:            log,
	})

	var mu sync.Mutex
	var balances []decimal.Decimal
	bus.Subscribe(events.TransactionAdded, func(e events.Event) {
		mu.Lock()
		defer mu.Unlock()
		balances = append(balances, decimal.RequireFromString(e.Data["balance"].(string)))
	})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := l.AddTransaction(testingpkg.NewIncomeFixture(1))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, balances, 50)
	for i := 1; i < len(balances); i++ {
		assert.True(t, balances[i].GreaterThan(balances[i-1]), "balance stepped back at event %d", i)
	}
	assert.True(t, balances[49].Equal(dec("1050")))
}
