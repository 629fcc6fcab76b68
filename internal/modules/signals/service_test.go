package signals

import (
	"context"
	"testing"

	"github.com/askpay/forexsignals/internal/domain"
	"github.com/askpay/forexsignals/internal/events"
	"github.com/askpay/forexsignals/internal/modules/ledger"
	testingpkg "github.com/askpay/forexsignals/internal/testing"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) (*Service, *ledger.Ledger, *events.Bus) {
	t.Helper()
	log := testingpkg.NewTestLogger()
	bus := events.NewBus()
	manager := events.NewManager(bus, log)
	l := ledger.New(context.Background(), ledger.Options{
		InitialBalance: decimal.NewFromInt(1000),
		Log:            log,
	})
	return NewService(newTestRepository(t), l, manager, log), l, bus
}

func strPtr(s string) *string { return &s }

func decPtr(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func validInput() CreateInput {
	return CreateInput{
		Pair:       "eur/usd",
		Direction:  "call",
		EntryTime:  "14:05",
		ExpiryTime: "14:10",
		EntryValue: decPtr("10"),
		Payout:     decPtr("85"),
	}
}

func TestService_CreateValidation(t *testing.T) {
	svc, _, bus := newTestService(t)
	ctx := context.Background()

	var emitted []events.EventType
	bus.SubscribeAll(func(e events.Event) { emitted = append(emitted, e.Type) })

	s, err := svc.Create(ctx, validInput())
	require.NoError(t, err)
	assert.Equal(t, "EUR/USD", s.Pair)
	assert.Equal(t, domain.DirectionCall, s.Direction)
	assert.Equal(t, domain.ResultPending, s.Result)
	assert.Equal(t, []events.EventType{events.SignalCreated}, emitted)

	missing := validInput()
	missing.ExpiryTime = ""
	_, err = svc.Create(ctx, missing)
	assert.ErrorIs(t, err, ErrInvalidInput)

	badDirection := validInput()
	badDirection.Direction = "UP"
	_, err = svc.Create(ctx, badDirection)
	assert.ErrorIs(t, err, ErrInvalidInput)

	negative := validInput()
	negative.EntryValue = decPtr("-1")
	_, err = svc.Create(ctx, negative)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestService_SetResultSettlesAndRetracts(t *testing.T) {
	svc, l, _ := newTestService(t)
	ctx := context.Background()

	s, err := svc.Create(ctx, validInput())
	require.NoError(t, err)

	won, err := svc.SetResult(ctx, s.ID, "WIN")
	require.NoError(t, err)
	assert.Equal(t, domain.ResultWin, won.Result)
	assert.True(t, won.ProfitLoss.Decimal.Equal(decimal.RequireFromString("8.5")))
	assert.True(t, l.Balance().Equal(decimal.RequireFromString("1008.5")))

	// Re-settling as loss replaces the settlement
	lost, err := svc.SetResult(ctx, s.ID, "loss")
	require.NoError(t, err)
	assert.True(t, lost.ProfitLoss.Decimal.Equal(decimal.NewFromInt(-10)))
	assert.True(t, l.Balance().Equal(decimal.NewFromInt(990)))
	assert.Len(t, l.Transactions(ledger.Filter{}), 1)

	stored, err := svc.Get(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ResultLoss, stored.Result)

	// Back to pending retracts the transaction
	pending, err := svc.SetResult(ctx, s.ID, "PENDING")
	require.NoError(t, err)
	assert.False(t, pending.ProfitLoss.Valid)
	assert.Empty(t, l.Transactions(ledger.Filter{}))
	assert.True(t, l.Balance().Equal(decimal.NewFromInt(1000)))

	_, err = svc.SetResult(ctx, s.ID, "DRAW")
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.SetResult(ctx, "missing", "WIN")
	assert.ErrorIs(t, err, ErrSignalNotFound)
}

func TestService_UpdateStakeResettles(t *testing.T) {
	svc, l, _ := newTestService(t)
	ctx := context.Background()

	s, err := svc.Create(ctx, validInput())
	require.NoError(t, err)
	_, err = svc.SetResult(ctx, s.ID, "WIN")
	require.NoError(t, err)

	updated, err := svc.Update(ctx, s.ID, UpdateInput{EntryValue: decPtr("20")})
	require.NoError(t, err)
	assert.True(t, updated.ProfitLoss.Decimal.Equal(decimal.NewFromInt(17)))
	assert.True(t, l.Balance().Equal(decimal.NewFromInt(1017)))
	assert.Len(t, l.Transactions(ledger.Filter{}), 1)
}

func TestService_ResultWithoutStakeIsRecorded(t *testing.T) {
	svc, l, _ := newTestService(t)
	ctx := context.Background()

	in := validInput()
	in.EntryValue = nil
	s, err := svc.Create(ctx, in)
	require.NoError(t, err)

	won, err := svc.SetResult(ctx, s.ID, "WIN")
	require.NoError(t, err)
	assert.Equal(t, domain.ResultWin, won.Result)
	assert.False(t, won.ProfitLoss.Valid)
	assert.Empty(t, l.Transactions(ledger.Filter{}))
}

func TestService_UpdateFields(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	s, err := svc.Create(ctx, validInput())
	require.NoError(t, err)

	updated, err := svc.Update(ctx, s.ID, UpdateInput{
		Pair:      strPtr("gbp/jpy"),
		Direction: strPtr("PUT"),
		Timeframe: strPtr("M5"),
	})
	require.NoError(t, err)
	assert.Equal(t, "GBP/JPY", updated.Pair)
	assert.Equal(t, domain.DirectionPut, updated.Direction)
	require.NotNil(t, updated.Timeframe)
	assert.Equal(t, "M5", *updated.Timeframe)
	assert.Equal(t, s.CreatedAt, updated.CreatedAt)

	_, err = svc.Update(ctx, s.ID, UpdateInput{Direction: strPtr("SIDEWAYS")})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestService_DeleteRetracts(t *testing.T) {
	svc, l, _ := newTestService(t)
	ctx := context.Background()

	s, err := svc.Create(ctx, validInput())
	require.NoError(t, err)
	_, err = svc.SetResult(ctx, s.ID, "LOSS")
	require.NoError(t, err)
	require.True(t, l.Balance().Equal(decimal.NewFromInt(990)))

	require.NoError(t, svc.Delete(ctx, s.ID))
	assert.True(t, l.Balance().Equal(decimal.NewFromInt(1000)))
	assert.Empty(t, l.Transactions(ledger.Filter{}))

	assert.ErrorIs(t, svc.Delete(ctx, s.ID), ErrSignalNotFound)
}

func blockSignalUpdates(t *testing.T, svc *Service) {
	t.Helper()
	_, err := svc.repo.db.Exec(`CREATE TRIGGER block_signal_updates BEFORE UPDATE ON forex_signals
		BEGIN SELECT RAISE(ABORT, 'blocked'); END`)
	require.NoError(t, err)
}

func TestService_SetResultRollsBackWhenSaveFails(t *testing.T) {
	svc, l, _ := newTestService(t)
	ctx := context.Background()

	fresh, err := svc.Create(ctx, validInput())
	require.NoError(t, err)
	settled, err := svc.Create(ctx, validInput())
	require.NoError(t, err)
	_, err = svc.SetResult(ctx, settled.ID, "WIN")
	require.NoError(t, err)
	before, ok := l.TransactionForSignal(settled.ID)
	require.True(t, ok)

	blockSignalUpdates(t, svc)

	// First settlement is dropped again
	_, err = svc.SetResult(ctx, fresh.ID, "WIN")
	require.Error(t, err)
	_, ok = l.TransactionForSignal(fresh.ID)
	assert.False(t, ok)
	assert.True(t, l.Balance().Equal(decimal.RequireFromString("1008.5")))

	// Re-settle keeps the earlier win in place
	_, err = svc.SetResult(ctx, settled.ID, "LOSS")
	require.Error(t, err)
	after, ok := l.TransactionForSignal(settled.ID)
	require.True(t, ok)
	assert.Equal(t, before.ID, after.ID)
	assert.Equal(t, ledger.OutcomeWin, after.Result)
	assert.True(t, l.Balance().Equal(decimal.RequireFromString("1008.5")))

	// Clearing to pending puts the retracted settlement back
	_, err = svc.SetResult(ctx, settled.ID, "PENDING")
	require.Error(t, err)
	assert.Len(t, l.Transactions(ledger.Filter{}), 1)
	assert.True(t, l.Balance().Equal(decimal.RequireFromString("1008.5")))
	assert.True(t, l.Drift().IsZero())

	stored, err := svc.Get(ctx, settled.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ResultWin, stored.Result)
}
