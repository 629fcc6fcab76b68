package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/askpay/forexsignals/internal/domain"
	"github.com/askpay/forexsignals/internal/events"
	"github.com/askpay/forexsignals/internal/metrics"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const moduleName = "ledger"

var hundred = decimal.NewFromInt(100)

// Options configures a Ledger
type Options struct {
	// InitialBalance seeds the balance when storage holds no valid state
	InitialBalance decimal.Decimal
	// Storage is optional; without it the ledger lives in memory only
	Storage Storage
	Events  *events.Manager
	Metrics *metrics.Registry
	Log     zerolog.Logger
}

// Ledger owns the balance and the transaction list.
//
// Every mutation except UpdateBalance keeps
// balance == initialBalance + sum(transaction amounts).
// Callers hold a reference to one Ledger; there is no package-level instance.
type Ledger struct {
	mu             sync.RWMutex
	balance        decimal.Decimal
	initialBalance decimal.Decimal
	transactions   []Transaction // newest first

	// settlements currently in progress, keyed by signalID_outcome
	inflightMu sync.Mutex
	inflight   map[string]struct{}

	// held from commit until the event is published so subscribers see
	// events in mutation order
	publishMu sync.Mutex

	persister *Persister
	events    *events.Manager
	metrics   *metrics.Registry
	log       zerolog.Logger

	now   func() time.Time
	newID func() string
}

// New creates a ledger and loads its state from storage. Loading never fails:
// missing or unparsable values fall back to the initial balance and an empty list.
func New(ctx context.Context, opts Options) *Ledger {
	l := &Ledger{
		balance:        opts.InitialBalance,
		initialBalance: opts.InitialBalance,
		transactions:   []Transaction{},
		inflight:       make(map[string]struct{}),
		events:         opts.Events,
		metrics:        opts.Metrics,
		log:            opts.Log.With().Str("component", moduleName).Logger(),
		now:            time.Now,
		newID:          uuid.NewString,
	}

	if opts.Storage != nil {
		l.load(ctx, opts.Storage)
		l.persister = NewPersister(opts.Storage, opts.Metrics, opts.Events, opts.Log)
	}

	if l.metrics != nil {
		l.metrics.SetLedgerState(l.balance.InexactFloat64(), len(l.transactions))
	}

	return l
}

func (l *Ledger) load(ctx context.Context, storage Storage) {
	if raw, ok := l.read(ctx, storage, KeyInitialBalance); ok {
		if seed, err := decimal.NewFromString(raw); err == nil && !seed.IsNegative() {
			l.initialBalance = seed
		} else {
			l.log.Warn().Str("value", raw).Msg("Ignoring unparsable initial balance")
		}
	}
	l.balance = l.initialBalance

	if raw, ok := l.read(ctx, storage, KeyBalance); ok {
		if balance, err := decimal.NewFromString(raw); err == nil {
			l.balance = balance
		} else {
			l.log.Warn().Str("value", raw).Msg("Ignoring unparsable balance")
		}
	}

	if raw, ok := l.read(ctx, storage, KeyTransactions); ok {
		var txs []Transaction
		if err := json.Unmarshal([]byte(raw), &txs); err == nil {
			if txs == nil {
				txs = []Transaction{}
			}
			l.transactions = txs
		} else {
			l.log.Warn().Err(err).Msg("Ignoring unparsable transaction list")
		}
	}

	l.log.Info().
		Str("balance", l.balance.String()).
		Int("transactions", len(l.transactions)).
		Msg("Ledger state loaded")
}

func (l *Ledger) read(ctx context.Context, storage Storage, key string) (string, bool) {
	raw, ok, err := storage.Get(ctx, key)
	if err != nil {
		l.log.Warn().Err(err).Str("key", key).Msg("Failed to read ledger state, using default")
		return "", false
	}
	return raw, ok
}

// Close drains pending persistence writes
func (l *Ledger) Close(ctx context.Context) error {
	if l.persister == nil {
		return nil
	}
	return l.persister.Close(ctx)
}

// AddTransaction records a manual income or expense entry and returns it.
// The stored amount is +|amount| for income and -|amount| for expense.
func (l *Ledger) AddTransaction(in TransactionInput) (Transaction, error) {
	amount, err := normalizeManual(in)
	if err != nil {
		return Transaction{}, err
	}

	tx := Transaction{
		ID:          l.newID(),
		Amount:      amount,
		Type:        in.Type,
		Category:    in.Category,
		Description: in.Description,
		Date:        in.Date,
	}
	if tx.Category == "" {
		tx.Category = CategoryManual
	}
	if tx.Date.IsZero() {
		tx.Date = l.now()
	}

	l.mu.Lock()
	l.transactions = append([]Transaction{tx}, l.transactions...)
	l.balance = l.balance.Add(amount)
	snap := l.commitLocked()
	l.mu.Unlock()

	l.committed(snap, &events.TransactionEventData{
		Kind:          events.TransactionAdded,
		TransactionID: tx.ID,
		Type:          string(tx.Type),
		Amount:        tx.Amount,
		Balance:       snap.Balance,
	})
	return tx, nil
}

// UpdateTransaction replaces a manual entry in place, keeping its id and
// position, and moves the balance by the difference between the new and the
// old amount.
func (l *Ledger) UpdateTransaction(id string, in TransactionInput) (Transaction, error) {
	amount, err := normalizeManual(in)
	if err != nil {
		return Transaction{}, err
	}

	l.mu.Lock()
	idx := l.indexLocked(id)
	if idx < 0 {
		l.mu.Unlock()
		return Transaction{}, ErrTransactionNotFound
	}
	old := l.transactions[idx]
	if old.IsSettlement() {
		l.mu.Unlock()
		return Transaction{}, ErrSettlementTransaction
	}

	updated := old
	updated.Amount = amount
	updated.Type = in.Type
	updated.Description = in.Description
	if in.Category != "" {
		updated.Category = in.Category
	}
	if !in.Date.IsZero() {
		updated.Date = in.Date
	}

	l.transactions[idx] = updated
	l.balance = l.balance.Add(amount.Sub(old.Amount))
	snap := l.commitLocked()
	l.mu.Unlock()

	l.committed(snap, &events.TransactionEventData{
		Kind:          events.TransactionUpdated,
		TransactionID: updated.ID,
		Type:          string(updated.Type),
		Amount:        updated.Amount,
		Balance:       snap.Balance,
	})
	return updated, nil
}

// DeleteTransaction removes a transaction and reverses its effect on the balance
func (l *Ledger) DeleteTransaction(id string) (Transaction, error) {
	l.mu.Lock()
	idx := l.indexLocked(id)
	if idx < 0 {
		l.mu.Unlock()
		return Transaction{}, ErrTransactionNotFound
	}
	removed := l.transactions[idx]
	l.transactions = append(l.transactions[:idx:idx], l.transactions[idx+1:]...)
	l.balance = l.balance.Sub(removed.Amount)
	snap := l.commitLocked()
	l.mu.Unlock()

	l.committed(snap, &events.TransactionEventData{
		Kind:          events.TransactionDeleted,
		TransactionID: removed.ID,
		Type:          string(removed.Type),
		Amount:        removed.Amount,
		Balance:       snap.Balance,
		SignalID:      removed.SignalID,
	})
	return removed, nil
}

// UpdateBalance overrides the balance without touching the transaction list.
// This is a manual correction: afterwards Drift reports the difference from
// initial balance plus transaction sum.
func (l *Ledger) UpdateBalance(value float64) error {
	if math.IsNaN(value) || math.IsInf(value, 0) || value < 0 {
		return ErrInvalidBalance
	}
	next := decimal.NewFromFloat(value)

	l.mu.Lock()
	previous := l.balance
	l.balance = next
	snap := l.commitLocked()
	l.mu.Unlock()

	l.log.Warn().
		Str("previous", previous.String()).
		Str("balance", next.String()).
		Msg("Balance overridden manually")

	l.committed(snap, &events.BalanceUpdatedData{
		Previous: previous,
		Balance:  snap.Balance,
		Drift:    snap.Drift(),
	})
	return nil
}

// AddTradingResult settles a signal outcome into a gain or loss transaction.
//
// A win credits entryValue * payout / 100, a loss debits entryValue. When the
// signal already has a transaction it is replaced in place and the balance
// moves by the difference, so a signal never counts twice. A concurrent call
// for the same signal and outcome returns ErrDuplicateSettlement without
// touching state.
func (l *Ledger) AddTradingResult(signal Signal, outcome Outcome) (Transaction, error) {
	if outcome != OutcomeWin && outcome != OutcomeLoss {
		return Transaction{}, ErrInvalidOutcome
	}
	if strings.TrimSpace(signal.ID) == "" || !signal.EntryValue.IsPositive() || !signal.PayoutPercent.IsPositive() {
		l.log.Warn().
			Str("signal_id", signal.ID).
			Str("entry_value", signal.EntryValue.String()).
			Str("payout", signal.PayoutPercent.String()).
			Msg("Rejected settlement with invalid signal")
		return Transaction{}, ErrInvalidSignal
	}

	key := signal.ID + "_" + string(outcome)
	if !l.acquire(key) {
		l.log.Warn().Str("key", key).Msg("Dropped duplicate settlement")
		if l.metrics != nil {
			l.metrics.DuplicatesDropped.Inc()
		}
		return Transaction{}, ErrDuplicateSettlement
	}
	defer l.release(key)

	entry := signal.EntryValue
	payout := signal.PayoutPercent

	tx := Transaction{
		Category:      CategoryTrading,
		SignalID:      signal.ID,
		Pair:          signal.Pair,
		Direction:     signal.Direction,
		EntryValue:    &entry,
		PayoutPercent: &payout,
		Result:        outcome,
		Date:          l.now(),
	}
	if outcome == OutcomeWin {
		tx.Amount = entry.Mul(payout).Div(hundred)
		tx.Type = TypeGain
		tx.Description = fmt.Sprintf("WIN - %s %s - Lucro de %s%%", signal.Pair, signal.Direction, payout.String())
	} else {
		tx.Amount = entry.Neg()
		tx.Type = TypeLoss
		tx.Description = fmt.Sprintf("LOSS - %s %s - Perda de %s", signal.Pair, signal.Direction, domain.FormatBRL(entry))
	}

	l.mu.Lock()
	replaced := false
	previous := decimal.Zero
	if idx := l.signalIndexLocked(signal.ID); idx >= 0 {
		replaced = true
		previous = l.transactions[idx].Amount
		tx.ID = l.transactions[idx].ID
		l.transactions[idx] = tx
	} else {
		tx.ID = l.newID()
		l.transactions = append([]Transaction{tx}, l.transactions...)
	}
	l.balance = l.balance.Add(tx.Amount.Sub(previous))
	snap := l.commitLocked()
	l.mu.Unlock()

	if l.metrics != nil {
		l.metrics.RecordSettlement(string(outcome), replaced)
	}
	l.committed(snap, &events.SettlementRecordedData{
		SignalID:      signal.ID,
		TransactionID: tx.ID,
		Outcome:       string(outcome),
		Amount:        tx.Amount,
		Replaced:      replaced,
		Balance:       snap.Balance,
	})
	return tx, nil
}

// RestoreSettlement puts the settlement transaction of signalID back to
// previous, or removes it when previous is nil, moving the balance by the
// difference. It undoes an AddTradingResult whose surrounding operation
// failed. A previous transaction that is no longer listed goes back to the
// front of the list.
func (l *Ledger) RestoreSettlement(signalID string, previous *Transaction) {
	l.mu.Lock()
	idx := l.signalIndexLocked(signalID)
	if idx < 0 && previous == nil {
		l.mu.Unlock()
		return
	}

	current := decimal.Zero
	var removed Transaction
	switch {
	case previous == nil:
		removed = l.transactions[idx]
		current = removed.Amount
		l.transactions = append(l.transactions[:idx:idx], l.transactions[idx+1:]...)
	case idx >= 0:
		current = l.transactions[idx].Amount
		l.transactions[idx] = *previous
	default:
		l.transactions = append([]Transaction{*previous}, l.transactions...)
	}

	restored := decimal.Zero
	if previous != nil {
		restored = previous.Amount
	}
	l.balance = l.balance.Add(restored.Sub(current))
	snap := l.commitLocked()
	l.mu.Unlock()

	l.log.Warn().
		Str("signal_id", signalID).
		Str("balance", snap.Balance.String()).
		Msg("Settlement restored")

	data := &events.TransactionEventData{
		Kind:     events.TransactionDeleted,
		Balance:  snap.Balance,
		SignalID: signalID,
	}
	if previous != nil {
		data.Kind = events.TransactionUpdated
		data.TransactionID = previous.ID
		data.Type = string(previous.Type)
		data.Amount = previous.Amount
	} else {
		data.TransactionID = removed.ID
		data.Type = string(removed.Type)
		data.Amount = removed.Amount
	}
	l.committed(snap, data)
}

// Restore replaces the whole ledger state with snap, typically one decoded
// from a backup archive. The restored state is persisted like any mutation.
func (l *Ledger) Restore(snap Snapshot) error {
	if snap.InitialBalance.IsNegative() {
		return ErrInvalidBalance
	}
	txs := make([]Transaction, len(snap.Transactions))
	copy(txs, snap.Transactions)

	l.mu.Lock()
	l.balance = snap.Balance
	l.initialBalance = snap.InitialBalance
	l.transactions = txs
	next := l.commitLocked()
	l.mu.Unlock()

	l.log.Warn().
		Str("balance", next.Balance.String()).
		Int("transactions", len(txs)).
		Time("taken_at", snap.TakenAt).
		Msg("Ledger state restored")

	l.committed(next, &events.LedgerRestoredData{
		Transactions: len(txs),
		Balance:      next.Balance,
		Drift:        next.Drift(),
		TakenAt:      snap.TakenAt,
	})
	return nil
}

// Clear removes every transaction and resets the balance to the initial balance
func (l *Ledger) Clear() int {
	l.mu.Lock()
	removed := len(l.transactions)
	l.transactions = []Transaction{}
	l.balance = l.initialBalance
	snap := l.commitLocked()
	l.mu.Unlock()

	l.committed(snap, &events.LedgerClearedData{
		Removed: removed,
		Balance: snap.Balance,
	})
	return removed
}

// Balance returns the current balance
func (l *Ledger) Balance() decimal.Decimal {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.balance
}

// InitialBalance returns the seed the balance started from
func (l *Ledger) InitialBalance() decimal.Decimal {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.initialBalance
}

// Drift returns balance - (initial balance + sum of amounts). It is zero
// unless the balance was overridden with UpdateBalance.
func (l *Ledger) Drift() decimal.Decimal {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.balance.Sub(l.initialBalance.Add(sumAmounts(l.transactions)))
}

// Transaction returns the transaction with the given id
func (l *Ledger) Transaction(id string) (Transaction, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	idx := l.indexLocked(id)
	if idx < 0 {
		return Transaction{}, ErrTransactionNotFound
	}
	return l.transactions[idx], nil
}

// TransactionForSignal returns the settlement transaction of a signal
func (l *Ledger) TransactionForSignal(signalID string) (Transaction, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	idx := l.signalIndexLocked(signalID)
	if idx < 0 {
		return Transaction{}, false
	}
	return l.transactions[idx], true
}

// Snapshot returns a copy of the current state
func (l *Ledger) Snapshot() Snapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.snapshotLocked()
}

// Format renders an amount for display
func (l *Ledger) Format(amount decimal.Decimal) string {
	return domain.FormatBRL(amount)
}

func (l *Ledger) acquire(key string) bool {
	l.inflightMu.Lock()
	defer l.inflightMu.Unlock()

	if _, busy := l.inflight[key]; busy {
		return false
	}
	l.inflight[key] = struct{}{}
	return true
}

func (l *Ledger) release(key string) {
	l.inflightMu.Lock()
	delete(l.inflight, key)
	l.inflightMu.Unlock()
}

func (l *Ledger) indexLocked(id string) int {
	for i := range l.transactions {
		if l.transactions[i].ID == id {
			return i
		}
	}
	return -1
}

func (l *Ledger) signalIndexLocked(signalID string) int {
	if signalID == "" {
		return -1
	}
	for i := range l.transactions {
		if l.transactions[i].SignalID == signalID {
			return i
		}
	}
	return -1
}

func (l *Ledger) snapshotLocked() Snapshot {
	txs := make([]Transaction, len(l.transactions))
	copy(txs, l.transactions)
	return Snapshot{
		Balance:        l.balance,
		InitialBalance: l.initialBalance,
		Transactions:   txs,
		TakenAt:        l.now(),
	}
}

// commitLocked snapshots the mutated state and hands it to the persister.
// Submitting under the lock keeps snapshots in mutation order. It also takes
// publishMu, which committed releases; every commitLocked must be paired
// with a committed call.
func (l *Ledger) commitLocked() Snapshot {
	l.publishMu.Lock()
	snap := l.snapshotLocked()
	if l.persister != nil {
		l.persister.Submit(snap)
	}
	return snap
}

// committed publishes gauges and events once the state lock is released.
// Subscribers must not mutate the ledger from their handler.
func (l *Ledger) committed(snap Snapshot, data events.EventData) {
	defer l.publishMu.Unlock()

	if l.metrics != nil {
		l.metrics.SetLedgerState(snap.Balance.InexactFloat64(), len(snap.Transactions))
	}
	if l.events != nil {
		l.events.EmitTyped(moduleName, data)
	}
}

func normalizeManual(in TransactionInput) (decimal.Decimal, error) {
	if in.Amount.IsZero() {
		return decimal.Zero, ErrInvalidAmount
	}
	switch in.Type {
	case TypeIncome:
		return in.Amount.Abs(), nil
	case TypeExpense:
		return in.Amount.Abs().Neg(), nil
	default:
		return decimal.Zero, ErrInvalidType
	}
}
