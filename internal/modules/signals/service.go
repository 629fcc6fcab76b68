package signals

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/askpay/forexsignals/internal/domain"
	"github.com/askpay/forexsignals/internal/events"
	"github.com/askpay/forexsignals/internal/modules/ledger"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Settler is the part of the ledger the service drives when results change
type Settler interface {
	AddTradingResult(signal ledger.Signal, outcome ledger.Outcome) (ledger.Transaction, error)
	TransactionForSignal(signalID string) (ledger.Transaction, bool)
	DeleteTransaction(id string) (ledger.Transaction, error)
	RestoreSettlement(signalID string, previous *ledger.Transaction)
}

// Service owns the signal lifecycle. Setting a WIN or LOSS result settles the
// signal into the ledger; clearing it back to PENDING or deleting the signal
// retracts the settlement transaction.
type Service struct {
	repo   *Repository
	ledger Settler
	events *events.Manager
	log    zerolog.Logger
}

// NewService creates a new signal service
func NewService(repo *Repository, settler Settler, eventManager *events.Manager, log zerolog.Logger) *Service {
	return &Service{
		repo:   repo,
		ledger: settler,
		events: eventManager,
		log:    log.With().Str("service", "signals").Logger(),
	}
}

// List returns a page of signals and the total count
func (s *Service) List(ctx context.Context, f Filter) ([]Signal, int, error) {
	return s.repo.List(ctx, f)
}

// Get returns one signal
func (s *Service) Get(ctx context.Context, id string) (*Signal, error) {
	return s.repo.GetByID(ctx, id)
}

// Exists reports whether id belongs to a stored signal
func (s *Service) Exists(ctx context.Context, id string) (bool, error) {
	return s.repo.Exists(ctx, id)
}

// Summary returns result counts and win rate
func (s *Service) Summary(ctx context.Context) (Summary, error) {
	return s.repo.Summary(ctx)
}

// Create validates and stores a new PENDING signal
func (s *Service) Create(ctx context.Context, in CreateInput) (*Signal, error) {
	pair := strings.ToUpper(strings.TrimSpace(in.Pair))
	if pair == "" || strings.TrimSpace(in.EntryTime) == "" || strings.TrimSpace(in.ExpiryTime) == "" || in.Direction == "" {
		return nil, fmt.Errorf("%w: pair, direction, entry_time and expiry_time are required", ErrInvalidInput)
	}
	direction, ok := domain.ParseDirection(in.Direction)
	if !ok {
		return nil, fmt.Errorf("%w: direction must be CALL or PUT", ErrInvalidInput)
	}
	if err := validateNumbers(in.EntryValue, in.Payout, in.Probability); err != nil {
		return nil, err
	}

	signal := &Signal{
		Pair:        pair,
		Direction:   direction,
		Timeframe:   in.Timeframe,
		EntryTime:   in.EntryTime,
		ExpiryTime:  in.ExpiryTime,
		EntryValue:  nullable(in.EntryValue),
		Payout:      nullable(in.Payout),
		Probability: in.Probability,
	}
	if err := s.repo.Create(ctx, signal); err != nil {
		return nil, err
	}

	s.emit(events.SignalCreated, signal)
	return signal, nil
}

// Update applies a partial update. A result in the payload goes through the
// same settlement path as SetResult.
func (s *Service) Update(ctx context.Context, id string, in UpdateInput) (*Signal, error) {
	signal, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	var result *domain.SignalResult
	if in.Result != nil {
		r, ok := domain.ParseSignalResult(*in.Result)
		if !ok {
			return nil, fmt.Errorf("%w: result must be WIN, LOSS or PENDING", ErrInvalidInput)
		}
		result = &r
	}
	if err := validateNumbers(in.EntryValue, in.Payout, in.Probability); err != nil {
		return nil, err
	}

	if in.Pair != nil {
		pair := strings.ToUpper(strings.TrimSpace(*in.Pair))
		if pair == "" {
			return nil, fmt.Errorf("%w: pair must not be empty", ErrInvalidInput)
		}
		signal.Pair = pair
	}
	if in.Direction != nil {
		d, ok := domain.ParseDirection(*in.Direction)
		if !ok {
			return nil, fmt.Errorf("%w: direction must be CALL or PUT", ErrInvalidInput)
		}
		signal.Direction = d
	}
	if in.Timeframe != nil {
		signal.Timeframe = in.Timeframe
	}
	if in.EntryTime != nil {
		signal.EntryTime = *in.EntryTime
	}
	if in.ExpiryTime != nil {
		signal.ExpiryTime = *in.ExpiryTime
	}
	if in.EntryValue != nil {
		signal.EntryValue = nullable(in.EntryValue)
	}
	if in.Payout != nil {
		signal.Payout = nullable(in.Payout)
	}
	if in.Probability != nil {
		signal.Probability = in.Probability
	}

	// New stake or payout on a settled signal re-settles it
	if result == nil && signal.Result.Settled() && (in.EntryValue != nil || in.Payout != nil) {
		current := signal.Result
		result = &current
	}

	var previous *ledger.Transaction
	if result != nil {
		if tx, ok := s.ledger.TransactionForSignal(signal.ID); ok {
			previous = &tx
		}
		if err := s.settle(signal, *result); err != nil {
			return nil, err
		}
	}

	if err := s.repo.Save(ctx, signal); err != nil {
		// The row was not written (or was deleted meanwhile): put the ledger back
		if result != nil {
			s.ledger.RestoreSettlement(signal.ID, previous)
			s.log.Warn().Err(err).Str("signal_id", signal.ID).Msg("Signal save failed, settlement rolled back")
		}
		return nil, err
	}

	s.emit(events.SignalUpdated, signal)
	return signal, nil
}

// SetResult records a result and settles or retracts the ledger transaction
func (s *Service) SetResult(ctx context.Context, id string, result string) (*Signal, error) {
	return s.Update(ctx, id, UpdateInput{Result: &result})
}

// Delete removes a signal and its settlement transaction
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.retract(id)
	s.emit(events.SignalDeleted, &Signal{ID: id})
	return nil
}

// settle moves the ledger to match result and stores the settlement amount on
// the signal. Signals without entry value or payout cannot be settled; their
// result is still recorded and any earlier settlement is retracted.
func (s *Service) settle(signal *Signal, result domain.SignalResult) error {
	signal.Result = result
	signal.ProfitLoss = decimal.NullDecimal{}

	if !result.Settled() {
		s.retract(signal.ID)
		return nil
	}

	outcome := ledger.OutcomeWin
	if result == domain.ResultLoss {
		outcome = ledger.OutcomeLoss
	}

	tx, err := s.ledger.AddTradingResult(ledger.Signal{
		ID:            signal.ID,
		Pair:          signal.Pair,
		Direction:     string(signal.Direction),
		EntryValue:    signal.EntryValue.Decimal,
		PayoutPercent: signal.Payout.Decimal,
	}, outcome)
	switch {
	case errors.Is(err, ledger.ErrInvalidSignal):
		s.log.Warn().Str("signal_id", signal.ID).Msg("Signal has no entry value or payout, result recorded without settlement")
		s.retract(signal.ID)
		return nil
	case err != nil:
		return err
	}

	signal.ProfitLoss = decimal.NewNullDecimal(tx.Amount)
	return nil
}

func (s *Service) retract(signalID string) {
	tx, ok := s.ledger.TransactionForSignal(signalID)
	if !ok {
		return
	}
	if _, err := s.ledger.DeleteTransaction(tx.ID); err != nil && !errors.Is(err, ledger.ErrTransactionNotFound) {
		s.log.Error().Err(err).Str("signal_id", signalID).Msg("Failed to retract settlement")
		return
	}
	s.log.Info().Str("signal_id", signalID).Str("transaction_id", tx.ID).Msg("Settlement retracted")
}

func (s *Service) emit(kind events.EventType, signal *Signal) {
	if s.events == nil {
		return
	}
	s.events.EmitTyped("signals", &events.SignalEventData{
		Kind:     kind,
		SignalID: signal.ID,
		Pair:     signal.Pair,
		Result:   string(signal.Result),
	})
}

func validateNumbers(entry, payout *decimal.Decimal, probability *int64) error {
	if entry != nil && entry.IsNegative() {
		return fmt.Errorf("%w: entry_value must not be negative", ErrInvalidInput)
	}
	if payout != nil && payout.IsNegative() {
		return fmt.Errorf("%w: payout must not be negative", ErrInvalidInput)
	}
	if probability != nil && (*probability < 0 || *probability > 100) {
		return fmt.Errorf("%w: probability must be between 0 and 100", ErrInvalidInput)
	}
	return nil
}

func nullable(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(*d)
}
