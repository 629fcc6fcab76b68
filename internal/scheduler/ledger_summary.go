package scheduler

import (
	"github.com/askpay/forexsignals/internal/metrics"
	"github.com/askpay/forexsignals/internal/modules/ledger"
	"github.com/rs/zerolog"
)

// LedgerSummaryJob logs a daily ledger summary and refreshes the balance gauges
type LedgerSummaryJob struct {
	ledger  *ledger.Ledger
	metrics *metrics.Registry
	log     zerolog.Logger
}

// NewLedgerSummaryJob creates a new summary job
func NewLedgerSummaryJob(l *ledger.Ledger, m *metrics.Registry, log zerolog.Logger) *LedgerSummaryJob {
	return &LedgerSummaryJob{
		ledger:  l,
		metrics: m,
		log:     log.With().Str("job", "ledger_summary").Logger(),
	}
}

// Name returns the job name for the scheduler
func (j *LedgerSummaryJob) Name() string {
	return "ledger_summary"
}

// Run logs the summary
func (j *LedgerSummaryJob) Run() error {
	stats := j.ledger.Stats()
	perf := j.ledger.Performance()
	drift := j.ledger.Drift()

	if j.metrics != nil {
		j.metrics.SetLedgerState(stats.Balance.InexactFloat64(), stats.TotalTransactions)
	}

	event := j.log.Info()
	if !drift.IsZero() {
		event = j.log.Warn()
	}
	event.
		Str("balance", stats.Balance.String()).
		Str("net_income", stats.NetIncome.String()).
		Int("transactions", stats.TotalTransactions).
		Int("trades", perf.TotalTrades).
		Float64("win_rate", perf.WinRate).
		Str("drift", drift.String()).
		Msg("Daily ledger summary")

	return nil
}
