package scheduler

import (
	"context"
	"errors"
	"testing"

	"github.com/askpay/forexsignals/internal/metrics"
	"github.com/askpay/forexsignals/internal/modules/ledger"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingJob struct {
	runs int
	err  error
}

func (j *countingJob) Run() error {
	j.runs++
	return j.err
}

func (j *countingJob) Name() string {
	return "counting"
}

func testLogger() zerolog.Logger {
	return zerolog.New(nil).Level(zerolog.Disabled)
}

func TestAddJob(t *testing.T) {
	s := New(testLogger())

	require.NoError(t, s.AddJob("0 0 3 * * *", &countingJob{}))
	assert.Len(t, s.cron.Entries(), 1)

	// five-field expressions are rejected when seconds are enabled
	assert.Error(t, s.AddJob("0 3 * * *", &countingJob{}))
}

func TestRunNowAndExecute(t *testing.T) {
	s := New(testLogger())

	job := &countingJob{}
	require.NoError(t, s.RunNow(job))
	s.execute(job)
	assert.Equal(t, 2, job.runs)

	failing := &countingJob{err: errors.New("boom")}
	assert.Error(t, s.RunNow(failing))
	s.execute(failing)
	assert.Equal(t, 2, failing.runs)
}

func TestStartStop(t *testing.T) {
	s := New(testLogger())
	require.NoError(t, s.AddJob("@every 1h", &countingJob{}))
	s.Start()
	s.Stop()
}

func TestLedgerSummaryJob(t *testing.T) {
	l := ledger.New(context.Background(), ledger.Options{
		InitialBalance: decimal.NewFromInt(1000),
		Log:            testLogger(),
	})
	_, err := l.AddTransaction(ledger.TransactionInput{Amount: decimal.NewFromInt(50), Type: ledger.TypeIncome})
	require.NoError(t, err)

	reg := metrics.NewRegistry()
	job := NewLedgerSummaryJob(l, reg, testLogger())
	require.NoError(t, job.Run())

	assert.Equal(t, "ledger_summary", job.Name())
	assert.Equal(t, 1050.0, testutil.ToFloat64(reg.Balance))
	assert.Equal(t, 1.0, testutil.ToFloat64(reg.Transactions))
}
