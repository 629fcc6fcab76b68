package ledger

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/askpay/forexsignals/internal/events"
	"github.com/askpay/forexsignals/internal/metrics"
	"github.com/rs/zerolog"
)

const writeTimeout = 5 * time.Second

// Persister flushes ledger snapshots to storage on a background goroutine.
// Submissions coalesce: only the latest pending snapshot is written. Write
// failures are logged and counted; they never reach the ledger caller.
type Persister struct {
	storage Storage
	metrics *metrics.Registry
	events  *events.Manager
	log     zerolog.Logger

	mu      sync.Mutex
	pending *Snapshot

	wake      chan struct{}
	done      chan struct{}
	stopped   chan struct{}
	closeOnce sync.Once
}

// NewPersister starts the background writer. Failed writes are published as
// error events when eventManager is set.
func NewPersister(storage Storage, reg *metrics.Registry, eventManager *events.Manager, log zerolog.Logger) *Persister {
	p := &Persister{
		storage: storage,
		metrics: reg,
		events:  eventManager,
		log:     log.With().Str("component", "ledger_persister").Logger(),
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	go p.run()
	return p
}

// Submit queues a snapshot for writing and returns immediately
func (p *Persister) Submit(s Snapshot) {
	p.mu.Lock()
	p.pending = &s
	p.mu.Unlock()

	select {
	case p.wake <- struct{}{}:
	default:
	}
}

// Close writes any pending snapshot and stops the writer
func (p *Persister) Close(ctx context.Context) error {
	p.closeOnce.Do(func() { close(p.done) })

	select {
	case <-p.stopped:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Persister) run() {
	defer close(p.stopped)

	for {
		select {
		case <-p.wake:
			p.flush()
		case <-p.done:
			p.flush()
			return
		}
	}
}

func (p *Persister) flush() {
	p.mu.Lock()
	s := p.pending
	p.pending = nil
	p.mu.Unlock()

	if s == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	txJSON, err := json.Marshal(s.Transactions)
	if err != nil {
		p.fail("encode", err)
		return
	}

	err = p.storage.SetAll(ctx, map[string]string{
		KeyTransactions:   string(txJSON),
		KeyBalance:        s.Balance.String(),
		KeyInitialBalance: s.InitialBalance.String(),
	})
	if err != nil {
		p.fail("write", err)
	}
}

func (p *Persister) fail(stage string, err error) {
	p.log.Error().Err(err).Str("stage", stage).Msg("Failed to persist ledger state")
	if p.metrics != nil {
		p.metrics.PersistenceFailures.WithLabelValues(stage).Inc()
	}
	if p.events != nil {
		p.events.EmitError(moduleName, err, map[string]interface{}{"stage": stage})
	}
}
