// Package di provides dependency injection wiring and initialization.
package di

import (
	"github.com/askpay/forexsignals/internal/database"
	"github.com/askpay/forexsignals/internal/events"
	"github.com/askpay/forexsignals/internal/metrics"
	"github.com/askpay/forexsignals/internal/modules/auth"
	"github.com/askpay/forexsignals/internal/modules/ledger"
	"github.com/askpay/forexsignals/internal/modules/signals"
	"github.com/askpay/forexsignals/internal/reliability"
	"github.com/askpay/forexsignals/internal/scheduler"
	"github.com/go-redis/redis/v8"
)

// Container holds every wired dependency
type Container struct {
	// Storage
	DB            *database.DB
	Redis         *redis.Client // nil unless LEDGER_STORE=redis
	LedgerStorage ledger.Storage

	// Cross-cutting
	Metrics      *metrics.Registry
	EventBus     *events.Bus
	EventManager *events.Manager

	// Domain services
	Ledger  *ledger.Ledger
	Signals *signals.Service
	Auth    *auth.Service

	// Background work
	Snapshot    *reliability.SnapshotService // nil when backups are disabled
	Maintenance *reliability.MaintenanceJob
	Scheduler   *scheduler.Scheduler
}
