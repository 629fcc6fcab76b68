package di

import (
	"fmt"

	"github.com/askpay/forexsignals/internal/config"
	"github.com/askpay/forexsignals/internal/scheduler"
	"github.com/rs/zerolog"
)

// Job schedules (six fields, seconds first)
const (
	ledgerSummarySchedule = "0 0 0 * * *"
	maintenanceSchedule   = "0 0 2 * * *"
)

// RegisterJobs creates the scheduler and registers every background job.
// The scheduler is not started.
func RegisterJobs(container *Container, cfg *config.Config, log zerolog.Logger) error {
	sched := scheduler.New(log)

	summary := scheduler.NewLedgerSummaryJob(container.Ledger, container.Metrics, log)
	if err := sched.AddJob(ledgerSummarySchedule, summary); err != nil {
		return fmt.Errorf("failed to register %s: %w", summary.Name(), err)
	}

	if err := sched.AddJob(maintenanceSchedule, container.Maintenance); err != nil {
		return fmt.Errorf("failed to register %s: %w", container.Maintenance.Name(), err)
	}

	if container.Snapshot != nil {
		if err := sched.AddJob(cfg.Backup.Cron, container.Snapshot); err != nil {
			return fmt.Errorf("failed to register %s: %w", container.Snapshot.Name(), err)
		}
	}

	container.Scheduler = sched
	return nil
}
