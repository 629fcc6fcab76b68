package reliability

import (
	"context"
	"fmt"
	"time"

	"github.com/askpay/forexsignals/internal/database"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/disk"
)

// Disk thresholds in GB
const (
	criticalFreeGB = 0.5
	lowFreeGB      = 5.0
)

// DiskUsageFunc reports usage for a path; replaced in tests
type DiskUsageFunc func(ctx context.Context, path string) (*disk.UsageStat, error)

// MaintenanceJob runs the daily database maintenance: integrity check,
// WAL checkpoint and a free disk space check
type MaintenanceJob struct {
	db        *database.DB
	dataDir   string
	diskUsage DiskUsageFunc
	log       zerolog.Logger
}

// NewMaintenanceJob creates a new maintenance job
func NewMaintenanceJob(db *database.DB, dataDir string, log zerolog.Logger) *MaintenanceJob {
	return &MaintenanceJob{
		db:        db,
		dataDir:   dataDir,
		diskUsage: disk.UsageWithContext,
		log:       log.With().Str("job", "maintenance").Logger(),
	}
}

// Name returns the job name for the scheduler
func (j *MaintenanceJob) Name() string {
	return "daily_maintenance"
}

// Run executes the maintenance job
func (j *MaintenanceJob) Run() error {
	j.log.Info().Msg("Starting daily maintenance")
	startTime := time.Now()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if err := j.db.HealthCheck(ctx); err != nil {
		j.log.Error().Err(err).Str("database", j.db.Name()).Msg("CRITICAL: Database health check failed")
		return fmt.Errorf("health check failed: %w", err)
	}

	if j.db.Driver() == database.DriverSQLite {
		if _, err := j.db.Conn().ExecContext(ctx, "PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
			// not critical
			j.log.Warn().Err(err).Str("database", j.db.Name()).Msg("WAL checkpoint failed")
		}
	}

	if err := j.checkDiskSpace(ctx); err != nil {
		return err
	}

	j.log.Info().
		Dur("duration_ms", time.Since(startTime)).
		Msg("Daily maintenance completed successfully")
	return nil
}

// checkDiskSpace fails below 500MB free and logs below 5GB
func (j *MaintenanceJob) checkDiskSpace(ctx context.Context) error {
	if j.dataDir == "" {
		return nil
	}

	usage, err := j.diskUsage(ctx, j.dataDir)
	if err != nil {
		return fmt.Errorf("failed to stat filesystem: %w", err)
	}

	availableGB := float64(usage.Free) / 1e9
	j.log.Debug().Float64("available_gb", availableGB).Msg("Disk space check")

	if availableGB < criticalFreeGB {
		j.log.Error().Float64("available_gb", availableGB).Msg("CRITICAL: Insufficient disk space")
		return fmt.Errorf("only %.2f GB free in %s", availableGB, j.dataDir)
	}
	if availableGB < lowFreeGB {
		j.log.Warn().Float64("available_gb", availableGB).Msg("Disk space running low")
	}

	return nil
}
