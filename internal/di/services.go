package di

import (
	"context"
	"fmt"

	"github.com/askpay/forexsignals/internal/config"
	"github.com/askpay/forexsignals/internal/events"
	"github.com/askpay/forexsignals/internal/metrics"
	"github.com/askpay/forexsignals/internal/modules/auth"
	"github.com/askpay/forexsignals/internal/modules/ledger"
	"github.com/askpay/forexsignals/internal/modules/signals"
	"github.com/askpay/forexsignals/internal/reliability"
	"github.com/rs/zerolog"
)

// InitializeServices builds the domain services on top of the databases
func InitializeServices(ctx context.Context, container *Container, cfg *config.Config, log zerolog.Logger) error {
	container.Metrics = metrics.NewRegistry()
	container.EventBus = events.NewBus()
	container.EventManager = events.NewManager(container.EventBus, log)
	container.Metrics.CountErrorEvents(container.EventBus)

	container.Ledger = ledger.New(ctx, ledger.Options{
		InitialBalance: cfg.LedgerInitialBalance,
		Storage:        container.LedgerStorage,
		Events:         container.EventManager,
		Metrics:        container.Metrics,
		Log:            log,
	})

	container.Signals = signals.NewService(
		signals.NewRepository(container.DB.Conn(), log),
		container.Ledger,
		container.EventManager,
		log,
	)

	container.Auth = auth.NewService(
		auth.NewRepository(container.DB.Conn(), log),
		cfg.JWTSecret,
		cfg.BcryptRounds,
		log,
	)

	container.Maintenance = reliability.NewMaintenanceJob(container.DB, cfg.DataDir, log)

	if cfg.Backup.Enabled() {
		uploader, err := reliability.NewS3Uploader(ctx, cfg.Backup)
		if err != nil {
			return fmt.Errorf("failed to create snapshot uploader: %w", err)
		}
		container.Snapshot = reliability.NewSnapshotService(
			container.Ledger,
			uploader,
			cfg.Backup.Bucket,
			cfg.Backup.Prefix,
			container.Metrics,
			log,
		)
	} else {
		log.Info().Msg("Snapshot backups disabled (BACKUP_S3_BUCKET not set)")
	}

	return nil
}
