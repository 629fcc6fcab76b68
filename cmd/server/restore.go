package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/askpay/forexsignals/internal/config"
	"github.com/askpay/forexsignals/internal/di"
	"github.com/askpay/forexsignals/internal/reliability"
	"github.com/spf13/cobra"
)

var (
	restoreFile       string
	restoreKey        string
	restoreSkipBackup bool
)

var restoreCmd = &cobra.Command{
	Use:   "restore",
	Short: "Replace the ledger state with a snapshot archive",
	Long: `Replaces the stored ledger state (balance, initial balance and transactions)
with a snapshot archive written by the backup job. Stop the server first.

When backups are configured the current state is uploaded before it is replaced.

Example usage:
  server restore --file ./ledger-2026-03-04-030000.msgpack.gz
  server restore --key ledger-snapshots/ledger-2026-03-04-030000.msgpack.gz`,
	RunE: runRestore,
}

func init() {
	restoreCmd.Flags().StringVar(&restoreFile, "file", "", "Local archive to restore")
	restoreCmd.Flags().StringVar(&restoreKey, "key", "", "Object key of the archive in BACKUP_S3_BUCKET")
	restoreCmd.Flags().BoolVar(&restoreSkipBackup, "skip-backup", false, "Do not upload the current state before restoring")
}

func runRestore(cmd *cobra.Command, args []string) error {
	if (restoreFile == "") == (restoreKey == "") {
		return fmt.Errorf("exactly one of --file or --key is required")
	}

	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	data, err := readArchive(ctx, cfg)
	if err != nil {
		return err
	}

	container, err := di.Wire(ctx, cfg, log)
	if err != nil {
		return err
	}

	closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if container.Snapshot != nil && !restoreSkipBackup {
		if err := container.Scheduler.RunNow(container.Snapshot); err != nil {
			_ = container.Close(closeCtx)
			return fmt.Errorf("backup before restore failed: %w", err)
		}
	}

	snap, err := reliability.RestoreLedger(container.Ledger, data)
	if err != nil {
		_ = container.Close(closeCtx)
		return err
	}

	log.Info().
		Str("balance", snap.Balance.String()).
		Int("transactions", len(snap.Transactions)).
		Time("taken_at", snap.TakenAt).
		Msg("Ledger restored")

	// Close drains the persister, so the restored state is on disk on return
	return container.Close(closeCtx)
}

func readArchive(ctx context.Context, cfg *config.Config) ([]byte, error) {
	if restoreFile != "" {
		data, err := os.ReadFile(restoreFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read archive: %w", err)
		}
		return data, nil
	}

	if !cfg.Backup.Enabled() {
		return nil, fmt.Errorf("--key needs BACKUP_S3_BUCKET")
	}
	downloader, err := reliability.NewS3Downloader(ctx, cfg.Backup)
	if err != nil {
		return nil, err
	}
	return reliability.Fetch(ctx, downloader, cfg.Backup.Bucket, restoreKey)
}
