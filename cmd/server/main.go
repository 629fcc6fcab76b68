// Package main is the entry point for the AskPay forex signals service.
//
// Commands:
//   - serve: run the HTTP API, the ledger persister and the background jobs
//   - migrate: apply the database schema and exit
//   - protection: print a protection (martingale) projection
//   - restore: replace the ledger state with a snapshot archive
package main

import (
	"fmt"
	"os"

	"github.com/askpay/forexsignals/internal/config"
	"github.com/askpay/forexsignals/pkg/logger"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "server",
	Short: "AskPay forex signals API",
	Long: `Forex signals API with a balance ledger that settles WIN/LOSS signal
results into transactions, plus auth, statistics and the protection calculator.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(serveCmd, migrateCmd, protectionCmd, restoreCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig loads configuration and builds the logger from it
func loadConfig() (*config.Config, zerolog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, logger.New(logger.Config{Level: "info", Pretty: true}), err
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.LogPretty,
	})
	logger.SetGlobalLogger(log)
	return cfg, log, nil
}
