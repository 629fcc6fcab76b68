package main

import (
	"github.com/askpay/forexsignals/internal/database"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the database schema and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := loadConfig()
		if err != nil {
			return err
		}

		db, err := database.New(database.Config{
			Driver:  cfg.DatabaseDriver,
			DSN:     cfg.DatabaseURL,
			Profile: database.ProfileLedger,
			Name:    "forex",
		})
		if err != nil {
			return err
		}
		defer db.Close()

		if err := db.Migrate(); err != nil {
			return err
		}

		log.Info().Str("driver", db.Driver()).Msg("Schema applied")
		return nil
	},
}
