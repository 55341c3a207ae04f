package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/Shimizu-Technology/pdf-reformatter-api/internal/database"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply (or roll back) the conversion history migrations",
	Long: `Migrate applies the embedded migrations to DATABASE_URL. The server also
runs them on startup; this command exists for deploy pipelines and for
rolling back the most recent migration with --down.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		defer log.Sync() //nolint:errcheck

		if !cfg.HistoryEnabled() {
			return errors.New("DATABASE_URL is not set")
		}

		db, err := database.New(cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer db.Close()

		down, _ := cmd.Flags().GetBool("down")
		if down {
			return db.RollbackMigration(log)
		}
		return db.RunMigrations(log)
	},
}

func init() {
	migrateCmd.Flags().Bool("down", false, "roll back the most recent migration")

	rootCmd.AddCommand(migrateCmd)
}
