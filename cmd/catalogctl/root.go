package main

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fideprep/fideprep-api/internal/config"
	"github.com/fideprep/fideprep-api/internal/db"
)

var rootCmd = &cobra.Command{
	Use:          "catalogctl",
	Short:        "Manage the mock-exam section catalog",
	Long:         "catalogctl seeds and inspects the section catalog and the exam event log.",
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cfg := config.FromEnv()
	rootCmd.PersistentFlags().String("db-driver", cfg.DBDriver, "Database driver: sqlite or postgres (DB_DRIVER)")
	rootCmd.PersistentFlags().String("db-dsn", cfg.DBDSN, "Database DSN (DB_DSN)")
	rootCmd.PersistentFlags().String("blobs", cfg.BlobBasePath, "Blob store base path (BLOB_BASE_PATH)")
	rootCmd.PersistentFlags().String("templates-key", cfg.TemplatesKey, "Blob key of the speaking base templates")

	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(eventsCmd)
}

// openDB opens the database named by --db-driver/--db-dsn.
func openDB(ctx context.Context, cmd *cobra.Command) (*sql.DB, error) {
	driver, _ := cmd.Flags().GetString("db-driver")
	dsn, _ := cmd.Flags().GetString("db-dsn")
	if driver == "memory" {
		return nil, fmt.Errorf("db-driver memory has nothing to manage")
	}
	dbh, err := db.Open(ctx, db.Driver(driver), dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return dbh, nil
}
