// Package cli implements the conflictadm command tree.
package cli

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/c0deZ3R0/go-migrate-kit/backlog"
	"github.com/c0deZ3R0/go-migrate-kit/logging"
	"github.com/c0deZ3R0/go-migrate-kit/storage/sqlite"
)

var (
	dbPath       string
	sessionGroup string
)

var rootCmd = &cobra.Command{
	Use:   "conflictadm",
	Short: "Administer the migration conflict backlog",
	Long: `conflictadm inspects and administers the conflict backlog of a data
migration session group: backlog status, resolution rule import/export, and
session group cleanup.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// A missing .env file is fine; environment variables win anyway.
		_ = godotenv.Load()
		logging.Init(logging.GetConfigFromEnv())
	},
}

// Execute runs the command tree.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "backlog.db", "path to the SQLite backlog database")
	rootCmd.PersistentFlags().StringVarP(&sessionGroup, "session-group", "g", "", "migration session group id")

	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(importRulesCmd)
	rootCmd.AddCommand(exportRulesCmd)
	rootCmd.AddCommand(retryCmd)
	rootCmd.AddCommand(deleteSessionGroupCmd)
}

func openStore() (backlog.Store, error) {
	return sqlite.NewWithDataSource(dbPath)
}
