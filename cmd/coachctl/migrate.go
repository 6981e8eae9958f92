package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Phani130825/ask-a-coach/internal/bootstrap"
	"github.com/Phani130825/ask-a-coach/internal/config"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the Postgres schema",
	Args:  cobra.NoArgs,
	RunE:  runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	if err := bootstrap.Migrate(cmd.Context(), config.Load()); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "schema up to date")
	return nil
}
