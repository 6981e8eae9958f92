package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var enqueueCmd = &cobra.Command{
	Use:   "enqueue <resume_id>...",
	Short: "Publish ingestion events so workers process the given resumes",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runEnqueue,
}

func init() {
	rootCmd.AddCommand(enqueueCmd)
}

func runEnqueue(cmd *cobra.Command, args []string) error {
	app, logger, err := openApp(cmd.Context())
	if err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}
	defer func() { _ = logger.Sync() }()
	defer app.Close()

	for _, id := range args {
		if err := app.Queue.PublishResumeIngested(cmd.Context(), id); err != nil {
			return fmt.Errorf("enqueue %s: %w", id, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "queued %s\n", id)
	}
	return nil
}
