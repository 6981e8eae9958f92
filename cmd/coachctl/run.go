package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run <resume_id>",
	Short: "Run the orchestration for a resume synchronously and print the report",
	Args:  cobra.ExactArgs(1),
	RunE:  runOrchestration,
}

var runTimeout time.Duration

func init() {
	runCmd.Flags().DurationVar(&runTimeout, "timeout", 30*time.Minute, "Upper bound for the whole run")
	rootCmd.AddCommand(runCmd)
}

func runOrchestration(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), runTimeout)
	defer cancel()

	app, logger, err := openApp(ctx)
	if err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}
	defer func() { _ = logger.Sync() }()
	defer app.Close()

	report, err := app.Orchestrator.RunByResumeID(ctx, args[0])
	if err != nil {
		return fmt.Errorf("run %s: %w", args[0], err)
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	if !report.Productive() {
		return fmt.Errorf("run %s produced no results", args[0])
	}
	return nil
}
