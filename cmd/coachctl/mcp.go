package main

import (
	"fmt"

	"github.com/spf13/cobra"

	mcpadapter "github.com/Phani130825/ask-a-coach/internal/adapters/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve pipeline tools to an MCP client over stdio",
	Args:  cobra.NoArgs,
	RunE:  runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, _ []string) error {
	app, logger, err := openApp(cmd.Context())
	if err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}
	defer func() { _ = logger.Sync() }()
	defer app.Close()

	logger.Info("mcp_stdio_serving")
	return mcpadapter.NewTools(app.Tracker, app.InterviewUC, app.Orchestrator, logger).ServeStdio()
}
