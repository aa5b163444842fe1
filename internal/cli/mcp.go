package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	tflowmcp "github.com/valter-silva-au/taskflow/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "MCP server commands",
	Long:  "Commands for running the tflow MCP (Model Context Protocol) server.",
}

var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the tflow MCP server on stdio",
	Long: `Start the tflow MCP server on stdio transport.

The server exposes the task graph and the thought inbox as MCP tools:
create_task, update_task, archive_task, get_task, list_tasks, get_next_task,
extract_thoughts, archive_thought, list_thoughts, list_archived_thoughts,
read_thought, get_metrics, get_alerts.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if TaskSvc == nil || ThoughtSvc == nil {
			return fmt.Errorf("services not initialized")
		}

		srv := tflowmcp.NewServer(TaskSvc, ThoughtSvc, MetricsCalc, AlertEngine, appVersion)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if err := srv.Run(ctx); err != nil {
			return fmt.Errorf("running MCP server: %w", err)
		}
		return nil
	},
}

func init() {
	mcpCmd.AddCommand(mcpServeCmd)
	rootCmd.AddCommand(mcpCmd)
}
