package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	accordmcp "github.com/ppiankov/accord/internal/mcp"
)

func init() {
	rootCmd.AddCommand(mcpCmd)
}

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start MCP tool server for agent integration",
	Long:  "Runs accord as an MCP (Model Context Protocol) server over stdio.\nExposes read-only tools: evaluate_access, weigh_svt.",
	RunE:  runMCP,
}

func runMCP(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}

	srv, err := accordmcp.New(accordmcp.Config{
		ConfigPath: configPath,
		Source:     featureSource(cfg),
		Version:    version,
		Logger:     logger,
	})
	if err != nil {
		return fmt.Errorf("failed to create MCP server: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fmt.Fprintln(os.Stderr, "accord MCP server running on stdio")
	return srv.Run(ctx)
}
