// Command mcp-orchestrator connects to the MCP backends listed in a YAML
// configuration file and runs a tool-using conversation against them, or
// inspects their tools and resources.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var cfgPath string

	rootCmd := &cobra.Command{
		Use:           "mcp-orchestrator",
		Short:         "Orchestrate tool calls across several MCP servers",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "mcp-orchestrator.yaml", "path to config file")

	rootCmd.AddCommand(
		newRunCmd(&cfgPath),
		newToolsCmd(&cfgPath),
		newResourceCmd(&cfgPath),
	)
	return rootCmd
}
