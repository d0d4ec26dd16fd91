// Package cmd implements this module's CLI (§1, §6): a cobra command
// tree for managing tasks, channels, and the long-running daemon.
//
// Grounded on the teacher's cmd/cron_cmd.go command-factory idiom
// (a func returning *cobra.Command, sub-commands wired via AddCommand,
// tabwriter for table output) — generalized here from cron-job
// management to this module's own task/channel/approval domain,
// against internal/adminapi instead of the teacher's internal/gateway
// RPC client (see internal/adminapi/server.go for why).
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var configPath string

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "goclaw",
		Short: "Cron-style task runner for LLM-agent sessions",
	}
	cmd.PersistentFlags().StringVar(&configPath, "config", "goclaw.yaml", "path to the config file")
	cmd.AddCommand(serveCmd())
	cmd.AddCommand(taskCmd())
	cmd.AddCommand(channelCmd())
	return cmd
}

// Execute is the CLI entrypoint, called from main.go.
func Execute() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
