// Command mektepctl is the operator CLI of Mektep Monitor: database
// migrations, roster imports and offline risk reports.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "mektepctl",
		Short: "Operator tools for Mektep Monitor",
		Long: `mektepctl manages the Mektep Monitor database and student rosters.

Configuration is read the same way as by the server: .env, configs/config.yaml
and environment variables (DATABASE_URL, REDIS_URL, ...).`,
		SilenceUsage: true,
	}

	rootCmd.AddCommand(newMigrateCmd())
	rootCmd.AddCommand(newImportCmd())
	rootCmd.AddCommand(newScoreCmd())
	return rootCmd
}

func printf(cmd *cobra.Command, format string, args ...any) {
	fmt.Fprintf(cmd.OutOrStdout(), format, args...)
}
