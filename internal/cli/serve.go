package cli

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// NewServeCommand creates the serve command.
func NewServeCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the cache with its admin HTTP API",
		Long: `Run the cache until interrupted.

Serves the admin API under /admin, prometheus metrics on /metrics and
a health check on /healthz. When storage.backend is sql and a player
file is still present it is imported first and then deleted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(commandContext(cmd), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := opts.openApp(cmd, true)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.Serve(ctx); err != nil {
				return WrapExitError(ExitCommandError, "server failed", err)
			}
			return nil
		},
	}
}
