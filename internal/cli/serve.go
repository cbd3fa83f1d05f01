package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/crm/internal/server"
)

func newServeCmd(a *app) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the CRM HTTP API",
		Long:  "Serve the CRM HTTP API until interrupted. The address, API prefix,\nCORS origins and gin mode come from the http section of config.yaml.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := a.settings.server
			if addr != "" {
				cfg.Addr = addr
			}

			store, err := a.attach()
			if err != nil {
				return err
			}
			defer store.Detach()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return server.New(store, cfg, a.logger).Run(ctx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides http.addr)")
	return cmd
}
