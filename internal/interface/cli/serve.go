package cli

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/appforge-dev/appforge/internal/app/eventbus"
	sessionrepo "github.com/appforge-dev/appforge/internal/infra/repository/session"
	"github.com/appforge-dev/appforge/internal/interface/api"
)

func newServeCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the read-only observer API",
		RunE: func(cmd *cobra.Command, args []string) error {
			home := controlHome()
			registry := sessionrepo.NewRegistry(appFs, home)
			srv := api.NewServer(appFs, home, registry, eventbus.New(), addr)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() { errCh <- srv.ListenAndServe() }()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				return srv.Shutdown(shutdownCtx)
			}
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8787", "listen address")
	return cmd
}
