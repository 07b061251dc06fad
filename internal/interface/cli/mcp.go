package cli

import (
	"github.com/spf13/cobra"

	sessionrepo "github.com/appforge-dev/appforge/internal/infra/repository/session"
	"github.com/appforge-dev/appforge/internal/interface/mcp"
)

func newMCPCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the appforge tool surface over the Model Context Protocol (stdio)",
		RunE: func(cmd *cobra.Command, args []string) error {
			home := controlHome()
			registry := sessionrepo.NewRegistry(appFs, home)
			return mcp.NewServer(appFs, home, globalConfig, registry).ServeStdio()
		},
	}
}
