// Package cli implements the appforge command surface.
package cli

import (
	"os"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/appforge-dev/appforge/internal/app"
	"github.com/appforge-dev/appforge/internal/app/config"
	"github.com/appforge-dev/appforge/internal/buildinfo"
	infraConfig "github.com/appforge-dev/appforge/internal/infra/config"
)

// globalConfig holds the loaded configuration for all commands
var globalConfig *config.Config

// appFs is the filesystem every command operates on; tests swap in a memory fs
var appFs afero.Fs = afero.NewOsFs()

func NewRoot() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "appforge",
		Short:   "Generate a mobile app from a one-line idea",
		Version: buildinfo.GetVersion(),
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Load configuration before any command runs
			// Priority: appforge.config.json > ENV > defaults
			cwd, err := os.Getwd()
			if err != nil {
				cwd = "."
			}
			cfg, err := infraConfig.Load(infraConfig.FindConfigPath(cwd))
			if err != nil {
				return err
			}
			globalConfig = cfg
			return nil
		},
		RunE: func(c *cobra.Command, _ []string) error { return c.Help() },
	}
	cmd.AddCommand(newInitCmd())
	cmd.AddCommand(newBuildCmd())
	cmd.AddCommand(newResumeCmd())
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newSessionsCmd())
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newMCPCmd())
	cmd.AddCommand(newVersionCmd())
	return cmd
}

// controlHome resolves the control directory for the current invocation
func controlHome() string {
	return app.ResolvePaths().Home
}
