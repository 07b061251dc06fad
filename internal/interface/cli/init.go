package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/appforge-dev/appforge/internal/app"
	infraConfig "github.com/appforge-dev/appforge/internal/infra/config"
)

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize the control directory and a default config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			paths := app.ResolvePaths()
			if err := appFs.MkdirAll(paths.Sessions, 0o755); err != nil {
				return fmt.Errorf("failed to create %s: %w", paths.Sessions, err)
			}

			if err := infraConfig.WriteDefault(paths.Config); err != nil {
				// An existing config is fine on re-init
				cmd.Printf("config: %v\n", err)
			} else {
				cmd.Printf("wrote %s\n", paths.Config)
			}

			color.New(color.FgGreen).Fprintf(cmd.OutOrStdout(), "initialized %s\n", paths.Home)
			return nil
		},
	}
}
