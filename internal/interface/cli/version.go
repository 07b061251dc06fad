package cli

import (
	"github.com/spf13/cobra"

	"github.com/appforge-dev/appforge/internal/buildinfo"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the appforge version",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Println(buildinfo.GetVersion())
		},
	}
}
