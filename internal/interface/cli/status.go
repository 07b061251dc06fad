package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/appforge-dev/appforge/internal/domain/pipeline"
	sessionrepo "github.com/appforge-dev/appforge/internal/infra/repository/session"
	staterepo "github.com/appforge-dev/appforge/internal/infra/repository/state"
)

func newStatusCmd() *cobra.Command {
	var sessionID string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the pipeline state of a session",
		RunE: func(cmd *cobra.Command, args []string) error {
			home := controlHome()
			registry := sessionrepo.NewRegistry(appFs, home)

			if sessionID == "" {
				active := registry.GetActiveSession()
				if active == nil {
					cmd.Println("no active session")
					return nil
				}
				sessionID = active.ID
			}

			store := staterepo.NewStore(appFs, home, sessionID)
			st, err := store.Load()
			if err != nil {
				return err
			}
			if st == nil {
				return fmt.Errorf("no pipeline state for session %s", sessionID)
			}

			cmd.Printf("session:  %s\n", st.SessionID)
			cmd.Printf("app:      %s\n", st.Metadata.AppName)
			cmd.Printf("idea:     %s\n", st.Metadata.Idea)
			cmd.Printf("stage:    %s\n", stageLabel(st.Stage))
			cmd.Printf("progress: %d%%\n", pipeline.StageProgress(st.Stage))
			cmd.Printf("files:    %d\n", len(st.GeneratedFiles))
			cmd.Printf("started:  %s\n", st.StartedAt.Format("2006-01-02 15:04:05"))
			if st.CompletedAt != nil {
				cmd.Printf("finished: %s\n", st.CompletedAt.Format("2006-01-02 15:04:05"))
			}

			if len(st.Errors) > 0 {
				cmd.Println()
				color.New(color.FgRed).Fprintln(cmd.OutOrStdout(), "errors:")
				for _, e := range st.Errors {
					cmd.Printf("  [%s] %s\n", e.Stage, e.Message)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&sessionID, "session", "", "session id (defaults to the active session)")
	return cmd
}

func stageLabel(s pipeline.Stage) string {
	switch s {
	case pipeline.StageComplete:
		return color.GreenString(string(s))
	case pipeline.StageFailed:
		return color.RedString(string(s))
	default:
		return string(s)
	}
}
