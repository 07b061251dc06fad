package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/appforge-dev/appforge/internal/adapter/gateway/generation"
	"github.com/appforge-dev/appforge/internal/app/eventbus"
	"github.com/appforge-dev/appforge/internal/application/usecase/orchestrator"
	"github.com/appforge-dev/appforge/internal/domain/pipeline"
	sessionrepo "github.com/appforge-dev/appforge/internal/infra/repository/session"
	staterepo "github.com/appforge-dev/appforge/internal/infra/repository/state"
)

func newResumeCmd() *cobra.Command {
	var (
		sessionID      string
		skipUI         bool
		skipSecurity   bool
		skipMonitoring bool
	)

	cmd := &cobra.Command{
		Use:   "resume",
		Short: "Continue an interrupted pipeline run from its persisted stage",
		RunE: func(cmd *cobra.Command, args []string) error {
			home := controlHome()
			registry := sessionrepo.NewRegistry(appFs, home)

			if sessionID == "" {
				active := registry.GetActiveSession()
				if active == nil {
					return fmt.Errorf("no active session; run appforge build first")
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
			if st.Stage == pipeline.StageComplete {
				cmd.Printf("session %s already completed\n", sessionID)
				return nil
			}

			gen, err := generation.NewGenerator(globalConfig)
			if err != nil {
				return err
			}
			cmd.Printf("resuming session %s from %s\n", sessionID, st.Stage)

			bus := eventbus.New()
			unsub := bus.OnStageChange(func(sc eventbus.StageChange) {
				cmd.Printf("  %s (%d%%)\n", sc.Stage, sc.Progress)
			})
			defer unsub()

			orch := orchestrator.New(globalConfig, store, registry, bus, gen)
			runErr := orch.ResumeFrom(cmd.Context(), st.Stage, st.Metadata.Idea, orchestrator.Options{
				SkipUI:         skipUI,
				SkipSecurity:   skipSecurity,
				SkipMonitoring: skipMonitoring,
			})
			if runErr != nil {
				color.New(color.FgRed).Fprintf(cmd.ErrOrStderr(), "resume failed: %v\n", runErr)
				return runErr
			}

			color.New(color.FgGreen).Fprintf(cmd.OutOrStdout(), "✓ session %s completed\n", sessionID)
			return nil
		},
	}

	cmd.Flags().StringVar(&sessionID, "session", "", "session id (defaults to the active session)")
	cmd.Flags().BoolVar(&skipUI, "skip-ui", false, "skip the UI design stage")
	cmd.Flags().BoolVar(&skipSecurity, "skip-security", false, "skip the security stage")
	cmd.Flags().BoolVar(&skipMonitoring, "skip-monitoring", false, "skip the monitoring stage")
	return cmd
}
