package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/appforge-dev/appforge/internal/adapter/gateway/generation"
	"github.com/appforge-dev/appforge/internal/app/eventbus"
	"github.com/appforge-dev/appforge/internal/application/usecase/orchestrator"
	sessionrepo "github.com/appforge-dev/appforge/internal/infra/repository/session"
	staterepo "github.com/appforge-dev/appforge/internal/infra/repository/state"
)

func newBuildCmd() *cobra.Command {
	var (
		name           string
		skipUI         bool
		skipSecurity   bool
		skipMonitoring bool
	)

	cmd := &cobra.Command{
		Use:   "build <idea>",
		Short: "Run the full generation pipeline for an app idea",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			idea := strings.Join(args, " ")
			home := controlHome()

			registry := sessionrepo.NewRegistry(appFs, home)
			sess, err := registry.CreateSession(name, idea)
			if err != nil {
				return err
			}
			store := staterepo.NewStore(appFs, home, sess.ID)
			if _, err := store.CreateInitialState(idea, name); err != nil {
				return err
			}

			gen, err := generation.NewGenerator(globalConfig)
			if err != nil {
				return err
			}
			cmd.Printf("session %s (%s generator)\n", sess.ID, gen.Name())

			bus := eventbus.New()
			sp := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
			sp.Writer = cmd.ErrOrStderr()
			unsubStage := bus.OnStageChange(func(sc eventbus.StageChange) {
				sp.Suffix = fmt.Sprintf(" %s (%d%%)", sc.Stage, sc.Progress)
			})
			defer unsubStage()
			unsubFile := bus.OnFileGenerated(func(fn eventbus.FileNotice) {
				sp.Suffix = fmt.Sprintf(" writing %s", fn.FilePath)
			})
			defer unsubFile()

			sp.Start()
			orch := orchestrator.New(globalConfig, store, registry, bus, gen)
			runErr := orch.Run(cmd.Context(), idea, orchestrator.Options{
				SkipUI:         skipUI,
				SkipSecurity:   skipSecurity,
				SkipMonitoring: skipMonitoring,
			})
			sp.Stop()

			if runErr != nil {
				color.New(color.FgRed).Fprintf(cmd.ErrOrStderr(), "build failed: %v\n", runErr)
				cmd.Printf("resume with: appforge resume --session %s\n", sess.ID)
				return runErr
			}

			st, err := store.Load()
			if err != nil || st == nil {
				return fmt.Errorf("build finished but state could not be read back")
			}
			color.New(color.FgGreen).Fprintf(cmd.OutOrStdout(),
				"✓ %s generated (%d files)\n", st.Metadata.AppName, len(st.GeneratedFiles))
			cmd.Printf("output: %s\n", store.OutputDir())
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "session name (defaults to a generated one)")
	cmd.Flags().BoolVar(&skipUI, "skip-ui", false, "skip the UI design stage")
	cmd.Flags().BoolVar(&skipSecurity, "skip-security", false, "skip the security stage")
	cmd.Flags().BoolVar(&skipMonitoring, "skip-monitoring", false, "skip the monitoring stage")
	return cmd
}
