// Package orchestrator drives the build pipeline: it sequences the stage
// functions, persists every transition before the stage's work begins, and
// broadcasts progress on the event bus.
package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/appforge-dev/appforge/internal/adapter/gateway/generation"
	"github.com/appforge-dev/appforge/internal/app"
	"github.com/appforge-dev/appforge/internal/app/config"
	"github.com/appforge-dev/appforge/internal/app/eventbus"
	"github.com/appforge-dev/appforge/internal/domain/pipeline"
	sessionrepo "github.com/appforge-dev/appforge/internal/infra/repository/session"
	staterepo "github.com/appforge-dev/appforge/internal/infra/repository/state"
)

// Options controls which optional stages a run executes
type Options struct {
	SkipUI         bool
	SkipSecurity   bool
	SkipMonitoring bool
}

// Orchestrator executes the pipeline for one session. It holds no cached
// state; every stage reloads from the store so external writers are
// observed.
type Orchestrator struct {
	cfg       *config.Config
	store     *staterepo.Store
	registry  *sessionrepo.Registry
	bus       *eventbus.Bus
	gen       generation.Generator
	sessionID string
}

// New wires an orchestrator for the store's bound session
func New(
	cfg *config.Config,
	store *staterepo.Store,
	registry *sessionrepo.Registry,
	bus *eventbus.Bus,
	gen generation.Generator,
) *Orchestrator {
	return &Orchestrator{
		cfg:       cfg,
		store:     store,
		registry:  registry,
		bus:       bus,
		gen:       gen,
		sessionID: store.SessionID(),
	}
}

// Run executes the full pipeline from ANALYZING through COMPLETE.
// Optional stages honor opts; monitoring additionally requires at least one
// enabled integration, otherwise the stage is omitted entirely.
func (o *Orchestrator) Run(ctx context.Context, idea string, opts Options) error {
	if err := o.runStage(ctx, pipeline.StageAnalyzing, "Analyzing idea", func(ctx context.Context) error {
		return o.analyzeStage(ctx, idea)
	}); err != nil {
		return err
	}

	if !opts.SkipUI {
		if err := o.runStage(ctx, pipeline.StageUIGeneration, "Generating UI designs", o.uiGenStage); err != nil {
			return err
		}
	}

	if err := o.runStage(ctx, pipeline.StageCodeGeneration, "Generating code", o.codeGenStage); err != nil {
		return err
	}

	if err := o.runStage(ctx, pipeline.StageBackendSetup, "Setting up backend", o.backendStage); err != nil {
		return err
	}

	if !opts.SkipSecurity {
		if err := o.runStage(ctx, pipeline.StageSecuritySetup, "Adding security", o.securityStage); err != nil {
			return err
		}
	}

	if !opts.SkipMonitoring && o.cfg.MonitoringEnabled() {
		if err := o.runStage(ctx, pipeline.StageMonitoringSetup, "Setting up monitoring", o.monitoringStage); err != nil {
			return err
		}
	}

	return o.transition(pipeline.StageComplete)
}

// ResumeFrom continues a previously persisted run at the given stage,
// executing it and every later stage without re-running earlier ones.
// A stage outside the run order (COMPLETE, FAILED, unknown) falls back to a
// full fresh run. Skip options are re-applied, so a resumed run cannot
// re-execute a stage the original run was told to omit.
func (o *Orchestrator) ResumeFrom(ctx context.Context, stage pipeline.Stage, idea string, opts Options) error {
	startIdx := -1
	for i, s := range pipeline.RunOrder {
		if s == stage {
			startIdx = i
			break
		}
	}
	if startIdx == -1 {
		return o.Run(ctx, idea, opts)
	}

	for _, s := range pipeline.RunOrder[startIdx:] {
		var err error
		switch s {
		case pipeline.StageAnalyzing:
			err = o.runStage(ctx, s, "Analyzing idea", func(ctx context.Context) error {
				return o.analyzeStage(ctx, idea)
			})
		case pipeline.StageUIGeneration:
			if opts.SkipUI {
				continue
			}
			err = o.runStage(ctx, s, "Generating UI designs", o.uiGenStage)
		case pipeline.StageCodeGeneration:
			err = o.runStage(ctx, s, "Generating code", o.codeGenStage)
		case pipeline.StageBackendSetup:
			err = o.runStage(ctx, s, "Setting up backend", o.backendStage)
		case pipeline.StageSecuritySetup:
			if opts.SkipSecurity {
				continue
			}
			err = o.runStage(ctx, s, "Adding security", o.securityStage)
		case pipeline.StageMonitoringSetup:
			if opts.SkipMonitoring || !o.cfg.MonitoringEnabled() {
				continue
			}
			err = o.runStage(ctx, s, "Setting up monitoring", o.monitoringStage)
		}
		if err != nil {
			return err
		}
	}

	return o.transition(pipeline.StageComplete)
}

// runStage is the single wrapper around every stage execution: transition
// first (persist + broadcast, so observers see "now entering X" before X's
// work), then invoke; on failure record the error, move to FAILED, and
// propagate.
func (o *Orchestrator) runStage(ctx context.Context, stage pipeline.Stage, label string, fn func(context.Context) error) error {
	o.publishLog("info", label+"...")
	if err := o.transition(stage); err != nil {
		return err
	}

	if err := fn(ctx); err != nil {
		record := pipeline.Error{
			Stage:     stage,
			Message:   err.Error(),
			Timestamp: time.Now().UTC(),
		}
		if aerr := o.store.AppendError(record); aerr != nil {
			app.GetLogger().Warn("failed to record stage error: %v", aerr)
		}
		o.bus.Publish(eventbus.Event{
			Type:      eventbus.EventError,
			SessionID: o.sessionID,
			Error:     &record,
		})
		if terr := o.transition(pipeline.StageFailed); terr != nil {
			app.GetLogger().Warn("failed to transition to FAILED: %v", terr)
		}
		return err
	}

	o.publishLog("info", fmt.Sprintf("%s — done (%d%%)", label, pipeline.StageProgress(stage)))
	return nil
}

// transition persists the stage change, propagates it to the session
// registry summary, and broadcasts a stage_change event. The three writes
// are not atomic with each other; state.json is authoritative.
func (o *Orchestrator) transition(stage pipeline.Stage) error {
	previous := pipeline.StageIdle
	if st, err := o.store.Load(); err == nil && st != nil {
		previous = st.Stage
	}

	if _, err := o.store.UpdateStage(stage); err != nil {
		return err
	}
	if err := o.registry.UpdateSessionStage(o.sessionID, stage); err != nil {
		// Best-effort: the index is a denormalized summary
		app.GetLogger().Warn("failed to update session index: %v", err)
	}

	o.bus.Publish(eventbus.Event{
		Type:          eventbus.EventStageChange,
		SessionID:     o.sessionID,
		Stage:         stage,
		PreviousStage: previous,
		Progress:      pipeline.StageProgress(stage),
	})
	return nil
}

func (o *Orchestrator) publishLog(level, message string) {
	o.bus.Publish(eventbus.Event{
		Type:      eventbus.EventLog,
		SessionID: o.sessionID,
		Level:     level,
		Message:   message,
	})
}

func (o *Orchestrator) publishFile(path, language string) {
	o.bus.Publish(eventbus.Event{
		Type:      eventbus.EventFileGenerated,
		SessionID: o.sessionID,
		FilePath:  path,
		Language:  language,
	})
}

// loadState fetches the current state and fails loudly when it is missing;
// stage functions run only after the initial state was created.
func (o *Orchestrator) loadState() (*pipeline.State, error) {
	st, err := o.store.Load()
	if err != nil {
		return nil, err
	}
	if st == nil {
		return nil, fmt.Errorf("no pipeline state found for session %s", o.sessionID)
	}
	return st, nil
}

func (o *Orchestrator) callID(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, time.Now().UnixMilli())
}
