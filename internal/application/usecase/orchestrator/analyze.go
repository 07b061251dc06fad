package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"golang.org/x/text/unicode/norm"

	"github.com/appforge-dev/appforge/internal/adapter/gateway/generation"
	"github.com/appforge-dev/appforge/internal/app"
	"github.com/appforge-dev/appforge/internal/domain/appspec"
	"github.com/appforge-dev/appforge/internal/domain/pipeline"
)

// analyzeStage turns the free-text idea into a validated AppSpec
func (o *Orchestrator) analyzeStage(ctx context.Context, idea string) error {
	call := pipeline.APICall{
		ID:      o.callID("analyze"),
		Stage:   pipeline.StageAnalyzing,
		Service: "generation",
		Method:  "generateContent",
		Request: map[string]interface{}{
			"idea":     idea,
			"provider": o.gen.Name(),
		},
		Timestamp: time.Now().UTC(),
	}

	resp, err := o.gen.Generate(ctx, generation.Request{
		System: AnalyzePrompt,
		Prompt: analyzeUserPrompt(idea),
		Model:  o.cfg.AI.Model,
	})
	if err != nil {
		call.Error = err.Error()
		o.appendCall(call)
		return err
	}
	call.DurationMs = resp.Duration.Milliseconds()

	jsonStr, err := generation.ExtractJSON(resp.Text)
	if err != nil {
		call.Error = err.Error()
		o.appendCall(call)
		return fmt.Errorf("failed to extract AppSpec from response: %w (raw: %s)",
			err, generation.Truncate(resp.Text, 200))
	}

	var spec appspec.AppSpec
	if err := json.Unmarshal([]byte(jsonStr), &spec); err != nil {
		call.Error = err.Error()
		o.appendCall(call)
		return fmt.Errorf("failed to parse AppSpec: %w (raw: %s)",
			err, generation.Truncate(jsonStr, 200))
	}
	if err := spec.Validate(); err != nil {
		call.Error = err.Error()
		o.appendCall(call)
		return err
	}

	st, err := o.loadState()
	if err != nil {
		return err
	}
	st.AppSpec = &spec
	st.Metadata.AppName = norm.NFC.String(spec.Name)
	if err := o.store.Save(st); err != nil {
		return err
	}

	call.Response = map[string]interface{}{
		"screenCount": len(spec.Screens),
		"modelCount":  len(spec.DataModels),
	}
	return o.store.AppendAPICall(call)
}

// appendCall records an audit entry on a failure path, where the stage
// error is the one worth propagating
func (o *Orchestrator) appendCall(call pipeline.APICall) {
	if err := o.store.AppendAPICall(call); err != nil {
		app.GetLogger().Warn("failed to record API call %s: %v", call.ID, err)
	}
}
