package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/appforge-dev/appforge/internal/adapter/gateway/generation"
	"github.com/appforge-dev/appforge/internal/domain/pipeline"
)

// generatedFilePayload is the shape the generation service returns files in
type generatedFilePayload struct {
	Path     string `json:"path"`
	Content  string `json:"content"`
	Language string `json:"language"`
}

// codeGenStage generates the app's source files from the AppSpec and any
// design tokens. Requires a populated AppSpec; its absence is a fatal
// precondition failure.
func (o *Orchestrator) codeGenStage(ctx context.Context) error {
	st, err := o.loadState()
	if err != nil {
		return err
	}
	if st.AppSpec == nil {
		return fmt.Errorf("no AppSpec found — run the analyze stage first")
	}

	specJSON, err := json.MarshalIndent(st.AppSpec, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal AppSpec: %w", err)
	}
	designTokensJSON := ""
	if st.StitchOutput != nil && st.StitchOutput.DesignTokens != nil {
		data, err := json.MarshalIndent(st.StitchOutput.DesignTokens, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal design tokens: %w", err)
		}
		designTokensJSON = string(data)
	}

	call := pipeline.APICall{
		ID:      o.callID("code-gen"),
		Stage:   pipeline.StageCodeGeneration,
		Service: "generation",
		Method:  "generateContent",
		Request: map[string]interface{}{
			"provider":     o.gen.Name(),
			"designTokens": designTokensJSON != "",
		},
		Timestamp: time.Now().UTC(),
	}

	resp, err := o.gen.Generate(ctx, generation.Request{
		System: CodeGenPrompt,
		Prompt: codeGenUserPrompt(string(specJSON), designTokensJSON),
		Model:  o.cfg.AI.Model,
	})
	if err != nil {
		call.Error = err.Error()
		o.appendCall(call)
		return err
	}
	call.DurationMs = resp.Duration.Milliseconds()

	payloads, err := parseFilePayloads(resp.Text)
	if err != nil {
		call.Error = err.Error()
		o.appendCall(call)
		return err
	}

	for _, p := range payloads {
		file := pipeline.GeneratedFile{
			Path:     p.Path,
			Content:  p.Content,
			Language: p.Language,
			Stage:    pipeline.StageCodeGeneration,
		}
		if file.Language == "" {
			file.Language = languageFromPath(p.Path)
		}
		if _, err := o.store.WriteGeneratedFile(file.Path, file.Content); err != nil {
			return err
		}
		if err := o.store.AddGeneratedFile(file); err != nil {
			return err
		}
		o.publishFile(file.Path, file.Language)
	}

	call.Response = map[string]interface{}{"filesGenerated": len(payloads)}
	return o.store.AppendAPICall(call)
}

// parseFilePayloads accepts either a JSON array of files or a single file
// object wrapped into a one-element list
func parseFilePayloads(raw string) ([]generatedFilePayload, error) {
	jsonStr, err := generation.ExtractJSON(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to extract generated files: %w (raw: %s)",
			err, generation.Truncate(raw, 200))
	}

	var list []generatedFilePayload
	if err := json.Unmarshal([]byte(jsonStr), &list); err == nil {
		return validPayloads(list)
	}

	var single generatedFilePayload
	if err := json.Unmarshal([]byte(jsonStr), &single); err != nil {
		return nil, fmt.Errorf("failed to parse generated files: %w (raw: %s)",
			err, generation.Truncate(jsonStr, 200))
	}
	return validPayloads([]generatedFilePayload{single})
}

func validPayloads(list []generatedFilePayload) ([]generatedFilePayload, error) {
	out := make([]generatedFilePayload, 0, len(list))
	for _, p := range list {
		if p.Path == "" {
			continue
		}
		out = append(out, p)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("generation returned no usable files")
	}
	return out, nil
}

func languageFromPath(path string) string {
	if idx := strings.LastIndex(path, "."); idx >= 0 && idx < len(path)-1 {
		return path[idx+1:]
	}
	return "ts"
}
