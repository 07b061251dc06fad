package orchestrator

import (
	"context"
	"encoding/json"
	"time"

	"github.com/appforge-dev/appforge/internal/adapter/gateway/generation"
	"github.com/appforge-dev/appforge/internal/domain/pipeline"
)

// securityStage hardens the generated code: it asks the generation service
// for file patches and always writes the secure-storage baseline utility.
// The audit is advisory — an unparseable patch set is logged and skipped,
// never fatal.
func (o *Orchestrator) securityStage(ctx context.Context) error {
	st, err := o.loadState()
	if err != nil {
		return err
	}

	call := pipeline.APICall{
		ID:        o.callID("security"),
		Stage:     pipeline.StageSecuritySetup,
		Service:   "generation",
		Method:    "securityAudit",
		Request:   map[string]interface{}{"provider": o.gen.Name()},
		Timestamp: time.Now().UTC(),
	}

	if len(st.GeneratedFiles) == 0 {
		o.publishLog("warn", "no generated files to secure")
		call.Response = map[string]interface{}{"patched": 0, "audited": false}
		return o.store.AppendAPICall(call)
	}

	patched := 0
	resp, err := o.gen.Generate(ctx, generation.Request{
		System: SecurityPrompt,
		Prompt: securityUserPrompt(auditFilesJSON(st), auditSchemaJSON(st)),
		Model:  o.cfg.AI.Model,
	})
	if err != nil {
		call.Error = err.Error()
		o.appendCall(call)
		return err
	}
	call.DurationMs = resp.Duration.Milliseconds()

	if patches, perr := parseFilePayloads(resp.Text); perr != nil {
		o.publishLog("warn", "security audit produced no applicable patches")
	} else {
		for _, p := range patches {
			if p.Path == "" || p.Content == "" {
				continue
			}
			file := pipeline.GeneratedFile{
				Path:     p.Path,
				Content:  p.Content,
				Language: p.Language,
				Stage:    pipeline.StageSecuritySetup,
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
			patched++
		}
	}

	// Baseline: the secure-storage utility ships regardless of audit output
	baseline := pipeline.GeneratedFile{
		Path:     "src/utils/secureStorage.ts",
		Content:  secureStorageUtil,
		Language: "ts",
		Stage:    pipeline.StageSecuritySetup,
	}
	if _, err := o.store.WriteGeneratedFile(baseline.Path, baseline.Content); err != nil {
		return err
	}
	if err := o.store.AddGeneratedFile(baseline); err != nil {
		return err
	}
	o.publishFile(baseline.Path, baseline.Language)

	call.Response = map[string]interface{}{"patched": patched, "audited": true}
	return o.store.AppendAPICall(call)
}

// auditFilesJSON summarizes up to ten generated files, contents truncated,
// for the audit prompt
func auditFilesJSON(st *pipeline.State) string {
	type summary struct {
		Path    string `json:"path"`
		Content string `json:"content"`
	}
	files := st.GeneratedFiles
	if len(files) > 10 {
		files = files[:10]
	}
	summaries := make([]summary, 0, len(files))
	for _, f := range files {
		summaries = append(summaries, summary{
			Path:    f.Path,
			Content: generation.Truncate(f.Content, 500),
		})
	}
	data, err := json.MarshalIndent(summaries, "", "  ")
	if err != nil {
		return "[]"
	}
	return string(data)
}

func auditSchemaJSON(st *pipeline.State) string {
	if st.SupabaseSchema == nil {
		return "{}"
	}
	data, err := json.MarshalIndent(st.SupabaseSchema, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(data)
}

const secureStorageUtil = `// Secure storage utility using expo-secure-store
import * as SecureStore from 'expo-secure-store';

export async function saveSecure(key: string, value: string): Promise<void> {
  await SecureStore.setItemAsync(key, value);
}

export async function getSecure(key: string): Promise<string | null> {
  return await SecureStore.getItemAsync(key);
}

export async function deleteSecure(key: string): Promise<void> {
  await SecureStore.deleteItemAsync(key);
}

export async function clearAllSecure(keys: string[]): Promise<void> {
  await Promise.all(keys.map((k) => deleteSecure(k)));
}
`
