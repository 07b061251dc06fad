package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/appforge-dev/appforge/internal/domain/pipeline"
	"github.com/appforge-dev/appforge/internal/domain/service/schema"
)

// backendStage derives the backend schema from the AppSpec and writes the
// SQL migration artifacts. Pure derivation, no network.
func (o *Orchestrator) backendStage(ctx context.Context) error {
	st, err := o.loadState()
	if err != nil {
		return err
	}
	if st.AppSpec == nil {
		return fmt.Errorf("no AppSpec found — run the analyze stage first")
	}

	sch := schema.Generate(st.AppSpec, o.cfg.Pipeline.AutoGenerateRLS)
	st.SupabaseSchema = sch
	if err := o.store.Save(st); err != nil {
		return err
	}

	for i, migration := range sch.Migrations {
		name := "enable_rls"
		if i < len(sch.Tables) {
			name = sch.Tables[i].Name
		}
		fileName := fmt.Sprintf("%04d_%s.sql", i+1, name)
		path, err := o.store.WriteMigrationFile(fileName, migration)
		if err != nil {
			return err
		}
		o.publishFile(path, "sql")
	}

	call := pipeline.APICall{
		ID:      o.callID("backend"),
		Stage:   pipeline.StageBackendSetup,
		Service: "supabase",
		Method:  "generateSchema",
		Response: map[string]interface{}{
			"tables":   len(sch.Tables),
			"policies": len(sch.Policies),
		},
		Timestamp: time.Now().UTC(),
	}
	return o.store.AppendAPICall(call)
}
