package orchestrator

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/appforge-dev/appforge/internal/adapter/gateway/generation"
	"github.com/appforge-dev/appforge/internal/app/config"
	"github.com/appforge-dev/appforge/internal/app/eventbus"
	"github.com/appforge-dev/appforge/internal/domain/pipeline"
	sessionrepo "github.com/appforge-dev/appforge/internal/infra/repository/session"
	staterepo "github.com/appforge-dev/appforge/internal/infra/repository/state"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type harness struct {
	fs       afero.Fs
	home     string
	cfg      *config.Config
	bus      *eventbus.Bus
	registry *sessionrepo.Registry
	store    *staterepo.Store
	orch     *Orchestrator
}

func newHarness(t *testing.T, cfg *config.Config, gen generation.Generator) *harness {
	t.Helper()
	fs := afero.NewMemMapFs()
	home := filepath.Join("/project", ".appforge")
	registry := sessionrepo.NewRegistry(fs, home)

	s, err := registry.CreateSession("test-session", "a test idea")
	require.NoError(t, err)

	store := staterepo.NewStore(fs, home, s.ID)
	_, err = store.CreateInitialState("a test idea", "")
	require.NoError(t, err)

	bus := eventbus.New()
	return &harness{
		fs:       fs,
		home:     home,
		cfg:      cfg,
		bus:      bus,
		registry: registry,
		store:    store,
		orch:     New(cfg, store, registry, bus, gen),
	}
}

// recordStages captures every stage transition broadcast on the bus
func recordStages(h *harness) (*[]eventbus.StageChange, func()) {
	var mu sync.Mutex
	seen := []eventbus.StageChange{}
	unsub := h.bus.OnStageChange(func(sc eventbus.StageChange) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, sc)
	})
	return &seen, unsub
}

func TestRun_FullPipeline(t *testing.T) {
	h := newHarness(t, config.Default(), generation.NewMockGateway())
	stages, unsub := recordStages(h)
	defer unsub()

	err := h.orch.Run(context.Background(), "a habit tracking app", Options{})
	require.NoError(t, err)

	want := []pipeline.Stage{
		pipeline.StageAnalyzing,
		pipeline.StageUIGeneration,
		pipeline.StageCodeGeneration,
		pipeline.StageBackendSetup,
		pipeline.StageSecuritySetup,
		pipeline.StageComplete,
	}
	got := make([]pipeline.Stage, 0, len(*stages))
	for _, sc := range *stages {
		got = append(got, sc.Stage)
	}
	assert.Equal(t, want, got)

	// progress never decreases and ends at 100
	prev := -1
	for _, sc := range *stages {
		assert.GreaterOrEqual(t, sc.Progress, prev)
		prev = sc.Progress
	}
	assert.Equal(t, 100, (*stages)[len(*stages)-1].Progress)

	st, err := h.store.Load()
	require.NoError(t, err)
	require.NotNil(t, st)
	assert.Equal(t, pipeline.StageComplete, st.Stage)
	assert.NotNil(t, st.CompletedAt)
	assert.Equal(t, "SampleApp", st.Metadata.AppName)
	require.NotNil(t, st.AppSpec)
	assert.Empty(t, st.Errors)

	// generated files land in the session output tree
	exists, err := afero.Exists(h.fs, filepath.Join(h.store.OutputDir(), "App.tsx"))
	require.NoError(t, err)
	assert.True(t, exists)

	// secure-storage baseline always ships
	exists, err = afero.Exists(h.fs, filepath.Join(h.store.OutputDir(), "src/utils/secureStorage.ts"))
	require.NoError(t, err)
	assert.True(t, exists)

	// the session summary tracks completion
	active := h.registry.GetActiveSession()
	require.NotNil(t, active)
	assert.Equal(t, pipeline.StageComplete, active.Stage)
}

func TestRun_RecordsFailure(t *testing.T) {
	gen := generation.NewScriptedGateway("sorry, I cannot help with that")
	h := newHarness(t, config.Default(), gen)

	var mu sync.Mutex
	var notices []eventbus.ErrorNotice
	unsub := h.bus.OnError(func(n eventbus.ErrorNotice) {
		mu.Lock()
		defer mu.Unlock()
		notices = append(notices, n)
	})
	defer unsub()

	err := h.orch.Run(context.Background(), "a doomed idea", Options{})
	require.Error(t, err)

	st, lerr := h.store.Load()
	require.NoError(t, lerr)
	require.NotNil(t, st)
	assert.Equal(t, pipeline.StageFailed, st.Stage)
	assert.NotNil(t, st.CompletedAt)

	require.Len(t, st.Errors, 1)
	assert.Equal(t, pipeline.StageAnalyzing, st.Errors[0].Stage)
	assert.Equal(t, err.Error(), st.Errors[0].Message)

	require.Len(t, notices, 1)
	assert.Equal(t, pipeline.StageAnalyzing, notices[0].Stage)
	assert.NotEmpty(t, notices[0].Message)
}

func TestRun_SkipOptions(t *testing.T) {
	gen := generation.NewScriptedGateway(habitSpecJSON, habitFilesJSON)
	h := newHarness(t, config.Default(), gen)
	stages, unsub := recordStages(h)
	defer unsub()

	err := h.orch.Run(context.Background(), "a habit tracker", Options{
		SkipUI:       true,
		SkipSecurity: true,
	})
	require.NoError(t, err)

	got := make([]pipeline.Stage, 0, len(*stages))
	for _, sc := range *stages {
		got = append(got, sc.Stage)
	}
	assert.Equal(t, []pipeline.Stage{
		pipeline.StageAnalyzing,
		pipeline.StageCodeGeneration,
		pipeline.StageBackendSetup,
		pipeline.StageComplete,
	}, got)
}

func TestResumeFrom_SkipsEarlierStages(t *testing.T) {
	h := newHarness(t, config.Default(), generation.NewMockGateway())
	require.NoError(t, h.orch.Run(context.Background(), "a habit tracker", Options{}))

	// A second orchestrator resumes with a script that has no AppSpec
	// response; reaching the analyze stage would exhaust it.
	resumeGen := generation.NewScriptedGateway(resumeFilesJSON, "[]")
	resumed := New(h.cfg, h.store, h.registry, h.bus, resumeGen)

	stages, unsub := recordStages(h)
	defer unsub()

	err := resumed.ResumeFrom(context.Background(), pipeline.StageCodeGeneration, "a habit tracker", Options{})
	require.NoError(t, err)

	for _, sc := range *stages {
		assert.NotEqual(t, pipeline.StageAnalyzing, sc.Stage)
		assert.NotEqual(t, pipeline.StageUIGeneration, sc.Stage)
	}
	assert.Equal(t, pipeline.StageComplete, (*stages)[len(*stages)-1].Stage)

	st, err := h.store.Load()
	require.NoError(t, err)
	require.NotNil(t, st)
	assert.Equal(t, pipeline.StageComplete, st.Stage)
	assert.Equal(t, "SampleApp", st.Metadata.AppName)

	exists, err := afero.Exists(h.fs, filepath.Join(h.store.OutputDir(), "src/resumed.ts"))
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestResumeFrom_TerminalStageFallsBackToFullRun(t *testing.T) {
	h := newHarness(t, config.Default(), generation.NewMockGateway())
	stages, unsub := recordStages(h)
	defer unsub()

	err := h.orch.ResumeFrom(context.Background(), pipeline.StageFailed, "a second chance", Options{})
	require.NoError(t, err)

	require.NotEmpty(t, *stages)
	assert.Equal(t, pipeline.StageAnalyzing, (*stages)[0].Stage)
	assert.Equal(t, pipeline.StageComplete, (*stages)[len(*stages)-1].Stage)
}

func TestRun_MonitoringStage(t *testing.T) {
	cfg := config.Default()
	cfg.Monitoring.Sentry = config.SentryConfig{DSN: "https://key@sentry.example/1", Enabled: true}

	h := newHarness(t, cfg, generation.NewMockGateway())
	stages, unsub := recordStages(h)
	defer unsub()

	err := h.orch.Run(context.Background(), "a monitored app", Options{})
	require.NoError(t, err)

	var sawMonitoring bool
	for _, sc := range *stages {
		if sc.Stage == pipeline.StageMonitoringSetup {
			sawMonitoring = true
		}
	}
	assert.True(t, sawMonitoring)

	data, err := afero.ReadFile(h.fs, filepath.Join(h.store.OutputDir(), "src/services/sentry.ts"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "https://key@sentry.example/1")

	exists, err := afero.Exists(h.fs, filepath.Join(h.store.OutputDir(), "src/services/posthog.ts"))
	require.NoError(t, err)
	assert.False(t, exists)

	st, err := h.store.Load()
	require.NoError(t, err)
	var call *pipeline.APICall
	for i := range st.APICallLog {
		if st.APICallLog[i].Service == "monitoring" {
			call = &st.APICallLog[i]
		}
	}
	require.NotNil(t, call)
	assert.Equal(t, "setup", call.Method)
}

func TestRun_HabitTrackScenario(t *testing.T) {
	gen := generation.NewScriptedGateway(habitSpecJSON, habitFilesJSON, "[]")
	h := newHarness(t, config.Default(), gen)

	err := h.orch.Run(context.Background(), "an app to track daily habits", Options{})
	require.NoError(t, err)

	st, err := h.store.Load()
	require.NoError(t, err)
	require.NotNil(t, st)
	assert.Equal(t, "HabitTrack", st.Metadata.AppName)

	// one analyze audit record against the generation service
	var analyzeCall *pipeline.APICall
	for i := range st.APICallLog {
		if st.APICallLog[i].Stage == pipeline.StageAnalyzing {
			analyzeCall = &st.APICallLog[i]
		}
	}
	require.NotNil(t, analyzeCall)
	assert.Equal(t, "generation", analyzeCall.Service)
	assert.Empty(t, analyzeCall.Error)

	// backend migrations: one table plus the RLS migration
	tableSQL, err := afero.ReadFile(h.fs, filepath.Join(h.store.MigrationsDir(), "0001_Habit.sql"))
	require.NoError(t, err)
	assert.Contains(t, string(tableSQL), `CREATE TABLE IF NOT EXISTS "Habit"`)
	assert.Contains(t, string(tableSQL), `"streak" integer`)
	assert.Contains(t, string(tableSQL), `"name" text NOT NULL`)
	assert.Contains(t, string(tableSQL), `"created_at" timestamptz`)

	rlsSQL, err := afero.ReadFile(h.fs, filepath.Join(h.store.MigrationsDir(), "0002_enable_rls.sql"))
	require.NoError(t, err)
	assert.Contains(t, string(rlsSQL), "ENABLE ROW LEVEL SECURITY")
	assert.Contains(t, string(rlsSQL), "auth.uid() = user_id")

	require.NotNil(t, st.SupabaseSchema)
	require.Len(t, st.SupabaseSchema.Tables, 1)
	require.Len(t, st.SupabaseSchema.Policies, 1)
	assert.Equal(t, "Habit_user_access", st.SupabaseSchema.Policies[0].Name)
}

const habitSpecJSON = `{
  "name": "HabitTrack",
  "description": "Track daily habits and streaks",
  "screens": [
    {"name": "Home", "description": "Today's habits", "route": "/"},
    {"name": "Stats", "description": "Streak statistics", "route": "/stats"}
  ],
  "navigation": {"type": "tabs", "structure": [{"name": "Root", "type": "tabs"}]},
  "dataModels": [
    {
      "name": "Habit",
      "fields": [
        {"name": "id", "type": "uuid"},
        {"name": "user_id", "type": "uuid"},
        {"name": "name", "type": "text", "required": true},
        {"name": "streak", "type": "number"}
      ],
      "timestamps": true
    }
  ],
  "apiEndpoints": [
    {"method": "GET", "path": "/habits", "auth": true}
  ],
  "authStrategy": "email",
  "features": ["habit tracking", "streaks"]
}`

const habitFilesJSON = `[
  {"path": "App.tsx", "content": "export default function App() { return null; }", "language": "tsx"},
  {"path": "src/screens/Home.tsx", "content": "export function Home() { return null; }", "language": "tsx"}
]`

const resumeFilesJSON = `[
  {"path": "src/resumed.ts", "content": "export const resumed = true;", "language": "ts"}
]`
