package state

import (
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/appforge-dev/appforge/internal/domain/pipeline"
)

func newTestStore() *Store {
	return NewStore(afero.NewMemMapFs(), ".appforge", "abc12345")
}

func TestCreateInitialState(t *testing.T) {
	store := newTestStore()

	st, err := store.CreateInitialState("track habits", "HabitTrack")
	require.NoError(t, err)

	assert.Equal(t, "abc12345", st.SessionID)
	assert.Equal(t, pipeline.StageIdle, st.Stage)
	assert.Empty(t, st.GeneratedFiles)
	assert.Empty(t, st.Errors)
	assert.Empty(t, st.APICallLog)
	assert.Equal(t, "track habits", st.Metadata.Idea)
	assert.Equal(t, "HabitTrack", st.Metadata.AppName)

	// Persisted and loadable
	loaded, err := store.Load()
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, pipeline.StageIdle, loaded.Stage)
}

func TestLoadAbsent(t *testing.T) {
	store := newTestStore()

	st, err := store.Load()
	assert.NoError(t, err)
	assert.Nil(t, st)
}

func TestLoadCorruptTreatedAsAbsent(t *testing.T) {
	fs := afero.NewMemMapFs()
	store := NewStore(fs, ".appforge", "abc12345")
	require.NoError(t, afero.WriteFile(fs, store.StateFilePath(), []byte("{not json"), 0o644))

	st, err := store.Load()
	assert.NoError(t, err)
	assert.Nil(t, st)
}

func TestSaveBumpsUpdatedAt(t *testing.T) {
	store := newTestStore()
	st, err := store.CreateInitialState("idea", "App")
	require.NoError(t, err)

	before := st.Metadata.UpdatedAt
	time.Sleep(2 * time.Millisecond)
	require.NoError(t, store.Save(st))

	loaded, _ := store.Load()
	assert.True(t, loaded.Metadata.UpdatedAt.After(before))
}

func TestUpdateStage(t *testing.T) {
	store := newTestStore()
	_, err := store.CreateInitialState("idea", "App")
	require.NoError(t, err)

	st, err := store.UpdateStage(pipeline.StageAnalyzing)
	require.NoError(t, err)
	assert.Equal(t, pipeline.StageAnalyzing, st.Stage)
	assert.Nil(t, st.CompletedAt)

	st, err = store.UpdateStage(pipeline.StageComplete)
	require.NoError(t, err)
	assert.NotNil(t, st.CompletedAt, "COMPLETE must stamp completedAt")

	loaded, _ := store.Load()
	assert.Equal(t, pipeline.StageComplete, loaded.Stage)
}

func TestUpdateStageFailedStampsCompletedAt(t *testing.T) {
	store := newTestStore()
	_, err := store.CreateInitialState("idea", "App")
	require.NoError(t, err)

	st, err := store.UpdateStage(pipeline.StageFailed)
	require.NoError(t, err)
	assert.NotNil(t, st.CompletedAt)
}

func TestMutationsFailLoudlyWithoutState(t *testing.T) {
	store := newTestStore()

	_, err := store.UpdateStage(pipeline.StageAnalyzing)
	assert.ErrorIs(t, err, ErrNoState)

	err = store.AppendError(pipeline.Error{Stage: pipeline.StageAnalyzing, Message: "x"})
	assert.ErrorIs(t, err, ErrNoState)

	err = store.AppendAPICall(pipeline.APICall{ID: "x"})
	assert.ErrorIs(t, err, ErrNoState)

	err = store.AddGeneratedFile(pipeline.GeneratedFile{Path: "a.ts"})
	assert.ErrorIs(t, err, ErrNoState)
}

func TestAppendErrorAndAPICallAreAppendOnly(t *testing.T) {
	store := newTestStore()
	_, err := store.CreateInitialState("idea", "App")
	require.NoError(t, err)

	require.NoError(t, store.AppendError(pipeline.Error{Stage: pipeline.StageAnalyzing, Message: "first"}))
	require.NoError(t, store.AppendError(pipeline.Error{Stage: pipeline.StageCodeGeneration, Message: "second"}))
	require.NoError(t, store.AppendAPICall(pipeline.APICall{ID: "call-1", Service: "generation"}))

	loaded, _ := store.Load()
	require.Len(t, loaded.Errors, 2)
	assert.Equal(t, "first", loaded.Errors[0].Message)
	assert.Equal(t, "second", loaded.Errors[1].Message)
	require.Len(t, loaded.APICallLog, 1)
	assert.Equal(t, "call-1", loaded.APICallLog[0].ID)
}

func TestAddGeneratedFileUpsertKeepsPosition(t *testing.T) {
	store := newTestStore()
	_, err := store.CreateInitialState("idea", "App")
	require.NoError(t, err)

	files := []pipeline.GeneratedFile{
		{Path: "src/App.tsx", Content: "v1", Language: "tsx", Stage: pipeline.StageCodeGeneration},
		{Path: "src/index.ts", Content: "idx", Language: "ts", Stage: pipeline.StageCodeGeneration},
		{Path: "src/theme.ts", Content: "theme", Language: "ts", Stage: pipeline.StageCodeGeneration},
	}
	for _, f := range files {
		require.NoError(t, store.AddGeneratedFile(f))
	}

	// Re-add the first path with new content; must replace in place
	require.NoError(t, store.AddGeneratedFile(pipeline.GeneratedFile{
		Path: "src/App.tsx", Content: "v2", Language: "tsx", Stage: pipeline.StageSecuritySetup,
	}))

	loaded, _ := store.Load()
	require.Len(t, loaded.GeneratedFiles, 3, "at most one entry per path")
	assert.Equal(t, "src/App.tsx", loaded.GeneratedFiles[0].Path)
	assert.Equal(t, "v2", loaded.GeneratedFiles[0].Content)
	assert.Equal(t, pipeline.StageSecuritySetup, loaded.GeneratedFiles[0].Stage)
	assert.Equal(t, "src/index.ts", loaded.GeneratedFiles[1].Path)
}

func TestWriteGeneratedFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	store := NewStore(fs, ".appforge", "abc12345")

	fullPath, err := store.WriteGeneratedFile("src/utils/secureStorage.ts", "export {}")
	require.NoError(t, err)
	assert.Equal(t, ".appforge/sessions/abc12345/generated/src/utils/secureStorage.ts", fullPath)

	content, err := afero.ReadFile(fs, fullPath)
	require.NoError(t, err)
	assert.Equal(t, "export {}", string(content))
}

func TestSaveSurvivesReload(t *testing.T) {
	store := newTestStore()
	st, err := store.CreateInitialState("idea", "App")
	require.NoError(t, err)

	st.AppSpec = nil
	st.Stage = pipeline.StageAnalyzing
	require.NoError(t, store.Save(st))

	// A second store bound to the same session sees the saved record
	reopened := NewStore(storeFs(store), ".appforge", "abc12345")
	loaded, err := reopened.Load()
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, pipeline.StageAnalyzing, loaded.Stage)
}

func storeFs(s *Store) afero.Fs {
	return s.fs
}
