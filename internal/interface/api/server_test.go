package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/appforge-dev/appforge/internal/app/eventbus"
	"github.com/appforge-dev/appforge/internal/domain/pipeline"
	"github.com/appforge-dev/appforge/internal/domain/session"
	sessionrepo "github.com/appforge-dev/appforge/internal/infra/repository/session"
	staterepo "github.com/appforge-dev/appforge/internal/infra/repository/state"
)

func newTestServer(t *testing.T) (*Server, *sessionrepo.Registry, afero.Fs, string) {
	t.Helper()
	fs := afero.NewMemMapFs()
	home := filepath.Join("/project", ".appforge")
	registry := sessionrepo.NewRegistry(fs, home)
	srv := NewServer(fs, home, registry, eventbus.New(), ":0")
	return srv, registry, fs, home
}

func TestHealth(t *testing.T) {
	srv, _, _, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ok"`)
}

func TestSessions(t *testing.T) {
	srv, registry, _, _ := newTestServer(t)

	s, err := registry.CreateSession("alpha", "an idea")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/sessions", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var idx session.Index
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &idx))
	require.Len(t, idx.Sessions, 1)
	assert.Equal(t, s.ID, idx.Sessions[0].ID)
	require.NotNil(t, idx.ActiveSessionID)
	assert.Equal(t, s.ID, *idx.ActiveSessionID)
}

func TestStatus_ActiveSession(t *testing.T) {
	srv, registry, fs, home := newTestServer(t)

	s, err := registry.CreateSession("alpha", "an idea")
	require.NoError(t, err)
	store := staterepo.NewStore(fs, home, s.ID)
	_, err = store.CreateInitialState("an idea", "Alpha")
	require.NoError(t, err)
	_, err = store.UpdateStage(pipeline.StageCodeGeneration)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var st pipeline.State
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	assert.Equal(t, s.ID, st.SessionID)
	assert.Equal(t, pipeline.StageCodeGeneration, st.Stage)
}

func TestStatus_NoActiveSession(t *testing.T) {
	srv, _, _, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStatus_UnknownSession(t *testing.T) {
	srv, _, _, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/status/deadbeef", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
