package mcp

import (
	"context"
	"fmt"

	"golang.org/x/text/unicode/norm"

	"github.com/appforge-dev/appforge/internal/domain/appspec"
	"github.com/appforge-dev/appforge/internal/domain/pipeline"
	"github.com/appforge-dev/appforge/internal/domain/service/schema"
	"github.com/appforge-dev/appforge/internal/domain/session"
	staterepo "github.com/appforge-dev/appforge/internal/infra/repository/state"
)

type createSessionRequest struct {
	Idea string `json:"idea"`
	Name string `json:"name,omitempty"`
}

type createSessionResult struct {
	SessionID string `json:"sessionId"`
	Name      string `json:"name"`
	OutputDir string `json:"outputDir"`
}

func (s *Server) createSession(ctx context.Context, req createSessionRequest) (*createSessionResult, error) {
	if req.Idea == "" {
		return nil, fmt.Errorf("idea is required")
	}
	sess, err := s.registry.CreateSession(req.Name, req.Idea)
	if err != nil {
		return nil, err
	}
	store := staterepo.NewStore(s.fs, s.home, sess.ID)
	if _, err := store.CreateInitialState(req.Idea, req.Name); err != nil {
		return nil, err
	}
	return &createSessionResult{
		SessionID: sess.ID,
		Name:      sess.Name,
		OutputDir: store.OutputDir(),
	}, nil
}

type listSessionsRequest struct{}

type listSessionsResult struct {
	ActiveSessionID *string           `json:"activeSessionId"`
	Sessions        []session.Session `json:"sessions"`
}

func (s *Server) listSessions(ctx context.Context, req listSessionsRequest) (*listSessionsResult, error) {
	idx := s.registry.LoadIndex()
	return &listSessionsResult{
		ActiveSessionID: idx.ActiveSessionID,
		Sessions:        idx.Sessions,
	}, nil
}

type sessionRequest struct {
	SessionID string `json:"sessionId,omitempty"`
}

type statusResult struct {
	SessionID string         `json:"sessionId"`
	AppName   string         `json:"appName"`
	Stage     pipeline.Stage `json:"stage"`
	Progress  int            `json:"progress"`
	Files     int            `json:"files"`
	Errors    int            `json:"errors"`
}

func (s *Server) getStatus(ctx context.Context, req sessionRequest) (*statusResult, error) {
	store, st, err := s.resolveSession(req.SessionID)
	if err != nil {
		return nil, err
	}
	return &statusResult{
		SessionID: store.SessionID(),
		AppName:   st.Metadata.AppName,
		Stage:     st.Stage,
		Progress:  pipeline.StageProgress(st.Stage),
		Files:     len(st.GeneratedFiles),
		Errors:    len(st.Errors),
	}, nil
}

type saveAppSpecRequest struct {
	AppSpec   appspec.AppSpec `json:"appSpec"`
	SessionID string          `json:"sessionId,omitempty"`
}

type saveAppSpecResult struct {
	AppName     string         `json:"appName"`
	ScreenCount int            `json:"screenCount"`
	ModelCount  int            `json:"modelCount"`
	Stage       pipeline.Stage `json:"stage"`
}

// saveAppSpec persists a caller-produced AppSpec and moves the pipeline to
// UI generation, the step after analysis
func (s *Server) saveAppSpec(ctx context.Context, req saveAppSpecRequest) (*saveAppSpecResult, error) {
	if err := req.AppSpec.Validate(); err != nil {
		return nil, err
	}
	store, st, err := s.resolveSession(req.SessionID)
	if err != nil {
		return nil, err
	}

	spec := req.AppSpec
	st.AppSpec = &spec
	st.Metadata.AppName = norm.NFC.String(spec.Name)
	if err := store.Save(st); err != nil {
		return nil, err
	}
	if err := s.advance(store, pipeline.StageUIGeneration); err != nil {
		return nil, err
	}
	return &saveAppSpecResult{
		AppName:     st.Metadata.AppName,
		ScreenCount: len(spec.Screens),
		ModelCount:  len(spec.DataModels),
		Stage:       pipeline.StageUIGeneration,
	}, nil
}

type filePayload struct {
	Path     string `json:"path"`
	Content  string `json:"content"`
	Language string `json:"language,omitempty"`
}

type saveGeneratedFilesRequest struct {
	Files     []filePayload `json:"files"`
	SessionID string        `json:"sessionId,omitempty"`
}

type saveGeneratedFilesResult struct {
	FilesSaved int            `json:"filesSaved"`
	Stage      pipeline.Stage `json:"stage"`
}

// saveGeneratedFiles persists caller-produced source files and moves the
// pipeline to backend setup
func (s *Server) saveGeneratedFiles(ctx context.Context, req saveGeneratedFilesRequest) (*saveGeneratedFilesResult, error) {
	if len(req.Files) == 0 {
		return nil, fmt.Errorf("files is required")
	}
	store, _, err := s.resolveSession(req.SessionID)
	if err != nil {
		return nil, err
	}

	saved := 0
	for _, f := range req.Files {
		if f.Path == "" {
			continue
		}
		file := pipeline.GeneratedFile{
			Path:     f.Path,
			Content:  f.Content,
			Language: f.Language,
			Stage:    pipeline.StageCodeGeneration,
		}
		if _, err := store.WriteGeneratedFile(file.Path, file.Content); err != nil {
			return nil, err
		}
		if err := store.AddGeneratedFile(file); err != nil {
			return nil, err
		}
		saved++
	}
	if saved == 0 {
		return nil, fmt.Errorf("no usable files (every entry missing a path)")
	}
	if err := s.advance(store, pipeline.StageBackendSetup); err != nil {
		return nil, err
	}
	return &saveGeneratedFilesResult{FilesSaved: saved, Stage: pipeline.StageBackendSetup}, nil
}

type generateBackendResult struct {
	Tables     int            `json:"tables"`
	Policies   int            `json:"policies"`
	Migrations int            `json:"migrations"`
	Stage      pipeline.Stage `json:"stage"`
}

// generateBackend derives the backend schema from the saved AppSpec, writes
// the migration artifacts, and moves the pipeline to security setup
func (s *Server) generateBackend(ctx context.Context, req sessionRequest) (*generateBackendResult, error) {
	store, st, err := s.resolveSession(req.SessionID)
	if err != nil {
		return nil, err
	}
	if st.AppSpec == nil {
		return nil, fmt.Errorf("no AppSpec found — call appforge_save_app_spec first")
	}

	sch := schema.Generate(st.AppSpec, s.cfg.Pipeline.AutoGenerateRLS)
	st.SupabaseSchema = sch
	if err := store.Save(st); err != nil {
		return nil, err
	}
	for i, migration := range sch.Migrations {
		name := "enable_rls"
		if i < len(sch.Tables) {
			name = sch.Tables[i].Name
		}
		if _, err := store.WriteMigrationFile(fmt.Sprintf("%04d_%s.sql", i+1, name), migration); err != nil {
			return nil, err
		}
	}
	if err := s.advance(store, pipeline.StageSecuritySetup); err != nil {
		return nil, err
	}
	return &generateBackendResult{
		Tables:     len(sch.Tables),
		Policies:   len(sch.Policies),
		Migrations: len(sch.Migrations),
		Stage:      pipeline.StageSecuritySetup,
	}, nil
}

// resolveSession binds a store to the requested session, defaulting to the
// active one, and loads its state
func (s *Server) resolveSession(sessionID string) (*staterepo.Store, *pipeline.State, error) {
	if sessionID == "" {
		active := s.registry.GetActiveSession()
		if active == nil {
			return nil, nil, fmt.Errorf("no active session — call appforge_create_session first")
		}
		sessionID = active.ID
	}
	store := staterepo.NewStore(s.fs, s.home, sessionID)
	st, err := store.Load()
	if err != nil {
		return nil, nil, err
	}
	if st == nil {
		return nil, nil, fmt.Errorf("no pipeline state for session %s", sessionID)
	}
	return store, st, nil
}

// advance persists a stage transition and mirrors it into the session index
func (s *Server) advance(store *staterepo.Store, stage pipeline.Stage) error {
	if _, err := store.UpdateStage(stage); err != nil {
		return err
	}
	return s.registry.UpdateSessionStage(store.SessionID(), stage)
}
