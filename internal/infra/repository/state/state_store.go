// Package state persists one session's pipeline state. Every mutation is a
// full load-modify-save cycle; the save is an atomic replace, so a crash
// mid-write never leaves a half-written record.
package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/afero"

	"github.com/appforge-dev/appforge/internal/domain/pipeline"
	"github.com/appforge-dev/appforge/internal/infra/persistence/file"
)

// ErrNoState indicates a mutation was attempted before the initial state was
// created. That is a caller programming error, not a recoverable condition.
var ErrNoState = errors.New("no pipeline state found")

// Store owns the canonical on-disk pipeline state for one session.
// Callers hold only transient views obtained via Load; nothing is cached.
type Store struct {
	fs        afero.Fs
	sessionID string
	baseDir   string // <home>/sessions/<sessionID>
}

// NewStore binds a store to one session under the given control directory
func NewStore(fs afero.Fs, home, sessionID string) *Store {
	return &Store{
		fs:        fs,
		sessionID: sessionID,
		baseDir:   filepath.Join(home, "sessions", sessionID),
	}
}

// SessionID returns the bound session id
func (s *Store) SessionID() string {
	return s.sessionID
}

// StateFilePath returns the path of the persisted state record
func (s *Store) StateFilePath() string {
	return filepath.Join(s.baseDir, "state.json")
}

// OutputDir returns the root of the session's generated file tree
func (s *Store) OutputDir() string {
	return filepath.Join(s.baseDir, "generated")
}

// MigrationsDir returns the directory for backend migration artifacts
func (s *Store) MigrationsDir() string {
	return filepath.Join(s.baseDir, "migrations")
}

// EnsureDirs creates the session's directory skeleton
func (s *Store) EnsureDirs() error {
	for _, dir := range []string{s.baseDir, s.OutputDir(), s.MigrationsDir()} {
		if err := s.fs.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	return nil
}

// CreateInitialState constructs and persists the IDLE state record for a
// fresh session. Fails only on storage I/O errors.
func (s *Store) CreateInitialState(idea, appName string) (*pipeline.State, error) {
	now := time.Now().UTC()
	st := &pipeline.State{
		SessionID:      s.sessionID,
		Stage:          pipeline.StageIdle,
		GeneratedFiles: []pipeline.GeneratedFile{},
		Errors:         []pipeline.Error{},
		APICallLog:     []pipeline.APICall{},
		StartedAt:      now,
		Metadata: pipeline.Metadata{
			Idea:      idea,
			AppName:   appName,
			CreatedAt: now,
			UpdatedAt: now,
		},
	}
	if err := s.Save(st); err != nil {
		return nil, err
	}
	return st, nil
}

// Load returns the persisted state, or nil when no record exists or the
// stored content does not parse. Treating a corrupt file as absent favors
// availability of callers that check for nil over surfacing parse errors.
func (s *Store) Load() (*pipeline.State, error) {
	data, err := afero.ReadFile(s.fs, s.StateFilePath())
	if err != nil {
		return nil, nil
	}
	var st pipeline.State
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, nil
	}
	return &st, nil
}

// Save bumps metadata.updatedAt and atomically replaces the state record
func (s *Store) Save(st *pipeline.State) error {
	if err := s.EnsureDirs(); err != nil {
		return err
	}
	st.Metadata.UpdatedAt = time.Now().UTC()
	if err := file.WriteJSONAtomic(s.fs, s.StateFilePath(), st); err != nil {
		return fmt.Errorf("failed to write state: %w", err)
	}
	return nil
}

// UpdateStage sets the current stage and persists. COMPLETE and FAILED also
// stamp completedAt.
func (s *Store) UpdateStage(stage pipeline.Stage) (*pipeline.State, error) {
	st, err := s.mustLoad()
	if err != nil {
		return nil, err
	}
	st.Stage = stage
	if stage == pipeline.StageComplete || stage == pipeline.StageFailed {
		now := time.Now().UTC()
		st.CompletedAt = &now
	}
	if err := s.Save(st); err != nil {
		return nil, err
	}
	return st, nil
}

// AppendError appends a failure record to the append-only errors list
func (s *Store) AppendError(e pipeline.Error) error {
	st, err := s.mustLoad()
	if err != nil {
		return err
	}
	st.Errors = append(st.Errors, e)
	return s.Save(st)
}

// AppendAPICall appends an audit record to the append-only API call log
func (s *Store) AppendAPICall(c pipeline.APICall) error {
	st, err := s.mustLoad()
	if err != nil {
		return err
	}
	st.APICallLog = append(st.APICallLog, c)
	return s.Save(st)
}

// AddGeneratedFile upserts a file record. A file with the same path replaces
// the earlier entry in place, keeping its list position; new paths append.
func (s *Store) AddGeneratedFile(f pipeline.GeneratedFile) error {
	st, err := s.mustLoad()
	if err != nil {
		return err
	}
	replaced := false
	for i := range st.GeneratedFiles {
		if st.GeneratedFiles[i].Path == f.Path {
			st.GeneratedFiles[i] = f
			replaced = true
			break
		}
	}
	if !replaced {
		st.GeneratedFiles = append(st.GeneratedFiles, f)
	}
	return s.Save(st)
}

// WriteGeneratedFile writes content into the session's generated-output
// tree, creating parent directories as needed, and returns the full path.
// This is the only interface that touches the output tree; recording the
// write in state is AddGeneratedFile's job.
func (s *Store) WriteGeneratedFile(relativePath, content string) (string, error) {
	fullPath := filepath.Join(s.OutputDir(), relativePath)
	if err := s.fs.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := afero.WriteFile(s.fs, fullPath, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("failed to write generated file %s: %w", relativePath, err)
	}
	return fullPath, nil
}

// WriteMigrationFile writes a backend migration artifact into the session's
// migrations directory and returns the full path
func (s *Store) WriteMigrationFile(name, sql string) (string, error) {
	fullPath := filepath.Join(s.MigrationsDir(), name)
	if err := s.fs.MkdirAll(s.MigrationsDir(), 0o755); err != nil {
		return "", fmt.Errorf("failed to create migrations directory: %w", err)
	}
	if err := afero.WriteFile(s.fs, fullPath, []byte(sql), 0o644); err != nil {
		return "", fmt.Errorf("failed to write migration %s: %w", name, err)
	}
	return fullPath, nil
}

func (s *Store) mustLoad() (*pipeline.State, error) {
	st, err := s.Load()
	if err != nil {
		return nil, err
	}
	if st == nil {
		return nil, fmt.Errorf("%w for session %s", ErrNoState, s.sessionID)
	}
	return st, nil
}
