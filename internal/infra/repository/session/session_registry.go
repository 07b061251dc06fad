// Package session persists the project-wide session index (sessions.json).
// The index is a denormalized summary; each session's state.json stays the
// source of truth for pipeline progress.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/appforge-dev/appforge/internal/app"
	"github.com/appforge-dev/appforge/internal/domain/pipeline"
	"github.com/appforge-dev/appforge/internal/domain/session"
	"github.com/appforge-dev/appforge/internal/infra/persistence/file"
)

// ErrSessionNotFound indicates the requested session id is not in the index
var ErrSessionNotFound = errors.New("session not found")

// Registry owns sessions.json for one project
type Registry struct {
	fs   afero.Fs
	home string // .appforge directory
}

// NewRegistry creates a registry rooted at the given control directory
func NewRegistry(fs afero.Fs, home string) *Registry {
	return &Registry{fs: fs, home: home}
}

func (r *Registry) indexPath() string {
	return filepath.Join(r.home, "sessions.json")
}

func (r *Registry) sessionDir(id string) string {
	return filepath.Join(r.home, "sessions", id)
}

// LoadIndex returns the persisted index, or an empty one when the file is
// missing, unreadable, or corrupt. The registry is rebuildable summary data,
// so a broken index degrades to "no sessions" rather than an error.
func (r *Registry) LoadIndex() *session.Index {
	data, err := afero.ReadFile(r.fs, r.indexPath())
	if err != nil {
		return session.NewIndex()
	}
	idx := session.NewIndex()
	if err := json.Unmarshal(data, idx); err != nil {
		return session.NewIndex()
	}
	if idx.Sessions == nil {
		idx.Sessions = []session.Session{}
	}
	return idx
}

// SaveIndex atomically replaces sessions.json
func (r *Registry) SaveIndex(idx *session.Index) error {
	if err := r.fs.MkdirAll(r.home, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", r.home, err)
	}
	if err := file.WriteJSONAtomic(r.fs, r.indexPath(), idx); err != nil {
		return fmt.Errorf("failed to write session index: %w", err)
	}
	return nil
}

// CreateSession registers a new session at IDLE, makes it active, and
// persists the index. The paired pipeline state record is created separately
// by the caller that owns the state store.
func (r *Registry) CreateSession(name, idea string) (*session.Session, error) {
	id := session.NewID()
	if name == "" {
		name = "session-" + id
	}
	now := time.Now().UTC()
	s := session.Session{
		ID:        id,
		Name:      name,
		Idea:      idea,
		Stage:     pipeline.StageIdle,
		CreatedAt: now,
		UpdatedAt: now,
		OutputDir: filepath.Join(r.sessionDir(id), "generated"),
	}

	idx := r.LoadIndex()
	idx.Sessions = append(idx.Sessions, s)
	idx.ActiveSessionID = &s.ID
	if err := r.SaveIndex(idx); err != nil {
		return nil, err
	}

	if err := r.writeMeta(&s); err != nil {
		// The YAML mirror is for humans poking around the session directory;
		// losing it does not invalidate the index.
		app.GetLogger().Warn("failed to write session meta: %v", err)
	}
	return &s, nil
}

// ListSessions returns all sessions in creation order
func (r *Registry) ListSessions() []session.Session {
	return r.LoadIndex().Sessions
}

// GetActiveSession returns the active session, or nil when none is set
func (r *Registry) GetActiveSession() *session.Session {
	idx := r.LoadIndex()
	if idx.ActiveSessionID == nil {
		return nil
	}
	return idx.Find(*idx.ActiveSessionID)
}

// SwitchSession makes the given session active. The index is not mutated
// when the id is unknown.
func (r *Registry) SwitchSession(id string) (*session.Session, error) {
	idx := r.LoadIndex()
	s := idx.Find(id)
	if s == nil {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	idx.ActiveSessionID = &s.ID
	if err := r.SaveIndex(idx); err != nil {
		return nil, err
	}
	return s, nil
}

// UpdateSessionStage propagates a stage transition into the session summary.
// An unknown id is a silent no-op: propagation is best-effort and state.json
// remains authoritative.
func (r *Registry) UpdateSessionStage(id string, stage pipeline.Stage) error {
	idx := r.LoadIndex()
	s := idx.Find(id)
	if s == nil {
		return nil
	}
	now := time.Now().UTC()
	s.Stage = stage
	s.UpdatedAt = now
	if stage == pipeline.StageComplete || stage == pipeline.StageFailed {
		s.CompletedAt = &now
	}
	return r.SaveIndex(idx)
}

// DeleteSession removes a session from the index and deletes its on-disk
// subtree. Deleting the active session reassigns active to the first
// remaining session, or clears it. Returns false without side effects when
// the id is unknown.
func (r *Registry) DeleteSession(id string) (bool, error) {
	idx := r.LoadIndex()
	pos := -1
	for i := range idx.Sessions {
		if idx.Sessions[i].ID == id {
			pos = i
			break
		}
	}
	if pos == -1 {
		return false, nil
	}

	idx.Sessions = append(idx.Sessions[:pos], idx.Sessions[pos+1:]...)
	if idx.ActiveSessionID != nil && *idx.ActiveSessionID == id {
		if len(idx.Sessions) > 0 {
			idx.ActiveSessionID = &idx.Sessions[0].ID
		} else {
			idx.ActiveSessionID = nil
		}
	}
	if err := r.SaveIndex(idx); err != nil {
		return false, err
	}

	if err := r.fs.RemoveAll(r.sessionDir(id)); err != nil {
		return true, fmt.Errorf("failed to remove session directory: %w", err)
	}
	return true, nil
}

// writeMeta drops a human-readable meta.yml beside the session's state
func (r *Registry) writeMeta(s *session.Session) error {
	meta := struct {
		ID        string    `yaml:"id"`
		Name      string    `yaml:"name"`
		Idea      string    `yaml:"idea"`
		CreatedAt time.Time `yaml:"created_at"`
	}{s.ID, s.Name, s.Idea, s.CreatedAt}

	data, err := yaml.Marshal(meta)
	if err != nil {
		return err
	}
	return file.WriteFileAtomic(r.fs, filepath.Join(r.sessionDir(s.ID), "meta.yml"), data)
}
