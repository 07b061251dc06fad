// Package session defines build sessions and the project-wide session index.
package session

import (
	"crypto/rand"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/appforge-dev/appforge/internal/domain/pipeline"
)

// Session is one build attempt's identity and human-facing summary.
// The Stage field mirrors the session's pipeline state; state.json stays
// the source of truth.
type Session struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Idea        string         `json:"idea"`
	Stage       pipeline.Stage `json:"stage"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
	CompletedAt *time.Time     `json:"completedAt,omitempty"`
	OutputDir   string         `json:"outputDir"`
}

// Index is the registry of all sessions for a project, in creation order
type Index struct {
	ActiveSessionID *string   `json:"activeSessionId"`
	Sessions        []Session `json:"sessions"`
}

// NewIndex returns an empty index
func NewIndex() *Index {
	return &Index{Sessions: []Session{}}
}

// Find returns the session with the given id, or nil
func (idx *Index) Find(id string) *Session {
	for i := range idx.Sessions {
		if idx.Sessions[i].ID == id {
			return &idx.Sessions[i]
		}
	}
	return nil
}

// NewID generates a short opaque session identifier.
// IDs are the trailing entropy characters of a ULID, lowercased; the leading
// timestamp characters are dropped because they barely vary between sessions
// created close together.
func NewID() string {
	id := ulid.MustNew(ulid.Timestamp(time.Now()), rand.Reader).String()
	return strings.ToLower(id[len(id)-8:])
}
