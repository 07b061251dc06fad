package app

import (
	"os"
	"path/filepath"
)

// Paths holds all resolved paths under the .appforge control directory
type Paths struct {
	Home     string // .appforge directory
	Sessions string // .appforge/sessions

	// Key files
	Index  string // .appforge/sessions.json
	Config string // appforge.config.json (project root, beside .appforge)
}

// ResolvePaths returns all paths based on the APPFORGE_HOME environment variable
func ResolvePaths() Paths {
	home := os.Getenv("APPFORGE_HOME")
	if home == "" {
		home = ".appforge"
	}

	p := Paths{
		Home:     home,
		Sessions: filepath.Join(home, "sessions"),
		Index:    filepath.Join(home, "sessions.json"),
	}
	p.Config = filepath.Join(filepath.Dir(home), "appforge.config.json")

	return p
}

// SessionDir returns the directory holding one session's state and outputs
func (p Paths) SessionDir(sessionID string) string {
	return filepath.Join(p.Sessions, sessionID)
}

// StateFile returns the path to a session's state.json
func (p Paths) StateFile(sessionID string) string {
	return filepath.Join(p.SessionDir(sessionID), "state.json")
}
