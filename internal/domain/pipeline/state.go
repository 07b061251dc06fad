package pipeline

import (
	"time"

	"github.com/appforge-dev/appforge/internal/domain/appspec"
)

// GeneratedFile is one output file tracked in pipeline state. Paths are
// relative to the session's generated-output directory and unique within
// the list; a later write to the same path replaces the earlier entry.
type GeneratedFile struct {
	Path     string `json:"path"`
	Content  string `json:"content"`
	Language string `json:"language"`
	Stage    Stage  `json:"stage"`
}

// Error records one stage failure. The errors list is append-only.
type Error struct {
	Stage     Stage     `json:"stage"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	Details   string    `json:"details,omitempty"`
}

// APICall is one audit record of an external collaborator invocation.
// Every stage appends exactly one, even when no real network I/O happened.
type APICall struct {
	ID         string                 `json:"id"`
	Stage      Stage                  `json:"stage"`
	Service    string                 `json:"service"` // "generation", "stitch", "supabase", "sentry"
	Method     string                 `json:"method"`
	Request    map[string]interface{} `json:"request,omitempty"`
	Response   map[string]interface{} `json:"response,omitempty"`
	DurationMs int64                  `json:"durationMs"`
	Timestamp  time.Time              `json:"timestamp"`
	Error      string                 `json:"error,omitempty"`
}

// ScreenImage is one UI design artifact reference
type ScreenImage struct {
	ScreenName  string `json:"screenName"`
	ImageURL    string `json:"imageUrl,omitempty"`
	ImageBase64 string `json:"imageBase64,omitempty"`
}

// DesignTokens carries design-system values extracted from generated UI
type DesignTokens struct {
	Colors     map[string]string      `json:"colors,omitempty"`
	Typography map[string]interface{} `json:"typography,omitempty"`
	Spacing    map[string]string      `json:"spacing,omitempty"`
}

// StitchOutput is the UI-generation stage's artifact
type StitchOutput struct {
	SiteURL      string        `json:"siteUrl,omitempty"`
	ScreenImages []ScreenImage `json:"screenImages"`
	DesignTokens *DesignTokens `json:"designTokens,omitempty"`
}

// Metadata holds the idea and derived naming for one build
type Metadata struct {
	Idea      string    `json:"idea"`
	AppName   string    `json:"appName"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// State is the authoritative persisted record for one build. It is created
// once per session, then loaded and fully rewritten on every mutation.
type State struct {
	SessionID      string          `json:"sessionId"`
	Stage          Stage           `json:"stage"`
	AppSpec        *appspec.AppSpec `json:"appSpec,omitempty"`
	StitchOutput   *StitchOutput   `json:"stitchOutput,omitempty"`
	GeneratedFiles []GeneratedFile `json:"generatedFiles"`
	SupabaseSchema *BackendSchema  `json:"supabaseSchema,omitempty"`
	StartedAt      time.Time       `json:"startedAt"`
	CompletedAt    *time.Time      `json:"completedAt,omitempty"`
	Errors         []Error         `json:"errors"`
	APICallLog     []APICall       `json:"apiCallLog"`
	Metadata       Metadata        `json:"metadata"`
}
