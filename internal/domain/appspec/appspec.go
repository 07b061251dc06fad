// Package appspec defines the structured application specification produced
// by the analyze stage. External generation output is parsed into these
// types and validated once at that boundary; downstream stages trust the
// shape.
package appspec

import "fmt"

// ComponentProp describes one prop of a UI component
type ComponentProp struct {
	Name        string `json:"name"`
	Type        string `json:"type"` // string, number, boolean, object, array, function
	Required    bool   `json:"required,omitempty"`
	Description string `json:"description,omitempty"`
}

// UIComponent is one element of a screen's component tree
type UIComponent struct {
	Type        string          `json:"type"` // e.g. "Button", "TextInput", "FlatList"
	Props       []ComponentProp `json:"props,omitempty"`
	Children    []UIComponent   `json:"children,omitempty"`
	Description string          `json:"description,omitempty"`
}

// Screen is one screen of the generated app
type Screen struct {
	Name        string            `json:"name"`
	Description string            `json:"description,omitempty"`
	Components  []UIComponent     `json:"components,omitempty"`
	Route       string            `json:"route,omitempty"`
	Params      map[string]string `json:"params,omitempty"`
	Protected   bool              `json:"protected,omitempty"`
}

// NavigationNode is one node of the navigation tree
type NavigationNode struct {
	Name      string           `json:"name"`
	Type      string           `json:"type"` // stack, tab, drawer, screen
	Children  []NavigationNode `json:"children,omitempty"`
	ScreenRef string           `json:"screenRef,omitempty"` // references Screen.Name
	Icon      string           `json:"icon,omitempty"`
}

// NavigationConfig describes the app's navigation structure
type NavigationConfig struct {
	Type      string           `json:"type"` // stack, tab, drawer, mixed
	Structure []NavigationNode `json:"structure,omitempty"`
}

// FieldDefinition is one field of a data model
type FieldDefinition struct {
	Name         string   `json:"name"`
	Type         string   `json:"type"` // text, number, boolean, date, json, uuid, timestamp, enum
	Required     bool     `json:"required,omitempty"`
	Unique       bool     `json:"unique,omitempty"`
	DefaultValue string   `json:"defaultValue,omitempty"`
	EnumValues   []string `json:"enumValues,omitempty"`
	Description  string   `json:"description,omitempty"`
}

// Relationship links two data models
type Relationship struct {
	Type       string `json:"type"` // one-to-one, one-to-many, many-to-many
	Target     string `json:"target"`
	ForeignKey string `json:"foreignKey,omitempty"`
}

// DataModel is one persisted entity of the generated app
type DataModel struct {
	Name          string            `json:"name"`
	Fields        []FieldDefinition `json:"fields"`
	Relationships []Relationship    `json:"relationships,omitempty"`
	Timestamps    *bool             `json:"timestamps,omitempty"` // nil means true
	SoftDelete    bool              `json:"softDelete,omitempty"`
}

// HasTimestamps reports whether the model gets created_at/updated_at columns.
// Models opt out explicitly; absence of the field means yes.
func (m *DataModel) HasTimestamps() bool {
	return m.Timestamps == nil || *m.Timestamps
}

// APIEndpoint is one API route of the generated app
type APIEndpoint struct {
	Method         string                 `json:"method"`
	Path           string                 `json:"path"`
	Description    string                 `json:"description,omitempty"`
	Auth           bool                   `json:"auth"`
	RequestSchema  map[string]interface{} `json:"requestSchema,omitempty"`
	ResponseSchema map[string]interface{} `json:"responseSchema,omitempty"`
	RateLimit      int                    `json:"rateLimit,omitempty"`
}

// ColorScheme is the app's base palette
type ColorScheme struct {
	Primary    string `json:"primary"`
	Secondary  string `json:"secondary"`
	Accent     string `json:"accent"`
	Background string `json:"background"`
	Text       string `json:"text"`
}

// AppSpec is the structured specification a free-text idea is refined into.
// It flows through every pipeline stage after ANALYZING.
type AppSpec struct {
	Name           string           `json:"name"`
	Description    string           `json:"description,omitempty"`
	Screens        []Screen         `json:"screens"`
	Navigation     NavigationConfig `json:"navigation,omitempty"`
	DataModels     []DataModel      `json:"dataModels"`
	APIEndpoints   []APIEndpoint    `json:"apiEndpoints,omitempty"`
	AuthStrategy   string           `json:"authStrategy,omitempty"` // email, oauth, phone, magic_link
	Features       []string         `json:"features,omitempty"`
	ColorScheme    *ColorScheme     `json:"colorScheme,omitempty"`
	TargetPlatform string           `json:"targetPlatform,omitempty"` // ios, android, both
}

// Validate checks the fields every later stage depends on. It runs at the
// boundary where generation output enters the system.
func (s *AppSpec) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("incomplete app spec: missing name")
	}
	if len(s.Screens) == 0 {
		return fmt.Errorf("incomplete app spec: no screens")
	}
	if len(s.DataModels) == 0 {
		return fmt.Errorf("incomplete app spec: no data models")
	}
	for i, sc := range s.Screens {
		if sc.Name == "" {
			return fmt.Errorf("incomplete app spec: screen %d has no name", i)
		}
	}
	for i, m := range s.DataModels {
		if m.Name == "" {
			return fmt.Errorf("incomplete app spec: data model %d has no name", i)
		}
		if len(m.Fields) == 0 {
			return fmt.Errorf("incomplete app spec: data model %q has no fields", m.Name)
		}
	}
	return nil
}
