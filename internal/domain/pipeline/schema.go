package pipeline

// Column is one backend table column definition
type Column struct {
	Name         string `json:"name"`
	Type         string `json:"type"`
	Nullable     bool   `json:"nullable"`
	DefaultValue string `json:"defaultValue,omitempty"`
	IsPrimaryKey bool   `json:"isPrimaryKey,omitempty"`
}

// Table is one backend table derived from a data model
type Table struct {
	Name    string   `json:"name"`
	Columns []Column `json:"columns"`
}

// RLSPolicy is a row-level security policy attached to a table
type RLSPolicy struct {
	Name        string `json:"name"`
	Table       string `json:"table"`
	Operation   string `json:"operation"` // SELECT, INSERT, UPDATE, DELETE, ALL
	Expression  string `json:"expression"`
	Description string `json:"description,omitempty"`
}

// BackendSchema is the backend-setup stage's artifact: table definitions,
// RLS policies, and the SQL migration strings that realize them.
type BackendSchema struct {
	Tables     []Table     `json:"tables"`
	Policies   []RLSPolicy `json:"policies"`
	Migrations []string    `json:"migrations"`
}
