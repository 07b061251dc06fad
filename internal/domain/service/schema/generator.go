// Package schema derives backend table definitions and SQL migrations from
// an application specification. Generation is pure: same spec and RLS flag,
// same output.
package schema

import (
	"fmt"
	"strings"

	"github.com/appforge-dev/appforge/internal/domain/appspec"
	"github.com/appforge-dev/appforge/internal/domain/pipeline"
)

// fieldTypeMap maps spec field types to backend column types.
// Unrecognized types fall back to text.
var fieldTypeMap = map[string]string{
	"text":      "text",
	"number":    "integer",
	"boolean":   "boolean",
	"date":      "date",
	"json":      "jsonb",
	"uuid":      "uuid",
	"timestamp": "timestamptz",
	"enum":      "text",
}

// MapFieldType returns the backend column type for a spec field type
func MapFieldType(t string) string {
	if mapped, ok := fieldTypeMap[t]; ok {
		return mapped
	}
	return "text"
}

// Generate builds the backend schema for a spec. One CREATE TABLE migration
// per data model, plus a final row-level-security migration when RLS is on.
func Generate(spec *appspec.AppSpec, autoRLS bool) *pipeline.BackendSchema {
	out := &pipeline.BackendSchema{
		Tables:     []pipeline.Table{},
		Policies:   []pipeline.RLSPolicy{},
		Migrations: []string{},
	}

	for i := range spec.DataModels {
		model := &spec.DataModels[i]
		table := buildTable(model)
		out.Tables = append(out.Tables, table)
		out.Migrations = append(out.Migrations, createTableSQL(model.Name, table.Columns))
	}

	if autoRLS {
		var stmts []string
		for i := range spec.DataModels {
			model := &spec.DataModels[i]
			out.Policies = append(out.Policies, pipeline.RLSPolicy{
				Name:        model.Name + "_user_access",
				Table:       model.Name,
				Operation:   "ALL",
				Expression:  "auth.uid() = user_id",
				Description: fmt.Sprintf("Users can only access their own %s", model.Name),
			})
			stmts = append(stmts, fmt.Sprintf(
				"ALTER TABLE %q ENABLE ROW LEVEL SECURITY;\nCREATE POLICY %q ON %q FOR ALL USING (auth.uid() = user_id);",
				model.Name, model.Name+"_user_access", model.Name))
		}
		out.Migrations = append(out.Migrations, strings.Join(stmts, "\n\n"))
	}

	return out
}

func buildTable(model *appspec.DataModel) pipeline.Table {
	columns := make([]pipeline.Column, 0, len(model.Fields)+2)
	for _, f := range model.Fields {
		columns = append(columns, pipeline.Column{
			Name:         f.Name,
			Type:         MapFieldType(f.Type),
			Nullable:     !f.Required,
			DefaultValue: f.DefaultValue,
			IsPrimaryKey: f.Name == "id",
		})
	}

	if model.HasTimestamps() {
		columns = append(columns,
			pipeline.Column{Name: "created_at", Type: "timestamptz", Nullable: false, DefaultValue: "now()"},
			pipeline.Column{Name: "updated_at", Type: "timestamptz", Nullable: false, DefaultValue: "now()"},
		)
	}

	return pipeline.Table{Name: model.Name, Columns: columns}
}

func createTableSQL(tableName string, columns []pipeline.Column) string {
	defs := make([]string, 0, len(columns))
	for _, c := range columns {
		def := fmt.Sprintf("  %q %s", c.Name, c.Type)
		if c.IsPrimaryKey {
			// id columns are always generated UUID primary keys
			def += " PRIMARY KEY DEFAULT gen_random_uuid()"
		} else if c.DefaultValue != "" {
			def += " DEFAULT " + c.DefaultValue
		}
		if !c.Nullable && !c.IsPrimaryKey {
			def += " NOT NULL"
		}
		defs = append(defs, def)
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %q (\n%s\n);", tableName, strings.Join(defs, ",\n"))
}
