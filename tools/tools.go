// Package tools provides the fixed tool set the agent can invoke against
// the database: list_tables, schema, and query_sql.
//
// All three tools are read-only. They translate between the model-facing
// contract (JSON arguments, text observations) and the database access
// layer (the Inspector and QueryExecutor interfaces, implemented by the
// postgres package). In-band failures such as an unknown table or a SQL
// error come back as *sqlagent.ToolFailure so the registry can turn them
// into corrective observations; any other error is an infrastructure
// failure and terminates the run.
//
// # Typical Setup
//
//	inspector := tools.NewCachingInspector(pgInspector)
//	registry := registry.New().
//	    MustRegister(tools.NewListTables(inspector)).
//	    MustRegister(tools.NewSchema(inspector)).
//	    MustRegister(tools.NewQuerySQL(executor))
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rickchristie/sqlagent"
	"github.com/rickchristie/sqlagent/schema"
)

// Inspector reads table metadata from the database catalog.
//
// DescribeTables returns a *sqlagent.ToolFailure for table names that do
// not exist, so the model can correct them against the actual table list.
type Inspector interface {
	ListTables(ctx context.Context) ([]string, error)
	DescribeTables(ctx context.Context, tables []string) (string, error)
}

// QueryExecutor runs a read-only SQL statement and renders the result as
// text. Query errors the model can fix (syntax, unknown table, timeout)
// are returned as *sqlagent.ToolFailure.
type QueryExecutor interface {
	Query(ctx context.Context, sql string) (string, error)
}

// NewListTables creates the list_tables tool. It takes no parameters and
// returns the table names in the connected schema as a comma-separated
// list.
func NewListTables(inspector Inspector) *sqlagent.ToolFunc[struct{}, string] {
	return sqlagent.NewToolFunc(
		"list_tables",
		"List the tables available in the database. Takes no arguments. "+
			"Call this first to learn what data exists.",
		nil,
		func(ctx context.Context, _ struct{}) (string, error) {
			tables, err := inspector.ListTables(ctx)
			if err != nil {
				return "", err
			}
			if len(tables) == 0 {
				return "(no tables)", nil
			}
			return strings.Join(tables, ", "), nil
		},
	)
}

// TableList unmarshals either a JSON array of table names or a single
// string, which may be comma separated. Models frequently send
// {"tables": "film, actor"} where an array was asked for; both shapes
// are accepted.
type TableList []string

func (t *TableList) UnmarshalJSON(data []byte) error {
	var names []string
	if err := json.Unmarshal(data, &names); err == nil {
		*t = names
		return nil
	}

	var single string
	if err := json.Unmarshal(data, &single); err != nil {
		return fmt.Errorf("tables must be a string or an array of strings")
	}
	names = make([]string, 0, 1)
	for _, part := range strings.Split(single, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			names = append(names, trimmed)
		}
	}
	*t = names
	return nil
}

// SchemaInput is the input for the schema tool.
type SchemaInput struct {
	Tables TableList `json:"tables"`
}

// NewSchema creates the schema tool. It describes the columns of the
// named tables as CREATE TABLE style definitions.
func NewSchema(inspector Inspector) *sqlagent.ToolFunc[SchemaInput, string] {
	return sqlagent.NewToolFunc(
		"schema",
		"Describe the columns of one or more tables. Returns CREATE TABLE "+
			"style definitions with column names and types. Always check a "+
			"table's schema before querying it.",
		schema.Object(map[string]*schema.Property{
			"tables": schema.Array(
				"Table names to describe, e.g. [\"film\", \"actor\"]. A single "+
					"comma-separated string is also accepted.",
				map[string]any{"type": "string"},
			).OrType("string"),
		}, "tables"),
		func(ctx context.Context, input SchemaInput) (string, error) {
			return inspector.DescribeTables(ctx, input.Tables)
		},
	)
}

// QueryInput is the input for the query_sql tool.
type QueryInput struct {
	SQL string `json:"sql"`
}

// NewQuerySQL creates the query_sql tool. It executes a read-only SQL
// statement and returns the resulting rows as text.
func NewQuerySQL(executor QueryExecutor) *sqlagent.ToolFunc[QueryInput, string] {
	return sqlagent.NewToolFunc(
		"query_sql",
		"Execute a read-only SQL query and return the resulting rows. Only "+
			"SELECT and WITH statements are accepted. If the query fails, the "+
			"database error is returned so you can correct the query and retry.",
		schema.Object(map[string]*schema.Property{
			"sql": schema.String(
				"The SQL statement to execute. Must be a single SELECT or WITH statement.",
			).MinLength(1),
		}, "sql"),
		func(ctx context.Context, input QueryInput) (string, error) {
			return executor.Query(ctx, input.SQL)
		},
	)
}
