package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/rickchristie/sqlagent"
)

// Inspector reads table and column metadata from information_schema.
// Results are deterministic: tables sort by name, columns by ordinal
// position.
type Inspector struct {
	db         *sql.DB
	schemaName string
}

// NewInspector creates an inspector over the "public" schema.
func NewInspector(db *sql.DB) *Inspector {
	return &Inspector{
		db:         db,
		schemaName: "public",
	}
}

// WithSchemaName sets the schema to inspect. Returns the inspector for
// chaining.
func (i *Inspector) WithSchemaName(name string) *Inspector {
	i.schemaName = name
	return i
}

// ListTables returns the base table names in the inspected schema, sorted
// ascending.
func (i *Inspector) ListTables(ctx context.Context) ([]string, error) {
	query := `
SELECT table_name
FROM information_schema.tables
WHERE table_schema = $1 AND table_type = 'BASE TABLE'
ORDER BY table_name ASC`

	rows, err := i.db.QueryContext(ctx, query, i.schemaName)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	defer func() { _ = rows.Close() }()

	tables := make([]string, 0)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan table row: %w", err)
		}
		tables = append(tables, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate table rows: %w", err)
	}
	return tables, nil
}

// DescribeTables returns CREATE TABLE style descriptions for the named
// tables. A name that does not exist in the schema produces a
// *sqlagent.ToolFailure so the model can correct it against the actual
// table list.
func (i *Inspector) DescribeTables(ctx context.Context, tables []string) (string, error) {
	cleaned := make([]string, 0, len(tables))
	for _, name := range tables {
		if trimmed := strings.TrimSpace(name); trimmed != "" {
			cleaned = append(cleaned, trimmed)
		}
	}
	if len(cleaned) == 0 {
		return "", &sqlagent.ToolFailure{
			Class:   "invalid_arguments",
			Message: "tables list is empty; pass at least one table name",
		}
	}

	descriptions := make([]string, 0, len(cleaned))
	for _, table := range cleaned {
		cols, err := i.tableColumns(ctx, table)
		if err != nil {
			return "", err
		}
		if len(cols) == 0 {
			return "", &sqlagent.ToolFailure{
				Class: "undefined_table",
				Message: fmt.Sprintf(
					"table %q does not exist in schema %q; use list_tables to see available tables",
					table, i.schemaName,
				),
			}
		}
		descriptions = append(descriptions, renderTable(table, cols))
	}

	return strings.Join(descriptions, "\n\n"), nil
}

type columnDef struct {
	name     string
	dataType string
	nullable bool
}

func (i *Inspector) tableColumns(ctx context.Context, table string) ([]columnDef, error) {
	query := `
SELECT column_name, data_type, is_nullable
FROM information_schema.columns
WHERE table_schema = $1 AND table_name = $2
ORDER BY ordinal_position ASC`

	rows, err := i.db.QueryContext(ctx, query, i.schemaName, table)
	if err != nil {
		return nil, fmt.Errorf("describe table %q: %w", table, err)
	}
	defer func() { _ = rows.Close() }()

	cols := make([]columnDef, 0)
	for rows.Next() {
		var col columnDef
		var nullable string
		if err := rows.Scan(&col.name, &col.dataType, &nullable); err != nil {
			return nil, fmt.Errorf("scan column row: %w", err)
		}
		col.nullable = nullable != "NO"
		cols = append(cols, col)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate column rows: %w", err)
	}
	return cols, nil
}

func renderTable(table string, cols []columnDef) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "CREATE TABLE %s (\n", table)
	for idx, col := range cols {
		fmt.Fprintf(&sb, "    %s %s", col.name, col.dataType)
		if !col.nullable {
			sb.WriteString(" NOT NULL")
		}
		if idx < len(cols)-1 {
			sb.WriteString(",")
		}
		sb.WriteString("\n")
	}
	sb.WriteString(")")
	return sb.String()
}
