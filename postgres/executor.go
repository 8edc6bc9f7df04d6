package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/rickchristie/sqlagent"
)

// Failure classes attached to query tool failures. The class is the
// machine-readable half of the self-correction feedback; the message
// carries the server's verbatim error text.
const (
	ClassSyntax            = "syntax"
	ClassUndefinedTable    = "undefined_table"
	ClassUndefinedColumn   = "undefined_column"
	ClassUndefinedFunction = "undefined_function"
	ClassPermission        = "permission"
	ClassTimeout           = "timeout"
	ClassRejected          = "rejected"
	ClassInvalidSQL        = "invalid_sql"
	ClassQueryError        = "query_error"
	ClassEmptySQL          = "empty_sql"
)

// Executor runs read-only queries with a row cap and a per-query timeout.
//
// Statements must start with SELECT or WITH when the read-only gate is on
// (the default). The row cap is applied by wrapping the statement in
// SELECT * FROM (...) AS q LIMIT n, so the model never needs to remember
// its own LIMIT discipline.
type Executor struct {
	db           *sql.DB
	maxRows      int
	queryTimeout time.Duration
	readOnly     bool
}

// NewExecutor creates an executor with a 50 row cap, a 30 second query
// timeout, and the read-only gate enabled.
func NewExecutor(db *sql.DB) *Executor {
	return &Executor{
		db:           db,
		maxRows:      50,
		queryTimeout: 30 * time.Second,
		readOnly:     true,
	}
}

// WithMaxRows sets the row cap. Zero disables capping. Returns the
// executor for chaining.
func (e *Executor) WithMaxRows(n int) *Executor {
	e.maxRows = n
	return e
}

// WithQueryTimeout sets the per-query timeout. Zero disables it. Returns
// the executor for chaining.
func (e *Executor) WithQueryTimeout(d time.Duration) *Executor {
	e.queryTimeout = d
	return e
}

// WithReadOnly toggles the SELECT/WITH gate. Returns the executor for
// chaining.
func (e *Executor) WithReadOnly(readOnly bool) *Executor {
	e.readOnly = readOnly
	return e
}

// Query executes one statement and renders the result as a text table for
// the observation. Correctable failures (rejected statements, server-side
// SQL errors, the per-query timeout) return *sqlagent.ToolFailure;
// connection-level failures return the raw error.
func (e *Executor) Query(ctx context.Context, sqlText string) (string, error) {
	trimmed := stripTrailingSemicolons(sqlText)
	if trimmed == "" {
		return "", &sqlagent.ToolFailure{
			Class:   ClassEmptySQL,
			Message: "sql is required",
		}
	}
	if e.readOnly && !isReadOnlySQL(trimmed) {
		return "", &sqlagent.ToolFailure{
			Class:   ClassRejected,
			Message: "only read-only SELECT or WITH statements are allowed; data modification is not permitted",
		}
	}

	statement := trimmed
	if e.maxRows > 0 {
		statement = fmt.Sprintf("SELECT * FROM (%s) AS q LIMIT %d", trimmed, e.maxRows)
	}

	queryCtx := ctx
	if e.queryTimeout > 0 {
		var cancel context.CancelFunc
		queryCtx, cancel = context.WithTimeout(ctx, e.queryTimeout)
		defer cancel()
	}

	rows, err := e.db.QueryContext(queryCtx, statement)
	if err != nil {
		return "", e.classify(ctx, err)
	}
	defer func() { _ = rows.Close() }()

	columns, err := rows.Columns()
	if err != nil {
		return "", fmt.Errorf("query columns: %w", err)
	}

	resultRows := make([][]any, 0)
	for rows.Next() {
		values := make([]any, len(columns))
		scanTargets := make([]any, len(columns))
		for i := range values {
			scanTargets[i] = &values[i]
		}
		if err := rows.Scan(scanTargets...); err != nil {
			return "", fmt.Errorf("scan row: %w", err)
		}
		resultRows = append(resultRows, normalizeValues(values))
	}
	if err := rows.Err(); err != nil {
		return "", e.classify(ctx, err)
	}

	return renderRows(columns, resultRows, e.maxRows), nil
}

// classify maps a query error to the tool contract. The parent context is
// consulted first: if the run itself is done, the error stays raw so the
// loop terminates instead of feeding a correction.
func (e *Executor) classify(parent context.Context, err error) error {
	if parent.Err() != nil {
		return fmt.Errorf("execute query: %w", parent.Err())
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return &sqlagent.ToolFailure{
			Class: ClassTimeout,
			Message: fmt.Sprintf(
				"query exceeded the %s execution timeout; simplify the query or reduce the rows it scans",
				e.queryTimeout,
			),
		}
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return &sqlagent.ToolFailure{
			Class:   classForCode(pgErr.Code),
			Message: pgMessage(pgErr),
		}
	}

	return fmt.Errorf("execute query: %w", err)
}

// classForCode maps a SQLSTATE code to a failure class. Any error the
// server itself reported is considered correctable.
func classForCode(code string) string {
	switch code {
	case "42601":
		return ClassSyntax
	case "42P01":
		return ClassUndefinedTable
	case "42703":
		return ClassUndefinedColumn
	case "42883":
		return ClassUndefinedFunction
	case "42501":
		return ClassPermission
	case "57014":
		return ClassTimeout
	}
	if strings.HasPrefix(code, "42") {
		return ClassInvalidSQL
	}
	return ClassQueryError
}

// pgMessage renders the server error with its hint when one is present;
// hints often name the correction directly.
func pgMessage(pgErr *pgconn.PgError) string {
	msg := pgErr.Message
	if pgErr.Hint != "" {
		msg += " Hint: " + pgErr.Hint
	}
	return msg
}

func isReadOnlySQL(sqlText string) bool {
	normalized := strings.ToLower(strings.TrimSpace(sqlText))
	if normalized == "" {
		return false
	}
	return strings.HasPrefix(normalized, "select") || strings.HasPrefix(normalized, "with")
}

func stripTrailingSemicolons(sqlText string) string {
	trimmed := strings.TrimSpace(sqlText)
	for strings.HasSuffix(trimmed, ";") {
		trimmed = strings.TrimSpace(strings.TrimSuffix(trimmed, ";"))
	}
	return trimmed
}

func normalizeValues(values []any) []any {
	normalized := make([]any, len(values))
	for i, value := range values {
		switch typed := value.(type) {
		case []byte:
			normalized[i] = string(typed)
		default:
			normalized[i] = typed
		}
	}
	return normalized
}

// renderRows formats a result set as a pipe-separated text table with a
// trailing row count. Hitting the row cap is called out so the model knows
// the result is partial.
func renderRows(columns []string, rows [][]any, maxRows int) string {
	if len(rows) == 0 {
		return "(0 rows)"
	}

	var sb strings.Builder
	sb.WriteString(strings.Join(columns, " | "))
	sb.WriteString("\n")

	for _, row := range rows {
		cells := make([]string, len(row))
		for i, value := range row {
			cells[i] = formatValue(value)
		}
		sb.WriteString(strings.Join(cells, " | "))
		sb.WriteString("\n")
	}

	if maxRows > 0 && len(rows) >= maxRows {
		fmt.Fprintf(&sb, "(%d rows, truncated at the %d row cap)", len(rows), maxRows)
	} else {
		fmt.Fprintf(&sb, "(%d rows)", len(rows))
	}
	return sb.String()
}

func formatValue(value any) string {
	switch typed := value.(type) {
	case nil:
		return "NULL"
	case time.Time:
		return typed.Format(time.RFC3339)
	default:
		return fmt.Sprintf("%v", typed)
	}
}
