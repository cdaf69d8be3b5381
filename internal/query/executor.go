package query

import (
	"context"
	"database/sql"
	"time"

	"go.uber.org/zap"
)

// Row is one result row keyed by column name.
type Row map[string]any

// Result carries rows together with the column order the driver
// reported, so formatting stays stable.
type Result struct {
	Columns []string
	Rows    []Row
}

// ErrorResult is the uniform failure shape: a single row with an
// "error" column. Callers check for it instead of catching errors.
func ErrorResult(message string) *Result {
	return &Result{
		Columns: []string{"error"},
		Rows:    []Row{{"error": message}},
	}
}

// ErrorMessage reports whether the result is the error sentinel.
func (r *Result) ErrorMessage() (string, bool) {
	if r == nil || len(r.Rows) != 1 {
		return "", false
	}
	msg, ok := r.Rows[0]["error"].(string)
	return msg, ok
}

// Empty reports whether the result has no rows.
func (r *Result) Empty() bool {
	return r == nil || len(r.Rows) == 0
}

// Runner executes read SQL. Satisfied by Executor; tests substitute fakes.
type Runner interface {
	Run(ctx context.Context, sqlText string) *Result
}

// Executor runs model-generated SQL against the store. Failures of any
// kind come back as an error result, never as a Go error: a failing
// query is surfaced once and retrying is the caller's decision.
type Executor struct {
	db      *sql.DB
	timeout time.Duration
	logger  *zap.Logger
}

func NewExecutor(db *sql.DB, timeout time.Duration, logger *zap.Logger) *Executor {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Executor{db: db, timeout: timeout, logger: logger}
}

func (e *Executor) Run(ctx context.Context, sqlText string) *Result {
	if e.db == nil {
		return ErrorResult("database is not available")
	}
	if err := Guard(sqlText); err != nil {
		e.logger.Warn("Rejected query", zap.Error(err), zap.String("query", sqlText))
		return ErrorResult(err.Error())
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	rows, err := e.db.QueryContext(ctx, sqlText)
	if err != nil {
		e.logger.Error("Query execution failed", zap.Error(err), zap.String("query", sqlText))
		return ErrorResult(err.Error())
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return ErrorResult(err.Error())
	}

	result := &Result{Columns: columns}
	values := make([]any, len(columns))
	pointers := make([]any, len(columns))
	for i := range values {
		pointers[i] = &values[i]
	}

	for rows.Next() {
		if err := rows.Scan(pointers...); err != nil {
			return ErrorResult(err.Error())
		}
		row := make(Row, len(columns))
		for i, col := range columns {
			row[col] = normalizeValue(values[i])
		}
		result.Rows = append(result.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return ErrorResult(err.Error())
	}

	e.logger.Debug("Query executed", zap.Int("rows", len(result.Rows)))
	return result
}

// normalizeValue flattens driver types so downstream formatting never
// special-cases them: timestamps become ISO text, byte slices strings.
func normalizeValue(v any) any {
	switch value := v.(type) {
	case time.Time:
		return value.UTC().Format(time.RFC3339)
	case []byte:
		return string(value)
	default:
		return v
	}
}
