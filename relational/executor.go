package relational

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/citypulse/trafficqa/config"
	"github.com/citypulse/trafficqa/errs"
	"github.com/citypulse/trafficqa/schema"
)

// timeLayout is the single textual format all temporal values are normalized
// to in read results.
const timeLayout = "2006-01-02 15:04:05"

// Executor runs query text against the relational backend.
type Executor interface {
	Execute(ctx context.Context, queryText string) (*schema.QueryResult, error)
	Close() error
}

// SQLExecutor executes queries over database/sql with a scoped connection
// per call.
type SQLExecutor struct {
	db *sql.DB
}

// NewSQLExecutor opens the configured database.
func NewSQLExecutor(cfg config.DatabaseConfig) (*SQLExecutor, error) {
	dsn := cfg.DSN
	if dsn == "" {
		dsn = ":memory:"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errs.NewDBError("connect", err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	return &SQLExecutor{db: db}, nil
}

// NewSQLExecutorFromDB wraps an existing handle. Used by tests and callers
// that manage the pool themselves.
func NewSQLExecutorFromDB(db *sql.DB) *SQLExecutor {
	return &SQLExecutor{db: db}
}

// DB exposes the underlying handle for seeding fixtures.
func (e *SQLExecutor) DB() *sql.DB { return e.db }

// Close releases the pool.
func (e *SQLExecutor) Close() error { return e.db.Close() }

// Execute runs queryText on a scoped connection, released on every exit
// path. Read queries return rows with temporal values normalized to a single
// textual format; mutations return the affected-row count. Backend failures
// surface as DBError and are never retried here.
func (e *SQLExecutor) Execute(ctx context.Context, queryText string) (*schema.QueryResult, error) {
	conn, err := e.db.Conn(ctx)
	if err != nil {
		return nil, errs.NewDBError("connect", err)
	}
	defer conn.Close()

	if isMutation(queryText) {
		res, err := conn.ExecContext(ctx, queryText)
		if err != nil {
			return nil, errs.NewDBError("exec", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return nil, errs.NewDBError("exec", err)
		}
		return &schema.QueryResult{Mutation: true, AffectedRows: affected}, nil
	}

	rows, err := conn.QueryContext(ctx, queryText)
	if err != nil {
		return nil, errs.NewDBError("query", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, errs.NewDBError("query", err)
	}

	out := &schema.QueryResult{Columns: cols}
	values := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range values {
		ptrs[i] = &values[i]
	}
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, errs.NewDBError("query", err)
		}
		row := make([]string, len(cols))
		for i, v := range values {
			row[i] = renderValue(v)
		}
		out.Rows = append(out.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.NewDBError("query", err)
	}
	return out, nil
}

func isMutation(queryText string) bool {
	head := strings.ToUpper(strings.TrimSpace(queryText))
	for _, kw := range []string{"INSERT", "UPDATE", "DELETE", "CREATE", "DROP", "ALTER", "REPLACE"} {
		if strings.HasPrefix(head, kw) {
			return true
		}
	}
	return false
}

// renderValue turns a scanned value into text, normalizing temporal values
// to timeLayout.
func renderValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case time.Time:
		return t.Format(timeLayout)
	case []byte:
		s := string(t)
		if ts, ok := parseTime(s); ok {
			return ts.Format(timeLayout)
		}
		return s
	case string:
		if ts, ok := parseTime(t); ok {
			return ts.Format(timeLayout)
		}
		return t
	default:
		return fmt.Sprintf("%v", t)
	}
}

var timeLayouts = []string{
	time.RFC3339,
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseTime(s string) (time.Time, bool) {
	if len(s) < 10 || s[4] != '-' {
		return time.Time{}, false
	}
	for _, layout := range timeLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}
