package core

import (
	"context"
	"database/sql"
	"strings"
)

// DBExecutor is satisfied by *sql.DB, *sql.Tx and their sqlx wrappers.
type DBExecutor interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	Query(query string, args ...interface{}) (*sql.Rows, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRow(query string, args ...interface{}) *sql.Row
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

type DBOrdering struct {
	Field     string
	Ascending bool
}

func (ord DBOrdering) String() string {
	direction := "DESC"
	if ord.Ascending {
		direction = "ASC"
	}
	return ord.Field + " " + direction
}

// OrderBy renders an ORDER BY clause; ties on a field fall through to the next one.
func OrderBy(ords ...DBOrdering) string {
	if len(ords) == 0 {
		return ""
	}
	parts := make([]string, len(ords))
	for i, ord := range ords {
		parts[i] = ord.String()
	}
	return "ORDER BY " + strings.Join(parts, ", ")
}
