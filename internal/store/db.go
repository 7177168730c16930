package store

import (
	"context"
	"database/sql"
)

// DBTX is the minimal query surface the XP stores need. Both *sql.DB
// and *sql.Tx satisfy it, so a store can run standalone or inside the
// award transaction without knowing which it was handed.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}
