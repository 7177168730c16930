package store

import (
	"context"
	"database/sql"

	"github.com/studyforge/xp-api/internal/domain"
)

// LedgerStore defines the interface for the append-only XP transaction
// ledger. The ledger is the source of truth for daily-cap accounting:
// every accepted award appends exactly one immutable row.
type LedgerStore interface {
	// Append inserts a new immutable ledger row and assigns its surrogate
	// ID on the passed transaction. It handles domain validation
	// internally and never overwrites existing rows.
	Append(ctx context.Context, txn *domain.XPTransaction) error

	// SumForDay returns the total XP recorded for the (userID,
	// activityType, date) bucket. Returns 0 when no rows exist.
	// A storage error is returned rather than swallowed; callers treat it
	// as fatal for the surrounding award operation.
	SumForDay(ctx context.Context, userID, activityType, date string) (int, error)

	// DailySummary returns the per-activity XP totals for a user on the
	// given date. Map iteration order is unspecified; callers must not
	// rely on ordering.
	DailySummary(ctx context.Context, userID, date string) (map[string]int, error)

	// WithTx returns a new LedgerStore instance that uses the provided
	// transaction. The transaction is created and managed by the caller
	// (typically the leveling service).
	WithTx(tx *sql.Tx) LedgerStore
}
