package store

import (
	"context"
	"database/sql"

	"github.com/studyforge/xp-api/internal/domain"
)

// XPStateStore defines the interface for the per-user aggregate XP state.
// The aggregate is a cached reduction of the ledger; the leveling service
// keeps the two consistent by executing the ledger append and the state
// update inside one transaction.
type XPStateStore interface {
	// Get retrieves a user's XP state.
	// Returns ErrUserXPStateNotFound if the user has no state row.
	// NOTE: This method does NOT provide any row locking, so it should not
	// be used when you plan to update the row and need concurrency
	// protection.
	Get(ctx context.Context, userID string) (*domain.UserXPState, error)

	// GetForUpdate retrieves a user's XP state with a row-level lock using
	// SELECT FOR UPDATE. It must be used within a transaction when the row
	// will be updated; the lock serializes concurrent awards for the same
	// user.
	// Returns ErrUserXPStateNotFound if the user has no state row.
	GetForUpdate(ctx context.Context, userID string) (*domain.UserXPState, error)

	// Ensure lazily creates the zero state row for a user if it does not
	// exist yet. Idempotent: calling it for an existing user is a no-op
	// and never creates duplicate rows.
	Ensure(ctx context.Context, userID string) error

	// Update persists changes to an existing state row.
	// Returns ErrUserXPStateNotFound if the row does not exist.
	Update(ctx context.Context, state *domain.UserXPState) error

	// WithTx returns a new XPStateStore instance that uses the provided
	// transaction. The transaction is created and managed by the caller.
	WithTx(tx *sql.Tx) XPStateStore
}
