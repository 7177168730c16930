package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/studyforge/xp-api/internal/domain"
	"github.com/studyforge/xp-api/internal/platform/logger"
	"github.com/studyforge/xp-api/internal/store"
)

// PostgresXPStateStore implements the store.XPStateStore interface
// using a PostgreSQL database as the storage backend.
type PostgresXPStateStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresXPStateStore creates a new PostgreSQL implementation of the
// XPStateStore interface. It accepts a database connection or transaction
// that should be initialized and managed by the caller.
// If logger is nil, a default logger will be used.
func NewPostgresXPStateStore(db store.DBTX, logger *slog.Logger) *PostgresXPStateStore {
	if db == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresXPStateStore{
		db:     db,
		logger: logger.With(slog.String("component", "xp_state_store")),
	}
}

// Ensure PostgresXPStateStore implements store.XPStateStore interface
var _ store.XPStateStore = (*PostgresXPStateStore)(nil)

const xpStateColumns = "user_id, current_xp, level, bones, updated_at"

// Get implements store.XPStateStore.Get
// Returns store.ErrUserXPStateNotFound if the user has no state row.
func (s *PostgresXPStateStore) Get(ctx context.Context, userID string) (*domain.UserXPState, error) {
	return s.get(ctx, userID, false)
}

// GetForUpdate implements store.XPStateStore.GetForUpdate
// It retrieves the state row with a row-level lock using SELECT FOR UPDATE.
// Must be called within a transaction; the lock is what serializes
// concurrent awards for the same user.
func (s *PostgresXPStateStore) GetForUpdate(ctx context.Context, userID string) (*domain.UserXPState, error) {
	return s.get(ctx, userID, true)
}

func (s *PostgresXPStateStore) get(ctx context.Context, userID string, forUpdate bool) (*domain.UserXPState, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT ` + xpStateColumns + `
		FROM user_xp
		WHERE user_id = $1
	`
	if forUpdate {
		query += " FOR UPDATE"
	}

	var state domain.UserXPState
	err := s.db.QueryRowContext(ctx, query, userID).Scan(
		&state.UserID,
		&state.CurrentXP,
		&state.Level,
		&state.Bones,
		&state.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("xp state not found", slog.String("user_id", userID))
			return nil, store.ErrUserXPStateNotFound
		}
		log.Error("failed to get xp state",
			slog.String("error", err.Error()),
			slog.String("user_id", userID),
			slog.Bool("for_update", forUpdate))
		return nil, err
	}

	return &state, nil
}

// Ensure implements store.XPStateStore.Ensure
// It lazily creates the zero state row (0 XP, level 1, 0 bones) for a
// user. ON CONFLICT DO NOTHING makes repeated calls idempotent without a
// prior existence check.
func (s *PostgresXPStateStore) Ensure(ctx context.Context, userID string) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	state, err := domain.NewUserXPState(userID)
	if err != nil {
		log.Warn("xp state validation failed during ensure",
			slog.String("error", err.Error()),
			slog.String("user_id", userID))
		return err
	}

	query := `
		INSERT INTO user_xp (user_id, current_xp, level, bones, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id) DO NOTHING
	`

	result, err := s.db.ExecContext(
		ctx,
		query,
		state.UserID,
		state.CurrentXP,
		state.Level,
		state.Bones,
		state.UpdatedAt,
	)
	if err != nil {
		log.Error("failed to ensure xp state",
			slog.String("error", err.Error()),
			slog.String("user_id", userID))
		return err
	}

	if rows, err := result.RowsAffected(); err == nil && rows > 0 {
		log.Info("xp state created",
			slog.String("user_id", userID))
	}

	return nil
}

// Update implements store.XPStateStore.Update
// It persists changes to an existing state row.
// Returns store.ErrUpdateFailed wrapping store.ErrUserXPStateNotFound if
// the row does not exist.
// Returns validation errors from the domain UserXPState if data is invalid.
func (s *PostgresXPStateStore) Update(ctx context.Context, state *domain.UserXPState) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := state.Validate(); err != nil {
		log.Warn("xp state validation failed during update",
			slog.String("error", err.Error()),
			slog.String("user_id", state.UserID))
		return err
	}

	if state.UpdatedAt.IsZero() {
		state.UpdatedAt = time.Now().UTC()
	}

	query := `
		UPDATE user_xp
		SET current_xp = $1, level = $2, bones = $3, updated_at = $4
		WHERE user_id = $5
	`

	result, err := s.db.ExecContext(
		ctx,
		query,
		state.CurrentXP,
		state.Level,
		state.Bones,
		state.UpdatedAt,
		state.UserID,
	)
	if err != nil {
		if isCheckViolation(err) {
			log.Warn("constraint violation during xp state update",
				slog.String("error", err.Error()),
				slog.String("user_id", state.UserID))
			return store.NewStoreError("user_xp", "update", "constraint violation", err)
		}

		log.Error("failed to update xp state",
			slog.String("error", err.Error()),
			slog.String("user_id", state.UserID))
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		log.Error("failed to get rows affected",
			slog.String("error", err.Error()),
			slog.String("user_id", state.UserID))
		return err
	}

	if rowsAffected == 0 {
		log.Debug("xp state not found for update",
			slog.String("user_id", state.UserID))
		return fmt.Errorf("%w: %w", store.ErrUpdateFailed, store.ErrUserXPStateNotFound)
	}

	log.Debug("xp state updated",
		slog.String("user_id", state.UserID),
		slog.Int("current_xp", state.CurrentXP),
		slog.Int("level", state.Level),
		slog.Int("bones", state.Bones))
	return nil
}

// WithTx implements store.XPStateStore.WithTx
// It returns a new XPStateStore bound to the provided transaction.
func (s *PostgresXPStateStore) WithTx(tx *sql.Tx) store.XPStateStore {
	return &PostgresXPStateStore{
		db:     tx,
		logger: s.logger,
	}
}
