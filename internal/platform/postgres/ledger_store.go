package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/studyforge/xp-api/internal/domain"
	"github.com/studyforge/xp-api/internal/platform/logger"
	"github.com/studyforge/xp-api/internal/store"
)

// PostgresLedgerStore implements the store.LedgerStore interface
// using a PostgreSQL database as the storage backend.
type PostgresLedgerStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresLedgerStore creates a new PostgreSQL implementation of the
// LedgerStore interface. It accepts a database connection or transaction
// that should be initialized and managed by the caller.
// If logger is nil, a default logger will be used.
func NewPostgresLedgerStore(db store.DBTX, logger *slog.Logger) *PostgresLedgerStore {
	if db == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresLedgerStore{
		db:     db,
		logger: logger.With(slog.String("component", "ledger_store")),
	}
}

// Ensure PostgresLedgerStore implements store.LedgerStore interface
var _ store.LedgerStore = (*PostgresLedgerStore)(nil)

// Append implements store.LedgerStore.Append
// It inserts a new immutable ledger row and assigns the generated ID on
// the passed transaction. Returns validation errors from the domain
// XPTransaction if data is invalid; returns store.ErrInvalidEntity when a
// database constraint rejects the row.
func (s *PostgresLedgerStore) Append(ctx context.Context, txn *domain.XPTransaction) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := txn.Validate(); err != nil {
		log.Warn("xp transaction validation failed during append",
			slog.String("error", err.Error()),
			slog.String("user_id", txn.UserID),
			slog.String("activity_type", txn.ActivityType))
		return err
	}

	query := `
		INSERT INTO xp_transactions (user_id, activity_type, xp_amount, transaction_date, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`

	err := s.db.QueryRowContext(
		ctx,
		query,
		txn.UserID,
		txn.ActivityType,
		txn.XPAmount,
		txn.TransactionDate,
		txn.CreatedAt,
	).Scan(&txn.ID)

	if err != nil {
		if isUniqueViolation(err) {
			log.Warn("duplicate ledger row rejected",
				slog.String("error", err.Error()),
				slog.String("user_id", txn.UserID),
				slog.String("activity_type", txn.ActivityType))
			return fmt.Errorf("%w: ledger row", store.ErrDuplicate)
		}

		if isCheckViolation(err) || isForeignKeyViolation(err) {
			log.Warn("constraint violation during ledger append",
				slog.String("error", err.Error()),
				slog.String("user_id", txn.UserID),
				slog.String("activity_type", txn.ActivityType))
			return fmt.Errorf("%w: ledger row rejected by constraint", store.ErrInvalidEntity)
		}

		log.Error("failed to append ledger row",
			slog.String("error", err.Error()),
			slog.String("user_id", txn.UserID),
			slog.String("activity_type", txn.ActivityType))
		return err
	}

	log.Debug("ledger row appended",
		slog.Int64("transaction_id", txn.ID),
		slog.String("user_id", txn.UserID),
		slog.String("activity_type", txn.ActivityType),
		slog.Int("xp_amount", txn.XPAmount),
		slog.String("transaction_date", txn.TransactionDate))
	return nil
}

// SumForDay implements store.LedgerStore.SumForDay
// It returns the total XP recorded for the (userID, activityType, date)
// bucket, or 0 when no rows exist. The query is covered by the
// (user_id, activity_type, transaction_date) index.
func (s *PostgresLedgerStore) SumForDay(
	ctx context.Context,
	userID, activityType, date string,
) (int, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT COALESCE(SUM(xp_amount), 0)
		FROM xp_transactions
		WHERE user_id = $1 AND activity_type = $2 AND transaction_date = $3
	`

	var total int
	err := s.db.QueryRowContext(ctx, query, userID, activityType, date).Scan(&total)
	if err != nil {
		log.Error("failed to sum daily XP",
			slog.String("error", err.Error()),
			slog.String("user_id", userID),
			slog.String("activity_type", activityType),
			slog.String("date", date))
		return 0, err
	}

	return total, nil
}

// DailySummary implements store.LedgerStore.DailySummary
// It returns the per-activity XP totals for a user on the given date.
// Returns an empty map if the user earned nothing that day.
func (s *PostgresLedgerStore) DailySummary(
	ctx context.Context,
	userID, date string,
) (map[string]int, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT activity_type, SUM(xp_amount)
		FROM xp_transactions
		WHERE user_id = $1 AND transaction_date = $2
		GROUP BY activity_type
	`

	rows, err := s.db.QueryContext(ctx, query, userID, date)
	if err != nil {
		log.Error("failed to query daily summary",
			slog.String("error", err.Error()),
			slog.String("user_id", userID),
			slog.String("date", date))
		return nil, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			log.Error("failed to close rows", slog.String("error", err.Error()))
		}
	}()

	summary := make(map[string]int)
	for rows.Next() {
		var activityType string
		var total int

		if err := rows.Scan(&activityType, &total); err != nil {
			log.Error("failed to scan daily summary row",
				slog.String("error", err.Error()))
			return nil, err
		}

		summary[activityType] = total
	}

	if err := rows.Err(); err != nil {
		log.Error("error after scanning rows",
			slog.String("error", err.Error()))
		return nil, err
	}

	log.Debug("daily summary retrieved",
		slog.String("user_id", userID),
		slog.String("date", date),
		slog.Int("activity_count", len(summary)))
	return summary, nil
}

// WithTx implements store.LedgerStore.WithTx
// It returns a new LedgerStore bound to the provided transaction.
func (s *PostgresLedgerStore) WithTx(tx *sql.Tx) store.LedgerStore {
	return &PostgresLedgerStore{
		db:     tx,
		logger: s.logger,
	}
}
