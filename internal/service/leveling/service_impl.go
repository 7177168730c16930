package leveling

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

// Verify interface compliance at compile time
var _ Service = (*levelingServiceImpl)(nil)

// levelingServiceImpl implements the Service interface.
type levelingServiceImpl struct {
	db     *sql.DB
	ledger store.LedgerStore
	states store.XPStateStore
	logger *slog.Logger

	// clock is swappable in tests; defaults to time.Now.
	clock func() time.Time
}

// NewService creates a new leveling Service implementation.
func NewService(
	db *sql.DB,
	ledger store.LedgerStore,
	states store.XPStateStore,
	logger *slog.Logger,
) Service {
	if db == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("db cannot be nil")
	}
	if ledger == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("ledger cannot be nil")
	}
	if states == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("states cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &levelingServiceImpl{
		db:     db,
		ledger: ledger,
		states: states,
		logger: logger.With(slog.String("component", "leveling_service")),
		clock:  time.Now,
	}
}

// Award implements Service.Award.
//
// The entire operation runs inside a single transaction that locks the
// user's state row before reading the daily sum. That lock serializes
// concurrent awards for the same user, so two requests can never both
// observe headroom under the cap and jointly exceed it.
func (s *levelingServiceImpl) Award(ctx context.Context, req AwardRequest) (*AwardResult, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if req.UserID == "" || req.ActivityType == "" || req.XPAmount <= 0 {
		log.Warn("rejecting malformed award request",
			slog.String("user_id", req.UserID),
			slog.String("activity_type", req.ActivityType),
			slog.Int("xp_amount", req.XPAmount))
		return nil, ErrInvalidRequest
	}

	date := s.clock().Format(domain.TransactionDateLayout)

	var result *AwardResult
	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		ledger := s.ledger.WithTx(tx)
		states := s.states.WithTx(tx)

		// Create the zero state lazily, then take the row lock. Locking
		// before the daily-sum read is what closes the check-then-act
		// race on the cap.
		if err := states.Ensure(ctx, req.UserID); err != nil {
			return fmt.Errorf("failed to ensure xp state: %w", err)
		}

		state, err := states.GetForUpdate(ctx, req.UserID)
		if err != nil {
			return fmt.Errorf("failed to lock xp state: %w", err)
		}

		dailyXP, err := ledger.SumForDay(ctx, req.UserID, req.ActivityType, date)
		if err != nil {
			return fmt.Errorf("failed to read daily XP: %w", err)
		}

		cap, capped := domain.DailyCap(req.ActivityType)
		if capped && dailyXP >= cap {
			return &DailyCapExceededError{
				ActivityType: req.ActivityType,
				DailyXP:      dailyXP,
				Cap:          cap,
			}
		}

		admissible := req.XPAmount
		if capped {
			admissible = cap - dailyXP
		}

		actualAmount := req.XPAmount
		if admissible < actualAmount {
			actualAmount = admissible
		}
		if actualAmount <= 0 {
			return ErrNoRemainingAllowance
		}

		txn, err := domain.NewXPTransaction(req.UserID, req.ActivityType, actualAmount, date)
		if err != nil {
			return fmt.Errorf("failed to build ledger entry: %w", err)
		}
		if err := ledger.Append(ctx, txn); err != nil {
			return fmt.Errorf("failed to append ledger entry: %w", err)
		}

		oldLevel := state.Level
		newXP := state.CurrentXP + actualAmount
		newLevel := domain.LevelForXP(newXP)
		newBones := state.Bones

		if newLevel > oldLevel {
			// Credit bones for every level gained, so a single large
			// award that crosses several thresholds pays each one.
			newBones += domain.BonesPerLevel * (newLevel - oldLevel)
		} else {
			// Level never decreases; XP is monotone so this only guards
			// against a state row ahead of the derived level.
			newLevel = oldLevel
		}

		state.CurrentXP = newXP
		state.Level = newLevel
		state.Bones = newBones
		state.UpdatedAt = s.clock().UTC()

		if err := states.Update(ctx, state); err != nil {
			return fmt.Errorf("failed to update xp state: %w", err)
		}

		result = &AwardResult{
			XPAwarded: actualAmount,
			CurrentXP: newXP,
			Level:     newLevel,
			Bones:     newBones,
			LeveledUp: newLevel > oldLevel,
		}
		return nil
	})

	if err != nil {
		// Business-rule rejections pass through untouched.
		if errors.Is(err, ErrDailyCapExceeded) || errors.Is(err, ErrNoRemainingAllowance) {
			log.Debug("award rejected",
				slog.String("user_id", req.UserID),
				slog.String("activity_type", req.ActivityType),
				slog.String("reason", err.Error()))
			return nil, err
		}

		log.Error("failed to process award",
			slog.String("error", err.Error()),
			slog.String("user_id", req.UserID),
			slog.String("activity_type", req.ActivityType))
		return nil, err
	}

	log.Info("xp awarded",
		slog.String("user_id", req.UserID),
		slog.String("activity_type", req.ActivityType),
		slog.Int("xp_awarded", result.XPAwarded),
		slog.Int("current_xp", result.CurrentXP),
		slog.Int("level", result.Level),
		slog.Bool("leveled_up", result.LeveledUp))

	return result, nil
}

// GetState implements Service.GetState.
func (s *levelingServiceImpl) GetState(ctx context.Context, userID string) (*domain.UserXPState, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if userID == "" {
		return nil, ErrInvalidRequest
	}

	if err := s.states.Ensure(ctx, userID); err != nil {
		log.Error("failed to ensure xp state",
			slog.String("error", err.Error()),
			slog.String("user_id", userID))
		return nil, err
	}

	state, err := s.states.Get(ctx, userID)
	if err != nil {
		log.Error("failed to get xp state",
			slog.String("error", err.Error()),
			slog.String("user_id", userID))
		return nil, err
	}

	return state, nil
}

// DailySummary implements Service.DailySummary.
func (s *levelingServiceImpl) DailySummary(ctx context.Context, userID, date string) (map[string]int, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if userID == "" {
		return nil, ErrInvalidRequest
	}

	if date == "" {
		date = s.clock().Format(domain.TransactionDateLayout)
	} else if _, err := time.Parse(domain.TransactionDateLayout, date); err != nil {
		return nil, ErrInvalidRequest
	}

	summary, err := s.ledger.DailySummary(ctx, userID, date)
	if err != nil {
		log.Error("failed to get daily summary",
			slog.String("error", err.Error()),
			slog.String("user_id", userID),
			slog.String("date", date))
		return nil, err
	}

	return summary, nil
}
