// Package leveling implements the XP award engine: per-activity daily
// caps, level derivation from accumulated XP, and bones credits on
// level-up. Every award runs as one atomic unit against the ledger and
// the per-user aggregate state.
package leveling

import (
	"context"

	"github.com/studyforge/xp-api/internal/domain"
)

// AwardRequest describes one requested XP award.
type AwardRequest struct {
	UserID       string
	ActivityType string
	XPAmount     int
}

// AwardResult reports the outcome of a successful award.
type AwardResult struct {
	// XPAwarded is the amount actually credited after cap clamping;
	// it may be less than the requested amount.
	XPAwarded int
	// CurrentXP, Level and Bones reflect the user's state after the award.
	CurrentXP int
	Level     int
	Bones     int
	// LeveledUp is true when this award crossed at least one level
	// threshold.
	LeveledUp bool
}

// Service is the leveling engine consumed by the HTTP layer.
type Service interface {
	// Award credits XP to a user for an activity, clamped to the
	// activity's remaining daily allowance. The ledger append and the
	// aggregate state update commit together or not at all.
	//
	// Returns ErrInvalidRequest for malformed input,
	// *DailyCapExceededError when the cap is already reached,
	// ErrNoRemainingAllowance when clamping leaves nothing to award, and
	// the underlying storage error when persistence fails (in which case
	// nothing was committed and the whole request is safe to retry).
	Award(ctx context.Context, req AwardRequest) (*AwardResult, error)

	// GetState returns the user's aggregate XP state, lazily creating
	// and persisting the zero state for users never seen before.
	// Repeated calls are idempotent.
	GetState(ctx context.Context, userID string) (*domain.UserXPState, error)

	// DailySummary returns the per-activity XP totals for a user on the
	// given date ("YYYY-MM-DD"). An empty date means today.
	DailySummary(ctx context.Context, userID, date string) (map[string]int, error)
}
