package domain

import (
	"errors"
	"time"
)

// Common validation errors for UserXPState
var (
	ErrEmptyStateUserID = errors.New("xp state user ID cannot be empty")
	ErrNegativeXP       = errors.New("current XP cannot be negative")
	ErrInvalidLevel     = errors.New("level must be greater than or equal to 1")
	ErrNegativeBones    = errors.New("bones balance cannot be negative")
)

// UserXPState is the cached per-user reduction of the XP ledger: the
// running XP total, the level derived from it, and the bones balance
// credited on level-ups. It is mutated exclusively by the leveling
// service, never by callers.
type UserXPState struct {
	UserID    string    `json:"user_id"`
	CurrentXP int       `json:"current_xp"`
	Level     int       `json:"level"`
	Bones     int       `json:"bones"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewUserXPState creates the zero state for a user that has not earned
// any XP yet: 0 XP, level 1, 0 bones.
func NewUserXPState(userID string) (*UserXPState, error) {
	now := time.Now().UTC()
	state := &UserXPState{
		UserID:    userID,
		CurrentXP: 0,
		Level:     1,
		Bones:     0,
		UpdatedAt: now,
	}

	if err := state.Validate(); err != nil {
		return nil, err
	}

	return state, nil
}

// Validate checks if the UserXPState has valid data.
// Returns an error if any field fails validation.
func (s *UserXPState) Validate() error {
	if s.UserID == "" {
		return ErrEmptyStateUserID
	}

	if s.CurrentXP < 0 {
		return ErrNegativeXP
	}

	if s.Level < 1 {
		return ErrInvalidLevel
	}

	if s.Bones < 0 {
		return ErrNegativeBones
	}

	return nil
}
