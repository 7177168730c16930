package leveling

import (
	"errors"
	"fmt"
)

// Service-level errors surfaced to callers as distinct, inspectable
// outcomes. None of them are retried inside the service.
var (
	// ErrInvalidRequest indicates missing or malformed award input
	// (empty user ID or activity type, non-positive amount). Caller
	// error; retrying the same request will not help.
	ErrInvalidRequest = errors.New("invalid award request")

	// ErrDailyCapExceeded indicates the user has already reached the
	// activity's daily cap. Expected business-rule rejection; match
	// concrete details with errors.As on *DailyCapExceededError.
	ErrDailyCapExceeded = errors.New("daily XP cap exceeded")

	// ErrNoRemainingAllowance is the degenerate case of the cap check:
	// some allowance arithmetic left nothing admissible to award.
	ErrNoRemainingAllowance = errors.New("no remaining XP allowance for today")
)

// DailyCapExceededError carries the cap-accounting details of a rejected
// award so the HTTP layer can report them to the end user.
type DailyCapExceededError struct {
	ActivityType string
	DailyXP      int
	Cap          int
}

// Error implements the error interface.
func (e *DailyCapExceededError) Error() string {
	return fmt.Sprintf(
		"daily XP cap exceeded for activity %q: earned %d of %d",
		e.ActivityType,
		e.DailyXP,
		e.Cap,
	)
}

// Is reports a match against ErrDailyCapExceeded so callers can use
// errors.Is without knowing the concrete type.
func (e *DailyCapExceededError) Is(target error) bool {
	return target == ErrDailyCapExceeded
}
