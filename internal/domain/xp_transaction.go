package domain

import (
	"errors"
	"time"
)

// TransactionDateLayout is the calendar-date format used for daily cap
// accounting buckets. Dates are server-local.
const TransactionDateLayout = "2006-01-02"

// Common validation errors for XPTransaction
var (
	ErrEmptyTransactionUserID = errors.New("xp transaction user ID cannot be empty")
	ErrEmptyActivityType      = errors.New("xp transaction activity type cannot be empty")
	ErrNonPositiveAmount      = errors.New("xp amount must be greater than 0")
	ErrInvalidTransactionDate = errors.New("transaction date must be in YYYY-MM-DD format")
	ErrMissingTransactionDate = errors.New("transaction date cannot be empty")
)

// XPTransaction is one immutable row of the XP ledger: a single accepted
// award of XPAmount points to UserID for ActivityType, bucketed under
// TransactionDate for cap accounting. Rows are never updated or deleted.
type XPTransaction struct {
	ID              int64     `json:"id"`
	UserID          string    `json:"user_id"`
	ActivityType    string    `json:"activity_type"`
	XPAmount        int       `json:"xp_amount"`
	TransactionDate string    `json:"transaction_date"`
	CreatedAt       time.Time `json:"created_at"`
}

// NewXPTransaction creates a ledger entry for an accepted award. The ID
// is assigned by the store on append.
func NewXPTransaction(userID, activityType string, xpAmount int, date string) (*XPTransaction, error) {
	txn := &XPTransaction{
		UserID:          userID,
		ActivityType:    activityType,
		XPAmount:        xpAmount,
		TransactionDate: date,
		CreatedAt:       time.Now().UTC(),
	}

	if err := txn.Validate(); err != nil {
		return nil, err
	}

	return txn, nil
}

// Validate checks if the XPTransaction has valid data.
// Returns an error if any field fails validation.
func (t *XPTransaction) Validate() error {
	if t.UserID == "" {
		return ErrEmptyTransactionUserID
	}

	if t.ActivityType == "" {
		return ErrEmptyActivityType
	}

	if t.XPAmount <= 0 {
		return ErrNonPositiveAmount
	}

	if t.TransactionDate == "" {
		return ErrMissingTransactionDate
	}

	if _, err := time.Parse(TransactionDateLayout, t.TransactionDate); err != nil {
		return ErrInvalidTransactionDate
	}

	return nil
}
