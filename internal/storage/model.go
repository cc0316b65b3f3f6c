package storage

import (
	"context"
	"database/sql"
	"errors"
)

// ErrVersionConflict is returned when an update lost the race against a
// concurrent writer and should be retried from a fresh read.
var ErrVersionConflict = errors.New("storage: account version conflict")

// Account is the persisted ledger record for a single Telegram user.
type Account struct {
	UserID          int64          `db:"user_id"`
	Balance         int64          `db:"balance"`
	LastTransaction sql.NullString `db:"last_transaction"`
	Version         int64          `db:"version"`
}

// Accounts provides access to persisted ledger records.
type Accounts interface {
	// FindOrCreate returns the account for userID, creating it with a zero
	// balance and no last transaction when it does not exist yet.
	FindOrCreate(ctx context.Context, userID int64) (Account, error)

	// Update replaces balance and last_transaction for userID. The write is
	// conditioned on the version observed at read time; ErrVersionConflict is
	// returned when a concurrent writer got there first.
	Update(ctx context.Context, userID, balance int64, lastTransaction string, version int64) error
}
