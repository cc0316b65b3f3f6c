package storage

import (
	"context"
	"database/sql"
	"sync"
)

// MemoryAccounts is an in-memory Accounts implementation for tests and
// local development without Postgres.
type MemoryAccounts struct {
	mu       sync.Mutex
	accounts map[int64]*Account
}

// NewMemoryAccounts creates an empty in-memory store.
func NewMemoryAccounts() *MemoryAccounts {
	return &MemoryAccounts{accounts: make(map[int64]*Account)}
}

// FindOrCreate returns a copy of the stored account, creating a default one if absent.
func (m *MemoryAccounts) FindOrCreate(_ context.Context, userID int64) (Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	acc, ok := m.accounts[userID]
	if !ok {
		acc = &Account{UserID: userID}
		m.accounts[userID] = acc
	}
	return *acc, nil
}

// Update applies the write only when the observed version still matches.
func (m *MemoryAccounts) Update(_ context.Context, userID, balance int64, lastTransaction string, version int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	acc, ok := m.accounts[userID]
	if !ok || acc.Version != version {
		return ErrVersionConflict
	}
	acc.Balance = balance
	acc.LastTransaction = sql.NullString{String: lastTransaction, Valid: lastTransaction != ""}
	acc.Version++
	return nil
}

var _ Accounts = (*MemoryAccounts)(nil)
