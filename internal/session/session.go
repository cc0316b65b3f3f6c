// Package session tracks per-user conversation state for the deposit and
// withdraw confirmation dialogue. Sessions live in process memory only; a
// restart drops every in-flight dialogue by design.
package session

import (
	"errors"
	"sync"

	"github.com/mockbank/bankbot/internal/bank"
)

// State identifies a step of the confirmation dialogue.
type State string

const (
	// StateIdle indicates there is no active dialogue with the user.
	StateIdle State = "idle"
	// StateAwaitingAmount means an action was selected and the user owes an amount.
	StateAwaitingAmount State = "awaiting_amount"
	// StateAwaitingConfirmation means a validated amount is pending confirm/cancel.
	StateAwaitingConfirmation State = "awaiting_confirmation"
)

// ErrNoPendingAction is returned when input arrives for a user without an
// active dialogue step that could consume it.
var ErrNoPendingAction = errors.New("session: no pending action")

// Session stores the pending action and amount for one user.
type Session struct {
	State  State
	Action bank.Action
	Amount int64
}

// Manager owns the process-wide session map keyed by Telegram user ID.
// Entries are created on the first action selection and removed on any
// terminal transition (confirm, cancel).
type Manager struct {
	mu       sync.RWMutex
	sessions map[int64]*Session
}

// NewManager creates an empty session manager.
func NewManager() *Manager {
	return &Manager{sessions: make(map[int64]*Session)}
}

// Get returns a copy of the user's session, or an idle one if none exists.
func (m *Manager) Get(userID int64) Session {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if sess, ok := m.sessions[userID]; ok {
		return *sess
	}
	return Session{State: StateIdle}
}

// Begin starts a dialogue for the chosen action and moves the user to
// StateAwaitingAmount. Selecting a new action replaces any unfinished dialogue.
func (m *Manager) Begin(userID int64, action bank.Action) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.sessions[userID] = &Session{State: StateAwaitingAmount, Action: action}
}

// SetAmount records a validated positive amount and advances the dialogue to
// StateAwaitingConfirmation. The machine may only reach the confirmation step
// through this path, so a pending confirmation always carries a positive
// amount and a selected action.
func (m *Manager) SetAmount(userID, amount int64) error {
	if amount <= 0 {
		return bank.ErrInvalidAmount
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	sess, ok := m.sessions[userID]
	if !ok || sess.State != StateAwaitingAmount || sess.Action == "" {
		return ErrNoPendingAction
	}
	sess.Amount = amount
	sess.State = StateAwaitingConfirmation
	return nil
}

// Take returns the pending action and amount for a user awaiting confirmation
// and clears the session. The caller decides whether the ledger runs; the
// session is gone either way.
func (m *Manager) Take(userID int64) (bank.Action, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, ok := m.sessions[userID]
	if !ok || sess.State != StateAwaitingConfirmation {
		return "", 0, ErrNoPendingAction
	}
	delete(m.sessions, userID)
	return sess.Action, sess.Amount, nil
}

// Clear removes the session for a user regardless of its state.
func (m *Manager) Clear(userID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.sessions, userID)
}

// InProgress reports whether the user has an active dialogue.
func (m *Manager) InProgress(userID int64) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sess, ok := m.sessions[userID]
	return ok && sess.State != StateIdle
}
