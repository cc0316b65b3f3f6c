// Package bank implements the ledger operation engine: validated balance
// mutations against the persisted account record and balance inquiry.
package bank

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/mockbank/bankbot/internal/logger"
	"github.com/mockbank/bankbot/internal/metrics"
	"github.com/mockbank/bankbot/internal/storage"
	"log/slog"
)

// Action identifies a ledger mutation kind.
type Action string

const (
	// ActionDeposit adds funds to the account.
	ActionDeposit Action = "deposit"
	// ActionWithdraw removes funds from the account.
	ActionWithdraw Action = "withdraw"
)

const (
	// persistLayout records the full write-time timestamp with sub-second precision.
	persistLayout = "2006-01-02 15:04:05.000000"
	// displayLayout is the day/month/year form used for balance inquiry.
	displayLayout = "02/01/2006 15:04:05"

	// NoTransactions is the sentinel shown when the account has no history.
	NoTransactions = "No transactions yet"

	// updateAttempts bounds retries when a concurrent confirmation races the write.
	updateAttempts = 3
)

// Result describes a successfully applied ledger operation.
type Result struct {
	Action     Action
	Amount     int64
	NewBalance int64
}

// Statement is the read-only view returned by Describe.
type Statement struct {
	Balance         int64
	LastTransaction string
}

// Service applies ledger operations against the account store.
type Service struct {
	accounts storage.Accounts
	now      func() time.Time
}

// NewService wires the engine to an account store.
func NewService(accounts storage.Accounts) *Service {
	return &Service{accounts: accounts, now: time.Now}
}

// Register ensures the account record exists, creating it with a zero
// balance on first contact.
func (s *Service) Register(ctx context.Context, userID int64) error {
	_, err := s.accounts.FindOrCreate(ctx, userID)
	return err
}

// Apply validates and executes a deposit or withdrawal for the given user.
// The account is created with a zero balance if the user has never been seen.
// The balance write is conditioned on the version read just before; on
// conflict the read-modify-write is retried a bounded number of times.
func (s *Service) Apply(ctx context.Context, userID int64, action Action, amount int64) (Result, error) {
	if amount <= 0 {
		return Result{}, ErrInvalidAmount
	}
	if action != ActionDeposit && action != ActionWithdraw {
		return Result{}, fmt.Errorf("%w: %q", ErrUnknownAction, action)
	}

	var lastErr error
	for attempt := 0; attempt < updateAttempts; attempt++ {
		acc, err := s.accounts.FindOrCreate(ctx, userID)
		if err != nil {
			return Result{}, err
		}

		var newBalance int64
		switch action {
		case ActionDeposit:
			if amount > math.MaxInt64-acc.Balance {
				metrics.LedgerOpsTotal.WithLabelValues(string(action), "overflow").Inc()
				return Result{}, ErrBalanceOverflow
			}
			newBalance = acc.Balance + amount
		case ActionWithdraw:
			if amount > acc.Balance {
				metrics.LedgerOpsTotal.WithLabelValues(string(action), "insufficient_funds").Inc()
				return Result{}, ErrInsufficientFunds
			}
			newBalance = acc.Balance - amount
		}

		summary := s.summarize(action, amount)
		err = s.accounts.Update(ctx, userID, newBalance, summary, acc.Version)
		if errors.Is(err, storage.ErrVersionConflict) {
			lastErr = err
			continue
		}
		if err != nil {
			return Result{}, err
		}

		logger.Info(ctx, "bank", "ledger.apply",
			slog.Int64("user_id", userID),
			slog.String("action", string(action)),
			slog.Int64("amount", amount),
			slog.Int64("balance", newBalance),
			slog.String("status", "ok"),
		)
		metrics.LedgerOpsTotal.WithLabelValues(string(action), "ok").Inc()
		return Result{Action: action, Amount: amount, NewBalance: newBalance}, nil
	}

	return Result{}, fmt.Errorf("%w: %v", ErrConflict, lastErr)
}

// Describe reads the persisted record and returns the current balance with
// the last transaction reformatted for display. Pure read, no mutation.
func (s *Service) Describe(ctx context.Context, userID int64) (Statement, error) {
	acc, err := s.accounts.FindOrCreate(ctx, userID)
	if err != nil {
		return Statement{}, err
	}

	last := NoTransactions
	if acc.LastTransaction.Valid && acc.LastTransaction.String != "" {
		last = formatForDisplay(acc.LastTransaction.String)
	}
	return Statement{Balance: acc.Balance, LastTransaction: last}, nil
}

func (s *Service) summarize(action Action, amount int64) string {
	ts := s.now().Format(persistLayout)
	switch action {
	case ActionWithdraw:
		return fmt.Sprintf("Withdrew %d on %s", amount, ts)
	default:
		return fmt.Sprintf("Deposited %d on %s", amount, ts)
	}
}

// formatForDisplay rewrites the persisted "<verb> <amount> on <timestamp>"
// summary with a day/month/year timestamp. The raw summary is returned when
// the timestamp does not parse.
func formatForDisplay(summary string) string {
	idx := strings.LastIndex(summary, " on ")
	if idx < 0 {
		return summary
	}
	prefix, raw := summary[:idx], summary[idx+len(" on "):]
	ts, err := time.Parse(persistLayout, raw)
	if err != nil {
		return summary
	}
	return prefix + " on " + ts.Format(displayLayout)
}
