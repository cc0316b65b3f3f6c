package bank

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/mockbank/bankbot/internal/storage"
)

func fixedClock() time.Time {
	return time.Date(2024, 3, 15, 9, 30, 45, 123456000, time.UTC)
}

func newTestService() *Service {
	s := NewService(storage.NewMemoryAccounts())
	s.now = fixedClock
	return s
}

func TestApplyDeposit(t *testing.T) {
	s := newTestService()
	ctx := context.Background()

	res, err := s.Apply(ctx, 1, ActionDeposit, 50)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if res.NewBalance != 50 {
		t.Fatalf("balance = %d, want 50", res.NewBalance)
	}

	res, err = s.Apply(ctx, 1, ActionDeposit, 25)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if res.NewBalance != 75 {
		t.Fatalf("balance = %d, want 75", res.NewBalance)
	}
}

func TestApplyWithdraw(t *testing.T) {
	s := newTestService()
	ctx := context.Background()

	if _, err := s.Apply(ctx, 1, ActionDeposit, 100); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	res, err := s.Apply(ctx, 1, ActionWithdraw, 30)
	if err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	if res.NewBalance != 70 {
		t.Fatalf("balance = %d, want 70", res.NewBalance)
	}
}

func TestApplyWithdrawInsufficientFunds(t *testing.T) {
	s := newTestService()
	ctx := context.Background()

	if _, err := s.Apply(ctx, 1, ActionDeposit, 50); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if _, err := s.Apply(ctx, 1, ActionWithdraw, 100); !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("want ErrInsufficientFunds, got %v", err)
	}

	// Rejection must not mutate the record.
	st, err := s.Describe(ctx, 1)
	if err != nil {
		t.Fatalf("Describe: %v", err)
	}
	if st.Balance != 50 {
		t.Fatalf("balance = %d, want 50", st.Balance)
	}
}

func TestApplyDepositOverflowRejected(t *testing.T) {
	s := newTestService()
	ctx := context.Background()

	seed := int64(math.MaxInt64 - 10)
	if _, err := s.Apply(ctx, 1, ActionDeposit, seed); err != nil {
		t.Fatalf("seed deposit: %v", err)
	}
	if _, err := s.Apply(ctx, 1, ActionDeposit, 11); !errors.Is(err, ErrBalanceOverflow) {
		t.Fatalf("want ErrBalanceOverflow, got %v", err)
	}

	// Rejection must not mutate the record.
	st, err := s.Describe(ctx, 1)
	if err != nil {
		t.Fatalf("Describe: %v", err)
	}
	if st.Balance != seed {
		t.Fatalf("balance = %d, want %d", st.Balance, seed)
	}

	// Filling the balance exactly to the ceiling is still allowed.
	res, err := s.Apply(ctx, 1, ActionDeposit, 10)
	if err != nil {
		t.Fatalf("ceiling deposit: %v", err)
	}
	if res.NewBalance != math.MaxInt64 {
		t.Fatalf("balance = %d, want max int64", res.NewBalance)
	}
}

func TestApplyRejectsBadInput(t *testing.T) {
	s := newTestService()
	ctx := context.Background()

	if _, err := s.Apply(ctx, 1, ActionDeposit, 0); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("want ErrInvalidAmount, got %v", err)
	}
	if _, err := s.Apply(ctx, 1, ActionWithdraw, -10); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("want ErrInvalidAmount, got %v", err)
	}
	if _, err := s.Apply(ctx, 1, Action("transfer"), 10); !errors.Is(err, ErrUnknownAction) {
		t.Fatalf("want ErrUnknownAction, got %v", err)
	}
}

func TestDescribeNewUser(t *testing.T) {
	s := newTestService()

	st, err := s.Describe(context.Background(), 42)
	if err != nil {
		t.Fatalf("Describe: %v", err)
	}
	if st.Balance != 0 {
		t.Fatalf("balance = %d, want 0", st.Balance)
	}
	if st.LastTransaction != NoTransactions {
		t.Fatalf("last = %q, want %q", st.LastTransaction, NoTransactions)
	}
}

func TestDescribeReformatsTimestamp(t *testing.T) {
	s := newTestService()
	ctx := context.Background()

	if _, err := s.Apply(ctx, 1, ActionDeposit, 50); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	st, err := s.Describe(ctx, 1)
	if err != nil {
		t.Fatalf("Describe: %v", err)
	}
	want := "Deposited 50 on 15/03/2024 09:30:45"
	if st.LastTransaction != want {
		t.Fatalf("last = %q, want %q", st.LastTransaction, want)
	}
}

func TestDescribeIsIdempotent(t *testing.T) {
	s := newTestService()
	ctx := context.Background()

	if _, err := s.Apply(ctx, 1, ActionWithdraw, 10); !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected rejection, got %v", err)
	}
	first, err := s.Describe(ctx, 1)
	if err != nil {
		t.Fatalf("Describe: %v", err)
	}
	second, err := s.Describe(ctx, 1)
	if err != nil {
		t.Fatalf("Describe: %v", err)
	}
	if first != second {
		t.Fatalf("repeated inquiry changed: %+v vs %+v", first, second)
	}
}

// conflictingAccounts fails the first n updates with a version conflict.
type conflictingAccounts struct {
	inner     storage.Accounts
	conflicts int
}

func (c *conflictingAccounts) FindOrCreate(ctx context.Context, userID int64) (storage.Account, error) {
	return c.inner.FindOrCreate(ctx, userID)
}

func (c *conflictingAccounts) Update(ctx context.Context, userID, balance int64, lastTransaction string, version int64) error {
	if c.conflicts > 0 {
		c.conflicts--
		return storage.ErrVersionConflict
	}
	return c.inner.Update(ctx, userID, balance, lastTransaction, version)
}

func TestApplyRetriesOnVersionConflict(t *testing.T) {
	store := &conflictingAccounts{inner: storage.NewMemoryAccounts(), conflicts: 2}
	s := NewService(store)
	s.now = fixedClock

	res, err := s.Apply(context.Background(), 1, ActionDeposit, 10)
	if err != nil {
		t.Fatalf("Apply should retry past conflicts: %v", err)
	}
	if res.NewBalance != 10 {
		t.Fatalf("balance = %d, want 10", res.NewBalance)
	}
}

func TestApplyGivesUpAfterRepeatedConflicts(t *testing.T) {
	store := &conflictingAccounts{inner: storage.NewMemoryAccounts(), conflicts: 10}
	s := NewService(store)
	s.now = fixedClock

	if _, err := s.Apply(context.Background(), 1, ActionDeposit, 10); !errors.Is(err, ErrConflict) {
		t.Fatalf("want ErrConflict, got %v", err)
	}
}

func TestFormatForDisplayKeepsUnparsableSummary(t *testing.T) {
	raw := "Deposited 50 on someday"
	if got := formatForDisplay(raw); got != raw {
		t.Fatalf("got %q, want raw summary", got)
	}
	noMarker := "manual adjustment"
	if got := formatForDisplay(noMarker); got != noMarker {
		t.Fatalf("got %q, want unchanged", got)
	}
}
