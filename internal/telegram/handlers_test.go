package telegram

import (
	"context"
	"strings"
	"testing"

	"github.com/mockbank/bankbot/internal/bank"
	"github.com/mockbank/bankbot/internal/session"
	"github.com/mockbank/bankbot/internal/storage"
)

func newTestHandlers() *Handlers {
	return NewHandlers(bank.NewService(storage.NewMemoryAccounts()), session.NewManager())
}

func mustReply(t *testing.T, h *Handlers, userID int64, text string) string {
	t.Helper()
	reply, err := h.HandleText(context.Background(), userID, text)
	if err != nil {
		t.Fatalf("HandleText(%q): %v", text, err)
	}
	return reply
}

func balance(t *testing.T, h *Handlers, userID int64) int64 {
	t.Helper()
	st, err := h.Ledger.Describe(context.Background(), userID)
	if err != nil {
		t.Fatalf("Describe: %v", err)
	}
	return st.Balance
}

func TestNewUserInquiry(t *testing.T) {
	h := newTestHandlers()
	ctx := context.Background()

	if err := h.Ledger.Register(ctx, 1); err != nil {
		t.Fatalf("Register: %v", err)
	}
	st, err := h.Ledger.Describe(ctx, 1)
	if err != nil {
		t.Fatalf("Describe: %v", err)
	}
	if st.Balance != 0 || st.LastTransaction != bank.NoTransactions {
		t.Fatalf("unexpected statement: %+v", st)
	}
}

func TestDepositFlow(t *testing.T) {
	h := newTestHandlers()
	const user = int64(1)

	h.Sessions.Begin(user, bank.ActionDeposit)
	reply := mustReply(t, h, user, "50")
	if reply != "You entered: 50. Type 'confirm' to proceed or 'cancel' to cancel." {
		t.Fatalf("unexpected echo: %q", reply)
	}

	reply = mustReply(t, h, user, "confirm")
	if reply != "Deposited 50. New balance: 50" {
		t.Fatalf("unexpected confirmation reply: %q", reply)
	}
	if got := balance(t, h, user); got != 50 {
		t.Fatalf("balance = %d, want 50", got)
	}

	st, err := h.Ledger.Describe(context.Background(), user)
	if err != nil {
		t.Fatalf("Describe: %v", err)
	}
	if !strings.HasPrefix(st.LastTransaction, "Deposited 50 on ") {
		t.Fatalf("last transaction = %q", st.LastTransaction)
	}
	if h.Sessions.InProgress(user) {
		t.Fatal("session should be cleared after confirm")
	}
}

func TestWithdrawInsufficientFunds(t *testing.T) {
	h := newTestHandlers()
	const user = int64(1)

	h.Sessions.Begin(user, bank.ActionDeposit)
	mustReply(t, h, user, "50")
	mustReply(t, h, user, "confirm")

	h.Sessions.Begin(user, bank.ActionWithdraw)
	mustReply(t, h, user, "100")
	reply := mustReply(t, h, user, "confirm")
	if reply != msgInsufficient {
		t.Fatalf("reply = %q, want %q", reply, msgInsufficient)
	}
	if got := balance(t, h, user); got != 50 {
		t.Fatalf("balance = %d, want 50 after rejection", got)
	}
	if h.Sessions.InProgress(user) {
		t.Fatal("session should be cleared even when the ledger rejects")
	}
}

func TestInvalidAmountThenCancel(t *testing.T) {
	h := newTestHandlers()
	const user = int64(1)

	h.Sessions.Begin(user, bank.ActionDeposit)

	if reply := mustReply(t, h, user, "abc"); reply != msgInvalidNumber {
		t.Fatalf("reply = %q, want %q", reply, msgInvalidNumber)
	}
	// Still collecting the amount.
	if got := h.Sessions.Get(user).State; got != session.StateAwaitingAmount {
		t.Fatalf("state = %s, want awaiting_amount", got)
	}

	mustReply(t, h, user, "20")
	if reply := mustReply(t, h, user, "cancel"); reply != msgCancelled {
		t.Fatalf("reply = %q, want %q", reply, msgCancelled)
	}
	if got := balance(t, h, user); got != 0 {
		t.Fatalf("balance = %d, want 0 after cancel", got)
	}
	if h.Sessions.InProgress(user) {
		t.Fatal("session should be cleared after cancel")
	}
}

func TestNonPositiveAmount(t *testing.T) {
	h := newTestHandlers()
	const user = int64(1)

	h.Sessions.Begin(user, bank.ActionWithdraw)
	if reply := mustReply(t, h, user, "0"); reply != msgNonPositive {
		t.Fatalf("reply = %q, want %q", reply, msgNonPositive)
	}
	if reply := mustReply(t, h, user, "-5"); reply != msgNonPositive {
		t.Fatalf("reply = %q, want %q", reply, msgNonPositive)
	}
}

func TestTextWithoutPendingAction(t *testing.T) {
	h := newTestHandlers()

	if reply := mustReply(t, h, 1, "anything at all"); reply != msgNoPending {
		t.Fatalf("reply = %q, want %q", reply, msgNoPending)
	}
}

func TestUnrecognizedConfirmationReprompts(t *testing.T) {
	h := newTestHandlers()
	const user = int64(1)

	h.Sessions.Begin(user, bank.ActionDeposit)
	mustReply(t, h, user, "10")

	if reply := mustReply(t, h, user, "maybe"); reply != msgConfirmPrompt {
		t.Fatalf("reply = %q, want %q", reply, msgConfirmPrompt)
	}
	// Re-prompt must keep the pending operation intact.
	if reply := mustReply(t, h, user, "CONFIRM"); reply != "Deposited 10. New balance: 10" {
		t.Fatalf("reply = %q", reply)
	}
}

func TestCancelNeverMutatesBalance(t *testing.T) {
	h := newTestHandlers()
	const user = int64(1)

	for _, amount := range []string{"1", "999", "123456"} {
		h.Sessions.Begin(user, bank.ActionDeposit)
		mustReply(t, h, user, amount)
		mustReply(t, h, user, "cancel")
	}
	if got := balance(t, h, user); got != 0 {
		t.Fatalf("balance = %d, want 0", got)
	}
}
