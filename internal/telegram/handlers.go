package telegram

import (
	"context"
	"errors"
	"fmt"

	"github.com/mockbank/bankbot/internal/bank"
	"github.com/mockbank/bankbot/internal/session"

	tele "gopkg.in/telebot.v4"
)

// User-visible replies. The wording is part of the bot's contract.
const (
	msgWelcome        = "Welcome to the Mock Bank Bot! Choose an option:"
	msgDepositPrompt  = "How much would you like to deposit?"
	msgWithdrawPrompt = "How much would you like to withdraw?"
	msgInvalidNumber  = "Please enter a valid number."
	msgNonPositive    = "Please enter a value greater than 0."
	msgCancelled      = "Transaction cancelled."
	msgConfirmPrompt  = "Please respond with 'confirm' or 'cancel'."
	msgNoPending      = "Please start the transaction again."
	msgInsufficient   = "Insufficient balance."
)

// Handlers binds the transport to the session machine and the ledger engine.
type Handlers struct {
	Ledger   *bank.Service
	Sessions *session.Manager
}

// NewHandlers wires the bot handlers.
func NewHandlers(ledger *bank.Service, sessions *session.Manager) *Handlers {
	return &Handlers{Ledger: ledger, Sessions: sessions}
}

// Start creates the account on first contact and shows the main menu.
func (h *Handlers) Start(c tele.Context) error {
	ctx := buildContext(c)
	if err := h.Ledger.Register(ctx, c.Sender().ID); err != nil {
		return err
	}
	return c.Send(msgWelcome, mainMenu())
}

// CheckBalance edits the menu message into the current balance statement.
func (h *Handlers) CheckBalance(c tele.Context) error {
	ctx := buildContext(c)
	st, err := h.Ledger.Describe(ctx, c.Sender().ID)
	if err != nil {
		return err
	}
	return c.EditOrSend(fmt.Sprintf("Your balance is: %d\nLast transaction: %s", st.Balance, st.LastTransaction))
}

// Deposit begins the deposit dialogue.
func (h *Handlers) Deposit(c tele.Context) error {
	h.Sessions.Begin(c.Sender().ID, bank.ActionDeposit)
	return c.EditOrSend(msgDepositPrompt)
}

// Withdraw begins the withdraw dialogue.
func (h *Handlers) Withdraw(c tele.Context) error {
	h.Sessions.Begin(c.Sender().ID, bank.ActionWithdraw)
	return c.EditOrSend(msgWithdrawPrompt)
}

// OnText feeds free-text input into the confirmation dialogue.
func (h *Handlers) OnText(c tele.Context) error {
	reply, err := h.HandleText(buildContext(c), c.Sender().ID, c.Text())
	if err != nil {
		return err
	}
	return c.Send(reply)
}

// HandleText advances the session machine with one text input and returns the
// reply for the user. User-input problems never surface as errors; only
// store/ledger failures do.
func (h *Handlers) HandleText(ctx context.Context, userID int64, text string) (string, error) {
	sess := h.Sessions.Get(userID)

	switch sess.State {
	case session.StateAwaitingAmount:
		amount, err := session.ParseAmount(text)
		switch {
		case errors.Is(err, session.ErrNotANumber):
			return msgInvalidNumber, nil
		case errors.Is(err, session.ErrNonPositive):
			return msgNonPositive, nil
		}
		if err := h.Sessions.SetAmount(userID, amount); err != nil {
			return msgNoPending, nil
		}
		return fmt.Sprintf("You entered: %d. Type 'confirm' to proceed or 'cancel' to cancel.", amount), nil

	case session.StateAwaitingConfirmation:
		switch session.ParseDecision(text) {
		case session.DecisionConfirm:
			action, amount, err := h.Sessions.Take(userID)
			if err != nil {
				return msgNoPending, nil
			}
			return h.apply(ctx, userID, action, amount)
		case session.DecisionCancel:
			h.Sessions.Clear(userID)
			return msgCancelled, nil
		default:
			return msgConfirmPrompt, nil
		}
	}

	return msgNoPending, nil
}

func (h *Handlers) apply(ctx context.Context, userID int64, action bank.Action, amount int64) (string, error) {
	res, err := h.Ledger.Apply(ctx, userID, action, amount)
	switch {
	case errors.Is(err, bank.ErrInsufficientFunds):
		return msgInsufficient, nil
	case errors.Is(err, bank.ErrInvalidAmount):
		return msgNonPositive, nil
	case errors.Is(err, bank.ErrBalanceOverflow):
		return msgInvalidNumber, nil
	case err != nil:
		return "", err
	}

	verb := "Deposited"
	if res.Action == bank.ActionWithdraw {
		verb = "Withdrew"
	}
	return fmt.Sprintf("%s %d. New balance: %d", verb, res.Amount, res.NewBalance), nil
}
