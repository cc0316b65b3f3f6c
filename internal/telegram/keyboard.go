package telegram

import tele "gopkg.in/telebot.v4"

// Callback keys for the main menu buttons.
const (
	cbCheckBalance = "check_balance"
	cbDeposit      = "deposit"
	cbWithdraw     = "withdraw"
)

// inlineBtn describes a convenience wrapper for inline button properties.
type inlineBtn struct {
	Text   string
	Unique string
}

// mainMenu builds the three-option banking menu shown on /start.
func mainMenu() *tele.ReplyMarkup {
	return inlineButtons([]inlineBtn{
		{Text: "Check Balance", Unique: cbCheckBalance},
		{Text: "Deposit", Unique: cbDeposit},
		{Text: "Withdraw", Unique: cbWithdraw},
	})
}

// inlineButtons builds an inline keyboard where each button is placed on its own row.
func inlineButtons(buttons []inlineBtn) *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{}
	inline := make([][]tele.InlineButton, len(buttons))
	for i, btn := range buttons {
		inline[i] = []tele.InlineButton{*markup.Data(btn.Text, btn.Unique).Inline()}
	}
	markup.InlineKeyboard = inline
	return markup
}
