package bank

import "errors"

var (
	// ErrInsufficientFunds rejects a withdrawal exceeding the current balance.
	ErrInsufficientFunds = errors.New("bank: insufficient funds")

	// ErrInvalidAmount rejects a non-positive amount. The session machine
	// validates amounts before confirmation, so hitting this from the normal
	// flow means a caller bypassed the machine.
	ErrInvalidAmount = errors.New("bank: amount must be positive")

	// ErrUnknownAction rejects an action outside deposit/withdraw.
	ErrUnknownAction = errors.New("bank: unknown action")

	// ErrBalanceOverflow rejects a deposit that would push the balance past
	// the int64 range.
	ErrBalanceOverflow = errors.New("bank: balance overflow")

	// ErrConflict reports that the account kept changing underneath the
	// operation and the bounded retry budget ran out.
	ErrConflict = errors.New("bank: account update conflict")
)
