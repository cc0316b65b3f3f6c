package session

import (
	"errors"
	"strconv"
	"strings"
)

// Decision is the tagged result of parsing a confirmation reply.
type Decision int

const (
	// DecisionOther covers any reply that is neither confirm nor cancel.
	DecisionOther Decision = iota
	// DecisionConfirm applies the pending operation.
	DecisionConfirm
	// DecisionCancel discards the pending operation.
	DecisionCancel
)

var (
	// ErrNotANumber rejects amount input that does not parse as an integer.
	ErrNotANumber = errors.New("session: not a number")
	// ErrNonPositive rejects zero or negative amount input.
	ErrNonPositive = errors.New("session: amount must be greater than zero")
)

// ParseDecision matches confirm/cancel case-insensitively after trimming.
func ParseDecision(text string) Decision {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "confirm":
		return DecisionConfirm
	case "cancel":
		return DecisionCancel
	}
	return DecisionOther
}

// ParseAmount validates free-text amount input as a positive integer.
func ParseAmount(text string) (int64, error) {
	amount, err := strconv.ParseInt(strings.TrimSpace(text), 10, 64)
	if err != nil {
		return 0, ErrNotANumber
	}
	if amount <= 0 {
		return 0, ErrNonPositive
	}
	return amount, nil
}
