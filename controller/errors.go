package controller

import (
	"errors"
	"strings"

	"github.com/vocdoni/prodeposit-dapp/i18n"
	"github.com/vocdoni/prodeposit-dapp/types"
)

var (
	// ErrBusy is returned when a write action is already in flight.
	ErrBusy = errors.New("another action is in progress")
	// ErrNotConnected is returned when there is no bound contract or no
	// connected address.
	ErrNotConnected = errors.New("wallet not connected")
	// ErrEmptyAmount is returned when the input field of the action is empty.
	ErrEmptyAmount = errors.New("amount is empty")
	// ErrNotOwner is returned on owner-only actions when the connected
	// address is not the contract owner.
	ErrNotOwner = errors.New("connected address is not the contract owner")
	// ErrUnknownAction is returned for actions other than deposit, withdraw
	// and ownerDeposit.
	ErrUnknownAction = errors.New("unknown action")
)

// Kind is the failure category of a lifecycle.
type Kind int

const (
	Unclassified Kind = iota
	InsufficientFunds
	UserRejected
	BalanceExceeded
	NonceConflict
)

func (k Kind) String() string {
	switch k {
	case InsufficientFunds:
		return "insufficient_funds"
	case UserRejected:
		return "user_rejected"
	case BalanceExceeded:
		return "balance_exceeded"
	case NonceConflict:
		return "nonce_conflict"
	default:
		return "unclassified"
	}
}

// Severity returns how the failure is displayed. Only user rejections are
// warnings.
func (k Kind) Severity() types.Severity {
	if k == UserRejected {
		return types.SeverityWarning
	}
	return types.SeverityError
}

// Classify maps an error to its Kind by looking for known substrings in the
// error text. The first matching rule wins:
//
//  1. "insufficient funds"
//  2. "user rejected" (any case)
//  3. "cannot withdraw more than balance"
//  4. "nonce" (any case)
//
// Anything else is Unclassified.
func Classify(err error) Kind {
	if err == nil {
		return Unclassified
	}
	msg := err.Error()
	lower := strings.ToLower(msg)
	switch {
	case strings.Contains(msg, "insufficient funds"):
		return InsufficientFunds
	case strings.Contains(lower, "user rejected"):
		return UserRejected
	case strings.Contains(msg, "cannot withdraw more than balance"):
		return BalanceExceeded
	case strings.Contains(lower, "nonce"):
		return NonceConflict
	}
	return Unclassified
}

// TxError is a classified lifecycle failure.
type TxError struct {
	Action types.Action
	Kind   Kind
	Err    error
}

func (e *TxError) Error() string {
	return e.Err.Error()
}

func (e *TxError) Unwrap() error {
	return e.Err
}

// Describe returns the severity and the text shown for err. Unclassified
// errors are shown with the message of the innermost wrapped error.
func Describe(catalog *i18n.Catalog, err error) (types.Severity, string) {
	kind := Classify(err)
	switch kind {
	case InsufficientFunds:
		return kind.Severity(), catalog.Text(i18n.InsufficientFunds)
	case UserRejected:
		return kind.Severity(), catalog.Text(i18n.UserRejected)
	case BalanceExceeded:
		return kind.Severity(), catalog.Text(i18n.BalanceExceeded)
	case NonceConflict:
		return kind.Severity(), catalog.Text(i18n.NonceConflict)
	}
	return kind.Severity(), rootCause(err).Error()
}

func rootCause(err error) error {
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return err
		}
		err = next
	}
}
