package types

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Action identifies one of the contract-mutating user actions.
type Action string

const (
	// ActionNone means no action is in flight.
	ActionNone         Action = ""
	ActionDeposit      Action = "deposit"
	ActionWithdraw     Action = "withdraw"
	ActionOwnerDeposit Action = "ownerDeposit"
)

// Actions lists the write actions in display order.
var Actions = []Action{ActionDeposit, ActionWithdraw, ActionOwnerDeposit}

// Valid returns true if the action is one of the write actions.
func (a Action) Valid() bool {
	switch a {
	case ActionDeposit, ActionWithdraw, ActionOwnerDeposit:
		return true
	}
	return false
}

func (a Action) String() string {
	if a == ActionNone {
		return "none"
	}
	return string(a)
}

func (a Action) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

func (a *Action) UnmarshalText(text []byte) error {
	switch s := string(text); s {
	case "none", "":
		*a = ActionNone
	default:
		*a = Action(s)
	}
	return nil
}

// Severity is the display level of a status message.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeveritySuccess Severity = "success"
)

// StatusMessage is the single most recent message shown to the user.
type StatusMessage struct {
	Kind Severity  `json:"kind"`
	Text string    `json:"text"`
	Time time.Time `json:"time"`
}

// DepositState holds the last balance and interest read from the contract,
// formatted in ether. It is a snapshot, not a live view.
type DepositState struct {
	Balance  string `json:"balance"`
	Interest string `json:"interest"`
}

// EmptyDepositState returns the state shown before the first refresh.
func EmptyDepositState() DepositState {
	return DepositState{Balance: "0", Interest: "0"}
}

// Snapshot is everything the presentation layer needs to render the page.
type Snapshot struct {
	Address   *common.Address   `json:"address"`
	Connected bool              `json:"connected"`
	IsOwner   bool              `json:"isOwner"`
	State     DepositState      `json:"state"`
	Pending   Action            `json:"pending"`
	Inputs    map[Action]string `json:"inputs"`
	Status    *StatusMessage    `json:"status,omitempty"`
}
