package controller

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/vocdoni/prodeposit-dapp/i18n"
	"github.com/vocdoni/prodeposit-dapp/log"
	"github.com/vocdoni/prodeposit-dapp/metrics"
	"github.com/vocdoni/prodeposit-dapp/types"
)

// lifecycle is one submit, confirm and refresh cycle of a write action.
type lifecycle struct {
	c        *Controller
	id       uuid.UUID
	action   types.Action
	amount   string
	contract Contract
	address  common.Address
	gen      uint64
	start    time.Time
}

// Run executes the whole lifecycle of the action with the amount stored in
// its input field and returns once the transaction is confirmed and the state
// refreshed, or on the first failure. Failures are classified, posted to the
// status banner and returned as *TxError. A trigger while another action is
// in flight returns ErrBusy and does nothing.
func (c *Controller) Run(ctx context.Context, action types.Action) error {
	lc, err := c.begin(action, nil)
	if err != nil {
		return err
	}
	return lc.run(ctx)
}

// Go starts the lifecycle of the action and returns its id as soon as the
// preconditions are checked. If amount is not nil it replaces the input field
// of the action, but only once the action is accepted; a rejected trigger
// leaves every field as it was. The rest of the lifecycle runs in the
// background, detached from the caller, with no deadline.
func (c *Controller) Go(action types.Action, amount *string) (uuid.UUID, error) {
	lc, err := c.begin(action, amount)
	if err != nil {
		return uuid.Nil, err
	}
	go func() {
		_ = lc.run(context.Background())
	}()
	return lc.id, nil
}

// begin checks the preconditions, stores amount (if not nil) and takes the
// busy flag, all under the same lock. On any violation nothing changes and no
// message is posted.
func (c *Controller) begin(action types.Action, amount *string) (*lifecycle, error) {
	if !action.Valid() {
		return nil, ErrUnknownAction
	}
	c.mu.Lock()
	input := c.inputs[action]
	if amount != nil {
		input = *amount
	}
	var err error
	switch {
	case c.pending != types.ActionNone:
		err = ErrBusy
	case c.contract == nil || c.address == nil:
		err = ErrNotConnected
	case trimAmount(input) == "":
		err = ErrEmptyAmount
	case action == types.ActionOwnerDeposit && !c.isOwner:
		err = ErrNotOwner
	}
	if err != nil {
		c.mu.Unlock()
		metrics.ActionsSkipped.WithLabelValues(action.String(), skipReason(err)).Inc()
		log.Debugw("action skipped", "action", action.String(), "reason", err.Error())
		return nil, err
	}
	lc := &lifecycle{
		c:        c,
		id:       uuid.New(),
		action:   action,
		amount:   trimAmount(input),
		contract: c.contract,
		address:  *c.address,
		gen:      c.gen,
		start:    time.Now(),
	}
	c.inputs[action] = input
	c.pending = action
	c.pendingID = lc.id
	c.mu.Unlock()
	metrics.Pending.Set(1)
	log.Infow("action started", "id", lc.id.String(), "action", action.String(),
		"amount", lc.amount, "address", lc.address.Hex())
	c.notify()
	return lc, nil
}

func (lc *lifecycle) run(ctx context.Context) error {
	defer lc.finish()
	c := lc.c

	if c.current(lc.gen) {
		c.banner.Clear()
	}
	value, err := types.ParseEther(lc.amount)
	if err != nil {
		return lc.fail(err)
	}
	// Submitting
	hash, err := lc.submit(ctx, value)
	if err != nil {
		return lc.fail(err)
	}
	lc.post(types.SeveritySuccess, c.catalog.Text(i18n.Submitted))
	log.Infow("transaction submitted", "id", lc.id.String(), "action", lc.action.String(), "hash", hash.Hex())
	// AwaitingConfirmation
	if err := lc.contract.WaitTx(ctx, hash); err != nil {
		return lc.fail(err)
	}
	// the transaction is final, its amount must not be sent again even if
	// the refresh below fails
	lc.clearInput()
	// Refreshing
	state, err := readState(ctx, lc.contract, lc.address)
	if err != nil {
		return lc.fail(fmt.Errorf("transaction %s confirmed but refresh failed: %w", hash.Hex(), err))
	}
	if c.setState(lc.gen, state) {
		c.banner.Post(types.SeveritySuccess, c.catalog.Text(doneKey(lc.action)))
	}
	metrics.ActionsTotal.WithLabelValues(lc.action.String(), "success").Inc()
	metrics.ActionDuration.WithLabelValues(lc.action.String()).Observe(time.Since(lc.start).Seconds())
	log.Infow("action done", "id", lc.id.String(), "action", lc.action.String(), "hash", hash.Hex(),
		"balance", state.Balance, "interest", state.Interest, "elapsed", time.Since(lc.start).String())
	return nil
}

func (lc *lifecycle) submit(ctx context.Context, value *big.Int) (common.Hash, error) {
	switch lc.action {
	case types.ActionDeposit:
		return lc.contract.Deposit(ctx, value)
	case types.ActionWithdraw:
		return lc.contract.Withdraw(ctx, value)
	case types.ActionOwnerDeposit:
		return lc.contract.OwnerDeposit(ctx, value)
	}
	return common.Hash{}, ErrUnknownAction
}

// fail classifies err, posts it and returns it as *TxError.
func (lc *lifecycle) fail(err error) error {
	kind := Classify(err)
	severity, text := Describe(lc.c.catalog, err)
	lc.post(severity, text)
	metrics.ActionsTotal.WithLabelValues(lc.action.String(), kind.String()).Inc()
	log.Warnw("action failed", "id", lc.id.String(), "action", lc.action.String(),
		"kind", kind.String(), "error", err.Error())
	return &TxError{Action: lc.action, Kind: kind, Err: err}
}

// clearInput empties the input field of the action unless the session
// changed since the lifecycle started.
func (lc *lifecycle) clearInput() {
	c := lc.c
	c.mu.Lock()
	if c.gen == lc.gen {
		c.inputs[lc.action] = ""
	}
	c.mu.Unlock()
	c.notify()
}

// post writes to the banner unless the session changed since the lifecycle
// started.
func (lc *lifecycle) post(severity types.Severity, text string) {
	if lc.c.current(lc.gen) {
		lc.c.banner.Post(severity, text)
	}
}

// finish releases the busy flag. It runs on every path.
func (lc *lifecycle) finish() {
	c := lc.c
	c.mu.Lock()
	if c.pendingID == lc.id {
		c.pending = types.ActionNone
		c.pendingID = uuid.Nil
	}
	c.mu.Unlock()
	metrics.Pending.Set(0)
	c.notify()
}

func doneKey(action types.Action) i18n.Key {
	switch action {
	case types.ActionWithdraw:
		return i18n.WithdrawDone
	case types.ActionOwnerDeposit:
		return i18n.OwnerDepositDone
	}
	return i18n.DepositDone
}

func skipReason(err error) string {
	switch err {
	case ErrBusy:
		return "busy"
	case ErrNotConnected:
		return "not_connected"
	case ErrEmptyAmount:
		return "empty_amount"
	case ErrNotOwner:
		return "not_owner"
	}
	return "other"
}
