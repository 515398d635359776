// Package controller drives every contract-mutating user action through the
// same protocol: validate, submit, wait for the receipt, refresh the deposit
// state and report the outcome in the status banner. Only one action may be
// in flight at a time.
package controller

import (
	"context"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/vocdoni/prodeposit-dapp/i18n"
	"github.com/vocdoni/prodeposit-dapp/log"
	"github.com/vocdoni/prodeposit-dapp/metrics"
	"github.com/vocdoni/prodeposit-dapp/status"
	"github.com/vocdoni/prodeposit-dapp/types"
)

// Contract is the ProDeposit contract bound to the signer of the connected
// account. Amounts are in wei.
type Contract interface {
	Owner(ctx context.Context) (common.Address, error)
	UserDeposit(ctx context.Context, user common.Address) (*big.Int, error)
	CalculateInterest(ctx context.Context, user common.Address) (*big.Int, error)
	Deposit(ctx context.Context, value *big.Int) (common.Hash, error)
	Withdraw(ctx context.Context, amount *big.Int) (common.Hash, error)
	OwnerDeposit(ctx context.Context, value *big.Int) (common.Hash, error)
	WaitTx(ctx context.Context, hash common.Hash) error
}

// Controller is the transaction lifecycle controller. It is safe for
// concurrent use; contract calls are never made with the lock held.
type Controller struct {
	mu        sync.Mutex
	contract  Contract
	address   *common.Address
	gen       uint64
	pending   types.Action
	pendingID uuid.UUID
	state     types.DepositState
	isOwner   bool
	inputs    map[types.Action]string

	banner  *status.Banner
	catalog *i18n.Catalog

	subsMu  sync.Mutex
	subs    map[int]chan types.Snapshot
	nextSub int
}

// New creates a controller with nothing bound. Status messages are written
// with the texts of catalog and expire after statusTTL (status.DefaultTTL if
// zero).
func New(catalog *i18n.Catalog, statusTTL time.Duration) *Controller {
	if catalog == nil {
		catalog = i18n.New("")
	}
	c := &Controller{
		state:   types.EmptyDepositState(),
		inputs:  make(map[types.Action]string),
		catalog: catalog,
		subs:    make(map[int]chan types.Snapshot),
	}
	c.banner = status.NewBanner(statusTTL, c.notify)
	return c
}

// Bind replaces the contract and the connected address. The previous
// contract is dropped; lifecycles still running with it finish without
// touching the new state. If the address changes, the deposit state is reset,
// the status message dropped and the owner flag cleared until the next
// CheckOwner.
func (c *Controller) Bind(contract Contract, address *common.Address) {
	c.mu.Lock()
	changed := !sameAddress(c.address, address)
	if changed {
		c.state = types.EmptyDepositState()
		c.isOwner = false
	}
	if address != nil {
		addr := *address
		address = &addr
	}
	c.contract = contract
	c.address = address
	if contract == nil || address == nil {
		c.isOwner = false
	}
	c.gen++
	gen := c.gen
	c.mu.Unlock()
	log.Debugw("contract bound", "address", addressString(address), "generation", gen)
	if changed {
		c.banner.Clear()
	}
	c.notify()
}

// SetInput stores the amount field of the action.
func (c *Controller) SetInput(action types.Action, amount string) error {
	if !action.Valid() {
		return ErrUnknownAction
	}
	c.mu.Lock()
	c.inputs[action] = amount
	c.mu.Unlock()
	c.notify()
	return nil
}

// CheckOwner fetches the contract owner and updates the owner flag. On
// failure the flag is left unchanged.
func (c *Controller) CheckOwner(ctx context.Context) error {
	c.mu.Lock()
	contract, address, gen := c.contract, c.address, c.gen
	c.mu.Unlock()
	if contract == nil || address == nil {
		return ErrNotConnected
	}
	owner, err := contract.Owner(ctx)
	if err != nil {
		log.Warnw("failed to check contract owner", "address", address.Hex(), "error", err.Error())
		return err
	}
	// addresses are compared as bytes, which ignores the hex checksum case
	isOwner := owner == *address
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return nil
	}
	c.isOwner = isOwner
	c.mu.Unlock()
	log.Debugw("owner checked", "owner", owner.Hex(), "address", address.Hex(), "isOwner", isOwner)
	c.notify()
	return nil
}

// Refresh reads the balance and the interest of the connected address. It is
// rejected with ErrBusy while a write action is in flight. Failures are
// classified and posted to the status banner.
func (c *Controller) Refresh(ctx context.Context) error {
	c.mu.Lock()
	if c.pending != types.ActionNone {
		c.mu.Unlock()
		return ErrBusy
	}
	contract, address, gen := c.contract, c.address, c.gen
	c.mu.Unlock()
	if contract == nil || address == nil {
		return ErrNotConnected
	}
	state, err := readState(ctx, contract, *address)
	if err != nil {
		metrics.Refreshes.WithLabelValues("failure").Inc()
		kind := Classify(err)
		log.Warnw("refresh failed", "address", address.Hex(), "kind", kind.String(), "error", err.Error())
		if c.current(gen) {
			c.banner.Post(Describe(c.catalog, err))
		}
		return &TxError{Kind: kind, Err: err}
	}
	metrics.Refreshes.WithLabelValues("success").Inc()
	if c.setState(gen, state) {
		c.banner.Post(types.SeveritySuccess, c.catalog.Text(i18n.Refreshed))
	}
	return nil
}

// Snapshot returns the current state for rendering.
func (c *Controller) Snapshot() types.Snapshot {
	c.mu.Lock()
	snap := types.Snapshot{
		Connected: c.contract != nil && c.address != nil,
		IsOwner:   c.isOwner,
		State:     c.state,
		Pending:   c.pending,
		Inputs:    make(map[types.Action]string, len(types.Actions)),
	}
	if c.address != nil {
		addr := *c.address
		snap.Address = &addr
	}
	for _, a := range types.Actions {
		snap.Inputs[a] = c.inputs[a]
	}
	c.mu.Unlock()
	snap.Status = c.banner.Current()
	return snap
}

// Status returns the current status message or nil.
func (c *Controller) Status() *types.StatusMessage {
	return c.banner.Current()
}

// Subscribe returns a channel that receives a snapshot after every change
// and a function to cancel the subscription. The current snapshot is
// delivered immediately; slow subscribers only get the latest one.
func (c *Controller) Subscribe() (<-chan types.Snapshot, func()) {
	ch := make(chan types.Snapshot, 1)
	c.subsMu.Lock()
	ch <- c.Snapshot()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = ch
	c.subsMu.Unlock()
	return ch, func() {
		c.subsMu.Lock()
		defer c.subsMu.Unlock()
		if _, ok := c.subs[id]; ok {
			delete(c.subs, id)
			close(ch)
		}
	}
}

// notify sends the current snapshot to every subscriber. It must be called
// without c.mu held. The snapshot is taken under subsMu so that a newer one
// is never replaced by an older one.
func (c *Controller) notify() {
	c.subsMu.Lock()
	defer c.subsMu.Unlock()
	snap := c.Snapshot()
	for _, ch := range c.subs {
		select {
		case <-ch:
		default:
		}
		ch <- snap
	}
}

// current reports whether gen is still the bound generation.
func (c *Controller) current(gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return gen == c.gen
}

// setState stores the deposit state if gen is still current.
func (c *Controller) setState(gen uint64, state types.DepositState) bool {
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return false
	}
	c.state = state
	c.mu.Unlock()
	c.notify()
	return true
}

func readState(ctx context.Context, contract Contract, address common.Address) (types.DepositState, error) {
	balance, err := contract.UserDeposit(ctx, address)
	if err != nil {
		return types.DepositState{}, err
	}
	interest, err := contract.CalculateInterest(ctx, address)
	if err != nil {
		return types.DepositState{}, err
	}
	return types.DepositState{
		Balance:  types.FormatEther(balance),
		Interest: types.FormatEther(interest),
	}, nil
}

func sameAddress(a, b *common.Address) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func addressString(a *common.Address) string {
	if a == nil {
		return "none"
	}
	return a.Hex()
}

func trimAmount(s string) string {
	return strings.TrimSpace(s)
}
