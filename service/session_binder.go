package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/vocdoni/prodeposit-dapp/controller"
	"github.com/vocdoni/prodeposit-dapp/log"
	"github.com/vocdoni/prodeposit-dapp/wallet"
)

// ownerCheckTimeout bounds the owner lookup done after every session change.
const ownerCheckTimeout = 30 * time.Second

// SessionBinder represents a service that follows the wallet session and
// rebinds the controller to a new contract every time it changes. After each
// change it checks whether the connected address owns the contract.
type SessionBinder struct {
	wallet    *wallet.Provider
	contracts ContractsService
	ctrl      *controller.Controller
	mu        sync.Mutex
	cancel    context.CancelFunc
	done      chan struct{}
}

// NewSessionBinder creates a new SessionBinder service.
func NewSessionBinder(provider *wallet.Provider, contracts ContractsService, ctrl *controller.Controller) *SessionBinder {
	return &SessionBinder{
		wallet:    provider,
		contracts: contracts,
		ctrl:      ctrl,
	}
}

// Start begins following the wallet session. It returns an error if the
// service is already running. The current session is bound right away.
func (sb *SessionBinder) Start(ctx context.Context) error {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	if sb.cancel != nil {
		return fmt.Errorf("service already running")
	}

	ctx, cancel := context.WithCancel(ctx)
	sb.cancel = cancel
	sb.done = make(chan struct{})

	sessions, unsubscribe := sb.wallet.Subscribe()
	go sb.follow(ctx, sessions, unsubscribe, sb.done)
	return nil
}

// Stop halts the service and waits for it to exit. The controller keeps its
// last binding.
func (sb *SessionBinder) Stop() {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	if sb.cancel != nil {
		sb.cancel()
		<-sb.done
		sb.cancel = nil
	}
}

func (sb *SessionBinder) follow(ctx context.Context, sessions <-chan *wallet.Session,
	unsubscribe func(), done chan struct{},
) {
	defer close(done)
	defer unsubscribe()
	for {
		select {
		case <-ctx.Done():
			return
		case session, ok := <-sessions:
			if !ok {
				return
			}
			sb.bind(ctx, session)
		}
	}
}

// bind drops the previous contract and binds the one of the session, or
// nothing if the wallet was disconnected.
func (sb *SessionBinder) bind(ctx context.Context, session *wallet.Session) {
	if session == nil {
		log.Infow("wallet session closed, unbinding contract")
		sb.ctrl.Bind(nil, nil)
		return
	}
	addr := session.Address()
	log.Infow("wallet session changed, binding contract", "address", addr.Hex())
	sb.ctrl.Bind(sb.contracts.ForSession(session), &addr)

	ctx, cancel := context.WithTimeout(ctx, ownerCheckTimeout)
	defer cancel()
	if err := sb.ctrl.CheckOwner(ctx); err != nil {
		log.Warnw("owner check failed", "address", addr.Hex(), "error", err.Error())
	}
}
