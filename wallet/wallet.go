// Package wallet provides the wallet session: the connected account and the
// key used to sign its transactions. Connection changes are broadcast to
// subscribers so that contract bindings can be rebuilt.
package wallet

import (
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/vocdoni/prodeposit-dapp/log"
	"github.com/vocdoni/prodeposit-dapp/util"
)

// Session is a connected account able to sign transactions.
type Session struct {
	address common.Address
	privKey *ecdsa.PrivateKey
}

// NewSession creates a session for the given private key.
func NewSession(privKey *ecdsa.PrivateKey) *Session {
	return &Session{
		address: crypto.PubkeyToAddress(privKey.PublicKey),
		privKey: privKey,
	}
}

// Address returns the connected address.
func (s *Session) Address() common.Address {
	return s.address
}

// TransactOpts returns a keyed transactor for the given chain.
func (s *Session) TransactOpts(chainID uint64) (*bind.TransactOpts, error) {
	auth, err := bind.NewKeyedTransactorWithChainID(s.privKey, new(big.Int).SetUint64(chainID))
	if err != nil {
		return nil, fmt.Errorf("failed to create transactor: %w", err)
	}
	return auth, nil
}

// Provider holds the current session, if any, and notifies subscribers on
// every connection change.
type Provider struct {
	mu      sync.Mutex
	session *Session
	subs    map[int]chan *Session
	nextSub int
}

// NewProvider returns a provider with no connected session.
func NewProvider() *Provider {
	return &Provider{subs: make(map[int]chan *Session)}
}

// ConnectHexKey connects the account of the given hex encoded private key
// (with or without 0x prefix).
func (p *Provider) ConnectHexKey(hexKey string) (*Session, error) {
	privKey, err := crypto.HexToECDSA(util.TrimHex(hexKey))
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}
	return p.connect(NewSession(privKey)), nil
}

// ConnectKeystore connects the account stored in an encrypted keystore JSON
// file content.
func (p *Provider) ConnectKeystore(keyJSON []byte, passphrase string) (*Session, error) {
	key, err := keystore.DecryptKey(keyJSON, passphrase)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt keystore: %w", err)
	}
	return p.connect(NewSession(key.PrivateKey)), nil
}

// Disconnect drops the current session. It is a no-op if nothing is connected.
func (p *Provider) Disconnect() {
	p.mu.Lock()
	if p.session == nil {
		p.mu.Unlock()
		return
	}
	log.Infow("wallet disconnected", "address", p.session.address.Hex())
	p.session = nil
	p.publish(nil)
	p.mu.Unlock()
}

// Session returns the current session or nil if not connected.
func (p *Provider) Session() *Session {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.session
}

// Subscribe returns a channel that receives the session after every change
// (nil on disconnection) and a function to cancel the subscription. The
// current session is delivered immediately. Only the latest value is kept if
// the subscriber is slow.
func (p *Provider) Subscribe() (<-chan *Session, func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	id := p.nextSub
	p.nextSub++
	ch := make(chan *Session, 1)
	ch <- p.session
	p.subs[id] = ch
	return ch, func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		if _, ok := p.subs[id]; ok {
			delete(p.subs, id)
			close(ch)
		}
	}
}

func (p *Provider) connect(s *Session) *Session {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.session = s
	log.Infow("wallet connected", "address", s.address.Hex())
	p.publish(s)
	return s
}

// publish must be called with the lock held.
func (p *Provider) publish(s *Session) {
	for _, ch := range p.subs {
		select {
		case <-ch:
		default:
		}
		ch <- s
	}
}
