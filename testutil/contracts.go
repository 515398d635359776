// Package testutil provides test doubles shared by the package tests.
package testutil

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// MockContracts is an in-memory ProDeposit contract for a single account.
// Deposits and withdrawals are applied when the transaction is sent. Every
// method can be made to fail by setting the matching error field, and WaitTx
// blocks while Block is non-nil and open.
type MockContracts struct {
	mu       sync.Mutex
	account  common.Address
	owner    common.Address
	deposits map[common.Address]*big.Int
	interest *big.Int
	calls    map[string]int
	nonce    uint64

	OwnerErr        error
	ReadErr         error
	DepositErr      error
	WithdrawErr     error
	OwnerDepositErr error
	WaitErr         error
	// Block makes WaitTx wait until it is closed or the context is done.
	Block chan struct{}
}

// NewMockContracts returns a mock bound to account, with owner as the
// contract owner.
func NewMockContracts(account, owner common.Address) *MockContracts {
	return &MockContracts{
		account:  account,
		owner:    owner,
		deposits: make(map[common.Address]*big.Int),
		interest: big.NewInt(0),
		calls:    make(map[string]int),
	}
}

// SetInterest sets the value returned by CalculateInterest.
func (m *MockContracts) SetInterest(wei *big.Int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.interest = new(big.Int).Set(wei)
}

// SetDeposit sets the deposited balance of user.
func (m *MockContracts) SetDeposit(user common.Address, wei *big.Int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deposits[user] = new(big.Int).Set(wei)
}

// Calls returns how many times the named method was called.
func (m *MockContracts) Calls(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[method]
}

func (m *MockContracts) Owner(context.Context) (common.Address, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls["Owner"]++
	if m.OwnerErr != nil {
		return common.Address{}, m.OwnerErr
	}
	return m.owner, nil
}

func (m *MockContracts) UserDeposit(_ context.Context, user common.Address) (*big.Int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls["UserDeposit"]++
	if m.ReadErr != nil {
		return nil, m.ReadErr
	}
	if d, ok := m.deposits[user]; ok {
		return new(big.Int).Set(d), nil
	}
	return big.NewInt(0), nil
}

func (m *MockContracts) CalculateInterest(context.Context, common.Address) (*big.Int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls["CalculateInterest"]++
	if m.ReadErr != nil {
		return nil, m.ReadErr
	}
	return new(big.Int).Set(m.interest), nil
}

func (m *MockContracts) Deposit(_ context.Context, value *big.Int) (common.Hash, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls["Deposit"]++
	if m.DepositErr != nil {
		return common.Hash{}, m.DepositErr
	}
	m.add(m.account, value)
	return m.txHash(), nil
}

func (m *MockContracts) Withdraw(_ context.Context, amount *big.Int) (common.Hash, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls["Withdraw"]++
	if m.WithdrawErr != nil {
		return common.Hash{}, m.WithdrawErr
	}
	balance, ok := m.deposits[m.account]
	if !ok || balance.Cmp(amount) < 0 {
		return common.Hash{}, fmt.Errorf("execution reverted: cannot withdraw more than balance")
	}
	m.add(m.account, new(big.Int).Neg(amount))
	return m.txHash(), nil
}

func (m *MockContracts) OwnerDeposit(_ context.Context, value *big.Int) (common.Hash, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls["OwnerDeposit"]++
	if m.OwnerDepositErr != nil {
		return common.Hash{}, m.OwnerDepositErr
	}
	if m.account != m.owner {
		return common.Hash{}, fmt.Errorf("execution reverted: only owner")
	}
	return m.txHash(), nil
}

func (m *MockContracts) WaitTx(ctx context.Context, _ common.Hash) error {
	m.mu.Lock()
	m.calls["WaitTx"]++
	block, err := m.Block, m.WaitErr
	m.mu.Unlock()
	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

// add must be called with the lock held.
func (m *MockContracts) add(user common.Address, delta *big.Int) {
	balance, ok := m.deposits[user]
	if !ok {
		balance = big.NewInt(0)
	}
	m.deposits[user] = new(big.Int).Add(balance, delta)
}

// txHash must be called with the lock held.
func (m *MockContracts) txHash() common.Hash {
	m.nonce++
	return common.BigToHash(new(big.Int).SetUint64(m.nonce))
}
