package web3

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/vocdoni/prodeposit-dapp/log"
	"github.com/vocdoni/prodeposit-dapp/wallet"
	"github.com/vocdoni/prodeposit-dapp/web3/rpc"
)

const (
	// web3QueryTimeout is the timeout for read-only contract calls.
	web3QueryTimeout = 10 * time.Second
	// authTimeout is the timeout to fetch the nonce and gas tip cap before
	// sending a transaction.
	authTimeout = 10 * time.Second
)

// WaitTxInterval is the polling interval used by WaitTx.
var WaitTxInterval = 2 * time.Second

// Backend is the chain access needed by Contracts: contract calls and
// transactions plus receipt lookup.
type Backend interface {
	bind.ContractBackend
	bind.DeployBackend
}

// Contracts contains the binding to the deployed ProDeposit contract and the
// web3 pool used to reach it.
type Contracts struct {
	ChainID    uint64
	proDeposit *ProDeposit
	web3pool   *rpc.Web3Pool
	cli        Backend
}

// NewContracts creates a new Contracts instance for the ProDeposit contract at
// the given address. The first web3 endpoint defines the chainID, the rest are
// added to the pool as fallbacks.
func NewContracts(address common.Address, web3rpcs ...string) (*Contracts, error) {
	if len(web3rpcs) == 0 {
		return nil, fmt.Errorf("no web3 endpoints provided")
	}
	w3pool := rpc.NewWeb3Pool()
	chainID, err := w3pool.AddEndpoint(web3rpcs[0])
	if err != nil {
		return nil, fmt.Errorf("failed to add web3 endpoint: %w", err)
	}
	cli, err := w3pool.Client(chainID)
	if err != nil {
		return nil, fmt.Errorf("failed to get client: %w", err)
	}
	c, err := NewContractsWithBackend(address, chainID, cli)
	if err != nil {
		return nil, err
	}
	c.web3pool = w3pool
	for _, uri := range web3rpcs[1:] {
		if err := c.AddWeb3Endpoint(uri); err != nil {
			log.Warnw("failed to add web3 endpoint", "rpc", uri, "error", err.Error())
		}
	}
	return c, nil
}

// NewContractsWithBackend creates a new Contracts instance using the provided
// backend instead of a web3 pool.
func NewContractsWithBackend(address common.Address, chainID uint64, backend Backend) (*Contracts, error) {
	proDeposit, err := NewProDeposit(address, backend)
	if err != nil {
		return nil, fmt.Errorf("failed to bind ProDeposit contract: %w", err)
	}
	return &Contracts{
		ChainID:    chainID,
		proDeposit: proDeposit,
		cli:        backend,
	}, nil
}

// AddWeb3Endpoint adds a new web3 endpoint to the pool. The endpoint must
// serve the same chain as the existing ones.
func (c *Contracts) AddWeb3Endpoint(web3rpc string) error {
	if c.web3pool == nil {
		return fmt.Errorf("contracts have no web3 pool")
	}
	chainID, err := c.web3pool.AddEndpoint(web3rpc)
	if err != nil {
		return err
	}
	if chainID != c.ChainID {
		return fmt.Errorf("web3 endpoint %s serves chainID %d, expected %d", web3rpc, chainID, c.ChainID)
	}
	return nil
}

// Close closes the web3 clients of the pool.
func (c *Contracts) Close() {
	if c.web3pool != nil {
		c.web3pool.Close()
	}
}

// ContractAddress returns the address of the ProDeposit contract.
func (c *Contracts) ContractAddress() common.Address {
	return c.proDeposit.Address()
}

// Owner returns the owner of the ProDeposit contract.
func (c *Contracts) Owner(ctx context.Context) (common.Address, error) {
	ctx, cancel := context.WithTimeout(ctx, web3QueryTimeout)
	defer cancel()
	owner, err := c.proDeposit.Owner(&bind.CallOpts{Context: ctx})
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to get owner: %w", err)
	}
	return owner, nil
}

// UserDeposit returns the amount (in wei) deposited by the given address.
func (c *Contracts) UserDeposit(ctx context.Context, user common.Address) (*big.Int, error) {
	ctx, cancel := context.WithTimeout(ctx, web3QueryTimeout)
	defer cancel()
	amount, err := c.proDeposit.UserDeposits(&bind.CallOpts{Context: ctx}, user)
	if err != nil {
		return nil, fmt.Errorf("failed to get user deposit: %w", err)
	}
	return amount, nil
}

// CalculateInterest returns the interest (in wei) accrued by the given
// address.
func (c *Contracts) CalculateInterest(ctx context.Context, user common.Address) (*big.Int, error) {
	ctx, cancel := context.WithTimeout(ctx, web3QueryTimeout)
	defer cancel()
	interest, err := c.proDeposit.CalculateInterest(&bind.CallOpts{Context: ctx}, user)
	if err != nil {
		return nil, fmt.Errorf("failed to calculate interest: %w", err)
	}
	return interest, nil
}

// WaitTx blocks until the transaction with the given hash is mined or the
// context is done. A reverted transaction is reported as an error. Receipt
// lookup errors other than not found are logged and the lookup retried.
func (c *Contracts) WaitTx(ctx context.Context, hash common.Hash) error {
	ticker := time.NewTicker(WaitTxInterval)
	defer ticker.Stop()
	for {
		receipt, err := c.cli.TransactionReceipt(ctx, hash)
		switch {
		case err == nil:
			if receipt.Status == 0 {
				return fmt.Errorf("transaction %s reverted in block %d", hash.Hex(), receipt.BlockNumber)
			}
			log.Debugw("transaction mined", "hash", hash.Hex(), "block", receipt.BlockNumber, "gasUsed", receipt.GasUsed)
			return nil
		case errors.Is(err, ethereum.NotFound):
			log.Debugw("transaction not yet mined", "hash", hash.Hex())
		default:
			if ctx.Err() != nil {
				return fmt.Errorf("failed to wait for transaction %s: %w", hash.Hex(), ctx.Err())
			}
			log.Warnw("failed to get transaction receipt", "hash", hash.Hex(), "error", err.Error())
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("failed to wait for transaction %s: %w", hash.Hex(), ctx.Err())
		case <-ticker.C:
		}
	}
}

// Account returns the contracts bound to the signer of the given wallet
// session. The returned value is dropped and rebuilt on every session change.
func (c *Contracts) Account(session *wallet.Session) *Account {
	return &Account{Contracts: c, session: session}
}

// Account is the ProDeposit contract bound to a wallet session, so that write
// methods are signed by the connected account.
type Account struct {
	*Contracts
	session *wallet.Session
}

// Address returns the address of the account used to sign transactions.
func (a *Account) Address() common.Address {
	return a.session.Address()
}

// Deposit sends a deposit transaction paying value wei.
func (a *Account) Deposit(ctx context.Context, value *big.Int) (common.Hash, error) {
	txOpts, err := a.authTransactOpts(ctx)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to create transact options: %w", err)
	}
	txOpts.Value = value
	tx, err := a.proDeposit.Deposit(txOpts)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to deposit: %w", err)
	}
	log.Infow("deposit transaction sent", "hash", tx.Hash().Hex(), "value", value.String())
	return tx.Hash(), nil
}

// Withdraw sends a withdraw transaction of amount wei.
func (a *Account) Withdraw(ctx context.Context, amount *big.Int) (common.Hash, error) {
	txOpts, err := a.authTransactOpts(ctx)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to create transact options: %w", err)
	}
	tx, err := a.proDeposit.Withdraw(txOpts, amount)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to withdraw: %w", err)
	}
	log.Infow("withdraw transaction sent", "hash", tx.Hash().Hex(), "amount", amount.String())
	return tx.Hash(), nil
}

// OwnerDeposit sends an owner deposit transaction paying value wei. Only the
// contract owner is accepted by the contract.
func (a *Account) OwnerDeposit(ctx context.Context, value *big.Int) (common.Hash, error) {
	txOpts, err := a.authTransactOpts(ctx)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to create transact options: %w", err)
	}
	txOpts.Value = value
	tx, err := a.proDeposit.OwnerDeposit(txOpts)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to owner deposit: %w", err)
	}
	log.Infow("owner deposit transaction sent", "hash", tx.Hash().Hex(), "value", value.String())
	return tx.Hash(), nil
}

// authTransactOpts helper method creates the transact options with the key
// of the wallet session. It sets the nonce and the gas tip cap. The gas limit
// is left to estimation, so that contract reverts are reported before the
// transaction is sent.
func (a *Account) authTransactOpts(ctx context.Context) (*bind.TransactOpts, error) {
	if a.session == nil {
		return nil, fmt.Errorf("no wallet session")
	}
	auth, err := a.session.TransactOpts(a.ChainID)
	if err != nil {
		return nil, err
	}
	auth.Context = ctx
	authCtx, cancel := context.WithTimeout(ctx, authTimeout)
	defer cancel()
	// set the nonce
	log.Debugw("getting nonce", "address", a.Address().Hex())
	nonce, err := a.cli.PendingNonceAt(authCtx, a.Address())
	if err != nil {
		return nil, fmt.Errorf("failed to get nonce: %w", err)
	}
	auth.Nonce = new(big.Int).SetUint64(nonce)
	// set the gas tip cap
	if auth.GasTipCap, err = a.cli.SuggestGasTipCap(authCtx); err != nil {
		return nil, fmt.Errorf("failed to get gas tip cap: %w", err)
	}
	return auth, nil
}
