package rpc

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	gethrpc "github.com/ethereum/go-ethereum/rpc"
	"github.com/vocdoni/prodeposit-dapp/log"
)

// Client is a web3 client bound to one chainID of a Web3Pool. It implements
// bind.ContractBackend and bind.DeployBackend.
type Client struct {
	w3p     *Web3Pool
	chainID uint64
}

// ChainID returns the chainID the client is bound to.
func (c *Client) ChainID() uint64 {
	return c.chainID
}

// CodeAt returns the code of the given account.
func (c *Client) CodeAt(ctx context.Context, account common.Address, blockNumber *big.Int) ([]byte, error) {
	return call(ctx, c, "CodeAt", func(cli *ethclient.Client) ([]byte, error) {
		return cli.CodeAt(ctx, account, blockNumber)
	})
}

// CallContract executes a message call transaction, which is directly
// executed in the VM of the node, but never mined into the blockchain.
func (c *Client) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	return call(ctx, c, "CallContract", func(cli *ethclient.Client) ([]byte, error) {
		return cli.CallContract(ctx, msg, blockNumber)
	})
}

// EstimateGas tries to estimate the gas needed to execute a specific
// transaction. Reverts during estimation carry the revert reason.
func (c *Client) EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error) {
	return call(ctx, c, "EstimateGas", func(cli *ethclient.Client) (uint64, error) {
		return cli.EstimateGas(ctx, msg)
	})
}

// SuggestGasPrice retrieves the currently suggested gas price.
func (c *Client) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	return call(ctx, c, "SuggestGasPrice", func(cli *ethclient.Client) (*big.Int, error) {
		return cli.SuggestGasPrice(ctx)
	})
}

// SuggestGasTipCap retrieves the currently suggested gas tip cap.
func (c *Client) SuggestGasTipCap(ctx context.Context) (*big.Int, error) {
	return call(ctx, c, "SuggestGasTipCap", func(cli *ethclient.Client) (*big.Int, error) {
		return cli.SuggestGasTipCap(ctx)
	})
}

// SendTransaction injects a signed transaction into the pending pool. The
// transaction goes to a single endpoint and is never resent to another one:
// after a transport error the node may already hold it.
func (c *Client) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	endpoint, err := c.w3p.Endpoint(c.chainID)
	if err != nil {
		return fmt.Errorf("error getting endpoint for chainID %d: %w", c.chainID, err)
	}
	err = endpoint.client.SendTransaction(ctx, tx)
	if err != nil && isTransportError(ctx, err) {
		log.Warnw("web3 endpoint failed sending transaction",
			"chainID", c.chainID, "uri", endpoint.URI, "hash", tx.Hash().Hex(), "error", err.Error())
		c.w3p.DisableEndpoint(c.chainID, endpoint.URI)
	}
	return err
}

// HeaderByNumber returns a block header from the current canonical chain.
// If number is nil, the latest known header is returned.
func (c *Client) HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error) {
	return call(ctx, c, "HeaderByNumber", func(cli *ethclient.Client) (*types.Header, error) {
		return cli.HeaderByNumber(ctx, number)
	})
}

// PendingCodeAt returns the contract code of the given account in the
// pending state.
func (c *Client) PendingCodeAt(ctx context.Context, account common.Address) ([]byte, error) {
	return call(ctx, c, "PendingCodeAt", func(cli *ethclient.Client) ([]byte, error) {
		return cli.PendingCodeAt(ctx, account)
	})
}

// PendingNonceAt returns the account nonce of the given account in the
// pending state.
func (c *Client) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	return call(ctx, c, "PendingNonceAt", func(cli *ethclient.Client) (uint64, error) {
		return cli.PendingNonceAt(ctx, account)
	})
}

// FilterLogs executes a filter query.
func (c *Client) FilterLogs(ctx context.Context, query ethereum.FilterQuery) ([]types.Log, error) {
	return call(ctx, c, "FilterLogs", func(cli *ethclient.Client) ([]types.Log, error) {
		return cli.FilterLogs(ctx, query)
	})
}

// SubscribeFilterLogs subscribes to the results of a streaming filter query.
// Requires a websocket endpoint.
func (c *Client) SubscribeFilterLogs(ctx context.Context, query ethereum.FilterQuery, ch chan<- types.Log) (ethereum.Subscription, error) {
	return call(ctx, c, "SubscribeFilterLogs", func(cli *ethclient.Client) (ethereum.Subscription, error) {
		return cli.SubscribeFilterLogs(ctx, query, ch)
	})
}

// TransactionReceipt returns the receipt of a mined transaction. It returns
// ethereum.NotFound while the transaction is pending.
func (c *Client) TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	return call(ctx, c, "TransactionReceipt", func(cli *ethclient.Client) (*types.Receipt, error) {
		return cli.TransactionReceipt(ctx, txHash)
	})
}

// call sends fn to the next available endpoint of the client chain. If the
// endpoint fails at the transport level it is disabled and fn is retried with
// the next one, up to the number of endpoints of the chain. Errors returned
// by the node itself (JSON-RPC errors, reverts, not found) are returned as is.
func call[T any](ctx context.Context, c *Client, method string, fn func(*ethclient.Client) (T, error)) (T, error) {
	var zero T
	var lastErr error
	attempts := c.w3p.NumberOfEndpoints(c.chainID, false)
	for i := 0; i < attempts; i++ {
		endpoint, err := c.w3p.Endpoint(c.chainID)
		if err != nil {
			return zero, fmt.Errorf("error getting endpoint for chainID %d: %w", c.chainID, err)
		}
		res, err := fn(endpoint.client)
		if err == nil || !isTransportError(ctx, err) {
			return res, err
		}
		log.Warnw("web3 endpoint failed, trying next one",
			"method", method, "chainID", c.chainID, "uri", endpoint.URI, "error", err.Error())
		c.w3p.DisableEndpoint(c.chainID, endpoint.URI)
		lastErr = err
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("no endpoints for chainID %d", c.chainID)
	}
	return zero, lastErr
}

// isTransportError returns true if the error does not come from the node
// answering the request, so that another endpoint could succeed.
func isTransportError(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	if errors.Is(err, ethereum.NotFound) {
		return false
	}
	var rpcErr gethrpc.Error
	if errors.As(err, &rpcErr) {
		return false
	}
	var httpErr gethrpc.HTTPError
	if errors.As(err, &httpErr) {
		// 4xx means the request itself is wrong (except rate limits)
		return httpErr.StatusCode >= 500 || httpErr.StatusCode == 429
	}
	return true
}
