package rpc

// This package contains the Web3Pool struct, which is a pool of Web3Endpoint
// instances grouped by chainID. It allows to add, disable and get endpoints,
// and provides a Client that implements the bind.ContractBackend and
// bind.DeployBackend interfaces for a specific chainID. Every call made
// through the Client is sent to the next available endpoint; endpoints that
// fail at the transport level are flagged as disabled and the call is retried
// with the next one. If every endpoint fails for a chainID, the pool resets
// the available flag for all the endpoints and starts again.

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/vocdoni/prodeposit-dapp/log"
)

const (
	// DefaultMaxWeb3ClientRetries is the default number of retries to connect to
	// a web3 provider.
	DefaultMaxWeb3ClientRetries = 5
	// checkWeb3EndpointsTimeout is the timeout to check the web3 endpoints.
	checkWeb3EndpointsTimeout = time.Second * 10
)

// Web3Endpoint is a single web3 provider of a chain.
type Web3Endpoint struct {
	ChainID uint64 `json:"chainId"`
	URI     string `json:"uri"`
	client  *ethclient.Client
}

// Web3Pool struct contains a map of chainID-*Web3Iterator, where the key is
// the chainID and the value is the iterator over its endpoints. It supports
// multiple endpoints for the same chainID and switches between them looking
// for the available one.
type Web3Pool struct {
	mu        sync.RWMutex
	endpoints map[uint64]*Web3Iterator
}

// NewWeb3Pool method returns a new *Web3Pool instance.
func NewWeb3Pool() *Web3Pool {
	return &Web3Pool{
		endpoints: make(map[uint64]*Web3Iterator),
	}
}

// AddEndpoint method adds a new web3 provider URI to the Web3Pool.
// It returns the chainID of the endpoint added to the pool.
func (nm *Web3Pool) AddEndpoint(uri string) (uint64, error) {
	ctx, cancel := context.WithTimeout(context.Background(), checkWeb3EndpointsTimeout)
	defer cancel()
	// init the web3 client
	client, err := connect(ctx, uri)
	if err != nil {
		return 0, err
	}
	// get the chainID from the web3 endpoint
	bChainID, err := client.ChainID(ctx)
	if err != nil {
		client.Close()
		return 0, fmt.Errorf("error getting the chainID from the web3 provider '%s': %w", uri, err)
	}
	chainID := bChainID.Uint64()
	nm.add(&Web3Endpoint{
		ChainID: chainID,
		URI:     uri,
		client:  client,
	})
	log.Debugw("web3 endpoint added", "chainID", chainID, "uri", uri)
	return chainID, nil
}

func (nm *Web3Pool) add(endpoint *Web3Endpoint) {
	nm.mu.Lock()
	defer nm.mu.Unlock()
	if _, ok := nm.endpoints[endpoint.ChainID]; !ok {
		nm.endpoints[endpoint.ChainID] = NewWeb3Iterator(endpoint)
	} else {
		nm.endpoints[endpoint.ChainID].Add(endpoint)
	}
}

// Endpoint method returns the Web3Endpoint configured for the chainID
// provided. It returns the first available endpoint. If no available endpoint
// is found, returns an error.
func (nm *Web3Pool) Endpoint(chainID uint64) (*Web3Endpoint, error) {
	nm.mu.RLock()
	endpoints, ok := nm.endpoints[chainID]
	nm.mu.RUnlock()
	if ok {
		return endpoints.Next()
	}
	return nil, fmt.Errorf("no endpoint found for chainID %d", chainID)
}

// DisableEndpoint method sets the available flag to false for the URI provided
// in the chainID provided.
func (nm *Web3Pool) DisableEndpoint(chainID uint64, uri string) {
	nm.mu.RLock()
	endpoints, ok := nm.endpoints[chainID]
	nm.mu.RUnlock()
	if ok {
		endpoints.Disable(uri)
	}
}

// NumberOfEndpoints method returns the total number (or just the available ones)
// of endpoints for the chainID provided.
func (nm *Web3Pool) NumberOfEndpoints(chainID uint64, onlyAvailable bool) int {
	nm.mu.RLock()
	endpoints, ok := nm.endpoints[chainID]
	nm.mu.RUnlock()
	if !ok {
		return 0
	}
	n := endpoints.Available()
	if !onlyAvailable {
		n += endpoints.Disabled()
	}
	return n
}

// Client method returns a new *Client instance for the chainID provided.
// It returns an error if the endpoint is not found.
func (nm *Web3Pool) Client(chainID uint64) (*Client, error) {
	if nm.NumberOfEndpoints(chainID, false) == 0 {
		return nil, fmt.Errorf("no endpoint found for chainID %d", chainID)
	}
	return &Client{w3p: nm, chainID: chainID}, nil
}

// Close closes every client of the pool.
func (nm *Web3Pool) Close() {
	nm.mu.Lock()
	defer nm.mu.Unlock()
	for _, endpoints := range nm.endpoints {
		for _, e := range endpoints.All() {
			if e.client != nil {
				e.client.Close()
			}
		}
	}
	nm.endpoints = make(map[uint64]*Web3Iterator)
}

// connect method returns a new *ethclient.Client instance for the URI provided.
// It retries to connect to the web3 provider if it fails, up to the
// DefaultMaxWeb3ClientRetries times.
func connect(ctx context.Context, uri string) (client *ethclient.Client, err error) {
	for i := 0; i < DefaultMaxWeb3ClientRetries; i++ {
		if client, err = ethclient.DialContext(ctx, uri); err != nil {
			continue
		}
		return
	}
	return nil, fmt.Errorf("error dialing web3 provider uri '%s': %w", uri, err)
}
