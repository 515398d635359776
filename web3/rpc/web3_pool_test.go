package rpc

import (
	"context"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	qt "github.com/frankban/quicktest"
)

const sepoliaChainIDHex = "0xaa36a7"

// fakeNode is a minimal JSON-RPC server. It always answers eth_chainId and
// answers eth_getTransactionCount according to its mode.
type fakeNode struct {
	mode  atomic.Value // "ok", "down", "reset" or "rpcerror"
	calls atomic.Int64
}

func newFakeNode(c *qt.C, mode string) (*fakeNode, string) {
	n := &fakeNode{}
	n.mode.Store(mode)
	srv := httptest.NewServer(http.HandlerFunc(n.serve))
	c.Cleanup(srv.Close)
	return n, srv.URL
}

func (n *fakeNode) serve(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID     json.RawMessage `json:"id"`
		Method string          `json:"method"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	resp := map[string]any{"jsonrpc": "2.0", "id": req.ID}
	if req.Method == "eth_chainId" {
		resp["result"] = sepoliaChainIDHex
	} else {
		n.calls.Add(1)
		switch n.mode.Load().(string) {
		case "down":
			http.Error(w, "bad gateway", http.StatusBadGateway)
			return
		case "reset":
			// the request was read, the connection drops before the answer
			if conn, _, err := http.NewResponseController(w).Hijack(); err == nil {
				_ = conn.Close()
			}
			return
		case "rpcerror":
			resp["error"] = map[string]any{"code": -32000, "message": "nonce too low"}
		default:
			resp["result"] = "0x5"
		}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func TestWeb3Iterator(t *testing.T) {
	c := qt.New(t)

	w := NewWeb3Iterator()
	_, err := w.Next()
	c.Assert(err, qt.IsNotNil)

	a := &Web3Endpoint{URI: "a"}
	b := &Web3Endpoint{URI: "b"}
	w.Add(a, b)

	e, err := w.Next()
	c.Assert(err, qt.IsNil)
	c.Assert(e.URI, qt.Equals, "a")
	e, err = w.Next()
	c.Assert(err, qt.IsNil)
	c.Assert(e.URI, qt.Equals, "b")
	e, err = w.Next()
	c.Assert(err, qt.IsNil)
	c.Assert(e.URI, qt.Equals, "a")

	w.Disable("a")
	c.Assert(w.Available(), qt.Equals, 1)
	c.Assert(w.Disabled(), qt.Equals, 1)
	e, err = w.Next()
	c.Assert(err, qt.IsNil)
	c.Assert(e.URI, qt.Equals, "b")

	// once every endpoint is disabled they are all enabled again
	w.Disable("b")
	c.Assert(w.Available(), qt.Equals, 0)
	_, err = w.Next()
	c.Assert(err, qt.IsNil)
	c.Assert(w.Available(), qt.Equals, 2)
	c.Assert(w.Disabled(), qt.Equals, 0)
	c.Assert(w.All(), qt.HasLen, 2)
}

func TestWeb3PoolFailover(t *testing.T) {
	c := qt.New(t)

	down, downURI := newFakeNode(c, "down")
	up, upURI := newFakeNode(c, "ok")

	pool := NewWeb3Pool()
	defer pool.Close()
	chainID, err := pool.AddEndpoint(downURI)
	c.Assert(err, qt.IsNil)
	c.Assert(chainID, qt.Equals, uint64(11155111))
	_, err = pool.AddEndpoint(upURI)
	c.Assert(err, qt.IsNil)
	c.Assert(pool.NumberOfEndpoints(chainID, false), qt.Equals, 2)

	_, err = pool.Client(1)
	c.Assert(err, qt.IsNotNil)
	cli, err := pool.Client(chainID)
	c.Assert(err, qt.IsNil)
	c.Assert(cli.ChainID(), qt.Equals, chainID)

	// the first endpoint fails at the transport level, the call is served by
	// the second one and the first one gets disabled
	nonce, err := cli.PendingNonceAt(context.Background(), common.Address{})
	c.Assert(err, qt.IsNil)
	c.Assert(nonce, qt.Equals, uint64(5))
	c.Assert(down.calls.Load(), qt.Equals, int64(1))
	c.Assert(up.calls.Load(), qt.Equals, int64(1))
	c.Assert(pool.NumberOfEndpoints(chainID, true), qt.Equals, 1)
}

func TestWeb3PoolNodeErrorsAreNotRetried(t *testing.T) {
	c := qt.New(t)

	failing, failingURI := newFakeNode(c, "rpcerror")
	other, otherURI := newFakeNode(c, "ok")

	pool := NewWeb3Pool()
	defer pool.Close()
	chainID, err := pool.AddEndpoint(failingURI)
	c.Assert(err, qt.IsNil)
	_, err = pool.AddEndpoint(otherURI)
	c.Assert(err, qt.IsNil)
	cli, err := pool.Client(chainID)
	c.Assert(err, qt.IsNil)

	_, err = cli.PendingNonceAt(context.Background(), common.Address{})
	c.Assert(err, qt.ErrorMatches, ".*nonce too low.*")
	c.Assert(failing.calls.Load(), qt.Equals, int64(1))
	c.Assert(other.calls.Load(), qt.Equals, int64(0))
	c.Assert(pool.NumberOfEndpoints(chainID, true), qt.Equals, 2)
}

func TestSendTransactionIsNotResent(t *testing.T) {
	c := qt.New(t)

	reset, resetURI := newFakeNode(c, "reset")
	other, otherURI := newFakeNode(c, "ok")

	pool := NewWeb3Pool()
	defer pool.Close()
	chainID, err := pool.AddEndpoint(resetURI)
	c.Assert(err, qt.IsNil)
	_, err = pool.AddEndpoint(otherURI)
	c.Assert(err, qt.IsNil)
	cli, err := pool.Client(chainID)
	c.Assert(err, qt.IsNil)

	tx := types.NewTx(&types.LegacyTx{Nonce: 1, Gas: 21000, GasPrice: big.NewInt(1), Value: big.NewInt(1)})
	err = cli.SendTransaction(context.Background(), tx)
	c.Assert(err, qt.IsNotNil)
	c.Assert(reset.calls.Load(), qt.Equals, int64(1))
	c.Assert(other.calls.Load(), qt.Equals, int64(0))

	// the broken endpoint is disabled for the next calls, reads still fail over
	c.Assert(pool.NumberOfEndpoints(chainID, true), qt.Equals, 1)
	nonce, err := cli.PendingNonceAt(context.Background(), common.Address{})
	c.Assert(err, qt.IsNil)
	c.Assert(nonce, qt.Equals, uint64(5))
	c.Assert(other.calls.Load(), qt.Equals, int64(1))
}

func TestIsTransportError(t *testing.T) {
	c := qt.New(t)

	ctx := context.Background()
	c.Assert(isTransportError(ctx, ethereum.NotFound), qt.IsFalse)
	c.Assert(isTransportError(ctx, context.DeadlineExceeded), qt.IsTrue)

	canceled, cancel := context.WithCancel(ctx)
	cancel()
	c.Assert(isTransportError(canceled, context.Canceled), qt.IsFalse)
}
