package api_test

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"image/png"
	"io"
	"math/big"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	qt "github.com/frankban/quicktest"
	"github.com/gorilla/websocket"
	"github.com/vocdoni/prodeposit-dapp/api"
	"github.com/vocdoni/prodeposit-dapp/api/client"
	"github.com/vocdoni/prodeposit-dapp/controller"
	"github.com/vocdoni/prodeposit-dapp/i18n"
	"github.com/vocdoni/prodeposit-dapp/testutil"
	"github.com/vocdoni/prodeposit-dapp/types"
	"github.com/vocdoni/prodeposit-dapp/wallet"
)

var account = common.HexToAddress("0x00000000000000000000000000000000000000aa")

type testServer struct {
	api    *api.API
	ctrl   *controller.Controller
	wallet *wallet.Provider
	cli    *client.HTTPclient
}

func newTestServer(c *qt.C) *testServer {
	ctrl := controller.New(i18n.New("en"), time.Minute)
	provider := wallet.NewProvider()
	a, err := api.New(&api.APIConfig{
		Host:       "127.0.0.1",
		Port:       0,
		Controller: ctrl,
		Wallet:     provider,
		Info: api.Info{
			AppName:  "Simple DApp",
			Network:  "sepolia",
			ChainID:  11155111,
			Contract: common.HexToAddress("0x00000000000000000000000000000000000000cc"),
			Language: "en",
		},
	})
	c.Assert(err, qt.IsNil)
	c.Cleanup(func() { _ = a.Close(context.Background()) })
	cli, err := client.New("http://" + a.Addr())
	c.Assert(err, qt.IsNil)
	cli.SetRetries(1)
	return &testServer{api: a, ctrl: ctrl, wallet: provider, cli: cli}
}

// bind binds a mock contract for account, as the session binder does after a
// wallet connection.
func (ts *testServer) bind(owner common.Address) *testutil.MockContracts {
	mock := testutil.NewMockContracts(account, owner)
	addr := account
	ts.ctrl.Bind(mock, &addr)
	return mock
}

func apiErrorCode(c *qt.C, err error) (int, int) {
	var apiErr *client.Error
	c.Assert(errors.As(err, &apiErr), qt.IsTrue, qt.Commentf("error %v", err))
	return apiErr.HTTPStatus, apiErr.Code
}

func waitIdle(c *qt.C, cli *client.HTTPclient) *types.Snapshot {
	deadline := time.Now().Add(5 * time.Second)
	for {
		snap, err := cli.State()
		c.Assert(err, qt.IsNil)
		if snap.Pending == types.ActionNone {
			return snap
		}
		if time.Now().After(deadline) {
			c.Fatal("action still pending")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestNewValidatesConfig(t *testing.T) {
	c := qt.New(t)
	_, err := api.New(nil)
	c.Assert(err, qt.ErrorMatches, "missing API configuration")
	_, err = api.New(&api.APIConfig{Wallet: wallet.NewProvider()})
	c.Assert(err, qt.ErrorMatches, "missing controller instance")
	_, err = api.New(&api.APIConfig{Controller: controller.New(nil, 0)})
	c.Assert(err, qt.ErrorMatches, "missing wallet provider")
}

func TestConfigAndSession(t *testing.T) {
	c := qt.New(t)
	ts := newTestServer(c)

	info, err := ts.cli.Config()
	c.Assert(err, qt.IsNil)
	c.Assert(info.AppName, qt.Equals, "Simple DApp")
	c.Assert(info.ChainID, qt.Equals, uint64(11155111))

	s, err := ts.cli.Session()
	c.Assert(err, qt.IsNil)
	c.Assert(s.Connected, qt.IsFalse)
	c.Assert(s.Address, qt.IsNil)

	_, err = ts.cli.SessionQR(256)
	status, code := apiErrorCode(c, err)
	c.Assert(status, qt.Equals, http.StatusPreconditionFailed)
	c.Assert(code, qt.Equals, api.ErrNotConnected.Code)

	privKey, err := crypto.GenerateKey()
	c.Assert(err, qt.IsNil)
	addr := crypto.PubkeyToAddress(privKey.PublicKey)
	s, err = ts.cli.Connect("0x" + hex.EncodeToString(crypto.FromECDSA(privKey)))
	c.Assert(err, qt.IsNil)
	c.Assert(s.Connected, qt.IsTrue)
	c.Assert(*s.Address, qt.Equals, addr)
	c.Assert(ts.wallet.Session().Address(), qt.Equals, addr)

	qr, err := ts.cli.SessionQR(128)
	c.Assert(err, qt.IsNil)
	img, err := png.Decode(bytes.NewReader(qr))
	c.Assert(err, qt.IsNil)
	c.Assert(img.Bounds().Dx(), qt.Equals, 128)

	_, err = ts.cli.SessionQR(10)
	_, code = apiErrorCode(c, err)
	c.Assert(code, qt.Equals, api.ErrInvalidQRCodeSize.Code)

	_, err = ts.cli.Connect("not-a-key")
	_, code = apiErrorCode(c, err)
	c.Assert(code, qt.Equals, api.ErrWalletConnect.Code)

	c.Assert(ts.cli.Disconnect(), qt.IsNil)
	c.Assert(ts.wallet.Session(), qt.IsNil)
}

func TestPreconditions(t *testing.T) {
	c := qt.New(t)
	ts := newTestServer(c)

	_, err := ts.cli.Start(types.ActionDeposit, "1")
	status, code := apiErrorCode(c, err)
	c.Assert(status, qt.Equals, http.StatusPreconditionFailed)
	c.Assert(code, qt.Equals, api.ErrNotConnected.Code)

	_, err = ts.cli.Refresh()
	_, code = apiErrorCode(c, err)
	c.Assert(code, qt.Equals, api.ErrNotConnected.Code)

	ts.bind(common.Address{})
	_, err = ts.cli.Start(types.ActionDeposit, "  ")
	_, code = apiErrorCode(c, err)
	c.Assert(code, qt.Equals, api.ErrEmptyAmount.Code)

	_, err = ts.cli.Start(types.ActionOwnerDeposit, "1")
	_, code = apiErrorCode(c, err)
	c.Assert(code, qt.Equals, api.ErrNotOwner.Code)

	_, err = ts.cli.Start(types.Action("steal"), "1")
	status, code = apiErrorCode(c, err)
	c.Assert(status, qt.Equals, http.StatusBadRequest)
	c.Assert(code, qt.Equals, api.ErrUnknownAction.Code)

	_, err = ts.cli.SetInput(types.Action("steal"), "1")
	_, code = apiErrorCode(c, err)
	c.Assert(code, qt.Equals, api.ErrUnknownAction.Code)

	// nothing was posted for skipped actions
	msg, err := ts.cli.Status()
	c.Assert(err, qt.IsNil)
	c.Assert(msg, qt.IsNil)
}

func TestActionLifecycle(t *testing.T) {
	c := qt.New(t)
	ts := newTestServer(c)
	mock := ts.bind(common.Address{})
	mock.SetInterest(big.NewInt(1e16))

	snap, err := ts.cli.SetInput(types.ActionDeposit, "2")
	c.Assert(err, qt.IsNil)
	c.Assert(snap.Inputs[types.ActionDeposit], qt.Equals, "2")

	resp, err := ts.cli.Start(types.ActionDeposit, "")
	c.Assert(err, qt.IsNil)
	c.Assert(resp.Action, qt.Equals, types.ActionDeposit)
	c.Assert(resp.ID.String(), qt.Not(qt.Equals), "00000000-0000-0000-0000-000000000000")

	snap = waitIdle(c, ts.cli)
	c.Assert(snap.State.Balance, qt.Equals, "2")
	c.Assert(snap.State.Interest, qt.Equals, "0.01")
	c.Assert(snap.Inputs[types.ActionDeposit], qt.Equals, "")

	msg, err := ts.cli.Status()
	c.Assert(err, qt.IsNil)
	c.Assert(msg, qt.IsNotNil)
	c.Assert(msg.Kind, qt.Equals, types.SeveritySuccess)
	c.Assert(msg.Text, qt.Equals, i18n.New("en").Text(i18n.DepositDone))

	// a revert is classified and reported in the status message
	_, err = ts.cli.Start(types.ActionWithdraw, "5")
	c.Assert(err, qt.IsNil)
	snap = waitIdle(c, ts.cli)
	c.Assert(snap.State.Balance, qt.Equals, "2")
	c.Assert(snap.Inputs[types.ActionWithdraw], qt.Equals, "5")
	c.Assert(snap.Status, qt.IsNotNil)
	c.Assert(snap.Status.Kind, qt.Equals, types.SeverityError)
	c.Assert(snap.Status.Text, qt.Equals, i18n.New("en").Text(i18n.BalanceExceeded))

	snap, err = ts.cli.Refresh()
	c.Assert(err, qt.IsNil)
	c.Assert(snap.State.Balance, qt.Equals, "2")
	c.Assert(snap.Status.Text, qt.Equals, i18n.New("en").Text(i18n.Refreshed))
}

func TestBusy(t *testing.T) {
	c := qt.New(t)
	ts := newTestServer(c)
	mock := ts.bind(common.Address{})
	mock.Block = make(chan struct{})

	_, err := ts.cli.Start(types.ActionDeposit, "1")
	c.Assert(err, qt.IsNil)

	snap, err := ts.cli.State()
	c.Assert(err, qt.IsNil)
	c.Assert(snap.Pending, qt.Equals, types.ActionDeposit)

	_, err = ts.cli.Start(types.ActionWithdraw, "1")
	status, code := apiErrorCode(c, err)
	c.Assert(status, qt.Equals, http.StatusConflict)
	c.Assert(code, qt.Equals, api.ErrActionInProgress.Code)

	_, err = ts.cli.Refresh()
	_, code = apiErrorCode(c, err)
	c.Assert(code, qt.Equals, api.ErrActionInProgress.Code)

	close(mock.Block)
	snap = waitIdle(c, ts.cli)
	c.Assert(snap.State.Balance, qt.Equals, "1")
	c.Assert(mock.Calls("Withdraw"), qt.Equals, 0)
}

func TestRejectedTriggerKeepsInputs(t *testing.T) {
	c := qt.New(t)
	ts := newTestServer(c)
	mock := ts.bind(common.Address{})
	mock.Block = make(chan struct{})

	_, err := ts.cli.Start(types.ActionDeposit, "1")
	c.Assert(err, qt.IsNil)

	_, err = ts.cli.Start(types.ActionWithdraw, "7")
	status, _ := apiErrorCode(c, err)
	c.Assert(status, qt.Equals, http.StatusConflict)
	_, err = ts.cli.Start(types.ActionDeposit, "9")
	status, _ = apiErrorCode(c, err)
	c.Assert(status, qt.Equals, http.StatusConflict)
	_, err = ts.cli.Start(types.ActionOwnerDeposit, "3")
	status, _ = apiErrorCode(c, err)
	c.Assert(status, qt.Equals, http.StatusConflict)

	snap, err := ts.cli.State()
	c.Assert(err, qt.IsNil)
	c.Assert(snap.Inputs, qt.DeepEquals, map[types.Action]string{
		types.ActionDeposit:      "1",
		types.ActionWithdraw:     "",
		types.ActionOwnerDeposit: "",
	})

	close(mock.Block)
	snap = waitIdle(c, ts.cli)
	c.Assert(snap.State.Balance, qt.Equals, "1")
	c.Assert(snap.Inputs[types.ActionWithdraw], qt.Equals, "")

	// a precondition failure once idle does not store the amount either
	_, err = ts.cli.Start(types.ActionOwnerDeposit, "3")
	status, _ = apiErrorCode(c, err)
	c.Assert(status, qt.Equals, http.StatusPreconditionFailed)
	snap, err = ts.cli.State()
	c.Assert(err, qt.IsNil)
	c.Assert(snap.Inputs[types.ActionOwnerDeposit], qt.Equals, "")
}

func TestRefreshFailure(t *testing.T) {
	c := qt.New(t)
	ts := newTestServer(c)
	mock := ts.bind(common.Address{})
	mock.ReadErr = errors.New("insufficient funds for call")

	_, err := ts.cli.Refresh()
	status, code := apiErrorCode(c, err)
	c.Assert(status, qt.Equals, http.StatusBadGateway)
	c.Assert(code, qt.Equals, api.ErrRefreshFailed.Code)
	c.Assert(err, qt.ErrorMatches, ".*insufficient_funds.*")
}

func TestEvents(t *testing.T) {
	c := qt.New(t)
	ts := newTestServer(c)

	conn, resp, err := websocket.DefaultDialer.Dial("ws://"+ts.api.Addr()+api.EventsEndpoint, nil)
	c.Assert(err, qt.IsNil)
	defer conn.Close()
	if resp.Body != nil {
		_ = resp.Body.Close()
	}
	c.Assert(conn.SetReadDeadline(time.Now().Add(5*time.Second)), qt.IsNil)

	// the current snapshot comes first
	snap := &types.Snapshot{}
	c.Assert(conn.ReadJSON(snap), qt.IsNil)
	c.Assert(snap.Connected, qt.IsFalse)

	ts.bind(common.Address{})
	for !snap.Connected {
		snap = &types.Snapshot{}
		c.Assert(conn.ReadJSON(snap), qt.IsNil)
	}
	c.Assert(*snap.Address, qt.Equals, account)

	// closing the server ends the stream
	c.Assert(ts.api.Close(context.Background()), qt.IsNil)
	for {
		if _, _, err = conn.ReadMessage(); err != nil {
			break
		}
	}
	c.Assert(websocket.IsCloseError(err, websocket.CloseGoingAway), qt.IsTrue, qt.Commentf("error %v", err))
}

func TestMetrics(t *testing.T) {
	c := qt.New(t)
	ts := newTestServer(c)

	_, err := ts.cli.State()
	c.Assert(err, qt.IsNil)

	// requests are counted once the response is written
	deadline := time.Now().Add(5 * time.Second)
	for {
		resp, err := http.Get("http://" + ts.api.Addr() + api.MetricsEndpoint)
		c.Assert(err, qt.IsNil)
		c.Assert(resp.StatusCode, qt.Equals, http.StatusOK)
		body, err := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		c.Assert(err, qt.IsNil)
		if strings.Contains(string(body), `route="/state"`) {
			return
		}
		if time.Now().After(deadline) {
			c.Fatal("state requests not counted")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestNotFound(t *testing.T) {
	c := qt.New(t)
	ts := newTestServer(c)

	data, status, err := ts.cli.Request(client.HTTPGET, nil, nil, "votes")
	c.Assert(err, qt.IsNil)
	c.Assert(status, qt.Equals, http.StatusNotFound)
	c.Assert(strings.Contains(string(data), `"code":40001`), qt.IsTrue)
}
