package client

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/vocdoni/prodeposit-dapp/api"
	"github.com/vocdoni/prodeposit-dapp/types"
)

// Config returns the public dApp configuration.
func (c *HTTPclient) Config() (*api.Info, error) {
	info := &api.Info{}
	return info, c.call(HTTPGET, nil, info, http.StatusOK, api.ConfigEndpoint)
}

// Session returns the wallet session.
func (c *HTTPclient) Session() (*api.SessionResponse, error) {
	s := &api.SessionResponse{}
	return s, c.call(HTTPGET, nil, s, http.StatusOK, api.SessionEndpoint)
}

// Connect connects the wallet of the given hex private key.
func (c *HTTPclient) Connect(privateKey string) (*api.SessionResponse, error) {
	s := &api.SessionResponse{}
	req := &api.ConnectRequest{PrivateKey: privateKey}
	return s, c.call(HTTPPOST, req, s, http.StatusOK, api.SessionEndpoint)
}

// ConnectKeystore connects the wallet of an encrypted keystore.
func (c *HTTPclient) ConnectKeystore(keystore []byte, password string) (*api.SessionResponse, error) {
	s := &api.SessionResponse{}
	req := &api.ConnectRequest{Keystore: keystore, Password: password}
	return s, c.call(HTTPPOST, req, s, http.StatusOK, api.SessionEndpoint)
}

// Disconnect drops the wallet session.
func (c *HTTPclient) Disconnect() error {
	return c.call(HTTPDELETE, nil, nil, http.StatusOK, api.SessionEndpoint)
}

// State returns the current snapshot.
func (c *HTTPclient) State() (*types.Snapshot, error) {
	snap := &types.Snapshot{}
	return snap, c.call(HTTPGET, nil, snap, http.StatusOK, api.StateEndpoint)
}

// Refresh re-reads balance and interest and returns the new snapshot.
func (c *HTTPclient) Refresh() (*types.Snapshot, error) {
	snap := &types.Snapshot{}
	return snap, c.call(HTTPPOST, nil, snap, http.StatusOK, api.RefreshEndpoint)
}

// SetInput sets the amount field of an action.
func (c *HTTPclient) SetInput(action types.Action, amount string) (*types.Snapshot, error) {
	snap := &types.Snapshot{}
	req := &api.AmountRequest{Amount: &amount}
	return snap, c.call(HTTPPUT, req, snap, http.StatusOK, "inputs", string(action))
}

// Start starts the lifecycle of an action. If amount is not empty it
// replaces the input field first.
func (c *HTTPclient) Start(action types.Action, amount string) (*api.ActionResponse, error) {
	req := &api.AmountRequest{}
	if amount != "" {
		req.Amount = &amount
	}
	resp := &api.ActionResponse{}
	return resp, c.call(HTTPPOST, req, resp, http.StatusAccepted, "actions", string(action))
}

// Status returns the current status message, or nil if there is none.
func (c *HTTPclient) Status() (*types.StatusMessage, error) {
	data, status, err := c.Request(HTTPGET, nil, nil, api.StatusEndpoint)
	if err != nil {
		return nil, err
	}
	switch status {
	case http.StatusNoContent:
		return nil, nil
	case http.StatusOK:
		msg := &types.StatusMessage{}
		if err := json.Unmarshal(data, msg); err != nil {
			return nil, fmt.Errorf("failed to decode response: %w", err)
		}
		return msg, nil
	}
	return nil, &Error{HTTPStatus: status, Message: string(data)}
}

// SessionQR returns the PNG QR code of the connected address.
func (c *HTTPclient) SessionQR(size int) ([]byte, error) {
	data, status, err := c.Request(HTTPGET, nil, []string{"size", fmt.Sprint(size)}, api.SessionQREndpoint)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, errorFrom(status, data)
	}
	return data, nil
}
