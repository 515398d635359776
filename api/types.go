package api

import (
	"encoding/json"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/vocdoni/prodeposit-dapp/types"
)

// Info is the public configuration of the dApp.
type Info struct {
	AppName                string         `json:"appName"`
	Network                string         `json:"network"`
	ChainID                uint64         `json:"chainId"`
	Contract               common.Address `json:"contract"`
	WalletConnectProjectID string         `json:"walletConnectProjectId,omitempty"`
	Language               string         `json:"language"`
}

// ConnectRequest connects a wallet either with a hex private key or with an
// encrypted keystore and its password.
type ConnectRequest struct {
	PrivateKey string          `json:"privateKey,omitempty"`
	Keystore   json.RawMessage `json:"keystore,omitempty"`
	Password   string          `json:"password,omitempty"`
}

// SessionResponse describes the wallet session.
type SessionResponse struct {
	Connected bool            `json:"connected"`
	Address   *common.Address `json:"address,omitempty"`
}

// AmountRequest carries the amount field of an action, as a decimal ether
// string. In action requests it is optional and, when present, replaces the
// stored input before the action starts.
type AmountRequest struct {
	Amount *string `json:"amount,omitempty"`
}

// ActionResponse is returned when an action lifecycle starts.
type ActionResponse struct {
	ID     uuid.UUID    `json:"id"`
	Action types.Action `json:"action"`
}
