// Package config loads the dApp configuration from the environment. An
// optional .env file is loaded first; variables already set in the
// environment take precedence over it.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/vocdoni/prodeposit-dapp/util"
)

// EnvPrefix is the prefix of every environment variable.
const EnvPrefix = "PRODEPOSIT"

// Network is an Ethereum network the dApp can run on.
type Network struct {
	Name    string
	ChainID uint64
	// alchemy is the Alchemy subdomain of the network, empty if Alchemy
	// does not serve it.
	alchemy string
}

// Networks lists the supported networks by name.
var Networks = map[string]Network{
	"mainnet": {Name: "mainnet", ChainID: 1, alchemy: "eth-mainnet"},
	"sepolia": {Name: "sepolia", ChainID: 11155111, alchemy: "eth-sepolia"},
	"holesky": {Name: "holesky", ChainID: 17000, alchemy: "eth-holesky"},
	"local":   {Name: "local", ChainID: 1337},
}

// Config contains all configuration parameters of the dApp.
type Config struct {
	ContractAddress        string `envconfig:"CONTRACT_ADDRESS" required:"true"`
	WalletConnectProjectID string `envconfig:"WALLET_CONNECT_PROJECT_ID"`
	AppName                string `envconfig:"APP_NAME" default:"Simple DApp"`
	Network                string `envconfig:"NETWORK" default:"sepolia"`
	RPCEndpoints           string `envconfig:"RPC_ENDPOINTS"`
	AlchemyID              string `envconfig:"ALCHEMY_ID"`
	Language               string `envconfig:"LANGUAGE" default:"en"`
	Host                   string `envconfig:"HOST" default:"0.0.0.0"`
	Port                   int    `envconfig:"PORT" default:"8080"`
	LogLevel               string `envconfig:"LOG_LEVEL" default:"info"`
	LogOutput              string `envconfig:"LOG_OUTPUT" default:"stdout"`
	PrivateKey             string `envconfig:"PRIVATE_KEY"`
	KeystoreFile           string `envconfig:"KEYSTORE_FILE"`
	KeystorePassword       string `envconfig:"KEYSTORE_PASSWORD"`
}

// Load reads envFile, if it exists, and then the environment. The result is
// validated. An empty envFile skips the file.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	}
	cfg := &Config{}
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the values that envconfig cannot.
func (c *Config) Validate() error {
	if !common.IsHexAddress(c.ContractAddress) {
		return fmt.Errorf("invalid contract address %q", c.ContractAddress)
	}
	if _, ok := Networks[strings.ToLower(c.Network)]; !ok {
		return fmt.Errorf("unknown network %q", c.Network)
	}
	if len(c.Endpoints()) == 0 {
		return fmt.Errorf("no RPC endpoint configured, set %s_RPC_ENDPOINTS or %s_ALCHEMY_ID", EnvPrefix, EnvPrefix)
	}
	if c.PrivateKey != "" && c.KeystoreFile != "" {
		return fmt.Errorf("private key and keystore file are mutually exclusive")
	}
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	return nil
}

// Contract returns the contract address.
func (c *Config) Contract() common.Address {
	return common.HexToAddress(c.ContractAddress)
}

// ChainNetwork returns the configured network.
func (c *Config) ChainNetwork() Network {
	return Networks[strings.ToLower(c.Network)]
}

// Endpoints returns the RPC endpoints in order. The Alchemy endpoint, if an
// Alchemy id is set, goes last.
func (c *Config) Endpoints() []string {
	endpoints := util.SplitList(c.RPCEndpoints)
	if c.AlchemyID != "" {
		if sub := c.ChainNetwork().alchemy; sub != "" {
			endpoints = append(endpoints, fmt.Sprintf("https://%s.g.alchemy.com/v2/%s", sub, c.AlchemyID))
		}
	}
	return endpoints
}
