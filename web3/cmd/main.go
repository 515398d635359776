package main

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"
	flag "github.com/spf13/pflag"

	"github.com/vocdoni/prodeposit-dapp/controller"
	"github.com/vocdoni/prodeposit-dapp/i18n"
	"github.com/vocdoni/prodeposit-dapp/log"
	"github.com/vocdoni/prodeposit-dapp/types"
	"github.com/vocdoni/prodeposit-dapp/wallet"
	"github.com/vocdoni/prodeposit-dapp/web3"
)

var rpcs = []string{
	"https://sepolia.gateway.tenderly.co",
	"https://rpc.ankr.com/eth_sepolia",
	"https://eth-sepolia.public.blastapi.io",
	"https://1rpc.io/sepolia",
}

func main() {
	contract := flag.String("contract", "", "ProDeposit contract address")
	w3rpcs := flag.StringSlice("w3rpc", rpcs, "web3 rpc endpoints, the first one defines the chain")
	address := flag.String("address", "", "address to inspect, defaults to the account of --privkey")
	privKey := flag.String("privkey", "", "private key to use for the Ethereum account")
	action := flag.String("action", "", "action to run with --privkey (deposit, withdraw, ownerDeposit)")
	amount := flag.String("amount", "", "amount in ether for --action")
	timeout := flag.Duration("timeout", 5*time.Minute, "timeout for the whole run")
	flag.Parse()
	log.Init("debug", "stdout", nil)

	if !common.IsHexAddress(*contract) {
		log.Fatalf("invalid contract address %q", *contract)
	}
	contracts, err := web3.NewContracts(common.HexToAddress(*contract), *w3rpcs...)
	if err != nil {
		log.Fatal(err)
	}
	defer contracts.Close()
	log.Infow("contracts initialized", "chainId", contracts.ChainID)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	owner, err := contracts.Owner(ctx)
	if err != nil {
		log.Fatal(err)
	}
	log.Infow("contract owner", "owner", owner.Hex())

	var session *wallet.Session
	if *privKey != "" {
		if session, err = wallet.NewProvider().ConnectHexKey(*privKey); err != nil {
			log.Fatal(err)
		}
	}
	user := common.HexToAddress(*address)
	if *address == "" {
		if session == nil {
			return
		}
		user = session.Address()
	}
	balance, err := contracts.UserDeposit(ctx, user)
	if err != nil {
		log.Fatal(err)
	}
	interest, err := contracts.CalculateInterest(ctx, user)
	if err != nil {
		log.Fatal(err)
	}
	log.Infow("deposit state", "address", user.Hex(),
		"balance", types.FormatEther(balance), "interest", types.FormatEther(interest))

	if *action == "" {
		return
	}
	if session == nil {
		log.Fatal("--action needs --privkey")
	}
	var a types.Action
	_ = a.UnmarshalText([]byte(*action))
	addr := session.Address()
	ctrl := controller.New(i18n.New("en"), 0)
	ctrl.Bind(contracts.Account(session), &addr)
	if err := ctrl.CheckOwner(ctx); err != nil {
		log.Fatal(err)
	}
	if err := ctrl.SetInput(a, *amount); err != nil {
		log.Fatal(err)
	}
	if err := ctrl.Run(ctx, a); err != nil {
		log.Fatal(err)
	}
	snap := ctrl.Snapshot()
	log.Infow("action done", "action", a.String(), "balance", snap.State.Balance, "interest", snap.State.Interest)
}
