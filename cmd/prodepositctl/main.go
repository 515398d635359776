package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/vocdoni/prodeposit-dapp/api/client"
	"github.com/vocdoni/prodeposit-dapp/log"
	"github.com/vocdoni/prodeposit-dapp/types"
)

const usage = `usage: prodepositctl [flags] <command> [amount]

commands:
  config                  show the dApp configuration
  session                 show the wallet session
  connect                 connect a wallet (--privkey or --keystore)
  disconnect              disconnect the wallet
  state                   show balance, interest and inputs
  refresh                 re-read balance and interest
  status                  show the current status message
  deposit <amount>        deposit ether
  withdraw <amount>       withdraw ether
  owner-deposit <amount>  fund the contract (owner only)

flags:
`

var actions = map[string]types.Action{
	"deposit":       types.ActionDeposit,
	"withdraw":      types.ActionWithdraw,
	"owner-deposit": types.ActionOwnerDeposit,
}

func main() {
	host := flag.String("host", "http://localhost:8080", "dApp API address")
	privKey := flag.String("privkey", "", "hex private key for connect")
	keystore := flag.String("keystore", "", "keystore file for connect")
	password := flag.String("password", "", "keystore password")
	wait := flag.Bool("wait", true, "wait for actions to finish and show the status message")
	timeout := flag.Duration("timeout", 5*time.Minute, "how long to wait for an action")
	flag.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}
	log.Init("warn", "stderr", nil)

	cli, err := client.New(*host)
	if err != nil {
		log.Fatalf("cannot reach %s: %v", *host, err)
	}

	var out any
	switch cmd := flag.Arg(0); cmd {
	case "config":
		out, err = cli.Config()
	case "session":
		out, err = cli.Session()
	case "connect":
		switch {
		case *privKey != "":
			out, err = cli.Connect(*privKey)
		case *keystore != "":
			var keyJSON []byte
			if keyJSON, err = os.ReadFile(*keystore); err == nil {
				out, err = cli.ConnectKeystore(keyJSON, *password)
			}
		default:
			err = fmt.Errorf("connect needs --privkey or --keystore")
		}
	case "disconnect":
		err = cli.Disconnect()
	case "state":
		out, err = cli.State()
	case "refresh":
		out, err = cli.Refresh()
	case "status":
		out, err = cli.Status()
	default:
		action, ok := actions[cmd]
		if !ok {
			flag.Usage()
			os.Exit(2)
		}
		out, err = start(cli, action, flag.Arg(1), *wait, *timeout)
	}
	if err != nil {
		log.Fatal(err)
	}
	if out != nil {
		printJSON(out)
	}
}

// start starts the action and, if wait is set, polls the state until it is
// no longer pending. It returns the final snapshot.
func start(cli *client.HTTPclient, action types.Action, amount string, wait bool, timeout time.Duration) (any, error) {
	resp, err := cli.Start(action, amount)
	if err != nil {
		return nil, err
	}
	if !wait {
		return resp, nil
	}
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		snap, err := cli.State()
		if err != nil {
			return nil, err
		}
		if snap.Pending == types.ActionNone {
			return snap, nil
		}
		time.Sleep(time.Second)
	}
	return nil, fmt.Errorf("action %s still pending after %s", resp.ID, timeout)
}

func printJSON(v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(string(data))
}
