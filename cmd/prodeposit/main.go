package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	flag "github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/vocdoni/prodeposit-dapp/api"
	"github.com/vocdoni/prodeposit-dapp/config"
	"github.com/vocdoni/prodeposit-dapp/controller"
	"github.com/vocdoni/prodeposit-dapp/i18n"
	"github.com/vocdoni/prodeposit-dapp/log"
	"github.com/vocdoni/prodeposit-dapp/service"
	"github.com/vocdoni/prodeposit-dapp/wallet"
	"github.com/vocdoni/prodeposit-dapp/web3"
)

// runnable is anything with the Start/Stop lifecycle of the service package.
type runnable interface {
	Start(ctx context.Context) error
	Stop()
}

func main() {
	envFile := flag.String("env", ".env", "path of the .env file, ignored if it does not exist")
	logLevel := flag.String("logLevel", "", "log level (debug, info, warn, error), overrides the environment")
	flag.Parse()

	cfg, err := config.Load(*envFile)
	if err != nil {
		log.Fatal(err)
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	log.Init(cfg.LogLevel, cfg.LogOutput, nil)

	network := cfg.ChainNetwork()
	contracts, err := web3.NewContracts(cfg.Contract(), cfg.Endpoints()...)
	if err != nil {
		log.Fatal(err)
	}
	defer contracts.Close()
	if contracts.ChainID != network.ChainID {
		log.Fatalf("web3 endpoints serve chainID %d, %s is %d", contracts.ChainID, network.Name, network.ChainID)
	}
	log.Infow("contracts initialized", "chainId", contracts.ChainID, "network", network.Name,
		"contract", contracts.ContractAddress().Hex())

	catalog := i18n.New(cfg.Language)
	ctrl := controller.New(catalog, 0)
	provider := wallet.NewProvider()
	services := []runnable{
		service.NewSessionBinder(provider, service.Web3Contracts(contracts), ctrl),
		service.NewAPI(ctrl, provider, api.Info{
			AppName:                cfg.AppName,
			Network:                network.Name,
			ChainID:                network.ChainID,
			Contract:               contracts.ContractAddress(),
			WalletConnectProjectID: cfg.WalletConnectProjectID,
			Language:               catalog.Language().String(),
		}, cfg.Host, cfg.Port),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, gctx := errgroup.WithContext(ctx)
	for _, s := range services {
		g.Go(func() error {
			if err := s.Start(gctx); err != nil {
				return err
			}
			<-gctx.Done()
			s.Stop()
			return nil
		})
	}

	if err := autoConnect(cfg, provider); err != nil {
		log.Warnw("wallet auto-connect failed", "error", err.Error())
	}

	if err := g.Wait(); err != nil {
		log.Fatal(err)
	}
	log.Infow("shutdown complete")
}

// autoConnect connects the wallet configured in the environment, if any.
func autoConnect(cfg *config.Config, provider *wallet.Provider) error {
	switch {
	case cfg.PrivateKey != "":
		_, err := provider.ConnectHexKey(cfg.PrivateKey)
		return err
	case cfg.KeystoreFile != "":
		keyJSON, err := os.ReadFile(cfg.KeystoreFile)
		if err != nil {
			return err
		}
		_, err = provider.ConnectKeystore(keyJSON, cfg.KeystorePassword)
		return err
	}
	return nil
}
