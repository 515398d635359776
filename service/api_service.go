package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/vocdoni/prodeposit-dapp/api"
	"github.com/vocdoni/prodeposit-dapp/controller"
	"github.com/vocdoni/prodeposit-dapp/log"
	"github.com/vocdoni/prodeposit-dapp/wallet"
)

// apiShutdownTimeout is how long Stop waits for in-flight requests.
const apiShutdownTimeout = 5 * time.Second

// APIService represents a service that manages the HTTP API server.
type APIService struct {
	ctrl   *controller.Controller
	wallet *wallet.Provider
	info   api.Info
	api    *api.API
	mu     sync.Mutex
	cancel context.CancelFunc
	host   string
	port   int
}

// NewAPI creates a new APIService instance.
func NewAPI(ctrl *controller.Controller, provider *wallet.Provider, info api.Info, host string, port int) *APIService {
	return &APIService{
		ctrl:   ctrl,
		wallet: provider,
		info:   info,
		host:   host,
		port:   port,
	}
}

// Start begins the API server. It returns an error if the service
// is already running or if it fails to start.
func (as *APIService) Start(ctx context.Context) error {
	as.mu.Lock()
	defer as.mu.Unlock()

	if as.cancel != nil {
		return fmt.Errorf("service already running")
	}

	_, as.cancel = context.WithCancel(ctx)

	var err error
	as.api, err = api.New(&api.APIConfig{
		Host:       as.host,
		Port:       as.port,
		Controller: as.ctrl,
		Wallet:     as.wallet,
		Info:       as.info,
	})
	if err != nil {
		as.cancel()
		as.cancel = nil
		return fmt.Errorf("failed to start API server: %w", err)
	}

	return nil
}

// Stop halts the API server.
func (as *APIService) Stop() {
	as.mu.Lock()
	defer as.mu.Unlock()

	if as.cancel != nil {
		as.cancel()
		as.cancel = nil
	}
	if as.api != nil {
		ctx, cancel := context.WithTimeout(context.Background(), apiShutdownTimeout)
		defer cancel()
		if err := as.api.Close(ctx); err != nil {
			log.Warnw("failed to stop API server", "error", err.Error())
		}
		as.api = nil
	}
}

// HostPort returns the host and port of the API server.
func (as *APIService) HostPort() (string, int) {
	return as.host, as.port
}

// Addr returns the address the API server is listening on, or an empty
// string if it is not running.
func (as *APIService) Addr() string {
	as.mu.Lock()
	defer as.mu.Unlock()
	if as.api == nil {
		return ""
	}
	return as.api.Addr()
}
