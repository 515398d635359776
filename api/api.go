package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/vocdoni/prodeposit-dapp/controller"
	"github.com/vocdoni/prodeposit-dapp/log"
	"github.com/vocdoni/prodeposit-dapp/metrics"
	"github.com/vocdoni/prodeposit-dapp/wallet"
)

// APIConfig type represents the configuration for the API HTTP server.
type APIConfig struct {
	Host       string
	Port       int
	Controller *controller.Controller
	Wallet     *wallet.Provider
	Info       Info
}

// API type represents the API HTTP server of the dApp.
type API struct {
	router   *chi.Mux
	ctrl     *controller.Controller
	wallet   *wallet.Provider
	info     Info
	server   *http.Server
	listener net.Listener
	done     chan struct{}
	closeOne sync.Once
}

// New creates a new API instance with the given configuration and starts the
// HTTP server.
func New(conf *APIConfig) (*API, error) {
	if conf == nil {
		return nil, fmt.Errorf("missing API configuration")
	}
	if conf.Controller == nil {
		return nil, fmt.Errorf("missing controller instance")
	}
	if conf.Wallet == nil {
		return nil, fmt.Errorf("missing wallet provider")
	}
	a := &API{
		ctrl:   conf.Controller,
		wallet: conf.Wallet,
		info:   conf.Info,
		done:   make(chan struct{}),
	}

	// Initialize router
	a.initRouter()
	listener, err := net.Listen("tcp", net.JoinHostPort(conf.Host, strconv.Itoa(conf.Port)))
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s:%d: %w", conf.Host, conf.Port, err)
	}
	a.listener = listener
	a.server = &http.Server{
		Handler:           a.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Infow("Starting API server", "addr", listener.Addr().String())
		if err := a.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorw(err, "API server stopped")
		}
	}()
	return a, nil
}

// Router returns the chi router for testing purposes
func (a *API) Router() *chi.Mux {
	return a.router
}

// Addr returns the address the server is listening on.
func (a *API) Addr() string {
	return a.listener.Addr().String()
}

// Close stops the HTTP server and ends the open event streams.
func (a *API) Close(ctx context.Context) error {
	a.closeOne.Do(func() { close(a.done) })
	if err := a.server.Shutdown(ctx); err != nil {
		return a.server.Close()
	}
	return nil
}

// registerHandlers registers all the API handlers.
func (a *API) registerHandlers(r chi.Router) {
	log.Infow("register handler", "endpoint", PingEndpoint, "method", "GET")
	r.Get(PingEndpoint, func(w http.ResponseWriter, r *http.Request) {
		httpWriteOK(w)
	})
	log.Infow("register handler", "endpoint", ConfigEndpoint, "method", "GET")
	r.Get(ConfigEndpoint, a.config)
	log.Infow("register handler", "endpoint", SessionEndpoint, "method", "GET")
	r.Get(SessionEndpoint, a.session)
	log.Infow("register handler", "endpoint", SessionEndpoint, "method", "POST")
	r.Post(SessionEndpoint, a.connect)
	log.Infow("register handler", "endpoint", SessionEndpoint, "method", "DELETE")
	r.Delete(SessionEndpoint, a.disconnect)
	log.Infow("register handler", "endpoint", SessionQREndpoint, "method", "GET")
	r.Get(SessionQREndpoint, a.sessionQR)
	log.Infow("register handler", "endpoint", StateEndpoint, "method", "GET")
	r.Get(StateEndpoint, a.state)
	log.Infow("register handler", "endpoint", RefreshEndpoint, "method", "POST")
	r.Post(RefreshEndpoint, a.refresh)
	log.Infow("register handler", "endpoint", InputEndpoint, "method", "PUT")
	r.Put(InputEndpoint, a.setInput)
	log.Infow("register handler", "endpoint", ActionEndpoint, "method", "POST")
	r.Post(ActionEndpoint, a.startAction)
	log.Infow("register handler", "endpoint", StatusEndpoint, "method", "GET")
	r.Get(StatusEndpoint, a.status)
}

// initRouter creates the router with all the routes and middleware.
func (a *API) initRouter() {
	// Create the router with a basic middleware stack
	a.router = chi.NewRouter()
	a.router.Use(cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		AllowCredentials: true,
		MaxAge:           300, // Maximum value not ignored by any of major browsers
	}).Handler)
	a.router.Use(middleware.Logger)
	a.router.Use(middleware.Recoverer)
	a.router.Use(instrument)
	a.router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		ErrResourceNotFound.Write(w)
	})

	// long lived endpoints are not throttled nor timed out
	log.Infow("register handler", "endpoint", EventsEndpoint, "method", "GET")
	a.router.Get(EventsEndpoint, a.events)
	log.Infow("register handler", "endpoint", MetricsEndpoint, "method", "GET")
	a.router.Method(http.MethodGet, MetricsEndpoint, metrics.Handler())

	a.router.Group(func(r chi.Router) {
		r.Use(middleware.Throttle(100))
		r.Use(middleware.ThrottleBacklog(5000, 40000, 60*time.Second))
		r.Use(middleware.Timeout(45 * time.Second))
		// Register the API handlers
		a.registerHandlers(r)
	})
}

// instrument counts the requests by route pattern, method and status code.
func instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		metrics.HTTPRequests.WithLabelValues(route, r.Method, strconv.Itoa(ww.Status())).Inc()
	})
}
