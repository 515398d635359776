package rpc

import (
	"fmt"
	"sync"
)

// Web3Iterator iterates over the endpoints of a single chain. Endpoints are
// either available or disabled; Next returns available endpoints in a round
// robin fashion and, once all of them have been disabled, makes them all
// available again.
type Web3Iterator struct {
	mu        sync.Mutex
	available []*Web3Endpoint
	disabled  []*Web3Endpoint
	next      int
}

// NewWeb3Iterator creates an iterator with the given available endpoints.
func NewWeb3Iterator(endpoints ...*Web3Endpoint) *Web3Iterator {
	return &Web3Iterator{available: endpoints}
}

// Add appends an endpoint to the available list.
func (w *Web3Iterator) Add(endpoint ...*Web3Endpoint) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.available = append(w.available, endpoint...)
}

// Next returns the next available endpoint.
func (w *Web3Iterator) Next() (*Web3Endpoint, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.available) == 0 {
		if len(w.disabled) == 0 {
			return nil, fmt.Errorf("no endpoints available")
		}
		// every endpoint failed, give all of them another chance
		w.available, w.disabled = w.disabled, nil
		w.next = 0
	}
	if w.next >= len(w.available) {
		w.next = 0
	}
	endpoint := w.available[w.next]
	w.next++
	return endpoint, nil
}

// Disable moves the endpoint with the given URI to the disabled list.
func (w *Web3Iterator) Disable(uri string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for i, e := range w.available {
		if e.URI == uri {
			w.available = append(w.available[:i], w.available[i+1:]...)
			w.disabled = append(w.disabled, e)
			if w.next > i {
				w.next--
			}
			return
		}
	}
}

// Available returns the number of available endpoints.
func (w *Web3Iterator) Available() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.available)
}

// Disabled returns the number of disabled endpoints.
func (w *Web3Iterator) Disabled() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.disabled)
}

// All returns every endpoint, available or not.
func (w *Web3Iterator) All() []*Web3Endpoint {
	w.mu.Lock()
	defer w.mu.Unlock()
	all := make([]*Web3Endpoint, 0, len(w.available)+len(w.disabled))
	all = append(all, w.available...)
	return append(all, w.disabled...)
}
