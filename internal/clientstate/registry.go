package clientstate

import (
	"context"
	"errors"
	"strings"
	"sync"

	"cv-optimizer/internal/shared/storage/kv"
)

// ErrMissingClientID is returned when no client identity was supplied.
var ErrMissingClientID = errors.New("client id is required")

// Registry builds a Store per request for a client identity. Each client's keys
// live in their own namespace of the shared backend with their own quota. The
// backend is the only durable copy; the registry keeps nothing per client
// except which submissions are in flight.
type Registry struct {
	backend    kv.Store
	quotaBytes int64
	opts       Options
	flights    *flightGuard
}

// NewRegistry constructs a Registry over backend. quotaBytes <= 0 disables the quota.
func NewRegistry(backend kv.Store, quotaBytes int64, opts Options) *Registry {
	return &Registry{
		backend:    backend,
		quotaBytes: quotaBytes,
		opts:       opts,
		flights:    newFlightGuard(),
	}
}

// For returns a Store for the client freshly loaded from the backend.
func (r *Registry) For(ctx context.Context, clientID string) (*Store, error) {
	clientID = strings.TrimSpace(clientID)
	if clientID == "" {
		return nil, ErrMissingClientID
	}

	s := New(kv.WithQuota(kv.Namespace(r.backend, clientID), r.quotaBytes), r.opts)
	s.flights = r.flights
	s.clientID = clientID
	if err := s.Load(ctx); err != nil {
		return nil, err
	}
	if r.flights.active(clientID) {
		s.mu.Lock()
		s.status = StatusInFlight
		s.mu.Unlock()
	}
	return s, nil
}

// Len reports how many clients have a submission in flight.
func (r *Registry) Len() int {
	return r.flights.len()
}

// flightGuard tracks clients with a running submission. Entries are removed
// on release, so its size is bounded by concurrent submissions. A nil guard
// admits everything.
type flightGuard struct {
	mu      sync.Mutex
	running map[string]struct{}
}

func newFlightGuard() *flightGuard {
	return &flightGuard{running: make(map[string]struct{})}
}

func (g *flightGuard) acquire(clientID string) bool {
	if g == nil {
		return true
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.running[clientID]; ok {
		return false
	}
	g.running[clientID] = struct{}{}
	return true
}

func (g *flightGuard) release(clientID string) {
	if g == nil {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.running, clientID)
}

func (g *flightGuard) active(clientID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.running[clientID]
	return ok
}

func (g *flightGuard) len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.running)
}
