// Package registry maintains the gateway's live connection table:
// which client identities have which tunnels open, and how to pick
// among several for outbound calls. This is component G of the tunnel
// gateway (spec.md §4.G).
package registry

import (
	"sync"
	"sync/atomic"

	"github.com/sufield/trz-gateway/internal/assert"
	"github.com/sufield/trz-gateway/internal/domain"
)

// ConnectionID uniquely identifies one tunnel connection within a
// gateway process. IDs are assigned in increasing order, used to break
// load-balancing ties deterministically (spec.md §4.G).
type ConnectionID uint64

// Connection is one live tunnel to a remote client: a gRPC channel the
// gateway can issue calls on, plus the load counter used to pick among
// several connections for the same client identity.
type Connection struct {
	ID       ConnectionID
	Channel  Channel
	inflight atomic.Int64
}

// Channel is the minimal surface the registry needs from a gRPC
// channel over a tunnel. Any value satisfies it, but ClientFor only
// dispatches through channels built by NewChannel; a connection holding
// any other Channel value is reported as domain.ErrNotRegistered.
type Channel interface {
	// Invoke and NewStream are not referenced directly by the registry
	// (callers dispatch through ClientConnInterface); Channel exists
	// so tests can substitute a fake without pulling in grpc.
}

// Registry is a sync.RWMutex-guarded map of client identity to its
// live connections (spec.md §4.G).
type Registry struct {
	mu      sync.RWMutex
	clients map[domain.ClientID]map[ConnectionID]*Connection
	nextID  atomic.Uint64
}

// New constructs an empty Registry.
func New() *Registry {
	return &Registry{clients: make(map[domain.ClientID]map[ConnectionID]*Connection)}
}

// NewConnectionID allocates the next monotonically increasing
// ConnectionID.
func (r *Registry) NewConnectionID() ConnectionID {
	return ConnectionID(r.nextID.Add(1))
}

// Add registers a connection under id's client identity.
func (r *Registry) Add(id domain.ClientID, conn *Connection) {
	r.mu.Lock()
	defer r.mu.Unlock()

	conns, ok := r.clients[id]
	if !ok {
		conns = make(map[ConnectionID]*Connection)
		r.clients[id] = conns
	}
	conns[conn.ID] = conn
}

// Remove drops connID from id's connection set. If it was the last
// connection for id, the client entry itself is removed.
func (r *Registry) Remove(id domain.ClientID, connID ConnectionID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	conns, ok := r.clients[id]
	if !ok {
		return
	}
	delete(conns, connID)
	if len(conns) == 0 {
		delete(r.clients, id)
	}
}

// ConnectionsFor returns a snapshot of the live connections for id.
func (r *Registry) ConnectionsFor(id domain.ClientID) []*Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conns, ok := r.clients[id]
	if !ok {
		return nil
	}
	out := make([]*Connection, 0, len(conns))
	for _, conn := range conns {
		out = append(out, conn)
	}
	return out
}

// Pick selects the live connection for id with the fewest outstanding
// requests, ties broken by the lowest ConnectionID — the Go equivalent
// of the original's tower::load::Load + PendingRequests decorator
// (spec.md §4.G, invariant 3). It reports domain.ErrNotRegistered if
// id has no live connections.
//
// Sequential calls never see inflight load above zero once each
// request's Begin/done pair completes before the next Pick, so a
// strictly sequential caller always routes to the lowest ConnectionID;
// the 30/70-style split only emerges under concurrent in-flight calls.
func (r *Registry) Pick(id domain.ClientID) (*Connection, error) {
	conns := r.ConnectionsFor(id)
	if len(conns) == 0 {
		return nil, domain.ErrNotRegistered
	}

	best := conns[0]
	bestLoad := best.inflight.Load()
	for _, conn := range conns[1:] {
		load := conn.inflight.Load()
		if load < bestLoad || (load == bestLoad && conn.ID < best.ID) {
			best = conn
			bestLoad = load
		}
	}
	assert.Invariant(best != nil, "Pick must select a non-nil connection from a non-empty connection set")
	return best, nil
}

// Begin marks one request as in flight on conn; the returned func must
// be called exactly once to mark it complete, typically via defer.
func (conn *Connection) Begin() func() {
	conn.inflight.Add(1)
	return func() { conn.inflight.Add(-1) }
}

// Inflight reports the current in-flight request count, for tests and
// diagnostics.
func (conn *Connection) Inflight() int64 {
	return conn.inflight.Load()
}
