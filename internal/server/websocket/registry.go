package websocket

import (
	"sync"
)

// Registry maps connection ids to connection records. It reflects exactly
// the currently-open authenticated connections: entries are created on
// successful handshake authentication and removed synchronously on
// disconnect. It is not persisted; clients re-register after a restart.
type Registry struct {
	mu    sync.RWMutex
	conns map[string]*ConnectionRecord
}

// NewRegistry creates an empty connection registry.
func NewRegistry() *Registry {
	return &Registry{
		conns: make(map[string]*ConnectionRecord),
	}
}

// Record registers a connection. A reused connection id is not expected from
// the transport, but if it occurs the last write wins.
func (r *Registry) Record(connID string, record *ConnectionRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conns[connID] = record
}

// Remove drops a connection. Removing an unknown id is a no-op; disconnect
// events may race with incomplete authentication.
func (r *Registry) Remove(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.conns, connID)
}

// Get returns the record for a connection id. Absence is a normal, expected
// outcome (the connection may already be gone).
func (r *Registry) Get(connID string) (*ConnectionRecord, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.conns[connID]
	return rec, ok
}

// Count returns the number of registered connections. Used for operational
// visibility only.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}
