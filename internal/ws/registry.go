package ws

import "sync"

// Registry maps verified user ids to their live connection. At most one
// connection is tracked per user; binding again replaces the previous
// mapping without closing the old connection (last-connected wins).
type Registry struct {
	mu      sync.RWMutex
	clients map[int64]*Client
}

// NewRegistry creates an empty session registry.
func NewRegistry() *Registry {
	return &Registry{clients: make(map[int64]*Client)}
}

// Bind registers or replaces the connection for a user.
func (r *Registry) Bind(userID int64, c *Client) {
	r.mu.Lock()
	r.clients[userID] = c
	r.mu.Unlock()
}

// Unbind removes the mapping for a user, but only if it still points at
// the given connection. A disconnect that races with a fast reconnect
// must not evict the newer session.
func (r *Registry) Unbind(userID int64, c *Client) {
	r.mu.Lock()
	if r.clients[userID] == c {
		delete(r.clients, userID)
	}
	r.mu.Unlock()
}

// Resolve returns the live connection for a user, if any.
func (r *Registry) Resolve(userID int64) (*Client, bool) {
	r.mu.RLock()
	c, ok := r.clients[userID]
	r.mu.RUnlock()
	return c, ok
}

// Count returns the number of bound sessions.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clients)
}
