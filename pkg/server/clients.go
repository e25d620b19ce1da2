package server

import (
	"sort"
	"sync"
	"time"
)

// IdleAfter marks a client idle in ClientInfo
const IdleAfter = 5 * time.Minute

// ClientRegistry tracks open WebSocket connections.
type ClientRegistry struct {
	mu      sync.RWMutex
	clients map[string]*Client
}

// NewClientRegistry creates an empty registry
func NewClientRegistry() *ClientRegistry {
	return &ClientRegistry{clients: make(map[string]*Client)}
}

// Add stores a client and returns the new connection count.
func (r *ClientRegistry) Add(client *Client) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.clients[client.ID] = client
	return len(r.clients)
}

// Remove drops a client and returns the new connection count.
func (r *ClientRegistry) Remove(clientID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.clients, clientID)
	return len(r.clients)
}

// Get retrieves a client by ID
func (r *ClientRegistry) Get(clientID string) (*Client, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	client, ok := r.clients[clientID]
	return client, ok
}

// All returns every registered client
func (r *ClientRegistry) All() []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()

	clients := make([]*Client, 0, len(r.clients))
	for _, c := range r.clients {
		clients = append(clients, c)
	}
	return clients
}

// Count returns the number of connected clients
func (r *ClientRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.clients)
}

// Touch updates the last activity time for a client
func (r *ClientRegistry) Touch(clientID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if c, ok := r.clients[clientID]; ok {
		c.LastActivity = time.Now()
	}
}

// Info returns a snapshot of connected clients ordered by connect time.
func (r *ClientRegistry) Info() []ClientInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	now := time.Now()
	infos := make([]ClientInfo, 0, len(r.clients))
	for _, c := range r.clients {
		infos = append(infos, ClientInfo{
			ID:           c.ID,
			ConnectedAt:  c.ConnectedAt,
			LastActivity: c.LastActivity,
			IPAddress:    c.IPAddress,
			Idle:         now.Sub(c.LastActivity) > IdleAfter,
		})
	}
	sort.Slice(infos, func(i, j int) bool {
		return infos[i].ConnectedAt.Before(infos[j].ConnectedAt)
	})
	return infos
}
