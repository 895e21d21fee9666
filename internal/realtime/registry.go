package realtime

import "sync"

// Registry maps a user ID to the set of that user's live connections on this
// process. A user key exists only while its set is non-empty.
type Registry struct {
	mu    sync.RWMutex
	users map[string]map[string]Conn
	conns int
}

func NewRegistry() *Registry {
	return &Registry{users: make(map[string]map[string]Conn)}
}

// Add inserts c into the set for userID. Adding the same connection ID twice is a no-op.
func (r *Registry) Add(userID string, c Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.users[userID]
	if !ok {
		set = make(map[string]Conn)
		r.users[userID] = set
	}
	if _, exists := set[c.ID()]; exists {
		return
	}
	set[c.ID()] = c
	r.conns++
}

// Remove deletes c from the set for userID and drops the key once the set is empty.
// Removing an unknown user or connection is a no-op.
func (r *Registry) Remove(userID string, c Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.users[userID]
	if !ok {
		return
	}
	if _, exists := set[c.ID()]; !exists {
		return
	}
	delete(set, c.ID())
	r.conns--
	if len(set) == 0 {
		delete(r.users, userID)
	}
}

// Get returns a snapshot of userID's connections. The slice is freshly
// allocated; mutating it does not affect the registry.
func (r *Registry) Get(userID string) []Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	set := r.users[userID]
	if len(set) == 0 {
		return nil
	}
	out := make([]Conn, 0, len(set))
	for _, c := range set {
		out = append(out, c)
	}
	return out
}

// IsOnline reports whether userID has at least one live connection here.
func (r *Registry) IsOnline(userID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.users[userID]
	return ok
}

// ConnectedUsers is the number of distinct users with a live connection.
func (r *Registry) ConnectedUsers() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.users)
}

// ConnectionCount is the number of live connections across all users.
func (r *Registry) ConnectionCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.conns
}
