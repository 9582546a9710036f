// Package server tracks which connections are online, what name they go by,
// and which room they are viewing, via the Registry type.
package server

import "sync"

// User is the registry's record for one active connection. ID is the
// transport-assigned connection id; Name is the client-supplied display
// name; Room is nil while the user views the global broadcast feed.
type User struct {
	ID   string
	Name string
	Room *string
}

// Registry is the single source of truth for who is online and what they
// are looking at. All mutation happens through its methods; callers receive
// value snapshots, never shared pointers.
type Registry struct {
	mu    sync.RWMutex
	users map[string]*registryEntry
	seq   uint64
}

type registryEntry struct {
	user User
	seq  uint64
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{users: make(map[string]*registryEntry)}
}

// Activate registers or re-registers a connection under a display name with
// no room. An existing entry for the same id is replaced, never duplicated.
func (r *Registry) Activate(id, name string) User {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.seq++
	entry := &registryEntry{user: User{ID: id, Name: name}, seq: r.seq}
	r.users[id] = entry
	return entry.user
}

// SetRoom updates a connection's current room in place. Unknown ids are a
// no-op.
func (r *Registry) SetRoom(id string, room *string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if entry, ok := r.users[id]; ok {
		entry.user.Room = room
	}
}

// Remove deletes a connection's entry. Removing an unknown id is a no-op.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.users, id)
}

// LookupByID returns the user registered under a connection id.
func (r *Registry) LookupByID(id string) (User, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.users[id]
	if !ok {
		return User{}, false
	}
	return entry.user, true
}

// LookupByName returns the user registered under a display name. Display
// names carry no uniqueness constraint; when several connections share one,
// the most recently activated connection wins, so repeated lookups within a
// process are deterministic.
func (r *Registry) LookupByName(name string) (User, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var best *registryEntry
	for _, entry := range r.users {
		if entry.user.Name != name {
			continue
		}
		if best == nil || entry.seq > best.seq {
			best = entry
		}
	}
	if best == nil {
		return User{}, false
	}
	return best.user, true
}

// All returns a snapshot of every registered user, ordered by activation
// (oldest first).
func (r *Registry) All() []User {
	r.mu.RLock()
	defer r.mu.RUnlock()

	users := make([]User, 0, len(r.users))
	for _, entry := range r.users {
		users = append(users, entry.user)
	}
	sortUsersByActivation(users, r.users)
	return users
}

// Len returns the number of registered connections.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.users)
}

func sortUsersByActivation(users []User, entries map[string]*registryEntry) {
	// Insertion sort; populations are tens of users, not thousands.
	for i := 1; i < len(users); i++ {
		for j := i; j > 0 && entries[users[j].ID].seq < entries[users[j-1].ID].seq; j-- {
			users[j], users[j-1] = users[j-1], users[j]
		}
	}
}
