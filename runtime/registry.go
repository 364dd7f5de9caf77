package runtime

import (
	"fanous-live/contract"
	"fanous-live/domain"
	"sort"
	"sync"
	"time"

	"github.com/samber/lo"
)

type presence struct {
	entry domain.PresenceEntry
	conn  contract.Connection
}

// Registry is the single presence directory shared by every transport.
// Two indexes are kept in sync under one lock: user -> presence and
// connection -> user. No method performs I/O while holding the lock.
type Registry struct {
	mu          sync.RWMutex
	users       map[string]presence // map user -> presence
	connections map[string]string   // map connection -> user
	now         func() time.Time
}

func NewRegistry() *Registry {
	return &Registry{
		users:       make(map[string]presence),
		connections: make(map[string]string),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Register records conn as the live connection of userID.
// Last registration wins: a previous connection of the same user is dropped
// from both indexes, and a connection previously announced as another user
// stops representing that user.
func (r *Registry) Register(userID, displayName string, conn contract.Connection) {
	connectionID := conn.ID()

	r.mu.Lock()
	defer r.mu.Unlock()

	if current, ok := r.users[userID]; ok {
		if current.entry.ConnectionID == connectionID {
			current.entry.DisplayName = displayName
			current.conn = conn
			r.users[userID] = current
			return
		}
		delete(r.connections, current.entry.ConnectionID)
	}

	if previousUser, ok := r.connections[connectionID]; ok && previousUser != userID {
		delete(r.users, previousUser)
	}

	r.users[userID] = presence{
		entry: domain.PresenceEntry{
			UserID:       userID,
			ConnectionID: connectionID,
			DisplayName:  displayName,
			Since:        r.now(),
		},
		conn: conn,
	}
	r.connections[connectionID] = userID
}

// Unregister removes the entry owned by connectionID.
// Unknown or stale connections are ignored silently.
func (r *Registry) Unregister(connectionID string) (domain.PresenceEntry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	userID, ok := r.connections[connectionID]
	if !ok {
		return domain.PresenceEntry{}, false
	}
	delete(r.connections, connectionID)

	current, ok := r.users[userID]
	if !ok || current.entry.ConnectionID != connectionID {
		return domain.PresenceEntry{}, false
	}
	delete(r.users, userID)
	return current.entry, true
}

func (r *Registry) Find(userID string) (domain.PresenceEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.users[userID]
	return p.entry, ok
}

func (r *Registry) IsOnline(userID string) bool {
	_, ok := r.Find(userID)
	return ok
}

// Connection resolves the handle currently used to reach userID.
func (r *Registry) Connection(userID string) (contract.Connection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.users[userID]
	if !ok {
		return nil, false
	}
	return p.conn, true
}

// Connections returns a snapshot of every registered connection.
func (r *Registry) Connections() []contract.Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return lo.MapToSlice(r.users, func(_ string, p presence) contract.Connection {
		return p.conn
	})
}

// Online returns a snapshot of the presence entries ordered by user.
func (r *Registry) Online() []domain.PresenceEntry {
	r.mu.RLock()
	entries := lo.MapToSlice(r.users, func(_ string, p presence) domain.PresenceEntry {
		return p.entry
	})
	r.mu.RUnlock()

	sort.Slice(entries, func(i, j int) bool { return entries[i].UserID < entries[j].UserID })
	return entries
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.users)
}
