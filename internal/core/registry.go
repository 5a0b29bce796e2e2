package core

import "sync"

// Registry is the bidirectional session<->room index. It is the single
// synchronization point for membership: joins, leaves, teardown, and the
// member snapshots taken by the broadcaster all run under one lock, so an
// emit never misses a connection whose join already returned and never
// reaches one that finished teardown.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	rooms    map[string]map[string]struct{} // room id -> session ids
	joined   map[string]map[string]struct{} // session id -> room ids
}

// NewRegistry constructs an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[string]*Session),
		rooms:    make(map[string]map[string]struct{}),
		joined:   make(map[string]map[string]struct{}),
	}
}

// Register adds a session with an empty room set.
func (r *Registry) Register(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[s.ID] = s
	if r.joined[s.ID] == nil {
		r.joined[s.ID] = make(map[string]struct{})
	}
}

// Unregister removes the session from every room it was in and forgets it.
// Rooms emptied by the removal are pruned so the index stays bounded by the
// number of live memberships.
func (r *Registry) Unregister(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for roomID := range r.joined[sessionID] {
		delete(r.rooms[roomID], sessionID)
		if len(r.rooms[roomID]) == 0 {
			delete(r.rooms, roomID)
		}
	}
	delete(r.joined, sessionID)
	delete(r.sessions, sessionID)
}

// Join subscribes the session to a room. Idempotent; joining an already
// joined room is a no-op. Returns false for unknown sessions.
func (r *Registry) Join(sessionID, roomID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[sessionID]; !ok {
		return false
	}
	if r.rooms[roomID] == nil {
		r.rooms[roomID] = make(map[string]struct{})
	}
	r.rooms[roomID][sessionID] = struct{}{}
	r.joined[sessionID][roomID] = struct{}{}
	return true
}

// Leave unsubscribes the session from a room. Idempotent.
func (r *Registry) Leave(sessionID, roomID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.joined[sessionID], roomID)
	delete(r.rooms[roomID], sessionID)
	if len(r.rooms[roomID]) == 0 {
		delete(r.rooms, roomID)
	}
}

// MembersOf returns a snapshot of the sessions currently in the room.
// Unknown rooms yield an empty slice.
func (r *Registry) MembersOf(roomID string) []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := r.rooms[roomID]
	members := make([]*Session, 0, len(ids))
	for id := range ids {
		if s, ok := r.sessions[id]; ok {
			members = append(members, s)
		}
	}
	return members
}

// RoomsOf returns a snapshot of the rooms the session has joined.
func (r *Registry) RoomsOf(sessionID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rooms := make([]string, 0, len(r.joined[sessionID]))
	for roomID := range r.joined[sessionID] {
		rooms = append(rooms, roomID)
	}
	return rooms
}

// Sessions returns a snapshot of every registered session.
func (r *Registry) Sessions() []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	all := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		all = append(all, s)
	}
	return all
}

// RoomCount returns the number of rooms with at least one member.
func (r *Registry) RoomCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}
