package core

import "sync"

// Presence tracks which principal is behind each live connection. It backs
// typing indicators and online-member listings; it holds no room topology.
type Presence struct {
	mu     sync.RWMutex
	byConn map[string]*Principal
}

// NewPresence constructs an empty presence tracker.
func NewPresence() *Presence {
	return &Presence{byConn: make(map[string]*Principal)}
}

// Set records the principal for a connection. A nil principal marks an
// anonymous connection as present.
func (p *Presence) Set(sessionID string, principal *Principal) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.byConn[sessionID] = principal
}

// Drop forgets a connection.
func (p *Presence) Drop(sessionID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.byConn, sessionID)
}

// Get returns the principal behind a connection, if tracked.
func (p *Presence) Get(sessionID string) (*Principal, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	principal, ok := p.byConn[sessionID]
	return principal, ok
}

// Count returns the number of tracked connections.
func (p *Presence) Count() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.byConn)
}

// OnlineInRoom returns the distinct principals behind the room's current
// members. Anonymous connections are skipped.
func (p *Presence) OnlineInRoom(reg *Registry, roomID string) []*Principal {
	members := reg.MembersOf(roomID)

	p.mu.RLock()
	defer p.mu.RUnlock()

	seen := make(map[string]struct{}, len(members))
	online := make([]*Principal, 0, len(members))
	for _, s := range members {
		principal, ok := p.byConn[s.ID]
		if !ok || principal == nil {
			continue
		}
		if _, dup := seen[principal.ID]; dup {
			continue
		}
		seen[principal.ID] = struct{}{}
		online = append(online, principal)
	}
	return online
}
