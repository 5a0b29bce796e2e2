package core

// Principal is the authenticated identity attached to a connection or request.
type Principal struct {
	ID    string
	Email string
	Name  string
	Role  string
}

// IsAdmin reports whether the principal holds the global admin role.
func (p *Principal) IsAdmin() bool {
	return p != nil && p.Role == "admin"
}

// Event is one outbound notification queued for a connection.
type Event struct {
	Name    string
	Payload any
}

// Session is the server-side state of one live connection. Principal is nil
// only when the transport was configured to allow anonymous handshakes.
type Session struct {
	ID        string
	Principal *Principal
	Events    chan Event
}

// NewSession constructs a session with a buffered outbox.
func NewSession(id string, principal *Principal, outboxSize int) *Session {
	if outboxSize <= 0 {
		outboxSize = 32
	}
	return &Session{
		ID:        id,
		Principal: principal,
		Events:    make(chan Event, outboxSize),
	}
}

// ActorName returns a display name for the session's principal.
func (s *Session) ActorName() string {
	if s.Principal == nil {
		return "Anonymous"
	}
	return s.Principal.Name
}
