package core

import "github.com/rs/zerolog"

// Broadcaster is the outbound primitive: deliver an event to every session
// in a room at the moment of the call. Delivery is best effort and never
// blocks the caller; a slow or closing connection drops the event for that
// one session only.
type Broadcaster struct {
	reg *Registry
	log *zerolog.Logger
}

// NewBroadcaster builds a broadcaster over the given registry.
func NewBroadcaster(reg *Registry, logger *zerolog.Logger) *Broadcaster {
	return &Broadcaster{reg: reg, log: logger}
}

// Emit delivers the event to every current member of the room. Sessions
// joining after Emit returns do not receive it.
func (b *Broadcaster) Emit(roomID, event string, payload any) {
	for _, s := range b.reg.MembersOf(roomID) {
		b.send(s, Event{Name: event, Payload: payload})
	}
}

// EmitExcept is Emit minus one session, used for sender-excluding relays.
func (b *Broadcaster) EmitExcept(roomID, exceptSessionID, event string, payload any) {
	for _, s := range b.reg.MembersOf(roomID) {
		if s.ID == exceptSessionID {
			continue
		}
		b.send(s, Event{Name: event, Payload: payload})
	}
}

// EmitGlobal delivers the event to every connected session, for events with
// no natural room such as team creation.
func (b *Broadcaster) EmitGlobal(event string, payload any) {
	for _, s := range b.reg.Sessions() {
		b.send(s, Event{Name: event, Payload: payload})
	}
}

// EmitTo delivers the event to a single session.
func (b *Broadcaster) EmitTo(s *Session, event string, payload any) {
	b.send(s, Event{Name: event, Payload: payload})
}

func (b *Broadcaster) send(s *Session, ev Event) {
	select {
	case s.Events <- ev:
	default:
		// Slow consumer; drop for this session only.
		if b.log != nil {
			b.log.Warn().
				Str("session_id", s.ID).
				Str("event", ev.Name).
				Msg("outbox full, event dropped")
		}
	}
}
