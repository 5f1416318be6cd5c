// Package hub maintains connected websocket sessions and their room
// memberships, and fans events out to rooms. Membership is fixed at
// connect time; a session leaves its rooms only by disconnecting.
package hub

import (
	"sync"

	"github.com/sirupsen/logrus"
)

// Event is one frame delivered to sessions, serialized as
// {"event": ..., "data": ...} on the wire.
type Event struct {
	Name string `json:"event"`
	Data any    `json:"data"`
}

// Hub is the room router. All methods are safe for concurrent use.
type Hub struct {
	log *logrus.Entry

	mu       sync.RWMutex
	rooms    map[string]map[*Session]struct{}
	sessions map[*Session]struct{}
}

// New creates an empty Hub.
func New() *Hub {
	return &Hub{
		log:      logrus.WithField("component", "hub"),
		rooms:    make(map[string]map[*Session]struct{}),
		sessions: make(map[*Session]struct{}),
	}
}

// Join adds the session to a room. Idempotent.
func (h *Hub) Join(s *Session, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.sessions[s]; !ok {
		return
	}
	members, ok := h.rooms[room]
	if !ok {
		members = make(map[*Session]struct{})
		h.rooms[room] = members
	}
	members[s] = struct{}{}
	s.rooms[room] = struct{}{}
}

// Broadcast delivers an event to every current member of the room.
// Fire-and-forget: sessions whose send buffers are full drop the event.
func (h *Hub) Broadcast(room string, ev Event) {
	h.mu.RLock()
	members := h.rooms[room]
	targets := make([]*Session, 0, len(members))
	for s := range members {
		targets = append(targets, s)
	}
	h.mu.RUnlock()

	for _, s := range targets {
		select {
		case s.send <- ev:
		default:
			h.log.WithFields(logrus.Fields{
				"room":    room,
				"session": s.ID,
				"event":   ev.Name,
			}).Debug("dropped event for slow session")
		}
	}
}

// Counts returns the number of connected sessions and non-empty rooms,
// for the health endpoint.
func (h *Hub) Counts() (clients, rooms int) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions), len(h.rooms)
}

// register adds a new session before any joins happen.
func (h *Hub) register(s *Session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sessions[s] = struct{}{}
}

// remove drops the session from every room it joined. Empty rooms are
// deleted so health counts reflect live subscriptions only.
func (h *Hub) remove(s *Session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.sessions[s]; !ok {
		return
	}
	delete(h.sessions, s)
	for room := range s.rooms {
		if members, ok := h.rooms[room]; ok {
			delete(members, s)
			if len(members) == 0 {
				delete(h.rooms, room)
			}
		}
	}
}
