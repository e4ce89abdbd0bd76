package ws

import (
	"sync"
)

// Presence is told when the first companion connects and the last one leaves.
// Calls are made under the hub lock, so they arrive in order and must not
// block.
type Presence interface {
	SetControlConnected(connected bool)
}

// Hub tracks the active websocket sessions for a transport instance.
type Hub struct {
	presence Presence

	mu       sync.Mutex
	sessions map[string]*Session
}

func NewHub(presence Presence) *Hub {
	return &Hub{
		presence: presence,
		sessions: make(map[string]*Session),
	}
}

// Register adds a new session to the hub.
func (h *Hub) Register(session *Session) {
	if session == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	first := len(h.sessions) == 0
	h.sessions[session.ID()] = session
	if first && h.presence != nil {
		h.presence.SetControlConnected(true)
	}
}

// Unregister removes the session from the hub.
func (h *Hub) Unregister(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, ok := h.sessions[id]
	delete(h.sessions, id)
	if ok && len(h.sessions) == 0 && h.presence != nil {
		h.presence.SetControlConnected(false)
	}
}

// CloseAll terminates all active sessions.
func (h *Hub) CloseAll(reason error) {
	if reason == nil {
		reason = ErrSessionShutdown
	}
	h.mu.Lock()
	sessions := make([]*Session, 0, len(h.sessions))
	for _, s := range h.sessions {
		sessions = append(sessions, s)
	}
	h.mu.Unlock()

	for _, s := range sessions {
		s.Close(reason)
	}
}

// Count exposes the number of active websocket connections.
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.sessions)
}
