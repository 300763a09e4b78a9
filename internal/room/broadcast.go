package room

import "github.com/charmbracelet/log"

// Router is the only path from room state to the wire. Each event is encoded
// once and the same frame is handed to every selected session.
type Router struct {
	sessions *Registry
	log      *log.Logger
}

// NewRouter creates a router that fans out over sessions.
func NewRouter(sessions *Registry, logger *log.Logger) *Router {
	return &Router{sessions: sessions, log: logger}
}

func (r *Router) encode(evt Event) ([]byte, bool) {
	frame, err := EncodeFrame(evt)
	if err != nil {
		r.log.Error("dropping unencodable event", "type", evt.EventType(), "error", err)
		return nil, false
	}
	return frame, true
}

// All sends evt to every session.
func (r *Router) All(evt Event) {
	r.filtered(evt, func(*Session) bool { return true })
}

// AllExcept sends evt to every session but sid.
func (r *Router) AllExcept(evt Event, sid SessionID) {
	r.filtered(evt, func(s *Session) bool { return s.ID != sid })
}

// AllExceptUser sends evt to every session not owned by uid.
func (r *Router) AllExceptUser(evt Event, uid UserID) {
	r.filtered(evt, func(s *Session) bool { return s.Identity.ID != uid })
}

// User sends evt to every session of uid and returns how many were reached.
// Zero means the identity is offline.
func (r *Router) User(uid UserID, evt Event) int {
	sessions := r.sessions.Find(uid)
	if len(sessions) == 0 {
		return 0
	}
	frame, ok := r.encode(evt)
	if !ok {
		return 0
	}
	for _, s := range sessions {
		s.handle.Send(frame)
	}
	return len(sessions)
}

// Session sends evt to one session.
func (r *Router) Session(sid SessionID, evt Event) bool {
	s, ok := r.sessions.Get(sid)
	if !ok {
		return false
	}
	frame, ok := r.encode(evt)
	if !ok {
		return false
	}
	s.handle.Send(frame)
	return true
}

func (r *Router) filtered(evt Event, keep func(*Session) bool) {
	if r.sessions.Count() == 0 {
		return
	}
	frame, ok := r.encode(evt)
	if !ok {
		return
	}
	for _, s := range r.sessions.All() {
		if keep(s) {
			s.handle.Send(frame)
		}
	}
}
