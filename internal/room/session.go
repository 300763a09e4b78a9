package room

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"
)

// SessionHandle is the transport-neutral interface for writing to one connection.
// It allows the room to deliver frames without depending on the websocket layer.
type SessionHandle interface {
	// ID returns the unique session identifier.
	ID() SessionID

	// Send queues an encoded frame for the connection.
	// Must be non-blocking; implementations should use buffered channels.
	Send(frame []byte)

	// Done returns a channel that closes when the connection ends.
	Done() <-chan struct{}
}

// ChannelSession is a SessionHandle implementation using Go channels.
// The websocket write pump drains Frames; tests read it directly.
type ChannelSession struct {
	id       SessionID
	frames   chan []byte
	done     chan struct{}
	doneOnce sync.Once
}

// NewChannelSession creates a new channel-based session handle.
// bufferSize controls how many frames can be buffered before dropping.
func NewChannelSession(id SessionID, bufferSize int) *ChannelSession {
	if bufferSize < 1 {
		bufferSize = 64
	}
	return &ChannelSession{
		id:     id,
		frames: make(chan []byte, bufferSize),
		done:   make(chan struct{}),
	}
}

// ID returns the session identifier.
func (s *ChannelSession) ID() SessionID {
	return s.id
}

// Send queues a frame. If the buffer is full the oldest frame is dropped.
func (s *ChannelSession) Send(frame []byte) {
	select {
	case <-s.done:
		return
	default:
	}

	select {
	case s.frames <- frame:
	default:
		// Buffer full, drop oldest and retry
		select {
		case <-s.frames:
		default:
		}
		select {
		case s.frames <- frame:
		default:
		}
	}
}

// Frames returns the channel to receive frames from.
func (s *ChannelSession) Frames() <-chan []byte {
	return s.frames
}

// Done returns the done channel.
func (s *ChannelSession) Done() <-chan struct{} {
	return s.done
}

// Close marks the session as done.
// Safe to call multiple times.
func (s *ChannelSession) Close() {
	s.doneOnce.Do(func() {
		close(s.done)
	})
}

// Session is one registered connection and the identity behind it.
type Session struct {
	ID          SessionID
	Identity    Identity
	ConnectedAt time.Time
	handle      SessionHandle
}

// ErrDuplicateSession is returned when a handle is registered twice.
var ErrDuplicateSession = errors.New("room: session already registered")

// Registry tracks live sessions. It is owned by the room loop and is not
// safe for concurrent use.
type Registry struct {
	sessions map[SessionID]*Session
	byUser   map[UserID][]*Session
	known    map[UserID]Identity
}

// NewRegistry creates an empty session registry.
func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[SessionID]*Session),
		byUser:   make(map[UserID][]*Session),
		known:    make(map[UserID]Identity),
	}
}

// Register adds a connection for identity. first reports whether this is the
// identity's only live session.
func (r *Registry) Register(id Identity, handle SessionHandle, now time.Time) (sess *Session, first bool, err error) {
	sid := handle.ID()
	if _, exists := r.sessions[sid]; exists {
		return nil, false, fmt.Errorf("%w: %s", ErrDuplicateSession, sid)
	}
	sess = &Session{ID: sid, Identity: id, ConnectedAt: now, handle: handle}
	r.sessions[sid] = sess
	r.byUser[id.ID] = append(r.byUser[id.ID], sess)
	r.known[id.ID] = id
	return sess, len(r.byUser[id.ID]) == 1, nil
}

// Unregister removes a session. last reports whether the identity has no
// sessions left.
func (r *Registry) Unregister(sid SessionID) (sess *Session, last bool, ok bool) {
	sess, ok = r.sessions[sid]
	if !ok {
		return nil, false, false
	}
	delete(r.sessions, sid)

	uid := sess.Identity.ID
	remaining := slices.DeleteFunc(r.byUser[uid], func(s *Session) bool { return s.ID == sid })
	if len(remaining) == 0 {
		delete(r.byUser, uid)
		return sess, true, true
	}
	r.byUser[uid] = remaining
	return sess, false, true
}

// Get retrieves a session by ID.
func (r *Registry) Get(sid SessionID) (*Session, bool) {
	s, ok := r.sessions[sid]
	return s, ok
}

// Find returns every live session of an identity, oldest first.
func (r *Registry) Find(uid UserID) []*Session {
	return r.byUser[uid]
}

// Online reports whether the identity has at least one live session.
func (r *Registry) Online(uid UserID) bool {
	return len(r.byUser[uid]) > 0
}

// Lookup returns the last identity seen for uid, connected or not.
func (r *Registry) Lookup(uid UserID) (Identity, bool) {
	id, ok := r.known[uid]
	if !ok {
		return Identity{ID: uid, Name: fmt.Sprintf("user %d", uid)}, false
	}
	return id, true
}

// ListOnline returns each connected identity once, sorted by name.
func (r *Registry) ListOnline() []Identity {
	users := make([]Identity, 0, len(r.byUser))
	for uid, sessions := range r.byUser {
		if len(sessions) == 0 {
			continue
		}
		users = append(users, r.known[uid])
	}
	slices.SortFunc(users, func(a, b Identity) int {
		if c := strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name)); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return users
}

// All returns every live session.
func (r *Registry) All() []*Session {
	all := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		all = append(all, s)
	}
	return all
}

// Count returns the number of registered sessions.
func (r *Registry) Count() int {
	return len(r.sessions)
}

// Users returns the number of distinct connected identities.
func (r *Registry) Users() int {
	return len(r.byUser)
}
