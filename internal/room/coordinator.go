package room

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"
)

// Config holds configuration for the room.
type Config struct {
	MaxDepth         int           // Largest board depth a challenge may request
	ChallengeTTL     time.Duration // How long before an unanswered challenge expires
	GameOverGrace    time.Duration // How long a finished match stays visible
	HistoryLimit     int           // Chat lines replayed on connect
	MaxMessageLength int           // Longest accepted chat line, in runes
	NotificationCap  int           // Per-identity queue limit, 0 = unbounded
	MailboxSize      int
	PersistQueue     int
	PersistTimeout   time.Duration
	Location         *time.Location // Zone for chat timestamps
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		MaxDepth:         4,
		ChallengeTTL:     10 * time.Minute,
		GameOverGrace:    10 * time.Second,
		HistoryLimit:     100,
		MaxMessageLength: 2000,
		NotificationCap:  100,
		MailboxSize:      256,
		PersistQueue:     1024,
		PersistTimeout:   5 * time.Second,
		Location:         time.UTC,
	}
}

// Option customizes a Room.
type Option func(*Room)

// WithChatStore replaces the in-memory chat log.
func WithChatStore(store ChatStore) Option {
	return func(r *Room) { r.chat = store }
}

// WithResultSaver persists finished matches.
func WithResultSaver(saver MatchResultSaver) Option {
	return func(r *Room) { r.results = saver }
}

// WithClock overrides time.Now for timestamps.
func WithClock(now func() time.Time) Option {
	return func(r *Room) { r.now = now }
}

// Stats is a point-in-time view of the room.
type Stats struct {
	Sessions      int `json:"sessions"`
	Online        int `json:"online"`
	Challenges    int `json:"challenges"`
	Matches       int `json:"matches"`
	Finished      int `json:"finished"`
	Notifications int `json:"notifications"`
}

// Room owns all shared state. Every mutation happens on the loop goroutine
// started by Run, one command at a time in arrival order.
type Room struct {
	cfg     Config
	log     *log.Logger
	now     func() time.Time
	chat    ChatStore
	results MatchResultSaver // Optional, can be nil

	sessions   *Registry
	out        *Router
	challenges *ChallengeBook
	matches    map[MatchID]*Match
	notes      *NotificationQueue
	persist    *persister

	inbox    chan Command
	replies  chan Command
	done     chan struct{}
	doneOnce sync.Once
}

// New creates a room. Call Run to start processing.
func New(cfg Config, logger *log.Logger, opts ...Option) *Room {
	if logger == nil {
		logger = log.Default()
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.MailboxSize < 1 {
		cfg.MailboxSize = 256
	}
	sessions := NewRegistry()
	r := &Room{
		cfg:        cfg,
		log:        logger,
		now:        time.Now,
		chat:       NewMemoryChat(cfg.HistoryLimit),
		sessions:   sessions,
		out:        NewRouter(sessions, logger),
		challenges: NewChallengeBook(),
		matches:    make(map[MatchID]*Match),
		notes:      NewNotificationQueue(cfg.NotificationCap),
		persist:    newPersister(cfg.PersistQueue, cfg.PersistTimeout, logger.WithPrefix("persist")),
		inbox:      make(chan Command, cfg.MailboxSize),
		replies:    make(chan Command, cfg.MailboxSize),
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run processes commands until ctx is cancelled. It must be called once.
func (r *Room) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return r.persist.run(ctx, r.replies) })
	g.Go(func() error { return r.loop(ctx) })
	return g.Wait()
}

func (r *Room) loop(ctx context.Context) error {
	defer r.shutdown()
	r.log.Info("room started", "max_depth", r.cfg.MaxDepth, "challenge_ttl", r.cfg.ChallengeTTL)
	for {
		select {
		case cmd := <-r.inbox:
			r.dispatch(cmd)
		case cmd := <-r.replies:
			r.dispatch(cmd)
		case <-ctx.Done():
			r.log.Info("room stopping", "sessions", r.sessions.Count(), "matches", len(r.matches))
			return nil
		}
	}
}

func (r *Room) shutdown() {
	r.doneOnce.Do(func() {
		close(r.done)
		r.challenges.stopAll()
		for _, m := range r.matches {
			if m.retire != nil {
				m.retire.Stop()
			}
		}
	})
}

// Submit queues cmd for the room loop. It blocks while the mailbox is full.
func (r *Room) Submit(ctx context.Context, cmd Command) error {
	select {
	case <-r.done:
		return ErrRoomClosed
	default:
	}
	select {
	case r.inbox <- cmd:
		return nil
	case <-r.done:
		return ErrRoomClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Done closes when the room loop has stopped.
func (r *Room) Done() <-chan struct{} {
	return r.done
}

// Stats asks the room loop for a snapshot.
func (r *Room) Stats(ctx context.Context) (Stats, error) {
	reply := make(chan Stats, 1)
	if err := r.Submit(ctx, statsQuery{reply: reply}); err != nil {
		return Stats{}, err
	}
	select {
	case s := <-reply:
		return s, nil
	case <-r.done:
		return Stats{}, ErrRoomClosed
	case <-ctx.Done():
		return Stats{}, ctx.Err()
	}
}

// post is used by timers; it gives up once the room has stopped.
func (r *Room) post(cmd Command) {
	select {
	case r.inbox <- cmd:
	case <-r.done:
	}
}

// dispatch applies one command. A panicking handler is logged and the loop
// carries on with the next command.
func (r *Room) dispatch(cmd Command) {
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Error("command handler panicked", "command", fmt.Sprintf("%T", cmd), "panic", rec)
		}
	}()

	switch c := cmd.(type) {
	case Connect:
		r.handleConnect(c)
	case Disconnect:
		r.handleDisconnect(c)
	case Malformed:
		r.request(c.Session, func(s *Session) error {
			r.log.Warn("malformed frame", "user", s.Identity.Name, "error", c.Err)
			return fmt.Errorf("%w: %v", ErrBadRequest, c.Err)
		})
	case CreateChallenge:
		r.request(c.Session, func(s *Session) error { return r.createChallenge(s, c) })
	case AcceptChallenge:
		r.request(c.Session, func(s *Session) error { return r.acceptChallenge(s, c.ChallengeID) })
	case DeclineChallenge:
		r.request(c.Session, func(s *Session) error { return r.declineChallenge(s, c.ChallengeID) })
	case CancelChallenge:
		r.request(c.Session, func(s *Session) error { return r.cancelChallenge(s, c.ChallengeID) })
	case PlayMove:
		r.request(c.Session, func(s *Session) error { return r.playMove(s, c) })
	case Forfeit:
		r.request(c.Session, func(s *Session) error { return r.forfeit(s, c.GameID) })
	case NotificationsRead:
		r.request(c.Session, func(s *Session) error {
			r.notes.MarkRead(s.Identity.ID)
			return nil
		})
	case PostChat:
		r.request(c.Session, func(s *Session) error { return r.postChat(s, c.Text) })
	case SetTyping:
		r.request(c.Session, func(s *Session) error {
			r.out.AllExcept(TypingEvent{Username: s.Identity.Name, Started: c.Typing}, s.ID)
			return nil
		})
	case DeleteChat:
		r.request(c.Session, func(s *Session) error { return r.deleteChat(s, c.MessageID) })
	case challengeExpired:
		r.expireChallenge(c.id)
	case matchRetired:
		r.retireMatch(c.id)
	case historyLoaded:
		r.deliverHistory(c)
	case chatStored:
		r.relayChat(c)
	case chatDeleted:
		r.relayDelete(c)
	case resultSaved:
		if c.err != nil {
			r.log.Error("could not save match result", "match", c.match, "error", c.err)
		}
	case statsQuery:
		c.reply <- r.stats()
	default:
		r.log.Warn("unhandled command", "command", fmt.Sprintf("%T", cmd))
	}
}

// request resolves the sending session and reports a handler error back to it.
func (r *Room) request(sid SessionID, handle func(*Session) error) {
	sess, ok := r.sessions.Get(sid)
	if !ok {
		r.log.Debug("command from unknown session", "session", sid)
		return
	}
	if err := handle(sess); err != nil {
		r.reject(sess, err)
	}
}

func (r *Room) reject(sess *Session, err error) {
	code := CodeOf(err)
	if code == CodeInternal {
		r.log.Error("request failed", "user", sess.Identity.Name, "error", err)
	} else {
		r.log.Debug("request rejected", "user", sess.Identity.Name, "code", code, "error", err)
	}
	r.out.Session(sess.ID, GameErrorEvent{Error: err.Error(), Code: code})
}

func (r *Room) handleConnect(c Connect) {
	if c.Handle == nil {
		r.log.Warn("connect without a handle", "user", c.Identity.Name)
		return
	}
	sess, first, err := r.sessions.Register(c.Identity, c.Handle, r.now())
	if err != nil {
		r.log.Warn("rejecting connection", "session", c.Handle.ID(), "error", err)
		return
	}
	uid := sess.Identity.ID
	r.log.Info("session joined", "user", sess.Identity.Name, "session", sess.ID, "sessions", r.sessions.Count())

	r.out.All(OnlineUsersEvent{Users: r.sessions.ListOnline()})
	if first {
		r.out.AllExcept(SystemMessageEvent{Text: sess.Identity.Name + " joined the chat"}, sess.ID)
	}

	r.out.Session(sess.ID, PendingNotificationsEvent{Notifications: r.notes.Drain(uid)})
	r.out.Session(sess.ID, IncomingChallengesEvent{Challenges: r.challenges.Incoming(uid)})
	r.out.Session(sess.ID, OutgoingChallengesEvent{Challenges: r.challenges.Outgoing(uid)})
	for _, m := range r.matchesOf(uid, false) {
		r.out.Session(sess.ID, GameStartedEvent{GameState: m.State(), YourSymbol: m.MarkOf(uid)})
	}
	r.loadHistory(sess.ID)
}

func (r *Room) handleDisconnect(c Disconnect) {
	sess, last, ok := r.sessions.Unregister(c.Session)
	if !ok {
		return
	}
	r.log.Info("session left", "user", sess.Identity.Name, "session", sess.ID, "sessions", r.sessions.Count())

	r.out.All(OnlineUsersEvent{Users: r.sessions.ListOnline()})
	if last {
		r.out.All(SystemMessageEvent{Text: sess.Identity.Name + " left the chat"})
	}
}

// matchesOf returns uid's matches, oldest first. Unless activeOnly is set,
// finished matches still in their display grace period are included.
func (r *Room) matchesOf(uid UserID, activeOnly bool) []*Match {
	var out []*Match
	for _, m := range r.matches {
		if !m.Has(uid) || (activeOnly && m.Status.Terminal()) {
			continue
		}
		out = append(out, m)
	}
	slices.SortFunc(out, func(a, b *Match) int { return a.CreatedAt.Compare(b.CreatedAt) })
	return out
}

func (r *Room) stats() Stats {
	s := Stats{
		Sessions:      r.sessions.Count(),
		Online:        r.sessions.Users(),
		Challenges:    r.challenges.Len(),
		Notifications: r.notes.Len(),
	}
	for _, m := range r.matches {
		if m.Status.Terminal() {
			s.Finished++
		} else {
			s.Matches++
		}
	}
	return s
}

func (r *Room) notify(uid UserID, kind NotificationKind, data map[string]any) {
	r.notes.Enqueue(uid, NewNotification(uid, kind, data, r.now()))
	r.log.Debug("queued notification", "user", uid, "kind", kind, "pending", r.notes.Pending(uid))
}
