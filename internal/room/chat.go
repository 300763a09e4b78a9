package room

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"
)

// ChatMessage is one stored chat line.
type ChatMessage struct {
	ID        int64
	UserID    UserID
	Username  string
	Text      string
	AvatarURL string
	CreatedAt time.Time
}

// ErrMessageNotFound is returned when deleting a line that does not exist
// or belongs to someone else.
var ErrMessageNotFound = errors.New("room: message not found")

// ChatStore persists the chat log. Calls run on the persistence worker,
// never on the room loop.
type ChatStore interface {
	// SaveMessage stores msg and returns it with its assigned ID.
	SaveMessage(ctx context.Context, msg ChatMessage) (ChatMessage, error)

	// RecentMessages returns up to limit messages, oldest first.
	RecentMessages(ctx context.Context, limit int) ([]ChatMessage, error)

	// DeleteMessage removes message id if it was written by owner.
	DeleteMessage(ctx context.Context, id int64, owner UserID) error
}

// MatchResultSaver persists finished matches.
// This allows the room to save results without depending on the storage package.
type MatchResultSaver interface {
	SaveMatchResult(ctx context.Context, rec MatchRecord) error
}

// MemoryChat keeps the last few messages in memory.
type MemoryChat struct {
	mu     sync.Mutex
	limit  int
	nextID int64
	msgs   []ChatMessage
}

// NewMemoryChat keeps at most limit messages.
func NewMemoryChat(limit int) *MemoryChat {
	if limit < 1 {
		limit = 100
	}
	return &MemoryChat{limit: limit}
}

// SaveMessage implements ChatStore.
func (m *MemoryChat) SaveMessage(_ context.Context, msg ChatMessage) (ChatMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	msg.ID = m.nextID
	m.msgs = append(m.msgs, msg)
	if len(m.msgs) > m.limit {
		m.msgs = slices.Delete(m.msgs, 0, len(m.msgs)-m.limit)
	}
	return msg, nil
}

// RecentMessages implements ChatStore.
func (m *MemoryChat) RecentMessages(_ context.Context, limit int) ([]ChatMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	start := 0
	if limit > 0 && len(m.msgs) > limit {
		start = len(m.msgs) - limit
	}
	return slices.Clone(m.msgs[start:]), nil
}

// DeleteMessage implements ChatStore.
func (m *MemoryChat) DeleteMessage(_ context.Context, id int64, owner UserID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := slices.IndexFunc(m.msgs, func(msg ChatMessage) bool {
		return msg.ID == id && msg.UserID == owner
	})
	if i < 0 {
		return ErrMessageNotFound
	}
	m.msgs = slices.Delete(m.msgs, i, i+1)
	return nil
}

var _ ChatStore = (*MemoryChat)(nil)
