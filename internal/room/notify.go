package room

import (
	"time"

	"github.com/google/uuid"
)

// NotificationKind names what happened while the recipient was away.
type NotificationKind string

const (
	NotifyYourTurn          NotificationKind = "your-turn"
	NotifyChallengeReceived NotificationKind = "challenge-received"
	NotifyChallengeExpired  NotificationKind = "challenge-expired"
	NotifyForfeited         NotificationKind = "forfeited"
	NotifyGameOver          NotificationKind = "game-over"
)

// Notification is a queued event for an offline identity.
type Notification struct {
	ID        string           `json:"id"`
	UserID    UserID           `json:"userId"`
	Kind      NotificationKind `json:"kind"`
	Data      map[string]any   `json:"data,omitempty"`
	Read      bool             `json:"read"`
	CreatedAt time.Time        `json:"createdAt"`
}

// NewNotification stamps a notification with a fresh id.
func NewNotification(uid UserID, kind NotificationKind, data map[string]any, now time.Time) Notification {
	return Notification{
		ID:        uuid.NewString(),
		UserID:    uid,
		Kind:      kind,
		Data:      data,
		CreatedAt: now,
	}
}

// NotificationQueue buffers notifications per identity until the next
// connect. Owned by the room loop.
type NotificationQueue struct {
	limit  int // 0 = unbounded
	queues map[UserID][]Notification
}

// NewNotificationQueue creates a queue keeping at most limit entries per identity.
func NewNotificationQueue(limit int) *NotificationQueue {
	return &NotificationQueue{
		limit:  limit,
		queues: make(map[UserID][]Notification),
	}
}

// Enqueue appends n for uid, dropping the oldest entry past the limit.
func (q *NotificationQueue) Enqueue(uid UserID, n Notification) {
	queue := append(q.queues[uid], n)
	if q.limit > 0 && len(queue) > q.limit {
		queue = queue[len(queue)-q.limit:]
	}
	q.queues[uid] = queue
}

// Drain returns and clears everything queued for uid. Entries are handed
// out once; if the connection drops before delivery they are gone.
func (q *NotificationQueue) Drain(uid UserID) []Notification {
	queue := q.queues[uid]
	delete(q.queues, uid)
	if queue == nil {
		return []Notification{}
	}
	return queue
}

// MarkRead marks and clears whatever is still queued for uid.
// Returns how many entries were acknowledged.
func (q *NotificationQueue) MarkRead(uid UserID) int {
	queue := q.queues[uid]
	for i := range queue {
		queue[i].Read = true
	}
	delete(q.queues, uid)
	return len(queue)
}

// Pending returns how many notifications wait for uid.
func (q *NotificationQueue) Pending(uid UserID) int {
	return len(q.queues[uid])
}

// Len returns the total number of queued notifications.
func (q *NotificationQueue) Len() int {
	n := 0
	for _, queue := range q.queues {
		n += len(queue)
	}
	return n
}
