package room

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// Chat lines go through the store first and are relayed only once saved,
// so every client sees the stored ID.

func (r *Room) postChat(sess *Session, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return fmt.Errorf("%w: empty message", ErrBadRequest)
	}
	if n := utf8.RuneCountInString(text); r.cfg.MaxMessageLength > 0 && n > r.cfg.MaxMessageLength {
		return fmt.Errorf("%w: message is %d characters, limit is %d", ErrBadRequest, n, r.cfg.MaxMessageLength)
	}
	msg := ChatMessage{
		UserID:    sess.Identity.ID,
		Username:  sess.Identity.Name,
		Text:      text,
		AvatarURL: sess.Identity.AvatarURL,
		CreatedAt: r.now(),
	}
	store, sid := r.chat, sess.ID
	ok := r.persist.enqueue(job{name: "save-chat", run: func(ctx context.Context) Command {
		saved, err := store.SaveMessage(ctx, msg)
		return chatStored{session: sid, message: saved, err: err}
	}})
	if !ok {
		return fmt.Errorf("%w: chat is busy, try again", ErrUnavailable)
	}
	return nil
}

func (r *Room) deleteChat(sess *Session, id int64) error {
	if id <= 0 {
		return fmt.Errorf("%w: messageId must be positive", ErrBadRequest)
	}
	store, sid, owner := r.chat, sess.ID, sess.Identity.ID
	ok := r.persist.enqueue(job{name: "delete-chat", run: func(ctx context.Context) Command {
		return chatDeleted{session: sid, id: id, err: store.DeleteMessage(ctx, id, owner)}
	}})
	if !ok {
		return fmt.Errorf("%w: chat is busy, try again", ErrUnavailable)
	}
	return nil
}

// loadHistory replays recent chat to sid once the store answers.
func (r *Room) loadHistory(sid SessionID) {
	store, limit := r.chat, r.cfg.HistoryLimit
	ok := r.persist.enqueue(job{name: "load-history", run: func(ctx context.Context) Command {
		msgs, err := store.RecentMessages(ctx, limit)
		return historyLoaded{session: sid, messages: msgs, err: err}
	}})
	if !ok {
		r.out.Session(sid, PreviousMessagesEvent{Messages: []ChatLine{}})
	}
}

func (r *Room) deliverHistory(c historyLoaded) {
	if c.err != nil {
		r.log.Warn("could not load chat history", "session", c.session, "error", c.err)
	}
	lines := make([]ChatLine, 0, len(c.messages))
	for _, msg := range c.messages {
		lines = append(lines, newChatLine(msg, r.cfg.Location))
	}
	r.out.Session(c.session, PreviousMessagesEvent{Messages: lines})
}

func (r *Room) relayChat(c chatStored) {
	if c.err != nil {
		r.log.Error("could not store chat message", "session", c.session, "error", c.err)
		r.rejectLate(c.session, fmt.Errorf("%w: message was not saved", ErrUnavailable))
		return
	}
	r.out.All(ChatMessageEvent{Message: newChatLine(c.message, r.cfg.Location)})
}

func (r *Room) relayDelete(c chatDeleted) {
	switch {
	case errors.Is(c.err, ErrMessageNotFound):
		r.rejectLate(c.session, fmt.Errorf("%w: message %d", ErrNotFound, c.id))
	case c.err != nil:
		r.log.Error("could not delete chat message", "message", c.id, "error", c.err)
		r.rejectLate(c.session, fmt.Errorf("%w: message was not deleted", ErrUnavailable))
	default:
		r.out.All(MessageDeletedEvent{MessageID: c.id})
	}
}

// rejectLate reports an asynchronous failure if the session is still here.
func (r *Room) rejectLate(sid SessionID, err error) {
	if sess, ok := r.sessions.Get(sid); ok {
		r.reject(sess, err)
	}
}
