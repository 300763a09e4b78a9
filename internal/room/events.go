package room

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/phred2026-cyber/adc-chat-2029/internal/board"
)

// Event is an outbound message. EventType is the wire "type" tag.
type Event interface {
	EventType() string
}

// EncodeFrame flattens evt into one JSON object tagged by its type.
func EncodeFrame(evt Event) ([]byte, error) {
	body, err := json.Marshal(evt)
	if err != nil {
		return nil, fmt.Errorf("room: encode %s: %w", evt.EventType(), err)
	}
	tag, err := json.Marshal(evt.EventType())
	if err != nil {
		return nil, err
	}
	frame := make([]byte, 0, len(body)+len(tag)+9)
	frame = append(frame, `{"type":`...)
	frame = append(frame, tag...)
	if len(body) > 2 {
		frame = append(frame, ',')
		frame = append(frame, body[1:]...)
	} else {
		frame = append(frame, '}')
	}
	return frame, nil
}

// OnlineUsersEvent lists every connected identity.
type OnlineUsersEvent struct {
	Users []Identity `json:"users"`
}

func (OnlineUsersEvent) EventType() string { return "online-users" }

// ChallengeEvent offers a challenge.
type ChallengeEvent struct {
	Challenge ChallengeView `json:"challenge"`
}

func (ChallengeEvent) EventType() string { return "game-challenge" }

// ChallengeRemovedEvent retracts a challenge from every client.
type ChallengeRemovedEvent struct {
	ChallengeID ChallengeID `json:"challengeId"`
	Reason      string      `json:"reason"`
}

func (ChallengeRemovedEvent) EventType() string { return "game-challenge-removed" }

// ChallengeAcceptedEvent tells both players a challenge became a match.
type ChallengeAcceptedEvent struct {
	ChallengeID ChallengeID `json:"challengeId"`
	GameID      MatchID     `json:"gameId"`
	Player1     Identity    `json:"player1"`
	Player2     Identity    `json:"player2"`
}

func (ChallengeAcceptedEvent) EventType() string { return "game-challenge-accepted" }

// OutgoingChallengesEvent lists the challenges an identity created.
type OutgoingChallengesEvent struct {
	Challenges []ChallengeView `json:"challenges"`
}

func (OutgoingChallengesEvent) EventType() string { return "your-outgoing-challenges" }

// IncomingChallengesEvent lists the challenges an identity may accept.
type IncomingChallengesEvent struct {
	Challenges []ChallengeView `json:"challenges"`
}

func (IncomingChallengesEvent) EventType() string { return "your-incoming-challenges" }

// GameStartedEvent gives a player a match and their mark.
type GameStartedEvent struct {
	GameState  GameState  `json:"gameState"`
	YourSymbol board.Mark `json:"yourSymbol"`
}

func (GameStartedEvent) EventType() string { return "game-started" }

// GameStateEvent carries the full state after a move.
type GameStateEvent struct {
	GameState GameState `json:"gameState"`
}

func (GameStateEvent) EventType() string { return "game-state-update" }

// GameOverEvent carries the final state to both players.
type GameOverEvent struct {
	GameState GameState `json:"gameState"`
}

func (GameOverEvent) EventType() string { return "game-over" }

// GameOverAnnounceEvent tells the whole room how a match ended.
type GameOverAnnounceEvent struct {
	GameID     MatchID       `json:"gameId"`
	GameName   string        `json:"gameName"`
	Winner     board.Outcome `json:"winner"`
	WinnerName string        `json:"winnerName,omitempty"`
	LoserName  string        `json:"loserName,omitempty"`
	Players    []Identity    `json:"players"`
	Moves      int           `json:"moves"`
}

func (GameOverAnnounceEvent) EventType() string { return "game-over-announce" }

// ForfeitNotifyEvent tells the room a player gave up.
type ForfeitNotifyEvent struct {
	GameID          MatchID `json:"gameId"`
	GameName        string  `json:"gameName"`
	ForfeitedBy     UserID  `json:"forfeitedBy"`
	ForfeitedByName string  `json:"forfeitedByName"`
}

func (ForfeitNotifyEvent) EventType() string { return "game-forfeit-notify" }

// PendingNotificationsEvent delivers the queued notifications on connect.
type PendingNotificationsEvent struct {
	Notifications []Notification `json:"notifications"`
}

func (PendingNotificationsEvent) EventType() string { return "pending-notifications" }

// GameErrorEvent rejects one request.
type GameErrorEvent struct {
	Error string `json:"error"`
	Code  Code   `json:"code"`
}

func (GameErrorEvent) EventType() string { return "game-error" }

// PreviousMessagesEvent replays recent chat to a new session.
type PreviousMessagesEvent struct {
	Messages []ChatLine `json:"messages"`
}

func (PreviousMessagesEvent) EventType() string { return "previous-messages" }

// ChatMessageEvent relays one stored chat line.
type ChatMessageEvent struct {
	Message ChatLine `json:"message"`
}

func (ChatMessageEvent) EventType() string { return "chat-message" }

// SystemMessageEvent is a room announcement such as a join or leave.
type SystemMessageEvent struct {
	Text string `json:"text"`
}

func (SystemMessageEvent) EventType() string { return "system-message" }

// TypingEvent relays a typing indicator.
type TypingEvent struct {
	Username string `json:"username"`
	Started  bool   `json:"-"`
}

func (e TypingEvent) EventType() string {
	if e.Started {
		return "typing-start"
	}
	return "typing-stop"
}

// MessageDeletedEvent retracts a chat line.
type MessageDeletedEvent struct {
	MessageID int64 `json:"messageId"`
}

func (MessageDeletedEvent) EventType() string { return "message-deleted" }

// ChatLine is the wire form of a chat message.
type ChatLine struct {
	ID              int64   `json:"id"`
	UserID          UserID  `json:"userId"`
	Username        string  `json:"username"`
	Text            string  `json:"text"`
	Timestamp       string  `json:"timestamp"`
	ProfileImageURL *string `json:"profile_image_url"`
	CreatedAt       int64   `json:"createdAt"`
}

// newChatLine formats msg for clients in loc.
func newChatLine(msg ChatMessage, loc *time.Location) ChatLine {
	line := ChatLine{
		ID:        msg.ID,
		UserID:    msg.UserID,
		Username:  msg.Username,
		Text:      msg.Text,
		Timestamp: msg.CreatedAt.In(loc).Format("3:04 PM"),
		CreatedAt: msg.CreatedAt.UnixMilli(),
	}
	if msg.AvatarURL != "" {
		url := msg.AvatarURL
		line.ProfileImageURL = &url
	}
	return line
}
