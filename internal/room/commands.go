package room

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/phred2026-cyber/adc-chat-2029/internal/board"
)

// Command is a message processed by the room loop.
type Command interface {
	command()
}

// Connect registers a new connection. The identity was verified upstream.
type Connect struct {
	Handle   SessionHandle
	Identity Identity
}

func (Connect) command() {}

// Disconnect unregisters a connection.
type Disconnect struct {
	Session SessionID
}

func (Disconnect) command() {}

// CreateChallenge proposes a match. A nil Target makes it open to anyone.
type CreateChallenge struct {
	Session  SessionID
	Target   *UserID
	Game     string
	GameName string
	Size     int
}

func (CreateChallenge) command() {}

// AcceptChallenge turns a challenge into a match.
type AcceptChallenge struct {
	Session     SessionID
	ChallengeID ChallengeID
}

func (AcceptChallenge) command() {}

// DeclineChallenge discards a challenge.
type DeclineChallenge struct {
	Session     SessionID
	ChallengeID ChallengeID
}

func (DeclineChallenge) command() {}

// CancelChallenge withdraws the sender's own challenge.
type CancelChallenge struct {
	Session     SessionID
	ChallengeID ChallengeID
}

func (CancelChallenge) command() {}

// PlayMove marks one cell of the leaf board at Path.
type PlayMove struct {
	Session SessionID
	GameID  MatchID
	Path    board.Path
	Cell    int
}

func (PlayMove) command() {}

// Forfeit gives up a match.
type Forfeit struct {
	Session SessionID
	GameID  MatchID
}

func (Forfeit) command() {}

// NotificationsRead acknowledges every queued notification.
type NotificationsRead struct {
	Session SessionID
}

func (NotificationsRead) command() {}

// PostChat sends a chat line.
type PostChat struct {
	Session SessionID
	Text    string
}

func (PostChat) command() {}

// SetTyping toggles the sender's typing indicator.
type SetTyping struct {
	Session SessionID
	Typing  bool
}

func (SetTyping) command() {}

// DeleteChat removes one of the sender's chat lines.
type DeleteChat struct {
	Session   SessionID
	MessageID int64
}

func (DeleteChat) command() {}

// Malformed reports a frame that could not be decoded.
type Malformed struct {
	Session SessionID
	Err     error
}

func (Malformed) command() {}

// Internal commands: timers, persistence completions and queries.

type challengeExpired struct{ id ChallengeID }

func (challengeExpired) command() {}

type matchRetired struct{ id MatchID }

func (matchRetired) command() {}

type historyLoaded struct {
	session  SessionID
	messages []ChatMessage
	err      error
}

func (historyLoaded) command() {}

type chatStored struct {
	session SessionID
	message ChatMessage
	err     error
}

func (chatStored) command() {}

type chatDeleted struct {
	session SessionID
	id      int64
	err     error
}

func (chatDeleted) command() {}

type resultSaved struct {
	match MatchID
	err   error
}

func (resultSaved) command() {}

type statsQuery struct{ reply chan Stats }

func (statsQuery) command() {}

// ErrUnknownType is returned by DecodeCommand for an unrecognized type tag.
var ErrUnknownType = errors.New("room: unknown message type")

// DecodeCommand parses one inbound JSON frame from session sid.
func DecodeCommand(sid SessionID, data []byte) (Command, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("room: decode frame: %w", err)
	}

	switch head.Type {
	case "game-challenge":
		var p struct {
			TargetUserID *UserID `json:"targetUserId"`
			Game         string  `json:"game"`
			GameName     string  `json:"gameName"`
			Size         int     `json:"size"`
		}
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, decodeErr(head.Type, err)
		}
		return CreateChallenge{Session: sid, Target: p.TargetUserID, Game: p.Game, GameName: p.GameName, Size: p.Size}, nil

	case "game-accepted", "game-declined", "game-cancelled":
		var p struct {
			ChallengeID ChallengeID `json:"challengeId"`
		}
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, decodeErr(head.Type, err)
		}
		if p.ChallengeID == "" {
			return nil, decodeErr(head.Type, errors.New("missing challengeId"))
		}
		switch head.Type {
		case "game-accepted":
			return AcceptChallenge{Session: sid, ChallengeID: p.ChallengeID}, nil
		case "game-declined":
			return DeclineChallenge{Session: sid, ChallengeID: p.ChallengeID}, nil
		default:
			return CancelChallenge{Session: sid, ChallengeID: p.ChallengeID}, nil
		}

	case "game-move":
		var p struct {
			GameID    MatchID `json:"gameId"`
			BoardPath []int   `json:"boardPath"`
			CellIndex *int    `json:"cellIndex"`
		}
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, decodeErr(head.Type, err)
		}
		if p.CellIndex == nil {
			return nil, decodeErr(head.Type, errors.New("missing cellIndex"))
		}
		return PlayMove{Session: sid, GameID: p.GameID, Path: board.Path(p.BoardPath), Cell: *p.CellIndex}, nil

	case "game-forfeit":
		var p struct {
			GameID MatchID `json:"gameId"`
		}
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, decodeErr(head.Type, err)
		}
		return Forfeit{Session: sid, GameID: p.GameID}, nil

	case "notifications-read":
		return NotificationsRead{Session: sid}, nil

	case "chat-message":
		var p struct {
			Text string `json:"text"`
		}
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, decodeErr(head.Type, err)
		}
		return PostChat{Session: sid, Text: p.Text}, nil

	case "typing-start":
		return SetTyping{Session: sid, Typing: true}, nil

	case "typing-stop":
		return SetTyping{Session: sid, Typing: false}, nil

	case "delete-message":
		var p struct {
			MessageID int64 `json:"messageId"`
		}
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, decodeErr(head.Type, err)
		}
		return DeleteChat{Session: sid, MessageID: p.MessageID}, nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, head.Type)
	}
}

func decodeErr(typ string, err error) error {
	return fmt.Errorf("room: decode %s: %w", typ, err)
}
