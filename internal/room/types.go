// Package room implements the chat room actor: one goroutine owns the session
// registry, open challenges, nested tic-tac-toe matches and the offline
// notification queue, and every inbound command is applied in arrival order.
package room

import "fmt"

// UserID identifies an account. It is issued by the auth gateway.
type UserID int64

// Identity is the pre-validated user attached to a connection.
type Identity struct {
	ID        UserID `json:"userId"`
	Name      string `json:"username"`
	AvatarURL string `json:"profileImageUrl,omitempty"`
}

func (id Identity) String() string {
	return fmt.Sprintf("%s#%d", id.Name, id.ID)
}

// SessionID uniquely identifies one live connection.
type SessionID string

// ChallengeID identifies a pending challenge.
type ChallengeID string

// MatchID identifies a match. It is sent to clients as gameId.
type MatchID string

// GameNestedTTT is the only game kind the room hosts.
const GameNestedTTT = "nested-ttt"
