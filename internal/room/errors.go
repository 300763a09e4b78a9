package room

import (
	"errors"

	"github.com/phred2026-cyber/adc-chat-2029/internal/board"
)

// Code is the stable machine-readable reason sent with a game-error.
type Code string

const (
	CodeNotFound       Code = "NotFound"
	CodeSelfAccept     Code = "SelfAccept"
	CodeNotYourTurn    Code = "NotYourTurn"
	CodeIllegalBoard   Code = "IllegalBoard"
	CodeCellOccupied   Code = "CellOccupied"
	CodeGameOver       Code = "GameOver"
	CodeInvalidDepth   Code = "InvalidDepth"
	CodeBoardSettled   Code = "BoardSettled"
	CodeInvalidCell    Code = "InvalidCell"
	CodeNotParticipant Code = "NotParticipant"
	CodeNotChallenger  Code = "NotChallenger"
	CodeNotTarget      Code = "NotTarget"
	CodeSelfChallenge  Code = "SelfChallenge"
	CodeAlreadyPlaying Code = "AlreadyPlaying"
	CodeBadRequest     Code = "BadRequest"
	CodeRateLimited    Code = "RateLimited"
	CodeUnavailable    Code = "Unavailable"
	CodeInternal       Code = "Internal"
)

// Error is a request-level rejection. It is reported to the requesting
// session only and never changes room state.
type Error struct {
	Code Code
	Msg  string
}

func (e *Error) Error() string { return e.Msg }

var (
	ErrNotFound       = &Error{CodeNotFound, "challenge or game not found"}
	ErrSelfAccept     = &Error{CodeSelfAccept, "cannot accept your own challenge"}
	ErrNotYourTurn    = &Error{CodeNotYourTurn, "not your turn"}
	ErrIllegalBoard   = &Error{CodeIllegalBoard, "move is outside the active board"}
	ErrCellOccupied   = &Error{CodeCellOccupied, "cell already taken"}
	ErrGameOver       = &Error{CodeGameOver, "game is already over"}
	ErrInvalidDepth   = &Error{CodeInvalidDepth, "invalid board size"}
	ErrBoardSettled   = &Error{CodeBoardSettled, "that board is already decided"}
	ErrInvalidCell    = &Error{CodeInvalidCell, "cell index out of range"}
	ErrNotParticipant = &Error{CodeNotParticipant, "you are not playing in this game"}
	ErrNotChallenger  = &Error{CodeNotChallenger, "only the challenger can cancel"}
	ErrNotTarget      = &Error{CodeNotTarget, "challenge was sent to someone else"}
	ErrSelfChallenge  = &Error{CodeSelfChallenge, "cannot challenge yourself"}
	ErrAlreadyPlaying = &Error{CodeAlreadyPlaying, "you already have a game with this player"}
	ErrBadRequest     = &Error{CodeBadRequest, "bad request"}
	ErrRateLimited    = &Error{CodeRateLimited, "slow down"}
	ErrUnavailable    = &Error{CodeUnavailable, "temporarily unavailable, try again"}
)

// ErrRoomClosed is returned by Submit once the room loop has stopped.
var ErrRoomClosed = errors.New("room: closed")

// CodeOf maps any error produced while handling a command to its Code.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	switch {
	case errors.Is(err, board.ErrCellOccupied):
		return CodeCellOccupied
	case errors.Is(err, board.ErrSettled):
		return CodeBoardSettled
	case errors.Is(err, board.ErrBadPath):
		return CodeIllegalBoard
	case errors.Is(err, board.ErrBadCell):
		return CodeInvalidCell
	case errors.Is(err, board.ErrInvalidDepth):
		return CodeInvalidDepth
	}
	return CodeInternal
}
