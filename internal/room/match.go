package room

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/phred2026-cyber/adc-chat-2029/internal/board"
)

// Status is the lifecycle state of a match.
type Status string

const (
	StatusInProgress Status = "in-progress"
	StatusWon        Status = "won"
	StatusDrawn      Status = "drawn"
	StatusForfeited  Status = "forfeited"
)

// Terminal reports whether no further moves are accepted.
func (s Status) Terminal() bool {
	return s != StatusInProgress
}

// Move is one applied move.
type Move struct {
	Mark board.Mark `json:"mark"`
	Path board.Path `json:"boardPath"`
	Cell int        `json:"cellIndex"`
}

// Match is one nested tic-tac-toe game between two identities.
// X is always the challenger and moves first.
type Match struct {
	ID          MatchID
	ChallengeID ChallengeID
	Game        string
	GameName    string
	Depth       int
	Players     map[board.Mark]Identity
	Board       board.Board
	Won         board.WonMap
	Active      board.Path // nil: play anywhere
	Turn        board.Mark
	Status      Status
	Winner      board.Outcome
	ForfeitedBy *Identity
	Moves       int
	LastMove    *Move
	CreatedAt   time.Time
	EndedAt     time.Time

	retire *time.Timer
}

// NewMatch starts a match from an accepted challenge.
func NewMatch(id MatchID, c *Challenge, acceptor Identity, maxDepth int, now time.Time) (*Match, error) {
	b, err := board.NewEmpty(c.Depth, maxDepth)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDepth, err)
	}
	return &Match{
		ID:          id,
		ChallengeID: c.ID,
		Game:        c.Game,
		GameName:    c.GameName,
		Depth:       c.Depth,
		Players:     map[board.Mark]Identity{board.X: c.Challenger, board.O: acceptor},
		Board:       b,
		Won:         board.WonMap{},
		Turn:        board.X,
		Status:      StatusInProgress,
		CreatedAt:   now,
	}, nil
}

// MarkOf returns the mark uid plays, or board.Empty for a spectator.
func (m *Match) MarkOf(uid UserID) board.Mark {
	for mark, p := range m.Players {
		if p.ID == uid {
			return mark
		}
	}
	return board.Empty
}

// Has reports whether uid plays in m.
func (m *Match) Has(uid UserID) bool {
	return m.MarkOf(uid) != board.Empty
}

// Opponent returns the other player of uid.
func (m *Match) Opponent(uid UserID) Identity {
	return m.Players[m.MarkOf(uid).Opponent()]
}

// Play validates and applies a move by uid. On error nothing changes.
func (m *Match) Play(uid UserID, path board.Path, cell int, now time.Time) error {
	if m.Status.Terminal() {
		return ErrGameOver
	}
	mark := m.MarkOf(uid)
	if mark == board.Empty || mark != m.Turn {
		return ErrNotYourTurn
	}
	if len(path) != m.Depth {
		return fmt.Errorf("%w: path has %d indices, board depth is %d", ErrIllegalBoard, len(path), m.Depth)
	}
	for _, idx := range path {
		if idx < 0 || idx >= board.Size {
			return fmt.Errorf("%w: index %d", ErrIllegalBoard, idx)
		}
	}
	if m.Active != nil && !path.Equal(m.Active) {
		return fmt.Errorf("%w: you must play in board %v", ErrIllegalBoard, []int(m.Active))
	}
	if err := m.Won.Playable(path); err != nil {
		return fmt.Errorf("%w: %w", ErrBoardSettled, err)
	}
	if cell < 0 || cell >= board.Size {
		return fmt.Errorf("%w: %d", ErrInvalidCell, cell)
	}
	if err := board.Apply(m.Board, path, cell, mark); err != nil {
		return fmt.Errorf("%w: %w", errorFor(err), err)
	}

	played := make(board.Path, len(path))
	copy(played, path)
	m.Moves++
	m.LastMove = &Move{Mark: mark, Path: played, Cell: cell}

	outcome, err := board.Propagate(m.Board, m.Won, played)
	if err != nil {
		// Apply already validated the path.
		return fmt.Errorf("room: propagate: %w", err)
	}
	if outcome.Settled() {
		m.finish(outcome, now)
		return nil
	}
	m.Active = board.NextActive(played, cell, m.Won)
	m.Turn = mark.Opponent()
	return nil
}

// Forfeit ends the match in favour of uid's opponent.
func (m *Match) Forfeit(uid UserID, now time.Time) error {
	mark := m.MarkOf(uid)
	if mark == board.Empty {
		return ErrNotParticipant
	}
	if m.Status.Terminal() {
		return ErrGameOver
	}
	loser := m.Players[mark]
	m.Status = StatusForfeited
	m.Winner = board.Outcome(mark.Opponent())
	m.ForfeitedBy = &loser
	m.Active = nil
	m.EndedAt = now
	return nil
}

func (m *Match) finish(outcome board.Outcome, now time.Time) {
	m.Winner = outcome
	if outcome == board.Draw {
		m.Status = StatusDrawn
	} else {
		m.Status = StatusWon
	}
	m.Active = nil
	m.EndedAt = now
}

// WinnerIdentity returns the winning player, if any.
func (m *Match) WinnerIdentity() (Identity, bool) {
	mark := m.Winner.Winner()
	if mark == board.Empty {
		return Identity{}, false
	}
	return m.Players[mark], true
}

// GameState is the wire form of a match.
type GameState struct {
	GameID        MatchID                 `json:"gameId"`
	Game          string                  `json:"game"`
	GameName      string                  `json:"gameName"`
	Size          int                     `json:"size"`
	Board         board.Board             `json:"board"`
	CurrentPlayer board.Mark              `json:"currentPlayer"`
	Players       map[board.Mark]Identity `json:"players"`
	ActiveBoard   board.Path              `json:"activeBoard"`
	WonBoards     board.WonMap            `json:"wonBoards"`
	GameOver      bool                    `json:"gameOver"`
	Winner        board.Outcome           `json:"winner,omitempty"`
	Status        Status                  `json:"status"`
	ForfeitedBy   *Identity               `json:"forfeitedBy,omitempty"`
	MoveCount     int                     `json:"moveCount"`
	LastMove      *Move                   `json:"lastMove,omitempty"`
	CreatedAt     time.Time               `json:"createdAt"`
}

// State returns the wire form. It shares the board with m, so it must be
// encoded before m changes again.
func (m *Match) State() GameState {
	return GameState{
		GameID:        m.ID,
		Game:          m.Game,
		GameName:      m.GameName,
		Size:          m.Depth,
		Board:         m.Board,
		CurrentPlayer: m.Turn,
		Players:       m.Players,
		ActiveBoard:   m.Active,
		WonBoards:     m.Won,
		GameOver:      m.Status.Terminal(),
		Winner:        m.Winner,
		Status:        m.Status,
		ForfeitedBy:   m.ForfeitedBy,
		MoveCount:     m.Moves,
		LastMove:      m.LastMove,
		CreatedAt:     m.CreatedAt,
	}
}

// MatchRecord is the persisted summary of a finished match.
type MatchRecord struct {
	MatchID      string
	Game         string
	GameName     string
	Depth        int
	PlayerX      Identity
	PlayerO      Identity
	Winner       string // "X", "O" or "draw"
	WinnerID     UserID // 0 for a draw
	EndReason    string
	ForfeitedBy  UserID // 0 unless forfeited
	Moves        int
	DurationSecs int
	FinalState   []byte // GameState JSON
	EndedAt      time.Time
}

// Record snapshots a terminal match for persistence.
func (m *Match) Record() (MatchRecord, error) {
	state, err := json.Marshal(m.State())
	if err != nil {
		return MatchRecord{}, fmt.Errorf("room: encode final state: %w", err)
	}
	rec := MatchRecord{
		MatchID:      string(m.ID),
		Game:         m.Game,
		GameName:     m.GameName,
		Depth:        m.Depth,
		PlayerX:      m.Players[board.X],
		PlayerO:      m.Players[board.O],
		Winner:       string(m.Winner),
		EndReason:    string(m.Status),
		Moves:        m.Moves,
		DurationSecs: int(m.EndedAt.Sub(m.CreatedAt).Seconds()),
		FinalState:   state,
		EndedAt:      m.EndedAt,
	}
	if w, ok := m.WinnerIdentity(); ok {
		rec.WinnerID = w.ID
	}
	if m.ForfeitedBy != nil {
		rec.ForfeitedBy = m.ForfeitedBy.ID
	}
	return rec, nil
}

func errorFor(err error) *Error {
	switch CodeOf(err) {
	case CodeCellOccupied:
		return ErrCellOccupied
	case CodeInvalidCell:
		return ErrInvalidCell
	case CodeBoardSettled:
		return ErrBoardSettled
	default:
		return ErrIllegalBoard
	}
}
