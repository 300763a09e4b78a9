package board

import (
	"strconv"
	"strings"
)

// Outcome is the resolution of a board: a winning mark, a draw, or still open.
type Outcome string

const (
	InProgress Outcome = ""
	WinX       Outcome = "X"
	WinO       Outcome = "O"
	Draw       Outcome = "draw"
)

// Settled reports whether the outcome is final.
func (o Outcome) Settled() bool { return o != InProgress }

// Winner returns the mark that won, or Empty for a draw or open board.
func (o Outcome) Winner() Mark {
	switch o {
	case WinX:
		return X
	case WinO:
		return O
	default:
		return Empty
	}
}

// lines are the 8 winning patterns of a 3x3 grid.
var lines = [8][3]int{
	{0, 1, 2}, {3, 4, 5}, {6, 7, 8}, // rows
	{0, 3, 6}, {1, 4, 7}, {2, 5, 8}, // columns
	{0, 4, 8}, {2, 4, 6}, // diagonals
}

// CheckOutcome evaluates a 3x3 grid of outcomes. A cell holding Draw counts as
// filled but never completes a line.
func CheckOutcome(cells [Size]Outcome) Outcome {
	for _, l := range lines {
		a := cells[l[0]]
		if (a == WinX || a == WinO) && cells[l[1]] == a && cells[l[2]] == a {
			return a
		}
	}
	for _, c := range cells {
		if c == InProgress {
			return InProgress
		}
	}
	return Draw
}

// LeafOutcome evaluates a depth-0 board.
func LeafOutcome(l *Leaf) Outcome {
	var cells [Size]Outcome
	for i, m := range l.Cells {
		cells[i] = Outcome(m)
	}
	return CheckOutcome(cells)
}

// Path is a sequence of child indices from the root. The empty path is the root.
type Path []int

// Key joins the indices with "-". The root key is "".
func (p Path) Key() string {
	var sb strings.Builder
	for i, idx := range p {
		if i > 0 {
			sb.WriteByte('-')
		}
		sb.WriteString(strconv.Itoa(idx))
	}
	return sb.String()
}

// Child returns a fresh path addressing child i of p.
func (p Path) Child(i int) Path {
	c := make(Path, len(p)+1)
	copy(c, p)
	c[len(p)] = i
	return c
}

// Equal reports whether both paths address the same board.
func (p Path) Equal(q Path) bool {
	if len(p) != len(q) {
		return false
	}
	for i := range p {
		if p[i] != q[i] {
			return false
		}
	}
	return true
}

// WonMap records every board path that has resolved, keyed by Path.Key.
type WonMap map[string]Outcome

// Get returns the recorded outcome of p.
func (w WonMap) Get(p Path) Outcome {
	return w[p.Key()]
}

// Settled reports whether p, or any board containing it, has resolved.
func (w WonMap) Settled(p Path) bool {
	for n := len(p); n >= 0; n-- {
		if w[p[:n].Key()].Settled() {
			return true
		}
	}
	return false
}

// Playable returns ErrSettled if a move inside p is no longer allowed.
func (w WonMap) Playable(p Path) error {
	if w.Settled(p) {
		return ErrSettled
	}
	return nil
}

// Propagate records the outcome of the leaf board at leafPath once it has
// resolved, then re-evaluates each ancestor from its children's recorded
// outcomes. It stops at the first ancestor that is still open and returns
// InProgress, or returns the root outcome when the walk reaches the root.
func Propagate(b Board, won WonMap, leafPath Path) (Outcome, error) {
	leaf, err := Locate(b, leafPath)
	if err != nil {
		return InProgress, err
	}
	out := LeafOutcome(leaf)
	if !out.Settled() {
		return InProgress, nil
	}
	won[leafPath.Key()] = out

	for p := leafPath; len(p) > 0; {
		p = p[:len(p)-1]
		var virtual [Size]Outcome
		for i := range Size {
			virtual[i] = won[p.Child(i).Key()]
		}
		out = CheckOutcome(virtual)
		if !out.Settled() {
			return InProgress, nil
		}
		won[p.Key()] = out
	}
	return out, nil
}

// NextActive returns the leaf board the opponent must play in after a move
// at cell of the board at played: the sibling of played with index cell.
// It returns nil (play anywhere) when that board, or a board containing it,
// has already resolved.
func NextActive(played Path, cell int, won WonMap) Path {
	if len(played) == 0 {
		return nil
	}
	target := make(Path, len(played))
	copy(target, played)
	target[len(target)-1] = cell
	if won.Settled(target) {
		return nil
	}
	return target
}
