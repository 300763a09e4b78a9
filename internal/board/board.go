// Package board implements nested tic-tac-toe boards.
// A depth-0 board is a plain 3x3 grid; a depth-d board holds nine depth-(d-1) boards.
// Everything here is pure: no I/O, no clocks, no goroutines.
package board

import (
	"errors"
	"fmt"
)

// Size is the number of cells (or child boards) in every board.
const Size = 9

// HardMaxDepth bounds any configured depth limit. A depth-6 board already
// holds 9^7 leaf cells.
const HardMaxDepth = 6

var (
	ErrInvalidDepth = errors.New("board: invalid depth")
	ErrBadPath      = errors.New("board: path does not address a depth-0 board")
	ErrBadCell      = errors.New("board: cell index out of range")
	ErrBadMark      = errors.New("board: mark must be X or O")
	ErrCellOccupied = errors.New("board: cell already occupied")
	ErrSettled      = errors.New("board: sub-board already settled")
)

// Mark is the content of a single leaf cell.
type Mark string

const (
	Empty Mark = ""
	X     Mark = "X"
	O     Mark = "O"
)

// Opponent returns the other player's mark.
func (m Mark) Opponent() Mark {
	switch m {
	case X:
		return O
	case O:
		return X
	default:
		return Empty
	}
}

// Board is either a *Leaf or a *Branch.
type Board interface {
	Depth() int
	isBoard()
}

// Leaf is a depth-0 board.
type Leaf struct {
	Cells [Size]Mark
}

func (*Leaf) Depth() int { return 0 }
func (*Leaf) isBoard()   {}

// Branch is a board of depth >= 1 whose children all have depth-1.
type Branch struct {
	Children [Size]Board
	depth    int
}

func (b *Branch) Depth() int { return b.depth }
func (*Branch) isBoard()     {}

// NewEmpty builds an empty board of the given depth.
// Depths above maxDepth (or HardMaxDepth) fail with ErrInvalidDepth.
func NewEmpty(depth, maxDepth int) (Board, error) {
	if depth < 0 || depth > maxDepth || depth > HardMaxDepth {
		return nil, fmt.Errorf("%w: %d (max %d)", ErrInvalidDepth, depth, min(maxDepth, HardMaxDepth))
	}
	return build(depth), nil
}

func build(depth int) Board {
	if depth == 0 {
		return &Leaf{}
	}
	br := &Branch{depth: depth}
	for i := range Size {
		br.Children[i] = build(depth - 1)
	}
	return br
}

// LeafCells returns the total number of leaf cells in b.
func LeafCells(b Board) int {
	switch v := b.(type) {
	case *Leaf:
		return Size
	case *Branch:
		n := 0
		for _, c := range v.Children {
			n += LeafCells(c)
		}
		return n
	default:
		return 0
	}
}

// Locate walks path from the root and returns the addressed depth-0 board.
// The path must have exactly b.Depth() entries, each in [0, Size).
func Locate(b Board, path Path) (*Leaf, error) {
	if len(path) != b.Depth() {
		return nil, fmt.Errorf("%w: got %d indices, want %d", ErrBadPath, len(path), b.Depth())
	}
	cur := b
	for _, idx := range path {
		if idx < 0 || idx >= Size {
			return nil, fmt.Errorf("%w: index %d", ErrBadPath, idx)
		}
		br, ok := cur.(*Branch)
		if !ok {
			return nil, ErrBadPath
		}
		cur = br.Children[idx]
	}
	leaf, ok := cur.(*Leaf)
	if !ok {
		return nil, ErrBadPath
	}
	return leaf, nil
}

// Apply marks cell of the leaf board at path. It does not look at turn order,
// the active board or settled sub-boards. On error the board is unchanged.
func Apply(b Board, path Path, cell int, m Mark) error {
	if m != X && m != O {
		return ErrBadMark
	}
	if cell < 0 || cell >= Size {
		return fmt.Errorf("%w: %d", ErrBadCell, cell)
	}
	leaf, err := Locate(b, path)
	if err != nil {
		return err
	}
	if leaf.Cells[cell] != Empty {
		return fmt.Errorf("%w: cell %d holds %s", ErrCellOccupied, cell, leaf.Cells[cell])
	}
	leaf.Cells[cell] = m
	return nil
}
