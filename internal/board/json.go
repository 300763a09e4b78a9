package board

import (
	"encoding/json"
	"fmt"
)

// MarshalJSON encodes a leaf as nine cells, null for empty.
func (l *Leaf) MarshalJSON() ([]byte, error) {
	cells := make([]*string, Size)
	for i, m := range l.Cells {
		if m != Empty {
			s := string(m)
			cells[i] = &s
		}
	}
	return json.Marshal(cells)
}

// MarshalJSON encodes a branch as its nine children.
func (b *Branch) MarshalJSON() ([]byte, error) {
	return json.Marshal(b.Children[:])
}

// Decode parses the nested-array form produced by MarshalJSON.
func Decode(data []byte, depth int) (Board, error) {
	if depth < 0 || depth > HardMaxDepth {
		return nil, fmt.Errorf("%w: %d", ErrInvalidDepth, depth)
	}
	if depth == 0 {
		var cells []*string
		if err := json.Unmarshal(data, &cells); err != nil {
			return nil, fmt.Errorf("board: decode leaf: %w", err)
		}
		if len(cells) != Size {
			return nil, fmt.Errorf("board: decode leaf: %d cells", len(cells))
		}
		leaf := &Leaf{}
		for i, c := range cells {
			if c == nil {
				continue
			}
			m := Mark(*c)
			if m != X && m != O {
				return nil, fmt.Errorf("board: decode leaf: %w: %q", ErrBadMark, *c)
			}
			leaf.Cells[i] = m
		}
		return leaf, nil
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("board: decode depth %d: %w", depth, err)
	}
	if len(raw) != Size {
		return nil, fmt.Errorf("board: decode depth %d: %d children", depth, len(raw))
	}
	br := &Branch{depth: depth}
	for i, r := range raw {
		child, err := Decode(r, depth-1)
		if err != nil {
			return nil, err
		}
		br.Children[i] = child
	}
	return br, nil
}
