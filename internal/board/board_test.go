package board

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
)

func allEmpty(b Board) bool {
	switch v := b.(type) {
	case *Leaf:
		for _, m := range v.Cells {
			if m != Empty {
				return false
			}
		}
		return true
	case *Branch:
		for _, c := range v.Children {
			if !allEmpty(c) {
				return false
			}
		}
		return true
	}
	return false
}

func TestNewEmptyLeafCells(t *testing.T) {
	want := 9
	for depth := 0; depth <= 4; depth++ {
		b, err := NewEmpty(depth, 4)
		if err != nil {
			t.Fatalf("NewEmpty(%d) failed: %v", depth, err)
		}
		if b.Depth() != depth {
			t.Errorf("NewEmpty(%d).Depth() = %d", depth, b.Depth())
		}
		if got := LeafCells(b); got != want {
			t.Errorf("LeafCells(depth %d) = %d, want %d", depth, got, want)
		}
		if !allEmpty(b) {
			t.Errorf("NewEmpty(%d) has marked cells", depth)
		}
		want *= 9
	}
}

func TestNewEmptyRejectsDepth(t *testing.T) {
	tests := []struct {
		name     string
		depth    int
		maxDepth int
	}{
		{"negative", -1, 4},
		{"above configured max", 3, 2},
		{"above hard max", HardMaxDepth + 1, HardMaxDepth + 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewEmpty(tt.depth, tt.maxDepth)
			if !errors.Is(err, ErrInvalidDepth) {
				t.Errorf("NewEmpty(%d, %d) error = %v, want ErrInvalidDepth", tt.depth, tt.maxDepth, err)
			}
		})
	}
}

func TestApplyOccupiedLeavesBoardUnchanged(t *testing.T) {
	tests := []struct {
		depth int
		path  Path
	}{
		{0, Path{}},
		{1, Path{4}},
		{2, Path{8, 0}},
		{3, Path{1, 2, 3}},
	}
	for _, tt := range tests {
		b, err := NewEmpty(tt.depth, 4)
		if err != nil {
			t.Fatalf("NewEmpty(%d) failed: %v", tt.depth, err)
		}
		if err := Apply(b, tt.path, 5, X); err != nil {
			t.Fatalf("Apply() failed: %v", err)
		}
		before, _ := json.Marshal(b)

		for _, m := range []Mark{X, O} {
			err := Apply(b, tt.path, 5, m)
			if !errors.Is(err, ErrCellOccupied) {
				t.Errorf("depth %d: Apply(%s) on occupied cell error = %v, want ErrCellOccupied", tt.depth, m, err)
			}
		}

		after, _ := json.Marshal(b)
		if !bytes.Equal(before, after) {
			t.Errorf("depth %d: board changed after rejected move", tt.depth)
		}
	}
}

func TestApplyBadInput(t *testing.T) {
	b, _ := NewEmpty(1, 4)
	tests := []struct {
		name string
		path Path
		cell int
		mark Mark
		want error
	}{
		{"short path", Path{}, 0, X, ErrBadPath},
		{"long path", Path{0, 0}, 0, X, ErrBadPath},
		{"index out of range", Path{9}, 0, X, ErrBadPath},
		{"negative cell", Path{0}, -1, X, ErrBadCell},
		{"cell out of range", Path{0}, 9, X, ErrBadCell},
		{"empty mark", Path{0}, 0, Empty, ErrBadMark},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := Apply(b, tt.path, tt.cell, tt.mark); !errors.Is(err, tt.want) {
				t.Errorf("Apply() error = %v, want %v", err, tt.want)
			}
		})
	}
	if !allEmpty(b) {
		t.Error("rejected moves marked the board")
	}
}

func TestCheckOutcome(t *testing.T) {
	const (
		x = WinX
		o = WinO
		d = Draw
	)
	tests := []struct {
		name  string
		cells [Size]Outcome
		want  Outcome
	}{
		{"empty", [Size]Outcome{}, InProgress},
		{"top row", [Size]Outcome{x, x, x, o, o}, WinX},
		{"middle column", [Size]Outcome{1: o, 4: o, 7: o}, WinO},
		{"anti diagonal", [Size]Outcome{2: x, 4: x, 6: x}, WinX},
		{"full no line", [Size]Outcome{x, o, x, x, o, o, o, x, x}, Draw},
		{"draws never form a line", [Size]Outcome{d, d, d, o, x, o, x, o, x}, Draw},
		{"draw breaks a line", [Size]Outcome{x, d, x}, InProgress},
		{"win on last cell of full grid", [Size]Outcome{x, o, x, o, x, o, o, x, x}, WinX},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CheckOutcome(tt.cells); got != tt.want {
				t.Errorf("CheckOutcome(%v) = %q, want %q", tt.cells, got, tt.want)
			}
		})
	}
}

func TestPropagateLeafWinOnly(t *testing.T) {
	b, _ := NewEmpty(1, 4)
	won := WonMap{}
	leaf := Path{4}

	for _, cell := range []int{0, 1, 2} {
		if err := Apply(b, leaf, cell, X); err != nil {
			t.Fatalf("Apply() failed: %v", err)
		}
	}
	got, err := Propagate(b, won, leaf)
	if err != nil {
		t.Fatalf("Propagate() failed: %v", err)
	}
	if got != InProgress {
		t.Errorf("Propagate() = %q, want in progress", got)
	}
	if won["4"] != WinX {
		t.Errorf("won[4] = %q, want X", won["4"])
	}
	if _, ok := won[""]; ok {
		t.Error("root recorded before its children resolved")
	}
}

func TestPropagateUnresolvedLeafRecordsNothing(t *testing.T) {
	b, _ := NewEmpty(2, 4)
	won := WonMap{}
	leaf := Path{3, 3}
	_ = Apply(b, leaf, 0, O)

	got, err := Propagate(b, won, leaf)
	if err != nil {
		t.Fatalf("Propagate() failed: %v", err)
	}
	if got != InProgress || len(won) != 0 {
		t.Errorf("Propagate() = %q with won %v, want nothing recorded", got, won)
	}
}

func TestPropagateRootWinDepthOne(t *testing.T) {
	b, _ := NewEmpty(1, 4)
	won := WonMap{}

	var root Outcome
	for _, child := range []int{0, 1, 2} {
		leaf := Path{child}
		for _, cell := range []int{0, 4, 8} {
			if err := Apply(b, leaf, cell, O); err != nil {
				t.Fatalf("Apply() failed: %v", err)
			}
		}
		var err error
		root, err = Propagate(b, won, leaf)
		if err != nil {
			t.Fatalf("Propagate() failed: %v", err)
		}
	}
	if root != WinO {
		t.Errorf("root outcome = %q, want O", root)
	}
	if won[""] != WinO {
		t.Errorf("won[root] = %q, want O", won[""])
	}
}

func TestPropagateAllChildrenSameSymbol(t *testing.T) {
	b, _ := NewEmpty(1, 4)
	won := WonMap{}
	for i := range 8 {
		won[Path{i}.Key()] = WinX
	}
	leaf := Path{8}
	for _, cell := range []int{6, 7, 8} {
		_ = Apply(b, leaf, cell, X)
	}
	got, err := Propagate(b, won, leaf)
	if err != nil {
		t.Fatalf("Propagate() failed: %v", err)
	}
	if got != WinX {
		t.Errorf("Propagate() = %q, want X", got)
	}
}

func TestPropagateDepthTwoStopsAtOpenAncestor(t *testing.T) {
	b, _ := NewEmpty(2, 4)
	won := WonMap{"0-0": WinX, "0-1": WinX}
	leaf := Path{0, 2}
	for _, cell := range []int{2, 4, 6} {
		_ = Apply(b, leaf, cell, X)
	}
	got, err := Propagate(b, won, leaf)
	if err != nil {
		t.Fatalf("Propagate() failed: %v", err)
	}
	if got != InProgress {
		t.Errorf("Propagate() = %q, want in progress", got)
	}
	if won["0-2"] != WinX || won["0"] != WinX {
		t.Errorf("won = %v, want 0-2 and 0 resolved to X", won)
	}
	if _, ok := won[""]; ok {
		t.Error("root resolved with a single settled child")
	}
}

func TestDepthZeroScenario(t *testing.T) {
	b, _ := NewEmpty(0, 4)
	won := WonMap{}
	moves := []struct {
		cell int
		mark Mark
	}{
		{0, X}, {3, O}, {1, X}, {4, O}, {2, X},
	}

	var got Outcome
	for _, mv := range moves {
		if err := Apply(b, Path{}, mv.cell, mv.mark); err != nil {
			t.Fatalf("Apply(%d) failed: %v", mv.cell, err)
		}
		var err error
		got, err = Propagate(b, won, Path{})
		if err != nil {
			t.Fatalf("Propagate() failed: %v", err)
		}
	}
	if got != WinX {
		t.Errorf("outcome = %q, want X", got)
	}
}

func TestPropagateDraw(t *testing.T) {
	b, _ := NewEmpty(0, 4)
	marks := []Mark{X, O, X, X, O, O, O, X, X}
	for i, m := range marks {
		_ = Apply(b, Path{}, i, m)
	}
	got, _ := Propagate(b, WonMap{}, Path{})
	if got != Draw {
		t.Errorf("Propagate() = %q, want draw", got)
	}
}

func TestNextActive(t *testing.T) {
	tests := []struct {
		name   string
		played Path
		cell   int
		won    WonMap
		want   Path
	}{
		{"depth zero is always free", Path{}, 4, WonMap{}, nil},
		{"points to sibling", Path{0}, 4, WonMap{}, Path{4}},
		{"points to itself", Path{7}, 7, WonMap{}, Path{7}},
		{"target won", Path{0}, 4, WonMap{"4": WinO}, nil},
		{"target drawn", Path{0}, 4, WonMap{"4": Draw}, nil},
		{"depth two sibling", Path{1, 2}, 5, WonMap{}, Path{1, 5}},
		{"parent settled", Path{1, 2}, 5, WonMap{"1": WinX}, nil},
		{"other branch settled", Path{1, 2}, 5, WonMap{"5": WinX}, Path{1, 5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NextActive(tt.played, tt.cell, tt.won)
			if !got.Equal(tt.want) || (got == nil) != (tt.want == nil) {
				t.Errorf("NextActive(%v, %d) = %v, want %v", tt.played, tt.cell, got, tt.want)
			}
		})
	}
}

func TestNextActiveDoesNotAlias(t *testing.T) {
	played := Path{2, 3}
	got := NextActive(played, 8, WonMap{})
	got[0] = 7
	if played[0] != 2 {
		t.Error("NextActive() result aliases the played path")
	}
}

func TestWonMapPlayable(t *testing.T) {
	won := WonMap{"2": WinX, "4-4": Draw}
	tests := []struct {
		path Path
		want error
	}{
		{Path{2, 0}, ErrSettled},
		{Path{4, 4}, ErrSettled},
		{Path{4, 3}, nil},
		{Path{0, 0}, nil},
	}
	for _, tt := range tests {
		if err := won.Playable(tt.path); !errors.Is(err, tt.want) {
			t.Errorf("Playable(%v) = %v, want %v", tt.path, err, tt.want)
		}
	}
}

func TestPathKey(t *testing.T) {
	tests := []struct {
		path Path
		want string
	}{
		{Path{}, ""},
		{nil, ""},
		{Path{3}, "3"},
		{Path{0, 8, 4}, "0-8-4"},
	}
	for _, tt := range tests {
		if got := tt.path.Key(); got != tt.want {
			t.Errorf("Path(%v).Key() = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestDecodeRestoresPlayedBoard(t *testing.T) {
	b, _ := NewEmpty(2, 4)
	_ = Apply(b, Path{0, 1}, 2, X)
	_ = Apply(b, Path{8, 8}, 8, O)

	data, err := json.Marshal(b)
	if err != nil {
		t.Fatalf("Marshal() failed: %v", err)
	}
	got, err := Decode(data, 2)
	if err != nil {
		t.Fatalf("Decode() failed: %v", err)
	}
	leaf, err := Locate(got, Path{8, 8})
	if err != nil {
		t.Fatalf("Locate() failed: %v", err)
	}
	if leaf.Cells[8] != O {
		t.Errorf("decoded cell = %q, want O", leaf.Cells[8])
	}
	if _, err := Decode(data, 1); err == nil {
		t.Error("Decode() with wrong depth should fail")
	}
}
