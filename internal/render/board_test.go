package render

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/phred2026-cyber/adc-chat-2029/internal/board"
)

func init() {
	lipgloss.SetColorProfile(termenv.Ascii)
}

func mustBoard(t *testing.T, depth int) board.Board {
	t.Helper()
	b, err := board.NewEmpty(depth, board.HardMaxDepth)
	if err != nil {
		t.Fatalf("NewEmpty(%d) failed: %v", depth, err)
	}
	return b
}

func TestLeaf(t *testing.T) {
	b := mustBoard(t, 0)
	leaf := b.(*board.Leaf)
	leaf.Cells[0] = board.X
	leaf.Cells[4] = board.O

	got := Board(b, board.WonMap{}, nil)
	want := "X · ·\n· O ·\n· · ·"
	if got != want {
		t.Errorf("Board() =\n%s\nwant\n%s", got, want)
	}
}

func TestBranchSize(t *testing.T) {
	tests := []struct {
		depth  int
		height int
		width  int
	}{
		{0, 3, 5},
		{1, 15, 21},
		{2, 51, 69},
	}

	for _, tt := range tests {
		out := Board(mustBoard(t, tt.depth), board.WonMap{}, nil)
		if h := lipgloss.Height(out); h != tt.height {
			t.Errorf("depth %d: height = %d, want %d", tt.depth, h, tt.height)
		}
		if w := lipgloss.Width(out); w != tt.width {
			t.Errorf("depth %d: width = %d, want %d", tt.depth, w, tt.width)
		}
	}
}

func TestSettledChildCollapses(t *testing.T) {
	b := mustBoard(t, 1)
	won := board.WonMap{"0": board.WinX, "8": board.Draw}

	out := Board(b, won, nil)
	if n := strings.Count(out, emptyCell); n != 7*9 {
		t.Errorf("Expected %d empty cells, got %d", 7*9, n)
	}
	if !strings.Contains(out, "X") || !strings.Contains(out, "=") {
		t.Errorf("Expected collapsed outcomes in\n%s", out)
	}
	if h := lipgloss.Height(out); h != 15 {
		t.Errorf("Collapsing must keep the layout, height = %d", h)
	}
}

func TestContains(t *testing.T) {
	tests := []struct {
		p, active board.Path
		want      bool
	}{
		{board.Path{4}, board.Path{4, 2}, true},
		{board.Path{4, 2}, board.Path{4, 2}, true},
		{board.Path{3}, board.Path{4, 2}, false},
		{board.Path{4, 2}, board.Path{4}, false},
		{board.Path{4}, nil, false},
	}
	for _, tt := range tests {
		if got := contains(tt.p, tt.active); got != tt.want {
			t.Errorf("contains(%v, %v) = %v, want %v", tt.p, tt.active, got, tt.want)
		}
	}
}
