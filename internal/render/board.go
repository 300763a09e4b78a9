// Package render draws nested boards for the terminal using lipgloss.
package render

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/phred2026-cyber/adc-chat-2029/internal/board"
)

var (
	xStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	oStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	emptyStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	drawStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))

	boxStyle    = lipgloss.NewStyle().Border(lipgloss.NormalBorder()).BorderForeground(lipgloss.Color("240"))
	activeStyle = boxStyle.BorderForeground(lipgloss.Color("11"))
)

const emptyCell = "·"

// Board renders b. Sub-boards recorded in won are collapsed to their outcome,
// and every box containing active is highlighted.
func Board(b board.Board, won board.WonMap, active board.Path) string {
	return node(b, nil, won, active)
}

func node(b board.Board, path board.Path, won board.WonMap, active board.Path) string {
	switch n := b.(type) {
	case *board.Leaf:
		return leaf(n)
	case *board.Branch:
		rows := make([]string, 0, 3)
		for r := range 3 {
			cols := make([]string, 0, 3)
			for c := range 3 {
				child := path.Child(r*3 + c)
				body := node(n.Children[r*3+c], child, won, active)
				if out := won.Get(child); out.Settled() {
					body = lipgloss.Place(lipgloss.Width(body), lipgloss.Height(body),
						lipgloss.Center, lipgloss.Center, Outcome(out))
				}
				style := boxStyle
				if contains(child, active) {
					style = activeStyle
				}
				cols = append(cols, style.Render(body))
			}
			rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, cols...))
		}
		return lipgloss.JoinVertical(lipgloss.Left, rows...)
	}
	return ""
}

func leaf(l *board.Leaf) string {
	lines := make([]string, 0, 3)
	for r := range 3 {
		cells := make([]string, 3)
		for c := range 3 {
			cells[c] = Mark(l.Cells[r*3+c])
		}
		lines = append(lines, strings.Join(cells, " "))
	}
	return strings.Join(lines, "\n")
}

// Mark renders one cell.
func Mark(m board.Mark) string {
	switch m {
	case board.X:
		return xStyle.Render("X")
	case board.O:
		return oStyle.Render("O")
	}
	return emptyStyle.Render(emptyCell)
}

// Outcome renders a resolved board's result.
func Outcome(o board.Outcome) string {
	switch o {
	case board.WinX:
		return xStyle.Render("X")
	case board.WinO:
		return oStyle.Render("O")
	case board.Draw:
		return drawStyle.Render("=")
	}
	return ""
}

// contains reports whether the box at p holds the board at active.
func contains(p, active board.Path) bool {
	if active == nil || len(p) > len(active) {
		return false
	}
	return p.Equal(active[:len(p)])
}
