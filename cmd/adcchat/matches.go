package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/phred2026-cyber/adc-chat-2029/internal/board"
	"github.com/phred2026-cyber/adc-chat-2029/internal/render"
	"github.com/phred2026-cyber/adc-chat-2029/internal/room"
	"github.com/phred2026-cyber/adc-chat-2029/internal/storage"
)

var (
	flagMatchesDB string
	flagPlayer    int64
	flagLimit     int
)

var matchesCmd = &cobra.Command{
	Use:   "matches",
	Short: "List finished matches",
	Long: `Display the most recent finished matches, or the history and record
of a single player with --player.

Examples:
  adcchat matches
  adcchat matches --player 42 --limit 20
  adcchat matches show <match-id>`,
	Args: cobra.NoArgs,
	RunE: runMatches,
}

var showMatchCmd = &cobra.Command{
	Use:   "show <match-id>",
	Short: "Draw the final board of a match",
	Args:  cobra.ExactArgs(1),
	RunE:  runShowMatch,
}

func init() {
	matchesCmd.PersistentFlags().StringVar(&flagMatchesDB, "db", "", "Path to SQLite database (overrides storage.path)")
	matchesCmd.Flags().Int64Var(&flagPlayer, "player", 0, "Only show matches of this user ID")
	matchesCmd.Flags().IntVar(&flagLimit, "limit", 10, "Number of matches to show")
	matchesCmd.AddCommand(showMatchCmd)
}

// openStore opens the database named by override or the config.
func openStore(override string) (*storage.Store, error) {
	path := override
	if path == "" {
		cfg, err := loadConfig()
		if err != nil {
			return nil, err
		}
		path = cfg.Storage.Path
	}
	if path == "" {
		return nil, fmt.Errorf("no database configured, set storage.path or pass --db")
	}
	store, err := storage.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return store, nil
}

func runMatches(cmd *cobra.Command, _ []string) error {
	store, err := openStore(flagMatchesDB)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := cmd.Context()
	var results []storage.MatchResult
	if flagPlayer > 0 {
		results, err = store.PlayerMatchHistory(ctx, room.UserID(flagPlayer), flagLimit)
	} else {
		results, err = store.RecentMatchResults(ctx, flagLimit)
	}
	if err != nil {
		return fmt.Errorf("retrieve matches: %w", err)
	}

	if flagPlayer > 0 {
		if err := printPlayerStats(ctx, store, room.UserID(flagPlayer)); err != nil {
			return err
		}
	}

	if len(results) == 0 {
		fmt.Println("No matches recorded yet.")
		return nil
	}

	fmt.Printf("  %-36s  %-5s  %-16s  %-16s  %-9s  %-5s  %s\n", "Match", "Size", "X", "O", "Result", "Moves", "Date")
	fmt.Printf("  %-36s  %-5s  %-16s  %-16s  %-9s  %-5s  %s\n", "-----", "----", "-", "-", "------", "-----", "----")
	for _, m := range results {
		fmt.Printf("  %-36s  %-5d  %-16s  %-16s  %-9s  %-5d  %s\n",
			m.MatchID,
			m.Depth,
			clip(m.PlayerX.Name, 16),
			clip(m.PlayerO.Name, 16),
			resultLabel(m),
			m.Moves,
			m.CreatedAt.Local().Format("2006-01-02 15:04"),
		)
	}
	return nil
}

func printPlayerStats(ctx context.Context, store *storage.Store, uid room.UserID) error {
	stats, err := store.GetPlayerStats(ctx, uid)
	if err != nil {
		return fmt.Errorf("retrieve player stats: %w", err)
	}
	fmt.Printf("Player %d\n", uid)
	fmt.Printf("  Games: %d  Wins: %d  Losses: %d  Draws: %d  Forfeits: %d\n",
		stats.Games, stats.Wins, stats.Losses, stats.Draws, stats.Forfeits)
	if !stats.LastPlayed.IsZero() {
		fmt.Printf("  Last played: %s\n", stats.LastPlayed.Local().Format("2006-01-02 15:04"))
	}
	fmt.Println()
	return nil
}

// finalState is the part of a stored game state needed to draw it.
type finalState struct {
	Size        int             `json:"size"`
	Board       json.RawMessage `json:"board"`
	ActiveBoard board.Path      `json:"activeBoard"`
	WonBoards   board.WonMap    `json:"wonBoards"`
}

func runShowMatch(cmd *cobra.Command, args []string) error {
	store, err := openStore(flagMatchesDB)
	if err != nil {
		return err
	}
	defer store.Close()

	m, err := store.MatchResultByID(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("retrieve match: %w", err)
	}
	if m == nil {
		return fmt.Errorf("unknown match %q", args[0])
	}

	var state finalState
	if err := json.Unmarshal(m.FinalState, &state); err != nil {
		return fmt.Errorf("decode final state: %w", err)
	}
	b, err := board.Decode(state.Board, state.Size)
	if err != nil {
		return fmt.Errorf("decode board: %w", err)
	}

	title := lipgloss.NewStyle().Bold(true).Render(m.GameName)
	fmt.Println(title)
	fmt.Printf("X: %s  O: %s  Result: %s  Moves: %d  Duration: %ds\n",
		m.PlayerX.Name, m.PlayerO.Name, resultLabel(*m), m.Moves, m.Duration)
	fmt.Println()

	drawing := render.Board(b, state.WonBoards, nil)
	if width := terminalWidth(); width > 0 && lipgloss.Width(drawing) > width {
		fmt.Printf("Board is %d columns wide, terminal has %d.\n", lipgloss.Width(drawing), width)
	}
	fmt.Println(drawing)
	return nil
}

func resultLabel(m storage.MatchResult) string {
	switch {
	case m.EndReason == string(room.StatusForfeited):
		return "forfeit " + m.Winner
	case m.Winner == string(board.Draw):
		return "draw"
	case m.Winner != "":
		return m.Winner + " won"
	}
	return "-"
}

func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

// terminalWidth returns the width of stdout, or 0 when it is not a terminal.
func terminalWidth() int {
	fd := int(os.Stdout.Fd())
	if !term.IsTerminal(fd) {
		return 0
	}
	width, _, err := term.GetSize(fd)
	if err != nil {
		return 0
	}
	return width
}
