package main

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

var (
	flagHistoryDB    string
	flagHistoryLimit int
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Print the stored chat log",
	Long: `Print the most recent chat messages, oldest first, as new clients
would receive them on connect.

Examples:
  adcchat history
  adcchat history --limit 500 --db ./chat.db`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().StringVar(&flagHistoryDB, "db", "", "Path to SQLite database (overrides storage.path)")
	historyCmd.Flags().IntVar(&flagHistoryLimit, "limit", 100, "Number of messages to show")
}

var (
	nameStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	timeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)

func runHistory(cmd *cobra.Command, _ []string) error {
	store, err := openStore(flagHistoryDB)
	if err != nil {
		return err
	}
	defer store.Close()

	msgs, err := store.RecentMessages(cmd.Context(), flagHistoryLimit)
	if err != nil {
		return fmt.Errorf("retrieve messages: %w", err)
	}
	if len(msgs) == 0 {
		fmt.Println("No messages yet.")
		return nil
	}

	for _, m := range msgs {
		fmt.Printf("%s %s %s\n",
			timeStyle.Render(m.CreatedAt.Local().Format("2006-01-02 15:04")),
			nameStyle.Render(m.Username+":"),
			m.Text,
		)
	}
	return nil
}
