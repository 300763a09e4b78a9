// Package storage provides SQLite-based persistence for the chat log and
// finished matches. Uses the pure-Go modernc.org/sqlite driver to avoid CGO
// dependencies.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/phred2026-cyber/adc-chat-2029/internal/room"
)

// Store manages the SQLite database connection.
type Store struct {
	db *sql.DB
}

// MatchResult is one stored finished match.
type MatchResult struct {
	ID          int64
	MatchID     string
	Game        string
	GameName    string
	Depth       int
	PlayerX     room.Identity
	PlayerO     room.Identity
	Winner      string      // "X", "O" or "draw"
	WinnerID    room.UserID // 0 for a draw
	EndReason   string      // "won", "drawn", "forfeited"
	ForfeitedBy room.UserID // 0 unless forfeited
	Moves       int
	Duration    int // Duration in seconds
	FinalState  []byte
	CreatedAt   time.Time
}

// PlayerStats aggregates the results of one identity.
type PlayerStats struct {
	UserID     room.UserID
	Games      int
	Wins       int
	Losses     int
	Draws      int
	Forfeits   int
	LastPlayed time.Time
}

// Open creates or opens a SQLite database at the given path.
// It creates the parent directories if needed and runs migrations.
func Open(dbPath string) (*Store, error) {
	// Expand ~ to home directory
	if dbPath != "" && dbPath[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("storage: cannot expand home directory: %w", err)
		}
		dbPath = filepath.Join(home, dbPath[1:])
	}

	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("storage: cannot create directory %s: %w", dir, err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("storage: cannot open database: %w", err)
	}
	// The persistence worker is the only writer.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: cannot connect to database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: migration failed: %w", err)
	}

	return store, nil
}

// migrate creates the database schema if it doesn't exist.
func (s *Store) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS messages (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id INTEGER NOT NULL,
			username TEXT NOT NULL,
			text TEXT NOT NULL,
			avatar_url TEXT,
			created_at DATETIME NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_messages_created ON messages(created_at);

		CREATE TABLE IF NOT EXISTS match_results (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			match_id TEXT NOT NULL UNIQUE,
			game TEXT NOT NULL,
			game_name TEXT NOT NULL,
			depth INTEGER NOT NULL,
			player_x_id INTEGER NOT NULL,
			player_x_name TEXT NOT NULL,
			player_o_id INTEGER NOT NULL,
			player_o_name TEXT NOT NULL,
			winner TEXT NOT NULL,
			winner_id INTEGER,
			end_reason TEXT NOT NULL,
			forfeited_by INTEGER,
			moves INTEGER NOT NULL DEFAULT 0,
			duration_secs INTEGER NOT NULL DEFAULT 0,
			final_state BLOB,
			created_at DATETIME NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_match_results_x ON match_results(player_x_id);
		CREATE INDEX IF NOT EXISTS idx_match_results_o ON match_results(player_o_id);
		CREATE INDEX IF NOT EXISTS idx_match_results_created ON match_results(created_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// SaveMessage implements room.ChatStore.
func (s *Store) SaveMessage(ctx context.Context, msg room.ChatMessage) (room.ChatMessage, error) {
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO messages (user_id, username, text, avatar_url, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		int64(msg.UserID), msg.Username, msg.Text, nullString(msg.AvatarURL), formatTime(msg.CreatedAt),
	)
	if err != nil {
		return room.ChatMessage{}, fmt.Errorf("storage: cannot save message: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return room.ChatMessage{}, fmt.Errorf("storage: cannot get inserted ID: %w", err)
	}
	msg.ID = id
	return msg, nil
}

// RecentMessages implements room.ChatStore. Results are ordered oldest first.
func (s *Store) RecentMessages(ctx context.Context, limit int) ([]room.ChatMessage, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, username, text, avatar_url, created_at FROM (
		   SELECT * FROM messages ORDER BY id DESC LIMIT ?
		 ) ORDER BY id ASC`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: cannot query messages: %w", err)
	}
	defer rows.Close()

	msgs := make([]room.ChatMessage, 0, limit)
	for rows.Next() {
		var m room.ChatMessage
		var uid int64
		var avatar sql.NullString
		var createdAt any
		if err := rows.Scan(&m.ID, &uid, &m.Username, &m.Text, &avatar, &createdAt); err != nil {
			return nil, fmt.Errorf("storage: cannot scan row: %w", err)
		}
		m.UserID = room.UserID(uid)
		m.AvatarURL = avatar.String
		m.CreatedAt = parseTime(createdAt)
		msgs = append(msgs, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: row iteration error: %w", err)
	}

	return msgs, nil
}

// DeleteMessage implements room.ChatStore. Only the author may delete a line.
func (s *Store) DeleteMessage(ctx context.Context, id int64, owner room.UserID) error {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM messages WHERE id = ? AND user_id = ?",
		id, int64(owner),
	)
	if err != nil {
		return fmt.Errorf("storage: cannot delete message: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("storage: cannot count deleted rows: %w", err)
	}
	if n == 0 {
		return room.ErrMessageNotFound
	}
	return nil
}

// SaveMatchResult implements room.MatchResultSaver.
// Saving the same match twice is a no-op.
func (s *Store) SaveMatchResult(ctx context.Context, rec room.MatchRecord) error {
	ended := rec.EndedAt
	if ended.IsZero() {
		ended = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO match_results
		 (match_id, game, game_name, depth, player_x_id, player_x_name, player_o_id, player_o_name,
		  winner, winner_id, end_reason, forfeited_by, moves, duration_secs, final_state, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(match_id) DO NOTHING`,
		rec.MatchID,
		rec.Game,
		rec.GameName,
		rec.Depth,
		int64(rec.PlayerX.ID),
		rec.PlayerX.Name,
		int64(rec.PlayerO.ID),
		rec.PlayerO.Name,
		rec.Winner,
		nullID(rec.WinnerID),
		rec.EndReason,
		nullID(rec.ForfeitedBy),
		rec.Moves,
		rec.DurationSecs,
		rec.FinalState,
		formatTime(ended),
	)
	if err != nil {
		return fmt.Errorf("storage: cannot save match result: %w", err)
	}
	return nil
}

var (
	_ room.ChatStore        = (*Store)(nil)
	_ room.MatchResultSaver = (*Store)(nil)
)

const matchColumns = `id, match_id, game, game_name, depth, player_x_id, player_x_name,
	player_o_id, player_o_name, winner, winner_id, end_reason, forfeited_by,
	moves, duration_secs, final_state, created_at`

// MatchResultByID retrieves a match by its match ID. It returns nil, nil when
// no such match was stored.
func (s *Store) MatchResultByID(ctx context.Context, matchID string) (*MatchResult, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+matchColumns+` FROM match_results WHERE match_id = ?`,
		matchID,
	)
	result, err := scanMatch(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("storage: cannot query match result: %w", err)
	}
	return &result, nil
}

// RecentMatchResults retrieves the most recent matches, newest first.
func (s *Store) RecentMatchResults(ctx context.Context, limit int) ([]MatchResult, error) {
	if limit <= 0 {
		limit = 20
	}
	return s.queryMatches(ctx,
		`SELECT `+matchColumns+` FROM match_results ORDER BY created_at DESC, id DESC LIMIT ?`,
		limit,
	)
}

// PlayerMatchHistory retrieves the matches uid played, newest first.
func (s *Store) PlayerMatchHistory(ctx context.Context, uid room.UserID, limit int) ([]MatchResult, error) {
	if limit <= 0 {
		limit = 20
	}
	return s.queryMatches(ctx,
		`SELECT `+matchColumns+` FROM match_results
		 WHERE player_x_id = ? OR player_o_id = ?
		 ORDER BY created_at DESC, id DESC
		 LIMIT ?`,
		int64(uid), int64(uid), limit,
	)
}

// GetPlayerStats aggregates every stored result of uid.
func (s *Store) GetPlayerStats(ctx context.Context, uid room.UserID) (*PlayerStats, error) {
	stats := &PlayerStats{UserID: uid}
	id := int64(uid)

	var lastPlayed any
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*),
		        COALESCE(SUM(CASE WHEN winner_id = ? THEN 1 ELSE 0 END), 0),
		        COALESCE(SUM(CASE WHEN winner = 'draw' THEN 1 ELSE 0 END), 0),
		        COALESCE(SUM(CASE WHEN forfeited_by = ? THEN 1 ELSE 0 END), 0),
		        MAX(created_at)
		 FROM match_results
		 WHERE player_x_id = ? OR player_o_id = ?`,
		id, id, id, id,
	).Scan(&stats.Games, &stats.Wins, &stats.Draws, &stats.Forfeits, &lastPlayed)
	if err != nil {
		return nil, fmt.Errorf("storage: cannot get player stats: %w", err)
	}
	stats.Losses = stats.Games - stats.Wins - stats.Draws
	stats.LastPlayed = parseTime(lastPlayed)
	return stats, nil
}

func (s *Store) queryMatches(ctx context.Context, query string, args ...any) ([]MatchResult, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("storage: cannot query match results: %w", err)
	}
	defer rows.Close()

	var results []MatchResult
	for rows.Next() {
		result, err := scanMatch(rows)
		if err != nil {
			return nil, fmt.Errorf("storage: cannot scan row: %w", err)
		}
		results = append(results, result)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: row iteration error: %w", err)
	}

	return results, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanMatch(row scanner) (MatchResult, error) {
	var r MatchResult
	var xID, oID int64
	var winnerID, forfeitedBy sql.NullInt64
	var createdAt any

	err := row.Scan(
		&r.ID,
		&r.MatchID,
		&r.Game,
		&r.GameName,
		&r.Depth,
		&xID,
		&r.PlayerX.Name,
		&oID,
		&r.PlayerO.Name,
		&r.Winner,
		&winnerID,
		&r.EndReason,
		&forfeitedBy,
		&r.Moves,
		&r.Duration,
		&r.FinalState,
		&createdAt,
	)
	if err != nil {
		return MatchResult{}, err
	}

	r.PlayerX.ID = room.UserID(xID)
	r.PlayerO.ID = room.UserID(oID)
	if winnerID.Valid {
		r.WinnerID = room.UserID(winnerID.Int64)
	}
	if forfeitedBy.Valid {
		r.ForfeitedBy = room.UserID(forfeitedBy.Int64)
	}
	r.CreatedAt = parseTime(createdAt)
	return r, nil
}

const timeLayout = "2006-01-02 15:04:05.000"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

// parseTime handles both time.Time and string, depending on how the driver
// hands back DATETIME columns.
func parseTime(v any) time.Time {
	switch v := v.(type) {
	case time.Time:
		return v
	case string:
		for _, layout := range []string{timeLayout, "2006-01-02 15:04:05", time.RFC3339Nano} {
			if parsed, err := time.Parse(layout, v); err == nil {
				return parsed
			}
		}
	}
	return time.Time{}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullID(id room.UserID) sql.NullInt64 {
	return sql.NullInt64{Int64: int64(id), Valid: id != 0}
}
