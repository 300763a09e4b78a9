package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/phred2026-cyber/adc-chat-2029/internal/room"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStoreOpenClose(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	store, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer store.Close()

	// Check that the file was created
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("Database file was not created")
	}
}

func TestStoreNestedPath(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "subdir", "deep", "test.db")

	store, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Open() with nested path failed: %v", err)
	}
	defer store.Close()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("Database file was not created in nested directory")
	}
}

func TestStoreReopenKeepsMessages(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "test.db")

	store, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	if _, err := store.SaveMessage(ctx, room.ChatMessage{UserID: 1, Username: "alice", Text: "hi"}); err != nil {
		t.Fatalf("SaveMessage() failed: %v", err)
	}
	store.Close()

	store, err = Open(dbPath)
	if err != nil {
		t.Fatalf("second Open() failed: %v", err)
	}
	defer store.Close()

	msgs, err := store.RecentMessages(ctx, 10)
	if err != nil {
		t.Fatalf("RecentMessages() failed: %v", err)
	}
	if len(msgs) != 1 || msgs[0].Text != "hi" {
		t.Errorf("Expected the saved message after reopening, got %+v", msgs)
	}
}

func TestStoreMessages(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	base := time.Date(2026, 3, 1, 18, 30, 0, 0, time.UTC)

	for i := range 5 {
		msg := room.ChatMessage{
			UserID:    room.UserID(i%2 + 1),
			Username:  fmt.Sprintf("user%d", i%2+1),
			Text:      fmt.Sprintf("line %d", i),
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		if i == 0 {
			msg.AvatarURL = "https://example.com/a.png"
		}
		saved, err := store.SaveMessage(ctx, msg)
		if err != nil {
			t.Fatalf("SaveMessage() failed: %v", err)
		}
		if saved.ID != int64(i+1) {
			t.Errorf("Expected ID %d, got %d", i+1, saved.ID)
		}
	}

	// Oldest first, limited to the newest lines
	msgs, err := store.RecentMessages(ctx, 3)
	if err != nil {
		t.Fatalf("RecentMessages() failed: %v", err)
	}
	if len(msgs) != 3 {
		t.Fatalf("Expected 3 messages, got %d", len(msgs))
	}
	for i, want := range []string{"line 2", "line 3", "line 4"} {
		if msgs[i].Text != want {
			t.Errorf("msgs[%d].Text = %q, want %q", i, msgs[i].Text, want)
		}
	}
	if !msgs[2].CreatedAt.Equal(base.Add(4 * time.Minute)) {
		t.Errorf("CreatedAt = %v, want %v", msgs[2].CreatedAt, base.Add(4*time.Minute))
	}

	all, err := store.RecentMessages(ctx, 10)
	if err != nil {
		t.Fatalf("RecentMessages() failed: %v", err)
	}
	if all[0].AvatarURL != "https://example.com/a.png" {
		t.Errorf("AvatarURL = %q", all[0].AvatarURL)
	}
	if all[1].AvatarURL != "" {
		t.Errorf("Expected empty AvatarURL, got %q", all[1].AvatarURL)
	}
}

func TestStoreDeleteMessage(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	saved, err := store.SaveMessage(ctx, room.ChatMessage{UserID: 1, Username: "alice", Text: "oops"})
	if err != nil {
		t.Fatalf("SaveMessage() failed: %v", err)
	}

	// Someone else cannot delete it
	if err := store.DeleteMessage(ctx, saved.ID, 2); !errors.Is(err, room.ErrMessageNotFound) {
		t.Errorf("Expected ErrMessageNotFound for foreign delete, got %v", err)
	}

	if err := store.DeleteMessage(ctx, saved.ID, 1); err != nil {
		t.Fatalf("DeleteMessage() failed: %v", err)
	}

	if err := store.DeleteMessage(ctx, saved.ID, 1); !errors.Is(err, room.ErrMessageNotFound) {
		t.Errorf("Expected ErrMessageNotFound for second delete, got %v", err)
	}

	msgs, _ := store.RecentMessages(ctx, 10)
	if len(msgs) != 0 {
		t.Errorf("Expected no messages after delete, got %d", len(msgs))
	}
}

func testRecord(id string, winner string, ended time.Time) room.MatchRecord {
	rec := room.MatchRecord{
		MatchID:      id,
		Game:         room.GameNestedTTT,
		GameName:     "Nested TTT (Size 1)",
		Depth:        1,
		PlayerX:      room.Identity{ID: 1, Name: "alice"},
		PlayerO:      room.Identity{ID: 2, Name: "bob"},
		Winner:       winner,
		EndReason:    "won",
		Moves:        17,
		DurationSecs: 300,
		FinalState:   []byte(`{"gameId":"` + id + `"}`),
		EndedAt:      ended,
	}
	switch winner {
	case "X":
		rec.WinnerID = 1
	case "O":
		rec.WinnerID = 2
	default:
		rec.EndReason = "drawn"
	}
	return rec
}

func TestStoreMatchResults(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	records := []room.MatchRecord{
		testRecord("m1", "X", base),
		testRecord("m2", "draw", base.Add(time.Hour)),
		testRecord("m3", "O", base.Add(2*time.Hour)),
	}
	records[2].EndReason = "forfeited"
	records[2].ForfeitedBy = 1
	for _, rec := range records {
		if err := store.SaveMatchResult(ctx, rec); err != nil {
			t.Fatalf("SaveMatchResult(%s) failed: %v", rec.MatchID, err)
		}
	}

	// Duplicate saves are ignored
	if err := store.SaveMatchResult(ctx, records[0]); err != nil {
		t.Fatalf("duplicate SaveMatchResult() failed: %v", err)
	}

	got, err := store.MatchResultByID(ctx, "m3")
	if err != nil {
		t.Fatalf("MatchResultByID() failed: %v", err)
	}
	if got == nil {
		t.Fatal("Expected match m3")
	}
	if got.PlayerX.Name != "alice" || got.PlayerO.ID != 2 {
		t.Errorf("Unexpected players: %+v / %+v", got.PlayerX, got.PlayerO)
	}
	if got.ForfeitedBy != 1 || got.WinnerID != 2 || got.EndReason != "forfeited" {
		t.Errorf("Unexpected result fields: %+v", got)
	}
	if string(got.FinalState) != `{"gameId":"m3"}` {
		t.Errorf("FinalState = %s", got.FinalState)
	}
	if !got.CreatedAt.Equal(base.Add(2 * time.Hour)) {
		t.Errorf("CreatedAt = %v", got.CreatedAt)
	}

	missing, err := store.MatchResultByID(ctx, "nope")
	if err != nil || missing != nil {
		t.Errorf("Expected nil, nil for unknown match, got %v, %v", missing, err)
	}

	recent, err := store.RecentMatchResults(ctx, 2)
	if err != nil {
		t.Fatalf("RecentMatchResults() failed: %v", err)
	}
	if len(recent) != 2 || recent[0].MatchID != "m3" || recent[1].MatchID != "m2" {
		t.Errorf("Unexpected recent order: %+v", recent)
	}

	draw, _ := store.MatchResultByID(ctx, "m2")
	if draw.WinnerID != 0 {
		t.Errorf("Expected no winner for a draw, got %d", draw.WinnerID)
	}
}

func TestStorePlayerHistory(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	store.SaveMatchResult(ctx, testRecord("m1", "X", base))
	store.SaveMatchResult(ctx, testRecord("m2", "draw", base.Add(time.Minute)))
	other := testRecord("m3", "X", base.Add(2*time.Minute))
	other.PlayerX = room.Identity{ID: 3, Name: "carol"}
	other.WinnerID = 3
	store.SaveMatchResult(ctx, other)

	history, err := store.PlayerMatchHistory(ctx, 1, 10)
	if err != nil {
		t.Fatalf("PlayerMatchHistory() failed: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("Expected 2 matches for alice, got %d", len(history))
	}
	if history[0].MatchID != "m2" {
		t.Errorf("Expected newest first, got %s", history[0].MatchID)
	}

	bob, err := store.GetPlayerStats(ctx, 2)
	if err != nil {
		t.Fatalf("GetPlayerStats() failed: %v", err)
	}
	if bob.Games != 3 || bob.Wins != 0 || bob.Draws != 1 || bob.Losses != 2 {
		t.Errorf("Unexpected stats for bob: %+v", bob)
	}
	if !bob.LastPlayed.Equal(base.Add(2 * time.Minute)) {
		t.Errorf("LastPlayed = %v", bob.LastPlayed)
	}

	nobody, err := store.GetPlayerStats(ctx, 42)
	if err != nil {
		t.Fatalf("GetPlayerStats() failed: %v", err)
	}
	if nobody.Games != 0 || !nobody.LastPlayed.IsZero() {
		t.Errorf("Expected empty stats, got %+v", nobody)
	}
}
