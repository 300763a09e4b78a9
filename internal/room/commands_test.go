package room

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phred2026-cyber/adc-chat-2029/internal/board"
)

func TestDecodeCommand(t *testing.T) {
	target := UserID(7)
	tests := []struct {
		name  string
		input string
		want  Command
	}{
		{
			name:  "open challenge",
			input: `{"type":"game-challenge","size":2}`,
			want:  CreateChallenge{Session: "s1", Size: 2},
		},
		{
			name:  "targeted challenge",
			input: `{"type":"game-challenge","targetUserId":7,"game":"nested-ttt","gameName":"Friday","size":1}`,
			want:  CreateChallenge{Session: "s1", Target: &target, Game: GameNestedTTT, GameName: "Friday", Size: 1},
		},
		{
			name:  "accept",
			input: `{"type":"game-accepted","challengeId":"c1"}`,
			want:  AcceptChallenge{Session: "s1", ChallengeID: "c1"},
		},
		{
			name:  "decline",
			input: `{"type":"game-declined","challengeId":"c1"}`,
			want:  DeclineChallenge{Session: "s1", ChallengeID: "c1"},
		},
		{
			name:  "cancel",
			input: `{"type":"game-cancelled","challengeId":"c1"}`,
			want:  CancelChallenge{Session: "s1", ChallengeID: "c1"},
		},
		{
			name:  "move",
			input: `{"type":"game-move","gameId":"g1","boardPath":[4,0],"cellIndex":0}`,
			want:  PlayMove{Session: "s1", GameID: "g1", Path: board.Path{4, 0}, Cell: 0},
		},
		{
			name:  "forfeit",
			input: `{"type":"game-forfeit","gameId":"g1"}`,
			want:  Forfeit{Session: "s1", GameID: "g1"},
		},
		{
			name:  "notifications read",
			input: `{"type":"notifications-read"}`,
			want:  NotificationsRead{Session: "s1"},
		},
		{
			name:  "chat",
			input: `{"type":"chat-message","text":"hi"}`,
			want:  PostChat{Session: "s1", Text: "hi"},
		},
		{
			name:  "typing start",
			input: `{"type":"typing-start"}`,
			want:  SetTyping{Session: "s1", Typing: true},
		},
		{
			name:  "typing stop",
			input: `{"type":"typing-stop"}`,
			want:  SetTyping{Session: "s1"},
		},
		{
			name:  "delete",
			input: `{"type":"delete-message","messageId":12}`,
			want:  DeleteChat{Session: "s1", MessageID: 12},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeCommand("s1", []byte(tt.input))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeCommandErrors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		unknown bool
	}{
		{name: "not json", input: `hello`},
		{name: "unknown type", input: `{"type":"dance"}`, unknown: true},
		{name: "missing type", input: `{}`, unknown: true},
		{name: "move without cell", input: `{"type":"game-move","gameId":"g1","boardPath":[]}`},
		{name: "accept without id", input: `{"type":"game-accepted"}`},
		{name: "bad size", input: `{"type":"game-challenge","size":"big"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeCommand("s1", []byte(tt.input))
			require.Error(t, err)
			if tt.unknown {
				assert.ErrorIs(t, err, ErrUnknownType)
			}
		})
	}
}

func TestEncodeFrame(t *testing.T) {
	frame, err := EncodeFrame(SystemMessageEvent{Text: "hi"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"system-message","text":"hi"}`, string(frame))

	frame, err = EncodeFrame(TypingEvent{Username: "bob", Started: true})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"typing-start","username":"bob"}`, string(frame))

	frame, err = EncodeFrame(PendingNotificationsEvent{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"pending-notifications","notifications":null}`, string(frame))
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, CodeCellOccupied, CodeOf(board.ErrCellOccupied))
	assert.Equal(t, CodeBoardSettled, CodeOf(board.ErrSettled))
	assert.Equal(t, CodeNotTarget, CodeOf(ErrNotTarget))
	assert.Equal(t, CodeInternal, CodeOf(assert.AnError))
}
