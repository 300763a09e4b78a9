package room

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/require"
)

type frame struct {
	Type string
	Raw  []byte
}

type client struct {
	Identity Identity
	handle   *ChannelSession
}

func (c *client) sid() SessionID {
	return c.handle.ID()
}

// drain returns every frame queued so far.
func (c *client) drain() []frame {
	var out []frame
	for {
		select {
		case raw := <-c.handle.Frames():
			out = append(out, decodeFrame(raw))
		default:
			return out
		}
	}
}

// waitFor reads frames until one of type typ arrives.
func (c *client) waitFor(t *testing.T, typ string) frame {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case raw := <-c.handle.Frames():
			if f := decodeFrame(raw); f.Type == typ {
				return f
			}
		case <-deadline:
			t.Fatalf("%s: no %s frame", c.Identity.Name, typ)
			return frame{}
		}
	}
}

func decodeFrame(raw []byte) frame {
	var head struct {
		Type string `json:"type"`
	}
	_ = json.Unmarshal(raw, &head)
	return frame{Type: head.Type, Raw: raw}
}

func ofType(frames []frame, typ string) []frame {
	var out []frame
	for _, f := range frames {
		if f.Type == typ {
			out = append(out, f)
		}
	}
	return out
}

func decode[T any](t *testing.T, f frame) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(f.Raw, &v), "frame %s", f.Raw)
	return v
}

// stateFrame is the subset of GameState tests look at.
type stateFrame struct {
	GameState struct {
		GameID        MatchID           `json:"gameId"`
		CurrentPlayer string            `json:"currentPlayer"`
		ActiveBoard   []int             `json:"activeBoard"`
		WonBoards     map[string]string `json:"wonBoards"`
		GameOver      bool              `json:"gameOver"`
		Winner        string            `json:"winner"`
		Status        string            `json:"status"`
		MoveCount     int               `json:"moveCount"`
		Players       map[string]struct {
			ID   UserID `json:"userId"`
			Name string `json:"username"`
		} `json:"players"`
	} `json:"gameState"`
	YourSymbol string `json:"yourSymbol"`
}

type errorFrame struct {
	Error string `json:"error"`
	Code  Code   `json:"code"`
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.GameOverGrace = 0
	return cfg
}

func newTestRoom(t *testing.T, cfg Config, opts ...Option) *Room {
	t.Helper()
	r := New(cfg, log.New(io.Discard), opts...)
	t.Cleanup(r.shutdown)
	return r
}

// start runs the room loop until the test ends.
func start(t *testing.T, r *Room) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- r.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		require.NoError(t, <-errc)
	})
}

var sessionSeq atomic.Int64

func nextSessionID(name string) SessionID {
	return SessionID(fmt.Sprintf("%s-%d", name, sessionSeq.Add(1)))
}

// join registers a new session for identity by calling the loop handler directly.
func join(t *testing.T, r *Room, uid UserID, name string) *client {
	t.Helper()
	c := &client{
		Identity: Identity{ID: uid, Name: name},
		handle:   NewChannelSession(nextSessionID(name), 512),
	}
	r.dispatch(Connect{Handle: c.handle, Identity: c.Identity})
	return c
}

// joinAsync registers a session through Submit.
func joinAsync(t *testing.T, r *Room, uid UserID, name string) *client {
	t.Helper()
	c := &client{
		Identity: Identity{ID: uid, Name: name},
		handle:   NewChannelSession(nextSessionID(name), 512),
	}
	require.NoError(t, r.Submit(context.Background(), Connect{Handle: c.handle, Identity: c.Identity}))
	return c
}

// challenge has from challenge target (nil for open) and returns the challenge id.
func challenge(t *testing.T, r *Room, from *client, target *UserID, size int) ChallengeID {
	t.Helper()
	seen := make(map[ChallengeID]bool)
	for id := range r.challenges.byID {
		seen[id] = true
	}
	r.dispatch(CreateChallenge{Session: from.sid(), Target: target, Size: size})
	for id := range r.challenges.byID {
		if !seen[id] {
			return id
		}
	}
	t.Fatalf("%s: challenge was not created", from.Identity.Name)
	return ""
}

// startMatch has x challenge o directly and o accept.
func startMatch(t *testing.T, r *Room, x, o *client, size int) *Match {
	t.Helper()
	target := o.Identity.ID
	id := challenge(t, r, x, &target, size)
	r.dispatch(AcceptChallenge{Session: o.sid(), ChallengeID: id})
	for _, m := range r.matches {
		if m.ChallengeID == id {
			return m
		}
	}
	t.Fatalf("no match for challenge %s", id)
	return nil
}
