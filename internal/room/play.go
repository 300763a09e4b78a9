package room

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/phred2026-cyber/adc-chat-2029/internal/board"
)

func (r *Room) createChallenge(sess *Session, c CreateChallenge) error {
	maxDepth := min(r.cfg.MaxDepth, board.HardMaxDepth)
	if c.Size < 0 || c.Size > maxDepth {
		return fmt.Errorf("%w: size must be between 0 and %d", ErrInvalidDepth, maxDepth)
	}
	game := c.Game
	if game == "" {
		game = GameNestedTTT
	}
	if game != GameNestedTTT {
		return fmt.Errorf("%w: unknown game %q", ErrBadRequest, game)
	}

	var target *Identity
	if c.Target != nil {
		if *c.Target == sess.Identity.ID {
			return ErrSelfChallenge
		}
		id, _ := r.sessions.Lookup(*c.Target)
		target = &id
	}

	name := strings.TrimSpace(c.GameName)
	if name == "" {
		name = fmt.Sprintf("Nested TTT (Size %d)", c.Size)
	}

	now := r.now()
	ch := &Challenge{
		ID:         ChallengeID(uuid.NewString()),
		Challenger: sess.Identity,
		Target:     target,
		Game:       game,
		GameName:   name,
		Depth:      c.Size,
		CreatedAt:  now,
		ExpiresAt:  now.Add(r.cfg.ChallengeTTL),
	}
	id := ch.ID
	ch.expiry = time.AfterFunc(r.cfg.ChallengeTTL, func() { r.post(challengeExpired{id: id}) })
	r.challenges.Add(ch)
	r.log.Info("challenge created", "challenge", id, "challenger", sess.Identity.Name, "open", ch.IsOpen(), "size", ch.Depth)

	offer := ChallengeEvent{Challenge: ch.View()}
	switch {
	case target == nil:
		r.out.AllExceptUser(offer, sess.Identity.ID)
	case r.out.User(target.ID, offer) == 0:
		r.notify(target.ID, NotifyChallengeReceived, map[string]any{
			"challengeId":    id,
			"challengerId":   sess.Identity.ID,
			"challengerName": sess.Identity.Name,
			"gameName":       name,
			"size":           c.Size,
		})
	default:
		r.pushIncoming(target.ID)
	}
	r.pushOutgoing(sess.Identity.ID)
	return nil
}

func (r *Room) acceptChallenge(sess *Session, id ChallengeID) error {
	ch, ok := r.challenges.Get(id)
	if !ok {
		return fmt.Errorf("%w: challenge %s", ErrNotFound, id)
	}
	uid := sess.Identity.ID
	if ch.Challenger.ID == uid {
		return ErrSelfAccept
	}
	if ch.Target != nil && ch.Target.ID != uid {
		return ErrNotTarget
	}
	if r.pairBusy(ch.Challenger.ID, uid) {
		return fmt.Errorf("%w: already playing %s", ErrAlreadyPlaying, ch.Challenger.Name)
	}

	m, err := NewMatch(MatchID(uuid.NewString()), ch, sess.Identity, r.cfg.MaxDepth, r.now())
	if err != nil {
		return err
	}
	r.challenges.Remove(ch.ID)
	r.matches[m.ID] = m
	r.log.Info("match started", "match", m.ID, "x", m.Players[board.X].Name, "o", m.Players[board.O].Name, "size", m.Depth)

	r.out.All(ChallengeRemovedEvent{ChallengeID: ch.ID, Reason: "accepted"})
	accepted := ChallengeAcceptedEvent{
		ChallengeID: ch.ID,
		GameID:      m.ID,
		Player1:     m.Players[board.X],
		Player2:     m.Players[board.O],
	}
	for _, mark := range []board.Mark{board.X, board.O} {
		p := m.Players[mark]
		r.out.User(p.ID, accepted)
		r.out.User(p.ID, GameStartedEvent{GameState: m.State(), YourSymbol: mark})
	}
	if x := m.Players[board.X]; !r.sessions.Online(x.ID) {
		r.notify(x.ID, NotifyYourTurn, turnData(m, x.ID))
	}

	r.pushOutgoing(ch.Challenger.ID)
	if ch.Target != nil {
		r.pushIncoming(ch.Target.ID)
	}
	return nil
}

func (r *Room) declineChallenge(sess *Session, id ChallengeID) error {
	ch, ok := r.challenges.Get(id)
	if !ok {
		return fmt.Errorf("%w: challenge %s", ErrNotFound, id)
	}
	uid := sess.Identity.ID
	if ch.Target != nil && ch.Target.ID != uid && ch.Challenger.ID != uid {
		return ErrNotTarget
	}
	r.dropChallenge(ch, "declined")
	return nil
}

func (r *Room) cancelChallenge(sess *Session, id ChallengeID) error {
	ch, ok := r.challenges.Get(id)
	if !ok {
		return fmt.Errorf("%w: challenge %s", ErrNotFound, id)
	}
	if ch.Challenger.ID != sess.Identity.ID {
		return ErrNotChallenger
	}
	r.dropChallenge(ch, "cancelled")
	return nil
}

func (r *Room) expireChallenge(id ChallengeID) {
	ch, ok := r.challenges.Get(id)
	if !ok {
		return
	}
	r.dropChallenge(ch, "expired")
	if !r.sessions.Online(ch.Challenger.ID) {
		data := map[string]any{"challengeId": ch.ID, "gameName": ch.GameName}
		if ch.Target != nil {
			data["targetName"] = ch.Target.Name
		}
		r.notify(ch.Challenger.ID, NotifyChallengeExpired, data)
	}
}

func (r *Room) dropChallenge(ch *Challenge, reason string) {
	r.challenges.Remove(ch.ID)
	r.log.Info("challenge removed", "challenge", ch.ID, "reason", reason)
	r.out.All(ChallengeRemovedEvent{ChallengeID: ch.ID, Reason: reason})
	r.pushOutgoing(ch.Challenger.ID)
	if ch.Target != nil {
		r.pushIncoming(ch.Target.ID)
	}
}

func (r *Room) pushIncoming(uid UserID) {
	r.out.User(uid, IncomingChallengesEvent{Challenges: r.challenges.Incoming(uid)})
}

func (r *Room) pushOutgoing(uid UserID) {
	r.out.User(uid, OutgoingChallengesEvent{Challenges: r.challenges.Outgoing(uid)})
}

// pairBusy reports whether a and b already share an unfinished match.
func (r *Room) pairBusy(a, b UserID) bool {
	for _, m := range r.matches {
		if !m.Status.Terminal() && m.Has(a) && m.Has(b) {
			return true
		}
	}
	return false
}

func (r *Room) playMove(sess *Session, c PlayMove) error {
	m, ok := r.matches[c.GameID]
	if !ok {
		return fmt.Errorf("%w: game %s", ErrNotFound, c.GameID)
	}
	uid := sess.Identity.ID
	if err := m.Play(uid, c.Path, c.Cell, r.now()); err != nil {
		return err
	}
	r.log.Debug("move played", "match", m.ID, "user", sess.Identity.Name, "path", c.Path.Key(), "cell", c.Cell)

	r.toPlayers(m, GameStateEvent{GameState: m.State()})
	if m.Status.Terminal() {
		r.endMatch(m)
		return nil
	}
	if next := m.Players[m.Turn]; !r.sessions.Online(next.ID) {
		r.notify(next.ID, NotifyYourTurn, turnData(m, next.ID))
	}
	return nil
}

func (r *Room) forfeit(sess *Session, id MatchID) error {
	m, ok := r.matches[id]
	if !ok {
		return fmt.Errorf("%w: game %s", ErrNotFound, id)
	}
	uid := sess.Identity.ID
	if err := m.Forfeit(uid, r.now()); err != nil {
		return err
	}
	r.removeMatch(m)
	r.log.Info("match forfeited", "match", m.ID, "by", sess.Identity.Name, "moves", m.Moves)

	r.out.All(ForfeitNotifyEvent{
		GameID:          m.ID,
		GameName:        m.GameName,
		ForfeitedBy:     uid,
		ForfeitedByName: sess.Identity.Name,
	})
	if opp := m.Opponent(uid); !r.sessions.Online(opp.ID) {
		r.notify(opp.ID, NotifyForfeited, map[string]any{
			"gameId":          m.ID,
			"gameName":        m.GameName,
			"forfeitedByName": sess.Identity.Name,
		})
	}
	r.saveResult(m)
	return nil
}

// endMatch announces a finished match and keeps it visible for the grace period.
func (r *Room) endMatch(m *Match) {
	r.log.Info("match finished", "match", m.ID, "status", m.Status, "winner", m.Winner, "moves", m.Moves)

	over := GameOverEvent{GameState: m.State()}
	for _, p := range []Identity{m.Players[board.X], m.Players[board.O]} {
		if r.out.User(p.ID, over) == 0 {
			r.notify(p.ID, NotifyGameOver, resultData(m, p.ID))
		}
	}

	announce := GameOverAnnounceEvent{
		GameID:   m.ID,
		GameName: m.GameName,
		Winner:   m.Winner,
		Players:  []Identity{m.Players[board.X], m.Players[board.O]},
		Moves:    m.Moves,
	}
	if w, ok := m.WinnerIdentity(); ok {
		announce.WinnerName = w.Name
		announce.LoserName = m.Opponent(w.ID).Name
	}
	r.out.All(announce)
	r.saveResult(m)

	if r.cfg.GameOverGrace <= 0 {
		r.removeMatch(m)
		return
	}
	id := m.ID
	m.retire = time.AfterFunc(r.cfg.GameOverGrace, func() { r.post(matchRetired{id: id}) })
}

func (r *Room) retireMatch(id MatchID) {
	m, ok := r.matches[id]
	if !ok || !m.Status.Terminal() {
		return
	}
	r.removeMatch(m)
	r.log.Debug("match retired", "match", id)
}

func (r *Room) removeMatch(m *Match) {
	delete(r.matches, m.ID)
	if m.retire != nil {
		m.retire.Stop()
	}
}

func (r *Room) toPlayers(m *Match, evt Event) {
	r.out.User(m.Players[board.X].ID, evt)
	r.out.User(m.Players[board.O].ID, evt)
}

func (r *Room) saveResult(m *Match) {
	if r.results == nil {
		return
	}
	rec, err := m.Record()
	if err != nil {
		r.log.Error("could not snapshot match", "match", m.ID, "error", err)
		return
	}
	saver := r.results
	id := m.ID
	r.persist.enqueue(job{name: "save-result", run: func(ctx context.Context) Command {
		return resultSaved{match: id, err: saver.SaveMatchResult(ctx, rec)}
	}})
}

func turnData(m *Match, uid UserID) map[string]any {
	return map[string]any{
		"gameId":       m.ID,
		"gameName":     m.GameName,
		"opponentName": m.Opponent(uid).Name,
		"moveCount":    m.Moves,
	}
}

func resultData(m *Match, uid UserID) map[string]any {
	result := "draw"
	if w, ok := m.WinnerIdentity(); ok {
		if w.ID == uid {
			result = "won"
		} else {
			result = "lost"
		}
	}
	return map[string]any{
		"gameId":       m.ID,
		"gameName":     m.GameName,
		"opponentName": m.Opponent(uid).Name,
		"result":       result,
		"moves":        m.Moves,
	}
}
