package room

import (
	"slices"
	"strings"
	"time"
)

// Challenge is an open proposal to play. The challenger always moves first.
type Challenge struct {
	ID         ChallengeID
	Challenger Identity
	Target     *Identity // nil: open to anyone but the challenger
	Game       string
	GameName   string
	Depth      int
	CreatedAt  time.Time
	ExpiresAt  time.Time

	expiry *time.Timer
}

// IsOpen reports whether anyone may accept.
func (c *Challenge) IsOpen() bool {
	return c.Target == nil
}

// VisibleTo reports whether uid may see and accept the challenge.
func (c *Challenge) VisibleTo(uid UserID) bool {
	if c.Challenger.ID == uid {
		return false
	}
	return c.Target == nil || c.Target.ID == uid
}

// ChallengeView is the wire form of a challenge.
type ChallengeView struct {
	ChallengeID    ChallengeID `json:"challengeId"`
	ChallengerID   UserID      `json:"challengerId"`
	ChallengerName string      `json:"challengerName"`
	TargetUserID   *UserID     `json:"targetUserId"`
	TargetName     string      `json:"targetName,omitempty"`
	Game           string      `json:"game"`
	GameName       string      `json:"gameName"`
	Size           int         `json:"size"`
	CreatedAt      time.Time   `json:"createdAt"`
	ExpiresAt      time.Time   `json:"expiresAt"`
}

// View returns the wire form.
func (c *Challenge) View() ChallengeView {
	v := ChallengeView{
		ChallengeID:    c.ID,
		ChallengerID:   c.Challenger.ID,
		ChallengerName: c.Challenger.Name,
		Game:           c.Game,
		GameName:       c.GameName,
		Size:           c.Depth,
		CreatedAt:      c.CreatedAt,
		ExpiresAt:      c.ExpiresAt,
	}
	if c.Target != nil {
		id := c.Target.ID
		v.TargetUserID = &id
		v.TargetName = c.Target.Name
	}
	return v
}

// ChallengeBook holds the live challenges. Owned by the room loop.
type ChallengeBook struct {
	byID map[ChallengeID]*Challenge
}

// NewChallengeBook creates an empty book.
func NewChallengeBook() *ChallengeBook {
	return &ChallengeBook{byID: make(map[ChallengeID]*Challenge)}
}

// Add stores c.
func (b *ChallengeBook) Add(c *Challenge) {
	b.byID[c.ID] = c
}

// Get retrieves a live challenge.
func (b *ChallengeBook) Get(id ChallengeID) (*Challenge, bool) {
	c, ok := b.byID[id]
	return c, ok
}

// Remove deletes a challenge and stops its expiry timer.
func (b *ChallengeBook) Remove(id ChallengeID) (*Challenge, bool) {
	c, ok := b.byID[id]
	if !ok {
		return nil, false
	}
	delete(b.byID, id)
	if c.expiry != nil {
		c.expiry.Stop()
	}
	return c, true
}

// Incoming returns challenges uid may accept, oldest first.
func (b *ChallengeBook) Incoming(uid UserID) []ChallengeView {
	return b.views(func(c *Challenge) bool { return c.VisibleTo(uid) })
}

// Outgoing returns challenges created by uid, oldest first.
func (b *ChallengeBook) Outgoing(uid UserID) []ChallengeView {
	return b.views(func(c *Challenge) bool { return c.Challenger.ID == uid })
}

// Len returns the number of live challenges.
func (b *ChallengeBook) Len() int {
	return len(b.byID)
}

// stopAll stops every expiry timer.
func (b *ChallengeBook) stopAll() {
	for _, c := range b.byID {
		if c.expiry != nil {
			c.expiry.Stop()
		}
	}
}

func (b *ChallengeBook) views(keep func(*Challenge) bool) []ChallengeView {
	var picked []*Challenge
	for _, c := range b.byID {
		if keep(c) {
			picked = append(picked, c)
		}
	}
	slices.SortFunc(picked, func(a, b *Challenge) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(string(a.ID), string(b.ID))
	})
	views := make([]ChallengeView, 0, len(picked))
	for _, c := range picked {
		views = append(views, c.View())
	}
	return views
}
