package domain

import (
	"fmt"
	"time"
)

// Mode governs which conversation behaviors are reachable.
type Mode string

const (
	// ModeFreeform is open conversation with no scripted scenario.
	ModeFreeform Mode = "freeform"
	// ModeScenarioBrowsing shows the catalog; only scenario selection or a
	// return to freeform is allowed.
	ModeScenarioBrowsing Mode = "scenario_browsing"
	// ModeScenarioActive is a running scripted scenario.
	ModeScenarioActive Mode = "scenario_active"
)

// ParseMode validates a selectable mode string from the API. ModeScenarioActive
// is not directly selectable; it is entered by starting a scenario.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeFreeform, ModeScenarioBrowsing:
		return Mode(s), nil
	}
	return "", fmt.Errorf("unknown mode %q", s)
}

// PendingReply is a scheduled AI reply that has not been committed yet.
// Seq distinguishes it from earlier replies so a stale timer cannot commit
// a reply that was already flushed or superseded.
type PendingReply struct {
	Seq  uint64
	Text string
}

// Session is the full conversation state for one learner. It is a value:
// the state machine produces a new Session on every transition, and callers
// outside the session manager only ever see deep copies.
type Session struct {
	UserID string

	// Epoch is bumped whenever the session is replaced (login, logout, reset,
	// scenario start). Deferred work scheduled under an older epoch is stale
	// and must not mutate the session.
	Epoch uint64

	// Revision counts applied actions. It is stamped by the session manager,
	// not the reducer, and only ever grows for a learner, so state pushes can
	// be ordered and stale ones dropped.
	Revision uint64

	Mode     Mode
	Scenario *Scenario // non-nil iff Mode == ModeScenarioActive
	Role     Role

	Transcript   []Message
	Listening    bool
	LastFeedback *PronunciationFeedback

	Pending *PendingReply

	// NextMessageID and NextReplySeq are monotonic counters. They survive a
	// reset so IDs stay strictly increasing for the lifetime of the session.
	NextMessageID uint64
	NextReplySeq  uint64
}

// NewSession returns an empty freeform session for the given user.
func NewSession(userID string, epoch uint64) Session {
	return Session{
		UserID:        userID,
		Epoch:         epoch,
		Mode:          ModeFreeform,
		Role:          RoleCustomer,
		NextMessageID: 1,
		NextReplySeq:  1,
	}
}

// Append adds a message to the transcript, minting its ID from the session
// counter. The returned session owns a fresh transcript slice so earlier
// copies are never aliased.
func (s Session) Append(speaker Speaker, text string, at time.Time) Session {
	msg := Message{
		ID:        s.NextMessageID,
		Text:      text,
		Speaker:   speaker,
		Timestamp: at,
	}
	transcript := make([]Message, len(s.Transcript), len(s.Transcript)+1)
	copy(transcript, s.Transcript)
	s.Transcript = append(transcript, msg)
	s.NextMessageID++
	return s
}

// Clone returns a deep copy safe to hand outside the session manager.
func (s Session) Clone() Session {
	out := s
	if s.Transcript != nil {
		out.Transcript = make([]Message, len(s.Transcript))
		copy(out.Transcript, s.Transcript)
	}
	if s.Scenario != nil {
		sc := *s.Scenario
		out.Scenario = &sc
	}
	if s.LastFeedback != nil {
		fb := *s.LastFeedback
		out.LastFeedback = &fb
	}
	if s.Pending != nil {
		p := *s.Pending
		out.Pending = &p
	}
	return out
}

// CheckInvariants verifies the session's structural invariants. Used by tests.
func (s Session) CheckInvariants() error {
	if (s.Mode == ModeScenarioActive) != (s.Scenario != nil) {
		return fmt.Errorf("scenario must be set exactly when mode is scenario_active (mode=%s, scenario=%v)", s.Mode, s.Scenario)
	}
	var lastID uint64
	for _, m := range s.Transcript {
		if m.ID <= lastID {
			return fmt.Errorf("transcript ids must be strictly increasing (saw %d after %d)", m.ID, lastID)
		}
		lastID = m.ID
	}
	if lastID >= s.NextMessageID {
		return fmt.Errorf("next message id %d must exceed last transcript id %d", s.NextMessageID, lastID)
	}
	return nil
}

// Snapshot is the read-only view of a session handed to the presentation
// layer. Profile is filled by the API layer from the learner store.
type Snapshot struct {
	LoggedIn   bool                   `json:"logged_in"`
	Revision   uint64                 `json:"revision"`
	Mode       Mode                   `json:"mode,omitempty"`
	Scenario   *Scenario              `json:"scenario,omitempty"`
	Role       Role                   `json:"role,omitempty"`
	Transcript []Message              `json:"transcript"`
	Listening  bool                   `json:"listening"`
	Feedback   *PronunciationFeedback `json:"feedback,omitempty"`
	Profile    *LearnerProfile        `json:"profile,omitempty"`
}

// Snapshot renders the session for the presentation layer.
func (s Session) Snapshot() Snapshot {
	c := s.Clone()
	transcript := c.Transcript
	if transcript == nil {
		transcript = []Message{}
	}
	return Snapshot{
		LoggedIn:   true,
		Revision:   c.Revision,
		Mode:       c.Mode,
		Scenario:   c.Scenario,
		Role:       c.Role,
		Transcript: transcript,
		Listening:  c.Listening,
		Feedback:   c.LastFeedback,
	}
}
