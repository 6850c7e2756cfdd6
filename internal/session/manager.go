package session

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/speakai-labs/speakai/internal/domain"
)

// Sink receives the boundary side effects of session transitions. The speech
// bridge implements it; tests use NopSink.
type Sink interface {
	// Speak pushes text to the learner's speech-output adapter.
	// Fire-and-forget: delivery is best effort.
	Speak(userID, text string)
	// SessionChanged notifies that the learner's session state changed.
	SessionChanged(userID string, snap domain.Snapshot)
}

// NopSink discards all side effects.
type NopSink struct{}

func (NopSink) Speak(string, string)                   {}
func (NopSink) SessionChanged(string, domain.Snapshot) {}

// Profiles records practice aggregates. Implemented by the store; updates are
// best effort and never block a transition.
type Profiles interface {
	RecordLogin(ctx context.Context, userID string, at time.Time) error
	RecordUtterance(ctx context.Context, userID string, score int, at time.Time) error
}

// Manager owns the live conversation sessions, one per learner, and is the
// only writer of session state. All exported methods are safe for concurrent
// use. Sessions live purely in memory: logout or TTL eviction discards them.
type Manager struct {
	engine     *Engine
	sink       Sink
	profiles   Profiles // may be nil
	replyDelay time.Duration
	clock      func() time.Time

	// nextEpoch allocates session-replacement epochs. Global so an epoch can
	// never repeat for a user across logout/login, which keeps stale reply
	// timers harmless even around session re-creation.
	nextEpoch atomic.Uint64

	// nextRev stamps snapshot revisions. Allocated while holding mu, so the
	// revision order matches the order actions were applied even when sink
	// notifications race outside the lock; the hub drops pushes that would
	// roll a client back.
	nextRev atomic.Uint64

	mu       sync.Mutex
	sessions map[string]*entry
}

type entry struct {
	session      domain.Session
	replyTimer   *time.Timer
	lastActivity time.Time
}

// NewManager creates a session manager.
func NewManager(engine *Engine, sink Sink, profiles Profiles, replyDelay time.Duration) *Manager {
	if sink == nil {
		sink = NopSink{}
	}
	return &Manager{
		engine:     engine,
		sink:       sink,
		profiles:   profiles,
		replyDelay: replyDelay,
		clock:      time.Now,
		sessions:   make(map[string]*entry),
	}
}

// SetClock overrides the time source. Used by tests.
func (m *Manager) SetClock(clock func() time.Time) {
	m.clock = clock
}

// LoggedOutSnapshot is the view handed out when no session exists.
func LoggedOutSnapshot() domain.Snapshot {
	return domain.Snapshot{Transcript: []domain.Message{}}
}

// Login creates an empty session for the learner. Logging in with an active
// session keeps it (refreshing a tab must not wipe the conversation).
// Authentication itself is delegated to the identity layer; by the time a
// user id reaches the manager, the caller is whoever identity says they are.
func (m *Manager) Login(userID string) domain.Snapshot {
	m.mu.Lock()
	ent, ok := m.sessions[userID]
	if !ok {
		session := domain.NewSession(userID, m.nextEpoch.Add(1))
		session.Revision = m.nextRev.Add(1)
		ent = &entry{session: session}
		m.sessions[userID] = ent
		slog.Info("session created", "user_id", userID, "epoch", ent.session.Epoch)
	}
	ent.lastActivity = m.clock()
	snap := ent.session.Snapshot()
	m.mu.Unlock()

	if !ok {
		m.touchProfile(userID, func(ctx context.Context) error {
			return m.profiles.RecordLogin(ctx, userID, m.clock())
		})
	}
	m.sink.SessionChanged(userID, snap)
	return snap
}

// Logout discards the learner's session, transcript included. Any pending
// reply timer is stopped; a timer that already fired finds no session and
// drops its reply.
func (m *Manager) Logout(userID string) {
	m.mu.Lock()
	ent, ok := m.sessions[userID]
	var out domain.Snapshot
	if ok {
		if ent.replyTimer != nil {
			ent.replyTimer.Stop()
		}
		delete(m.sessions, userID)
		out = LoggedOutSnapshot()
		out.Revision = m.nextRev.Add(1)
	}
	m.mu.Unlock()

	if ok {
		slog.Info("session discarded", "user_id", userID)
		m.sink.SessionChanged(userID, out)
	}
}

// Snapshot returns the learner's current session view.
func (m *Manager) Snapshot(userID string) domain.Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	ent, ok := m.sessions[userID]
	if !ok {
		return LoggedOutSnapshot()
	}
	return ent.session.Snapshot()
}

// SelectMode switches between freeform and scenario browsing. Selecting
// freeform resets the conversation.
func (m *Manager) SelectMode(userID string, mode domain.Mode) (domain.Snapshot, error) {
	return m.dispatch(userID, SelectMode{Mode: mode, Epoch: m.nextEpoch.Add(1)})
}

// StartScenario activates a scenario with the learner playing role. The AI
// seed message is appended and spoken as part of the transition.
func (m *Manager) StartScenario(userID string, scenario domain.Scenario, role domain.Role) (domain.Snapshot, error) {
	return m.dispatch(userID, StartScenario{
		Scenario: scenario,
		Role:     role,
		Epoch:    m.nextEpoch.Add(1),
	})
}

// Reset clears the conversation and returns to freeform mode.
func (m *Manager) Reset(userID string) (domain.Snapshot, error) {
	return m.dispatch(userID, ResetConversation{Epoch: m.nextEpoch.Add(1)})
}

// SubmitUtterance records a finalized learner utterance and schedules the
// simulated reply. It returns as soon as the utterance and feedback are
// committed; the reply lands after the thinking delay.
func (m *Manager) SubmitUtterance(userID, text string) (domain.Snapshot, error) {
	snap, committed, err := m.apply(userID, SubmitUtterance{Text: text})
	if err != nil {
		return snap, err
	}
	// Empty input is a no-op in the reducer; feedback left over from an
	// earlier utterance must not be recorded again.
	if committed && snap.Feedback != nil {
		score := snap.Feedback.Score
		m.touchProfile(userID, func(ctx context.Context) error {
			return m.profiles.RecordUtterance(ctx, userID, score, m.clock())
		})
	}
	return snap, nil
}

// CaptureStarted mirrors the speech adapter starting capture.
func (m *Manager) CaptureStarted(userID string) {
	if _, err := m.dispatch(userID, CaptureStarted{}); err != nil {
		slog.Debug("capture start ignored", "user_id", userID, "error", err)
	}
}

// CaptureEnded mirrors the speech adapter stopping capture, solicited or not.
func (m *Manager) CaptureEnded(userID string) {
	if _, err := m.dispatch(userID, CaptureEnded{}); err != nil {
		slog.Debug("capture end ignored", "user_id", userID, "error", err)
	}
}

func (m *Manager) dispatch(userID string, action Action) (domain.Snapshot, error) {
	snap, _, err := m.apply(userID, action)
	return snap, err
}

// apply runs one action through the reducer, stores the new session, and
// executes the returned commands. The boolean result reports whether the
// action committed any message to the transcript. Timer bookkeeping happens
// under the lock; sink notifications happen outside it.
func (m *Manager) apply(userID string, action Action) (domain.Snapshot, bool, error) {
	now := m.clock()

	m.mu.Lock()
	ent, ok := m.sessions[userID]
	if !ok {
		m.mu.Unlock()
		return LoggedOutSnapshot(), false, ErrNotLoggedIn
	}

	next, cmds, err := m.engine.Apply(ent.session, action, now)
	if err != nil {
		snap := ent.session.Snapshot()
		m.mu.Unlock()
		return snap, false, err
	}

	appended := next.NextMessageID > ent.session.NextMessageID
	next.Revision = m.nextRev.Add(1)
	ent.session = next
	ent.lastActivity = now

	var speaks []string
	for _, cmd := range cmds {
		switch cmd := cmd.(type) {
		case Speak:
			speaks = append(speaks, cmd.Text)
		case ScheduleReply:
			if ent.replyTimer != nil {
				ent.replyTimer.Stop()
			}
			epoch, seq := cmd.Epoch, cmd.Seq
			ent.replyTimer = time.AfterFunc(m.replyDelay, func() {
				m.commitReply(userID, epoch, seq)
			})
		}
	}
	snap := ent.session.Snapshot()
	m.mu.Unlock()

	for _, text := range speaks {
		m.sink.Speak(userID, text)
	}
	m.sink.SessionChanged(userID, snap)
	return snap, appended, nil
}

// commitReply is the deferred half of SubmitUtterance. The epoch and
// sequence guard makes a late timer harmless after logout, reset, or an
// inline flush.
func (m *Manager) commitReply(userID string, epoch, seq uint64) {
	if _, err := m.dispatch(userID, CommitReply{Epoch: epoch, Seq: seq}); err != nil {
		slog.Debug("stale reply dropped", "user_id", userID, "epoch", epoch, "seq", seq)
	}
}

// touchProfile runs a profile update asynchronously with a timeout.
func (m *Manager) touchProfile(userID string, fn func(context.Context) error) {
	if m.profiles == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := fn(ctx); err != nil {
			slog.Warn("failed to update learner profile", "user_id", userID, "error", err)
		}
	}()
}

// StartTTLWorker evicts sessions idle past ttl. It runs until ctx is done.
func (m *Manager) StartTTLWorker(ctx context.Context, ttl time.Duration) {
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.evictIdle(ttl)
			}
		}
	}()
}

func (m *Manager) evictIdle(ttl time.Duration) {
	cutoff := m.clock().Add(-ttl)

	m.mu.Lock()
	var evicted []string
	var snaps []domain.Snapshot
	for userID, ent := range m.sessions {
		if ent.lastActivity.Before(cutoff) {
			if ent.replyTimer != nil {
				ent.replyTimer.Stop()
			}
			delete(m.sessions, userID)
			out := LoggedOutSnapshot()
			out.Revision = m.nextRev.Add(1)
			evicted = append(evicted, userID)
			snaps = append(snaps, out)
		}
	}
	m.mu.Unlock()

	for i, userID := range evicted {
		slog.Info("idle session evicted", "user_id", userID, "ttl", ttl)
		m.sink.SessionChanged(userID, snaps[i])
	}
}
