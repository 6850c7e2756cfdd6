package session

import (
	"errors"
	"testing"
	"time"

	"github.com/speakai-labs/speakai/internal/domain"
)

type stubResponder struct {
	freeform string
	scripted string
}

func (s stubResponder) Freeform(string) string {
	return s.freeform
}

func (s stubResponder) Scripted(string, domain.Scenario, domain.Role) string {
	return s.scripted
}

type stubScorer struct {
	score int
}

func (s stubScorer) Score(string) domain.PronunciationFeedback {
	return domain.PronunciationFeedback{Score: s.score, Comment: "stub"}
}

func testEngine() *Engine {
	return NewEngine(stubResponder{freeform: "free reply", scripted: "scripted reply"}, stubScorer{score: 80})
}

var testScenario = domain.Scenario{
	ID:               "pizza-order",
	Name:             "Pizza Order",
	Description:      "Practice ordering pizza online",
	Context:          "You are at Tony's Pizza.",
	CustomerOpening:  "Hi, I'd like to order a pizza for delivery.",
	AssistantOpening: "Hello! Welcome to Tony's Pizza. How can I help you today?",
}

func apply(t *testing.T, e *Engine, s domain.Session, a Action) (domain.Session, []Command) {
	t.Helper()
	next, cmds, err := e.Apply(s, a, time.Now())
	if err != nil {
		t.Fatalf("Apply(%T) returned error: %v", a, err)
	}
	if invErr := next.CheckInvariants(); invErr != nil {
		t.Fatalf("Apply(%T) broke invariants: %v", a, invErr)
	}
	return next, cmds
}

func TestEngine_StartScenarioSeedsComplementaryOpening(t *testing.T) {
	e := testEngine()

	tests := []struct {
		role domain.Role
		want string
	}{
		{domain.RoleCustomer, testScenario.AssistantOpening},
		{domain.RoleAssistant, testScenario.CustomerOpening},
	}

	for _, tt := range tests {
		s := domain.NewSession("u1", 1)
		s, cmds := apply(t, e, s, StartScenario{Scenario: testScenario, Role: tt.role, Epoch: 2})

		if len(s.Transcript) != 1 {
			t.Fatalf("Expected 1 seed message for role %s, got %d", tt.role, len(s.Transcript))
		}
		seed := s.Transcript[0]
		if seed.Speaker != domain.SpeakerAI {
			t.Errorf("Expected seed speaker ai, got %s", seed.Speaker)
		}
		if seed.Text != tt.want {
			t.Errorf("Role %s: expected seed %q, got %q", tt.role, tt.want, seed.Text)
		}
		if s.Mode != domain.ModeScenarioActive {
			t.Errorf("Expected mode scenario_active, got %s", s.Mode)
		}
		if len(cmds) != 1 {
			t.Fatalf("Expected 1 command, got %d", len(cmds))
		}
		speak, ok := cmds[0].(Speak)
		if !ok {
			t.Fatalf("Expected Speak command, got %T", cmds[0])
		}
		if speak.Text != tt.want {
			t.Errorf("Expected speak %q, got %q", tt.want, speak.Text)
		}
	}
}

func TestEngine_StartScenarioWhileActiveIsImplicitReset(t *testing.T) {
	e := testEngine()
	s := domain.NewSession("u1", 1)

	s, _ = apply(t, e, s, StartScenario{Scenario: testScenario, Role: domain.RoleCustomer, Epoch: 2})
	s, _ = apply(t, e, s, SubmitUtterance{Text: "I'd like a pizza"})

	other := testScenario
	other.ID = "hotel-booking"
	other.CustomerOpening = "Hi, I need a room."
	other.AssistantOpening = "Welcome to Grand Hotel."

	s, _ = apply(t, e, s, StartScenario{Scenario: other, Role: domain.RoleCustomer, Epoch: 3})

	if len(s.Transcript) != 1 {
		t.Fatalf("Expected fresh transcript with 1 seed, got %d messages", len(s.Transcript))
	}
	if s.Transcript[0].Text != other.AssistantOpening {
		t.Errorf("Expected new scenario seed, got %q", s.Transcript[0].Text)
	}
	if s.Scenario.ID != "hotel-booking" {
		t.Errorf("Expected active scenario hotel-booking, got %s", s.Scenario.ID)
	}
	if s.Pending != nil {
		t.Error("Expected pending reply cleared by implicit reset")
	}
	if s.Epoch != 3 {
		t.Errorf("Expected epoch 3, got %d", s.Epoch)
	}
}

func TestEngine_ResetPostconditions(t *testing.T) {
	e := testEngine()
	s := domain.NewSession("u1", 1)

	s, _ = apply(t, e, s, StartScenario{Scenario: testScenario, Role: domain.RoleCustomer, Epoch: 2})
	s, _ = apply(t, e, s, SubmitUtterance{Text: "hello"})

	s, cmds := apply(t, e, s, ResetConversation{Epoch: 3})

	if len(cmds) != 0 {
		t.Errorf("Expected no commands from reset, got %d", len(cmds))
	}
	if len(s.Transcript) != 0 {
		t.Errorf("Expected empty transcript, got %d messages", len(s.Transcript))
	}
	if s.Mode != domain.ModeFreeform {
		t.Errorf("Expected mode freeform, got %s", s.Mode)
	}
	if s.Scenario != nil {
		t.Error("Expected nil scenario after reset")
	}
	if s.LastFeedback != nil {
		t.Error("Expected nil feedback after reset")
	}
	if s.Pending != nil {
		t.Error("Expected no pending reply after reset")
	}

	// Idempotent.
	again, _ := apply(t, e, s, ResetConversation{Epoch: 4})
	again.Epoch = s.Epoch
	if len(again.Transcript) != 0 || again.Mode != domain.ModeFreeform || again.Scenario != nil {
		t.Error("Reset is not idempotent")
	}
}

func TestEngine_SubmitUtteranceEmptyIsIgnored(t *testing.T) {
	e := testEngine()
	s := domain.NewSession("u1", 1)

	for _, text := range []string{"", "   ", "\n\t "} {
		next, cmds, err := e.Apply(s, SubmitUtterance{Text: text}, time.Now())
		if err != nil {
			t.Fatalf("Empty utterance %q returned error: %v", text, err)
		}
		if len(next.Transcript) != 0 {
			t.Errorf("Empty utterance %q appended a message", text)
		}
		if len(cmds) != 0 {
			t.Errorf("Empty utterance %q produced commands", text)
		}
		if next.LastFeedback != nil {
			t.Errorf("Empty utterance %q produced feedback", text)
		}
	}
}

func TestEngine_SubmitUtteranceAppendsAndSchedules(t *testing.T) {
	e := testEngine()
	s := domain.NewSession("u1", 1)

	s, cmds := apply(t, e, s, SubmitUtterance{Text: "  hello there  "})

	if len(s.Transcript) != 1 {
		t.Fatalf("Expected 1 message, got %d", len(s.Transcript))
	}
	msg := s.Transcript[0]
	if msg.Speaker != domain.SpeakerUser {
		t.Errorf("Expected user message, got %s", msg.Speaker)
	}
	if msg.Text != "hello there" {
		t.Errorf("Expected trimmed text, got %q", msg.Text)
	}
	if s.LastFeedback == nil || s.LastFeedback.Score != 80 {
		t.Errorf("Expected feedback score 80, got %+v", s.LastFeedback)
	}
	if s.Pending == nil || s.Pending.Text != "free reply" {
		t.Fatalf("Expected pending freeform reply, got %+v", s.Pending)
	}
	if len(cmds) != 1 {
		t.Fatalf("Expected 1 command, got %d", len(cmds))
	}
	sched, ok := cmds[0].(ScheduleReply)
	if !ok {
		t.Fatalf("Expected ScheduleReply, got %T", cmds[0])
	}
	if sched.Epoch != s.Epoch || sched.Seq != s.Pending.Seq {
		t.Errorf("Schedule guard mismatch: cmd=%+v pending=%+v epoch=%d", sched, s.Pending, s.Epoch)
	}
}

func TestEngine_SubmitUtteranceUsesScriptedReplyInScenario(t *testing.T) {
	e := testEngine()
	s := domain.NewSession("u1", 1)

	s, _ = apply(t, e, s, StartScenario{Scenario: testScenario, Role: domain.RoleCustomer, Epoch: 2})
	s, _ = apply(t, e, s, SubmitUtterance{Text: "I'd like a pepperoni pizza"})

	if s.Pending == nil || s.Pending.Text != "scripted reply" {
		t.Fatalf("Expected scripted pending reply, got %+v", s.Pending)
	}
}

func TestEngine_SubmitUtteranceRejectedWhileBrowsing(t *testing.T) {
	e := testEngine()
	s := domain.NewSession("u1", 1)

	s, _ = apply(t, e, s, SelectMode{Mode: domain.ModeScenarioBrowsing})

	_, _, err := e.Apply(s, SubmitUtterance{Text: "hello"}, time.Now())
	if !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Expected ErrInvalidTransition, got %v", err)
	}
}

func TestEngine_CommitReplyAppendsAISpeaks(t *testing.T) {
	e := testEngine()
	s := domain.NewSession("u1", 1)

	s, _ = apply(t, e, s, SubmitUtterance{Text: "hello"})
	pending := *s.Pending

	s, cmds := apply(t, e, s, CommitReply{Epoch: s.Epoch, Seq: pending.Seq})

	if len(s.Transcript) != 2 {
		t.Fatalf("Expected 2 messages, got %d", len(s.Transcript))
	}
	reply := s.Transcript[1]
	if reply.Speaker != domain.SpeakerAI || reply.Text != pending.Text {
		t.Errorf("Expected AI reply %q, got %s %q", pending.Text, reply.Speaker, reply.Text)
	}
	if s.Transcript[0].ID >= reply.ID {
		t.Error("Reply ID must be greater than the user message ID")
	}
	if s.Pending != nil {
		t.Error("Expected pending cleared after commit")
	}
	if len(cmds) != 1 {
		t.Fatalf("Expected 1 Speak command, got %d", len(cmds))
	}
	if speak := cmds[0].(Speak); speak.Text != pending.Text {
		t.Errorf("Expected speak %q, got %q", pending.Text, speak.Text)
	}
}

func TestEngine_CommitReplyStaleIsNoOp(t *testing.T) {
	e := testEngine()
	s := domain.NewSession("u1", 1)

	s, _ = apply(t, e, s, SubmitUtterance{Text: "hello"})
	seq := s.Pending.Seq

	// Wrong epoch.
	next, cmds := apply(t, e, s, CommitReply{Epoch: s.Epoch + 1, Seq: seq})
	if len(next.Transcript) != 1 || len(cmds) != 0 {
		t.Error("Stale epoch commit must be a no-op")
	}

	// Wrong sequence.
	next, cmds = apply(t, e, s, CommitReply{Epoch: s.Epoch, Seq: seq + 1})
	if len(next.Transcript) != 1 || len(cmds) != 0 {
		t.Error("Stale sequence commit must be a no-op")
	}

	// After reset, the old guard must never land the reply.
	next, _ = apply(t, e, s, ResetConversation{Epoch: 9})
	next, cmds = apply(t, e, next, CommitReply{Epoch: s.Epoch, Seq: seq})
	if len(next.Transcript) != 0 || len(cmds) != 0 {
		t.Error("Commit after reset must be a no-op")
	}
}

func TestEngine_SecondUtteranceFlushesPendingReply(t *testing.T) {
	e := testEngine()
	s := domain.NewSession("u1", 1)

	s, _ = apply(t, e, s, SubmitUtterance{Text: "first"})
	firstSeq := s.Pending.Seq
	s, _ = apply(t, e, s, SubmitUtterance{Text: "second"})

	// Transcript must alternate: user, ai, user — with the flushed reply
	// landing before the second utterance.
	if len(s.Transcript) != 3 {
		t.Fatalf("Expected 3 messages, got %d", len(s.Transcript))
	}
	wantSpeakers := []domain.Speaker{domain.SpeakerUser, domain.SpeakerAI, domain.SpeakerUser}
	for i, want := range wantSpeakers {
		if s.Transcript[i].Speaker != want {
			t.Errorf("Message %d: expected speaker %s, got %s", i, want, s.Transcript[i].Speaker)
		}
	}

	// The first reply's timer must now be stale.
	next, cmds := apply(t, e, s, CommitReply{Epoch: s.Epoch, Seq: firstSeq})
	if len(next.Transcript) != 3 || len(cmds) != 0 {
		t.Error("Flushed reply must not be committed twice")
	}
}

func TestEngine_SelectModeBrowsingKeepsTranscript(t *testing.T) {
	e := testEngine()
	s := domain.NewSession("u1", 1)

	s, _ = apply(t, e, s, SubmitUtterance{Text: "hello"})
	s, _ = apply(t, e, s, SelectMode{Mode: domain.ModeScenarioBrowsing})

	if s.Mode != domain.ModeScenarioBrowsing {
		t.Errorf("Expected browsing mode, got %s", s.Mode)
	}
	if len(s.Transcript) != 1 {
		t.Errorf("Browsing must keep the transcript, got %d messages", len(s.Transcript))
	}

	s, _ = apply(t, e, s, SelectMode{Mode: domain.ModeFreeform, Epoch: 2})
	if len(s.Transcript) != 0 {
		t.Errorf("Selecting freeform must reset the conversation, got %d messages", len(s.Transcript))
	}
}

func TestEngine_CaptureFlags(t *testing.T) {
	e := testEngine()
	s := domain.NewSession("u1", 1)

	s, _ = apply(t, e, s, CaptureStarted{})
	if !s.Listening {
		t.Error("Expected listening true after capture start")
	}
	// Idempotent.
	s, _ = apply(t, e, s, CaptureStarted{})
	if !s.Listening {
		t.Error("Expected listening still true")
	}
	s, _ = apply(t, e, s, CaptureEnded{})
	if s.Listening {
		t.Error("Expected listening false after capture end")
	}
	s, _ = apply(t, e, s, CaptureEnded{})
	if s.Listening {
		t.Error("Expected listening still false")
	}
}

func TestEngine_MessageIDsSurviveReset(t *testing.T) {
	e := testEngine()
	s := domain.NewSession("u1", 1)

	s, _ = apply(t, e, s, SubmitUtterance{Text: "one"})
	firstID := s.Transcript[0].ID

	s, _ = apply(t, e, s, ResetConversation{Epoch: 2})
	s, _ = apply(t, e, s, SubmitUtterance{Text: "two"})

	if s.Transcript[0].ID <= firstID {
		t.Errorf("IDs must stay strictly increasing across resets: %d then %d", firstID, s.Transcript[0].ID)
	}
}
