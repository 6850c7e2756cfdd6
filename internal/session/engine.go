package session

import (
	"strings"
	"time"

	"github.com/speakai-labs/speakai/internal/domain"
)

// Responder generates conversation replies.
type Responder interface {
	Freeform(utterance string) string
	Scripted(utterance string, scenario domain.Scenario, userRole domain.Role) string
}

// Scorer produces pronunciation feedback for an utterance.
type Scorer interface {
	Score(utterance string) domain.PronunciationFeedback
}

// Engine is the pure transition function of the session state machine.
// Apply never performs side effects; it returns commands for the caller to
// execute.
type Engine struct {
	responder Responder
	scorer    Scorer
}

// NewEngine creates an Engine with the given collaborators.
func NewEngine(responder Responder, scorer Scorer) *Engine {
	return &Engine{responder: responder, scorer: scorer}
}

// Apply computes the session resulting from an action, plus the commands the
// caller must execute. now stamps any messages appended by the transition.
func (e *Engine) Apply(s domain.Session, a Action, now time.Time) (domain.Session, []Command, error) {
	switch a := a.(type) {
	case SelectMode:
		if a.Mode == domain.ModeFreeform {
			return reset(s, a.Epoch), nil, nil
		}
		// Browsing only changes mode; the transcript survives until a
		// scenario actually starts.
		s.Mode = domain.ModeScenarioBrowsing
		s.Scenario = nil
		return s, nil, nil

	case StartScenario:
		s = reset(s, a.Epoch)
		sc := a.Scenario
		s.Mode = domain.ModeScenarioActive
		s.Scenario = &sc
		s.Role = a.Role
		// The AI opens with the line of the side the learner is not playing.
		opening := sc.OpeningFor(a.Role.Complement())
		s = s.Append(domain.SpeakerAI, opening, now)
		// Append before speak, in that order.
		return s, []Command{Speak{Text: opening}}, nil

	case ResetConversation:
		return reset(s, a.Epoch), nil, nil

	case SubmitUtterance:
		if s.Mode == domain.ModeScenarioBrowsing {
			return s, nil, ErrInvalidTransition
		}
		text := strings.TrimSpace(a.Text)
		if text == "" {
			return s, nil, nil
		}

		var cmds []Command
		// At most one reply is ever in flight. If the learner speaks before
		// the previous reply lands, flush it now so the transcript keeps
		// strict user/AI alternation in causal order.
		if s.Pending != nil {
			pending := s.Pending.Text
			s.Pending = nil
			s = s.Append(domain.SpeakerAI, pending, now)
			cmds = append(cmds, Speak{Text: pending})
		}

		s = s.Append(domain.SpeakerUser, text, now)

		fb := e.scorer.Score(text)
		s.LastFeedback = &fb

		var reply string
		if s.Mode == domain.ModeScenarioActive && s.Scenario != nil {
			reply = e.responder.Scripted(text, *s.Scenario, s.Role)
		} else {
			reply = e.responder.Freeform(text)
		}

		s.Pending = &domain.PendingReply{Seq: s.NextReplySeq, Text: reply}
		s.NextReplySeq++
		cmds = append(cmds, ScheduleReply{Epoch: s.Epoch, Seq: s.Pending.Seq})
		return s, cmds, nil

	case CommitReply:
		if a.Epoch != s.Epoch || s.Pending == nil || s.Pending.Seq != a.Seq {
			// Stale: the session was replaced or the reply already landed.
			return s, nil, nil
		}
		text := s.Pending.Text
		s.Pending = nil
		s = s.Append(domain.SpeakerAI, text, now)
		return s, []Command{Speak{Text: text}}, nil

	case CaptureStarted:
		s.Listening = true
		return s, nil, nil

	case CaptureEnded:
		s.Listening = false
		return s, nil, nil
	}

	return s, nil, nil
}

// reset clears the conversation and stamps the replacement epoch. Message and
// reply counters survive so IDs stay strictly increasing across resets.
func reset(s domain.Session, epoch uint64) domain.Session {
	s.Epoch = epoch
	s.Mode = domain.ModeFreeform
	s.Scenario = nil
	s.Transcript = nil
	s.LastFeedback = nil
	s.Pending = nil
	return s
}
