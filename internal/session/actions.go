// Package session implements the conversation session state machine.
//
// The machine is split in two: a pure reducer (Engine.Apply) that maps a
// session value and an action to a new session value plus boundary commands,
// and a Manager that owns the live sessions, executes commands, and runs the
// delayed-reply timers. Side effects never happen inside the reducer.
package session

import (
	"errors"

	"github.com/speakai-labs/speakai/internal/domain"
)

var (
	// ErrNotLoggedIn is returned for operations that need an active session.
	ErrNotLoggedIn = errors.New("no active session")
	// ErrInvalidTransition is returned when an operation is not allowed in
	// the current conversation mode.
	ErrInvalidTransition = errors.New("operation not allowed in current mode")
)

// Action is a discrete session transition request. All session mutations go
// through exactly one Apply call per action.
type Action interface {
	isAction()
}

// SelectMode switches between freeform conversation and scenario browsing.
// Selecting freeform also resets the conversation; Epoch is the replacement
// epoch to stamp on the reset session and is ignored for browsing.
type SelectMode struct {
	Mode  domain.Mode
	Epoch uint64
}

// StartScenario activates a scripted scenario with the learner playing Role.
// It always resets the conversation first, so starting while another scenario
// is active is an implicit reset rather than an error.
type StartScenario struct {
	Scenario domain.Scenario
	Role     domain.Role
	Epoch    uint64
}

// ResetConversation clears the transcript and returns to freeform mode.
// Idempotent.
type ResetConversation struct {
	Epoch uint64
}

// SubmitUtterance records a finalized learner utterance. Empty or
// whitespace-only text is silently ignored (no error is surfaced); this is
// the documented handling of empty input.
type SubmitUtterance struct {
	Text string
}

// CommitReply lands a previously scheduled AI reply. It only takes effect if
// the session epoch and pending reply sequence still match; otherwise the
// reply is stale (the session was reset, replaced, or the reply was already
// flushed) and the action is a no-op.
type CommitReply struct {
	Epoch uint64
	Seq   uint64
}

// CaptureStarted mirrors the speech adapter reporting active capture.
type CaptureStarted struct{}

// CaptureEnded mirrors the speech adapter reporting capture stopped, whether
// requested or unsolicited (permission denied, auto-stop).
type CaptureEnded struct{}

func (SelectMode) isAction()        {}
func (StartScenario) isAction()     {}
func (ResetConversation) isAction() {}
func (SubmitUtterance) isAction()   {}
func (CommitReply) isAction()       {}
func (CaptureStarted) isAction()    {}
func (CaptureEnded) isAction()      {}

// Command is a side effect requested by the reducer, executed by the Manager
// at the boundary after the new session value is stored.
type Command interface {
	isCommand()
}

// Speak pushes text to the learner's speech-output adapter.
type Speak struct {
	Text string
}

// ScheduleReply asks the Manager to commit the pending reply after the
// configured thinking delay, guarded by epoch and sequence.
type ScheduleReply struct {
	Epoch uint64
	Seq   uint64
}

func (Speak) isCommand()         {}
func (ScheduleReply) isCommand() {}
