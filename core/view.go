package controller

import (
	"slices"
	"time"

	"github.com/koscakluka/foundry-core/core/protocols"
	"github.com/koscakluka/foundry-core/core/stream"
)

// RunState is the approval workflow state of the selected session.
type RunState int

const (
	StateIdle RunState = iota
	StateStreaming
	StateHaltedForHuman
)

func (s RunState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStreaming:
		return "streaming"
	case StateHaltedForHuman:
		return "halted_for_human"
	default:
		return "unknown"
	}
}

// initialState derives the workflow state of a freshly selected session
// from its persisted status.
func initialState(status protocols.Status) RunState {
	if status.IsHalted() {
		return StateHaltedForHuman
	}
	return StateIdle
}

// View is the live view of the controller. Values handed out by the
// controller are deep copies and safe to keep.
type View struct {
	// Revision increases with every change delivered to observers.
	Revision uint64

	Sessions   []protocols.SessionSummary
	SelectedID protocols.SessionID
	// Loading is set while a snapshot for the selection is in flight.
	Loading bool
	Session *protocols.Session

	Blackboard   protocols.Blackboard
	BlackboardAt *protocols.Timestamp

	// Activity is the log of the current run segment in arrival order.
	Activity []protocols.ActivityEntry

	// Draft is the text shown to the operator. ServerDraft is the latest
	// value the backend reported; they differ only while HasLocalEdits.
	Draft         string
	ServerDraft   string
	HasLocalEdits bool

	State      RunState
	Interrupts []any

	StreamID    string
	StreamMode  stream.Mode
	StreamEnded bool
	// LastFrameAt is zero until the current connection delivers a frame.
	LastFrameAt time.Time

	LastError string
}

// EditorUnlocked reports whether the draft awaits human review.
func (v View) EditorUnlocked() bool { return v.State == StateHaltedForHuman }

// Selected returns the directory entry of the selected session.
func (v View) Selected() (protocols.SessionSummary, bool) {
	if v.SelectedID.IsZero() {
		return protocols.SessionSummary{}, false
	}
	i := slices.IndexFunc(v.Sessions, func(s protocols.SessionSummary) bool { return s.ID == v.SelectedID })
	if i < 0 {
		return protocols.SessionSummary{}, false
	}
	return v.Sessions[i], true
}

// Scores prefers the live blackboard over the last snapshot.
func (v View) Scores() (safety, empathy *float64) {
	if score, ok := v.Blackboard.SafetyScore(); ok {
		safety = &score
	} else if v.Session != nil && v.Session.SafetyScore != nil {
		score := *v.Session.SafetyScore
		safety = &score
	}
	if score, ok := v.Blackboard.EmpathyScore(); ok {
		empathy = &score
	} else if v.Session != nil && v.Session.EmpathyScore != nil {
		score := *v.Session.EmpathyScore
		empathy = &score
	}
	return safety, empathy
}

func (v View) clone() View {
	clone := v
	clone.Sessions = slices.Clone(v.Sessions)
	if v.Session != nil {
		session := v.Session.Clone()
		clone.Session = &session
	}
	clone.Blackboard = v.Blackboard.Clone()
	if v.BlackboardAt != nil {
		at := *v.BlackboardAt
		clone.BlackboardAt = &at
	}
	// Entries and interrupts are replaced, never mutated, so a shallow
	// copy of the slices is enough.
	clone.Activity = slices.Clone(v.Activity)
	clone.Interrupts = slices.Clone(v.Interrupts)
	return clone
}
