package controller

import (
	"maps"
	"slices"
	"time"

	"github.com/koscakluka/foundry-core/core/frames"
	"github.com/koscakluka/foundry-core/core/protocols"
)

type reconcileResult struct {
	stateReplaced bool
	draftReplaced bool
	halted        bool
}

// reconcile applies one frame to the view. It performs no I/O.
func reconcile(view *View, frame frames.Frame, receivedAt time.Time) reconcileResult {
	switch f := frame.(type) {
	case frames.AgentEvent:
		view.Activity = append(view.Activity, protocols.ActivityEntry{
			ReceivedAt: receivedAt,
			Agent:      f.Agent,
			Message:    f.Message,
			Details:    maps.Clone(f.Details),
		})
		return reconcileResult{}

	case frames.StateUpdate:
		result := reconcileResult{stateReplaced: true}
		document := f.Document.Clone()
		if document == nil {
			document = protocols.Blackboard{}
		}
		view.Blackboard = document
		at := protocols.NewTimestamp(receivedAt)
		view.BlackboardAt = &at

		if draft, ok := document.CurrentDraft(); ok {
			result.draftReplaced = true
			view.ServerDraft = draft
			if !view.HasLocalEdits {
				view.Draft = draft
			}
		}
		return result

	case frames.Halt:
		if view.State == StateHaltedForHuman {
			return reconcileResult{}
		}
		view.State = StateHaltedForHuman
		view.Interrupts = slices.Clone(f.Interrupts)
		return reconcileResult{halted: true}
	}
	return reconcileResult{}
}
