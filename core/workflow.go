package controller

import (
	"context"
	"fmt"

	"github.com/koscakluka/foundry-core/core/protocols"
	"github.com/koscakluka/foundry-core/core/stream"
	"github.com/koscakluka/foundry-core/internal/utils"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// StartAgents starts a new agent run for the selected session. The
// activity log is cleared and a stream is opened in start mode; any
// previous stream is closed first. A stream that already ended does not
// count as streaming.
//
// Failing to open the stream is reported through the view and returns
// the workflow to Idle.
func (c *Controller) StartAgents(ctx context.Context) error {
	const op = "start agents"

	c.mu.Lock()
	id := c.view.SelectedID
	switch {
	case id.IsZero():
		c.mu.Unlock()
		return precondition(op, ErrNoSessionSelected)
	case c.approving:
		c.mu.Unlock()
		return precondition(op, ErrApprovalInFlight)
	case c.view.State == StateStreaming && !c.view.StreamEnded:
		c.mu.Unlock()
		return precondition(op, ErrAlreadyStreaming)
	}

	_, span := tracer.Start(ctx, op, trace.WithAttributes(attribute.String("session_id", id.String())))
	defer span.End()

	c.beginSegmentLocked()
	previous := c.openConnectionLocked(id, stream.ModeStart)
	c.emitLocked()
	c.mu.Unlock()

	previous.close()
	return nil
}

// ApproveAndResume submits the operator's edited draft and, once the
// backend accepts it, resumes the run on a fresh stream. On failure the
// workflow stays halted with the edited text kept for a retry.
func (c *Controller) ApproveAndResume(ctx context.Context, editedDraft string) error {
	const op = "approve and resume"

	c.mu.Lock()
	id := c.view.SelectedID
	switch {
	case id.IsZero():
		c.mu.Unlock()
		return precondition(op, ErrNoSessionSelected)
	case c.approving:
		c.mu.Unlock()
		return precondition(op, ErrApprovalInFlight)
	case c.view.State != StateHaltedForHuman:
		c.mu.Unlock()
		return precondition(op, ErrNotHalted)
	}
	selection := c.selection
	c.approving = true
	c.view.Draft = editedDraft
	c.view.HasLocalEdits = true
	c.emitLocked()
	c.mu.Unlock()

	ctx, span := tracer.Start(ctx, op, trace.WithAttributes(attribute.String("session_id", id.String())))
	defer span.End()

	session, err := c.backend.ApproveDraft(ctx, id, editedDraft)

	c.mu.Lock()
	if c.selection != selection {
		c.mu.Unlock()
		logger.InfoContext(ctx, "approval finished after the session was deselected", "session_id", id.String())
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		return nil
	}
	c.approving = false
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to approve draft")
		c.surfaceLocked(err)
		c.emitLocked()
		c.mu.Unlock()
		return fmt.Errorf("%s: %w", op, err)
	}

	c.view.Session = utils.Ptr(session.Clone())
	c.upsertSummaryLocked(session.Summary())
	// The approved text is the newest draft until the resumed run sends
	// one; snapshots still carry the pre-approval latest_draft.
	c.view.ServerDraft = editedDraft
	c.view.HasLocalEdits = false
	c.draftFromStream = true
	c.beginSegmentLocked()
	previous := c.openConnectionLocked(id, stream.ModeResume)
	c.emitLocked()
	c.mu.Unlock()

	previous.close()
	return nil
}

// beginSegmentLocked moves the workflow to Streaming for a new run segment.
func (c *Controller) beginSegmentLocked() {
	c.view.State = StateStreaming
	c.view.Activity = nil
	c.view.Interrupts = nil
	c.view.LastError = ""
}

// markHaltedLocked mirrors a halt into the session records the view holds.
func (c *Controller) markHaltedLocked() {
	if c.view.Session != nil {
		c.view.Session.Status = protocols.StatusHaltedForHuman
	}
	if summary, ok := c.view.Selected(); ok && summary.Status != protocols.StatusHaltedForHuman {
		summary.Status = protocols.StatusHaltedForHuman
		c.upsertSummaryLocked(summary)
	}
}

// StopStreaming closes the client side of the current run. The backend
// run is not cancelled.
func (c *Controller) StopStreaming() error {
	c.mu.Lock()
	if c.view.State != StateStreaming {
		c.mu.Unlock()
		return precondition("stop streaming", ErrNotStreaming)
	}
	previous := c.detachConnectionLocked()
	c.view.State = StateIdle
	c.emitLocked()
	c.mu.Unlock()

	previous.close()
	return nil
}

// EditDraft replaces the visible draft with the operator's text. Server
// drafts keep arriving but stay hidden until the edit is discarded or
// approved. The draft is frozen while an approval is in flight.
func (c *Controller) EditDraft(text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.view.SelectedID.IsZero() {
		return precondition("edit draft", ErrNoSessionSelected)
	}
	if c.approving {
		return precondition("edit draft", ErrApprovalInFlight)
	}
	c.view.Draft = text
	c.view.HasLocalEdits = true
	c.emitLocked()
	return nil
}

// DiscardEdits shows the latest server draft again.
func (c *Controller) DiscardEdits() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.view.SelectedID.IsZero() {
		return precondition("discard edits", ErrNoSessionSelected)
	}
	if c.approving {
		return precondition("discard edits", ErrApprovalInFlight)
	}
	c.view.Draft = c.view.ServerDraft
	c.view.HasLocalEdits = false
	c.emitLocked()
	return nil
}

// Kickoff fires the backend's kickoff trigger for the selected session.
// It does not touch the workflow state.
func (c *Controller) Kickoff(ctx context.Context) error {
	const op = "kickoff"

	c.mu.Lock()
	id := c.view.SelectedID
	c.mu.Unlock()
	if id.IsZero() {
		return precondition(op, ErrNoSessionSelected)
	}

	ctx, span := tracer.Start(ctx, op, trace.WithAttributes(attribute.String("session_id", id.String())))
	defer span.End()

	if err := c.backend.Kickoff(ctx, id); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to kick off session")
		c.mu.Lock()
		if c.view.SelectedID == id {
			c.surfaceLocked(err)
			c.emitLocked()
		}
		c.mu.Unlock()
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
