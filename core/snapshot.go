package controller

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/koscakluka/foundry-core/core/protocols"
	"github.com/koscakluka/foundry-core/internal/utils"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Select makes id the selected session and loads its snapshot. The stream
// of the previously selected session is closed locally; its backend run
// continues. Selecting the already selected session reloads it.
//
// When selections overlap, only the latest one's snapshot is applied.
func (c *Controller) Select(ctx context.Context, id protocols.SessionID) error {
	if id.IsZero() {
		return precondition("select session", ErrNoSessionSelected)
	}

	c.mu.Lock()
	if c.view.SelectedID == id {
		c.mu.Unlock()
		return c.Reload(ctx)
	}
	previous := c.detachConnectionLocked()
	c.resetSelectionLocked(id)
	token := c.newLoadTokenLocked()
	c.emitLocked()
	c.mu.Unlock()

	previous.close()
	return c.load(ctx, id, token)
}

// Reload fetches the selected session again. On failure the displayed
// state is kept.
func (c *Controller) Reload(ctx context.Context) error {
	c.mu.Lock()
	id := c.view.SelectedID
	if id.IsZero() {
		c.mu.Unlock()
		return precondition("reload session", ErrNoSessionSelected)
	}
	token := c.newLoadTokenLocked()
	c.view.Loading = true
	c.emitLocked()
	c.mu.Unlock()

	return c.load(ctx, id, token)
}

func (c *Controller) newLoadTokenLocked() string {
	c.loadToken = uuid.NewString()
	return c.loadToken
}

// resetSelectionLocked clears everything that belongs to the previously
// selected session and derives the initial workflow state from the
// directory.
func (c *Controller) resetSelectionLocked(id protocols.SessionID) {
	c.selection++
	c.stateFromStream = false
	c.draftFromStream = false
	c.approving = false

	c.view.SelectedID = id
	c.view.Loading = true
	c.view.Session = nil
	c.view.Blackboard = nil
	c.view.BlackboardAt = nil
	c.view.Activity = nil
	c.view.Draft = ""
	c.view.ServerDraft = ""
	c.view.HasLocalEdits = false
	c.view.Interrupts = nil
	c.view.LastError = ""
	c.view.State = StateIdle
	if summary, ok := c.view.Selected(); ok {
		c.view.State = initialState(summary.Status)
	}
}

func (c *Controller) load(ctx context.Context, id protocols.SessionID, token string) error {
	ctx, span := tracer.Start(ctx, "load session snapshot", trace.WithAttributes(
		attribute.String("session_id", id.String()),
	))
	defer span.End()

	session, err := c.backend.GetSession(ctx, id)
	var snapshot protocols.BlackboardSnapshot
	if err == nil {
		snapshot, err = c.backend.GetBlackboard(ctx, id)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if token != c.loadToken {
		discardedSnapshots.Add(ctx, 1)
		logger.DebugContext(ctx, "discarding stale session snapshot", "session_id", id.String())
		span.SetAttributes(attribute.Bool("discarded", true))
		return nil
	}

	c.view.Loading = false
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to load session snapshot")
		c.surfaceLocked(err)
		c.emitLocked()
		return fmt.Errorf("load session %s: %w", id, err)
	}

	c.applySnapshotLocked(ctx, session, snapshot)
	c.emitLocked()
	return nil
}

// applySnapshotLocked installs a loaded snapshot. Stream updates received
// since the selection are newer than any snapshot and are kept.
func (c *Controller) applySnapshotLocked(ctx context.Context, session protocols.Session, snapshot protocols.BlackboardSnapshot) {
	if err := session.ValidateDrafts(); err != nil {
		logger.WarnContext(ctx, "session draft history is inconsistent", "session_id", session.ID.String(), "error", err)
	}

	c.view.Session = utils.Ptr(session.Clone())
	c.upsertSummaryLocked(session.Summary())

	if !c.stateFromStream {
		state := snapshot.State.Clone()
		if state == nil {
			state = protocols.Blackboard{}
		}
		c.view.Blackboard = state
		c.view.BlackboardAt = snapshot.CreatedAt
	}
	if !c.draftFromStream {
		c.view.ServerDraft = utils.Deref(session.LatestDraft, "")
		if !c.view.HasLocalEdits {
			c.view.Draft = c.view.ServerDraft
		}
	}
	if c.conn == nil && !c.approving {
		c.view.State = initialState(session.Status)
	}
	c.view.LastError = ""
}
