package controller

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/koscakluka/foundry-core/core/frames"
	"github.com/koscakluka/foundry-core/core/protocols"
	"github.com/koscakluka/foundry-core/core/stream"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// connection is the single stream slot of the controller. Frames from a
// connection are applied only while it occupies the slot.
type connection struct {
	id      string
	session protocols.SessionID
	mode    stream.Mode

	cancel context.CancelFunc
	done   chan struct{}
}

// close cancels the connection and waits until its reader has stopped
// touching the view.
func (conn *connection) close() {
	if conn == nil {
		return
	}
	conn.cancel()
	<-conn.done
}

// openConnectionLocked puts a new connection in the slot and returns the
// previous occupant, which the caller must close after releasing c.mu.
func (c *Controller) openConnectionLocked(id protocols.SessionID, mode stream.Mode) (previous *connection) {
	previous = c.conn

	ctx, cancel := context.WithCancel(c.baseCtx)
	conn := &connection{
		id:      uuid.NewString(),
		session: id,
		mode:    mode,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	c.conn = conn
	c.view.StreamID = conn.id
	c.view.StreamMode = mode
	c.view.StreamEnded = false
	c.view.LastFrameAt = time.Time{}

	go c.runConnection(ctx, conn, previous)
	return previous
}

// detachConnectionLocked empties the slot and returns its occupant.
func (c *Controller) detachConnectionLocked() (previous *connection) {
	previous = c.conn
	c.conn = nil
	c.view.StreamID = ""
	c.view.StreamMode = ""
	c.view.StreamEnded = false
	c.view.LastFrameAt = time.Time{}
	return previous
}

func (c *Controller) runConnection(ctx context.Context, conn *connection, previous *connection) {
	defer close(conn.done)
	defer conn.cancel()

	// The previous reader must be gone before this one dials, so frames of
	// two runs never interleave.
	previous.close()
	if ctx.Err() != nil {
		return
	}

	ctx, span := tracer.Start(ctx, "run stream connection", trace.WithAttributes(
		attribute.String("session_id", conn.session.String()),
		attribute.String("stream.mode", string(conn.mode)),
		attribute.String("stream.id", conn.id),
	))
	defer span.End()

	s, err := c.dialer.Open(ctx, conn.session, conn.mode)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to open stream")
		c.connectionFailed(ctx, conn, err)
		return
	}
	defer s.Close()

	for frame, err := range s.Frames(ctx) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "stream read failed")
			c.connectionEnded(ctx, conn, err)
			return
		}
		if !c.applyFrame(ctx, conn, frame) {
			return
		}
	}
	if ctx.Err() != nil {
		return
	}
	c.connectionEnded(ctx, conn, nil)
}

// applyFrame reports false once the connection no longer owns the slot.
func (c *Controller) applyFrame(ctx context.Context, conn *connection, frame frames.Frame) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != conn {
		return false
	}

	now := c.now()
	previousIteration, hadIteration := c.view.Blackboard.Iteration()
	result := reconcile(&c.view, frame, now)
	c.view.LastFrameAt = now
	if result.stateReplaced {
		c.stateFromStream = true
		if iteration, ok := c.view.Blackboard.Iteration(); ok && hadIteration && iteration < previousIteration {
			logger.WarnContext(ctx, "blackboard iteration went backwards",
				"session_id", conn.session.String(), "from", previousIteration, "to", iteration)
		}
	}
	if result.draftReplaced {
		c.draftFromStream = true
	}
	if result.halted {
		c.markHaltedLocked()
		logger.InfoContext(ctx, "run halted for human review", "session_id", conn.session.String())
	}

	appliedFrames.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", string(frame.Kind()))))
	c.emitLocked()
	return true
}

// connectionFailed handles a stream that could not be opened. The state
// returns to what it was before the open was requested.
func (c *Controller) connectionFailed(ctx context.Context, conn *connection, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != conn {
		return
	}

	logger.WarnContext(ctx, "failed to open stream",
		"session_id", conn.session.String(), "mode", string(conn.mode), "error", err)
	c.detachConnectionLocked()
	if conn.mode == stream.ModeResume {
		c.view.State = StateHaltedForHuman
	} else {
		c.view.State = StateIdle
	}
	c.surfaceLocked(err)
	c.emitLocked()
}

// connectionEnded marks the stream as finished. The workflow state is kept
// since closure alone does not tell a finished run from a dropped one.
func (c *Controller) connectionEnded(ctx context.Context, conn *connection, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != conn {
		return
	}

	if err != nil {
		logger.WarnContext(ctx, "stream ended with error", "session_id", conn.session.String(), "error", err)
		c.surfaceLocked(err)
	} else {
		logger.DebugContext(ctx, "stream ended", "session_id", conn.session.String())
	}
	c.view.StreamEnded = true
	c.emitLocked()
}
