package controller

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/koscakluka/foundry-core/core/protocols"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Start refreshes the directory once and keeps polling it until ctx is
// done or the controller is closed. Refresh failures keep the previous
// list.
func (c *Controller) Start(ctx context.Context) {
	c.startOnce.Do(func() {
		if c.isClosed() {
			return
		}
		c.started.Store(true)
		go func() {
			defer close(c.pollerDone)
			c.pollDirectory(ctx)
		}()
	})
}

func (c *Controller) pollDirectory(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-c.closeCh:
			cancel()
		case <-ctx.Done():
		}
	}()

	_ = c.Refresh(ctx)

	ticker := time.NewTicker(c.refreshInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = c.Refresh(ctx)
		}
	}
}

// Refresh fetches the session list and merges it with sessions created
// since the last refresh. A failure is logged and leaves the list as is.
func (c *Controller) Refresh(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "refresh session directory")
	defer span.End()

	sessions, err := c.backend.ListSessions(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to list sessions")
		if ctx.Err() == nil {
			logger.WarnContext(ctx, "session directory refresh failed", "error", err)
		}
		return fmt.Errorf("refresh session directory: %w", err)
	}
	span.SetAttributes(attribute.Int("sessions", len(sessions)))

	c.mu.Lock()
	defer c.mu.Unlock()
	c.view.Sessions = c.mergeDirectoryLocked(sessions)
	c.emitLocked()
	return nil
}

// mergeDirectoryLocked puts pending sessions the backend does not list yet
// ahead of the fetched ones and collapses duplicate ids to their first
// occurrence.
func (c *Controller) mergeDirectoryLocked(fetched []protocols.SessionSummary) []protocols.SessionSummary {
	listed := make(map[protocols.SessionID]struct{}, len(fetched))
	for _, session := range fetched {
		listed[session.ID] = struct{}{}
	}
	c.pending = slices.DeleteFunc(c.pending, func(session protocols.SessionSummary) bool {
		_, ok := listed[session.ID]
		return ok
	})

	merged := make([]protocols.SessionSummary, 0, len(c.pending)+len(fetched))
	seen := make(map[protocols.SessionID]struct{}, cap(merged))
	for _, session := range slices.Concat(c.pending, fetched) {
		if _, ok := seen[session.ID]; ok {
			continue
		}
		seen[session.ID] = struct{}{}
		merged = append(merged, session)
	}
	return merged
}

// upsertSummaryLocked updates a directory entry in place, or inserts it at
// the head when the directory does not know it yet.
func (c *Controller) upsertSummaryLocked(summary protocols.SessionSummary) {
	if i := slices.IndexFunc(c.view.Sessions, func(s protocols.SessionSummary) bool { return s.ID == summary.ID }); i >= 0 {
		c.view.Sessions = slices.Clone(c.view.Sessions)
		c.view.Sessions[i] = summary
		return
	}
	c.view.Sessions = slices.Insert(slices.Clone(c.view.Sessions), 0, summary)
}

// CreateSession creates a session for the operator's intent, lists it at
// the head of the directory and selects it.
func (c *Controller) CreateSession(ctx context.Context, intent string) (protocols.Session, error) {
	const op = "create session"
	intent = strings.TrimSpace(intent)
	if intent == "" {
		return protocols.Session{}, precondition(op, ErrEmptyIntent)
	}

	ctx, span := tracer.Start(ctx, op)
	defer span.End()

	session, err := c.backend.CreateSession(ctx, intent)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to create session")
		c.mu.Lock()
		c.surfaceLocked(err)
		c.emitLocked()
		c.mu.Unlock()
		return protocols.Session{}, fmt.Errorf("%s: %w", op, err)
	}
	span.SetAttributes(attribute.String("session_id", session.ID.String()))

	c.mu.Lock()
	summary := session.Summary()
	sameID := func(s protocols.SessionSummary) bool { return s.ID == summary.ID }
	c.pending = slices.Insert(slices.DeleteFunc(c.pending, sameID), 0, summary)
	c.view.Sessions = slices.Insert(slices.DeleteFunc(slices.Clone(c.view.Sessions), sameID), 0, summary)
	c.emitLocked()
	c.mu.Unlock()

	if err := c.Select(ctx, session.ID); err != nil {
		return session, err
	}
	return session, nil
}
