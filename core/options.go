package controller

import (
	"context"
	"time"

	"github.com/koscakluka/foundry-core/core/protocols"
)

// DefaultRefreshInterval is how often the session directory is polled.
const DefaultRefreshInterval = 3 * time.Second

// MinRefreshInterval guards the poller against hammering the backend.
const MinRefreshInterval = 500 * time.Millisecond

type ControllerOption func(*Controller)

// Backend is the request/response side of the orchestration backend.
// *api.Client implements it.
type Backend interface {
	ListSessions(ctx context.Context) ([]protocols.SessionSummary, error)
	CreateSession(ctx context.Context, intent string) (protocols.Session, error)
	GetSession(ctx context.Context, id protocols.SessionID) (protocols.Session, error)
	GetBlackboard(ctx context.Context, id protocols.SessionID) (protocols.BlackboardSnapshot, error)
	ApproveDraft(ctx context.Context, id protocols.SessionID, editedDraft string) (protocols.Session, error)
	Kickoff(ctx context.Context, id protocols.SessionID) error
}

// WithRefreshInterval sets the directory polling interval. Values below
// MinRefreshInterval are raised to it.
func WithRefreshInterval(interval time.Duration) ControllerOption {
	return func(c *Controller) {
		c.refreshInterval = max(interval, MinRefreshInterval)
	}
}

// WithObserver registers an observer for the controller's lifetime.
func WithObserver(observer Observer) ControllerOption {
	return func(c *Controller) {
		c.emitter.subscribe(observer)
	}
}

// WithClock replaces the clock used to stamp activity entries.
func WithClock(now func() time.Time) ControllerOption {
	return func(c *Controller) {
		if now != nil {
			c.now = now
		}
	}
}

// WithBaseContext sets the context stream connections are derived from.
func WithBaseContext(ctx context.Context) ControllerOption {
	return func(c *Controller) {
		if ctx != nil {
			c.baseCtx = ctx
		}
	}
}
