package controller

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/koscakluka/foundry-core/core/protocols"
	"github.com/koscakluka/foundry-core/core/stream"
)

// Controller owns the live view of one operator: the session directory,
// the selected session, its single stream connection and the approval
// workflow. All mutations funnel through its methods.
type Controller struct {
	backend Backend
	dialer  stream.Dialer

	refreshInterval time.Duration
	now             func() time.Time

	mu   sync.Mutex
	view View
	// pending holds optimistically inserted sessions, newest first, until
	// a refresh lists them.
	pending []protocols.SessionSummary
	// loadToken identifies the snapshot load whose result may be applied.
	loadToken string
	// selection increases whenever a different session is selected.
	selection uint64
	// stateFromStream and draftFromStream record that the current
	// selection has received a newer blackboard or draft than any
	// snapshot can carry.
	stateFromStream bool
	draftFromStream bool
	approving       bool
	conn            *connection

	emitter *viewEmitter

	baseCtx    context.Context
	cancelBase context.CancelFunc

	startOnce  sync.Once
	closeOnce  sync.Once
	started    atomic.Bool
	closeCh    chan struct{}
	pollerDone chan struct{}
}

func New(backend Backend, dialer stream.Dialer, opts ...ControllerOption) *Controller {
	c := &Controller{
		backend:         backend,
		dialer:          dialer,
		refreshInterval: DefaultRefreshInterval,
		now:             time.Now,
		emitter:         newViewEmitter(),
		baseCtx:         context.Background(),
		closeCh:         make(chan struct{}),
		pollerDone:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.baseCtx, c.cancelBase = context.WithCancel(c.baseCtx)
	return c
}

// View returns a deep copy of the live view.
func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.view.clone()
}

// Subscribe registers an observer. Views are delivered in change order
// from a single goroutine.
func (c *Controller) Subscribe(observer Observer) (unsubscribe func()) {
	return c.emitter.subscribe(observer)
}

// Close stops polling, tears down the stream connection and flushes
// pending observer deliveries. The backend run is left untouched.
func (c *Controller) Close() error {
	c.closeOnce.Do(func() {
		close(c.closeCh)
		if c.started.Load() {
			<-c.pollerDone
		}

		c.mu.Lock()
		previous := c.detachConnectionLocked()
		c.mu.Unlock()
		previous.close()

		c.cancelBase()
		c.emitter.close()
	})
	return nil
}

func (c *Controller) isClosed() bool {
	select {
	case <-c.closeCh:
		return true
	default:
		return false
	}
}

// emitLocked publishes the current view. Callers hold c.mu, which keeps
// the publish order equal to the mutation order.
func (c *Controller) emitLocked() {
	c.view.Revision++
	c.emitter.publish(c.view.clone())
}

// surfaceLocked records an operator-visible failure.
func (c *Controller) surfaceLocked(err error) {
	if err != nil {
		c.view.LastError = err.Error()
	}
}
