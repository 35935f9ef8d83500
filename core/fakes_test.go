package controller

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/koscakluka/foundry-core/core/frames"
	"github.com/koscakluka/foundry-core/core/protocols"
	"github.com/koscakluka/foundry-core/core/stream"
	"github.com/koscakluka/foundry-core/internal/logging"
	"github.com/koscakluka/foundry-core/internal/utils"
)

var errBackendDown = errors.New("backend down")

type fakeBackend struct {
	mu          sync.Mutex
	nextID      int
	sessions    map[protocols.SessionID]protocols.Session
	blackboards map[protocols.SessionID]protocols.BlackboardSnapshot
	list        []protocols.SessionSummary

	listErr    error
	getErr     error
	approveErr error
	kickoffErr error

	// getGates blocks GetSession for an id until the channel is closed.
	getGates   map[protocols.SessionID]chan struct{}
	getStarted chan protocols.SessionID

	// approveGate blocks ApproveDraft until the channel is closed.
	approveGate    chan struct{}
	approveStarted chan struct{}

	calls    map[string]int
	approved []string
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		sessions:       map[protocols.SessionID]protocols.Session{},
		blackboards:    map[protocols.SessionID]protocols.BlackboardSnapshot{},
		getGates:       map[protocols.SessionID]chan struct{}{},
		getStarted:     make(chan protocols.SessionID, 16),
		approveStarted: make(chan struct{}, 1),
		calls:          map[string]int{},
	}
}

func (b *fakeBackend) addSession(session protocols.Session, state protocols.Blackboard) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sessions[session.ID] = session
	b.blackboards[session.ID] = protocols.BlackboardSnapshot{State: state}
}

func (b *fakeBackend) gate(id protocols.SessionID) chan struct{} {
	b.mu.Lock()
	defer b.mu.Unlock()
	gate := make(chan struct{})
	b.getGates[id] = gate
	return gate
}

func (b *fakeBackend) callCount(name string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[name]
}

func (b *fakeBackend) ListSessions(ctx context.Context) ([]protocols.SessionSummary, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls["list"]++
	if b.listErr != nil {
		return nil, b.listErr
	}
	return append([]protocols.SessionSummary(nil), b.list...), nil
}

func (b *fakeBackend) CreateSession(ctx context.Context, intent string) (protocols.Session, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls["create"]++
	b.nextID++
	now := protocols.NewTimestamp(time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC))
	session := protocols.Session{
		ID:        protocols.SessionID(strconv.Itoa(b.nextID)),
		Intent:    intent,
		Status:    protocols.StatusCreated,
		CreatedAt: now,
		UpdatedAt: now,
	}
	b.sessions[session.ID] = session
	b.blackboards[session.ID] = protocols.BlackboardSnapshot{State: protocols.Blackboard{}}
	return session, nil
}

func (b *fakeBackend) GetSession(ctx context.Context, id protocols.SessionID) (protocols.Session, error) {
	b.mu.Lock()
	b.calls["get"]++
	gate := b.getGates[id]
	b.mu.Unlock()

	select {
	case b.getStarted <- id:
	default:
	}
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return protocols.Session{}, ctx.Err()
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.getErr != nil {
		return protocols.Session{}, b.getErr
	}
	session, ok := b.sessions[id]
	if !ok {
		return protocols.Session{}, fmt.Errorf("session %s not found", id)
	}
	return session.Clone(), nil
}

func (b *fakeBackend) GetBlackboard(ctx context.Context, id protocols.SessionID) (protocols.BlackboardSnapshot, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls["blackboard"]++
	snapshot := b.blackboards[id]
	snapshot.State = snapshot.State.Clone()
	return snapshot, nil
}

func (b *fakeBackend) ApproveDraft(ctx context.Context, id protocols.SessionID, editedDraft string) (protocols.Session, error) {
	b.mu.Lock()
	gate := b.approveGate
	b.mu.Unlock()
	if gate != nil {
		select {
		case b.approveStarted <- struct{}{}:
		default:
		}
		select {
		case <-gate:
		case <-ctx.Done():
			return protocols.Session{}, ctx.Err()
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls["approve"]++
	if b.approveErr != nil {
		return protocols.Session{}, b.approveErr
	}
	b.approved = append(b.approved, editedDraft)
	session := b.sessions[id]
	session.HumanEditedDraft = utils.Ptr(editedDraft)
	session.Status = protocols.StatusRunning
	b.sessions[id] = session
	return session.Clone(), nil
}

func (b *fakeBackend) Kickoff(ctx context.Context, id protocols.SessionID) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls["kickoff"]++
	return b.kickoffErr
}

type fakeDialer struct {
	mu      sync.Mutex
	openErr error
	streams []*fakeStream
	opened  chan *fakeStream
}

func newFakeDialer() *fakeDialer {
	return &fakeDialer{opened: make(chan *fakeStream, 16)}
}

func (d *fakeDialer) Open(ctx context.Context, id protocols.SessionID, mode stream.Mode) (stream.Stream, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.openErr != nil {
		return nil, d.openErr
	}
	s := &fakeStream{
		session: id,
		mode:    mode,
		frames:  make(chan frames.Frame),
		closed:  make(chan struct{}),
	}
	d.streams = append(d.streams, s)
	d.opened <- s
	return s, nil
}

func (d *fakeDialer) openCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.streams)
}

func (d *fakeDialer) waitOpened(t *testing.T) *fakeStream {
	t.Helper()
	select {
	case s := <-d.opened:
		return s
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for a stream to open")
		return nil
	}
}

type fakeStream struct {
	session protocols.SessionID
	mode    stream.Mode
	frames  chan frames.Frame

	closeOnce sync.Once
	closed    chan struct{}
}

func (s *fakeStream) Frames(ctx context.Context) func(func(frames.Frame, error) bool) {
	return func(yield func(frames.Frame, error) bool) {
		for {
			select {
			case <-ctx.Done():
				return
			case <-s.closed:
				return
			case frame, ok := <-s.frames:
				if !ok {
					return
				}
				if !yield(frame, nil) {
					return
				}
			}
		}
	}
}

func (s *fakeStream) Close() error {
	s.closeOnce.Do(func() { close(s.closed) })
	return nil
}

// send hands a frame to the reader. It reports false when the reader is
// gone.
func (s *fakeStream) send(t *testing.T, frame frames.Frame) bool {
	t.Helper()
	select {
	case s.frames <- frame:
		return true
	case <-s.closed:
		return false
	case <-time.After(time.Second):
		return false
	}
}

func (s *fakeStream) isClosed() bool {
	select {
	case <-s.closed:
		return true
	default:
		return false
	}
}

// end closes the stream from the backend side.
func (s *fakeStream) end() { close(s.frames) }

func waitForView(t *testing.T, c *Controller, description string, condition func(View) bool) View {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		view := c.View()
		if condition(view) {
			return view
		}
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s; view state %s, activity %d, last error %q",
				description, view.State, len(view.Activity), view.LastError)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

type logBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *logBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *logBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// captureLogs routes the package loggers into a buffer for the rest of the
// test.
func captureLogs(t *testing.T) *logBuffer {
	t.Helper()
	logs := &logBuffer{}
	logging.Install(slog.NewTextHandler(logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	t.Cleanup(func() { logging.Install(slog.DiscardHandler) })
	return logs
}
