package stream

import (
	"context"
	"fmt"

	"github.com/koscakluka/foundry-core/core/frames"
	"github.com/koscakluka/foundry-core/core/protocols"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Mode selects the backend endpoint a run channel is opened against.
type Mode string

const (
	ModeStart  Mode = "start"
	ModeResume Mode = "resume"
)

func (m Mode) Valid() bool { return m == ModeStart || m == ModeResume }

// Stream is one open run channel.
type Stream interface {
	// Frames yields frames in the order the backend emits them until the
	// backend ends the channel, ctx is done or Close is called. Malformed
	// frames are dropped. A non-nil error is terminal.
	//
	// Closure is not a completion signal: a transient network drop ends
	// the sequence the same way a finished run does.
	Frames(ctx context.Context) func(func(frames.Frame, error) bool)
	Close() error
}

// Dialer opens run channels.
type Dialer interface {
	Open(ctx context.Context, id protocols.SessionID, mode Mode) (Stream, error)
}

func checkOpen(id protocols.SessionID, mode Mode) error {
	if id.IsZero() {
		return fmt.Errorf("open stream: session id is required")
	}
	if !mode.Valid() {
		return fmt.Errorf("open stream: unknown mode %q", mode)
	}
	return nil
}

// decodeOrDrop decodes a frame payload, reporting false for frames that
// must be skipped.
func decodeOrDrop(ctx context.Context, transport string, data []byte) (frames.Frame, bool) {
	frame, err := frames.Decode(data)
	if err != nil {
		dropFrame(ctx, transport, err)
		return nil, false
	}
	return frame, true
}

func dropFrame(ctx context.Context, transport string, reason error) {
	droppedFrames.Add(ctx, 1, metric.WithAttributes(attribute.String("transport", transport)))
	logger.DebugContext(ctx, "dropping malformed frame", "transport", transport, "error", reason)
}
