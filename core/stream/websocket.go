package stream

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/gorilla/websocket"
	"github.com/koscakluka/foundry-core/core/api"
	"github.com/koscakluka/foundry-core/core/frames"
	"github.com/koscakluka/foundry-core/core/protocols"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// WebsocketDialer opens run channels over a websocket carrying the same
// JSON envelopes as the event stream, one per text message.
type WebsocketDialer struct {
	client *api.Client
	dialer *websocket.Dialer
}

func NewWebsocketDialer(client *api.Client) *WebsocketDialer {
	return &WebsocketDialer{client: client, dialer: websocket.DefaultDialer}
}

func (d *WebsocketDialer) Open(ctx context.Context, id protocols.SessionID, mode Mode) (Stream, error) {
	if err := checkOpen(id, mode); err != nil {
		return nil, err
	}

	ctx, span := tracer.Start(ctx, "open websocket stream")
	defer span.End()
	span.SetAttributes(attribute.String("session.id", id.String()), attribute.String("stream.mode", string(mode)))

	target := d.client.URL("protocols", id.String(), "stream", string(mode))
	switch target.Scheme {
	case "https":
		target.Scheme = "wss"
	default:
		target.Scheme = "ws"
	}

	conn, resp, err := d.dialer.DialContext(ctx, target.String(), nil)
	if err != nil {
		transportErr := &api.TransportError{Op: "open stream", Err: fmt.Errorf("failed to open websocket: %w", err)}
		if resp != nil {
			transportErr.StatusCode = resp.StatusCode
		}
		span.RecordError(transportErr)
		span.SetStatus(codes.Error, transportErr.Error())
		return nil, transportErr
	}

	return &websocketStream{conn: conn}, nil
}

type websocketStream struct {
	conn   *websocket.Conn
	closed atomic.Bool
}

func (s *websocketStream) Frames(ctx context.Context) func(func(frames.Frame, error) bool) {
	return func(yield func(frames.Frame, error) bool) {
		defer s.Close()

		done := make(chan struct{})
		defer close(done)
		go func() {
			select {
			case <-ctx.Done():
				_ = s.Close()
			case <-done:
			}
		}()

		for {
			msgType, msg, err := s.conn.ReadMessage()
			if err != nil {
				if s.closed.Load() || ctx.Err() != nil ||
					websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					return
				}
				var closeErr *websocket.CloseError
				if errors.As(err, &closeErr) {
					logger.WarnContext(ctx, "websocket stream closed abnormally", "code", closeErr.Code, "text", closeErr.Text)
				}
				yield(nil, &api.TransportError{Op: "read stream", Err: err})
				return
			}

			if msgType != websocket.TextMessage {
				continue
			}

			frame, ok := decodeOrDrop(ctx, "websocket", msg)
			if !ok {
				continue
			}
			if !yield(frame, nil) {
				return
			}
		}
	}
}

func (s *websocketStream) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	return s.conn.Close()
}
