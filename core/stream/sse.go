package stream

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"

	"github.com/koscakluka/foundry-core/core/api"
	"github.com/koscakluka/foundry-core/core/frames"
	"github.com/koscakluka/foundry-core/core/protocols"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	dataField = "data"

	maxEventSize = 8 << 20
)

// SSEDialer opens run channels as server-sent event streams.
type SSEDialer struct {
	client *api.Client
}

func NewSSEDialer(client *api.Client) *SSEDialer {
	return &SSEDialer{client: client}
}

func (d *SSEDialer) Open(ctx context.Context, id protocols.SessionID, mode Mode) (Stream, error) {
	if err := checkOpen(id, mode); err != nil {
		return nil, err
	}

	ctx, span := tracer.Start(ctx, "open event stream")
	defer span.End()
	span.SetAttributes(attribute.String("session.id", id.String()), attribute.String("stream.mode", string(mode)))

	target := d.client.URL("protocols", id.String(), "stream", string(mode))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		err = fmt.Errorf("error creating HTTP request: %w", err)
		span.RecordError(err)
		return nil, err
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := d.client.StreamHTTPClient().Do(req)
	if err != nil {
		err := &api.TransportError{Op: "open stream", Err: err}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(attribute.Int("response.status_code", resp.StatusCode))
	if resp.StatusCode != http.StatusOK {
		errorBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		resp.Body.Close()
		err := &api.TransportError{
			Op:         "open stream",
			StatusCode: resp.StatusCode,
			Body:       string(errorBody),
			Err:        fmt.Errorf("non-OK HTTP status: %s", resp.Status),
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	return &sseStream{body: resp.Body}, nil
}

type sseStream struct {
	body   io.ReadCloser
	closed atomic.Bool
}

func (s *sseStream) Frames(ctx context.Context) func(func(frames.Frame, error) bool) {
	return func(yield func(frames.Frame, error) bool) {
		defer s.Close()

		reader := bufio.NewReaderSize(s.body, 64<<10)

		var (
			data      []string
			size      int
			oversized bool
		)
		for {
			line, err := readLine(reader)
			if errors.Is(err, errLineTooLong) {
				oversized = true
				data, size = data[:0], 0
				continue
			}
			if err != nil {
				if err != io.EOF && ctx.Err() == nil && !s.closed.Load() {
					yield(nil, &api.TransportError{Op: "read stream", Err: err})
				}
				return
			}

			if line == "" {
				if oversized {
					oversized = false
					dropFrame(ctx, "sse", errEventTooLarge)
					continue
				}
				if len(data) == 0 {
					continue
				}
				payload := strings.Join(data, "\n")
				data, size = data[:0], 0

				frame, ok := decodeOrDrop(ctx, "sse", []byte(payload))
				if !ok {
					continue
				}
				if !yield(frame, nil) {
					return
				}
				continue
			}

			if strings.HasPrefix(line, ":") {
				// keep-alive comment
				continue
			}

			field, value, _ := strings.Cut(line, ":")
			if field != dataField || oversized {
				// event, id and retry carry nothing this channel uses
				continue
			}
			value = strings.TrimPrefix(value, " ")
			size += len(value) + 1
			if size > maxEventSize {
				oversized = true
				data, size = data[:0], 0
				continue
			}
			data = append(data, value)
		}
	}
}

var (
	errLineTooLong   = errors.New("line exceeds maximum event size")
	errEventTooLarge = fmt.Errorf("event exceeds %d bytes", maxEventSize)
)

// readLine reads one line without its terminator. A line longer than
// maxEventSize is consumed whole and reported as errLineTooLong, so reading
// can continue with the next line.
func readLine(reader *bufio.Reader) (string, error) {
	var (
		line    []byte
		tooLong bool
	)
	for {
		chunk, err := reader.ReadSlice('\n')
		if !tooLong {
			if len(line)+len(chunk) > maxEventSize+2 {
				tooLong, line = true, nil
			} else {
				line = append(line, chunk...)
			}
		}
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		if tooLong {
			if err != nil && err != io.EOF {
				return "", err
			}
			return "", errLineTooLong
		}
		if err == io.EOF && len(line) > 0 {
			err = nil
		}
		if err != nil {
			return "", err
		}
		line = bytes.TrimSuffix(line, []byte("\n"))
		line = bytes.TrimSuffix(line, []byte("\r"))
		return string(line), nil
	}
}

func (s *sseStream) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	return s.body.Close()
}
