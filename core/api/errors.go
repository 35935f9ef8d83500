package api

import (
	"fmt"
	"strings"
)

// TransportError is a failed request: the connection could not be made or
// the backend answered with a non-success status. Status codes are not
// interpreted beyond that.
type TransportError struct {
	Op         string
	StatusCode int
	Body       string
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		if body := strings.TrimSpace(e.Body); body != "" {
			return fmt.Sprintf("%s: non-OK HTTP status %d: %s", e.Op, e.StatusCode, body)
		}
		return fmt.Sprintf("%s: non-OK HTTP status %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ParseError is a response body that could not be decoded.
type ParseError struct {
	Op  string
	Err error
}

func (e *ParseError) Error() string { return fmt.Sprintf("%s: error unmarshalling JSON: %v", e.Op, e.Err) }

func (e *ParseError) Unwrap() error { return e.Err }
