package protocols

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// SessionID is an opaque session identity. The backend currently issues
// integers; both JSON numbers and strings decode into it.
type SessionID string

func (id SessionID) String() string { return string(id) }

// IsZero reports whether no session is identified.
func (id SessionID) IsZero() bool { return id == "" }

func (id SessionID) MarshalJSON() ([]byte, error) {
	if n, err := strconv.ParseInt(string(id), 10, 64); err == nil {
		return []byte(strconv.FormatInt(n, 10)), nil
	}
	return json.Marshal(string(id))
}

func (id *SessionID) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}

	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = SessionID(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("session id must be a string or a number: %w", err)
	}
	*id = SessionID(n.String())
	return nil
}
