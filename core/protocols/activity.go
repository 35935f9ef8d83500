package protocols

import "time"

// ActivityEntry is one agent activity record, stamped on local receipt.
type ActivityEntry struct {
	ReceivedAt time.Time
	Agent      string
	Message    string
	// Details holds the remaining event payload fields.
	Details map[string]any
}
