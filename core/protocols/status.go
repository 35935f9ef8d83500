package protocols

// Status is the backend-persisted lifecycle of a session.
type Status string

const (
	// StatusCreated is a session that has never run; the controller treats
	// it as idle.
	StatusCreated        Status = "created"
	StatusRunning        Status = "running"
	StatusHaltedForHuman Status = "halted_for_human"
	StatusFinalizing     Status = "finalizing"
	StatusCompleted      Status = "completed"
	StatusError          Status = "error"
)

func (s Status) IsHalted() bool { return s == StatusHaltedForHuman }

// IsTerminal reports whether the backend will not advance the session
// without a new start.
func (s Status) IsTerminal() bool { return s == StatusCompleted || s == StatusError }
