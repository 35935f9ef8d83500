package controller

import "errors"

// Reasons a PreconditionError carries. Match them with errors.Is.
var (
	ErrNoSessionSelected = errors.New("no session selected")
	ErrAlreadyStreaming  = errors.New("a run is already streaming")
	ErrNotHalted         = errors.New("session is not halted for human review")
	ErrNotStreaming      = errors.New("no run is streaming")
	ErrApprovalInFlight  = errors.New("an approval is already in flight")
	ErrEmptyIntent       = errors.New("intent must not be empty")
)

// PreconditionError rejects an operation before any I/O is attempted.
type PreconditionError struct {
	Op     string
	Reason error
}

func (e *PreconditionError) Error() string { return e.Op + ": " + e.Reason.Error() }

func (e *PreconditionError) Unwrap() error { return e.Reason }

func precondition(op string, reason error) error {
	return &PreconditionError{Op: op, Reason: reason}
}
