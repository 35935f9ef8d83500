// Package protocols defines the protocol-drafting records exchanged with the
// orchestration backend.
//
// A Session is one drafting effort tied to a single operator intent. Its
// DraftVersion history is append-only and owned by the session; versions
// are never mutated once created. The Blackboard is the backend's working
// memory for a run and is treated as an untyped document: only the keys
// declared in this package are interpreted, everything else passes through
// for display.
package protocols
