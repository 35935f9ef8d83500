// Package frames defines the typed stream frame contract of the live run
// channel.
//
// Every message on the channel is a JSON envelope {"type": ..., "payload": ...}.
// The type discriminates three variants:
//
//   - AgentEvent (agent_event): an agent reported progress. The payload
//     carries "agent" and "event"; any other payload fields are kept as
//     details.
//   - StateUpdate (state): the full blackboard document at this point of
//     the run. It replaces, never patches, the previous document.
//   - Halt (halt): the backend paused the run for human review. The
//     payload carries the raw "interrupts" list.
//
// Frames that fail to decode are reported with ErrMalformed so transports
// can drop them without tearing down the channel.
package frames
