package frames

import (
	"github.com/koscakluka/foundry-core/core/protocols"
)

type Kind string

const (
	KindAgentEvent Kind = "agent_event"
	KindState      Kind = "state"
	KindHalt       Kind = "halt"
)

func Kinds() []Kind { return []Kind{KindAgentEvent, KindState, KindHalt} }

type Frame interface {
	Kind() Kind
}

// Fallbacks used when an agent event omits its identity or message.
const (
	DefaultAgent   = "Agent"
	DefaultMessage = "Action"
)

type AgentEvent struct {
	Agent   string
	Message string
	Details map[string]any
}

func NewAgentEvent(agent, message string) AgentEvent {
	return AgentEvent{Agent: agent, Message: message}
}

func (AgentEvent) Kind() Kind { return KindAgentEvent }

type StateUpdate struct {
	Document protocols.Blackboard
}

func NewStateUpdate(document protocols.Blackboard) StateUpdate {
	return StateUpdate{Document: document}
}

func (StateUpdate) Kind() Kind { return KindState }

type Halt struct {
	Interrupts []any
}

func NewHalt(interrupts ...any) Halt {
	return Halt{Interrupts: interrupts}
}

func (Halt) Kind() Kind { return KindHalt }
