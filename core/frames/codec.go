package frames

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"

	"github.com/koscakluka/foundry-core/core/protocols"
)

var ErrMalformed = errors.New("malformed stream frame")

// Envelope is the wire form of every frame.
type Envelope struct {
	Type    Kind            `json:"type" jsonschema:"enum=agent_event,enum=state,enum=halt"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type agentEventPayload struct {
	Agent string `json:"agent,omitempty" jsonschema:"description=Agent that emitted the event"`
	Event string `json:"event,omitempty" jsonschema:"description=Human-readable phase or message"`
}

type haltPayload struct {
	Interrupts []any `json:"interrupts" jsonschema:"description=Raw interrupt values raised by the backend"`
}

// Decode parses one envelope. Any failure wraps ErrMalformed.
func Decode(data []byte) (Frame, error) {
	var envelope Envelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	switch envelope.Type {
	case KindAgentEvent:
		var payload map[string]any
		if err := decodeObject(envelope.Payload, &payload); err != nil {
			return nil, fmt.Errorf("%w: agent_event payload: %v", ErrMalformed, err)
		}
		return agentEventFromPayload(payload), nil

	case KindState:
		var document protocols.Blackboard
		if err := decodeObject(envelope.Payload, &document); err != nil {
			return nil, fmt.Errorf("%w: state payload: %v", ErrMalformed, err)
		}
		if document == nil {
			document = protocols.Blackboard{}
		}
		return StateUpdate{Document: document}, nil

	case KindHalt:
		var payload haltPayload
		if err := decodeObject(envelope.Payload, &payload); err != nil {
			return nil, fmt.Errorf("%w: halt payload: %v", ErrMalformed, err)
		}
		return Halt{Interrupts: payload.Interrupts}, nil

	case "":
		return nil, fmt.Errorf("%w: missing type", ErrMalformed)

	default:
		return nil, fmt.Errorf("%w: unknown type %q", ErrMalformed, envelope.Type)
	}
}

// Encode renders a frame as its wire envelope.
func Encode(frame Frame) ([]byte, error) {
	var payload any
	switch typedFrame := frame.(type) {
	case AgentEvent:
		fields := maps.Clone(typedFrame.Details)
		if fields == nil {
			fields = map[string]any{}
		}
		fields["agent"] = typedFrame.Agent
		fields["event"] = typedFrame.Message
		payload = fields
	case StateUpdate:
		document := typedFrame.Document
		if document == nil {
			document = protocols.Blackboard{}
		}
		payload = document
	case Halt:
		interrupts := typedFrame.Interrupts
		if interrupts == nil {
			interrupts = []any{}
		}
		payload = haltPayload{Interrupts: interrupts}
	default:
		return nil, fmt.Errorf("unsupported frame %T", frame)
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("error marshalling %s payload: %w", frame.Kind(), err)
	}
	return json.Marshal(Envelope{Type: frame.Kind(), Payload: raw})
}

// decodeObject accepts an absent or null payload as empty.
func decodeObject(raw json.RawMessage, into any) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	return json.Unmarshal(raw, into)
}

func agentEventFromPayload(payload map[string]any) AgentEvent {
	event := AgentEvent{Agent: DefaultAgent, Message: DefaultMessage}

	if agent, ok := payload["agent"].(string); ok && agent != "" {
		event.Agent = agent
	}
	if message, ok := payload["event"].(string); ok && message != "" {
		event.Message = message
	} else if message, ok := payload["message"].(string); ok && message != "" {
		event.Message = message
	}

	for key, value := range payload {
		switch key {
		case "agent", "event", "message":
			continue
		}
		if event.Details == nil {
			event.Details = map[string]any{}
		}
		event.Details[key] = value
	}
	return event
}
