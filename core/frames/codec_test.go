package frames

import (
	"errors"
	"reflect"
	"testing"

	"github.com/koscakluka/foundry-core/core/protocols"
)

func TestDecodeVariants(t *testing.T) {
	testCases := []struct {
		name     string
		data     string
		expected Frame
	}{
		{
			name:     "agent event",
			data:     `{"type": "agent_event", "payload": {"agent": "drafting", "event": "start", "iteration": 1}}`,
			expected: AgentEvent{Agent: "drafting", Message: "start", Details: map[string]any{"iteration": float64(1)}},
		},
		{
			name:     "agent event falls back to message",
			data:     `{"type": "agent_event", "payload": {"agent": "safety_guardian", "message": "scored"}}`,
			expected: AgentEvent{Agent: "safety_guardian", Message: "scored"},
		},
		{
			name:     "agent event defaults",
			data:     `{"type": "agent_event", "payload": {}}`,
			expected: AgentEvent{Agent: DefaultAgent, Message: DefaultMessage},
		},
		{
			name:     "state",
			data:     `{"type": "state", "payload": {"current_draft": "d", "iteration": 2}}`,
			expected: StateUpdate{Document: protocols.Blackboard{"current_draft": "d", "iteration": float64(2)}},
		},
		{
			name:     "halt",
			data:     `{"type": "halt", "payload": {"interrupts": [{"reason": "review"}]}}`,
			expected: Halt{Interrupts: []any{map[string]any{"reason": "review"}}},
		},
		{
			name:     "halt without payload",
			data:     `{"type": "halt"}`,
			expected: Halt{},
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			frame, err := Decode([]byte(testCase.data))
			if err != nil {
				t.Fatalf("expected frame to decode, got %v", err)
			}
			if !reflect.DeepEqual(frame, testCase.expected) {
				t.Fatalf("expected %#v, got %#v", testCase.expected, frame)
			}
		})
	}
}

func TestDecodeRejectsMalformedFrames(t *testing.T) {
	testCases := []struct {
		name string
		data string
	}{
		{name: "not json", data: `{"type": "state", "payload": `},
		{name: "missing type", data: `{"payload": {}}`},
		{name: "unknown type", data: `{"type": "heartbeat", "payload": {}}`},
		{name: "state payload not object", data: `{"type": "state", "payload": [1, 2]}`},
		{name: "agent payload not object", data: `{"type": "agent_event", "payload": "hi"}`},
		{name: "halt interrupts not list", data: `{"type": "halt", "payload": {"interrupts": 3}}`},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			if _, err := Decode([]byte(testCase.data)); !errors.Is(err, ErrMalformed) {
				t.Fatalf("expected ErrMalformed, got %v", err)
			}
		})
	}
}

func TestEncodeRoundTripsThroughDecode(t *testing.T) {
	for _, frame := range []Frame{
		NewAgentEvent("clinical_critic", "finish"),
		NewStateUpdate(protocols.Blackboard{"current_draft": "text"}),
		NewHalt("review"),
	} {
		data, err := Encode(frame)
		if err != nil {
			t.Fatalf("expected %s to encode, got %v", frame.Kind(), err)
		}
		decoded, err := Decode(data)
		if err != nil {
			t.Fatalf("expected %s to decode, got %v", frame.Kind(), err)
		}
		if decoded.Kind() != frame.Kind() {
			t.Fatalf("expected kind %q, got %q", frame.Kind(), decoded.Kind())
		}
	}
}

func TestSchemaDescribesEnvelope(t *testing.T) {
	schema := Schema()

	typeSchema, ok := schema.Properties.Get("type")
	if !ok {
		t.Fatalf("expected envelope schema to describe the type field")
	}
	if len(typeSchema.Enum) != len(Kinds()) {
		t.Fatalf("expected %d enum values, got %d", len(Kinds()), len(typeSchema.Enum))
	}
	if _, ok := schema.Properties.Get("payload"); !ok {
		t.Fatalf("expected envelope schema to describe the payload field")
	}

	for _, kind := range Kinds() {
		if _, ok := PayloadSchema(kind); !ok {
			t.Fatalf("expected a payload schema for %q", kind)
		}
	}
	if _, ok := PayloadSchema("heartbeat"); ok {
		t.Fatalf("expected no payload schema for unknown kinds")
	}
}
