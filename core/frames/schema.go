package frames

import (
	"github.com/invopop/jsonschema"
	"github.com/koscakluka/foundry-core/core/protocols"
)

// Schema describes the frame envelope.
func Schema() *jsonschema.Schema {
	reflector := jsonschema.Reflector{DoNotReference: true}
	schema := reflector.Reflect(&Envelope{})
	schema.Title = "StreamFrame"
	schema.Description = "Envelope of one message on the live run channel"
	return schema
}

// PayloadSchema describes the payload carried by frames of the given kind.
func PayloadSchema(kind Kind) (*jsonschema.Schema, bool) {
	reflector := jsonschema.Reflector{DoNotReference: true, AllowAdditionalProperties: true}

	var schema *jsonschema.Schema
	switch kind {
	case KindAgentEvent:
		schema = reflector.Reflect(&agentEventPayload{})
	case KindState:
		schema = reflector.Reflect(&protocols.Blackboard{})
	case KindHalt:
		schema = reflector.Reflect(&haltPayload{})
	default:
		return nil, false
	}
	schema.Title = string(kind)
	return schema, true
}
