package protocols

import (
	"encoding/json"
	"maps"
	"math"
)

// Well-known blackboard keys. Every other key is carried through untouched.
const (
	KeyCurrentDraft  = "current_draft"
	KeySafetyScore   = "safety_score"
	KeyEmpathyScore  = "empathy_score"
	KeyIteration     = "iteration"
	KeyFinalProtocol = "final_protocol"
)

const (
	MinScore = 0.0
	MaxScore = 1.0
)

// Blackboard is the backend's working-memory document. Documents are
// replaced wholesale on update and never mutated in place.
type Blackboard map[string]any

// BlackboardSnapshot is a point-in-time read of the blackboard.
type BlackboardSnapshot struct {
	State     Blackboard `json:"state"`
	CreatedAt *Timestamp `json:"created_at,omitempty"`
}

func (b Blackboard) Clone() Blackboard { return maps.Clone(b) }

// CurrentDraft returns the draft text when the document carries a
// non-empty one.
func (b Blackboard) CurrentDraft() (string, bool) {
	draft, ok := b[KeyCurrentDraft].(string)
	if !ok || draft == "" {
		return "", false
	}
	return draft, true
}

func (b Blackboard) FinalProtocol() (string, bool) {
	final, ok := b[KeyFinalProtocol].(string)
	if !ok || final == "" {
		return "", false
	}
	return final, true
}

func (b Blackboard) SafetyScore() (float64, bool)  { return b.score(KeySafetyScore) }
func (b Blackboard) EmpathyScore() (float64, bool) { return b.score(KeyEmpathyScore) }

func (b Blackboard) Iteration() (int, bool) {
	n, ok := number(b[KeyIteration])
	if !ok || n < 0 || n != math.Trunc(n) {
		return 0, false
	}
	return int(n), true
}

func (b Blackboard) score(key string) (float64, bool) {
	n, ok := number(b[key])
	if !ok || n < MinScore || n > MaxScore {
		return 0, false
	}
	return n, true
}

func number(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, !math.IsNaN(v)
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		n, err := v.Float64()
		return n, err == nil
	default:
		return 0, false
	}
}
