package protocols

import (
	"errors"
	"fmt"
	"slices"

	"github.com/jinzhu/copier"
)

var ErrDraftVersionOrder = errors.New("draft versions are not gapless and strictly increasing")

// SessionSummary is the directory listing entry for a session.
type SessionSummary struct {
	ID        SessionID `json:"id"`
	Intent    string    `json:"intent"`
	Status    Status    `json:"status"`
	CreatedAt Timestamp `json:"created_at"`
	UpdatedAt Timestamp `json:"updated_at"`
}

// Session is the full record of one drafting effort.
type Session struct {
	ID       SessionID `json:"id"`
	Intent   string    `json:"intent"`
	ThreadID string    `json:"thread_id,omitempty"`
	Status   Status    `json:"status"`

	LatestDraft      *string `json:"latest_draft,omitempty"`
	HumanEditedDraft *string `json:"human_edited_draft,omitempty"`
	FinalProtocol    *string `json:"final_protocol,omitempty"`

	SafetyScore  *float64 `json:"safety_score,omitempty"`
	EmpathyScore *float64 `json:"empathy_score,omitempty"`

	Iteration int       `json:"iteration"`
	CreatedAt Timestamp `json:"created_at"`
	UpdatedAt Timestamp `json:"updated_at"`

	Drafts []DraftVersion `json:"drafts"`
}

// DraftVersion is an immutable snapshot of a draft.
type DraftVersion struct {
	ID           int64     `json:"id"`
	VersionIndex int       `json:"version_index"`
	Content      string    `json:"content"`
	SafetyScore  *float64  `json:"safety_score,omitempty"`
	EmpathyScore *float64  `json:"empathy_score,omitempty"`
	CreatedAt    Timestamp `json:"created_at"`
}

// Summary projects the session onto its directory entry.
func (s Session) Summary() SessionSummary {
	var summary SessionSummary
	if err := copier.Copy(&summary, &s); err != nil {
		return SessionSummary{ID: s.ID, Intent: s.Intent, Status: s.Status, CreatedAt: s.CreatedAt, UpdatedAt: s.UpdatedAt}
	}
	return summary
}

// Clone returns a copy that shares no mutable state with s.
func (s Session) Clone() Session {
	clone := s
	clone.LatestDraft = clonePtr(s.LatestDraft)
	clone.HumanEditedDraft = clonePtr(s.HumanEditedDraft)
	clone.FinalProtocol = clonePtr(s.FinalProtocol)
	clone.SafetyScore = clonePtr(s.SafetyScore)
	clone.EmpathyScore = clonePtr(s.EmpathyScore)
	clone.Drafts = slices.Clone(s.Drafts)
	return clone
}

// LatestVersion returns the most recent draft version, if any.
func (s Session) LatestVersion() (DraftVersion, bool) {
	if len(s.Drafts) == 0 {
		return DraftVersion{}, false
	}
	return s.Drafts[len(s.Drafts)-1], true
}

// ValidateDrafts checks that version indices are gapless and strictly
// increasing. The first version may be 0 (backend placeholder draft) or 1.
func (s Session) ValidateDrafts() error {
	for i, draft := range s.Drafts {
		if i == 0 {
			if draft.VersionIndex != 0 && draft.VersionIndex != 1 {
				return fmt.Errorf("%w: first version index is %d", ErrDraftVersionOrder, draft.VersionIndex)
			}
			continue
		}

		previous := s.Drafts[i-1].VersionIndex
		if draft.VersionIndex != previous+1 {
			return fmt.Errorf("%w: version %d follows %d", ErrDraftVersionOrder, draft.VersionIndex, previous)
		}
	}
	return nil
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
