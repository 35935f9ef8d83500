package api

import (
	"context"
	"net/http"

	"github.com/koscakluka/foundry-core/core/protocols"
)

func (c *Client) ListSessions(ctx context.Context) ([]protocols.SessionSummary, error) {
	var sessions []protocols.SessionSummary
	if err := c.do(ctx, "list sessions", http.MethodGet, c.URL("protocols"), nil, &sessions); err != nil {
		return nil, err
	}
	return sessions, nil
}

func (c *Client) CreateSession(ctx context.Context, intent string) (protocols.Session, error) {
	var session protocols.Session
	body := struct {
		Intent string `json:"intent"`
	}{Intent: intent}
	if err := c.do(ctx, "create session", http.MethodPost, c.URL("protocols"), body, &session); err != nil {
		return protocols.Session{}, err
	}
	return session, nil
}

func (c *Client) GetSession(ctx context.Context, id protocols.SessionID) (protocols.Session, error) {
	var session protocols.Session
	if err := c.do(ctx, "get session", http.MethodGet, c.URL("protocols", id.String()), nil, &session); err != nil {
		return protocols.Session{}, err
	}
	return session, nil
}

func (c *Client) GetBlackboard(ctx context.Context, id protocols.SessionID) (protocols.BlackboardSnapshot, error) {
	var snapshot protocols.BlackboardSnapshot
	if err := c.do(ctx, "get blackboard", http.MethodGet, c.URL("protocols", id.String(), "blackboard"), nil, &snapshot); err != nil {
		return protocols.BlackboardSnapshot{}, err
	}
	if snapshot.State == nil {
		snapshot.State = protocols.Blackboard{}
	}
	return snapshot, nil
}

// ApproveDraft persists the operator's edited draft. The backend rejects it
// unless the session is halted for review.
func (c *Client) ApproveDraft(ctx context.Context, id protocols.SessionID, editedDraft string) (protocols.Session, error) {
	var session protocols.Session
	body := struct {
		EditedDraft string `json:"edited_draft"`
	}{EditedDraft: editedDraft}
	if err := c.do(ctx, "approve draft", http.MethodPost, c.URL("protocols", id.String(), "approve"), body, &session); err != nil {
		return protocols.Session{}, err
	}
	return session, nil
}

// Kickoff triggers a background run without subscribing to it.
func (c *Client) Kickoff(ctx context.Context, id protocols.SessionID) error {
	return c.do(ctx, "kickoff session", http.MethodPost, c.URL("protocols", id.String(), "kickoff"), nil, nil)
}
