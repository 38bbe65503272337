package webchat

import (
	"time"

	"github.com/totalhomes/lead-qualifier/internal/conversation"
	"github.com/totalhomes/lead-qualifier/internal/qualify"
)

// HistoryMessage is one transcript line as the widget renders it.
type HistoryMessage struct {
	Role      string `json:"role"`
	Text      string `json:"text"`
	Timestamp string `json:"timestamp,omitempty"`
}

// SessionResponse describes a session after create, get, finish or reset.
type SessionResponse struct {
	SessionID string           `json:"session_id"`
	Language  qualify.Language `json:"language"`
	Backend   string           `json:"backend"`
	Step      qualify.Step     `json:"step"`
	Score     int              `json:"score"`
	Tier      int              `json:"tier"`
	Fields    qualify.Fields   `json:"fields"`
	Finished  bool             `json:"finished"`
	Messages  []HistoryMessage `json:"messages"`
}

// TurnResponse is the reply to one user message.
type TurnResponse struct {
	SessionID    string         `json:"session_id"`
	Reply        string         `json:"reply"`
	Step         qualify.Step   `json:"step"`
	Score        int            `json:"score"`
	Tier         int            `json:"tier"`
	Reasons      []string       `json:"reasons"`
	Fields       qualify.Fields `json:"fields"`
	NextQuestion string         `json:"next_question,omitempty"`
	Done         bool           `json:"done"`
}

func sessionResponse(snap conversation.Snapshot) SessionResponse {
	return SessionResponse{
		SessionID: snap.ID,
		Language:  snap.Language,
		Backend:   snap.Backend,
		Step:      snap.State.Step,
		Score:     snap.State.Score,
		Tier:      snap.State.Tier,
		Fields:    snap.State.Fields,
		Finished:  snap.Finished,
		Messages:  history(snap.Transcript),
	}
}

func turnResponse(sessionID string, res conversation.TurnResult) TurnResponse {
	reasons := res.Reasons
	if reasons == nil {
		reasons = []string{}
	}
	return TurnResponse{
		SessionID:    sessionID,
		Reply:        res.DisplayText,
		Step:         res.Step,
		Score:        res.Score,
		Tier:         res.Tier,
		Reasons:      reasons,
		Fields:       res.Fields,
		NextQuestion: res.NextQuestion,
		Done:         res.Terminal,
	}
}

func history(msgs []conversation.ChatMessage) []HistoryMessage {
	out := make([]HistoryMessage, 0, len(msgs))
	for _, m := range msgs {
		hm := HistoryMessage{Role: m.Role, Text: m.Content}
		if !m.Timestamp.IsZero() {
			hm.Timestamp = m.Timestamp.UTC().Format(time.RFC3339)
		}
		out = append(out, hm)
	}
	return out
}
