package conversation

import (
	"context"

	"github.com/totalhomes/lead-qualifier/internal/qualify"
)

// TurnRequest carries everything a backend needs for one turn. State is a
// private copy; the backend may mutate it freely.
type TurnRequest struct {
	History  []ChatMessage
	State    qualify.State
	Config   qualify.Config
	Language qualify.Language
}

// Utterance returns the latest user message in the history.
func (r TurnRequest) Utterance() string {
	for i := len(r.History) - 1; i >= 0; i-- {
		if r.History[i].Role == ChatRoleUser {
			return r.History[i].Content
		}
	}
	return ""
}

// TurnResult is the outcome of one turn. State is what the session commits on
// success.
type TurnResult struct {
	DisplayText  string         `json:"displayText"`
	Fields       qualify.Fields `json:"fields"`
	Score        int            `json:"score"`
	Tier         int            `json:"tier"`
	Reasons      []string       `json:"reasons"`
	NextQuestion string         `json:"nextQuestion,omitempty"`
	Step         qualify.Step   `json:"step"`
	Terminal     bool           `json:"terminal"`

	State qualify.State `json:"-"`
}

// Backend runs one conversation turn. Implementations hold no conversation
// state between calls.
type Backend interface {
	Name() string
	RunTurn(ctx context.Context, req TurnRequest) (TurnResult, error)
}

func resultFromState(s qualify.State, display, next string) TurnResult {
	terminal := s.Terminal()
	if terminal {
		next = ""
	}
	return TurnResult{
		DisplayText:  display,
		Fields:       s.Fields,
		Score:        s.Score,
		Tier:         s.Tier,
		Reasons:      s.Reasons,
		NextQuestion: next,
		Step:         s.Step,
		Terminal:     terminal,
		State:        s,
	}
}
