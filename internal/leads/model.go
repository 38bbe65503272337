package leads

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/totalhomes/lead-qualifier/internal/conversation"
	"github.com/totalhomes/lead-qualifier/internal/qualify"
)

// Status tells how a conversation ended.
type Status string

const (
	StatusComplete     Status = "complete"
	StatusDisqualified Status = "disqualified"
	// StatusAbandoned marks a conversation the caller finished early.
	StatusAbandoned Status = "abandoned"
)

// LeadRecord is a lead frozen at the end of a conversation. It is never
// mutated after creation.
type LeadRecord struct {
	ID           string                     `json:"id" validate:"required,startswith=lead_"`
	SessionID    string                     `json:"sessionId"`
	CreatedAt    time.Time                  `json:"createdAt" validate:"required"`
	Language     qualify.Language           `json:"language" validate:"oneof=es en ca"`
	Backend      string                     `json:"backend,omitempty"`
	Summary      string                     `json:"summary" validate:"required"`
	Score        int                        `json:"score" validate:"min=0,max=100"`
	Tier         int                        `json:"tier" validate:"min=1,max=5"`
	Reasons      []string                   `json:"reasons"`
	Status       Status                     `json:"status" validate:"oneof=complete disqualified abandoned"`
	Disqualified qualify.DisqualifyReason   `json:"disqualified,omitempty"`
	Fields       qualify.Fields             `json:"fields"`
	Estimate     qualify.Estimate           `json:"estimate"`
	Transcript   []conversation.ChatMessage `json:"transcript"`
}

// NewLeadRecord freezes a session snapshot. forced is true when the caller
// ended the conversation before a terminal step.
func NewLeadRecord(snap conversation.Snapshot, forced bool, now time.Time) *LeadRecord {
	state := snap.State.Clone()
	status := StatusComplete
	switch {
	case state.Step == qualify.StepDisqualified:
		status = StatusDisqualified
	case forced && !state.Terminal():
		status = StatusAbandoned
	}
	reasons := slices.Clone(state.Reasons)
	if reasons == nil {
		reasons = []string{}
	}
	return &LeadRecord{
		ID:           "lead_" + uuid.NewString(),
		SessionID:    snap.ID,
		CreatedAt:    now.UTC(),
		Language:     qualify.ParseLanguage(string(snap.Language)),
		Backend:      snap.Backend,
		Summary:      Summarize(state.Fields, state.Tier, snap.Language),
		Score:        state.Score,
		Tier:         qualify.ClampTier(state.Tier),
		Reasons:      reasons,
		Status:       status,
		Disqualified: state.Disqualified,
		Fields:       state.Fields,
		Estimate:     qualify.EstimatePrice(state.Fields),
		Transcript:   slices.Clone(snap.Transcript),
	}
}

// Summarize builds the one-line description shown in lead listings, e.g.
// "Reforma de cocina · Barcelona · Tier 1".
func Summarize(f qualify.Fields, tier int, lang qualify.Language) string {
	parts := make([]string, 0, 3)
	if cat, ok := f.ProjectType.Get(); ok {
		parts = append(parts, capitalize(qualify.CategoryLabel(cat, lang)))
	} else {
		parts = append(parts, capitalize(qualify.CategoryLabel(qualify.CategoryOther, lang)))
	}
	if city, ok := f.City.Get(); ok {
		parts = append(parts, city)
	}
	parts = append(parts, fmt.Sprintf("Tier %d", qualify.ClampTier(tier)))
	return strings.Join(parts, " · ")
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	return strings.ToUpper(string(r[0])) + string(r[1:])
}
