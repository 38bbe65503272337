package leads

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/totalhomes/lead-qualifier/internal/conversation"
	"github.com/totalhomes/lead-qualifier/internal/qualify"
)

var testNow = time.Date(2026, 5, 4, 9, 30, 0, 0, time.UTC)

func completeSnapshot() conversation.Snapshot {
	s := qualify.NewState()
	s.ProjectType = qualify.Known(qualify.CategoryKitchen)
	s.City = qualify.Known("Barcelona")
	s.Scope = qualify.Known(15)
	s.Timeline = qualify.Known(qualify.TimelineSummer)
	s.Budget = qualify.Known(30000)
	s.ContactName = qualify.Known("Ana García")
	s.ContactPhone = qualify.Known("+34612345678")
	s.WantsCallback = qualify.Known(true)
	s.ApplyScore(qualify.Score(&s, qualify.DefaultConfig()))
	s.Step = qualify.StepComplete
	return conversation.Snapshot{
		ID:       "session-1",
		Language: qualify.LanguageSpanish,
		Backend:  "local",
		State:    s,
		Transcript: []conversation.ChatMessage{
			{Role: conversation.ChatRoleAssistant, Content: "¡Hola!", Timestamp: testNow},
			{Role: conversation.ChatRoleUser, Content: "Quiero reformar mi cocina", Timestamp: testNow},
		},
	}
}

// testLead builds a valid record with a distinct id and timestamp.
func testLead(i int) *LeadRecord {
	rec := NewLeadRecord(completeSnapshot(), false, testNow.Add(time.Duration(i)*time.Minute))
	rec.ID = fmt.Sprintf("lead_%03d", i)
	return rec
}

func TestNewLeadRecord_Complete(t *testing.T) {
	rec := NewLeadRecord(completeSnapshot(), false, testNow)

	assert.True(t, strings.HasPrefix(rec.ID, "lead_"))
	assert.Equal(t, "session-1", rec.SessionID)
	assert.Equal(t, testNow, rec.CreatedAt)
	assert.Equal(t, StatusComplete, rec.Status)
	assert.Equal(t, 90, rec.Score)
	assert.Equal(t, 1, rec.Tier)
	assert.NotEmpty(t, rec.Reasons)
	assert.Equal(t, "Reforma de cocina · Barcelona · Tier 1", rec.Summary)
	assert.Equal(t, qualify.Estimate{Min: 30000, Max: 30000, Basis: "client_budget"}, rec.Estimate)
	assert.Len(t, rec.Transcript, 2)
	require.NoError(t, NewValidator().Validate(rec))
}

func TestNewLeadRecord_Status(t *testing.T) {
	snap := completeSnapshot()
	snap.State.Step = qualify.StepNeedCallbackConsent
	assert.Equal(t, StatusAbandoned, NewLeadRecord(snap, true, testNow).Status)

	snap.State.Step = qualify.StepDisqualified
	assert.Equal(t, StatusDisqualified, NewLeadRecord(snap, false, testNow).Status)

	snap.State.Step = qualify.StepComplete
	assert.Equal(t, StatusComplete, NewLeadRecord(snap, true, testNow).Status)
}

func TestNewLeadRecord_DoesNotAliasSnapshot(t *testing.T) {
	snap := completeSnapshot()
	rec := NewLeadRecord(snap, false, testNow)
	snap.Transcript[0].Content = "changed"
	snap.State.Reasons[0] = "changed"

	assert.Equal(t, "¡Hola!", rec.Transcript[0].Content)
	assert.NotEqual(t, "changed", rec.Reasons[0])
}

func TestSummarize(t *testing.T) {
	f := qualify.Fields{}
	assert.Equal(t, "Reforma · Tier 5", Summarize(f, 5, qualify.LanguageSpanish))

	f.ProjectType = qualify.Known(qualify.CategoryBathroom)
	f.City = qualify.Known("Sabadell")
	assert.Equal(t, "Bathroom renovation · Sabadell · Tier 2", Summarize(f, 2, qualify.LanguageEnglish))
}

func TestValidator(t *testing.T) {
	v := NewValidator()
	tests := []struct {
		name    string
		mutate  func(*LeadRecord)
		problem string
	}{
		{name: "missing id", mutate: func(r *LeadRecord) { r.ID = "" }, problem: "ID is required"},
		{name: "bad id prefix", mutate: func(r *LeadRecord) { r.ID = "123" }, problem: "startswith"},
		{name: "score out of range", mutate: func(r *LeadRecord) { r.Score = 101 }, problem: "Score failed max"},
		{name: "tier out of range", mutate: func(r *LeadRecord) { r.Tier = 0 }, problem: "Tier failed min"},
		{name: "unknown language", mutate: func(r *LeadRecord) { r.Language = "fr" }, problem: "Language failed oneof"},
		{name: "unknown status", mutate: func(r *LeadRecord) { r.Status = "lost" }, problem: "Status failed oneof"},
		{name: "missing timestamp", mutate: func(r *LeadRecord) { r.CreatedAt = time.Time{} }, problem: "CreatedAt is required"},
		{
			name: "opted out but scored",
			mutate: func(r *LeadRecord) {
				r.Fields.DoNotContact = true
				r.Score, r.Tier = 40, 3
			},
			problem: "opted-out lead must score 0",
		},
		{
			name:    "disqualified but tier 1",
			mutate:  func(r *LeadRecord) { r.Disqualified = qualify.DisqualifyLowBudget },
			problem: "disqualified lead must be tier 5",
		},
		{
			name:    "malformed email",
			mutate:  func(r *LeadRecord) { r.Fields.ContactEmail = qualify.Known("ana@") },
			problem: "ContactEmail is not a valid email",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := testLead(1)
			tt.mutate(rec)
			err := v.Validate(rec)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidLead)
			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Contains(t, verr.Error(), tt.problem)
		})
	}
}

func TestValidator_Nil(t *testing.T) {
	assert.ErrorIs(t, NewValidator().Validate(nil), ErrInvalidLead)
}
