package notify

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/totalhomes/lead-qualifier/internal/conversation"
	"github.com/totalhomes/lead-qualifier/internal/leads"
	"github.com/totalhomes/lead-qualifier/internal/qualify"
)

type mockEmailSender struct {
	mu      sync.Mutex
	sent    []EmailMessage
	failFor map[string]bool
}

func (m *mockEmailSender) Send(_ context.Context, msg EmailMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failFor[msg.To] {
		return errors.New("mailbox unavailable")
	}
	m.sent = append(m.sent, msg)
	return nil
}

func hotLead(tier int) *leads.LeadRecord {
	f := qualify.Fields{
		ProjectType:   qualify.Known(qualify.CategoryBathroom),
		City:          qualify.Known("Badalona"),
		Timeline:      qualify.Known(qualify.TimelineMonths),
		Budget:        qualify.Known(15000),
		ContactName:   qualify.Known("Jordi <Puig>"),
		ContactPhone:  qualify.Known("+34600111222"),
		ContactEmail:  qualify.RefusedSlot[string](),
		WantsCallback: qualify.Known(true),
	}
	return &leads.LeadRecord{
		ID:        "lead_hot",
		CreatedAt: time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC),
		Language:  qualify.LanguageCatalan,
		Summary:   fmt.Sprintf("Reforma de bany · Badalona · Tier %d", tier),
		Score:     85,
		Tier:      tier,
		Reasons:   []string{"city Badalona is covered", "callback accepted"},
		Status:    leads.StatusComplete,
		Fields:    f,
		Estimate:  qualify.EstimatePrice(f),
		Transcript: []conversation.ChatMessage{
			{Role: conversation.ChatRoleUser, Content: "Vull reformar el bany"},
		},
	}
}

func TestHotLeadNotifier_SendsToEveryRecipient(t *testing.T) {
	sender := &mockEmailSender{}
	n := NewHotLeadNotifier(sender, HotLeadConfig{Recipients: []string{"ana@example.com", " ", "pere@example.com"}}, nil)

	require.NoError(t, n.NotifyLead(context.Background(), hotLead(1)))
	require.Len(t, sender.sent, 2)
	assert.Equal(t, "ana@example.com", sender.sent[0].To)
	assert.Equal(t, "pere@example.com", sender.sent[1].To)

	msg := sender.sent[0]
	assert.Contains(t, msg.Subject, "Tier 1")
	assert.Contains(t, msg.Subject, "Badalona")
	assert.Contains(t, msg.Body, "Budget: €15,000")
	assert.Contains(t, msg.Body, "Estimate: €15,000")
	assert.Contains(t, msg.Body, "Email: declined to say")
	assert.Contains(t, msg.Body, "Scope: -")
	assert.Contains(t, msg.Body, "- callback accepted")
	assert.Contains(t, msg.Body, "user: Vull reformar el bany")
	assert.Contains(t, msg.HTML, "Jordi &lt;Puig&gt;")
	assert.NotContains(t, msg.HTML, "<Puig>")
}

func TestHotLeadNotifier_Filters(t *testing.T) {
	tests := []struct {
		name    string
		maxTier int
		mutate  func(*leads.LeadRecord)
		want    bool
	}{
		{name: "tier 2 with default max", mutate: func(r *leads.LeadRecord) { r.Tier = 2 }, want: true},
		{name: "tier 3 with default max", mutate: func(r *leads.LeadRecord) { r.Tier = 3 }, want: false},
		{name: "tier 3 with max 3", maxTier: 3, mutate: func(r *leads.LeadRecord) { r.Tier = 3 }, want: true},
		{name: "disqualified", mutate: func(r *leads.LeadRecord) { r.Status = leads.StatusDisqualified }, want: false},
		{name: "opted out", mutate: func(r *leads.LeadRecord) { r.Fields.DoNotContact = true }, want: false},
		{name: "abandoned but hot", mutate: func(r *leads.LeadRecord) { r.Status = leads.StatusAbandoned }, want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sender := &mockEmailSender{}
			n := NewHotLeadNotifier(sender, HotLeadConfig{Recipients: []string{"sales@example.com"}, MaxTier: tt.maxTier}, nil)
			rec := hotLead(1)
			tt.mutate(rec)

			assert.Equal(t, tt.want, n.IsHot(rec))
			require.NoError(t, n.NotifyLead(context.Background(), rec))
			assert.Equal(t, tt.want, len(sender.sent) == 1)
		})
	}
}

func TestHotLeadNotifier_PartialFailure(t *testing.T) {
	sender := &mockEmailSender{failFor: map[string]bool{"broken@example.com": true}}
	n := NewHotLeadNotifier(sender, HotLeadConfig{Recipients: []string{"broken@example.com", "ok@example.com"}}, nil)

	err := n.NotifyLead(context.Background(), hotLead(1))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 2")
	assert.Contains(t, err.Error(), "mailbox unavailable")
	assert.Len(t, sender.sent, 1)
}

func TestHotLeadNotifier_Unconfigured(t *testing.T) {
	assert.NoError(t, NewHotLeadNotifier(nil, HotLeadConfig{Recipients: []string{"sales@example.com"}}, nil).NotifyLead(context.Background(), hotLead(1)))

	sender := &mockEmailSender{}
	assert.NoError(t, NewHotLeadNotifier(sender, HotLeadConfig{}, nil).NotifyLead(context.Background(), hotLead(1)))
	assert.Empty(t, sender.sent)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "hola", truncate("hola", 10))
	assert.Equal(t, "reformá...", truncate("reformámos", 7))
}
