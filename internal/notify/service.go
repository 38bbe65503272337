package notify

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"

	"github.com/totalhomes/lead-qualifier/internal/conversation"
	"github.com/totalhomes/lead-qualifier/internal/leads"
	"github.com/totalhomes/lead-qualifier/internal/qualify"
	"github.com/totalhomes/lead-qualifier/pkg/logging"
)

// DefaultHotLeadMaxTier is the worst tier that still triggers an alert.
const DefaultHotLeadMaxTier = 2

const transcriptExcerpt = 6

// HotLeadConfig selects who hears about which leads.
type HotLeadConfig struct {
	Recipients []string
	// MaxTier of zero means DefaultHotLeadMaxTier.
	MaxTier int
}

// HotLeadNotifier emails the sales team when a good lead finishes.
type HotLeadNotifier struct {
	email  EmailSender
	cfg    HotLeadConfig
	logger *logging.Logger
}

var _ leads.Notifier = (*HotLeadNotifier)(nil)

// NewHotLeadNotifier creates a notifier. A nil sender disables sending.
func NewHotLeadNotifier(email EmailSender, cfg HotLeadConfig, logger *logging.Logger) *HotLeadNotifier {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.MaxTier <= 0 {
		cfg.MaxTier = DefaultHotLeadMaxTier
	}
	recipients := make([]string, 0, len(cfg.Recipients))
	for _, r := range cfg.Recipients {
		if r = strings.TrimSpace(r); r != "" {
			recipients = append(recipients, r)
		}
	}
	cfg.Recipients = recipients
	return &HotLeadNotifier{email: email, cfg: cfg, logger: logger}
}

// IsHot reports whether rec deserves an alert.
func (n *HotLeadNotifier) IsHot(rec *leads.LeadRecord) bool {
	if rec == nil || rec.Fields.DoNotContact || rec.Status == leads.StatusDisqualified {
		return false
	}
	return rec.Tier <= n.cfg.MaxTier
}

// NotifyLead sends one email per recipient for a hot lead and ignores the rest.
func (n *HotLeadNotifier) NotifyLead(ctx context.Context, rec *leads.LeadRecord) error {
	if !n.IsHot(rec) {
		return nil
	}
	if n.email == nil || len(n.cfg.Recipients) == 0 {
		n.logger.Debug("hot lead notification skipped: email not configured", "lead_id", rec.ID)
		return nil
	}

	msg := EmailMessage{
		Subject: fmt.Sprintf("🔥 Hot lead (Tier %d) - %s", rec.Tier, rec.Summary),
		Body:    formatLeadText(rec),
		HTML:    formatLeadHTML(rec),
	}

	var errs []error
	for _, recipient := range n.cfg.Recipients {
		msg.To = recipient
		if err := n.email.Send(ctx, msg); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("notify: %d of %d hot lead email(s) failed: %w", len(errs), len(n.cfg.Recipients), errors.Join(errs...))
	}
	n.logger.Info("hot lead notification sent", "lead_id", rec.ID, "tier", rec.Tier, "recipients", len(n.cfg.Recipients))
	return nil
}

type leadLine struct {
	label, value string
}

func leadLines(rec *leads.LeadRecord) []leadLine {
	f := rec.Fields
	lines := []leadLine{
		{"Score", fmt.Sprintf("%d / 100 (Tier %d)", rec.Score, rec.Tier)},
		{"Project", slotText(f.ProjectType)},
		{"City", slotText(f.City)},
		{"Scope", slotText(f.Scope)},
		{"Timeline", slotText(f.Timeline)},
		{"Budget", budgetText(f.Budget)},
		{"Estimate", rec.Estimate.Format(qualify.LanguageEnglish)},
		{"Name", slotText(f.ContactName)},
		{"Phone", slotText(f.ContactPhone)},
		{"Email", slotText(f.ContactEmail)},
		{"Callback", slotText(f.WantsCallback)},
		{"Language", string(rec.Language)},
	}
	return lines
}

func formatLeadText(rec *leads.LeadRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "A hot lead just finished qualifying.\n\n%s\n\n", rec.Summary)
	for _, l := range leadLines(rec) {
		fmt.Fprintf(&b, "%s: %s\n", l.label, l.value)
	}
	if len(rec.Reasons) > 0 {
		b.WriteString("\nWhy:\n")
		for _, r := range rec.Reasons {
			fmt.Fprintf(&b, "- %s\n", r)
		}
	}
	if excerpt := recentTranscript(rec.Transcript); len(excerpt) > 0 {
		b.WriteString("\nLast messages:\n")
		for _, m := range excerpt {
			fmt.Fprintf(&b, "%s: %s\n", m.Role, truncate(m.Content, 200))
		}
	}
	fmt.Fprintf(&b, "\nLead ID: %s\n", rec.ID)
	return b.String()
}

func formatLeadHTML(rec *leads.LeadRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, `<h2 style="margin: 0 0 12px;">%s</h2><table style="border-collapse: collapse;">`, html.EscapeString(rec.Summary))
	for _, l := range leadLines(rec) {
		fmt.Fprintf(&b, `<tr><td style="padding: 8px; border-bottom: 1px solid #e5e7eb;"><strong>%s:</strong></td><td style="padding: 8px; border-bottom: 1px solid #e5e7eb;">%s</td></tr>`,
			html.EscapeString(l.label), html.EscapeString(l.value))
	}
	b.WriteString("</table>")
	if len(rec.Reasons) > 0 {
		b.WriteString("<ul>")
		for _, r := range rec.Reasons {
			fmt.Fprintf(&b, "<li>%s</li>", html.EscapeString(r))
		}
		b.WriteString("</ul>")
	}
	fmt.Fprintf(&b, `<p style="color: #6b7280;">Lead ID: %s</p>`, html.EscapeString(rec.ID))
	return b.String()
}

func slotText[T comparable](s qualify.Slot[T]) string {
	switch {
	case s.IsRefused():
		return "declined to say"
	case s.IsUnknown():
		return "-"
	default:
		return s.String()
	}
}

func budgetText(s qualify.Slot[int]) string {
	if v, ok := s.Get(); ok {
		return qualify.FormatEuros(v, qualify.LanguageEnglish)
	}
	return slotText(s)
}

func recentTranscript(msgs []conversation.ChatMessage) []conversation.ChatMessage {
	if len(msgs) > transcriptExcerpt {
		return msgs[len(msgs)-transcriptExcerpt:]
	}
	return msgs
}

func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen]) + "..."
}
