package conversation

import (
	"fmt"
	"slices"
	"strings"

	"github.com/totalhomes/lead-qualifier/internal/qualify"
)

const (
	qualifierPrompt = `You are the lead qualification assistant of a home renovation company.

Hold a natural conversation and ask ONE question at a time, in this order:
1. Project type (one of: %[1]s)
2. City of the property
3. Scope: square meters, or number of units for windows and doors
4. Desired start (timeline)
5. Approximate budget in euros
6. Contact name plus a phone number or email
7. Whether a technician may call back

COVERED CITIES: %[2]s
MINIMUM BUDGET BY PROJECT TYPE:
%[3]s
BUDGET BONUS THRESHOLD: %[4]d €

SCORING RULES (0-100, add up the rules that apply):
- Project type identified: +10
- City resolved and covered: +20
- Scope known: +5
- Budget at or above the category minimum: +25, plus +15 if at or above the bonus threshold
- Timeline resolved: +15; timeline explicitly refused: -10
- Any contact channel (phone or email): +10
- Callback accepted: +5

TIERS: 1 = 80-100, 2 = 60-79, 3 = 40-59, 4 = 20-39, 5 = 0-19.

OVERRIDES:
- City outside the covered list: tier 5, close the conversation politely.
- Budget below the category minimum: tier 5, close the conversation politely and mention the minimum.
- The lead refuses the callback twice: set wantsCallback to false and doNotContact to true, score 0, tier 5.

FIELD RULES:
- Use null for anything not yet asked or answered.
- Use "refused" when the lead declines to answer, and do not ask that question again.
- Never mark the city as refused; explain that only the city is needed and ask once more.
- Never overwrite a value already captured, except contact details the lead corrects.

RESPONSE FORMAT (MANDATORY): answer ONLY with this JSON object:
` + "```json" + `
{
  "displayText": "your conversational message",
  "fields": {
    "projectType": "category or null or \"refused\"",
    "city": "string or null",
    "scope": "number or null or \"refused\"",
    "timeline": "string or null or \"refused\"",
    "budget": "number or null or \"refused\"",
    "contactName": "string or null or \"refused\"",
    "contactPhone": "string or null or \"refused\"",
    "contactEmail": "string or null or \"refused\"",
    "wantsCallback": "boolean or null",
    "doNotContact": "boolean"
  },
  "score": 0,
  "tier": 5,
  "reasons": ["one short reason per rule applied"],
  "nextQuestion": "the next question, or null when the conversation is complete"
}
` + "```"

	repairPrompt = "Return ONLY valid JSON with no extra text. Fix any syntax errors."
)

var languageNames = map[qualify.Language]string{
	qualify.LanguageSpanish: "Spanish",
	qualify.LanguageEnglish: "English",
	qualify.LanguageCatalan: "Catalan",
}

// BuildSystemPrompt renders the remote model's instructions for cfg in lang.
func BuildSystemPrompt(cfg qualify.Config, lang qualify.Language) string {
	name, ok := languageNames[lang]
	if !ok {
		name = languageNames[qualify.DefaultLanguage]
	}

	categories := make([]string, 0, len(qualify.Categories))
	for _, c := range qualify.Categories {
		categories = append(categories, string(c))
	}

	var minimums strings.Builder
	ranged := make([]qualify.Category, 0, len(cfg.BudgetRanges))
	for c := range cfg.BudgetRanges {
		ranged = append(ranged, c)
	}
	slices.Sort(ranged)
	for _, c := range ranged {
		fmt.Fprintf(&minimums, "- %s: %d €\n", c, cfg.BudgetRanges[c].Min)
	}
	minimums.WriteString("- any other type: no minimum")

	var b strings.Builder
	fmt.Fprintf(&b, "IMPORTANT: You MUST respond in %s. The \"displayText\" field MUST always be written in %s.\n\n", name, name)
	fmt.Fprintf(&b, qualifierPrompt,
		strings.Join(categories, ", "),
		strings.Join(cfg.CoveredCities, ", "),
		minimums.String(),
		cfg.BudgetBonusThreshold,
	)
	return b.String()
}
