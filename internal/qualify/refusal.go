package qualify

import "strings"

// RefusalOutcome says what a detected refusal did to the state.
type RefusalOutcome uint8

const (
	RefusalNone RefusalOutcome = iota
	// RefusalSentinel marked the pending field as refused.
	RefusalSentinel
	// RefusalCityClarify kept the city unknown and asks again with context.
	RefusalCityClarify
	// RefusalCallbackReask absorbed a first callback refusal.
	RefusalCallbackReask
	// RefusalDoNotContact escalated a second callback refusal.
	RefusalDoNotContact
)

// shortReplyWords is the longest reply the negative-token heuristic considers.
const shortReplyWords = 4

// DetectRefusal reports whether utterance declines to answer. Curated phrases
// always count; a short reply carrying a negative token counts only when
// nothing else was extracted from it.
func DetectRefusal(utterance string, lang Language, u Update) bool {
	folded := fold(utterance)
	if folded == "" {
		return false
	}
	for _, l := range fallbackOrder(lang) {
		if firstPhrase(folded, refusalPhrases[l]) >= 0 {
			return true
		}
	}
	if !u.Empty() || len(strings.Fields(folded)) > shortReplyWords {
		return false
	}
	for _, l := range withDefault(lang) {
		if firstPhrase(folded, negativeTokens[l]) >= 0 {
			return true
		}
	}
	return false
}

// ApplyRefusal assigns the refusal to the first unanswered field in
// precedence order. The city is never refused: the question is asked again.
// The callback question absorbs one refusal before opting the lead out.
func ApplyRefusal(s *State) RefusalOutcome {
	switch NextStep(s) {
	case StepNeedProjectType:
		s.ProjectType = RefusedSlot[Category]()
	case StepNeedCity:
		s.CityRefusals++
		return RefusalCityClarify
	case StepNeedScope:
		s.Scope = RefusedSlot[int]()
	case StepNeedTimeline:
		s.Timeline = RefusedSlot[string]()
	case StepNeedBudget:
		s.Budget = RefusedSlot[int]()
	case StepNeedContact:
		s.ContactPhone = RefusedSlot[string]()
		s.ContactEmail = RefusedSlot[string]()
		if s.ContactName.IsUnknown() {
			s.ContactName = RefusedSlot[string]()
		}
	case StepNeedCallbackConsent:
		return RefuseCallback(s)
	default:
		return RefusalNone
	}
	return RefusalSentinel
}

// RefuseCallback records one declined callback question. The first refusal is
// absorbed; the second opts the lead out.
func RefuseCallback(s *State) RefusalOutcome {
	if !s.CallbackRefusedOnce {
		s.CallbackRefusedOnce = true
		return RefusalCallbackReask
	}
	s.WantsCallback = Known(false)
	s.DoNotContact = true
	return RefusalDoNotContact
}
