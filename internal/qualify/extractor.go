package qualify

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/nyaruka/phonenumbers"
	"golang.org/x/text/unicode/norm"
)

// Update is the partial field update guessed from one utterance. Unknown
// slots mean "no update"; extraction misses are not errors.
type Update struct {
	ProjectType  Slot[Category]
	City         Slot[string]
	Scope        Slot[int]
	Timeline     Slot[string]
	Budget       Slot[int]
	ContactName  Slot[string]
	ContactPhone Slot[string]
	ContactEmail Slot[string]
	// Consent is a yes/no answer to the callback question.
	Consent    Slot[bool]
	Disqualify DisqualifyReason
}

// Empty reports whether nothing was extracted.
func (u Update) Empty() bool {
	return u == Update{}
}

const (
	// scopeAreaLimit is the exclusive upper bound for a number read as square meters.
	scopeAreaLimit = 500
	// scopeUnitsMax bounds a number read as a window or door count.
	scopeUnitsMax = 99
	// budgetFloor is the smallest number read as a currency amount.
	budgetFloor = 1000
	// maxAmount bounds any number read from an utterance.
	maxAmount = 1_000_000_000
	// phoneRegion is the default region for numbers without a country code.
	phoneRegion = "ES"
)

// ---------- package-level compiled regexes ----------

var (
	phoneRE  = regexp.MustCompile(`(?:\+|00)?(?:34[\s.-]?)?\d{3}[\s.-]?\d{3}[\s.-]?\d{3}\b|(?:\+|00)?(?:34[\s.-]?)?\d{3}[\s.-]?\d{2}[\s.-]?\d{2}[\s.-]?\d{2}\b`)
	emailRE  = regexp.MustCompile(`[\w.+-]+@[\w-]+(?:\.[\w-]+)+`)
	numberRE = regexp.MustCompile(`(\d{1,3}(?:[.,]\d{3})+|\d+)(?:\s*(k|mil)\b)?`)
	// moreRE matches the Catalan "més" (more), which folds to "mes" (month).
	moreRE = regexp.MustCompile(`(?i)\bmés\b`)
)

// Extract turns one utterance into field guesses, using the current state to
// disambiguate numbers. It never fails and never mutates s.
func Extract(utterance string, lang Language, s *State, cfg Config) Update {
	var u Update
	folded := fold(utterance)
	if folded == "" {
		return u
	}

	// ---------- location ----------
	if s.City.IsUnknown() {
		if city, ok := cfg.CoveredCity(utterance); ok {
			u.City = Known(city)
		} else if name, ok := detectUncoveredCity(folded); ok {
			return Update{City: Known(name), Disqualify: DisqualifyUncoveredCity}
		}
	}

	// ---------- project type ----------
	if s.ProjectType.IsUnknown() {
		if cat, ok := detectCategory(folded, lang); ok {
			u.ProjectType = Known(cat)
		}
	}

	// ---------- contact ----------
	phone, email := detectPhone(utterance), detectEmail(utterance)
	if phone != "" {
		u.ContactPhone = Known(phone)
	}
	if email != "" {
		u.ContactEmail = Known(email)
	}
	if name := detectName(utterance, lang); name != "" {
		u.ContactName = Known(name)
	}

	// ---------- timeline ----------
	if s.Timeline.IsUnknown() {
		if label, ok := detectTimeline(foldTimeline(utterance), lang); ok {
			u.Timeline = Known(label)
		}
	}

	// ---------- numbers ----------
	// Only fields resolved before this utterance decide what a number means,
	// so "2 baños en Barcelona" is not a scope and "septiembre de 2026" is not
	// a budget.
	numeric := emailRE.ReplaceAllString(phoneRE.ReplaceAllString(utterance, " "), " ")
	if n, ok := firstInteger(fold(numeric)); ok {
		cat := s.ProjectType
		if cat.IsUnknown() {
			cat = u.ProjectType
		}

		switch {
		case s.Scope.IsUnknown() && s.City.IsResolved() && scopeCandidate(n, cat):
			u.Scope = Known(n)
		case s.Scope.Answered() && s.Timeline.Answered() && s.Budget.IsUnknown() && n >= budgetFloor:
			u.Budget = Known(n)
			if c, ok := cat.Get(); ok && n < cfg.MinBudget(c) {
				u.Disqualify = DisqualifyLowBudget
			}
		}
	}

	// ---------- callback consent ----------
	if s.Step == StepNeedCallbackConsent && s.WantsCallback.IsUnknown() {
		if yes, ok := detectYesNo(folded, lang); ok {
			u.Consent = Known(yes)
		}
	}

	return u
}

func scopeCandidate(n int, cat Slot[Category]) bool {
	if c, ok := cat.Get(); ok && c.CountBased() {
		return n >= 1 && n <= scopeUnitsMax
	}
	return n > 0 && n < scopeAreaLimit
}

func detectUncoveredCity(folded string) (string, bool) {
	for _, c := range uncoveredCities {
		if containsPhrase(folded, c.phrase) {
			return c.name, true
		}
	}
	return "", false
}

// detectCategory tries keyword tables in every language before falling back
// to the generic action verbs.
func detectCategory(folded string, lang Language) (Category, bool) {
	order := fallbackOrder(lang)
	for _, l := range order {
		if cat, ok := matchCategory(folded, l); ok {
			return cat, true
		}
	}
	for _, l := range order {
		if genericVerbPatterns[l].MatchString(folded) {
			return CategoryOther, true
		}
	}
	return "", false
}

// detectTimeline checks the active language, then the default language.
// foldTimeline folds text for timeline matching with "més" rewritten as its
// Spanish form "mas", so "vull més informació" does not read as a month.
func foldTimeline(text string) string {
	return fold(moreRE.ReplaceAllString(norm.NFC.String(text), "mas"))
}

func detectTimeline(folded string, lang Language) (string, bool) {
	for _, l := range withDefault(lang) {
		for _, rules := range [][]timelineRule{timelineRules[l], monthNames[l]} {
			for _, r := range rules {
				if containsPhrase(folded, r.phrase) {
					return r.label, true
				}
			}
		}
	}
	return "", false
}

// detectYesNo returns the answer whose marker appears first in the utterance.
func detectYesNo(folded string, lang Language) (bool, bool) {
	for _, l := range withDefault(lang) {
		yes := firstPhrase(folded, affirmatives[l])
		no := firstPhrase(folded, negatives[l])
		switch {
		case yes >= 0 && (no < 0 || yes < no):
			return true, true
		case no >= 0:
			return false, true
		}
	}
	return false, false
}

func detectPhone(text string) string {
	m := phoneRE.FindString(text)
	if m == "" {
		return ""
	}
	return normalizePhone(m)
}

// normalizePhone formats to E.164, keeping bare digits when the number does
// not validate.
func normalizePhone(raw string) string {
	number, err := phonenumbers.Parse(raw, phoneRegion)
	if err == nil && phonenumbers.IsValidNumber(number) {
		return phonenumbers.Format(number, phonenumbers.E164)
	}
	var b strings.Builder
	for _, r := range raw {
		if r == '+' || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func detectEmail(text string) string {
	return strings.ToLower(emailRE.FindString(text))
}

func detectName(text string, lang Language) string {
	for _, l := range withDefault(lang) {
		m := namePatterns[l].FindStringSubmatch(text)
		if m == nil {
			continue
		}
		name := strings.TrimSpace(m[1])
		first, _, _ := strings.Cut(name, " ")
		if _, stop := nameStopwords[strings.ToLower(first)]; stop {
			continue
		}
		return titleCase(name)
	}
	return ""
}

func titleCase(name string) string {
	parts := strings.Fields(name)
	for i, p := range parts {
		r := []rune(strings.ToLower(p))
		r[0] = []rune(strings.ToUpper(string(r[0])))[0]
		parts[i] = string(r)
	}
	return strings.Join(parts, " ")
}

// firstInteger reads the first integer token, accepting "15.000", "15,000",
// "15k" and "15 mil".
func firstInteger(folded string) (int, bool) {
	m := numberRE.FindStringSubmatch(folded)
	if m == nil {
		return 0, false
	}
	digits := strings.NewReplacer(".", "", ",", "").Replace(m[1])
	n, err := strconv.Atoi(digits)
	if err != nil || n > maxAmount {
		return 0, false
	}
	if m[2] != "" {
		if n > maxAmount/1000 {
			return 0, false
		}
		n *= 1000
	}
	return n, true
}

// ParseAmount reads the first integer in free text, e.g. "30.000 €" or "45k".
func ParseAmount(text string) (int, bool) {
	return firstInteger(fold(text))
}

// NormalizePhone formats a phone number to E.164 with Spain as the default
// region.
func NormalizePhone(raw string) string {
	return normalizePhone(raw)
}

func withDefault(lang Language) []Language {
	if lang == DefaultLanguage {
		return []Language{lang}
	}
	return []Language{lang, DefaultLanguage}
}
