package qualify

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// lexKey addresses the keyword table by language and category.
type lexKey struct {
	lang Language
	cat  Category
}

// categoryKeywords is the single keyword table for project types. Entries are
// stored folded (lower case, no accents) and matched as whole phrases, so
// "terra" never fires inside "Terrassa". Plural forms are listed explicitly.
var categoryKeywords = map[lexKey][]string{
	{LanguageSpanish, CategoryFullRenovation}: {"reforma integral", "reforma completa", "piso entero", "todo el piso", "casa entera", "toda la casa", "integral"},
	{LanguageSpanish, CategoryBathroom}:       {"bano", "banos", "aseo", "aseos", "ducha", "plato de ducha"},
	{LanguageSpanish, CategoryKitchen}:        {"cocina", "cocinas"},
	{LanguageSpanish, CategoryPainting}:       {"pintura", "pintar", "pintado"},
	{LanguageSpanish, CategoryFlooring}:       {"suelo", "suelos", "parquet", "tarima", "pavimento"},
	{LanguageSpanish, CategoryWindows}:        {"ventana", "ventanas", "cerramiento", "cerramientos"},
	{LanguageSpanish, CategoryDoors}:          {"puerta", "puertas"},

	{LanguageEnglish, CategoryFullRenovation}: {"full renovation", "complete renovation", "whole flat", "whole apartment", "whole house", "entire flat", "entire apartment", "entire home", "full refurbishment", "full refurb"},
	{LanguageEnglish, CategoryBathroom}:       {"bathroom", "bathrooms", "shower", "toilet", "restroom"},
	{LanguageEnglish, CategoryKitchen}:        {"kitchen", "kitchens"},
	{LanguageEnglish, CategoryPainting}:       {"painting", "paint", "repaint"},
	{LanguageEnglish, CategoryFlooring}:       {"floor", "floors", "flooring", "parquet", "laminate"},
	{LanguageEnglish, CategoryWindows}:        {"window", "windows"},
	{LanguageEnglish, CategoryDoors}:          {"door", "doors"},

	{LanguageCatalan, CategoryFullRenovation}: {"reforma integral", "reforma completa", "pis sencer", "tot el pis", "casa sencera", "tota la casa", "integral"},
	{LanguageCatalan, CategoryBathroom}:       {"bany", "banys", "lavabo", "dutxa"},
	{LanguageCatalan, CategoryKitchen}:        {"cuina", "cuines"},
	{LanguageCatalan, CategoryPainting}:       {"pintura", "pintar"},
	{LanguageCatalan, CategoryFlooring}:       {"terra", "terres", "parquet", "paviment"},
	{LanguageCatalan, CategoryWindows}:        {"finestra", "finestres"},
	{LanguageCatalan, CategoryDoors}:          {"porta", "portes"},
}

// genericVerbPatterns classify an otherwise unmatched request as CategoryOther.
var genericVerbPatterns = map[Language]*regexp.Regexp{
	LanguageSpanish: regexp.MustCompile(`\b(cambiar|arreglar|reparar|necesito|necesitamos|quiero|queremos|reformar|renovar|instalar|hacer una obra|obra)\b`),
	LanguageEnglish: regexp.MustCompile(`\b(change|fix|repair|need|want|renovate|refurbish|install|redo|remodel)\b`),
	LanguageCatalan: regexp.MustCompile(`\b(canviar|arreglar|reparar|necessito|necessitem|vull|volem|reformar|renovar|instal·lar|installar|obra)\b`),
}

type timelineRule struct {
	phrase string
	label  string
}

// Normalized timeline labels.
const (
	TimelineASAP      = "as soon as possible"
	TimelineWeeks     = "1-2 weeks"
	TimelineMonths    = "1-3 months"
	TimelineSummer    = "summer"
	TimelineAutumn    = "autumn"
	TimelineWinter    = "winter"
	TimelineSpring    = "spring"
	TimelineThisYear  = "this year"
	TimelineNextYear  = "next year"
	TimelineUndecided = "no fixed date"
)

// timelineRules are ordered: urgency first, then relative dates, seasons and
// months.
var timelineRules = map[Language][]timelineRule{
	LanguageSpanish: {
		{"cuanto antes", TimelineASAP}, {"lo antes posible", TimelineASAP}, {"urgente", TimelineASAP},
		{"ya mismo", TimelineASAP}, {"inmediatamente", TimelineASAP}, {"ya", TimelineASAP},
		{"semana", TimelineWeeks}, {"semanas", TimelineWeeks},
		{"mes", TimelineMonths}, {"meses", TimelineMonths},
		{"verano", TimelineSummer}, {"otono", TimelineAutumn}, {"invierno", TimelineWinter}, {"primavera", TimelineSpring},
		{"ano que viene", TimelineNextYear}, {"proximo ano", TimelineNextYear}, {"este ano", TimelineThisYear},
		{"sin prisa", TimelineUndecided}, {"no tengo prisa", TimelineUndecided}, {"mas adelante", TimelineUndecided},
	},
	LanguageEnglish: {
		{"as soon as possible", TimelineASAP}, {"asap", TimelineASAP}, {"urgent", TimelineASAP},
		{"urgently", TimelineASAP}, {"right away", TimelineASAP}, {"immediately", TimelineASAP},
		{"week", TimelineWeeks}, {"weeks", TimelineWeeks},
		{"month", TimelineMonths}, {"months", TimelineMonths},
		{"summer", TimelineSummer}, {"autumn", TimelineAutumn}, {"winter", TimelineWinter}, {"spring", TimelineSpring},
		{"next year", TimelineNextYear}, {"this year", TimelineThisYear},
		{"no rush", TimelineUndecided}, {"no hurry", TimelineUndecided}, {"later on", TimelineUndecided},
	},
	LanguageCatalan: {
		{"com abans millor", TimelineASAP}, {"el mes aviat possible", TimelineASAP}, {"el mas aviat possible", TimelineASAP}, {"urgent", TimelineASAP},
		{"immediatament", TimelineASAP}, {"ja", TimelineASAP}, {"ara", TimelineASAP},
		{"sense pressa", TimelineUndecided}, {"mes endavant", TimelineUndecided}, {"mas endavant", TimelineUndecided},
		{"setmana", TimelineWeeks}, {"setmanes", TimelineWeeks},
		{"mes", TimelineMonths}, {"mesos", TimelineMonths},
		{"estiu", TimelineSummer}, {"tardor", TimelineAutumn}, {"hivern", TimelineWinter}, {"primavera", TimelineSpring},
		{"any que ve", TimelineNextYear}, {"proper any", TimelineNextYear}, {"aquest any", TimelineThisYear},
	},
}

// monthNames map folded month names to the English label.
var monthNames = map[Language][]timelineRule{
	LanguageSpanish: monthRules("enero", "febrero", "marzo", "abril", "mayo", "junio", "julio", "agosto", "septiembre", "octubre", "noviembre", "diciembre"),
	LanguageEnglish: monthRules("january", "february", "march", "april", "may", "june", "july", "august", "september", "october", "november", "december"),
	LanguageCatalan: monthRules("gener", "febrer", "marc", "abril", "maig", "juny", "juliol", "agost", "setembre", "octubre", "novembre", "desembre"),
}

var englishMonths = []string{"january", "february", "march", "april", "may", "june", "july", "august", "september", "october", "november", "december"}

// monthRules skips the English "may", which is far more often a modal verb.
func monthRules(names ...string) []timelineRule {
	rules := make([]timelineRule, 0, len(names))
	for i, n := range names {
		if n == "may" {
			continue
		}
		rules = append(rules, timelineRule{phrase: n, label: englishMonths[i]})
	}
	return rules
}

// yes/no lexicons for the callback consent question.
var (
	affirmatives = map[Language][]string{
		LanguageSpanish: {"si", "claro", "por supuesto", "vale", "de acuerdo", "correcto", "perfecto", "adelante", "sin problema", "llamadme", "llamame"},
		LanguageEnglish: {"yes", "yeah", "yep", "sure", "of course", "ok", "okay", "please do", "absolutely", "call me", "go ahead"},
		LanguageCatalan: {"si", "i tant", "es clar", "d'acord", "vale", "perfecte", "endavant", "truqueu-me", "truca'm"},
	}
	negatives = map[Language][]string{
		LanguageSpanish: {"no", "nunca", "ni hablar", "mejor no", "prefiero que no", "no me llameis", "no me llames"},
		LanguageEnglish: {"no", "nope", "nah", "never", "rather not", "do not call", "don't call"},
		LanguageCatalan: {"no", "mai", "millor que no", "no em truqueu"},
	}
)

// refusalPhrases are curated "I don't know / won't say" answers.
var refusalPhrases = map[Language][]string{
	LanguageSpanish: {"no lo se", "no se", "ni idea", "prefiero no", "no quiero decir", "no quiero dar", "no quiero decirlo", "no te lo voy a decir", "no estoy seguro", "no estoy segura", "no puedo decir", "paso", "no tengo", "sin definir", "no lo tengo claro", "prefiero no decirlo"},
	LanguageEnglish: {"don't know", "dont know", "do not know", "no idea", "not sure", "rather not", "prefer not", "won't say", "wont say", "skip", "pass", "no comment", "not telling", "i'd rather not say", "none of your business"},
	LanguageCatalan: {"no ho se", "no se", "ni idea", "prefereixo no", "no vull dir", "no ho vull dir", "passo", "no estic segur", "no estic segura", "no en tinc", "no ho tinc clar"},
}

// negativeTokens drive the short-reply refusal heuristic.
var negativeTokens = map[Language][]string{
	LanguageSpanish: {"no", "nada", "ninguno", "ninguna", "nunca", "nop"},
	LanguageEnglish: {"no", "nope", "nah", "none", "nothing", "never", "n/a"},
	LanguageCatalan: {"no", "res", "cap", "mai", "gens"},
}

// namePatterns capture a first name, optionally followed by a capitalized
// surname. Only the opener is case-insensitive. They run on the original text
// to keep accents.
var namePatterns = map[Language]*regexp.Regexp{
	LanguageSpanish: regexp.MustCompile(`\b(?i:me llamo|mi nombre es|soy)\s+(\p{L}+(?:\s+\p{Lu}\p{L}+)?)`),
	LanguageEnglish: regexp.MustCompile(`\b(?i:my name is|my name's|i'm called|i am called)\s+(\p{L}+(?:\s+\p{Lu}\p{L}+)?)`),
	LanguageCatalan: regexp.MustCompile(`\b(?i:em dic|el meu nom [eé]s|s[oó]c)\s+(\p{L}+(?:\s+\p{Lu}\p{L}+)?)`),
}

// nameStopwords are words that follow "soy"/"I am" without being names.
var nameStopwords = map[string]struct{}{
	"de": {}, "del": {}, "el": {}, "la": {}, "un": {}, "una": {}, "el/la": {}, "propietario": {}, "propietaria": {},
	"from": {}, "the": {}, "a": {}, "an": {}, "interested": {}, "looking": {}, "owner": {}, "not": {}, "calling": {}, "going": {},
	"thinking": {}, "planning": {}, "sure": {}, "in": {}, "at": {}, "on": {}, "of": {},
	"d": {}, "en": {}, "al": {}, "i": {}, "molt": {}, "muy": {}, "yo": {}, "jo": {}, "cliente": {}, "client": {},
}

// uncoveredCities are known major cities outside the service area, keyed by
// folded spelling.
var uncoveredCities = []struct {
	phrase string
	name   string
}{
	{"madrid", "Madrid"},
	{"valencia", "Valencia"},
	{"sevilla", "Sevilla"},
	{"seville", "Sevilla"},
	{"bilbao", "Bilbao"},
	{"malaga", "Málaga"},
	{"zaragoza", "Zaragoza"},
	{"saragossa", "Zaragoza"},
}

// fallbackOrder returns lang followed by the other supported languages.
func fallbackOrder(lang Language) []Language {
	order := []Language{lang}
	for _, l := range Languages {
		if l != lang {
			order = append(order, l)
		}
	}
	return order
}

// ParseCategory maps a canonical category name or any lexicon keyword in any
// language to a Category.
func ParseCategory(name string) (Category, bool) {
	folded := fold(name)
	if c := Category(strings.ReplaceAll(folded, " ", "_")); c.Valid() {
		return c, true
	}
	for _, lang := range Languages {
		if c, ok := matchCategory(folded, lang); ok {
			return c, true
		}
	}
	switch folded {
	case "otro", "otros", "altre", "altres", "others":
		return CategoryOther, true
	}
	return "", false
}

// matchCategory looks up folded text in one language's keyword table.
func matchCategory(folded string, lang Language) (Category, bool) {
	for _, cat := range Categories {
		for _, kw := range categoryKeywords[lexKey{lang, cat}] {
			if containsPhrase(folded, kw) {
				return cat, true
			}
		}
	}
	return "", false
}

// firstPhrase returns the earliest position at which any of phrases occurs in
// folded, or -1.
func firstPhrase(folded string, phrases []string) int {
	best := -1
	for _, p := range phrases {
		if i := phraseIndex(folded, p); i >= 0 && (best < 0 || i < best) {
			best = i
		}
	}
	return best
}

func containsPhrase(text, phrase string) bool {
	return phraseIndex(text, phrase) >= 0
}

// phraseIndex finds phrase in text on word boundaries.
func phraseIndex(text, phrase string) int {
	if phrase == "" {
		return -1
	}
	for start := 0; start <= len(text)-len(phrase); {
		i := strings.Index(text[start:], phrase)
		if i < 0 {
			return -1
		}
		i += start
		if boundaryBefore(text, i) && boundaryAfter(text, i+len(phrase)) {
			return i
		}
		start = i + 1
	}
	return -1
}

func boundaryBefore(text string, i int) bool {
	if i == 0 {
		return true
	}
	r, _ := utf8.DecodeLastRuneInString(text[:i])
	return !isWordRune(r)
}

func boundaryAfter(text string, end int) bool {
	if end >= len(text) {
		return true
	}
	r, _ := utf8.DecodeRuneInString(text[end:])
	return !isWordRune(r)
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}
