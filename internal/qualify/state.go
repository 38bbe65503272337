package qualify

import "slices"

// Category is the kind of renovation work a lead asks for.
type Category string

const (
	CategoryBathroom       Category = "bathroom"
	CategoryKitchen        Category = "kitchen"
	CategoryFullRenovation Category = "full_renovation"
	CategoryPainting       Category = "painting"
	CategoryFlooring       Category = "flooring"
	CategoryWindows        Category = "windows"
	CategoryDoors          Category = "doors"
	CategoryOther          Category = "other"
)

// Categories lists every category in lexicon precedence order.
var Categories = []Category{
	CategoryFullRenovation,
	CategoryBathroom,
	CategoryKitchen,
	CategoryPainting,
	CategoryFlooring,
	CategoryWindows,
	CategoryDoors,
	CategoryOther,
}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	return slices.Contains(Categories, c)
}

// CountBased reports whether the scope of c is measured in units rather than
// square meters.
func (c Category) CountBased() bool {
	return c == CategoryWindows || c == CategoryDoors
}

// Language is a supported conversation language.
type Language string

const (
	LanguageSpanish Language = "es"
	LanguageEnglish Language = "en"
	LanguageCatalan Language = "ca"
)

// DefaultLanguage is used when a caller passes an unsupported code.
const DefaultLanguage = LanguageSpanish

// Languages lists the supported languages, default first.
var Languages = []Language{LanguageSpanish, LanguageEnglish, LanguageCatalan}

// ParseLanguage normalizes a language code, falling back to DefaultLanguage.
func ParseLanguage(code string) Language {
	l := Language(fold(code))
	if len(l) > 2 {
		l = l[:2]
	}
	if slices.Contains(Languages, l) {
		return l
	}
	return DefaultLanguage
}

// Step is a dialogue state, named after the first unanswered field.
type Step string

const (
	StepNeedProjectType     Step = "need_project_type"
	StepNeedCity            Step = "need_city"
	StepNeedScope           Step = "need_scope"
	StepNeedTimeline        Step = "need_timeline"
	StepNeedBudget          Step = "need_budget"
	StepNeedContact         Step = "need_contact"
	StepNeedCallbackConsent Step = "need_callback_consent"
	StepComplete            Step = "complete"
	StepDisqualified        Step = "disqualified"
)

// Terminal reports whether no further questions follow s.
func (s Step) Terminal() bool {
	return s == StepComplete || s == StepDisqualified
}

// DisqualifyReason explains an early exit.
type DisqualifyReason string

const (
	DisqualifyNone          DisqualifyReason = ""
	DisqualifyUncoveredCity DisqualifyReason = "uncovered_city"
	DisqualifyLowBudget     DisqualifyReason = "budget_below_minimum"
)

// Fields is the slot snapshot frozen into a lead record.
type Fields struct {
	ProjectType   Slot[Category] `json:"projectType"`
	City          Slot[string]   `json:"city"`
	Scope         Slot[int]      `json:"scope"`
	Timeline      Slot[string]   `json:"timeline"`
	Budget        Slot[int]      `json:"budget"`
	ContactName   Slot[string]   `json:"contactName"`
	ContactPhone  Slot[string]   `json:"contactPhone"`
	ContactEmail  Slot[string]   `json:"contactEmail"`
	WantsCallback Slot[bool]     `json:"wantsCallback"`
	DoNotContact  bool           `json:"doNotContact"`
}

// HasContactChannel reports whether a phone or email was captured.
func (f Fields) HasContactChannel() bool {
	return f.ContactPhone.IsResolved() || f.ContactEmail.IsResolved()
}

// ContactAnswered reports whether the contact question no longer needs asking.
func (f Fields) ContactAnswered() bool {
	return f.HasContactChannel() || f.ContactPhone.IsRefused() || f.ContactEmail.IsRefused()
}

// State is the explicit per-conversation state. The caller owns it and passes
// it by reference into each turn; nothing here is shared across sessions.
type State struct {
	Fields

	// CallbackRefusedOnce is the escalation counter for the callback question.
	CallbackRefusedOnce bool `json:"callbackRefusedOnce,omitempty"`
	// CityRefusals counts declined answers to the location question.
	CityRefusals int `json:"cityRefusals,omitempty"`

	Disqualified DisqualifyReason `json:"disqualified,omitempty"`
	Step         Step             `json:"step"`
	Score        int              `json:"score"`
	Tier         int              `json:"tier"`
	Reasons      []string         `json:"reasons,omitempty"`
}

// NewState returns the state of a conversation that has not started.
func NewState() State {
	return State{Step: StepNeedProjectType, Tier: 5}
}

// Clone returns a deep copy, so a failed turn can be discarded without touching
// the original.
func (s State) Clone() State {
	s.Reasons = slices.Clone(s.Reasons)
	return s
}

// Terminal reports whether the conversation has ended.
func (s *State) Terminal() bool {
	return s.Step.Terminal()
}
