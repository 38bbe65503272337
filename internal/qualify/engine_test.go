package qualify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type turn struct {
	say      string
	wantStep Step
}

func runTurns(t *testing.T, e *Engine, lang Language, turns []turn) (*State, Outcome) {
	t.Helper()
	s := NewState()
	var out Outcome
	for i, tr := range turns {
		out = e.Apply(&s, tr.say, lang)
		require.Equal(t, tr.wantStep, out.Step, "turn %d %q", i, tr.say)
		require.Equal(t, s.Step, out.Step)
	}
	return &s, out
}

func TestEngineHappyPathSpanish(t *testing.T) {
	e := NewEngine(DefaultConfig())
	s, out := runTurns(t, e, LanguageSpanish, []turn{
		{"Quiero reformar mi cocina en Barcelona", StepNeedScope},
		{"Unos 15 metros", StepNeedTimeline},
		{"En verano", StepNeedBudget},
		{"Unos 30.000 euros", StepNeedContact},
		{"Me llamo Ana García, mi teléfono es +34 612 345 678", StepNeedCallbackConsent},
		{"Sí, claro", StepComplete},
	})

	assert.Equal(t, Known(CategoryKitchen), s.ProjectType)
	assert.Equal(t, Known("Barcelona"), s.City)
	assert.Equal(t, Known(15), s.Scope)
	assert.Equal(t, Known(TimelineSummer), s.Timeline)
	assert.Equal(t, Known(30000), s.Budget)
	assert.Equal(t, Known("Ana García"), s.ContactName)
	assert.Equal(t, Known(true), s.WantsCallback)
	assert.Equal(t, 90, s.Score)
	assert.Equal(t, 1, s.Tier)
	assert.Empty(t, out.NextQuestion)
	assert.Contains(t, out.DisplayText, "Muchas gracias, Ana García")
	assert.Contains(t, out.DisplayText, "Barcelona")
}

func TestEngineFirstTurnAsksScopeWithCity(t *testing.T) {
	e := NewEngine(DefaultConfig())
	s := NewState()
	out := e.Apply(&s, "Quiero reformar mi cocina en Barcelona", LanguageSpanish)

	assert.Equal(t, StepNeedScope, out.Step)
	assert.Equal(t, 30, out.Result.Score)
	assert.Equal(t, 4, out.Result.Tier)
	assert.Contains(t, out.NextQuestion, "Barcelona")
	assert.Contains(t, out.NextQuestion, "metros cuadrados")
}

func TestEngineYearInTimelineIsNotABudget(t *testing.T) {
	e := NewEngine(DefaultConfig())
	s, _ := runTurns(t, e, LanguageSpanish, []turn{
		{"Quiero reformar mi cocina en Barcelona", StepNeedScope},
		{"Unos 15 metros", StepNeedTimeline},
		{"Queremos empezar en septiembre de 2026", StepNeedBudget},
		{"Unos 30.000 euros", StepNeedContact},
	})
	assert.Equal(t, Known("september"), s.Timeline)
	assert.Equal(t, Known(30000), s.Budget)
	assert.Equal(t, DisqualifyNone, s.Disqualified)
}

func TestEngineCountBesideCityIsNotAScope(t *testing.T) {
	tests := []struct {
		name string
		lang Language
		say  string
	}{
		{"spanish", LanguageSpanish, "Quiero reformar 2 baños en Barcelona"},
		{"catalan", LanguageCatalan, "Vull reformar 2 banys a Barcelona"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewEngine(DefaultConfig())
			s, _ := runTurns(t, e, tt.lang, []turn{
				{tt.say, StepNeedScope},
				{"8", StepNeedTimeline},
			})
			assert.Equal(t, Known(CategoryBathroom), s.ProjectType)
			assert.Equal(t, Known("Barcelona"), s.City)
			assert.Equal(t, Known(8), s.Scope)
		})
	}
}

func TestEngineMultilingualEquivalence(t *testing.T) {
	e := NewEngine(DefaultConfig())
	utterances := map[Language]string{
		LanguageSpanish: "Quiero reformar el baño",
		LanguageEnglish: "I want to renovate my bathroom",
		LanguageCatalan: "Vull reformar el bany",
	}
	for lang, text := range utterances {
		t.Run(string(lang), func(t *testing.T) {
			s := NewState()
			out := e.Apply(&s, text, lang)
			assert.Equal(t, Known(CategoryBathroom), s.ProjectType)
			assert.Equal(t, StepNeedCity, out.Step)
			assert.Equal(t, 10, out.Result.Score)
			assert.Equal(t, Question(&s, lang), out.DisplayText)
		})
	}
}

func TestEngineUncoveredCity(t *testing.T) {
	e := NewEngine(DefaultConfig())
	s, out := runTurns(t, e, LanguageSpanish, []turn{
		{"Quiero reformar el baño", StepNeedCity},
		{"En Madrid", StepDisqualified},
	})
	assert.Equal(t, 5, s.Tier)
	assert.Equal(t, DisqualifyUncoveredCity, s.Disqualified)
	assert.Contains(t, out.DisplayText, "no trabajamos en Madrid")

	// Terminal states ignore further input.
	before := s.Clone()
	again := e.Apply(s, "bueno, y en Barcelona?", LanguageSpanish)
	assert.Equal(t, StepDisqualified, again.Step)
	assert.Equal(t, before, *s)
}

func TestEngineLowBudgetDisqualifies(t *testing.T) {
	e := NewEngine(DefaultConfig())
	s, out := runTurns(t, e, LanguageSpanish, []turn{
		{"Reforma integral del piso en Badalona", StepNeedScope},
		{"80 metros", StepNeedTimeline},
		{"Lo antes posible", StepNeedBudget},
		{"15000", StepDisqualified},
	})
	assert.Equal(t, 5, s.Tier)
	assert.Equal(t, scoreLowBudget, s.Score)
	assert.Contains(t, out.DisplayText, "50.000 €")
}

func TestEngineCityIsNeverRefused(t *testing.T) {
	e := NewEngine(DefaultConfig())
	s := NewState()
	e.Apply(&s, "Quiero reformar la cocina", LanguageSpanish)

	for i := 1; i <= 3; i++ {
		out := e.Apply(&s, "Prefiero no decirlo", LanguageSpanish)
		assert.Equal(t, StepNeedCity, out.Step)
		assert.Equal(t, RefusalCityClarify, out.Refusal)
		assert.True(t, s.City.IsUnknown())
		assert.Equal(t, i, s.CityRefusals)
		assert.Contains(t, out.DisplayText, "Solo necesitamos la ciudad")
	}

	out := e.Apply(&s, "Vale, en Sabadell", LanguageSpanish)
	assert.Equal(t, StepNeedScope, out.Step)
	assert.Equal(t, Known("Sabadell"), s.City)
}

func TestEngineCallbackDoubleRefusal(t *testing.T) {
	e := NewEngine(DefaultConfig())
	s, out := runTurns(t, e, LanguageEnglish, []turn{
		{"I need a new bathroom in Terrassa", StepNeedScope},
		{"about 6 square meters", StepNeedTimeline},
		{"in a couple of weeks", StepNeedBudget},
		{"around 20k", StepNeedContact},
		{"my email is ana@example.com", StepNeedCallbackConsent},
		{"no", StepNeedCallbackConsent},
		{"no thanks", StepComplete},
	})
	assert.True(t, s.DoNotContact)
	assert.Equal(t, Known(false), s.WantsCallback)
	assert.Equal(t, 0, s.Score)
	assert.Equal(t, 5, s.Tier)
	assert.Equal(t, RefusalDoNotContact, out.Refusal)
	assert.Contains(t, out.DisplayText, "we will not contact you")
}

func TestEngineRefusedFieldsStayRefused(t *testing.T) {
	e := NewEngine(DefaultConfig())
	s, _ := runTurns(t, e, LanguageSpanish, []turn{
		{"Quiero pintar el piso en Gavà", StepNeedScope},
		{"No lo sé", StepNeedTimeline},
		{"Unos 90 metros, cuanto antes", StepNeedBudget},
	})
	assert.True(t, s.Scope.IsRefused())
	assert.Equal(t, Known(TimelineASAP), s.Timeline)
}

func TestEngineRefusalAfterProgressIsIgnored(t *testing.T) {
	e := NewEngine(DefaultConfig())
	s, out := runTurns(t, e, LanguageSpanish, []turn{
		{"Reforma de baño en Terrassa", StepNeedScope},
		{"8 metros", StepNeedTimeline},
		{"En otoño", StepNeedBudget},
		{"20.000", StepNeedContact},
		{"No tengo email, pero mi móvil es +34 612 345 678", StepNeedCallbackConsent},
	})
	assert.Equal(t, RefusalNone, out.Refusal)
	assert.True(t, s.ContactEmail.IsUnknown())
	assert.Equal(t, Known("+34612345678"), s.ContactPhone)
}

func TestEngineContactCorrection(t *testing.T) {
	s := fullKitchenLead()
	s.Step = StepNeedCallbackConsent
	s.WantsCallback = Slot[bool]{}
	Merge(s, Update{ContactPhone: Known("+34699111222")})
	assert.Equal(t, Known("+34699111222"), s.ContactPhone)

	s.ContactEmail = RefusedSlot[string]()
	Merge(s, Update{ContactEmail: Known("new@example.com")})
	assert.Equal(t, Known("new@example.com"), s.ContactEmail)
}

func TestMergeIsAppendOnly(t *testing.T) {
	s := fullKitchenLead()
	s.Scope = RefusedSlot[int]()
	Merge(s, Update{
		ProjectType: Known(CategoryBathroom),
		City:        Known("Badalona"),
		Scope:       Known(40),
		Budget:      Known(90000),
	})
	assert.Equal(t, Known(CategoryKitchen), s.ProjectType)
	assert.Equal(t, Known("Barcelona"), s.City)
	assert.True(t, s.Scope.IsRefused())
	assert.Equal(t, Known(30000), s.Budget)

	fresh := NewState()
	Merge(&fresh, Update{City: RefusedSlot[string]()})
	assert.True(t, fresh.City.IsUnknown(), "city never takes the refusal sentinel")
}

func TestEngineApplyOnCloneLeavesOriginal(t *testing.T) {
	e := NewEngine(DefaultConfig())
	s := NewState()
	e.Apply(&s, "Quiero reformar la cocina", LanguageSpanish)

	snapshot := s.Clone()
	work := s.Clone()
	e.Apply(&work, "en Barcelona", LanguageSpanish)

	assert.Equal(t, snapshot, s)
	assert.Equal(t, Known("Barcelona"), work.City)
}

func TestGreetingAndQuestionFallBackToSpanish(t *testing.T) {
	assert.Equal(t, Greeting(LanguageSpanish), Greeting(Language("fr")))
	s := NewState()
	assert.Equal(t, Question(&s, LanguageSpanish), Question(&s, Language("de")))
}
