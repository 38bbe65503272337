package qualify

import "fmt"

// question pairs a dialogue step with the predicate that keeps it pending and
// the template that asks it. The list order is the precedence contract.
type question struct {
	step    Step
	pending func(s *State) bool
	render  func(s *State, p *phrasebook) string
}

var questions = []question{
	{
		step:    StepNeedProjectType,
		pending: func(s *State) bool { return s.ProjectType.IsUnknown() },
		render:  func(_ *State, p *phrasebook) string { return p.askProjectType },
	},
	{
		step:    StepNeedCity,
		pending: func(s *State) bool { return !s.City.IsResolved() },
		render: func(s *State, p *phrasebook) string {
			if s.CityRefusals > 0 {
				return p.cityClarify
			}
			return fmt.Sprintf(p.askCity, p.label(s))
		},
	},
	{
		step:    StepNeedScope,
		pending: func(s *State) bool { return s.Scope.IsUnknown() },
		render: func(s *State, p *phrasebook) string {
			if cat, ok := s.ProjectType.Get(); ok && cat.CountBased() {
				return fmt.Sprintf(p.askScopeUnits, s.City.Value, p.units[cat])
			}
			return fmt.Sprintf(p.askScopeArea, s.City.Value, p.label(s))
		},
	},
	{
		step:    StepNeedTimeline,
		pending: func(s *State) bool { return s.Timeline.IsUnknown() },
		render:  func(s *State, p *phrasebook) string { return fmt.Sprintf(p.askTimeline, p.label(s)) },
	},
	{
		step:    StepNeedBudget,
		pending: func(s *State) bool { return s.Budget.IsUnknown() },
		render:  func(s *State, p *phrasebook) string { return fmt.Sprintf(p.askBudget, p.label(s)) },
	},
	{
		step:    StepNeedContact,
		pending: func(s *State) bool { return !s.ContactAnswered() },
		render: func(s *State, p *phrasebook) string {
			if name, ok := s.ContactName.Get(); ok {
				return fmt.Sprintf(p.askContactNamed, name)
			}
			return p.askContact
		},
	},
	{
		step:    StepNeedCallbackConsent,
		pending: func(s *State) bool { return s.WantsCallback.IsUnknown() },
		render: func(s *State, p *phrasebook) string {
			if s.CallbackRefusedOnce {
				return p.callbackReask
			}
			return p.askCallback
		},
	},
}

// NextStep returns the first step whose field is still unanswered. A refused
// field counts as answered, except the city which only a value resolves.
func NextStep(s *State) Step {
	if s.Disqualified != DisqualifyNone {
		return StepDisqualified
	}
	for _, q := range questions {
		if q.pending(s) {
			return q.step
		}
	}
	return StepComplete
}

// Question renders the question for the state's next step, or "" when the
// conversation is over.
func Question(s *State, lang Language) string {
	step := NextStep(s)
	p := phrasebookFor(lang)
	for _, q := range questions {
		if q.step == step {
			return q.render(s, p)
		}
	}
	return ""
}

// Closing renders the terminal message for a finished or disqualified state.
func Closing(s *State, lang Language, cfg Config) string {
	p := phrasebookFor(lang)
	switch {
	case s.Disqualified == DisqualifyUncoveredCity:
		return fmt.Sprintf(p.outOfCoverage, s.City.Value)
	case s.Disqualified == DisqualifyLowBudget:
		return fmt.Sprintf(p.budgetTooLow, p.label(s), FormatEuros(cfg.MinBudget(s.ProjectType.Value), lang))
	case s.DoNotContact:
		return p.closingNoContact
	}
	name := ""
	if n, ok := s.ContactName.Get(); ok {
		name = ", " + n
	}
	return fmt.Sprintf(p.closing, name, p.label(s), s.City.Value)
}
