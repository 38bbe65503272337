package qualify

// Outcome is everything one turn produced besides the mutated state.
type Outcome struct {
	DisplayText  string
	NextQuestion string
	Step         Step
	Result       Result
	Refusal      RefusalOutcome
	// Asked is the step that was pending before the turn.
	Asked Step
}

// Engine runs turns with the deterministic extractor. It holds no per-session
// state and is safe for concurrent use.
type Engine struct {
	cfg Config
}

// NewEngine returns an engine bound to cfg.
func NewEngine(cfg Config) *Engine {
	return &Engine{cfg: cfg}
}

// Config returns the qualification config the engine scores against.
func (e *Engine) Config() Config {
	return e.cfg
}

// Apply runs one utterance through extraction, refusal handling, scoring and
// the dialogue controller, mutating s in place. Callers that need atomic turns
// pass a clone.
func (e *Engine) Apply(s *State, utterance string, lang Language) Outcome {
	asked := NextStep(s)
	if asked.Terminal() {
		s.Step = asked
		return Outcome{
			DisplayText: Closing(s, lang, e.cfg),
			Step:        asked,
			Asked:       asked,
			Result:      Result{Score: s.Score, Tier: s.Tier, Reasons: s.Reasons, Disqualified: s.Disqualified},
		}
	}
	s.Step = asked

	u := Extract(utterance, lang, s, e.cfg)
	Merge(s, u)

	refusal := RefusalNone
	if u.Disqualify == DisqualifyNone {
		if yes, ok := u.Consent.Get(); ok && !yes {
			refusal = RefuseCallback(s)
		} else if NextStep(s) == asked && DetectRefusal(utterance, lang, u) {
			refusal = ApplyRefusal(s)
		}
	}

	r := Score(s, e.cfg)
	s.ApplyScore(r)
	s.Step = NextStep(s)

	out := Outcome{Step: s.Step, Result: r, Refusal: refusal, Asked: asked}
	if s.Step.Terminal() {
		out.DisplayText = Closing(s, lang, e.cfg)
		return out
	}
	out.NextQuestion = Question(s, lang)
	out.DisplayText = out.NextQuestion
	return out
}

// Merge applies an update with append-only semantics: a slot is written only
// while it is unknown, so refused and resolved values stay put. Contact fields
// are the exception and accept any newly detected value. The city is never
// written as refused.
func Merge(s *State, u Update) {
	if u.Disqualify != DisqualifyNone {
		s.Disqualified = u.Disqualify
	}
	mergeSlot(&s.ProjectType, u.ProjectType)
	if !u.City.IsRefused() {
		mergeSlot(&s.City, u.City)
	}
	mergeSlot(&s.Scope, u.Scope)
	mergeSlot(&s.Timeline, u.Timeline)
	mergeSlot(&s.Budget, u.Budget)

	correctSlot(&s.ContactName, u.ContactName)
	correctSlot(&s.ContactPhone, u.ContactPhone)
	correctSlot(&s.ContactEmail, u.ContactEmail)

	if yes, ok := u.Consent.Get(); ok && yes && s.WantsCallback.IsUnknown() && !s.DoNotContact {
		s.WantsCallback = Known(true)
	}
}

func mergeSlot[T comparable](dst *Slot[T], src Slot[T]) {
	if dst.IsUnknown() && !src.IsUnknown() {
		*dst = src
	}
}

func correctSlot[T comparable](dst *Slot[T], src Slot[T]) {
	if src.IsResolved() {
		*dst = src
		return
	}
	mergeSlot(dst, src)
}
