package qualify

import "fmt"

// Rule weights.
const (
	pointsProjectType  = 10
	pointsCoveredCity  = 20
	pointsScope        = 5
	pointsBudgetMin    = 25
	pointsBudgetBonus  = 15
	pointsTimeline     = 15
	penaltyTimeline    = -10
	pointsContact      = 10
	pointsCallbackOpt  = 5
	scoreUncoveredCity = 5
	scoreLowBudget     = 10
)

// Result is the output of the scoring engine.
type Result struct {
	Score        int              `json:"score"`
	Tier         int              `json:"tier"`
	Reasons      []string         `json:"reasons"`
	Disqualified DisqualifyReason `json:"disqualified,omitempty"`
}

// Score is a pure function of the state and configuration. Overrides win over
// the additive total: an opted-out lead scores (0, 5); an uncovered city or a
// budget under the category minimum scores low with tier 5.
func Score(s *State, cfg Config) Result {
	if s.DoNotContact {
		return Result{Score: 0, Tier: 5, Reasons: []string{"lead asked not to be contacted"}}
	}
	if reason := disqualification(s, cfg); reason != DisqualifyNone {
		r := Result{Tier: 5, Disqualified: reason}
		switch reason {
		case DisqualifyUncoveredCity:
			r.Score = scoreUncoveredCity
			r.Reasons = []string{fmt.Sprintf("city %s is outside the coverage area", s.City.Value)}
		case DisqualifyLowBudget:
			r.Score = scoreLowBudget
			r.Reasons = []string{fmt.Sprintf("budget %d is below the %d minimum for %s", s.Budget.Value, cfg.MinBudget(s.ProjectType.Value), s.ProjectType.Value)}
		}
		return r
	}

	var (
		score   int
		reasons []string
	)
	add := func(points int, reason string) {
		score += points
		reasons = append(reasons, reason)
	}

	if cat, ok := s.ProjectType.Get(); ok {
		add(pointsProjectType, fmt.Sprintf("project type identified (%s)", cat))
	}
	// A resolved city is covered here; anything else was disqualified above.
	if city, ok := s.City.Get(); ok {
		add(pointsCoveredCity, fmt.Sprintf("city %s is covered", city))
	}
	if _, ok := s.Scope.Get(); ok {
		add(pointsScope, "scope known")
	}
	if budget, ok := s.Budget.Get(); ok {
		add(pointsBudgetMin, "budget meets the category minimum")
		if cfg.BudgetBonusThreshold > 0 && budget >= cfg.BudgetBonusThreshold {
			add(pointsBudgetBonus, fmt.Sprintf("budget at or above %d", cfg.BudgetBonusThreshold))
		}
	}
	switch {
	case s.Timeline.IsResolved():
		add(pointsTimeline, "timeline defined")
	case s.Timeline.IsRefused():
		add(penaltyTimeline, "timeline refused")
	}
	if s.HasContactChannel() {
		add(pointsContact, "contact channel provided")
	}
	if yes, ok := s.WantsCallback.Get(); ok && yes {
		add(pointsCallbackOpt, "callback accepted")
	}

	score = clampScore(score)
	return Result{Score: score, Tier: TierFor(score), Reasons: reasons}
}

// disqualification re-derives the early-exit overrides from the fields so
// states produced elsewhere (a remote backend) obey them too.
func disqualification(s *State, cfg Config) DisqualifyReason {
	if s.Disqualified != DisqualifyNone {
		return s.Disqualified
	}
	if city, ok := s.City.Get(); ok && !cfg.IsCovered(city) {
		return DisqualifyUncoveredCity
	}
	cat, okCat := s.ProjectType.Get()
	budget, okBudget := s.Budget.Get()
	if okCat && okBudget && budget < cfg.MinBudget(cat) {
		return DisqualifyLowBudget
	}
	return DisqualifyNone
}

// TierFor buckets a score: >=80 is 1, >=60 is 2, >=40 is 3, >=20 is 4, else 5.
func TierFor(score int) int {
	score = clampScore(score)
	switch {
	case score >= 80:
		return 1
	case score >= 60:
		return 2
	case score >= 40:
		return 3
	case score >= 20:
		return 4
	default:
		return 5
	}
}

func clampScore(score int) int {
	return min(max(score, 0), 100)
}

// ClampTier forces a tier into [1, 5].
func ClampTier(tier int) int {
	return min(max(tier, 1), 5)
}

// ApplyScore stores r on the state.
func (s *State) ApplyScore(r Result) {
	s.Score = r.Score
	s.Tier = r.Tier
	s.Reasons = r.Reasons
	if r.Disqualified != DisqualifyNone {
		s.Disqualified = r.Disqualified
	}
}
