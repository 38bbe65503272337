package qualify

import "fmt"

// Estimate is a rough price range for the lead's project.
type Estimate struct {
	Min int `json:"min,omitempty"`
	Max int `json:"max,omitempty"`
	// Basis is "client_budget", "per_unit", "per_m2", "category" or "consult".
	Basis string `json:"basis"`
}

type priceRange struct {
	// perUnit ranges apply when scope is known; flat ranges otherwise.
	perUnitMin, perUnitMax int
	flatMin, flatMax       int
	unitBasis              string
}

var priceRanges = map[Category]priceRange{
	CategoryFullRenovation: {perUnitMin: 800, perUnitMax: 1500, flatMin: 50000, flatMax: 180000, unitBasis: "per_m2"},
	CategoryKitchen:        {flatMin: 18000, flatMax: 60000},
	CategoryBathroom:       {flatMin: 12000, flatMax: 40000},
	CategoryPainting:       {flatMin: 2500, flatMax: 6000},
	CategoryFlooring:       {perUnitMin: 40, perUnitMax: 80, flatMin: 2000, flatMax: 15000, unitBasis: "per_m2"},
	CategoryWindows:        {perUnitMin: 350, perUnitMax: 900, unitBasis: "per_unit"},
	CategoryDoors:          {perUnitMin: 400, perUnitMax: 1200, unitBasis: "per_unit"},
}

// EstimatePrice reports the client's own budget when known, otherwise a range
// derived from the category and, where it scales, the scope.
func EstimatePrice(f Fields) Estimate {
	if budget, ok := f.Budget.Get(); ok {
		return Estimate{Min: budget, Max: budget, Basis: "client_budget"}
	}
	cat, ok := f.ProjectType.Get()
	if !ok {
		return Estimate{Basis: "consult"}
	}
	pr, ok := priceRanges[cat]
	if !ok {
		return Estimate{Basis: "consult"}
	}
	if scope, ok := f.Scope.Get(); ok && pr.unitBasis != "" {
		return Estimate{Min: scope * pr.perUnitMin, Max: scope * pr.perUnitMax, Basis: pr.unitBasis}
	}
	if pr.flatMax == 0 {
		return Estimate{Basis: "consult"}
	}
	return Estimate{Min: pr.flatMin, Max: pr.flatMax, Basis: "category"}
}

// Format renders the estimate for summaries and notifications.
func (e Estimate) Format(lang Language) string {
	switch {
	case e.Basis == "consult" || e.Max == 0:
		if lang == LanguageEnglish {
			return "to be assessed"
		}
		return "a consultar"
	case e.Min == e.Max:
		return FormatEuros(e.Min, lang)
	default:
		return fmt.Sprintf("%s - %s", FormatEuros(e.Min, lang), FormatEuros(e.Max, lang))
	}
}
