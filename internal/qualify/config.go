package qualify

import (
	"errors"
	"fmt"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// BudgetRange holds the minimum budget accepted for a category.
type BudgetRange struct {
	Min int `json:"min" yaml:"min"`
}

// Config is the caller-supplied qualification configuration.
type Config struct {
	CoveredCities        []string                 `json:"coveredCities" yaml:"coveredCities"`
	BudgetRanges         map[Category]BudgetRange `json:"budgetRanges" yaml:"budgetRanges"`
	BudgetBonusThreshold int                      `json:"budgetBonusThreshold" yaml:"budgetBonusThreshold"`
}

var (
	ErrNoCoveredCities = errors.New("qualify: at least one covered city is required")
	ErrNoBudgetRanges  = errors.New("qualify: budget ranges are required")
)

// DefaultConfig returns the Barcelona metropolitan area configuration.
func DefaultConfig() Config {
	return Config{
		CoveredCities: []string{
			"Barcelona",
			"Hospitalet de Llobregat",
			"Badalona",
			"Terrassa",
			"Sabadell",
			"Mataró",
			"Santa Coloma de Gramenet",
			"Cornellà de Llobregat",
			"Sant Boi de Llobregat",
			"Sant Cugat del Vallès",
			"Esplugues",
			"Gavà",
			"Castelldefels",
			"El Prat",
		},
		BudgetRanges: map[Category]BudgetRange{
			CategoryBathroom:       {Min: 12000},
			CategoryKitchen:        {Min: 18000},
			CategoryFullRenovation: {Min: 50000},
			CategoryPainting:       {Min: 2500},
		},
		BudgetBonusThreshold: 50000,
	}
}

// ValidateConfig reports every problem with cfg at once.
func ValidateConfig(cfg Config) error {
	var errs []error
	if !slices.ContainsFunc(cfg.CoveredCities, func(c string) bool { return fold(c) != "" }) {
		errs = append(errs, ErrNoCoveredCities)
	}
	if len(cfg.BudgetRanges) == 0 {
		errs = append(errs, ErrNoBudgetRanges)
	}
	for cat, r := range cfg.BudgetRanges {
		if !cat.Valid() {
			errs = append(errs, fmt.Errorf("qualify: unknown budget category %q", cat))
		}
		if r.Min < 0 {
			errs = append(errs, fmt.Errorf("qualify: negative minimum budget for %s", cat))
		}
	}
	if cfg.BudgetBonusThreshold < 0 {
		errs = append(errs, errors.New("qualify: negative budget bonus threshold"))
	}
	return errors.Join(errs...)
}

// MinBudget returns the configured minimum for c, or 0 when none applies.
func (c Config) MinBudget(cat Category) int {
	if r, ok := c.BudgetRanges[cat]; ok {
		return r.Min
	}
	return 0
}

// CoveredCity returns the configured spelling of the covered city named in
// text, if any. Longer names win so "Sant Boi de Llobregat" beats a shorter
// overlapping entry.
func (c Config) CoveredCity(text string) (string, bool) {
	folded := fold(text)
	best := ""
	for _, city := range c.CoveredCities {
		fc := fold(city)
		if fc == "" || !containsPhrase(folded, fc) {
			continue
		}
		if len(city) > len(best) {
			best = city
		}
	}
	return best, best != ""
}

// IsCovered reports whether city matches a covered city exactly, ignoring case
// and accents.
func (c Config) IsCovered(city string) bool {
	fc := fold(city)
	return slices.ContainsFunc(c.CoveredCities, func(covered string) bool {
		return fold(covered) == fc
	})
}

// fileConfig accepts category names in any supported language, so existing
// files keyed "baño" or "cocina" load unchanged.
type fileConfig struct {
	CoveredCities        []string               `yaml:"coveredCities"`
	BudgetRanges         map[string]BudgetRange `yaml:"budgetRanges"`
	BudgetBonusThreshold *int                   `yaml:"budgetBonusThreshold"`
}

// LoadConfigFile reads a YAML configuration. Missing sections keep their
// defaults; the result is validated.
func LoadConfigFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("qualify: read config: %w", err)
	}
	return ParseConfig(data)
}

// ParseConfig decodes YAML bytes into a validated Config.
func ParseConfig(data []byte) (Config, error) {
	var raw fileConfig
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return Config{}, fmt.Errorf("qualify: decode config: %w", err)
	}

	cfg := DefaultConfig()
	if raw.CoveredCities != nil {
		cfg.CoveredCities = raw.CoveredCities
	}
	if raw.BudgetRanges != nil {
		cfg.BudgetRanges = make(map[Category]BudgetRange, len(raw.BudgetRanges))
		for name, r := range raw.BudgetRanges {
			cat, ok := ParseCategory(name)
			if !ok {
				return Config{}, fmt.Errorf("qualify: unknown budget category %q", name)
			}
			cfg.BudgetRanges[cat] = r
		}
	}
	if raw.BudgetBonusThreshold != nil {
		cfg.BudgetBonusThreshold = *raw.BudgetBonusThreshold
	}
	if err := ValidateConfig(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
