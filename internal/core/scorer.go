package core

import (
	"fmt"
	"math"

	"farm_service/internal/domain/model"
)

// Score thresholds for the total point count.
const (
	HighRiskScore   = 6
	MediumRiskScore = 3
)

// Rule scores one feature. A value strictly below SevereBelow or strictly
// above SevereAbove earns SeverePoints; otherwise a value strictly below
// MildBelow or strictly above MildAbove earns MildPoints.
type Rule struct {
	Feature      model.Feature
	SeverePoints int
	MildPoints   int
	SevereBelow  float64
	MildBelow    float64
	MildAbove    float64
	SevereAbove  float64
}

var (
	noLower = math.Inf(-1)
	noUpper = math.Inf(1)
)

// DefaultRules is the canonical risk rule table.
var DefaultRules = []Rule{
	{Feature: model.FeatureHygiene, SeverePoints: 3, MildPoints: 1, SevereBelow: 5, MildBelow: 7, MildAbove: noUpper, SevereAbove: noUpper},
	{Feature: model.FeatureMortality, SeverePoints: 3, MildPoints: 1, SevereBelow: noLower, MildBelow: noLower, MildAbove: 1, SevereAbove: 3},
	{Feature: model.FeatureFeedQuality, SeverePoints: 2, MildPoints: 1, SevereBelow: 6, MildBelow: 8, MildAbove: noUpper, SevereAbove: noUpper},
	{Feature: model.FeatureWaterQuality, SeverePoints: 2, MildPoints: 1, SevereBelow: 7, MildBelow: 8, MildAbove: noUpper, SevereAbove: noUpper},
	{Feature: model.FeatureVentilation, SeverePoints: 2, MildPoints: 1, SevereBelow: 6, MildBelow: 7, MildAbove: noUpper, SevereAbove: noUpper},
	{Feature: model.FeatureTemperature, SeverePoints: 2, MildPoints: 1, SevereBelow: 15, MildBelow: 18, MildAbove: 25, SevereAbove: 28},
	{Feature: model.FeatureHumidity, SeverePoints: 2, MildPoints: 1, SevereBelow: 30, MildBelow: 40, MildAbove: 70, SevereAbove: 80},
}

// Points returns the contribution of value under r. NaN earns nothing.
func (r Rule) Points(value float64) int {
	switch {
	case value < r.SevereBelow || value > r.SevereAbove:
		return r.SeverePoints
	case value < r.MildBelow || value > r.MildAbove:
		return r.MildPoints
	default:
		return 0
	}
}

// ValidateRules checks that every rule is monotonic: the severe band lies
// outside the mild band and never scores less than it.
func ValidateRules(rules []Rule) error {
	seen := make(map[model.Feature]bool, len(rules))
	for _, r := range rules {
		if seen[r.Feature] {
			return fmt.Errorf("duplicate rule for %s", r.Feature)
		}
		seen[r.Feature] = true
		if r.SeverePoints < r.MildPoints || r.MildPoints < 0 {
			return fmt.Errorf("rule %s: points must satisfy severe >= mild >= 0", r.Feature)
		}
		if r.SevereBelow > r.MildBelow {
			return fmt.Errorf("rule %s: severe lower cut-off %v above mild %v", r.Feature, r.SevereBelow, r.MildBelow)
		}
		if r.SevereAbove < r.MildAbove {
			return fmt.Errorf("rule %s: severe upper cut-off %v below mild %v", r.Feature, r.SevereAbove, r.MildAbove)
		}
		if r.MildBelow > r.MildAbove {
			return fmt.Errorf("rule %s: mild band is empty", r.Feature)
		}
	}
	return nil
}

// Contribution is the score one rule added.
type Contribution struct {
	Feature model.Feature `json:"-"`
	Name    string        `json:"feature"`
	Value   float64       `json:"value"`
	Points  int           `json:"points"`
}

// Scorer is the deterministic weighted-threshold risk scorer.
type Scorer struct {
	rules []Rule
}

// NewScorer returns a scorer over rules. It panics on a rule table that
// would break monotonicity.
func NewScorer(rules []Rule) *Scorer {
	if err := ValidateRules(rules); err != nil {
		panic(err)
	}
	return &Scorer{rules: rules}
}

var defaultScorer = NewScorer(DefaultRules)

// Score rates v with the default rule table.
func Score(v model.FeatureVector) (int, model.RiskLabel) {
	return defaultScorer.Score(v)
}

// Score sums every rule's points for v and classifies the total.
func (s *Scorer) Score(v model.FeatureVector) (int, model.RiskLabel) {
	total := 0
	for _, r := range s.rules {
		total += r.Points(v.Get(r.Feature))
	}
	return total, LabelForScore(total)
}

// Explain returns the per-rule contributions for v in rule order.
func (s *Scorer) Explain(v model.FeatureVector) []Contribution {
	out := make([]Contribution, 0, len(s.rules))
	for _, r := range s.rules {
		value := v.Get(r.Feature)
		out = append(out, Contribution{
			Feature: r.Feature,
			Name:    r.Feature.String(),
			Value:   value,
			Points:  r.Points(value),
		})
	}
	return out
}

// Explain uses the default rule table.
func Explain(v model.FeatureVector) []Contribution {
	return defaultScorer.Explain(v)
}

// LabelForScore maps a total score to a label. Lower bounds are inclusive.
func LabelForScore(score int) model.RiskLabel {
	switch {
	case score >= HighRiskScore:
		return model.RiskHigh
	case score >= MediumRiskScore:
		return model.RiskMedium
	default:
		return model.RiskLow
	}
}
