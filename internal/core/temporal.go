package core

import (
	"cmp"
	"math"
	"slices"

	"gonum.org/v1/gonum/stat"

	"farm_service/internal/domain/model"
)

// DefaultTrendWindow is how many recent approved inspections feed a trend.
const DefaultTrendWindow = 10

// Trend summarises how a barn's rule score moved across its inspections.
type Trend struct {
	Inspections int     `json:"inspections"`
	Slope       float64 `json:"slope"`    // score points per inspection
	Strength    float64 `json:"strength"` // R² of the linear fit
}

// Worsening reports a rising score.
func (t Trend) Worsening() bool { return t.Slope > 0 }

type TemporalAnalyzer struct {
	scorer *Scorer
}

func NewTemporalAnalyzer(s *Scorer) *TemporalAnalyzer {
	if s == nil {
		s = defaultScorer
	}
	return &TemporalAnalyzer{scorer: s}
}

// Analyze fits a line through the rule scores of history in submission
// order. Fewer than two inspections give a flat trend.
func (a *TemporalAnalyzer) Analyze(history []model.Checklist) Trend {
	sorted := slices.Clone(history)
	slices.SortFunc(sorted, func(x, y model.Checklist) int {
		if c := x.SubmittedAt.Compare(y.SubmittedAt); c != 0 {
			return c
		}
		return cmp.Compare(x.ID, y.ID)
	})

	trend := Trend{Inspections: len(sorted)}
	if len(sorted) < 2 {
		return trend
	}

	xs := make([]float64, len(sorted))
	ys := make([]float64, len(sorted))
	for i, c := range sorted {
		score, _ := a.scorer.Score(c.Features())
		xs[i] = float64(i)
		ys[i] = float64(score)
	}

	alpha, beta := stat.LinearRegression(xs, ys, nil, false)
	trend.Slope = beta
	// constant scores leave R² undefined
	if r2 := stat.RSquared(xs, ys, nil, alpha, beta); !math.IsNaN(r2) && !math.IsInf(r2, 0) {
		trend.Strength = r2
	}
	return trend
}
