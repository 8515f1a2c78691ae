package core

import (
	"math"
	"testing"
	"time"

	"farm_service/internal/domain/model"
)

func historyOf(scores ...float64) []model.Checklist {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]model.Checklist, len(scores))
	for i, mortality := range scores {
		// mortality above 3 earns 3 points, above 1 earns 1
		c := checklistFor(healthyBarn.With(model.FeatureMortality, mortality))
		c.ID = int64(i + 1)
		c.SubmittedAt = base.Add(time.Duration(i) * 24 * time.Hour)
		out[i] = c
	}
	return out
}

func TestTrendWorsening(t *testing.T) {
	a := NewTemporalAnalyzer(nil)
	// scores 0, 1, 3
	got := a.Analyze(historyOf(0, 2, 5))
	if got.Inspections != 3 || !got.Worsening() {
		t.Fatalf("unexpected trend %+v", got)
	}
	if math.Abs(got.Slope-1.5) > 1e-9 {
		t.Errorf("slope = %v, want 1.5", got.Slope)
	}
	if got.Strength <= 0.9 || got.Strength > 1 {
		t.Errorf("strength = %v, want close to 1", got.Strength)
	}
}

func TestTrendSortsBySubmission(t *testing.T) {
	a := NewTemporalAnalyzer(nil)
	h := historyOf(5, 2, 0) // improving: 3, 1, 0
	reversed := []model.Checklist{h[2], h[0], h[1]}

	got := a.Analyze(reversed)
	if got.Slope >= 0 {
		t.Fatalf("improving barn reported slope %v", got.Slope)
	}
	if got != a.Analyze(h) {
		t.Errorf("input order changed the trend")
	}
}

func TestTrendFlat(t *testing.T) {
	a := NewTemporalAnalyzer(nil)
	tests := []struct {
		name    string
		history []model.Checklist
	}{
		{"none", nil},
		{"single", historyOf(5)},
		{"constant", historyOf(0, 0, 0, 0)},
	}
	for _, tc := range tests {
		got := a.Analyze(tc.history)
		if got.Slope != 0 || got.Strength != 0 || got.Worsening() {
			t.Errorf("%s: want flat trend, got %+v", tc.name, got)
		}
		if got.Inspections != len(tc.history) {
			t.Errorf("%s: inspections = %d, want %d", tc.name, got.Inspections, len(tc.history))
		}
	}
}
