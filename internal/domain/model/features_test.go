package model

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestLabelText(t *testing.T) {
	tests := []struct {
		label RiskLabel
		want  string
	}{
		{RiskLow, "Low"},
		{RiskMedium, "Medium"},
		{RiskHigh, "High"},
		{RiskLabel(-1), "Unknown"},
		{RiskLabel(3), "Unknown"},
		{RiskLabel(42), "Unknown"},
	}
	for _, tc := range tests {
		if got := LabelText(tc.label); got != tc.want {
			t.Errorf("LabelText(%d)\nwant: %s\n got: %s", int(tc.label), tc.want, got)
		}
	}
}

func TestLabelTextRoundTrip(t *testing.T) {
	for _, l := range Labels() {
		parsed, err := ParseRiskLabel(LabelText(l))
		if err != nil {
			t.Fatalf("ParseRiskLabel(%q): %v", LabelText(l), err)
		}
		if LabelText(parsed) != LabelText(l) {
			t.Errorf("round trip of %s gave %s", l, parsed)
		}
	}
	if _, err := ParseRiskLabel("Unknown"); err == nil {
		t.Error("ParseRiskLabel(Unknown) expected error")
	}
}

func TestRiskLabelLevel(t *testing.T) {
	if got := RiskHigh.Level(); got != "high" {
		t.Errorf("RiskHigh.Level() = %q, want high", got)
	}
	if got := RiskMedium.Level(); got != "medium" {
		t.Errorf("RiskMedium.Level() = %q, want medium", got)
	}
}

func TestRiskLabelJSON(t *testing.T) {
	b, err := json.Marshal(Prediction{Label: RiskMedium})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var back Prediction
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if back.Label != RiskMedium {
		t.Errorf("label after JSON round trip = %s, want Medium", back.Label)
	}
}

func TestFeatureVectorFromValues(t *testing.T) {
	v, err := FeatureVectorFromValues([]float64{8, 0, 9, 9, 8, 22, 55})
	if err != nil {
		t.Fatalf("FeatureVectorFromValues: %v", err)
	}
	want := FeatureVector{HygieneScore: 8, FeedQuality: 9, WaterQuality: 9, VentilationScore: 8, Temperature: 22, Humidity: 55}
	if v != want {
		t.Fatalf("want: %+v\n got: %+v", want, v)
	}

	for _, n := range []int{0, 6, 8} {
		_, err := FeatureVectorFromValues(make([]float64, n))
		if !errors.Is(err, ErrFeatureDimension) {
			t.Errorf("len %d: expected ErrFeatureDimension, got %v", n, err)
		}
	}
}

func TestFeatureVectorWithAndGet(t *testing.T) {
	var v FeatureVector
	for i, f := range Features() {
		v = v.With(f, float64(i+1))
	}
	for i, f := range Features() {
		if got := v.Get(f); got != float64(i+1) {
			t.Errorf("Get(%s) = %v, want %v", f, got, i+1)
		}
	}
	if FeatureHumidity.String() != "humidity" {
		t.Errorf("FeatureHumidity.String() = %q", FeatureHumidity.String())
	}
}

func TestChecklistFeaturesDefaults(t *testing.T) {
	hygiene := 3.0
	c := Checklist{HygieneScore: &hygiene}
	got := c.Features()
	want := DefaultFeatures
	want.HygieneScore = 3
	if got != want {
		t.Fatalf("want: %+v\n got: %+v", want, got)
	}

	var empty Checklist
	if empty.Features() != DefaultFeatures {
		t.Fatalf("empty checklist should use defaults, got %+v", empty.Features())
	}

	zero := 0.0
	c = Checklist{HygieneScore: &zero}
	if c.Features().HygieneScore != 0 {
		t.Fatalf("recorded zero must not be replaced by default")
	}
}

func TestChecklistSetFeatures(t *testing.T) {
	v := FeatureVector{HygieneScore: 1, MortalityCount: 2, FeedQuality: 3, WaterQuality: 4, VentilationScore: 5, Temperature: 6, Humidity: 7}
	var c Checklist
	c.SetFeatures(v)
	if c.Features() != v {
		t.Fatalf("want: %+v\n got: %+v", v, c.Features())
	}
}
