package model

import (
	"errors"
	"fmt"
	"strings"
)

// NumFeatures is the dimensionality of a FeatureVector.
const NumFeatures = 7

// ErrFeatureDimension is returned when a raw feature slice does not have exactly NumFeatures values.
var ErrFeatureDimension = errors.New("feature vector must have exactly 7 values")

// Feature identifies one measurement of a FeatureVector.
type Feature int

const (
	FeatureHygiene Feature = iota
	FeatureMortality
	FeatureFeedQuality
	FeatureWaterQuality
	FeatureVentilation
	FeatureTemperature
	FeatureHumidity
)

var featureNames = [NumFeatures]string{
	"hygiene_score",
	"mortality_count",
	"feed_quality",
	"water_quality",
	"ventilation_score",
	"temperature",
	"humidity",
}

// Features lists every feature in canonical order.
func Features() []Feature {
	return []Feature{
		FeatureHygiene,
		FeatureMortality,
		FeatureFeedQuality,
		FeatureWaterQuality,
		FeatureVentilation,
		FeatureTemperature,
		FeatureHumidity,
	}
}

func (f Feature) String() string {
	if f < 0 || int(f) >= NumFeatures {
		return fmt.Sprintf("feature(%d)", int(f))
	}
	return featureNames[f]
}

// FeatureVector holds the seven inspection measurements of a barn.
type FeatureVector struct {
	HygieneScore     float64 `json:"hygiene_score"`
	MortalityCount   float64 `json:"mortality_count"`
	FeedQuality      float64 `json:"feed_quality"`
	WaterQuality     float64 `json:"water_quality"`
	VentilationScore float64 `json:"ventilation_score"`
	Temperature      float64 `json:"temperature"` // °C
	Humidity         float64 `json:"humidity"`    // %
}

// DefaultFeatures are substituted for measurements missing from a stored checklist.
var DefaultFeatures = FeatureVector{
	HygieneScore:     7,
	MortalityCount:   0,
	FeedQuality:      8,
	WaterQuality:     8,
	VentilationScore: 7,
	Temperature:      22,
	Humidity:         55,
}

// Values returns the measurements in canonical order.
func (v FeatureVector) Values() [NumFeatures]float64 {
	return [NumFeatures]float64{
		v.HygieneScore,
		v.MortalityCount,
		v.FeedQuality,
		v.WaterQuality,
		v.VentilationScore,
		v.Temperature,
		v.Humidity,
	}
}

// Get returns a single measurement.
func (v FeatureVector) Get(f Feature) float64 {
	vals := v.Values()
	if f < 0 || int(f) >= NumFeatures {
		return 0
	}
	return vals[f]
}

// With returns a copy of v with feature f set to value.
func (v FeatureVector) With(f Feature, value float64) FeatureVector {
	switch f {
	case FeatureHygiene:
		v.HygieneScore = value
	case FeatureMortality:
		v.MortalityCount = value
	case FeatureFeedQuality:
		v.FeedQuality = value
	case FeatureWaterQuality:
		v.WaterQuality = value
	case FeatureVentilation:
		v.VentilationScore = value
	case FeatureTemperature:
		v.Temperature = value
	case FeatureHumidity:
		v.Humidity = value
	}
	return v
}

// FeatureVectorFromValues builds a FeatureVector from values in canonical order.
// Any other length is rejected rather than padded or truncated.
func FeatureVectorFromValues(values []float64) (FeatureVector, error) {
	if len(values) != NumFeatures {
		return FeatureVector{}, fmt.Errorf("%w: got %d", ErrFeatureDimension, len(values))
	}
	return FeatureVector{
		HygieneScore:     values[0],
		MortalityCount:   values[1],
		FeedQuality:      values[2],
		WaterQuality:     values[3],
		VentilationScore: values[4],
		Temperature:      values[5],
		Humidity:         values[6],
	}, nil
}

// RiskLabel is the three-level risk classification, ordered Low < Medium < High.
type RiskLabel int

const (
	RiskLow RiskLabel = iota
	RiskMedium
	RiskHigh
)

// NumLabels is the number of known risk labels.
const NumLabels = 3

// Labels lists the known labels in severity order.
func Labels() []RiskLabel {
	return []RiskLabel{RiskLow, RiskMedium, RiskHigh}
}

// LabelText maps a label to its display name. Out-of-range values map to "Unknown".
func LabelText(l RiskLabel) string {
	switch l {
	case RiskLow:
		return "Low"
	case RiskMedium:
		return "Medium"
	case RiskHigh:
		return "High"
	default:
		return "Unknown"
	}
}

func (l RiskLabel) String() string { return LabelText(l) }

// Valid reports whether l is one of the known labels.
func (l RiskLabel) Valid() bool { return l >= RiskLow && l <= RiskHigh }

// Level is the lower-case form stored in barns.risk_level.
func (l RiskLabel) Level() string { return strings.ToLower(LabelText(l)) }

// ParseRiskLabel accepts "low", "Medium", "HIGH" and so on.
func ParseRiskLabel(s string) (RiskLabel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low":
		return RiskLow, nil
	case "medium":
		return RiskMedium, nil
	case "high":
		return RiskHigh, nil
	default:
		return 0, fmt.Errorf("unknown risk label %q", s)
	}
}

func (l RiskLabel) MarshalText() ([]byte, error) {
	return []byte(LabelText(l)), nil
}

func (l *RiskLabel) UnmarshalText(b []byte) error {
	parsed, err := ParseRiskLabel(string(b))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// TrainingExample is one labelled row of classifier training data.
type TrainingExample struct {
	Features FeatureVector
	Label    RiskLabel
}
