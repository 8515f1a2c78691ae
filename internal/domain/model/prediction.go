package model

import "time"

// Prediction is the classifier output for one FeatureVector.
type Prediction struct {
	Label         RiskLabel          `json:"label"`
	Probabilities [NumLabels]float64 `json:"probabilities"` // low, medium, high
	// TriggeredTraining is set when this call paid for the lazy first training pass.
	TriggeredTraining bool `json:"triggered_training"`
}

// Probability returns the estimated probability of label l.
func (p Prediction) Probability(l RiskLabel) float64 {
	if !l.Valid() {
		return 0
	}
	return p.Probabilities[l]
}

// Training data sources.
const (
	SourceHistorical = "historical"
	SourceSynthetic  = "synthetic"
)

// TrainingRun records one completed training pass.
type TrainingRun struct {
	RunID       string    `json:"run_id" db:"run_id"`
	Source      string    `json:"source" db:"source"`
	Rows        int       `json:"rows" db:"row_count"`
	LowCount    int       `json:"low_count" db:"low_count"`
	MediumCount int       `json:"medium_count" db:"medium_count"`
	HighCount   int       `json:"high_count" db:"high_count"`
	Trees       int       `json:"trees" db:"trees"`
	DurationMS  int64     `json:"duration_ms" db:"duration_ms"`
	TrainedAt   time.Time `json:"trained_at" db:"trained_at"`
}

// ModelStatus describes the predictor state.
type ModelStatus struct {
	Trained   bool         `json:"trained"`
	Trainings int64        `json:"trainings"`
	LastRun   *TrainingRun `json:"last_run,omitempty"`
}
