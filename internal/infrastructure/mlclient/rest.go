package mlclient

import "farm_service/internal/domain/model"

// PredictRequest is the body of POST /api/predict.
type PredictRequest struct {
	Features *model.FeatureVector `json:"features,omitempty"`
	Values   []float64            `json:"values,omitempty"`
}

// ModelResponse is the body returned by GET /api/model.
type ModelResponse struct {
	Status     model.ModelStatus   `json:"status"`
	RecentRuns []model.TrainingRun `json:"recent_runs,omitempty"`
}
