package core

import (
	"context"

	"farm_service/internal/domain/model"
)

// RiskModel classifies feature vectors. It is served either in process by
// RiskPredictor or remotely by mlclient.HTTPClient.
type RiskModel interface {
	Predict(ctx context.Context, features model.FeatureVector) (model.Prediction, error)
	ModelStatus(ctx context.Context) (model.ModelStatus, error)
}

// warmer is implemented by models that can train ahead of the first prediction.
type warmer interface {
	EnsureTrained(ctx context.Context) (bool, error)
}
