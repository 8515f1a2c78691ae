package core

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"farm_service/internal/domain/model"
	"farm_service/internal/domain/repository"
	"farm_service/internal/logging"
)

// PredictorConfig tunes training.
type PredictorConfig struct {
	Trees                int
	Seed                 uint64
	SyntheticRows        int
	MinHistoricalRecords int
	Workers              int
}

// DefaultPredictorConfig matches the reference training setup: 100 trees,
// seed 42, 1000 synthetic rows, at least 10 historical records.
func DefaultPredictorConfig() PredictorConfig {
	return PredictorConfig{
		Trees:                DefaultTrees,
		Seed:                 DefaultSeed,
		SyntheticRows:        DefaultSyntheticRows,
		MinHistoricalRecords: DefaultMinHistoricalRecords,
	}
}

// fittedModel is immutable once built.
type fittedModel struct {
	scaler *StandardScaler
	forest *RandomForest
	run    model.TrainingRun
}

func (m *fittedModel) predict(v model.FeatureVector) model.Prediction {
	label, proba := m.forest.Predict(m.scaler.Transform(v.Values()))
	return model.Prediction{Label: label, Probabilities: proba}
}

// RiskPredictor owns the fitted risk model. It starts untrained and trains
// itself on first use. Train and Predict are safe for concurrent use.
type RiskPredictor struct {
	cfg      PredictorConfig
	source   ChecklistSource
	recorder repository.TrainingRunRecorder
	metrics  *Metrics
	logger   *slog.Logger

	trainMu sync.Mutex // serialises assemble -> fit -> swap
	mu      sync.RWMutex
	current *fittedModel

	trainings atomic.Int64
}

// PredictorOption configures a RiskPredictor.
type PredictorOption func(*RiskPredictor)

// WithRecorder stores a TrainingRun after every training pass.
func WithRecorder(r repository.TrainingRunRecorder) PredictorOption {
	return func(p *RiskPredictor) { p.recorder = r }
}

// WithMetrics records training and prediction metrics.
func WithMetrics(m *Metrics) PredictorOption {
	return func(p *RiskPredictor) { p.metrics = m }
}

// WithLogger overrides the component logger.
func WithLogger(l *slog.Logger) PredictorOption {
	return func(p *RiskPredictor) { p.logger = l }
}

// NewRiskPredictor creates an untrained predictor. A nil source trains on
// synthetic data only.
func NewRiskPredictor(source ChecklistSource, cfg PredictorConfig, opts ...PredictorOption) *RiskPredictor {
	p := &RiskPredictor{
		cfg:    cfg,
		source: source,
		logger: logging.New("predictor"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Trained reports whether a model is in place.
func (p *RiskPredictor) Trained() bool {
	return p.model() != nil
}

// Status reports the predictor state and its last training run.
func (p *RiskPredictor) Status() model.ModelStatus {
	st := model.ModelStatus{Trainings: p.trainings.Load()}
	if m := p.model(); m != nil {
		run := m.run
		st.Trained = true
		st.LastRun = &run
	}
	return st
}

func (p *RiskPredictor) model() *fittedModel {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.current
}

// Train assembles training data, fits a new model and swaps it in. The
// previous model, if any, keeps serving until the swap. On error the
// previous state is left untouched.
func (p *RiskPredictor) Train(ctx context.Context) (model.TrainingRun, error) {
	p.trainMu.Lock()
	defer p.trainMu.Unlock()
	return p.trainLocked(ctx)
}

func (p *RiskPredictor) trainLocked(ctx context.Context) (model.TrainingRun, error) {
	start := time.Now()

	builder := NewDatasetBuilder(p.source)
	if p.cfg.MinHistoricalRecords > 0 {
		builder.MinHistorical = p.cfg.MinHistoricalRecords
	}
	if p.cfg.SyntheticRows > 0 {
		builder.SyntheticRows = p.cfg.SyntheticRows
	}
	builder.Seed = p.cfg.Seed

	ds, err := builder.Build(ctx)
	if err != nil {
		return model.TrainingRun{}, fmt.Errorf("failed to assemble training data: %w", err)
	}
	x, y := ds.Matrix()

	scaler, err := FitScaler(x)
	if err != nil {
		return model.TrainingRun{}, fmt.Errorf("failed to fit scaler: %w", err)
	}
	forest, err := FitForest(ctx, scaler.TransformAll(x), y, ForestConfig{
		Trees:   p.cfg.Trees,
		Seed:    p.cfg.Seed,
		Workers: p.cfg.Workers,
	})
	if err != nil {
		return model.TrainingRun{}, fmt.Errorf("failed to fit classifier: %w", err)
	}

	elapsed := time.Since(start)
	counts := ds.ClassCounts()
	run := model.TrainingRun{
		RunID:       uuid.NewString(),
		Source:      ds.Source,
		Rows:        len(ds.Examples),
		LowCount:    counts[model.RiskLow],
		MediumCount: counts[model.RiskMedium],
		HighCount:   counts[model.RiskHigh],
		Trees:       forest.Trees(),
		DurationMS:  elapsed.Milliseconds(),
		TrainedAt:   time.Now().UTC(),
	}

	p.mu.Lock()
	p.current = &fittedModel{scaler: scaler, forest: forest, run: run}
	p.mu.Unlock()
	p.trainings.Add(1)

	p.metrics.observeTraining(run.Source, elapsed)
	p.logger.Info("model trained",
		"run_id", run.RunID,
		"source", run.Source,
		"rows", run.Rows,
		"low", run.LowCount,
		"medium", run.MediumCount,
		"high", run.HighCount,
		"duration", elapsed,
	)

	if p.recorder != nil {
		if err := p.recorder.RecordTrainingRun(ctx, run); err != nil {
			p.logger.Warn("failed to record training run", "run_id", run.RunID, "error", err)
		}
	}
	return run, nil
}

// EnsureTrained trains if no model is in place yet. It reports whether this
// call performed the training pass.
func (p *RiskPredictor) EnsureTrained(ctx context.Context) (bool, error) {
	if p.model() != nil {
		return false, nil
	}
	p.trainMu.Lock()
	defer p.trainMu.Unlock()
	// another caller may have finished training while we waited
	if p.model() != nil {
		return false, nil
	}
	if _, err := p.trainLocked(ctx); err != nil {
		return false, err
	}
	return true, nil
}

// Predict classifies v, training first if the predictor is still untrained.
// Inference itself is deterministic for a given model.
func (p *RiskPredictor) Predict(ctx context.Context, v model.FeatureVector) (model.Prediction, error) {
	trained, err := p.EnsureTrained(ctx)
	if err != nil {
		return model.Prediction{}, err
	}
	pred := p.model().predict(v)
	pred.TriggeredTraining = trained
	p.metrics.observePrediction(pred.Label)
	return pred, nil
}

// PredictValues classifies a raw feature slice in canonical order. Slices
// of the wrong length are rejected with model.ErrFeatureDimension.
func (p *RiskPredictor) PredictValues(ctx context.Context, values []float64) (model.Prediction, error) {
	v, err := model.FeatureVectorFromValues(values)
	if err != nil {
		return model.Prediction{}, err
	}
	return p.Predict(ctx, v)
}

// ModelStatus implements RiskModel.
func (p *RiskPredictor) ModelStatus(context.Context) (model.ModelStatus, error) {
	return p.Status(), nil
}
