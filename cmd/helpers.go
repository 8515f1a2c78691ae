package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"farm_service/internal/core"
	"farm_service/internal/domain/model"
	"farm_service/internal/domain/repository"
)

// openRepo validates the loaded config and connects to the database.
func openRepo(ctx context.Context) (*repository.FarmRepository, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return repository.Open(ctx, cfg.Database.Driver, cfg.Database.URL)
}

func predictorConfig() core.PredictorConfig {
	return core.PredictorConfig{
		Trees:                cfg.Model.Trees,
		Seed:                 cfg.Model.Seed,
		SyntheticRows:        cfg.Model.SyntheticRows,
		MinHistoricalRecords: cfg.Model.MinHistorical,
		Workers:              cfg.Model.Workers,
	}
}

// newPredictor builds a predictor that trains on repo and records its runs there.
func newPredictor(repo *repository.FarmRepository, opts ...core.PredictorOption) *core.RiskPredictor {
	opts = append([]core.PredictorOption{
		core.WithRecorder(repository.NewSQLTrainingRecorder(repo.DB())),
	}, opts...)
	return core.NewRiskPredictor(repo, predictorConfig(), opts...)
}

// featureInput binds one flag per measurement plus --values.
type featureInput struct {
	vector model.FeatureVector
	values string
}

func addFeatureFlags(cmd *cobra.Command, in *featureInput) {
	in.vector = model.DefaultFeatures
	f := cmd.Flags()
	f.Float64Var(&in.vector.HygieneScore, "hygiene", in.vector.HygieneScore, "hygiene score (0-10)")
	f.Float64Var(&in.vector.MortalityCount, "mortality", in.vector.MortalityCount, "deaths since last inspection")
	f.Float64Var(&in.vector.FeedQuality, "feed", in.vector.FeedQuality, "feed quality (0-10)")
	f.Float64Var(&in.vector.WaterQuality, "water", in.vector.WaterQuality, "water quality (0-10)")
	f.Float64Var(&in.vector.VentilationScore, "ventilation", in.vector.VentilationScore, "ventilation score (0-10)")
	f.Float64Var(&in.vector.Temperature, "temperature", in.vector.Temperature, "temperature in °C")
	f.Float64Var(&in.vector.Humidity, "humidity", in.vector.Humidity, "relative humidity in %")
	f.StringVar(&in.values, "values", "", "all seven measurements, comma separated, in canonical order")
}

// features returns the vector from --values when set, else from the individual flags.
func (in *featureInput) features() (model.FeatureVector, error) {
	if in.values == "" {
		return in.vector, nil
	}
	parts := strings.Split(in.values, ",")
	vals := make([]float64, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return model.FeatureVector{}, fmt.Errorf("invalid value %q: %w", p, err)
		}
		vals = append(vals, v)
	}
	return model.FeatureVectorFromValues(vals)
}
