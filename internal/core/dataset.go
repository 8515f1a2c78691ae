package core

import (
	"context"
	"fmt"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"

	"farm_service/internal/domain/model"
)

const (
	// DefaultMinHistoricalRecords is the fewest approved checklists trained on directly.
	DefaultMinHistoricalRecords = 10
	DefaultSyntheticRows        = 1000
	DefaultSeed                 = 42
)

// ChecklistSource supplies approved historical inspections.
type ChecklistSource interface {
	ApprovedChecklists(ctx context.Context) ([]model.Checklist, error)
}

// Dataset is the assembled classifier training data.
type Dataset struct {
	Examples []model.TrainingExample
	Source   string
}

// ClassCounts returns how many examples carry each label.
func (d Dataset) ClassCounts() [model.NumLabels]int {
	var counts [model.NumLabels]int
	for _, ex := range d.Examples {
		if ex.Label.Valid() {
			counts[ex.Label]++
		}
	}
	return counts
}

// Matrix splits the dataset into feature rows and label columns.
func (d Dataset) Matrix() ([][model.NumFeatures]float64, []model.RiskLabel) {
	x := make([][model.NumFeatures]float64, len(d.Examples))
	y := make([]model.RiskLabel, len(d.Examples))
	for i, ex := range d.Examples {
		x[i] = ex.Features.Values()
		y[i] = ex.Label
	}
	return x, y
}

// DatasetBuilder assembles training data from history, or synthetically
// when there is too little history.
type DatasetBuilder struct {
	Source        ChecklistSource
	Scorer        *Scorer
	MinHistorical int
	SyntheticRows int
	Seed          uint64
}

// NewDatasetBuilder returns a builder with the default volume, guard and seed.
func NewDatasetBuilder(source ChecklistSource) *DatasetBuilder {
	return &DatasetBuilder{
		Source:        source,
		Scorer:        defaultScorer,
		MinHistorical: DefaultMinHistoricalRecords,
		SyntheticRows: DefaultSyntheticRows,
		Seed:          DefaultSeed,
	}
}

// Build returns the training set. Store failures abort the build.
func (b *DatasetBuilder) Build(ctx context.Context) (Dataset, error) {
	if b.Source == nil {
		return b.Synthetic(), nil
	}

	checklists, err := b.Source.ApprovedChecklists(ctx)
	if err != nil {
		return Dataset{}, fmt.Errorf("failed to load historical checklists: %w", err)
	}
	if len(checklists) < b.MinHistorical {
		return b.Synthetic(), nil
	}
	return b.Historical(checklists), nil
}

// Historical labels each checklist with the scorer. Any label previously
// stored alongside the checklist is not consulted.
func (b *DatasetBuilder) Historical(checklists []model.Checklist) Dataset {
	examples := make([]model.TrainingExample, 0, len(checklists))
	for _, c := range checklists {
		features := c.Features()
		_, label := b.scorer().Score(features)
		examples = append(examples, model.TrainingExample{Features: features, Label: label})
	}
	return Dataset{Examples: examples, Source: model.SourceHistorical}
}

// Synthetic draws SyntheticRows plausible barn measurements from fixed
// distributions. Draws are not clamped. The same seed always yields the
// same dataset.
func (b *DatasetBuilder) Synthetic() Dataset {
	src := rand.NewPCG(b.Seed, b.Seed)
	normal := func(mu, sigma float64) distuv.Normal {
		return distuv.Normal{Mu: mu, Sigma: sigma, Src: src}
	}
	hygiene := normal(7, 2)
	mortality := distuv.Poisson{Lambda: 1, Src: src}
	feed := normal(8, 1.5)
	water := normal(8.5, 1)
	ventilation := normal(7.5, 1.5)
	temperature := normal(22, 3)
	humidity := normal(55, 10)

	examples := make([]model.TrainingExample, 0, b.SyntheticRows)
	for i := 0; i < b.SyntheticRows; i++ {
		features := model.FeatureVector{
			HygieneScore:     hygiene.Rand(),
			MortalityCount:   mortality.Rand(),
			FeedQuality:      feed.Rand(),
			WaterQuality:     water.Rand(),
			VentilationScore: ventilation.Rand(),
			Temperature:      temperature.Rand(),
			Humidity:         humidity.Rand(),
		}
		_, label := b.scorer().Score(features)
		examples = append(examples, model.TrainingExample{Features: features, Label: label})
	}
	return Dataset{Examples: examples, Source: model.SourceSynthetic}
}

func (b *DatasetBuilder) scorer() *Scorer {
	if b.Scorer == nil {
		return defaultScorer
	}
	return b.Scorer
}
