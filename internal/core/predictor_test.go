package core

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"golang.org/x/sync/errgroup"

	"farm_service/internal/domain/model"
)

type fakeRecorder struct {
	mu   sync.Mutex
	runs []model.TrainingRun
	err  error
}

func (f *fakeRecorder) RecordTrainingRun(_ context.Context, run model.TrainingRun) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.runs = append(f.runs, run)
	return f.err
}

// quickConfig keeps training fast enough for unit tests.
func quickConfig() PredictorConfig {
	cfg := DefaultPredictorConfig()
	cfg.Trees = 15
	cfg.SyntheticRows = 400
	return cfg
}

var severeBarn = model.FeatureVector{
	HygieneScore:     1,
	MortalityCount:   10,
	FeedQuality:      2,
	WaterQuality:     2,
	VentilationScore: 2,
	Temperature:      35,
	Humidity:         90,
}

func TestPredictTrainsLazily(t *testing.T) {
	p := NewRiskPredictor(nil, quickConfig())
	if p.Trained() {
		t.Fatal("new predictor reports trained")
	}

	first, err := p.Predict(context.Background(), healthyBarn)
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if !first.TriggeredTraining {
		t.Error("first prediction did not report training")
	}
	second, err := p.Predict(context.Background(), healthyBarn)
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if second.TriggeredTraining {
		t.Error("second prediction retrained")
	}
	if first.Label != second.Label || first.Probabilities != second.Probabilities {
		t.Errorf("predictions differ for the same input:\nfirst: %+v\nsecond: %+v", first, second)
	}

	st := p.Status()
	if !st.Trained || st.Trainings != 1 || st.LastRun == nil {
		t.Fatalf("unexpected status %+v", st)
	}
	if st.LastRun.Source != model.SourceSynthetic || st.LastRun.Rows != 400 || st.LastRun.Trees != 15 {
		t.Errorf("unexpected run %+v", st.LastRun)
	}
}

func TestPredictClearCases(t *testing.T) {
	p := NewRiskPredictor(nil, DefaultPredictorConfig())
	ctx := context.Background()

	tests := []struct {
		name string
		in   model.FeatureVector
		want model.RiskLabel
	}{
		{"healthy", healthyBarn, model.RiskLow},
		{"severe", severeBarn, model.RiskHigh},
	}
	for _, tc := range tests {
		got, err := p.Predict(ctx, tc.in)
		if err != nil {
			t.Fatalf("%s: Predict: %v", tc.name, err)
		}
		if got.Label != tc.want {
			t.Errorf("%s\nwant: %s\n got: %s (%v)", tc.name, tc.want, got.Label, got.Probabilities)
		}
		var sum float64
		for _, pr := range got.Probabilities {
			sum += pr
		}
		if sum < 0.999 || sum > 1.001 {
			t.Errorf("%s: probabilities sum to %f", tc.name, sum)
		}
	}
}

func TestConcurrentFirstUseTrainsOnce(t *testing.T) {
	p := NewRiskPredictor(nil, quickConfig())

	const callers = 16
	var mu sync.Mutex
	triggered := 0

	g, ctx := errgroup.WithContext(context.Background())
	for i := 0; i < callers; i++ {
		g.Go(func() error {
			pred, err := p.Predict(ctx, healthyBarn)
			if err != nil {
				return err
			}
			if pred.TriggeredTraining {
				mu.Lock()
				triggered++
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if triggered != 1 {
		t.Errorf("%d callers reported training, want 1", triggered)
	}
	if n := p.Status().Trainings; n != 1 {
		t.Errorf("trained %d times, want 1", n)
	}
}

func TestPredictValuesRejectsWrongLength(t *testing.T) {
	p := NewRiskPredictor(nil, quickConfig())
	for _, n := range []int{0, 6, 8} {
		_, err := p.PredictValues(context.Background(), make([]float64, n))
		if !errors.Is(err, model.ErrFeatureDimension) {
			t.Errorf("%d values: expected ErrFeatureDimension, got %v", n, err)
		}
	}
	if p.Trained() {
		t.Error("rejected input triggered training")
	}

	vals := healthyBarn.Values()
	pred, err := p.PredictValues(context.Background(), vals[:])
	if err != nil {
		t.Fatalf("PredictValues: %v", err)
	}
	if !pred.Label.Valid() {
		t.Errorf("invalid label %d", pred.Label)
	}
}

func TestTrainingFailureLeavesPredictorUntrained(t *testing.T) {
	boom := errors.New("database on fire")
	p := NewRiskPredictor(&fakeChecklists{err: boom}, quickConfig())

	if _, err := p.Predict(context.Background(), healthyBarn); !errors.Is(err, boom) {
		t.Fatalf("expected store error, got %v", err)
	}
	if p.Trained() {
		t.Fatal("predictor trained despite data failure")
	}
	if st := p.Status(); st.Trainings != 0 || st.LastRun != nil {
		t.Fatalf("unexpected status %+v", st)
	}
}

func TestTrainKeepsPreviousModelOnFailure(t *testing.T) {
	src := &fakeChecklists{}
	p := NewRiskPredictor(src, quickConfig())
	first, err := p.Train(context.Background())
	if err != nil {
		t.Fatalf("Train: %v", err)
	}

	src.err = errors.New("gone")
	if _, err := p.Train(context.Background()); err == nil {
		t.Fatal("expected retrain to fail")
	}
	st := p.Status()
	if !st.Trained || st.LastRun.RunID != first.RunID {
		t.Fatalf("failed retrain replaced the model: %+v", st)
	}
}

func TestRetrainUsesHistoricalData(t *testing.T) {
	src := &fakeChecklists{}
	p := NewRiskPredictor(src, quickConfig())

	run, err := p.Train(context.Background())
	if err != nil {
		t.Fatalf("Train: %v", err)
	}
	if run.Source != model.SourceSynthetic {
		t.Fatalf("source = %s, want synthetic", run.Source)
	}

	src.checklists = manyChecklists(30)
	run2, err := p.Train(context.Background())
	if err != nil {
		t.Fatalf("Train: %v", err)
	}
	if run2.Source != model.SourceHistorical || run2.Rows != 30 {
		t.Fatalf("unexpected run %+v", run2)
	}
	if run2.RunID == run.RunID {
		t.Error("runs share an id")
	}
	if n := p.Status().Trainings; n != 2 {
		t.Errorf("trainings = %d, want 2", n)
	}
}

func TestTrainRecordsRun(t *testing.T) {
	rec := &fakeRecorder{}
	p := NewRiskPredictor(nil, quickConfig(), WithRecorder(rec))
	run, err := p.Train(context.Background())
	if err != nil {
		t.Fatalf("Train: %v", err)
	}
	if len(rec.runs) != 1 || rec.runs[0].RunID != run.RunID {
		t.Fatalf("recorded %+v, want run %s", rec.runs, run.RunID)
	}
	if got := run.LowCount + run.MediumCount + run.HighCount; got != run.Rows {
		t.Errorf("class counts sum to %d, want %d", got, run.Rows)
	}

	// a failing recorder does not fail training
	rec.err = errors.New("disk full")
	if _, err := p.Train(context.Background()); err != nil {
		t.Fatalf("Train with failing recorder: %v", err)
	}
	if !p.Trained() {
		t.Fatal("predictor untrained after recorder failure")
	}
}

func TestPredictorMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	p := NewRiskPredictor(nil, quickConfig(), WithMetrics(m))

	for i := 0; i < 3; i++ {
		if _, err := p.Predict(context.Background(), healthyBarn); err != nil {
			t.Fatalf("Predict: %v", err)
		}
	}
	if got := testutil.ToFloat64(m.trainings.WithLabelValues(model.SourceSynthetic)); got != 1 {
		t.Errorf("trainings metric = %v, want 1", got)
	}
	var served float64
	for _, l := range model.Labels() {
		served += testutil.ToFloat64(m.predictions.WithLabelValues(l.Level()))
	}
	if served != 3 {
		t.Errorf("predictions metric = %v, want 3", served)
	}
}

func TestNilMetricsAreNoop(t *testing.T) {
	var m *Metrics
	m.observePrediction(model.RiskHigh)
	m.observeRecompute(true, 3)
	m.observeTraining(model.SourceSynthetic, 0)
}
