package core

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"farm_service/internal/domain/model"
)

// Metrics holds the risk subsystem collectors. A nil *Metrics records nothing.
type Metrics struct {
	trainings        *prometheus.CounterVec
	trainingDuration prometheus.Histogram
	predictions      *prometheus.CounterVec
	recomputes       *prometheus.CounterVec
	barnsUpdated     prometheus.Counter
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		trainings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "farm_model_trainings_total",
			Help: "Completed risk model training passes by data source.",
		}, []string{"source"}),
		trainingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "farm_model_training_duration_seconds",
			Help:    "Wall time of risk model training passes.",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
		}),
		predictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "farm_predictions_total",
			Help: "Risk predictions served by label.",
		}, []string{"label"}),
		recomputes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "farm_barn_recompute_total",
			Help: "Batch barn risk recomputations by result.",
		}, []string{"result"}),
		barnsUpdated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "farm_barn_risk_updates_total",
			Help: "Barn risk levels written by committed recomputations.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.trainings, m.trainingDuration, m.predictions, m.recomputes, m.barnsUpdated)
	}
	return m
}

func (m *Metrics) observeTraining(source string, d time.Duration) {
	if m == nil {
		return
	}
	m.trainings.WithLabelValues(source).Inc()
	m.trainingDuration.Observe(d.Seconds())
}

func (m *Metrics) observePrediction(l model.RiskLabel) {
	if m == nil {
		return
	}
	m.predictions.WithLabelValues(l.Level()).Inc()
}

func (m *Metrics) observeRecompute(ok bool, updated int) {
	if m == nil {
		return
	}
	if !ok {
		m.recomputes.WithLabelValues("failure").Inc()
		return
	}
	m.recomputes.WithLabelValues("success").Inc()
	m.barnsUpdated.Add(float64(updated))
}
