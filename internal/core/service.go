package core

import (
	"log/slog"
	"time"

	"farm_service/internal/domain/repository"
	"farm_service/internal/logging"
)

type PredictionService struct {
	store       repository.Store
	model       RiskModel
	trends      *TemporalAnalyzer
	metrics     *Metrics
	raiseAlerts bool
	now         func() time.Time
	logger      *slog.Logger
}

// ServiceOption configures a PredictionService.
type ServiceOption func(*PredictionService)

// WithAlerts controls whether High predictions raise high_risk alerts.
func WithAlerts(enabled bool) ServiceOption {
	return func(s *PredictionService) { s.raiseAlerts = enabled }
}

func WithServiceMetrics(m *Metrics) ServiceOption {
	return func(s *PredictionService) { s.metrics = m }
}

func WithClock(now func() time.Time) ServiceOption {
	return func(s *PredictionService) { s.now = now }
}

func WithServiceLogger(l *slog.Logger) ServiceOption {
	return func(s *PredictionService) { s.logger = l }
}

func NewPredictionService(store repository.Store, riskModel RiskModel, opts ...ServiceOption) *PredictionService {
	s := &PredictionService{
		store:       store,
		model:       riskModel,
		trends:      NewTemporalAnalyzer(nil),
		raiseAlerts: true,
		now:         func() time.Time { return time.Now().UTC() },
		logger:      logging.New("prediction_service"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Model returns the risk model the service predicts with.
func (s *PredictionService) Model() RiskModel { return s.model }
