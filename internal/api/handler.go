package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"farm_service/internal/core"
	"farm_service/internal/domain/model"
	"farm_service/internal/domain/repository"
	"farm_service/internal/logging"
)

const recentRunsLimit = 10

// Trainer retrains the risk model on demand.
type Trainer interface {
	Train(ctx context.Context) (model.TrainingRun, error)
}

// RunLister lists stored training runs, newest first.
type RunLister interface {
	TrainingRuns(ctx context.Context, limit int) ([]model.TrainingRun, error)
}

// PendingLister lists checklists awaiting approval, oldest first.
type PendingLister interface {
	PendingChecklists(ctx context.Context) ([]model.Checklist, error)
}

type Handler struct {
	service  *core.PredictionService
	trainer  Trainer
	runs     RunLister
	pending  PendingLister
	gatherer prometheus.Gatherer
	logger   *slog.Logger
}

// Option configures a Handler.
type Option func(*Handler)

// WithTrainer enables POST /api/train.
func WithTrainer(t Trainer) Option {
	return func(h *Handler) { h.trainer = t }
}

// WithRunLister adds recent training runs to GET /api/model.
func WithRunLister(l RunLister) Option {
	return func(h *Handler) { h.runs = l }
}

// WithPendingLister enables GET /api/checklists/pending.
func WithPendingLister(l PendingLister) Option {
	return func(h *Handler) { h.pending = l }
}

// WithGatherer serves g on /metrics.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(h *Handler) { h.gatherer = g }
}

func NewHandler(service *core.PredictionService, opts ...Option) *Handler {
	h := &Handler{
		service: service,
		logger:  logging.New("api"),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Routes registers every endpoint on a new mux.
func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/predict", h.Predict)
	mux.HandleFunc("/api/score", h.Score)
	mux.HandleFunc("/api/train", h.Train)
	mux.HandleFunc("/api/model", h.Model)
	mux.HandleFunc("/api/barns/recompute", h.Recompute)
	mux.HandleFunc("/api/barns/{id}/risk", h.BarnRisk)
	mux.HandleFunc("/api/checklists", h.SubmitChecklist)
	mux.HandleFunc("/api/checklists/pending", h.PendingChecklists)
	mux.HandleFunc("/api/checklists/{id}/approve", h.ApproveChecklist)
	if h.gatherer != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{}))
	}
	return mux
}

// FeaturesRequest carries measurements either by name or as seven values in
// canonical order. Named fields that are left out take their default values.
type FeaturesRequest struct {
	Features json.RawMessage `json:"features,omitempty"`
	Values   []float64       `json:"values,omitempty"`
}

func (r FeaturesRequest) vector() (model.FeatureVector, error) {
	switch {
	case r.Values != nil:
		return model.FeatureVectorFromValues(r.Values)
	case len(r.Features) > 0:
		v := model.DefaultFeatures
		if err := json.Unmarshal(r.Features, &v); err != nil {
			return model.FeatureVector{}, fmt.Errorf("invalid features: %w", err)
		}
		return v, nil
	default:
		return model.FeatureVector{}, errors.New("features or values are required")
	}
}

type PredictResponse struct {
	model.Prediction
	LabelText string `json:"label_text"`
	Level     string `json:"level"`
}

func newPredictResponse(p model.Prediction) PredictResponse {
	return PredictResponse{Prediction: p, LabelText: model.LabelText(p.Label), Level: p.Label.Level()}
}

type ScoreResponse struct {
	Score         int                 `json:"score"`
	Label         model.RiskLabel     `json:"label"`
	Contributions []core.Contribution `json:"contributions"`
}

type ModelResponse struct {
	Status     model.ModelStatus   `json:"status"`
	RecentRuns []model.TrainingRun `json:"recent_runs,omitempty"`
}

type BarnRiskResponse struct {
	BarnID      int64           `json:"barn_id"`
	ChecklistID int64           `json:"checklist_id"`
	Prediction  PredictResponse `json:"prediction"`
	Trend       core.Trend      `json:"trend"`
}

type ApproveRequest struct {
	ApproverID int64 `json:"approver_id"`
}

func (h *Handler) Predict(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req FeaturesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	v, err := req.vector()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	pred, err := h.service.Model().Predict(r.Context(), v)
	if err != nil {
		h.fail(w, "prediction failed", err)
		return
	}
	writeJSON(w, http.StatusOK, newPredictResponse(pred))
}

func (h *Handler) Score(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req FeaturesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	v, err := req.vector()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	score, label := core.Score(v)
	writeJSON(w, http.StatusOK, ScoreResponse{Score: score, Label: label, Contributions: core.Explain(v)})
}

func (h *Handler) Train(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if h.trainer == nil {
		http.Error(w, "Training is not available on this instance", http.StatusNotImplemented)
		return
	}

	run, err := h.trainer.Train(r.Context())
	if err != nil {
		h.fail(w, "training failed", err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (h *Handler) Model(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	st, err := h.service.Model().ModelStatus(r.Context())
	if err != nil {
		h.fail(w, "failed to read model status", err)
		return
	}
	resp := ModelResponse{Status: st}
	if h.runs != nil {
		runs, err := h.runs.TrainingRuns(r.Context(), recentRunsLimit)
		if err != nil {
			h.logger.Warn("failed to list training runs", "error", err)
		}
		resp.RecentRuns = runs
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) Recompute(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	res, err := h.service.RecomputeAllBarnRisks(r.Context())
	if err != nil {
		writeJSON(w, statusFor(err), res)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) BarnRisk(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	risk, err := h.service.PredictBarnRisk(r.Context(), id)
	if errors.Is(err, core.ErrNoChecklist) {
		http.Error(w, "No data", http.StatusNotFound)
		return
	}
	if err != nil {
		h.fail(w, "failed to predict barn risk", err)
		return
	}
	writeJSON(w, http.StatusOK, BarnRiskResponse{
		BarnID:      risk.BarnID,
		ChecklistID: risk.ChecklistID,
		Prediction:  newPredictResponse(risk.Prediction),
		Trend:       risk.Trend,
	})
}

func (h *Handler) SubmitChecklist(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var c model.Checklist
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if c.BarnID <= 0 {
		http.Error(w, "barn_id is required", http.StatusBadRequest)
		return
	}
	// approval goes through its own endpoint
	c.ID, c.Approved, c.ApprovedBy, c.ApprovedAt = 0, false, nil, nil

	out, err := h.service.SubmitChecklist(r.Context(), c)
	if err != nil {
		h.fail(w, "failed to submit checklist", err)
		return
	}
	writeJSON(w, http.StatusCreated, out)
}

func (h *Handler) PendingChecklists(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if h.pending == nil {
		http.Error(w, "Approval queue is not available on this instance", http.StatusNotImplemented)
		return
	}

	checklists, err := h.pending.PendingChecklists(r.Context())
	if err != nil {
		h.fail(w, "failed to list pending checklists", err)
		return
	}
	if checklists == nil {
		checklists = []model.Checklist{}
	}
	writeJSON(w, http.StatusOK, checklists)
}

func (h *Handler) ApproveChecklist(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req ApproveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.ApproverID <= 0 {
		http.Error(w, "approver_id is required", http.StatusBadRequest)
		return
	}

	out, err := h.service.ApproveChecklist(r.Context(), id, req.ApproverID)
	if err != nil {
		h.fail(w, "failed to approve checklist", err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		http.Error(w, "Invalid id", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, model.ErrFeatureDimension):
		return http.StatusBadRequest
	case errors.Is(err, repository.ErrNotFound), errors.Is(err, core.ErrNoChecklist):
		return http.StatusNotFound
	case errors.Is(err, core.ErrAlreadyApproved):
		return http.StatusConflict
	case errors.Is(err, repository.ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) fail(w http.ResponseWriter, msg string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error(msg, "error", err)
		http.Error(w, msg, status)
		return
	}
	http.Error(w, fmt.Sprintf("%s: %v", msg, err), status)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
