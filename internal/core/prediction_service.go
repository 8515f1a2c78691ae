package core

import (
	"context"
	"errors"
	"fmt"

	"farm_service/internal/domain/model"
	"farm_service/internal/domain/repository"
)

var (
	// ErrNoChecklist means a barn has no approved checklist to predict from.
	ErrNoChecklist     = errors.New("no approved checklist")
	ErrAlreadyApproved = repository.ErrAlreadyApproved
)

type BarnRisk struct {
	BarnID      int64            `json:"barn_id"`
	ChecklistID int64            `json:"checklist_id"`
	Prediction  model.Prediction `json:"prediction"`
	Trend       Trend            `json:"trend"`
}

// RecomputeResult is the outcome of a batch recomputation. Message is meant
// for the operator who triggered it.
type RecomputeResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Updated int    `json:"updated"`
	Skipped int    `json:"skipped"`
}

// ChecklistOutcome reports what a submitted or approved checklist changed.
type ChecklistOutcome struct {
	ChecklistID int64            `json:"checklist_id"`
	BarnID      int64            `json:"barn_id"`
	Prediction  model.Prediction `json:"prediction"`
	AlertID     int64            `json:"alert_id,omitempty"`
}

// PredictBarnRisk predicts from the barn's most recent approved checklist
// and reports the score trend over its recent inspections.
func (s *PredictionService) PredictBarnRisk(ctx context.Context, barnID int64) (BarnRisk, error) {
	var recent []model.Checklist
	err := s.store.InTx(ctx, func(tx repository.Tx) error {
		if _, err := tx.Barn(ctx, barnID); err != nil {
			return err
		}
		var err error
		recent, err = tx.RecentApprovedChecklists(ctx, barnID, DefaultTrendWindow)
		return err
	})
	if err != nil {
		return BarnRisk{}, fmt.Errorf("failed to load barn %d: %w", barnID, err)
	}
	if len(recent) == 0 {
		return BarnRisk{}, fmt.Errorf("barn %d: %w", barnID, ErrNoChecklist)
	}

	latest := recent[0]
	pred, err := s.model.Predict(ctx, latest.Features())
	if err != nil {
		return BarnRisk{}, fmt.Errorf("prediction failed: %w", err)
	}
	return BarnRisk{
		BarnID:      barnID,
		ChecklistID: latest.ID,
		Prediction:  pred,
		Trend:       s.trends.Analyze(recent),
	}, nil
}

// RecomputeAllBarnRisks re-predicts every barn from its latest approved
// checklist and writes the new risk levels in a single transaction. Barns
// without an approved checklist keep their current level. On any failure
// nothing is written.
func (s *PredictionService) RecomputeAllBarnRisks(ctx context.Context) (RecomputeResult, error) {
	// The model must be trained before the transaction opens.
	if w, ok := s.model.(warmer); ok {
		if _, err := w.EnsureTrained(ctx); err != nil {
			return s.recomputeFailed(err)
		}
	}

	var updated, skipped int
	err := s.store.InTx(ctx, func(tx repository.Tx) error {
		barns, err := tx.Barns(ctx)
		if err != nil {
			return err
		}
		now := s.now()
		for _, barn := range barns {
			latest, found, err := tx.LatestApprovedChecklist(ctx, barn.ID)
			if err != nil {
				return err
			}
			if !found {
				skipped++
				continue
			}
			pred, err := s.model.Predict(ctx, latest.Features())
			if err != nil {
				return fmt.Errorf("failed to predict risk for barn %d: %w", barn.ID, err)
			}
			if err := tx.SetBarnRisk(ctx, barn.ID, pred.Label.Level(), now); err != nil {
				return err
			}
			updated++
		}
		return nil
	})
	if err != nil {
		return s.recomputeFailed(err)
	}

	s.metrics.observeRecompute(true, updated)
	s.logger.Info("barn risks recomputed", "updated", updated, "skipped", skipped)
	return RecomputeResult{
		Success: true,
		Message: fmt.Sprintf("Updated risk levels for %d barns (%d without approved checklists)", updated, skipped),
		Updated: updated,
		Skipped: skipped,
	}, nil
}

func (s *PredictionService) recomputeFailed(err error) (RecomputeResult, error) {
	s.metrics.observeRecompute(false, 0)
	s.logger.Error("barn risk recompute failed", "error", err)
	return RecomputeResult{
		Success: false,
		Message: fmt.Sprintf("Error updating barn risks: %v", err),
	}, fmt.Errorf("failed to recompute barn risks: %w", err)
}

// SubmitChecklist stores a new inspection, predicts from its measurements
// and updates the barn. A High prediction raises a high_risk alert.
func (s *PredictionService) SubmitChecklist(ctx context.Context, c model.Checklist) (ChecklistOutcome, error) {
	if c.BarnID == 0 {
		return ChecklistOutcome{}, errors.New("checklist must reference a barn")
	}
	if c.SubmittedAt.IsZero() {
		c.SubmittedAt = s.now()
	}

	pred, err := s.model.Predict(ctx, c.Features())
	if err != nil {
		return ChecklistOutcome{}, fmt.Errorf("prediction failed: %w", err)
	}

	out := ChecklistOutcome{BarnID: c.BarnID, Prediction: pred}
	err = s.store.InTx(ctx, func(tx repository.Tx) error {
		barn, err := tx.Barn(ctx, c.BarnID)
		if err != nil {
			return err
		}
		if out.ChecklistID, err = tx.InsertChecklist(ctx, c); err != nil {
			return err
		}
		if err := tx.SetBarnRisk(ctx, barn.ID, pred.Label.Level(), s.now()); err != nil {
			return err
		}
		msg := fmt.Sprintf("High risk detected in %s after latest checklist submission", barn.Name)
		out.AlertID, err = s.maybeAlert(ctx, tx, pred, barn.ID, c.UserID, msg)
		return err
	})
	if err != nil {
		return ChecklistOutcome{}, fmt.Errorf("failed to submit checklist: %w", err)
	}

	s.logger.Info("checklist submitted", "checklist_id", out.ChecklistID, "barn_id", out.BarnID, "risk", pred.Label)
	return out, nil
}

// ApproveChecklist marks a pending checklist approved, then updates the
// barn's risk level from it and raises an alert on High.
func (s *PredictionService) ApproveChecklist(ctx context.Context, checklistID, approverID int64) (ChecklistOutcome, error) {
	var c model.Checklist
	err := s.store.InTx(ctx, func(tx repository.Tx) error {
		var err error
		c, err = tx.Checklist(ctx, checklistID)
		return err
	})
	if err != nil {
		return ChecklistOutcome{}, fmt.Errorf("failed to load checklist %d: %w", checklistID, err)
	}
	if c.Approved {
		return ChecklistOutcome{}, fmt.Errorf("checklist %d: %w", checklistID, ErrAlreadyApproved)
	}

	pred, err := s.model.Predict(ctx, c.Features())
	if err != nil {
		return ChecklistOutcome{}, fmt.Errorf("prediction failed: %w", err)
	}

	out := ChecklistOutcome{ChecklistID: c.ID, BarnID: c.BarnID, Prediction: pred}
	err = s.store.InTx(ctx, func(tx repository.Tx) error {
		now := s.now()
		if err := tx.ApproveChecklist(ctx, c.ID, approverID, now); err != nil {
			return err
		}
		barn, err := tx.Barn(ctx, c.BarnID)
		if err != nil {
			return err
		}
		if err := tx.SetBarnRisk(ctx, barn.ID, pred.Label.Level(), now); err != nil {
			return err
		}
		msg := fmt.Sprintf("High risk detected in %s after approved checklist", barn.Name)
		out.AlertID, err = s.maybeAlert(ctx, tx, pred, barn.ID, c.UserID, msg)
		return err
	})
	if err != nil {
		return ChecklistOutcome{}, fmt.Errorf("failed to approve checklist %d: %w", checklistID, err)
	}

	s.logger.Info("checklist approved", "checklist_id", c.ID, "approver_id", approverID, "risk", pred.Label)
	return out, nil
}

func (s *PredictionService) maybeAlert(ctx context.Context, tx repository.Tx, pred model.Prediction, barnID, userID int64, msg string) (int64, error) {
	if !s.raiseAlerts || pred.Label != model.RiskHigh {
		return 0, nil
	}
	alert := model.Alert{
		Type:      model.AlertTypeHighRisk,
		Message:   msg,
		Severity:  model.RiskHigh.Level(),
		BarnID:    &barnID,
		CreatedAt: s.now(),
	}
	if userID != 0 {
		alert.UserID = &userID
	}
	return tx.InsertAlert(ctx, alert)
}
