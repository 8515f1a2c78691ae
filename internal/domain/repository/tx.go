package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"farm_service/internal/domain/model"
)

type txStore struct {
	tx *sqlx.Tx
}

func (s *txStore) Barns(ctx context.Context) ([]model.Barn, error) {
	const query = `
		SELECT id, COALESCE(farm_id, 0) AS farm_id, name, capacity, risk_level, last_updated
		FROM barns
		ORDER BY id`

	var barns []model.Barn
	if err := s.tx.SelectContext(ctx, &barns, query); err != nil {
		return nil, classify(fmt.Errorf("failed to query barns: %w", err))
	}
	return barns, nil
}

func (s *txStore) Barn(ctx context.Context, id int64) (model.Barn, error) {
	query := s.tx.Rebind(`
		SELECT id, COALESCE(farm_id, 0) AS farm_id, name, capacity, risk_level, last_updated
		FROM barns
		WHERE id = ?`)

	var barn model.Barn
	if err := s.tx.GetContext(ctx, &barn, query, id); err != nil {
		return model.Barn{}, classify(fmt.Errorf("failed to get barn %d: %w", id, err))
	}
	return barn, nil
}

func (s *txStore) Checklist(ctx context.Context, id int64) (model.Checklist, error) {
	query := s.tx.Rebind(`SELECT ` + checklistColumns + ` FROM checklists WHERE id = ?`)

	var c model.Checklist
	if err := s.tx.GetContext(ctx, &c, query, id); err != nil {
		return model.Checklist{}, classify(fmt.Errorf("failed to get checklist %d: %w", id, err))
	}
	return c, nil
}

func (s *txStore) LatestApprovedChecklist(ctx context.Context, barnID int64) (model.Checklist, bool, error) {
	query := s.tx.Rebind(`SELECT ` + checklistColumns + `
		FROM checklists
		WHERE barn_id = ? AND approved = ?
		ORDER BY submitted_at DESC, id DESC
		LIMIT 1`)

	var checklists []model.Checklist
	if err := s.tx.SelectContext(ctx, &checklists, query, barnID, true); err != nil {
		return model.Checklist{}, false, classify(fmt.Errorf("failed to query latest checklist for barn %d: %w", barnID, err))
	}
	if len(checklists) == 0 {
		return model.Checklist{}, false, nil
	}
	return checklists[0], true, nil
}

func (s *txStore) RecentApprovedChecklists(ctx context.Context, barnID int64, limit int) ([]model.Checklist, error) {
	query := s.tx.Rebind(`SELECT ` + checklistColumns + `
		FROM checklists
		WHERE barn_id = ? AND approved = ?
		ORDER BY submitted_at DESC, id DESC
		LIMIT ?`)

	var checklists []model.Checklist
	if err := s.tx.SelectContext(ctx, &checklists, query, barnID, true, limit); err != nil {
		return nil, classify(fmt.Errorf("failed to query checklists for barn %d: %w", barnID, err))
	}
	return checklists, nil
}

func (s *txStore) insert(ctx context.Context, what, query string, args ...any) (int64, error) {
	var id int64
	if err := s.tx.QueryRowxContext(ctx, s.tx.Rebind(query), args...).Scan(&id); err != nil {
		return 0, classify(fmt.Errorf("failed to insert %s: %w", what, err))
	}
	return id, nil
}

func (s *txStore) InsertFarm(ctx context.Context, f model.Farm) (int64, error) {
	createdAt := f.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	return s.insert(ctx, "farm",
		`INSERT INTO farms (name, location, created_at) VALUES (?, ?, ?) RETURNING id`,
		f.Name, f.Location, createdAt)
}

func (s *txStore) InsertBarn(ctx context.Context, b model.Barn) (int64, error) {
	level := b.RiskLevel
	if level == "" {
		level = model.RiskLow.Level()
	}
	updated := b.LastUpdated
	if updated.IsZero() {
		updated = time.Now().UTC()
	}
	var farmID any
	if b.FarmID != 0 {
		farmID = b.FarmID
	}
	return s.insert(ctx, "barn",
		`INSERT INTO barns (farm_id, name, capacity, risk_level, last_updated) VALUES (?, ?, ?, ?, ?) RETURNING id`,
		farmID, b.Name, b.Capacity, level, updated)
}

func (s *txStore) InsertChecklist(ctx context.Context, c model.Checklist) (int64, error) {
	submitted := c.SubmittedAt
	if submitted.IsZero() {
		submitted = time.Now().UTC()
	}
	var userID any
	if c.UserID != 0 {
		userID = c.UserID
	}
	const query = `
		INSERT INTO checklists (
			barn_id, user_id,
			hygiene_score, mortality_count, feed_quality, water_quality,
			ventilation_score, temperature, humidity,
			notes, submitted_at, approved, approved_by, approved_at
		) VALUES (
			?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?
		) RETURNING id`

	return s.insert(ctx, "checklist", query,
		c.BarnID, userID,
		c.HygieneScore, c.MortalityCount, c.FeedQuality, c.WaterQuality,
		c.VentilationScore, c.Temperature, c.Humidity,
		c.Notes, submitted, c.Approved, c.ApprovedBy, c.ApprovedAt,
	)
}

// ApproveChecklist approves a pending checklist. A checklist that is already
// approved is left untouched and reported as ErrAlreadyApproved.
func (s *txStore) ApproveChecklist(ctx context.Context, id, approverID int64, at time.Time) error {
	query := s.tx.Rebind(`
		UPDATE checklists SET approved = ?, approved_by = ?, approved_at = ?
		WHERE id = ? AND approved = ?`)
	res, err := s.tx.ExecContext(ctx, query, true, approverID, at, id, false)
	if err != nil {
		return classify(fmt.Errorf("failed to approve checklist %d: %w", id, err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return classify(fmt.Errorf("failed to read affected rows: %w", err))
	}
	if n > 0 {
		return nil
	}

	var approved bool
	if err := s.tx.GetContext(ctx, &approved, s.tx.Rebind(`SELECT approved FROM checklists WHERE id = ?`), id); err != nil {
		return classify(fmt.Errorf("failed to get checklist %d: %w", id, err))
	}
	return fmt.Errorf("checklist %d: %w", id, ErrAlreadyApproved)
}

func (s *txStore) SetBarnRisk(ctx context.Context, barnID int64, level string, at time.Time) error {
	query := s.tx.Rebind(`UPDATE barns SET risk_level = ?, last_updated = ? WHERE id = ?`)
	res, err := s.tx.ExecContext(ctx, query, level, at, barnID)
	if err != nil {
		return classify(fmt.Errorf("failed to update risk of barn %d: %w", barnID, err))
	}
	return expectOneRow(res, "barn", barnID)
}

func (s *txStore) InsertAlert(ctx context.Context, a model.Alert) (int64, error) {
	created := a.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	return s.insert(ctx, "alert",
		`INSERT INTO alerts (type, message, severity, barn_id, user_id, read, created_at) VALUES (?, ?, ?, ?, ?, ?, ?) RETURNING id`,
		a.Type, a.Message, a.Severity, a.BarnID, a.UserID, a.Read, created)
}
