package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"farm_service/internal/domain/model"
)

// Supported database/sql driver names.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Tx is the set of store operations available inside a transaction.
type Tx interface {
	Barns(ctx context.Context) ([]model.Barn, error)
	Barn(ctx context.Context, id int64) (model.Barn, error)
	Checklist(ctx context.Context, id int64) (model.Checklist, error)
	// LatestApprovedChecklist reports false when the barn has no approved checklist.
	LatestApprovedChecklist(ctx context.Context, barnID int64) (model.Checklist, bool, error)
	// RecentApprovedChecklists returns up to limit approved checklists, newest first.
	RecentApprovedChecklists(ctx context.Context, barnID int64, limit int) ([]model.Checklist, error)
	InsertFarm(ctx context.Context, f model.Farm) (int64, error)
	InsertBarn(ctx context.Context, b model.Barn) (int64, error)
	InsertChecklist(ctx context.Context, c model.Checklist) (int64, error)
	ApproveChecklist(ctx context.Context, id, approverID int64, at time.Time) error
	SetBarnRisk(ctx context.Context, barnID int64, level string, at time.Time) error
	InsertAlert(ctx context.Context, a model.Alert) (int64, error)
}

// Store is the farm data store consumed by the risk workflows.
type Store interface {
	ApprovedChecklists(ctx context.Context) ([]model.Checklist, error)
	// InTx runs fn in one transaction, committing only if fn returns nil.
	InTx(ctx context.Context, fn func(tx Tx) error) error
}

type FarmRepository struct {
	db *sqlx.DB
}

// Open connects to the database and verifies the connection.
func Open(ctx context.Context, driver, dsn string) (*FarmRepository, error) {
	if _, err := dialectFor(driver); err != nil {
		return nil, err
	}
	db, err := sqlx.ConnectContext(ctx, driver, dsn)
	if err != nil {
		return nil, classify(fmt.Errorf("failed to connect to %s: %w", driver, err))
	}
	return &FarmRepository{db: db}, nil
}

// DB exposes the underlying pool.
func (r *FarmRepository) DB() *sqlx.DB { return r.db }

func (r *FarmRepository) Close() error { return r.db.Close() }

const checklistColumns = `
	id, barn_id, COALESCE(user_id, 0) AS user_id,
	hygiene_score, mortality_count, feed_quality, water_quality,
	ventilation_score, temperature, humidity,
	COALESCE(notes, '') AS notes, submitted_at,
	approved, approved_by, approved_at`

// ApprovedChecklists returns every approved inspection, oldest first.
func (r *FarmRepository) ApprovedChecklists(ctx context.Context) ([]model.Checklist, error) {
	query := r.db.Rebind(`SELECT ` + checklistColumns + `
		FROM checklists
		WHERE approved = ?
		ORDER BY submitted_at, id`)

	var checklists []model.Checklist
	if err := r.db.SelectContext(ctx, &checklists, query, true); err != nil {
		return nil, classify(fmt.Errorf("failed to query approved checklists: %w", err))
	}
	return checklists, nil
}

// PendingChecklists returns inspections awaiting approval, oldest first.
func (r *FarmRepository) PendingChecklists(ctx context.Context) ([]model.Checklist, error) {
	query := r.db.Rebind(`SELECT ` + checklistColumns + `
		FROM checklists
		WHERE approved = ?
		ORDER BY submitted_at, id`)

	var checklists []model.Checklist
	if err := r.db.SelectContext(ctx, &checklists, query, false); err != nil {
		return nil, classify(fmt.Errorf("failed to query pending checklists: %w", err))
	}
	return checklists, nil
}

// InTx begins a transaction, runs fn and commits. Any error or panic from
// fn rolls the whole transaction back.
func (r *FarmRepository) InTx(ctx context.Context, fn func(tx Tx) error) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return classify(fmt.Errorf("failed to begin transaction: %w", err))
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(&txStore{tx: tx}); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return classify(fmt.Errorf("failed to commit transaction: %w", err))
	}
	return nil
}

// Alerts returns stored alerts, newest first.
func (r *FarmRepository) Alerts(ctx context.Context) ([]model.Alert, error) {
	const query = `
		SELECT id, type, message, severity, barn_id, user_id, read, created_at
		FROM alerts
		ORDER BY created_at DESC, id DESC`

	var alerts []model.Alert
	if err := r.db.SelectContext(ctx, &alerts, query); err != nil {
		return nil, classify(fmt.Errorf("failed to query alerts: %w", err))
	}
	return alerts, nil
}
