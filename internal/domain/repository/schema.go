package repository

import (
	"context"
	"fmt"
)

type dialect struct {
	statements []string
}

var postgresSchema = dialect{statements: []string{
	`CREATE TABLE IF NOT EXISTS farms (
		id BIGSERIAL PRIMARY KEY,
		name VARCHAR(100) NOT NULL,
		location VARCHAR(200) NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS barns (
		id BIGSERIAL PRIMARY KEY,
		farm_id BIGINT REFERENCES farms(id),
		name VARCHAR(100) NOT NULL,
		capacity INTEGER NOT NULL DEFAULT 0,
		risk_level VARCHAR(10) NOT NULL DEFAULT 'low',
		last_updated TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS checklists (
		id BIGSERIAL PRIMARY KEY,
		barn_id BIGINT NOT NULL REFERENCES barns(id),
		user_id BIGINT,
		hygiene_score DOUBLE PRECISION,
		mortality_count DOUBLE PRECISION,
		feed_quality DOUBLE PRECISION,
		water_quality DOUBLE PRECISION,
		ventilation_score DOUBLE PRECISION,
		temperature DOUBLE PRECISION,
		humidity DOUBLE PRECISION,
		notes TEXT,
		submitted_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		approved BOOLEAN NOT NULL DEFAULT FALSE,
		approved_by BIGINT,
		approved_at TIMESTAMPTZ
	)`,
	`CREATE INDEX IF NOT EXISTS checklists_barn_approved_idx
		ON checklists (barn_id, approved, submitted_at DESC)`,
	`CREATE TABLE IF NOT EXISTS alerts (
		id BIGSERIAL PRIMARY KEY,
		type VARCHAR(50) NOT NULL,
		message TEXT NOT NULL,
		severity VARCHAR(10) NOT NULL,
		barn_id BIGINT REFERENCES barns(id),
		user_id BIGINT,
		read BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS training_runs (
		run_id VARCHAR(36) PRIMARY KEY,
		source VARCHAR(20) NOT NULL,
		row_count INTEGER NOT NULL,
		low_count INTEGER NOT NULL,
		medium_count INTEGER NOT NULL,
		high_count INTEGER NOT NULL,
		trees INTEGER NOT NULL,
		duration_ms BIGINT NOT NULL,
		trained_at TIMESTAMPTZ NOT NULL
	)`,
}}

var sqliteSchema = dialect{statements: []string{
	`CREATE TABLE IF NOT EXISTS farms (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		location TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS barns (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		farm_id INTEGER REFERENCES farms(id),
		name TEXT NOT NULL,
		capacity INTEGER NOT NULL DEFAULT 0,
		risk_level TEXT NOT NULL DEFAULT 'low',
		last_updated TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS checklists (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		barn_id INTEGER NOT NULL REFERENCES barns(id),
		user_id INTEGER,
		hygiene_score REAL,
		mortality_count REAL,
		feed_quality REAL,
		water_quality REAL,
		ventilation_score REAL,
		temperature REAL,
		humidity REAL,
		notes TEXT,
		submitted_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		approved BOOLEAN NOT NULL DEFAULT 0,
		approved_by INTEGER,
		approved_at TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS checklists_barn_approved_idx
		ON checklists (barn_id, approved, submitted_at DESC)`,
	`CREATE TABLE IF NOT EXISTS alerts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		type TEXT NOT NULL,
		message TEXT NOT NULL,
		severity TEXT NOT NULL,
		barn_id INTEGER REFERENCES barns(id),
		user_id INTEGER,
		read BOOLEAN NOT NULL DEFAULT 0,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS training_runs (
		run_id TEXT PRIMARY KEY,
		source TEXT NOT NULL,
		row_count INTEGER NOT NULL,
		low_count INTEGER NOT NULL,
		medium_count INTEGER NOT NULL,
		high_count INTEGER NOT NULL,
		trees INTEGER NOT NULL,
		duration_ms INTEGER NOT NULL,
		trained_at TIMESTAMP NOT NULL
	)`,
}}

func dialectFor(driver string) (dialect, error) {
	switch driver {
	case DriverPostgres:
		return postgresSchema, nil
	case DriverSQLite:
		return sqliteSchema, nil
	default:
		return dialect{}, fmt.Errorf("unsupported database driver %q", driver)
	}
}

// Migrate creates any missing tables. It is safe to run repeatedly.
func (r *FarmRepository) Migrate(ctx context.Context) error {
	d, err := dialectFor(r.db.DriverName())
	if err != nil {
		return err
	}
	for _, stmt := range d.statements {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return classify(fmt.Errorf("failed to apply schema: %w", err))
		}
	}
	return nil
}
