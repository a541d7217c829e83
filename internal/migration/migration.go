package migration

import (
	"context"

	"biasaudit/internal/errors"

	"github.com/jmoiron/sqlx"
)

// MigrationRunner handles database schema migrations
type MigrationRunner struct {
	version string
}

// NewRunner creates a new migration runner
func NewRunner() *MigrationRunner {
	return &MigrationRunner{
		version: "1.0.0",
	}
}

// Version returns the migration version
func (r *MigrationRunner) Version() string {
	return r.version
}

// Run executes all database migrations in the correct order
func (r *MigrationRunner) Run(ctx context.Context, db *sqlx.DB) error {
	if err := r.createAuditReportsTable(ctx, db); err != nil {
		return errors.Wrap(err, "failed to create audit_reports table")
	}

	if err := r.createIndexes(ctx, db); err != nil {
		return errors.Wrap(err, "failed to create indexes")
	}

	return nil
}

func (r *MigrationRunner) createAuditReportsTable(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS audit_reports (
			id UUID PRIMARY KEY,
			operation VARCHAR(50) NOT NULL,
			dataset_hash VARCHAR(64) NOT NULL,
			target_column TEXT NOT NULL,
			protected_attribute TEXT NOT NULL,
			fairness_score DOUBLE PRECISION NOT NULL,
			disparate_impact DOUBLE PRECISION NOT NULL,
			payload JSONB NOT NULL,
			created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		)
	`)
	return err
}

func (r *MigrationRunner) createIndexes(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE INDEX IF NOT EXISTS idx_audit_reports_created_at ON audit_reports(created_at DESC);
		CREATE INDEX IF NOT EXISTS idx_audit_reports_dataset_hash ON audit_reports(dataset_hash);
	`)
	return err
}
