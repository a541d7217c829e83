package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"biasaudit/domain/audit"
	"biasaudit/domain/core"
	apperrors "biasaudit/internal/errors"
	"biasaudit/ports"

	"github.com/jmoiron/sqlx"
)

// ReportRepositoryImpl implements ReportRepository for PostgreSQL
type ReportRepositoryImpl struct {
	db *sqlx.DB
}

// NewReportRepository creates a new PostgreSQL report repository
func NewReportRepository(db *sqlx.DB) ports.ReportRepository {
	return &ReportRepositoryImpl{db: db}
}

// Save appends a report to the ledger
func (r *ReportRepositoryImpl) Save(ctx context.Context, report *audit.StoredReport) error {
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO audit_reports (id, operation, dataset_hash, target_column, protected_attribute, fairness_score, disparate_impact, payload, created_at)
		VALUES (:id, :operation, :dataset_hash, :target_column, :protected_attribute, :fairness_score, :disparate_impact, :payload, :created_at)
	`, report)
	if err != nil {
		return dbError(err, "failed to save report %s", report.ID)
	}
	return nil
}

// Get retrieves one report by ID
func (r *ReportRepositoryImpl) Get(ctx context.Context, id core.AuditID) (*audit.StoredReport, error) {
	var report audit.StoredReport
	err := r.db.GetContext(ctx, &report, `
		SELECT id, operation, dataset_hash, target_column, protected_attribute, fairness_score, disparate_impact, payload, created_at
		FROM audit_reports
		WHERE id = $1
	`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", core.ErrReportNotFound, id)
	}
	if err != nil {
		return nil, dbError(err, "failed to load report %s", id)
	}
	return &report, nil
}

// List returns the most recent reports first, optionally limited
func (r *ReportRepositoryImpl) List(ctx context.Context, limit int) ([]audit.StoredReport, error) {
	query := `
		SELECT id, operation, dataset_hash, target_column, protected_attribute, fairness_score, disparate_impact, payload, created_at
		FROM audit_reports
		ORDER BY created_at DESC
	`
	args := []interface{}{}
	if limit > 0 {
		query += " LIMIT $1"
		args = append(args, limit)
	}

	reports := []audit.StoredReport{}
	if err := r.db.SelectContext(ctx, &reports, query, args...); err != nil {
		return nil, dbError(err, "failed to list reports")
	}
	return reports, nil
}

func dbError(err error, format string, args ...interface{}) error {
	appErr := apperrors.DatabaseError(fmt.Sprintf(format, args...))
	appErr.Cause = err
	return appErr
}
