package ports

import (
	"context"

	"biasaudit/domain/audit"
	"biasaudit/domain/core"
)

// ReportRepository is the append-only ledger of audit summaries
type ReportRepository interface {
	Save(ctx context.Context, report *audit.StoredReport) error
	Get(ctx context.Context, id core.AuditID) (*audit.StoredReport, error)
	List(ctx context.Context, limit int) ([]audit.StoredReport, error)
}
