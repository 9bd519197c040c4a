package audit

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/de-tools/cloud-warden/pkg/models/store"
	"github.com/de-tools/cloud-warden/pkg/store/duckdb"
)

// Store is the append-only persistence for audit records. Records are
// never updated or deleted; reads serve the reporting surfaces.
type Store interface {
	Append(ctx context.Context, record store.AuditRecord) error
	GetRecent(ctx context.Context, limit int) ([]store.AuditRecord, error)
	GetByResource(ctx context.Context, resourceType, resourceID string, limit int) ([]store.AuditRecord, error)
}

type auditStore struct {
	db *sql.DB
}

func NewStore(db *sql.DB) (Store, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}
	return &auditStore{db: db}, nil
}

func (s *auditStore) Append(ctx context.Context, record store.AuditRecord) error {
	query := `
		INSERT INTO audit_records (
			id, resource_type, resource_id, region, account,
			rule, compliance, reason,
			remediation_action, remediation_status, remediation_attempts, remediation_reason,
			evaluated_at, created_at
		) VALUES (
			?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?
		)`

	tx := duckdb.GetTransaction(ctx)
	var err error
	args := []any{
		record.ID,
		record.ResourceType,
		record.ResourceID,
		record.Region,
		record.Account,
		record.Rule,
		record.Compliance,
		record.Reason,
		record.RemediationAction,
		record.RemediationStatus,
		record.RemediationAttempts,
		record.RemediationReason,
		record.EvaluatedAt,
		record.CreatedAt,
	}
	if tx == nil {
		_, err = s.db.ExecContext(ctx, query, args...)
	} else {
		_, err = tx.ExecContext(ctx, query, args...)
	}
	if err != nil {
		return fmt.Errorf("insert audit record: %w", err)
	}
	return nil
}

const selectColumns = `
	SELECT id, resource_type, resource_id, region, account,
		rule, compliance, reason,
		remediation_action, remediation_status, remediation_attempts, remediation_reason,
		evaluated_at, created_at
	FROM audit_records
`

func (s *auditStore) GetRecent(ctx context.Context, limit int) ([]store.AuditRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	query := selectColumns + `
		ORDER BY created_at DESC
		LIMIT ?`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query audit records: %w", err)
	}
	defer rows.Close()
	return scanRecords(rows)
}

func (s *auditStore) GetByResource(
	ctx context.Context,
	resourceType, resourceID string,
	limit int,
) ([]store.AuditRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	query := selectColumns + `
		WHERE resource_type = ? AND resource_id = ?
		ORDER BY created_at DESC
		LIMIT ?`
	rows, err := s.db.QueryContext(ctx, query, resourceType, resourceID, limit)
	if err != nil {
		return nil, fmt.Errorf("query audit records for %s/%s: %w", resourceType, resourceID, err)
	}
	defer rows.Close()
	return scanRecords(rows)
}

func scanRecords(rows *sql.Rows) ([]store.AuditRecord, error) {
	var records []store.AuditRecord
	for rows.Next() {
		var rec store.AuditRecord
		var evaluatedAt, createdAt sql.NullTime
		err := rows.Scan(
			&rec.ID,
			&rec.ResourceType,
			&rec.ResourceID,
			&rec.Region,
			&rec.Account,
			&rec.Rule,
			&rec.Compliance,
			&rec.Reason,
			&rec.RemediationAction,
			&rec.RemediationStatus,
			&rec.RemediationAttempts,
			&rec.RemediationReason,
			&evaluatedAt,
			&createdAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan audit record: %w", err)
		}
		if evaluatedAt.Valid {
			rec.EvaluatedAt = evaluatedAt.Time.UTC()
		}
		if createdAt.Valid {
			rec.CreatedAt = createdAt.Time.UTC()
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit records: %w", err)
	}
	return records, nil
}

// Touch is a connectivity probe used by the web health endpoint.
func Touch(ctx context.Context, db *sql.DB) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return db.PingContext(ctx)
}
