package database

import (
	"context"
	"fmt"

	"bnpl-financing-engine/internal/models"
)

// AuditRepository persists audit log rows.
type AuditRepository struct {
	db *DB
}

// NewAuditRepository creates a new audit repository.
func NewAuditRepository(db *DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// CreateAuditLog inserts an audit row.
func (r *AuditRepository) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	var details *string
	if len(log.Details) > 0 {
		s := string(log.Details)
		details = &s
	}

	query := `
		INSERT INTO audit_logs (id, actor_id, action, entity, entity_id, details, created_at)
		VALUES ($1, $2, $3, $4, $5, $6::jsonb, $7)`

	_, err := r.db.ExecContext(ctx, query,
		log.ID,
		log.ActorID,
		string(log.Action),
		log.Entity,
		nullableString(log.EntityID),
		details,
		log.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create audit log: %w", err)
	}
	return nil
}

// ListAuditLogs returns the audit trail of an entity, oldest first.
func (r *AuditRepository) ListAuditLogs(ctx context.Context, entityID string) ([]models.AuditLog, error) {
	query := `
		SELECT id, actor_id, action, entity, COALESCE(entity_id, ''), details::text, created_at
		FROM audit_logs
		WHERE entity_id = $1
		ORDER BY created_at ASC`

	rows, err := r.db.QueryContext(ctx, query, entityID)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit logs: %w", err)
	}
	defer rows.Close()

	var logs []models.AuditLog
	for rows.Next() {
		var l models.AuditLog
		var action string
		var details *string
		if err := rows.Scan(&l.ID, &l.ActorID, &action, &l.Entity, &l.EntityID, &details, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan audit log: %w", err)
		}
		l.Action = models.AuditAction(action)
		if details != nil {
			l.Details = []byte(*details)
		}
		logs = append(logs, l)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating audit logs: %w", err)
	}

	return logs, nil
}
