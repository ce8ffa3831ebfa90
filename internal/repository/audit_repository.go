package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/attendly/fieldforce-api/internal/models"
)

// AuditRepository persists the domain event trail.
type AuditRepository struct {
	db *sqlx.DB
}

// NewAuditRepository constructs the repository.
func NewAuditRepository(db *sqlx.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// Create inserts an audit event row.
func (r *AuditRepository) Create(ctx context.Context, event *models.AuditEvent) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO audit_events
        (id, event_type, actor_id, employee_id, date, before_status, after_status, detail, created_at)
VALUES (:id, :event_type, :actor_id, :employee_id, :date, :before_status, :after_status, :detail, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, event); err != nil {
		return fmt.Errorf("create audit event: %w", err)
	}
	return nil
}

// ListForRecord returns the trail for one (employee, date), oldest first.
func (r *AuditRepository) ListForRecord(ctx context.Context, employeeID string, date time.Time) ([]models.AuditEvent, error) {
	const query = `SELECT id, event_type, actor_id, employee_id, date, before_status, after_status, detail, created_at
FROM audit_events
WHERE employee_id = $1 AND date = $2
ORDER BY created_at ASC`
	var events []models.AuditEvent
	if err := r.db.SelectContext(ctx, &events, query, employeeID, date); err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	return events, nil
}
