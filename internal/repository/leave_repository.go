package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/attendly/fieldforce-api/internal/models"
)

// LeaveRepository reads approved-leave facts. Leave approval is managed by
// the leave service; the engine only consumes the resolved state.
type LeaveRepository struct {
	db *sqlx.DB
}

// NewLeaveRepository constructs the repository.
func NewLeaveRepository(db *sqlx.DB) *LeaveRepository {
	return &LeaveRepository{db: db}
}

// IsApproved reports whether an approved leave request covers the date.
func (r *LeaveRepository) IsApproved(ctx context.Context, employeeID string, date time.Time) (bool, error) {
	const query = `SELECT EXISTS (
        SELECT 1 FROM leave_requests
        WHERE employee_id = $1 AND status = $2 AND from_date <= $3 AND to_date >= $3)`
	var approved bool
	if err := r.db.GetContext(ctx, &approved, query, employeeID, models.LeaveStatusApproved, date); err != nil {
		return false, fmt.Errorf("check approved leave: %w", err)
	}
	return approved, nil
}

// ListApproved returns approved requests overlapping the range, latest first.
func (r *LeaveRepository) ListApproved(ctx context.Context, employeeID string, from, to time.Time) ([]models.LeaveRequest, error) {
	const query = `SELECT id, employee_id, from_date, to_date, leave_type, reason, status, decided_by, decided_at, created_at
FROM leave_requests
WHERE employee_id = $1 AND status = $2 AND from_date <= $3 AND to_date >= $4
ORDER BY from_date DESC`
	var rows []models.LeaveRequest
	if err := r.db.SelectContext(ctx, &rows, query, employeeID, models.LeaveStatusApproved, to, from); err != nil {
		return nil, fmt.Errorf("list approved leave: %w", err)
	}
	return rows, nil
}
