package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/attendly/fieldforce-api/internal/models"
)

const travelColumns = `id, employee_id, from_date, to_date, duration_class, distance_km, purpose, justification,
        contact_number, status, decided_by, decided_at, remarks, created_at, updated_at`

// TravelRepository persists travel authorization requests.
type TravelRepository struct {
	db *sqlx.DB
}

// NewTravelRepository constructs the repository.
func NewTravelRepository(db *sqlx.DB) *TravelRepository {
	return &TravelRepository{db: db}
}

// Create inserts a new pending travel request.
func (r *TravelRepository) Create(ctx context.Context, req *models.TravelRequest) error {
	now := time.Now().UTC()
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	if req.Status == "" {
		req.Status = models.TravelStatusPending
	}
	if req.CreatedAt.IsZero() {
		req.CreatedAt = now
	}
	req.UpdatedAt = now
	const query = `INSERT INTO travel_requests
        (id, employee_id, from_date, to_date, duration_class, distance_km, purpose, justification, contact_number,
         status, decided_by, decided_at, remarks, created_at, updated_at)
VALUES (:id, :employee_id, :from_date, :to_date, :duration_class, :distance_km, :purpose, :justification, :contact_number,
        :status, :decided_by, :decided_at, :remarks, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, req); err != nil {
		return fmt.Errorf("create travel request: %w", err)
	}
	return nil
}

// GetByID fetches a travel request. sql.ErrNoRows passes through.
func (r *TravelRepository) GetByID(ctx context.Context, id string) (*models.TravelRequest, error) {
	query := fmt.Sprintf(`SELECT %s FROM travel_requests WHERE id = $1`, travelColumns)
	var req models.TravelRequest
	if err := r.db.GetContext(ctx, &req, query, id); err != nil {
		return nil, err
	}
	return &req, nil
}

// List returns travel requests matching the filter, latest first.
func (r *TravelRepository) List(ctx context.Context, filter models.TravelFilter) ([]models.TravelRequest, int, error) {
	where := []string{"1=1"}
	args := []interface{}{}
	if filter.EmployeeID != "" {
		where = append(where, fmt.Sprintf("employee_id = $%d", len(args)+1))
		args = append(args, filter.EmployeeID)
	}
	if filter.Status != nil {
		where = append(where, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, *filter.Status)
	}
	whereClause := strings.Join(where, " AND ")

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 200 {
		size = 50
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT %s FROM travel_requests WHERE %s ORDER BY created_at DESC LIMIT %d OFFSET %d`,
		travelColumns, whereClause, size, offset)
	var rows []models.TravelRequest
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list travel requests: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM travel_requests WHERE %s", whereClause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count travel requests: %w", err)
	}
	return rows, total, nil
}

// IsApproved reports whether an approved travel request covers the date.
// Feeds the geofence bypass and classification at check-in, before any
// attendance record exists for the date.
func (r *TravelRepository) IsApproved(ctx context.Context, employeeID string, date time.Time) (bool, error) {
	const query = `SELECT EXISTS (
        SELECT 1 FROM travel_requests
        WHERE employee_id = $1 AND status = $2 AND from_date <= $3 AND to_date >= $3)`
	var approved bool
	if err := r.db.GetContext(ctx, &approved, query, employeeID, models.TravelStatusApproved, date); err != nil {
		return false, fmt.Errorf("check approved travel: %w", err)
	}
	return approved, nil
}

// Decide persists a terminal decision. The status guard in the WHERE clause
// keeps decisions monotonic: a request decided by a concurrent approver
// yields sql.ErrNoRows instead of a second transition.
func (r *TravelRepository) Decide(ctx context.Context, id string, status models.TravelStatus, decidedBy string, decidedAt time.Time, remarks *string) error {
	query := fmt.Sprintf(`UPDATE travel_requests
SET status = :status, decided_by = :decided_by, decided_at = :decided_at, remarks = :remarks, updated_at = :decided_at
WHERE id = :id AND status = '%s'`, models.TravelStatusPending)
	result, err := r.db.NamedExecContext(ctx, query, map[string]interface{}{
		"id":         id,
		"status":     status,
		"decided_by": decidedBy,
		"decided_at": decidedAt,
		"remarks":    remarks,
	})
	if err != nil {
		return fmt.Errorf("decide travel request: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check travel decision rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}
