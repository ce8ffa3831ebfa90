package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/attendly/fieldforce-api/internal/models"
)

// ErrNoop signals from a Mutate callback that the transition is an
// idempotent no-op: the transaction commits without writing.
var ErrNoop = errors.New("attendance: no changes")

const attendanceColumns = `id, employee_id, date, check_in_time, check_out_time, check_in_lat, check_in_lng,
        status, timing_reason, travel_approved, confirmed_by_delegate, approved_by_admin, approved_by, approved_at,
        created_at, updated_at`

// AttendanceRepository owns the attendance_records table, one row per
// (employee_id, date). All mutations are serialized per record: either a
// single guarded statement or a SELECT ... FOR UPDATE transaction.
type AttendanceRepository struct {
	db *sqlx.DB
}

// NewAttendanceRepository constructs the repository.
func NewAttendanceRepository(db *sqlx.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

// Get fetches the record for (employee, date). sql.ErrNoRows passes through.
func (r *AttendanceRepository) Get(ctx context.Context, employeeID string, date time.Time) (*models.AttendanceRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM attendance_records WHERE employee_id = $1 AND date = $2`, attendanceColumns)
	var rec models.AttendanceRecord
	if err := r.db.GetContext(ctx, &rec, query, employeeID, date); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("get attendance record: %w", err)
	}
	return &rec, nil
}

// List returns records matching the filter plus the unpaginated total.
func (r *AttendanceRepository) List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecord, int, error) {
	where := []string{"1=1"}
	args := []interface{}{}
	if filter.EmployeeID != "" {
		where = append(where, fmt.Sprintf("employee_id = $%d", len(args)+1))
		args = append(args, filter.EmployeeID)
	}
	if filter.Status != nil && filter.Status.Valid() {
		where = append(where, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, *filter.Status)
	}
	if filter.DateFrom != nil {
		where = append(where, fmt.Sprintf("date >= $%d", len(args)+1))
		args = append(args, *filter.DateFrom)
	}
	if filter.DateTo != nil {
		where = append(where, fmt.Sprintf("date <= $%d", len(args)+1))
		args = append(args, *filter.DateTo)
	}
	if filter.Unapproved {
		where = append(where, "approved_by_admin = FALSE")
	}
	whereClause := strings.Join(where, " AND ")

	sortColumn := "date"
	switch filter.SortBy {
	case "status":
		sortColumn = "status"
	case "updated_at":
		sortColumn = "updated_at"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 200 {
		size = 50
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT %s FROM attendance_records WHERE %s ORDER BY %s %s LIMIT %d OFFSET %d`,
		attendanceColumns, whereClause, sortColumn, order, size, offset)

	var rows []models.AttendanceRecord
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list attendance records: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM attendance_records WHERE %s", whereClause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count attendance records: %w", err)
	}
	return rows, total, nil
}

// UpsertCheckIn inserts or overwrites the check-in for (employee, date) in a
// single guarded statement. A concurrent first insert degrades to an update
// through the conflict target. When the existing row is already
// admin-approved the update is suppressed and sql.ErrNoRows is returned;
// callers surface that as a locked-record rejection.
func (r *AttendanceRepository) UpsertCheckIn(ctx context.Context, rec *models.AttendanceRecord) (*models.AttendanceRecord, error) {
	now := time.Now().UTC()
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now
	query := fmt.Sprintf(`INSERT INTO attendance_records
        (id, employee_id, date, check_in_time, check_in_lat, check_in_lng, status, timing_reason, travel_approved,
         confirmed_by_delegate, approved_by_admin, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, FALSE, FALSE, $10, $11)
ON CONFLICT (employee_id, date)
DO UPDATE SET check_in_time = EXCLUDED.check_in_time,
        check_in_lat = EXCLUDED.check_in_lat,
        check_in_lng = EXCLUDED.check_in_lng,
        status = EXCLUDED.status,
        timing_reason = EXCLUDED.timing_reason,
        updated_at = EXCLUDED.updated_at
WHERE attendance_records.approved_by_admin = FALSE
RETURNING %s`, attendanceColumns)
	var stored models.AttendanceRecord
	err := r.db.GetContext(ctx, &stored, query,
		rec.ID, rec.EmployeeID, rec.Date, rec.CheckInTime, rec.CheckInLat, rec.CheckInLng,
		rec.Status, rec.TimingReason, rec.TravelApproved, rec.CreatedAt, rec.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("upsert check-in: %w", err)
	}
	return &stored, nil
}

// Mutate runs fn against the current row under a row lock and writes back
// every mutable field in the same transaction. fn may return ErrNoop to
// commit without writing. sql.ErrNoRows passes through for missing records.
func (r *AttendanceRepository) Mutate(ctx context.Context, employeeID string, date time.Time, fn func(*models.AttendanceRecord) error) (*models.AttendanceRecord, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin attendance mutation: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			tx.Rollback()
		}
	}()

	query := fmt.Sprintf(`SELECT %s FROM attendance_records WHERE employee_id = $1 AND date = $2 FOR UPDATE`, attendanceColumns)
	var rec models.AttendanceRecord
	if err := tx.GetContext(ctx, &rec, query, employeeID, date); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("lock attendance record: %w", err)
	}

	if err := fn(&rec); err != nil {
		if errors.Is(err, ErrNoop) {
			if err := tx.Commit(); err != nil {
				return nil, fmt.Errorf("commit attendance mutation: %w", err)
			}
			committed = true
			return &rec, nil
		}
		return nil, err
	}

	rec.UpdatedAt = time.Now().UTC()
	update := `UPDATE attendance_records
SET check_in_time = $1, check_out_time = $2, check_in_lat = $3, check_in_lng = $4,
        status = $5, timing_reason = $6, travel_approved = $7, confirmed_by_delegate = $8,
        approved_by_admin = $9, approved_by = $10, approved_at = $11, updated_at = $12
WHERE id = $13`
	if _, err := tx.ExecContext(ctx, update,
		rec.CheckInTime, rec.CheckOutTime, rec.CheckInLat, rec.CheckInLng,
		rec.Status, rec.TimingReason, rec.TravelApproved, rec.ConfirmedByDelegate,
		rec.ApprovedByAdmin, rec.ApprovedBy, rec.ApprovedAt, rec.UpdatedAt, rec.ID); err != nil {
		return nil, fmt.Errorf("update attendance record: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit attendance mutation: %w", err)
	}
	committed = true
	return &rec, nil
}

// SweepUnmarked inserts not_marked rows for every roster employee lacking a
// record on the date. Existing rows are untouched. Returns the insert count.
func (r *AttendanceRepository) SweepUnmarked(ctx context.Context, date time.Time, employeeIDs []string) (int, error) {
	if len(employeeIDs) == 0 {
		return 0, nil
	}
	now := time.Now().UTC()
	query := `INSERT INTO attendance_records
        (id, employee_id, date, status, timing_reason, travel_approved, confirmed_by_delegate, approved_by_admin, created_at, updated_at)
SELECT gen_random_uuid(), emp, $1, $2, $3, FALSE, FALSE, FALSE, $4, $4
FROM unnest($5::text[]) AS emp
ON CONFLICT (employee_id, date) DO NOTHING`
	res, err := r.db.ExecContext(ctx, query, date, models.StatusNotMarked, models.ReasonNotMarked, now, pq.Array(employeeIDs))
	if err != nil {
		return 0, fmt.Errorf("sweep unmarked: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("sweep unmarked count: %w", err)
	}
	return int(affected), nil
}

// SetTravelApproved flips the travel flag on existing, unapproved records in
// the range. It never fabricates rows: a date without a record stays absent
// until the employee actually checks in.
func (r *AttendanceRepository) SetTravelApproved(ctx context.Context, employeeID string, from, to time.Time) (int, error) {
	query := `UPDATE attendance_records
SET travel_approved = TRUE, updated_at = $1
WHERE employee_id = $2 AND date >= $3 AND date <= $4 AND approved_by_admin = FALSE`
	res, err := r.db.ExecContext(ctx, query, time.Now().UTC(), employeeID, from, to)
	if err != nil {
		return 0, fmt.Errorf("set travel approved: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("set travel approved count: %w", err)
	}
	return int(affected), nil
}

// ListUnapproved returns keys of records in the range still awaiting admin
// approval, for bulk processing.
func (r *AttendanceRepository) ListUnapproved(ctx context.Context, from, to time.Time) ([]models.AttendanceRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM attendance_records
WHERE date >= $1 AND date <= $2 AND approved_by_admin = FALSE
ORDER BY employee_id, date`, attendanceColumns)
	var rows []models.AttendanceRecord
	if err := r.db.SelectContext(ctx, &rows, query, from, to); err != nil {
		return nil, fmt.Errorf("list unapproved records: %w", err)
	}
	return rows, nil
}

// Summary aggregates status counts for an employee within a range.
func (r *AttendanceRepository) Summary(ctx context.Context, employeeID string, from, to time.Time) (*models.AttendanceSummary, error) {
	query := `SELECT status, COUNT(*) AS cnt
FROM attendance_records
WHERE employee_id = $1 AND date >= $2 AND date <= $3
GROUP BY status`
	rows := []struct {
		Status string `db:"status"`
		Count  int    `db:"cnt"`
	}{}
	if err := r.db.SelectContext(ctx, &rows, query, employeeID, from, to); err != nil {
		return nil, fmt.Errorf("attendance summary: %w", err)
	}
	summary := &models.AttendanceSummary{}
	for _, row := range rows {
		switch models.AttendanceStatus(row.Status) {
		case models.StatusPresent:
			summary.Present += row.Count
		case models.StatusHalfDay:
			summary.HalfDay += row.Count
		case models.StatusAbsent:
			summary.Absent += row.Count
		case models.StatusNotMarked:
			summary.Unmarked += row.Count
		}
		summary.Total += row.Count
	}
	if summary.Total > 0 {
		summary.Percent = (float64(summary.Present) + 0.5*float64(summary.HalfDay)) / float64(summary.Total) * 100
	}
	return summary, nil
}
