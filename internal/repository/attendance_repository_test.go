package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/attendly/fieldforce-api/internal/models"
)

func newAttendanceRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

var attendanceRows = []string{
	"id", "employee_id", "date", "check_in_time", "check_out_time", "check_in_lat", "check_in_lng",
	"status", "timing_reason", "travel_approved", "confirmed_by_delegate", "approved_by_admin",
	"approved_by", "approved_at", "created_at", "updated_at",
}

func attendanceRow(id, employeeID string, date time.Time, status, reason string, confirmed, approved bool) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(attendanceRows).
		AddRow(id, employeeID, date, "09:00", nil, 28.61, 77.21, status, reason, false, confirmed, approved, nil, nil, now, now)
}

func TestUpsertCheckInReturnsStoredRow(t *testing.T) {
	db, mock, cleanup := newAttendanceRepoMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	date := time.Date(2026, 8, 3, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery("INSERT INTO attendance_records").
		WillReturnRows(attendanceRow("rec-1", "EMP001", date, "present", "on_time", false, false))

	checkIn := "09:00"
	lat, lng := 28.61, 77.21
	stored, err := repo.UpsertCheckIn(context.Background(), &models.AttendanceRecord{
		EmployeeID:   "EMP001",
		Date:         date,
		CheckInTime:  &checkIn,
		CheckInLat:   &lat,
		CheckInLng:   &lng,
		Status:       models.StatusPresent,
		TimingReason: models.ReasonOnTime,
	})
	require.NoError(t, err)
	assert.Equal(t, "rec-1", stored.ID)
	assert.Equal(t, models.StatusPresent, stored.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertCheckInLockedRecord(t *testing.T) {
	db, mock, cleanup := newAttendanceRepoMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	// The guarded conflict update returns no rows for approved records.
	mock.ExpectQuery("INSERT INTO attendance_records").
		WillReturnError(sql.ErrNoRows)

	checkIn := "09:00"
	_, err := repo.UpsertCheckIn(context.Background(), &models.AttendanceRecord{
		EmployeeID:   "EMP001",
		Date:         time.Date(2026, 8, 3, 0, 0, 0, 0, time.UTC),
		CheckInTime:  &checkIn,
		Status:       models.StatusPresent,
		TimingReason: models.ReasonOnTime,
	})
	assert.True(t, errors.Is(err, sql.ErrNoRows))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMutateCommitsCallbackChanges(t *testing.T) {
	db, mock, cleanup := newAttendanceRepoMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	date := time.Date(2026, 8, 3, 0, 0, 0, 0, time.UTC)
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT .* FROM attendance_records WHERE employee_id = \\$1 AND date = \\$2 FOR UPDATE").
		WithArgs("EMP001", date).
		WillReturnRows(attendanceRow("rec-1", "EMP001", date, "present", "on_time", false, false))
	mock.ExpectExec("UPDATE attendance_records").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	rec, err := repo.Mutate(context.Background(), "EMP001", date, func(rec *models.AttendanceRecord) error {
		rec.ConfirmedByDelegate = true
		return nil
	})
	require.NoError(t, err)
	assert.True(t, rec.ConfirmedByDelegate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMutateNoopCommitsWithoutWrite(t *testing.T) {
	db, mock, cleanup := newAttendanceRepoMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	date := time.Date(2026, 8, 3, 0, 0, 0, 0, time.UTC)
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT .* FROM attendance_records WHERE employee_id = \\$1 AND date = \\$2 FOR UPDATE").
		WithArgs("EMP001", date).
		WillReturnRows(attendanceRow("rec-1", "EMP001", date, "present", "on_time", true, false))
	mock.ExpectCommit()

	rec, err := repo.Mutate(context.Background(), "EMP001", date, func(rec *models.AttendanceRecord) error {
		return ErrNoop
	})
	require.NoError(t, err)
	assert.True(t, rec.ConfirmedByDelegate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMutateRollsBackOnCallbackError(t *testing.T) {
	db, mock, cleanup := newAttendanceRepoMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	date := time.Date(2026, 8, 3, 0, 0, 0, 0, time.UTC)
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT .* FROM attendance_records WHERE employee_id = \\$1 AND date = \\$2 FOR UPDATE").
		WithArgs("EMP001", date).
		WillReturnRows(attendanceRow("rec-1", "EMP001", date, "present", "on_time", false, false))
	mock.ExpectRollback()

	boom := errors.New("boom")
	_, err := repo.Mutate(context.Background(), "EMP001", date, func(rec *models.AttendanceRecord) error {
		return boom
	})
	assert.True(t, errors.Is(err, boom))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMutateMissingRecord(t *testing.T) {
	db, mock, cleanup := newAttendanceRepoMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	date := time.Date(2026, 8, 3, 0, 0, 0, 0, time.UTC)
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT .* FROM attendance_records WHERE employee_id = \\$1 AND date = \\$2 FOR UPDATE").
		WithArgs("EMP404", date).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	_, err := repo.Mutate(context.Background(), "EMP404", date, func(rec *models.AttendanceRecord) error {
		return nil
	})
	assert.True(t, errors.Is(err, sql.ErrNoRows))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSweepUnmarkedCountsInserts(t *testing.T) {
	db, mock, cleanup := newAttendanceRepoMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	mock.ExpectExec("INSERT INTO attendance_records").
		WillReturnResult(sqlmock.NewResult(0, 2))

	count, err := repo.SweepUnmarked(context.Background(),
		time.Date(2026, 8, 3, 0, 0, 0, 0, time.UTC),
		[]string{"EMP001", "EMP002", "EMP003"})
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSweepUnmarkedEmptyRoster(t *testing.T) {
	db, mock, cleanup := newAttendanceRepoMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	count, err := repo.SweepUnmarked(context.Background(),
		time.Date(2026, 8, 3, 0, 0, 0, 0, time.UTC), nil)
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSetTravelApprovedTouchesOnlyUnapproved(t *testing.T) {
	db, mock, cleanup := newAttendanceRepoMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	from := time.Date(2026, 8, 10, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 8, 12, 0, 0, 0, 0, time.UTC)
	mock.ExpectExec("UPDATE attendance_records").
		WillReturnResult(sqlmock.NewResult(0, 1))

	count, err := repo.SetTravelApproved(context.Background(), "EMP001", from, to)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListBuildsFilters(t *testing.T) {
	db, mock, cleanup := newAttendanceRepoMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	date := time.Date(2026, 8, 3, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery("SELECT .* FROM attendance_records WHERE 1=1 AND employee_id = \\$1 AND approved_by_admin = FALSE").
		WithArgs("EMP001").
		WillReturnRows(attendanceRow("rec-1", "EMP001", date, "present", "on_time", false, false))
	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM attendance_records WHERE 1=1 AND employee_id = \\$1 AND approved_by_admin = FALSE").
		WithArgs("EMP001").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	rows, total, err := repo.List(context.Background(), models.AttendanceFilter{
		EmployeeID: "EMP001",
		Unapproved: true,
	})
	require.NoError(t, err)
	assert.Len(t, rows, 1)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}
