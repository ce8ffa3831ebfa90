package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/attendly/fieldforce-api/internal/models"
	appErrors "github.com/attendly/fieldforce-api/pkg/errors"
)

const (
	testEmployee = "EMP001"
	testDate     = "2026-08-03"
)

type attendanceFixture struct {
	svc      *AttendanceService
	store    *memStore
	leaves   *stubLeaves
	travel   *stubTravelFacts
	audit    *stubAudit
	notifier *stubNotifier
	cache    *stubCache
}

func newAttendanceFixture(enforce bool) *attendanceFixture {
	f := &attendanceFixture{
		store:    newMemStore(),
		leaves:   &stubLeaves{approved: map[string]bool{}},
		travel:   &stubTravelFacts{approved: map[string]bool{}},
		audit:    &stubAudit{},
		notifier: &stubNotifier{},
		cache:    newStubCache(),
	}
	directory := &stubDirectory{
		employees: map[string]*models.Employee{
			testEmployee: {ID: testEmployee, FullName: "Asha Verma", Active: true},
		},
		sites: map[string]*models.Site{
			testEmployee: {ID: "site-1", Name: "HQ", Kind: models.WorkplaceOffice, Lat: 28.6139, Lng: 77.2090},
		},
		roster: []string{testEmployee, "EMP002", "EMP003"},
	}
	f.svc = NewAttendanceService(AttendanceServiceConfig{
		Store:           f.store,
		Leaves:          f.leaves,
		Travel:          f.travel,
		Directory:       directory,
		Audit:           f.audit,
		Notifier:        f.notifier,
		Cache:           f.cache,
		EnforceGeofence: enforce,
	})
	return f
}

func checkInAt(timeStr string) CheckInRequest {
	return CheckInRequest{
		EmployeeID: testEmployee,
		Date:       testDate,
		Time:       timeStr,
		Lat:        28.6139,
		Lng:        77.2090,
	}
}

func TestCheckInOnTime(t *testing.T) {
	f := newAttendanceFixture(false)

	result, err := f.svc.CheckIn(context.Background(), checkInAt("09:30"))
	require.NoError(t, err)
	assert.True(t, result.Geofence.OK)
	assert.Equal(t, models.StatusPresent, result.Record.Status)
	assert.Equal(t, models.ReasonOnTime, result.Record.TimingReason)
	require.NotNil(t, result.Record.CheckInTime)
	assert.Equal(t, "09:30", *result.Record.CheckInTime)

	require.Len(t, f.audit.events, 1)
	assert.Equal(t, models.EventAttendanceMarked, f.audit.events[0].EventType)
	assert.Equal(t, 1, f.notifier.changed)
	assert.Contains(t, f.cache.invalidated, testEmployee)
}

func TestCheckInTentativeTimingIgnoresCheckout(t *testing.T) {
	f := newAttendanceFixture(false)

	result, err := f.svc.CheckIn(context.Background(), checkInAt("12:00"))
	require.NoError(t, err)
	// Tentative until the checkout half of the day is known.
	assert.Equal(t, models.StatusPresent, result.Record.Status)
	assert.Equal(t, models.ReasonLate, result.Record.TimingReason)
}

func TestCheckInPastLateCutoffIsTerminal(t *testing.T) {
	f := newAttendanceFixture(false)

	result, err := f.svc.CheckIn(context.Background(), checkInAt("14:31"))
	require.NoError(t, err)
	assert.Equal(t, models.StatusHalfDay, result.Record.Status)
	assert.Equal(t, models.ReasonLateCheckin, result.Record.TimingReason)
}

func TestCheckInRepeatOverwrites(t *testing.T) {
	f := newAttendanceFixture(false)

	_, err := f.svc.CheckIn(context.Background(), checkInAt("10:30"))
	require.NoError(t, err)
	result, err := f.svc.CheckIn(context.Background(), checkInAt("09:15"))
	require.NoError(t, err)
	assert.Equal(t, models.ReasonOnTime, result.Record.TimingReason)

	stored, err := f.store.Get(context.Background(), testEmployee, mustDate(testDate))
	require.NoError(t, err)
	assert.Equal(t, "09:15", *stored.CheckInTime)
}

func TestCheckInLockedRecord(t *testing.T) {
	f := newAttendanceFixture(false)
	f.store.put(&models.AttendanceRecord{
		EmployeeID:      testEmployee,
		Date:            mustDate(testDate),
		Status:          models.StatusPresent,
		TimingReason:    models.ReasonOnTime,
		ApprovedByAdmin: true,
	})

	_, err := f.svc.CheckIn(context.Background(), checkInAt("09:00"))
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrRecordLocked))
}

func TestCheckInGeofenceAdvisory(t *testing.T) {
	f := newAttendanceFixture(false)
	req := checkInAt("09:00")
	req.Lat = 28.7000 // well outside the fence

	result, err := f.svc.CheckIn(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, result.Geofence.OK)
	assert.Equal(t, models.StatusPresent, result.Record.Status)
}

func TestCheckInGeofenceEnforced(t *testing.T) {
	f := newAttendanceFixture(true)
	req := checkInAt("09:00")
	req.Lat = 28.7000

	_, err := f.svc.CheckIn(context.Background(), req)
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestCheckInTravelBypassesFence(t *testing.T) {
	f := newAttendanceFixture(true)
	f.travel.approved[recordKey(testEmployee, mustDate(testDate))] = true
	req := checkInAt("09:00")
	req.Lat = 28.9000

	result, err := f.svc.CheckIn(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, result.Geofence.OK)
	assert.True(t, result.Record.TravelApproved)
}

func TestCheckInApprovedLeaveDominates(t *testing.T) {
	f := newAttendanceFixture(false)
	f.leaves.approved[recordKey(testEmployee, mustDate(testDate))] = true

	result, err := f.svc.CheckIn(context.Background(), checkInAt("09:00"))
	require.NoError(t, err)
	assert.Equal(t, models.StatusAbsent, result.Record.Status)
	assert.Equal(t, models.ReasonLeaveApproved, result.Record.TimingReason)
}

func TestCheckInUnknownEmployee(t *testing.T) {
	f := newAttendanceFixture(false)
	req := checkInAt("09:00")
	req.EmployeeID = "EMP999"

	_, err := f.svc.CheckIn(context.Background(), req)
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}

func TestCheckInInvalidTime(t *testing.T) {
	f := newAttendanceFixture(false)

	_, err := f.svc.CheckIn(context.Background(), checkInAt("25:99"))
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestCheckOutReclassifies(t *testing.T) {
	f := newAttendanceFixture(false)
	_, err := f.svc.CheckIn(context.Background(), checkInAt("09:00"))
	require.NoError(t, err)

	rec, err := f.svc.CheckOut(context.Background(), CheckOutRequest{
		EmployeeID: testEmployee, Date: testDate, Time: "18:30",
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusPresent, rec.Status)
	assert.Equal(t, models.ReasonOnTime, rec.TimingReason)
}

func TestCheckOutOutsideWindow(t *testing.T) {
	f := newAttendanceFixture(false)
	_, err := f.svc.CheckIn(context.Background(), checkInAt("09:00"))
	require.NoError(t, err)

	rec, err := f.svc.CheckOut(context.Background(), CheckOutRequest{
		EmployeeID: testEmployee, Date: testDate, Time: "16:00",
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusHalfDay, rec.Status)
	assert.Equal(t, models.ReasonInvalidCheckout, rec.TimingReason)
}

func TestCheckOutWithoutRecord(t *testing.T) {
	f := newAttendanceFixture(false)

	_, err := f.svc.CheckOut(context.Background(), CheckOutRequest{
		EmployeeID: testEmployee, Date: testDate, Time: "18:30",
	})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}

func TestCheckOutLockedRecord(t *testing.T) {
	f := newAttendanceFixture(false)
	f.store.put(&models.AttendanceRecord{
		EmployeeID:      testEmployee,
		Date:            mustDate(testDate),
		Status:          models.StatusPresent,
		TimingReason:    models.ReasonOnTime,
		ApprovedByAdmin: true,
	})

	_, err := f.svc.CheckOut(context.Background(), CheckOutRequest{
		EmployeeID: testEmployee, Date: testDate, Time: "18:30",
	})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrRecordLocked))
}

func TestSweepUnmarked(t *testing.T) {
	f := newAttendanceFixture(false)
	_, err := f.svc.CheckIn(context.Background(), checkInAt("09:00"))
	require.NoError(t, err)

	count, err := f.svc.SweepUnmarked(context.Background(), testDate)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	rec, err := f.store.Get(context.Background(), "EMP002", mustDate(testDate))
	require.NoError(t, err)
	assert.Equal(t, models.StatusNotMarked, rec.Status)
}

func TestSweepIsIdempotent(t *testing.T) {
	f := newAttendanceFixture(false)

	count, err := f.svc.SweepUnmarked(context.Background(), testDate)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	count, err = f.svc.SweepUnmarked(context.Background(), testDate)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestSummaryServedFromCache(t *testing.T) {
	f := newAttendanceFixture(false)
	_, err := f.svc.CheckIn(context.Background(), checkInAt("09:00"))
	require.NoError(t, err)

	first, err := f.svc.Summary(context.Background(), testEmployee, "2026-08-01", "2026-08-31")
	require.NoError(t, err)
	assert.Equal(t, 1, first.Total)

	// A direct store write is invisible until the cache is invalidated.
	f.store.put(&models.AttendanceRecord{
		EmployeeID: testEmployee, Date: mustDate("2026-08-04"),
		Status: models.StatusPresent, TimingReason: models.ReasonOnTime,
	})
	cached, err := f.svc.Summary(context.Background(), testEmployee, "2026-08-01", "2026-08-31")
	require.NoError(t, err)
	assert.Equal(t, 1, cached.Total)

	require.NoError(t, f.cache.InvalidateEmployee(context.Background(), testEmployee))
	fresh, err := f.svc.Summary(context.Background(), testEmployee, "2026-08-01", "2026-08-31")
	require.NoError(t, err)
	assert.Equal(t, 2, fresh.Total)
}
