package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"sort"
	"time"

	"github.com/attendly/fieldforce-api/internal/models"
	"github.com/attendly/fieldforce-api/internal/repository"
	appErrors "github.com/attendly/fieldforce-api/pkg/errors"
)

func recordKey(employeeID string, date time.Time) string {
	return employeeID + "|" + date.Format("2006-01-02")
}

func mustDate(raw string) time.Time {
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		panic(err)
	}
	return t.UTC()
}

// memStore is an in-memory attendance store mirroring the repository's
// contract, including the locked-record and noop semantics.
type memStore struct {
	records map[string]*models.AttendanceRecord
}

func newMemStore() *memStore {
	return &memStore{records: make(map[string]*models.AttendanceRecord)}
}

func (m *memStore) put(rec *models.AttendanceRecord) {
	cp := *rec
	if cp.ID == "" {
		cp.ID = "rec-" + recordKey(cp.EmployeeID, cp.Date)
	}
	m.records[recordKey(cp.EmployeeID, cp.Date)] = &cp
}

func (m *memStore) Get(ctx context.Context, employeeID string, date time.Time) (*models.AttendanceRecord, error) {
	if rec, ok := m.records[recordKey(employeeID, date)]; ok {
		cp := *rec
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *memStore) List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecord, int, error) {
	var out []models.AttendanceRecord
	for _, rec := range m.records {
		if filter.EmployeeID != "" && rec.EmployeeID != filter.EmployeeID {
			continue
		}
		out = append(out, *rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, len(out), nil
}

func (m *memStore) UpsertCheckIn(ctx context.Context, rec *models.AttendanceRecord) (*models.AttendanceRecord, error) {
	key := recordKey(rec.EmployeeID, rec.Date)
	existing, ok := m.records[key]
	if !ok {
		cp := *rec
		cp.ID = "rec-" + key
		cp.CreatedAt = time.Now().UTC()
		cp.UpdatedAt = cp.CreatedAt
		m.records[key] = &cp
		out := cp
		return &out, nil
	}
	if existing.ApprovedByAdmin {
		return nil, sql.ErrNoRows
	}
	existing.CheckInTime = rec.CheckInTime
	existing.CheckInLat = rec.CheckInLat
	existing.CheckInLng = rec.CheckInLng
	existing.Status = rec.Status
	existing.TimingReason = rec.TimingReason
	existing.UpdatedAt = time.Now().UTC()
	cp := *existing
	return &cp, nil
}

func (m *memStore) Mutate(ctx context.Context, employeeID string, date time.Time, fn func(*models.AttendanceRecord) error) (*models.AttendanceRecord, error) {
	key := recordKey(employeeID, date)
	existing, ok := m.records[key]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *existing
	if err := fn(&cp); err != nil {
		if err == repository.ErrNoop {
			out := cp
			return &out, nil
		}
		return nil, err
	}
	cp.UpdatedAt = time.Now().UTC()
	m.records[key] = &cp
	out := cp
	return &out, nil
}

func (m *memStore) SweepUnmarked(ctx context.Context, date time.Time, employeeIDs []string) (int, error) {
	count := 0
	for _, id := range employeeIDs {
		key := recordKey(id, date)
		if _, ok := m.records[key]; ok {
			continue
		}
		now := time.Now().UTC()
		m.records[key] = &models.AttendanceRecord{
			ID:           "rec-" + key,
			EmployeeID:   id,
			Date:         date,
			Status:       models.StatusNotMarked,
			TimingReason: models.ReasonNotMarked,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		count++
	}
	return count, nil
}

func (m *memStore) SetTravelApproved(ctx context.Context, employeeID string, from, to time.Time) (int, error) {
	count := 0
	for _, rec := range m.records {
		if rec.EmployeeID != employeeID || rec.ApprovedByAdmin {
			continue
		}
		if rec.Date.Before(from) || rec.Date.After(to) {
			continue
		}
		if !rec.TravelApproved {
			rec.TravelApproved = true
			count++
		}
	}
	return count, nil
}

func (m *memStore) ListUnapproved(ctx context.Context, from, to time.Time) ([]models.AttendanceRecord, error) {
	var out []models.AttendanceRecord
	for _, rec := range m.records {
		if rec.ApprovedByAdmin || rec.Date.Before(from) || rec.Date.After(to) {
			continue
		}
		out = append(out, *rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memStore) Summary(ctx context.Context, employeeID string, from, to time.Time) (*models.AttendanceSummary, error) {
	summary := &models.AttendanceSummary{}
	for _, rec := range m.records {
		if rec.EmployeeID != employeeID || rec.Date.Before(from) || rec.Date.After(to) {
			continue
		}
		summary.Total++
		switch rec.Status {
		case models.StatusPresent:
			summary.Present++
		case models.StatusHalfDay:
			summary.HalfDay++
		case models.StatusAbsent:
			summary.Absent++
		case models.StatusNotMarked:
			summary.Unmarked++
		}
	}
	if summary.Total > 0 {
		summary.Percent = (float64(summary.Present) + 0.5*float64(summary.HalfDay)) / float64(summary.Total) * 100
	}
	return summary, nil
}

type stubLeaves struct {
	approved map[string]bool
	listed   []models.LeaveRequest
}

func (s *stubLeaves) IsApproved(ctx context.Context, employeeID string, date time.Time) (bool, error) {
	return s.approved[recordKey(employeeID, date)], nil
}

func (s *stubLeaves) ListApproved(ctx context.Context, employeeID string, from, to time.Time) ([]models.LeaveRequest, error) {
	return s.listed, nil
}

type stubTravelFacts struct {
	approved map[string]bool
}

func (s *stubTravelFacts) IsApproved(ctx context.Context, employeeID string, date time.Time) (bool, error) {
	return s.approved[recordKey(employeeID, date)], nil
}

type stubDirectory struct {
	employees map[string]*models.Employee
	sites     map[string]*models.Site
	roster    []string
}

func (s *stubDirectory) GetEmployee(ctx context.Context, employeeID string) (*models.Employee, error) {
	if emp, ok := s.employees[employeeID]; ok {
		cp := *emp
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (s *stubDirectory) ResolveSite(ctx context.Context, employeeID string) (*models.Site, error) {
	if site, ok := s.sites[employeeID]; ok {
		cp := *site
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (s *stubDirectory) ActiveRoster(ctx context.Context) ([]string, error) {
	return s.roster, nil
}

type stubAudit struct {
	events []*models.AuditEvent
}

func (s *stubAudit) Emit(ctx context.Context, event *models.AuditEvent) {
	s.events = append(s.events, event)
}

type stubNotifier struct {
	changed int
}

func (s *stubNotifier) RecordChanged(rec *models.AttendanceRecord) {
	s.changed++
}

type stubCache struct {
	data        map[string][]byte
	invalidated []string
}

func newStubCache() *stubCache {
	return &stubCache{data: make(map[string][]byte)}
}

func (s *stubCache) Get(ctx context.Context, key string, dest interface{}) error {
	raw, ok := s.data[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (s *stubCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	s.data[key] = raw
	return nil
}

func (s *stubCache) InvalidateEmployee(ctx context.Context, employeeID string) error {
	s.invalidated = append(s.invalidated, employeeID)
	for key := range s.data {
		delete(s.data, key)
	}
	return nil
}
