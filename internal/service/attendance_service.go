package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/attendly/fieldforce-api/internal/classifier"
	"github.com/attendly/fieldforce-api/internal/clock"
	"github.com/attendly/fieldforce-api/internal/geo"
	"github.com/attendly/fieldforce-api/internal/models"
	"github.com/attendly/fieldforce-api/internal/repository"
	appErrors "github.com/attendly/fieldforce-api/pkg/errors"
)

type attendanceStore interface {
	Get(ctx context.Context, employeeID string, date time.Time) (*models.AttendanceRecord, error)
	List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecord, int, error)
	UpsertCheckIn(ctx context.Context, rec *models.AttendanceRecord) (*models.AttendanceRecord, error)
	Mutate(ctx context.Context, employeeID string, date time.Time, fn func(*models.AttendanceRecord) error) (*models.AttendanceRecord, error)
	SweepUnmarked(ctx context.Context, date time.Time, employeeIDs []string) (int, error)
	Summary(ctx context.Context, employeeID string, from, to time.Time) (*models.AttendanceSummary, error)
}

type leaveReader interface {
	IsApproved(ctx context.Context, employeeID string, date time.Time) (bool, error)
}

type travelReader interface {
	IsApproved(ctx context.Context, employeeID string, date time.Time) (bool, error)
}

type directoryReader interface {
	GetEmployee(ctx context.Context, employeeID string) (*models.Employee, error)
	ResolveSite(ctx context.Context, employeeID string) (*models.Site, error)
	ActiveRoster(ctx context.Context) ([]string, error)
}

type auditEmitter interface {
	Emit(ctx context.Context, event *models.AuditEvent)
}

type changeNotifier interface {
	RecordChanged(rec *models.AttendanceRecord)
}

type summaryCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	InvalidateEmployee(ctx context.Context, employeeID string) error
}

// AttendanceService turns check events into classified daily records.
type AttendanceService struct {
	store      attendanceStore
	leaves     leaveReader
	travel     travelReader
	directory  directoryReader
	geofence   *geo.Validator
	classifier *classifier.Classifier
	audit      auditEmitter
	notifier   changeNotifier
	cache      summaryCache
	metrics    *MetricsService
	validator  *validator.Validate
	logger     *zap.Logger

	enforceGeofence bool
	summaryTTL      time.Duration
}

// AttendanceServiceConfig wires the orchestrator's collaborators.
type AttendanceServiceConfig struct {
	Store           attendanceStore
	Leaves          leaveReader
	Travel          travelReader
	Directory       directoryReader
	Geofence        *geo.Validator
	Classifier      *classifier.Classifier
	Audit           auditEmitter
	Notifier        changeNotifier
	Cache           summaryCache
	Metrics         *MetricsService
	Validator       *validator.Validate
	Logger          *zap.Logger
	EnforceGeofence bool
	SummaryTTL      time.Duration
}

// NewAttendanceService constructs the service.
func NewAttendanceService(cfg AttendanceServiceConfig) *AttendanceService {
	if cfg.Validator == nil {
		cfg.Validator = validator.New()
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Classifier == nil {
		cfg.Classifier = classifier.New(classifier.DefaultCutoffs())
	}
	if cfg.Geofence == nil {
		cfg.Geofence = geo.NewValidator(geo.DefaultRadiusM)
	}
	if cfg.SummaryTTL <= 0 {
		cfg.SummaryTTL = 5 * time.Minute
	}
	return &AttendanceService{
		store:           cfg.Store,
		leaves:          cfg.Leaves,
		travel:          cfg.Travel,
		directory:       cfg.Directory,
		geofence:        cfg.Geofence,
		classifier:      cfg.Classifier,
		audit:           cfg.Audit,
		notifier:        cfg.Notifier,
		cache:           cfg.Cache,
		metrics:         cfg.Metrics,
		validator:       cfg.Validator,
		logger:          cfg.Logger,
		enforceGeofence: cfg.EnforceGeofence,
		summaryTTL:      cfg.SummaryTTL,
	}
}

// CheckInRequest is the payload for marking a daily check-in.
type CheckInRequest struct {
	EmployeeID string  `json:"employee_id" validate:"required"`
	Date       string  `json:"date" validate:"required,datetime=2006-01-02"`
	Time       string  `json:"time" validate:"required"`
	Lat        float64 `json:"lat" validate:"required,latitude"`
	Lng        float64 `json:"lng" validate:"required,longitude"`
}

// CheckOutRequest is the payload for marking a daily check-out.
type CheckOutRequest struct {
	EmployeeID string `json:"employee_id" validate:"required"`
	Date       string `json:"date" validate:"required,datetime=2006-01-02"`
	Time       string `json:"time" validate:"required"`
}

// CheckInResult returns the stored record plus the advisory fence verdict.
type CheckInResult struct {
	Record   *models.AttendanceRecord `json:"record"`
	Geofence geo.Verdict              `json:"geofence"`
}

// CheckIn records a check-in event, classifies the day, and persists the
// record. A repeat check-in on the same date overwrites the first unless the
// record is already admin-approved.
func (s *AttendanceService) CheckIn(ctx context.Context, req CheckInRequest) (*CheckInResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid check-in payload")
	}
	checkIn, err := clock.Parse(req.Time)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid check-in time")
	}
	date, err := parseDate(req.Date)
	if err != nil {
		return nil, err
	}

	if _, err := s.directory.GetEmployee(ctx, req.EmployeeID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "employee not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve employee")
	}
	site, err := s.directory.ResolveSite(ctx, req.EmployeeID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "assigned site not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve site")
	}

	leaveApproved, err := s.leaves.IsApproved(ctx, req.EmployeeID, date)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read leave facts")
	}
	travelApproved, err := s.travel.IsApproved(ctx, req.EmployeeID, date)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read travel facts")
	}

	verdict := s.geofence.Validate(req.Lat, req.Lng, *site, travelApproved)
	if !verdict.OK {
		s.metrics.GeofenceMiss()
		if s.enforceGeofence {
			return nil, appErrors.Clone(appErrors.ErrValidation, verdict.Reason)
		}
		s.logger.Info("geofence advisory failure",
			zap.String("employee_id", req.EmployeeID),
			zap.Float64("distance_m", verdict.DistanceM),
			zap.String("reason", verdict.Reason))
	}

	// A repeat check-in keeps the existing check-out and confirmation state
	// so re-classification sees the whole day.
	var checkOut *clock.TimeOfDay
	delegateConfirmed := false
	beforeStatus := ""
	if existing, err := s.store.Get(ctx, req.EmployeeID, date); err == nil {
		delegateConfirmed = existing.ConfirmedByDelegate
		beforeStatus = string(existing.Status)
		if checkOut, err = clock.ParsePtr(existing.CheckOutTime); err != nil {
			checkOut = nil
		}
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attendance record")
	}

	// Without a checkout yet the timing is tentative; a repeat check-in on a
	// day that already has one re-runs the full chain.
	input := classifier.Input{
		CheckIn:           &checkIn,
		CheckOut:          checkOut,
		TravelApproved:    travelApproved,
		LeaveApproved:     leaveApproved,
		DelegateConfirmed: delegateConfirmed,
	}
	var outcome classifier.Outcome
	if checkOut == nil {
		outcome = s.classifier.ClassifyArrival(input)
	} else {
		outcome = s.classifier.Classify(input)
	}

	timeStr := checkIn.String()
	rec := &models.AttendanceRecord{
		EmployeeID:     req.EmployeeID,
		Date:           date,
		CheckInTime:    &timeStr,
		CheckInLat:     &req.Lat,
		CheckInLng:     &req.Lng,
		Status:         outcome.Status,
		TimingReason:   outcome.Reason,
		TravelApproved: travelApproved,
	}
	stored, err := s.store.UpsertCheckIn(ctx, rec)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrRecordLocked
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store check-in")
	}

	s.metrics.CheckInAccepted()
	s.metrics.Classified(stored.Status, stored.TimingReason)
	s.recordChanged(ctx, stored, models.EventAttendanceMarked, req.EmployeeID, beforeStatus)
	return &CheckInResult{Record: stored, Geofence: verdict}, nil
}

// CheckOut records a check-out and re-classifies the day under the record's
// row lock.
func (s *AttendanceService) CheckOut(ctx context.Context, req CheckOutRequest) (*models.AttendanceRecord, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid check-out payload")
	}
	checkOut, err := clock.Parse(req.Time)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid check-out time")
	}
	date, err := parseDate(req.Date)
	if err != nil {
		return nil, err
	}

	leaveApproved, err := s.leaves.IsApproved(ctx, req.EmployeeID, date)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read leave facts")
	}

	beforeStatus := ""
	stored, err := s.store.Mutate(ctx, req.EmployeeID, date, func(rec *models.AttendanceRecord) error {
		if rec.ApprovedByAdmin {
			return appErrors.ErrRecordLocked
		}
		beforeStatus = string(rec.Status)
		checkIn, err := clock.ParsePtr(rec.CheckInTime)
		if err != nil {
			checkIn = nil
		}
		outcome := s.classifier.Classify(classifier.Input{
			CheckIn:           checkIn,
			CheckOut:          &checkOut,
			TravelApproved:    rec.TravelApproved,
			LeaveApproved:     leaveApproved,
			DelegateConfirmed: rec.ConfirmedByDelegate,
		})
		timeStr := checkOut.String()
		rec.CheckOutTime = &timeStr
		rec.Status = outcome.Status
		rec.TimingReason = outcome.Reason
		return nil
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no attendance record for date")
		}
		if appErrors.Is(err, appErrors.ErrRecordLocked) {
			return nil, err
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store check-out")
	}

	s.metrics.CheckOutAccepted()
	s.metrics.Classified(stored.Status, stored.TimingReason)
	s.recordChanged(ctx, stored, models.EventAttendanceMarked, req.EmployeeID, beforeStatus)
	return stored, nil
}

// Get returns the record for (employee, date).
func (s *AttendanceService) Get(ctx context.Context, employeeID, dateStr string) (*models.AttendanceRecord, error) {
	date, err := parseDate(dateStr)
	if err != nil {
		return nil, err
	}
	rec, err := s.store.Get(ctx, employeeID, date)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attendance record")
	}
	return rec, nil
}

// List returns records matching the filter.
func (s *AttendanceService) List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecord, int, error) {
	rows, total, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list attendance records")
	}
	return rows, total, nil
}

// Summary aggregates an employee's timeline, served from cache when warm.
func (s *AttendanceService) Summary(ctx context.Context, employeeID, fromStr, toStr string) (*models.AttendanceSummary, error) {
	from, err := parseDate(fromStr)
	if err != nil {
		return nil, err
	}
	to, err := parseDate(toStr)
	if err != nil {
		return nil, err
	}

	key := repository.SummaryKey(employeeID, from, to)
	if s.cache != nil {
		var cached models.AttendanceSummary
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			return &cached, nil
		}
	}

	summary, err := s.store.Summary(ctx, employeeID, from, to)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to aggregate summary")
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, key, summary, s.summaryTTL); err != nil {
			s.logger.Warn("failed to cache summary", zap.Error(err))
		}
	}
	return summary, nil
}

// SweepUnmarked synthesizes not_marked records for every active employee
// without a record on the date. Run at end-of-day batch close.
func (s *AttendanceService) SweepUnmarked(ctx context.Context, dateStr string) (int, error) {
	date, err := parseDate(dateStr)
	if err != nil {
		return 0, err
	}
	roster, err := s.directory.ActiveRoster(ctx)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load roster")
	}
	count, err := s.store.SweepUnmarked(ctx, date, roster)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sweep unmarked records")
	}
	s.metrics.SweptUnmarked(count)
	s.logger.Info("unmarked sweep complete", zap.String("date", dateStr), zap.Int("inserted", count))
	return count, nil
}

func (s *AttendanceService) recordChanged(ctx context.Context, rec *models.AttendanceRecord, eventType, actorID string, beforeStatus string) {
	if s.audit != nil {
		after := string(rec.Status)
		event := &models.AuditEvent{
			EventType:   eventType,
			ActorID:     actorID,
			EmployeeID:  rec.EmployeeID,
			Date:        &rec.Date,
			AfterStatus: &after,
		}
		if beforeStatus != "" {
			event.BeforeStatus = &beforeStatus
		}
		s.audit.Emit(ctx, event)
	}
	if s.notifier != nil {
		s.notifier.RecordChanged(rec)
	}
	if s.cache != nil {
		if err := s.cache.InvalidateEmployee(ctx, rec.EmployeeID); err != nil {
			s.logger.Warn("failed to invalidate summary cache", zap.Error(err))
		}
	}
}

func parseDate(raw string) (time.Time, error) {
	date, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid date, expected YYYY-MM-DD")
	}
	return date.UTC(), nil
}
