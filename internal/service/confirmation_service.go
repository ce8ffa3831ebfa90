package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/attendly/fieldforce-api/internal/classifier"
	"github.com/attendly/fieldforce-api/internal/clock"
	"github.com/attendly/fieldforce-api/internal/models"
	"github.com/attendly/fieldforce-api/internal/repository"
	appErrors "github.com/attendly/fieldforce-api/pkg/errors"
)

type confirmationStore interface {
	Mutate(ctx context.Context, employeeID string, date time.Time, fn func(*models.AttendanceRecord) error) (*models.AttendanceRecord, error)
	ListUnapproved(ctx context.Context, from, to time.Time) ([]models.AttendanceRecord, error)
}

type payrollExporter interface {
	ExportCycle(ctx context.Context, from, to time.Time) (string, error)
}

// ConfirmationService drives records through the two-stage sign-off:
// delegate confirmation first, then admin approval which locks the record.
type ConfirmationService struct {
	store      confirmationStore
	leaves     leaveReader
	classifier *classifier.Classifier
	audit      auditEmitter
	notifier   changeNotifier
	cache      summaryCache
	metrics    *MetricsService
	exporter   payrollExporter
	logger     *zap.Logger
}

// ConfirmationServiceConfig wires the pipeline's collaborators.
type ConfirmationServiceConfig struct {
	Store      confirmationStore
	Leaves     leaveReader
	Classifier *classifier.Classifier
	Audit      auditEmitter
	Notifier   changeNotifier
	Cache      summaryCache
	Metrics    *MetricsService
	Exporter   payrollExporter
	Logger     *zap.Logger
}

// NewConfirmationService constructs the service.
func NewConfirmationService(cfg ConfirmationServiceConfig) *ConfirmationService {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Classifier == nil {
		cfg.Classifier = classifier.New(classifier.DefaultCutoffs())
	}
	return &ConfirmationService{
		store:      cfg.Store,
		leaves:     cfg.Leaves,
		classifier: cfg.Classifier,
		audit:      cfg.Audit,
		notifier:   cfg.Notifier,
		cache:      cfg.Cache,
		metrics:    cfg.Metrics,
		exporter:   cfg.Exporter,
		logger:     cfg.Logger,
	}
}

// Confirm marks a record as delegate-confirmed and re-classifies it, since a
// confirmed absence reads as dc_confirmed rather than plain absent. Confirming
// twice is a no-op; confirming an approved record is also a no-op because the
// admin decision already subsumes it.
func (s *ConfirmationService) Confirm(ctx context.Context, employeeID, dateStr, actorID string) (*models.AttendanceRecord, error) {
	date, err := parseDate(dateStr)
	if err != nil {
		return nil, err
	}
	leaveApproved, err := s.leaves.IsApproved(ctx, employeeID, date)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read leave facts")
	}

	beforeStatus := ""
	changed := false
	rec, err := s.store.Mutate(ctx, employeeID, date, func(rec *models.AttendanceRecord) error {
		if rec.ConfirmedByDelegate || rec.ApprovedByAdmin {
			return repository.ErrNoop
		}
		beforeStatus = string(rec.Status)
		rec.ConfirmedByDelegate = true
		outcome := s.reclassify(rec, leaveApproved)
		rec.Status = outcome.Status
		rec.TimingReason = outcome.Reason
		changed = true
		return nil
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no attendance record for date")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to confirm record")
	}

	if changed {
		s.metrics.Confirmed()
		s.emitTransition(ctx, models.EventAttendanceConfirmed, actorID, rec, beforeStatus)
	}
	return rec, nil
}

// Approve grants the final admin sign-off, locking the record against further
// mutation. Without override the record must already be delegate-confirmed.
// Approving twice is a no-op.
func (s *ConfirmationService) Approve(ctx context.Context, employeeID, dateStr, actorID string, override bool) (*models.AttendanceRecord, error) {
	date, err := parseDate(dateStr)
	if err != nil {
		return nil, err
	}

	beforeStatus := ""
	changed := false
	rec, err := s.store.Mutate(ctx, employeeID, date, func(rec *models.AttendanceRecord) error {
		if rec.ApprovedByAdmin {
			return repository.ErrNoop
		}
		if !rec.ConfirmedByDelegate && !override {
			return appErrors.Clone(appErrors.ErrConflict, "record not delegate-confirmed")
		}
		beforeStatus = string(rec.Status)
		s.approveInPlace(rec, actorID)
		changed = true
		return nil
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no attendance record for date")
		}
		if appErr := appErrors.FromError(err); appErr.Code == appErrors.ErrConflict.Code {
			return nil, appErr
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to approve record")
	}

	if changed {
		s.metrics.Approved("single")
		s.emitTransition(ctx, models.EventAttendanceApproved, actorID, rec, beforeStatus)
	}
	return rec, nil
}

// BulkApprove approves every unapproved record in the date range. Records
// still not_marked are normalized to absent before approval. Each record is
// decided independently; one failure never rolls back its neighbours.
func (s *ConfirmationService) BulkApprove(ctx context.Context, fromStr, toStr, actorID string, override bool) ([]models.ApprovalOutcome, error) {
	from, err := parseDate(fromStr)
	if err != nil {
		return nil, err
	}
	to, err := parseDate(toStr)
	if err != nil {
		return nil, err
	}
	if to.Before(from) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "range end precedes range start")
	}

	pending, err := s.store.ListUnapproved(ctx, from, to)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list unapproved records")
	}

	outcomes := make([]models.ApprovalOutcome, 0, len(pending))
	for _, candidate := range pending {
		outcomes = append(outcomes, s.approveOne(ctx, candidate, actorID, override))
	}
	s.metrics.Approved("bulk")
	s.logger.Info("bulk approval complete",
		zap.String("from", fromStr), zap.String("to", toStr),
		zap.Int("candidates", len(pending)))
	return outcomes, nil
}

// CloseCycle runs the payroll-cycle close: normalize and bulk-approve the
// range, then hand the closed range to the exporter. The export is best
// effort; a failed export never reopens the approved records.
func (s *ConfirmationService) CloseCycle(ctx context.Context, fromStr, toStr, actorID string) ([]models.ApprovalOutcome, string, error) {
	outcomes, err := s.BulkApprove(ctx, fromStr, toStr, actorID, true)
	if err != nil {
		return nil, "", err
	}
	exportPath := ""
	if s.exporter != nil {
		from, _ := parseDate(fromStr)
		to, _ := parseDate(toStr)
		if exportPath, err = s.exporter.ExportCycle(ctx, from, to); err != nil {
			s.logger.Error("cycle export failed", zap.Error(err))
			exportPath = ""
		}
	}
	return outcomes, exportPath, nil
}

func (s *ConfirmationService) approveOne(ctx context.Context, candidate models.AttendanceRecord, actorID string, override bool) models.ApprovalOutcome {
	outcome := models.ApprovalOutcome{
		EmployeeID: candidate.EmployeeID,
		Date:       candidate.Date.Format("2006-01-02"),
	}
	beforeStatus := ""
	rec, err := s.store.Mutate(ctx, candidate.EmployeeID, candidate.Date, func(rec *models.AttendanceRecord) error {
		if rec.ApprovedByAdmin {
			return repository.ErrNoop
		}
		if !rec.ConfirmedByDelegate && !override {
			return appErrors.Clone(appErrors.ErrConflict, "record not delegate-confirmed")
		}
		beforeStatus = string(rec.Status)
		if rec.Status == models.StatusNotMarked {
			rec.Status = models.StatusAbsent
			rec.TimingReason = models.ReasonNotMarked
			outcome.Normalized = true
		}
		s.approveInPlace(rec, actorID)
		return nil
	})
	if err != nil {
		outcome.Reason = appErrors.FromError(err).Message
		return outcome
	}
	outcome.Approved = true
	s.emitTransition(ctx, models.EventAttendanceApproved, actorID, rec, beforeStatus)
	return outcome
}

func (s *ConfirmationService) approveInPlace(rec *models.AttendanceRecord, actorID string) {
	now := time.Now().UTC()
	rec.ApprovedByAdmin = true
	rec.ApprovedBy = &actorID
	rec.ApprovedAt = &now
}

func (s *ConfirmationService) reclassify(rec *models.AttendanceRecord, leaveApproved bool) classifier.Outcome {
	checkIn, err := clock.ParsePtr(rec.CheckInTime)
	if err != nil {
		checkIn = nil
	}
	checkOut, err := clock.ParsePtr(rec.CheckOutTime)
	if err != nil {
		checkOut = nil
	}
	return s.classifier.Classify(classifier.Input{
		CheckIn:           checkIn,
		CheckOut:          checkOut,
		TravelApproved:    rec.TravelApproved,
		LeaveApproved:     leaveApproved,
		DelegateConfirmed: rec.ConfirmedByDelegate,
	})
}

func (s *ConfirmationService) emitTransition(ctx context.Context, eventType, actorID string, rec *models.AttendanceRecord, beforeStatus string) {
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
		if detail := transitionDetail(eventType, rec); detail != "" {
			event.Detail = []byte(detail)
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

func transitionDetail(eventType string, rec *models.AttendanceRecord) string {
	if eventType != models.EventAttendanceApproved || rec.ApprovedBy == nil {
		return ""
	}
	return fmt.Sprintf(`{"approved_by":%q}`, *rec.ApprovedBy)
}
