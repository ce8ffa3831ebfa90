package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/attendly/fieldforce-api/internal/models"
	appErrors "github.com/attendly/fieldforce-api/pkg/errors"
)

type travelStore interface {
	Create(ctx context.Context, req *models.TravelRequest) error
	GetByID(ctx context.Context, id string) (*models.TravelRequest, error)
	List(ctx context.Context, filter models.TravelFilter) ([]models.TravelRequest, int, error)
	Decide(ctx context.Context, id string, status models.TravelStatus, decidedBy string, decidedAt time.Time, remarks *string) error
}

type travelFlagStore interface {
	SetTravelApproved(ctx context.Context, employeeID string, from, to time.Time) (int, error)
}

// TravelRules holds the submission thresholds.
type TravelRules struct {
	MinDistanceKM         float64
	MinJustificationWords int
	MinPurposeWords       int
}

// DefaultTravelRules returns the standard submission thresholds.
func DefaultTravelRules() TravelRules {
	return TravelRules{MinDistanceKM: 10, MinJustificationWords: 5, MinPurposeWords: 2}
}

// TravelService handles travel request submission and the one-shot
// approve/reject decision.
type TravelService struct {
	store     travelStore
	records   travelFlagStore
	directory directoryReader
	audit     auditEmitter
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	rules     TravelRules
}

// TravelServiceConfig wires the service's collaborators.
type TravelServiceConfig struct {
	Store     travelStore
	Records   travelFlagStore
	Directory directoryReader
	Audit     auditEmitter
	Metrics   *MetricsService
	Validator *validator.Validate
	Logger    *zap.Logger
	Rules     TravelRules
}

// NewTravelService constructs the service.
func NewTravelService(cfg TravelServiceConfig) *TravelService {
	if cfg.Validator == nil {
		cfg.Validator = validator.New()
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Rules == (TravelRules{}) {
		cfg.Rules = DefaultTravelRules()
	}
	return &TravelService{
		store:     cfg.Store,
		records:   cfg.Records,
		directory: cfg.Directory,
		audit:     cfg.Audit,
		metrics:   cfg.Metrics,
		validator: cfg.Validator,
		logger:    cfg.Logger,
		rules:     cfg.Rules,
	}
}

// SubmitTravelRequest is the payload for a new travel request.
type SubmitTravelRequest struct {
	EmployeeID    string  `json:"employee_id" validate:"required,len=6"`
	FromDate      string  `json:"from_date" validate:"required,datetime=2006-01-02"`
	ToDate        string  `json:"to_date" validate:"required,datetime=2006-01-02"`
	DistanceKM    float64 `json:"distance_km" validate:"required,gt=0"`
	Purpose       string  `json:"purpose" validate:"required"`
	Justification string  `json:"justification" validate:"required"`
	ContactNumber string  `json:"contact_number" validate:"required,len=10,numeric"`
}

// DecideTravelRequest is the payload for deciding a pending request.
type DecideTravelRequest struct {
	Approve bool    `json:"approve"`
	Remarks *string `json:"remarks,omitempty"`
}

// Submit validates and persists a new pending travel request.
func (s *TravelService) Submit(ctx context.Context, req SubmitTravelRequest) (*models.TravelRequest, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid travel request payload")
	}
	from, err := parseDate(req.FromDate)
	if err != nil {
		return nil, err
	}
	to, err := parseDate(req.ToDate)
	if err != nil {
		return nil, err
	}
	if to.Before(from) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "travel end date precedes start date")
	}
	if req.DistanceKM < s.rules.MinDistanceKM {
		return nil, appErrors.Clone(appErrors.ErrValidation, "travel distance below the approval threshold")
	}
	if wordCount(req.Justification) < s.rules.MinJustificationWords {
		return nil, appErrors.Clone(appErrors.ErrValidation, "justification too short")
	}
	if wordCount(req.Purpose) < s.rules.MinPurposeWords {
		return nil, appErrors.Clone(appErrors.ErrValidation, "purpose too short")
	}
	if _, err := s.directory.GetEmployee(ctx, req.EmployeeID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "employee not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve employee")
	}

	now := time.Now().UTC()
	travel := &models.TravelRequest{
		ID:            uuid.NewString(),
		EmployeeID:    req.EmployeeID,
		FromDate:      from,
		ToDate:        to,
		DurationClass: durationClass(from, to),
		DistanceKM:    req.DistanceKM,
		Purpose:       strings.TrimSpace(req.Purpose),
		Justification: strings.TrimSpace(req.Justification),
		ContactNumber: req.ContactNumber,
		Status:        models.TravelStatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.store.Create(ctx, travel); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store travel request")
	}
	return travel, nil
}

// Decide resolves a pending request. Decisions are final; deciding an already
// decided request is a conflict. Approval flips travel_approved on the
// employee's existing, unapproved attendance records in the range.
func (s *TravelService) Decide(ctx context.Context, id, actorID string, req DecideTravelRequest) (*models.TravelRequest, error) {
	travel, err := s.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "travel request not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load travel request")
	}
	if travel.Status.Decided() {
		return nil, appErrors.Clone(appErrors.ErrConflict, "travel request already decided")
	}

	status := models.TravelStatusRejected
	if req.Approve {
		status = models.TravelStatusApproved
	}
	now := time.Now().UTC()
	if err := s.store.Decide(ctx, id, status, actorID, now, req.Remarks); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Lost the race to another decider.
			return nil, appErrors.Clone(appErrors.ErrConflict, "travel request already decided")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to decide travel request")
	}

	travel.Status = status
	travel.DecidedBy = &actorID
	travel.DecidedAt = &now
	travel.Remarks = req.Remarks
	travel.UpdatedAt = now

	if status == models.TravelStatusApproved && s.records != nil {
		flipped, err := s.records.SetTravelApproved(ctx, travel.EmployeeID, travel.FromDate, travel.ToDate)
		if err != nil {
			// The decision stands; only the flag fan-out failed.
			s.logger.Error("failed to propagate travel approval",
				zap.String("travel_id", id), zap.Error(err))
		} else {
			s.logger.Info("travel approval propagated",
				zap.String("travel_id", id), zap.Int("records", flipped))
		}
	}

	s.metrics.TravelDecided(status)
	if s.audit != nil {
		after := string(status)
		s.audit.Emit(ctx, &models.AuditEvent{
			EventType:   models.EventTravelDecided,
			ActorID:     actorID,
			EmployeeID:  travel.EmployeeID,
			AfterStatus: &after,
		})
	}
	return travel, nil
}

// Get returns a single travel request.
func (s *TravelService) Get(ctx context.Context, id string) (*models.TravelRequest, error) {
	travel, err := s.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "travel request not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load travel request")
	}
	return travel, nil
}

// List returns travel requests matching the filter.
func (s *TravelService) List(ctx context.Context, filter models.TravelFilter) ([]models.TravelRequest, int, error) {
	rows, total, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list travel requests")
	}
	return rows, total, nil
}

func durationClass(from, to time.Time) models.DurationClass {
	if from.Equal(to) {
		return models.DurationSingleDay
	}
	return models.DurationMultiDay
}

func wordCount(s string) int {
	return len(strings.Fields(s))
}
