package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/attendly/fieldforce-api/internal/models"
	appErrors "github.com/attendly/fieldforce-api/pkg/errors"
	"github.com/attendly/fieldforce-api/pkg/jobs"
)

type auditStore interface {
	Create(ctx context.Context, event *models.AuditEvent) error
	ListForRecord(ctx context.Context, employeeID string, date time.Time) ([]models.AuditEvent, error)
}

// AuditService dispatches domain events to the persistent trail through a
// background queue. Emission never blocks or fails the transition that
// produced the event; delivery problems are logged and dropped.
type AuditService struct {
	store  auditStore
	queue  *jobs.Queue
	logger *zap.Logger
}

// NewAuditService builds the dispatcher and its queue. Call Start before use.
func NewAuditService(store auditStore, logger *zap.Logger) *AuditService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &AuditService{store: store, logger: logger}
	s.queue = jobs.NewQueue("audit", s.handle, jobs.QueueConfig{
		Workers:    1,
		BufferSize: 256,
		Logger:     logger,
	})
	return s
}

// History returns the trail of events recorded against a daily record.
func (s *AuditService) History(ctx context.Context, employeeID, dateStr string) ([]models.AuditEvent, error) {
	date, err := parseDate(dateStr)
	if err != nil {
		return nil, err
	}
	events, err := s.store.ListForRecord(ctx, employeeID, date)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list audit events")
	}
	return events, nil
}

// Start begins background delivery.
func (s *AuditService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains the workers.
func (s *AuditService) Stop() {
	s.queue.Stop()
}

// Emit queues an event for delivery. Fire-and-forget.
func (s *AuditService) Emit(ctx context.Context, event *models.AuditEvent) {
	if event == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if !s.queue.TryEnqueue(jobs.Job{ID: event.ID, Type: event.EventType, Payload: event}) {
		s.logger.Warn("audit event dropped", zap.String("event_type", event.EventType), zap.String("employee_id", event.EmployeeID))
	}
}

func (s *AuditService) handle(ctx context.Context, job jobs.Job) error {
	event, ok := job.Payload.(*models.AuditEvent)
	if !ok {
		return fmt.Errorf("unexpected audit payload type %T", job.Payload)
	}
	if err := s.store.Create(ctx, event); err != nil {
		s.logger.Warn("failed to persist audit event",
			zap.String("event_type", event.EventType),
			zap.String("employee_id", event.EmployeeID),
			zap.Error(err))
	}
	return nil
}
