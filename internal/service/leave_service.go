package service

import (
	"context"
	"time"

	"github.com/attendly/fieldforce-api/internal/models"
	appErrors "github.com/attendly/fieldforce-api/pkg/errors"
)

type leaveStore interface {
	ListApproved(ctx context.Context, employeeID string, from, to time.Time) ([]models.LeaveRequest, error)
}

// LeaveService exposes the approved-leave facts owned by the leave system.
// Read-only; leave application and approval live upstream.
type LeaveService struct {
	store leaveStore
}

// NewLeaveService constructs the read-side service.
func NewLeaveService(store leaveStore) *LeaveService {
	return &LeaveService{store: store}
}

// ListApproved returns the employee's approved leave requests overlapping the
// range.
func (s *LeaveService) ListApproved(ctx context.Context, employeeID, fromStr, toStr string) ([]models.LeaveRequest, error) {
	from, err := parseDate(fromStr)
	if err != nil {
		return nil, err
	}
	to, err := parseDate(toStr)
	if err != nil {
		return nil, err
	}
	rows, err := s.store.ListApproved(ctx, employeeID, from, to)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list approved leaves")
	}
	return rows, nil
}
