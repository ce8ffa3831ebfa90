package models

import "time"

// LeaveStatus mirrors the travel workflow states; the engine only consumes
// the approved fact per date.
type LeaveStatus string

const (
	LeaveStatusPending  LeaveStatus = "pending"
	LeaveStatusApproved LeaveStatus = "approved"
	LeaveStatusRejected LeaveStatus = "rejected"
)

// LeaveRequest is the read-side shape of an approved-leave fact. Its own
// approval workflow lives in the leave service; classification only asks
// whether an approved request covers a date.
type LeaveRequest struct {
	ID         string      `db:"id" json:"id"`
	EmployeeID string      `db:"employee_id" json:"employee_id"`
	FromDate   time.Time   `db:"from_date" json:"from_date"`
	ToDate     time.Time   `db:"to_date" json:"to_date"`
	LeaveType  string      `db:"leave_type" json:"leave_type"`
	Reason     string      `db:"reason" json:"reason"`
	Status     LeaveStatus `db:"status" json:"status"`
	DecidedBy  *string     `db:"decided_by" json:"decided_by,omitempty"`
	DecidedAt  *time.Time  `db:"decided_at" json:"decided_at,omitempty"`
	CreatedAt  time.Time   `db:"created_at" json:"created_at"`
}
