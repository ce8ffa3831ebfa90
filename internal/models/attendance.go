package models

import "time"

// AttendanceStatus is the payroll-facing state of a daily record.
type AttendanceStatus string

const (
	StatusPresent   AttendanceStatus = "present"
	StatusHalfDay   AttendanceStatus = "half_day"
	StatusAbsent    AttendanceStatus = "absent"
	StatusNotMarked AttendanceStatus = "not_marked"
)

// Valid returns true when the status is a supported value.
func (s AttendanceStatus) Valid() bool {
	switch s {
	case StatusPresent, StatusHalfDay, StatusAbsent, StatusNotMarked:
		return true
	default:
		return false
	}
}

// TimingReason tags why a status was assigned.
type TimingReason string

const (
	ReasonOnTime          TimingReason = "on_time"
	ReasonLate            TimingReason = "late"
	ReasonLateCheckin     TimingReason = "late_checkin"
	ReasonMissedCheckout  TimingReason = "missed_checkout"
	ReasonInvalidCheckout TimingReason = "invalid_checkout"
	ReasonDCConfirmed     TimingReason = "dc_confirmed"
	ReasonLeaveApproved   TimingReason = "leave_approved"
	ReasonNotMarked       TimingReason = "not_marked"
)

// AttendanceRecord is the single row per (employee, date). Check-in and
// check-out carry local wall-clock time as "HH:MM"; timezone normalization
// happens before the record is written.
type AttendanceRecord struct {
	ID                  string           `db:"id" json:"id"`
	EmployeeID          string           `db:"employee_id" json:"employee_id"`
	Date                time.Time        `db:"date" json:"date"`
	CheckInTime         *string          `db:"check_in_time" json:"check_in_time,omitempty"`
	CheckOutTime        *string          `db:"check_out_time" json:"check_out_time,omitempty"`
	CheckInLat          *float64         `db:"check_in_lat" json:"check_in_lat,omitempty"`
	CheckInLng          *float64         `db:"check_in_lng" json:"check_in_lng,omitempty"`
	Status              AttendanceStatus `db:"status" json:"status"`
	TimingReason        TimingReason     `db:"timing_reason" json:"timing_reason"`
	TravelApproved      bool             `db:"travel_approved" json:"travel_approved"`
	ConfirmedByDelegate bool             `db:"confirmed_by_delegate" json:"confirmed_by_delegate"`
	ApprovedByAdmin     bool             `db:"approved_by_admin" json:"approved_by_admin"`
	ApprovedBy          *string          `db:"approved_by" json:"approved_by,omitempty"`
	ApprovedAt          *time.Time       `db:"approved_at" json:"approved_at,omitempty"`
	CreatedAt           time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time        `db:"updated_at" json:"updated_at"`
}

// AttendanceFilter scopes listing queries.
type AttendanceFilter struct {
	EmployeeID string
	Status     *AttendanceStatus
	DateFrom   *time.Time
	DateTo     *time.Time
	Unapproved bool
	Page       int
	PageSize   int
	SortBy     string
	SortOrder  string
}

// AttendanceSummary aggregates a timeline for payroll review.
type AttendanceSummary struct {
	Present  int     `json:"present"`
	HalfDay  int     `json:"half_day"`
	Absent   int     `json:"absent"`
	Unmarked int     `json:"not_marked"`
	Total    int     `json:"total"`
	Percent  float64 `json:"percent"`
}

// ApprovalOutcome reports the per-record result of a bulk approval. Records
// are processed independently; one failure never aborts the batch.
type ApprovalOutcome struct {
	EmployeeID string `json:"employee_id"`
	Date       string `json:"date"`
	Approved   bool   `json:"approved"`
	Normalized bool   `json:"normalized"`
	Reason     string `json:"reason,omitempty"`
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
