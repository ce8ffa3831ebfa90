package models

import "time"

// TravelStatus captures the two-state approval workflow for travel.
type TravelStatus string

const (
	TravelStatusPending  TravelStatus = "pending"
	TravelStatusApproved TravelStatus = "approved"
	TravelStatusRejected TravelStatus = "rejected"
)

// Decided reports whether the request has reached a terminal state.
// Travel decisions are monotonic; a decided request never returns to pending.
func (s TravelStatus) Decided() bool {
	return s == TravelStatusApproved || s == TravelStatusRejected
}

// DurationClass buckets a travel request by its span.
type DurationClass string

const (
	DurationSingleDay DurationClass = "single_day"
	DurationMultiDay  DurationClass = "multi_day"
)

// TravelRequest is a field-travel authorization request. Approval flips the
// travel_approved flag on existing attendance records in the date range.
type TravelRequest struct {
	ID            string        `db:"id" json:"id"`
	EmployeeID    string        `db:"employee_id" json:"employee_id"`
	FromDate      time.Time     `db:"from_date" json:"from_date"`
	ToDate        time.Time     `db:"to_date" json:"to_date"`
	DurationClass DurationClass `db:"duration_class" json:"duration_class"`
	DistanceKM    float64       `db:"distance_km" json:"distance_km"`
	Purpose       string        `db:"purpose" json:"purpose"`
	Justification string        `db:"justification" json:"justification"`
	ContactNumber string        `db:"contact_number" json:"contact_number"`
	Status        TravelStatus  `db:"status" json:"status"`
	DecidedBy     *string       `db:"decided_by" json:"decided_by,omitempty"`
	DecidedAt     *time.Time    `db:"decided_at" json:"decided_at,omitempty"`
	Remarks       *string       `db:"remarks" json:"remarks,omitempty"`
	CreatedAt     time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time     `db:"updated_at" json:"updated_at"`
}

// TravelFilter scopes travel request listings.
type TravelFilter struct {
	EmployeeID string
	Status     *TravelStatus
	Page       int
	PageSize   int
}
