package models

import "time"

// Domain event types emitted by the engine. Delivery is fire-and-forget;
// a failed emission never blocks the transition that produced it.
const (
	EventAttendanceMarked    = "AttendanceMarked"
	EventAttendanceConfirmed = "AttendanceConfirmed"
	EventAttendanceApproved  = "AttendanceApproved"
	EventTravelDecided       = "TravelDecided"
)

// AuditEvent is the persisted trail entry for a state transition.
type AuditEvent struct {
	ID           string     `db:"id" json:"id"`
	EventType    string     `db:"event_type" json:"event_type"`
	ActorID      string     `db:"actor_id" json:"actor_id"`
	EmployeeID   string     `db:"employee_id" json:"employee_id"`
	Date         *time.Time `db:"date" json:"date,omitempty"`
	BeforeStatus *string    `db:"before_status" json:"before_status,omitempty"`
	AfterStatus  *string    `db:"after_status" json:"after_status,omitempty"`
	Detail       []byte     `db:"detail" json:"detail,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
}
