package models

import "github.com/golang-jwt/jwt/v5"

// UserRole represents the roles known to the capability gate.
type UserRole string

const (
	RoleSuperAdmin UserRole = "SUPERADMIN"
	RoleAdmin      UserRole = "ADMIN"
	RoleDelegate   UserRole = "DELEGATE"
	RoleEmployee   UserRole = "EMPLOYEE"
)

// Capability names the actions the engine gates. Resolution happens in one
// place; services never re-check permissions.
type Capability string

const (
	CapAttendanceMark    Capability = "attendance:mark"
	CapAttendanceConfirm Capability = "attendance:confirm"
	CapAttendanceApprove Capability = "attendance:approve"
	CapApprovalOverride  Capability = "attendance:override"
	CapTravelDecide      Capability = "travel:decide"
	CapPayrollClose      Capability = "payroll:close"
)

// JWTClaims represents the JWT payload for access tokens issued by the
// identity service.
type JWTClaims struct {
	EmployeeID string   `json:"employee_id"`
	Role       UserRole `json:"role"`
	FullName   string   `json:"full_name"`
	jwt.RegisteredClaims
}

// Allows reports whether the role grants a capability. Any delegate-capable
// actor may decide travel requests; there is no ownership restriction.
func (r UserRole) Allows(cap Capability) bool {
	switch cap {
	case CapAttendanceMark:
		return true
	case CapAttendanceConfirm, CapTravelDecide:
		return r == RoleDelegate || r == RoleAdmin || r == RoleSuperAdmin
	case CapAttendanceApprove, CapPayrollClose:
		return r == RoleAdmin || r == RoleSuperAdmin
	case CapApprovalOverride:
		return r == RoleSuperAdmin
	default:
		return false
	}
}
