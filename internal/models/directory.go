package models

// WorkplaceKind distinguishes the designated office site from field sites.
type WorkplaceKind string

const (
	WorkplaceOffice WorkplaceKind = "office"
	WorkplaceField  WorkplaceKind = "field"
)

// Site is an assigned work location with its geofence anchor.
type Site struct {
	ID   string        `db:"id" json:"id"`
	Name string        `db:"name" json:"name"`
	Kind WorkplaceKind `db:"kind" json:"kind"`
	Lat  float64       `db:"lat" json:"lat"`
	Lng  float64       `db:"lng" json:"lng"`
}

// Employee is the directory fact set the engine reads. Identity management
// itself lives in the directory service.
type Employee struct {
	ID          string  `db:"id" json:"id"`
	FullName    string  `db:"full_name" json:"full_name"`
	Designation string  `db:"designation" json:"designation"`
	DelegateID  *string `db:"delegate_id" json:"delegate_id,omitempty"`
	SiteID      string  `db:"site_id" json:"site_id"`
	RoleLevel   int     `db:"role_level" json:"role_level"`
	Active      bool    `db:"active" json:"active"`
}
