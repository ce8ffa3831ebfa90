// Package geo computes the check-in geofence verdict. The verdict is
// advisory; the attendance service decides whether an out-of-fence check-in
// is rejected or merely recorded, based on configuration.
package geo

import (
	"fmt"
	"math"

	"github.com/attendly/fieldforce-api/internal/models"
)

// Mean Earth radius in meters.
const earthRadiusM = 6371000.0

// DefaultRadiusM is the fence radius applied when configuration leaves it
// unset.
const DefaultRadiusM = 200.0

// Verdict is the outcome of a geofence check.
type Verdict struct {
	OK        bool    `json:"ok"`
	DistanceM float64 `json:"distance_m"`
	Reason    string  `json:"reason,omitempty"`
}

// Validator checks reported coordinates against an employee's assigned site.
type Validator struct {
	radiusM float64
}

// NewValidator builds a validator with the given fence radius in meters.
func NewValidator(radiusM float64) *Validator {
	if radiusM <= 0 {
		radiusM = DefaultRadiusM
	}
	return &Validator{radiusM: radiusM}
}

// Validate yields the in/out-of-fence verdict for a reported coordinate.
// Approved travel bypasses both the workplace rule and the distance fence.
func (v *Validator) Validate(reportedLat, reportedLng float64, site models.Site, travelApproved bool) Verdict {
	dist := Distance(reportedLat, reportedLng, site.Lat, site.Lng)
	if travelApproved {
		return Verdict{OK: true, DistanceM: dist}
	}
	if site.Kind != models.WorkplaceOffice {
		return Verdict{OK: false, DistanceM: dist, Reason: "travel approval required for non-office workplace"}
	}
	if dist > v.radiusM {
		return Verdict{
			OK:        false,
			DistanceM: dist,
			Reason:    fmt.Sprintf("reported location %.0fm from site exceeds %.0fm fence", dist, v.radiusM),
		}
	}
	return Verdict{OK: true, DistanceM: dist}
}

// Distance returns the great-circle distance in meters between two
// coordinates using the haversine formula.
func Distance(lat1, lng1, lat2, lng2 float64) float64 {
	dLat := toRadians(lat2 - lat1)
	dLng := toRadians(lng2 - lng1)

	lat1Rad := toRadians(lat1)
	lat2Rad := toRadians(lat2)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Sin(dLng/2)*math.Sin(dLng/2)*math.Cos(lat1Rad)*math.Cos(lat2Rad)

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusM * c
}

func toRadians(deg float64) float64 {
	return deg * (math.Pi / 180.0)
}
