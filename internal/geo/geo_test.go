package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/attendly/fieldforce-api/internal/models"
)

func office(lat, lng float64) models.Site {
	return models.Site{ID: "site-1", Name: "HQ", Kind: models.WorkplaceOffice, Lat: lat, Lng: lng}
}

func TestDistanceZero(t *testing.T) {
	assert.Zero(t, Distance(28.6139, 77.2090, 28.6139, 77.2090))
}

func TestDistanceKnownFixture(t *testing.T) {
	// Connaught Place to India Gate, roughly 2.4 km.
	dist := Distance(28.6315, 77.2167, 28.6129, 77.2295)
	assert.InDelta(t, 2400, dist, 150)
}

func TestValidateWithinFence(t *testing.T) {
	v := NewValidator(200)
	verdict := v.Validate(28.6139, 77.2090, office(28.6139, 77.2090), false)
	assert.True(t, verdict.OK)
	assert.Empty(t, verdict.Reason)
}

func TestValidateOutsideFence(t *testing.T) {
	v := NewValidator(200)
	// ~1.1 km north of the site.
	verdict := v.Validate(28.6239, 77.2090, office(28.6139, 77.2090), false)
	assert.False(t, verdict.OK)
	assert.Greater(t, verdict.DistanceM, 200.0)
	assert.Contains(t, verdict.Reason, "fence")
}

func TestValidateTravelBypassesFence(t *testing.T) {
	v := NewValidator(200)
	verdict := v.Validate(28.7000, 77.3000, office(28.6139, 77.2090), true)
	assert.True(t, verdict.OK)
	assert.Greater(t, verdict.DistanceM, 200.0)
}

func TestValidateFieldSiteRequiresTravel(t *testing.T) {
	v := NewValidator(200)
	site := models.Site{ID: "site-2", Name: "Survey Camp", Kind: models.WorkplaceField, Lat: 28.6139, Lng: 77.2090}

	verdict := v.Validate(28.6139, 77.2090, site, false)
	assert.False(t, verdict.OK)
	assert.Contains(t, verdict.Reason, "travel approval")

	verdict = v.Validate(28.6139, 77.2090, site, true)
	assert.True(t, verdict.OK)
}

func TestNewValidatorDefaultRadius(t *testing.T) {
	v := NewValidator(0)
	// Just inside the default 200m fence.
	verdict := v.Validate(28.61405, 77.2090, office(28.6139, 77.2090), false)
	assert.True(t, verdict.OK)
}
