package classifier

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/attendly/fieldforce-api/internal/clock"
	"github.com/attendly/fieldforce-api/internal/models"
	"github.com/attendly/fieldforce-api/pkg/config"
)

func at(raw string) *clock.TimeOfDay {
	t := clock.MustParse(raw)
	return &t
}

func TestClassify(t *testing.T) {
	c := New(DefaultCutoffs())

	tests := []struct {
		name       string
		in         Input
		wantStatus models.AttendanceStatus
		wantReason models.TimingReason
	}{
		{
			name:       "on-time full day",
			in:         Input{CheckIn: at("09:30"), CheckOut: at("18:30")},
			wantStatus: models.StatusPresent,
			wantReason: models.ReasonOnTime,
		},
		{
			name:       "check-in at on-time boundary counts as on-time",
			in:         Input{CheckIn: at("10:00"), CheckOut: at("18:00")},
			wantStatus: models.StatusPresent,
			wantReason: models.ReasonOnTime,
		},
		{
			name:       "late arrival still a full day",
			in:         Input{CheckIn: at("10:01"), CheckOut: at("19:00")},
			wantStatus: models.StatusPresent,
			wantReason: models.ReasonLate,
		},
		{
			name:       "arrival at late cutoff is late, not half day",
			in:         Input{CheckIn: at("14:30"), CheckOut: at("20:00")},
			wantStatus: models.StatusPresent,
			wantReason: models.ReasonLate,
		},
		{
			name:       "arrival past late cutoff is half day regardless of checkout",
			in:         Input{CheckIn: at("14:31"), CheckOut: at("20:00")},
			wantStatus: models.StatusHalfDay,
			wantReason: models.ReasonLateCheckin,
		},
		{
			name:       "missed checkout",
			in:         Input{CheckIn: at("09:00")},
			wantStatus: models.StatusHalfDay,
			wantReason: models.ReasonMissedCheckout,
		},
		{
			name:       "checkout before window opens",
			in:         Input{CheckIn: at("09:00"), CheckOut: at("17:59")},
			wantStatus: models.StatusHalfDay,
			wantReason: models.ReasonInvalidCheckout,
		},
		{
			name:       "checkout at window open boundary is valid",
			in:         Input{CheckIn: at("09:00"), CheckOut: at("18:00")},
			wantStatus: models.StatusPresent,
			wantReason: models.ReasonOnTime,
		},
		{
			name:       "checkout at window close boundary is valid",
			in:         Input{CheckIn: at("09:00"), CheckOut: at("23:00")},
			wantStatus: models.StatusPresent,
			wantReason: models.ReasonOnTime,
		},
		{
			name:       "checkout after window closes",
			in:         Input{CheckIn: at("09:00"), CheckOut: at("23:01")},
			wantStatus: models.StatusHalfDay,
			wantReason: models.ReasonInvalidCheckout,
		},
		{
			name:       "no check events",
			in:         Input{},
			wantStatus: models.StatusAbsent,
			wantReason: models.ReasonNotMarked,
		},
		{
			name:       "no check events but delegate confirmed",
			in:         Input{DelegateConfirmed: true},
			wantStatus: models.StatusPresent,
			wantReason: models.ReasonDCConfirmed,
		},
		{
			name:       "approved leave dominates check events",
			in:         Input{CheckIn: at("09:00"), CheckOut: at("18:30"), LeaveApproved: true},
			wantStatus: models.StatusAbsent,
			wantReason: models.ReasonLeaveApproved,
		},
		{
			name:       "approved leave dominates delegate confirmation",
			in:         Input{DelegateConfirmed: true, LeaveApproved: true},
			wantStatus: models.StatusAbsent,
			wantReason: models.ReasonLeaveApproved,
		},
		{
			name:       "late check-in beats missed checkout",
			in:         Input{CheckIn: at("15:00")},
			wantStatus: models.StatusHalfDay,
			wantReason: models.ReasonLateCheckin,
		},
		{
			name:       "travel approval does not change timing rules",
			in:         Input{CheckIn: at("11:00"), CheckOut: at("19:00"), TravelApproved: true},
			wantStatus: models.StatusPresent,
			wantReason: models.ReasonLate,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := c.Classify(tt.in)
			assert.Equal(t, tt.wantStatus, out.Status)
			assert.Equal(t, tt.wantReason, out.Reason)
		})
	}
}

func TestClassifyArrival(t *testing.T) {
	c := New(DefaultCutoffs())

	tests := []struct {
		name       string
		in         Input
		wantStatus models.AttendanceStatus
		wantReason models.TimingReason
	}{
		{
			name:       "on-time arrival is tentatively present",
			in:         Input{CheckIn: at("09:00")},
			wantStatus: models.StatusPresent,
			wantReason: models.ReasonOnTime,
		},
		{
			name:       "late arrival is tentatively present",
			in:         Input{CheckIn: at("12:00")},
			wantStatus: models.StatusPresent,
			wantReason: models.ReasonLate,
		},
		{
			name:       "arrival past late cutoff is terminal half day",
			in:         Input{CheckIn: at("14:31")},
			wantStatus: models.StatusHalfDay,
			wantReason: models.ReasonLateCheckin,
		},
		{
			name:       "approved leave dominates arrival",
			in:         Input{CheckIn: at("09:00"), LeaveApproved: true},
			wantStatus: models.StatusAbsent,
			wantReason: models.ReasonLeaveApproved,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := c.ClassifyArrival(tt.in)
			assert.Equal(t, tt.wantStatus, out.Status)
			assert.Equal(t, tt.wantReason, out.Reason)
		})
	}
}

// The rule sequence is load-bearing: reordering it changes outcomes for
// overlapping guards. Pin it.
func TestRuleOrder(t *testing.T) {
	c := New(DefaultCutoffs())
	var names []string
	for _, r := range c.rules {
		names = append(names, r.name)
	}
	assert.Equal(t, []string{
		"leave_approved",
		"no_check_in",
		"late_checkin",
		"missed_checkout",
		"invalid_checkout",
		"present",
	}, names)
}

func TestCutoffsFromConfig(t *testing.T) {
	c := CutoffsFromConfig(config.WorkdayConfig{
		OnTimeCutoff:   "09:30",
		LateCutoff:     "13:00",
		CheckoutOpens:  "17:00",
		CheckoutCloses: "22:00",
	})
	assert.Equal(t, clock.MustParse("09:30"), c.OnTime)
	assert.Equal(t, clock.MustParse("13:00"), c.Late)
	assert.Equal(t, clock.MustParse("17:00"), c.CheckoutOpens)
	assert.Equal(t, clock.MustParse("22:00"), c.CheckoutCloses)
}

func TestCutoffsFromConfigFallsBack(t *testing.T) {
	c := CutoffsFromConfig(config.WorkdayConfig{OnTimeCutoff: "not-a-time"})
	assert.Equal(t, DefaultCutoffs().OnTime, c.OnTime)
}
