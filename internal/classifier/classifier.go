// Package classifier derives a daily attendance status from check events
// and leave/travel context. Classification is a pure, total function: every
// input combination yields a status, and missing input degrades to the most
// conservative outcome rather than an error.
package classifier

import (
	"github.com/attendly/fieldforce-api/internal/clock"
	"github.com/attendly/fieldforce-api/internal/models"
	"github.com/attendly/fieldforce-api/pkg/config"
)

// Input is the full context for one (employee, date) classification.
type Input struct {
	CheckIn           *clock.TimeOfDay
	CheckOut          *clock.TimeOfDay
	TravelApproved    bool
	LeaveApproved     bool
	DelegateConfirmed bool
}

// Outcome pairs the derived status with the timing reason that explains it.
type Outcome struct {
	Status models.AttendanceStatus `json:"status"`
	Reason models.TimingReason     `json:"timing_reason"`
}

// Cutoffs are the wall-clock boundaries of the workday. All comparisons are
// inclusive at the cutoff instants: OnTime itself is on-time, Late itself is
// late (not half-day), and both checkout bounds are valid.
type Cutoffs struct {
	OnTime         clock.TimeOfDay
	Late           clock.TimeOfDay
	CheckoutOpens  clock.TimeOfDay
	CheckoutCloses clock.TimeOfDay
}

// DefaultCutoffs returns the standard workday boundaries.
func DefaultCutoffs() Cutoffs {
	return Cutoffs{
		OnTime:         clock.MustParse("10:00"),
		Late:           clock.MustParse("14:30"),
		CheckoutOpens:  clock.MustParse("18:00"),
		CheckoutCloses: clock.MustParse("23:00"),
	}
}

// CutoffsFromConfig parses workday config, falling back to defaults for any
// unparseable value.
func CutoffsFromConfig(cfg config.WorkdayConfig) Cutoffs {
	c := DefaultCutoffs()
	if t, err := clock.Parse(cfg.OnTimeCutoff); err == nil {
		c.OnTime = t
	}
	if t, err := clock.Parse(cfg.LateCutoff); err == nil {
		c.Late = t
	}
	if t, err := clock.Parse(cfg.CheckoutOpens); err == nil {
		c.CheckoutOpens = t
	}
	if t, err := clock.Parse(cfg.CheckoutCloses); err == nil {
		c.CheckoutCloses = t
	}
	return c
}

// rule is one guard/result pair in the fixed decision sequence.
type rule struct {
	name  string
	apply func(Input) (Outcome, bool)
}

// Classifier evaluates an explicit ordered rule chain; first match wins.
// The order is load-bearing and pinned by tests.
type Classifier struct {
	cutoffs Cutoffs
	rules   []rule
}

// New builds a classifier around the given cutoffs.
func New(cutoffs Cutoffs) *Classifier {
	c := &Classifier{cutoffs: cutoffs}
	c.rules = []rule{
		{name: "leave_approved", apply: c.leaveApproved},
		{name: "no_check_in", apply: c.noCheckIn},
		{name: "late_checkin", apply: c.lateCheckIn},
		{name: "missed_checkout", apply: c.missedCheckout},
		{name: "invalid_checkout", apply: c.invalidCheckout},
		{name: "present", apply: c.present},
	}
	return c
}

// Classify maps the input to a (status, timing reason) pair.
func (c *Classifier) Classify(in Input) Outcome {
	for _, r := range c.rules {
		if out, ok := r.apply(in); ok {
			return out
		}
	}
	// Unreachable: the present rule is total for inputs with a check-in,
	// and noCheckIn is total without one.
	return Outcome{Status: models.StatusAbsent, Reason: models.ReasonNotMarked}
}

// ClassifyArrival yields the tentative outcome at check-in acceptance, before
// the checkout half of the day is known. Checkout rules do not apply yet; a
// late arrival past the cutoff is already terminal.
func (c *Classifier) ClassifyArrival(in Input) Outcome {
	if out, ok := c.leaveApproved(in); ok {
		return out
	}
	if out, ok := c.noCheckIn(in); ok {
		return out
	}
	if out, ok := c.lateCheckIn(in); ok {
		return out
	}
	return Outcome{Status: models.StatusPresent, Reason: c.arrivalTiming(*in.CheckIn)}
}

// Approved leave dominates every other input.
func (c *Classifier) leaveApproved(in Input) (Outcome, bool) {
	if in.LeaveApproved {
		return Outcome{Status: models.StatusAbsent, Reason: models.ReasonLeaveApproved}, true
	}
	return Outcome{}, false
}

// Without a check-in, delegate confirmation is the only path to present.
func (c *Classifier) noCheckIn(in Input) (Outcome, bool) {
	if in.CheckIn != nil {
		return Outcome{}, false
	}
	if in.DelegateConfirmed {
		return Outcome{Status: models.StatusPresent, Reason: models.ReasonDCConfirmed}, true
	}
	return Outcome{Status: models.StatusAbsent, Reason: models.ReasonNotMarked}, true
}

// Arriving after the late cutoff is terminal; checkout is irrelevant.
func (c *Classifier) lateCheckIn(in Input) (Outcome, bool) {
	if in.CheckIn != nil && in.CheckIn.After(c.cutoffs.Late) {
		return Outcome{Status: models.StatusHalfDay, Reason: models.ReasonLateCheckin}, true
	}
	return Outcome{}, false
}

func (c *Classifier) missedCheckout(in Input) (Outcome, bool) {
	if in.CheckIn != nil && in.CheckOut == nil {
		return Outcome{Status: models.StatusHalfDay, Reason: models.ReasonMissedCheckout}, true
	}
	return Outcome{}, false
}

func (c *Classifier) invalidCheckout(in Input) (Outcome, bool) {
	if in.CheckIn != nil && in.CheckOut != nil && !in.CheckOut.Within(c.cutoffs.CheckoutOpens, c.cutoffs.CheckoutCloses) {
		return Outcome{Status: models.StatusHalfDay, Reason: models.ReasonInvalidCheckout}, true
	}
	return Outcome{}, false
}

func (c *Classifier) present(in Input) (Outcome, bool) {
	if in.CheckIn == nil {
		return Outcome{}, false
	}
	return Outcome{Status: models.StatusPresent, Reason: c.arrivalTiming(*in.CheckIn)}, true
}

// arrivalTiming is the tentative timing assigned at check-in acceptance.
func (c *Classifier) arrivalTiming(checkIn clock.TimeOfDay) models.TimingReason {
	if checkIn.AtOrBefore(c.cutoffs.OnTime) {
		return models.ReasonOnTime
	}
	return models.ReasonLate
}
