// Package clock models local wall-clock time-of-day for attendance
// classification. The classifier compares minutes since midnight only;
// timezone normalization happens upstream of record persistence.
package clock

import (
	"fmt"
	"strconv"
	"strings"
)

// TimeOfDay is minutes since local midnight.
type TimeOfDay int

// Parse converts a canonical "HH:MM" 24h string into a TimeOfDay.
func Parse(raw string) (TimeOfDay, error) {
	parts := strings.SplitN(strings.TrimSpace(raw), ":", 2)
	if len(parts) != 2 || len(parts[0]) != 2 || len(parts[1]) != 2 {
		return 0, fmt.Errorf("invalid time %q: expected HH:MM", raw)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("invalid hour in %q", raw)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("invalid minute in %q", raw)
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("time %q out of range", raw)
	}
	return TimeOfDay(hour*60 + minute), nil
}

// MustParse is Parse for compile-time constants; panics on bad input.
func MustParse(raw string) TimeOfDay {
	t, err := Parse(raw)
	if err != nil {
		panic(err)
	}
	return t
}

// ParsePtr parses an optional time string. Nil and empty input map to nil.
func ParsePtr(raw *string) (*TimeOfDay, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil, nil
	}
	t, err := Parse(*raw)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// Hour returns the hour component.
func (t TimeOfDay) Hour() int { return int(t) / 60 }

// Minute returns the minute component.
func (t TimeOfDay) Minute() int { return int(t) % 60 }

// String renders the canonical "HH:MM" form.
func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour(), t.Minute())
}

// After reports t > other.
func (t TimeOfDay) After(other TimeOfDay) bool { return t > other }

// AtOrBefore reports t <= other. Classification boundaries are inclusive
// at the cutoff instants.
func (t TimeOfDay) AtOrBefore(other TimeOfDay) bool { return t <= other }

// Within reports lo <= t <= hi.
func (t TimeOfDay) Within(lo, hi TimeOfDay) bool { return t >= lo && t <= hi }
