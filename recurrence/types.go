// Package recurrence computes occurrence dates for recurring tasks and
// habits. A Rule describes the cadence (frequency, interval, weekday or
// month-day constraints, termination bounds); the Engine turns a rule
// plus a reference date into the next occurrence, or a bounded list of
// upcoming occurrences.
//
// The engine is pure: no shared state, no I/O, safe to call from any
// goroutine. The same (rule, reference date) pair always yields the
// same result.
package recurrence

import (
	"fmt"
	"time"
)

// Frequency is the base unit a rule steps by.
type Frequency int

const (
	FreqMinutely Frequency = iota
	FreqHourly
	FreqDaily
	FreqWeekly
	FreqMonthly
	FreqYearly
	// FreqCustom is a placeholder tag that resolves to FreqWeekly or
	// FreqMonthly from the rule's other fields; see Rule.Resolve.
	FreqCustom
)

// String provides a human-readable representation of the Frequency.
func (f Frequency) String() string {
	switch f {
	case FreqMinutely:
		return "minutely"
	case FreqHourly:
		return "hourly"
	case FreqDaily:
		return "daily"
	case FreqWeekly:
		return "weekly"
	case FreqMonthly:
		return "monthly"
	case FreqYearly:
		return "yearly"
	case FreqCustom:
		return "custom"
	default:
		return fmt.Sprintf("frequency(%d)", int(f))
	}
}

// SubDaily reports whether the frequency is finer than one calendar
// day. Sub-daily rules ignore PreferredTime.
func (f Frequency) SubDaily() bool {
	return f == FreqMinutely || f == FreqHourly
}

// RepeatMode selects which reference date the next occurrence is
// computed from. The engine itself only ever steps from the reference
// it is handed; RepeatMode is policy for the caller (see planner).
type RepeatMode int

const (
	// FromOriginalDate keeps a fixed cadence: the next occurrence is
	// relative to the previously scheduled date, catching up after
	// misses.
	FromOriginalDate RepeatMode = iota
	// FromCompletionDate slides the cadence: the next occurrence is
	// relative to whenever the current instance was completed.
	FromCompletionDate
)

// String provides a human-readable representation of the RepeatMode.
func (m RepeatMode) String() string {
	switch m {
	case FromOriginalDate:
		return "from_original_date"
	case FromCompletionDate:
		return "from_completion_date"
	default:
		return fmt.Sprintf("repeat_mode(%d)", int(m))
	}
}

// ClockTime is a wall-clock time of day pinned onto generated
// occurrences.
type ClockTime struct {
	Hour   int `json:"hour" yaml:"hour"`
	Minute int `json:"minute" yaml:"minute"`
}

func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

func (c ClockTime) valid() bool {
	return c.Hour >= 0 && c.Hour <= 23 && c.Minute >= 0 && c.Minute <= 59
}

// Rule is an immutable description of a recurrence pattern. Build a
// fresh Rule for every edit instead of mutating one in place; rules are
// plain values and copy on assignment.
type Rule struct {
	Frequency Frequency `json:"frequency" yaml:"frequency"`

	// Interval multiplies the base frequency unit: every N minutes,
	// days, weeks... Must be >= 1.
	Interval int `json:"interval" yaml:"interval"`

	// DaysOfWeek restricts weekly rules to a set of weekdays, numbered
	// 1=Sunday..7=Saturday. Empty means "the weekday of the anchor".
	DaysOfWeek []int `json:"days_of_week,omitempty" yaml:"days_of_week,omitempty"`

	// DayOfMonth is the target day for monthly rules, 1..31. Days past
	// the end of a target month clamp to its last day. Zero means "the
	// day of the anchor".
	DayOfMonth int `json:"day_of_month,omitempty" yaml:"day_of_month,omitempty"`

	// Anchor is the originally scheduled date the pattern derives its
	// alignment from: the weekday fallback for weekly rules, the
	// month/day for yearly rules, the week grid for interval > 1
	// weekly rules, and the starting point MaxOccurrences counts from.
	// A zero Anchor falls back to the reference date handed to the
	// engine.
	Anchor time.Time `json:"anchor,omitempty" yaml:"anchor,omitempty"`

	// EndDate is an inclusive upper bound; no occurrence is generated
	// after it.
	EndDate *time.Time `json:"end_date,omitempty" yaml:"end_date,omitempty"`

	// MaxOccurrences caps the total occurrences generated from the
	// rule's start (the Anchor). Zero means unlimited. When both
	// EndDate and MaxOccurrences are set, generation stops at whichever
	// is reached first.
	MaxOccurrences int `json:"max_occurrences,omitempty" yaml:"max_occurrences,omitempty"`

	RepeatMode RepeatMode `json:"repeat_mode" yaml:"repeat_mode"`

	// PreferredTime overwrites the hour/minute of generated occurrences.
	// Ignored for sub-daily frequencies.
	PreferredTime *ClockTime `json:"preferred_time,omitempty" yaml:"preferred_time,omitempty"`

	// TimeZone is the IANA zone name day/month/year boundaries are
	// evaluated in, e.g. "Asia/Shanghai". Empty means UTC.
	TimeZone string `json:"timezone,omitempty" yaml:"timezone,omitempty"`

	// RecreateIfIncomplete controls whether a new occurrence is
	// materialized on schedule even when the prior one was never
	// completed. Policy for the caller, not consumed by the date math.
	RecreateIfIncomplete bool `json:"recreate_if_incomplete,omitempty" yaml:"recreate_if_incomplete,omitempty"`
}

// Location resolves the rule's time zone, defaulting to UTC.
func (r Rule) Location() (*time.Location, error) {
	if r.TimeZone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(r.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("%w: unknown timezone %q", ErrInvalidRule, r.TimeZone)
	}
	return loc, nil
}
