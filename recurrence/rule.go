package recurrence

import "fmt"

// Convenience constructors in the "build a fresh rule on save" style.
// They return plain values; callers set Anchor, EndDate and the other
// optional fields on the result before use.

// Daily returns a rule repeating every interval days.
func Daily(interval int) Rule {
	return Rule{Frequency: FreqDaily, Interval: interval}
}

// Weekly returns a rule repeating every interval weeks, optionally
// restricted to the given weekdays (1=Sunday..7=Saturday).
func Weekly(interval int, days ...int) Rule {
	return Rule{Frequency: FreqWeekly, Interval: interval, DaysOfWeek: days}
}

// Monthly returns a rule repeating every interval months on the given
// day of month (clamped to short months). dayOfMonth 0 defers to the
// anchor's day.
func Monthly(interval, dayOfMonth int) Rule {
	return Rule{Frequency: FreqMonthly, Interval: interval, DayOfMonth: dayOfMonth}
}

// Yearly returns a rule repeating every interval years.
func Yearly(interval int) Rule {
	return Rule{Frequency: FreqYearly, Interval: interval}
}

// Hourly returns a rule repeating every interval hours.
func Hourly(interval int) Rule {
	return Rule{Frequency: FreqHourly, Interval: interval}
}

// Minutely returns a rule repeating every interval minutes.
func Minutely(interval int) Rule {
	return Rule{Frequency: FreqMinutely, Interval: interval}
}

// Validate checks the rule's invariants. The engine validates on every
// call, but pickers and stores should reject bad rules up front so a
// failure here indicates a caller-side bug.
func (r Rule) Validate() error {
	switch r.Frequency {
	case FreqMinutely, FreqHourly, FreqDaily, FreqWeekly, FreqMonthly, FreqYearly, FreqCustom:
	default:
		return fmt.Errorf("%w: unknown frequency %d", ErrInvalidRule, int(r.Frequency))
	}

	if r.Interval < 1 {
		return fmt.Errorf("%w: interval %d, must be >= 1", ErrInvalidRule, r.Interval)
	}

	seen := make(map[int]bool, len(r.DaysOfWeek))
	for _, d := range r.DaysOfWeek {
		if d < 1 || d > 7 {
			return fmt.Errorf("%w: weekday %d out of range 1..7", ErrInvalidRule, d)
		}
		if seen[d] {
			return fmt.Errorf("%w: duplicate weekday %d", ErrInvalidRule, d)
		}
		seen[d] = true
	}

	if r.DayOfMonth != 0 && (r.DayOfMonth < 1 || r.DayOfMonth > 31) {
		return fmt.Errorf("%w: day of month %d out of range 1..31", ErrInvalidRule, r.DayOfMonth)
	}

	if r.MaxOccurrences < 0 {
		return fmt.Errorf("%w: max occurrences %d, must be >= 0", ErrInvalidRule, r.MaxOccurrences)
	}

	if r.PreferredTime != nil && !r.PreferredTime.valid() {
		return fmt.Errorf("%w: preferred time %s", ErrInvalidRule, r.PreferredTime)
	}

	if _, err := r.Location(); err != nil {
		return err
	}

	if r.Frequency == FreqCustom {
		if _, err := r.Resolve(); err != nil {
			return err
		}
	}

	return nil
}

// Resolve maps a Custom frequency onto a concrete one based on the
// rule's other fields: a weekday set makes it weekly, a day-of-month
// makes it monthly. Rules with a concrete frequency pass through
// unchanged. Returns ErrUnresolvableCustom when neither field is set.
func (r Rule) Resolve() (Rule, error) {
	if r.Frequency != FreqCustom {
		return r, nil
	}
	switch {
	case len(r.DaysOfWeek) > 0:
		r.Frequency = FreqWeekly
	case r.DayOfMonth > 0:
		r.Frequency = FreqMonthly
	default:
		return r, fmt.Errorf("%w: custom rule has neither weekdays nor day of month", ErrUnresolvableCustom)
	}
	return r, nil
}
