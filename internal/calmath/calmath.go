// Package calmath provides the calendar arithmetic underneath the
// recurrence engine: month-length clamping, wall-clock day stepping and
// Sunday-first weekday conversions.
//
// All helpers operate on a time.Time in the zone the caller has already
// resolved; none of them consult global state.
package calmath

import "time"

// DaysIn returns the number of days in the given month of the given year.
func DaysIn(year int, month time.Month) int {
	// Day 0 of the next month normalizes to the last day of this one.
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// ClampDay limits day to the length of the given month, never below 1.
func ClampDay(year int, month time.Month, day int) int {
	if day < 1 {
		return 1
	}
	if max := DaysIn(year, month); day > max {
		return max
	}
	return day
}

// AddDays steps t forward by the given number of calendar days while
// preserving the wall-clock time in t's location. Unlike adding a
// duration, this keeps "9 AM" at 9 AM across DST transitions.
func AddDays(t time.Time, days int) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day()+days,
		t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

// AddMonthsClamped steps t forward by the given number of months,
// aiming for wantDay as the day-of-month and clamping to the target
// month's length. Stepping Jan 31 by one month with wantDay 31 lands on
// Feb 28 (or 29 in a leap year), never on Mar 2.
func AddMonthsClamped(t time.Time, months, wantDay int) time.Time {
	// Normalize year/month by hand; AddDate would roll overflowed days
	// into the following month.
	m0 := int(t.Month()) - 1 + months
	year := t.Year() + m0/12
	m0 %= 12
	if m0 < 0 {
		m0 += 12
		year--
	}
	month := time.Month(m0 + 1)

	day := ClampDay(year, month, wantDay)
	return time.Date(year, month, day,
		t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

// AddYearsClamped steps t forward by the given number of years, aiming
// for wantMonth/wantDay and clamping the day to the target month's
// length. A Feb 29 anchor lands on Feb 28 in non-leap years instead of
// rolling into March.
func AddYearsClamped(t time.Time, years int, wantMonth time.Month, wantDay int) time.Time {
	year := t.Year() + years
	day := ClampDay(year, wantMonth, wantDay)
	return time.Date(year, wantMonth, day,
		t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

// WeekdayNumber converts a time.Weekday to the 1=Sunday..7=Saturday
// numbering used by recurrence rules.
func WeekdayNumber(d time.Weekday) int {
	return int(d) + 1
}

// ToWeekday converts a 1=Sunday..7=Saturday number back to a
// time.Weekday. The input must already be validated to the 1..7 range.
func ToWeekday(n int) time.Weekday {
	return time.Weekday(n - 1)
}

// StartOfWeek returns midnight of the Sunday starting the week
// containing t, in t's location.
func StartOfWeek(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day()-int(t.Weekday()), 0, 0, 0, 0, t.Location())
}

// WeeksBetween counts whole Sunday-to-Saturday weeks from the week
// containing a to the week containing b. Negative when b's week
// precedes a's.
func WeeksBetween(a, b time.Time) int {
	sa := StartOfWeek(a)
	sb := StartOfWeek(b)
	// Round the hour count so DST weeks (167 or 169 hours long) still
	// count as exactly seven days.
	hours := sb.Sub(sa).Hours()
	days := int(hours/24 + 0.5)
	if hours < 0 {
		days = int(hours/24 - 0.5)
	}
	return days / 7
}
