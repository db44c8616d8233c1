// Package ical converts recurrence rules to and from their iCalendar
// representation (RFC 5545 RRULE values and VEVENT/VTODO components),
// so rules can round-trip through calendar exports and CalDAV-backed
// stores.
//
// One semantic difference is deliberate: RFC 5545 skips occurrences
// that do not exist (a BYMONTHDAY=31 rule simply has no February
// occurrence), while recurrence rules clamp to the month's last day.
// Encoded rules are therefore an interchange approximation, not an
// exact equivalent.
package ical

import (
	"errors"
	"fmt"

	"github.com/teambition/rrule-go"

	"github.com/evielle/librecur/recurrence"
)

// ErrUnsupportedRRule wraps RRULE parts that have no recurrence.Rule
// counterpart. Decoding fails rather than silently dropping them.
var ErrUnsupportedRRule = errors.New("unsupported RRULE")

// weekday numbering is 1=Sunday..7=Saturday on the rule side and
// MO=0..SU=6 on the rrule-go side.
var toRRuleWeekday = map[int]rrule.Weekday{
	1: rrule.SU,
	2: rrule.MO,
	3: rrule.TU,
	4: rrule.WE,
	5: rrule.TH,
	6: rrule.FR,
	7: rrule.SA,
}

func fromRRuleWeekday(w rrule.Weekday) int {
	return (w.Day()+1)%7 + 1
}

// EncodeRRule serializes a rule as an RRULE property value (without the
// "RRULE:" prefix). Custom rules are resolved first; rules that cannot
// be resolved fail.
func EncodeRRule(rule recurrence.Rule) (string, error) {
	if err := rule.Validate(); err != nil {
		return "", err
	}
	rule, err := rule.Resolve()
	if err != nil {
		return "", err
	}

	var opt rrule.ROption
	// INTERVAL=1 is the RFC default; leave it implicit.
	if rule.Interval > 1 {
		opt.Interval = rule.Interval
	}

	switch rule.Frequency {
	case recurrence.FreqMinutely:
		opt.Freq = rrule.MINUTELY
	case recurrence.FreqHourly:
		opt.Freq = rrule.HOURLY
	case recurrence.FreqDaily:
		opt.Freq = rrule.DAILY
	case recurrence.FreqWeekly:
		opt.Freq = rrule.WEEKLY
	case recurrence.FreqMonthly:
		opt.Freq = rrule.MONTHLY
	case recurrence.FreqYearly:
		opt.Freq = rrule.YEARLY
	default:
		return "", fmt.Errorf("%w: frequency %s", ErrUnsupportedRRule, rule.Frequency)
	}

	for _, d := range rule.DaysOfWeek {
		opt.Byweekday = append(opt.Byweekday, toRRuleWeekday[d])
	}
	if rule.DayOfMonth > 0 {
		opt.Bymonthday = []int{rule.DayOfMonth}
	}
	if rule.EndDate != nil {
		opt.Until = rule.EndDate.UTC()
	}
	if rule.MaxOccurrences > 0 {
		opt.Count = rule.MaxOccurrences
	}
	if pt := rule.PreferredTime; pt != nil && !rule.Frequency.SubDaily() {
		opt.Byhour = []int{pt.Hour}
		opt.Byminute = []int{pt.Minute}
	}

	// NewRRule validates the option combination before we serialize it.
	if _, err := rrule.NewRRule(opt); err != nil {
		return "", fmt.Errorf("building RRULE: %w", err)
	}
	return opt.RRuleString(), nil
}

// DecodeRRule parses an RRULE property value (without the "RRULE:"
// prefix) into a rule. RRULE parts with no rule counterpart (BYSETPOS,
// BYMONTH, positional weekdays like 2MO, ...) are an error.
func DecodeRRule(value string) (recurrence.Rule, error) {
	var rule recurrence.Rule

	opt, err := rrule.StrToROption(value)
	if err != nil {
		return rule, fmt.Errorf("parsing RRULE %q: %w", value, err)
	}

	switch opt.Freq {
	case rrule.MINUTELY:
		rule.Frequency = recurrence.FreqMinutely
	case rrule.HOURLY:
		rule.Frequency = recurrence.FreqHourly
	case rrule.DAILY:
		rule.Frequency = recurrence.FreqDaily
	case rrule.WEEKLY:
		rule.Frequency = recurrence.FreqWeekly
	case rrule.MONTHLY:
		rule.Frequency = recurrence.FreqMonthly
	case rrule.YEARLY:
		rule.Frequency = recurrence.FreqYearly
	default:
		return rule, fmt.Errorf("%w: FREQ=%v", ErrUnsupportedRRule, opt.Freq)
	}

	rule.Interval = opt.Interval
	if rule.Interval == 0 {
		rule.Interval = 1
	}

	for _, w := range opt.Byweekday {
		if w.N() != 0 {
			return rule, fmt.Errorf("%w: positional BYDAY", ErrUnsupportedRRule)
		}
		rule.DaysOfWeek = append(rule.DaysOfWeek, fromRRuleWeekday(w))
	}

	switch len(opt.Bymonthday) {
	case 0:
	case 1:
		if opt.Bymonthday[0] < 1 {
			return rule, fmt.Errorf("%w: negative BYMONTHDAY", ErrUnsupportedRRule)
		}
		rule.DayOfMonth = opt.Bymonthday[0]
	default:
		return rule, fmt.Errorf("%w: multiple BYMONTHDAY values", ErrUnsupportedRRule)
	}

	if !opt.Until.IsZero() {
		until := opt.Until
		rule.EndDate = &until
	}
	if opt.Count > 0 {
		rule.MaxOccurrences = opt.Count
	}

	if len(opt.Byhour) == 1 && len(opt.Byminute) <= 1 && !rule.Frequency.SubDaily() {
		pt := recurrence.ClockTime{Hour: opt.Byhour[0]}
		if len(opt.Byminute) == 1 {
			pt.Minute = opt.Byminute[0]
		}
		rule.PreferredTime = &pt
	} else if len(opt.Byhour) > 1 || len(opt.Byminute) > 1 {
		return rule, fmt.Errorf("%w: multiple BYHOUR/BYMINUTE values", ErrUnsupportedRRule)
	}

	if err := rejectUnsupported(opt); err != nil {
		return rule, err
	}

	return rule, rule.Validate()
}

func rejectUnsupported(opt *rrule.ROption) error {
	switch {
	case len(opt.Bysetpos) > 0:
		return fmt.Errorf("%w: BYSETPOS", ErrUnsupportedRRule)
	case len(opt.Bymonth) > 0:
		return fmt.Errorf("%w: BYMONTH", ErrUnsupportedRRule)
	case len(opt.Byyearday) > 0:
		return fmt.Errorf("%w: BYYEARDAY", ErrUnsupportedRRule)
	case len(opt.Byweekno) > 0:
		return fmt.Errorf("%w: BYWEEKNO", ErrUnsupportedRRule)
	case len(opt.Bysecond) > 0:
		return fmt.Errorf("%w: BYSECOND", ErrUnsupportedRRule)
	case len(opt.Byeaster) > 0:
		return fmt.Errorf("%w: BYEASTER", ErrUnsupportedRRule)
	}
	return nil
}
