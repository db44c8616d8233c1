package recurrence

import (
	"fmt"
	"time"

	"github.com/evielle/librecur/internal/calmath"
)

// Engine computes occurrence dates from recurrence rules. It holds no
// state besides an optional result cache, so a single Engine can be
// shared freely across goroutines.
type Engine struct {
	cache  *Cache
	config EngineConfig
}

// NewEngine creates an engine with DefaultEngineConfig.
func NewEngine() *Engine {
	return NewEngineWithConfig(DefaultEngineConfig)
}

// Close releases the engine's cache, if any.
func (e *Engine) Close() {
	if e.cache != nil {
		e.cache.Close()
	}
}

// NextOccurrence returns the earliest occurrence of the rule strictly
// after the given reference date. The second return value is false when
// the rule's EndDate or MaxOccurrences truncate the sequence before any
// qualifying date, which is a normal outcome rather than an error.
func (e *Engine) NextOccurrence(rule Rule, after time.Time) (time.Time, bool, error) {
	if e.cache != nil {
		if v, ok := e.cache.Get(opNext, rule, after, 1); ok {
			r := v.(nextResult)
			return r.T, r.OK, nil
		}
	}

	occ, err := e.generate(rule, after, 1)
	if err != nil {
		return time.Time{}, false, err
	}

	var res nextResult
	if len(occ) > 0 {
		res = nextResult{T: occ[0], OK: true}
	}
	if e.cache != nil {
		e.cache.Set(opNext, rule, after, 1, res)
	}
	return res.T, res.OK, nil
}

// Occurrences returns up to limit occurrences of the rule, forward
// ordered and strictly after the given start date. The result is a pure
// function of (rule, from, limit); generation stops early at the rule's
// EndDate or MaxOccurrences, or at the engine's internal step ceiling
// for rules that make no progress.
func (e *Engine) Occurrences(rule Rule, from time.Time, limit int) ([]time.Time, error) {
	if e.cache != nil {
		if v, ok := e.cache.Get(opOccurrences, rule, from, limit); ok {
			return v.([]time.Time), nil
		}
	}

	occ, err := e.generate(rule, from, limit)
	if err != nil {
		return nil, err
	}
	if e.cache != nil {
		e.cache.Set(opOccurrences, rule, from, limit, occ)
	}
	return occ, nil
}

type nextResult struct {
	T  time.Time
	OK bool
}

// generate is the single walk both exported operations share, so that
// NextOccurrence always agrees with the head of Occurrences.
func (e *Engine) generate(rule Rule, from time.Time, limit int) ([]time.Time, error) {
	if err := rule.Validate(); err != nil {
		return nil, err
	}
	rule, err := rule.Resolve()
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		return nil, nil
	}

	loc, err := rule.Location()
	if err != nil {
		return nil, err
	}
	from = from.In(loc)

	maxSteps := e.config.MaxScanSteps
	if maxSteps <= 0 {
		maxSteps = DefaultEngineConfig.MaxScanSteps
	}

	// With an anchor and an occurrence cap, walk from the anchor so
	// occurrences are counted from the rule's conceptual start rather
	// than from the query date.
	if rule.MaxOccurrences > 0 && !rule.Anchor.IsZero() {
		return rule.walkFromAnchor(from, limit, maxSteps)
	}
	return rule.walkFromReference(from, limit, maxSteps)
}

// walkFromAnchor enumerates the rule's occurrences starting at the
// anchor (occurrence #1), discarding those not after `from` but still
// counting them against MaxOccurrences. An anchor that violates the
// rule's day constraints is only an alignment origin, not an
// occurrence; the walk starts at the first date that qualifies.
func (r Rule) walkFromAnchor(from time.Time, limit, maxSteps int) ([]time.Time, error) {
	var out []time.Time
	cur := r.pin(r.Anchor.In(from.Location()))
	if !r.matchesDayConstraints(cur) {
		next, err := r.step(cur)
		if err != nil {
			return nil, err
		}
		cur = r.pin(next)
	}

	for count, steps := 1, 0; steps < maxSteps; steps++ {
		if count > r.MaxOccurrences || len(out) == limit || r.pastEnd(cur) {
			break
		}
		if cur.After(from) {
			out = append(out, cur)
		}

		next, err := r.step(cur)
		if err != nil {
			return nil, err
		}
		next = r.pin(next)
		if !next.After(cur) {
			// Malformed rule that stopped advancing; return what we
			// have instead of spinning.
			break
		}
		cur = next
		count++
	}
	return out, nil
}

// walkFromReference steps directly from the reference date. When
// MaxOccurrences is set without an anchor, counting starts at the
// reference, which is then the rule's conceptual start.
func (r Rule) walkFromReference(from time.Time, limit, maxSteps int) ([]time.Time, error) {
	var out []time.Time
	cur := from

	for steps := 0; steps < maxSteps; steps++ {
		if len(out) == limit {
			break
		}
		if r.MaxOccurrences > 0 && len(out) >= r.MaxOccurrences {
			break
		}

		next, err := r.step(cur)
		if err != nil {
			return nil, err
		}
		next = r.pin(next)
		if !next.After(cur) {
			break
		}
		cur = next

		if !next.After(from) {
			continue
		}
		if r.pastEnd(next) {
			break
		}
		out = append(out, next)
	}
	return out, nil
}

// step advances one occurrence from the given date. The switch is
// exhaustive over Frequency; Custom must be resolved before stepping.
func (r Rule) step(from time.Time) (time.Time, error) {
	switch r.Frequency {
	case FreqMinutely:
		return from.Add(time.Duration(r.Interval) * time.Minute), nil
	case FreqHourly:
		return from.Add(time.Duration(r.Interval) * time.Hour), nil
	case FreqDaily:
		return calmath.AddDays(from, r.Interval), nil
	case FreqWeekly:
		return r.stepWeekly(from)
	case FreqMonthly:
		want := r.DayOfMonth
		if want == 0 {
			want = r.anchorOr(from).Day()
		}
		return calmath.AddMonthsClamped(from, r.Interval, want), nil
	case FreqYearly:
		base := r.anchorOr(from)
		return calmath.AddYearsClamped(from, r.Interval, base.Month(), base.Day()), nil
	case FreqCustom:
		return time.Time{}, fmt.Errorf("%w: rule not resolved before stepping", ErrUnresolvableCustom)
	default:
		return time.Time{}, fmt.Errorf("%w: unknown frequency %d", ErrInvalidRule, int(r.Frequency))
	}
}

// stepWeekly advances to the next qualifying day strictly after `from`.
// With a weekday set, days qualify when their weekday is in the set and
// their week lies on the interval grid counted from the anchor's week.
func (r Rule) stepWeekly(from time.Time) (time.Time, error) {
	if len(r.DaysOfWeek) == 0 {
		return calmath.AddDays(from, 7*r.Interval), nil
	}

	anchor := r.anchorOr(from)
	set := make(map[time.Weekday]bool, len(r.DaysOfWeek))
	for _, d := range r.DaysOfWeek {
		set[calmath.ToWeekday(d)] = true
	}

	// One interval cycle plus a week is always enough to reach the next
	// qualifying day.
	scan := 7*r.Interval + 7
	cand := calmath.AddDays(from, 1)
	for i := 0; i < scan; i++ {
		if set[cand.Weekday()] && onWeekGrid(anchor, cand, r.Interval) {
			return cand, nil
		}
		cand = calmath.AddDays(cand, 1)
	}
	return time.Time{}, fmt.Errorf("%w: no weekday in %v reachable", ErrInvalidRule, r.DaysOfWeek)
}

func onWeekGrid(anchor, cand time.Time, interval int) bool {
	if interval <= 1 {
		return true
	}
	w := calmath.WeeksBetween(anchor, cand) % interval
	if w < 0 {
		w += interval
	}
	return w == 0
}

// matchesDayConstraints reports whether t satisfies the rule's weekday
// or day-of-month constraints. Frequencies without day constraints
// match any date; the weekly interval grid is anchored at t's own week,
// so it cannot disqualify the anchor.
func (r Rule) matchesDayConstraints(t time.Time) bool {
	switch r.Frequency {
	case FreqWeekly:
		if len(r.DaysOfWeek) == 0 {
			return true
		}
		for _, d := range r.DaysOfWeek {
			if t.Weekday() == calmath.ToWeekday(d) {
				return true
			}
		}
		return false
	case FreqMonthly:
		if r.DayOfMonth == 0 {
			return true
		}
		return t.Day() == calmath.ClampDay(t.Year(), t.Month(), r.DayOfMonth)
	default:
		return true
	}
}

// pin overwrites the occurrence's wall-clock time with the rule's
// preferred time. Sub-daily rules keep the computed time.
func (r Rule) pin(t time.Time) time.Time {
	if r.PreferredTime == nil || r.Frequency.SubDaily() {
		return t
	}
	return time.Date(t.Year(), t.Month(), t.Day(),
		r.PreferredTime.Hour, r.PreferredTime.Minute, 0, 0, t.Location())
}

// pastEnd reports whether t falls after the rule's inclusive end date.
func (r Rule) pastEnd(t time.Time) bool {
	return r.EndDate != nil && t.After(*r.EndDate)
}

// anchorOr returns the rule's anchor in t's location, or t itself when
// no anchor is set.
func (r Rule) anchorOr(t time.Time) time.Time {
	if r.Anchor.IsZero() {
		return t
	}
	return r.Anchor.In(t.Location())
}
