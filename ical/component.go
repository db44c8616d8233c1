package ical

import (
	"time"

	"github.com/emersion/go-ical"
	"github.com/samber/mo"

	"github.com/evielle/librecur/recurrence"
)

// RuleFromComponent extracts a recurrence rule from a VEVENT or VTODO
// component. The second return value is false when the component has no
// RRULE (a one-shot event). DTSTART, when present, becomes the rule's
// anchor; the DTSTART zone becomes the rule's time zone.
func RuleFromComponent(comp *ical.Component) (recurrence.Rule, bool, error) {
	value, hasRule := rruleValue(comp).Get()
	if !hasRule {
		return recurrence.Rule{}, false, nil
	}

	rule, err := DecodeRRule(value)
	if err != nil {
		return recurrence.Rule{}, false, err
	}

	if start, ok := dtstart(comp).Get(); ok {
		rule.Anchor = start
		if name := start.Location().String(); name != "Local" {
			rule.TimeZone = zoneName(start)
		}
	}

	return rule, true, nil
}

// ApplyToComponent writes the rule onto a component as RRULE plus, when
// the rule carries an anchor, DTSTART.
func ApplyToComponent(rule recurrence.Rule, comp *ical.Component) error {
	value, err := EncodeRRule(rule)
	if err != nil {
		return err
	}
	// RECUR values are structured, not TEXT; SetText would escape the
	// ";" and "," separators.
	comp.Props.Set(&ical.Prop{Name: ical.PropRecurrenceRule, Value: value})

	if !rule.Anchor.IsZero() {
		anchor := rule.Anchor
		if loc, err := rule.Location(); err == nil {
			anchor = anchor.In(loc)
		}
		comp.Props.SetDateTime(ical.PropDateTimeStart, anchor)
	}
	return nil
}

// NewTaskComponent builds a VTODO carrying the rule, for export into
// calendar clients. The due date doubles as the DTSTART anchor.
func NewTaskComponent(uid, summary string, due time.Time, rule recurrence.Rule) (*ical.Component, error) {
	comp := &ical.Component{
		Name:  ical.CompToDo,
		Props: make(ical.Props),
	}
	comp.Props.SetText(ical.PropUID, uid)
	comp.Props.SetText(ical.PropSummary, summary)
	comp.Props.SetDateTime(ical.PropDue, due)

	if rule.Anchor.IsZero() {
		rule.Anchor = due
	}
	if err := ApplyToComponent(rule, comp); err != nil {
		return nil, err
	}
	return comp, nil
}

// rruleValue returns the component's RRULE property value, if any.
func rruleValue(comp *ical.Component) mo.Option[string] {
	if prop := comp.Props.Get(ical.PropRecurrenceRule); prop != nil && prop.Value != "" {
		return mo.Some(prop.Value)
	}
	return mo.None[string]()
}

// dtstart returns the component's DTSTART, if present and parseable.
func dtstart(comp *ical.Component) mo.Option[time.Time] {
	if t, err := comp.Props.DateTime(ical.PropDateTimeStart, nil); err == nil && !t.IsZero() {
		return mo.Some(t)
	}
	return mo.None[time.Time]()
}

// zoneName returns an IANA-ish name for the time's zone, falling back
// to UTC when the zone is a bare offset.
func zoneName(t time.Time) string {
	name := t.Location().String()
	if name == "" || name == "Local" {
		return ""
	}
	// Bare offsets like "+0800" are not loadable zone names.
	if name[0] == '+' || name[0] == '-' {
		return ""
	}
	return name
}
