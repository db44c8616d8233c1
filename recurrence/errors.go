package recurrence

import "errors"

var (
	// ErrInvalidRule is returned when rule fields violate their
	// invariants (interval < 1, out-of-range day-of-month or weekday,
	// malformed preferred time).
	ErrInvalidRule = errors.New("invalid recurrence rule")
	// ErrUnresolvableCustom is returned when a custom frequency lacks
	// the fields needed to resolve it to a concrete one.
	ErrUnresolvableCustom = errors.New("unresolvable custom frequency")
)
