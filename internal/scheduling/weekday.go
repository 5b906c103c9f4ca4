package scheduling

import (
	"fmt"
	"time"
)

// Weekday rules are authored as 1=Monday..7=Sunday. Internally everything is
// normalized to the canonical 0=Monday..6=Sunday domain so rule weekdays can
// be compared against calendar dates.

// CanonicalWeekday maps a stored weekday code to a canonical index.
// Codes 1..7 are treated as Monday..Sunday; a raw 0..6 value is accepted
// as-is for legacy rows. Anything else fails closed: the rule is excluded
// from expansion rather than erroring the request.
func CanonicalWeekday(code int) (int, bool) {
	if code >= 1 && code <= 7 {
		return code - 1, true
	}
	if code >= 0 && code <= 6 {
		return code, true
	}
	return 0, false
}

// ValidateRuleWeekday enforces the authoring convention (1=Monday..7=Sunday)
// when a rule is written, so read-time normalization never has to guess.
func ValidateRuleWeekday(code int) error {
	if code < 1 || code > 7 {
		return fmt.Errorf("%w: weekday must be 1 (Monday) through 7 (Sunday), got %d", ErrInvalidRule, code)
	}
	return nil
}

// canonicalWeekdayOf converts Go's Sunday-based weekday to the canonical
// Monday-based index.
func canonicalWeekdayOf(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}
