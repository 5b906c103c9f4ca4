package scheduling

import "time"

// Window is an availability window materialized from a weekly rule for one
// concrete calendar day.
type Window struct {
	Interval
	Date    time.Time // local midnight of the source day
	Weekday int       // canonical weekday of the source day
}

// ExpandRules turns weekly rules into absolute windows over the horizon
// [startDay, startDay+days], inclusive of both endpoints. startDay must be a
// local midnight; the windows inherit its location. Rules with an
// unrecognizable weekday or unparseable times are skipped, never an error:
// one bad rule must not hide every valid window. Multiple rules matching the
// same day (split shifts) all expand independently, without merging.
func ExpandRules(rules []AvailabilityRule, startDay time.Time, days int) []Window {
	var windows []Window

	for offset := 0; offset <= days; offset++ {
		day := startDay.AddDate(0, 0, offset)
		weekday := canonicalWeekdayOf(day)

		for _, rule := range rules {
			canonical, ok := CanonicalWeekday(rule.Weekday)
			if !ok || canonical != weekday {
				continue
			}

			start, ok := parseClock(rule.StartTime)
			if !ok {
				continue
			}
			end, ok := parseClock(rule.EndTime)
			if !ok {
				continue
			}

			windows = append(windows, Window{
				Interval: Interval{
					Start: day.Add(start),
					End:   day.Add(end),
				},
				Date:    day,
				Weekday: weekday,
			})
		}
	}

	return windows
}

// parseClock parses a wall-clock time of day ("HH:MM" or "HH:MM:SS") into an
// offset from midnight.
func parseClock(s string) (time.Duration, bool) {
	t, err := time.Parse("15:04:05", s)
	if err != nil {
		t, err = time.Parse("15:04", s)
		if err != nil {
			return 0, false
		}
	}
	return time.Duration(t.Hour())*time.Hour +
		time.Duration(t.Minute())*time.Minute +
		time.Duration(t.Second())*time.Second, true
}

// ValidateRuleTimes is the write-time counterpart of the lenient parsing in
// ExpandRules: new rules must carry parseable times in increasing order.
func ValidateRuleTimes(start, end string) error {
	s, ok := parseClock(start)
	if !ok {
		return errInvalidRulef("start_time %q is not a valid HH:MM time", start)
	}
	e, ok := parseClock(end)
	if !ok {
		return errInvalidRulef("end_time %q is not a valid HH:MM time", end)
	}
	if s >= e {
		return errInvalidRulef("start_time %s must be before end_time %s", start, end)
	}
	return nil
}
