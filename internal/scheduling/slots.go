package scheduling

import (
	"sort"
	"time"
)

// GenerateSlots subtracts the busy set from the expanded windows on a fixed
// grid. For each window it walks forward in slotDur steps from the window
// start; a candidate is emitted when it fits entirely inside the window, its
// end is after now, and it overlaps no busy interval. Overlapping windows on
// the same day may yield duplicate slots; that is accepted, not deduplicated.
// The result is sorted ascending by start time, stable by generation order.
func GenerateSlots(windows []Window, busy []Interval, slotDur time.Duration, now time.Time) []Slot {
	if slotDur <= 0 {
		return nil
	}

	slotMinutes := int(slotDur / time.Minute)

	var slots []Slot
	for _, w := range windows {
		for start := w.Start; !start.Add(slotDur).After(w.End); start = start.Add(slotDur) {
			end := start.Add(slotDur)

			// Fully in the past relative to the provider's local clock.
			if !end.After(now) {
				continue
			}

			candidate := Interval{Start: start, End: end}
			if overlapsAny(candidate, busy) {
				continue
			}

			slots = append(slots, Slot{
				StartAt:     start,
				EndAt:       end,
				Date:        w.Date.Format("2006-01-02"),
				Weekday:     w.Weekday,
				SlotMinutes: slotMinutes,
			})
		}
	}

	sort.SliceStable(slots, func(i, j int) bool {
		return slots[i].StartAt.Before(slots[j].StartAt)
	})

	return slots
}
