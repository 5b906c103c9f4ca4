package scheduling

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 2026-09-07 is a Monday.
var mondayMidnight = time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC)

func rule(weekday int, start, end string) AvailabilityRule {
	return AvailabilityRule{Weekday: weekday, StartTime: start, EndTime: end}
}

func TestExpandRulesMatchesWeekday(t *testing.T) {
	rules := []AvailabilityRule{rule(1, "09:00", "12:00")}

	windows := ExpandRules(rules, mondayMidnight, 14)

	// Days 0, 7 and 14 of the horizon are Mondays.
	require.Len(t, windows, 3)
	for i, w := range windows {
		assert.Equal(t, 0, w.Weekday)
		assert.Equal(t, mondayMidnight.AddDate(0, 0, i*7), w.Date)
		assert.Equal(t, w.Date.Add(9*time.Hour), w.Start)
		assert.Equal(t, w.Date.Add(12*time.Hour), w.End)
	}
}

func TestExpandRulesInclusiveHorizon(t *testing.T) {
	daily := make([]AvailabilityRule, 0, 7)
	for weekday := 1; weekday <= 7; weekday++ {
		daily = append(daily, rule(weekday, "10:00", "11:00"))
	}

	windows := ExpandRules(daily, mondayMidnight, 14)
	assert.Len(t, windows, 15, "horizon includes both endpoints")

	windows = ExpandRules(daily, mondayMidnight, 0)
	require.Len(t, windows, 1)
	assert.Equal(t, mondayMidnight, windows[0].Date)
}

func TestExpandRulesSkipsMalformed(t *testing.T) {
	rules := []AvailabilityRule{
		rule(1, "09:00", "10:00"),
		rule(1, "not-a-time", "10:00"),
		rule(1, "09:00", "25:99"),
		rule(42, "09:00", "10:00"),
	}

	windows := ExpandRules(rules, mondayMidnight, 0)

	// One bad rule never hides a valid one.
	require.Len(t, windows, 1)
	assert.Equal(t, mondayMidnight.Add(9*time.Hour), windows[0].Start)
}

func TestExpandRulesSplitShifts(t *testing.T) {
	rules := []AvailabilityRule{
		rule(1, "09:00", "12:00"),
		rule(1, "13:00", "17:00"),
	}

	windows := ExpandRules(rules, mondayMidnight, 0)

	require.Len(t, windows, 2)
	assert.Equal(t, mondayMidnight.Add(9*time.Hour), windows[0].Start)
	assert.Equal(t, mondayMidnight.Add(13*time.Hour), windows[1].Start)
}

func TestExpandRulesSecondsPrecision(t *testing.T) {
	rules := []AvailabilityRule{rule(1, "09:30:15", "10:00:00")}

	windows := ExpandRules(rules, mondayMidnight, 0)

	require.Len(t, windows, 1)
	assert.Equal(t, mondayMidnight.Add(9*time.Hour+30*time.Minute+15*time.Second), windows[0].Start)
}

func TestValidateRuleTimes(t *testing.T) {
	assert.NoError(t, ValidateRuleTimes("09:00", "17:00"))
	assert.NoError(t, ValidateRuleTimes("09:00:30", "09:01"))

	assert.ErrorIs(t, ValidateRuleTimes("bogus", "17:00"), ErrInvalidRule)
	assert.ErrorIs(t, ValidateRuleTimes("09:00", "bogus"), ErrInvalidRule)
	assert.ErrorIs(t, ValidateRuleTimes("17:00", "09:00"), ErrInvalidRule)
	assert.ErrorIs(t, ValidateRuleTimes("09:00", "09:00"), ErrInvalidRule)
}
