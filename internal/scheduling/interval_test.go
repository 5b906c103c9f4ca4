package scheduling

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func iv(startHour, startMin, endHour, endMin int) Interval {
	day := time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC)
	return Interval{
		Start: day.Add(time.Duration(startHour)*time.Hour + time.Duration(startMin)*time.Minute),
		End:   day.Add(time.Duration(endHour)*time.Hour + time.Duration(endMin)*time.Minute),
	}
}

func TestIntervalOverlaps(t *testing.T) {
	tests := []struct {
		name string
		a, b Interval
		want bool
	}{
		{"partial overlap", iv(10, 0, 10, 30), iv(10, 15, 10, 45), true},
		{"containment", iv(10, 0, 12, 0), iv(10, 30, 11, 0), true},
		{"identical", iv(10, 0, 10, 30), iv(10, 0, 10, 30), true},
		{"back to back", iv(10, 0, 10, 30), iv(10, 30, 11, 0), false},
		{"disjoint", iv(9, 0, 9, 30), iv(14, 0, 14, 30), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.a.Overlaps(tt.b))
			assert.Equal(t, tt.want, tt.b.Overlaps(tt.a), "overlap must be symmetric")
		})
	}
}

func TestIntervalValid(t *testing.T) {
	assert.True(t, iv(10, 0, 10, 30).Valid())
	assert.False(t, iv(10, 30, 10, 0).Valid())

	zero := iv(10, 0, 10, 0)
	assert.False(t, zero.Valid())
	assert.False(t, zero.Overlaps(zero), "zero-length interval overlaps nothing, not even itself")
}

func TestOverlapsAny(t *testing.T) {
	busy := []Interval{iv(9, 0, 9, 30), iv(12, 0, 13, 0)}

	assert.True(t, overlapsAny(iv(12, 30, 13, 30), busy))
	assert.False(t, overlapsAny(iv(9, 30, 10, 0), busy))
	assert.False(t, overlapsAny(iv(10, 0, 10, 30), nil))
}
