package scheduling

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonicalWeekday(t *testing.T) {
	tests := []struct {
		name string
		code int
		want int
		ok   bool
	}{
		{"monday authored", 1, 0, true},
		{"sunday authored", 7, 6, true},
		{"legacy zero", 0, 0, true},
		{"midweek", 3, 2, true},
		{"negative", -1, 0, false},
		{"too large", 8, 0, false},
		{"way out of range", 99, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := CanonicalWeekday(tt.code)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestValidateRuleWeekday(t *testing.T) {
	for code := 1; code <= 7; code++ {
		assert.NoError(t, ValidateRuleWeekday(code))
	}

	// Write time is strict even where read time is lenient.
	err := ValidateRuleWeekday(0)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidRule)
	assert.ErrorIs(t, ValidateRuleWeekday(8), ErrInvalidRule)
}

func TestCanonicalWeekdayOf(t *testing.T) {
	monday := time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC)
	require.Equal(t, time.Monday, monday.Weekday())

	for offset := 0; offset < 7; offset++ {
		day := monday.AddDate(0, 0, offset)
		assert.Equal(t, offset, canonicalWeekdayOf(day))
	}
}
