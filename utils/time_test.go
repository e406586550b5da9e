package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseISOPeriod(t *testing.T) {
	tests := []struct {
		name     string
		period   string
		expected time.Duration
	}{
		{"days", "P3D", 3 * 24 * time.Hour},
		{"hours", "PT12H", 12 * time.Hour},
		{"minutes", "PT90M", 90 * time.Minute},
		{"mixed", "P1DT6H", 30 * time.Hour},
		{"weeks", "P2W", 14 * 24 * time.Hour},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := ParseISOPeriod(tt.period)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, d)
		})
	}

	t.Run("invalid period is rejected", func(t *testing.T) {
		_, err := ParseISOPeriod("3 days")
		assert.Error(t, err)
	})

	t.Run("empty period is rejected", func(t *testing.T) {
		_, err := ParseISOPeriod("")
		assert.Error(t, err)
	})
}

func TestAddISOPeriod(t *testing.T) {
	base := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	shifted, err := AddISOPeriod(base, "P30D")
	require.NoError(t, err)
	assert.Equal(t, base.Add(30*24*time.Hour), shifted)

	_, err = AddISOPeriod(base, "bogus")
	assert.Error(t, err)
}

func TestDayStart(t *testing.T) {
	ts := time.Date(2025, 3, 10, 17, 42, 9, 123, time.UTC)
	assert.Equal(t, time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC), DayStart(ts))

	// A non-UTC time truncates to the UTC day, not the local one.
	loc := time.FixedZone("UTC+5", 5*3600)
	late := time.Date(2025, 3, 10, 2, 0, 0, 0, loc)
	assert.Equal(t, time.Date(2025, 3, 9, 0, 0, 0, 0, time.UTC), DayStart(late))
}

func TestIsExpiredPtr(t *testing.T) {
	assert.False(t, IsExpiredPtr(nil))

	past := UTCNow().Add(-time.Minute)
	assert.True(t, IsExpiredPtr(&past))

	future := UTCNow().Add(time.Minute)
	assert.False(t, IsExpiredPtr(&future))
}
