package settlement

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPeriodStartTime(t *testing.T) {
	hour, minute, err := PeriodStartTime(1)
	require.NoError(t, err)
	assert.Equal(t, 0, hour)
	assert.Equal(t, 0, minute)

	hour, minute, err = PeriodStartTime(48)
	require.NoError(t, err)
	assert.Equal(t, 23, hour)
	assert.Equal(t, 30, minute)

	hour, minute, err = PeriodStartTime(23)
	require.NoError(t, err)
	assert.Equal(t, 11, hour)
	assert.Equal(t, 0, minute)
}

func TestPeriodStartTimeInvalid(t *testing.T) {
	for _, period := range []int{0, -1, 51, 100} {
		_, _, err := PeriodStartTime(period)
		assert.ErrorIs(t, err, ErrInvalidPeriod, "period %d", period)
	}
}

func TestPeriodRoundTrip(t *testing.T) {
	// Periods 49 and 50 wrap past midnight, so their wall-clock labels
	// collide with periods 1 and 2 and cannot round-trip.
	for period := 1; period <= 48; period++ {
		hour, minute, err := PeriodStartTime(period)
		require.NoError(t, err)
		assert.Equal(t, period, PeriodAt(hour, minute))
	}
}

func TestPeriodRoundTripFallBackAmbiguity(t *testing.T) {
	hour, minute, err := PeriodStartTime(49)
	require.NoError(t, err)
	assert.Equal(t, 1, PeriodAt(hour, minute))

	hour, minute, err = PeriodStartTime(50)
	require.NoError(t, err)
	assert.Equal(t, 2, PeriodAt(hour, minute))
}

func TestPeriodsInDay(t *testing.T) {
	tests := []struct {
		name string
		date time.Time
		want int
	}{
		{"ordinary winter day", time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), 48},
		{"ordinary summer day", time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC), 48},
		{"spring forward 2024", time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC), 46},
		{"fall back 2024", time.Date(2024, 10, 27, 0, 0, 0, 0, time.UTC), 50},
		{"spring forward 2025", time.Date(2025, 3, 30, 0, 0, 0, 0, time.UTC), 46},
		{"fall back 2025", time.Date(2025, 10, 26, 0, 0, 0, 0, time.UTC), 50},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := PeriodsInDay(tc.date)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestPeriodTime(t *testing.T) {
	date := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)

	start, err := PeriodTime(date, 23)
	require.NoError(t, err)
	assert.Equal(t, 11, start.Hour())
	assert.Equal(t, 0, start.Minute())
	assert.Equal(t, Location(), start.Location())

	_, err = PeriodTime(date, 0)
	assert.True(t, errors.Is(err, ErrInvalidPeriod))
}

func TestFormatPeriod(t *testing.T) {
	date := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "2024-01-15 SP23 (11:00-11:30)", FormatPeriod(date, 23))
	assert.Equal(t, "2024-01-15 SP1 (00:00-00:30)", FormatPeriod(date, 1))
	// Period 48 ends at midnight, which wraps to 00:00.
	assert.Equal(t, "2024-01-15 SP48 (23:30-00:00)", FormatPeriod(date, 48))
}
