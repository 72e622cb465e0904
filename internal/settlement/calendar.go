// Package settlement maps UK half-hourly settlement periods to wall-clock time.
//
// UK electricity settles in 30-minute periods numbered from 1 within each
// calendar day. An ordinary day has 48 periods; the spring-forward clock-change
// day has 46 and the fall-back day has 50.
package settlement

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidPeriod is returned for settlement periods outside [1,50].
var ErrInvalidPeriod = errors.New("settlement period must be between 1 and 50")

// MaxPeriod is the highest period number that can occur (fall-back days).
const MaxPeriod = 50

var ukLocation *time.Location

func init() {
	loc, err := time.LoadLocation("Europe/London")
	if err != nil {
		panic("failed to load Europe/London timezone: " + err.Error())
	}
	ukLocation = loc
}

// Location returns the Europe/London location used for settlement dates.
func Location() *time.Location {
	return ukLocation
}

// Now returns the current time in the UK timezone.
func Now() time.Time {
	return time.Now().In(ukLocation)
}

// Today returns the current settlement date (midnight, Europe/London).
func Today() time.Time {
	now := Now()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, ukLocation)
}

// PeriodStartTime converts a settlement period to its start time of day.
// The mapping is a pure offset of (period-1)*30 minutes from local midnight;
// hours wrap at 24, so on fall-back days periods 49 and 50 share wall-clock
// labels with periods 1 and 2. PeriodAt cannot distinguish them.
func PeriodStartTime(period int) (hour, minute int, err error) {
	if period < 1 || period > MaxPeriod {
		return 0, 0, fmt.Errorf("%w, got %d", ErrInvalidPeriod, period)
	}
	minutes := (period - 1) * 30
	return (minutes / 60) % 24, minutes % 60, nil
}

// PeriodAt returns the 1-based settlement period containing the given time of day.
func PeriodAt(hour, minute int) int {
	return (hour*60+minute)/30 + 1
}

// PeriodsInDay reports how many settlement periods the given date has by
// measuring the Europe/London wall-clock day length. 24h days have 48 periods,
// the 23h spring-forward day 46, the 25h fall-back day 50. Any other duration
// indicates broken timezone data and is surfaced, not defaulted.
func PeriodsInDay(date time.Time) (int, error) {
	start := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, ukLocation)
	end := time.Date(date.Year(), date.Month(), date.Day()+1, 0, 0, 0, 0, ukLocation)

	switch hours := end.Sub(start).Hours(); hours {
	case 24:
		return 48, nil
	case 23:
		return 46, nil
	case 25:
		return 50, nil
	default:
		return 0, fmt.Errorf("unexpected day length %.1fh for %s", hours, date.Format("2006-01-02"))
	}
}

// PeriodTime returns the UK-local start instant of a settlement period.
func PeriodTime(date time.Time, period int) (time.Time, error) {
	if period < 1 || period > MaxPeriod {
		return time.Time{}, fmt.Errorf("%w, got %d", ErrInvalidPeriod, period)
	}
	start := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, ukLocation)
	return start.Add(time.Duration(period-1) * 30 * time.Minute), nil
}

// FormatPeriod renders a settlement period for display, e.g.
// "2024-01-15 SP23 (11:00-11:30)".
func FormatPeriod(date time.Time, period int) string {
	startHour, startMin, err := PeriodStartTime(period)
	if err != nil {
		return fmt.Sprintf("%s SP%d (invalid)", date.Format("2006-01-02"), period)
	}
	endMinutes := (period * 30) % (24 * 60)
	return fmt.Sprintf("%s SP%d (%02d:%02d-%02d:%02d)",
		date.Format("2006-01-02"), period,
		startHour, startMin,
		endMinutes/60, endMinutes%60,
	)
}
