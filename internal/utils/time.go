package utils

import (
	"fmt"
	"time"

	"github.com/julianstephens/keeprun/internal/constants"
	"github.com/julianstephens/keeprun/internal/models"
)

// LogicalDate returns the logical calendar date t belongs to once the day
// start offset is applied. The result is a date-only value at UTC midnight.
// An empty dayStart uses the default of 05:00.
func LogicalDate(t time.Time, dayStart string) (time.Time, error) {
	if dayStart == "" {
		dayStart = constants.DefaultDayStartTime
	}
	boundary, err := ParseTime(dayStart)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid day start time %q (expected HH:MM): %w", dayStart, err)
	}

	start := time.Date(t.Year(), t.Month(), t.Day(), boundary.Hour(), boundary.Minute(), 0, 0, t.Location())
	day := DateOnly(t)
	if t.Before(start) {
		day = day.AddDate(0, 0, -1)
	}
	return day, nil
}

// LogicalDay is LogicalDate formatted as YYYY-MM-DD.
func LogicalDay(t time.Time, dayStart string) (string, error) {
	d, err := LogicalDate(t, dayStart)
	if err != nil {
		return "", err
	}
	return FormatDay(d), nil
}

// TodayForSettings resolves the user's logical day using both their timezone
// and their day start time.
func TodayForSettings(clock Clock, settings models.Settings) (string, error) {
	loc, err := LoadLocation(settings.Timezone)
	if err != nil {
		return "", fmt.Errorf("invalid timezone %q: %w", settings.Timezone, err)
	}
	return LogicalDay(clock.Now().In(loc), settings.DayStartTime)
}

// DateOnly drops the time-of-day component, keeping t's own calendar date.
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// ParseDay parses a YYYY-MM-DD string into a date-only value.
func ParseDay(s string) (time.Time, error) {
	t, err := time.Parse(constants.DateFormat, s)
	if err != nil {
		return time.Time{}, err
	}
	return DateOnly(t), nil
}

// FormatDay formats a date as YYYY-MM-DD.
func FormatDay(t time.Time) string {
	return t.Format(constants.DateFormat)
}

// DaysBetween returns the number of whole calendar days from a to b.
func DaysBetween(a, b time.Time) int {
	return int(DateOnly(b).Sub(DateOnly(a)).Hours() / 24)
}

// DaysBetweenDays is DaysBetween for YYYY-MM-DD strings.
func DaysBetweenDays(from, to string) (int, error) {
	a, err := ParseDay(from)
	if err != nil {
		return 0, err
	}
	b, err := ParseDay(to)
	if err != nil {
		return 0, err
	}
	return DaysBetween(a, b), nil
}

// AddDays shifts a YYYY-MM-DD day by n calendar days.
func AddDays(day string, n int) (string, error) {
	d, err := ParseDay(day)
	if err != nil {
		return "", err
	}
	return FormatDay(d.AddDate(0, 0, n)), nil
}

// LoadLocation loads a timezone location from an IANA timezone name.
// If the timezone is "Local" or empty, it returns the system's local timezone.
func LoadLocation(timezone string) (*time.Location, error) {
	if timezone == "" || timezone == "Local" {
		return time.Local, nil
	}
	return time.LoadLocation(timezone)
}

// NowInTimezone returns the current time in the specified timezone.
func NowInTimezone(timezone string) (time.Time, error) {
	loc, err := LoadLocation(timezone)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timezone %q: %w", timezone, err)
	}
	return time.Now().In(loc), nil
}

// ParseTime parses a time string in the standard format (HH:MM).
func ParseTime(timeStr string) (time.Time, error) {
	return time.Parse(constants.TimeFormat, timeStr)
}

// ParseTimeToMinutes parses a time string (HH:MM) and returns the number of minutes from midnight.
func ParseTimeToMinutes(timeStr string) (int, error) {
	t, err := ParseTime(timeStr)
	if err != nil {
		return 0, err
	}
	return t.Hour()*60 + t.Minute(), nil
}

// ValidateTimeFormat checks if the string matches the standard time format.
func ValidateTimeFormat(timeStr string) bool {
	_, err := ParseTime(timeStr)
	return err == nil
}

// ValidateTimezone checks if the timezone name is valid.
func ValidateTimezone(timezone string) bool {
	if timezone == "" || timezone == "Local" {
		return true
	}
	_, err := time.LoadLocation(timezone)
	return err == nil
}
