package constants

const (
	// Per-user settings keys
	SettingDayStartTime = "day_start_time"
	SettingTimezone     = "timezone"

	// Default Settings Values
	DefaultDayStartTime = "05:00"
	DefaultTimezone     = "Local" // Use system local timezone by default
)
