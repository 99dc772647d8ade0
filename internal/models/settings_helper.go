package models

import (
	"github.com/julianstephens/keeprun/internal/constants"
)

// MapToSettings converts a map of key-value pairs to a Settings struct.
func MapToSettings(userID string, data map[string]string) Settings {
	settings := Settings{UserID: userID}

	for key, value := range data {
		switch key {
		case constants.SettingDayStartTime:
			settings.DayStartTime = value
		case constants.SettingTimezone:
			settings.Timezone = value
		}
	}
	return settings
}

// SettingsToMap converts a Settings struct to a map of key-value pairs.
func SettingsToMap(settings Settings) map[string]string {
	return map[string]string{
		constants.SettingDayStartTime: settings.DayStartTime,
		constants.SettingTimezone:     settings.Timezone,
	}
}

// ApplyDefaultSettings applies default values to missing settings.
func ApplyDefaultSettings(settings *Settings) {
	if settings.DayStartTime == "" {
		settings.DayStartTime = constants.DefaultDayStartTime
	}
	if settings.Timezone == "" {
		settings.Timezone = constants.DefaultTimezone
	}
}
