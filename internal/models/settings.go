package models

// Settings holds the per-user preferences that affect day boundaries.
type Settings struct {
	UserID       string `json:"user_id"`
	DayStartTime string `json:"day_start_time"` // HH:MM, the time the logical day starts
	Timezone     string `json:"timezone"`       // IANA timezone name (e.g. "Asia/Seoul", or "Local" for system timezone)
}
