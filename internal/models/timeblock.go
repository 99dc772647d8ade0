package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/julianstephens/keeprun/internal/constants"
)

// TimeBlock is one planned block on a day's schedule.
type TimeBlock struct {
	ID        string     `json:"id"`
	UserID    string     `json:"user_id"`
	Date      string     `json:"date"`  // YYYY-MM-DD
	Start     string     `json:"start"` // HH:MM format
	End       string     `json:"end"`   // HH:MM format
	Title     string     `json:"title"`
	Color     string     `json:"color,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}

func (b *TimeBlock) Validate() error {
	if strings.TrimSpace(b.Title) == "" {
		return fmt.Errorf("time block title cannot be empty")
	}
	if _, err := time.Parse(constants.DateFormat, b.Date); err != nil {
		return fmt.Errorf("invalid date format (expected YYYY-MM-DD): %w", err)
	}

	start, err := time.Parse(constants.TimeFormat, b.Start)
	if err != nil {
		return fmt.Errorf("invalid start time (expected HH:MM): %w", err)
	}
	end, err := time.Parse(constants.TimeFormat, b.End)
	if err != nil {
		return fmt.Errorf("invalid end time (expected HH:MM): %w", err)
	}
	if !end.After(start) {
		return fmt.Errorf("end time %s must be after start time %s", b.End, b.Start)
	}

	return nil
}

// DurationMin returns the length of the block in minutes, or 0 when the
// times are malformed.
func (b *TimeBlock) DurationMin() int {
	start, err := time.Parse(constants.TimeFormat, b.Start)
	if err != nil {
		return 0
	}
	end, err := time.Parse(constants.TimeFormat, b.End)
	if err != nil {
		return 0
	}
	return int(end.Sub(start).Minutes())
}
