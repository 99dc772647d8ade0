package models

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/julianstephens/keeprun/internal/constants"
)

// Habit is a continuity challenge tracked day by day. A user has at most one
// active habit at a time.
type Habit struct {
	ID         string                  `json:"id"`
	UserID     string                  `json:"user_id"`
	Title      string                  `json:"title"`
	Category   constants.HabitCategory `json:"category"`
	StartDate  string                  `json:"start_date"` // YYYY-MM-DD logical date
	TargetDays int                     `json:"target_days"`
	IsActive   bool                    `json:"is_active"`
	CreatedAt  time.Time               `json:"created_at"`
	UpdatedAt  time.Time               `json:"updated_at"`
}

// HabitRecord is the completion flag for one logical day of a habit.
type HabitRecord struct {
	ID        string    `json:"id"`
	HabitID   string    `json:"habit_id"`
	Date      string    `json:"date"` // YYYY-MM-DD logical date
	Completed bool      `json:"completed"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HabitHistory is the immutable snapshot written when a habit reaches a
// terminal state.
type HabitHistory struct {
	ID            string                  `json:"id"`
	UserID        string                  `json:"user_id"`
	HabitID       string                  `json:"habit_id"`
	Title         string                  `json:"title"`
	Category      constants.HabitCategory `json:"category"`
	StartDate     string                  `json:"start_date"`
	EndDate       string                  `json:"end_date"`
	TotalDays     int                     `json:"total_days"`
	CompletedDays int                     `json:"completed_days"`
	Status        constants.HabitStatus   `json:"status"`
	CreatedAt     time.Time               `json:"created_at"`
}

// ValidCategory reports whether c is one of the known habit categories.
func ValidCategory(c constants.HabitCategory) bool {
	for _, known := range constants.HabitCategories {
		if c == known {
			return true
		}
	}
	return false
}

func (h *Habit) Validate() error {
	title := strings.TrimSpace(h.Title)
	if title == "" {
		return fmt.Errorf("habit title cannot be empty")
	}
	if utf8.RuneCountInString(title) > constants.MaxHabitTitleLength {
		return fmt.Errorf("habit title cannot exceed %d characters", constants.MaxHabitTitleLength)
	}
	if h.Category == "" {
		return fmt.Errorf("habit category cannot be empty")
	}
	if !ValidCategory(h.Category) {
		return fmt.Errorf("unknown habit category %q", h.Category)
	}
	if h.TargetDays < 1 || h.TargetDays > constants.MaxTargetDays {
		return fmt.Errorf("target days must be between 1 and %d", constants.MaxTargetDays)
	}
	if h.StartDate != "" {
		if _, err := time.Parse(constants.DateFormat, h.StartDate); err != nil {
			return fmt.Errorf("invalid start date (expected YYYY-MM-DD): %w", err)
		}
	}
	return nil
}
