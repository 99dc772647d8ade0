package habit

import (
	"time"

	"github.com/google/uuid"

	"github.com/julianstephens/keeprun/internal/constants"
	"github.com/julianstephens/keeprun/internal/models"
)

// Snapshot freezes a habit into its terminal history row.
func Snapshot(h models.Habit, completedDays int, status constants.HabitStatus, endDate string, at time.Time) models.HabitHistory {
	return models.HabitHistory{
		ID:            uuid.New().String(),
		UserID:        h.UserID,
		HabitID:       h.ID,
		Title:         h.Title,
		Category:      h.Category,
		StartDate:     h.StartDate,
		EndDate:       endDate,
		TotalDays:     h.TargetDays,
		CompletedDays: completedDays,
		Status:        status,
		CreatedAt:     at,
	}
}
