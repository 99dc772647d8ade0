package habit

import (
	"testing"
	"time"

	"github.com/julianstephens/keeprun/internal/constants"
	"github.com/julianstephens/keeprun/internal/models"
)

func TestSnapshot(t *testing.T) {
	h := models.Habit{
		ID: "h1", UserID: "u1", Title: "Run", Category: constants.CategoryExercise,
		StartDate: "2024-03-01", TargetDays: 14, IsActive: true,
	}
	at := time.Date(2024, 3, 6, 8, 0, 0, 0, time.UTC)

	got := Snapshot(h, 3, constants.HabitStatusAbandoned, "2024-03-06", at)
	if got.ID == "" || got.ID == h.ID {
		t.Errorf("snapshot should get its own id, got %q", got.ID)
	}
	if got.HabitID != "h1" || got.UserID != "u1" || got.Title != "Run" || got.Category != constants.CategoryExercise {
		t.Errorf("habit fields not copied: %+v", got)
	}
	if got.StartDate != "2024-03-01" || got.EndDate != "2024-03-06" {
		t.Errorf("dates = %s..%s", got.StartDate, got.EndDate)
	}
	if got.TotalDays != 14 || got.CompletedDays != 3 || got.Status != constants.HabitStatusAbandoned {
		t.Errorf("counts = %+v", got)
	}
	if !got.CreatedAt.Equal(at) {
		t.Errorf("CreatedAt = %v", got.CreatedAt)
	}
}
