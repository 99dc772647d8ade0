package habit

import (
	"time"

	"github.com/julianstephens/keeprun/internal/constants"
	"github.com/julianstephens/keeprun/internal/models"
	"github.com/julianstephens/keeprun/internal/utils"
)

// ResetDecision is the outcome of evaluating the two-missed-days rule.
type ResetDecision struct {
	ShouldReset    bool
	DaysSinceStart int
	// Missed lists the checked days (yesterday, the day before) lacking a completed record.
	Missed []string
}

// EvaluateReset applies the reset rule: a habit resets once it is at least
// three days old and neither yesterday nor the day before was completed.
// A missing record counts as not completed. It has no side effects.
func EvaluateReset(h models.Habit, records []models.HabitRecord, today time.Time) ResetDecision {
	if !h.IsActive {
		return ResetDecision{}
	}
	start, err := utils.ParseDay(h.StartDate)
	if err != nil {
		return ResetDecision{}
	}

	today = utils.DateOnly(today)
	d := ResetDecision{DaysSinceStart: utils.DaysBetween(start, today)}
	if d.DaysSinceStart < constants.ResetGraceDays {
		return d
	}

	done := completedSet(h, records)
	for offset := 1; offset <= 2; offset++ {
		day := utils.FormatDay(today.AddDate(0, 0, -offset))
		if done[day] {
			return ResetDecision{DaysSinceStart: d.DaysSinceStart}
		}
		d.Missed = append(d.Missed, day)
	}
	d.ShouldReset = true
	return d
}

// completedSet returns the distinct completed days on or after the start date.
func completedSet(h models.Habit, records []models.HabitRecord) map[string]bool {
	done := make(map[string]bool, len(records))
	for _, r := range records {
		if r.Completed && r.Date >= h.StartDate {
			done[r.Date] = true
		}
	}
	return done
}

// CompletedDays counts distinct completed days on or after the start date.
func CompletedDays(h models.Habit, records []models.HabitRecord) int {
	return len(completedSet(h, records))
}
