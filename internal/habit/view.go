package habit

import (
	"github.com/julianstephens/keeprun/internal/models"
	"github.com/julianstephens/keeprun/internal/utils"
)

// DayState describes one cell of the progress strip.
type DayState string

const (
	DayDone     DayState = "done"
	DayMissed   DayState = "missed"
	DayToday    DayState = "today"
	DayUpcoming DayState = "upcoming"
)

type DayCell struct {
	Day   int      `json:"day"`
	Date  string   `json:"date"`
	State DayState `json:"state"`
}

// View is the computed read model of an active habit.
type View struct {
	Habit          models.Habit `json:"habit"`
	Today          string       `json:"today"`
	CompletedDays  int          `json:"completed_days"`
	CurrentDay     int          `json:"current_day"`
	TodayCompleted bool         `json:"today_completed"`
	CanComplete    bool         `json:"can_complete"`
	Days           []DayCell    `json:"days"`
}

// BuildView derives the habit's progress as of the logical day today.
func BuildView(h models.Habit, records []models.HabitRecord, today string) (View, error) {
	elapsed, err := utils.DaysBetweenDays(h.StartDate, today)
	if err != nil {
		return View{}, err
	}

	done := completedSet(h, records)
	v := View{
		Habit:          h,
		Today:          today,
		CompletedDays:  len(done),
		CurrentDay:     max(elapsed+1, 1),
		TodayCompleted: done[today],
	}
	v.CanComplete = h.IsActive && v.CompletedDays >= h.TargetDays

	start, _ := utils.ParseDay(h.StartDate)
	v.Days = make([]DayCell, h.TargetDays)
	for i := range v.Days {
		date := utils.FormatDay(start.AddDate(0, 0, i))
		cell := DayCell{Day: i + 1, Date: date}
		switch {
		case done[date]:
			cell.State = DayDone
		case date == today:
			cell.State = DayToday
		case date < today:
			cell.State = DayMissed
		default:
			cell.State = DayUpcoming
		}
		v.Days[i] = cell
	}
	return v, nil
}
