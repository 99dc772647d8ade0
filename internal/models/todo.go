package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/julianstephens/keeprun/internal/constants"
)

// Todo is either a spot task bound to one date or a routine task that recurs
// on a set of weekdays.
type Todo struct {
	ID        string             `json:"id"`
	UserID    string             `json:"user_id"`
	Title     string             `json:"title"`
	Kind      constants.TodoKind `json:"kind"`
	Date      string             `json:"date,omitempty"`     // YYYY-MM-DD (spot tasks)
	Weekdays  []time.Weekday     `json:"weekdays,omitempty"` // routine tasks
	Completed bool               `json:"completed"`          // resolved for the requested day
	CreatedAt time.Time          `json:"created_at"`
	UpdatedAt time.Time          `json:"updated_at"`
	DeletedAt *time.Time         `json:"deleted_at,omitempty"`
}

func (t *Todo) Validate() error {
	if strings.TrimSpace(t.Title) == "" {
		return fmt.Errorf("todo title cannot be empty")
	}

	switch t.Kind {
	case constants.TodoKindSpot:
		if t.Date == "" {
			return fmt.Errorf("spot todos require a date")
		}
		if _, err := time.Parse(constants.DateFormat, t.Date); err != nil {
			return fmt.Errorf("invalid date format (expected YYYY-MM-DD): %w", err)
		}
	case constants.TodoKindRoutine:
		if len(t.Weekdays) == 0 {
			return fmt.Errorf("weekdays must be specified for routine todos")
		}
		for _, wd := range t.Weekdays {
			if wd < time.Sunday || wd > time.Saturday {
				return fmt.Errorf("invalid weekday: %d", wd)
			}
		}
	default:
		return fmt.Errorf("unknown todo kind %q", t.Kind)
	}

	return nil
}

// IsDueOn checks if the todo should appear on the given logical day.
func (t *Todo) IsDueOn(day string) bool {
	if t.DeletedAt != nil {
		return false
	}

	switch t.Kind {
	case constants.TodoKindSpot:
		return t.Date == day
	case constants.TodoKindRoutine:
		d, err := time.Parse(constants.DateFormat, day)
		if err != nil {
			return false
		}
		for _, wd := range t.Weekdays {
			if wd == d.Weekday() {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// FormatSchedule returns a human-readable string describing when the todo is due
func (t *Todo) FormatSchedule() string {
	if t.Kind == constants.TodoKindSpot {
		return fmt.Sprintf("Once on %s", t.Date)
	}
	if len(t.Weekdays) == 7 {
		return "Daily"
	}
	days := make([]string, len(t.Weekdays))
	for i, wd := range t.Weekdays {
		days[i] = wd.String()[:3]
	}
	return fmt.Sprintf("Weekly: %s", strings.Join(days, ", "))
}
