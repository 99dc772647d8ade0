package habits

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/julianstephens/keeprun/internal/cli"
	"github.com/julianstephens/keeprun/internal/constants"
	"github.com/julianstephens/keeprun/internal/habit"
	"github.com/julianstephens/keeprun/internal/models"
)

var (
	doneCell     = cli.SuccessStyle.Render("■")
	missedCell   = cli.MutedStyle.Render("□")
	todayCell    = lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Bold(true).Render("◆")
	upcomingCell = cli.MutedStyle.Render("·")
)

// renderStrip draws one glyph per day of the habit window, wrapped weekly.
func renderStrip(days []habit.DayCell) string {
	var b strings.Builder
	for i, d := range days {
		if i > 0 && i%7 == 0 {
			b.WriteString("\n")
		} else if i > 0 {
			b.WriteString(" ")
		}
		switch d.State {
		case habit.DayDone:
			b.WriteString(doneCell)
		case habit.DayMissed:
			b.WriteString(missedCell)
		case habit.DayToday:
			b.WriteString(todayCell)
		default:
			b.WriteString(upcomingCell)
		}
	}
	return b.String()
}

func renderView(v habit.View) string {
	var b strings.Builder
	b.WriteString(cli.TitleStyle.Render(v.Habit.Title))
	b.WriteString(cli.MutedStyle.Render(fmt.Sprintf("  %s · since %s", v.Habit.Category, v.Habit.StartDate)))
	b.WriteString("\n\n")
	b.WriteString(renderStrip(v.Days))
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "Day %d · %d/%d completed", v.CurrentDay, v.CompletedDays, v.Habit.TargetDays)
	if v.TodayCompleted {
		b.WriteString("  " + cli.SuccessStyle.Render("today ✓"))
	} else {
		b.WriteString("  " + cli.WarnStyle.Render("today pending"))
	}
	if v.CanComplete {
		b.WriteString("\n" + cli.SuccessStyle.Render("Target reached. Run 'keeprun habit complete' to finish."))
	}
	return cli.BoxStyle.Render(b.String())
}

func renderStatus(s habit.Status) string {
	var parts []string
	if s.Reset != nil {
		parts = append(parts, renderReset(*s.Reset))
	}
	switch {
	case s.HasActiveHabit && s.View != nil:
		parts = append(parts, renderView(*s.View))
	case s.CanCreateNew:
		parts = append(parts, "No active habit. Start one with 'keeprun habit create'.")
	default:
		parts = append(parts, cli.WarnStyle.Render("No active habit, and the previous one is still locked."))
	}
	return strings.Join(parts, "\n\n")
}

func renderReset(r habit.ResetOutcome) string {
	return cli.WarnStyle.Render(fmt.Sprintf("%q was reset after %d completed day(s).", r.History.Title, r.History.CompletedDays)) +
		"\n" + r.Message
}

func renderHistory(history []models.HabitHistory) string {
	if len(history) == 0 {
		return "No finished habits yet."
	}
	var b strings.Builder
	b.WriteString(cli.TitleStyle.Render("Habit history"))
	b.WriteString("\n")
	for _, h := range history {
		status := cli.WarnStyle.Render(string(h.Status))
		if h.Status == constants.HabitStatusCompleted {
			status = cli.SuccessStyle.Render(string(h.Status))
		}
		fmt.Fprintf(&b, "\n  %s → %s  %-10s %2d/%-3d %s", h.StartDate, h.EndDate, status, h.CompletedDays, h.TotalDays, h.Title)
	}
	return b.String()
}
