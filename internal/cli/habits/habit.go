package habits

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/huh"

	"github.com/julianstephens/keeprun/internal/cli"
	"github.com/julianstephens/keeprun/internal/config"
	"github.com/julianstephens/keeprun/internal/constants"
	apperrors "github.com/julianstephens/keeprun/internal/errors"
	"github.com/julianstephens/keeprun/internal/habit"
)

type HabitCmd struct {
	Status   HabitStatusCmd   `cmd:"" help:"Show the active habit." default:"1"`
	Create   HabitCreateCmd   `cmd:"" help:"Start a new habit."`
	Check    HabitCheckCmd    `cmd:"" help:"Mark today as done."`
	Uncheck  HabitUncheckCmd  `cmd:"" help:"Clear today's mark."`
	Complete HabitCompleteCmd `cmd:"" help:"Finish a habit that reached its target."`
	Reset    HabitResetCmd    `cmd:"" help:"Abandon the active habit."`
	History  HabitHistoryCmd  `cmd:"" help:"List finished habits."`
}

// engine prepares the local user and an engine honoring the config file.
func engine(ctx context.Context, c *cli.Context) (*habit.Engine, error) {
	cfg, err := config.Load(c.ConfigPath)
	if err != nil {
		return nil, err
	}
	if err := c.EnsureUser(ctx); err != nil {
		return nil, err
	}
	return c.Engine(cfg.Habits.UnlockAfterAbandon), nil
}

// activeHabitID returns the active habit, applying a due reset first.
func activeHabitID(ctx context.Context, c *cli.Context, e *habit.Engine) (string, error) {
	status, err := e.Current(ctx, c.UserID)
	if err != nil {
		return "", err
	}
	if status.Reset != nil {
		c.Println(renderReset(*status.Reset))
	}
	if !status.HasActiveHabit || status.View == nil {
		return "", apperrors.New(apperrors.KindNotFound, "no active habit")
	}
	return status.View.Habit.ID, nil
}

type HabitStatusCmd struct{}

func (cmd *HabitStatusCmd) Run(c *cli.Context) error {
	ctx := context.Background()
	e, err := engine(ctx, c)
	if err != nil {
		return err
	}
	status, err := e.Current(ctx, c.UserID)
	if err != nil {
		return err
	}
	c.Println(renderStatus(status))
	return nil
}

type HabitCreateCmd struct {
	Title      string `help:"Habit title (prompted when empty)."`
	Category   string `help:"One of exercise, health, learning, other."`
	TargetDays int    `help:"Days needed to complete the habit." default:"14"`
}

// habitForm mirrors HabitCreateCmd for interactive input.
type habitForm struct {
	Title      string
	Category   constants.HabitCategory
	TargetDays string
}

func newHabitForm(fm *habitForm) *huh.Form {
	options := make([]huh.Option[constants.HabitCategory], 0, len(constants.HabitCategories))
	for _, cat := range constants.HabitCategories {
		options = append(options, huh.NewOption(strings.ToUpper(string(cat[:1]))+string(cat[1:]), cat))
	}
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Habit").
				Value(&fm.Title).
				Validate(validateTitle),
			huh.NewSelect[constants.HabitCategory]().
				Title("Category").
				Options(options...).
				Value(&fm.Category),
			huh.NewInput().
				Title("Target days").
				Value(&fm.TargetDays).
				Validate(func(s string) error {
					n, err := strconv.Atoi(strings.TrimSpace(s))
					if err != nil {
						return err
					}
					if n < 1 || n > constants.MaxTargetDays {
						return fmt.Errorf("target must be between 1 and %d days", constants.MaxTargetDays)
					}
					return nil
				}),
		),
	).WithTheme(huh.ThemeDracula())
}

func validateTitle(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return fmt.Errorf("habit title cannot be empty")
	}
	if utf8.RuneCountInString(s) > constants.MaxHabitTitleLength {
		return fmt.Errorf("habit title must be at most %d characters", constants.MaxHabitTitleLength)
	}
	return nil
}

func (cmd *HabitCreateCmd) input() (habit.CreateInput, error) {
	in := habit.CreateInput{
		Title:      cmd.Title,
		Category:   constants.HabitCategory(cmd.Category),
		TargetDays: cmd.TargetDays,
	}
	if cmd.Title != "" && cmd.Category != "" {
		return in, nil
	}

	fm := &habitForm{
		Title:      cmd.Title,
		Category:   constants.HabitCategory(cmd.Category),
		TargetDays: strconv.Itoa(cmd.TargetDays),
	}
	if fm.Category == "" {
		fm.Category = constants.CategoryOther
	}
	if err := newHabitForm(fm).Run(); err != nil {
		return habit.CreateInput{}, err
	}
	target, err := strconv.Atoi(strings.TrimSpace(fm.TargetDays))
	if err != nil {
		return habit.CreateInput{}, err
	}
	return habit.CreateInput{Title: fm.Title, Category: fm.Category, TargetDays: target}, nil
}

func (cmd *HabitCreateCmd) Run(c *cli.Context) error {
	ctx := context.Background()
	e, err := engine(ctx, c)
	if err != nil {
		return err
	}

	// Apply a due reset before asking for input
	status, err := e.Current(ctx, c.UserID)
	if err != nil {
		return err
	}
	if status.Reset != nil {
		c.Println(renderReset(*status.Reset))
	}
	if status.HasActiveHabit {
		return apperrors.New(apperrors.KindConflict, "an active habit already exists")
	}

	in, err := cmd.input()
	if err != nil {
		return err
	}
	h, err := e.CreateHabit(ctx, c.UserID, in)
	if err != nil {
		return err
	}
	c.Printf("Started %q (%s), target %d days from %s\n", h.Title, h.Category, h.TargetDays, h.StartDate)
	return nil
}

type HabitCheckCmd struct{}

func (cmd *HabitCheckCmd) Run(c *cli.Context) error {
	return record(c, true)
}

type HabitUncheckCmd struct{}

func (cmd *HabitUncheckCmd) Run(c *cli.Context) error {
	return record(c, false)
}

func record(c *cli.Context, completed bool) error {
	ctx := context.Background()
	e, err := engine(ctx, c)
	if err != nil {
		return err
	}
	id, err := activeHabitID(ctx, c, e)
	if err != nil {
		return err
	}
	res, err := e.RecordCompletion(ctx, c.UserID, id, completed)
	if err != nil {
		return err
	}
	c.Println(renderView(res.View))
	if res.Message != "" {
		c.Println(res.Message)
	}
	return nil
}

type HabitCompleteCmd struct{}

func (cmd *HabitCompleteCmd) Run(c *cli.Context) error {
	ctx := context.Background()
	e, err := engine(ctx, c)
	if err != nil {
		return err
	}
	id, err := activeHabitID(ctx, c, e)
	if err != nil {
		return err
	}
	hist, err := e.CompleteHabit(ctx, c.UserID, id)
	if err != nil {
		return err
	}
	c.PerformAutomaticBackup(ctx)
	c.Println(cli.SuccessStyle.Render(fmt.Sprintf("Completed %q with %d days.", hist.Title, hist.CompletedDays)))
	return nil
}

type HabitResetCmd struct {
	Yes bool `short:"y" help:"Skip the confirmation prompt."`
}

func (cmd *HabitResetCmd) Run(c *cli.Context) error {
	ctx := context.Background()
	e, err := engine(ctx, c)
	if err != nil {
		return err
	}
	id, err := activeHabitID(ctx, c, e)
	if err != nil {
		return err
	}

	if !cmd.Yes {
		confirmed := false
		err := huh.NewConfirm().
			Title("Reset the active habit?").
			Description("Progress is archived and all daily records are deleted.").
			Value(&confirmed).
			Run()
		if err != nil {
			return err
		}
		if !confirmed {
			c.Println("Reset cancelled.")
			return nil
		}
	}

	out, err := e.ApplyReset(ctx, c.UserID, id)
	if err != nil {
		return err
	}
	c.Println(renderReset(out))
	return nil
}

type HabitHistoryCmd struct{}

func (cmd *HabitHistoryCmd) Run(c *cli.Context) error {
	ctx := context.Background()
	e, err := engine(ctx, c)
	if err != nil {
		return err
	}
	history, err := e.History(ctx, c.UserID)
	if err != nil {
		return err
	}
	c.Println(renderHistory(history))
	return nil
}
