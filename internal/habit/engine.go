package habit

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/julianstephens/keeprun/internal/constants"
	apperrors "github.com/julianstephens/keeprun/internal/errors"
	"github.com/julianstephens/keeprun/internal/logger"
	"github.com/julianstephens/keeprun/internal/models"
	"github.com/julianstephens/keeprun/internal/storage"
	"github.com/julianstephens/keeprun/internal/utils"
)

// Store is the persistence surface the engine needs.
type Store interface {
	storage.HabitQueries
	InTx(ctx context.Context, fn func(storage.Queries) error) error
}

// SettingsSource resolves a user's day-boundary preferences.
type SettingsSource interface {
	Get(ctx context.Context, userID string) (models.Settings, error)
}

// Recorder receives habit lifecycle events, typically for metrics.
type Recorder interface {
	HabitCreated(category constants.HabitCategory)
	HabitTerminated(status constants.HabitStatus)
	RecordWritten(completed bool)
}

type Options struct {
	Clock    utils.Clock
	Settings SettingsSource
	Recorder Recorder
	// ResetMessage picks the text shown after a reset. Defaults to RandomResetMessage.
	ResetMessage func() string
	// UnlockAfterAbandon lets an abandoned habit unlock creation of the next one.
	UnlockAfterAbandon bool
}

// Engine runs the habit continuity rules for every user.
type Engine struct {
	store Store
	opts  Options
}

func NewEngine(store Store, opts Options) *Engine {
	if opts.Clock == nil {
		opts.Clock = utils.SystemClock{}
	}
	if opts.Recorder == nil {
		opts.Recorder = nopRecorder{}
	}
	if opts.ResetMessage == nil {
		opts.ResetMessage = RandomResetMessage
	}
	return &Engine{store: store, opts: opts}
}

type CreateInput struct {
	Title      string                  `json:"title"`
	Category   constants.HabitCategory `json:"category"`
	TargetDays int                     `json:"target_days,omitempty"`
}

// Status is the read-path answer for the user's current habit.
type Status struct {
	HasActiveHabit bool          `json:"has_active_habit"`
	View           *View         `json:"view,omitempty"`
	CanCreateNew   bool          `json:"can_create_new"`
	Reset          *ResetOutcome `json:"reset,omitempty"`
}

// ResetOutcome reports an applied reset.
type ResetOutcome struct {
	History models.HabitHistory `json:"history"`
	Message string              `json:"message"`
}

type RecordResult struct {
	View    View   `json:"view"`
	Message string `json:"message,omitempty"`
}

// today returns the user's current logical day.
func (e *Engine) today(ctx context.Context, userID string) (string, error) {
	settings := models.Settings{UserID: userID}
	if e.opts.Settings != nil {
		s, err := e.opts.Settings.Get(ctx, userID)
		if err != nil {
			return "", err
		}
		settings = s
	}
	day, err := utils.TodayForSettings(e.opts.Clock, settings)
	if err != nil {
		return "", apperrors.Wrap(apperrors.KindValidation, err, "invalid day settings")
	}
	return day, nil
}

// CreateHabit starts a new active habit on today's logical date. An existing
// active habit is reported as a conflict before the input is validated.
func (e *Engine) CreateHabit(ctx context.Context, userID string, in CreateInput) (models.Habit, error) {
	if in.TargetDays == 0 {
		in.TargetDays = constants.DefaultTargetDays
	}

	today, err := e.today(ctx, userID)
	if err != nil {
		return models.Habit{}, err
	}

	now := e.opts.Clock.Now()
	h := models.Habit{
		ID:         uuid.New().String(),
		UserID:     userID,
		Title:      strings.TrimSpace(in.Title),
		Category:   in.Category,
		StartDate:  today,
		TargetDays: in.TargetDays,
		IsActive:   true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	err = e.store.InTx(ctx, func(q storage.Queries) error {
		if _, ok, err := q.GetActiveHabit(ctx, userID); err != nil {
			return err
		} else if ok {
			return apperrors.New(apperrors.KindConflict, "an active habit already exists")
		}

		if err := h.Validate(); err != nil {
			return apperrors.New(apperrors.KindValidation, "%s", err.Error())
		}

		latest, ok, err := q.GetLatestInactiveHabit(ctx, userID)
		if err != nil {
			return err
		}
		if ok {
			_, archived, err := q.GetHabitHistory(ctx, latest.ID)
			if err != nil {
				return err
			}
			if !archived {
				records, err := q.GetHabitRecords(ctx, latest.ID)
				if err != nil {
					return err
				}
				if CompletedDays(latest, records) < latest.TargetDays {
					return apperrors.New(apperrors.KindConflict, "the previous habit was neither completed nor reset")
				}
			}
		}

		return q.CreateHabit(ctx, h)
	})
	if err != nil {
		return models.Habit{}, err
	}

	logger.Info("Habit created", "user", userID, "habit", h.ID, "category", h.Category, "target_days", h.TargetDays)
	e.opts.Recorder.HabitCreated(h.Category)
	return h, nil
}

// RecordCompletion sets today's completion flag. Repeating the call on the
// same logical day overwrites the flag.
func (e *Engine) RecordCompletion(ctx context.Context, userID, habitID string, completed bool) (RecordResult, error) {
	today, err := e.today(ctx, userID)
	if err != nil {
		return RecordResult{}, err
	}

	h, err := e.store.GetHabit(ctx, userID, habitID)
	if err != nil {
		return RecordResult{}, err
	}
	if !h.IsActive {
		return RecordResult{}, apperrors.New(apperrors.KindConflict, "habit is no longer active")
	}

	now := e.opts.Clock.Now()
	record := models.HabitRecord{
		HabitID:   h.ID,
		Date:      today,
		Completed: completed,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := e.store.UpsertHabitRecord(ctx, record); err != nil {
		return RecordResult{}, err
	}
	e.opts.Recorder.RecordWritten(completed)

	records, err := e.store.GetHabitRecords(ctx, h.ID)
	if err != nil {
		return RecordResult{}, err
	}
	view, err := BuildView(h, records, today)
	if err != nil {
		return RecordResult{}, apperrors.Wrap(apperrors.KindStorage, err, "corrupt habit start date")
	}

	result := RecordResult{View: view}
	if completed {
		if msg, ok := MessageForDay(view.CurrentDay); ok {
			result.Message = msg
		}
	}
	logger.Debug("Habit record written", "habit", h.ID, "date", today, "completed", completed)
	return result, nil
}

// ApplyReset abandons the active habit: it archives the progress, deletes all
// records and deactivates the habit as one atomic unit.
func (e *Engine) ApplyReset(ctx context.Context, userID, habitID string) (ResetOutcome, error) {
	today, err := e.today(ctx, userID)
	if err != nil {
		return ResetOutcome{}, err
	}

	var hist models.HabitHistory
	err = e.store.InTx(ctx, func(q storage.Queries) error {
		h, err := q.GetHabit(ctx, userID, habitID)
		if err != nil {
			return err
		}
		if !h.IsActive {
			return apperrors.New(apperrors.KindConflict, "habit is no longer active")
		}
		records, err := q.GetHabitRecords(ctx, h.ID)
		if err != nil {
			return err
		}

		now := e.opts.Clock.Now()
		hist = Snapshot(h, CompletedDays(h, records), constants.HabitStatusAbandoned, today, now)
		if err := q.AddHabitHistory(ctx, hist); err != nil {
			return err
		}
		if _, err := q.DeleteHabitRecords(ctx, h.ID); err != nil {
			return err
		}
		h.IsActive = false
		h.UpdatedAt = now
		return q.UpdateHabit(ctx, h)
	})
	if err != nil {
		return ResetOutcome{}, err
	}

	logger.Info("Habit reset", "user", userID, "habit", habitID, "completed_days", hist.CompletedDays)
	e.opts.Recorder.HabitTerminated(constants.HabitStatusAbandoned)
	return ResetOutcome{History: hist, Message: e.opts.ResetMessage()}, nil
}

// CompleteHabit finishes a habit that reached its target. Records stay in
// place as the habit's archive.
func (e *Engine) CompleteHabit(ctx context.Context, userID, habitID string) (models.HabitHistory, error) {
	today, err := e.today(ctx, userID)
	if err != nil {
		return models.HabitHistory{}, err
	}

	var hist models.HabitHistory
	err = e.store.InTx(ctx, func(q storage.Queries) error {
		h, err := q.GetHabit(ctx, userID, habitID)
		if err != nil {
			return err
		}
		if !h.IsActive {
			return apperrors.New(apperrors.KindConflict, "habit is no longer active")
		}
		records, err := q.GetHabitRecords(ctx, h.ID)
		if err != nil {
			return err
		}
		completed := CompletedDays(h, records)
		if completed < h.TargetDays {
			return apperrors.New(apperrors.KindNotEligible, "habit needs %d completed days, has %d", h.TargetDays, completed)
		}

		now := e.opts.Clock.Now()
		hist = Snapshot(h, completed, constants.HabitStatusCompleted, today, now)
		if err := q.AddHabitHistory(ctx, hist); err != nil {
			return err
		}
		h.IsActive = false
		h.UpdatedAt = now
		return q.UpdateHabit(ctx, h)
	})
	if err != nil {
		return models.HabitHistory{}, err
	}

	logger.Info("Habit completed", "user", userID, "habit", habitID, "completed_days", hist.CompletedDays)
	e.opts.Recorder.HabitTerminated(constants.HabitStatusCompleted)
	return hist, nil
}

// CanCreateNew reports whether the user may start a new habit: there is no
// active habit and the latest one either reached its target or never existed.
func (e *Engine) CanCreateNew(ctx context.Context, userID string) (bool, error) {
	if _, ok, err := e.store.GetActiveHabit(ctx, userID); err != nil {
		return false, err
	} else if ok {
		return false, nil
	}
	return e.unlocked(ctx, e.store, userID)
}

func (e *Engine) unlocked(ctx context.Context, q storage.HabitQueries, userID string) (bool, error) {
	latest, ok, err := q.GetLatestInactiveHabit(ctx, userID)
	if err != nil {
		return false, err
	}
	if !ok {
		return true, nil
	}

	// Records of a reset habit are gone, so prefer the archived count
	hist, archived, err := q.GetHabitHistory(ctx, latest.ID)
	if err != nil {
		return false, err
	}
	var completed int
	if archived {
		completed = hist.CompletedDays
	} else {
		records, err := q.GetHabitRecords(ctx, latest.ID)
		if err != nil {
			return false, err
		}
		completed = CompletedDays(latest, records)
	}

	if completed >= latest.TargetDays {
		return true, nil
	}
	return archived && hist.Status == constants.HabitStatusAbandoned && e.opts.UnlockAfterAbandon, nil
}

// Current is the read path. A due reset is applied before answering.
func (e *Engine) Current(ctx context.Context, userID string) (Status, error) {
	today, err := e.today(ctx, userID)
	if err != nil {
		return Status{}, err
	}

	h, ok, err := e.store.GetActiveHabit(ctx, userID)
	if err != nil {
		return Status{}, err
	}
	if !ok {
		can, err := e.unlocked(ctx, e.store, userID)
		if err != nil {
			return Status{}, err
		}
		return Status{CanCreateNew: can}, nil
	}

	records, err := e.store.GetHabitRecords(ctx, h.ID)
	if err != nil {
		return Status{}, err
	}

	todayDate, err := utils.ParseDay(today)
	if err != nil {
		return Status{}, err
	}
	if decision := EvaluateReset(h, records, todayDate); decision.ShouldReset {
		logger.Info("Reset rule triggered", "user", userID, "habit", h.ID, "missed", decision.Missed)
		outcome, err := e.ApplyReset(ctx, userID, h.ID)
		if err != nil {
			return Status{}, err
		}
		can, err := e.unlocked(ctx, e.store, userID)
		if err != nil {
			return Status{}, err
		}
		return Status{CanCreateNew: can, Reset: &outcome}, nil
	}

	view, err := BuildView(h, records, today)
	if err != nil {
		return Status{}, apperrors.Wrap(apperrors.KindStorage, err, "corrupt habit start date")
	}
	return Status{HasActiveHabit: true, View: &view}, nil
}

// History returns the user's terminal snapshots, newest first.
func (e *Engine) History(ctx context.Context, userID string) ([]models.HabitHistory, error) {
	return e.store.ListHabitHistory(ctx, userID)
}

type nopRecorder struct{}

func (nopRecorder) HabitCreated(constants.HabitCategory)  {}
func (nopRecorder) HabitTerminated(constants.HabitStatus) {}
func (nopRecorder) RecordWritten(bool)                    {}
