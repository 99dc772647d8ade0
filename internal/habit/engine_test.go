package habit

import (
	"context"
	"errors"
	"math/rand/v2"
	"path/filepath"
	"testing"
	"time"

	"github.com/julianstephens/keeprun/internal/constants"
	apperrors "github.com/julianstephens/keeprun/internal/errors"
	"github.com/julianstephens/keeprun/internal/models"
	"github.com/julianstephens/keeprun/internal/storage"
	"github.com/julianstephens/keeprun/internal/storage/sqlite"
	"github.com/julianstephens/keeprun/internal/utils"
)

const testUser = "user-1"

type staticSettings models.Settings

func (s staticSettings) Get(_ context.Context, userID string) (models.Settings, error) {
	out := models.Settings(s)
	out.UserID = userID
	return out, nil
}

type countingRecorder struct {
	created    int
	terminated map[constants.HabitStatus]int
	records    int
}

func (r *countingRecorder) HabitCreated(constants.HabitCategory) { r.created++ }
func (r *countingRecorder) HabitTerminated(s constants.HabitStatus) {
	if r.terminated == nil {
		r.terminated = map[constants.HabitStatus]int{}
	}
	r.terminated[s]++
}
func (r *countingRecorder) RecordWritten(bool) { r.records++ }

type testEnv struct {
	engine   *Engine
	store    *sqlite.Store
	clock    *utils.FixedClock
	recorder *countingRecorder
}

// at returns noon UTC on the given day.
func at(day string) time.Time {
	d, err := time.Parse(constants.DateFormat, day)
	if err != nil {
		panic(err)
	}
	return d.Add(12 * time.Hour)
}

func setupEngine(t *testing.T, opts Options) *testEnv {
	t.Helper()
	store := sqlite.NewStore(filepath.Join(t.TempDir(), "test.db"))
	if err := store.Init(); err != nil {
		t.Fatalf("failed to init store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	for _, id := range []string{testUser, "user-2"} {
		if _, err := store.EnsureUser(context.Background(), id, ""); err != nil {
			t.Fatalf("EnsureUser() failed: %v", err)
		}
	}

	env := &testEnv{store: store, clock: utils.NewFixedClock(at("2024-03-01")), recorder: &countingRecorder{}}
	opts.Clock = env.clock
	opts.Settings = staticSettings{DayStartTime: "05:00", Timezone: "UTC"}
	opts.Recorder = env.recorder
	if opts.ResetMessage == nil {
		opts.ResetMessage = NewResetMessenger(rand.NewPCG(1, 2)).Pick
	}
	env.engine = NewEngine(store, opts)
	return env
}

func (env *testEnv) create(t *testing.T) models.Habit {
	t.Helper()
	h, err := env.engine.CreateHabit(context.Background(), testUser, CreateInput{Title: "Morning run", Category: constants.CategoryExercise})
	if err != nil {
		t.Fatalf("CreateHabit() failed: %v", err)
	}
	return h
}

// checkDays records completions on consecutive days starting at the habit's
// start date, leaving the clock on the last day.
func (env *testEnv) checkDays(t *testing.T, h models.Habit, n int) {
	t.Helper()
	start := at(h.StartDate)
	for i := 0; i < n; i++ {
		env.clock.Set(start.AddDate(0, 0, i))
		if _, err := env.engine.RecordCompletion(context.Background(), testUser, h.ID, true); err != nil {
			t.Fatalf("RecordCompletion() day %d failed: %v", i+1, err)
		}
	}
}

func TestCreateHabit(t *testing.T) {
	env := setupEngine(t, Options{})
	ctx := context.Background()

	h := env.create(t)
	if h.StartDate != "2024-03-01" {
		t.Errorf("StartDate = %q, want 2024-03-01", h.StartDate)
	}
	if h.TargetDays != constants.DefaultTargetDays || !h.IsActive {
		t.Errorf("unexpected habit %+v", h)
	}
	if env.recorder.created != 1 {
		t.Errorf("recorder saw %d creations", env.recorder.created)
	}

	stored, err := env.store.GetHabit(ctx, testUser, h.ID)
	if err != nil {
		t.Fatalf("GetHabit() failed: %v", err)
	}
	if stored.Title != "Morning run" {
		t.Errorf("stored title = %q", stored.Title)
	}
}

func TestCreateHabitUsesLogicalDate(t *testing.T) {
	env := setupEngine(t, Options{})
	env.clock.Set(time.Date(2024, 3, 10, 4, 59, 0, 0, time.UTC))

	h := env.create(t)
	if h.StartDate != "2024-03-09" {
		t.Errorf("StartDate = %q, want 2024-03-09", h.StartDate)
	}
}

func TestCreateHabitValidation(t *testing.T) {
	tests := []struct {
		name string
		in   CreateInput
	}{
		{name: "empty title", in: CreateInput{Title: "  ", Category: constants.CategoryHealth}},
		{name: "title too long", in: CreateInput{Title: "this title is definitely going to be longer than fifty characters", Category: constants.CategoryHealth}},
		{name: "missing category", in: CreateInput{Title: "Read"}},
		{name: "unknown category", in: CreateInput{Title: "Read", Category: "hobby"}},
		{name: "target too large", in: CreateInput{Title: "Read", Category: constants.CategoryLearning, TargetDays: 400}},
		{name: "negative target", in: CreateInput{Title: "Read", Category: constants.CategoryLearning, TargetDays: -1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := setupEngine(t, Options{})
			_, err := env.engine.CreateHabit(context.Background(), testUser, tt.in)
			if !apperrors.IsKind(err, apperrors.KindValidation) {
				t.Errorf("CreateHabit() error = %v, want validation error", err)
			}
		})
	}
}

func TestCreateHabitConflictWhenActive(t *testing.T) {
	env := setupEngine(t, Options{})
	env.create(t)

	inputs := []CreateInput{
		{Title: "Second", Category: constants.CategoryOther},
		{Title: "", Category: ""},
	}
	for _, in := range inputs {
		_, err := env.engine.CreateHabit(context.Background(), testUser, in)
		if !apperrors.IsKind(err, apperrors.KindConflict) {
			t.Errorf("CreateHabit(%+v) error = %v, want conflict", in, err)
		}
	}
}

func TestCreateHabitBlockedByUnfinishedHabit(t *testing.T) {
	env := setupEngine(t, Options{})
	ctx := context.Background()
	h := env.create(t)
	env.checkDays(t, h, 3)

	// Deactivated without an archive row and short of its target
	h.IsActive = false
	if err := env.store.UpdateHabit(ctx, h); err != nil {
		t.Fatalf("UpdateHabit() failed: %v", err)
	}

	_, err := env.engine.CreateHabit(ctx, testUser, CreateInput{Title: "Next", Category: constants.CategoryOther})
	if !apperrors.IsKind(err, apperrors.KindConflict) {
		t.Errorf("CreateHabit() error = %v, want conflict", err)
	}
}

func TestCreateHabitAfterAbandon(t *testing.T) {
	env := setupEngine(t, Options{})
	ctx := context.Background()
	h := env.create(t)

	if _, err := env.engine.ApplyReset(ctx, testUser, h.ID); err != nil {
		t.Fatalf("ApplyReset() failed: %v", err)
	}
	if _, err := env.engine.CreateHabit(ctx, testUser, CreateInput{Title: "Again", Category: constants.CategoryExercise}); err != nil {
		t.Errorf("CreateHabit() after explicit reset failed: %v", err)
	}
}

func TestRecordCompletionIdempotent(t *testing.T) {
	env := setupEngine(t, Options{})
	ctx := context.Background()
	h := env.create(t)

	first, err := env.engine.RecordCompletion(ctx, testUser, h.ID, true)
	if err != nil {
		t.Fatalf("RecordCompletion() failed: %v", err)
	}
	second, err := env.engine.RecordCompletion(ctx, testUser, h.ID, true)
	if err != nil {
		t.Fatalf("RecordCompletion() failed: %v", err)
	}
	if first.View.CompletedDays != 1 || second.View.CompletedDays != 1 {
		t.Errorf("completed days = %d then %d, want 1 and 1", first.View.CompletedDays, second.View.CompletedDays)
	}
	if !second.View.TodayCompleted {
		t.Error("TodayCompleted should be true")
	}

	records, err := env.store.GetHabitRecords(ctx, h.ID)
	if err != nil {
		t.Fatalf("GetHabitRecords() failed: %v", err)
	}
	if len(records) != 1 {
		t.Errorf("expected one record, got %d", len(records))
	}

	undone, err := env.engine.RecordCompletion(ctx, testUser, h.ID, false)
	if err != nil {
		t.Fatalf("RecordCompletion(false) failed: %v", err)
	}
	if undone.View.CompletedDays != 0 || undone.Message != "" {
		t.Errorf("after uncheck: completed=%d message=%q", undone.View.CompletedDays, undone.Message)
	}
}

func TestRecordCompletionMessages(t *testing.T) {
	env := setupEngine(t, Options{})
	ctx := context.Background()
	h, err := env.engine.CreateHabit(ctx, testUser, CreateInput{Title: "Long one", Category: constants.CategoryLearning, TargetDays: 20})
	if err != nil {
		t.Fatalf("CreateHabit() failed: %v", err)
	}

	start := at(h.StartDate)
	for day := 1; day <= 16; day++ {
		env.clock.Set(start.AddDate(0, 0, day-1))
		res, err := env.engine.RecordCompletion(ctx, testUser, h.ID, true)
		if err != nil {
			t.Fatalf("RecordCompletion() day %d failed: %v", day, err)
		}
		if res.View.CurrentDay != day {
			t.Errorf("CurrentDay = %d, want %d", res.View.CurrentDay, day)
		}
		want, _ := MessageForDay(day)
		if res.Message != want {
			t.Errorf("day %d message = %q, want %q", day, res.Message, want)
		}
	}
}

func TestRecordCompletionErrors(t *testing.T) {
	env := setupEngine(t, Options{})
	ctx := context.Background()
	h := env.create(t)

	if _, err := env.engine.RecordCompletion(ctx, "user-2", h.ID, true); !apperrors.IsKind(err, apperrors.KindNotFound) {
		t.Errorf("other user's habit: error = %v, want not found", err)
	}
	if _, err := env.engine.RecordCompletion(ctx, testUser, "missing", true); !apperrors.IsKind(err, apperrors.KindNotFound) {
		t.Errorf("missing habit: error = %v, want not found", err)
	}

	if _, err := env.engine.ApplyReset(ctx, testUser, h.ID); err != nil {
		t.Fatalf("ApplyReset() failed: %v", err)
	}
	if _, err := env.engine.RecordCompletion(ctx, testUser, h.ID, true); !apperrors.IsKind(err, apperrors.KindConflict) {
		t.Errorf("inactive habit: error = %v, want conflict", err)
	}
}

func TestCompletedDaysExcludePreStartRecords(t *testing.T) {
	env := setupEngine(t, Options{})
	ctx := context.Background()
	h := env.create(t)

	now := env.clock.Now()
	for _, day := range []string{"2024-02-27", "2024-02-29"} {
		if err := env.store.UpsertHabitRecord(ctx, models.HabitRecord{HabitID: h.ID, Date: day, Completed: true, CreatedAt: now, UpdatedAt: now}); err != nil {
			t.Fatalf("UpsertHabitRecord() failed: %v", err)
		}
	}

	res, err := env.engine.RecordCompletion(ctx, testUser, h.ID, true)
	if err != nil {
		t.Fatalf("RecordCompletion() failed: %v", err)
	}
	if res.View.CompletedDays != 1 {
		t.Errorf("CompletedDays = %d, want 1", res.View.CompletedDays)
	}
}

func TestCurrentAppliesReset(t *testing.T) {
	env := setupEngine(t, Options{})
	ctx := context.Background()
	h := env.create(t)

	// Days 1 and 2 completed, days 3 and 4 missed, today is day 5
	env.checkDays(t, h, 2)
	env.clock.Set(at("2024-03-05"))

	status, err := env.engine.Current(ctx, testUser)
	if err != nil {
		t.Fatalf("Current() failed: %v", err)
	}
	if status.HasActiveHabit || status.Reset == nil {
		t.Fatalf("expected a reset status, got %+v", status)
	}
	if status.Reset.History.Status != constants.HabitStatusAbandoned || status.Reset.History.CompletedDays != 2 {
		t.Errorf("history = %+v", status.Reset.History)
	}
	if status.Reset.Message == "" {
		t.Error("reset message should not be empty")
	}
	if status.CanCreateNew {
		t.Error("abandoned habit below target should not unlock creation by default")
	}

	history, err := env.engine.History(ctx, testUser)
	if err != nil {
		t.Fatalf("History() failed: %v", err)
	}
	if len(history) != 1 {
		t.Errorf("expected exactly one history row, got %d", len(history))
	}

	records, err := env.store.GetHabitRecords(ctx, h.ID)
	if err != nil {
		t.Fatalf("GetHabitRecords() failed: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("expected records to be deleted, got %d", len(records))
	}

	stored, err := env.store.GetHabit(ctx, testUser, h.ID)
	if err != nil {
		t.Fatalf("GetHabit() failed: %v", err)
	}
	if stored.IsActive {
		t.Error("habit should be inactive after reset")
	}

	// A second read does not reset again
	again, err := env.engine.Current(ctx, testUser)
	if err != nil {
		t.Fatalf("Current() failed: %v", err)
	}
	if again.Reset != nil || again.HasActiveHabit {
		t.Errorf("second read = %+v", again)
	}
	if env.recorder.terminated[constants.HabitStatusAbandoned] != 1 {
		t.Errorf("recorder saw %d resets", env.recorder.terminated[constants.HabitStatusAbandoned])
	}
}

func TestCurrentKeepsHabitWithinGrace(t *testing.T) {
	env := setupEngine(t, Options{})
	ctx := context.Background()
	h := env.create(t)

	// Nothing recorded, but only two days since start
	env.clock.Set(at("2024-03-03"))
	status, err := env.engine.Current(ctx, testUser)
	if err != nil {
		t.Fatalf("Current() failed: %v", err)
	}
	if !status.HasActiveHabit || status.View == nil {
		t.Fatalf("expected active habit, got %+v", status)
	}
	if status.View.Habit.ID != h.ID || status.View.CurrentDay != 3 {
		t.Errorf("view = %+v", status.View)
	}
	if status.View.Days[0].State != DayMissed || status.View.Days[2].State != DayToday || status.View.Days[3].State != DayUpcoming {
		t.Errorf("unexpected day strip %+v", status.View.Days[:4])
	}
}

func TestCompleteHabitGating(t *testing.T) {
	env := setupEngine(t, Options{})
	ctx := context.Background()
	h := env.create(t)
	env.checkDays(t, h, 13)

	_, err := env.engine.CompleteHabit(ctx, testUser, h.ID)
	if !apperrors.IsKind(err, apperrors.KindNotEligible) {
		t.Fatalf("CompleteHabit() error = %v, want not eligible", err)
	}

	stored, err := env.store.GetHabit(ctx, testUser, h.ID)
	if err != nil {
		t.Fatalf("GetHabit() failed: %v", err)
	}
	if !stored.IsActive {
		t.Error("habit should remain active")
	}
	records, _ := env.store.GetHabitRecords(ctx, h.ID)
	if len(records) != 13 {
		t.Errorf("records = %d, want 13", len(records))
	}
	if _, ok, _ := env.store.GetHabitHistory(ctx, h.ID); ok {
		t.Error("no history should be written")
	}

	env.clock.Set(at(h.StartDate).AddDate(0, 0, 13))
	res, err := env.engine.RecordCompletion(ctx, testUser, h.ID, true)
	if err != nil {
		t.Fatalf("RecordCompletion() failed: %v", err)
	}
	if !res.View.CanComplete {
		t.Error("CanComplete should be true at 14 completed days")
	}

	hist, err := env.engine.CompleteHabit(ctx, testUser, h.ID)
	if err != nil {
		t.Fatalf("CompleteHabit() failed: %v", err)
	}
	if hist.Status != constants.HabitStatusCompleted || hist.CompletedDays != 14 || hist.TotalDays != 14 {
		t.Errorf("history = %+v", hist)
	}

	records, _ = env.store.GetHabitRecords(ctx, h.ID)
	if len(records) != 14 {
		t.Errorf("records should be kept on completion, got %d", len(records))
	}

	if _, err := env.engine.CompleteHabit(ctx, testUser, h.ID); !apperrors.IsKind(err, apperrors.KindConflict) {
		t.Errorf("completing twice: error = %v, want conflict", err)
	}
}

func TestCompleteHabitUsesTargetDays(t *testing.T) {
	env := setupEngine(t, Options{})
	ctx := context.Background()
	h, err := env.engine.CreateHabit(ctx, testUser, CreateInput{Title: "Week", Category: constants.CategoryHealth, TargetDays: 7})
	if err != nil {
		t.Fatalf("CreateHabit() failed: %v", err)
	}
	env.checkDays(t, h, 7)

	if _, err := env.engine.CompleteHabit(ctx, testUser, h.ID); err != nil {
		t.Errorf("CompleteHabit() at 7/7 failed: %v", err)
	}
}

func TestCanCreateNew(t *testing.T) {
	ctx := context.Background()

	t.Run("fresh user", func(t *testing.T) {
		env := setupEngine(t, Options{})
		can, err := env.engine.CanCreateNew(ctx, testUser)
		if err != nil || !can {
			t.Errorf("CanCreateNew() = %v, %v; want true", can, err)
		}
	})

	t.Run("active habit", func(t *testing.T) {
		env := setupEngine(t, Options{})
		env.create(t)
		can, err := env.engine.CanCreateNew(ctx, testUser)
		if err != nil || can {
			t.Errorf("CanCreateNew() = %v, %v; want false", can, err)
		}
	})

	t.Run("completed habit", func(t *testing.T) {
		env := setupEngine(t, Options{})
		h := env.create(t)
		env.checkDays(t, h, 14)
		if _, err := env.engine.CompleteHabit(ctx, testUser, h.ID); err != nil {
			t.Fatalf("CompleteHabit() failed: %v", err)
		}
		can, err := env.engine.CanCreateNew(ctx, testUser)
		if err != nil || !can {
			t.Errorf("CanCreateNew() = %v, %v; want true", can, err)
		}
	})

	t.Run("abandoned below target", func(t *testing.T) {
		env := setupEngine(t, Options{})
		h := env.create(t)
		env.checkDays(t, h, 5)
		if _, err := env.engine.ApplyReset(ctx, testUser, h.ID); err != nil {
			t.Fatalf("ApplyReset() failed: %v", err)
		}
		can, err := env.engine.CanCreateNew(ctx, testUser)
		if err != nil || can {
			t.Errorf("CanCreateNew() = %v, %v; want false", can, err)
		}
	})

	t.Run("abandoned with unlock option", func(t *testing.T) {
		env := setupEngine(t, Options{UnlockAfterAbandon: true})
		h := env.create(t)
		if _, err := env.engine.ApplyReset(ctx, testUser, h.ID); err != nil {
			t.Fatalf("ApplyReset() failed: %v", err)
		}
		can, err := env.engine.CanCreateNew(ctx, testUser)
		if err != nil || !can {
			t.Errorf("CanCreateNew() = %v, %v; want true", can, err)
		}
	})
}

// failingDeleteQueries breaks the record deletion step of a reset.
type failingDeleteQueries struct {
	storage.Queries
}

func (failingDeleteQueries) DeleteHabitRecords(context.Context, string) (int64, error) {
	return 0, apperrors.Storage(errors.New("disk I/O error"), "delete habit records")
}

type failingStore struct {
	*sqlite.Store
}

func (s failingStore) InTx(ctx context.Context, fn func(storage.Queries) error) error {
	return s.Store.InTx(ctx, func(q storage.Queries) error {
		return fn(failingDeleteQueries{Queries: q})
	})
}

func TestApplyResetIsAtomic(t *testing.T) {
	env := setupEngine(t, Options{})
	ctx := context.Background()
	h := env.create(t)
	env.checkDays(t, h, 2)

	broken := NewEngine(failingStore{Store: env.store}, Options{
		Clock:    env.clock,
		Settings: staticSettings{DayStartTime: "05:00", Timezone: "UTC"},
	})

	_, err := broken.ApplyReset(ctx, testUser, h.ID)
	if !apperrors.IsKind(err, apperrors.KindStorage) {
		t.Fatalf("ApplyReset() error = %v, want storage error", err)
	}

	if _, ok, _ := env.store.GetHabitHistory(ctx, h.ID); ok {
		t.Error("history row must be rolled back")
	}
	records, _ := env.store.GetHabitRecords(ctx, h.ID)
	if len(records) != 2 {
		t.Errorf("records = %d, want 2 after rollback", len(records))
	}
	stored, _ := env.store.GetHabit(ctx, testUser, h.ID)
	if !stored.IsActive {
		t.Error("habit must stay active after rollback")
	}

	// Retrying with a healthy store succeeds
	if _, err := env.engine.ApplyReset(ctx, testUser, h.ID); err != nil {
		t.Errorf("retry ApplyReset() failed: %v", err)
	}
}
