package storage

import (
	"context"
	"database/sql"
	"time"

	"github.com/julianstephens/keeprun/internal/models"
)

type UserQueries interface {
	// EnsureUser inserts the user or refreshes its email, returning the stored row.
	EnsureUser(ctx context.Context, id, email string) (models.User, error)
	GetUser(ctx context.Context, id string) (models.User, error)
}

type SettingsQueries interface {
	GetSettings(ctx context.Context, userID string) (map[string]string, error)
	SaveSettings(ctx context.Context, userID string, values map[string]string) error
}

type HabitQueries interface {
	CreateHabit(ctx context.Context, habit models.Habit) error
	UpdateHabit(ctx context.Context, habit models.Habit) error
	// GetHabit returns a NotFound error when the habit does not exist or
	// belongs to another user.
	GetHabit(ctx context.Context, userID, id string) (models.Habit, error)
	GetActiveHabit(ctx context.Context, userID string) (models.Habit, bool, error)
	// GetLatestInactiveHabit returns the most recently started habit that is no longer active.
	GetLatestInactiveHabit(ctx context.Context, userID string) (models.Habit, bool, error)

	UpsertHabitRecord(ctx context.Context, record models.HabitRecord) error
	GetHabitRecords(ctx context.Context, habitID string) ([]models.HabitRecord, error)
	DeleteHabitRecords(ctx context.Context, habitID string) (int64, error)

	AddHabitHistory(ctx context.Context, history models.HabitHistory) error
	GetHabitHistory(ctx context.Context, habitID string) (models.HabitHistory, bool, error)
	// ListHabitHistory returns the user's terminal snapshots, newest first.
	ListHabitHistory(ctx context.Context, userID string) ([]models.HabitHistory, error)
}

type TodoQueries interface {
	AddTodo(ctx context.Context, todo models.Todo) error
	GetTodo(ctx context.Context, userID, id string) (models.Todo, error)
	// ListTodos returns todos due on day with Completed resolved for that day.
	ListTodos(ctx context.Context, userID, day string) ([]models.Todo, error)
	UpdateTodo(ctx context.Context, todo models.Todo) error
	SetTodoCheck(ctx context.Context, todoID, day string, completed bool) error
	DeleteTodo(ctx context.Context, userID, id string) error
}

type TimeBlockQueries interface {
	AddTimeBlock(ctx context.Context, block models.TimeBlock) error
	GetTimeBlock(ctx context.Context, userID, id string) (models.TimeBlock, error)
	ListTimeBlocks(ctx context.Context, userID, day string) ([]models.TimeBlock, error)
	UpdateTimeBlock(ctx context.Context, block models.TimeBlock) error
	DeleteTimeBlock(ctx context.Context, userID, id string) error
}

type EvaluationQueries interface {
	UpsertEvaluation(ctx context.Context, eval models.Evaluation) (models.Evaluation, error)
	ListEvaluations(ctx context.Context, userID, from, to string) ([]models.Evaluation, error)
}

type MaintenanceQueries interface {
	PurgeDeletedTodos(ctx context.Context, before time.Time) (int64, error)
	PurgeDeletedTimeBlocks(ctx context.Context, before time.Time) (int64, error)
	// CountActiveHabitConflicts returns the number of users holding more than one active habit.
	CountActiveHabitConflicts(ctx context.Context) (int, error)
	// CountDuplicateHistory returns the number of habits with more than one history row.
	CountDuplicateHistory(ctx context.Context) (int, error)
}

// Queries is the full query surface. Inside InTx it is bound to the transaction.
type Queries interface {
	UserQueries
	SettingsQueries
	HabitQueries
	TodoQueries
	TimeBlockQueries
	EvaluationQueries
	MaintenanceQueries
}

type Provider interface {
	Queries

	// Lifecycle
	Init() error
	Load() error
	Close() error
	// Migrate applies pending schema migrations and returns how many ran.
	Migrate(logFn func(string)) (int, error)

	// InTx runs fn in one transaction. Any error from fn rolls everything back.
	InTx(ctx context.Context, fn func(Queries) error) error
	Ping(ctx context.Context) error
	SchemaVersion() (current int, latest int, err error)

	// Utils
	GetConfigPath() string
	GetDB() *sql.DB
}
