package constants

import "time"

// HabitCategory tags a habit with a coarse kind.
type HabitCategory string

// HabitStatus is the terminal status recorded in habit history.
type HabitStatus string

// TodoKind distinguishes one-off tasks from recurring ones.
type TodoKind string

const (
	AppName           = "keeprun"
	DefaultConfigPath = "~/.config/keeprun/keeprun.db"
	DefaultLocalUser  = "local"
	Version           = "v0.3.0"

	// Keyring accounts
	KeyringDBConnection = "database-connection"
	KeyringJWTSecret    = "jwt-secret"

	// Environment overrides
	EnvDBConnection = "KEEPRUN_DB_CONNECTION"
	EnvJWTSecret    = "KEEPRUN_JWT_SECRET"
	EnvRedisAddr    = "KEEPRUN_REDIS_ADDR"
	EnvListen       = "KEEPRUN_LISTEN"

	// DateFormat is the standard date format used throughout the application (YYYY-MM-DD)
	DateFormat = "2006-01-02"

	// TimeFormat is the standard time format used throughout the application (HH:MM)
	TimeFormat = "15:04"

	// Habit rules
	DefaultTargetDays   = 14
	MaxTargetDays       = 365
	MaxHabitTitleLength = 50
	MotivationDays      = 14
	ResetGraceDays      = 3

	// Habit categories
	CategoryExercise HabitCategory = "exercise"
	CategoryHealth   HabitCategory = "health"
	CategoryLearning HabitCategory = "learning"
	CategoryOther    HabitCategory = "other"

	// Habit history statuses
	HabitStatusCompleted HabitStatus = "completed"
	HabitStatusAbandoned HabitStatus = "abandoned"

	// Todo kinds
	TodoKindSpot    TodoKind = "spot"
	TodoKindRoutine TodoKind = "routine"

	// Evaluation bounds
	MinEvaluationRating = 1
	MaxEvaluationRating = 5

	// Backup constants
	MaxBackups       = 14
	BackupDirName    = "backups"
	BackupFilePrefix = "keeprun-"
	BackupFileSuffix = ".db"

	// Cleanup constants
	DefaultRetentionDays   = 90
	DefaultCleanupInterval = 24 * time.Hour

	// Server defaults
	DefaultListenAddr      = ":8080"
	DefaultSettingsTTL     = 10 * time.Minute
	DefaultShutdownTimeout = 10 * time.Second
)

// HabitCategories lists every accepted category in display order.
var HabitCategories = []HabitCategory{
	CategoryExercise,
	CategoryHealth,
	CategoryLearning,
	CategoryOther,
}
