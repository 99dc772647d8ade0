// Package settings serves per-user day-boundary preferences with a cache in
// front of storage.
package settings

import (
	"context"
	"strings"

	"github.com/julianstephens/keeprun/internal/constants"
	apperrors "github.com/julianstephens/keeprun/internal/errors"
	"github.com/julianstephens/keeprun/internal/logger"
	"github.com/julianstephens/keeprun/internal/models"
	"github.com/julianstephens/keeprun/internal/storage"
	"github.com/julianstephens/keeprun/internal/utils"
)

// Cache stores resolved settings per user. Implementations must be safe for
// concurrent use. A miss is reported with ok=false and a nil error.
type Cache interface {
	Get(ctx context.Context, userID string) (models.Settings, bool, error)
	Set(ctx context.Context, s models.Settings) error
	Invalidate(ctx context.Context, userID string) error
}

// Update carries a partial settings change. Nil fields are left untouched.
type Update struct {
	DayStartTime *string `json:"day_start_time,omitempty"`
	Timezone     *string `json:"timezone,omitempty"`
}

// Service reads and writes settings. Cached entries are invalidated after
// every successful write, so readers never see a value older than the last
// committed update from this process.
type Service struct {
	store storage.SettingsQueries
	cache Cache
}

func NewService(store storage.SettingsQueries, cache Cache) *Service {
	if cache == nil {
		cache = noCache{}
	}
	return &Service{store: store, cache: cache}
}

// Get returns the user's settings with defaults applied.
func (s *Service) Get(ctx context.Context, userID string) (models.Settings, error) {
	if cached, ok, err := s.cache.Get(ctx, userID); err != nil {
		logger.Warn("Settings cache read failed", "user", userID, "error", err)
	} else if ok {
		return cached, nil
	}

	values, err := s.store.GetSettings(ctx, userID)
	if err != nil {
		return models.Settings{}, err
	}
	settings := models.MapToSettings(userID, values)
	models.ApplyDefaultSettings(&settings)

	if err := s.cache.Set(ctx, settings); err != nil {
		logger.Warn("Settings cache write failed", "user", userID, "error", err)
	}
	return settings, nil
}

// Update validates and persists a partial change, returning the new settings.
func (s *Service) Update(ctx context.Context, userID string, u Update) (models.Settings, error) {
	current, err := s.Get(ctx, userID)
	if err != nil {
		return models.Settings{}, err
	}

	if u.DayStartTime != nil {
		current.DayStartTime = strings.TrimSpace(*u.DayStartTime)
	}
	if u.Timezone != nil {
		current.Timezone = strings.TrimSpace(*u.Timezone)
	}
	if err := Validate(current); err != nil {
		return models.Settings{}, err
	}

	if err := s.store.SaveSettings(ctx, userID, models.SettingsToMap(current)); err != nil {
		return models.Settings{}, err
	}
	if err := s.cache.Invalidate(ctx, userID); err != nil {
		// A stale entry would outlive the write, so surface it
		return models.Settings{}, apperrors.Storage(err, "invalidate settings cache")
	}

	logger.Info("Settings updated", "user", userID, "day_start_time", current.DayStartTime, "timezone", current.Timezone)
	return current, nil
}

// Validate checks the day start time and timezone.
func Validate(s models.Settings) error {
	if !utils.ValidateTimeFormat(s.DayStartTime) {
		return apperrors.New(apperrors.KindValidation, "invalid %s %q (expected HH:MM)", constants.SettingDayStartTime, s.DayStartTime)
	}
	if !utils.ValidateTimezone(s.Timezone) {
		return apperrors.New(apperrors.KindValidation, "unknown %s %q", constants.SettingTimezone, s.Timezone)
	}
	return nil
}

type noCache struct{}

func (noCache) Get(context.Context, string) (models.Settings, bool, error) {
	return models.Settings{}, false, nil
}
func (noCache) Set(context.Context, models.Settings) error { return nil }
func (noCache) Invalidate(context.Context, string) error   { return nil }
