package storage

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"github.com/julianstephens/keeprun/internal/constants"
	apperrors "github.com/julianstephens/keeprun/internal/errors"
	"github.com/julianstephens/keeprun/internal/models"
)

const habitColumns = "id, user_id, title, category, start_date, target_days, is_active, created_at, updated_at"

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *SQLStore) CreateHabit(ctx context.Context, h models.Habit) error {
	_, err := s.exec(ctx, `
		INSERT INTO habits (`+habitColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		h.ID, h.UserID, h.Title, string(h.Category), h.StartDate, h.TargetDays, h.IsActive,
		formatTimestamp(h.CreatedAt), formatTimestamp(h.UpdatedAt))
	return apperrors.Storage(err, "create habit")
}

func (s *SQLStore) UpdateHabit(ctx context.Context, h models.Habit) error {
	res, err := s.exec(ctx, `
		UPDATE habits
		SET title = ?, category = ?, target_days = ?, is_active = ?, updated_at = ?
		WHERE id = ? AND user_id = ?`,
		h.Title, string(h.Category), h.TargetDays, h.IsActive, formatTimestamp(h.UpdatedAt),
		h.ID, h.UserID)
	if err != nil {
		return apperrors.Storage(err, "update habit")
	}
	return rowsAffected(res, "habit")
}

func (s *SQLStore) GetHabit(ctx context.Context, userID, id string) (models.Habit, error) {
	row := s.queryRow(ctx, "SELECT "+habitColumns+" FROM habits WHERE id = ? AND user_id = ?", id, userID)
	h, err := scanHabit(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Habit{}, notFound("habit")
	}
	if err != nil {
		return models.Habit{}, apperrors.Storage(err, "get habit")
	}
	return h, nil
}

func (s *SQLStore) GetActiveHabit(ctx context.Context, userID string) (models.Habit, bool, error) {
	row := s.queryRow(ctx, "SELECT "+habitColumns+" FROM habits WHERE user_id = ? AND is_active = ?", userID, true)
	return optionalHabit(row, "get active habit")
}

func (s *SQLStore) GetLatestInactiveHabit(ctx context.Context, userID string) (models.Habit, bool, error) {
	row := s.queryRow(ctx, `
		SELECT `+habitColumns+` FROM habits
		WHERE user_id = ? AND is_active = ?
		ORDER BY start_date DESC, created_at DESC
		LIMIT 1`, userID, false)
	return optionalHabit(row, "get latest inactive habit")
}

func optionalHabit(row *sql.Row, op string) (models.Habit, bool, error) {
	h, err := scanHabit(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Habit{}, false, nil
	}
	if err != nil {
		return models.Habit{}, false, apperrors.Storage(err, op)
	}
	return h, true, nil
}

func scanHabit(row rowScanner) (models.Habit, error) {
	var h models.Habit
	var category, createdAt, updatedAt string
	if err := row.Scan(&h.ID, &h.UserID, &h.Title, &category, &h.StartDate, &h.TargetDays, &h.IsActive, &createdAt, &updatedAt); err != nil {
		return models.Habit{}, err
	}
	h.Category = constants.HabitCategory(category)

	var err error
	if h.CreatedAt, err = parseTimestamp("created_at", createdAt); err != nil {
		return models.Habit{}, err
	}
	if h.UpdatedAt, err = parseTimestamp("updated_at", updatedAt); err != nil {
		return models.Habit{}, err
	}
	return h, nil
}

// UpsertHabitRecord writes the flag for (habit, date). Repeated writes for the
// same day overwrite the previous value.
func (s *SQLStore) UpsertHabitRecord(ctx context.Context, r models.HabitRecord) error {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	_, err := s.exec(ctx, `
		INSERT INTO habit_records (id, habit_id, date, completed, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(habit_id, date) DO UPDATE SET
			completed = excluded.completed,
			updated_at = excluded.updated_at`,
		r.ID, r.HabitID, r.Date, r.Completed, formatTimestamp(r.CreatedAt), formatTimestamp(r.UpdatedAt))
	return apperrors.Storage(err, "upsert habit record")
}

func (s *SQLStore) GetHabitRecords(ctx context.Context, habitID string) ([]models.HabitRecord, error) {
	rows, err := s.query(ctx, `
		SELECT id, habit_id, date, completed, created_at, updated_at
		FROM habit_records WHERE habit_id = ? ORDER BY date`, habitID)
	if err != nil {
		return nil, apperrors.Storage(err, "get habit records")
	}
	defer rows.Close()

	var records []models.HabitRecord
	for rows.Next() {
		var r models.HabitRecord
		var createdAt, updatedAt string
		if err := rows.Scan(&r.ID, &r.HabitID, &r.Date, &r.Completed, &createdAt, &updatedAt); err != nil {
			return nil, apperrors.Storage(err, "scan habit record")
		}
		if r.CreatedAt, err = parseTimestamp("created_at", createdAt); err != nil {
			return nil, apperrors.Storage(err, "scan habit record")
		}
		if r.UpdatedAt, err = parseTimestamp("updated_at", updatedAt); err != nil {
			return nil, apperrors.Storage(err, "scan habit record")
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Storage(err, "get habit records")
	}
	return records, nil
}

func (s *SQLStore) DeleteHabitRecords(ctx context.Context, habitID string) (int64, error) {
	res, err := s.exec(ctx, "DELETE FROM habit_records WHERE habit_id = ?", habitID)
	if err != nil {
		return 0, apperrors.Storage(err, "delete habit records")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, apperrors.Storage(err, "delete habit records")
	}
	return n, nil
}

const historyColumns = "id, user_id, habit_id, title, category, start_date, end_date, total_days, completed_days, status, created_at"

func (s *SQLStore) AddHabitHistory(ctx context.Context, h models.HabitHistory) error {
	if h.ID == "" {
		h.ID = uuid.New().String()
	}
	_, err := s.exec(ctx, `
		INSERT INTO habit_history (`+historyColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		h.ID, h.UserID, h.HabitID, h.Title, string(h.Category), h.StartDate, h.EndDate,
		h.TotalDays, h.CompletedDays, string(h.Status), formatTimestamp(h.CreatedAt))
	return apperrors.Storage(err, "add habit history")
}

func (s *SQLStore) GetHabitHistory(ctx context.Context, habitID string) (models.HabitHistory, bool, error) {
	row := s.queryRow(ctx, "SELECT "+historyColumns+" FROM habit_history WHERE habit_id = ?", habitID)
	h, err := scanHistory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.HabitHistory{}, false, nil
	}
	if err != nil {
		return models.HabitHistory{}, false, apperrors.Storage(err, "get habit history")
	}
	return h, true, nil
}

func (s *SQLStore) ListHabitHistory(ctx context.Context, userID string) ([]models.HabitHistory, error) {
	rows, err := s.query(ctx, `
		SELECT `+historyColumns+` FROM habit_history
		WHERE user_id = ?
		ORDER BY end_date DESC, created_at DESC`, userID)
	if err != nil {
		return nil, apperrors.Storage(err, "list habit history")
	}
	defer rows.Close()

	history := []models.HabitHistory{}
	for rows.Next() {
		h, err := scanHistory(rows)
		if err != nil {
			return nil, apperrors.Storage(err, "scan habit history")
		}
		history = append(history, h)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Storage(err, "list habit history")
	}
	return history, nil
}

func scanHistory(row rowScanner) (models.HabitHistory, error) {
	var h models.HabitHistory
	var category, status, createdAt string
	if err := row.Scan(&h.ID, &h.UserID, &h.HabitID, &h.Title, &category, &h.StartDate, &h.EndDate,
		&h.TotalDays, &h.CompletedDays, &status, &createdAt); err != nil {
		return models.HabitHistory{}, err
	}
	h.Category = constants.HabitCategory(category)
	h.Status = constants.HabitStatus(status)

	var err error
	if h.CreatedAt, err = parseTimestamp("created_at", createdAt); err != nil {
		return models.HabitHistory{}, err
	}
	return h, nil
}
