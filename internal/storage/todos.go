package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/julianstephens/keeprun/internal/constants"
	apperrors "github.com/julianstephens/keeprun/internal/errors"
	"github.com/julianstephens/keeprun/internal/models"
)

const todoColumns = "t.id, t.user_id, t.title, t.kind, t.date, t.weekdays, t.created_at, t.updated_at, t.deleted_at"

func (s *SQLStore) AddTodo(ctx context.Context, t models.Todo) error {
	_, err := s.exec(ctx, `
		INSERT INTO todos (id, user_id, title, kind, date, weekdays, created_at, updated_at, deleted_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.UserID, t.Title, string(t.Kind), nullString(t.Date), joinWeekdays(t.Weekdays),
		formatTimestamp(t.CreatedAt), formatTimestamp(t.UpdatedAt), nullTimestamp(t.DeletedAt))
	return apperrors.Storage(err, "add todo")
}

func (s *SQLStore) GetTodo(ctx context.Context, userID, id string) (models.Todo, error) {
	row := s.queryRow(ctx, `
		SELECT `+todoColumns+`, NULL
		FROM todos t
		WHERE t.id = ? AND t.user_id = ? AND t.deleted_at IS NULL`, id, userID)
	t, err := scanTodo(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Todo{}, notFound("todo")
	}
	if err != nil {
		return models.Todo{}, apperrors.Storage(err, "get todo")
	}
	return t, nil
}

func (s *SQLStore) ListTodos(ctx context.Context, userID, day string) ([]models.Todo, error) {
	rows, err := s.query(ctx, `
		SELECT `+todoColumns+`, c.completed
		FROM todos t
		LEFT JOIN todo_checks c ON c.todo_id = t.id AND c.date = ?
		WHERE t.user_id = ? AND t.deleted_at IS NULL AND (t.kind = ? OR t.date = ?)
		ORDER BY t.kind DESC, t.created_at`,
		day, userID, string(constants.TodoKindRoutine), day)
	if err != nil {
		return nil, apperrors.Storage(err, "list todos")
	}
	defer rows.Close()

	todos := []models.Todo{}
	for rows.Next() {
		t, err := scanTodo(rows)
		if err != nil {
			return nil, apperrors.Storage(err, "scan todo")
		}
		// Weekday filtering for routines happens here rather than in SQL
		if t.IsDueOn(day) {
			todos = append(todos, t)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Storage(err, "list todos")
	}
	return todos, nil
}

func (s *SQLStore) UpdateTodo(ctx context.Context, t models.Todo) error {
	res, err := s.exec(ctx, `
		UPDATE todos SET title = ?, kind = ?, date = ?, weekdays = ?, updated_at = ?
		WHERE id = ? AND user_id = ? AND deleted_at IS NULL`,
		t.Title, string(t.Kind), nullString(t.Date), joinWeekdays(t.Weekdays), formatTimestamp(t.UpdatedAt),
		t.ID, t.UserID)
	if err != nil {
		return apperrors.Storage(err, "update todo")
	}
	return rowsAffected(res, "todo")
}

func (s *SQLStore) SetTodoCheck(ctx context.Context, todoID, day string, completed bool) error {
	_, err := s.exec(ctx, `
		INSERT INTO todo_checks (todo_id, date, completed, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(todo_id, date) DO UPDATE SET
			completed = excluded.completed,
			updated_at = excluded.updated_at`,
		todoID, day, completed, formatTimestamp(time.Now()))
	return apperrors.Storage(err, "set todo check")
}

func (s *SQLStore) DeleteTodo(ctx context.Context, userID, id string) error {
	res, err := s.exec(ctx, `
		UPDATE todos SET deleted_at = ?
		WHERE id = ? AND user_id = ? AND deleted_at IS NULL`,
		formatTimestamp(time.Now()), id, userID)
	if err != nil {
		return apperrors.Storage(err, "delete todo")
	}
	return rowsAffected(res, "todo")
}

func scanTodo(row rowScanner) (models.Todo, error) {
	var t models.Todo
	var kind, weekdays, createdAt, updatedAt string
	var date, deletedAt sql.NullString
	var completed sql.NullBool
	if err := row.Scan(&t.ID, &t.UserID, &t.Title, &kind, &date, &weekdays, &createdAt, &updatedAt, &deletedAt, &completed); err != nil {
		return models.Todo{}, err
	}
	t.Kind = constants.TodoKind(kind)
	t.Date = date.String
	t.Completed = completed.Valid && completed.Bool

	var err error
	if t.Weekdays, err = splitWeekdays(weekdays); err != nil {
		return models.Todo{}, err
	}
	if t.CreatedAt, err = parseTimestamp("created_at", createdAt); err != nil {
		return models.Todo{}, err
	}
	if t.UpdatedAt, err = parseTimestamp("updated_at", updatedAt); err != nil {
		return models.Todo{}, err
	}
	if t.DeletedAt, err = parseNullTimestamp("deleted_at", deletedAt); err != nil {
		return models.Todo{}, err
	}
	return t, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func joinWeekdays(days []time.Weekday) string {
	parts := make([]string, len(days))
	for i, d := range days {
		parts[i] = strconv.Itoa(int(d))
	}
	return strings.Join(parts, ",")
}

func splitWeekdays(s string) ([]time.Weekday, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	days := make([]time.Weekday, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 || n > 6 {
			return nil, fmt.Errorf("invalid weekday %q", p)
		}
		days = append(days, time.Weekday(n))
	}
	return days, nil
}
