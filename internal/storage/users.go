package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	apperrors "github.com/julianstephens/keeprun/internal/errors"
	"github.com/julianstephens/keeprun/internal/models"
)

func (s *SQLStore) EnsureUser(ctx context.Context, id, email string) (models.User, error) {
	now := formatTimestamp(time.Now())
	row := s.queryRow(ctx, `
		INSERT INTO users (id, email, created_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			email = CASE WHEN excluded.email <> '' THEN excluded.email ELSE users.email END,
			updated_at = excluded.updated_at
		RETURNING id, email, created_at, updated_at`,
		id, email, now, now)

	u, err := scanUser(row)
	if err != nil {
		return models.User{}, apperrors.Storage(err, "ensure user")
	}
	return u, nil
}

func (s *SQLStore) GetUser(ctx context.Context, id string) (models.User, error) {
	row := s.queryRow(ctx, `SELECT id, email, created_at, updated_at FROM users WHERE id = ?`, id)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, notFound("user")
	}
	if err != nil {
		return models.User{}, apperrors.Storage(err, "get user")
	}
	return u, nil
}

func scanUser(row *sql.Row) (models.User, error) {
	var u models.User
	var createdAt, updatedAt string
	if err := row.Scan(&u.ID, &u.Email, &createdAt, &updatedAt); err != nil {
		return models.User{}, err
	}
	var err error
	if u.CreatedAt, err = parseTimestamp("created_at", createdAt); err != nil {
		return models.User{}, err
	}
	if u.UpdatedAt, err = parseTimestamp("updated_at", updatedAt); err != nil {
		return models.User{}, err
	}
	return u, nil
}
