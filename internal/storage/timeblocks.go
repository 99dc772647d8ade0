package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	apperrors "github.com/julianstephens/keeprun/internal/errors"
	"github.com/julianstephens/keeprun/internal/models"
)

const timeBlockColumns = "id, user_id, date, start_time, end_time, title, color, created_at, updated_at, deleted_at"

func (s *SQLStore) AddTimeBlock(ctx context.Context, b models.TimeBlock) error {
	_, err := s.exec(ctx, `
		INSERT INTO time_blocks (`+timeBlockColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.ID, b.UserID, b.Date, b.Start, b.End, b.Title, b.Color,
		formatTimestamp(b.CreatedAt), formatTimestamp(b.UpdatedAt), nullTimestamp(b.DeletedAt))
	return apperrors.Storage(err, "add time block")
}

func (s *SQLStore) GetTimeBlock(ctx context.Context, userID, id string) (models.TimeBlock, error) {
	row := s.queryRow(ctx, "SELECT "+timeBlockColumns+" FROM time_blocks WHERE id = ? AND user_id = ? AND deleted_at IS NULL", id, userID)
	b, err := scanTimeBlock(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.TimeBlock{}, notFound("time block")
	}
	if err != nil {
		return models.TimeBlock{}, apperrors.Storage(err, "get time block")
	}
	return b, nil
}

func (s *SQLStore) ListTimeBlocks(ctx context.Context, userID, day string) ([]models.TimeBlock, error) {
	rows, err := s.query(ctx, `
		SELECT `+timeBlockColumns+` FROM time_blocks
		WHERE user_id = ? AND date = ? AND deleted_at IS NULL
		ORDER BY start_time`, userID, day)
	if err != nil {
		return nil, apperrors.Storage(err, "list time blocks")
	}
	defer rows.Close()

	blocks := []models.TimeBlock{}
	for rows.Next() {
		b, err := scanTimeBlock(rows)
		if err != nil {
			return nil, apperrors.Storage(err, "scan time block")
		}
		blocks = append(blocks, b)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Storage(err, "list time blocks")
	}
	return blocks, nil
}

func (s *SQLStore) UpdateTimeBlock(ctx context.Context, b models.TimeBlock) error {
	res, err := s.exec(ctx, `
		UPDATE time_blocks SET date = ?, start_time = ?, end_time = ?, title = ?, color = ?, updated_at = ?
		WHERE id = ? AND user_id = ? AND deleted_at IS NULL`,
		b.Date, b.Start, b.End, b.Title, b.Color, formatTimestamp(b.UpdatedAt), b.ID, b.UserID)
	if err != nil {
		return apperrors.Storage(err, "update time block")
	}
	return rowsAffected(res, "time block")
}

func (s *SQLStore) DeleteTimeBlock(ctx context.Context, userID, id string) error {
	res, err := s.exec(ctx, `
		UPDATE time_blocks SET deleted_at = ?
		WHERE id = ? AND user_id = ? AND deleted_at IS NULL`,
		formatTimestamp(time.Now()), id, userID)
	if err != nil {
		return apperrors.Storage(err, "delete time block")
	}
	return rowsAffected(res, "time block")
}

func scanTimeBlock(row rowScanner) (models.TimeBlock, error) {
	var b models.TimeBlock
	var createdAt, updatedAt string
	var deletedAt sql.NullString
	if err := row.Scan(&b.ID, &b.UserID, &b.Date, &b.Start, &b.End, &b.Title, &b.Color, &createdAt, &updatedAt, &deletedAt); err != nil {
		return models.TimeBlock{}, err
	}

	var err error
	if b.CreatedAt, err = parseTimestamp("created_at", createdAt); err != nil {
		return models.TimeBlock{}, err
	}
	if b.UpdatedAt, err = parseTimestamp("updated_at", updatedAt); err != nil {
		return models.TimeBlock{}, err
	}
	if b.DeletedAt, err = parseNullTimestamp("deleted_at", deletedAt); err != nil {
		return models.TimeBlock{}, err
	}
	return b, nil
}
