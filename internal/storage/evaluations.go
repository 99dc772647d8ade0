package storage

import (
	"context"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/julianstephens/keeprun/internal/errors"
	"github.com/julianstephens/keeprun/internal/models"
)

// UpsertEvaluation stores one entry per (user, date); later writes replace
// the rating and note.
func (s *SQLStore) UpsertEvaluation(ctx context.Context, e models.Evaluation) (models.Evaluation, error) {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	now := time.Now()
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	e.UpdatedAt = now

	row := s.queryRow(ctx, `
		INSERT INTO evaluations (id, user_id, date, rating, note, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, date) DO UPDATE SET
			rating = excluded.rating,
			note = excluded.note,
			updated_at = excluded.updated_at
		RETURNING id, user_id, date, rating, note, created_at, updated_at`,
		e.ID, e.UserID, e.Date, e.Rating, e.Note, formatTimestamp(e.CreatedAt), formatTimestamp(e.UpdatedAt))

	out, err := scanEvaluation(row)
	if err != nil {
		return models.Evaluation{}, apperrors.Storage(err, "upsert evaluation")
	}
	return out, nil
}

func (s *SQLStore) ListEvaluations(ctx context.Context, userID, from, to string) ([]models.Evaluation, error) {
	rows, err := s.query(ctx, `
		SELECT id, user_id, date, rating, note, created_at, updated_at
		FROM evaluations
		WHERE user_id = ? AND date >= ? AND date <= ?
		ORDER BY date`, userID, from, to)
	if err != nil {
		return nil, apperrors.Storage(err, "list evaluations")
	}
	defer rows.Close()

	evals := []models.Evaluation{}
	for rows.Next() {
		e, err := scanEvaluation(rows)
		if err != nil {
			return nil, apperrors.Storage(err, "scan evaluation")
		}
		evals = append(evals, e)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Storage(err, "list evaluations")
	}
	return evals, nil
}

func scanEvaluation(row rowScanner) (models.Evaluation, error) {
	var e models.Evaluation
	var createdAt, updatedAt string
	if err := row.Scan(&e.ID, &e.UserID, &e.Date, &e.Rating, &e.Note, &createdAt, &updatedAt); err != nil {
		return models.Evaluation{}, err
	}
	var err error
	if e.CreatedAt, err = parseTimestamp("created_at", createdAt); err != nil {
		return models.Evaluation{}, err
	}
	if e.UpdatedAt, err = parseTimestamp("updated_at", updatedAt); err != nil {
		return models.Evaluation{}, err
	}
	return e, nil
}
