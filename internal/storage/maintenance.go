package storage

import (
	"context"
	"time"

	apperrors "github.com/julianstephens/keeprun/internal/errors"
)

// PurgeDeletedTodos hard-deletes todos soft-deleted before the cutoff, along
// with their per-day checks.
func (s *SQLStore) PurgeDeletedTodos(ctx context.Context, before time.Time) (int64, error) {
	cutoff := formatTimestamp(before)
	var purged int64
	err := s.InTx(ctx, func(q Queries) error {
		tx := q.(*SQLStore)
		if _, err := tx.exec(ctx, `
			DELETE FROM todo_checks WHERE todo_id IN (
				SELECT id FROM todos WHERE deleted_at IS NOT NULL AND deleted_at < ?
			)`, cutoff); err != nil {
			return apperrors.Storage(err, "purge todo checks")
		}
		res, err := tx.exec(ctx, "DELETE FROM todos WHERE deleted_at IS NOT NULL AND deleted_at < ?", cutoff)
		if err != nil {
			return apperrors.Storage(err, "purge todos")
		}
		purged, err = res.RowsAffected()
		return apperrors.Storage(err, "purge todos")
	})
	return purged, err
}

func (s *SQLStore) PurgeDeletedTimeBlocks(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.exec(ctx, "DELETE FROM time_blocks WHERE deleted_at IS NOT NULL AND deleted_at < ?", formatTimestamp(before))
	if err != nil {
		return 0, apperrors.Storage(err, "purge time blocks")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, apperrors.Storage(err, "purge time blocks")
	}
	return n, nil
}

func (s *SQLStore) CountActiveHabitConflicts(ctx context.Context) (int, error) {
	var n int
	err := s.queryRow(ctx, `
		SELECT COUNT(*) FROM (
			SELECT user_id FROM habits WHERE is_active = ? GROUP BY user_id HAVING COUNT(*) > 1
		) conflicts`, true).Scan(&n)
	if err != nil {
		return 0, apperrors.Storage(err, "count active habit conflicts")
	}
	return n, nil
}

func (s *SQLStore) CountDuplicateHistory(ctx context.Context) (int, error) {
	var n int
	err := s.queryRow(ctx, `
		SELECT COUNT(*) FROM (
			SELECT habit_id FROM habit_history GROUP BY habit_id HAVING COUNT(*) > 1
		) duplicates`).Scan(&n)
	if err != nil {
		return 0, apperrors.Storage(err, "count duplicate history")
	}
	return n, nil
}
