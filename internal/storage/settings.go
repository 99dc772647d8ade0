package storage

import (
	"context"

	apperrors "github.com/julianstephens/keeprun/internal/errors"
)

func (s *SQLStore) GetSettings(ctx context.Context, userID string) (map[string]string, error) {
	rows, err := s.query(ctx, "SELECT key, value FROM settings WHERE user_id = ?", userID)
	if err != nil {
		return nil, apperrors.Storage(err, "get settings")
	}
	defer rows.Close()

	values := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, apperrors.Storage(err, "scan settings")
		}
		values[key] = value
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Storage(err, "get settings")
	}
	return values, nil
}

func (s *SQLStore) SaveSettings(ctx context.Context, userID string, values map[string]string) error {
	return s.InTx(ctx, func(q Queries) error {
		tx := q.(*SQLStore)
		for key, value := range values {
			_, err := tx.exec(ctx, `
				INSERT INTO settings (user_id, key, value) VALUES (?, ?, ?)
				ON CONFLICT(user_id, key) DO UPDATE SET value = excluded.value`,
				userID, key, value)
			if err != nil {
				return apperrors.Storage(err, "save settings")
			}
		}
		return nil
	})
}
