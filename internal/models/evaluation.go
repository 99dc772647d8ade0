package models

import (
	"fmt"
	"time"

	"github.com/julianstephens/keeprun/internal/constants"
)

// Evaluation is a user's self-evaluation journal entry for one day.
type Evaluation struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Date      string    `json:"date"` // YYYY-MM-DD
	Rating    int       `json:"rating"`
	Note      string    `json:"note"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (e *Evaluation) Validate() error {
	if _, err := time.Parse(constants.DateFormat, e.Date); err != nil {
		return fmt.Errorf("invalid date format (expected YYYY-MM-DD): %w", err)
	}
	if e.Rating < constants.MinEvaluationRating || e.Rating > constants.MaxEvaluationRating {
		return fmt.Errorf("rating must be between %d and %d", constants.MinEvaluationRating, constants.MaxEvaluationRating)
	}
	return nil
}
