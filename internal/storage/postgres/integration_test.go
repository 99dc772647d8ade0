package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/julianstephens/keeprun/internal/constants"
	"github.com/julianstephens/keeprun/internal/models"
)

func setupIntegrationStore(t *testing.T) *Store {
	t.Helper()
	connStr := os.Getenv("POSTGRES_TEST_URL")
	if connStr == "" {
		t.Skip("POSTGRES_TEST_URL not set, skipping PostgreSQL integration test")
	}

	s := New(connStr)
	if err := s.Init(); err != nil {
		t.Fatalf("Init() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPostgresHabitRoundTrip(t *testing.T) {
	s := setupIntegrationStore(t)
	ctx := context.Background()

	userID := "pg-" + uuid.New().String()
	if _, err := s.EnsureUser(ctx, userID, "pg@example.com"); err != nil {
		t.Fatalf("EnsureUser() failed: %v", err)
	}

	now := time.Now()
	h := models.Habit{
		ID:         uuid.New().String(),
		UserID:     userID,
		Title:      "Stretch",
		Category:   constants.CategoryHealth,
		StartDate:  "2024-03-01",
		TargetDays: 14,
		IsActive:   true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.CreateHabit(ctx, h); err != nil {
		t.Fatalf("CreateHabit() failed: %v", err)
	}

	for i := 0; i < 2; i++ {
		rec := models.HabitRecord{HabitID: h.ID, Date: "2024-03-01", Completed: i == 0, CreatedAt: now, UpdatedAt: now}
		if err := s.UpsertHabitRecord(ctx, rec); err != nil {
			t.Fatalf("UpsertHabitRecord() failed: %v", err)
		}
	}

	records, err := s.GetHabitRecords(ctx, h.ID)
	if err != nil {
		t.Fatalf("GetHabitRecords() failed: %v", err)
	}
	if len(records) != 1 || records[0].Completed {
		t.Errorf("expected one overwritten record, got %+v", records)
	}

	active, ok, err := s.GetActiveHabit(ctx, userID)
	if err != nil || !ok || active.ID != h.ID {
		t.Errorf("GetActiveHabit() = %+v, %v, %v", active, ok, err)
	}
}
