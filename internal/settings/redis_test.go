package settings

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/julianstephens/keeprun/internal/models"
)

// Runs against a real server when REDIS_TEST_ADDR is set.
func TestRedisCache(t *testing.T) {
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set, skipping redis cache test")
	}

	ctx := context.Background()
	cache, err := NewRedisCache(ctx, addr, time.Minute)
	if err != nil {
		t.Fatalf("NewRedisCache() failed: %v", err)
	}
	defer cache.Close()

	userID := "redis-test-" + time.Now().Format("150405.000000")
	defer cache.Invalidate(ctx, userID)

	if _, ok, err := cache.Get(ctx, userID); err != nil || ok {
		t.Fatalf("Get() on empty cache = %v, %v", ok, err)
	}

	want := models.Settings{UserID: userID, DayStartTime: "04:00", Timezone: "Asia/Seoul"}
	if err := cache.Set(ctx, want); err != nil {
		t.Fatalf("Set() failed: %v", err)
	}
	got, ok, err := cache.Get(ctx, userID)
	if err != nil || !ok {
		t.Fatalf("Get() = %v, %v", ok, err)
	}
	if got != want {
		t.Errorf("Get() = %+v, want %+v", got, want)
	}

	if err := cache.Invalidate(ctx, userID); err != nil {
		t.Fatalf("Invalidate() failed: %v", err)
	}
	if _, ok, _ := cache.Get(ctx, userID); ok {
		t.Error("expected miss after Invalidate")
	}
}
