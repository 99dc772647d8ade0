package settings

import (
	"context"
	"sync"
	"time"

	"github.com/julianstephens/keeprun/internal/models"
	"github.com/julianstephens/keeprun/internal/utils"
)

type memoryEntry struct {
	settings models.Settings
	expires  time.Time
}

// MemoryCache is an in-process cache with a fixed TTL.
type MemoryCache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	clock   utils.Clock
	entries map[string]memoryEntry
}

func NewMemoryCache(ttl time.Duration, clock utils.Clock) *MemoryCache {
	if clock == nil {
		clock = utils.SystemClock{}
	}
	return &MemoryCache{ttl: ttl, clock: clock, entries: make(map[string]memoryEntry)}
}

func (c *MemoryCache) Get(_ context.Context, userID string) (models.Settings, bool, error) {
	c.mu.RLock()
	e, ok := c.entries[userID]
	c.mu.RUnlock()
	if !ok {
		return models.Settings{}, false, nil
	}
	if c.ttl > 0 && !c.clock.Now().Before(e.expires) {
		c.mu.Lock()
		delete(c.entries, userID)
		c.mu.Unlock()
		return models.Settings{}, false, nil
	}
	return e.settings, true, nil
}

func (c *MemoryCache) Set(_ context.Context, s models.Settings) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[s.UserID] = memoryEntry{settings: s, expires: c.clock.Now().Add(c.ttl)}
	return nil
}

func (c *MemoryCache) Invalidate(_ context.Context, userID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, userID)
	return nil
}

// Len reports the number of stored entries, expired ones included.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
