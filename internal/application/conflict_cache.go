package application

import (
	"strings"
	"sync"
	"time"

	"github.com/example/room-reservation/internal/booking"
)

// conflictCache stores recently computed pre-flight answers so repeated
// availability checks for the same room and window skip the range query.
// Entries are dropped whenever a booking for the room is created or
// cancelled, and expire on a short TTL otherwise.
type conflictCache struct {
	mu         sync.RWMutex
	now        func() time.Time
	ttl        time.Duration
	maxEntries int
	entries    map[string]conflictCacheEntry
}

type conflictCacheEntry struct {
	details   []ConflictDetail
	expiresAt time.Time
}

func newConflictCache(ttl time.Duration, maxEntries int, now func() time.Time) *conflictCache {
	if ttl <= 0 {
		ttl = 5 * time.Second
	}
	if maxEntries <= 0 {
		maxEntries = 256
	}
	if now == nil {
		now = time.Now
	}
	return &conflictCache{
		now:        now,
		ttl:        ttl,
		maxEntries: maxEntries,
		entries:    make(map[string]conflictCacheEntry),
	}
}

func (c *conflictCache) Get(key string) ([]ConflictDetail, bool) {
	if c == nil {
		return nil, false
	}
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if c.now().After(entry.expiresAt) {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		return nil, false
	}
	return cloneDetails(entry.details), true
}

func (c *conflictCache) Store(key string, details []ConflictDetail) {
	if c == nil {
		return
	}
	cloned := cloneDetails(details)
	expiry := c.now().Add(c.ttl)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.cleanupLocked()
	if len(c.entries) >= c.maxEntries {
		c.evictOneLocked()
	}
	c.entries[key] = conflictCacheEntry{details: cloned, expiresAt: expiry}
}

// InvalidateRoom drops every cached answer for the room.
func (c *conflictCache) InvalidateRoom(roomID string) {
	if c == nil {
		return
	}
	prefix := roomID + "|"
	c.mu.Lock()
	for key := range c.entries {
		if strings.HasPrefix(key, prefix) {
			delete(c.entries, key)
		}
	}
	c.mu.Unlock()
}

func (c *conflictCache) cleanupLocked() {
	now := c.now()
	for key, entry := range c.entries {
		if now.After(entry.expiresAt) {
			delete(c.entries, key)
		}
	}
}

func (c *conflictCache) evictOneLocked() {
	for key := range c.entries {
		delete(c.entries, key)
		return
	}
}

func cloneDetails(details []ConflictDetail) []ConflictDetail {
	if len(details) == 0 {
		return nil
	}
	out := make([]ConflictDetail, len(details))
	copy(out, details)
	return out
}

func conflictCacheKey(roomID string, w booking.Window) string {
	builder := strings.Builder{}
	builder.WriteString(roomID)
	builder.WriteString("|")
	builder.WriteString(w.Start.UTC().Format(time.RFC3339Nano))
	builder.WriteString("|")
	builder.WriteString(w.End.UTC().Format(time.RFC3339Nano))
	return builder.String()
}
