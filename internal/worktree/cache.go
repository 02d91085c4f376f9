package worktree

import (
	"os"
	"sync"
	"time"

	"github.com/awhite/vibetree/pkg/types"
)

// DefaultStatusTTL bounds how long a cached status snapshot stays valid.
const DefaultStatusTTL = 300 * time.Second

// StatusCache memoizes inspector snapshots. An entry is valid only
// while it is younger than the TTL and the worktree directory's mtime
// is unchanged since capture.
type StatusCache struct {
	entries map[string]cacheEntry
	ttl     time.Duration
	hits    uint64
	misses  uint64
	mu      sync.Mutex
}

type cacheEntry struct {
	status      *types.WorktreeStatus
	lastUpdated time.Time
	mtime       time.Time
}

// CacheStats is diagnostic only, never consulted for correctness.
type CacheStats struct {
	Entries int
	Hits    uint64
	Misses  uint64
}

// NewStatusCache creates a cache with the default TTL.
func NewStatusCache() *StatusCache {
	return NewStatusCacheWithTTL(DefaultStatusTTL)
}

// NewStatusCacheWithTTL creates a cache with an explicit TTL.
func NewStatusCacheWithTTL(ttl time.Duration) *StatusCache {
	return &StatusCache{
		entries: make(map[string]cacheEntry),
		ttl:     ttl,
	}
}

// Get returns the cached status for path, or a miss when the entry is
// absent, TTL-expired, or the directory has been modified since capture.
func (c *StatusCache) Get(path string) (*types.WorktreeStatus, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[path]
	if !ok {
		c.misses++
		return nil, false
	}
	if time.Since(entry.lastUpdated) >= c.ttl {
		c.misses++
		return nil, false
	}
	info, err := os.Stat(path)
	if err != nil || !info.ModTime().Equal(entry.mtime) {
		c.misses++
		return nil, false
	}
	c.hits++
	return entry.status, true
}

// Insert records a snapshot along with the directory mtime at capture.
// An mtime read failure falls back to "now", which biases toward misses.
func (c *StatusCache) Insert(path string, status *types.WorktreeStatus) {
	mtime := time.Now()
	if info, err := os.Stat(path); err == nil {
		mtime = info.ModTime()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[path] = cacheEntry{
		status:      status,
		lastUpdated: time.Now(),
		mtime:       mtime,
	}
}

// CleanupStaleEntries purges TTL-expired entries and entries whose path
// no longer exists. Meant to run periodically, not per read.
func (c *StatusCache) CleanupStaleEntries() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for path, entry := range c.entries {
		if time.Since(entry.lastUpdated) >= c.ttl {
			delete(c.entries, path)
			continue
		}
		if _, err := os.Stat(path); err != nil {
			delete(c.entries, path)
		}
	}
}

// Stats reports cache effectiveness for diagnostics.
func (c *StatusCache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return CacheStats{
		Entries: len(c.entries),
		Hits:    c.hits,
		Misses:  c.misses,
	}
}
