package plan

import (
	"sync"
	"time"

	"github.com/vishalbelsare/memori-sub000/internal/model"
)

type cacheEntry struct {
	plan    model.SearchPlan
	created time.Time
}

// ttlCache is a mutex-guarded expiring map. Entries carry the monotonic
// reading of time.Now, so wall-clock jumps do not extend or cut their life.
type ttlCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]cacheEntry
}

func newTTLCache(ttl time.Duration) *ttlCache {
	return &ttlCache{ttl: ttl, entries: make(map[string]cacheEntry)}
}

// get returns a copy of the cached plan if it has not expired. Expired
// entries are dropped on access.
func (c *ttlCache) get(key string) (model.SearchPlan, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return model.SearchPlan{}, false
	}
	if time.Since(e.created) >= c.ttl {
		delete(c.entries, key)
		return model.SearchPlan{}, false
	}
	return clonePlan(e.plan), true
}

func (c *ttlCache) put(key string, p model.SearchPlan) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cacheEntry{plan: clonePlan(p), created: time.Now()}
}

func (c *ttlCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func clonePlan(p model.SearchPlan) model.SearchPlan {
	p.EntityFilters = append([]string(nil), p.EntityFilters...)
	p.CategoryFilters = append([]model.Category(nil), p.CategoryFilters...)
	p.Strategies = append([]string(nil), p.Strategies...)
	return p
}
