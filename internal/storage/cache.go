package storage

import (
	"container/list"
	"sync"
	"time"
)

// dirCache is an LRU cache for directory listings. Keys are the full
// directory path; entries expire after a TTL and the least recently
// used entry is evicted once capacity is reached.
type dirCache struct {
	mu       sync.Mutex
	capacity int
	ttl      time.Duration
	order    *list.List // front = most recently used
	items    map[string]*list.Element
	now      func() time.Time
}

type cacheEntry struct {
	key     string
	entries []FileInfo
	stored  time.Time
}

func newDirCache(capacity int, ttl time.Duration) *dirCache {
	return &dirCache{
		capacity: capacity,
		ttl:      ttl,
		order:    list.New(),
		items:    make(map[string]*list.Element),
		now:      time.Now,
	}
}

func (c *dirCache) get(path string) ([]FileInfo, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[path]
	if !ok {
		return nil, false
	}
	entry := el.Value.(*cacheEntry)
	if c.now().Sub(entry.stored) > c.ttl {
		c.order.Remove(el)
		delete(c.items, path)
		return nil, false
	}
	c.order.MoveToFront(el)
	return entry.entries, true
}

func (c *dirCache) put(path string, entries []FileInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[path]; ok {
		el.Value.(*cacheEntry).entries = entries
		el.Value.(*cacheEntry).stored = c.now()
		c.order.MoveToFront(el)
		return
	}
	el := c.order.PushFront(&cacheEntry{key: path, entries: entries, stored: c.now()})
	c.items[path] = el
	if c.order.Len() > c.capacity {
		oldest := c.order.Back()
		if oldest != nil {
			c.order.Remove(oldest)
			delete(c.items, oldest.Value.(*cacheEntry).key)
		}
	}
}

func (c *dirCache) invalidate(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[path]; ok {
		c.order.Remove(el)
		delete(c.items, path)
	}
}

// purgeExpired drops all expired entries. Called by the periodic sweep.
func (c *dirCache) purgeExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for el := c.order.Back(); el != nil; {
		prev := el.Prev()
		entry := el.Value.(*cacheEntry)
		if c.now().Sub(entry.stored) > c.ttl {
			c.order.Remove(el)
			delete(c.items, entry.key)
			removed++
		}
		el = prev
	}
	return removed
}

func (c *dirCache) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.order.Init()
	c.items = make(map[string]*list.Element)
}

func (c *dirCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}
