package storage

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirCache_HitAndExpiry(t *testing.T) {
	now := time.Now()
	c := newDirCache(10, 5*time.Minute)
	c.now = func() time.Time { return now }

	c.put("/media", []FileInfo{{Name: "a.mkv"}})

	got, ok := c.get("/media")
	require.True(t, ok)
	assert.Equal(t, "a.mkv", got[0].Name)

	// advance past the TTL
	now = now.Add(5*time.Minute + time.Second)
	_, ok = c.get("/media")
	assert.False(t, ok)
	assert.Equal(t, 0, c.len())
}

func TestDirCache_LRUEviction(t *testing.T) {
	c := newDirCache(3, time.Hour)

	for i := 0; i < 3; i++ {
		c.put(fmt.Sprintf("/dir%d", i), nil)
	}
	// touch dir0 so dir1 becomes the LRU victim
	_, ok := c.get("/dir0")
	require.True(t, ok)

	c.put("/dir3", nil)

	_, ok = c.get("/dir1")
	assert.False(t, ok, "least recently used entry should be evicted")
	for _, p := range []string{"/dir0", "/dir2", "/dir3"} {
		_, ok = c.get(p)
		assert.True(t, ok, p)
	}
}

func TestDirCache_InvalidateAndClear(t *testing.T) {
	c := newDirCache(10, time.Hour)
	c.put("/a", nil)
	c.put("/b", nil)

	c.invalidate("/a")
	_, ok := c.get("/a")
	assert.False(t, ok)
	_, ok = c.get("/b")
	assert.True(t, ok)

	c.clear()
	assert.Equal(t, 0, c.len())
}

func TestDirCache_PurgeExpired(t *testing.T) {
	now := time.Now()
	c := newDirCache(10, time.Minute)
	c.now = func() time.Time { return now }

	c.put("/old", nil)
	now = now.Add(2 * time.Minute)
	c.put("/new", nil)

	removed := c.purgeExpired()
	assert.Equal(t, 1, removed)
	_, ok := c.get("/new")
	assert.True(t, ok)
}
