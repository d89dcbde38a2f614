package util

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithConfigRequiresALimit(t *testing.T) {
	_, err := NewWithConfig[string, int](CacheConfig{})
	assert.Error(t, err)
}

func TestLRUEvictsLeastRecentlyUsed(t *testing.T) {
	c, err := NewWithConfig[string, int](CacheConfig{Capacity: 2})
	require.NoError(t, err)

	c.Put("a", 1, 1)
	c.Put("b", 2, 1)
	_, _ = c.Get("a")
	c.Put("c", 3, 1)

	_, ok := c.Get("b")
	assert.False(t, ok)
	v, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 1, v)
	assert.Equal(t, 2, c.Len())
}

func TestLRUWeightLimit(t *testing.T) {
	c, err := NewWithConfig[string, string](CacheConfig{MaxWeight: 10})
	require.NoError(t, err)
	c.Put("small", "x", 4)
	c.Put("big", "y", 8)
	_, ok := c.Get("small")
	assert.False(t, ok)
	assert.Equal(t, 8, c.Weight())
}

func TestLRUTTLExpires(t *testing.T) {
	c, err := NewWithConfig[string, int](CacheConfig{Capacity: 4, TTL: time.Minute})
	require.NoError(t, err)
	now := time.Unix(1000, 0)
	c.now = func() time.Time { return now }

	c.Put("k", 1, 1)
	now = now.Add(2 * time.Minute)
	_, ok := c.Get("k")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}

func TestGetOrPutCreatesOnce(t *testing.T) {
	c, err := NewWithConfig[string, *int](CacheConfig{Capacity: 8})
	require.NoError(t, err)

	var (
		mu      sync.Mutex
		created int
		wg      sync.WaitGroup
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.GetOrPut("tenant", func() *int {
				mu.Lock()
				created++
				mu.Unlock()
				v := 1
				return &v
			}, 1)
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, created)
}

func TestRemove(t *testing.T) {
	c, err := NewWithConfig[string, int](CacheConfig{Capacity: 2})
	require.NoError(t, err)
	c.Put("a", 1, 1)
	c.Remove("a")
	c.Remove("missing")
	assert.Equal(t, 0, c.Len())
}
