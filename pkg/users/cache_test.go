package users

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCache(t *testing.T) {
	c, err := NewCache(0)
	require.NoError(t, err)
	assert.IsType(t, &SetCache{}, c)

	c, err = NewCache(10)
	require.NoError(t, err)
	assert.IsType(t, &LRUCache{}, c)
}

func TestCaches_ConcurrentAccess(t *testing.T) {
	lruCache, err := NewLRUCache(1000)
	require.NoError(t, err)

	for name, cache := range map[string]Cache{"set": NewSetCache(), "lru": lruCache} {
		t.Run(name, func(t *testing.T) {
			var wg sync.WaitGroup
			for i := 0; i < 50; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					subject := fmt.Sprintf("00u%d", i%10)
					cache.Add(subject)
					assert.True(t, cache.Has(subject))
				}(i)
			}
			wg.Wait()

			assert.Equal(t, 10, cache.Len())
			assert.False(t, cache.Has("00u-unknown"))
		})
	}
}

func TestLRUCache_Evicts(t *testing.T) {
	cache, err := NewLRUCache(2)
	require.NoError(t, err)

	cache.Add("a")
	cache.Add("b")
	cache.Add("c")

	assert.False(t, cache.Has("a"))
	assert.True(t, cache.Has("b"))
	assert.True(t, cache.Has("c"))
	assert.Equal(t, 2, cache.Len())
}
