package users

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Cache is a concurrent set of subjects already known to exist in the store.
// It is never a source of truth: a miss only costs an idempotent upsert.
type Cache interface {
	Has(subject string) bool
	Add(subject string)
	Len() int
}

// SetCache is an unbounded Cache
type SetCache struct {
	m    sync.Map
	size int64
	mu   sync.Mutex
}

// NewSetCache creates an unbounded cache
func NewSetCache() *SetCache {
	return &SetCache{}
}

func (c *SetCache) Has(subject string) bool {
	_, ok := c.m.Load(subject)
	return ok
}

func (c *SetCache) Add(subject string) {
	if _, loaded := c.m.LoadOrStore(subject, struct{}{}); !loaded {
		c.mu.Lock()
		c.size++
		c.mu.Unlock()
	}
}

func (c *SetCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return int(c.size)
}

// LRUCache is a Cache holding at most a fixed number of subjects
type LRUCache struct {
	cache *lru.Cache[string, struct{}]
}

// NewLRUCache creates a bounded cache evicting least recently seen subjects
func NewLRUCache(size int) (*LRUCache, error) {
	cache, err := lru.New[string, struct{}](size)
	if err != nil {
		return nil, err
	}
	return &LRUCache{cache: cache}, nil
}

func (c *LRUCache) Has(subject string) bool {
	_, ok := c.cache.Get(subject)
	return ok
}

func (c *LRUCache) Add(subject string) {
	c.cache.Add(subject, struct{}{})
}

func (c *LRUCache) Len() int {
	return c.cache.Len()
}

// NewCache returns an unbounded cache for size 0 and an LRU cache otherwise
func NewCache(size int) (Cache, error) {
	if size <= 0 {
		return NewSetCache(), nil
	}
	return NewLRUCache(size)
}
