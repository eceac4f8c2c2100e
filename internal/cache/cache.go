package cache

import (
	"container/list"
	"sync"
	"time"
)

const (
	// DefaultMaxSize is the default maximum number of items in cache
	DefaultMaxSize = 1000
	// DefaultExpiry is the default expiration duration for cache items
	DefaultExpiry = 5 * time.Minute
	// DefaultCleanupInterval is how often to run cleanup of expired items
	DefaultCleanupInterval = 1 * time.Minute
)

// Item represents a cached item with expiration time
type Item[K comparable, V any] struct {
	Key       K
	Value     V
	ExpiresAt time.Time
}

// IsExpired checks if the item has expired
func (i *Item[K, V]) IsExpired() bool {
	return time.Now().After(i.ExpiresAt)
}

// Cache is a size-bounded in-memory cache with per-item expiry. When full,
// the least recently used entry is evicted.
type Cache[K comparable, V any] struct {
	mu              sync.Mutex
	items           map[K]*list.Element
	order           *list.List // front is most recently used
	maxSize         int
	defaultExpiry   time.Duration
	cleanupInterval time.Duration
	stopCleanup     chan struct{}
	cleanupStarted  bool
	hits, misses    uint64
}

// New creates a new cache with default settings
func New[K comparable, V any]() *Cache[K, V] {
	return NewWithConfig[K, V](DefaultMaxSize, DefaultExpiry, DefaultCleanupInterval)
}

// NewWithConfig creates a new cache with custom configuration
func NewWithConfig[K comparable, V any](maxSize int, defaultExpiry, cleanupInterval time.Duration) *Cache[K, V] {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	c := &Cache[K, V]{
		items:           make(map[K]*list.Element),
		order:           list.New(),
		maxSize:         maxSize,
		defaultExpiry:   defaultExpiry,
		cleanupInterval: cleanupInterval,
		stopCleanup:     make(chan struct{}),
	}

	if cleanupInterval > 0 {
		c.startCleanup()
	}

	return c
}

// Set stores an item in the cache with default expiry
func (c *Cache[K, V]) Set(key K, value V) {
	c.SetWithExpiry(key, value, c.defaultExpiry)
}

// SetWithExpiry stores an item in the cache with custom expiry
func (c *Cache[K, V]) SetWithExpiry(key K, value V, expiry time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	expiresAt := time.Now().Add(expiry)
	if el, ok := c.items[key]; ok {
		item := el.Value.(*Item[K, V])
		item.Value = value
		item.ExpiresAt = expiresAt
		c.order.MoveToFront(el)
		return
	}

	if len(c.items) >= c.maxSize {
		c.evictOldest()
	}

	c.items[key] = c.order.PushFront(&Item[K, V]{Key: key, Value: value, ExpiresAt: expiresAt})
}

// Add stores value only when key is absent or expired. It reports whether
// the value was stored.
func (c *Cache[K, V]) Add(key K, value V) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		if !el.Value.(*Item[K, V]).IsExpired() {
			return false
		}
		c.removeElement(el)
	}

	if len(c.items) >= c.maxSize {
		c.evictOldest()
	}
	c.items[key] = c.order.PushFront(&Item[K, V]{Key: key, Value: value, ExpiresAt: time.Now().Add(c.defaultExpiry)})
	return true
}

// Get retrieves an item from the cache
func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	el, ok := c.items[key]
	if !ok {
		c.misses++
		return zero, false
	}

	item := el.Value.(*Item[K, V])
	if item.IsExpired() {
		c.removeElement(el)
		c.misses++
		return zero, false
	}

	c.hits++
	c.order.MoveToFront(el)
	return item.Value, true
}

// Delete removes an item from the cache
func (c *Cache[K, V]) Delete(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.items[key]; ok {
		c.removeElement(el)
	}
}

// Size returns the current number of items in the cache
func (c *Cache[K, V]) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Stats returns cache statistics
type Stats struct {
	Size          int
	MaxSize       int
	DefaultExpiry time.Duration
	ExpiredItems  int
	Hits          uint64
	Misses        uint64
}

// GetStats returns current cache statistics
func (c *Cache[K, V]) GetStats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	expired := 0
	now := time.Now()
	for _, el := range c.items {
		if now.After(el.Value.(*Item[K, V]).ExpiresAt) {
			expired++
		}
	}

	return Stats{
		Size:          len(c.items),
		MaxSize:       c.maxSize,
		DefaultExpiry: c.defaultExpiry,
		ExpiredItems:  expired,
		Hits:          c.hits,
		Misses:        c.misses,
	}
}

// Close stops the cleanup goroutine
func (c *Cache[K, V]) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cleanupStarted {
		close(c.stopCleanup)
		c.cleanupStarted = false
	}
}

func (c *Cache[K, V]) startCleanup() {
	c.cleanupStarted = true

	go func() {
		ticker := time.NewTicker(c.cleanupInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				c.cleanupExpired()
			case <-c.stopCleanup:
				return
			}
		}
	}()
}

func (c *Cache[K, V]) cleanupExpired() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	for _, el := range c.items {
		if now.After(el.Value.(*Item[K, V]).ExpiresAt) {
			c.removeElement(el)
		}
	}
}

// evictOldest drops the least recently used entry. Callers hold mu.
func (c *Cache[K, V]) evictOldest() {
	if el := c.order.Back(); el != nil {
		c.removeElement(el)
	}
}

func (c *Cache[K, V]) removeElement(el *list.Element) {
	item := c.order.Remove(el).(*Item[K, V])
	delete(c.items, item.Key)
}
