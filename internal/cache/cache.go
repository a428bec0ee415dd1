// Package cache provides a fixed-capacity key/value cache that evicts in
// insertion order.
package cache

import (
	"container/list"
	"sync"
)

type entry[K comparable, V any] struct {
	key   K
	value V
}

// Cache is a FIFO cache. Reads never change eviction order and replacing an
// existing key keeps its original position. A capacity of zero or less
// disables caching.
type Cache[K comparable, V any] struct {
	mu       sync.Mutex
	capacity int
	order    *list.List
	items    map[K]*list.Element

	// OnEvict, if set, is called with the entry dropped to make room.
	OnEvict func(key K, value V)
}

func New[K comparable, V any](capacity int) *Cache[K, V] {
	return &Cache[K, V]{
		capacity: capacity,
		order:    list.New(),
		items:    make(map[K]*list.Element),
	}
}

func (c *Cache[K, V]) Put(key K, value V) {
	if c.capacity <= 0 {
		return
	}
	c.mu.Lock()
	if el, ok := c.items[key]; ok {
		el.Value.(*entry[K, V]).value = value
		c.mu.Unlock()
		return
	}
	var evicted *entry[K, V]
	if c.order.Len() >= c.capacity {
		oldest := c.order.Front()
		evicted = c.order.Remove(oldest).(*entry[K, V])
		delete(c.items, evicted.key)
	}
	c.items[key] = c.order.PushBack(&entry[K, V]{key: key, value: value})
	hook := c.OnEvict
	c.mu.Unlock()

	if evicted != nil && hook != nil {
		hook(evicted.key, evicted.value)
	}
}

func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.items[key]; ok {
		return el.Value.(*entry[K, V]).value, true
	}
	var zero V
	return zero, false
}

// Remove drops key and returns the value it held.
func (c *Cache[K, V]) Remove(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.items[key]
	if !ok {
		var zero V
		return zero, false
	}
	delete(c.items, key)
	return c.order.Remove(el).(*entry[K, V]).value, true
}

func (c *Cache[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.order.Init()
	c.items = make(map[K]*list.Element)
}

func (c *Cache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Keys returns the cached keys, oldest first.
func (c *Cache[K, V]) Keys() []K {
	c.mu.Lock()
	defer c.mu.Unlock()
	keys := make([]K, 0, c.order.Len())
	for el := c.order.Front(); el != nil; el = el.Next() {
		keys = append(keys, el.Value.(*entry[K, V]).key)
	}
	return keys
}
