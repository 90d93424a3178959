// Copyright 2016 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package provider

// This file provides a simple LRU cache of provider lookups.  The
// cache is keyed by everything that goes into a lookup except the
// provider instances themselves, and holds the sorted candidate list,
// so repeated lookups of the same Go type and media type skip the
// scoring and sorting.

import (
	"container/list"
	"reflect"
	"sync"
)

// defaultCacheSize is the number of lookups a registry remembers.
const defaultCacheSize = 1024

// lookupKey identifies one lookup.  mt is the media type without
// parameters.
type lookupKey struct {
	kind Kind
	t    reflect.Type
	mt   string
}

type cached struct {
	key     lookupKey
	entries []*entry
}

// lookupCache is a least-recently-used cache with a fixed capacity.
// The cache can be safely accessed from multiple goroutines.
type lookupCache struct {
	size      int
	lock      sync.RWMutex
	evictList *list.List
	index     map[lookupKey]*list.Element
}

func newLookupCache(size int) *lookupCache {
	return &lookupCache{
		size:      size,
		evictList: list.New(),
		index:     make(map[lookupKey]*list.Element),
	}
}

// Get retrieves a lookup result from the cache.  If it is not
// present, calls the fetch function and saves its result.  The second
// return value is true if the result came from the cache.
func (c *lookupCache) Get(key lookupKey, fetch func(lookupKey) []*entry) ([]*entry, bool) {
	// This sadly happens under a writer lock, since we need to move
	// the item to the end of the list if it is present
	c.lock.Lock()
	defer c.lock.Unlock()

	if element, present := c.index[key]; present {
		c.evictList.MoveToBack(element)
		return element.Value.(*cached).entries, true
	}

	entries := fetch(key)
	c.add(&cached{key: key, entries: entries})
	return entries, false
}

// Peek looks for a lookup result in the cache without affecting its
// recency.
func (c *lookupCache) Peek(key lookupKey) ([]*entry, bool) {
	c.lock.RLock()
	defer c.lock.RUnlock()

	if element, present := c.index[key]; present {
		return element.Value.(*cached).entries, true
	}
	return nil, false
}

// Len returns the number of lookups currently cached.
func (c *lookupCache) Len() int {
	c.lock.RLock()
	defer c.lock.RUnlock()
	return len(c.index)
}

// Purge empties the cache.
func (c *lookupCache) Purge() {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.evictList.Init()
	c.index = make(map[lookupKey]*list.Element)
}

// add is an internal helper, running under the write lock, that adds a
// new item to the cache.  The item is known to not already exist.
func (c *lookupCache) add(item *cached) {
	element := c.evictList.PushBack(item)
	c.index[item.key] = element

	// If this caused the cache to go over size, start evicting items
	for len(c.index) > c.size {
		head := c.evictList.Front()
		item := head.Value.(*cached)
		delete(c.index, item.key)
		c.evictList.Remove(head)
	}
}
