// Copyright 2016 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package provider

import (
	"github.com/stretchr/testify/assert"
	"testing"
)

func keyFor(mt string) lookupKey {
	return lookupKey{kind: KindWriter, t: stringType, mt: mt}
}

// entryFor builds a distinguishable entry for a cache key.
func entryFor(key lookupKey) []*entry {
	return []*entry{{priority: float64(len(key.mt))}}
}

type CacheAssertions struct {
	*assert.Assertions
	Cache   *lookupCache
	Fetches int
}

func NewCacheAssertions(t assert.TestingT, size int) *CacheAssertions {
	return &CacheAssertions{
		Assertions: assert.New(t),
		Cache:      newLookupCache(size),
	}
}

// Get fetches the entries for mt, filling the cache if needed, and
// checks whether that was a cache hit.
func (a *CacheAssertions) Get(mt string, hit bool) {
	entries, wasHit := a.Cache.Get(keyFor(mt), func(key lookupKey) []*entry {
		a.Fetches++
		return entryFor(key)
	})
	a.Equal(hit, wasHit, "cache hit for %v", mt)
	if a.Len(entries, 1) {
		a.Equal(float64(len(mt)), entries[0].priority)
	}
}

// Has asserts that mt is in the cache.
func (a *CacheAssertions) Has(mt string) {
	_, present := a.Cache.Peek(keyFor(mt))
	a.True(present, "cache has %v", mt)
}

// DoesNotHave asserts that mt is not in the cache.
func (a *CacheAssertions) DoesNotHave(mt string) {
	_, present := a.Cache.Peek(keyFor(mt))
	a.False(present, "cache does not have %v", mt)
}

// TestCacheAutoInsert tests Get() adding absent items.
func TestCacheAutoInsert(t *testing.T) {
	a := NewCacheAssertions(t, 2)

	a.Get("text/plain", false)
	a.Get("application/json", false)
	a.Has("text/plain")
	a.Has("application/json")
	a.Equal(2, a.Fetches)

	// Now add one more; since it is a third one, the oldest
	// (text/plain) should be evicted
	a.Get("image/png", false)
	a.DoesNotHave("text/plain")
	a.Has("application/json")
	a.Has("image/png")
}

// TestCacheOrder tests that getting an item causes it to not get
// evicted.
func TestCacheOrder(t *testing.T) {
	a := NewCacheAssertions(t, 2)

	a.Get("text/plain", false)
	a.Get("application/json", false)

	// Do an *additional* get for text/plain, so it is
	// more-recently-used
	a.Get("text/plain", true)
	a.Equal(2, a.Fetches)

	// Now when we add image/png, application/json gets pushed out
	a.Get("image/png", false)
	a.Has("text/plain")
	a.DoesNotHave("application/json")
	a.Has("image/png")
}

// TestCacheKinds tests that the same media type for different
// capabilities is cached separately.
func TestCacheKinds(t *testing.T) {
	a := NewCacheAssertions(t, 4)
	a.Get("text/plain", false)
	readerKey := lookupKey{kind: KindReader, t: stringType, mt: "text/plain"}
	_, present := a.Cache.Peek(readerKey)
	a.False(present)
	nilTypeKey := lookupKey{kind: KindWriter, t: nil, mt: "text/plain"}
	_, present = a.Cache.Peek(nilTypeKey)
	a.False(present)
}

// TestCachePurge tests emptying the cache.
func TestCachePurge(t *testing.T) {
	a := NewCacheAssertions(t, 2)
	a.Get("text/plain", false)
	a.Get("application/json", false)
	a.Equal(2, a.Cache.Len())

	a.Cache.Purge()
	a.Equal(0, a.Cache.Len())
	a.DoesNotHave("text/plain")
	a.Get("text/plain", false)
	a.Equal(3, a.Fetches)
}
