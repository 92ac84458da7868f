package cache

import (
	"container/list"

	"github.com/ledgerstore/ledgerstore/pkg/types"
)

// lfuEntry is one slot in an lfu frequency bucket's list.
type lfuEntry struct {
	key   types.EntityKey
	value types.Entity
	found bool
	freq  int
}

// lfu is a fixed-capacity least-frequently-used snapshot cache. Ties
// within a frequency bucket evict the least-recently-touched member of
// that bucket (an LFU/LRU hybrid, the common resolution for LFU tie
// breaks). No library in this stack's dependency surface implements
// LFU — see DESIGN.md for why this one package is hand-rolled rather
// than reaching for an ecosystem dependency.
type lfu struct {
	capacity int
	minFreq  int
	items    map[types.EntityKey]*list.Element
	buckets  map[int]*list.List
}

func newLFU(capacity int) *lfu {
	if capacity <= 0 {
		capacity = 1
	}
	return &lfu{
		capacity: capacity,
		items:    make(map[types.EntityKey]*list.Element),
		buckets:  make(map[int]*list.List),
	}
}

// get returns the cached snapshot for key, bumping its frequency. The
// second return is the stored found flag (false means "known absent":
// a prior store lookup returned nothing); the third reports whether key
// is cached at all, so "known absent" and "not yet cached" differ.
func (c *lfu) get(key types.EntityKey) (types.Entity, bool, bool) {
	el, ok := c.items[key]
	if !ok {
		return nil, false, false
	}
	entry := el.Value.(*lfuEntry)
	c.touch(el, entry)
	return entry.value, entry.found, true
}

func (c *lfu) touch(el *list.Element, entry *lfuEntry) {
	oldFreq := entry.freq
	bucket := c.buckets[oldFreq]
	bucket.Remove(el)
	if bucket.Len() == 0 {
		delete(c.buckets, oldFreq)
		if c.minFreq == oldFreq {
			c.minFreq++
		}
	}
	entry.freq++
	newBucket, ok := c.buckets[entry.freq]
	if !ok {
		newBucket = list.New()
		c.buckets[entry.freq] = newBucket
	}
	c.items[entry.key] = newBucket.PushFront(entry)
}

// put inserts or updates the snapshot for key, evicting the
// least-frequently-used entry if the cache is at capacity.
func (c *lfu) put(key types.EntityKey, value types.Entity, found bool) {
	if el, ok := c.items[key]; ok {
		entry := el.Value.(*lfuEntry)
		entry.value = value
		entry.found = found
		c.touch(el, entry)
		return
	}
	if len(c.items) >= c.capacity {
		c.evict()
	}
	entry := &lfuEntry{key: key, value: value, found: found, freq: 1}
	bucket, ok := c.buckets[1]
	if !ok {
		bucket = list.New()
		c.buckets[1] = bucket
	}
	c.items[key] = bucket.PushFront(entry)
	c.minFreq = 1
}

func (c *lfu) evict() {
	bucket, ok := c.buckets[c.minFreq]
	if !ok || bucket.Len() == 0 {
		return
	}
	el := bucket.Back()
	bucket.Remove(el)
	entry := el.Value.(*lfuEntry)
	delete(c.items, entry.key)
}

// extend copies every entry of other into c via put, so other's value
// wins when a key exists in both. Frequency counts are not carried
// over: a new key starts at 1 and an existing key is bumped by one.
func (c *lfu) extend(other *lfu) {
	for key, el := range other.items {
		entry := el.Value.(*lfuEntry)
		c.put(key, entry.value, entry.found)
	}
}
