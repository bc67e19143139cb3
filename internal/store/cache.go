package store

import (
	"container/list"
	"encoding/json"

	"dailyCheckAPI/internal/user"
)

type cacheEntry struct {
	id    int64
	user  *user.User
	dirty bool
	// pending holds the record encoded at the moment it was last marked
	// dirty. The flusher writes these bytes, never the live struct, so
	// it cannot observe a record mid-mutation.
	pending json.RawMessage
	// gen increments on every dirty mark, so a flush can tell whether
	// the record changed again while it was being written.
	gen uint64
}

// lruCache keeps decoded user records in recency order. It is not
// goroutine safe; the store's mutex covers all access.
type lruCache struct {
	order   *list.List
	entries map[int64]*list.Element
}

func newLRUCache() *lruCache {
	return &lruCache{
		order:   list.New(),
		entries: make(map[int64]*list.Element),
	}
}

func (c *lruCache) get(id int64) (*cacheEntry, bool) {
	el, ok := c.entries[id]
	if !ok {
		return nil, false
	}
	c.order.MoveToFront(el)
	return el.Value.(*cacheEntry), true
}

// peek returns the entry without touching recency.
func (c *lruCache) peek(id int64) (*cacheEntry, bool) {
	el, ok := c.entries[id]
	if !ok {
		return nil, false
	}
	return el.Value.(*cacheEntry), true
}

func (c *lruCache) put(id int64, u *user.User, pending json.RawMessage) *cacheEntry {
	if el, ok := c.entries[id]; ok {
		entry := el.Value.(*cacheEntry)
		entry.user = u
		if pending != nil {
			entry.dirty = true
			entry.pending = pending
			entry.gen++
		}
		c.order.MoveToFront(el)
		return entry
	}
	entry := &cacheEntry{id: id, user: u}
	if pending != nil {
		entry.dirty = true
		entry.pending = pending
		entry.gen = 1
	}
	c.entries[id] = c.order.PushFront(entry)
	return entry
}

func (c *lruCache) markDirty(id int64, pending json.RawMessage) bool {
	el, ok := c.entries[id]
	if !ok {
		return false
	}
	entry := el.Value.(*cacheEntry)
	entry.dirty = true
	entry.pending = pending
	entry.gen++
	c.order.MoveToFront(el)
	return true
}

func (c *lruCache) remove(id int64) {
	if el, ok := c.entries[id]; ok {
		c.order.Remove(el)
		delete(c.entries, id)
	}
}

// evictOldestClean drops the least recently used clean entry, never
// the one named by keep. It reports false when no candidate remains, in
// which case nothing is evicted; dropping a dirty record would lose
// unflushed changes.
func (c *lruCache) evictOldestClean(keep int64) (int64, bool) {
	for el := c.order.Back(); el != nil; el = el.Prev() {
		entry := el.Value.(*cacheEntry)
		if !entry.dirty && entry.id != keep {
			c.order.Remove(el)
			delete(c.entries, entry.id)
			return entry.id, true
		}
	}
	return 0, false
}

func (c *lruCache) len() int {
	return c.order.Len()
}

func (c *lruCache) dirtyCount() int {
	n := 0
	for _, el := range c.entries {
		if el.Value.(*cacheEntry).dirty {
			n++
		}
	}
	return n
}

func (c *lruCache) dirtyEntries() []*cacheEntry {
	var out []*cacheEntry
	for _, el := range c.entries {
		entry := el.Value.(*cacheEntry)
		if entry.dirty {
			out = append(out, entry)
		}
	}
	return out
}
