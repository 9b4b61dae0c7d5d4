package safewalk

// identityCache answers "was a file with this (device, inode) identity
// already accepted?" in O(1), under a hard memory ceiling.
//
// Eviction is strictly insertion-order FIFO, not LRU. Each distinct identity
// is admitted at most once per traversal, so every later sighting of a
// cached key is rejected by tryAdmit itself and "oldest inserted" coincides
// with "least recently used" for this access pattern. The only scaling
// concern is memory, so a set plus an insertion-ordered queue suffices.
//
// Consequence of the bounded memory: once the cache saturates and an old key
// is evicted, a hardlink whose first member was evicted can be admitted and
// yielded a second time in the same traversal. That trade-off is deliberate
// and covered by tests.
type identityCache struct {
	capacity int
	seen     map[fileIdentity]struct{}
	fifo     []fileIdentity
}

func newIdentityCache(capacity int) *identityCache {
	return &identityCache{
		capacity: capacity,
		seen:     make(map[fileIdentity]struct{}),
	}
}

// tryAdmit returns false if id is already cached (duplicate). Otherwise it
// inserts id, evicting the oldest-inserted key first when at capacity, and
// returns true.
func (c *identityCache) tryAdmit(id fileIdentity) bool {
	if _, dup := c.seen[id]; dup {
		return false
	}
	if len(c.seen) >= c.capacity {
		oldest := c.fifo[0]
		c.fifo = c.fifo[1:]
		delete(c.seen, oldest)
	}
	c.seen[id] = struct{}{}
	c.fifo = append(c.fifo, id)
	return true
}

func (c *identityCache) len() int { return len(c.seen) }

// clear discards all cached identities.
func (c *identityCache) clear() {
	c.seen = make(map[fileIdentity]struct{})
	c.fifo = nil
}
