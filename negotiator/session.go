package negotiator

import (
	"sync"

	"github.com/xraph/flowstream/id"
)

// session is one per-target cache entry: the stream currently bound to a
// provider host and the mode it was negotiated under.
type session struct {
	streamID id.StreamID
	mode     string
}

// sessionCache is the negotiator's per-target stream cache. Explicit
// get/set/clear keyed by target, never ambient shared state; entries for a
// target are replaced wholesale and cleared when negotiation fails.
type sessionCache struct {
	mu      sync.RWMutex
	entries map[string]session
}

func newSessionCache() *sessionCache {
	return &sessionCache{entries: make(map[string]session)}
}

func (c *sessionCache) get(target string) (session, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	s, ok := c.entries[target]
	return s, ok
}

func (c *sessionCache) set(target string, s session) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[target] = s
}

func (c *sessionCache) clear(target string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, target)
}
