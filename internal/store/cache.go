package store

import (
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/lazypower/vitality/internal/vitality"
)

// Cache holds recently loaded states keyed by agent id. It must be
// invalidated when another process rewrites an agent's file.
type Cache struct {
	mu     sync.RWMutex
	states map[string]vitality.State
	loads  singleflight.Group
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{states: make(map[string]vitality.State)}
}

// Get returns a copy of the cached state for agentID.
func (c *Cache) Get(agentID string) (vitality.State, bool) {
	if c == nil {
		return vitality.State{}, false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.states[agentID]
	if !ok {
		return vitality.State{}, false
	}
	return s.Clone(), true
}

// Put stores a copy of s.
func (c *Cache) Put(s vitality.State) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.states[s.AgentID] = s.Clone()
}

// Invalidate drops one agent so the next load re-reads its file.
func (c *Cache) Invalidate(agentID string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.states, agentID)
}

// InvalidateAll empties the cache.
func (c *Cache) InvalidateAll() {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.states = make(map[string]vitality.State)
}

// Len returns the number of cached agents.
func (c *Cache) Len() int {
	if c == nil {
		return 0
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.states)
}
