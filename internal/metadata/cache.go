package metadata

import (
	"strings"
	"sync"
	"time"
)

type catalogEntry struct {
	doc       string
	expiresAt time.Time
}

// catalogCache keeps recently read catalog documents (dataset and series
// JSON) in memory so repeated lookups skip the etcd round trip. Writes
// go through the manager, which refreshes or evicts the affected keys.
type catalogCache struct {
	mu      sync.RWMutex
	entries map[string]catalogEntry
	ttl     time.Duration
	stopCh  chan struct{}
}

func newCatalogCache(ttl time.Duration) *catalogCache {
	c := &catalogCache{
		entries: make(map[string]catalogEntry),
		ttl:     ttl,
		stopCh:  make(chan struct{}),
	}
	go c.sweep()
	return c
}

// Get returns the cached document for key, if present and fresh.
func (c *catalogCache) Get(key string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[key]
	if !ok || time.Now().After(entry.expiresAt) {
		return "", false
	}
	return entry.doc, true
}

// Set stores a document under key for the cache TTL.
func (c *catalogCache) Set(key, doc string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = catalogEntry{
		doc:       doc,
		expiresAt: time.Now().Add(c.ttl),
	}
}

// Delete evicts a single key.
func (c *catalogCache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, key)
}

// DeletePrefix evicts every key under prefix. Used when a dataset is
// dropped and all of its series documents go with it.
func (c *catalogCache) DeletePrefix(prefix string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key := range c.entries {
		if strings.HasPrefix(key, prefix) {
			delete(c.entries, key)
		}
	}
}

func (c *catalogCache) sweep() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			now := time.Now()
			c.mu.Lock()
			for key, entry := range c.entries {
				if now.After(entry.expiresAt) {
					delete(c.entries, key)
				}
			}
			c.mu.Unlock()
		case <-c.stopCh:
			return
		}
	}
}

// Stop ends the background sweep goroutine.
func (c *catalogCache) Stop() {
	close(c.stopCh)
}
