package api

import (
	"crypto/sha256"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/joshharrison/critpath/internal/graph"
)

// cacheKey identifies an engine-level snapshot by content.
type cacheKey [sha256.Size]byte

// snapshotKey hashes tasks and links in input order. Quoting keeps ids
// containing separators from colliding.
func snapshotKey(tasks []graph.Task, links []graph.DependencyLink) cacheKey {
	h := sha256.New()
	for _, t := range tasks {
		fmt.Fprintf(h, "t %q %d\n", t.ID, t.Duration)
	}
	for _, l := range links {
		fmt.Fprintf(h, "l %q %q %d\n", l.Source, l.Target, l.Kind)
	}
	var key cacheKey
	h.Sum(key[:0])
	return key
}

// resultCache is a bounded LRU of finished analyses. A zero capacity
// disables caching.
type resultCache struct {
	lru *lru.Cache[cacheKey, *analysis]
}

func newResultCache(capacity int) *resultCache {
	if capacity <= 0 {
		return &resultCache{}
	}
	// lru.New only fails for a non-positive size.
	c, _ := lru.New[cacheKey, *analysis](capacity)
	return &resultCache{lru: c}
}

func (c *resultCache) Get(key cacheKey) (*analysis, bool) {
	if c.lru == nil {
		return nil, false
	}
	return c.lru.Get(key)
}

func (c *resultCache) Add(key cacheKey, value *analysis) {
	if c.lru == nil {
		return
	}
	c.lru.Add(key, value)
}

func (c *resultCache) Len() int {
	if c.lru == nil {
		return 0
	}
	return c.lru.Len()
}
