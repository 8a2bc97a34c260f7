package chain

import (
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"github.com/san-kum/raddecay/internal/nucdata"
)

// DefaultCacheSize bounds the number of roots kept by a Cache.
const DefaultCacheSize = 1024

// Cache memoises built chains by root. Chains are keyed by immutable inputs
// and evicted least-recently-used. Safe for concurrent use.
type Cache struct {
	chains *lru.Cache[nucdata.ID, *Chain]
	flight singleflight.Group

	hits   atomic.Int64
	misses atomic.Int64
}

func NewCache(size int) (*Cache, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	chains, err := lru.New[nucdata.ID, *Chain](size)
	if err != nil {
		return nil, err
	}
	return &Cache{chains: chains}, nil
}

func (c *Cache) get(root nucdata.ID) (*Chain, bool) {
	ch, ok := c.chains.Get(root)
	if ok {
		c.hits.Add(1)
	} else {
		c.misses.Add(1)
	}
	return ch, ok
}

// getOrBuild returns the cached chain or runs build once for all concurrent
// callers asking for the same root. Failed builds are not cached.
func (c *Cache) getOrBuild(root nucdata.ID, build func() (*Chain, error)) (*Chain, error) {
	if ch, ok := c.get(root); ok {
		return ch, nil
	}

	v, err, _ := c.flight.Do(string(root), func() (any, error) {
		ch, err := build()
		if err != nil {
			return nil, err
		}
		c.chains.Add(root, ch)
		return ch, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Chain), nil
}

func (c *Cache) Len() int { return c.chains.Len() }

func (c *Cache) Purge() { c.chains.Purge() }

// Stats returns cumulative lookup hits and misses.
func (c *Cache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}
