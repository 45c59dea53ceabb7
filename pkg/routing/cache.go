package routing

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/azybler/ev_router/pkg/geo"
)

// AnchorCache memoizes Anchor results of the wrapped Router. Table and Route
// pass through unchanged.
type AnchorCache struct {
	Router
	cache *lru.Cache[geo.LatLng, AnchorPair]
}

// NewAnchorCache wraps r with an LRU of the given size.
func NewAnchorCache(r Router, size int) (*AnchorCache, error) {
	cache, err := lru.New[geo.LatLng, AnchorPair](size)
	if err != nil {
		return nil, fmt.Errorf("create anchor cache: %w", err)
	}
	return &AnchorCache{Router: r, cache: cache}, nil
}

// Anchor returns the cached pair for p or resolves and caches it. Failures
// are not cached.
func (c *AnchorCache) Anchor(ctx context.Context, p geo.LatLng) (AnchorPair, error) {
	if pair, ok := c.cache.Get(p); ok {
		return pair, nil
	}
	pair, err := c.Router.Anchor(ctx, p)
	if err != nil {
		return AnchorPair{}, err
	}
	c.cache.Add(p, pair)
	return pair, nil
}

// Len returns the number of cached entries.
func (c *AnchorCache) Len() int { return c.cache.Len() }
