package oracle

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/alphavault/fundd/internal/domain"
)

// FeedCache resolves prices through the Redis-backed price cache. An
// external feeder process keeps the cache warm; a missing entry surfaces
// as an invalid price so the enclosing operation aborts cleanly.
type FeedCache struct {
	cache domain.PriceCache
}

// NewFeedCache creates an oracle over the given price cache.
func NewFeedCache(cache domain.PriceCache) *FeedCache {
	return &FeedCache{cache: cache}
}

// LatestPrice returns the cached quote for a feed.
func (o *FeedCache) LatestPrice(ctx context.Context, feed common.Address) (*big.Int, uint8, error) {
	q, err := o.cache.GetQuote(ctx, feed)
	if err != nil {
		if errors.Is(err, domain.ErrCacheMiss) {
			return nil, 0, fmt.Errorf("oracle: feed %s not in cache: %w", feed.Hex(), domain.ErrInvalidPrice)
		}
		return nil, 0, fmt.Errorf("oracle: feed %s: %w", feed.Hex(), err)
	}
	return q.Price, q.Decimals, nil
}

var _ domain.Oracle = (*FeedCache)(nil)
