package redis

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/redis/go-redis/v9"

	"github.com/alphavault/fundd/internal/domain"
)

// PriceCache implements domain.PriceCache using Redis hashes. Each feed's
// quote is stored as a hash at key "quote:{feed}" with fields "price"
// (decimal string), "decimals", and "ts" (Unix nanosecond timestamp).
type PriceCache struct {
	rdb *redis.Client
}

// NewPriceCache creates a PriceCache backed by the given Client.
func NewPriceCache(c *Client) *PriceCache {
	return &PriceCache{rdb: c.raw()}
}

func quoteKey(feed common.Address) string {
	return "quote:" + feed.Hex()
}

// SetQuote stores the latest quote for a feed.
func (pc *PriceCache) SetQuote(ctx context.Context, feed common.Address, q domain.Quote) error {
	if q.Price == nil {
		return fmt.Errorf("redis: set quote %s: nil price", feed.Hex())
	}
	fields := map[string]interface{}{
		"price":    q.Price.String(),
		"decimals": strconv.FormatUint(uint64(q.Decimals), 10),
		"ts":       strconv.FormatInt(q.At.UnixNano(), 10),
	}
	if err := pc.rdb.HSet(ctx, quoteKey(feed), fields).Err(); err != nil {
		return fmt.Errorf("redis: set quote %s: %w", feed.Hex(), err)
	}
	return nil
}

// GetQuote retrieves the latest quote for a feed. It returns
// domain.ErrCacheMiss when no quote has been written.
func (pc *PriceCache) GetQuote(ctx context.Context, feed common.Address) (domain.Quote, error) {
	vals, err := pc.rdb.HGetAll(ctx, quoteKey(feed)).Result()
	if err != nil {
		return domain.Quote{}, fmt.Errorf("redis: get quote %s: %w", feed.Hex(), err)
	}
	if len(vals) == 0 {
		return domain.Quote{}, domain.ErrCacheMiss
	}
	return parseQuote(feed, vals)
}

// GetQuotes retrieves quotes for multiple feeds using a pipeline. Feeds
// without a cached quote are silently omitted from the result map.
func (pc *PriceCache) GetQuotes(ctx context.Context, feeds []common.Address) (map[common.Address]domain.Quote, error) {
	if len(feeds) == 0 {
		return map[common.Address]domain.Quote{}, nil
	}

	pipe := pc.rdb.Pipeline()
	cmds := make(map[common.Address]*redis.MapStringStringCmd, len(feeds))
	for _, feed := range feeds {
		cmds[feed] = pipe.HGetAll(ctx, quoteKey(feed))
	}

	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("redis: get quotes pipeline: %w", err)
	}

	result := make(map[common.Address]domain.Quote, len(feeds))
	for feed, cmd := range cmds {
		vals, err := cmd.Result()
		if err != nil || len(vals) == 0 {
			continue
		}
		q, err := parseQuote(feed, vals)
		if err != nil {
			continue
		}
		result[feed] = q
	}
	return result, nil
}

// parseQuote decodes the hash fields of a stored quote.
func parseQuote(feed common.Address, vals map[string]string) (domain.Quote, error) {
	priceStr, ok := vals["price"]
	if !ok {
		return domain.Quote{}, domain.ErrCacheMiss
	}
	price, ok := new(big.Int).SetString(priceStr, 10)
	if !ok {
		return domain.Quote{}, fmt.Errorf("redis: parse quote price %s: invalid %q", feed.Hex(), priceStr)
	}

	decimals, err := strconv.ParseUint(vals["decimals"], 10, 8)
	if err != nil {
		return domain.Quote{}, fmt.Errorf("redis: parse quote decimals %s: %w", feed.Hex(), err)
	}

	tsNano, err := strconv.ParseInt(vals["ts"], 10, 64)
	if err != nil {
		return domain.Quote{}, fmt.Errorf("redis: parse quote ts %s: %w", feed.Hex(), err)
	}

	return domain.Quote{
		Price:    price,
		Decimals: uint8(decimals),
		At:       time.Unix(0, tsNano),
	}, nil
}

// Compile-time interface check.
var _ domain.PriceCache = (*PriceCache)(nil)
