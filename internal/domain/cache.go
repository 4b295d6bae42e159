package domain

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// PriceCache provides fast access to the latest oracle quotes, keyed by
// price feed address. An external feeder process writes quotes; the engine
// reads them through an Oracle backed by this cache.
type PriceCache interface {
	SetQuote(ctx context.Context, feed common.Address, q Quote) error
	GetQuote(ctx context.Context, feed common.Address) (Quote, error)
	GetQuotes(ctx context.Context, feeds []common.Address) (map[common.Address]Quote, error)
}

// RateLimiter provides distributed rate limiting.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
	Wait(ctx context.Context, key string) error
}

// LockManager provides distributed locking.
type LockManager interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (unlock func(), err error)
}

// StreamMessage represents a single entry from a Redis stream.
type StreamMessage struct {
	ID      string
	Payload []byte
}

// SignalBus provides pub/sub and durable streams for fund events.
type SignalBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
	StreamAppend(ctx context.Context, stream string, payload []byte) error
	StreamRead(ctx context.Context, stream string, lastID string, count int) ([]StreamMessage, error)
}
