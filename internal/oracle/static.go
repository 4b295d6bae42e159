// Package oracle provides price-feed implementations of domain.Oracle.
package oracle

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/alphavault/fundd/internal/domain"
)

// Static serves manually-set quotes from memory. It backs tests and
// manual operation; production deployments use FeedCache.
type Static struct {
	mu     sync.RWMutex
	quotes map[common.Address]domain.Quote
}

// NewStatic creates an empty static oracle.
func NewStatic() *Static {
	return &Static{quotes: make(map[common.Address]domain.Quote)}
}

// Set stores a quote for a feed. The price is copied.
func (s *Static) Set(feed common.Address, price *big.Int, decimals uint8) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.quotes[feed] = domain.Quote{Price: new(big.Int).Set(price), Decimals: decimals}
}

// LatestPrice returns the stored quote for a feed.
func (s *Static) LatestPrice(_ context.Context, feed common.Address) (*big.Int, uint8, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	q, ok := s.quotes[feed]
	if !ok {
		return nil, 0, fmt.Errorf("oracle: no quote for feed %s: %w", feed.Hex(), domain.ErrInvalidPrice)
	}
	return new(big.Int).Set(q.Price), q.Decimals, nil
}

var _ domain.Oracle = (*Static)(nil)
