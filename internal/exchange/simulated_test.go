package exchange

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alphavault/fundd/internal/domain"
	"github.com/alphavault/fundd/internal/fixedpoint"
	"github.com/alphavault/fundd/internal/oracle"
)

var (
	token = common.HexToAddress("0x0000000000000000000000000000000000000101")
	feed  = common.HexToAddress("0x0000000000000000000000000000000000000201")
)

func newVenue(t *testing.T, price *big.Int, decimals uint8, slippageBps int64) *Simulated {
	t.Helper()
	orc := oracle.NewStatic()
	orc.Set(feed, price, decimals)
	return NewSimulated(orc, map[common.Address]common.Address{token: feed}, slippageBps)
}

func e18(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), fixedpoint.Precision)
}

func TestSwapBaseForTokenAtOraclePrice(t *testing.T) {
	// Price 2.0: 100 base buys 50 tokens at zero slippage.
	v := newVenue(t, e18(2), 18, 0)

	out, err := v.Swap(context.Background(), domain.BaseCurrency, token, e18(100), nil, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, e18(50), out)
}

func TestSwapTokenForBaseAppliesSlippage(t *testing.T) {
	// Price 2.0 with a 1% haircut: 50 tokens yield 99 base.
	v := newVenue(t, e18(2), 18, 100)

	out, err := v.Swap(context.Background(), token, domain.BaseCurrency, e18(50), nil, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, e18(99), out)
}

func TestSwapHonorsMinAmountOut(t *testing.T) {
	v := newVenue(t, e18(2), 18, 100)

	// 50 tokens fill at 99 base; a 100-base floor rejects the trade.
	_, err := v.Swap(context.Background(), token, domain.BaseCurrency, e18(50), e18(100), time.Time{})
	assert.Error(t, err)

	out, err := v.Swap(context.Background(), token, domain.BaseCurrency, e18(50), e18(99), time.Time{})
	require.NoError(t, err)
	assert.Equal(t, e18(99), out)
}

func TestSwapRejectsExpiredDeadline(t *testing.T) {
	v := newVenue(t, e18(2), 18, 0)

	_, err := v.Swap(context.Background(), domain.BaseCurrency, token, e18(1), nil, time.Now().Add(-time.Second))
	assert.Error(t, err)
}

func TestSwapRequiresBaseLeg(t *testing.T) {
	v := newVenue(t, e18(2), 18, 0)
	other := common.HexToAddress("0x0000000000000000000000000000000000000102")

	_, err := v.Swap(context.Background(), token, other, e18(1), nil, time.Time{})
	assert.Error(t, err)
}

func TestSwapRescalesFeedDecimals(t *testing.T) {
	// 8-decimal feed quoting 4.0: 100 base buys 25 tokens.
	v := newVenue(t, big.NewInt(400_000_000), 8, 0)

	out, err := v.Swap(context.Background(), domain.BaseCurrency, token, e18(100), nil, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, e18(25), out)
}
