package fixedpoint

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRescaleUp(t *testing.T) {
	// 1.5 at 8 decimals -> 18 decimals.
	v := FromInt64(150_000_000, 8).Rescale(18)

	want, _ := new(big.Int).SetString("1500000000000000000", 10)
	assert.Equal(t, want, v.Mantissa())
	assert.Equal(t, uint8(18), v.Decimals())
}

func TestRescaleDownTruncates(t *testing.T) {
	// 1.999999999 at 9 decimals -> 2 decimals truncates, not rounds.
	v := FromInt64(1_999_999_999, 9).Rescale(2)

	assert.Equal(t, big.NewInt(199), v.Mantissa())
}

func TestRescaleRoundTrip(t *testing.T) {
	cases := []struct {
		name     string
		mantissa int64
		from, to uint8
	}{
		{"8 to 18", 123_456_789, 8, 18},
		{"0 to 18", 42, 0, 18},
		{"6 to 18", 1, 6, 18},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			orig := FromInt64(tc.mantissa, tc.from)
			back := orig.Rescale(tc.to).Rescale(tc.from)
			assert.Equal(t, orig.Mantissa(), back.Mantissa())
		})
	}
}

func TestRescaleSameIsCopy(t *testing.T) {
	m := big.NewInt(100)
	v := New(m, 18)
	m.SetInt64(0)

	assert.Equal(t, big.NewInt(100), v.Rescale(18).Mantissa())
}

func TestString(t *testing.T) {
	assert.Equal(t, "1.500000000000000000", FromInt64(1_500_000_000_000_000_000, 18).String())
	assert.Equal(t, "0.05", FromInt64(5, 2).String())
	assert.Equal(t, "42", FromInt64(42, 0).String())
}

func TestMulDiv(t *testing.T) {
	// 3e18 * 2e18 / 1e18 = 6e18, no overflow at intermediate step.
	a := new(big.Int).Mul(big.NewInt(3), Precision)
	b := new(big.Int).Mul(big.NewInt(2), Precision)

	got := MulDiv(a, b, Precision)
	require.Equal(t, new(big.Int).Mul(big.NewInt(6), Precision), got)

	// Truncation toward zero.
	assert.Equal(t, big.NewInt(3), MulDiv(big.NewInt(7), big.NewInt(1), big.NewInt(2)))
}

func TestZeroValue(t *testing.T) {
	var v Value
	assert.Equal(t, 0, v.Sign())
	assert.Equal(t, big.NewInt(0), v.Mantissa())
	assert.Equal(t, big.NewInt(0), v.Rescale(18).Mantissa())
}
