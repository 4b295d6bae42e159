// Package fixedpoint implements tagged fixed-point decimal values on
// math/big integers. All portfolio math runs at 18 decimals; oracle quotes
// arrive at arbitrary precision and are rescaled exactly once on entry.
package fixedpoint

import (
	"fmt"
	"math/big"
)

// Decimals is the working precision for all valuation math.
const Decimals uint8 = 18

var (
	// Precision is 10^18, the unit value at working precision.
	Precision = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)

	ten = big.NewInt(10)
)

// Value is an integer mantissa tagged with its decimal precision.
// The zero Value is 0 at 0 decimals.
type Value struct {
	mantissa *big.Int
	decimals uint8
}

// New creates a Value from a mantissa and its decimal precision. The
// mantissa is copied.
func New(mantissa *big.Int, decimals uint8) Value {
	if mantissa == nil {
		mantissa = big.NewInt(0)
	}
	return Value{mantissa: new(big.Int).Set(mantissa), decimals: decimals}
}

// FromInt64 creates a Value from an int64 mantissa.
func FromInt64(mantissa int64, decimals uint8) Value {
	return Value{mantissa: big.NewInt(mantissa), decimals: decimals}
}

// Mantissa returns a copy of the raw integer mantissa.
func (v Value) Mantissa() *big.Int {
	if v.mantissa == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v.mantissa)
}

// Decimals returns the decimal precision tag.
func (v Value) Decimals() uint8 {
	return v.decimals
}

// Sign returns -1, 0, or +1 for negative, zero, or positive values.
func (v Value) Sign() int {
	if v.mantissa == nil {
		return 0
	}
	return v.mantissa.Sign()
}

// Rescale converts the value to a different decimal precision. Scaling up
// is exact; scaling down truncates toward zero.
func (v Value) Rescale(to uint8) Value {
	m := v.Mantissa()
	switch {
	case to == v.decimals:
		return Value{mantissa: m, decimals: to}
	case to > v.decimals:
		factor := new(big.Int).Exp(ten, big.NewInt(int64(to-v.decimals)), nil)
		return Value{mantissa: m.Mul(m, factor), decimals: to}
	default:
		factor := new(big.Int).Exp(ten, big.NewInt(int64(v.decimals-to)), nil)
		return Value{mantissa: m.Quo(m, factor), decimals: to}
	}
}

// String renders the value in decimal notation, mainly for logs.
func (v Value) String() string {
	m := v.Mantissa()
	if v.decimals == 0 {
		return m.String()
	}
	factor := new(big.Int).Exp(ten, big.NewInt(int64(v.decimals)), nil)
	whole, frac := new(big.Int).QuoRem(m, factor, new(big.Int))
	frac.Abs(frac)
	return fmt.Sprintf("%s.%0*s", whole.String(), int(v.decimals), frac.String())
}

// MulDiv computes a*b/den with full intermediate precision, truncating
// toward zero. It panics on a zero denominator, matching big.Int.Quo.
func MulDiv(a, b, den *big.Int) *big.Int {
	out := new(big.Int).Mul(a, b)
	return out.Quo(out, den)
}
