package estimator

import (
	"fmt"
	"math"
	"math/big"

	"github.com/ALTree/bigfloat"
)

const prec = 128

// NewFloat returns a new *big.Float with 128 bits of precision
// set to x.
func NewFloat(x interface{}) (s *big.Float) {
	switch x := x.(type) {
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			panic(fmt.Errorf("x cannot be NaN or Inf, but is %f", x))
		}
		s = new(big.Float).SetPrec(prec)
		s.SetFloat64(x)
		return
	case *big.Int:
		s = new(big.Float).SetPrec(prec)
		s.SetInt(x)
		return
	case *big.Float:
		s = new(big.Float).SetPrec(prec)
		s.Set(x)
		return
	case int:
		return NewFloat(new(big.Int).SetInt64(int64(x)))
	case int64:
		return NewFloat(new(big.Int).SetInt64(x))
	case uint64:
		return NewFloat(new(big.Int).SetUint64(x))
	default:
		panic(fmt.Errorf("invalid x.(type): must be int, int64, uint64, float64, *big.Int or *big.Float but is %T", x))
	}
}

// SigmaFresh returns the standard deviation of the error of a fresh
// public-key encryption with a uniform ternary secret: 3.19 * sqrt(4/3 * n).
func SigmaFresh(n int) *big.Float {
	return sigmaTernary(n, NewFloat(4.0/3.0))
}

// SigmaFreshEstimated returns the standard deviation of a fresh encryption
// as accounted by the noise-estimation mode: 3.19 * sqrt(2/3 * n).
// It is half the variance of SigmaFresh.
func SigmaFreshEstimated(n int) *big.Float {
	return sigmaTernary(n, NewFloat(2.0/3.0))
}

func sigmaTernary(n int, factor *big.Float) *big.Float {
	s := NewFloat(n)
	s.Mul(s, factor)
	s.Sqrt(s)
	return s.Mul(s, NewFloat(Sigma))
}

// SigmaFlooding returns the standard deviation of the flooding noise
// when the noise estimate is taken over t fresh encryptions:
// SigmaFreshEstimated(n) * sqrt(12t) * 2^(stat/2).
func SigmaFlooding(n int, t uint64, statisticalSecurity int) *big.Float {

	s := NewFloat(t)
	s.Mul(s, NewFloat(12))
	s.Sqrt(s)
	s.Mul(s, SigmaFreshEstimated(n))

	return s.Mul(s, pow2(NewFloat(float64(statisticalSecurity)/2)))
}

// NoiseFactor returns the factor f such that f * etotal is the
// linear estimator of the error e of ct0 given the flooded
// decryption etotal of t * ct0.
//
// With sa = t * SigmaFresh and sb = SigmaFlooding:
// f = sa^2 / (sa^2 + sb^2) / t.
func NoiseFactor(n int, t uint64, statisticalSecurity int) *big.Float {

	sa2, sb2 := variances(n, t, statisticalSecurity)

	f := new(big.Float).Add(sa2, sb2)
	f.Quo(sa2, f)

	return f.Quo(f, NewFloat(t))
}

// ResultingSigma returns the standard deviation of the residual error
// e - f * etotal: (sa * sb / sqrt(sa^2 + sb^2)) / t.
func ResultingSigma(n int, t uint64, statisticalSecurity int) *big.Float {

	sa2, sb2 := variances(n, t, statisticalSecurity)

	den := new(big.Float).Add(sa2, sb2)

	num := new(big.Float).Mul(sa2, sb2)
	num.Quo(num, den)
	num.Sqrt(num)

	return num.Quo(num, NewFloat(t))
}

func variances(n int, t uint64, statisticalSecurity int) (sa2, sb2 *big.Float) {

	sa2 = SigmaFresh(n)
	sa2.Mul(sa2, NewFloat(t))
	sa2.Mul(sa2, sa2)

	sb2 = SigmaFlooding(n, t, statisticalSecurity)
	sb2.Mul(sb2, sb2)

	return
}

// Log2 returns log2(x) for x > 0.
func Log2(x *big.Float) float64 {
	l := bigfloat.Log(NewFloat(x))
	l.Quo(l, bigfloat.Log(NewFloat(2)))
	f, _ := l.Float64()
	return f
}

func pow2(x *big.Float) *big.Float {
	return bigfloat.Pow(NewFloat(2), x)
}
