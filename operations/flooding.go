package operations

import (
	"encoding/binary"
	"fmt"
	"math"
	"math/big"

	"github.com/tuneinsight/lattigo/v6/core/rlwe"
	"github.com/tuneinsight/lattigo/v6/schemes/ckks"
	"github.com/tuneinsight/lattigo/v6/utils/bignum"
	"github.com/tuneinsight/lattigo/v6/utils/sampling"
)

// floodingBound is the truncation of the flooding noise, in standard deviations.
const floodingBound = 6

// mantissaBits is the precision of a float64 Gaussian sample.
const mantissaBits = 52

// flooder adds a discrete Gaussian noise of large standard deviation
// to decrypted plaintexts, masking the noise of the circuit.
//
// The standard deviation can exceed the smallest RNS prime, so samples are
// drawn as integers and reduced modulo each prime.
type flooder struct {
	params ckks.Parameters
	sigma  *big.Float
	prng   sampling.PRNG

	// lowBits is the number of low-order bits of a sample below the
	// precision of a float64, filled uniformly.
	lowBits uint
}

func newFlooder(params ckks.Parameters, logSigma float64) (f *flooder, err error) {

	prng, err := sampling.NewPRNG()
	if err != nil {
		return nil, fmt.Errorf("flooding: %w", err)
	}

	f = &flooder{
		params: params,
		sigma:  new(big.Float).SetPrec(128).SetMantExp(big.NewFloat(math.Exp2(logSigma-math.Floor(logSigma))), int(math.Floor(logSigma))),
		prng:   prng,
	}

	if logSigma > mantissaBits {
		f.lowBits = uint(logSigma) - mantissaBits
	}

	return
}

// Sample returns n coefficients of the flooding distribution.
func (f *flooder) Sample(n int) (coeffs []*big.Int) {

	var low *big.Int
	if f.lowBits > 0 {
		low = new(big.Int).Lsh(big.NewInt(1), f.lowBits)
	}

	x := new(big.Float).SetPrec(128)

	coeffs = make([]*big.Int, n)
	for i := range coeffs {

		g := f.normFloat64()
		for math.Abs(g) > floodingBound {
			g = f.normFloat64()
		}

		x.SetFloat64(g)
		x.Mul(x, f.sigma)

		coeffs[i], _ = x.Int(nil)

		// Dithering below the float64 precision, centered around zero.
		if low != nil {
			coeffs[i].Add(coeffs[i], bignum.RandInt(f.prng, low))
			coeffs[i].Sub(coeffs[i], new(big.Int).Rsh(low, 1))
		}
	}

	return
}

// Flood adds a fresh flooding noise to pt.
func (f *flooder) Flood(pt *rlwe.Plaintext) {

	level := pt.Level()
	ringQ := f.params.RingQ().AtLevel(level)

	e := ringQ.NewPoly()
	ringQ.SetCoefficientsBigint(f.Sample(ringQ.N()), e)

	if pt.IsNTT {
		ringQ.NTT(e, e)
	}

	ringQ.Add(pt.Value, e, pt.Value)
}

// normFloat64 returns a standard normal sample by the Box-Muller transform.
func (f *flooder) normFloat64() float64 {
	u1 := f.uniform()
	for u1 == 0 {
		u1 = f.uniform()
	}
	u2 := f.uniform()
	return math.Sqrt(-2*math.Log(u1)) * math.Cos(2*math.Pi*u2)
}

// uniform returns a uniform float64 in [0, 1).
func (f *flooder) uniform() float64 {
	var buf [8]byte
	if _, err := f.prng.Read(buf[:]); err != nil {
		// sampling.PRNG is a keyed XOF and never fails.
		panic(err)
	}
	return float64(binary.LittleEndian.Uint64(buf[:])>>11) / (1 << 53)
}
