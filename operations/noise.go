package operations

import (
	"fmt"
	"math"
	"math/big"

	"github.com/montanaflynn/stats"
	"github.com/tuneinsight/lattigo/v6/core/rlwe"
	"github.com/tuneinsight/lattigo/v6/ring"
)

// EstimateLogNoise measures the log2 of the noise of the sum of t fresh
// encryptions of values. It instantiates cfg in NoiseEstimation mode,
// so that the decrypted residual is the raw noise of the circuit.
func EstimateLogNoise(cfg Config, values []float64, t uint64) (logNoise float64, err error) {

	cfg.Mode = NoiseEstimation

	c, err := NewContext(cfg)
	if err != nil {
		return
	}

	kp, err := c.GenKeys()
	if err != nil {
		return
	}

	ct, err := c.AdditionOfCiphertexts(kp.PublicKey, values, t)
	if err != nil {
		return
	}

	want, err := c.Encode(values)
	if err != nil {
		return
	}

	// The sum of t encodings of values.
	ringQ := c.params.RingQ().AtLevel(want.Level())
	tBig := new(big.Int).SetUint64(t)
	ringQ.MulScalarBigint(want.Value, tBig, want.Value)

	have, err := c.Decrypt(kp.SecretKey, ct)
	if err != nil {
		return
	}

	return c.LogStdResidual(have, want)
}

// LogStdResidual returns the log2 of the standard deviation of the
// coefficients of have - want.
func (c *Context) LogStdResidual(have, want *rlwe.Plaintext) (float64, error) {

	level := min(have.Level(), want.Level())
	ringQ := c.params.RingQ().AtLevel(level)

	diff := ringQ.NewPoly()
	ringQ.Sub(have.Value, want.Value, diff)

	if have.IsNTT {
		ringQ.INTT(diff, diff)
	}

	return LogStdPoly(ringQ, diff)
}

// LogStdPoly returns the log2 of the standard deviation of the centered
// coefficients of a polynomial outside of the NTT domain.
func LogStdPoly(ringQ *ring.Ring, p ring.Poly) (float64, error) {

	coeffs := make([]*big.Int, ringQ.N())
	for i := range coeffs {
		coeffs[i] = new(big.Int)
	}

	ringQ.PolyToBigintCentered(p, 1, coeffs)

	values := make([]float64, len(coeffs))
	for i := range coeffs {
		values[i], _ = new(big.Float).SetInt(coeffs[i]).Float64()
	}

	std, err := stats.StandardDeviation(values)
	if err != nil {
		return 0, fmt.Errorf("noise: %w", err)
	}

	return math.Log2(std), nil
}
