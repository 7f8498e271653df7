package analysis

import (
	"fmt"
	"math/big"

	"github.com/montanaflynn/stats"

	"github.com/tuneinsight/ckks-noise-flooding-attack/estimator"
)

// Scale returns round(factor * x) for each coefficient, rounding half
// away from zero.
func Scale(coeffs []*big.Int, factor *big.Float) (scaled []*big.Int) {

	half := estimator.NewFloat(0.5)
	tmp := estimator.NewFloat(0)

	scaled = make([]*big.Int, len(coeffs))
	for i, c := range coeffs {

		tmp.SetInt(c)
		tmp.Mul(tmp, factor)

		if tmp.Sign() < 0 {
			tmp.Sub(tmp, half)
		} else {
			tmp.Add(tmp, half)
		}

		scaled[i], _ = tmp.Int(nil)
	}

	return
}

// Weight returns the number of non-zero coefficients.
func Weight(coeffs []*big.Int) (w int) {
	for _, c := range coeffs {
		if c.Sign() != 0 {
			w++
		}
	}
	return
}

// Std returns the population standard deviation of the coefficients.
func Std(coeffs []*big.Int) (float64, error) {

	values := make([]float64, len(coeffs))
	for i, c := range coeffs {
		values[i], _ = new(big.Float).SetInt(c).Float64()
	}

	std, err := stats.StandardDeviationPopulation(values)
	if err != nil {
		return 0, fmt.Errorf("analysis: %w", err)
	}

	return std, nil
}
