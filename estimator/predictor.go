package estimator

import (
	"math"
)

// Sigma is the standard deviation of the discrete Gaussian error
// used by fresh encryptions.
const Sigma = 3.19

// PredictLogNoise returns the log2 of the noise that the noise-estimation
// execution mode reports after summing t fresh public-key encryptions in
// a ring of dimension n.
//
// The closed form replaces an empirical run of the estimator, which is too
// slow to be used in a parameter search. t = 0 yields -Inf.
func PredictLogNoise(n int, t uint64) float64 {
	noise := Sigma * math.Sqrt(2.0/3.0*float64(n)*float64(t))
	return math.Log2(noise)
}

// FloodingLogSigma returns the log2 of the standard deviation of the
// noise added at decryption by noise flooding, given the log2 noise
// estimate of the circuit, the number of adversarial queries and the
// statistical security parameter.
func FloodingLogSigma(logNoise float64, queries, statisticalSecurity int) float64 {
	return logNoise + math.Log2(math.Sqrt(12*float64(queries))) + float64(statisticalSecurity)/2
}
