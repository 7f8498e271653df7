package operations

import (
	"errors"
	"fmt"
	"math"

	"github.com/tuneinsight/lattigo/v6/core/rlwe"
	"github.com/tuneinsight/lattigo/v6/ring"
	"github.com/tuneinsight/lattigo/v6/schemes/ckks"

	"github.com/tuneinsight/ckks-noise-flooding-attack/estimator"
)

var (
	// ErrInvalidParameters is returned when a configuration is inconsistent.
	ErrInvalidParameters = errors.New("invalid parameters")
	// ErrInsecureParameters is returned when the moduli are too large for
	// the ring dimension at the requested security level.
	ErrInsecureParameters = errors.New("insecure parameters")
)

// ExecutionMode selects whether the context evaluates circuits or
// estimates their noise.
type ExecutionMode int

const (
	// Evaluation is the regular execution mode.
	Evaluation ExecutionMode = iota
	// NoiseEstimation decrypts without flooding so that the
	// decrypted residual is the noise of the circuit.
	NoiseEstimation
)

func (m ExecutionMode) String() string {
	switch m {
	case Evaluation:
		return "EXEC_EVALUATION"
	case NoiseEstimation:
		return "EXEC_NOISE_ESTIMATION"
	default:
		return fmt.Sprintf("ExecutionMode(%d)", int(m))
	}
}

// DecryptionNoiseMode selects the noise added at decryption.
type DecryptionNoiseMode int

const (
	FixedNoiseDecrypt DecryptionNoiseMode = iota
	NoiseFloodingDecrypt
)

// SecretKeyDist is the distribution of the secret key.
type SecretKeyDist int

const (
	UniformTernary SecretKeyDist = iota
	SparseTernary
)

// ScalingTechnique is the rescaling policy. Only additions are evaluated,
// so both techniques lead to the same circuit.
type ScalingTechnique int

const (
	FixedManual ScalingTechnique = iota
	FixedAuto
)

func (s ScalingTechnique) String() string {
	switch s {
	case FixedManual:
		return "FIXEDMANUAL"
	case FixedAuto:
		return "FIXEDAUTO"
	default:
		return fmt.Sprintf("ScalingTechnique(%d)", int(s))
	}
}

// Config is the configuration of a scheme context.
type Config struct {
	Mode                ExecutionMode
	DecryptionNoiseMode DecryptionNoiseMode
	SecretKeyDist       SecretKeyDist
	HammingWeight       int // only for SparseTernary
	SecurityLevel       SecurityLevel

	LogN              int
	ScalingTechnique  ScalingTechnique
	LogFirstModulus   int
	LogScalingModulus int
	// LogP is the size of the auxiliary key-switching modulus. Public-key
	// encryption over QP divides its noise by P, so it is left to zero
	// unless key-switching keys are needed.
	LogP                int
	MultiplicativeDepth int

	// NoiseEstimate is the log2 of the noise of the circuit,
	// used to calibrate the flooding in Evaluation mode.
	NoiseEstimate         float64
	DesiredPrecision      int
	StatisticalSecurity   int
	NumAdversarialQueries int

	// Doubling selects double-and-add for scalar multiplications,
	// otherwise repeated additions are used.
	Doubling bool
}

// DefaultConfig returns the configuration of the attack: 128-bit classical
// security, uniform ternary secret, noise flooding at decryption, depth 1,
// ring dimension 2^14 and a 78-bit first modulus followed by a 105-bit
// scaling modulus, without auxiliary modulus.
func DefaultConfig(mode ExecutionMode) Config {
	return Config{
		Mode:                  mode,
		DecryptionNoiseMode:   NoiseFloodingDecrypt,
		SecretKeyDist:         UniformTernary,
		SecurityLevel:         Security128Classic,
		LogN:                  14,
		ScalingTechnique:      FixedAuto,
		LogFirstModulus:       78,
		LogScalingModulus:     105,
		MultiplicativeDepth:   1,
		DesiredPrecision:      25,
		NumAdversarialQueries: 1,
		Doubling:              true,
	}
}

// N returns the ring dimension.
func (c Config) N() int {
	return 1 << c.LogN
}

// FloodingLogSigma returns the log2 of the standard deviation of
// the flooding noise.
func (c Config) FloodingLogSigma() float64 {
	return estimator.FloodingLogSigma(c.NoiseEstimate, c.NumAdversarialQueries, c.StatisticalSecurity)
}

// Flooding returns true if decryption adds flooding noise.
func (c Config) Flooding() bool {
	return c.Mode == Evaluation && c.DecryptionNoiseMode == NoiseFloodingDecrypt
}

// Validate checks the consistency of the configuration.
func (c Config) Validate() (err error) {

	if c.LogN < rlwe.MinLogN || c.LogN > rlwe.MaxLogN {
		return fmt.Errorf("%w: LogN=%d not in [%d, %d]", ErrInvalidParameters, c.LogN, rlwe.MinLogN, rlwe.MaxLogN)
	}

	if c.MultiplicativeDepth < 1 {
		return fmt.Errorf("%w: MultiplicativeDepth=%d must be at least 1", ErrInvalidParameters, c.MultiplicativeDepth)
	}

	if c.LogFirstModulus < 2 || c.LogScalingModulus < 2 {
		return fmt.Errorf("%w: LogFirstModulus=%d and LogScalingModulus=%d must be at least 2", ErrInvalidParameters, c.LogFirstModulus, c.LogScalingModulus)
	}

	if c.LogP < 0 || c.LogP > maxLogPrime {
		return fmt.Errorf("%w: LogP=%d not in [0, %d]", ErrInvalidParameters, c.LogP, maxLogPrime)
	}

	if c.StatisticalSecurity < 0 {
		return fmt.Errorf("%w: StatisticalSecurity=%d cannot be negative", ErrInvalidParameters, c.StatisticalSecurity)
	}

	if c.NumAdversarialQueries < 1 {
		return fmt.Errorf("%w: NumAdversarialQueries=%d must be at least 1", ErrInvalidParameters, c.NumAdversarialQueries)
	}

	switch c.SecretKeyDist {
	case UniformTernary:
	case SparseTernary:
		if c.HammingWeight < 1 || c.HammingWeight > c.N() {
			return fmt.Errorf("%w: HammingWeight=%d not in [1, %d]", ErrInvalidParameters, c.HammingWeight, c.N())
		}
	default:
		return fmt.Errorf("%w: unknown secret key distribution %d", ErrInvalidParameters, c.SecretKeyDist)
	}

	if c.Flooding() {

		if math.IsNaN(c.NoiseEstimate) || math.IsInf(c.NoiseEstimate, 0) {
			return fmt.Errorf("%w: NoiseEstimate=%f must be finite in %s mode", ErrInvalidParameters, c.NoiseEstimate, c.Mode)
		}

		// The scaling factor must leave DesiredPrecision bits above the flooding noise.
		if need := c.FloodingLogSigma() + float64(c.DesiredPrecision); need > float64(c.LogScalingModulus) {
			return fmt.Errorf("%w: LogScalingModulus=%d is smaller than the flooding noise plus the desired precision (%.2f bits)", ErrInvalidParameters, c.LogScalingModulus, need)
		}
	}

	return
}

// maxLogPrime is the largest bit-size of a lattigo NTT prime
// used to decompose the moduli.
const maxLogPrime = 60

// LogQ returns the RNS decomposition of the modulus chain: the first
// modulus followed by one scaling modulus per multiplicative level, each
// split in primes of at most 60 bits.
func (c Config) LogQ() (logQ []int) {
	logQ = append(logQ, splitModulus(c.LogFirstModulus)...)
	for i := 0; i < c.MultiplicativeDepth; i++ {
		logQ = append(logQ, splitModulus(c.LogScalingModulus)...)
	}
	return
}

// splitModulus splits a logQ-bit modulus into as few primes as possible,
// of balanced sizes and of at most 60 bits each.
func splitModulus(logQ int) (logQi []int) {

	k := (logQ + maxLogPrime - 1) / maxLogPrime

	logQi = make([]int, k)
	for i := range logQi {
		logQi[i] = logQ / k
		if i < logQ%k {
			logQi[i]++
		}
	}

	return
}

// LogQP returns the total number of bits of the moduli.
func (c Config) LogQP() (logQP int) {
	for _, qi := range c.LogQ() {
		logQP += qi
	}
	return logQP + c.LogP
}

// Xs returns the distribution of the secret key.
func (c Config) Xs() ring.DistributionParameters {
	if c.SecretKeyDist == SparseTernary {
		return ring.Ternary{H: c.HammingWeight}
	}
	return ring.Ternary{P: 2.0 / 3.0}
}

// Xe returns the distribution of the encryption error.
func (c Config) Xe() ring.DistributionParameters {
	return ring.DiscreteGaussian{Sigma: estimator.Sigma, Bound: 6 * estimator.Sigma}
}

// ParametersLiteral returns the lattigo parameters literal of the configuration.
func (c Config) ParametersLiteral() (pl ckks.ParametersLiteral, err error) {

	if err = c.Validate(); err != nil {
		return
	}

	if err = c.SecurityLevel.Check(c.LogN, c.LogQP()); err != nil {
		return
	}

	pl = ckks.ParametersLiteral{
		LogN:            c.LogN,
		LogQ:            c.LogQ(),
		Xs:              c.Xs(),
		Xe:              c.Xe(),
		LogDefaultScale: c.LogScalingModulus,
	}

	if c.LogP > 0 {
		pl.LogP = []int{c.LogP}
	}

	return
}

// NewParameters returns the lattigo parameters of the configuration.
func (c Config) NewParameters() (params ckks.Parameters, err error) {

	var pl ckks.ParametersLiteral
	if pl, err = c.ParametersLiteral(); err != nil {
		return
	}

	if params, err = ckks.NewParametersFromLiteral(pl); err != nil {
		return params, fmt.Errorf("%w: %v", ErrInvalidParameters, err)
	}

	return
}
