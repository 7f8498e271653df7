// Package attack runs the adversary against noise-flooded decryption:
// it predicts the noise of the circuit, instantiates the scheme with a
// flooding calibrated on that prediction, computes t * ct0 by doubling,
// decrypts it and gathers the record needed by the offline analysis.
package attack

import (
	"fmt"
	"math"
	"math/big"
	"time"

	"github.com/tuneinsight/ckks-noise-flooding-attack/estimator"
	"github.com/tuneinsight/ckks-noise-flooding-attack/operations"
	"github.com/tuneinsight/ckks-noise-flooding-attack/record"
)

const (
	// DefaultPlaintextSlots is the default length of the plaintext vector.
	DefaultPlaintextSlots = 16
)

// Config is the configuration of an attack run.
type Config struct {
	// T is the multiplicity of ct0.
	T uint64
	// StatisticalSecurity scales the flooding noise by 2^(StatisticalSecurity/2).
	StatisticalSecurity int
	// PlaintextSlots is the length of the all-zero plaintext vector.
	PlaintextSlots int
	// TEmpirical is the multiplicity used to estimate the noise.
	TEmpirical uint64
	// Empirical selects the measurement of the noise by the scheme
	// instead of its closed-form prediction.
	Empirical bool
	// Scheme is the scheme configuration. Its mode, noise estimate and
	// statistical security are set by Run.
	Scheme operations.Config
}

// DefaultConfig returns the configuration of an attack with multiplicity t
// on the default scheme.
func DefaultConfig(t uint64) Config {
	return Config{
		T:              t,
		PlaintextSlots: DefaultPlaintextSlots,
		TEmpirical:     t,
		Scheme:         operations.DefaultConfig(operations.Evaluation),
	}
}

// Validate checks the consistency of the configuration.
func (c Config) Validate() error {

	if c.T < 1 {
		return fmt.Errorf("%w: t=%d must be at least 1", operations.ErrInvalidParameters, c.T)
	}

	if c.TEmpirical < 1 {
		return fmt.Errorf("%w: tEmpirical=%d must be at least 1", operations.ErrInvalidParameters, c.TEmpirical)
	}

	if c.PlaintextSlots < 1 {
		return fmt.Errorf("%w: plaintextSlots=%d must be at least 1", operations.ErrInvalidParameters, c.PlaintextSlots)
	}

	return nil
}

// Estimator returns the name of the noise estimator used by the run.
func (c Config) Estimator() string {
	if c.Empirical {
		return "real"
	}
	return "simulated"
}

// Result is the outcome of an attack run.
type Result struct {
	LogNoise      float64
	RingDimension int
	Modulus       *big.Int
	FloodingSigma float64
	Counts        operations.Counts
	Record        *record.Record
	// AdversaryTime covers the scalar multiplication and the decryption.
	AdversaryTime time.Duration
}

// Noise returns 2^LogNoise.
func (r *Result) Noise() float64 {
	return math.Exp2(r.LogNoise)
}

// EstimateLogNoise returns the log2 of the noise of the sum of
// cfg.TEmpirical fresh encryptions, predicted or measured.
func EstimateLogNoise(cfg Config) (float64, error) {

	if !cfg.Empirical {
		return estimator.PredictLogNoise(cfg.Scheme.N(), cfg.TEmpirical), nil
	}

	values := make([]float64, cfg.PlaintextSlots)

	logNoise, err := operations.EstimateLogNoise(cfg.Scheme, values, cfg.TEmpirical)
	if err != nil {
		return 0, fmt.Errorf("noise estimation: %w", err)
	}

	return logNoise, nil
}

// Run runs the attack described by cfg.
func Run(cfg Config) (res *Result, err error) {

	if err = cfg.Validate(); err != nil {
		return
	}

	res = &Result{}

	if res.LogNoise, err = EstimateLogNoise(cfg); err != nil {
		return nil, err
	}

	scheme := cfg.Scheme
	scheme.Mode = operations.Evaluation
	scheme.DecryptionNoiseMode = operations.NoiseFloodingDecrypt
	scheme.NoiseEstimate = res.LogNoise
	scheme.StatisticalSecurity = cfg.StatisticalSecurity

	c, err := operations.NewContext(scheme)
	if err != nil {
		return nil, err
	}

	res.RingDimension = c.RingDimension()
	res.Modulus = c.Modulus()
	res.FloodingSigma = c.FloodingSigma()

	kp, err := c.GenKeys()
	if err != nil {
		return nil, err
	}

	now := time.Now()

	values := make([]float64, cfg.PlaintextSlots)

	ct, ct0, cnt, err := c.ScalarMul(kp.PublicKey, values, cfg.T)
	if err != nil {
		return nil, err
	}

	pt, err := c.Decrypt(kp.SecretKey, ct)
	if err != nil {
		return nil, err
	}

	res.AdversaryTime = time.Since(now)
	res.Counts = cnt

	// The analysis needs the components of the single encryption ct0.
	res.Record = c.NewRecord(cfg.T, ct0, pt, kp.SecretKey)

	return
}
