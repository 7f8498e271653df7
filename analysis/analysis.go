// Package analysis implements the statistical attack on the records
// written by an attack run: it estimates the encryption noise of ct0 from
// the flooded decryption of t * ct0 and tries to recover the secret key.
//
// The plaintext is assumed to be the all-zero vector, so that the decrypted
// polynomial is the sum of t times the noise of ct0 and of the flooding noise.
package analysis

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/tuneinsight/lattigo/v6/ring"
	"golang.org/x/exp/slices"

	"github.com/tuneinsight/ckks-noise-flooding-attack/estimator"
	"github.com/tuneinsight/ckks-noise-flooding-attack/operations"
	"github.com/tuneinsight/ckks-noise-flooding-attack/record"
)

var (
	// ErrModulusMismatch is returned when a record was not produced over
	// the ring of the analyzer.
	ErrModulusMismatch = errors.New("modulus mismatch")
	// ErrNotInvertible is returned when the mask of ct0 has no inverse
	// in the ring.
	ErrNotInvertible = errors.New("polynomial not invertible")
)

// Analyzer performs the attack over a fixed ring.
type Analyzer struct {
	ringQ *ring.Ring
}

// NewAnalyzer returns an analyzer over ringQ, which must be the ring of
// the ciphertexts at the level they were recorded.
func NewAnalyzer(ringQ *ring.Ring) *Analyzer {
	return &Analyzer{ringQ: ringQ}
}

// NewAnalyzerFromConfig rebuilds the ring of the scheme instantiated by cfg
// at its maximum level. Moduli generation is deterministic, so this is the
// ring of the records produced with cfg.
func NewAnalyzerFromConfig(cfg operations.Config) (*Analyzer, error) {

	// The ring does not depend on the decryption noise.
	cfg.Mode = operations.NoiseEstimation

	params, err := cfg.NewParameters()
	if err != nil {
		return nil, err
	}

	return NewAnalyzer(params.RingQ().AtLevel(params.MaxLevel())), nil
}

// Ring returns the ring of the analyzer.
func (a *Analyzer) Ring() *ring.Ring {
	return a.ringQ
}

// Result is the outcome of the attack on a record. Polynomials are given
// by their centered coefficients.
type Result struct {
	T                   uint64
	StatisticalSecurity int
	N                   int

	// Sigma1 is the standard deviation of a fresh encryption noise and
	// Sigma2 the standard deviation of the flooding noise.
	Sigma1, Sigma2 float64
	// ExpectedSigma is the predicted standard deviation of EPrime.
	ExpectedSigma float64
	NoiseFactor   *big.Float

	// E = b + a*s is the noise of ct0.
	E []*big.Int
	// ENew = ETotal - t*E is the flooding noise.
	ENew []*big.Int
	// ETotal is the decrypted polynomial.
	ETotal []*big.Int
	// ScaledETotal is round(NoiseFactor * ETotal), the estimate of E.
	ScaledETotal []*big.Int
	// EPrime = E - ScaledETotal is the error of the estimate.
	EPrime []*big.Int

	// Weight is the number of non-zero coefficients of EPrime
	// and Std their standard deviation.
	Weight int
	Std    float64

	// Recovered is true if s' = -(b - ScaledETotal) * a^-1 equals the secret.
	Recovered bool
}

// Success returns true if the noise estimate is exact.
func (r *Result) Success() bool {
	return r.Weight == 0
}

// Analyze attacks rec with the noise factor predicted for its parameters.
func (a *Analyzer) Analyze(rec *record.Record) (*Result, error) {
	n := a.ringQ.N()
	return a.AnalyzeWithFactor(rec, estimator.NoiseFactor(n, rec.T, rec.StatisticalSecurity))
}

// AnalyzeWithFactor attacks rec, estimating the noise of ct0 as
// factor times the decrypted polynomial.
func (a *Analyzer) AnalyzeWithFactor(rec *record.Record, factor *big.Float) (res *Result, err error) {

	if err = a.check(rec); err != nil {
		return
	}

	ringQ := a.ringQ
	n := ringQ.N()

	res = &Result{
		T:                   rec.T,
		StatisticalSecurity: rec.StatisticalSecurity,
		N:                   n,
		NoiseFactor:         factor,
	}

	res.Sigma1, _ = estimator.SigmaFresh(n).Float64()
	res.Sigma2, _ = estimator.SigmaFlooding(n, rec.T, rec.StatisticalSecurity).Float64()
	res.ExpectedSigma, _ = estimator.ResultingSigma(n, rec.T, rec.StatisticalSecurity).Float64()

	b := a.newPoly(rec.Components[0].Coeffs)
	m := a.newPoly(rec.Components[1].Coeffs)
	s := a.newPoly(rec.SecretKey.Coeffs)
	etotal := a.newPoly(rec.Decrypted.Coeffs)

	// e = b + a*s
	e := a.mul(m, s)
	ringQ.Add(e, b, e)

	// enew = etotal - t*e
	enew := ringQ.NewPoly()
	ringQ.MulScalarBigint(e, new(big.Int).SetUint64(rec.T), enew)
	ringQ.Sub(etotal, enew, enew)

	res.E = a.centered(e)
	res.ENew = a.centered(enew)
	res.ETotal = a.centered(etotal)
	res.ScaledETotal = Scale(res.ETotal, factor)

	// b' = b - round(f * etotal)
	bprime := a.newPoly(res.ScaledETotal)
	ringQ.Sub(b, bprime, bprime)

	// e' = b' + a*s
	eprime := a.mul(m, s)
	ringQ.Add(eprime, bprime, eprime)
	res.EPrime = a.centered(eprime)

	res.Weight = Weight(res.EPrime)
	if res.Std, err = Std(res.EPrime); err != nil {
		return nil, err
	}

	sprime, err := a.recoverSecret(bprime, m)
	switch {
	case errors.Is(err, ErrNotInvertible):
		// The attack fails but the statistics remain meaningful.
		return res, nil
	case err != nil:
		return nil, err
	}

	res.Recovered = equal(sprime, s)

	return
}

func (a *Analyzer) check(rec *record.Record) (err error) {

	if len(rec.Components) != 2 {
		return fmt.Errorf("%w: %d ciphertext components, expected 2", record.ErrMalformed, len(rec.Components))
	}

	if q := a.ringQ.Modulus(); q.Cmp(rec.Modulus()) != 0 {
		return fmt.Errorf("%w: record has %s, ring has %s", ErrModulusMismatch, rec.Modulus(), q)
	}

	for _, p := range append(slices.Clone(rec.Components), rec.Decrypted, rec.SecretKey) {
		if p.N() != a.ringQ.N() {
			return fmt.Errorf("%w: polynomial of degree %d, ring of degree %d", record.ErrMalformed, p.N(), a.ringQ.N())
		}
	}

	return
}

// recoverSecret returns s' = -bprime * m^-1.
func (a *Analyzer) recoverSecret(bprime, m ring.Poly) (sprime ring.Poly, err error) {

	ringQ := a.ringQ

	inv, err := a.inverseNTT(m)
	if err != nil {
		return
	}

	sprime = ringQ.NewPoly()
	ringQ.NTT(bprime, sprime)
	ringQ.MForm(sprime, sprime)
	ringQ.MulCoeffsMontgomery(sprime, inv, sprime)
	ringQ.Neg(sprime, sprime)
	ringQ.INTT(sprime, sprime)

	return
}

// inverseNTT returns the NTT representation of the inverse of p. A
// polynomial is invertible iff none of its NTT coefficients is zero.
func (a *Analyzer) inverseNTT(p ring.Poly) (inv ring.Poly, err error) {

	ringQ := a.ringQ

	inv = ringQ.NewPoly()
	ringQ.NTT(p, inv)

	for i, qi := range ringQ.ModuliChain()[:ringQ.Level()+1] {
		coeffs := inv.Coeffs[i]
		for j := range coeffs {
			if coeffs[j] == 0 {
				return inv, fmt.Errorf("%w: zero NTT coefficient %d modulo %d", ErrNotInvertible, j, qi)
			}
			coeffs[j] = ring.ModExp(coeffs[j], qi-2, qi)
		}
	}

	return
}

// mul returns p0 * p1 for polynomials outside of the NTT domain.
func (a *Analyzer) mul(p0, p1 ring.Poly) (p2 ring.Poly) {

	ringQ := a.ringQ

	tmp := ringQ.NewPoly()
	p2 = ringQ.NewPoly()

	ringQ.NTT(p0, tmp)
	ringQ.MForm(tmp, tmp)
	ringQ.NTT(p1, p2)
	ringQ.MulCoeffsMontgomery(tmp, p2, p2)
	ringQ.INTT(p2, p2)

	return
}

func (a *Analyzer) newPoly(coeffs []*big.Int) (p ring.Poly) {
	p = a.ringQ.NewPoly()
	a.ringQ.SetCoefficientsBigint(coeffs, p)
	return
}

func (a *Analyzer) centered(p ring.Poly) (coeffs []*big.Int) {
	coeffs = make([]*big.Int, a.ringQ.N())
	for i := range coeffs {
		coeffs[i] = new(big.Int)
	}
	a.ringQ.PolyToBigintCentered(p, 1, coeffs)
	return
}

func equal(p0, p1 ring.Poly) bool {

	if len(p0.Coeffs) != len(p1.Coeffs) {
		return false
	}

	for i := range p0.Coeffs {
		if !slices.Equal(p0.Coeffs[i], p1.Coeffs[i]) {
			return false
		}
	}

	return true
}
