package operations

import (
	"math/big"

	"github.com/tuneinsight/lattigo/v6/core/rlwe"
	"github.com/tuneinsight/lattigo/v6/ring"

	"github.com/tuneinsight/ckks-noise-flooding-attack/record"
)

// Interpolate returns the coefficients in [0, Q) of p, Q being the
// modulus at the given level. isNTT and montgomery describe the
// representation of p, which is left untouched.
func (c *Context) Interpolate(p ring.Poly, level int, isNTT, montgomery bool) record.Polynomial {

	ringQ := c.params.RingQ().AtLevel(level)

	tmp := ringQ.NewPoly()
	tmp.CopyLvl(level, p)

	if isNTT {
		ringQ.INTT(tmp, tmp)
	}

	if montgomery {
		ringQ.IMForm(tmp, tmp)
	}

	coeffs := make([]*big.Int, ringQ.N())
	for i := range coeffs {
		coeffs[i] = new(big.Int)
	}

	ringQ.PolyToBigint(tmp, 1, coeffs)

	return record.Polynomial{
		Coeffs:  coeffs,
		Modulus: ringQ.Modulus(),
	}
}

// NewRecord gathers the output of an attack run: the components of ct,
// the decrypted plaintext pt and the secret key, all at the level of ct.
func (c *Context) NewRecord(t uint64, ct *rlwe.Ciphertext, pt *rlwe.Plaintext, sk *rlwe.SecretKey) *record.Record {

	level := ct.Level()

	r := &record.Record{
		T:                   t,
		StatisticalSecurity: c.cfg.StatisticalSecurity,
		Components:          make([]record.Polynomial, len(ct.Value)),
	}

	for i := range ct.Value {
		r.Components[i] = c.Interpolate(ct.Value[i], level, ct.IsNTT, false)
	}

	r.Decrypted = c.Interpolate(pt.Value, min(level, pt.Level()), pt.IsNTT, false)

	// Secret keys are stored in the NTT and Montgomery domains.
	r.SecretKey = c.Interpolate(sk.Value.Q, level, true, true)

	return r
}
