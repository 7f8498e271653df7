package operations

import (
	"fmt"

	"github.com/tuneinsight/lattigo/v6/core/rlwe"
)

// ScalarMul encrypts values once as ct0 and homomorphically computes
// t * ct0, by double-and-add if the context is configured for doubling
// and by repeated additions of ct0 otherwise.
//
// ct0 is returned alongside the result. For t = 0 the result is a copy of
// ct0 and not an encryption of zero.
func (c *Context) ScalarMul(pk *rlwe.PublicKey, values []float64, t uint64) (res, ct0 *rlwe.Ciphertext, cnt Counts, err error) {

	if ct0, err = c.Encrypt(pk, values); err != nil {
		return
	}

	mul := DoubleAndAdd[*rlwe.Ciphertext]
	if !c.cfg.Doubling {
		mul = RepeatedAddition[*rlwe.Ciphertext]
	}

	if res, cnt, err = mul(ct0, t, c.Add); err != nil {
		return nil, nil, cnt, fmt.Errorf("scalar multiplication by %d: %w", t, err)
	}

	// Additions always allocate, so res aliases ct0 only if no addition
	// was performed.
	if res == ct0 {
		res = ct0.CopyNew()
	}

	return
}

// AdditionOfCiphertexts returns the sum of t independent fresh
// encryptions of values, t >= 1.
func (c *Context) AdditionOfCiphertexts(pk *rlwe.PublicKey, values []float64, t uint64) (res *rlwe.Ciphertext, err error) {

	if t < 1 {
		return nil, fmt.Errorf("%w: t=%d must be at least 1", ErrInvalidParameters, t)
	}

	pt, err := c.Encode(values)
	if err != nil {
		return
	}

	if res, err = c.EncryptPlaintext(pk, pt); err != nil {
		return
	}

	var ct *rlwe.Ciphertext
	for i := uint64(1); i < t; i++ {

		if ct, err = c.EncryptPlaintext(pk, pt); err != nil {
			return nil, err
		}

		if res, err = c.Add(res, ct); err != nil {
			return nil, err
		}
	}

	return
}
