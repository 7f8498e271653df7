// Package record implements the line-oriented text record produced by an
// attack run and consumed by the offline analysis.
//
// A record holds, one value per line and in this order: the multiplicity t,
// the statistical security parameter, the CRT-interpolated components of the
// attacked ciphertext, the decrypted (flooded) plaintext polynomial and the
// secret key polynomial. Polynomials are written as
//
//	COEF: [c0 c1 ... cN-1] modulus: q
//
// with every coefficient reduced in [0, q).
package record

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"math/big"
	"os"
	"strconv"
	"strings"

	"github.com/zeebo/blake3"
)

// DefaultPath is the file written by the attack command.
const DefaultPath = "attack_output.txt"

// ErrMalformed is returned when a record cannot be parsed.
var ErrMalformed = errors.New("malformed record")

// Polynomial is a polynomial of Z_q[X]/(X^N+1) given by its coefficients.
type Polynomial struct {
	Coeffs  []*big.Int
	Modulus *big.Int
}

// N returns the number of coefficients of the polynomial.
func (p Polynomial) N() int {
	return len(p.Coeffs)
}

// String returns the textual representation of the polynomial.
func (p Polynomial) String() string {
	var b strings.Builder
	p.writeTo(&b)
	return b.String()
}

func (p Polynomial) writeTo(w io.StringWriter) {
	w.WriteString("COEF: [")
	for i, c := range p.Coeffs {
		if i != 0 {
			w.WriteString(" ")
		}
		w.WriteString(c.String())
	}
	w.WriteString("] modulus: ")
	w.WriteString(p.Modulus.String())
}

// Record is the output of one attack run.
type Record struct {
	T                   uint64
	StatisticalSecurity int
	Components          []Polynomial
	Decrypted           Polynomial
	SecretKey           Polynomial
}

// Modulus returns the modulus shared by all the polynomials of the record.
func (r *Record) Modulus() *big.Int {
	return r.SecretKey.Modulus
}

// Validate checks that all the polynomials of the record share the same
// modulus and that their coefficients are in [0, q).
func (r *Record) Validate() (err error) {

	polys := r.polynomials()

	q := r.Modulus()
	if q == nil || q.Sign() <= 0 {
		return fmt.Errorf("%w: invalid modulus", ErrMalformed)
	}

	for i, p := range polys {

		if p.Modulus == nil || p.Modulus.Cmp(q) != 0 {
			return fmt.Errorf("%w: polynomial %d: modulus mismatch", ErrMalformed, i)
		}

		for j, c := range p.Coeffs {
			if c.Sign() < 0 || c.Cmp(q) >= 0 {
				return fmt.Errorf("%w: polynomial %d: coefficient %d not in [0, q)", ErrMalformed, i, j)
			}
		}
	}

	return
}

func (r *Record) polynomials() (polys []Polynomial) {
	polys = append(polys, r.Components...)
	return append(polys, r.Decrypted, r.SecretKey)
}

// Write writes the record on w.
func (r *Record) Write(w io.Writer) (err error) {

	bw := bufio.NewWriter(w)

	bw.WriteString(strconv.FormatUint(r.T, 10))
	bw.WriteByte('\n')
	bw.WriteString(strconv.Itoa(r.StatisticalSecurity))
	bw.WriteByte('\n')

	for _, p := range r.polynomials() {
		p.writeTo(bw)
		bw.WriteByte('\n')
	}

	// bufio.Writer keeps the first error and returns it on Flush.
	return bw.Flush()
}

// WriteFile writes the record in the file at path, overwriting any
// previous content.
func WriteFile(path string, r *Record) (err error) {

	var f *os.File
	if f, err = os.Create(path); err != nil {
		return fmt.Errorf("record: %w", err)
	}

	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("record: %w", cerr)
		}
	}()

	if err = r.Write(f); err != nil {
		return fmt.Errorf("record: write %s: %w", path, err)
	}

	return
}

// Digest returns the BLAKE3 hash of the serialized record.
func (r *Record) Digest() (digest [32]byte, err error) {
	var buf bytes.Buffer
	if err = r.Write(&buf); err != nil {
		return
	}
	return blake3.Sum256(buf.Bytes()), nil
}
