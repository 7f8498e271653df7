package record

import (
	"bufio"
	"fmt"
	"io"
	"math/big"
	"os"
	"strconv"
	"strings"
)

// minPolynomials is the number of polynomials of the smallest record:
// one ciphertext component, the decrypted plaintext and the secret key.
const minPolynomials = 3

// ReadFile reads the record stored at path.
func ReadFile(path string) (r *Record, err error) {

	var f *os.File
	if f, err = os.Open(path); err != nil {
		return nil, fmt.Errorf("record: %w", err)
	}
	defer f.Close()

	return Read(f)
}

// Read parses a record from rd.
func Read(rd io.Reader) (r *Record, err error) {

	sc := bufio.NewScanner(rd)
	// A polynomial of degree 2^16 over a few hundred bits fits in 64MB.
	sc.Buffer(make([]byte, 0, 1<<20), 1<<26)

	var lines []string
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			lines = append(lines, line)
		}
	}

	if err = sc.Err(); err != nil {
		return nil, fmt.Errorf("record: %w", err)
	}

	if len(lines) < 2+minPolynomials {
		return nil, fmt.Errorf("%w: expected at least %d lines but got %d", ErrMalformed, 2+minPolynomials, len(lines))
	}

	r = &Record{}

	if r.T, err = strconv.ParseUint(lines[0], 10, 64); err != nil {
		return nil, fmt.Errorf("%w: t: %v", ErrMalformed, err)
	}

	if r.StatisticalSecurity, err = strconv.Atoi(lines[1]); err != nil {
		return nil, fmt.Errorf("%w: statistical security: %v", ErrMalformed, err)
	}

	polys := make([]Polynomial, len(lines)-2)
	for i := range polys {
		if polys[i], err = ParsePolynomial(lines[i+2]); err != nil {
			return nil, fmt.Errorf("line %d: %w", i+3, err)
		}
	}

	// Trailing zero coefficients may be omitted by other writers:
	// pads every polynomial to the size of the largest one.
	n := 0
	for _, p := range polys {
		n = max(n, p.N())
	}

	for i := range polys {
		for len(polys[i].Coeffs) < n {
			polys[i].Coeffs = append(polys[i].Coeffs, new(big.Int))
		}
	}

	k := len(polys)
	r.Components = polys[:k-2]
	r.Decrypted = polys[k-2]
	r.SecretKey = polys[k-1]

	if err = r.Validate(); err != nil {
		return nil, err
	}

	return
}

// ParsePolynomial parses a polynomial written as
// "COEF: [c0 c1 ...] modulus: q".
func ParsePolynomial(s string) (p Polynomial, err error) {

	const prefix = "COEF: ["
	const sep = "] modulus: "

	if !strings.HasPrefix(s, prefix) {
		return p, fmt.Errorf("%w: missing %q", ErrMalformed, prefix)
	}

	s = s[len(prefix):]

	idx := strings.LastIndex(s, sep)
	if idx < 0 {
		return p, fmt.Errorf("%w: missing %q", ErrMalformed, sep)
	}

	var ok bool
	if p.Modulus, ok = new(big.Int).SetString(strings.TrimSpace(s[idx+len(sep):]), 10); !ok {
		return p, fmt.Errorf("%w: invalid modulus", ErrMalformed)
	}

	fields := strings.Fields(s[:idx])
	p.Coeffs = make([]*big.Int, len(fields))
	for i, f := range fields {
		if p.Coeffs[i], ok = new(big.Int).SetString(f, 10); !ok {
			return p, fmt.Errorf("%w: invalid coefficient %d: %q", ErrMalformed, i, f)
		}
	}

	if len(p.Coeffs) == 0 {
		return p, fmt.Errorf("%w: empty polynomial", ErrMalformed)
	}

	return
}
