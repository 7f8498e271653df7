package operations

import (
	"fmt"
)

// SecurityLevel is the targeted classical security of the parameters.
type SecurityLevel int

const (
	SecurityNotSet SecurityLevel = iota
	Security128Classic
	Security192Classic
	Security256Classic
)

func (s SecurityLevel) String() string {
	switch s {
	case SecurityNotSet:
		return "HEStd_NotSet"
	case Security128Classic:
		return "HEStd_128_classic"
	case Security192Classic:
		return "HEStd_192_classic"
	case Security256Classic:
		return "HEStd_256_classic"
	default:
		return fmt.Sprintf("SecurityLevel(%d)", int(s))
	}
}

// maxLogQP is the largest log2(QP) for a ternary secret, indexed by LogN,
// as given by the homomorphic encryption security standard.
var maxLogQP = map[SecurityLevel]map[int]int{
	Security128Classic: {10: 27, 11: 54, 12: 109, 13: 218, 14: 438, 15: 881, 16: 1772, 17: 3576},
	Security192Classic: {10: 19, 11: 37, 12: 75, 13: 152, 14: 305, 15: 611, 16: 1228, 17: 2468},
	Security256Classic: {10: 14, 11: 29, 12: 58, 13: 118, 14: 237, 15: 476, 16: 956, 17: 1918},
}

// MaxLogQP returns the largest log2(QP) allowed for the ring degree 2^logN.
// The second value is false if the security level does not constrain the
// moduli or if no bound is known for logN.
func (s SecurityLevel) MaxLogQP(logN int) (logQP int, ok bool) {
	table, ok := maxLogQP[s]
	if !ok {
		return 0, false
	}
	logQP, ok = table[logN]
	return
}

// Check returns ErrInsecureParameters if a modulus of logQP bits is too large
// for the ring degree 2^logN at this security level.
func (s SecurityLevel) Check(logN, logQP int) error {

	if s == SecurityNotSet {
		return nil
	}

	if _, ok := maxLogQP[s]; !ok {
		return fmt.Errorf("%w: unknown security level %s", ErrInvalidParameters, s)
	}

	max, ok := s.MaxLogQP(logN)
	switch {
	case !ok && logN < 10:
		return fmt.Errorf("%w: ring dimension 2^%d is too small for %s", ErrInsecureParameters, logN, s)
	case !ok:
		return fmt.Errorf("%w: no security bound for ring dimension 2^%d at %s", ErrInvalidParameters, logN, s)
	}

	if logQP > max {
		return fmt.Errorf("%w: log2(QP)=%d exceeds %d for ring dimension 2^%d at %s", ErrInsecureParameters, logQP, max, logN, s)
	}

	return nil
}
