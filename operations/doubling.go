package operations

// Counts records the homomorphic additions performed by a scalar
// multiplication.
type Counts struct {
	// Folds is the number of additions of the doubling accumulator into
	// the result. The first fold is an assignment and is not counted.
	Folds int
	// Doublings is the number of additions of the doubling accumulator
	// with itself.
	Doublings int
}

// Additions returns the total number of homomorphic additions.
func (c Counts) Additions() int {
	return c.Folds + c.Doublings
}

// DoubleAndAdd computes t * base with the binary method, processing the
// bits of t from the least significant to the most significant.
//
// After the i-th bit, the accumulator holds 2^(i+1) * base and the result
// holds (t mod 2^(i+1)) * base. The accumulator is only doubled while bits
// remain, so for t >= 1 exactly popcount(t)-1 folds and floor(log2(t))
// doublings are performed.
//
// For t = 0 nothing is folded and base itself is returned.
func DoubleAndAdd[T any](base T, t uint64, add func(a, b T) (T, error)) (res T, cnt Counts, err error) {

	acc := base
	res = base
	init := false

	for t > 0 {

		if t&1 == 1 {
			if !init {
				res = acc
				init = true
			} else {
				if res, err = add(res, acc); err != nil {
					return
				}
				cnt.Folds++
			}
		}

		t >>= 1

		if t > 0 {
			if acc, err = add(acc, acc); err != nil {
				return
			}
			cnt.Doublings++
		}
	}

	return
}

// RepeatedAddition computes t * base with t-1 additions of base.
// For t = 0 base itself is returned.
func RepeatedAddition[T any](base T, t uint64, add func(a, b T) (T, error)) (res T, cnt Counts, err error) {

	res = base

	for i := uint64(1); i < t; i++ {
		if res, err = add(res, base); err != nil {
			return
		}
		cnt.Folds++
	}

	return
}
