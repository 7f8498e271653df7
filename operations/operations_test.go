package operations

import (
	"errors"
	"fmt"
	"math"
	"math/big"
	"math/bits"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tuneinsight/lattigo/v6/core/rlwe"
	"github.com/tuneinsight/lattigo/v6/schemes/ckks"

	"github.com/tuneinsight/ckks-noise-flooding-attack/estimator"
)

// testConfig is a small ring without security constraints,
// fast enough to run whole circuits.
func testConfig(mode ExecutionMode) Config {
	cfg := DefaultConfig(mode)
	cfg.SecurityLevel = SecurityNotSet
	cfg.LogN = 10
	cfg.LogFirstModulus = 60
	cfg.LogScalingModulus = 45
	cfg.NoiseEstimate = 12
	return cfg
}

var bigOne = big.NewInt(1)

var testValues = []float64{0.25, -0.5, 1, 0, 0.125}

func newTestContext(t *testing.T, cfg Config) (*Context, KeyPair) {
	c, err := NewContext(cfg)
	require.NoError(t, err)
	kp, err := c.GenKeys()
	require.NoError(t, err)
	return c, kp
}

func requireDecrypts(t *testing.T, c *Context, sk *rlwe.SecretKey, ct *rlwe.Ciphertext, want []float64, scale float64) {
	pt, err := c.Decrypt(sk, ct)
	require.NoError(t, err)
	have, err := c.Decode(pt, len(want))
	require.NoError(t, err)
	for i := range want {
		require.InDelta(t, want[i]*scale, have[i], 1e-4, "slot %d", i)
	}
}

func TestConfig(t *testing.T) {

	t.Run("Default", func(t *testing.T) {
		cfg := DefaultConfig(Evaluation)
		require.Equal(t, 1<<14, cfg.N())
		require.Equal(t, []int{39, 39, 53, 52}, cfg.LogQ())
		require.Equal(t, 183, cfg.LogQP())
		require.Equal(t, "FIXEDAUTO", cfg.ScalingTechnique.String())
		require.True(t, cfg.Flooding())
		require.False(t, DefaultConfig(NoiseEstimation).Flooding())
		require.NoError(t, DefaultConfig(NoiseEstimation).Validate())
	})

	t.Run("SplitModulus", func(t *testing.T) {
		require.Equal(t, []int{60}, splitModulus(60))
		require.Equal(t, []int{31, 30}, splitModulus(61))
		require.Equal(t, []int{60, 60}, splitModulus(120))
		require.Equal(t, []int{41, 40, 40}, splitModulus(121))
	})

	t.Run("FloodingLogSigma", func(t *testing.T) {
		cfg := DefaultConfig(Evaluation)
		cfg.NoiseEstimate = 10
		cfg.StatisticalSecurity = 30
		require.InDelta(t, 10+math.Log2(math.Sqrt(12))+15, cfg.FloodingLogSigma(), 1e-12)
	})

	invalid := []struct {
		name   string
		modify func(*Config)
	}{
		{"LogNTooSmall", func(c *Config) { c.LogN = 3 }},
		{"LogNTooLarge", func(c *Config) { c.LogN = 21 }},
		{"Depth", func(c *Config) { c.MultiplicativeDepth = 0 }},
		{"Modulus", func(c *Config) { c.LogScalingModulus = 1 }},
		{"LogP", func(c *Config) { c.LogP = 61 }},
		{"StatisticalSecurity", func(c *Config) { c.StatisticalSecurity = -1 }},
		{"Queries", func(c *Config) { c.NumAdversarialQueries = 0 }},
		{"HammingWeight", func(c *Config) { c.SecretKeyDist = SparseTernary }},
		{"SecretKeyDist", func(c *Config) { c.SecretKeyDist = 7 }},
		{"NoiseEstimateNaN", func(c *Config) { c.NoiseEstimate = math.NaN() }},
		{"NoiseEstimateInf", func(c *Config) { c.NoiseEstimate = math.Inf(-1) }},
		{"Precision", func(c *Config) { c.NoiseEstimate = 40 }},
	}

	for _, tc := range invalid {
		t.Run("Invalid/"+tc.name, func(t *testing.T) {
			cfg := testConfig(Evaluation)
			tc.modify(&cfg)
			require.ErrorIs(t, cfg.Validate(), ErrInvalidParameters)
			_, err := NewContext(cfg)
			require.ErrorIs(t, err, ErrInvalidParameters)
		})
	}

	t.Run("NoiseEstimationIgnoresFlooding", func(t *testing.T) {
		cfg := testConfig(NoiseEstimation)
		cfg.NoiseEstimate = math.NaN()
		require.NoError(t, cfg.Validate())
	})

	t.Run("Sparse", func(t *testing.T) {
		cfg := testConfig(NoiseEstimation)
		cfg.SecretKeyDist = SparseTernary
		cfg.HammingWeight = 64
		require.NoError(t, cfg.Validate())
		_, err := NewContext(cfg)
		require.NoError(t, err)
	})
}

func TestSecurityLevel(t *testing.T) {

	require.Equal(t, "HEStd_128_classic", Security128Classic.String())

	logQP, ok := Security128Classic.MaxLogQP(14)
	require.True(t, ok)
	require.Equal(t, 438, logQP)

	_, ok = SecurityNotSet.MaxLogQP(14)
	require.False(t, ok)

	require.NoError(t, SecurityNotSet.Check(4, 1000))
	require.NoError(t, Security128Classic.Check(14, 183))
	require.NoError(t, Security256Classic.Check(14, 237))
	require.ErrorIs(t, Security256Classic.Check(14, 238), ErrInsecureParameters)
	require.ErrorIs(t, Security128Classic.Check(9, 10), ErrInsecureParameters)
	require.ErrorIs(t, Security128Classic.Check(18, 10), ErrInvalidParameters)
	require.ErrorIs(t, SecurityLevel(9).Check(14, 10), ErrInvalidParameters)

	t.Run("Context", func(t *testing.T) {
		cfg := DefaultConfig(NoiseEstimation)
		cfg.LogN = 12
		_, err := NewContext(cfg)
		require.ErrorIs(t, err, ErrInsecureParameters)
	})
}

func TestDoubleAndAdd(t *testing.T) {

	add := func(a, b uint64) (uint64, error) { return a + b, nil }

	t.Run("Product", func(t *testing.T) {
		for _, base := range []uint64{1, 3, 17} {
			for k := uint64(1); k <= 1024; k++ {
				res, cnt, err := DoubleAndAdd(base, k, add)
				require.NoError(t, err)
				require.Equal(t, base*k, res)
				require.Equal(t, bits.OnesCount64(k)-1, cnt.Folds)
				require.Equal(t, bits.Len64(k)-1, cnt.Doublings)
				if k >= 4 {
					require.Less(t, cnt.Additions(), int(k-1))
				}
			}
		}
	})

	t.Run("PowerOfTwo", func(t *testing.T) {
		res, cnt, err := DoubleAndAdd(uint64(5), 8, add)
		require.NoError(t, err)
		require.Equal(t, uint64(40), res)
		require.Equal(t, Counts{Folds: 0, Doublings: 3}, cnt)
	})

	t.Run("One", func(t *testing.T) {
		res, cnt, err := DoubleAndAdd(uint64(5), 1, add)
		require.NoError(t, err)
		require.Equal(t, uint64(5), res)
		require.Zero(t, cnt.Additions())
	})

	t.Run("Zero", func(t *testing.T) {
		res, cnt, err := DoubleAndAdd(uint64(5), 0, add)
		require.NoError(t, err)
		require.Equal(t, uint64(5), res)
		require.Zero(t, cnt.Additions())
	})

	t.Run("Error", func(t *testing.T) {
		boom := errors.New("boom")
		calls := 0
		failing := func(a, b uint64) (uint64, error) {
			if calls++; calls == 3 {
				return 0, boom
			}
			return a + b, nil
		}
		_, _, err := DoubleAndAdd(uint64(1), 255, failing)
		require.ErrorIs(t, err, boom)
	})

	t.Run("RepeatedAddition", func(t *testing.T) {
		for _, k := range []uint64{0, 1, 2, 7, 100} {
			res, cnt, err := RepeatedAddition(uint64(3), k, add)
			require.NoError(t, err)
			if k == 0 {
				require.Equal(t, uint64(3), res)
			} else {
				require.Equal(t, 3*k, res)
			}
			require.Equal(t, int(max(k, 1)-1), cnt.Folds)
			require.Zero(t, cnt.Doublings)
		}
	})
}

func TestContext(t *testing.T) {

	c, kp := newTestContext(t, testConfig(Evaluation))

	t.Run("Accessors", func(t *testing.T) {
		require.Equal(t, 1<<10, c.RingDimension())
		require.InDelta(t, 105, c.Modulus().BitLen(), 1)
		require.InDelta(t, math.Exp2(c.Config().FloodingLogSigma()), c.FloodingSigma(), 1e-6)
		require.True(t, c.Enabled(PKE|LeveledSHE))
	})

	t.Run("EncryptDecrypt", func(t *testing.T) {
		ct, err := c.Encrypt(kp.PublicKey, testValues)
		require.NoError(t, err)
		requireDecrypts(t, c, kp.SecretKey, ct, testValues, 1)
	})

	t.Run("Encode", func(t *testing.T) {
		_, err := c.Encode(nil)
		require.ErrorIs(t, err, ErrInvalidParameters)
		_, err = c.Encode(make([]float64, c.Parameters().MaxSlots()+1))
		require.ErrorIs(t, err, ErrInvalidParameters)
	})

	t.Run("Features", func(t *testing.T) {
		c, kp := newTestContext(t, testConfig(Evaluation))
		ct, err := c.Encrypt(kp.PublicKey, testValues)
		require.NoError(t, err)

		c.Disable(LeveledSHE)
		require.False(t, c.Enabled(LeveledSHE))
		_, err = c.Add(ct, ct)
		require.ErrorIs(t, err, ErrFeatureDisabled)
		_, _, _, err = c.ScalarMul(kp.PublicKey, testValues, 3)
		require.ErrorIs(t, err, ErrFeatureDisabled)

		c.Disable(PKE)
		_, err = c.GenKeys()
		require.ErrorIs(t, err, ErrFeatureDisabled)
		_, err = c.Decrypt(kp.SecretKey, ct)
		require.ErrorIs(t, err, ErrFeatureDisabled)

		c.Enable(PKE | LeveledSHE)
		_, err = c.Add(ct, ct)
		require.NoError(t, err)
	})

	t.Run("Flooding", func(t *testing.T) {
		ct, err := c.Encrypt(kp.PublicKey, testValues)
		require.NoError(t, err)

		pt0, err := c.Decrypt(kp.SecretKey, ct)
		require.NoError(t, err)
		pt1, err := c.Decrypt(kp.SecretKey, ct)
		require.NoError(t, err)

		// Two decryptions differ by the difference of two flooding noises.
		logStd, err := c.LogStdResidual(pt0, pt1)
		require.NoError(t, err)
		require.InDelta(t, math.Log2(c.FloodingSigma())+0.5, logStd, 0.25)
	})
}

// smallPrimesConfig keeps the default moduli, whose smallest primes
// have 39 bits, on a small ring.
func smallPrimesConfig(mode ExecutionMode) Config {
	cfg := DefaultConfig(mode)
	cfg.SecurityLevel = SecurityNotSet
	cfg.LogN = 10
	return cfg
}

func TestFlooding(t *testing.T) {

	params, err := smallPrimesConfig(NoiseEstimation).NewParameters()
	require.NoError(t, err)
	require.Equal(t, []int{39, 39, 53, 52}, smallPrimesConfig(NoiseEstimation).LogQ())

	// Standard deviations below and above the smallest prime.
	for _, logSigma := range []float64{20, 30, 40, 45, 54.5} {
		t.Run(fmt.Sprintf("LogSigma=%.1f", logSigma), func(t *testing.T) {

			f, err := newFlooder(params, logSigma)
			require.NoError(t, err)

			pt := ckks.NewPlaintext(params, params.MaxLevel())
			f.Flood(pt)

			ringQ := params.RingQ().AtLevel(pt.Level())
			e := *pt.Value.CopyNew()
			if pt.IsNTT {
				ringQ.INTT(e, e)
			}

			logStd, err := LogStdPoly(ringQ, e)
			require.NoError(t, err)
			require.InDelta(t, logSigma, logStd, 0.1)
		})
	}

	t.Run("Bound", func(t *testing.T) {
		f, err := newFlooder(params, 45)
		require.NoError(t, err)

		bound := new(big.Float).Mul(f.sigma, big.NewFloat(floodingBound+1))
		for _, c := range f.Sample(1 << 12) {
			require.Negative(t, new(big.Float).SetInt(new(big.Int).Abs(c)).Cmp(bound))
		}
	})

	t.Run("StatisticalSecurity", func(t *testing.T) {

		cfg := smallPrimesConfig(Evaluation)
		cfg.NoiseEstimate = estimator.PredictLogNoise(cfg.N(), 1<<40)
		cfg.StatisticalSecurity = 30
		require.Greater(t, cfg.FloodingLogSigma(), 39.0)

		c, kp := newTestContext(t, cfg)

		ct, err := c.Encrypt(kp.PublicKey, testValues)
		require.NoError(t, err)

		pt0, err := c.Decrypt(kp.SecretKey, ct)
		require.NoError(t, err)
		pt1, err := c.Decrypt(kp.SecretKey, ct)
		require.NoError(t, err)

		logStd, err := c.LogStdResidual(pt0, pt1)
		require.NoError(t, err)
		require.InDelta(t, cfg.FloodingLogSigma()+0.5, logStd, 0.25)
	})
}

func TestScalarMul(t *testing.T) {

	for _, doubling := range []bool{true, false} {

		cfg := testConfig(Evaluation)
		cfg.Doubling = doubling
		c, kp := newTestContext(t, cfg)

		for _, k := range []uint64{1, 2, 3, 8, 100, 255, 256, 1000} {
			t.Run(fmt.Sprintf("Doubling=%t/t=%d", doubling, k), func(t *testing.T) {
				res, ct0, cnt, err := c.ScalarMul(kp.PublicKey, testValues, k)
				require.NoError(t, err)
				require.NotSame(t, ct0, res)
				requireDecrypts(t, c, kp.SecretKey, res, testValues, float64(k))
				requireDecrypts(t, c, kp.SecretKey, ct0, testValues, 1)

				if doubling {
					require.Equal(t, bits.OnesCount64(k)-1, cnt.Folds)
					require.Equal(t, bits.Len64(k)-1, cnt.Doublings)
				} else {
					require.Equal(t, int(k-1), cnt.Folds)
				}
			})
		}
	}

	t.Run("Zero", func(t *testing.T) {
		c, kp := newTestContext(t, testConfig(NoiseEstimation))
		res, ct0, cnt, err := c.ScalarMul(kp.PublicKey, testValues, 0)
		require.NoError(t, err)
		require.NotSame(t, ct0, res)
		require.Zero(t, cnt.Additions())

		for i := range res.Value {
			have := c.Interpolate(res.Value[i], res.Level(), res.IsNTT, false)
			want := c.Interpolate(ct0.Value[i], ct0.Level(), ct0.IsNTT, false)
			for j := range want.Coeffs {
				require.Zero(t, want.Coeffs[j].Cmp(have.Coeffs[j]))
			}
		}
	})

	t.Run("One", func(t *testing.T) {
		c, kp := newTestContext(t, testConfig(NoiseEstimation))
		res, ct0, _, err := c.ScalarMul(kp.PublicKey, testValues, 1)
		require.NoError(t, err)

		pt0, err := c.Decrypt(kp.SecretKey, ct0)
		require.NoError(t, err)
		pt1, err := c.Decrypt(kp.SecretKey, res)
		require.NoError(t, err)

		have := c.Interpolate(pt1.Value, pt1.Level(), pt1.IsNTT, false)
		want := c.Interpolate(pt0.Value, pt0.Level(), pt0.IsNTT, false)
		for j := range want.Coeffs {
			require.Zero(t, want.Coeffs[j].Cmp(have.Coeffs[j]))
		}
	})
}

func TestAdditionOfCiphertexts(t *testing.T) {

	c, kp := newTestContext(t, testConfig(Evaluation))

	for _, k := range []uint64{1, 2, 5, 16} {
		t.Run(fmt.Sprintf("t=%d", k), func(t *testing.T) {
			ct, err := c.AdditionOfCiphertexts(kp.PublicKey, testValues, k)
			require.NoError(t, err)
			requireDecrypts(t, c, kp.SecretKey, ct, testValues, float64(k))
		})
	}

	_, err := c.AdditionOfCiphertexts(kp.PublicKey, testValues, 0)
	require.ErrorIs(t, err, ErrInvalidParameters)
}

func TestEstimateLogNoise(t *testing.T) {

	cfg := testConfig(Evaluation)

	for _, k := range []uint64{1, 64} {
		t.Run(fmt.Sprintf("t=%d", k), func(t *testing.T) {
			logNoise, err := EstimateLogNoise(cfg, testValues, k)
			require.NoError(t, err)

			predicted := estimator.PredictLogNoise(cfg.N(), k)
			require.Greater(t, logNoise, predicted-1)
			require.Less(t, logNoise, predicted+2)
		})
	}
}

func TestNewRecord(t *testing.T) {

	c, kp := newTestContext(t, testConfig(NoiseEstimation))

	res, ct0, _, err := c.ScalarMul(kp.PublicKey, testValues, 3)
	require.NoError(t, err)

	pt, err := c.Decrypt(kp.SecretKey, res)
	require.NoError(t, err)

	r := c.NewRecord(3, ct0, pt, kp.SecretKey)
	require.NoError(t, r.Validate())
	require.Equal(t, uint64(3), r.T)
	require.Len(t, r.Components, 2)
	require.Equal(t, 0, c.Modulus().Cmp(r.Modulus()))
	require.Equal(t, c.RingDimension(), r.SecretKey.N())

	// The secret key is ternary.
	q := r.Modulus()
	for _, s := range r.SecretKey.Coeffs {
		if s.Sign() != 0 && s.Cmp(bigOne) != 0 {
			require.Zero(t, s.Cmp(new(big.Int).Sub(q, bigOne)))
		}
	}
}
