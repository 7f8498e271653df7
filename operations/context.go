package operations

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/tuneinsight/lattigo/v6/core/rlwe"
	"github.com/tuneinsight/lattigo/v6/schemes/ckks"
)

// Feature is a capability of a Context that must be enabled before use.
type Feature uint

const (
	// PKE enables key generation, encryption and decryption.
	PKE Feature = 1 << iota
	// LeveledSHE enables homomorphic additions.
	LeveledSHE
)

func (f Feature) String() string {
	switch f {
	case PKE:
		return "PKE"
	case LeveledSHE:
		return "LEVELEDSHE"
	default:
		return fmt.Sprintf("Feature(%d)", uint(f))
	}
}

// ErrFeatureDisabled is returned when an operation needs a Feature
// that was not enabled on the Context.
var ErrFeatureDisabled = errors.New("feature disabled")

// KeyPair is a secret key and its public key.
type KeyPair struct {
	SecretKey *rlwe.SecretKey
	PublicKey *rlwe.PublicKey
}

// Context is a CKKS scheme instance derived from a Config.
type Context struct {
	cfg      Config
	params   ckks.Parameters
	kgen     *rlwe.KeyGenerator
	ecd      *ckks.Encoder
	eval     *ckks.Evaluator
	enc      *rlwe.Encryptor
	pk       *rlwe.PublicKey
	dec      *rlwe.Decryptor
	sk       *rlwe.SecretKey
	flood    *flooder
	features Feature
}

// NewContext validates cfg and instantiates a scheme context from it.
// The PKE and LeveledSHE features are enabled on the returned context.
func NewContext(cfg Config) (c *Context, err error) {

	var params ckks.Parameters
	if params, err = cfg.NewParameters(); err != nil {
		return nil, err
	}

	c = &Context{
		cfg:    cfg,
		params: params,
		kgen:   ckks.NewKeyGenerator(params),
		ecd:    ckks.NewEncoder(params),
		eval:   ckks.NewEvaluator(params, nil),
	}

	if cfg.Flooding() {
		if c.flood, err = newFlooder(params, cfg.FloodingLogSigma()); err != nil {
			return nil, err
		}
	}

	c.Enable(PKE)
	c.Enable(LeveledSHE)

	return
}

// Enable enables the feature f.
func (c *Context) Enable(f Feature) {
	c.features |= f
}

// Disable disables the feature f.
func (c *Context) Disable(f Feature) {
	c.features &^= f
}

// Enabled returns true if the feature f is enabled.
func (c *Context) Enabled(f Feature) bool {
	return c.features&f == f
}

func (c *Context) require(f Feature) error {
	if !c.Enabled(f) {
		return fmt.Errorf("%w: %s", ErrFeatureDisabled, f)
	}
	return nil
}

// Config returns the configuration of the context.
func (c *Context) Config() Config {
	return c.cfg
}

// Parameters returns the lattigo parameters of the context.
func (c *Context) Parameters() ckks.Parameters {
	return c.params
}

// RingDimension returns the ring dimension N.
func (c *Context) RingDimension() int {
	return c.params.N()
}

// Modulus returns the ciphertext modulus Q at the maximum level.
func (c *Context) Modulus() *big.Int {
	return c.params.RingQ().AtLevel(c.params.MaxLevel()).Modulus()
}

// FloodingSigma returns the standard deviation of the noise added at
// decryption, or 0 if the context does not flood.
func (c *Context) FloodingSigma() float64 {
	if c.flood == nil {
		return 0
	}
	sigma, _ := c.flood.sigma.Float64()
	return sigma
}

// GenKeys generates a new key pair.
func (c *Context) GenKeys() (kp KeyPair, err error) {

	if err = c.require(PKE); err != nil {
		return
	}

	kp.SecretKey, kp.PublicKey = c.kgen.GenKeyPairNew()

	return
}

// Encode encodes values on a new plaintext at the maximum level.
func (c *Context) Encode(values []float64) (pt *rlwe.Plaintext, err error) {

	if len(values) == 0 || len(values) > c.params.MaxSlots() {
		return nil, fmt.Errorf("%w: %d values not in [1, %d]", ErrInvalidParameters, len(values), c.params.MaxSlots())
	}

	pt = ckks.NewPlaintext(c.params, c.params.MaxLevel())

	if err = c.ecd.Encode(values, pt); err != nil {
		return nil, fmt.Errorf("encode: %w", err)
	}

	return
}

// Encrypt encodes values and encrypts them with pk.
func (c *Context) Encrypt(pk *rlwe.PublicKey, values []float64) (ct *rlwe.Ciphertext, err error) {

	var pt *rlwe.Plaintext
	if pt, err = c.Encode(values); err != nil {
		return
	}

	return c.EncryptPlaintext(pk, pt)
}

// EncryptPlaintext encrypts pt with pk.
func (c *Context) EncryptPlaintext(pk *rlwe.PublicKey, pt *rlwe.Plaintext) (ct *rlwe.Ciphertext, err error) {

	if err = c.require(PKE); err != nil {
		return
	}

	if c.enc == nil || c.pk != pk {
		c.enc = ckks.NewEncryptor(c.params, pk)
		c.pk = pk
	}

	if ct, err = c.enc.EncryptNew(pt); err != nil {
		return nil, fmt.Errorf("encrypt: %w", err)
	}

	return
}

// Add returns op0 + op1.
func (c *Context) Add(op0, op1 *rlwe.Ciphertext) (opOut *rlwe.Ciphertext, err error) {

	if err = c.require(LeveledSHE); err != nil {
		return
	}

	if opOut, err = c.eval.AddNew(op0, op1); err != nil {
		return nil, fmt.Errorf("add: %w", err)
	}

	return
}

// Decrypt decrypts ct with sk. In Evaluation mode with noise flooding,
// a fresh flooding noise is added to the decrypted plaintext.
func (c *Context) Decrypt(sk *rlwe.SecretKey, ct *rlwe.Ciphertext) (pt *rlwe.Plaintext, err error) {

	if err = c.require(PKE); err != nil {
		return
	}

	if c.dec == nil || c.sk != sk {
		c.dec = ckks.NewDecryptor(c.params, sk)
		c.sk = sk
	}

	pt = c.dec.DecryptNew(ct)

	if c.flood != nil {
		c.flood.Flood(pt)
	}

	return
}

// Decode decodes the first n slots of pt.
func (c *Context) Decode(pt *rlwe.Plaintext, n int) (values []float64, err error) {

	if n < 0 || n > c.params.MaxSlots() {
		return nil, fmt.Errorf("%w: %d slots not in [0, %d]", ErrInvalidParameters, n, c.params.MaxSlots())
	}

	have := make([]complex128, c.params.MaxSlots())
	if err = c.ecd.Decode(pt, have); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}

	values = make([]float64, n)
	for i := range values {
		values[i] = real(have[i])
	}

	return
}
