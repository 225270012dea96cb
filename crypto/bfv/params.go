package bfv

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
)

// ErrInvalidParams is returned when a parameter set cannot be used to build
// the scheme.
var ErrInvalidParams = errors.New("invalid bfv parameters")

// DefaultNoiseBound is the bound B of the uniform error distribution
// [-B, B] used for keys and encryptions.
const DefaultNoiseBound = 19

var (
	// DefaultParams is the deployment parameter set: 512 plaintext slots and
	// two 36-bit RNS limbs.
	DefaultParams = MustParams(512, 65537, 0xffffee001, 0xffffc4001)
	// TestParams is a small parameter set that keeps circuits and key
	// generation fast in tests. It is not secure.
	TestParams = MustParams(32, 65537, 1073741441, 1073740609)
)

// Params describes a BFV instance over Z_Q[X]/(X^N+1), Q being the product
// of the RNS moduli.
type Params struct {
	Degree           int
	PlaintextModulus *big.Int
	Moduli           []*big.Int
	NoiseBound       int64
}

// NewParams builds and validates a parameter set with the default noise
// bound.
func NewParams(degree int, plaintextModulus uint64, moduli ...uint64) (*Params, error) {
	p := &Params{
		Degree:           degree,
		PlaintextModulus: new(big.Int).SetUint64(plaintextModulus),
		NoiseBound:       DefaultNoiseBound,
	}
	for _, q := range moduli {
		p.Moduli = append(p.Moduli, new(big.Int).SetUint64(q))
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// MustParams is NewParams for package level constants.
func MustParams(degree int, plaintextModulus uint64, moduli ...uint64) *Params {
	p, err := NewParams(degree, plaintextModulus, moduli...)
	if err != nil {
		panic(err)
	}
	return p
}

// Validate checks the parameter set: positive even degree, at least one
// modulus, pairwise coprime moduli, a plaintext modulus of at least 2 and a
// Q large enough to leave room for the noise.
func (p *Params) Validate() error {
	if p == nil {
		return fmt.Errorf("%w: nil params", ErrInvalidParams)
	}
	if p.Degree <= 0 || p.Degree%2 != 0 {
		return fmt.Errorf("%w: degree must be a positive even integer, got %d", ErrInvalidParams, p.Degree)
	}
	if p.PlaintextModulus == nil || p.PlaintextModulus.Cmp(big.NewInt(2)) < 0 {
		return fmt.Errorf("%w: plaintext modulus must be at least 2", ErrInvalidParams)
	}
	if len(p.Moduli) == 0 {
		return fmt.Errorf("%w: no moduli", ErrInvalidParams)
	}
	if p.NoiseBound <= 0 {
		return fmt.Errorf("%w: noise bound must be positive", ErrInvalidParams)
	}
	gcd := new(big.Int)
	for i, qi := range p.Moduli {
		if qi == nil || qi.Cmp(big.NewInt(2)) < 0 {
			return fmt.Errorf("%w: modulus %d must be greater than 1", ErrInvalidParams, i)
		}
		for j := range i {
			if gcd.GCD(nil, nil, qi, p.Moduli[j]).Cmp(big.NewInt(1)) != 0 {
				return fmt.Errorf("%w: moduli %d and %d are not coprime", ErrInvalidParams, j, i)
			}
		}
	}
	// Δ must dominate the worst case noise of a handful of additions
	noise := new(big.Int).Mul(big.NewInt(int64(4*p.Degree)), big.NewInt(p.NoiseBound))
	if p.Delta().Cmp(noise.Lsh(noise, 8)) <= 0 {
		return fmt.Errorf("%w: ciphertext modulus too small for plaintext modulus %s",
			ErrInvalidParams, p.PlaintextModulus)
	}
	return nil
}

// Limbs returns the number of RNS moduli.
func (p *Params) Limbs() int {
	return len(p.Moduli)
}

// Q returns the product of the moduli.
func (p *Params) Q() *big.Int {
	q := big.NewInt(1)
	for _, qi := range p.Moduli {
		q.Mul(q, qi)
	}
	return q
}

// Delta returns ⌊Q/t⌋, the plaintext scaling factor.
func (p *Params) Delta() *big.Int {
	return new(big.Int).Quo(p.Q(), p.PlaintextModulus)
}

// DeltaLimbs returns Δ mod q_i for every limb.
func (p *Params) DeltaLimbs() []*big.Int {
	delta := p.Delta()
	out := make([]*big.Int, len(p.Moduli))
	for i, qi := range p.Moduli {
		out[i] = new(big.Int).Mod(delta, qi)
	}
	return out
}

// Fingerprint identifies the parameter set. Artifacts built for a given set
// are stored under its fingerprint.
func (p *Params) Fingerprint() string {
	h := sha256.New()
	fmt.Fprintf(h, "n=%d;t=%s;b=%d", p.Degree, p.PlaintextModulus, p.NoiseBound)
	for _, qi := range p.Moduli {
		fmt.Fprintf(h, ";q=%s", qi)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// String returns a short human readable description.
func (p *Params) String() string {
	return fmt.Sprintf("bfv(n=%d,t=%s,limbs=%d)", p.Degree, p.PlaintextModulus, len(p.Moduli))
}
