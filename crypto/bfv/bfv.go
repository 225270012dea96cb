// Package bfv implements the slice of the BFV homomorphic encryption scheme
// consumed by the ballot pipeline: key generation, public key encryption of
// coefficient-encoded plaintexts, ciphertext addition and decryption.
//
// Ciphertexts and keys are kept in RNS form, one row of coefficients per
// modulus. Encrypt also returns the encryption randomness (u, e0, e1) and
// the plaintext, which the circuit input assembler needs to prove that a
// ciphertext encrypts a valid vote without revealing it.
//
// The scheme is the textbook one over R_Q = Z_Q[X]/(X^N+1):
//
//	pk  = (-(a·s + e), a)
//	ct0 = pk0·u + e0 + Δ·m
//	ct1 = pk1·u + e1
//	m   = round(t·(ct0 + ct1·s)/Q) mod t
package bfv

import (
	"crypto/rand"
	"fmt"
	"io"
	"math/big"
	"sync"
)

// Engine is the homomorphic encryption collaborator of the ballot pipeline.
type Engine interface {
	// Params returns the parameter set of the engine.
	Params() *Params
	// GeneratePublicKey creates a new key pair and returns its public part.
	GeneratePublicKey() (*PublicKey, error)
	// Encrypt encrypts the plaintext coefficients (reduced modulo t) under
	// pk, returning the ciphertext and the randomness used.
	Encrypt(pk *PublicKey, plaintext []*big.Int) (*Ciphertext, *EncryptionWitness, error)
	// Add returns the homomorphic sum of two ciphertexts.
	Add(a, b *Ciphertext) (*Ciphertext, error)
}

// SecretKey is a ternary polynomial s.
type SecretKey struct {
	S []*big.Int
}

// PublicKey is the pair (pk0, pk1) in RNS form.
type PublicKey struct {
	Pk0 Poly
	Pk1 Poly
}

// Ciphertext is the pair (ct0, ct1) in RNS form.
type Ciphertext struct {
	C0 Poly
	C1 Poly
}

// Validate checks that both polynomials match params.
func (pk *PublicKey) Validate(params *Params) error {
	if pk == nil {
		return fmt.Errorf("%w: nil public key", ErrInvalidParams)
	}
	if err := pk.Pk0.CheckShape(params); err != nil {
		return fmt.Errorf("pk0: %w", err)
	}
	if err := pk.Pk1.CheckShape(params); err != nil {
		return fmt.Errorf("pk1: %w", err)
	}
	return nil
}

// Validate checks that both polynomials match params.
func (ct *Ciphertext) Validate(params *Params) error {
	if ct == nil {
		return fmt.Errorf("%w: nil ciphertext", ErrInvalidParams)
	}
	if err := ct.C0.CheckShape(params); err != nil {
		return fmt.Errorf("ct0: %w", err)
	}
	if err := ct.C1.CheckShape(params); err != nil {
		return fmt.Errorf("ct1: %w", err)
	}
	return nil
}

// Clone deep copies the ciphertext.
func (ct *Ciphertext) Clone() *Ciphertext {
	return &Ciphertext{C0: ct.C0.Clone(), C1: ct.C1.Clone()}
}

// EncryptionWitness holds the secret values used to build a ciphertext. U is
// ternary, E0 and E1 lie in [-B, B] and K1 is the plaintext in [0, t).
type EncryptionWitness struct {
	U  []*big.Int
	E0 []*big.Int
	E1 []*big.Int
	K1 []*big.Int
}

// Reference is an in-process Engine over math/big. It keeps the secret key
// of the last generated key pair so that tests and tally tooling can decrypt.
type Reference struct {
	params *Params
	rng    io.Reader

	mu sync.RWMutex
	sk *SecretKey
}

var _ Engine = (*Reference)(nil)

// NewReference returns a reference engine for the given parameters.
func NewReference(params *Params) (*Reference, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &Reference{params: params, rng: rand.Reader}, nil
}

// Params implements Engine.
func (r *Reference) Params() *Params {
	return r.params
}

// SecretKey returns the secret key of the last GeneratePublicKey call.
func (r *Reference) SecretKey() *SecretKey {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sk
}

// GeneratePublicKey implements Engine. The secret key is retained by the
// engine.
func (r *Reference) GeneratePublicKey() (*PublicKey, error) {
	sk, pk, err := r.KeyGen()
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	r.sk = sk
	r.mu.Unlock()
	return pk, nil
}

// KeyGen creates a fresh key pair without retaining it.
func (r *Reference) KeyGen() (*SecretKey, *PublicKey, error) {
	n := r.params.Degree
	s, err := r.ternary(n)
	if err != nil {
		return nil, nil, err
	}
	e, err := r.noise(n)
	if err != nil {
		return nil, nil, err
	}
	pk := &PublicKey{
		Pk0: make(Poly, r.params.Limbs()),
		Pk1: make(Poly, r.params.Limbs()),
	}
	for i, qi := range r.params.Moduli {
		a, err := r.uniform(n, qi)
		if err != nil {
			return nil, nil, err
		}
		as := mulNegacyclic(a, s, qi)
		pk.Pk0[i] = addMod(qi, neg(as), neg(e))
		pk.Pk1[i] = a
	}
	return &SecretKey{S: s}, pk, nil
}

// Encrypt implements Engine.
func (r *Reference) Encrypt(pk *PublicKey, plaintext []*big.Int) (*Ciphertext, *EncryptionWitness, error) {
	if pk == nil {
		return nil, nil, fmt.Errorf("%w: nil public key", ErrInvalidParams)
	}
	if err := pk.Pk0.CheckShape(r.params); err != nil {
		return nil, nil, fmt.Errorf("public key: %w", err)
	}
	if err := pk.Pk1.CheckShape(r.params); err != nil {
		return nil, nil, fmt.Errorf("public key: %w", err)
	}
	n := r.params.Degree
	if len(plaintext) != n {
		return nil, nil, fmt.Errorf("%w: plaintext has %d coefficients, expected %d", ErrInvalidParams, len(plaintext), n)
	}
	m := make([]*big.Int, n)
	for k, v := range plaintext {
		m[k] = new(big.Int).Mod(v, r.params.PlaintextModulus)
	}
	u, err := r.ternary(n)
	if err != nil {
		return nil, nil, err
	}
	e0, err := r.noise(n)
	if err != nil {
		return nil, nil, err
	}
	e1, err := r.noise(n)
	if err != nil {
		return nil, nil, err
	}
	ct := &Ciphertext{
		C0: make(Poly, r.params.Limbs()),
		C1: make(Poly, r.params.Limbs()),
	}
	deltas := r.params.DeltaLimbs()
	for i, qi := range r.params.Moduli {
		ct.C0[i] = addMod(qi, mulNegacyclic(pk.Pk0[i], u, qi), e0, scale(deltas[i], m))
		ct.C1[i] = addMod(qi, mulNegacyclic(pk.Pk1[i], u, qi), e1)
	}
	return ct, &EncryptionWitness{U: u, E0: e0, E1: e1, K1: m}, nil
}

// Add implements Engine.
func (r *Reference) Add(a, b *Ciphertext) (*Ciphertext, error) {
	if a == nil || b == nil {
		return nil, fmt.Errorf("%w: nil ciphertext", ErrInvalidParams)
	}
	for _, p := range []Poly{a.C0, a.C1, b.C0, b.C1} {
		if err := p.CheckShape(r.params); err != nil {
			return nil, fmt.Errorf("ciphertext: %w", err)
		}
	}
	sum := &Ciphertext{
		C0: make(Poly, r.params.Limbs()),
		C1: make(Poly, r.params.Limbs()),
	}
	for i, qi := range r.params.Moduli {
		sum.C0[i] = addMod(qi, a.C0[i], b.C0[i])
		sum.C1[i] = addMod(qi, a.C1[i], b.C1[i])
	}
	return sum, nil
}

// Decrypt recovers the plaintext coefficients, each in [0, t).
func (r *Reference) Decrypt(sk *SecretKey, ct *Ciphertext) ([]*big.Int, error) {
	if sk == nil || ct == nil {
		return nil, fmt.Errorf("%w: nil key or ciphertext", ErrInvalidParams)
	}
	if err := ct.C0.CheckShape(r.params); err != nil {
		return nil, fmt.Errorf("ciphertext: %w", err)
	}
	if err := ct.C1.CheckShape(r.params); err != nil {
		return nil, fmt.Errorf("ciphertext: %w", err)
	}
	limbs := make([][]*big.Int, r.params.Limbs())
	for i, qi := range r.params.Moduli {
		limbs[i] = addMod(qi, ct.C0[i], mulNegacyclic(ct.C1[i], sk.S, qi))
	}
	q := r.params.Q()
	t := r.params.PlaintextModulus
	twoQ := new(big.Int).Lsh(q, 1)
	out := make([]*big.Int, r.params.Degree)
	for k := range out {
		residues := make([]*big.Int, len(limbs))
		for i := range limbs {
			residues[i] = limbs[i][k]
		}
		x := Center(crt(residues, r.params.Moduli, q), q)
		// round(t·x/Q) = floor((2·t·x + Q) / 2Q)
		num := new(big.Int).Mul(x, t)
		num.Lsh(num, 1).Add(num, q)
		num.Div(num, twoQ)
		out[k] = num.Mod(num, t)
	}
	return out, nil
}

// crt recombines the residues into the unique value in [0, Q).
func crt(residues, moduli []*big.Int, q *big.Int) *big.Int {
	acc := new(big.Int)
	for i, qi := range moduli {
		qHat := new(big.Int).Quo(q, qi)
		inv := new(big.Int).ModInverse(qHat, qi)
		term := new(big.Int).Mul(residues[i], inv)
		term.Mod(term, qi)
		acc.Add(acc, term.Mul(term, qHat))
	}
	return acc.Mod(acc, q)
}

// ternary samples n coefficients uniformly from {-1, 0, 1}.
func (r *Reference) ternary(n int) ([]*big.Int, error) {
	return r.centeredUniform(n, 1)
}

// noise samples n coefficients uniformly from [-B, B].
func (r *Reference) noise(n int) ([]*big.Int, error) {
	return r.centeredUniform(n, r.params.NoiseBound)
}

func (r *Reference) centeredUniform(n int, bound int64) ([]*big.Int, error) {
	width := big.NewInt(2*bound + 1)
	out := make([]*big.Int, n)
	for k := range out {
		v, err := rand.Int(r.rng, width)
		if err != nil {
			return nil, fmt.Errorf("sample noise: %w", err)
		}
		out[k] = v.Sub(v, big.NewInt(bound))
	}
	return out, nil
}

func (r *Reference) uniform(n int, q *big.Int) ([]*big.Int, error) {
	out := make([]*big.Int, n)
	for k := range out {
		v, err := rand.Int(r.rng, q)
		if err != nil {
			return nil, fmt.Errorf("sample uniform: %w", err)
		}
		out[k] = v
	}
	return out, nil
}
