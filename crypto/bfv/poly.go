package bfv

import (
	"fmt"
	"math/big"
)

// Poly is an element of Z_Q[X]/(X^N+1) in RNS form: one row of N
// coefficients per modulus, every coefficient in [0, q_i).
type Poly [][]*big.Int

// NewPoly returns the zero polynomial with the given shape.
func NewPoly(limbs, degree int) Poly {
	p := make(Poly, limbs)
	for i := range p {
		p[i] = ZeroCoeffs(degree)
	}
	return p
}

// ZeroCoeffs returns n zero coefficients.
func ZeroCoeffs(n int) []*big.Int {
	out := make([]*big.Int, n)
	for i := range out {
		out[i] = new(big.Int)
	}
	return out
}

// Clone deep copies the polynomial.
func (p Poly) Clone() Poly {
	out := make(Poly, len(p))
	for i, limb := range p {
		out[i] = CloneCoeffs(limb)
	}
	return out
}

// CloneCoeffs deep copies a coefficient vector.
func CloneCoeffs(c []*big.Int) []*big.Int {
	out := make([]*big.Int, len(c))
	for i, v := range c {
		out[i] = new(big.Int).Set(v)
	}
	return out
}

// CheckShape verifies that the polynomial has one row of degree coefficients
// per modulus of params.
func (p Poly) CheckShape(params *Params) error {
	if len(p) != params.Limbs() {
		return fmt.Errorf("%w: polynomial has %d limbs, expected %d", ErrInvalidParams, len(p), params.Limbs())
	}
	for i, limb := range p {
		if len(limb) != params.Degree {
			return fmt.Errorf("%w: limb %d has %d coefficients, expected %d", ErrInvalidParams, i, len(limb), params.Degree)
		}
	}
	return nil
}

// Centered returns the symmetric representatives of the coefficients: each
// limb i is mapped to (-q_i/2, q_i/2].
func (p Poly) Centered(params *Params) [][]*big.Int {
	out := make([][]*big.Int, len(p))
	for i, limb := range p {
		out[i] = make([]*big.Int, len(limb))
		for j, c := range limb {
			out[i][j] = Center(c, params.Moduli[i])
		}
	}
	return out
}

// Center maps x mod q to its representative in (-q/2, q/2].
func Center(x, q *big.Int) *big.Int {
	r := new(big.Int).Mod(x, q)
	if new(big.Int).Lsh(r, 1).Cmp(q) > 0 {
		r.Sub(r, q)
	}
	return r
}

// PolyMul returns the plain integer product of two coefficient vectors, of
// length len(a)+len(b)-1, without any modular or cyclotomic reduction.
func PolyMul(a, b []*big.Int) []*big.Int {
	if len(a) == 0 || len(b) == 0 {
		return nil
	}
	out := ZeroCoeffs(len(a) + len(b) - 1)
	tmp := new(big.Int)
	for i, ai := range a {
		if ai.Sign() == 0 {
			continue
		}
		for j, bj := range b {
			out[i+j].Add(out[i+j], tmp.Mul(ai, bj))
		}
	}
	return out
}

// mulNegacyclic returns a·b mod (X^N+1, q) with coefficients in [0, q).
func mulNegacyclic(a, b []*big.Int, q *big.Int) []*big.Int {
	n := len(a)
	full := PolyMul(a, b)
	out := make([]*big.Int, n)
	for k := range n {
		out[k] = new(big.Int).Set(full[k])
		if k+n < len(full) {
			out[k].Sub(out[k], full[k+n])
		}
		out[k].Mod(out[k], q)
	}
	return out
}

// addMod returns the coefficient-wise sum of the vectors reduced modulo q.
func addMod(q *big.Int, vectors ...[]*big.Int) []*big.Int {
	out := ZeroCoeffs(len(vectors[0]))
	for _, v := range vectors {
		for k := range out {
			out[k].Add(out[k], v[k])
		}
	}
	for k := range out {
		out[k].Mod(out[k], q)
	}
	return out
}

// scale returns c·v coefficient-wise.
func scale(c *big.Int, v []*big.Int) []*big.Int {
	out := make([]*big.Int, len(v))
	for k, x := range v {
		out[k] = new(big.Int).Mul(c, x)
	}
	return out
}

// neg returns -v coefficient-wise.
func neg(v []*big.Int) []*big.Int {
	out := make([]*big.Int, len(v))
	for k, x := range v {
		out[k] = new(big.Int).Neg(x)
	}
	return out
}
