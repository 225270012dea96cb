package crisp

import (
	"fmt"
	"math/big"

	"github.com/vocdoni/crisp-ballot/crypto/bfv"
)

// Witness holds the integer polynomials that, together with the centered
// public key and ciphertexts, satisfy the encryption identities of every
// limb i:
//
//	ct0_i = pk0_i·u + e0 + Δ_i·k1 + r2_i·(X^N+1) + r1_i·q_i
//	ct1_i = pk1_i·u + e1 + p2_i·(X^N+1) + p1_i·q_i
type Witness struct {
	R1 [][]*big.Int
	R2 [][]*big.Int
	P1 [][]*big.Int
	P2 [][]*big.Int
}

// ComputeWitness derives the quotient polynomials of ct for the given key
// and encryption randomness.
func ComputeWitness(p *bfv.Params, pk *bfv.PublicKey, ct *bfv.Ciphertext, w *bfv.EncryptionWitness) (*Witness, error) {
	pk0, pk1 := pk.Pk0.Centered(p), pk.Pk1.Centered(p)
	ct0, ct1 := ct.C0.Centered(p), ct.C1.Centered(p)
	deltas := p.DeltaLimbs()
	out := &Witness{
		R1: make([][]*big.Int, p.Limbs()),
		R2: make([][]*big.Int, p.Limbs()),
		P1: make([][]*big.Int, p.Limbs()),
		P2: make([][]*big.Int, p.Limbs()),
	}
	for i, q := range p.Moduli {
		var err error
		out.R1[i], out.R2[i], err = quotients(q, pk0[i], ct0[i], w.U, w.E0, deltas[i], w.K1)
		if err != nil {
			return nil, fmt.Errorf("ct0 limb %d: %w", i, err)
		}
		out.P1[i], out.P2[i], err = quotients(q, pk1[i], ct1[i], w.U, w.E1, nil, nil)
		if err != nil {
			return nil, fmt.Errorf("ct1 limb %d: %w", i, err)
		}
	}
	return out, nil
}

// quotients returns r1 (length N) and r2 (length N-1) such that
// ct = pk·u + e + delta·k + r2·(X^N+1) + r1·q over the integers. The delta
// term is skipped when delta is nil.
func quotients(q *big.Int, pk, ct, u, e []*big.Int, delta *big.Int, k []*big.Int) ([]*big.Int, []*big.Int, error) {
	n := len(ct)
	prod := bfv.PolyMul(pk, u)
	for j := range n {
		prod[j].Add(prod[j], e[j])
		if delta != nil {
			prod[j].Add(prod[j], new(big.Int).Mul(delta, k[j]))
		}
	}
	r1 := make([]*big.Int, n)
	r2 := make([]*big.Int, n-1)
	rem := new(big.Int)
	for j := range n {
		// prod mod (X^N+1)
		reduced := new(big.Int).Set(prod[j])
		if j < n-1 {
			reduced.Sub(reduced, prod[n+j])
			r2[j] = new(big.Int).Neg(prod[n+j])
		}
		diff := new(big.Int).Sub(ct[j], reduced)
		r1[j], rem = new(big.Int).QuoRem(diff, q, rem)
		if rem.Sign() != 0 {
			return nil, nil, fmt.Errorf("coefficient %d is not congruent modulo %s", j, q)
		}
	}
	return r1, r2, nil
}

// sumQuotients returns r such that sum = prev + ct + r·q coefficient-wise
// for centered rows.
func sumQuotients(q *big.Int, sum, prev, ct []*big.Int) ([]*big.Int, error) {
	r := make([]*big.Int, len(sum))
	rem := new(big.Int)
	for j := range sum {
		diff := new(big.Int).Sub(sum[j], prev[j])
		diff.Sub(diff, ct[j])
		r[j], rem = new(big.Int).QuoRem(diff, q, rem)
		if rem.Sign() != 0 {
			return nil, fmt.Errorf("sum coefficient %d is not congruent modulo %s", j, q)
		}
	}
	return r, nil
}
