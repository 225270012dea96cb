// Package ballotproof defines the circuit that proves a BFV ballot is well
// formed without revealing it. Given the election public key (pk0, pk1), the
// previous aggregated ciphertext and the new aggregated ciphertext, the
// prover shows knowledge of a ballot ciphertext ct and its encryption
// randomness such that:
//
//   - ct encrypts the plaintext k1 under pk, in every RNS limb i:
//     ct0_i = pk0_i·u + e0 + Δ_i·k1 + r2_i·(X^N+1) + r1_i·q_i and
//     ct1_i = pk1_i·u + e1 + p2_i·(X^N+1) + p1_i·q_i over the integers.
//     Both identities are checked at a random point γ derived from a
//     Poseidon transcript of every polynomial involved.
//   - u is ternary and e0, e1, r1, r2, p1, p2 and ct are small enough for
//     the identities to hold over the integers and not only in the field.
//   - k1 is a valid vote: binary slots, only the last MaxVoteBits slots of
//     each half in use, yes+no not above the leaf balance and, in governance
//     mode, not both options at once.
//   - sum_ct = prev_ct + ct + sum_r·q_i coefficient-wise, with ternary sum_r.
//   - the ballot is authorized: Poseidon(slot_address, balance) belongs to
//     merkle_root and, when signature verification is enabled, the ECDSA
//     signature over hashed_message is valid for a public key whose address
//     is slot_address. Unauthorized ballots must carry the zero vote, which
//     is how mask ballots stay indistinguishable from genuine ones.
//
// Signed quantities are assigned as field elements modulo the BN254 scalar
// field. All polynomials are given by their centered coefficients.
package ballotproof

import (
	"fmt"
	"math/big"

	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/std/rangecheck"
	"github.com/vocdoni/crisp-ballot/circuits"
	"github.com/vocdoni/crisp-ballot/circuits/merkleproof"
	"github.com/vocdoni/crisp-ballot/crypto/bfv"
	"github.com/vocdoni/crisp-ballot/types/params"
	"github.com/vocdoni/crisp-ballot/vote"
	gnarkposeidon "github.com/vocdoni/gnark-crypto-primitives/hash/native/bn254/poseidon"
)

// HashFn is the in-circuit hash. It matches crypto/hash/poseidon.MultiHash.
var HashFn = gnarkposeidon.MultiHash

// Options are compile-time switches of the circuit. Different options give
// different constraint systems.
type Options struct {
	// VerifySignature enables in-circuit ECDSA verification and address
	// derivation. Without it the signature bytes are only range checked and
	// authorization relies on census membership alone, which anyone can
	// prove; leave it off only for tests.
	VerifySignature bool `json:"verifySignature" cbor:"verifySignature"`
	// Mode is the ballot policy enforced on k1.
	Mode vote.Mode `json:"mode" cbor:"mode"`
}

// String returns a short description used in logs and artifact keys.
func (o Options) String() string {
	return fmt.Sprintf("sig=%t,mode=%s", o.VerifySignature, o.Mode)
}

// Circuit is the ballot proof circuit. Slices are sized by NewPlaceholder
// from the BFV parameters; matrices are indexed [limb][coefficient].
type Circuit struct {
	MerkleRoot  frontend.Variable     `gnark:",public"`
	SlotAddress frontend.Variable     `gnark:",public"`
	Pk0is       [][]frontend.Variable `gnark:",public"`
	Pk1is       [][]frontend.Variable `gnark:",public"`
	PrevCt0is   [][]frontend.Variable `gnark:",public"`
	PrevCt1is   [][]frontend.Variable `gnark:",public"`
	SumCt0is    [][]frontend.Variable `gnark:",public"`
	SumCt1is    [][]frontend.Variable `gnark:",public"`

	Ct0is   [][]frontend.Variable
	Ct1is   [][]frontend.Variable
	R1is    [][]frontend.Variable
	R2is    [][]frontend.Variable
	P1is    [][]frontend.Variable
	P2is    [][]frontend.Variable
	SumR0is [][]frontend.Variable
	SumR1is [][]frontend.Variable
	U       []frontend.Variable
	E0      []frontend.Variable
	E1      []frontend.Variable
	K1      []frontend.Variable

	MerkleProofLength   frontend.Variable
	MerkleProofIndices  []frontend.Variable
	MerkleProofSiblings []frontend.Variable
	Balance             frontend.Variable

	PublicKeyX    []frontend.Variable
	PublicKeyY    []frontend.Variable
	Signature     []frontend.Variable
	HashedMessage []frontend.Variable

	Params  *bfv.Params `gnark:"-"`
	Options Options     `gnark:"-"`
}

// NewPlaceholder returns a circuit definition sized for p.
func NewPlaceholder(p *bfv.Params, opts Options) *Circuit {
	l, n := p.Limbs(), p.Degree
	return &Circuit{
		Pk0is:     newMatrix(l, n),
		Pk1is:     newMatrix(l, n),
		PrevCt0is: newMatrix(l, n),
		PrevCt1is: newMatrix(l, n),
		SumCt0is:  newMatrix(l, n),
		SumCt1is:  newMatrix(l, n),
		Ct0is:     newMatrix(l, n),
		Ct1is:     newMatrix(l, n),
		R1is:      newMatrix(l, n),
		R2is:      newMatrix(l, n-1),
		P1is:      newMatrix(l, n),
		P2is:      newMatrix(l, n-1),
		SumR0is:   newMatrix(l, n),
		SumR1is:   newMatrix(l, n),
		U:         make([]frontend.Variable, n),
		E0:        make([]frontend.Variable, n),
		E1:        make([]frontend.Variable, n),
		K1:        make([]frontend.Variable, n),

		MerkleProofIndices:  make([]frontend.Variable, params.MaxMerkleDepth),
		MerkleProofSiblings: make([]frontend.Variable, params.MaxMerkleDepth),

		PublicKeyX:    make([]frontend.Variable, params.CoordinateLength),
		PublicKeyY:    make([]frontend.Variable, params.CoordinateLength),
		Signature:     make([]frontend.Variable, params.SignatureLength),
		HashedMessage: make([]frontend.Variable, params.HashLength),

		Params:  p,
		Options: opts,
	}
}

func newMatrix(rows, cols int) [][]frontend.Variable {
	m := make([][]frontend.Variable, rows)
	for i := range m {
		m[i] = make([]frontend.Variable, cols)
	}
	return m
}

// Define declares the circuit constraints.
func (c *Circuit) Define(api frontend.API) error {
	if c.Params == nil {
		return fmt.Errorf("circuit defined without bfv parameters")
	}
	rc := rangecheck.New(api)

	total, err := c.checkVote(api, rc)
	if err != nil {
		return err
	}
	c.checkRanges(api, rc)
	if err := c.checkEncryption(api); err != nil {
		return err
	}
	c.checkSums(api)

	authorized, err := c.authorized(api)
	if err != nil {
		return err
	}
	// unauthorized ballots can only add zero
	api.AssertIsEqual(api.Mul(api.Sub(1, authorized), total), 0)
	return nil
}

// checkVote constrains k1 to a valid ballot and returns yes+no.
func (c *Circuit) checkVote(api frontend.API, rc frontend.Rangechecker) (frontend.Variable, error) {
	half := len(c.K1) / 2
	if half == 0 || 2*half != len(c.K1) {
		return nil, fmt.Errorf("plaintext degree %d is not even", len(c.K1))
	}
	first := max(0, half-params.MaxVoteBits)
	options := make([]frontend.Variable, 2)
	for o := range options {
		acc := frontend.Variable(0)
		for p := range half {
			slot := c.K1[o*half+p]
			if p < first {
				api.AssertIsEqual(slot, 0)
				continue
			}
			api.AssertIsBoolean(slot)
			weight := new(big.Int).Lsh(big.NewInt(1), uint(half-1-p))
			acc = api.Add(acc, api.Mul(slot, weight))
		}
		options[o] = acc
	}
	yes, no := options[0], options[1]
	if c.Options.Mode == vote.ModeGovernance {
		api.AssertIsEqual(api.Mul(yes, no), 0)
	}
	total := api.Add(yes, no)
	rc.Check(total, params.MaxVoteBits)
	api.AssertIsLessOrEqual(total, c.Balance)
	return total, nil
}

// checkRanges bounds every private polynomial so that the encryption and
// sum identities cannot wrap around the field.
func (c *Circuit) checkRanges(api frontend.API, rc frontend.Rangechecker) {
	n := int64(c.Params.Degree)
	noise := big.NewInt(c.Params.NoiseBound)
	for _, u := range c.U {
		api.AssertIsEqual(api.Mul(u, api.Sub(u, 1), api.Add(u, 1)), 0)
	}
	checkCentered(api, rc, noise, c.E0, c.E1)
	for i, q := range c.Params.Moduli {
		halfQ := new(big.Int).Rsh(q, 1)
		quotient := big.NewInt(n + 2)
		reduction := new(big.Int).Mul(q, big.NewInt(n))
		checkCentered(api, rc, halfQ, c.Ct0is[i], c.Ct1is[i], c.SumCt0is[i], c.SumCt1is[i])
		checkCentered(api, rc, quotient, c.R1is[i], c.P1is[i])
		checkCentered(api, rc, reduction, c.R2is[i], c.P2is[i])
		for j := range c.SumR0is[i] {
			for _, r := range []frontend.Variable{c.SumR0is[i][j], c.SumR1is[i][j]} {
				api.AssertIsEqual(api.Mul(r, api.Sub(r, 1), api.Add(r, 1)), 0)
			}
		}
	}
}

// checkCentered asserts |v| <= bound, up to the next power of two, for
// every value of every vector.
func checkCentered(api frontend.API, rc frontend.Rangechecker, bound *big.Int, vectors ...[]frontend.Variable) {
	nbBits := new(big.Int).Lsh(bound, 1).BitLen()
	for _, vec := range vectors {
		for _, v := range vec {
			rc.Check(api.Add(v, bound), nbBits)
		}
	}
}

// checkEncryption verifies both encryption identities of every limb at the
// transcript challenge.
func (c *Circuit) checkEncryption(api frontend.API) error {
	gamma, err := c.challenge(api)
	if err != nil {
		return err
	}
	powers := evaluationPowers(api, gamma, c.Params.Degree)
	// X^N + 1 at gamma
	cyclo := api.Add(api.Mul(powers[c.Params.Degree-1], gamma), 1)

	u := evaluate(api, powers, c.U)
	e0 := evaluate(api, powers, c.E0)
	e1 := evaluate(api, powers, c.E1)
	k1 := evaluate(api, powers, c.K1)
	deltas := c.Params.DeltaLimbs()
	for i, q := range c.Params.Moduli {
		ct0 := api.Add(
			api.Mul(evaluate(api, powers, c.Pk0is[i]), u),
			e0,
			api.Mul(k1, deltas[i]),
			api.Mul(evaluate(api, powers, c.R2is[i]), cyclo),
			api.Mul(evaluate(api, powers, c.R1is[i]), q),
		)
		api.AssertIsEqual(ct0, evaluate(api, powers, c.Ct0is[i]))

		ct1 := api.Add(
			api.Mul(evaluate(api, powers, c.Pk1is[i]), u),
			e1,
			api.Mul(evaluate(api, powers, c.P2is[i]), cyclo),
			api.Mul(evaluate(api, powers, c.P1is[i]), q),
		)
		api.AssertIsEqual(ct1, evaluate(api, powers, c.Ct1is[i]))
	}
	return nil
}

// checkSums verifies sum = prev + ct + sum_r·q coefficient-wise.
func (c *Circuit) checkSums(api frontend.API) {
	for i, q := range c.Params.Moduli {
		for j := range c.Ct0is[i] {
			api.AssertIsEqual(c.SumCt0is[i][j],
				api.Add(c.PrevCt0is[i][j], c.Ct0is[i][j], api.Mul(c.SumR0is[i][j], q)))
			api.AssertIsEqual(c.SumCt1is[i][j],
				api.Add(c.PrevCt1is[i][j], c.Ct1is[i][j], api.Mul(c.SumR1is[i][j], q)))
		}
	}
}

// authorized returns 1 when the slot is in the census and, if enabled, the
// signature binds the ballot to the slot address.
func (c *Circuit) authorized(api frontend.API) (frontend.Variable, error) {
	leaf, err := HashFn(api, c.SlotAddress, c.Balance)
	if err != nil {
		return nil, fmt.Errorf("census leaf hash: %w", err)
	}
	proof := merkleproof.CensusProof{
		Root:     c.MerkleRoot,
		Length:   c.MerkleProofLength,
		Siblings: c.MerkleProofSiblings,
		Indices:  c.MerkleProofIndices,
	}
	inCensus, err := proof.IsValid(api, HashFn, leaf)
	if err != nil {
		return nil, fmt.Errorf("census proof: %w", err)
	}
	sig, err := c.signature(api)
	if err != nil {
		return nil, err
	}
	if !c.Options.VerifySignature {
		return inCensus, nil
	}
	return api.Mul(inCensus, sig), nil
}

// Fingerprint identifies the constraint system built for p and opts.
func Fingerprint(p *bfv.Params, opts Options) string {
	return circuits.HashBytesSHA256([]byte(p.Fingerprint() + "/" + opts.String()))
}
