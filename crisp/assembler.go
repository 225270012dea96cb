// Package crisp assembles the circuit input bundle of a confidential
// ballot: it encrypts the encoded vote with the election BFV key, derives
// the correctness witness of the encryption, adds the ballot to the
// previous aggregated ciphertext and attaches the census proof and the
// authorization signature.
//
// Mask ballots carry the zero vote, an ephemeral signature and an empty
// census path. Their bundle has exactly the same shape as a genuine ballot
// and still updates the aggregated ciphertext, so observers cannot tell
// whether a slot owner voted.
package crisp

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/vocdoni/crisp-ballot/census"
	"github.com/vocdoni/crisp-ballot/crypto/bfv"
	"github.com/vocdoni/crisp-ballot/crypto/signatures/ethereum"
	"github.com/vocdoni/crisp-ballot/log"
	"github.com/vocdoni/crisp-ballot/types"
	"github.com/vocdoni/crisp-ballot/types/params"
	"github.com/vocdoni/crisp-ballot/util"
	"github.com/vocdoni/crisp-ballot/vote"
)

// maskMessageLength is the size of the random message signed by mask
// ballots.
const maskMessageLength = 32

// VoteRequest holds everything needed to build the bundle of a genuine
// ballot.
type VoteRequest struct {
	EncodedVote vote.EncodedVote
	PublicKey   *bfv.PublicKey
	// PreviousCiphertext is the aggregated ciphertext of the slot, nil for
	// the first contribution.
	PreviousCiphertext *bfv.Ciphertext
	Signature          []byte
	Message            []byte
	MerkleProof        *census.MerkleProof
	Balance            *big.Int
	SlotAddress        common.Address
}

// MaskRequest holds everything needed to build a mask ballot for a slot.
type MaskRequest struct {
	PublicKey          *bfv.PublicKey
	PreviousCiphertext *bfv.Ciphertext
	MerkleRoot         *big.Int
	SlotAddress        common.Address
}

// Ballot is an assembled ballot: the proving bundle, the fresh ballot
// ciphertext and the new aggregated ciphertext of the slot.
type Ballot struct {
	Inputs     *Inputs
	Ciphertext *bfv.Ciphertext
	Sum        *bfv.Ciphertext
}

// Assembler builds ballot bundles with a BFV engine. It holds no mutable
// state and can be shared between goroutines if the engine can.
type Assembler struct {
	engine bfv.Engine
}

// NewAssembler returns an assembler over engine.
func NewAssembler(engine bfv.Engine) *Assembler {
	return &Assembler{engine: engine}
}

// Params returns the BFV parameters of the underlying engine.
func (a *Assembler) Params() *bfv.Params {
	return a.engine.Params()
}

// EncryptVoteAndGenerateInputs encrypts the vote and assembles its bundle.
// The signature must recover to the slot address and the census proof leaf
// must commit to the slot address and balance.
func (a *Assembler) EncryptVoteAndGenerateInputs(ctx context.Context, req *VoteRequest) (*Ballot, error) {
	if req == nil || req.MerkleProof == nil || req.Balance == nil {
		return nil, fmt.Errorf("%w: incomplete vote request", ErrBundleShape)
	}
	comps, err := ethereum.ExtractSignatureComponents(req.Signature, req.Message)
	if err != nil {
		return nil, err
	}
	if signer := comps.Address(); signer != req.SlotAddress {
		return nil, fmt.Errorf("%w: signer %s does not own slot %s",
			ethereum.ErrSignature, signer.Hex(), req.SlotAddress.Hex())
	}
	leaf, err := census.LeafHash(req.SlotAddress, req.Balance)
	if err != nil {
		return nil, err
	}
	if req.MerkleProof.Leaf == nil || leaf.Cmp(req.MerkleProof.Leaf) != 0 {
		return nil, fmt.Errorf("%w: proof leaf does not commit to slot %s and balance %s",
			census.ErrLeafNotFound, req.SlotAddress.Hex(), req.Balance)
	}
	return a.assemble(ctx, req.EncodedVote, req.PublicKey, req.PreviousCiphertext,
		comps, req.MerkleProof, req.Balance, req.SlotAddress)
}

// GenerateMaskVote assembles a zero ballot for the slot, signed by an
// ephemeral key over a random message and with an empty census path.
func (a *Assembler) GenerateMaskVote(ctx context.Context, req *MaskRequest) (*Ballot, error) {
	if req == nil {
		return nil, fmt.Errorf("%w: nil mask request", ErrBundleShape)
	}
	encoded, err := vote.EncodeVote(vote.Vote{}, vote.ModeGovernance, 0, a.Params().Degree)
	if err != nil {
		return nil, err
	}
	signer, err := ethereum.NewSigner()
	if err != nil {
		return nil, err
	}
	msg := util.RandomBytes(maskMessageLength)
	sig, err := signer.Sign(msg)
	if err != nil {
		return nil, err
	}
	comps, err := ethereum.ExtractSignatureComponents(sig.Bytes(), msg)
	if err != nil {
		return nil, err
	}
	proof := census.ZeroProof(req.MerkleRoot, params.MaxMerkleDepth)
	return a.assemble(ctx, encoded, req.PublicKey, req.PreviousCiphertext,
		comps, proof, new(big.Int), req.SlotAddress)
}

func (a *Assembler) assemble(
	ctx context.Context,
	encoded vote.EncodedVote,
	pk *bfv.PublicKey,
	prev *bfv.Ciphertext,
	comps *ethereum.SignatureComponents,
	proof *census.MerkleProof,
	balance *big.Int,
	slot common.Address,
) (*Ballot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p := a.Params()
	if len(encoded) != p.Degree {
		return nil, fmt.Errorf("%w: encoded vote has %d slots, expected %d", ErrBundleShape, len(encoded), p.Degree)
	}
	if err := pk.Validate(p); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBundleShape, err)
	}
	if prev != nil {
		if err := prev.Validate(p); err != nil {
			return nil, fmt.Errorf("%w: previous ciphertext: %w", ErrBundleShape, err)
		}
	}
	plaintext, err := encoded.Plaintext(p.PlaintextModulus)
	if err != nil {
		return nil, err
	}

	ct, w, err := a.engine.Encrypt(pk, plaintext)
	if err != nil {
		return nil, fmt.Errorf("encrypt ballot: %w", err)
	}
	witness, err := ComputeWitness(p, pk, ct, w)
	if err != nil {
		return nil, fmt.Errorf("encryption witness: %w", err)
	}

	sum := ct.Clone()
	prevC0, prevC1 := zeroMatrix(p), zeroMatrix(p)
	if prev != nil {
		if sum, err = a.engine.Add(prev, ct); err != nil {
			return nil, fmt.Errorf("aggregate ballot: %w", err)
		}
		prevC0, prevC1 = prev.C0.Centered(p), prev.C1.Centered(p)
	}
	ct0, ct1 := ct.C0.Centered(p), ct.C1.Centered(p)
	sum0, sum1 := sum.C0.Centered(p), sum.C1.Centered(p)
	sumR0 := make([][]*big.Int, p.Limbs())
	sumR1 := make([][]*big.Int, p.Limbs())
	for i, q := range p.Moduli {
		if sumR0[i], err = sumQuotients(q, sum0[i], prevC0[i], ct0[i]); err != nil {
			return nil, fmt.Errorf("ct0 limb %d: %w", i, err)
		}
		if sumR1[i], err = sumQuotients(q, sum1[i], prevC1[i], ct1[i]); err != nil {
			return nil, fmt.Errorf("ct1 limb %d: %w", i, err)
		}
	}

	inputs := &Inputs{
		Pk0is:     types.NewBigIntMatrix(pk.Pk0.Centered(p)),
		Pk1is:     types.NewBigIntMatrix(pk.Pk1.Centered(p)),
		Ct0is:     types.NewBigIntMatrix(ct0),
		Ct1is:     types.NewBigIntMatrix(ct1),
		R1is:      types.NewBigIntMatrix(witness.R1),
		R2is:      types.NewBigIntMatrix(witness.R2),
		P1is:      types.NewBigIntMatrix(witness.P1),
		P2is:      types.NewBigIntMatrix(witness.P2),
		U:         types.NewBigIntList(w.U),
		E0:        types.NewBigIntList(w.E0),
		E1:        types.NewBigIntList(w.E1),
		K1:        types.NewBigIntList(w.K1),
		PrevCt0is: types.NewBigIntMatrix(prevC0),
		PrevCt1is: types.NewBigIntMatrix(prevC1),
		SumCt0is:  types.NewBigIntMatrix(sum0),
		SumCt1is:  types.NewBigIntMatrix(sum1),
		SumR0is:   types.NewBigIntMatrix(sumR0),
		SumR1is:   types.NewBigIntMatrix(sumR1),

		MerkleRoot:          types.NewBigInt(proof.Root),
		MerkleProofLength:   proof.Length,
		MerkleProofIndices:  proof.IndicesList(),
		MerkleProofSiblings: proof.SiblingsList(),
		Balance:             types.NewBigInt(balance),
		SlotAddress:         types.NewBigInt(slot.Big()),

		PublicKeyX:    comps.PublicKeyX,
		PublicKeyY:    comps.PublicKeyY,
		Signature:     comps.Signature,
		HashedMessage: comps.MessageHash,
	}
	if err := inputs.Validate(p); err != nil {
		return nil, err
	}
	log.Debugw("ballot bundle assembled",
		"slot", slot.Hex(),
		"limbs", p.Limbs(),
		"degree", p.Degree,
		"previous", prev != nil)
	return &Ballot{Inputs: inputs, Ciphertext: ct, Sum: sum}, nil
}

func zeroMatrix(p *bfv.Params) [][]*big.Int {
	m := make([][]*big.Int, p.Limbs())
	for i := range m {
		m[i] = bfv.ZeroCoeffs(p.Degree)
	}
	return m
}
