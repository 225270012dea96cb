package crisp

import (
	"errors"
	"fmt"

	"github.com/vocdoni/crisp-ballot/circuits"
	bp "github.com/vocdoni/crisp-ballot/circuits/ballotproof"
	"github.com/vocdoni/crisp-ballot/crypto/bfv"
	"github.com/vocdoni/crisp-ballot/types"
	"github.com/vocdoni/crisp-ballot/types/params"
)

// ErrBundleShape is returned when a bundle does not match the array
// lengths and limb counts of the BFV parameters.
var ErrBundleShape = errors.New("invalid bundle shape")

// Inputs is the circuit input bundle of a ballot. Polynomials are given by
// their centered coefficients, matrices are indexed [limb][coefficient].
type Inputs struct {
	Pk0is     types.BigIntMatrix `json:"pk0is"`
	Pk1is     types.BigIntMatrix `json:"pk1is"`
	Ct0is     types.BigIntMatrix `json:"ct0is"`
	Ct1is     types.BigIntMatrix `json:"ct1is"`
	R1is      types.BigIntMatrix `json:"r1is"`
	R2is      types.BigIntMatrix `json:"r2is"`
	P1is      types.BigIntMatrix `json:"p1is"`
	P2is      types.BigIntMatrix `json:"p2is"`
	U         types.BigIntList   `json:"u"`
	E0        types.BigIntList   `json:"e0"`
	E1        types.BigIntList   `json:"e1"`
	K1        types.BigIntList   `json:"k1"`
	PrevCt0is types.BigIntMatrix `json:"prev_ct0is"`
	PrevCt1is types.BigIntMatrix `json:"prev_ct1is"`
	SumCt0is  types.BigIntMatrix `json:"sum_ct0is"`
	SumCt1is  types.BigIntMatrix `json:"sum_ct1is"`
	SumR0is   types.BigIntMatrix `json:"sum_r0is"`
	SumR1is   types.BigIntMatrix `json:"sum_r1is"`

	MerkleRoot          *types.BigInt    `json:"merkle_root"`
	MerkleProofLength   int              `json:"merkle_proof_length"`
	MerkleProofIndices  types.BigIntList `json:"merkle_proof_indices"`
	MerkleProofSiblings types.BigIntList `json:"merkle_proof_siblings"`
	Balance             *types.BigInt    `json:"balance"`
	SlotAddress         *types.BigInt    `json:"slot_address"`

	PublicKeyX    [params.CoordinateLength]byte `json:"public_key_x"`
	PublicKeyY    [params.CoordinateLength]byte `json:"public_key_y"`
	Signature     [params.SignatureLength]byte  `json:"signature"`
	HashedMessage [params.HashLength]byte       `json:"hashed_message"`
}

// Validate checks every array length and limb count against p and the
// fixed census proof capacity. The error names the offending field.
func (in *Inputs) Validate(p *bfv.Params) error {
	if in == nil {
		return fmt.Errorf("%w: nil bundle", ErrBundleShape)
	}
	if err := p.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrBundleShape, err)
	}
	l, n := p.Limbs(), p.Degree
	for _, f := range []struct {
		name string
		m    types.BigIntMatrix
		cols int
	}{
		{bp.NamePk0is, in.Pk0is, n}, {bp.NamePk1is, in.Pk1is, n},
		{bp.NameCt0is, in.Ct0is, n}, {bp.NameCt1is, in.Ct1is, n},
		{bp.NameR1is, in.R1is, n}, {bp.NameR2is, in.R2is, n - 1},
		{bp.NameP1is, in.P1is, n}, {bp.NameP2is, in.P2is, n - 1},
		{bp.NamePrevCt0is, in.PrevCt0is, n}, {bp.NamePrevCt1is, in.PrevCt1is, n},
		{bp.NameSumCt0is, in.SumCt0is, n}, {bp.NameSumCt1is, in.SumCt1is, n},
		{bp.NameSumR0is, in.SumR0is, n}, {bp.NameSumR1is, in.SumR1is, n},
	} {
		if len(f.m) != l {
			return fmt.Errorf("%w: %s has %d limbs, expected %d", ErrBundleShape, f.name, len(f.m), l)
		}
		for i, row := range f.m {
			if err := checkList(f.name, row, f.cols); err != nil {
				return fmt.Errorf("%w (limb %d)", err, i)
			}
		}
	}
	for _, f := range []struct {
		name string
		l    types.BigIntList
		size int
	}{
		{bp.NameU, in.U, n}, {bp.NameE0, in.E0, n}, {bp.NameE1, in.E1, n}, {bp.NameK1, in.K1, n},
		{bp.NameMerkleProofIndices, in.MerkleProofIndices, params.MaxMerkleDepth},
		{bp.NameMerkleProofSiblings, in.MerkleProofSiblings, params.MaxMerkleDepth},
	} {
		if err := checkList(f.name, f.l, f.size); err != nil {
			return err
		}
	}
	for _, f := range []struct {
		name string
		v    *types.BigInt
	}{
		{bp.NameMerkleRoot, in.MerkleRoot},
		{bp.NameBalance, in.Balance},
		{bp.NameSlotAddress, in.SlotAddress},
	} {
		if f.v == nil {
			return fmt.Errorf("%w: %s is missing", ErrBundleShape, f.name)
		}
	}
	if in.MerkleProofLength < 0 || in.MerkleProofLength > params.MaxMerkleDepth {
		return fmt.Errorf("%w: %s %d outside [0, %d]",
			ErrBundleShape, bp.NameMerkleProofLength, in.MerkleProofLength, params.MaxMerkleDepth)
	}
	return nil
}

func checkList(name string, l types.BigIntList, size int) error {
	if len(l) != size {
		return fmt.Errorf("%w: %s has %d values, expected %d", ErrBundleShape, name, len(l), size)
	}
	for j, v := range l {
		if v == nil {
			return fmt.Errorf("%w: %s has a nil value at %d", ErrBundleShape, name, j)
		}
	}
	return nil
}

// NamedInputs returns the flat bundle handed to the proving backend.
func (in *Inputs) NamedInputs() circuits.NamedInputs {
	return circuits.NamedInputs{
		bp.NamePk0is:     in.Pk0is.Strings(),
		bp.NamePk1is:     in.Pk1is.Strings(),
		bp.NameCt0is:     in.Ct0is.Strings(),
		bp.NameCt1is:     in.Ct1is.Strings(),
		bp.NameR1is:      in.R1is.Strings(),
		bp.NameR2is:      in.R2is.Strings(),
		bp.NameP1is:      in.P1is.Strings(),
		bp.NameP2is:      in.P2is.Strings(),
		bp.NameU:         in.U.Strings(),
		bp.NameE0:        in.E0.Strings(),
		bp.NameE1:        in.E1.Strings(),
		bp.NameK1:        in.K1.Strings(),
		bp.NamePrevCt0is: in.PrevCt0is.Strings(),
		bp.NamePrevCt1is: in.PrevCt1is.Strings(),
		bp.NameSumCt0is:  in.SumCt0is.Strings(),
		bp.NameSumCt1is:  in.SumCt1is.Strings(),
		bp.NameSumR0is:   in.SumR0is.Strings(),
		bp.NameSumR1is:   in.SumR1is.Strings(),

		bp.NameMerkleRoot:          in.MerkleRoot.String(),
		bp.NameMerkleProofLength:   fmt.Sprint(in.MerkleProofLength),
		bp.NameMerkleProofIndices:  in.MerkleProofIndices.Strings(),
		bp.NameMerkleProofSiblings: in.MerkleProofSiblings.Strings(),
		bp.NameBalance:             in.Balance.String(),
		bp.NameSlotAddress:         in.SlotAddress.String(),

		bp.NamePublicKeyX:    circuits.BytesToStrings(in.PublicKeyX[:]),
		bp.NamePublicKeyY:    circuits.BytesToStrings(in.PublicKeyY[:]),
		bp.NameSignature:     circuits.BytesToStrings(in.Signature[:]),
		bp.NameHashedMessage: circuits.BytesToStrings(in.HashedMessage[:]),
	}
}
