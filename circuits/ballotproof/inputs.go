package ballotproof

import (
	"fmt"
	"math/big"

	"github.com/consensys/gnark/frontend"
	"github.com/vocdoni/crisp-ballot/circuits"
	"github.com/vocdoni/crisp-ballot/crypto/bfv"
	"github.com/vocdoni/crisp-ballot/types/params"
)

// Input bundle field names.
const (
	NamePk0is               = "pk0is"
	NamePk1is               = "pk1is"
	NameCt0is               = "ct0is"
	NameCt1is               = "ct1is"
	NameR1is                = "r1is"
	NameR2is                = "r2is"
	NameP1is                = "p1is"
	NameP2is                = "p2is"
	NameU                   = "u"
	NameE0                  = "e0"
	NameE1                  = "e1"
	NameK1                  = "k1"
	NamePrevCt0is           = "prev_ct0is"
	NamePrevCt1is           = "prev_ct1is"
	NameSumCt0is            = "sum_ct0is"
	NameSumCt1is            = "sum_ct1is"
	NameSumR0is             = "sum_r0is"
	NameSumR1is             = "sum_r1is"
	NameMerkleRoot          = "merkle_root"
	NameMerkleProofLength   = "merkle_proof_length"
	NameMerkleProofIndices  = "merkle_proof_indices"
	NameMerkleProofSiblings = "merkle_proof_siblings"
	NameBalance             = "balance"
	NameSlotAddress         = "slot_address"
	NamePublicKeyX          = "public_key_x"
	NamePublicKeyY          = "public_key_y"
	NameSignature           = "signature"
	NameHashedMessage       = "hashed_message"
)

// InputNames is the complete list of bundle fields accepted by the circuit.
var InputNames = []string{
	NamePk0is, NamePk1is, NameCt0is, NameCt1is,
	NameR1is, NameR2is, NameP1is, NameP2is,
	NameU, NameE0, NameE1, NameK1,
	NamePrevCt0is, NamePrevCt1is, NameSumCt0is, NameSumCt1is,
	NameSumR0is, NameSumR1is,
	NameMerkleRoot, NameMerkleProofLength, NameMerkleProofIndices, NameMerkleProofSiblings,
	NameBalance, NameSlotAddress,
	NamePublicKeyX, NamePublicKeyY, NameSignature, NameHashedMessage,
}

// PublicInputNames lists the public fields in witness order.
var PublicInputNames = []string{
	NameMerkleRoot, NameSlotAddress,
	NamePk0is, NamePk1is,
	NamePrevCt0is, NamePrevCt1is,
	NameSumCt0is, NameSumCt1is,
}

// NbPublicInputs returns the number of public field elements for p.
func NbPublicInputs(p *bfv.Params) int {
	return 2 + 6*p.Limbs()*p.Degree
}

// AssignmentFromInputs parses a named bundle into a circuit assignment.
// Every field of InputNames must be present with the shape implied by p and
// no other field is accepted. Signed values are mapped into the scalar
// field.
func AssignmentFromInputs(p *bfv.Params, opts Options, in circuits.NamedInputs) (*Circuit, error) {
	if err := in.CheckNames(InputNames); err != nil {
		return nil, err
	}
	a := NewPlaceholder(p, opts)

	for _, f := range []struct {
		name string
		dst  [][]frontend.Variable
	}{
		{NamePk0is, a.Pk0is}, {NamePk1is, a.Pk1is},
		{NameCt0is, a.Ct0is}, {NameCt1is, a.Ct1is},
		{NameR1is, a.R1is}, {NameR2is, a.R2is},
		{NameP1is, a.P1is}, {NameP2is, a.P2is},
		{NamePrevCt0is, a.PrevCt0is}, {NamePrevCt1is, a.PrevCt1is},
		{NameSumCt0is, a.SumCt0is}, {NameSumCt1is, a.SumCt1is},
		{NameSumR0is, a.SumR0is}, {NameSumR1is, a.SumR1is},
	} {
		m, err := in.Matrix(f.name, len(f.dst), len(f.dst[0]))
		if err != nil {
			return nil, err
		}
		for i := range m {
			assignList(f.dst[i], m[i])
		}
	}

	for _, f := range []struct {
		name string
		dst  []frontend.Variable
	}{
		{NameU, a.U}, {NameE0, a.E0}, {NameE1, a.E1}, {NameK1, a.K1},
		{NameMerkleProofIndices, a.MerkleProofIndices},
		{NameMerkleProofSiblings, a.MerkleProofSiblings},
		{NamePublicKeyX, a.PublicKeyX}, {NamePublicKeyY, a.PublicKeyY},
		{NameSignature, a.Signature}, {NameHashedMessage, a.HashedMessage},
	} {
		list, err := in.List(f.name, len(f.dst))
		if err != nil {
			return nil, err
		}
		assignList(f.dst, list)
	}

	for _, f := range []struct {
		name string
		dst  *frontend.Variable
	}{
		{NameMerkleRoot, &a.MerkleRoot},
		{NameMerkleProofLength, &a.MerkleProofLength},
		{NameBalance, &a.Balance},
		{NameSlotAddress, &a.SlotAddress},
	} {
		v, err := in.Scalar(f.name)
		if err != nil {
			return nil, err
		}
		*f.dst = toField(v)
	}
	if err := checkLength(a.MerkleProofLength); err != nil {
		return nil, err
	}
	return a, nil
}

func assignList(dst []frontend.Variable, src []*big.Int) {
	for j, v := range src {
		dst[j] = toField(v)
	}
}

func toField(v *big.Int) *big.Int {
	return circuits.ToField(v, params.BallotProofCurve)
}

func checkLength(v frontend.Variable) error {
	length, ok := v.(*big.Int)
	if !ok || length.Cmp(big.NewInt(params.MaxMerkleDepth)) > 0 {
		return fmt.Errorf("%w: merkle proof length %v exceeds %d levels",
			circuits.ErrInvalidInput, v, params.MaxMerkleDepth)
	}
	return nil
}
