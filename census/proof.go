package census

import (
	"fmt"
	"math/big"

	"github.com/vocdoni/crisp-ballot/types"
)

// MerkleProof is an inclusion proof padded to a fixed number of levels.
// Only the first Length entries of Siblings and Indices are meaningful; the
// rest are zero.
type MerkleProof struct {
	Leaf     *big.Int   `json:"leaf"`
	Root     *big.Int   `json:"root"`
	Siblings []*big.Int `json:"siblings"`
	Indices  []int      `json:"indices"`
	Length   int        `json:"length"`
}

// Path returns the meaningful part of the proof, ready for
// (*Tree).VerifyProof.
func (p *MerkleProof) Path() ([]*big.Int, []int, error) {
	if len(p.Siblings) != len(p.Indices) {
		return nil, nil, fmt.Errorf("%w: %d siblings for %d indices", ErrInvalidProof, len(p.Siblings), len(p.Indices))
	}
	if p.Length < 0 || p.Length > len(p.Siblings) {
		return nil, nil, fmt.Errorf("%w: length %d out of [0, %d]", ErrInvalidProof, p.Length, len(p.Siblings))
	}
	return p.Siblings[:p.Length], p.Indices[:p.Length], nil
}

// MaxDepth returns the padded size of the proof.
func (p *MerkleProof) MaxDepth() int {
	return len(p.Siblings)
}

// Verify checks the proof against its own root.
func (p *MerkleProof) Verify() bool {
	siblings, indices, err := p.Path()
	if err != nil {
		return false
	}
	root, err := ComputeRoot(p.Leaf, siblings, indices)
	if err != nil {
		return false
	}
	return root.Cmp(p.Root) == 0
}

// SiblingsList returns the padded siblings as a types.BigIntList.
func (p *MerkleProof) SiblingsList() types.BigIntList {
	return types.NewBigIntList(p.Siblings)
}

// IndicesList returns the padded indices as a types.BigIntList.
func (p *MerkleProof) IndicesList() types.BigIntList {
	l := make(types.BigIntList, len(p.Indices))
	for i, idx := range p.Indices {
		l[i] = types.NewInt(int64(idx))
	}
	return l
}

// ZeroProof returns a proof of maxDepth zero siblings and length 0 against
// root. It never verifies for a non-trivial tree and is used by ballots that
// carry no census membership.
func ZeroProof(root *big.Int, maxDepth int) *MerkleProof {
	p := &MerkleProof{
		Leaf:     new(big.Int),
		Root:     new(big.Int),
		Siblings: make([]*big.Int, maxDepth),
		Indices:  make([]int, maxDepth),
	}
	if root != nil {
		p.Root.Set(root)
	}
	for i := range p.Siblings {
		p.Siblings[i] = new(big.Int)
	}
	return p
}

// GenerateMerkleProof hashes (address, balance), looks the leaf up in leaves
// and returns its proof padded to maxDepth levels.
func GenerateMerkleProof(balance *big.Int, address string, leaves []*big.Int, maxDepth int) (*MerkleProof, error) {
	if len(leaves) == 0 {
		return nil, ErrLeafNotFound
	}
	leaf, err := LeafHashHex(address, balance)
	if err != nil {
		return nil, err
	}
	tree, err := GenerateMerkleTree(leaves)
	if err != nil {
		return nil, err
	}
	return tree.GenerateProof(leaf, maxDepth)
}

// GenerateProof returns the padded proof of leaf.
func (t *Tree) GenerateProof(leaf *big.Int, maxDepth int) (*MerkleProof, error) {
	if t.Depth() > maxDepth {
		return nil, fmt.Errorf("%w: tree depth %d exceeds %d levels", ErrInvalidDepth, t.Depth(), maxDepth)
	}
	index := -1
	// padding leaves are zero and never a valid Poseidon digest
	if leaf.Sign() != 0 {
		index = t.IndexOf(leaf)
	}
	if index < 0 {
		return nil, ErrLeafNotFound
	}
	siblings, indices, err := t.Path(index)
	if err != nil {
		return nil, err
	}
	p := ZeroProof(t.Root(), maxDepth)
	p.Leaf.Set(leaf)
	p.Length = len(siblings)
	copy(p.Siblings, siblings)
	copy(p.Indices, indices)
	return p, nil
}
