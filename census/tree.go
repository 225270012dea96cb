package census

import (
	"fmt"
	"math/big"

	"github.com/vocdoni/crisp-ballot/crypto/hash/poseidon"
	"github.com/vocdoni/crisp-ballot/util"
)

// Tree is an immutable complete binary Poseidon tree. A changed leaf set
// means building a new Tree.
type Tree struct {
	// levels[0] holds the padded leaves, levels[len-1] the root
	levels [][]*big.Int
}

// GenerateMerkleTree builds a tree over the given leaf hashes. The leaf set
// is padded with zero leaves to the next power of two; the input slice is
// not modified.
func GenerateMerkleTree(leaves []*big.Int) (*Tree, error) {
	if len(leaves) == 0 {
		return nil, ErrEmptyTree
	}
	depth := util.CeilLog2(len(leaves))
	level := make([]*big.Int, 1<<depth)
	for i := range level {
		if i < len(leaves) && leaves[i] != nil {
			level[i] = new(big.Int).Set(leaves[i])
		} else {
			level[i] = new(big.Int)
		}
	}
	levels := make([][]*big.Int, 0, depth+1)
	levels = append(levels, level)
	for len(level) > 1 {
		next := make([]*big.Int, len(level)/2)
		for i := range next {
			h, err := poseidon.HashPair(level[2*i], level[2*i+1])
			if err != nil {
				return nil, fmt.Errorf("hash level %d node %d: %w", len(levels), i, err)
			}
			next[i] = h
		}
		levels = append(levels, next)
		level = next
	}
	return &Tree{levels: levels}, nil
}

// Root returns a copy of the tree root.
func (t *Tree) Root() *big.Int {
	return new(big.Int).Set(t.levels[len(t.levels)-1][0])
}

// Depth returns the number of levels between a leaf and the root.
func (t *Tree) Depth() int {
	return len(t.levels) - 1
}

// Size returns the number of leaves, padding included.
func (t *Tree) Size() int {
	return len(t.levels[0])
}

// IndexOf returns the position of the first leaf equal to leaf, or -1.
func (t *Tree) IndexOf(leaf *big.Int) int {
	for i, l := range t.levels[0] {
		if l.Cmp(leaf) == 0 {
			return i
		}
	}
	return -1
}

// Path returns the siblings and side indices from the leaf at position
// index up to the root. An index of 0 means the current node is the left
// child.
func (t *Tree) Path(index int) ([]*big.Int, []int, error) {
	if index < 0 || index >= t.Size() {
		return nil, nil, fmt.Errorf("leaf index %d out of range [0, %d)", index, t.Size())
	}
	siblings := make([]*big.Int, t.Depth())
	indices := make([]int, t.Depth())
	for d := 0; d < t.Depth(); d++ {
		indices[d] = index & 1
		siblings[d] = new(big.Int).Set(t.levels[d][index^1])
		index >>= 1
	}
	return siblings, indices, nil
}

// VerifyProof recomputes the root from leaf along siblings and indices and
// compares it with the tree root. Both slices must hold exactly Depth()
// entries, so padded proofs have to be cut with (*MerkleProof).Path first.
func (t *Tree) VerifyProof(leaf *big.Int, siblings []*big.Int, indices []int) bool {
	root, err := ComputeRoot(leaf, siblings, indices)
	if err != nil || len(siblings) != t.Depth() {
		return false
	}
	return root.Cmp(t.levels[len(t.levels)-1][0]) == 0
}

// ComputeRoot folds a leaf with its path. Index values other than 0 or 1
// are rejected.
func ComputeRoot(leaf *big.Int, siblings []*big.Int, indices []int) (*big.Int, error) {
	if leaf == nil || len(siblings) != len(indices) {
		return nil, fmt.Errorf("%w: %d siblings for %d indices", ErrInvalidDepth, len(siblings), len(indices))
	}
	cur := leaf
	for d, sibling := range siblings {
		if sibling == nil {
			return nil, fmt.Errorf("nil sibling at level %d", d)
		}
		var err error
		switch indices[d] {
		case 0:
			cur, err = poseidon.HashPair(cur, sibling)
		case 1:
			cur, err = poseidon.HashPair(sibling, cur)
		default:
			return nil, fmt.Errorf("invalid index %d at level %d", indices[d], d)
		}
		if err != nil {
			return nil, err
		}
	}
	return cur, nil
}
