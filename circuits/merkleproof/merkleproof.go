// Package merkleproof verifies census inclusion proofs in-circuit. A proof
// holds a fixed number of sibling slots and the real path length; levels
// beyond the length are carried through unchanged so that shorter trees fit
// the same circuit.
package merkleproof

import (
	"fmt"
	"math/big"

	"github.com/consensys/gnark/frontend"
	"github.com/vocdoni/crisp-ballot/census"
	"github.com/vocdoni/gnark-crypto-primitives/utils"
)

// CensusProof stores the root, the padded path and the number of levels in
// use. Indices are 0 when the current node is the left child.
type CensusProof struct {
	Root     frontend.Variable
	Length   frontend.Variable
	Siblings []frontend.Variable
	Indices  []frontend.Variable
}

// NewPlaceholder returns an empty proof with maxDepth sibling slots, ready
// to be used in a circuit definition.
func NewPlaceholder(maxDepth int) CensusProof {
	return CensusProof{
		Siblings: make([]frontend.Variable, maxDepth),
		Indices:  make([]frontend.Variable, maxDepth),
	}
}

// FromMerkleProof converts a native census proof into a circuit assignment.
func FromMerkleProof(p *census.MerkleProof) CensusProof {
	cp := NewPlaceholder(p.MaxDepth())
	cp.Root = new(big.Int).Set(p.Root)
	cp.Length = p.Length
	for i := range p.Siblings {
		cp.Siblings[i] = new(big.Int).Set(p.Siblings[i])
		cp.Indices[i] = p.Indices[i]
	}
	return cp
}

// ComputeRoot computes the root reached from leaf, hashing only the first Length
// levels. Indices are constrained to be boolean and Length to fit in the
// sibling slots.
func (p CensusProof) ComputeRoot(api frontend.API, hFn utils.Hasher, leaf frontend.Variable) (frontend.Variable, error) {
	if len(p.Siblings) != len(p.Indices) {
		return nil, fmt.Errorf("%d siblings for %d indices", len(p.Siblings), len(p.Indices))
	}
	api.AssertIsLessOrEqual(p.Length, len(p.Siblings))
	cur := leaf
	active := frontend.Variable(1)
	for d := range p.Siblings {
		api.AssertIsBoolean(p.Indices[d])
		// active stays 1 while d < Length
		active = api.Mul(active, api.Sub(1, api.IsZero(api.Sub(p.Length, d))))
		left := api.Select(p.Indices[d], p.Siblings[d], cur)
		right := api.Select(p.Indices[d], cur, p.Siblings[d])
		h, err := hFn(api, left, right)
		if err != nil {
			return nil, fmt.Errorf("hash level %d: %w", d, err)
		}
		cur = api.Select(active, h, cur)
	}
	return cur, nil
}

// IsValid returns 1 if leaf belongs to p.Root, 0 otherwise.
func (p CensusProof) IsValid(api frontend.API, hFn utils.Hasher, leaf frontend.Variable) (frontend.Variable, error) {
	root, err := p.ComputeRoot(api, hFn, leaf)
	if err != nil {
		return nil, err
	}
	return api.IsZero(api.Sub(root, p.Root)), nil
}

// Verify asserts that leaf belongs to p.Root.
func (p CensusProof) Verify(api frontend.API, hFn utils.Hasher, leaf frontend.Variable) error {
	valid, err := p.IsValid(api, hFn, leaf)
	if err != nil {
		return err
	}
	api.AssertIsEqual(valid, 1)
	return nil
}
