// Package poseidon wraps the iden3 Poseidon implementation over BN254 with
// the chunked multi-input hash used by the in-circuit gadgets of
// gnark-crypto-primitives, so that native and circuit digests agree.
package poseidon

import (
	"errors"
	"math/big"

	"github.com/iden3/go-iden3-crypto/poseidon"
)

// ChunkSize is the maximum arity of a single Poseidon permutation.
const ChunkSize = 16

// ErrNoInputs is returned when a hash is requested over an empty input set.
var ErrNoInputs = errors.New("no inputs provided")

// MultiHash hashes any number of field elements. Inputs are split into
// chunks of ChunkSize, each chunk is hashed and the chunk digests are hashed
// again until a single digest remains. Up to ChunkSize inputs this is a plain
// Poseidon hash.
func MultiHash(inputs ...*big.Int) (*big.Int, error) {
	if len(inputs) == 0 {
		return nil, ErrNoInputs
	}
	for len(inputs) > ChunkSize {
		digests := make([]*big.Int, 0, (len(inputs)+ChunkSize-1)/ChunkSize)
		for i := 0; i < len(inputs); i += ChunkSize {
			h, err := poseidon.Hash(inputs[i:min(i+ChunkSize, len(inputs))])
			if err != nil {
				return nil, err
			}
			digests = append(digests, h)
		}
		if len(digests) == 1 {
			return digests[0], nil
		}
		inputs = digests
	}
	return poseidon.Hash(inputs)
}

// HashPair returns Poseidon(left, right), the internal node hash of binary
// Merkle trees.
func HashPair(left, right *big.Int) (*big.Int, error) {
	return poseidon.Hash([]*big.Int{left, right})
}
