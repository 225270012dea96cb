// Package census builds the eligibility tree of a voting round. Each leaf
// commits to a (slot address, balance) pair with Poseidon over BN254, the
// leaf set is padded with zero leaves up to the next power of two and
// internal nodes hash their two children. Proofs carry a fixed number of
// sibling slots plus the real path length, which is the layout consumed by
// the ballot circuit.
package census

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/vocdoni/crisp-ballot/crypto/hash/poseidon"
)

var (
	// ErrLeafNotFound is returned when the requested leaf is not part of the
	// leaf set.
	ErrLeafNotFound = errors.New("Leaf not found in the tree")
	// ErrEmptyTree is returned when a tree is built over no leaves.
	ErrEmptyTree = errors.New("cannot build a tree without leaves")
	// ErrInvalidDepth is returned when a tree does not fit in the requested
	// number of proof levels.
	ErrInvalidDepth = errors.New("invalid tree depth")
	// ErrInvalidLeaf is returned for malformed addresses or balances.
	ErrInvalidLeaf = errors.New("invalid leaf")
	// ErrInvalidProof is returned for proofs whose length does not fit
	// their siblings.
	ErrInvalidProof = errors.New("invalid merkle proof")
)

// LeafHash returns Poseidon(address, balance), with the address read as a
// 160-bit big-endian integer.
func LeafHash(address common.Address, balance *big.Int) (*big.Int, error) {
	if balance == nil || balance.Sign() < 0 {
		return nil, fmt.Errorf("%w: balance must be a non-negative integer", ErrInvalidLeaf)
	}
	return poseidon.MultiHash(address.Big(), balance)
}

// LeafHashHex is LeafHash for a hex encoded address. Upper and lower case
// hex digits encode the same leaf.
func LeafHashHex(address string, balance *big.Int) (*big.Int, error) {
	addr, err := ParseAddress(address)
	if err != nil {
		return nil, err
	}
	return LeafHash(addr, balance)
}

// ParseAddress parses a 0x-prefixed or bare 20-byte hex address.
func ParseAddress(address string) (common.Address, error) {
	if !common.IsHexAddress(address) {
		return common.Address{}, fmt.Errorf("%w: malformed address %q", ErrInvalidLeaf, address)
	}
	return common.HexToAddress(address), nil
}
