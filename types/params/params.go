package params

import "github.com/consensys/gnark-crypto/ecc"

const (
	// MaxMerkleDepth is the number of sibling slots carried by a census
	// proof. Only the first Length entries of a proof are meaningful.
	MaxMerkleDepth = 20
	// MaxVoteBits is the number of right-aligned slots per option that a
	// single ballot may use.
	MaxVoteBits = 50
	// MaxVoteValue is the maximum yes+no value of a single ballot.
	MaxVoteValue uint64 = 1<<MaxVoteBits - 1
)

// Signature component widths, in bytes.
const (
	HashLength       = 32
	CoordinateLength = 32
	SignatureLength  = 64
	AddressLength    = 20
)

// Curves
const (
	BallotProofCurve = ecc.BN254
)

// DefaultProverWorkers is the default size of the proving pool when no
// explicit value is configured. Zero means runtime.NumCPU().
const DefaultProverWorkers = 0
