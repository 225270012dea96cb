// Package vote encodes yes/no ballots into the slot layout of a
// homomorphic plaintext and decodes aggregated tallies back to integers.
//
// A plaintext of degree slots is split in two halves: the first half holds
// the yes value and the second half the no value, each written in binary,
// right-aligned and left-padded with zeros. Ballots are combined by adding
// ciphertexts, which adds the plaintexts slot by slot without carries, so an
// aggregated slot may hold any integer, not only 0 or 1. Decoding therefore
// uses a weighted positional sum and must never be turned into a plain binary
// parse.
package vote

import (
	"errors"
	"fmt"
	"math/bits"

	"github.com/vocdoni/crisp-ballot/types/params"
)

var (
	// ErrInvalidVote is returned when a vote violates the ballot policy.
	ErrInvalidVote = errors.New("invalid vote")
	// ErrInvalidParameters is returned for unusable degree or capacity
	// settings.
	ErrInvalidParameters = errors.New("invalid parameters")
)

// Mode selects the ballot policy.
type Mode int

const (
	// ModeGovernance allows a single option to receive the voting power.
	ModeGovernance Mode = iota
	// ModeCredits allows the voting power to be split between both options.
	ModeCredits
)

// String returns the name of the mode.
func (m Mode) String() string {
	switch m {
	case ModeGovernance:
		return "governance"
	case ModeCredits:
		return "credits"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// Vote is a single ballot choice.
type Vote struct {
	Yes uint64 `json:"yes"`
	No  uint64 `json:"no"`
}

// Total returns yes+no and whether the sum overflowed.
func (v Vote) Total() (uint64, bool) {
	sum, carry := bits.Add64(v.Yes, v.No, 0)
	return sum, carry != 0
}

// ValidateVote checks the vote against the policy of the mode and the voting
// power of the voter.
func ValidateVote(mode Mode, v Vote, votingPower uint64) error {
	switch mode {
	case ModeGovernance:
		if v.Yes != 0 && v.No != 0 {
			return fmt.Errorf("%w: cannot spread votes between options", ErrInvalidVote)
		}
	case ModeCredits:
	default:
		return fmt.Errorf("%w: unknown mode %s", ErrInvalidVote, mode)
	}
	total, overflow := v.Total()
	if overflow || total > params.MaxVoteValue {
		return fmt.Errorf("%w: vote exceeds maximum allowed value %d", ErrInvalidVote, params.MaxVoteValue)
	}
	if total > votingPower {
		return fmt.Errorf("%w: vote exceeds voting power (%d > %d)", ErrInvalidVote, total, votingPower)
	}
	return nil
}
