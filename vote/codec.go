package vote

import (
	"fmt"
	"math/big"
	"math/bits"
)

// EncodedVote is the slot vector of a ballot or of an aggregate of ballots.
type EncodedVote []*big.Int

// Strings returns the decimal form of each slot.
func (e EncodedVote) Strings() []string {
	out := make([]string, len(e))
	for i, v := range e {
		out[i] = v.String()
	}
	return out
}

// Plaintext returns the slots reduced modulo the plaintext modulus t, ready
// to be encrypted. Negative slots are rejected.
func (e EncodedVote) Plaintext(t *big.Int) ([]*big.Int, error) {
	out := make([]*big.Int, len(e))
	for i, v := range e {
		if v == nil || v.Sign() < 0 {
			return nil, fmt.Errorf("%w: slot %d is not a non-negative integer", ErrInvalidParameters, i)
		}
		out[i] = new(big.Int).Mod(v, t)
	}
	return out, nil
}

// EncodeVote validates the vote and writes it into degree slots: yes in
// [0, degree/2) and no in [degree/2, degree), both right-aligned.
func EncodeVote(v Vote, mode Mode, votingPower uint64, degree int) (EncodedVote, error) {
	if err := ValidateVote(mode, v, votingPower); err != nil {
		return nil, err
	}
	if err := checkDegree(degree); err != nil {
		return nil, err
	}
	half := degree / 2
	encoded := make(EncodedVote, degree)
	for i := range encoded {
		encoded[i] = new(big.Int)
	}
	if err := writeRightAligned(encoded[:half], v.Yes); err != nil {
		return nil, fmt.Errorf("yes: %w", err)
	}
	if err := writeRightAligned(encoded[half:], v.No); err != nil {
		return nil, fmt.Errorf("no: %w", err)
	}
	return encoded, nil
}

func writeRightAligned(slots []*big.Int, value uint64) error {
	n := bits.Len64(value)
	if n > len(slots) {
		return fmt.Errorf("%w: value %d needs %d slots, only %d available", ErrInvalidParameters, value, n, len(slots))
	}
	for i := range n {
		slots[len(slots)-1-i].SetUint64((value >> i) & 1)
	}
	return nil
}

// Tally is a decoded aggregate. Aggregates can exceed 64 bits.
type Tally struct {
	Yes *big.Int `json:"yes"`
	No  *big.Int `json:"no"`
}

// DecodeTally decodes an aggregated slot vector. Each half is read as
// Σ tally[i]·2^(L-1-i), which tolerates slots holding values above 1. The
// mode does not change the decoding.
func DecodeTally(tally []*big.Int, mode Mode) (*Tally, error) {
	if mode != ModeGovernance && mode != ModeCredits {
		return nil, fmt.Errorf("%w: unknown mode %s", ErrInvalidParameters, mode)
	}
	if len(tally) == 0 || len(tally)%2 != 0 {
		return nil, fmt.Errorf("%w: tally length must be a positive even number, got %d", ErrInvalidParameters, len(tally))
	}
	half := len(tally) / 2
	yes, err := weightedSum(tally[:half])
	if err != nil {
		return nil, err
	}
	no, err := weightedSum(tally[half:])
	if err != nil {
		return nil, err
	}
	return &Tally{Yes: yes, No: no}, nil
}

func weightedSum(slots []*big.Int) (*big.Int, error) {
	sum := new(big.Int)
	weight := new(big.Int)
	for i, v := range slots {
		if v == nil || v.Sign() < 0 {
			return nil, fmt.Errorf("%w: slot %d is not a non-negative integer", ErrInvalidParameters, i)
		}
		weight.Lsh(v, uint(len(slots)-1-i))
		sum.Add(sum, weight)
	}
	return sum, nil
}

// SumEncodedVotes adds encoded votes slot by slot, the plaintext image of
// adding their ciphertexts.
func SumEncodedVotes(votes ...EncodedVote) (EncodedVote, error) {
	if len(votes) == 0 {
		return nil, fmt.Errorf("%w: nothing to sum", ErrInvalidParameters)
	}
	sum := make(EncodedVote, len(votes[0]))
	for i := range sum {
		sum[i] = new(big.Int)
	}
	for n, v := range votes {
		if len(v) != len(sum) {
			return nil, fmt.Errorf("%w: vote %d has %d slots, expected %d", ErrInvalidParameters, n, len(v), len(sum))
		}
		for i, slot := range v {
			sum[i].Add(sum[i], slot)
		}
	}
	return sum, nil
}
