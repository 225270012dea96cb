package vote

import (
	"fmt"
	"math/bits"
)

// ValidIndices are the first usable slot of each option for a given bound
// on the total voting power.
type ValidIndices struct {
	YesIndex int `json:"yesIndex"`
	NoIndex  int `json:"noIndex"`
}

func checkDegree(degree int) error {
	if degree <= 0 || degree%2 != 0 {
		return fmt.Errorf("%w: degree must be a positive even integer, got %d", ErrInvalidParameters, degree)
	}
	return nil
}

// CalculateValidIndicesForPlaintext returns the smallest right-aligned slot
// window able to hold totalVotingPower, the bound on the sum of all votes of
// a round. Slots before YesIndex (and between the halves and NoIndex) are
// guaranteed to stay zero, so aggregated values never spill into a
// neighbouring weight.
func CalculateValidIndicesForPlaintext(totalVotingPower uint64, degree int) (*ValidIndices, error) {
	if err := checkDegree(degree); err != nil {
		return nil, err
	}
	half := degree / 2
	// ⌈log2(P+1)⌉ is the bit length of P
	bitsNeeded := bits.Len64(totalVotingPower)
	if bitsNeeded > half {
		return nil, fmt.Errorf("%w: total voting power %d exceeds maximum representable votes for degree %d",
			ErrInvalidParameters, totalVotingPower, degree)
	}
	return &ValidIndices{
		YesIndex: half - bitsNeeded,
		NoIndex:  degree - bitsNeeded,
	}, nil
}
