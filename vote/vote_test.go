package vote

import (
	"math"
	"math/big"
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/vocdoni/crisp-ballot/crypto/bfv"
	"github.com/vocdoni/crisp-ballot/types/params"
)

func TestValidateVote(t *testing.T) {
	c := qt.New(t)

	err := ValidateVote(ModeGovernance, Vote{Yes: 5, No: 5}, 10)
	c.Assert(err, qt.ErrorIs, ErrInvalidVote)
	c.Assert(err, qt.ErrorMatches, ".*cannot spread votes between options")

	err = ValidateVote(ModeGovernance, Vote{Yes: 11}, 10)
	c.Assert(err, qt.ErrorIs, ErrInvalidVote)
	c.Assert(err, qt.ErrorMatches, ".*vote exceeds voting power.*")

	c.Assert(ValidateVote(ModeGovernance, Vote{Yes: 10}, 10), qt.IsNil)
	c.Assert(ValidateVote(ModeGovernance, Vote{No: 3}, 10), qt.IsNil)
	c.Assert(ValidateVote(ModeGovernance, Vote{}, 0), qt.IsNil)
	c.Assert(ValidateVote(ModeCredits, Vote{Yes: 5, No: 5}, 10), qt.IsNil)

	err = ValidateVote(ModeCredits, Vote{Yes: params.MaxVoteValue, No: 1}, math.MaxUint64)
	c.Assert(err, qt.ErrorMatches, ".*vote exceeds maximum allowed value.*")
	err = ValidateVote(ModeCredits, Vote{Yes: math.MaxUint64, No: 2}, math.MaxUint64)
	c.Assert(err, qt.ErrorMatches, ".*vote exceeds maximum allowed value.*")
	c.Assert(ValidateVote(Mode(7), Vote{}, 1), qt.ErrorIs, ErrInvalidVote)
}

func TestEncodeVote(t *testing.T) {
	c := qt.New(t)

	encoded, err := EncodeVote(Vote{Yes: 10}, ModeGovernance, 10, 10)
	c.Assert(err, qt.IsNil)
	c.Assert(encoded.Strings(), qt.DeepEquals, []string{"0", "1", "0", "1", "0", "0", "0", "0", "0", "0"})

	encoded, err = EncodeVote(Vote{No: 3}, ModeGovernance, 10, 8)
	c.Assert(err, qt.IsNil)
	c.Assert(encoded.Strings(), qt.DeepEquals, []string{"0", "0", "0", "0", "0", "0", "1", "1"})

	encoded, err = EncodeVote(Vote{}, ModeGovernance, 0, bfv.TestParams.Degree)
	c.Assert(err, qt.IsNil)
	c.Assert(encoded, qt.HasLen, bfv.TestParams.Degree)
	for _, slot := range encoded {
		c.Assert(slot.Sign(), qt.Equals, 0)
	}

	_, err = EncodeVote(Vote{Yes: 5, No: 5}, ModeGovernance, 10, 10)
	c.Assert(err, qt.ErrorIs, ErrInvalidVote)
	_, err = EncodeVote(Vote{Yes: 32}, ModeGovernance, 100, 10)
	c.Assert(err, qt.ErrorIs, ErrInvalidParameters)
	_, err = EncodeVote(Vote{Yes: 1}, ModeGovernance, 1, 9)
	c.Assert(err, qt.ErrorIs, ErrInvalidParameters)
}

func TestRoundTrip(t *testing.T) {
	c := qt.New(t)
	degree := bfv.DefaultParams.Degree
	for _, v := range []Vote{{Yes: 1}, {No: 1}, {Yes: 123456}, {No: params.MaxVoteValue}, {}} {
		power := max(v.Yes, v.No)
		encoded, err := EncodeVote(v, ModeGovernance, power, degree)
		c.Assert(err, qt.IsNil)
		tally, err := DecodeTally(encoded, ModeGovernance)
		c.Assert(err, qt.IsNil)
		c.Assert(tally.Yes.Uint64(), qt.Equals, v.Yes)
		c.Assert(tally.No.Uint64(), qt.Equals, v.No)
	}
}

func TestAggregatedTally(t *testing.T) {
	c := qt.New(t)

	a, err := EncodeVote(Vote{Yes: 5}, ModeGovernance, 100, 16)
	c.Assert(err, qt.IsNil)
	b, err := EncodeVote(Vote{Yes: 17}, ModeGovernance, 100, 16)
	c.Assert(err, qt.IsNil)
	n, err := EncodeVote(Vote{No: 7}, ModeGovernance, 100, 16)
	c.Assert(err, qt.IsNil)

	sum, err := SumEncodedVotes(a, b, n, n)
	c.Assert(err, qt.IsNil)
	// 5 = 101 and 17 = 10001 overlap in the last slot, which now holds 2
	c.Assert(sum[7].Int64(), qt.Equals, int64(2))
	c.Assert(sum[15].Int64(), qt.Equals, int64(2))

	tally, err := DecodeTally(sum, ModeGovernance)
	c.Assert(err, qt.IsNil)
	c.Assert(tally.Yes.Int64(), qt.Equals, int64(22))
	c.Assert(tally.No.Int64(), qt.Equals, int64(14))

	_, err = SumEncodedVotes(a, a[:4])
	c.Assert(err, qt.ErrorIs, ErrInvalidParameters)
	_, err = SumEncodedVotes()
	c.Assert(err, qt.ErrorIs, ErrInvalidParameters)
}

func TestDecodeTally(t *testing.T) {
	c := qt.New(t)

	// slot values above one are weighted, not parsed as binary digits
	tally, err := DecodeTally([]*big.Int{big.NewInt(3), big.NewInt(2), big.NewInt(0), big.NewInt(9)}, ModeGovernance)
	c.Assert(err, qt.IsNil)
	c.Assert(tally.Yes.Int64(), qt.Equals, int64(3*2+2))
	c.Assert(tally.No.Int64(), qt.Equals, int64(9))

	_, err = DecodeTally([]*big.Int{big.NewInt(1), big.NewInt(1), big.NewInt(1)}, ModeGovernance)
	c.Assert(err, qt.ErrorIs, ErrInvalidParameters)
	_, err = DecodeTally(nil, ModeGovernance)
	c.Assert(err, qt.ErrorIs, ErrInvalidParameters)
	_, err = DecodeTally([]*big.Int{big.NewInt(-1), big.NewInt(0)}, ModeGovernance)
	c.Assert(err, qt.ErrorIs, ErrInvalidParameters)
}

func TestPlaintext(t *testing.T) {
	c := qt.New(t)
	encoded := EncodedVote{big.NewInt(1), big.NewInt(65538)}
	pt, err := encoded.Plaintext(big.NewInt(65537))
	c.Assert(err, qt.IsNil)
	c.Assert(pt[0].Int64(), qt.Equals, int64(1))
	c.Assert(pt[1].Int64(), qt.Equals, int64(1))
	_, err = EncodedVote{big.NewInt(-1)}.Plaintext(big.NewInt(65537))
	c.Assert(err, qt.ErrorIs, ErrInvalidParameters)
}

func TestCalculateValidIndicesForPlaintext(t *testing.T) {
	c := qt.New(t)

	indices, err := CalculateValidIndicesForPlaintext(100, 8192)
	c.Assert(err, qt.IsNil)
	c.Assert(*indices, qt.Equals, ValidIndices{YesIndex: 4089, NoIndex: 8185})

	indices, err = CalculateValidIndicesForPlaintext(0, 16)
	c.Assert(err, qt.IsNil)
	c.Assert(*indices, qt.Equals, ValidIndices{YesIndex: 8, NoIndex: 16})

	indices, err = CalculateValidIndicesForPlaintext(255, 16)
	c.Assert(err, qt.IsNil)
	c.Assert(*indices, qt.Equals, ValidIndices{YesIndex: 0, NoIndex: 8})

	_, err = CalculateValidIndicesForPlaintext(10000, 16)
	c.Assert(err, qt.ErrorIs, ErrInvalidParameters)
	c.Assert(err, qt.ErrorMatches, ".*exceeds maximum representable votes.*")
	_, err = CalculateValidIndicesForPlaintext(10, 15)
	c.Assert(err, qt.ErrorIs, ErrInvalidParameters)
	_, err = CalculateValidIndicesForPlaintext(10, -16)
	c.Assert(err, qt.ErrorIs, ErrInvalidParameters)
	_, err = CalculateValidIndicesForPlaintext(10, 0)
	c.Assert(err, qt.ErrorIs, ErrInvalidParameters)
}
