package ballotproof_test

import (
	"context"
	"math/big"
	"testing"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/frontend/cs/r1cs"
	"github.com/consensys/gnark/test"
	qt "github.com/frankban/quicktest"
	"github.com/vocdoni/crisp-ballot/circuits"
	"github.com/vocdoni/crisp-ballot/circuits/ballotproof"
	"github.com/vocdoni/crisp-ballot/config"
	"github.com/vocdoni/crisp-ballot/crisp"
	"github.com/vocdoni/crisp-ballot/crypto/bfv"
	"github.com/vocdoni/crisp-ballot/internal/testutil"
	"github.com/vocdoni/crisp-ballot/vote"
)

type fixture struct {
	engine *bfv.Reference
	pk     *bfv.PublicKey
	voters []*testutil.Voter
	ballot *crisp.Ballot
	req    *crisp.VoteRequest
}

func newFixture(c *qt.C, v vote.Vote) *fixture {
	engine, pk := testutil.Engine()
	voters := testutil.NewVoters(6)
	req, err := testutil.VoteRequest(voters[4], voters, v, pk, nil)
	c.Assert(err, qt.IsNil)
	ballot, err := crisp.NewAssembler(engine).EncryptVoteAndGenerateInputs(context.Background(), req)
	c.Assert(err, qt.IsNil)
	return &fixture{engine: engine, pk: pk, voters: voters, ballot: ballot, req: req}
}

func isSolved(c *qt.C, opts ballotproof.Options, in circuits.NamedInputs) error {
	assignment, err := ballotproof.AssignmentFromInputs(bfv.TestParams, opts, in)
	c.Assert(err, qt.IsNil)
	return test.IsSolved(ballotproof.NewPlaceholder(bfv.TestParams, opts), assignment, ecc.BN254.ScalarField())
}

func TestBallotProof(t *testing.T) {
	c := qt.New(t)
	f := newFixture(c, vote.Vote{Yes: 500})
	c.Assert(isSolved(c, ballotproof.Options{}, f.ballot.Inputs.NamedInputs()), qt.IsNil)

	// second ballot over the aggregate
	req, err := testutil.VoteRequest(f.voters[1], f.voters, vote.Vote{No: 200}, f.pk, f.ballot.Sum)
	c.Assert(err, qt.IsNil)
	next, err := crisp.NewAssembler(f.engine).EncryptVoteAndGenerateInputs(context.Background(), req)
	c.Assert(err, qt.IsNil)
	c.Assert(isSolved(c, ballotproof.Options{}, next.Inputs.NamedInputs()), qt.IsNil)
}

func TestBallotProofMaskVote(t *testing.T) {
	c := qt.New(t)
	f := newFixture(c, vote.Vote{No: 3})
	mask, err := crisp.NewAssembler(f.engine).GenerateMaskVote(context.Background(), &crisp.MaskRequest{
		PublicKey:          f.pk,
		PreviousCiphertext: f.ballot.Sum,
		MerkleRoot:         f.req.MerkleProof.Root,
		SlotAddress:        f.voters[4].Address(),
	})
	c.Assert(err, qt.IsNil)
	c.Assert(isSolved(c, ballotproof.Options{}, mask.Inputs.NamedInputs()), qt.IsNil)
}

func TestBallotProofCreditsMode(t *testing.T) {
	c := qt.New(t)
	engine, pk := testutil.Engine()
	voters := testutil.NewVoters(2)
	req, err := testutil.VoteRequest(voters[1], voters, vote.Vote{Yes: 1}, pk, nil)
	c.Assert(err, qt.IsNil)
	req.EncodedVote, err = vote.EncodeVote(vote.Vote{Yes: 120, No: 80}, vote.ModeCredits, 200, bfv.TestParams.Degree)
	c.Assert(err, qt.IsNil)
	ballot, err := crisp.NewAssembler(engine).EncryptVoteAndGenerateInputs(context.Background(), req)
	c.Assert(err, qt.IsNil)

	named := ballot.Inputs.NamedInputs()
	c.Assert(isSolved(c, ballotproof.Options{Mode: vote.ModeCredits}, named), qt.IsNil)
	c.Assert(isSolved(c, ballotproof.Options{Mode: vote.ModeGovernance}, named), qt.IsNotNil)
}

func TestBallotProofRejectsTampering(t *testing.T) {
	c := qt.New(t)
	f := newFixture(c, vote.Vote{Yes: 500})
	n := bfv.TestParams.Degree

	for _, tc := range []struct {
		name   string
		mutate func(in circuits.NamedInputs)
	}{
		{"balance not in census", func(in circuits.NamedInputs) {
			in[ballotproof.NameBalance] = "600"
		}},
		{"other slot", func(in circuits.NamedInputs) {
			in[ballotproof.NameSlotAddress] = f.voters[0].Address().Big().String()
		}},
		{"wrong root", func(in circuits.NamedInputs) {
			in[ballotproof.NameMerkleRoot] = "12345"
		}},
		{"plaintext flip", func(in circuits.NamedInputs) {
			k1 := in[ballotproof.NameK1].([]string)
			k1[n/2-1] = flip(k1[n/2-1])
		}},
		{"non binary slot", func(in circuits.NamedInputs) {
			in[ballotproof.NameK1].([]string)[n-1] = "2"
		}},
		{"aggregate", func(in circuits.NamedInputs) {
			sum := in[ballotproof.NameSumCt0is].([][]string)
			sum[0][0] = add(sum[0][0], 1)
		}},
		{"ciphertext", func(in circuits.NamedInputs) {
			ct := in[ballotproof.NameCt1is].([][]string)
			ct[1][5] = add(ct[1][5], 1)
		}},
		{"noise", func(in circuits.NamedInputs) {
			in[ballotproof.NameE0].([]string)[0] = "1000"
		}},
		{"randomness", func(in circuits.NamedInputs) {
			in[ballotproof.NameU].([]string)[0] = "2"
		}},
	} {
		c.Run(tc.name, func(c *qt.C) {
			in := f.ballot.Inputs.NamedInputs()
			tc.mutate(in)
			c.Assert(isSolved(c, ballotproof.Options{}, in), qt.IsNotNil)
		})
	}
}

func TestBallotProofExceedsBalance(t *testing.T) {
	c := qt.New(t)
	engine, pk := testutil.Engine()
	voters := testutil.NewVoters(3)
	req, err := testutil.VoteRequest(voters[0], voters, vote.Vote{Yes: 100}, pk, nil)
	c.Assert(err, qt.IsNil)
	// bypass the codec policy to encode more than the balance
	req.EncodedVote, err = vote.EncodeVote(vote.Vote{Yes: 101}, vote.ModeGovernance, 1000, bfv.TestParams.Degree)
	c.Assert(err, qt.IsNil)
	ballot, err := crisp.NewAssembler(engine).EncryptVoteAndGenerateInputs(context.Background(), req)
	c.Assert(err, qt.IsNil)
	c.Assert(isSolved(c, ballotproof.Options{}, ballot.Inputs.NamedInputs()), qt.IsNotNil)
}

func TestAssignmentFromInputs(t *testing.T) {
	c := qt.New(t)
	f := newFixture(c, vote.Vote{Yes: 1})
	opts := ballotproof.Options{}

	in := f.ballot.Inputs.NamedInputs()
	assignment, err := ballotproof.AssignmentFromInputs(bfv.TestParams, opts, in)
	c.Assert(err, qt.IsNil)
	// negative coefficients are mapped into the field
	for _, v := range assignment.E0 {
		c.Assert(v.(*big.Int).Sign() >= 0, qt.IsTrue)
	}

	delete(in, ballotproof.NameHashedMessage)
	_, err = ballotproof.AssignmentFromInputs(bfv.TestParams, opts, in)
	c.Assert(err, qt.ErrorIs, circuits.ErrInvalidInput)

	in = f.ballot.Inputs.NamedInputs()
	in["first_vote"] = "1"
	_, err = ballotproof.AssignmentFromInputs(bfv.TestParams, opts, in)
	c.Assert(err, qt.ErrorIs, circuits.ErrInvalidInput)

	in = f.ballot.Inputs.NamedInputs()
	in[ballotproof.NameR2is] = in[ballotproof.NameR1is]
	_, err = ballotproof.AssignmentFromInputs(bfv.TestParams, opts, in)
	c.Assert(err, qt.ErrorIs, circuits.ErrInvalidInput)

	in = f.ballot.Inputs.NamedInputs()
	in[ballotproof.NameMerkleProofLength] = "21"
	_, err = ballotproof.AssignmentFromInputs(bfv.TestParams, opts, in)
	c.Assert(err, qt.ErrorIs, circuits.ErrInvalidInput)

	c.Assert(ballotproof.InputNames, qt.HasLen, 28)
	c.Assert(ballotproof.NbPublicInputs(bfv.TestParams), qt.Equals, 2+6*2*32)
}

func TestCircuitCompiles(t *testing.T) {
	c := qt.New(t)
	ccs, err := frontend.Compile(ecc.BN254.ScalarField(), r1cs.NewBuilder, ballotproof.NewPlaceholder(bfv.TestParams, ballotproof.Options{}))
	c.Assert(err, qt.IsNil)
	c.Assert(ccs.GetNbPublicVariables()-1, qt.Equals, ballotproof.NbPublicInputs(bfv.TestParams))
	c.Logf("ballot proof constraints: %d", ccs.GetNbConstraints())
}

func TestBallotProofWithSignature(t *testing.T) {
	if testing.Short() {
		t.Skip("emulated secp256k1 verification is slow")
	}
	c := qt.New(t)
	opts := ballotproof.Options{VerifySignature: true}
	f := newFixture(c, vote.Vote{Yes: 250})
	c.Assert(isSolved(c, opts, f.ballot.Inputs.NamedInputs()), qt.IsNil)

	mask, err := crisp.NewAssembler(f.engine).GenerateMaskVote(context.Background(), &crisp.MaskRequest{
		PublicKey:   f.pk,
		MerkleRoot:  f.req.MerkleProof.Root,
		SlotAddress: f.voters[4].Address(),
	})
	c.Assert(err, qt.IsNil)
	c.Assert(isSolved(c, opts, mask.Inputs.NamedInputs()), qt.IsNil)

	// a valid census path is not enough without the slot owner signature
	c.Assert(isSolved(c, opts, forgeSignature(f.ballot, mask)), qt.IsNotNil)
}

func TestDefaultOptionsRequireSignature(t *testing.T) {
	if testing.Short() {
		t.Skip("emulated secp256k1 verification is slow")
	}
	c := qt.New(t)
	opts, err := config.Default(t.TempDir()).CircuitOptions()
	c.Assert(err, qt.IsNil)
	c.Assert(opts.VerifySignature, qt.IsTrue)

	f := newFixture(c, vote.Vote{Yes: 250})
	mask, err := crisp.NewAssembler(f.engine).GenerateMaskVote(context.Background(), &crisp.MaskRequest{
		PublicKey:   f.pk,
		MerkleRoot:  f.req.MerkleProof.Root,
		SlotAddress: f.voters[4].Address(),
	})
	c.Assert(err, qt.IsNil)
	forged := forgeSignature(f.ballot, mask)
	c.Assert(isSolved(c, opts, forged), qt.IsNotNil)

	// census membership alone accepts the same bundle
	c.Assert(isSolved(c, ballotproof.Options{Mode: opts.Mode}, forged), qt.IsNil)
}

// forgeSignature replaces the signature of ballot with the ephemeral one of
// a mask vote, keeping the census path and the nonzero plaintext.
func forgeSignature(ballot, mask *crisp.Ballot) circuits.NamedInputs {
	forged := ballot.Inputs.NamedInputs()
	other := mask.Inputs.NamedInputs()
	for _, name := range []string{
		ballotproof.NamePublicKeyX,
		ballotproof.NamePublicKeyY,
		ballotproof.NameSignature,
		ballotproof.NameHashedMessage,
	} {
		forged[name] = other[name]
	}
	return forged
}

func flip(s string) string {
	if s == "0" {
		return "1"
	}
	return "0"
}

func add(s string, d int64) string {
	v, _ := new(big.Int).SetString(s, 10)
	return v.Add(v, big.NewInt(d)).String()
}
