package pipeline_test

import (
	"context"
	"math/big"
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/vocdoni/crisp-ballot/census"
	"github.com/vocdoni/crisp-ballot/circuits/ballotproof"
	"github.com/vocdoni/crisp-ballot/crypto/bfv"
	"github.com/vocdoni/crisp-ballot/db/metadb"
	"github.com/vocdoni/crisp-ballot/internal/testutil"
	"github.com/vocdoni/crisp-ballot/pipeline"
	"github.com/vocdoni/crisp-ballot/prover"
	"github.com/vocdoni/crisp-ballot/vote"
)

func TestPipelineGroth16(t *testing.T) {
	if testing.Short() {
		t.Skip("groth16 setup is slow")
	}
	c := qt.New(t)
	ctx := context.Background()

	store, err := prover.NewArtifactStore(metadb.NewTest(t), 1)
	c.Assert(err, qt.IsNil)
	backend, err := prover.NewGroth16Backend(bfv.TestParams, ballotproof.Options{}, store)
	c.Assert(err, qt.IsNil)

	f := newFixture()
	pipe := pipeline.New(f.engine, backend, pipeline.WithWorkers(1))

	res, err := pipe.GenerateVoteProof(ctx, f.request(c, 1, vote.Vote{Yes: 150}, nil))
	c.Assert(err, qt.IsNil)
	ok, err := pipe.VerifyProof(ctx, res.Proof)
	c.Assert(err, qt.IsNil)
	c.Assert(ok, qt.IsTrue)

	// the circuit is compiled for governance ballots only
	credits := f.request(c, 1, vote.Vote{Yes: 100, No: 50}, nil)
	credits.Mode = vote.ModeCredits
	_, err = pipe.GenerateVoteProof(ctx, credits)
	c.Assert(err, qt.ErrorIs, vote.ErrInvalidVote)

	tree, err := census.GenerateMerkleTree(testutil.Leaves(f.voters))
	c.Assert(err, qt.IsNil)
	mask, err := pipe.GenerateMaskVoteProof(ctx, &pipeline.MaskProofRequest{
		PublicKey:          f.pk,
		PreviousCiphertext: res.Ballot.Sum,
		MerkleRoot:         tree.Root(),
		SlotAddress:        f.voters[1].Address(),
	})
	c.Assert(err, qt.IsNil)
	ok, err = pipe.VerifyProof(ctx, mask.Proof)
	c.Assert(err, qt.IsNil)
	c.Assert(ok, qt.IsTrue)

	// a proof does not carry over to another aggregate
	swapped := *mask.Proof
	swapped.PublicInputs = res.Proof.PublicInputs
	ok, err = pipe.VerifyProof(ctx, &swapped)
	c.Assert(err, qt.IsNil)
	c.Assert(ok, qt.IsFalse)

	// tampering with a single coefficient of the bundle
	ballot, err := pipe.PrepareVote(ctx, f.request(c, 1, vote.Vote{Yes: 150}, nil))
	c.Assert(err, qt.IsNil)
	tampered := *ballot.Inputs
	tampered.Ct0is = tampered.Ct0is.Clone()
	tampered.Ct0is[0][0].SetBigInt(new(big.Int).Add(tampered.Ct0is[0][0].MathBigInt(), big.NewInt(1)))
	proof, err := pipe.GenerateProof(ctx, &tampered)
	c.Assert(proof, qt.IsNil)
	c.Assert(err, qt.ErrorIs, prover.ErrProofGeneration)
}
