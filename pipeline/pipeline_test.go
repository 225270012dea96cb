package pipeline_test

import (
	"context"
	"math/big"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
	"github.com/google/uuid"
	"github.com/vocdoni/crisp-ballot/census"
	"github.com/vocdoni/crisp-ballot/circuits"
	"github.com/vocdoni/crisp-ballot/circuits/ballotproof"
	"github.com/vocdoni/crisp-ballot/crisp"
	"github.com/vocdoni/crisp-ballot/crypto/bfv"
	"github.com/vocdoni/crisp-ballot/crypto/signatures/ethereum"
	"github.com/vocdoni/crisp-ballot/internal/testutil"
	"github.com/vocdoni/crisp-ballot/pipeline"
	"github.com/vocdoni/crisp-ballot/prover"
	"github.com/vocdoni/crisp-ballot/vote"
	"go.uber.org/goleak"
)

// recordingBackend accepts every bundle that has the circuit field set.
type recordingBackend struct {
	mu     sync.Mutex
	inputs []circuits.NamedInputs
	calls  atomic.Int32
	block  chan struct{}
}

func (r *recordingBackend) Prove(ctx context.Context, in circuits.NamedInputs) (*prover.Proof, error) {
	r.calls.Add(1)
	if r.block != nil {
		select {
		case <-r.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err := in.CheckNames(ballotproof.InputNames); err != nil {
		return nil, err
	}
	r.mu.Lock()
	r.inputs = append(r.inputs, in)
	r.mu.Unlock()
	public := append([]string(nil), ballotproof.PublicInputNames...)
	return &prover.Proof{ID: uuid.New(), Data: []byte("proof"), PublicInputs: public}, nil
}

func (r *recordingBackend) Verify(_ context.Context, p *prover.Proof) (bool, error) {
	return string(p.Data) == "proof", nil
}

type fixture struct {
	engine  *bfv.Reference
	pk      *bfv.PublicKey
	voters  []*testutil.Voter
	backend *recordingBackend
	pipe    *pipeline.Pipeline
}

func newFixture(opts ...pipeline.Option) *fixture {
	engine, pk := testutil.Engine()
	backend := &recordingBackend{}
	return &fixture{
		engine:  engine,
		pk:      pk,
		voters:  testutil.NewVoters(5),
		backend: backend,
		pipe:    pipeline.New(engine, backend, append([]pipeline.Option{pipeline.WithWorkers(2)}, opts...)...),
	}
}

func (f *fixture) request(c *qt.C, i int, v vote.Vote, prev *bfv.Ciphertext) *pipeline.VoteProofRequest {
	voter := f.voters[i]
	msg := testutil.BallotMessage(voter)
	sig, err := voter.Signer.Sign(msg)
	c.Assert(err, qt.IsNil)
	return &pipeline.VoteProofRequest{
		Vote:               v,
		Mode:               vote.ModeGovernance,
		Balance:            voter.Balance,
		Address:            voter.Address(),
		Leaves:             testutil.Leaves(f.voters),
		PublicKey:          f.pk,
		PreviousCiphertext: prev,
		Signature:          sig.Bytes(),
		Message:            msg,
	}
}

func (f *fixture) tally(c *qt.C, ct *bfv.Ciphertext) *vote.Tally {
	plain, err := f.engine.Decrypt(f.engine.SecretKey(), ct)
	c.Assert(err, qt.IsNil)
	tally, err := vote.DecodeTally(plain, vote.ModeGovernance)
	c.Assert(err, qt.IsNil)
	return tally
}

func TestGenerateVoteProof(t *testing.T) {
	c := qt.New(t)
	f := newFixture()
	ctx := context.Background()

	res, err := f.pipe.GenerateVoteProof(ctx, f.request(c, 2, vote.Vote{Yes: 300}, nil))
	c.Assert(err, qt.IsNil)
	c.Assert(res.Proof, qt.IsNotNil)
	c.Assert(f.backend.calls.Load(), qt.Equals, int32(1))
	c.Assert(res.Ballot.Inputs.SlotAddress.MathBigInt().Cmp(f.voters[2].Address().Big()), qt.Equals, 0)
	c.Assert(f.tally(c, res.Ballot.Sum).Yes.Int64(), qt.Equals, int64(300))

	ok, err := f.pipe.VerifyProof(ctx, res.Proof)
	c.Assert(err, qt.IsNil)
	c.Assert(ok, qt.IsTrue)

	// the next ballot of the slot builds on the aggregate
	next, err := f.pipe.GenerateVoteProof(ctx, f.request(c, 2, vote.Vote{No: 100}, res.Ballot.Sum))
	c.Assert(err, qt.IsNil)
	tally := f.tally(c, next.Ballot.Sum)
	c.Assert(tally.Yes.Int64(), qt.Equals, int64(300))
	c.Assert(tally.No.Int64(), qt.Equals, int64(100))
}

func TestGenerateVoteProofFailsFast(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()

	for _, tc := range []struct {
		name   string
		opts   []pipeline.Option
		mutate func(f *fixture, req *pipeline.VoteProofRequest)
		err    error
	}{
		{
			name: "spread vote",
			mutate: func(_ *fixture, req *pipeline.VoteProofRequest) {
				req.Vote = vote.Vote{Yes: 1, No: 1}
			},
			err: vote.ErrInvalidVote,
		},
		{
			name: "over voting power",
			mutate: func(_ *fixture, req *pipeline.VoteProofRequest) {
				req.Vote = vote.Vote{Yes: 301}
			},
			err: vote.ErrInvalidVote,
		},
		{
			name: "balance not in census",
			mutate: func(_ *fixture, req *pipeline.VoteProofRequest) {
				req.Balance = req.Balance.Add(req.Balance, req.Balance)
			},
			err: census.ErrLeafNotFound,
		},
		{
			name: "empty census",
			mutate: func(_ *fixture, req *pipeline.VoteProofRequest) {
				req.Leaves = nil
			},
			err: census.ErrLeafNotFound,
		},
		{
			name: "signed by another voter",
			mutate: func(f *fixture, req *pipeline.VoteProofRequest) {
				sig, err := f.voters[0].Signer.Sign(req.Message)
				if err != nil {
					panic(err)
				}
				req.Signature = sig.Bytes()
			},
			err: ethereum.ErrSignature,
		},
		{
			name: "malformed signature",
			mutate: func(_ *fixture, req *pipeline.VoteProofRequest) {
				req.Signature = req.Signature[:10]
			},
			err: ethereum.ErrSignature,
		},
		{
			name: "mode mismatch",
			opts: []pipeline.Option{pipeline.WithMode(vote.ModeGovernance)},
			mutate: func(_ *fixture, req *pipeline.VoteProofRequest) {
				req.Mode = vote.ModeCredits
			},
			err: vote.ErrInvalidVote,
		},
		{
			name: "census too deep",
			opts: []pipeline.Option{pipeline.WithMaxDepth(2)},
			err:  census.ErrInvalidDepth,
		},
	} {
		c.Run(tc.name, func(c *qt.C) {
			f := newFixture(tc.opts...)
			req := f.request(c, 2, vote.Vote{Yes: 300}, nil)
			req.Balance = new(big.Int).Set(req.Balance)
			if tc.mutate != nil {
				tc.mutate(f, req)
			}
			res, err := f.pipe.GenerateVoteProof(ctx, req)
			c.Assert(res, qt.IsNil)
			c.Assert(err, qt.ErrorIs, tc.err)
			c.Assert(f.backend.calls.Load(), qt.Equals, int32(0))
		})
	}
}

func TestGenerateProofRejectsBadShape(t *testing.T) {
	c := qt.New(t)
	f := newFixture()
	ballot, err := f.pipe.PrepareVote(context.Background(), f.request(c, 1, vote.Vote{No: 7}, nil))
	c.Assert(err, qt.IsNil)

	in := *ballot.Inputs
	in.K1 = in.K1[:3]
	_, err = f.pipe.GenerateProof(context.Background(), &in)
	c.Assert(err, qt.ErrorIs, crisp.ErrBundleShape)

	in = *ballot.Inputs
	in.Ct0is = in.Ct0is[:1]
	_, err = f.pipe.GenerateProof(context.Background(), &in)
	c.Assert(err, qt.ErrorIs, crisp.ErrBundleShape)

	_, err = f.pipe.GenerateProof(context.Background(), nil)
	c.Assert(err, qt.ErrorIs, crisp.ErrBundleShape)
	c.Assert(f.backend.calls.Load(), qt.Equals, int32(0))
}

func TestGenerateMaskVoteProof(t *testing.T) {
	c := qt.New(t)
	f := newFixture()
	ctx := context.Background()

	genuine, err := f.pipe.GenerateVoteProof(ctx, f.request(c, 3, vote.Vote{No: 400}, nil))
	c.Assert(err, qt.IsNil)

	tree, err := census.GenerateMerkleTree(testutil.Leaves(f.voters))
	c.Assert(err, qt.IsNil)
	mask, err := f.pipe.GenerateMaskVoteProof(ctx, &pipeline.MaskProofRequest{
		PublicKey:          f.pk,
		PreviousCiphertext: genuine.Ballot.Sum,
		MerkleRoot:         tree.Root(),
		SlotAddress:        f.voters[3].Address(),
	})
	c.Assert(err, qt.IsNil)
	c.Assert(mask.Proof, qt.IsNotNil)
	c.Assert(f.tally(c, mask.Ballot.Sum).No.Int64(), qt.Equals, int64(400))
	c.Assert(f.tally(c, mask.Ballot.Ciphertext).No.Sign(), qt.Equals, 0)

	// same field set for both kinds of ballot
	c.Assert(f.backend.inputs, qt.HasLen, 2)
	c.Assert(f.backend.inputs[1].Names(), qt.DeepEquals, f.backend.inputs[0].Names())

	_, err = f.pipe.GenerateMaskVoteProof(ctx, nil)
	c.Assert(err, qt.ErrorIs, crisp.ErrBundleShape)
}

func TestCancellation(t *testing.T) {
	defer goleak.VerifyNone(t)
	c := qt.New(t)
	f := newFixture()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res, err := f.pipe.GenerateVoteProof(ctx, f.request(c, 0, vote.Vote{Yes: 1}, nil))
	c.Assert(res, qt.IsNil)
	c.Assert(err, qt.ErrorIs, prover.ErrProofCancelled)
	c.Assert(err, qt.ErrorIs, prover.ErrProofGeneration)
	c.Assert(err, qt.ErrorIs, context.Canceled)
	c.Assert(f.backend.calls.Load(), qt.Equals, int32(0))

	// cancelled while the backend is running
	f.backend.block = make(chan struct{})
	ctx, cancel = context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	res, err = f.pipe.GenerateVoteProof(ctx, f.request(c, 0, vote.Vote{Yes: 1}, nil))
	c.Assert(res, qt.IsNil)
	c.Assert(err, qt.ErrorIs, prover.ErrProofCancelled)
	c.Assert(err, qt.ErrorIs, context.DeadlineExceeded)
}

func TestProveBatch(t *testing.T) {
	c := qt.New(t)
	f := newFixture()
	ctx := context.Background()

	reqs := []*pipeline.VoteProofRequest{
		f.request(c, 0, vote.Vote{Yes: 100}, nil),
		f.request(c, 1, vote.Vote{No: 200}, nil),
		f.request(c, 4, vote.Vote{Yes: 5}, nil),
	}
	results, err := f.pipe.ProveBatch(ctx, reqs)
	c.Assert(err, qt.IsNil)
	c.Assert(results, qt.HasLen, len(reqs))
	for i, res := range results {
		c.Assert(res.Ballot.Inputs.SlotAddress.MathBigInt().Cmp(reqs[i].Address.Big()), qt.Equals, 0)
	}
	c.Assert(f.tally(c, results[1].Ballot.Sum).No.Int64(), qt.Equals, int64(200))

	reqs = append(reqs, f.request(c, 2, vote.Vote{Yes: 1, No: 1}, nil))
	results, err = f.pipe.ProveBatch(ctx, reqs)
	c.Assert(results, qt.IsNil)
	c.Assert(err, qt.ErrorIs, vote.ErrInvalidVote)
}
