// Package pipeline composes the ballot stages into end-to-end operations:
// vote encoding, census proof, bundle assembly and proof generation for
// genuine and mask ballots.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/vocdoni/crisp-ballot/census"
	"github.com/vocdoni/crisp-ballot/circuits/ballotproof"
	"github.com/vocdoni/crisp-ballot/crisp"
	"github.com/vocdoni/crisp-ballot/crypto/bfv"
	"github.com/vocdoni/crisp-ballot/log"
	"github.com/vocdoni/crisp-ballot/prover"
	"github.com/vocdoni/crisp-ballot/types/params"
	"github.com/vocdoni/crisp-ballot/vote"
	"golang.org/x/sync/errgroup"
)

// VoteProofRequest is a ballot as cast by a census member.
type VoteProofRequest struct {
	Vote vote.Vote
	Mode vote.Mode
	// Balance is the voting power committed in the census leaf.
	Balance *big.Int
	Address common.Address
	// Leaves are the census leaves the Merkle proof is built against.
	Leaves             []*big.Int
	PublicKey          *bfv.PublicKey
	PreviousCiphertext *bfv.Ciphertext
	Signature          []byte
	Message            []byte
}

// MaskProofRequest is a mask ballot for a slot.
type MaskProofRequest struct {
	PublicKey          *bfv.PublicKey
	PreviousCiphertext *bfv.Ciphertext
	MerkleRoot         *big.Int
	SlotAddress        common.Address
}

// Result is a proven ballot.
type Result struct {
	Ballot *crisp.Ballot
	Proof  *prover.Proof
}

// Pipeline proves ballots with a backend, bounding concurrent proofs
// through a pool.
type Pipeline struct {
	assembler *crisp.Assembler
	backend   prover.Backend
	pool      *prover.Pool
	maxDepth  int
	mode      *vote.Mode
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithPool shares an existing proving pool.
func WithPool(pool *prover.Pool) Option {
	return func(p *Pipeline) { p.pool = pool }
}

// WithWorkers sets the size of the proving pool.
func WithWorkers(n int) Option {
	return func(p *Pipeline) { p.pool = prover.NewPool(n) }
}

// WithMaxDepth limits the depth of the census trees accepted by the
// pipeline. Proofs are always padded to params.MaxMerkleDepth, so larger
// values are capped.
func WithMaxDepth(depth int) Option {
	return func(p *Pipeline) { p.maxDepth = depth }
}

// WithMode restricts the pipeline to ballots of the given policy. Backends
// exposing their circuit options set it by default.
func WithMode(mode vote.Mode) Option {
	return func(p *Pipeline) { p.mode = &mode }
}

// New returns a pipeline encrypting with engine and proving with backend.
func New(engine bfv.Engine, backend prover.Backend, opts ...Option) *Pipeline {
	p := &Pipeline{
		assembler: crisp.NewAssembler(engine),
		backend:   backend,
		maxDepth:  params.MaxMerkleDepth,
	}
	if b, ok := backend.(interface{ Options() ballotproof.Options }); ok {
		mode := b.Options().Mode
		p.mode = &mode
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.maxDepth <= 0 || p.maxDepth > params.MaxMerkleDepth {
		p.maxDepth = params.MaxMerkleDepth
	}
	if p.pool == nil {
		p.pool = prover.NewPool(params.DefaultProverWorkers)
	}
	return p
}

// Assembler returns the bundle assembler of the pipeline.
func (p *Pipeline) Assembler() *crisp.Assembler {
	return p.assembler
}

// GenerateProof proves a bundle. The bundle shape is validated before the
// backend is involved.
func (p *Pipeline) GenerateProof(ctx context.Context, in *crisp.Inputs) (*prover.Proof, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: nil bundle", crisp.ErrBundleShape)
	}
	if err := in.Validate(p.assembler.Params()); err != nil {
		return nil, err
	}
	return p.pool.Prove(ctx, p.backend, in.NamedInputs())
}

// VerifyProof reports whether proof is valid for its public inputs.
func (p *Pipeline) VerifyProof(ctx context.Context, proof *prover.Proof) (bool, error) {
	return p.backend.Verify(ctx, proof)
}

// PrepareVote encodes the vote, builds the census proof of the voter and
// assembles the ballot bundle without proving it.
func (p *Pipeline) PrepareVote(ctx context.Context, req *VoteProofRequest) (*crisp.Ballot, error) {
	if req == nil || req.Balance == nil {
		return nil, fmt.Errorf("%w: incomplete vote proof request", crisp.ErrBundleShape)
	}
	if !req.Balance.IsUint64() {
		return nil, fmt.Errorf("%w: balance %s out of range", vote.ErrInvalidVote, req.Balance)
	}
	if p.mode != nil && req.Mode != *p.mode {
		return nil, fmt.Errorf("%w: %s ballot for a %s circuit", vote.ErrInvalidVote, req.Mode, *p.mode)
	}
	encoded, err := vote.EncodeVote(req.Vote, req.Mode, req.Balance.Uint64(), p.assembler.Params().Degree)
	if err != nil {
		return nil, err
	}
	proof, err := census.GenerateMerkleProof(req.Balance, req.Address.Hex(), req.Leaves, params.MaxMerkleDepth)
	if err != nil {
		return nil, err
	}
	if proof.Length > p.maxDepth {
		return nil, fmt.Errorf("%w: census depth %d exceeds %d", census.ErrInvalidDepth, proof.Length, p.maxDepth)
	}
	return p.assembler.EncryptVoteAndGenerateInputs(ctx, &crisp.VoteRequest{
		EncodedVote:        encoded,
		PublicKey:          req.PublicKey,
		PreviousCiphertext: req.PreviousCiphertext,
		Signature:          req.Signature,
		Message:            req.Message,
		MerkleProof:        proof,
		Balance:            req.Balance,
		SlotAddress:        req.Address,
	})
}

// GenerateVoteProof prepares and proves a genuine ballot.
func (p *Pipeline) GenerateVoteProof(ctx context.Context, req *VoteProofRequest) (*Result, error) {
	ballot, err := p.PrepareVote(ctx, req)
	if err != nil {
		return nil, checkCancelled(ctx, err)
	}
	return p.prove(ctx, ballot)
}

// GenerateMaskVoteProof assembles and proves a mask ballot.
func (p *Pipeline) GenerateMaskVoteProof(ctx context.Context, req *MaskProofRequest) (*Result, error) {
	if req == nil {
		return nil, fmt.Errorf("%w: nil mask proof request", crisp.ErrBundleShape)
	}
	ballot, err := p.assembler.GenerateMaskVote(ctx, &crisp.MaskRequest{
		PublicKey:          req.PublicKey,
		PreviousCiphertext: req.PreviousCiphertext,
		MerkleRoot:         req.MerkleRoot,
		SlotAddress:        req.SlotAddress,
	})
	if err != nil {
		return nil, checkCancelled(ctx, err)
	}
	return p.prove(ctx, ballot)
}

// ProveBatch prepares the ballots in parallel and proves them through the
// pool. Results keep the order of reqs. The first failure cancels the
// remaining work and no partial results are returned.
func (p *Pipeline) ProveBatch(ctx context.Context, reqs []*VoteProofRequest) ([]*Result, error) {
	batch := uuid.New()
	results := make([]*Result, len(reqs))
	g, gctx := errgroup.WithContext(ctx)
	for i, req := range reqs {
		g.Go(func() error {
			res, err := p.GenerateVoteProof(gctx, req)
			if err != nil {
				return fmt.Errorf("ballot %d: %w", i, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		log.Warnw("ballot batch failed", "batch", batch.String(), "size", len(reqs), "error", err.Error())
		return nil, err
	}
	log.Infow("ballot batch proven", "batch", batch.String(), "size", len(reqs))
	return results, nil
}

func (p *Pipeline) prove(ctx context.Context, ballot *crisp.Ballot) (*Result, error) {
	proof, err := p.GenerateProof(ctx, ballot.Inputs)
	if err != nil {
		return nil, err
	}
	return &Result{Ballot: ballot, Proof: proof}, nil
}

// checkCancelled reports ballots abandoned before proving as cancelled
// proof generations.
func checkCancelled(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
		return fmt.Errorf("%w: %w", prover.ErrProofCancelled, ctxErr)
	}
	return err
}
