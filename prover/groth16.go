package prover

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/backend/witness"
	"github.com/consensys/gnark/frontend"
	"github.com/google/uuid"
	"github.com/vocdoni/crisp-ballot/circuits"
	"github.com/vocdoni/crisp-ballot/circuits/ballotproof"
	"github.com/vocdoni/crisp-ballot/crypto/bfv"
	"github.com/vocdoni/crisp-ballot/log"
	"github.com/vocdoni/crisp-ballot/types/params"
)

// Groth16Backend proves ballot bundles with Groth16 over BN254.
type Groth16Backend struct {
	params *bfv.Params
	opts   ballotproof.Options
	store  *ArtifactStore
}

var _ Backend = (*Groth16Backend)(nil)

// NewGroth16Backend returns a backend for the ballot circuit of p and opts.
// A nil store keeps the artifacts in memory only.
func NewGroth16Backend(p *bfv.Params, opts ballotproof.Options, store *ArtifactStore) (*Groth16Backend, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if store == nil {
		var err error
		if store, err = NewArtifactStore(nil, 0); err != nil {
			return nil, err
		}
	}
	return &Groth16Backend{params: p, opts: opts, store: store}, nil
}

// Setup loads or generates the circuit artifacts ahead of the first proof.
func (b *Groth16Backend) Setup(ctx context.Context) (*ArtifactMetadata, error) {
	a, err := b.store.Load(ctx, b.params, b.opts)
	if err != nil {
		return nil, err
	}
	return &a.Metadata, nil
}

// Options returns the circuit options the backend proves for.
func (b *Groth16Backend) Options() ballotproof.Options {
	return b.opts
}

// Prove implements Backend.
func (b *Groth16Backend) Prove(ctx context.Context, inputs circuits.NamedInputs) (*Proof, error) {
	if err := ctx.Err(); err != nil {
		return nil, cancelled(err)
	}
	assignment, err := ballotproof.AssignmentFromInputs(b.params, b.opts, inputs)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrProofGeneration, err)
	}
	a, err := b.store.Load(ctx, b.params, b.opts)
	if err != nil {
		return nil, b.failed(ctx, err)
	}
	w, err := frontend.NewWitness(assignment, params.BallotProofCurve.ScalarField())
	if err != nil {
		return nil, fmt.Errorf("%w: create witness: %w", ErrProofGeneration, err)
	}
	proof, err := groth16.Prove(a.CCS, a.PK, w)
	if err != nil {
		return nil, b.failed(ctx, err)
	}
	// groth16.Prove is not interruptible, drop the result if the caller
	// went away meanwhile
	if err := ctx.Err(); err != nil {
		return nil, cancelled(err)
	}

	pub, err := w.Public()
	if err != nil {
		return nil, fmt.Errorf("%w: public witness: %w", ErrProofGeneration, err)
	}
	publicInputs, err := publicInputStrings(pub)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrProofGeneration, err)
	}
	var buf bytes.Buffer
	if _, err := proof.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("%w: encode proof: %w", ErrProofGeneration, err)
	}
	return &Proof{ID: uuid.New(), Data: buf.Bytes(), PublicInputs: publicInputs}, nil
}

// Verify implements Backend.
func (b *Groth16Backend) Verify(ctx context.Context, proof *Proof) (bool, error) {
	if proof == nil {
		return false, fmt.Errorf("%w: nil proof", ErrInvalidProof)
	}
	if n := ballotproof.NbPublicInputs(b.params); len(proof.PublicInputs) != n {
		return false, fmt.Errorf("%w: %d public inputs, expected %d", ErrInvalidProof, len(proof.PublicInputs), n)
	}
	gproof := groth16.NewProof(params.BallotProofCurve)
	if _, err := gproof.ReadFrom(bytes.NewReader(proof.Data)); err != nil {
		return false, fmt.Errorf("%w: decode proof: %w", ErrInvalidProof, err)
	}
	pub, err := publicWitness(proof.PublicInputs)
	if err != nil {
		return false, err
	}
	a, err := b.store.Load(ctx, b.params, b.opts)
	if err != nil {
		return false, err
	}
	if err := groth16.Verify(gproof, a.VK, pub); err != nil {
		log.Debugw("ballot proof rejected", "id", proof.ID.String(), "error", err.Error())
		return false, nil
	}
	return true, nil
}

// failed wraps a backend error, reporting cancellation when ctx is done.
func (b *Groth16Backend) failed(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return cancelled(ctxErr)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return cancelled(err)
	}
	return fmt.Errorf("%w: %w", ErrProofGeneration, err)
}

func publicInputStrings(pub witness.Witness) ([]string, error) {
	vec, ok := pub.Vector().(fr.Vector)
	if !ok {
		return nil, fmt.Errorf("unexpected witness vector %T", pub.Vector())
	}
	out := make([]string, len(vec))
	for i := range vec {
		out[i] = vec[i].String()
	}
	return out, nil
}

func publicWitness(values []string) (witness.Witness, error) {
	modulus := params.BallotProofCurve.ScalarField()
	ch := make(chan any, len(values))
	for i, s := range values {
		v, ok := new(big.Int).SetString(s, 10)
		if !ok || v.Sign() < 0 || v.Cmp(modulus) >= 0 {
			return nil, fmt.Errorf("%w: public input %d is not a field element", ErrInvalidProof, i)
		}
		ch <- v
	}
	close(ch)
	w, err := witness.New(modulus)
	if err != nil {
		return nil, err
	}
	if err := w.Fill(len(values), 0, ch); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidProof, err)
	}
	return w, nil
}
