// Package prover turns a named ballot bundle into a Groth16 proof over the
// ballot circuit and verifies it. Proving runs through a bounded Pool so
// callers can submit many ballots without oversubscribing the CPU.
package prover

import (
	"context"
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"
	"github.com/vocdoni/crisp-ballot/circuits"
	"github.com/vocdoni/crisp-ballot/types"
)

var (
	// ErrProofGeneration is returned when the backend fails to produce a
	// proof for a bundle.
	ErrProofGeneration = errors.New("proof generation failed")
	// ErrProofCancelled is returned when proving is cancelled through the
	// context. It wraps ErrProofGeneration.
	ErrProofCancelled = fmt.Errorf("%w: cancelled", ErrProofGeneration)
	// ErrInvalidProof is returned when a proof cannot be decoded.
	ErrInvalidProof = errors.New("invalid proof")
)

// Backend proves and verifies ballot bundles.
type Backend interface {
	// Prove generates a proof for the bundle. Failures wrap
	// ErrProofGeneration.
	Prove(ctx context.Context, inputs circuits.NamedInputs) (*Proof, error)
	// Verify returns false when the proof does not verify against its
	// public inputs. Errors are reserved for malformed proofs.
	Verify(ctx context.Context, proof *Proof) (bool, error)
}

// Proof is a serialized proof together with the public inputs it was
// generated for, in witness order.
type Proof struct {
	ID           uuid.UUID      `json:"id" cbor:"0,keyasint"`
	Data         types.HexBytes `json:"data" cbor:"1,keyasint"`
	PublicInputs []string       `json:"publicInputs" cbor:"2,keyasint"`
}

// cancelled maps a context error to ErrProofCancelled.
func cancelled(err error) error {
	return fmt.Errorf("%w: %w", ErrProofCancelled, err)
}

// EncodeCBOR encodes the proof with the deterministic CBOR encoding.
func (p *Proof) EncodeCBOR() ([]byte, error) {
	return encodeCBOR(p)
}

// DecodeProof decodes a CBOR encoded proof.
func DecodeProof(data []byte) (*Proof, error) {
	p := &Proof{}
	if err := cbor.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidProof, err)
	}
	return p, nil
}

func encodeCBOR(v any) ([]byte, error) {
	em, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		return nil, fmt.Errorf("cbor encoder: %w", err)
	}
	return em.Marshal(v)
}
