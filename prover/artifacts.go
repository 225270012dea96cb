package prover

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/constraint"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/frontend/cs/r1cs"
	"github.com/fxamacker/cbor/v2"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/vocdoni/crisp-ballot/circuits"
	"github.com/vocdoni/crisp-ballot/circuits/ballotproof"
	"github.com/vocdoni/crisp-ballot/crypto/bfv"
	"github.com/vocdoni/crisp-ballot/db"
	"github.com/vocdoni/crisp-ballot/db/prefixeddb"
	"github.com/vocdoni/crisp-ballot/log"
	"github.com/vocdoni/crisp-ballot/types/params"
)

// DefaultCacheSize is the number of circuit variants kept in memory.
const DefaultCacheSize = 4

var artifactsPrefix = []byte("ar/")

// Artifact keys, appended to the circuit fingerprint.
const (
	keyMetadata = "/meta"
	keyCCS      = "/ccs"
	keyPK       = "/pk"
	keyVK       = "/vk"
)

// ArtifactMetadata describes a persisted set of circuit artifacts.
type ArtifactMetadata struct {
	Fingerprint     string `cbor:"fingerprint"`
	ConstraintsHash string `cbor:"constraintsHash"`
	NbConstraints   int    `cbor:"nbConstraints"`
	NbPublic        int    `cbor:"nbPublic"`
	CreatedAt       int64  `cbor:"createdAt"`
}

// Artifacts are the compiled ballot circuit and its Groth16 keys.
type Artifacts struct {
	CCS      constraint.ConstraintSystem
	PK       groth16.ProvingKey
	VK       groth16.VerifyingKey
	Metadata ArtifactMetadata
}

// ArtifactStore compiles the ballot circuit and runs the Groth16 setup once
// per circuit variant. Results are cached in memory and, when a database is
// configured, persisted so that restarts reuse the same keys.
type ArtifactStore struct {
	db    db.Database
	cache *lru.Cache[string, *Artifacts]
	mu    sync.Mutex
}

// NewArtifactStore returns a store backed by database, which may be nil to
// keep artifacts only in memory.
func NewArtifactStore(database db.Database, cacheSize int) (*ArtifactStore, error) {
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	cache, err := lru.New[string, *Artifacts](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("create artifacts cache: %w", err)
	}
	s := &ArtifactStore{cache: cache}
	if database != nil {
		s.db = prefixeddb.NewPrefixedDatabase(database, artifactsPrefix)
	}
	return s, nil
}

// Load returns the artifacts of the circuit for p and opts, generating them
// if needed.
func (s *ArtifactStore) Load(ctx context.Context, p *bfv.Params, opts ballotproof.Options) (*Artifacts, error) {
	key := ballotproof.Fingerprint(p, opts)
	if a, ok := s.cache.Get(key); ok {
		return a, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if a, ok := s.cache.Get(key); ok {
		return a, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	a, err := s.read(key)
	switch {
	case err == nil:
		log.Debugw("ballot circuit artifacts loaded", "fingerprint", key, "constraints", a.Metadata.NbConstraints)
	case errors.Is(err, db.ErrKeyNotFound):
		if a, err = s.generate(key, p, opts); err != nil {
			return nil, err
		}
	default:
		log.Warnw("discarding stored ballot circuit artifacts", "fingerprint", key, "error", err.Error())
		if a, err = s.generate(key, p, opts); err != nil {
			return nil, err
		}
	}
	s.cache.Add(key, a)
	return a, nil
}

func (s *ArtifactStore) generate(key string, p *bfv.Params, opts ballotproof.Options) (*Artifacts, error) {
	start := time.Now()
	ccs, err := frontend.Compile(params.BallotProofCurve.ScalarField(), r1cs.NewBuilder,
		ballotproof.NewPlaceholder(p, opts))
	if err != nil {
		return nil, fmt.Errorf("compile ballot circuit: %w", err)
	}
	pk, vk, err := groth16.Setup(ccs)
	if err != nil {
		return nil, fmt.Errorf("setup ballot circuit: %w", err)
	}
	hash, err := circuits.HashConstraintSystem(ccs)
	if err != nil {
		return nil, err
	}
	a := &Artifacts{
		CCS: ccs,
		PK:  pk,
		VK:  vk,
		Metadata: ArtifactMetadata{
			Fingerprint:     key,
			ConstraintsHash: hash,
			NbConstraints:   ccs.GetNbConstraints(),
			NbPublic:        ccs.GetNbPublicVariables() - 1,
			CreatedAt:       time.Now().Unix(),
		},
	}
	log.Infow("ballot circuit artifacts generated",
		"fingerprint", key,
		"options", opts.String(),
		"constraints", a.Metadata.NbConstraints,
		"took", time.Since(start).String())
	if err := s.write(a); err != nil {
		return nil, err
	}
	return a, nil
}

func (s *ArtifactStore) read(key string) (*Artifacts, error) {
	if s.db == nil {
		return nil, db.ErrKeyNotFound
	}
	raw, err := s.db.Get([]byte(key + keyMetadata))
	if err != nil {
		return nil, err
	}
	a := &Artifacts{
		CCS: groth16.NewCS(params.BallotProofCurve),
		PK:  groth16.NewProvingKey(params.BallotProofCurve),
		VK:  groth16.NewVerifyingKey(params.BallotProofCurve),
	}
	if err := cbor.Unmarshal(raw, &a.Metadata); err != nil {
		return nil, fmt.Errorf("decode artifacts metadata: %w", err)
	}
	for _, f := range []struct {
		suffix string
		dst    io.ReaderFrom
	}{
		{keyCCS, a.CCS}, {keyPK, a.PK}, {keyVK, a.VK},
	} {
		raw, err := s.db.Get([]byte(key + f.suffix))
		if err != nil {
			return nil, fmt.Errorf("artifact %s: %w", f.suffix, err)
		}
		if _, err := f.dst.ReadFrom(bytes.NewReader(raw)); err != nil {
			return nil, fmt.Errorf("decode artifact %s: %w", f.suffix, err)
		}
	}
	hash, err := circuits.HashConstraintSystem(a.CCS)
	if err != nil {
		return nil, err
	}
	if hash != a.Metadata.ConstraintsHash {
		return nil, fmt.Errorf("constraint system hash mismatch: %s != %s", hash, a.Metadata.ConstraintsHash)
	}
	return a, nil
}

func (s *ArtifactStore) write(a *Artifacts) error {
	if s.db == nil {
		return nil
	}
	meta, err := encodeCBOR(a.Metadata)
	if err != nil {
		return err
	}
	key := a.Metadata.Fingerprint
	wTx := s.db.WriteTx()
	defer wTx.Discard()
	for _, f := range []struct {
		suffix string
		src    io.WriterTo
	}{
		{keyCCS, a.CCS}, {keyPK, a.PK}, {keyVK, a.VK},
	} {
		var buf bytes.Buffer
		if _, err := f.src.WriteTo(&buf); err != nil {
			return fmt.Errorf("encode artifact %s: %w", f.suffix, err)
		}
		if err := wTx.Set([]byte(key+f.suffix), buf.Bytes()); err != nil {
			return err
		}
	}
	if err := wTx.Set([]byte(key+keyMetadata), meta); err != nil {
		return err
	}
	if err := wTx.Commit(); err != nil {
		return fmt.Errorf("persist ballot circuit artifacts: %w", err)
	}
	return nil
}
