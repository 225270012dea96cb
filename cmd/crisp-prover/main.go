// Command crisp-prover builds a census of generated voters, optionally joined
// with a participant list, then proves and verifies one genuine ballot and
// one mask ballot for the same slot.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/vocdoni/crisp-ballot/config"
	"github.com/vocdoni/crisp-ballot/crypto/bfv"
	"github.com/vocdoni/crisp-ballot/db"
	"github.com/vocdoni/crisp-ballot/db/metadb"
	"github.com/vocdoni/crisp-ballot/log"
	"github.com/vocdoni/crisp-ballot/pipeline"
	"github.com/vocdoni/crisp-ballot/prover"
	"github.com/vocdoni/crisp-ballot/vote"
)

func main() {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	log.Init(cfg.Log.Level, cfg.Log.Output, nil)
	log.Infow("starting crisp-prover", "version", Version)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.Errorw(err, "crisp-prover failed")
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	p, err := cfg.Params()
	if err != nil {
		return err
	}
	opts, err := cfg.CircuitOptions()
	if err != nil {
		return err
	}

	database, err := metadb.New(cfg.DB.Type, cfg.Datadir)
	if err != nil {
		return fmt.Errorf("open %s database: %w", cfg.DB.Type, err)
	}
	defer closeDB(database)

	store, err := prover.NewArtifactStore(database, cfg.Prover.CacheSize)
	if err != nil {
		return err
	}
	backend, err := prover.NewGroth16Backend(p, opts, store)
	if err != nil {
		return err
	}
	log.Infow("loading ballot circuit", "params", p.String(), "options", opts.String())
	meta, err := backend.Setup(ctx)
	if err != nil {
		return fmt.Errorf("ballot circuit setup: %w", err)
	}
	log.Infow("ballot circuit ready", "constraints", meta.NbConstraints, "public", meta.NbPublic)

	engine, err := bfv.NewReference(p)
	if err != nil {
		return err
	}
	pk, err := engine.GeneratePublicKey()
	if err != nil {
		return err
	}
	pipe := pipeline.New(engine, backend,
		pipeline.WithWorkers(cfg.Prover.Workers),
		pipeline.WithMaxDepth(cfg.Census.MaxDepth))

	voters, participants, err := demoCensus(cfg.Census.Voters)
	if err != nil {
		return err
	}
	leaves, tree, err := buildCensus(cfg.Census.File, participants)
	if err != nil {
		return err
	}
	log.Infow("census generated", "voters", len(leaves), "depth", tree.Depth(), "root", tree.Root().String())

	voter := voters[len(voters)-1]
	balance := participants[len(participants)-1].Balance.MathBigInt()
	msg := fmt.Appendf(nil, "crisp ballot for %s", voter.Address().Hex())
	sig, err := voter.Sign(msg)
	if err != nil {
		return err
	}
	mode, err := cfg.Mode()
	if err != nil {
		return err
	}
	start := time.Now()
	res, err := pipe.GenerateVoteProof(ctx, &pipeline.VoteProofRequest{
		Vote:      vote.Vote{Yes: balance.Uint64()},
		Mode:      mode,
		Balance:   balance,
		Address:   voter.Address(),
		Leaves:    leaves,
		PublicKey: pk,
		Signature: sig.Bytes(),
		Message:   msg,
	})
	if err != nil {
		return fmt.Errorf("vote proof: %w", err)
	}
	if err := verify(ctx, pipe, "vote", res.Proof, start); err != nil {
		return err
	}

	start = time.Now()
	mask, err := pipe.GenerateMaskVoteProof(ctx, &pipeline.MaskProofRequest{
		PublicKey:          pk,
		PreviousCiphertext: res.Ballot.Sum,
		MerkleRoot:         tree.Root(),
		SlotAddress:        voter.Address(),
	})
	if err != nil {
		return fmt.Errorf("mask vote proof: %w", err)
	}
	if err := verify(ctx, pipe, "mask vote", mask.Proof, start); err != nil {
		return err
	}

	plain, err := engine.Decrypt(engine.SecretKey(), mask.Ballot.Sum)
	if err != nil {
		return err
	}
	tally, err := vote.DecodeTally(plain, mode)
	if err != nil {
		return err
	}
	log.Infow("slot aggregate", "slot", voter.Address().Hex(), "yes", tally.Yes.String(), "no", tally.No.String())
	return nil
}

func verify(ctx context.Context, pipe *pipeline.Pipeline, kind string, proof *prover.Proof, start time.Time) error {
	ok, err := pipe.VerifyProof(ctx, proof)
	if err != nil {
		return fmt.Errorf("verify %s proof: %w", kind, err)
	}
	if !ok {
		return fmt.Errorf("%s proof %s does not verify", kind, proof.ID)
	}
	log.Infow("ballot proven", "kind", kind, "id", proof.ID.String(), "bytes", len(proof.Data), "took", time.Since(start).String())
	return nil
}

func closeDB(database db.Database) {
	if err := database.Close(); err != nil {
		log.Warnw("failed to close database", "error", err.Error())
	}
}
