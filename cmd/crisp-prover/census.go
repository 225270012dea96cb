package main

import (
	"fmt"
	"math/big"
	"os"

	"github.com/vocdoni/crisp-ballot/census"
	"github.com/vocdoni/crisp-ballot/crypto/signatures/ethereum"
	"github.com/vocdoni/crisp-ballot/log"
	"github.com/vocdoni/crisp-ballot/types"
)

const balanceStep = 10

// demoCensus generates n signers with increasing balances.
func demoCensus(n int) ([]*ethereum.Signer, []census.Participant, error) {
	signers := make([]*ethereum.Signer, n)
	participants := make([]census.Participant, n)
	for i := range n {
		s, err := ethereum.NewSigner()
		if err != nil {
			return nil, nil, err
		}
		signers[i] = s
		participants[i] = census.Participant{
			Address: s.Address(),
			Balance: types.NewBigInt(big.NewInt(int64(balanceStep * (i + 1)))),
		}
	}
	return signers, participants, nil
}

// buildCensus loads the participants of file, if any, ahead of generated and
// returns the leaves and the tree built over all of them.
func buildCensus(file string, generated []census.Participant) ([]*big.Int, *census.Tree, error) {
	participants := generated
	if file != "" {
		fd, err := os.Open(file)
		if err != nil {
			return nil, nil, fmt.Errorf("open census file: %w", err)
		}
		defer func() {
			if err := fd.Close(); err != nil {
				log.Warnw("failed to close census file", "file", file, "error", err.Error())
			}
		}()
		loaded, format, err := census.ReadParticipants(fd)
		if err != nil {
			return nil, nil, fmt.Errorf("read census file %s: %w", file, err)
		}
		log.Infow("census file loaded", "file", file, "format", format.String(), "participants", len(loaded))
		participants = append(loaded, generated...)
	}
	leaves, err := census.Leaves(participants)
	if err != nil {
		return nil, nil, err
	}
	tree, err := census.GenerateMerkleTree(leaves)
	if err != nil {
		return nil, nil, err
	}
	return leaves, tree, nil
}
