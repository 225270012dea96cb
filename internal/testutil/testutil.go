// Package testutil holds fixtures shared by the package tests: a small BFV
// engine, deterministic voters and their census, and ready-to-assemble
// ballot requests.
package testutil

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/vocdoni/crisp-ballot/census"
	"github.com/vocdoni/crisp-ballot/crisp"
	"github.com/vocdoni/crisp-ballot/crypto/bfv"
	"github.com/vocdoni/crisp-ballot/crypto/signatures/ethereum"
	"github.com/vocdoni/crisp-ballot/types"
	"github.com/vocdoni/crisp-ballot/types/params"
	"github.com/vocdoni/crisp-ballot/vote"
)

// BalanceStep is the balance increment between consecutive test voters.
const BalanceStep = 100

// Voter is a census member with a deterministic key.
type Voter struct {
	Signer  *ethereum.Signer
	Balance *big.Int
}

// Address returns the slot address of the voter.
func (v *Voter) Address() common.Address {
	return v.Signer.Address()
}

// Participant returns the census entry of the voter.
func (v *Voter) Participant() census.Participant {
	return census.Participant{Address: v.Address(), Balance: types.NewBigInt(v.Balance)}
}

// NewVoters returns n voters with balances 100, 200, ...
func NewVoters(n int) []*Voter {
	voters := make([]*Voter, n)
	for i := range voters {
		signer, err := ethereum.NewSignerFromSeed(fmt.Appendf(nil, "crisp test voter %d", i))
		if err != nil {
			panic(err)
		}
		voters[i] = &Voter{Signer: signer, Balance: big.NewInt(int64(BalanceStep * (i + 1)))}
	}
	return voters
}

// Leaves returns the census leaves of voters, in order.
func Leaves(voters []*Voter) []*big.Int {
	participants := make([]census.Participant, len(voters))
	for i, v := range voters {
		participants[i] = v.Participant()
	}
	leaves, err := census.Leaves(participants)
	if err != nil {
		panic(err)
	}
	return leaves
}

// Engine returns a reference engine over bfv.TestParams and a fresh
// public key.
func Engine() (*bfv.Reference, *bfv.PublicKey) {
	engine, err := bfv.NewReference(bfv.TestParams)
	if err != nil {
		panic(err)
	}
	pk, err := engine.GeneratePublicKey()
	if err != nil {
		panic(err)
	}
	return engine, pk
}

// BallotMessage is the message signed by voter for a ballot.
func BallotMessage(voter *Voter) []byte {
	return fmt.Appendf(nil, "crisp ballot for %s", voter.Address().Hex())
}

// VoteRequest builds the assembler request of voter casting v among
// voters.
func VoteRequest(voter *Voter, voters []*Voter, v vote.Vote, pk *bfv.PublicKey, prev *bfv.Ciphertext) (*crisp.VoteRequest, error) {
	encoded, err := vote.EncodeVote(v, vote.ModeGovernance, voter.Balance.Uint64(), bfv.TestParams.Degree)
	if err != nil {
		return nil, err
	}
	proof, err := census.GenerateMerkleProof(voter.Balance, voter.Address().Hex(), Leaves(voters), params.MaxMerkleDepth)
	if err != nil {
		return nil, err
	}
	msg := BallotMessage(voter)
	sig, err := voter.Signer.Sign(msg)
	if err != nil {
		return nil, err
	}
	return &crisp.VoteRequest{
		EncodedVote:        encoded,
		PublicKey:          pk,
		PreviousCiphertext: prev,
		Signature:          sig.Bytes(),
		Message:            msg,
		MerkleProof:        proof,
		Balance:            voter.Balance,
		SlotAddress:        voter.Address(),
	}, nil
}
