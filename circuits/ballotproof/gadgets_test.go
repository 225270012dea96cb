package ballotproof

import (
	"testing"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/test"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	qt "github.com/frankban/quicktest"
	"github.com/vocdoni/crisp-ballot/types/params"
)

type addressCircuit struct {
	X       [params.CoordinateLength]frontend.Variable
	Y       [params.CoordinateLength]frontend.Variable
	Address frontend.Variable `gnark:",public"`
}

func (c *addressCircuit) Define(api frontend.API) error {
	bytesToBits(api, c.X[:])
	bytesToBits(api, c.Y[:])
	derived, err := deriveAddress(api, c.X[:], c.Y[:])
	if err != nil {
		return err
	}
	api.AssertIsEqual(derived, c.Address)
	return nil
}

func TestDeriveAddress(t *testing.T) {
	c := qt.New(t)
	key, err := ethcrypto.GenerateKey()
	c.Assert(err, qt.IsNil)
	raw := ethcrypto.FromECDSAPub(&key.PublicKey)[1:]

	assignment := &addressCircuit{Address: ethcrypto.PubkeyToAddress(key.PublicKey).Big()}
	for i := range params.CoordinateLength {
		assignment.X[i] = int(raw[i])
		assignment.Y[i] = int(raw[params.CoordinateLength+i])
	}
	c.Assert(test.IsSolved(&addressCircuit{}, assignment, ecc.BN254.ScalarField()), qt.IsNil)

	other, err := ethcrypto.GenerateKey()
	c.Assert(err, qt.IsNil)
	assignment.Address = ethcrypto.PubkeyToAddress(other.PublicKey).Big()
	c.Assert(test.IsSolved(&addressCircuit{}, assignment, ecc.BN254.ScalarField()), qt.IsNotNil)
}
