package poseidon

import (
	"math/big"
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/iden3/go-iden3-crypto/poseidon"
)

func TestMultiHash(t *testing.T) {
	c := qt.New(t)

	_, err := MultiHash()
	c.Assert(err, qt.ErrorIs, ErrNoInputs)

	a, b := big.NewInt(1), big.NewInt(2)
	direct, err := poseidon.Hash([]*big.Int{a, b})
	c.Assert(err, qt.IsNil)
	multi, err := MultiHash(a, b)
	c.Assert(err, qt.IsNil)
	c.Assert(multi.String(), qt.Equals, direct.String())

	pair, err := HashPair(a, b)
	c.Assert(err, qt.IsNil)
	c.Assert(pair.String(), qt.Equals, direct.String())

	// 20 inputs are two chunks: H(H(x0..x15), H(x16..x19))
	inputs := make([]*big.Int, 20)
	for i := range inputs {
		inputs[i] = big.NewInt(int64(i + 1))
	}
	h0, err := poseidon.Hash(inputs[:16])
	c.Assert(err, qt.IsNil)
	h1, err := poseidon.Hash(inputs[16:])
	c.Assert(err, qt.IsNil)
	want, err := poseidon.Hash([]*big.Int{h0, h1})
	c.Assert(err, qt.IsNil)
	got, err := MultiHash(inputs...)
	c.Assert(err, qt.IsNil)
	c.Assert(got.String(), qt.Equals, want.String())

	// order matters
	swapped, err := MultiHash(b, a)
	c.Assert(err, qt.IsNil)
	c.Assert(swapped.String(), qt.Not(qt.Equals), multi.String())
}
