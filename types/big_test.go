package types

import (
	"encoding/json"
	"math/big"
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/fxamacker/cbor/v2"
)

func TestBigMarshalUnmarshalJSON(t *testing.T) {
	c := qt.New(t)
	bi := (*BigInt)(big.NewInt(1234567890))
	bBigInt, err := json.Marshal(map[string]*BigInt{"bi": bi})
	c.Assert(err, qt.IsNil)
	c.Assert(string(bBigInt), qt.Equals, `{"bi":"1234567890"}`)

	var unmarshaled map[string]*BigInt
	c.Assert(json.Unmarshal(bBigInt, &unmarshaled), qt.IsNil)
	c.Assert(unmarshaled["bi"], qt.DeepEquals, bi)
}

func TestBigMarshalUnmarshalCBOR(t *testing.T) {
	c := qt.New(t)
	bi := (*BigInt)(big.NewInt(-42))
	bBigInt, err := cbor.Marshal(map[string]*BigInt{"bi": bi})
	c.Assert(err, qt.IsNil)

	var unmarshaled map[string]*BigInt
	c.Assert(cbor.Unmarshal(bBigInt, &unmarshaled), qt.IsNil)
	c.Assert(unmarshaled["bi"].Equal(bi), qt.IsTrue)
}

func TestBigUnmarshalJSONNumeric(t *testing.T) {
	c := qt.New(t)

	var biString BigInt
	c.Assert(json.Unmarshal([]byte(`"123456789"`), &biString), qt.IsNil)
	c.Assert(biString.String(), qt.Equals, "123456789")

	var biNumeric BigInt
	c.Assert(json.Unmarshal([]byte(`123456789`), &biNumeric), qt.IsNil)
	c.Assert(biNumeric.String(), qt.Equals, "123456789")
}

func TestToFF(t *testing.T) {
	c := qt.New(t)
	p := big.NewInt(97)
	c.Assert(NewInt(-1).ToFF(p).String(), qt.Equals, "96")
	c.Assert(NewInt(97).ToFF(p).String(), qt.Equals, "0")
	c.Assert(NewInt(5).ToFF(p).String(), qt.Equals, "5")
}

func TestBigIntMatrix(t *testing.T) {
	c := qt.New(t)
	m := NewBigIntMatrix([][]*big.Int{
		{big.NewInt(1), big.NewInt(-2)},
		{big.NewInt(3), big.NewInt(4)},
	})
	c.Assert(m.Strings(), qt.DeepEquals, [][]string{{"1", "-2"}, {"3", "4"}})

	clone := m.Clone()
	clone[0][0].SetUint64(9)
	c.Assert(m[0][0].String(), qt.Equals, "1")
	c.Assert(ZeroList(3).Strings(), qt.DeepEquals, []string{"0", "0", "0"})
}
