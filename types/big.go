package types

import (
	"fmt"
	"math/big"

	"github.com/fxamacker/cbor/v2"
)

// BigInt is a big.Int wrapper which marshals JSON and CBOR to the decimal
// string representation of the number, the format used at the proving
// backend boundary. A nil pointer marshals as "0".
type BigInt big.Int

// NewInt creates a new BigInt from the given integer value.
func NewInt(x int64) *BigInt {
	return (*BigInt)(big.NewInt(x))
}

// NewBigInt copies x into a new BigInt.
func NewBigInt(x *big.Int) *BigInt {
	return new(BigInt).SetBigInt(x)
}

// MarshalText returns the decimal string representation of the big number.
func (i *BigInt) MarshalText() ([]byte, error) {
	if i == nil {
		return []byte("0"), nil
	}
	return (*big.Int)(i).MarshalText()
}

// UnmarshalText parses the text representation into the big number.
func (i *BigInt) UnmarshalText(data []byte) error {
	if i == nil {
		return fmt.Errorf("cannot unmarshal into nil BigInt")
	}
	return (*big.Int)(i).UnmarshalText(data)
}

// UnmarshalJSON supports both string and numeric JSON representations.
func (i *BigInt) UnmarshalJSON(data []byte) error {
	if i == nil {
		return fmt.Errorf("cannot unmarshal into nil BigInt")
	}
	if len(data) > 1 && data[0] == '"' {
		return i.UnmarshalText(data[1 : len(data)-1])
	}
	return i.UnmarshalText(data)
}

// MarshalCBOR encodes BigInt as a CBOR text string.
func (i *BigInt) MarshalCBOR() ([]byte, error) {
	txt, err := i.MarshalText()
	if err != nil {
		return nil, err
	}
	return cbor.Marshal(string(txt))
}

// UnmarshalCBOR decodes a CBOR text string into BigInt.
func (i *BigInt) UnmarshalCBOR(data []byte) error {
	var s string
	if err := cbor.Unmarshal(data, &s); err != nil {
		return err
	}
	return i.UnmarshalText([]byte(s))
}

// String returns the decimal representation of the big number.
func (i *BigInt) String() string {
	if i == nil {
		return "0"
	}
	return (*big.Int)(i).String()
}

// SetString parses a decimal string.
func (i *BigInt) SetString(s string) (*BigInt, bool) {
	_, ok := i.MathBigInt().SetString(s, 10)
	return i, ok
}

// SetBytes interprets buf as big-endian unsigned integer
func (i *BigInt) SetBytes(buf []byte) *BigInt {
	return (*BigInt)(i.MathBigInt().SetBytes(buf))
}

// Bytes returns the bytes representation of the big number
func (i *BigInt) Bytes() []byte {
	return (*big.Int)(i).Bytes()
}

// MathBigInt converts b to a math/big *Int.
func (i *BigInt) MathBigInt() *big.Int {
	return (*big.Int)(i)
}

// SetUint64 sets the value of x to the big number
func (i *BigInt) SetUint64(x uint64) *BigInt {
	return (*BigInt)(i.MathBigInt().SetUint64(x))
}

// SetBigInt sets the value of x to the big number.
func (i *BigInt) SetBigInt(x *big.Int) *BigInt {
	return (*BigInt)(i.MathBigInt().Set(x))
}

// Equal helps us with go-cmp.
func (i *BigInt) Equal(j *BigInt) bool {
	if i == nil || j == nil {
		return (i == nil) == (j == nil)
	}
	return i.MathBigInt().Cmp(j.MathBigInt()) == 0
}

// ToFF returns the canonical representative of i in the field of the given
// modulus. Negative values are mapped to modulus-|i|.
func (i *BigInt) ToFF(modulus *big.Int) *BigInt {
	return (*BigInt)(new(big.Int).Mod(i.MathBigInt(), modulus))
}

// BigIntList is a list of big numbers that serializes as a list of decimal
// strings.
type BigIntList []*BigInt

// NewBigIntList copies the given values.
func NewBigIntList(values []*big.Int) BigIntList {
	return SliceOf(values, BigIntConverter)
}

// ZeroList returns a list of n zeros.
func ZeroList(n int) BigIntList {
	l := make(BigIntList, n)
	for i := range l {
		l[i] = NewInt(0)
	}
	return l
}

// Strings returns the decimal representation of every element.
func (l BigIntList) Strings() []string {
	return SliceOf(l, (*BigInt).String)
}

// MathBigInts returns the underlying big.Int pointers.
func (l BigIntList) MathBigInts() []*big.Int {
	return SliceOf(l, (*BigInt).MathBigInt)
}

// Clone deep copies the list.
func (l BigIntList) Clone() BigIntList {
	return SliceOf(l, func(v *BigInt) *BigInt { return NewBigInt(v.MathBigInt()) })
}

// BigIntMatrix is a per-limb list of coefficient lists.
type BigIntMatrix []BigIntList

// NewBigIntMatrix copies the given rows.
func NewBigIntMatrix(rows [][]*big.Int) BigIntMatrix {
	return SliceOf(rows, NewBigIntList)
}

// Strings returns the decimal representation of every row.
func (m BigIntMatrix) Strings() [][]string {
	return SliceOf(m, BigIntList.Strings)
}

// Clone deep copies the matrix.
func (m BigIntMatrix) Clone() BigIntMatrix {
	return SliceOf(m, BigIntList.Clone)
}
