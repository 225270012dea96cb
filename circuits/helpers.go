package circuits

import (
	"fmt"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/frontend"
	"github.com/vocdoni/crisp-ballot/types/params"
)

// FrontendError is an in-circuit helper that prints msg and trace and makes
// the circuit unsatisfiable.
func FrontendError(api frontend.API, msg string, trace error) {
	api.Println("in-circuit error: " + msg)
	api.Println(fmt.Sprintf("%s: %s", msg, trace.Error()))
	api.AssertIsEqual(1, 0)
}

// Modulus returns the scalar field modulus of the ballot proof curve.
func Modulus() *big.Int {
	return params.BallotProofCurve.ScalarField()
}

// ToField maps a signed integer to its representative in the scalar field
// of curve, so -1 becomes p-1.
func ToField(x *big.Int, curve ecc.ID) *big.Int {
	return new(big.Int).Mod(x, curve.ScalarField())
}

// FromField maps a field element back to the signed integer of smallest
// absolute value, the inverse of ToField for |x| < p/2.
func FromField(x *big.Int, curve ecc.ID) *big.Int {
	p := curve.ScalarField()
	v := new(big.Int).Mod(x, p)
	if v.Cmp(new(big.Int).Rsh(p, 1)) > 0 {
		v.Sub(v, p)
	}
	return v
}

// BigIntArrayToN pads the big.Int array to n elements, if needed, with
// zeros. Longer arrays are returned untouched.
func BigIntArrayToN(arr []*big.Int, n int) []*big.Int {
	out := make([]*big.Int, max(n, len(arr)))
	for i := range out {
		if i < len(arr) && arr[i] != nil {
			out[i] = arr[i]
		} else {
			out[i] = big.NewInt(0)
		}
	}
	return out
}

// BigIntArrayToStringArray converts the big.Int array, padded to n, to
// decimal strings.
func BigIntArrayToStringArray(arr []*big.Int, n int) []string {
	padded := BigIntArrayToN(arr, n)
	out := make([]string, len(padded))
	for i, b := range padded {
		out[i] = b.String()
	}
	return out
}

// BytesToStrings returns the decimal string of every byte.
func BytesToStrings(b []byte) []string {
	out := make([]string, len(b))
	for i, v := range b {
		out[i] = fmt.Sprint(v)
	}
	return out
}
