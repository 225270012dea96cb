package types

import "math/big"

// SliceOf converts a slice of type F to a slice of type T using the provided
// conversion function.
func SliceOf[F, T any](from []F, conv func(F) T) []T {
	to := make([]T, len(from))
	for i, v := range from {
		to[i] = conv(v)
	}
	return to
}

// BigIntConverter converts a *big.Int to a new *BigInt. It can be used as a
// conversion function for SliceOf.
func BigIntConverter(from *big.Int) *BigInt {
	return new(BigInt).SetBigInt(from)
}
