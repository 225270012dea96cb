package types

import (
	"bytes"
	"encoding/hex"
	"fmt"
)

// HexBytes is a []byte which encodes as a 0x-prefixed hexadecimal string in
// json, as opposed to the base64 default.
type HexBytes []byte

// Hex returns the hexadecimal string representation of the HexBytes.
func (b HexBytes) Hex() string {
	return hex.EncodeToString(b)
}

// String returns the hexadecimal string representation prefixed with "0x".
func (b HexBytes) String() string {
	return "0x" + b.Hex()
}

// BigInt interprets the bytes as a big-endian unsigned integer.
func (b HexBytes) BigInt() *BigInt {
	return new(BigInt).SetBytes(b)
}

// LeftPad returns a copy of b padded with leading zeros to n bytes. If b is
// already n bytes or longer, the copy is returned unpadded.
func (b HexBytes) LeftPad(n int) HexBytes {
	if len(b) >= n {
		return bytes.Clone(b)
	}
	out := make(HexBytes, n)
	copy(out[n-len(b):], b)
	return out
}

// Equal reports whether both byte sequences are the same.
func (b HexBytes) Equal(other HexBytes) bool {
	return bytes.Equal(b, other)
}

// MarshalJSON encodes the bytes as a "0x" prefixed hexadecimal string.
func (b HexBytes) MarshalJSON() ([]byte, error) {
	enc := make([]byte, hex.EncodedLen(len(b))+4)
	enc[0] = '"'
	enc[1] = '0'
	enc[2] = 'x'
	hex.Encode(enc[3:], b)
	enc[len(enc)-1] = '"'
	return enc, nil
}

// UnmarshalJSON decodes a JSON string holding hexadecimal data, optionally
// prefixed with "0x".
func (b *HexBytes) UnmarshalJSON(data []byte) error {
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return fmt.Errorf("invalid JSON string: %q", data)
	}
	decoded, err := HexStringToHexBytes(string(data[1 : len(data)-1]))
	if err != nil {
		return err
	}
	*b = decoded
	return nil
}

// HexStringToHexBytes converts a hex string, with or without the 0x prefix,
// to HexBytes.
func HexStringToHexBytes(hexString string) (HexBytes, error) {
	if len(hexString) >= 2 && hexString[0] == '0' && (hexString[1] == 'x' || hexString[1] == 'X') {
		hexString = hexString[2:]
	}
	b, err := hex.DecodeString(hexString)
	if err != nil {
		return nil, fmt.Errorf("invalid hex string %q: %w", hexString, err)
	}
	return b, nil
}
